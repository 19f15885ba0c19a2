package handler

import (
	"errors"
	"io"
	"time"

	"group-vault/internal/adapter/http/dto"
	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"
	"group-vault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ApprovalHandler handles proposal and voting endpoints.
type ApprovalHandler struct {
	approvalSvc ports.ApprovalService
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(approvalSvc ports.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalSvc: approvalSvc}
}

// Propose handles POST /api/v1/wallets/:id/proposals.
func (h *ApprovalHandler) Propose(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	walletID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ProposeRequest
	if !bindJSON(c, &req) {
		return
	}
	amt, ok := amount(c, req.Amount)
	if !ok {
		return
	}

	proposal, err := h.approvalSvc.Propose(c.Request.Context(), ports.ProposeRequest{
		WalletID:    walletID,
		ProposerID:  userID,
		Type:        domain.ProposalType(req.Type),
		Amount:      amt,
		Currency:    req.Currency,
		Recipient:   req.Recipient,
		Description: req.Description,
		ExpiresIn:   time.Duration(req.ExpiresInSeconds) * time.Second,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, proposal)
}

// List handles GET /api/v1/wallets/:id/proposals?status=.
func (h *ApprovalHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	walletID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := pageQuery(c)

	params := ports.ApprovalListParams{WalletID: walletID, Page: page, PageSize: pageSize}
	if s := c.Query("status"); s != "" {
		status := domain.ApprovalStatus(s)
		params.Status = &status
	}

	proposals, total, err := h.approvalSvc.ListProposals(c.Request.Context(), userID, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewPage(proposals, total, page, pageSize))
}

// Get handles GET /api/v1/proposals/:id.
func (h *ApprovalHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	proposal, err := h.approvalSvc.GetProposal(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, proposal)
}

// Vote handles POST /api/v1/proposals/:id/votes.
// A failed execution still answers 200; the proposal carries the failure.
func (h *ApprovalHandler) Vote(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.VoteRequest
	if !bindJSON(c, &req) {
		return
	}

	vote := ports.VoteRequest{ApprovalID: id, UserID: userID, Approved: *req.Approved}
	if req.PartyID != "" {
		partyID, err := uuid.Parse(req.PartyID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid party_id"))
			return
		}
		vote.PartyID = &partyID
	}

	proposal, err := h.approvalSvc.Vote(c.Request.Context(), vote)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, proposal)
}

// Cancel handles POST /api/v1/proposals/:id/cancel. The body is optional.
func (h *ApprovalHandler) Cancel(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	proposal, err := h.approvalSvc.Cancel(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, proposal)
}
