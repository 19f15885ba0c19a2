package handler

import (
	"group-vault/internal/adapter/http/dto"
	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles threshold wallet and party endpoints.
type WalletHandler struct {
	approvalSvc ports.ApprovalService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(approvalSvc ports.ApprovalService) *WalletHandler {
	return &WalletHandler{approvalSvc: approvalSvc}
}

// Create handles POST /api/v1/vaults/:id/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CreateWalletRequest
	if !bindJSON(c, &req) {
		return
	}
	for i := range req.Parties {
		dto.SanitizeStruct(&req.Parties[i])
	}

	parties := make([]ports.PartySpec, 0, len(req.Parties))
	for _, p := range req.Parties {
		parties = append(parties, partySpec(p))
	}

	details, err := h.approvalSvc.CreateWallet(c.Request.Context(), ports.CreateWalletRequest{
		VaultID:   vaultID,
		CallerID:  userID,
		Name:      req.Name,
		Threshold: req.Threshold,
		Parties:   parties,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, details)
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	walletID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	details, err := h.approvalSvc.GetWallet(c.Request.Context(), walletID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}

// AddParty handles POST /api/v1/wallets/:id/parties.
func (h *WalletHandler) AddParty(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	walletID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.PartyRequest
	if !bindJSON(c, &req) {
		return
	}

	party, err := h.approvalSvc.AddParty(c.Request.Context(), ports.AddPartyRequest{
		WalletID: walletID,
		CallerID: userID,
		Party:    partySpec(req),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, party)
}

// DeactivateParty handles DELETE /api/v1/wallets/:id/parties/:partyId.
func (h *WalletHandler) DeactivateParty(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	walletID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	partyID, ok := uuidParam(c, "partyId")
	if !ok {
		return
	}

	party, err := h.approvalSvc.DeactivateParty(c.Request.Context(), walletID, partyID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, party)
}

func partySpec(p dto.PartyRequest) ports.PartySpec {
	return ports.PartySpec{
		UserID: p.UserID,
		Role:   domain.PartyRole(p.Role),
		Weight: p.Weight,
	}
}
