package handler

import (
	"group-vault/internal/adapter/http/dto"
	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/response"

	"github.com/gin-gonic/gin"
)

// MemberHandler handles vault membership endpoints.
type MemberHandler struct {
	vaultSvc ports.VaultService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(vaultSvc ports.VaultService) *MemberHandler {
	return &MemberHandler{vaultSvc: vaultSvc}
}

// Invite handles POST /api/v1/vaults/:id/members.
func (h *MemberHandler) Invite(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.InviteMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	contribution, ok := optionalAmount(c, "contribution_limit", req.ContributionLimit)
	if !ok {
		return
	}
	withdrawal, ok := optionalAmount(c, "withdrawal_limit", req.WithdrawalLimit)
	if !ok {
		return
	}

	member, err := h.vaultSvc.InviteMember(c.Request.Context(), ports.InviteMemberRequest{
		VaultID:           vaultID,
		CallerID:          userID,
		UserID:            req.UserID,
		Role:              domain.MemberRole(req.Role),
		ContributionLimit: contribution,
		WithdrawalLimit:   withdrawal,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// Accept handles POST /api/v1/vaults/:id/members/accept.
func (h *MemberHandler) Accept(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	member, err := h.vaultSvc.AcceptInvitation(c.Request.Context(), vaultID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, member)
}

// ChangeRole handles PUT /api/v1/vaults/:id/members/:userId/role.
// Granting owner transfers ownership.
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.vaultSvc.ChangeMemberRole(c.Request.Context(), ports.ChangeRoleRequest{
		VaultID:  vaultID,
		CallerID: userID,
		UserID:   c.Param("userId"),
		Role:     domain.MemberRole(req.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, member)
}

// UpdateLimits handles PUT /api/v1/vaults/:id/members/:userId/limits.
func (h *MemberHandler) UpdateLimits(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateLimitsRequest
	if !bindJSON(c, &req) {
		return
	}
	contribution, ok := optionalAmount(c, "contribution_limit", req.ContributionLimit)
	if !ok {
		return
	}
	withdrawal, ok := optionalAmount(c, "withdrawal_limit", req.WithdrawalLimit)
	if !ok {
		return
	}

	member, err := h.vaultSvc.UpdateMemberLimits(c.Request.Context(), ports.UpdateLimitsRequest{
		VaultID:           vaultID,
		CallerID:          userID,
		UserID:            c.Param("userId"),
		ContributionLimit: contribution,
		WithdrawalLimit:   withdrawal,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, member)
}

// Remove handles DELETE /api/v1/vaults/:id/members/:userId.
func (h *MemberHandler) Remove(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.vaultSvc.RemoveMember(c.Request.Context(), vaultID, userID, c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
