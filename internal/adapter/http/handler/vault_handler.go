package handler

import (
	"context"
	"time"

	"group-vault/internal/adapter/http/dto"
	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"
	"group-vault/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey makes a deposit or withdrawal replay-safe.
const HeaderIdempotencyKey = "Idempotency-Key"

// VaultHandler handles vault, ledger and reporting endpoints.
type VaultHandler struct {
	vaultSvc     ports.VaultService
	reportingSvc ports.ReportingService
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(vaultSvc ports.VaultService, reportingSvc ports.ReportingService) *VaultHandler {
	return &VaultHandler{vaultSvc: vaultSvc, reportingSvc: reportingSvc}
}

// Create handles POST /api/v1/vaults.
func (h *VaultHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.CreateVaultRequest
	if !bindJSON(c, &req) {
		return
	}

	target, ok := optionalAmount(c, "target_amount", req.TargetAmount)
	if !ok {
		return
	}
	var rules domain.VaultRules
	if req.Rules != nil {
		if rules.DefaultContributionLimit, ok = optionalAmount(c, "default_contribution_limit", req.Rules.DefaultContributionLimit); !ok {
			return
		}
		if rules.DefaultWithdrawalLimit, ok = optionalAmount(c, "default_withdrawal_limit", req.Rules.DefaultWithdrawalLimit); !ok {
			return
		}
	}

	vault, err := h.vaultSvc.CreateVault(c.Request.Context(), ports.CreateVaultRequest{
		OwnerID:      userID,
		Name:         req.Name,
		Description:  req.Description,
		VaultType:    domain.VaultType(req.VaultType),
		Currency:     req.Currency,
		TargetAmount: target,
		IsPublic:     req.IsPublic,
		Rules:        rules,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, vault)
}

// List handles GET /api/v1/vaults.
func (h *VaultHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	page, pageSize := pageQuery(c)

	vaults, total, err := h.vaultSvc.ListVaults(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewPage(vaults, total, page, pageSize))
}

// Get handles GET /api/v1/vaults/:id.
func (h *VaultHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	details, err := h.vaultSvc.GetVaultDetails(c.Request.Context(), vaultID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}

// Delete handles DELETE /api/v1/vaults/:id.
func (h *VaultHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.vaultSvc.DeleteVault(c.Request.Context(), vaultID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deposit handles POST /api/v1/vaults/:id/deposits.
func (h *VaultHandler) Deposit(c *gin.Context) {
	h.ledger(c, h.vaultSvc.Deposit)
}

// Withdraw handles POST /api/v1/vaults/:id/withdrawals.
func (h *VaultHandler) Withdraw(c *gin.Context) {
	h.ledger(c, h.vaultSvc.Withdraw)
}

type ledgerFunc func(ctx context.Context, req ports.LedgerRequest) (*domain.VaultTransaction, error)

func (h *VaultHandler) ledger(c *gin.Context, apply ledgerFunc) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.LedgerRequest
	if !bindJSON(c, &req) {
		return
	}
	amt, ok := amount(c, req.Amount)
	if !ok {
		return
	}

	entry, err := apply(c.Request.Context(), ports.LedgerRequest{
		VaultID:        vaultID,
		UserID:         userID,
		Amount:         amt,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// ListTransactions handles GET /api/v1/vaults/:id/transactions.
// Filters: type, user_id, from, to (RFC 3339).
func (h *VaultHandler) ListTransactions(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := pageQuery(c)

	params := ports.TransactionListParams{
		VaultID:  vaultID,
		Page:     page,
		PageSize: pageSize,
	}
	if t := c.Query("type"); t != "" {
		txType := domain.TransactionType(t)
		if txType != domain.TransactionTypeDeposit && txType != domain.TransactionTypeWithdraw {
			response.Error(c, apperror.Validation("type must be deposit or withdraw"))
			return
		}
		params.Type = &txType
	}
	if u := c.Query("user_id"); u != "" {
		params.UserID = &u
	}
	if params.From, ok = timeQuery(c, "from"); !ok {
		return
	}
	if params.To, ok = timeQuery(c, "to"); !ok {
		return
	}

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), userID, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewPage(txns, total, params.Page, params.PageSize))
}

// GetStats handles GET /api/v1/vaults/:id/stats?period=day|week|month|all.
func (h *VaultHandler) GetStats(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	vaultID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.GetStats(c.Request.Context(), vaultID, userID, period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.VaultStatsResponse{
		Period:            period,
		TotalTransactions: stats.TotalTransactions,
		Deposits:          stats.Deposits,
		Withdrawals:       stats.Withdrawals,
		TotalDeposited:    stats.TotalDeposited.String(),
		TotalWithdrawn:    stats.TotalWithdrawn.String(),
		NetFlow:           stats.NetFlow.String(),
	})
}

func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, apperror.Validation(name+" must be an RFC 3339 timestamp"))
		return nil, false
	}
	return &t, true
}
