package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/internal/core/ports/mocks"
	"group-vault/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router    *gin.Engine
	vaults    *mocks.MockVaultService
	reporting *mocks.MockReportingService
	approvals *mocks.MockApprovalService
}

// newTestAPI wires the real router over service mocks. The bearer token is the user id.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctrl := gomock.NewController(t)

	tokens := mocks.NewMockTokenService(ctrl)
	tokens.EXPECT().Validate(gomock.Any()).DoAndReturn(func(token string) (*ports.TokenClaims, error) {
		if token == "expired" {
			return nil, errors.New("token is expired")
		}
		return &ports.TokenClaims{UserID: token}, nil
	}).AnyTimes()

	api := &testAPI{
		vaults:    mocks.NewMockVaultService(ctrl),
		reporting: mocks.NewMockReportingService(ctrl),
		approvals: mocks.NewMockApprovalService(ctrl),
	}
	api.router = SetupRouter(RouterDeps{
		VaultSvc:     api.vaults,
		ApprovalSvc:  api.approvals,
		ReportingSvc: api.reporting,
		TokenSvc:     tokens,
		OpenAPISpec:  []byte("openapi: 3.0.3\n"),
		Logger:       zerolog.Nop(),
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path, user string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	d, ok := decode(t, w)["data"].(map[string]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	return d
}

// --- Auth ---

func TestAPI_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/vaults", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/vaults", "expired", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_001", decode(t, w)["error_code"])
}

// --- Vaults ---

func TestCreateVault_Success(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()

	api.vaults.EXPECT().CreateVault(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.CreateVaultRequest) (*domain.Vault, error) {
			assert.Equal(t, "alice", req.OwnerID)
			assert.Equal(t, "Holiday fund", req.Name)
			assert.Equal(t, domain.VaultTypeGoal, req.VaultType)
			require.NotNil(t, req.TargetAmount)
			assert.True(t, req.TargetAmount.Equal(decimal.RequireFromString("5000")))
			require.NotNil(t, req.Rules.DefaultWithdrawalLimit)
			assert.Nil(t, req.Rules.DefaultContributionLimit)
			return &domain.Vault{ID: vaultID, Name: req.Name, Currency: "USD", OwnerID: "alice"}, nil
		})

	w := api.do(t, http.MethodPost, "/api/v1/vaults", "alice", map[string]interface{}{
		"name":          "  Holiday fund ",
		"vault_type":    "goal",
		"currency":      "USD",
		"target_amount": "5000",
		"rules":         map[string]string{"default_withdrawal_limit": "100"},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, vaultID.String(), data(t, w)["id"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateVault_ValidationError(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"empty", map[string]interface{}{}},
		{"bad currency", map[string]interface{}{"name": "x", "currency": "U$D"}},
		{"bad type", map[string]interface{}{"name": "x", "currency": "USD", "vault_type": "casino"}},
		{"negative target", map[string]interface{}{"name": "x", "currency": "USD", "target_amount": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/v1/vaults", "alice", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VAL_001", decode(t, w)["error_code"])
		})
	}
}

func TestListVaults_Paged(t *testing.T) {
	api := newTestAPI(t)
	api.vaults.EXPECT().ListVaults(gomock.Any(), "alice", 2, 5).
		Return([]domain.Vault{{ID: uuid.New()}}, int64(6), nil)

	w := api.do(t, http.MethodGet, "/api/v1/vaults?page=2&page_size=5", "alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	page := data(t, w)
	assert.Equal(t, float64(6), page["total"])
	assert.Equal(t, float64(2), page["total_pages"])
	assert.Len(t, page["items"], 1)
}

func TestListVaults_ClampsPaging(t *testing.T) {
	api := newTestAPI(t)
	api.vaults.EXPECT().ListVaults(gomock.Any(), "alice", 1, 100).
		Return([]domain.Vault{{ID: uuid.New()}}, int64(250), nil)

	w := api.do(t, http.MethodGet, "/api/v1/vaults?page=0&page_size=1000", "alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	page := data(t, w)
	assert.Equal(t, float64(1), page["page"])
	assert.Equal(t, float64(100), page["page_size"])
	assert.Equal(t, float64(3), page["total_pages"])
}

func TestCreateVault_TokenSymbol(t *testing.T) {
	api := newTestAPI(t)
	api.vaults.EXPECT().CreateVault(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.CreateVaultRequest) (*domain.Vault, error) {
			assert.Equal(t, "USDT", req.Currency)
			return &domain.Vault{ID: uuid.New(), Name: req.Name, Currency: req.Currency, OwnerID: "alice"}, nil
		})

	w := api.do(t, http.MethodPost, "/api/v1/vaults", "alice", map[string]interface{}{
		"name":     "Stable pot",
		"currency": "USDT",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "USDT", data(t, w)["currency"])
}

func TestGetVault_BadID(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/vaults/not-a-uuid", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVault_PublicView(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	api.vaults.EXPECT().GetVaultDetails(gomock.Any(), vaultID, "mallory").Return(&ports.VaultDetails{
		Vault:       &domain.Vault{ID: vaultID, IsPublic: true},
		MemberCount: 3,
	}, nil)

	w := api.do(t, http.MethodGet, "/api/v1/vaults/"+vaultID.String(), "mallory", nil)

	require.Equal(t, http.StatusOK, w.Code)
	d := data(t, w)
	assert.Equal(t, float64(3), d["member_count"])
	assert.NotContains(t, d, "members")
	assert.NotContains(t, d, "recent_transactions")
}

func TestDeleteVault(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	api.vaults.EXPECT().DeleteVault(gomock.Any(), vaultID, "alice").Return(nil)
	api.vaults.EXPECT().DeleteVault(gomock.Any(), vaultID, "bob").
		Return(apperror.ErrPermission("only the owner can delete a vault"))

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/api/v1/vaults/"+vaultID.String(), "alice", nil).Code)

	w := api.do(t, http.MethodDelete, "/api/v1/vaults/"+vaultID.String(), "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission", decode(t, w)["kind"])
}

// --- Ledger ---

func TestDeposit_PassesIdempotencyKey(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()

	api.vaults.EXPECT().Deposit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.LedgerRequest) (*domain.VaultTransaction, error) {
			assert.Equal(t, vaultID, req.VaultID)
			assert.Equal(t, "bob", req.UserID)
			assert.Equal(t, "dep-1", req.IdempotencyKey)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("125.50")))
			return &domain.VaultTransaction{
				ID:           uuid.New(),
				VaultID:      vaultID,
				Type:         domain.TransactionTypeDeposit,
				Amount:       req.Amount,
				BalanceAfter: req.Amount,
			}, nil
		})

	w := api.do(t, http.MethodPost, "/api/v1/vaults/"+vaultID.String()+"/deposits", "bob",
		map[string]string{"amount": "125.50"}, HeaderIdempotencyKey, "dep-1")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "125.5", data(t, w)["amount"])
}

func TestWithdraw_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient", apperror.ErrInsufficientBalance(), http.StatusUnprocessableEntity, "BAL_001"},
		{"limit", apperror.ErrLimitExceeded("withdrawal limit exceeded"), http.StatusUnprocessableEntity, "LIM_001"},
		{"not found", apperror.ErrNotFound("vault"), http.StatusNotFound, "NF_001"},
		{"contention", apperror.ErrConcurrentModification(errors.New("version conflict")), http.StatusConflict, "SYS_002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.vaults.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w := api.do(t, http.MethodPost, "/api/v1/vaults/"+uuid.NewString()+"/withdrawals", "bob",
				map[string]string{"amount": "10"})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["error_code"])
		})
	}
}

func TestDeposit_InvalidAmount(t *testing.T) {
	api := newTestAPI(t)

	for _, amt := range []string{"0", "-3", "ten", "0.0000000000000000001", "100000000000000000000"} {
		w := api.do(t, http.MethodPost, "/api/v1/vaults/"+uuid.NewString()+"/deposits", "bob",
			map[string]string{"amount": amt})
		assert.Equal(t, http.StatusBadRequest, w.Code, amt)
	}
}

func TestListTransactions_Filters(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	api.reporting.EXPECT().ListTransactions(gomock.Any(), "alice", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, params ports.TransactionListParams) ([]domain.VaultTransaction, int64, error) {
			assert.Equal(t, vaultID, params.VaultID)
			require.NotNil(t, params.Type)
			assert.Equal(t, domain.TransactionTypeWithdraw, *params.Type)
			require.NotNil(t, params.From)
			assert.True(t, params.From.Equal(from))
			assert.Nil(t, params.To)
			return []domain.VaultTransaction{}, 0, nil
		})

	w := api.do(t, http.MethodGet, "/api/v1/vaults/"+vaultID.String()+"/transactions?type=withdraw&from=2026-05-01T00:00:00Z", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/vaults/"+vaultID.String()+"/transactions?type=refund", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/vaults/"+vaultID.String()+"/transactions?to=yesterday", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	api.reporting.EXPECT().GetStats(gomock.Any(), vaultID, "alice", "week").Return(&ports.VaultStats{
		TotalTransactions: 3,
		Deposits:          2,
		Withdrawals:       1,
		TotalDeposited:    decimal.RequireFromString("300"),
		TotalWithdrawn:    decimal.RequireFromString("50"),
		NetFlow:           decimal.RequireFromString("250"),
	}, nil)

	w := api.do(t, http.MethodGet, "/api/v1/vaults/"+vaultID.String()+"/stats?period=week", "alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	d := data(t, w)
	assert.Equal(t, "week", d["period"])
	assert.Equal(t, "250", d["net_flow"])
	assert.Equal(t, float64(2), d["deposits"])
}

// --- Members ---

func TestInviteMember(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()

	api.vaults.EXPECT().InviteMember(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.InviteMemberRequest) (*domain.VaultMember, error) {
			assert.Equal(t, "alice", req.CallerID)
			assert.Equal(t, "bob", req.UserID)
			assert.Equal(t, domain.RoleMember, req.Role)
			require.NotNil(t, req.WithdrawalLimit)
			assert.Nil(t, req.ContributionLimit)
			return &domain.VaultMember{VaultID: vaultID, UserID: "bob", Role: req.Role, Status: domain.MemberStatusInvited}, nil
		})

	w := api.do(t, http.MethodPost, "/api/v1/vaults/"+vaultID.String()+"/members", "alice",
		map[string]string{"user_id": "bob", "role": "member", "withdrawal_limit": "40"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "invited", data(t, w)["status"])
}

func TestInviteMember_RejectsOwnerRoleAndUnsafeID(t *testing.T) {
	api := newTestAPI(t)
	path := "/api/v1/vaults/" + uuid.NewString() + "/members"

	w := api.do(t, http.MethodPost, path, "alice", map[string]string{"user_id": "bob", "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, path, "alice", map[string]string{"user_id": "bob smith", "role": "member"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcceptInvitation(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	api.vaults.EXPECT().AcceptInvitation(gomock.Any(), vaultID, "bob").
		Return(&domain.VaultMember{UserID: "bob", Status: domain.MemberStatusActive}, nil)

	w := api.do(t, http.MethodPost, "/api/v1/vaults/"+vaultID.String()+"/members/accept", "bob", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "active", data(t, w)["status"])
}

func TestChangeRole_TargetFromPath(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	api.vaults.EXPECT().ChangeMemberRole(gomock.Any(), ports.ChangeRoleRequest{
		VaultID:  vaultID,
		CallerID: "alice",
		UserID:   "bob",
		Role:     domain.RoleOwner,
	}).Return(&domain.VaultMember{UserID: "bob", Role: domain.RoleOwner}, nil)

	w := api.do(t, http.MethodPut, "/api/v1/vaults/"+vaultID.String()+"/members/bob/role", "alice",
		map[string]string{"role": "owner"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateLimits_EmptyBodyClears(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	api.vaults.EXPECT().UpdateMemberLimits(gomock.Any(), ports.UpdateLimitsRequest{
		VaultID:  vaultID,
		CallerID: "alice",
		UserID:   "bob",
	}).Return(&domain.VaultMember{UserID: "bob"}, nil)

	w := api.do(t, http.MethodPut, "/api/v1/vaults/"+vaultID.String()+"/members/bob/limits", "alice",
		map[string]string{})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRemoveMember(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()
	api.vaults.EXPECT().RemoveMember(gomock.Any(), vaultID, "alice", "alice").
		Return(apperror.ErrInvariantViolation("the owner cannot be removed"))

	w := api.do(t, http.MethodDelete, "/api/v1/vaults/"+vaultID.String()+"/members/alice", "alice", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invariant_violation", decode(t, w)["kind"])
}

// --- Wallets ---

func TestCreateWallet(t *testing.T) {
	api := newTestAPI(t)
	vaultID := uuid.New()

	api.approvals.EXPECT().CreateWallet(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.CreateWalletRequest) (*ports.WalletDetails, error) {
			assert.Equal(t, vaultID, req.VaultID)
			assert.Equal(t, 2, req.Threshold)
			require.Len(t, req.Parties, 2)
			assert.Equal(t, ports.PartySpec{UserID: "bob", Role: domain.PartyRoleCosigner, Weight: 2}, req.Parties[0])
			assert.Equal(t, "carol", req.Parties[1].UserID)
			return &ports.WalletDetails{Wallet: &domain.Wallet{ID: uuid.New(), Threshold: 2}, ActiveWeight: 4}, nil
		})

	w := api.do(t, http.MethodPost, "/api/v1/vaults/"+vaultID.String()+"/wallets", "alice", map[string]interface{}{
		"name":      "ops",
		"threshold": 2,
		"parties": []map[string]interface{}{
			{"user_id": "bob", "role": "cosigner", "weight": 2},
			{"user_id": " carol "},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(4), data(t, w)["active_weight"])
}

func TestCreateWallet_BadParty(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/vaults/"+uuid.NewString()+"/wallets", "alice", map[string]interface{}{
		"name":      "ops",
		"threshold": 1,
		"parties":   []map[string]interface{}{{"user_id": "bob", "role": "king"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateParty(t *testing.T) {
	api := newTestAPI(t)
	walletID, partyID := uuid.New(), uuid.New()
	api.approvals.EXPECT().DeactivateParty(gomock.Any(), walletID, partyID, "alice").
		Return(nil, apperror.ErrInvariantViolation("threshold would become unreachable"))

	w := api.do(t, http.MethodDelete, "/api/v1/wallets/"+walletID.String()+"/parties/"+partyID.String(), "alice", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INV_001", decode(t, w)["error_code"])
}

// --- Proposals ---

func TestPropose(t *testing.T) {
	api := newTestAPI(t)
	walletID := uuid.New()

	api.approvals.EXPECT().Propose(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.ProposeRequest) (*domain.PendingApproval, error) {
			assert.Equal(t, "bob", req.ProposerID)
			assert.Equal(t, domain.ProposalTypeTransfer, req.Type)
			assert.Equal(t, "acct-778", req.Recipient)
			assert.Equal(t, 2*time.Hour, req.ExpiresIn)
			return &domain.PendingApproval{ID: uuid.New(), Status: domain.ApprovalStatusPending, RequiredApprovals: 2}, nil
		})

	w := api.do(t, http.MethodPost, "/api/v1/wallets/"+walletID.String()+"/proposals", "bob", map[string]interface{}{
		"type":               "transfer",
		"amount":             "500",
		"recipient":          "acct-778",
		"expires_in_seconds": 7200,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pending_approval", data(t, w)["status"])
}

func TestPropose_ExpiryOutOfRange(t *testing.T) {
	api := newTestAPI(t)
	walletID := uuid.New()

	// No Propose expectation: the request must not reach the service.
	for _, secs := range []int64{-1, 18446744074} {
		w := api.do(t, http.MethodPost, "/api/v1/wallets/"+walletID.String()+"/proposals", "bob", map[string]interface{}{
			"type":               "withdraw",
			"amount":             "5",
			"expires_in_seconds": secs,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, secs)
		assert.Equal(t, "VAL_001", decode(t, w)["error_code"])
	}
}

func TestListProposals_StatusFilter(t *testing.T) {
	api := newTestAPI(t)
	walletID := uuid.New()

	api.approvals.EXPECT().ListProposals(gomock.Any(), "alice", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, params ports.ApprovalListParams) ([]domain.PendingApproval, int64, error) {
			require.NotNil(t, params.Status)
			assert.Equal(t, domain.ApprovalStatusExecuted, *params.Status)
			return nil, 0, nil
		})

	w := api.do(t, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/proposals?status=executed", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVote(t *testing.T) {
	api := newTestAPI(t)
	approvalID, partyID := uuid.New(), uuid.New()

	api.approvals.EXPECT().Vote(gomock.Any(), ports.VoteRequest{
		ApprovalID: approvalID,
		UserID:     "carol",
		PartyID:    &partyID,
		Approved:   false,
	}).Return(&domain.PendingApproval{ID: approvalID, Status: domain.ApprovalStatusPending}, nil)

	w := api.do(t, http.MethodPost, "/api/v1/proposals/"+approvalID.String()+"/votes", "carol",
		map[string]interface{}{"approved": false, "party_id": partyID.String()})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVote_ExecutionFailureStillOK(t *testing.T) {
	api := newTestAPI(t)
	approvalID := uuid.New()
	api.approvals.EXPECT().Vote(gomock.Any(), gomock.Any()).Return(&domain.PendingApproval{
		ID:            approvalID,
		Status:        domain.ApprovalStatusExecutionFailed,
		FailureReason: "Insufficient vault balance",
	}, nil)

	w := api.do(t, http.MethodPost, "/api/v1/proposals/"+approvalID.String()+"/votes", "bob",
		map[string]interface{}{"approved": true})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "execution_failed", data(t, w)["status"])
}

func TestVote_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"already voted", apperror.ErrAlreadyVoted(), http.StatusConflict},
		{"expired", apperror.ErrExpired(), http.StatusGone},
		{"not pending", apperror.ErrNotPending("executed"), http.StatusConflict},
		{"not a party", apperror.ErrPermission("caller holds no active party"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.approvals.EXPECT().Vote(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w := api.do(t, http.MethodPost, "/api/v1/proposals/"+uuid.NewString()+"/votes", "bob",
				map[string]interface{}{"approved": true})
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestVote_RequiresDecision(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/proposals/"+uuid.NewString()+"/votes", "bob", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancel_OptionalBody(t *testing.T) {
	api := newTestAPI(t)
	approvalID := uuid.New()
	cancelled := &domain.PendingApproval{ID: approvalID, Status: domain.ApprovalStatusRejected}
	api.approvals.EXPECT().Cancel(gomock.Any(), approvalID, "bob", "").Return(cancelled, nil)
	api.approvals.EXPECT().Cancel(gomock.Any(), approvalID, "bob", "changed my mind").Return(cancelled, nil)

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/proposals/"+approvalID.String()+"/cancel", "bob", nil).Code)

	w := api.do(t, http.MethodPost, "/api/v1/proposals/"+approvalID.String()+"/cancel", "bob",
		map[string]string{"reason": " changed my mind "})
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Health & docs ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck(t *testing.T) {
	r := gin.New()
	r.GET("/ok", HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis"}))
	r.GET("/degraded", HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis", err: errors.New("connection refused")}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/degraded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "unhealthy", deps["redis"].(map[string]interface{})["status"])
}

func TestSwagger(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/swagger/spec", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi")

	w = api.do(t, http.MethodGet, "/swagger", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Group Vault API")

	r := gin.New()
	r.GET("/spec", SwaggerSpec(nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/spec", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
