package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoOfThree sets up a vault funded with 1000 and a 2-of-3 wallet held by alice, bob and carol.
func twoOfThree(t *testing.T) (*testEnv, *domain.Vault, *ports.WalletDetails) {
	t.Helper()
	env := newTestEnv(t)
	v := env.createVault(t, "alice", "USD")
	env.join(t, v.ID, "alice", "bob", domain.RoleMember)
	env.join(t, v.ID, "alice", "carol", domain.RoleMember)
	env.deposit(t, v.ID, "alice", "1000")
	w := env.newWallet(t, v.ID, "alice", 2, "bob", "carol")
	return env, v, w
}

func approvalEntries(t *testing.T, env *testEnv, vaultID, approvalID uuid.UUID) []domain.VaultTransaction {
	t.Helper()
	var out []domain.VaultTransaction
	for _, e := range env.ledgerEntries(t, vaultID) {
		if e.ApprovalID != nil && *e.ApprovalID == approvalID {
			out = append(out, e)
		}
	}
	return out
}

// insertApproval writes a proposal row directly, bypassing Propose.
func insertApproval(t *testing.T, env *testEnv, p *domain.PendingApproval) {
	t.Helper()
	ctx := context.Background()
	tx, err := env.repos.Transactor.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, env.repos.Approvals.Create(ctx, tx, p))
	require.NoError(t, tx.Commit(ctx))
}

func TestApprovalService_ThresholdExecutesOnce(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()
	require.Len(t, w.Parties, 3)
	assert.Equal(t, 3, w.ActiveWeight)

	p := env.propose(t, w.Wallet.ID, "bob", "500")
	assert.Equal(t, domain.ApprovalStatusPending, p.Status)
	assert.Equal(t, 2, p.RequiredApprovals)
	assert.Equal(t, env.clock.Now().Add(24*time.Hour), p.ExpiresAt)

	p = env.vote(t, p.ID, "bob", true)
	assert.Equal(t, domain.ApprovalStatusPending, p.Status)
	assertDecimal(t, "1000", env.balance(t, v.ID))

	p = env.vote(t, p.ID, "carol", true)
	assert.Equal(t, domain.ApprovalStatusExecuted, p.Status)
	require.NotNil(t, p.ApprovedAt)
	require.NotNil(t, p.ExecutedAt)
	require.NotNil(t, p.LedgerTransactionID)
	assertDecimal(t, "500", env.balance(t, v.ID))

	entries := approvalEntries(t, env, v.ID, p.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, *p.LedgerTransactionID, entries[0].ID)
	assert.Equal(t, "bob", entries[0].UserID)
	assertDecimal(t, "500", entries[0].BalanceAfter)

	// A late vote and a repeated Execute change nothing.
	_, err := env.approvals.Vote(ctx, ports.VoteRequest{ApprovalID: p.ID, UserID: "alice", Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindInvariantViolation))
	again, err := env.approvals.Execute(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusExecuted, again.Status)
	assertDecimal(t, "500", env.balance(t, v.ID))

	assert.Equal(t, 1, env.notifier.count(domain.EventApprovalProposed))
	assert.Equal(t, 2, env.notifier.count(domain.EventApprovalVoted))
	assert.Equal(t, 1, env.notifier.count(domain.EventApprovalApproved))
	assert.Equal(t, 1, env.notifier.count(domain.EventApprovalExecuted))
}

func TestApprovalService_ConcurrentVotesExecuteOnce(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()
	p := env.propose(t, w.Wallet.ID, "alice", "300")

	var wg sync.WaitGroup
	for _, u := range []string{"alice", "bob", "carol"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			// The last voter may find the proposal already approved.
			_, _ = env.approvals.Vote(ctx, ports.VoteRequest{ApprovalID: p.ID, UserID: user, Approved: true})
		}(u)
	}
	wg.Wait()

	final, err := env.repos.Approvals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusExecuted, final.Status)
	assert.Len(t, final.Votes, 2)
	assert.Len(t, approvalEntries(t, env, v.ID, p.ID), 1)
	assertDecimal(t, "700", env.balance(t, v.ID))
}

func TestApprovalService_ConcurrentExecuteOnce(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()
	approvedAt := env.clock.Now()
	p := &domain.PendingApproval{
		ID:                uuid.New(),
		WalletID:          w.Wallet.ID,
		VaultID:           v.ID,
		ProposerID:        "alice",
		Type:              domain.ProposalTypeWithdraw,
		Amount:            dec("250"),
		Currency:          "USD",
		RequiredApprovals: 2,
		Status:            domain.ApprovalStatusApproved,
		ExpiresAt:         approvedAt.Add(time.Hour),
		ApprovedAt:        &approvedAt,
		CreatedAt:         approvedAt,
		UpdatedAt:         approvedAt,
	}
	insertApproval(t, env, p)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := env.approvals.Execute(ctx, p.ID)
			if err != nil {
				errs <- err
				return
			}
			if got.Status != domain.ApprovalStatusExecuted {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("execute: %v", err)
	}

	assert.Len(t, approvalEntries(t, env, v.ID, p.ID), 1)
	assertDecimal(t, "750", env.balance(t, v.ID))
	assert.Equal(t, 1, env.notifier.count(domain.EventApprovalExecuted))
}

func TestApprovalService_ExecutePendingIsNoop(t *testing.T) {
	env, v, w := twoOfThree(t)
	p := env.propose(t, w.Wallet.ID, "alice", "10")

	got, err := env.approvals.Execute(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusPending, got.Status)
	assertDecimal(t, "1000", env.balance(t, v.ID))

	_, err = env.approvals.Execute(context.Background(), uuid.New())
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestApprovalService_AlreadyVoted(t *testing.T) {
	env, _, w := twoOfThree(t)
	ctx := context.Background()
	p := env.propose(t, w.Wallet.ID, "alice", "10")
	env.vote(t, p.ID, "bob", false)

	_, err := env.approvals.Vote(ctx, ports.VoteRequest{ApprovalID: p.ID, UserID: "bob", Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindAlreadyVoted))

	got, err := env.repos.Approvals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Votes, 1)
	assert.False(t, got.Votes[0].Approved)
}

// Rejections are recorded but never veto; approvals still reach the threshold.
func TestApprovalService_RejectionDoesNotVeto(t *testing.T) {
	env, v, w := twoOfThree(t)
	p := env.propose(t, w.Wallet.ID, "alice", "100")

	p = env.vote(t, p.ID, "bob", false)
	assert.Equal(t, domain.ApprovalStatusPending, p.Status)
	p = env.vote(t, p.ID, "alice", true)
	assert.Equal(t, domain.ApprovalStatusPending, p.Status)
	p = env.vote(t, p.ID, "carol", true)
	assert.Equal(t, domain.ApprovalStatusExecuted, p.Status)
	assertDecimal(t, "900", env.balance(t, v.ID))
}

func TestApprovalService_WeightedParty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.createVault(t, "alice", "USD")
	env.join(t, v.ID, "alice", "bob", domain.RoleMember)
	env.deposit(t, v.ID, "alice", "100")

	w, err := env.approvals.CreateWallet(ctx, ports.CreateWalletRequest{
		VaultID:   v.ID,
		CallerID:  "alice",
		Name:      "Weighted",
		Threshold: 2,
		Parties: []ports.PartySpec{
			{UserID: "alice", Role: domain.PartyRoleOwner, Weight: 2},
			{UserID: "bob"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, w.ActiveWeight)

	p := env.propose(t, w.Wallet.ID, "bob", "40")
	p = env.vote(t, p.ID, "bob", true)
	assert.Equal(t, domain.ApprovalStatusPending, p.Status)
	p = env.vote(t, p.ID, "alice", true)
	assert.Equal(t, domain.ApprovalStatusExecuted, p.Status)
	assertDecimal(t, "60", env.balance(t, v.ID))
}

func TestApprovalService_VoteWithForeignParty(t *testing.T) {
	env, _, w := twoOfThree(t)
	p := env.propose(t, w.Wallet.ID, "alice", "10")
	bobParty := domain.FindActiveParty(w.Parties, "bob")
	require.NotNil(t, bobParty)

	_, err := env.approvals.Vote(context.Background(), ports.VoteRequest{ApprovalID: p.ID, UserID: "carol", PartyID: &bobParty.ID, Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))

	_, err = env.approvals.Vote(context.Background(), ports.VoteRequest{ApprovalID: p.ID, UserID: "mallory", Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))

	unknown := uuid.New()
	_, err = env.approvals.Vote(context.Background(), ports.VoteRequest{ApprovalID: p.ID, UserID: "carol", PartyID: &unknown, Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestApprovalService_VoteAfterExpiry(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()
	p, err := env.approvals.Propose(ctx, ports.ProposeRequest{
		WalletID:   w.Wallet.ID,
		ProposerID: "alice",
		Type:       domain.ProposalTypeWithdraw,
		Amount:     dec("100"),
		ExpiresIn:  time.Hour,
	})
	require.NoError(t, err)
	env.vote(t, p.ID, "alice", true)

	// ExpiresAt itself is already past the window.
	env.clock.Advance(time.Hour)
	_, err = env.approvals.Vote(ctx, ports.VoteRequest{ApprovalID: p.ID, UserID: "bob", Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindExpired))

	got, err := env.repos.Approvals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusExpired, got.Status)
	assert.Len(t, got.Votes, 1)
	assertDecimal(t, "1000", env.balance(t, v.ID))

	_, err = env.approvals.Vote(ctx, ports.VoteRequest{ApprovalID: p.ID, UserID: "carol", Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindExpired))
	assert.Equal(t, 1, env.notifier.count(domain.EventApprovalExpired))
}

func TestApprovalService_GetProposalExpiresLazily(t *testing.T) {
	env, _, w := twoOfThree(t)
	ctx := context.Background()
	p := env.propose(t, w.Wallet.ID, "alice", "10")

	got, err := env.approvals.GetProposal(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusPending, got.Status)

	env.clock.Advance(25 * time.Hour)
	got, err = env.approvals.GetProposal(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusExpired, got.Status)

	_, err = env.approvals.GetProposal(ctx, p.ID, "mallory")
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))
	_, err = env.approvals.GetProposal(ctx, uuid.New(), "carol")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestApprovalService_ExecutionFailed(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()
	p := env.propose(t, w.Wallet.ID, "bob", "500")
	env.vote(t, p.ID, "bob", true)

	// The balance is spent before the threshold is reached.
	_, err := env.vaults.Withdraw(ctx, ports.LedgerRequest{VaultID: v.ID, UserID: "alice", Amount: dec("800")})
	require.NoError(t, err)

	p = env.vote(t, p.ID, "carol", true)
	assert.Equal(t, domain.ApprovalStatusExecutionFailed, p.Status)
	assert.Equal(t, "Insufficient vault balance", p.FailureReason)
	assert.Nil(t, p.LedgerTransactionID)
	assertDecimal(t, "200", env.balance(t, v.ID))
	assert.Empty(t, approvalEntries(t, env, v.ID, p.ID))
	assert.Equal(t, 1, env.notifier.count(domain.EventApprovalExecutionFailed))
	failed := env.notifier.last(domain.EventApprovalExecutionFailed)
	require.NotNil(t, failed)
	assert.Equal(t, "[EXEC_001] Approved transaction failed to execute: [BAL_001] Insufficient vault balance", failed.Detail)

	// execution_failed is terminal.
	env.deposit(t, v.ID, "alice", "1000")
	again, err := env.approvals.Execute(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusExecutionFailed, again.Status)
	assertDecimal(t, "1200", env.balance(t, v.ID))
}

func TestApprovalService_TransferProposal(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()

	_, err := env.approvals.Propose(ctx, ports.ProposeRequest{
		WalletID:   w.Wallet.ID,
		ProposerID: "alice",
		Type:       domain.ProposalTypeTransfer,
		Amount:     dec("120"),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	p, err := env.approvals.Propose(ctx, ports.ProposeRequest{
		WalletID:    w.Wallet.ID,
		ProposerID:  "alice",
		Type:        domain.ProposalTypeTransfer,
		Amount:      dec("120"),
		Currency:    " usd ",
		Recipient:   " acct-778 ",
		Description: "rent",
	})
	require.NoError(t, err)
	assert.Equal(t, "acct-778", p.Recipient)

	env.vote(t, p.ID, "alice", true)
	p = env.vote(t, p.ID, "bob", true)
	require.Equal(t, domain.ApprovalStatusExecuted, p.Status)

	entries := approvalEntries(t, env, v.ID, p.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "rent (transfer to acct-778)", entries[0].Description)
	assert.Equal(t, domain.TransactionTypeWithdraw, entries[0].Type)
}

func TestApprovalService_ProposeValidation(t *testing.T) {
	env, _, w := twoOfThree(t)
	env.join(t, w.Wallet.VaultID, "alice", "dave", domain.RoleMember)

	tests := []struct {
		name string
		req  ports.ProposeRequest
		kind apperror.Kind
	}{
		{"unknown type", ports.ProposeRequest{ProposerID: "alice", Type: "swap", Amount: dec("1")}, apperror.KindValidation},
		{"zero amount", ports.ProposeRequest{ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("0")}, apperror.KindValidation},
		{"negative expiry", ports.ProposeRequest{ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("1"), ExpiresIn: -time.Minute}, apperror.KindValidation},
		{"expiry too long", ports.ProposeRequest{ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("1"), ExpiresIn: 8 * 24 * time.Hour}, apperror.KindValidation},
		{"currency mismatch", ports.ProposeRequest{ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("1"), Currency: "EUR"}, apperror.KindValidation},
		{"member without party", ports.ProposeRequest{ProposerID: "dave", Type: domain.ProposalTypeWithdraw, Amount: dec("1")}, apperror.KindPermission},
		{"outsider", ports.ProposeRequest{ProposerID: "mallory", Type: domain.ProposalTypeWithdraw, Amount: dec("1")}, apperror.KindPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.WalletID = w.Wallet.ID
			_, err := env.approvals.Propose(context.Background(), tt.req)
			assert.True(t, apperror.IsKind(err, tt.kind), "got %v", err)
		})
	}

	_, err := env.approvals.Propose(context.Background(), ports.ProposeRequest{WalletID: uuid.New(), ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("1")})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestApprovalService_Cancel(t *testing.T) {
	env, _, w := twoOfThree(t)
	ctx := context.Background()

	p := env.propose(t, w.Wallet.ID, "bob", "10")
	_, err := env.approvals.Cancel(ctx, p.ID, "carol", "")
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))

	cancelled, err := env.approvals.Cancel(ctx, p.ID, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusRejected, cancelled.Status)
	assert.Equal(t, "cancelled by bob", cancelled.RejectedReason)

	_, err = env.approvals.Vote(ctx, ports.VoteRequest{ApprovalID: p.ID, UserID: "alice", Approved: true})
	assert.True(t, apperror.IsKind(err, apperror.KindInvariantViolation))
	_, err = env.approvals.Cancel(ctx, p.ID, "bob", "")
	assert.True(t, apperror.IsKind(err, apperror.KindInvariantViolation))

	// Wallet managers can cancel proposals they did not make.
	p2 := env.propose(t, w.Wallet.ID, "carol", "10")
	cancelled, err = env.approvals.Cancel(ctx, p2.ID, "alice", "  duplicate request ")
	require.NoError(t, err)
	assert.Equal(t, "duplicate request", cancelled.RejectedReason)
	assert.Equal(t, 2, env.notifier.count(domain.EventApprovalCancelled))
}

func TestApprovalService_RemovedProposer(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()

	mine := env.propose(t, w.Wallet.ID, "bob", "100")
	other := env.propose(t, w.Wallet.ID, "carol", "50")
	require.NoError(t, env.vaults.RemoveMember(ctx, v.ID, "alice", "bob"))

	got, err := env.repos.Approvals.GetByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusRejected, got.Status)
	assert.Equal(t, "proposer removed from vault", got.RejectedReason)

	got, err = env.repos.Approvals.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusPending, got.Status)

	_, err = env.approvals.Cancel(ctx, mine.ID, "bob", "")
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))

	// A stale pending row from a removed proposer still cannot be cancelled by them.
	now := env.clock.Now()
	stale := &domain.PendingApproval{
		ID:                uuid.New(),
		WalletID:          w.Wallet.ID,
		VaultID:           v.ID,
		ProposerID:        "bob",
		Type:              domain.ProposalTypeWithdraw,
		Amount:            dec("5"),
		Currency:          "USD",
		RequiredApprovals: 2,
		Status:            domain.ApprovalStatusPending,
		ExpiresAt:         now.Add(time.Hour),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	insertApproval(t, env, stale)
	_, err = env.approvals.Cancel(ctx, stale.ID, "bob", "")
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))

	got, err = env.repos.Approvals.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusPending, got.Status)
	assert.Equal(t, 1, env.notifier.count(domain.EventApprovalCancelled))
}

func TestApprovalService_CreateWalletValidation(t *testing.T) {
	env := newTestEnv(t)
	v := env.createVault(t, "alice", "USD")
	env.join(t, v.ID, "alice", "bob", domain.RoleMember)
	_, err := env.vaults.InviteMember(context.Background(), ports.InviteMemberRequest{VaultID: v.ID, CallerID: "alice", UserID: "ivan", Role: domain.RoleMember})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  ports.CreateWalletRequest
		kind apperror.Kind
	}{
		{"missing name", ports.CreateWalletRequest{CallerID: "alice", Threshold: 1}, apperror.KindValidation},
		{"zero threshold", ports.CreateWalletRequest{CallerID: "alice", Name: "w", Threshold: 0}, apperror.KindValidation},
		{"unreachable threshold", ports.CreateWalletRequest{CallerID: "alice", Name: "w", Threshold: 3, Parties: []ports.PartySpec{{UserID: "bob"}}}, apperror.KindInvariantViolation},
		{"duplicate user", ports.CreateWalletRequest{CallerID: "alice", Name: "w", Threshold: 1, Parties: []ports.PartySpec{{UserID: "bob"}, {UserID: "bob"}}}, apperror.KindValidation},
		{"bad weight", ports.CreateWalletRequest{CallerID: "alice", Name: "w", Threshold: 1, Parties: []ports.PartySpec{{UserID: "bob", Weight: -1}}}, apperror.KindValidation},
		{"bad party role", ports.CreateWalletRequest{CallerID: "alice", Name: "w", Threshold: 1, Parties: []ports.PartySpec{{UserID: "bob", Role: "auditor"}}}, apperror.KindValidation},
		{"non-member party", ports.CreateWalletRequest{CallerID: "alice", Name: "w", Threshold: 1, Parties: []ports.PartySpec{{UserID: "zed"}}}, apperror.KindValidation},
		{"invited party", ports.CreateWalletRequest{CallerID: "alice", Name: "w", Threshold: 1, Parties: []ports.PartySpec{{UserID: "ivan"}}}, apperror.KindValidation},
		{"member cannot create", ports.CreateWalletRequest{CallerID: "bob", Name: "w", Threshold: 1}, apperror.KindPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.VaultID = v.ID
			_, err := env.approvals.CreateWallet(context.Background(), tt.req)
			assert.True(t, apperror.IsKind(err, tt.kind), "got %v", err)
		})
	}

	_, err = env.approvals.CreateWallet(context.Background(), ports.CreateWalletRequest{VaultID: uuid.New(), CallerID: "alice", Name: "w", Threshold: 1})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestApprovalService_PartyLifecycle(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()
	bob := domain.FindActiveParty(w.Parties, "bob")
	carol := domain.FindActiveParty(w.Parties, "carol")
	require.NotNil(t, bob)
	require.NotNil(t, carol)

	// Parties may step down themselves.
	got, err := env.approvals.DeactivateParty(ctx, w.Wallet.ID, bob.ID, "bob")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = env.approvals.DeactivateParty(ctx, w.Wallet.ID, carol.ID, "alice")
	assert.True(t, apperror.IsKind(err, apperror.KindInvariantViolation))

	_, err = env.approvals.DeactivateParty(ctx, w.Wallet.ID, carol.ID, "bob")
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))

	_, err = env.approvals.DeactivateParty(ctx, w.Wallet.ID, uuid.New(), "alice")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	// Repeating a deactivation is harmless.
	_, err = env.approvals.DeactivateParty(ctx, w.Wallet.ID, bob.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, env.notifier.count(domain.EventPartyDeactivated))

	reactivated, err := env.approvals.AddParty(ctx, ports.AddPartyRequest{WalletID: w.Wallet.ID, CallerID: "alice", Party: ports.PartySpec{UserID: "bob", Weight: 2}})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, reactivated.ID)
	assert.True(t, reactivated.IsActive)
	assert.Equal(t, 2, reactivated.Weight)

	_, err = env.approvals.AddParty(ctx, ports.AddPartyRequest{WalletID: w.Wallet.ID, CallerID: "alice", Party: ports.PartySpec{UserID: "carol"}})
	assert.True(t, apperror.IsKind(err, apperror.KindDuplicateMember))

	_, err = env.approvals.AddParty(ctx, ports.AddPartyRequest{WalletID: w.Wallet.ID, CallerID: "alice", Party: ports.PartySpec{UserID: "zed"}})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = env.approvals.AddParty(ctx, ports.AddPartyRequest{WalletID: w.Wallet.ID, CallerID: "bob", Party: ports.PartySpec{UserID: "dave"}})
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))

	env.join(t, v.ID, "alice", "dave", domain.RoleBackup)
	added, err := env.approvals.AddParty(ctx, ports.AddPartyRequest{WalletID: w.Wallet.ID, CallerID: "alice", Party: ports.PartySpec{UserID: "dave", Role: domain.PartyRoleRecovery}})
	require.NoError(t, err)
	assert.Equal(t, domain.PartyRoleRecovery, added.Role)

	details, err := env.approvals.GetWallet(ctx, w.Wallet.ID, "dave")
	require.NoError(t, err)
	assert.Len(t, details.Parties, 4)
	assert.Equal(t, 5, details.ActiveWeight)

	_, err = env.approvals.GetWallet(ctx, w.Wallet.ID, "mallory")
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))
}

func TestApprovalService_Sweep(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()

	short, err := env.approvals.Propose(ctx, ports.ProposeRequest{
		WalletID: w.Wallet.ID, ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("10"), ExpiresIn: time.Hour,
	})
	require.NoError(t, err)
	long := env.propose(t, w.Wallet.ID, "alice", "20")

	approvedAt := env.clock.Now()
	stale := &domain.PendingApproval{
		ID:                uuid.New(),
		WalletID:          w.Wallet.ID,
		VaultID:           v.ID,
		ProposerID:        "bob",
		Type:              domain.ProposalTypeWithdraw,
		Amount:            dec("50"),
		Currency:          "USD",
		RequiredApprovals: 2,
		Status:            domain.ApprovalStatusApproved,
		ExpiresAt:         approvedAt.Add(time.Hour),
		ApprovedAt:        &approvedAt,
		CreatedAt:         approvedAt,
		UpdatedAt:         approvedAt,
	}
	insertApproval(t, env, stale)

	// Nothing is due yet: the approval is inside its grace period.
	moved, err := env.approvals.Sweep(ctx, env.clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, moved)

	env.clock.Advance(2 * time.Hour)
	moved, err = env.approvals.Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Len(t, moved, 2)

	byID := map[uuid.UUID]domain.ApprovalStatus{}
	for _, p := range moved {
		byID[p.ID] = p.Status
	}
	assert.Equal(t, domain.ApprovalStatusExpired, byID[short.ID])
	assert.Equal(t, domain.ApprovalStatusExecuted, byID[stale.ID])

	still, err := env.repos.Approvals.GetByID(ctx, long.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusPending, still.Status)
	assertDecimal(t, "950", env.balance(t, v.ID))

	// A second pass finds nothing.
	moved, err = env.approvals.Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestApprovalService_SweepRacesFinalVote(t *testing.T) {
	for i := 0; i < 20; i++ {
		env, v, w := twoOfThree(t)
		ctx := context.Background()

		p, err := env.approvals.Propose(ctx, ports.ProposeRequest{
			WalletID: w.Wallet.ID, ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("100"), ExpiresIn: time.Hour,
		})
		require.NoError(t, err)
		env.vote(t, p.ID, "alice", true)

		// The vote still lands inside the window; the sweep runs at the deadline.
		env.clock.Advance(time.Hour - time.Second)
		deadline := p.ExpiresAt

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			voteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, voteErr = env.approvals.Vote(ctx, ports.VoteRequest{ApprovalID: p.ID, UserID: "bob", Approved: true})
		}()
		go func() {
			defer wg.Done()
			<-start
			_, _ = env.approvals.Sweep(ctx, deadline)
		}()
		close(start)
		wg.Wait()

		final, err := env.repos.Approvals.GetByID(ctx, p.ID)
		require.NoError(t, err)
		entries := approvalEntries(t, env, v.ID, p.ID)
		switch final.Status {
		case domain.ApprovalStatusExecuted:
			require.NoError(t, voteErr)
			assert.Len(t, entries, 1)
			assertDecimal(t, "900", env.balance(t, v.ID))
		case domain.ApprovalStatusExpired:
			assert.True(t, apperror.IsKind(voteErr, apperror.KindExpired), "vote error: %v", voteErr)
			assert.Empty(t, entries)
			assertDecimal(t, "1000", env.balance(t, v.ID))
		default:
			t.Fatalf("unexpected final status %s", final.Status)
		}
		assert.Equal(t, 1, env.notifier.count(domain.EventApprovalExpired)+env.notifier.count(domain.EventApprovalExecuted))

		// Sweeping again changes nothing.
		moved, err := env.approvals.Sweep(ctx, deadline.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, moved)
	}
}

func TestApprovalService_ListProposals(t *testing.T) {
	env, _, w := twoOfThree(t)
	ctx := context.Background()
	first := env.propose(t, w.Wallet.ID, "alice", "10")
	env.propose(t, w.Wallet.ID, "bob", "20")
	_, err := env.approvals.Cancel(ctx, first.ID, "alice", "")
	require.NoError(t, err)

	all, total, err := env.approvals.ListProposals(ctx, "carol", ports.ApprovalListParams{WalletID: w.Wallet.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, all, 2)

	pending := domain.ApprovalStatusPending
	open, total, err := env.approvals.ListProposals(ctx, "carol", ports.ApprovalListParams{WalletID: w.Wallet.ID, Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, open, 1)
	assert.Equal(t, "bob", open[0].ProposerID)

	bogus := domain.ApprovalStatus("waiting")
	_, _, err = env.approvals.ListProposals(ctx, "carol", ports.ApprovalListParams{WalletID: w.Wallet.ID, Status: &bogus})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, _, err = env.approvals.ListProposals(ctx, "mallory", ports.ApprovalListParams{WalletID: w.Wallet.ID})
	assert.True(t, apperror.IsKind(err, apperror.KindPermission))
}

func TestApprovalService_DeletedVaultBlocksExecution(t *testing.T) {
	env, v, w := twoOfThree(t)
	ctx := context.Background()
	p := env.propose(t, w.Wallet.ID, "alice", "100")

	_, err := env.vaults.Withdraw(ctx, ports.LedgerRequest{VaultID: v.ID, UserID: "alice", Amount: dec("1000")})
	require.NoError(t, err)
	require.NoError(t, env.vaults.DeleteVault(ctx, v.ID, "alice"))

	got, err := env.repos.Approvals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusRejected, got.Status)
	assert.True(t, strings.Contains(got.RejectedReason, "vault deleted"))

	_, err = env.approvals.Propose(ctx, ports.ProposeRequest{WalletID: w.Wallet.ID, ProposerID: "alice", Type: domain.ProposalTypeWithdraw, Amount: dec("1")})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
