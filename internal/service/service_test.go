package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"group-vault/config"
	"group-vault/internal/adapter/storage/memory"
	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memIdempotencyCache is an in-process ports.IdempotencyCache.
type memIdempotencyCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemIdempotencyCache() *memIdempotencyCache {
	return &memIdempotencyCache{data: make(map[string][]byte)}
}

func (c *memIdempotencyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memIdempotencyCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memIdempotencyCache) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
}

// recordingNotifier keeps every event in memory.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count(t domain.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Type == t {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) last(t domain.EventType) *domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].Type == t {
			e := n.events[i]
			return &e
		}
	}
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	repos     Repositories
	vaults    *VaultServiceImpl
	approvals *ApprovalServiceImpl
	reporting ports.ReportingService
	notifier  *recordingNotifier
	cache     *memIdempotencyCache
	clock     *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	repos := Repositories{
		Vaults:      memory.NewVaultRepo(store),
		Members:     memory.NewMemberRepo(store),
		Ledger:      memory.NewLedgerRepo(store),
		Wallets:     memory.NewWalletRepo(store),
		Parties:     memory.NewPartyRepo(store),
		Approvals:   memory.NewApprovalRepo(store),
		Idempotency: memory.NewIdempotencyRepo(store),
		Transactor:  store,
	}

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	cache := newMemIdempotencyCache()

	vaults := NewVaultService(repos, cache, notifier, config.LedgerConfig{
		MaxRetries:         3,
		RecentTransactions: 10,
		IdempotencyTTL:     time.Hour,
	}, newTestLogger())
	vaults.now = clock.Now

	approvals := NewApprovalService(repos, vaults, notifier, config.ApprovalConfig{
		DefaultExpiry:  24 * time.Hour,
		MaxExpiry:      7 * 24 * time.Hour,
		SweepBatchSize: 50,
		ExecutionGrace: 2 * time.Minute,
	}, 3, newTestLogger())
	approvals.now = clock.Now

	return &testEnv{
		repos:     repos,
		vaults:    vaults,
		approvals: approvals,
		reporting: NewReportingService(repos.Ledger, repos.Members),
		notifier:  notifier,
		cache:     cache,
		clock:     clock,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) createVault(t *testing.T, owner, currency string) *domain.Vault {
	t.Helper()
	v, err := e.vaults.CreateVault(context.Background(), ports.CreateVaultRequest{
		OwnerID:  owner,
		Name:     "Family savings",
		Currency: currency,
	})
	require.NoError(t, err)
	return v
}

// join invites user and accepts on its behalf.
func (e *testEnv) join(t *testing.T, vaultID uuid.UUID, inviter, user string, role domain.MemberRole) {
	t.Helper()
	ctx := context.Background()
	_, err := e.vaults.InviteMember(ctx, ports.InviteMemberRequest{VaultID: vaultID, CallerID: inviter, UserID: user, Role: role})
	require.NoError(t, err)
	_, err = e.vaults.AcceptInvitation(ctx, vaultID, user)
	require.NoError(t, err)
}

func (e *testEnv) deposit(t *testing.T, vaultID uuid.UUID, user, amount string) *domain.VaultTransaction {
	t.Helper()
	entry, err := e.vaults.Deposit(context.Background(), ports.LedgerRequest{VaultID: vaultID, UserID: user, Amount: dec(amount)})
	require.NoError(t, err)
	return entry
}

func (e *testEnv) balance(t *testing.T, vaultID uuid.UUID) decimal.Decimal {
	t.Helper()
	v, err := e.repos.Vaults.GetByID(context.Background(), vaultID)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v.TotalBalance
}

func (e *testEnv) ledgerEntries(t *testing.T, vaultID uuid.UUID) []domain.VaultTransaction {
	t.Helper()
	entries, _, err := e.repos.Ledger.List(context.Background(), ports.TransactionListParams{VaultID: vaultID})
	require.NoError(t, err)
	return entries
}

// newWallet creates a wallet where every listed user holds a weight-1 cosigner party.
// The creator is added as an owner party automatically.
func (e *testEnv) newWallet(t *testing.T, vaultID uuid.UUID, creator string, threshold int, users ...string) *ports.WalletDetails {
	t.Helper()
	specs := make([]ports.PartySpec, 0, len(users))
	for _, u := range users {
		specs = append(specs, ports.PartySpec{UserID: u})
	}
	w, err := e.approvals.CreateWallet(context.Background(), ports.CreateWalletRequest{
		VaultID:   vaultID,
		CallerID:  creator,
		Name:      "Treasury",
		Threshold: threshold,
		Parties:   specs,
	})
	require.NoError(t, err)
	return w
}

func (e *testEnv) propose(t *testing.T, walletID uuid.UUID, proposer, amount string) *domain.PendingApproval {
	t.Helper()
	p, err := e.approvals.Propose(context.Background(), ports.ProposeRequest{
		WalletID:   walletID,
		ProposerID: proposer,
		Type:       domain.ProposalTypeWithdraw,
		Amount:     dec(amount),
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) vote(t *testing.T, approvalID uuid.UUID, user string, approve bool) *domain.PendingApproval {
	t.Helper()
	p, err := e.approvals.Vote(context.Background(), ports.VoteRequest{ApprovalID: approvalID, UserID: user, Approved: approve})
	require.NoError(t, err)
	return p
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}
