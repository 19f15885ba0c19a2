package ports

import (
	"context"
	"time"

	"group-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DistributedLock is a TTL lock shared across replicas.
type DistributedLock interface {
	// Acquire returns a release token when the lock was obtained.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// Release frees the lock only if token still owns it.
	Release(ctx context.Context, key string, token string) error
}

// EventSink delivers an event to one downstream channel.
type EventSink interface {
	Name() string
	Publish(ctx context.Context, event domain.Event) error
}

// Notifier receives outcome events after commit. Fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event)
}

// AuditService records audited actions asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// VaultService owns vaults, membership and balance-affecting operations.
type VaultService interface {
	CreateVault(ctx context.Context, req CreateVaultRequest) (*domain.Vault, error)
	ListVaults(ctx context.Context, userID string, page, pageSize int) ([]domain.Vault, int64, error)
	GetVaultDetails(ctx context.Context, vaultID uuid.UUID, callerID string) (*VaultDetails, error)
	DeleteVault(ctx context.Context, vaultID uuid.UUID, callerID string) error
	Deposit(ctx context.Context, req LedgerRequest) (*domain.VaultTransaction, error)
	Withdraw(ctx context.Context, req LedgerRequest) (*domain.VaultTransaction, error)
	InviteMember(ctx context.Context, req InviteMemberRequest) (*domain.VaultMember, error)
	AcceptInvitation(ctx context.Context, vaultID uuid.UUID, callerID string) (*domain.VaultMember, error)
	ChangeMemberRole(ctx context.Context, req ChangeRoleRequest) (*domain.VaultMember, error)
	UpdateMemberLimits(ctx context.Context, req UpdateLimitsRequest) (*domain.VaultMember, error)
	RemoveMember(ctx context.Context, vaultID uuid.UUID, callerID, targetUserID string) error
	// WithdrawApproved debits the vault inside the caller's transaction.
	// Member permissions and limits do not apply; the approval threshold already authorized it.
	WithdrawApproved(ctx context.Context, tx pgx.Tx, req ApprovedWithdrawal) (*domain.VaultTransaction, error)
}

// CreateVaultRequest holds validated input for vault creation.
type CreateVaultRequest struct {
	OwnerID      string
	Name         string
	Description  string
	VaultType    domain.VaultType
	Currency     string
	TargetAmount *decimal.Decimal
	IsPublic     bool
	Rules        domain.VaultRules
}

// LedgerRequest holds input for a member deposit or withdrawal.
type LedgerRequest struct {
	VaultID        uuid.UUID
	UserID         string
	Amount         decimal.Decimal
	Currency       string // optional; must match the vault when set
	Description    string
	IdempotencyKey string
}

// ApprovedWithdrawal is the debit handed to the ledger by an executed approval.
type ApprovedWithdrawal struct {
	VaultID     uuid.UUID
	ApprovalID  uuid.UUID
	ProposerID  string
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// InviteMemberRequest holds input for inviting a user into a vault.
type InviteMemberRequest struct {
	VaultID           uuid.UUID
	CallerID          string
	UserID            string
	Role              domain.MemberRole
	ContributionLimit *decimal.Decimal
	WithdrawalLimit   *decimal.Decimal
}

// ChangeRoleRequest holds input for a role change or ownership transfer.
type ChangeRoleRequest struct {
	VaultID  uuid.UUID
	CallerID string
	UserID   string
	Role     domain.MemberRole
}

// UpdateLimitsRequest replaces a member's limits. Nil removes the cap.
type UpdateLimitsRequest struct {
	VaultID           uuid.UUID
	CallerID          string
	UserID            string
	ContributionLimit *decimal.Decimal
	WithdrawalLimit   *decimal.Decimal
}

// VaultDetails is the caller-dependent view of a vault.
// Non-members of a public vault only get Vault and MemberCount.
type VaultDetails struct {
	Vault              *domain.Vault             `json:"vault"`
	MemberCount        int64                     `json:"member_count"`
	CallerRole         *domain.MemberRole        `json:"caller_role,omitempty"`
	Members            []domain.VaultMember      `json:"members,omitempty"`
	RecentTransactions []domain.VaultTransaction `json:"recent_transactions,omitempty"`
	Wallets            []domain.Wallet           `json:"wallets,omitempty"`
}

// ReportingService defines ledger reporting queries.
type ReportingService interface {
	ListTransactions(ctx context.Context, callerID string, params TransactionListParams) ([]domain.VaultTransaction, int64, error)
	GetStats(ctx context.Context, vaultID uuid.UUID, callerID string, period string) (*VaultStats, error)
}

// ApprovalService owns threshold wallets and the pending approval lifecycle.
type ApprovalService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*WalletDetails, error)
	GetWallet(ctx context.Context, walletID uuid.UUID, callerID string) (*WalletDetails, error)
	AddParty(ctx context.Context, req AddPartyRequest) (*domain.WalletParty, error)
	DeactivateParty(ctx context.Context, walletID, partyID uuid.UUID, callerID string) (*domain.WalletParty, error)
	Propose(ctx context.Context, req ProposeRequest) (*domain.PendingApproval, error)
	GetProposal(ctx context.Context, id uuid.UUID, callerID string) (*domain.PendingApproval, error)
	ListProposals(ctx context.Context, callerID string, params ApprovalListParams) ([]domain.PendingApproval, int64, error)
	Vote(ctx context.Context, req VoteRequest) (*domain.PendingApproval, error)
	Cancel(ctx context.Context, id uuid.UUID, callerID, reason string) (*domain.PendingApproval, error)
	Execute(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error)
	Sweep(ctx context.Context, now time.Time) ([]domain.PendingApproval, error)
}

// PartySpec describes one party supplied at wallet creation.
type PartySpec struct {
	UserID string
	Role   domain.PartyRole
	Weight int
}

// CreateWalletRequest holds input for creating a threshold wallet on a vault.
type CreateWalletRequest struct {
	VaultID   uuid.UUID
	CallerID  string
	Name      string
	Threshold int
	Parties   []PartySpec
}

// AddPartyRequest holds input for adding or reactivating a party.
type AddPartyRequest struct {
	WalletID uuid.UUID
	CallerID string
	Party    PartySpec
}

// WalletDetails is a wallet with its parties.
type WalletDetails struct {
	Wallet       *domain.Wallet       `json:"wallet"`
	Parties      []domain.WalletParty `json:"parties"`
	ActiveWeight int                  `json:"active_weight"`
}

// ProposeRequest holds input for a new pending approval.
type ProposeRequest struct {
	WalletID    uuid.UUID
	ProposerID  string
	Type        domain.ProposalType
	Amount      decimal.Decimal
	Currency    string
	Recipient   string
	Description string
	ExpiresIn   time.Duration // zero selects the configured default
}

// VoteRequest is one party's approve or reject decision.
// PartyID is optional; when nil the caller's active party is used.
type VoteRequest struct {
	ApprovalID uuid.UUID
	UserID     string
	PartyID    *uuid.UUID
	Approved   bool
}
