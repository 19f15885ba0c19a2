package ports

import (
	"context"
	"errors"
	"time"

	"group-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	// ErrVersionConflict is returned when an optimistic version check misses.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// VaultRepository defines persistence operations for vaults.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type VaultRepository interface {
	Create(ctx context.Context, tx pgx.Tx, vault *domain.Vault) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vault, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Vault, error)
	// Update writes the vault if its version still matches and bumps vault.Version.
	Update(ctx context.Context, tx pgx.Tx, vault *domain.Vault) error
	ListByMember(ctx context.Context, userID string, page, pageSize int) ([]domain.Vault, int64, error)
}

// MemberRepository defines persistence operations for vault members.
// Member writes are serialized by the owning vault's row lock.
type MemberRepository interface {
	Create(ctx context.Context, tx pgx.Tx, member *domain.VaultMember) error
	Get(ctx context.Context, vaultID uuid.UUID, userID string) (*domain.VaultMember, error)
	ListByVault(ctx context.Context, vaultID uuid.UUID) ([]domain.VaultMember, error)
	CountActive(ctx context.Context, vaultID uuid.UUID) (int64, error)
	Update(ctx context.Context, tx pgx.Tx, member *domain.VaultMember) error
	RemoveAll(ctx context.Context, tx pgx.Tx, vaultID uuid.UUID, at time.Time) error
}

// LedgerRepository defines persistence for the append-only vault ledger.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.VaultTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VaultTransaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.VaultTransaction, int64, error)
	GetStats(ctx context.Context, vaultID uuid.UUID, since *time.Time) (*VaultStats, error)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps paging input to page >= 1 and 1 <= pageSize <= MaxPageSize.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// TransactionListParams holds filter + pagination for listing ledger entries.
type TransactionListParams struct {
	VaultID  uuid.UUID
	Type     *domain.TransactionType
	UserID   *string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// VaultStats holds aggregated ledger statistics for a vault.
type VaultStats struct {
	TotalTransactions int64           `json:"total_transactions"`
	Deposits          int64           `json:"deposits"`
	Withdrawals       int64           `json:"withdrawals"`
	TotalDeposited    decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn    decimal.Decimal `json:"total_withdrawn"`
	NetFlow           decimal.Decimal `json:"net_flow"`
}

// WalletRepository defines persistence operations for threshold wallets.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	ListByVault(ctx context.Context, vaultID uuid.UUID) ([]domain.Wallet, error)
}

// PartyRepository defines persistence operations for wallet parties.
// Party writes are serialized by the owning wallet's row lock.
type PartyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, party *domain.WalletParty) error
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.WalletParty, error)
	Update(ctx context.Context, tx pgx.Tx, party *domain.WalletParty) error
}

// ApprovalRepository defines persistence for pending approvals and their votes.
// GetByID and GetByIDForUpdate return the approval with its votes loaded.
type ApprovalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, approval *domain.PendingApproval) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PendingApproval, error)
	Update(ctx context.Context, tx pgx.Tx, approval *domain.PendingApproval) error
	AddVote(ctx context.Context, tx pgx.Tx, vote *domain.Vote) error
	List(ctx context.Context, params ApprovalListParams) ([]domain.PendingApproval, int64, error)
	// ListExpired returns ids of pending approvals whose expires_at <= now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	// ListStaleApproved returns ids of approved, unexecuted approvals approved before cutoff.
	ListStaleApproved(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	ListPendingByVault(ctx context.Context, vaultID uuid.UUID) ([]uuid.UUID, error)
}

// ApprovalListParams holds filter + pagination for listing approvals of a wallet.
type ApprovalListParams struct {
	WalletID uuid.UUID
	Status   *domain.ApprovalStatus
	Page     int
	PageSize int
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
