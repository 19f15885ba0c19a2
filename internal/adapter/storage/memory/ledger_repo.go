package memory

import (
	"context"
	"fmt"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

// Create appends an entry. Ids and approval links are unique.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.VaultTransaction) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *e
	t.stage(func() error {
		for i := range r.store.ledger {
			cur := &r.store.ledger[i]
			if cur.ID == row.ID {
				return fmt.Errorf("insert vault transaction: %w", ports.ErrDuplicate)
			}
			if row.ApprovalID != nil && cur.ApprovalID != nil && *cur.ApprovalID == *row.ApprovalID {
				return fmt.Errorf("insert vault transaction for approval %s: %w", *row.ApprovalID, ports.ErrDuplicate)
			}
		}
		return nil
	}, func() {
		r.store.ledger = append(r.store.ledger, row)
	})
	return nil
}

func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.VaultTransaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for i := range r.store.ledger {
		if r.store.ledger[i].ID == id {
			e := r.store.ledger[i]
			return &e, nil
		}
	}
	return nil, nil
}

// List returns matching entries newest first.
func (r *LedgerRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.VaultTransaction, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entries []domain.VaultTransaction
	for i := len(r.store.ledger) - 1; i >= 0; i-- {
		e := r.store.ledger[i]
		if e.VaultID != params.VaultID {
			continue
		}
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		if params.UserID != nil && e.UserID != *params.UserID {
			continue
		}
		if params.From != nil && e.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && e.CreatedAt.After(*params.To) {
			continue
		}
		entries = append(entries, e)
	}
	return page(entries, params.Page, params.PageSize), int64(len(entries)), nil
}

func (r *LedgerRepo) GetStats(ctx context.Context, vaultID uuid.UUID, since *time.Time) (*ports.VaultStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := &ports.VaultStats{
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
	}
	for _, e := range r.store.ledger {
		if e.VaultID != vaultID || (since != nil && e.CreatedAt.Before(*since)) {
			continue
		}
		stats.TotalTransactions++
		switch e.Type {
		case domain.TransactionTypeDeposit:
			stats.Deposits++
			stats.TotalDeposited = stats.TotalDeposited.Add(e.Amount)
		case domain.TransactionTypeWithdraw:
			stats.Withdrawals++
			stats.TotalWithdrawn = stats.TotalWithdrawn.Add(e.Amount)
		}
	}
	stats.NetFlow = stats.TotalDeposited.Sub(stats.TotalWithdrawn)
	return stats, nil
}
