package memory

import (
	"context"
	"fmt"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	store *Store
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(store *Store) *IdempotencyRepo {
	return &IdempotencyRepo{store: store}
}

func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *log
	t.stage(func() error {
		if _, ok := r.store.idempotency[row.Key]; ok {
			return fmt.Errorf("insert idempotency log: %w", ports.ErrDuplicate)
		}
		return nil
	}, func() {
		r.store.idempotency[row.Key] = row
	})
	return nil
}

func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	l, ok := r.store.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audit = append(r.store.audit, *log)
	return nil
}

// Logs returns a copy of recorded audit entries.
func (r *AuditRepo) Logs() []domain.AuditLog {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.store.audit...)
}
