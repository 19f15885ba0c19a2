package memory

import (
	"context"
	"fmt"
	"sort"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VaultRepo implements ports.VaultRepository.
type VaultRepo struct {
	store *Store
}

// NewVaultRepo creates a new VaultRepo.
func NewVaultRepo(store *Store) *VaultRepo {
	return &VaultRepo{store: store}
}

func (r *VaultRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *v
	t.stage(func() error {
		if _, ok := r.store.vaults[row.ID]; ok {
			return fmt.Errorf("insert vault: %w", ports.ErrDuplicate)
		}
		return nil
	}, func() {
		r.store.vaults[row.ID] = row
	})
	return nil
}

func (r *VaultRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vault, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	v, ok := r.store.vaults[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *VaultRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Vault, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, lockKey("vault", id)); err != nil {
		return nil, fmt.Errorf("lock vault: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *VaultRepo) Update(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	expected := v.Version
	check := func() error {
		cur, ok := r.store.vaults[v.ID]
		if !ok {
			return fmt.Errorf("vault not found: %s", v.ID)
		}
		if cur.Version != expected {
			return fmt.Errorf("update vault %s: %w", v.ID, ports.ErrVersionConflict)
		}
		return nil
	}

	r.store.mu.RLock()
	err = check()
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	row := *v
	row.Version = expected + 1
	t.stage(check, func() {
		r.store.vaults[row.ID] = row
	})
	v.Version++
	return nil
}

func (r *VaultRepo) ListByMember(ctx context.Context, userID string, pageNum, pageSize int) ([]domain.Vault, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var vaults []domain.Vault
	for _, id := range r.store.memberOrder {
		m := r.store.members[id]
		if m.UserID != userID || !m.IsActive() {
			continue
		}
		if v, ok := r.store.vaults[m.VaultID]; ok && v.IsActive() {
			vaults = append(vaults, v)
		}
	}
	sort.SliceStable(vaults, func(i, j int) bool {
		return vaults[i].CreatedAt.After(vaults[j].CreatedAt)
	})
	return page(vaults, pageNum, pageSize), int64(len(vaults)), nil
}
