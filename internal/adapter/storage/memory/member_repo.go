package memory

import (
	"context"
	"fmt"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemberRepo implements ports.MemberRepository.
type MemberRepo struct {
	store *Store
}

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(store *Store) *MemberRepo {
	return &MemberRepo{store: store}
}

func (r *MemberRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.VaultMember) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *m
	key := memberKey(row.VaultID, row.UserID)
	t.stage(func() error {
		if _, ok := r.store.memberIdx[key]; ok {
			return fmt.Errorf("insert vault member: %w", ports.ErrDuplicate)
		}
		return nil
	}, func() {
		r.store.members[row.ID] = row
		r.store.memberIdx[key] = row.ID
		r.store.memberOrder = append(r.store.memberOrder, row.ID)
	})
	return nil
}

func (r *MemberRepo) Get(ctx context.Context, vaultID uuid.UUID, userID string) (*domain.VaultMember, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.memberIdx[memberKey(vaultID, userID)]
	if !ok {
		return nil, nil
	}
	m := r.store.members[id]
	return &m, nil
}

func (r *MemberRepo) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]domain.VaultMember, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var members []domain.VaultMember
	for _, id := range r.store.memberOrder {
		m := r.store.members[id]
		if m.VaultID == vaultID && m.Status != domain.MemberStatusRemoved {
			members = append(members, m)
		}
	}
	return members, nil
}

func (r *MemberRepo) CountActive(ctx context.Context, vaultID uuid.UUID) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var n int64
	for _, m := range r.store.members {
		if m.VaultID == vaultID && m.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r *MemberRepo) Update(ctx context.Context, tx pgx.Tx, m *domain.VaultMember) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *m
	t.stage(func() error {
		if _, ok := r.store.members[row.ID]; !ok {
			return fmt.Errorf("vault member not found: %s", row.ID)
		}
		return nil
	}, func() {
		r.store.members[row.ID] = row
	})
	return nil
}

func (r *MemberRepo) RemoveAll(ctx context.Context, tx pgx.Tx, vaultID uuid.UUID, at time.Time) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	t.stage(nil, func() {
		for id, m := range r.store.members {
			if m.VaultID == vaultID && m.Status != domain.MemberStatusRemoved {
				m.Status = domain.MemberStatusRemoved
				m.UpdatedAt = at
				r.store.members[id] = m
			}
		}
	})
	return nil
}
