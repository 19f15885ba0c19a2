package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ApprovalRepo implements ports.ApprovalRepository.
type ApprovalRepo struct {
	store *Store
}

// NewApprovalRepo creates a new ApprovalRepo.
func NewApprovalRepo(store *Store) *ApprovalRepo {
	return &ApprovalRepo{store: store}
}

func (r *ApprovalRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PendingApproval) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *p
	row.Votes = nil
	t.stage(func() error {
		if _, ok := r.store.approvals[row.ID]; ok {
			return fmt.Errorf("insert pending approval: %w", ports.ErrDuplicate)
		}
		return nil
	}, func() {
		r.store.approvals[row.ID] = row
		r.store.approvalIDs = append(r.store.approvalIDs, row.ID)
	})
	return nil
}

func (r *ApprovalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.approvals[id]
	if !ok {
		return nil, nil
	}
	p.Votes = append([]domain.Vote{}, r.store.votes[id]...)
	return &p, nil
}

func (r *ApprovalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PendingApproval, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, lockKey("approval", id)); err != nil {
		return nil, fmt.Errorf("lock pending approval: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ApprovalRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.PendingApproval) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	expected := p.Version
	check := func() error {
		cur, ok := r.store.approvals[p.ID]
		if !ok {
			return fmt.Errorf("pending approval not found: %s", p.ID)
		}
		if cur.Version != expected {
			return fmt.Errorf("update pending approval %s: %w", p.ID, ports.ErrVersionConflict)
		}
		return nil
	}

	r.store.mu.RLock()
	err = check()
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	row := *p
	row.Votes = nil
	row.Version = expected + 1
	t.stage(check, func() {
		r.store.approvals[row.ID] = row
	})
	p.Version++
	return nil
}

// AddVote records a vote. A second vote by the same party fails with ports.ErrDuplicate.
func (r *ApprovalRepo) AddVote(ctx context.Context, tx pgx.Tx, v *domain.Vote) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *v
	check := func() error {
		for _, cur := range r.store.votes[row.ApprovalID] {
			if cur.PartyID == row.PartyID {
				return fmt.Errorf("insert approval vote: %w", ports.ErrDuplicate)
			}
		}
		return nil
	}

	r.store.mu.RLock()
	err = check()
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	t.stage(check, func() {
		r.store.votes[row.ApprovalID] = append(r.store.votes[row.ApprovalID], row)
	})
	return nil
}

// List returns approvals of a wallet without votes, newest first.
func (r *ApprovalRepo) List(ctx context.Context, params ports.ApprovalListParams) ([]domain.PendingApproval, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var approvals []domain.PendingApproval
	for i := len(r.store.approvalIDs) - 1; i >= 0; i-- {
		p := r.store.approvals[r.store.approvalIDs[i]]
		if p.WalletID != params.WalletID {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		approvals = append(approvals, p)
	}
	return page(approvals, params.Page, params.PageSize), int64(len(approvals)), nil
}

func (r *ApprovalRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return r.collect(limit, func(p domain.PendingApproval) bool {
		return p.Status == domain.ApprovalStatusPending && p.IsExpiredAt(now)
	}, func(p domain.PendingApproval) time.Time { return p.ExpiresAt }), nil
}

func (r *ApprovalRepo) ListStaleApproved(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	return r.collect(limit, func(p domain.PendingApproval) bool {
		return p.Status == domain.ApprovalStatusApproved && p.ApprovedAt != nil && !p.ApprovedAt.After(cutoff)
	}, func(p domain.PendingApproval) time.Time { return *p.ApprovedAt }), nil
}

func (r *ApprovalRepo) ListPendingByVault(ctx context.Context, vaultID uuid.UUID) ([]uuid.UUID, error) {
	return r.collect(0, func(p domain.PendingApproval) bool {
		return p.VaultID == vaultID && p.Status == domain.ApprovalStatusPending
	}, func(p domain.PendingApproval) time.Time { return p.CreatedAt }), nil
}

func (r *ApprovalRepo) collect(limit int, match func(domain.PendingApproval) bool, orderBy func(domain.PendingApproval) time.Time) []uuid.UUID {
	r.store.mu.RLock()
	var matched []domain.PendingApproval
	for _, id := range r.store.approvalIDs {
		if p := r.store.approvals[id]; match(p) {
			matched = append(matched, p)
		}
	}
	r.store.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return orderBy(matched[i]).Before(orderBy(matched[j]))
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	ids := make([]uuid.UUID, 0, len(matched))
	for _, p := range matched {
		ids = append(ids, p.ID)
	}
	return ids
}
