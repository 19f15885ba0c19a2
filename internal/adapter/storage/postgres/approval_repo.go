package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const approvalColumns = `id, wallet_id, vault_id, proposer_id, type, amount, currency, recipient, description,
	required_approvals, status, expires_at, approved_at, executed_at, rejected_reason, failure_reason,
	ledger_transaction_id, version, created_at, updated_at`

// querier is satisfied by both Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ApprovalRepo implements ports.ApprovalRepository.
type ApprovalRepo struct {
	pool Pool
}

// NewApprovalRepo creates a new ApprovalRepo.
func NewApprovalRepo(pool Pool) *ApprovalRepo {
	return &ApprovalRepo{pool: pool}
}

// Create inserts a pending approval within a database transaction.
func (r *ApprovalRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PendingApproval) error {
	query := `INSERT INTO pending_approvals (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.WalletID, p.VaultID, p.ProposerID, p.Type, p.Amount, p.Currency, p.Recipient, p.Description,
		p.RequiredApprovals, p.Status, p.ExpiresAt, p.ApprovedAt, p.ExecutedAt, p.RejectedReason, p.FailureReason,
		p.LedgerTransactionID, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return wrapWrite("insert pending approval", err)
	}
	return nil
}

// GetByID fetches an approval and its votes (without locking).
func (r *ApprovalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM pending_approvals WHERE id = $1`

	p, err := scanApproval(r.pool.QueryRow(ctx, query, id))
	if err != nil || p == nil {
		return p, err
	}
	if p.Votes, err = listVotes(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByIDForUpdate locks an approval row and loads its votes in the same transaction.
func (r *ApprovalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PendingApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM pending_approvals WHERE id = $1 FOR UPDATE`

	p, err := scanApproval(tx.QueryRow(ctx, query, id))
	if err != nil || p == nil {
		return p, err
	}
	if p.Votes, err = listVotes(ctx, tx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// Update writes lifecycle fields guarded by the version column.
func (r *ApprovalRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.PendingApproval) error {
	query := `UPDATE pending_approvals SET status = $1, approved_at = $2, executed_at = $3, rejected_reason = $4,
		failure_reason = $5, ledger_transaction_id = $6, updated_at = $7, version = version + 1
		WHERE id = $8 AND version = $9`

	tag, err := tx.Exec(ctx, query,
		p.Status, p.ApprovedAt, p.ExecutedAt, p.RejectedReason, p.FailureReason, p.LedgerTransactionID,
		p.UpdatedAt, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update pending approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update pending approval %s: %w", p.ID, ports.ErrVersionConflict)
	}
	p.Version++
	return nil
}

// AddVote records a vote. A second vote by the same party maps to ports.ErrDuplicate.
func (r *ApprovalRepo) AddVote(ctx context.Context, tx pgx.Tx, v *domain.Vote) error {
	query := `INSERT INTO approval_votes (id, approval_id, party_id, user_id, approved, weight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query, v.ID, v.ApprovalID, v.PartyID, v.UserID, v.Approved, v.Weight, v.CreatedAt)
	if err != nil {
		return wrapWrite("insert approval vote", err)
	}
	return nil
}

// List returns approvals of a wallet without their votes, newest first.
func (r *ApprovalRepo) List(ctx context.Context, params ports.ApprovalListParams) ([]domain.PendingApproval, int64, error) {
	where := "WHERE wallet_id = $1"
	args := []any{params.WalletID}
	if params.Status != nil {
		where += " AND status = $2"
		args = append(args, *params.Status)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pending_approvals "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending approvals: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM pending_approvals %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		approvalColumns, where, n+1, n+2)
	args = append(args, params.PageSize, offset(params.Page, params.PageSize))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []domain.PendingApproval
	for rows.Next() {
		p, err := scanApproval(rows)
		if err != nil {
			return nil, 0, err
		}
		approvals = append(approvals, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pending approval rows: %w", err)
	}
	return approvals, total, nil
}

// ListExpired returns ids of pending approvals whose window closed at or before now.
func (r *ApprovalRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM pending_approvals WHERE status = 'pending_approval' AND expires_at <= $1
		ORDER BY expires_at LIMIT $2`
	return r.listIDs(ctx, query, now, limit)
}

// ListStaleApproved returns ids of approvals stuck in approved since before cutoff.
func (r *ApprovalRepo) ListStaleApproved(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM pending_approvals WHERE status = 'approved' AND approved_at <= $1
		ORDER BY approved_at LIMIT $2`
	return r.listIDs(ctx, query, cutoff, limit)
}

// ListPendingByVault returns ids of every pending approval against a vault.
func (r *ApprovalRepo) ListPendingByVault(ctx context.Context, vaultID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM pending_approvals WHERE vault_id = $1 AND status = 'pending_approval' ORDER BY created_at`
	return r.listIDs(ctx, query, vaultID)
}

func (r *ApprovalRepo) listIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approval ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan approval id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval ids: %w", err)
	}
	return ids, nil
}

func listVotes(ctx context.Context, q querier, approvalID uuid.UUID) ([]domain.Vote, error) {
	rows, err := q.Query(ctx, `SELECT id, approval_id, party_id, user_id, approved, weight, created_at
		FROM approval_votes WHERE approval_id = $1 ORDER BY created_at`, approvalID)
	if err != nil {
		return nil, fmt.Errorf("list approval votes: %w", err)
	}
	defer rows.Close()

	votes := []domain.Vote{}
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.ID, &v.ApprovalID, &v.PartyID, &v.UserID, &v.Approved, &v.Weight, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval votes: %w", err)
	}
	return votes, nil
}

func scanApproval(row pgx.Row) (*domain.PendingApproval, error) {
	p := &domain.PendingApproval{}
	err := row.Scan(
		&p.ID, &p.WalletID, &p.VaultID, &p.ProposerID, &p.Type, &p.Amount, &p.Currency, &p.Recipient, &p.Description,
		&p.RequiredApprovals, &p.Status, &p.ExpiresAt, &p.ApprovedAt, &p.ExecutedAt, &p.RejectedReason, &p.FailureReason,
		&p.LedgerTransactionID, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pending approval: %w", err)
	}
	return p, nil
}
