package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"group-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const memberColumns = `id, vault_id, user_id, role, status, contribution_limit, withdrawal_limit,
	invited_by, joined_at, created_at, updated_at`

// MemberRepo implements ports.MemberRepository.
type MemberRepo struct {
	pool Pool
}

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(pool Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

// Create inserts a vault member within a database transaction.
func (r *MemberRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.VaultMember) error {
	query := `INSERT INTO vault_members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		m.ID, m.VaultID, m.UserID, m.Role, m.Status, m.ContributionLimit, m.WithdrawalLimit,
		m.InvitedBy, m.JoinedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return wrapWrite("insert vault member", err)
	}
	return nil
}

// Get fetches the membership row of userID in vaultID, whatever its status.
func (r *MemberRepo) Get(ctx context.Context, vaultID uuid.UUID, userID string) (*domain.VaultMember, error) {
	query := `SELECT ` + memberColumns + ` FROM vault_members WHERE vault_id = $1 AND user_id = $2`
	return scanMember(r.pool.QueryRow(ctx, query, vaultID, userID))
}

// ListByVault returns invited and active members, oldest first.
func (r *MemberRepo) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]domain.VaultMember, error) {
	query := `SELECT ` + memberColumns + ` FROM vault_members
		WHERE vault_id = $1 AND status <> 'removed' ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, vaultID)
	if err != nil {
		return nil, fmt.Errorf("list vault members: %w", err)
	}
	defer rows.Close()

	var members []domain.VaultMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}

// CountActive counts active members of a vault.
func (r *MemberRepo) CountActive(ctx context.Context, vaultID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vault_members WHERE vault_id = $1 AND status = 'active'`, vaultID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active members: %w", err)
	}
	return n, nil
}

// Update writes role, status, limits and join data of a member.
func (r *MemberRepo) Update(ctx context.Context, tx pgx.Tx, m *domain.VaultMember) error {
	query := `UPDATE vault_members SET role = $1, status = $2, contribution_limit = $3, withdrawal_limit = $4,
		invited_by = $5, joined_at = $6, updated_at = $7
		WHERE id = $8`

	tag, err := tx.Exec(ctx, query,
		m.Role, m.Status, m.ContributionLimit, m.WithdrawalLimit, m.InvitedBy, m.JoinedAt, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return wrapWrite("update vault member", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vault member not found: %s", m.ID)
	}
	return nil
}

// RemoveAll marks every member of a vault as removed.
func (r *MemberRepo) RemoveAll(ctx context.Context, tx pgx.Tx, vaultID uuid.UUID, at time.Time) error {
	query := `UPDATE vault_members SET status = 'removed', updated_at = $1 WHERE vault_id = $2 AND status <> 'removed'`
	if _, err := tx.Exec(ctx, query, at, vaultID); err != nil {
		return fmt.Errorf("remove vault members: %w", err)
	}
	return nil
}

func scanMember(row pgx.Row) (*domain.VaultMember, error) {
	m := &domain.VaultMember{}
	err := row.Scan(
		&m.ID, &m.VaultID, &m.UserID, &m.Role, &m.Status, &m.ContributionLimit, &m.WithdrawalLimit,
		&m.InvitedBy, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan vault member: %w", err)
	}
	return m, nil
}
