package postgres

import (
	"context"
	"errors"
	"fmt"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const vaultColumns = `id, name, description, vault_type, currency, is_public, target_amount, total_balance,
	owner_id, status, default_contribution_limit, default_withdrawal_limit, version, created_at, updated_at, deleted_at`

// VaultRepo implements ports.VaultRepository.
type VaultRepo struct {
	pool Pool
}

// NewVaultRepo creates a new VaultRepo.
func NewVaultRepo(pool Pool) *VaultRepo {
	return &VaultRepo{pool: pool}
}

// Create inserts a new vault within a database transaction.
func (r *VaultRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	query := `INSERT INTO vaults (` + vaultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.Name, v.Description, v.VaultType, v.Currency, v.IsPublic, v.TargetAmount, v.TotalBalance,
		v.OwnerID, v.Status, v.Rules.DefaultContributionLimit, v.Rules.DefaultWithdrawalLimit,
		v.Version, v.CreatedAt, v.UpdatedAt, v.DeletedAt,
	)
	if err != nil {
		return wrapWrite("insert vault", err)
	}
	return nil
}

// GetByID fetches a vault by its UUID (without locking).
func (r *VaultRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1`
	return scanVault(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a vault with pessimistic locking.
// This MUST be called within a transaction.
func (r *VaultRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1 FOR UPDATE`
	return scanVault(tx.QueryRow(ctx, query, id))
}

// Update writes the mutable vault fields guarded by the version column.
func (r *VaultRepo) Update(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	query := `UPDATE vaults SET total_balance = $1, owner_id = $2, status = $3, updated_at = $4, deleted_at = $5,
		version = version + 1
		WHERE id = $6 AND version = $7`

	tag, err := tx.Exec(ctx, query, v.TotalBalance, v.OwnerID, v.Status, v.UpdatedAt, v.DeletedAt, v.ID, v.Version)
	if err != nil {
		return fmt.Errorf("update vault: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update vault %s: %w", v.ID, ports.ErrVersionConflict)
	}
	v.Version++
	return nil
}

// ListByMember lists non-deleted vaults where userID is an active member.
func (r *VaultRepo) ListByMember(ctx context.Context, userID string, page, pageSize int) ([]domain.Vault, int64, error) {
	where := `FROM vaults v JOIN vault_members m ON m.vault_id = v.id
		WHERE m.user_id = $1 AND m.status = 'active' AND v.status = 'active'`

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+where, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vaults: %w", err)
	}

	query := `SELECT v.id, v.name, v.description, v.vault_type, v.currency, v.is_public, v.target_amount,
		v.total_balance, v.owner_id, v.status, v.default_contribution_limit, v.default_withdrawal_limit,
		v.version, v.created_at, v.updated_at, v.deleted_at ` + where + `
		ORDER BY v.created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("list vaults: %w", err)
	}
	defer rows.Close()

	var vaults []domain.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, 0, err
		}
		vaults = append(vaults, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vault rows: %w", err)
	}
	return vaults, total, nil
}

// scanVault scans a single row into a Vault. Returns nil, nil when no row matched.
func scanVault(row pgx.Row) (*domain.Vault, error) {
	v := &domain.Vault{}
	err := row.Scan(
		&v.ID, &v.Name, &v.Description, &v.VaultType, &v.Currency, &v.IsPublic, &v.TargetAmount, &v.TotalBalance,
		&v.OwnerID, &v.Status, &v.Rules.DefaultContributionLimit, &v.Rules.DefaultWithdrawalLimit,
		&v.Version, &v.CreatedAt, &v.UpdatedAt, &v.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	return v, nil
}
