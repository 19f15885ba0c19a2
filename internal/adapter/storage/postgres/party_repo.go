package postgres

import (
	"context"
	"fmt"

	"group-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PartyRepo implements ports.PartyRepository.
type PartyRepo struct {
	pool Pool
}

// NewPartyRepo creates a new PartyRepo.
func NewPartyRepo(pool Pool) *PartyRepo {
	return &PartyRepo{pool: pool}
}

// Create inserts a wallet party within a database transaction.
func (r *PartyRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.WalletParty) error {
	query := `INSERT INTO wallet_parties (id, wallet_id, user_id, role, weight, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query, p.ID, p.WalletID, p.UserID, p.Role, p.Weight, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return wrapWrite("insert wallet party", err)
	}
	return nil
}

// ListByWallet returns every party of a wallet, active or not.
func (r *PartyRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.WalletParty, error) {
	query := `SELECT id, wallet_id, user_id, role, weight, is_active, created_at, updated_at
		FROM wallet_parties WHERE wallet_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list wallet parties: %w", err)
	}
	defer rows.Close()

	var parties []domain.WalletParty
	for rows.Next() {
		var p domain.WalletParty
		if err := rows.Scan(&p.ID, &p.WalletID, &p.UserID, &p.Role, &p.Weight, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet party: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet party rows: %w", err)
	}
	return parties, nil
}

// Update writes role, weight and activation of a party.
func (r *PartyRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.WalletParty) error {
	query := `UPDATE wallet_parties SET role = $1, weight = $2, is_active = $3, updated_at = $4 WHERE id = $5`

	tag, err := tx.Exec(ctx, query, p.Role, p.Weight, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update wallet party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet party not found: %s", p.ID)
	}
	return nil
}
