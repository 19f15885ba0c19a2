package postgres

import (
	"context"
	"errors"
	"fmt"

	"group-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, vault_id, name, currency, threshold, created_by, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.VaultID, w.Name, w.Currency, w.Threshold, w.CreatedBy, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return wrapWrite("insert wallet", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, id))
}

// ListByVault returns all wallets governing a vault, oldest first.
func (r *WalletRepo) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE vault_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, vaultID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.VaultID, &w.Name, &w.Currency, &w.Threshold, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
