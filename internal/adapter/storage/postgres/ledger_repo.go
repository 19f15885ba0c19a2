package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, vault_id, user_id, type, amount, currency, description, status, balance_after,
	approval_id, created_at`

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends a ledger entry within a database transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.VaultTransaction) error {
	query := `INSERT INTO vault_transactions (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.VaultID, t.UserID, t.Type, t.Amount, t.Currency, t.Description, t.Status,
		t.BalanceAfter, t.ApprovalID, t.CreatedAt,
	)
	if err != nil {
		return wrapWrite("insert vault transaction", err)
	}
	return nil
}

// GetByID fetches a ledger entry by UUID.
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.VaultTransaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM vault_transactions WHERE id = $1`
	return scanLedgerEntry(r.pool.QueryRow(ctx, query, id))
}

// List fetches ledger entries with filtering and pagination, newest first.
func (r *LedgerRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.VaultTransaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("vault_id = $%d", argIdx))
	args = append(args, params.VaultID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *params.UserID)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM vault_transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vault transactions: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM vault_transactions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, ledgerColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset(params.Page, params.PageSize))

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vault transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.VaultTransaction
	for rows.Next() {
		t, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vault transaction rows: %w", err)
	}
	return entries, total, nil
}

// GetStats aggregates deposit and withdrawal counts and sums for a vault.
func (r *LedgerRepo) GetStats(ctx context.Context, vaultID uuid.UUID, since *time.Time) (*ports.VaultStats, error) {
	args := []any{vaultID}
	condition := "vault_id = $1"
	if since != nil {
		condition += " AND created_at >= $2"
		args = append(args, *since)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE type = 'deposit') AS deposits,
		COUNT(*) FILTER (WHERE type = 'withdraw') AS withdrawals,
		COALESCE(SUM(amount) FILTER (WHERE type = 'deposit'), 0) AS deposited,
		COALESCE(SUM(amount) FILTER (WHERE type = 'withdraw'), 0) AS withdrawn
		FROM vault_transactions WHERE %s`, condition)

	stats := &ports.VaultStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalTransactions, &stats.Deposits, &stats.Withdrawals,
		&stats.TotalDeposited, &stats.TotalWithdrawn,
	)
	if err != nil {
		return nil, fmt.Errorf("get vault stats: %w", err)
	}
	stats.NetFlow = stats.TotalDeposited.Sub(stats.TotalWithdrawn)
	return stats, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.VaultTransaction, error) {
	t := &domain.VaultTransaction{}
	err := row.Scan(
		&t.ID, &t.VaultID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Description, &t.Status,
		&t.BalanceAfter, &t.ApprovalID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan vault transaction: %w", err)
	}
	return t, nil
}
