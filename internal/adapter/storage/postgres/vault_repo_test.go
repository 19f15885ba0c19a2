package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault() *domain.Vault {
	now := time.Now().UTC().Truncate(time.Microsecond)
	target := decimal.NewFromInt(5000)
	return &domain.Vault{
		ID:           uuid.New(),
		Name:         "Family savings",
		Description:  "rainy day",
		VaultType:    domain.VaultTypeSavings,
		Currency:     "KES",
		IsPublic:     false,
		TargetAmount: &target,
		TotalBalance: decimal.NewFromInt(1000),
		OwnerID:      "alice",
		Status:       domain.VaultStatusActive,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func vaultColumnNames() []string {
	return []string{"id", "name", "description", "vault_type", "currency", "is_public", "target_amount",
		"total_balance", "owner_id", "status", "default_contribution_limit", "default_withdrawal_limit",
		"version", "created_at", "updated_at", "deleted_at"}
}

func vaultRow(v *domain.Vault) *pgxmock.Rows {
	return pgxmock.NewRows(vaultColumnNames()).AddRow(
		v.ID, v.Name, v.Description, v.VaultType, v.Currency, v.IsPublic, v.TargetAmount,
		v.TotalBalance, v.OwnerID, v.Status, v.Rules.DefaultContributionLimit, v.Rules.DefaultWithdrawalLimit,
		v.Version, v.CreatedAt, v.UpdatedAt, v.DeletedAt,
	)
}

func TestVaultRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVaultRepo(mock)
	v := newTestVault()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO vaults").
		WithArgs(
			v.ID, v.Name, v.Description, v.VaultType, v.Currency, v.IsPublic, v.TargetAmount, v.TotalBalance,
			v.OwnerID, v.Status, v.Rules.DefaultContributionLimit, v.Rules.DefaultWithdrawalLimit,
			v.Version, v.CreatedAt, v.UpdatedAt, v.DeletedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, v)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVaultRepo(mock)
	v := newTestVault()

	mock.ExpectQuery("SELECT .+ FROM vaults WHERE id").
		WithArgs(v.ID).
		WillReturnRows(vaultRow(v))

	result, err := repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, v.ID, result.ID)
	assert.Equal(t, "KES", result.Currency)
	assert.True(t, v.TotalBalance.Equal(result.TotalBalance))
	require.NotNil(t, result.TargetAmount)
	assert.True(t, result.TargetAmount.Equal(decimal.NewFromInt(5000)))
	assert.Nil(t, result.Rules.DefaultWithdrawalLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVaultRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM vaults WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(vaultColumnNames()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVaultRepo(mock)
	v := newTestVault()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM vaults WHERE id = .+ FOR UPDATE").
		WithArgs(v.ID).
		WillReturnRows(vaultRow(v))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(1), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVaultRepo(mock)
	v := newTestVault()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vaults SET").
		WithArgs(v.TotalBalance, v.OwnerID, v.Status, v.UpdatedAt, v.DeletedAt, v.ID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, v)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), v.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultRepo_Update_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVaultRepo(mock)
	v := newTestVault()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vaults SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, v)
	assert.True(t, errors.Is(err, ports.ErrVersionConflict))
	assert.Equal(t, int64(1), v.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultRepo_ListByMember(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVaultRepo(mock)
	v := newTestVault()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT v.id, .+ FROM vaults v JOIN vault_members m").
		WithArgs("alice", 20, 0).
		WillReturnRows(vaultRow(v))

	vaults, total, err := repo.ListByMember(context.Background(), "alice", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, vaults, 1)
	assert.Equal(t, v.ID, vaults[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
