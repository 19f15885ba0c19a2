package postgres

import (
	"context"
	"testing"
	"time"

	"group-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(vaultID uuid.UUID) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:        uuid.New(),
		VaultID:   vaultID,
		Name:      "Treasury",
		Currency:  "KES",
		Threshold: 2,
		CreatedBy: "alice",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func walletColumnNames() []string {
	return []string{"id", "vault_id", "name", "currency", "threshold", "created_by", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumnNames()).AddRow(
		w.ID, w.VaultID, w.Name, w.Currency, w.Threshold, w.CreatedBy, w.CreatedAt, w.UpdatedAt,
	)
}

func partyColumnNames() []string {
	return []string{"id", "wallet_id", "user_id", "role", "weight", "is_active", "created_at", "updated_at"}
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.VaultID, w.Name, w.Currency, w.Threshold, w.CreatedBy, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), dbTx, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Threshold)
	assert.Equal(t, w.VaultID, result.VaultID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(walletColumnNames()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id = .+ FOR UPDATE").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ListByVault(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE vault_id").
		WithArgs(w.VaultID).
		WillReturnRows(walletRow(w))

	wallets, err := repo.ListByVault(context.Background(), w.VaultID)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "Treasury", wallets[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_CreateAndList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &domain.WalletParty{
		ID:        uuid.New(),
		WalletID:  uuid.New(),
		UserID:    "bob",
		Role:      domain.PartyRoleCosigner,
		Weight:    2,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallet_parties").
		WithArgs(p.ID, p.WalletID, p.UserID, p.Role, p.Weight, p.IsActive, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM wallet_parties WHERE wallet_id").
		WithArgs(p.WalletID).
		WillReturnRows(pgxmock.NewRows(partyColumnNames()).
			AddRow(p.ID, p.WalletID, p.UserID, p.Role, p.Weight, p.IsActive, p.CreatedAt, p.UpdatedAt))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), dbTx, p))

	parties, err := repo.ListByWallet(context.Background(), p.WalletID)
	require.NoError(t, err)
	require.Len(t, parties, 1)
	assert.Equal(t, domain.PartyRoleCosigner, parties[0].Role)
	assert.Equal(t, 2, parties[0].Weight)
	assert.True(t, parties[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	p := &domain.WalletParty{ID: uuid.New(), Role: domain.PartyRoleRecovery, Weight: 1, IsActive: false, UpdatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallet_parties SET").
		WithArgs(p.Role, p.Weight, false, p.UpdatedAt, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Update(context.Background(), dbTx, p))
	assert.NoError(t, mock.ExpectationsWereMet())
}
