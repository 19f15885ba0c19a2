package memory

import (
	"context"
	"fmt"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	store *Store
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(store *Store) *WalletRepo {
	return &WalletRepo{store: store}
}

func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *w
	t.stage(func() error {
		if _, ok := r.store.wallets[row.ID]; ok {
			return fmt.Errorf("insert wallet: %w", ports.ErrDuplicate)
		}
		return nil
	}, func() {
		r.store.wallets[row.ID] = row
		r.store.walletOrder = append(r.store.walletOrder, row.ID)
	})
	return nil
}

func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, lockKey("wallet", id)); err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *WalletRepo) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var wallets []domain.Wallet
	for _, id := range r.store.walletOrder {
		if w := r.store.wallets[id]; w.VaultID == vaultID {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

// PartyRepo implements ports.PartyRepository.
type PartyRepo struct {
	store *Store
}

// NewPartyRepo creates a new PartyRepo.
func NewPartyRepo(store *Store) *PartyRepo {
	return &PartyRepo{store: store}
}

// Create inserts a party. A user holds at most one party row per wallet.
func (r *PartyRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.WalletParty) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *p
	t.stage(func() error {
		for _, cur := range r.store.parties {
			if cur.ID == row.ID || (cur.WalletID == row.WalletID && cur.UserID == row.UserID) {
				return fmt.Errorf("insert wallet party: %w", ports.ErrDuplicate)
			}
		}
		return nil
	}, func() {
		r.store.parties[row.ID] = row
		r.store.partyOrder = append(r.store.partyOrder, row.ID)
	})
	return nil
}

func (r *PartyRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.WalletParty, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var parties []domain.WalletParty
	for _, id := range r.store.partyOrder {
		if p := r.store.parties[id]; p.WalletID == walletID {
			parties = append(parties, p)
		}
	}
	return parties, nil
}

func (r *PartyRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.WalletParty) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	row := *p
	t.stage(func() error {
		if _, ok := r.store.parties[row.ID]; !ok {
			return fmt.Errorf("wallet party not found: %s", row.ID)
		}
		return nil
	}, func() {
		r.store.parties[row.ID] = row
	})
	return nil
}
