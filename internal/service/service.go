// Package service holds the business logic behind the vault ledger and the
// threshold approval engine.
package service

import (
	"context"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxCurrencyLen = 16

// Repositories bundles the persistence ports shared by the vault and approval services.
type Repositories struct {
	Vaults      ports.VaultRepository
	Members     ports.MemberRepository
	Ledger      ports.LedgerRepository
	Wallets     ports.WalletRepository
	Parties     ports.PartyRepository
	Approvals   ports.ApprovalRepository
	Idempotency ports.IdempotencyRepository
	Transactor  ports.DBTransactor
}

// deactivatePartiesOf locks every wallet of the vault and deactivates the parties
// held by userID, or all parties when userID is empty. Wallets whose threshold
// becomes unreachable are returned.
func deactivatePartiesOf(ctx context.Context, repos Repositories, tx pgx.Tx, vaultID uuid.UUID, userID string, at time.Time) ([]uuid.UUID, error) {
	wallets, err := repos.Wallets.ListByVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	var unreachable []uuid.UUID
	for _, w := range wallets {
		wallet, err := repos.Wallets.GetByIDForUpdate(ctx, tx, w.ID)
		if err != nil {
			return nil, err
		}
		if wallet == nil {
			continue
		}
		parties, err := repos.Parties.ListByWallet(ctx, wallet.ID)
		if err != nil {
			return nil, err
		}
		changed := false
		for i := range parties {
			p := &parties[i]
			if !p.IsActive || (userID != "" && p.UserID != userID) {
				continue
			}
			p.IsActive = false
			p.UpdatedAt = at
			if err := repos.Parties.Update(ctx, tx, p); err != nil {
				return nil, err
			}
			changed = true
		}
		if changed && userID != "" && domain.ActiveWeight(parties) < wallet.Threshold {
			unreachable = append(unreachable, wallet.ID)
		}
	}
	return unreachable, nil
}
