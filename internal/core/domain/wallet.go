package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is an M-of-N approval policy governing debits from a vault.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	VaultID   uuid.UUID `json:"vault_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Threshold int       `json:"threshold"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartyRole describes why a principal holds a vote.
type PartyRole string

const (
	PartyRoleOwner    PartyRole = "owner"
	PartyRoleCosigner PartyRole = "cosigner"
	PartyRoleRecovery PartyRole = "recovery"
)

// IsValid reports whether r is a known party role.
func (r PartyRole) IsValid() bool {
	switch r {
	case PartyRoleOwner, PartyRoleCosigner, PartyRoleRecovery:
		return true
	}
	return false
}

// WalletParty is a principal entitled to vote on a wallet's proposals.
type WalletParty struct {
	ID        uuid.UUID `json:"id"`
	WalletID  uuid.UUID `json:"wallet_id"`
	UserID    string    `json:"user_id"`
	Role      PartyRole `json:"role"`
	Weight    int       `json:"weight"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveWeight sums the weight of active parties.
func ActiveWeight(parties []WalletParty) int {
	total := 0
	for i := range parties {
		if parties[i].IsActive {
			total += parties[i].Weight
		}
	}
	return total
}

// FindActiveParty returns the caller's active party, if any.
func FindActiveParty(parties []WalletParty, userID string) *WalletParty {
	for i := range parties {
		if parties[i].IsActive && parties[i].UserID == userID {
			return &parties[i]
		}
	}
	return nil
}
