package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VaultStatus represents the lifecycle state of a vault.
type VaultStatus string

const (
	VaultStatusActive  VaultStatus = "active"
	VaultStatusDeleted VaultStatus = "deleted"
)

// VaultType is an informational category chosen at creation.
type VaultType string

const (
	VaultTypeSavings       VaultType = "savings"
	VaultTypeInvestment    VaultType = "investment"
	VaultTypeEmergency     VaultType = "emergency"
	VaultTypeGoal          VaultType = "goal"
	VaultTypeSharedExpense VaultType = "shared_expense"
	VaultTypeOther         VaultType = "other"
)

// IsValid reports whether t is one of the known categories.
func (t VaultType) IsValid() bool {
	switch t {
	case VaultTypeSavings, VaultTypeInvestment, VaultTypeEmergency,
		VaultTypeGoal, VaultTypeSharedExpense, VaultTypeOther:
		return true
	}
	return false
}

// VaultRules are defaults applied to members invited without explicit limits.
type VaultRules struct {
	DefaultContributionLimit *decimal.Decimal `json:"default_contribution_limit,omitempty"`
	DefaultWithdrawalLimit   *decimal.Decimal `json:"default_withdrawal_limit,omitempty"`
}

// Vault is a shared-balance account governed by its members.
// TotalBalance only moves through recorded deposit and withdraw entries.
type Vault struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	VaultType    VaultType        `json:"vault_type"`
	Currency     string           `json:"currency"`
	IsPublic     bool             `json:"is_public"`
	TargetAmount *decimal.Decimal `json:"target_amount,omitempty"`
	TotalBalance decimal.Decimal  `json:"total_balance"`
	OwnerID      string           `json:"owner_id"`
	Status       VaultStatus      `json:"status"`
	Rules        VaultRules       `json:"rules"`
	Version      int64            `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`
}

// IsActive returns true unless the vault has been deleted.
func (v *Vault) IsActive() bool {
	return v.Status == VaultStatusActive
}

// CanDebit reports whether amount can leave the vault without going negative.
func (v *Vault) CanDebit(amount decimal.Decimal) bool {
	return v.TotalBalance.GreaterThanOrEqual(amount)
}

// NormalizeCurrency upper-cases and trims a currency code or token symbol.
func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
