package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a ledger entry.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
)

// TransactionStatus represents the state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

// VaultTransaction is an append-only ledger entry. Rejected operations never create one.
type VaultTransaction struct {
	ID           uuid.UUID         `json:"id"`
	VaultID      uuid.UUID         `json:"vault_id"`
	UserID       string            `json:"user_id"`
	Type         TransactionType   `json:"type"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	Description  string            `json:"description,omitempty"`
	Status       TransactionStatus `json:"status"`
	BalanceAfter decimal.Decimal   `json:"balance_after"`
	ApprovalID   *uuid.UUID        `json:"approval_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// IsTerminal returns true if the entry can no longer change.
func (t *VaultTransaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted
}

// SignedAmount is positive for deposits and negative for withdrawals.
func (t *VaultTransaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeWithdraw {
		return t.Amount.Neg()
	}
	return t.Amount
}
