package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalStatus is the lifecycle of a pending approval transaction.
//
//	pending_approval -> approved -> executed | execution_failed
//	pending_approval -> rejected | expired
type ApprovalStatus string

const (
	ApprovalStatusPending         ApprovalStatus = "pending_approval"
	ApprovalStatusApproved        ApprovalStatus = "approved"
	ApprovalStatusRejected        ApprovalStatus = "rejected"
	ApprovalStatusExpired         ApprovalStatus = "expired"
	ApprovalStatusExecuted        ApprovalStatus = "executed"
	ApprovalStatusExecutionFailed ApprovalStatus = "execution_failed"
)

// IsTerminal returns true for states that never transition again.
func (s ApprovalStatus) IsTerminal() bool {
	switch s {
	case ApprovalStatusRejected, ApprovalStatusExpired,
		ApprovalStatusExecuted, ApprovalStatusExecutionFailed:
		return true
	}
	return false
}

// IsValid reports whether s is a known status.
func (s ApprovalStatus) IsValid() bool {
	return s == ApprovalStatusPending || s == ApprovalStatusApproved || s.IsTerminal()
}

// ProposalType is the kind of balance movement being proposed.
type ProposalType string

const (
	ProposalTypeWithdraw ProposalType = "withdraw"
	ProposalTypeTransfer ProposalType = "transfer"
)

// IsValid reports whether t is a known proposal type.
func (t ProposalType) IsValid() bool {
	return t == ProposalTypeWithdraw || t == ProposalTypeTransfer
}

// Vote is one party's decision. A party votes at most once per proposal.
type Vote struct {
	ID         uuid.UUID `json:"id"`
	ApprovalID uuid.UUID `json:"approval_id"`
	PartyID    uuid.UUID `json:"party_id"`
	UserID     string    `json:"user_id"`
	Approved   bool      `json:"approved"`
	Weight     int       `json:"weight"`
	CreatedAt  time.Time `json:"created_at"`
}

// PendingApproval is a proposed debit awaiting M-of-N approval.
type PendingApproval struct {
	ID                  uuid.UUID       `json:"id"`
	WalletID            uuid.UUID       `json:"wallet_id"`
	VaultID             uuid.UUID       `json:"vault_id"`
	ProposerID          string          `json:"proposer_id"`
	Type                ProposalType    `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	Recipient           string          `json:"recipient,omitempty"`
	Description         string          `json:"description,omitempty"`
	RequiredApprovals   int             `json:"required_approvals"`
	Votes               []Vote          `json:"votes"`
	Status              ApprovalStatus  `json:"status"`
	ExpiresAt           time.Time       `json:"expires_at"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	ExecutedAt          *time.Time      `json:"executed_at,omitempty"`
	RejectedReason      string          `json:"rejected_reason,omitempty"`
	FailureReason       string          `json:"failure_reason,omitempty"`
	LedgerTransactionID *uuid.UUID      `json:"ledger_transaction_id,omitempty"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// IsPending returns true while votes are accepted.
func (p *PendingApproval) IsPending() bool {
	return p.Status == ApprovalStatusPending
}

// IsExpiredAt reports whether the voting window has closed at now.
func (p *PendingApproval) IsExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// HasVoted reports whether partyID already has a vote recorded.
func (p *PendingApproval) HasVoted(partyID uuid.UUID) bool {
	for i := range p.Votes {
		if p.Votes[i].PartyID == partyID {
			return true
		}
	}
	return false
}

// ApprovalWeight sums approving votes cast by parties that are still active.
// Rejections never count and never veto.
func (p *PendingApproval) ApprovalWeight(parties []WalletParty) int {
	active := make(map[uuid.UUID]bool, len(parties))
	for i := range parties {
		if parties[i].IsActive {
			active[parties[i].ID] = true
		}
	}
	weight := 0
	for i := range p.Votes {
		if p.Votes[i].Approved && active[p.Votes[i].PartyID] {
			weight += p.Votes[i].Weight
		}
	}
	return weight
}

// ThresholdMet reports whether the approving weight reaches RequiredApprovals.
func (p *PendingApproval) ThresholdMet(parties []WalletParty) bool {
	return p.ApprovalWeight(parties) >= p.RequiredApprovals
}
