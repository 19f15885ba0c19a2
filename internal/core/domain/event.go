package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a state change published to subscribers.
type EventType string

const (
	EventVaultCreated            EventType = "vault.created"
	EventVaultDeleted            EventType = "vault.deleted"
	EventVaultDeposit            EventType = "vault.deposit"
	EventVaultWithdraw           EventType = "vault.withdraw"
	EventMemberInvited           EventType = "member.invited"
	EventMemberJoined            EventType = "member.joined"
	EventMemberRoleChanged       EventType = "member.role_changed"
	EventMemberLimitsUpdated     EventType = "member.limits_updated"
	EventMemberRemoved           EventType = "member.removed"
	EventWalletCreated           EventType = "wallet.created"
	EventPartyAdded              EventType = "wallet.party_added"
	EventPartyDeactivated        EventType = "wallet.party_deactivated"
	EventApprovalProposed        EventType = "approval.proposed"
	EventApprovalVoted           EventType = "approval.voted"
	EventApprovalApproved        EventType = "approval.approved"
	EventApprovalExecuted        EventType = "approval.executed"
	EventApprovalExecutionFailed EventType = "approval.execution_failed"
	EventApprovalExpired         EventType = "approval.expired"
	EventApprovalCancelled       EventType = "approval.cancelled"
)

// Event is the payload delivered to the event sinks after a commit.
type Event struct {
	ID         uuid.UUID        `json:"id"`
	Type       EventType        `json:"type"`
	VaultID    uuid.UUID        `json:"vault_id"`
	WalletID   *uuid.UUID       `json:"wallet_id,omitempty"`
	ApprovalID *uuid.UUID       `json:"approval_id,omitempty"`
	ActorID    string           `json:"actor_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	Status     string           `json:"status,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewEvent builds an event with a fresh id.
func NewEvent(t EventType, vaultID uuid.UUID, actorID string, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		VaultID:    vaultID,
		ActorID:    actorID,
		OccurredAt: at,
	}
}

// ApprovalEvent builds an event describing a proposal transition.
func ApprovalEvent(t EventType, p *PendingApproval, actorID string, at time.Time) Event {
	e := NewEvent(t, p.VaultID, actorID, at)
	walletID, approvalID, amount := p.WalletID, p.ID, p.Amount
	e.WalletID = &walletID
	e.ApprovalID = &approvalID
	e.Amount = &amount
	e.Currency = p.Currency
	e.Status = string(p.Status)
	return e
}

// Key returns the partition key used by ordered transports.
func (e Event) Key() string {
	return e.VaultID.String()
}
