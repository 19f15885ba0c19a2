package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionVaultCreate     AuditAction = "VAULT_CREATE"
	AuditActionVaultDelete     AuditAction = "VAULT_DELETE"
	AuditActionDeposit         AuditAction = "DEPOSIT"
	AuditActionWithdraw        AuditAction = "WITHDRAW"
	AuditActionMemberInvite    AuditAction = "MEMBER_INVITE"
	AuditActionMemberAccept    AuditAction = "MEMBER_ACCEPT"
	AuditActionMemberRole      AuditAction = "MEMBER_ROLE"
	AuditActionMemberLimits    AuditAction = "MEMBER_LIMITS"
	AuditActionMemberRemove    AuditAction = "MEMBER_REMOVE"
	AuditActionWalletCreate    AuditAction = "WALLET_CREATE"
	AuditActionPartyAdd        AuditAction = "PARTY_ADD"
	AuditActionPartyDeactivate AuditAction = "PARTY_DEACTIVATE"
	AuditActionPropose         AuditAction = "PROPOSE"
	AuditActionVote            AuditAction = "VOTE"
	AuditActionCancel          AuditAction = "CANCEL"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      string      `json:"actor_id,omitempty"`
	VaultID      *uuid.UUID  `json:"vault_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
