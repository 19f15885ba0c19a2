package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemberRole is the closed set of vault roles.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
	RoleBackup MemberRole = "backup"
)

// Permission is a capability granted by a role.
type Permission string

const (
	PermView          Permission = "view"
	PermDeposit       Permission = "deposit"
	PermWithdraw      Permission = "withdraw"
	PermInvite        Permission = "invite"
	PermManageMembers Permission = "manage_members"
	PermManageWallets Permission = "manage_wallets"
)

var rolePermissions = map[MemberRole][]Permission{
	RoleOwner:  {PermView, PermDeposit, PermWithdraw, PermInvite, PermManageMembers, PermManageWallets},
	RoleAdmin:  {PermView, PermDeposit, PermWithdraw, PermInvite, PermManageMembers, PermManageWallets},
	RoleMember: {PermView, PermDeposit, PermWithdraw},
	RoleBackup: {PermView},
}

// IsValid reports whether r is a known role.
func (r MemberRole) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns a copy of the permission set for r.
func (r MemberRole) Permissions() []Permission {
	perms := rolePermissions[r]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Can reports whether r grants p.
func (r MemberRole) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// MemberStatus tracks the two-phase join and removal.
type MemberStatus string

const (
	MemberStatusInvited MemberStatus = "invited"
	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"
)

// VaultMember links a user to a vault with a role and optional per-operation caps.
type VaultMember struct {
	ID                uuid.UUID        `json:"id"`
	VaultID           uuid.UUID        `json:"vault_id"`
	UserID            string           `json:"user_id"`
	Role              MemberRole       `json:"role"`
	Status            MemberStatus     `json:"status"`
	ContributionLimit *decimal.Decimal `json:"contribution_limit,omitempty"`
	WithdrawalLimit   *decimal.Decimal `json:"withdrawal_limit,omitempty"`
	InvitedBy         string           `json:"invited_by,omitempty"`
	JoinedAt          *time.Time       `json:"joined_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsActive returns true for accepted, non-removed members.
func (m *VaultMember) IsActive() bool {
	return m.Status == MemberStatusActive
}

// Can reports whether the member is active and its role grants p.
func (m *VaultMember) Can(p Permission) bool {
	return m.IsActive() && m.Role.Can(p)
}

// ExceedsContributionLimit is true when a cap is set and amount is above it.
func (m *VaultMember) ExceedsContributionLimit(amount decimal.Decimal) bool {
	return m.ContributionLimit != nil && amount.GreaterThan(*m.ContributionLimit)
}

// ExceedsWithdrawalLimit is true when a cap is set and amount is above it.
func (m *VaultMember) ExceedsWithdrawalLimit(amount decimal.Decimal) bool {
	return m.WithdrawalLimit != nil && amount.GreaterThan(*m.WithdrawalLimit)
}
