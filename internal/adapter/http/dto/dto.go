package dto

// Amounts travel as decimal strings ("125.50") so no precision is lost in JSON.

// VaultRulesRequest sets default limits applied to new invitees.
type VaultRulesRequest struct {
	DefaultContributionLimit *string `json:"default_contribution_limit,omitempty" binding:"omitempty,decimal_positive"`
	DefaultWithdrawalLimit   *string `json:"default_withdrawal_limit,omitempty" binding:"omitempty,decimal_positive"`
}

// CreateVaultRequest is the request body for vault creation.
type CreateVaultRequest struct {
	Name         string             `json:"name" binding:"required,min=1,max=100"`
	Description  string             `json:"description" binding:"max=500"`
	VaultType    string             `json:"vault_type" binding:"omitempty,oneof=savings investment emergency goal shared_expense other"`
	Currency     string             `json:"currency" binding:"required,min=2,max=16,alphanum"`
	TargetAmount *string            `json:"target_amount,omitempty" binding:"omitempty,decimal_positive"`
	IsPublic     bool               `json:"is_public"`
	Rules        *VaultRulesRequest `json:"rules,omitempty"`
}

// LedgerRequest is the request body for a deposit or withdrawal.
type LedgerRequest struct {
	Amount      string `json:"amount" binding:"required,decimal_positive"`
	Currency    string `json:"currency" binding:"omitempty,min=2,max=16,alphanum"`
	Description string `json:"description" binding:"max=255"`
}

// InviteMemberRequest is the request body for inviting a user.
type InviteMemberRequest struct {
	UserID            string  `json:"user_id" binding:"required,max=128,safe_id"`
	Role              string  `json:"role" binding:"required,oneof=admin member backup"`
	ContributionLimit *string `json:"contribution_limit,omitempty" binding:"omitempty,decimal_positive"`
	WithdrawalLimit   *string `json:"withdrawal_limit,omitempty" binding:"omitempty,decimal_positive"`
}

// ChangeRoleRequest is the request body for a role change or ownership transfer.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=owner admin member backup"`
}

// UpdateLimitsRequest replaces a member's limits; omitted fields clear the cap.
type UpdateLimitsRequest struct {
	ContributionLimit *string `json:"contribution_limit,omitempty" binding:"omitempty,decimal_positive"`
	WithdrawalLimit   *string `json:"withdrawal_limit,omitempty" binding:"omitempty,decimal_positive"`
}

// PartyRequest describes one wallet party.
type PartyRequest struct {
	UserID string `json:"user_id" binding:"required,max=128,safe_id"`
	Role   string `json:"role" binding:"omitempty,oneof=owner cosigner recovery"`
	Weight int    `json:"weight" binding:"omitempty,min=1,max=100"`
}

// CreateWalletRequest is the request body for a threshold wallet.
type CreateWalletRequest struct {
	Name      string         `json:"name" binding:"required,min=1,max=100"`
	Threshold int            `json:"threshold" binding:"required,min=1"`
	Parties   []PartyRequest `json:"parties" binding:"dive"`
}

// ProposeRequest is the request body for a withdrawal or transfer proposal.
type ProposeRequest struct {
	Type             string `json:"type" binding:"required,oneof=withdraw transfer"`
	Amount           string `json:"amount" binding:"required,decimal_positive"`
	Currency         string `json:"currency" binding:"omitempty,min=2,max=16,alphanum"`
	Recipient        string `json:"recipient" binding:"max=255"`
	Description      string `json:"description" binding:"max=255"`
	ExpiresInSeconds int64  `json:"expires_in_seconds" binding:"omitempty,min=1,max=9223372036"`
}

// VoteRequest is the request body for a vote. PartyID is optional.
type VoteRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	PartyID  string `json:"party_id" binding:"omitempty,uuid"`
}

// CancelRequest is the optional request body for cancelling a proposal.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// VaultStatsResponse is the response for ledger statistics.
type VaultStatsResponse struct {
	Period            string `json:"period"`
	TotalTransactions int64  `json:"total_transactions"`
	Deposits          int64  `json:"deposits"`
	Withdrawals       int64  `json:"withdrawals"`
	TotalDeposited    string `json:"total_deposited"`
	TotalWithdrawn    string `json:"total_withdrawn"`
	NetFlow           string `json:"net_flow"`
}
