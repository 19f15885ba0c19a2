package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"group-vault/config"
	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// VaultServiceImpl implements ports.VaultService with pessimistic row locks and
// version-checked vault updates.
type VaultServiceImpl struct {
	repos      Repositories
	idempCache ports.IdempotencyCache
	notifier   ports.Notifier
	cfg        config.LedgerConfig
	now        func() time.Time
	log        zerolog.Logger
}

// NewVaultService creates a new VaultServiceImpl.
func NewVaultService(
	repos Repositories,
	idempCache ports.IdempotencyCache,
	notifier ports.Notifier,
	cfg config.LedgerConfig,
	log zerolog.Logger,
) *VaultServiceImpl {
	return &VaultServiceImpl{
		repos:      repos,
		idempCache: idempCache,
		notifier:   notifier,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// CreateVault creates a vault with a zero balance and its owner membership.
func (s *VaultServiceImpl) CreateVault(ctx context.Context, req ports.CreateVaultRequest) (*domain.Vault, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	currency := domain.NormalizeCurrency(req.Currency)
	if currency == "" {
		return nil, apperror.Validation("currency is required")
	}
	if len(currency) > maxCurrencyLen {
		return nil, apperror.Validation(fmt.Sprintf("currency must be at most %d characters", maxCurrencyLen))
	}
	if req.OwnerID == "" {
		return nil, apperror.ErrPermission("caller identity is required")
	}
	vaultType := req.VaultType
	if vaultType == "" {
		vaultType = domain.VaultTypeOther
	}
	if !vaultType.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown vault type %q", vaultType))
	}
	if req.TargetAmount != nil && !req.TargetAmount.IsPositive() {
		return nil, apperror.Validation("target amount must be greater than zero")
	}
	if err := validateLimits(req.Rules.DefaultContributionLimit, req.Rules.DefaultWithdrawalLimit); err != nil {
		return nil, err
	}

	now := s.now()
	vault := &domain.Vault{
		ID:           uuid.New(),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		VaultType:    vaultType,
		Currency:     currency,
		IsPublic:     req.IsPublic,
		TargetAmount: req.TargetAmount,
		TotalBalance: decimal.Zero,
		OwnerID:      req.OwnerID,
		Status:       domain.VaultStatusActive,
		Rules:        req.Rules,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	owner := &domain.VaultMember{
		ID:        uuid.New(),
		VaultID:   vault.ID,
		UserID:    req.OwnerID,
		Role:      domain.RoleOwner,
		Status:    domain.MemberStatusActive,
		JoinedAt:  &now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbTx, err := s.repos.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.repos.Vaults.Create(ctx, dbTx, vault); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create vault: %w", err))
	}
	if err := s.repos.Members.Create(ctx, dbTx, owner); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create owner membership: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.notify(ctx, domain.NewEvent(domain.EventVaultCreated, vault.ID, req.OwnerID, now))
	s.log.Info().
		Str("vault_id", vault.ID.String()).
		Str("owner_id", vault.OwnerID).
		Str("currency", vault.Currency).
		Msg("vault created")

	return vault, nil
}

// ListVaults returns active vaults where userID is an active member.
func (s *VaultServiceImpl) ListVaults(ctx context.Context, userID string, page, pageSize int) ([]domain.Vault, int64, error) {
	page, pageSize = ports.NormalizePage(page, pageSize)
	vaults, total, err := s.repos.Vaults.ListByMember(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return vaults, total, nil
}

// GetVaultDetails returns the caller's view of a vault. Active members see
// members, recent ledger entries and wallets. Non-members of a public vault
// see the vault and its member count only.
func (s *VaultServiceImpl) GetVaultDetails(ctx context.Context, vaultID uuid.UUID, callerID string) (*ports.VaultDetails, error) {
	vault, err := s.repos.Vaults.GetByID(ctx, vaultID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get vault: %w", err))
	}
	if vault == nil || !vault.IsActive() {
		return nil, apperror.ErrNotFound("vault")
	}

	member, err := s.repos.Members.Get(ctx, vaultID, callerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get member: %w", err))
	}
	isMember := member != nil && member.Can(domain.PermView)
	if !isMember && !vault.IsPublic {
		return nil, apperror.ErrPermission("vault is private")
	}

	count, err := s.repos.Members.CountActive(ctx, vaultID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count members: %w", err))
	}
	details := &ports.VaultDetails{Vault: vault, MemberCount: count}
	if !isMember {
		return details, nil
	}

	role := member.Role
	details.CallerRole = &role
	if details.Members, err = s.repos.Members.ListByVault(ctx, vaultID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list members: %w", err))
	}
	details.RecentTransactions, _, err = s.repos.Ledger.List(ctx, ports.TransactionListParams{
		VaultID:  vaultID,
		Page:     1,
		PageSize: s.cfg.RecentTransactions,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	if details.Wallets, err = s.repos.Wallets.ListByVault(ctx, vaultID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list wallets: %w", err))
	}
	return details, nil
}

// DeleteVault soft-deletes an empty vault. Members are removed and wallet
// parties deactivated in the same transaction; pending proposals are then
// rejected one by one under their own locks.
func (s *VaultServiceImpl) DeleteVault(ctx context.Context, vaultID uuid.UUID, callerID string) error {
	_, err := withRetry(ctx, s.cfg.MaxRetries, s.log, "delete_vault", func() (struct{}, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		vault, err := s.lockActiveVault(ctx, dbTx, vaultID)
		if err != nil {
			return struct{}{}, err
		}
		if vault.OwnerID != callerID {
			return struct{}{}, apperror.ErrPermission("only the owner can delete a vault")
		}
		if !vault.TotalBalance.IsZero() {
			return struct{}{}, apperror.ErrInvariantViolation("vault balance must be zero before deletion")
		}

		now := s.now()
		vault.Status = domain.VaultStatusDeleted
		vault.DeletedAt = &now
		vault.UpdatedAt = now
		if err := s.repos.Vaults.Update(ctx, dbTx, vault); err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("update vault: %w", err))
		}
		if err := s.repos.Members.RemoveAll(ctx, dbTx, vaultID, now); err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("remove members: %w", err))
		}
		if _, err := deactivatePartiesOf(ctx, s.repos, dbTx, vaultID, "", now); err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("deactivate parties: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, domain.NewEvent(domain.EventVaultDeleted, vaultID, callerID, s.now()))
	s.rejectPendingProposals(ctx, vaultID, callerID, "", "vault deleted")

	s.log.Info().
		Str("vault_id", vaultID.String()).
		Str("owner_id", callerID).
		Msg("vault deleted")
	return nil
}

// rejectPendingProposals rejects the vault's pending proposals, limited to
// those made by proposerID when it is set.
func (s *VaultServiceImpl) rejectPendingProposals(ctx context.Context, vaultID uuid.UUID, callerID, proposerID, reason string) {
	ids, err := s.repos.Approvals.ListPendingByVault(ctx, vaultID)
	if err != nil {
		s.log.Warn().Err(err).Str("vault_id", vaultID.String()).Msg("failed to list pending proposals")
		return
	}
	for _, id := range ids {
		p, err := s.rejectProposal(ctx, id, proposerID, reason)
		if err != nil {
			s.log.Warn().Err(err).Str("approval_id", id.String()).Str("reason", reason).Msg("failed to reject proposal")
			continue
		}
		if p != nil {
			s.notify(ctx, domain.ApprovalEvent(domain.EventApprovalCancelled, p, callerID, s.now()))
		}
	}
}

func (s *VaultServiceImpl) rejectProposal(ctx context.Context, id uuid.UUID, proposerID, reason string) (*domain.PendingApproval, error) {
	dbTx, err := s.repos.Transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	p, err := s.repos.Approvals.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, fmt.Errorf("lock approval: %w", err)
	}
	if p == nil || !p.IsPending() || (proposerID != "" && p.ProposerID != proposerID) {
		return nil, nil
	}
	p.Status = domain.ApprovalStatusRejected
	p.RejectedReason = reason
	p.UpdatedAt = s.now()
	if err := s.repos.Approvals.Update(ctx, dbTx, p); err != nil {
		return nil, fmt.Errorf("update approval: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return p, nil
}

// Deposit credits the vault and appends a ledger entry atomically.
func (s *VaultServiceImpl) Deposit(ctx context.Context, req ports.LedgerRequest) (*domain.VaultTransaction, error) {
	return s.applyLedger(ctx, req, domain.TransactionTypeDeposit)
}

// Withdraw debits the vault and appends a ledger entry atomically.
func (s *VaultServiceImpl) Withdraw(ctx context.Context, req ports.LedgerRequest) (*domain.VaultTransaction, error) {
	return s.applyLedger(ctx, req, domain.TransactionTypeWithdraw)
}

func (s *VaultServiceImpl) applyLedger(ctx context.Context, req ports.LedgerRequest, txType domain.TransactionType) (*domain.VaultTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.UserID == "" {
		return nil, apperror.ErrPermission("caller identity is required")
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.VaultID, req.UserID, txType, req.IdempotencyKey)
		prior, err := s.lookupIdempotent(ctx, idempKey)
		if err != nil || prior != nil {
			return prior, err
		}
	}

	entry, err := withRetry(ctx, s.cfg.MaxRetries, s.log, string(txType), func() (*domain.VaultTransaction, error) {
		return s.applyLedgerOnce(ctx, req, txType, idempKey)
	})
	if err != nil {
		if idempKey != "" && errors.Is(err, ports.ErrDuplicate) {
			// A concurrent request with the same key committed first.
			if prior, lookupErr := s.lookupIdempotent(ctx, idempKey); lookupErr == nil && prior != nil {
				return prior, nil
			}
		}
		return nil, err
	}

	if idempKey != "" {
		if respJSON, err := json.Marshal(entry); err == nil {
			if err := s.idempCache.Set(ctx, idempKey, respJSON, s.cfg.IdempotencyTTL); err != nil {
				s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
			}
		}
	}

	eventType := domain.EventVaultDeposit
	if txType == domain.TransactionTypeWithdraw {
		eventType = domain.EventVaultWithdraw
	}
	event := domain.NewEvent(eventType, entry.VaultID, entry.UserID, entry.CreatedAt)
	amount := entry.Amount
	event.Amount = &amount
	event.Currency = entry.Currency
	event.Status = string(entry.Status)
	s.notify(ctx, event)

	s.log.Info().
		Str("tx_id", entry.ID.String()).
		Str("vault_id", entry.VaultID.String()).
		Str("user_id", entry.UserID).
		Str("type", string(txType)).
		Str("amount", entry.Amount.String()).
		Str("balance_after", entry.BalanceAfter.String()).
		Msg("ledger entry recorded")

	return entry, nil
}

func (s *VaultServiceImpl) applyLedgerOnce(ctx context.Context, req ports.LedgerRequest, txType domain.TransactionType, idempKey string) (*domain.VaultTransaction, error) {
	dbTx, err := s.repos.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	vault, err := s.lockActiveVault(ctx, dbTx, req.VaultID)
	if err != nil {
		return nil, err
	}
	if req.Currency != "" && domain.NormalizeCurrency(req.Currency) != vault.Currency {
		return nil, apperror.Validation(fmt.Sprintf("currency must be %s", vault.Currency))
	}

	member, err := s.repos.Members.Get(ctx, req.VaultID, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get member: %w", err))
	}

	switch txType {
	case domain.TransactionTypeDeposit:
		if member == nil || !member.Can(domain.PermDeposit) {
			return nil, apperror.ErrPermission("caller cannot deposit into this vault")
		}
		if member.ExceedsContributionLimit(req.Amount) {
			return nil, apperror.ErrLimitExceeded(fmt.Sprintf("amount exceeds contribution limit of %s", member.ContributionLimit))
		}
		vault.TotalBalance = vault.TotalBalance.Add(req.Amount)
	case domain.TransactionTypeWithdraw:
		if member == nil || !member.Can(domain.PermWithdraw) {
			return nil, apperror.ErrPermission("caller cannot withdraw from this vault")
		}
		if member.ExceedsWithdrawalLimit(req.Amount) {
			return nil, apperror.ErrLimitExceeded(fmt.Sprintf("amount exceeds withdrawal limit of %s", member.WithdrawalLimit))
		}
		if !vault.CanDebit(req.Amount) {
			return nil, apperror.ErrInsufficientBalance()
		}
		vault.TotalBalance = vault.TotalBalance.Sub(req.Amount)
	}

	now := s.now()
	vault.UpdatedAt = now
	if err := s.repos.Vaults.Update(ctx, dbTx, vault); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	entry := &domain.VaultTransaction{
		ID:           uuid.New(),
		VaultID:      vault.ID,
		UserID:       req.UserID,
		Type:         txType,
		Amount:       req.Amount,
		Currency:     vault.Currency,
		Description:  strings.TrimSpace(req.Description),
		Status:       domain.TransactionStatusCompleted,
		BalanceAfter: vault.TotalBalance,
		CreatedAt:    now,
	}
	if err := s.repos.Ledger.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if idempKey != "" {
		respJSON, err := json.Marshal(entry)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		idempLog := &domain.IdempotencyLog{
			Key:           idempKey,
			TransactionID: entry.ID,
			ResponseJSON:  respJSON,
			CreatedAt:     now,
		}
		if err := s.repos.Idempotency.Create(ctx, dbTx, idempLog); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return entry, nil
}

// lookupIdempotent checks Redis first, then the database log.
func (s *VaultServiceImpl) lookupIdempotent(ctx context.Context, key string) (*domain.VaultTransaction, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalTransaction(cached)
	}

	idempLog, err := s.repos.Idempotency.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog == nil {
		return nil, nil
	}
	return unmarshalTransaction(idempLog.ResponseJSON)
}

func unmarshalTransaction(data []byte) (*domain.VaultTransaction, error) {
	var entry domain.VaultTransaction
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transaction: %w", err))
	}
	return &entry, nil
}

// WithdrawApproved debits the vault inside tx on behalf of an approved proposal.
// The caller owns the transaction and commits it.
func (s *VaultServiceImpl) WithdrawApproved(ctx context.Context, tx pgx.Tx, req ports.ApprovedWithdrawal) (*domain.VaultTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	vault, err := s.repos.Vaults.GetByIDForUpdate(ctx, tx, req.VaultID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
	}
	if vault == nil {
		return nil, apperror.ErrNotFound("vault")
	}
	if !vault.IsActive() {
		return nil, apperror.ErrInvariantViolation("vault has been deleted")
	}
	if domain.NormalizeCurrency(req.Currency) != vault.Currency {
		return nil, apperror.Validation(fmt.Sprintf("currency must be %s", vault.Currency))
	}
	if !vault.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := s.now()
	vault.TotalBalance = vault.TotalBalance.Sub(req.Amount)
	vault.UpdatedAt = now
	if err := s.repos.Vaults.Update(ctx, tx, vault); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	approvalID := req.ApprovalID
	entry := &domain.VaultTransaction{
		ID:           uuid.New(),
		VaultID:      vault.ID,
		UserID:       req.ProposerID,
		Type:         domain.TransactionTypeWithdraw,
		Amount:       req.Amount,
		Currency:     vault.Currency,
		Description:  req.Description,
		Status:       domain.TransactionStatusCompleted,
		BalanceAfter: vault.TotalBalance,
		ApprovalID:   &approvalID,
		CreatedAt:    now,
	}
	if err := s.repos.Ledger.Create(ctx, tx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}
	return entry, nil
}

// lockActiveVault takes the vault row lock and rejects missing or deleted vaults.
func (s *VaultServiceImpl) lockActiveVault(ctx context.Context, tx pgx.Tx, vaultID uuid.UUID) (*domain.Vault, error) {
	vault, err := s.repos.Vaults.GetByIDForUpdate(ctx, tx, vaultID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
	}
	if vault == nil || !vault.IsActive() {
		return nil, apperror.ErrNotFound("vault")
	}
	return vault, nil
}

func (s *VaultServiceImpl) notify(ctx context.Context, event domain.Event) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, event)
	}
}

func validateLimits(limits ...*decimal.Decimal) error {
	for _, l := range limits {
		if l != nil && !l.IsPositive() {
			return apperror.Validation("limits must be greater than zero")
		}
	}
	return nil
}
