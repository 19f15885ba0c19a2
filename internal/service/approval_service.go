package service

import (
	"context"
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
)

// ApprovalServiceImpl implements ports.ApprovalService.
//
// Locks are always taken in the order proposal, vault, wallet. Voting and the
// transition to approved run in one transaction under the proposal lock;
// execution runs in a second transaction that re-locks the proposal and only
// proceeds from approved, so a proposal debits the vault at most once.
type ApprovalServiceImpl struct {
	repos      Repositories
	ledger     ports.VaultService
	notifier   ports.Notifier
	cfg        config.ApprovalConfig
	maxRetries int
	now        func() time.Time
	log        zerolog.Logger
}

// NewApprovalService creates a new ApprovalServiceImpl.
func NewApprovalService(
	repos Repositories,
	ledger ports.VaultService,
	notifier ports.Notifier,
	cfg config.ApprovalConfig,
	maxRetries int,
	log zerolog.Logger,
) *ApprovalServiceImpl {
	return &ApprovalServiceImpl{
		repos:      repos,
		ledger:     ledger,
		notifier:   notifier,
		cfg:        cfg,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// CreateWallet creates an M-of-N wallet on a vault. The creator always holds a party.
func (s *ApprovalServiceImpl) CreateWallet(ctx context.Context, req ports.CreateWalletRequest) (*ports.WalletDetails, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if req.Threshold < 1 {
		return nil, apperror.Validation("threshold must be at least 1")
	}
	specs, err := normalizePartySpecs(req.CallerID, req.Parties)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, p := range specs {
		total += p.Weight
	}
	if total < req.Threshold {
		return nil, apperror.ErrInvariantViolation(fmt.Sprintf("threshold %d is unreachable with total party weight %d", req.Threshold, total))
	}

	details, err := withRetry(ctx, s.maxRetries, s.log, "create_wallet", func() (*ports.WalletDetails, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		vault, err := s.repos.Vaults.GetByIDForUpdate(ctx, dbTx, req.VaultID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
		}
		if vault == nil || !vault.IsActive() {
			return nil, apperror.ErrNotFound("vault")
		}
		if err := s.requirePermission(ctx, req.VaultID, req.CallerID, domain.PermManageWallets); err != nil {
			return nil, err
		}

		now := s.now()
		wallet := &domain.Wallet{
			ID:        uuid.New(),
			VaultID:   vault.ID,
			Name:      name,
			Currency:  vault.Currency,
			Threshold: req.Threshold,
			CreatedBy: req.CallerID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repos.Wallets.Create(ctx, dbTx, wallet); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}

		parties := make([]domain.WalletParty, 0, len(specs))
		for _, spec := range specs {
			if err := s.requireActiveMember(ctx, vault.ID, spec.UserID); err != nil {
				return nil, err
			}
			party := domain.WalletParty{
				ID:        uuid.New(),
				WalletID:  wallet.ID,
				UserID:    spec.UserID,
				Role:      spec.Role,
				Weight:    spec.Weight,
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repos.Parties.Create(ctx, dbTx, &party); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("create party: %w", err))
			}
			parties = append(parties, party)
		}

		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return &ports.WalletDetails{Wallet: wallet, Parties: parties, ActiveWeight: domain.ActiveWeight(parties)}, nil
	})
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventWalletCreated, req.VaultID, req.CallerID, details.Wallet.CreatedAt)
	walletID := details.Wallet.ID
	event.WalletID = &walletID
	s.notify(ctx, event)
	s.log.Info().
		Str("wallet_id", walletID.String()).
		Str("vault_id", req.VaultID.String()).
		Int("threshold", req.Threshold).
		Int("parties", len(details.Parties)).
		Msg("wallet created")

	return details, nil
}

// normalizePartySpecs applies defaults, rejects duplicates and adds the creator
// as an owner party when it is not listed.
func normalizePartySpecs(creatorID string, specs []ports.PartySpec) ([]ports.PartySpec, error) {
	out := make([]ports.PartySpec, 0, len(specs)+1)
	seen := make(map[string]bool, len(specs)+1)
	for _, spec := range specs {
		spec, err := normalizePartySpec(spec)
		if err != nil {
			return nil, err
		}
		if seen[spec.UserID] {
			return nil, apperror.Validation(fmt.Sprintf("user %s is listed twice", spec.UserID))
		}
		seen[spec.UserID] = true
		out = append(out, spec)
	}
	if !seen[creatorID] {
		out = append([]ports.PartySpec{{UserID: creatorID, Role: domain.PartyRoleOwner, Weight: 1}}, out...)
	}
	return out, nil
}

func normalizePartySpec(spec ports.PartySpec) (ports.PartySpec, error) {
	if spec.UserID == "" {
		return spec, apperror.Validation("party user_id is required")
	}
	if spec.Role == "" {
		spec.Role = domain.PartyRoleCosigner
	}
	if !spec.Role.IsValid() {
		return spec, apperror.Validation(fmt.Sprintf("unknown party role %q", spec.Role))
	}
	if spec.Weight == 0 {
		spec.Weight = 1
	}
	if spec.Weight < 1 {
		return spec, apperror.Validation("party weight must be at least 1")
	}
	return spec, nil
}

// GetWallet returns a wallet and its parties to a vault member.
func (s *ApprovalServiceImpl) GetWallet(ctx context.Context, walletID uuid.UUID, callerID string) (*ports.WalletDetails, error) {
	wallet, err := s.repos.Wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if err := s.requirePermission(ctx, wallet.VaultID, callerID, domain.PermView); err != nil {
		return nil, err
	}
	parties, err := s.repos.Parties.ListByWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list parties: %w", err))
	}
	return &ports.WalletDetails{Wallet: wallet, Parties: parties, ActiveWeight: domain.ActiveWeight(parties)}, nil
}

// AddParty adds a vault member as a party, or reactivates its inactive party.
func (s *ApprovalServiceImpl) AddParty(ctx context.Context, req ports.AddPartyRequest) (*domain.WalletParty, error) {
	spec, err := normalizePartySpec(req.Party)
	if err != nil {
		return nil, err
	}

	party, err := withRetry(ctx, s.maxRetries, s.log, "add_party", func() (*domain.WalletParty, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		wallet, err := s.lockVaultAndWallet(ctx, dbTx, req.WalletID)
		if err != nil {
			return nil, err
		}
		if err := s.requirePermission(ctx, wallet.VaultID, req.CallerID, domain.PermManageWallets); err != nil {
			return nil, err
		}
		if err := s.requireActiveMember(ctx, wallet.VaultID, spec.UserID); err != nil {
			return nil, err
		}

		parties, err := s.repos.Parties.ListByWallet(ctx, wallet.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("list parties: %w", err))
		}

		now := s.now()
		for i := range parties {
			existing := &parties[i]
			if existing.UserID != spec.UserID {
				continue
			}
			if existing.IsActive {
				return nil, apperror.ErrDuplicateMember(fmt.Sprintf("user %s is already a party", spec.UserID))
			}
			existing.Role = spec.Role
			existing.Weight = spec.Weight
			existing.IsActive = true
			existing.UpdatedAt = now
			if err := s.repos.Parties.Update(ctx, dbTx, existing); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("reactivate party: %w", err))
			}
			if err := dbTx.Commit(ctx); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
			}
			return existing, nil
		}

		party := &domain.WalletParty{
			ID:        uuid.New(),
			WalletID:  wallet.ID,
			UserID:    spec.UserID,
			Role:      spec.Role,
			Weight:    spec.Weight,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repos.Parties.Create(ctx, dbTx, party); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create party: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return party, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyParty(ctx, domain.EventPartyAdded, req.CallerID, party)
	s.log.Info().
		Str("wallet_id", req.WalletID.String()).
		Str("user_id", party.UserID).
		Int("weight", party.Weight).
		Msg("party added")
	return party, nil
}

// DeactivateParty deactivates a party unless that would leave the threshold unreachable.
// Parties may deactivate themselves.
func (s *ApprovalServiceImpl) DeactivateParty(ctx context.Context, walletID, partyID uuid.UUID, callerID string) (*domain.WalletParty, error) {
	var changed bool
	party, err := withRetry(ctx, s.maxRetries, s.log, "deactivate_party", func() (*domain.WalletParty, error) {
		changed = false
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		wallet, err := s.lockVaultAndWallet(ctx, dbTx, walletID)
		if err != nil {
			return nil, err
		}
		parties, err := s.repos.Parties.ListByWallet(ctx, wallet.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("list parties: %w", err))
		}
		var party *domain.WalletParty
		for i := range parties {
			if parties[i].ID == partyID {
				party = &parties[i]
			}
		}
		if party == nil {
			return nil, apperror.ErrNotFound("party")
		}
		if party.UserID != callerID {
			if err := s.requirePermission(ctx, wallet.VaultID, callerID, domain.PermManageWallets); err != nil {
				return nil, err
			}
		}
		if !party.IsActive {
			return party, nil
		}
		if domain.ActiveWeight(parties)-party.Weight < wallet.Threshold {
			return nil, apperror.ErrInvariantViolation("deactivating this party would make the threshold unreachable")
		}

		party.IsActive = false
		party.UpdatedAt = s.now()
		if err := s.repos.Parties.Update(ctx, dbTx, party); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update party: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		changed = true
		return party, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifyParty(ctx, domain.EventPartyDeactivated, callerID, party)
		s.log.Info().Str("wallet_id", walletID.String()).Str("party_id", partyID.String()).Msg("party deactivated")
	}
	return party, nil
}

// Propose opens a pending approval on a wallet. The proposer must be an active party.
func (s *ApprovalServiceImpl) Propose(ctx context.Context, req ports.ProposeRequest) (*domain.PendingApproval, error) {
	if !req.Type.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown proposal type %q", req.Type))
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	expiresIn := req.ExpiresIn
	if expiresIn == 0 {
		expiresIn = s.cfg.DefaultExpiry
	}
	if expiresIn < 0 || expiresIn > s.cfg.MaxExpiry {
		return nil, apperror.Validation(fmt.Sprintf("expiry must be between 0 and %s", s.cfg.MaxExpiry))
	}
	recipient := strings.TrimSpace(req.Recipient)
	if req.Type == domain.ProposalTypeTransfer && recipient == "" {
		return nil, apperror.Validation("recipient is required for transfers")
	}

	proposal, err := withRetry(ctx, s.maxRetries, s.log, "propose", func() (*domain.PendingApproval, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		wallet, err := s.repos.Wallets.GetByIDForUpdate(ctx, dbTx, req.WalletID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
		vault, err := s.repos.Vaults.GetByID(ctx, wallet.VaultID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get vault: %w", err))
		}
		if vault == nil || !vault.IsActive() {
			return nil, apperror.ErrNotFound("vault")
		}

		currency := wallet.Currency
		if req.Currency != "" && domain.NormalizeCurrency(req.Currency) != currency {
			return nil, apperror.Validation(fmt.Sprintf("currency must be %s", currency))
		}

		parties, err := s.repos.Parties.ListByWallet(ctx, wallet.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("list parties: %w", err))
		}
		if domain.FindActiveParty(parties, req.ProposerID) == nil {
			return nil, apperror.ErrPermission("caller is not an active party on this wallet")
		}
		if err := s.requireActiveMember(ctx, wallet.VaultID, req.ProposerID); err != nil {
			return nil, apperror.ErrPermission("caller is not an active member of this vault")
		}
		if weight := domain.ActiveWeight(parties); weight < wallet.Threshold {
			return nil, apperror.ErrInvariantViolation(fmt.Sprintf("active party weight %d is below threshold %d", weight, wallet.Threshold))
		}

		now := s.now()
		p := &domain.PendingApproval{
			ID:                uuid.New(),
			WalletID:          wallet.ID,
			VaultID:           wallet.VaultID,
			ProposerID:        req.ProposerID,
			Type:              req.Type,
			Amount:            req.Amount,
			Currency:          currency,
			Recipient:         recipient,
			Description:       strings.TrimSpace(req.Description),
			RequiredApprovals: wallet.Threshold,
			Votes:             []domain.Vote{},
			Status:            domain.ApprovalStatusPending,
			ExpiresAt:         now.Add(expiresIn),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.repos.Approvals.Create(ctx, dbTx, p); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create approval: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.ApprovalEvent(domain.EventApprovalProposed, proposal, req.ProposerID, proposal.CreatedAt))
	s.log.Info().
		Str("approval_id", proposal.ID.String()).
		Str("wallet_id", proposal.WalletID.String()).
		Str("amount", proposal.Amount.String()).
		Int("required", proposal.RequiredApprovals).
		Time("expires_at", proposal.ExpiresAt).
		Msg("proposal created")
	return proposal, nil
}

// GetProposal returns a proposal to a vault member, expiring it first when its window has closed.
func (s *ApprovalServiceImpl) GetProposal(ctx context.Context, id uuid.UUID, callerID string) (*domain.PendingApproval, error) {
	p, err := s.repos.Approvals.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get approval: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrNotFound("proposal")
	}
	if err := s.requirePermission(ctx, p.VaultID, callerID, domain.PermView); err != nil {
		return nil, err
	}
	if p.IsPending() && p.IsExpiredAt(s.now()) {
		expired, err := s.expire(ctx, id, s.now())
		if err != nil {
			return nil, err
		}
		if expired != nil {
			return expired, nil
		}
		return s.reload(ctx, id)
	}
	return p, nil
}

// ListProposals lists a wallet's proposals for a vault member.
func (s *ApprovalServiceImpl) ListProposals(ctx context.Context, callerID string, params ports.ApprovalListParams) ([]domain.PendingApproval, int64, error) {
	wallet, err := s.repos.Wallets.GetByID(ctx, params.WalletID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, 0, apperror.ErrNotFound("wallet")
	}
	if err := s.requirePermission(ctx, wallet.VaultID, callerID, domain.PermView); err != nil {
		return nil, 0, err
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown status %q", *params.Status))
	}
	params.Page, params.PageSize = ports.NormalizePage(params.Page, params.PageSize)
	list, total, err := s.repos.Approvals.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return list, total, nil
}

// Vote records one party's decision. Reaching the threshold moves the proposal
// to approved in the same transaction, after which execution is attempted.
// An execution failure is reported through the returned proposal's status.
func (s *ApprovalServiceImpl) Vote(ctx context.Context, req ports.VoteRequest) (*domain.PendingApproval, error) {
	var (
		approvedNow bool
		castVote    domain.Vote
		weight      int
	)
	p, err := withRetry(ctx, s.maxRetries, s.log, "vote", func() (*domain.PendingApproval, error) {
		approvedNow = false
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		p, err := s.lockOpenProposal(ctx, dbTx, req.ApprovalID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if p.IsExpiredAt(now) {
			if err := s.markExpired(ctx, dbTx, p, now); err != nil {
				return nil, err
			}
			if err := dbTx.Commit(ctx); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
			}
			s.notify(ctx, domain.ApprovalEvent(domain.EventApprovalExpired, p, req.UserID, now))
			return nil, apperror.ErrExpired()
		}

		wallet, err := s.repos.Wallets.GetByIDForUpdate(ctx, dbTx, p.WalletID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
		parties, err := s.repos.Parties.ListByWallet(ctx, wallet.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("list parties: %w", err))
		}
		party, err := resolveVoter(parties, req)
		if err != nil {
			return nil, err
		}
		if p.HasVoted(party.ID) {
			return nil, apperror.ErrAlreadyVoted()
		}

		castVote = domain.Vote{
			ID:         uuid.New(),
			ApprovalID: p.ID,
			PartyID:    party.ID,
			UserID:     party.UserID,
			Approved:   req.Approved,
			Weight:     party.Weight,
			CreatedAt:  now,
		}
		if err := s.repos.Approvals.AddVote(ctx, dbTx, &castVote); err != nil {
			if errors.Is(err, ports.ErrDuplicate) {
				return nil, apperror.ErrAlreadyVoted()
			}
			return nil, apperror.InternalError(fmt.Errorf("add vote: %w", err))
		}
		p.Votes = append(p.Votes, castVote)

		weight = p.ApprovalWeight(parties)
		if p.ThresholdMet(parties) {
			p.Status = domain.ApprovalStatusApproved
			p.ApprovedAt = &now
			approvedNow = true
		}
		p.UpdatedAt = now
		if err := s.repos.Approvals.Update(ctx, dbTx, p); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update approval: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	voted := domain.ApprovalEvent(domain.EventApprovalVoted, p, req.UserID, castVote.CreatedAt)
	voted.Detail = "reject"
	if castVote.Approved {
		voted.Detail = "approve"
	}
	s.notify(ctx, voted)
	s.log.Info().
		Str("approval_id", p.ID.String()).
		Str("party_id", castVote.PartyID.String()).
		Bool("approved", castVote.Approved).
		Int("weight", weight).
		Int("required", p.RequiredApprovals).
		Msg("vote recorded")

	if !approvedNow {
		return p, nil
	}
	s.notify(ctx, domain.ApprovalEvent(domain.EventApprovalApproved, p, req.UserID, *p.ApprovedAt))

	executed, err := s.Execute(ctx, p.ID)
	if err != nil {
		s.log.Error().Err(err).Str("approval_id", p.ID.String()).Msg("execution deferred to sweeper")
		return p, nil
	}
	return executed, nil
}

// resolveVoter finds the party the vote is cast for. An explicit party id must belong to the caller.
func resolveVoter(parties []domain.WalletParty, req ports.VoteRequest) (*domain.WalletParty, error) {
	if req.PartyID == nil {
		party := domain.FindActiveParty(parties, req.UserID)
		if party == nil {
			return nil, apperror.ErrPermission("caller is not an active party on this wallet")
		}
		return party, nil
	}
	for i := range parties {
		if parties[i].ID != *req.PartyID {
			continue
		}
		if parties[i].UserID != req.UserID {
			return nil, apperror.ErrPermission("party belongs to another user")
		}
		if !parties[i].IsActive {
			return nil, apperror.ErrPermission("party is no longer active")
		}
		return &parties[i], nil
	}
	return nil, apperror.ErrNotFound("party")
}

// Cancel rejects a pending proposal. Allowed for an active proposer and for members who manage wallets.
func (s *ApprovalServiceImpl) Cancel(ctx context.Context, id uuid.UUID, callerID, reason string) (*domain.PendingApproval, error) {
	p, err := withRetry(ctx, s.maxRetries, s.log, "cancel", func() (*domain.PendingApproval, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		p, err := s.repos.Approvals.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock approval: %w", err))
		}
		if p == nil {
			return nil, apperror.ErrNotFound("proposal")
		}
		// Proposers still need an active membership.
		perm := domain.PermManageWallets
		if p.ProposerID == callerID {
			perm = domain.PermView
		}
		if err := s.requirePermission(ctx, p.VaultID, callerID, perm); err != nil {
			return nil, err
		}
		if err := checkOpen(p); err != nil {
			return nil, err
		}

		now := s.now()
		if p.IsExpiredAt(now) {
			if err := s.markExpired(ctx, dbTx, p, now); err != nil {
				return nil, err
			}
			if err := dbTx.Commit(ctx); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
			}
			s.notify(ctx, domain.ApprovalEvent(domain.EventApprovalExpired, p, callerID, now))
			return nil, apperror.ErrExpired()
		}

		p.Status = domain.ApprovalStatusRejected
		p.RejectedReason = strings.TrimSpace(reason)
		if p.RejectedReason == "" {
			p.RejectedReason = "cancelled by " + callerID
		}
		p.UpdatedAt = now
		if err := s.repos.Approvals.Update(ctx, dbTx, p); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update approval: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.ApprovalEvent(domain.EventApprovalCancelled, p, callerID, p.UpdatedAt))
	s.log.Info().Str("approval_id", id.String()).Str("by", callerID).Msg("proposal cancelled")
	return p, nil
}

// Execute debits the vault for an approved proposal. Proposals in any other
// state are returned unchanged, which makes concurrent or repeated calls safe.
// A rejected debit moves the proposal to execution_failed; transient errors
// leave it approved for the sweeper.
func (s *ApprovalServiceImpl) Execute(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error) {
	var (
		failure  error
		executed bool
	)
	p, err := withRetry(ctx, s.maxRetries, s.log, "execute", func() (*domain.PendingApproval, error) {
		failure, executed = nil, false
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		p, err := s.repos.Approvals.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock approval: %w", err))
		}
		if p == nil {
			return nil, apperror.ErrNotFound("proposal")
		}
		if p.Status != domain.ApprovalStatusApproved {
			return p, nil
		}

		entry, err := s.ledger.WithdrawApproved(ctx, dbTx, ports.ApprovedWithdrawal{
			VaultID:     p.VaultID,
			ApprovalID:  p.ID,
			ProposerID:  p.ProposerID,
			Amount:      p.Amount,
			Currency:    p.Currency,
			Description: ledgerDescription(p),
		})
		if err != nil {
			if !isRetryable(err) && isBusinessFailure(err) {
				failure = err
				return p, nil
			}
			return nil, err
		}

		now := s.now()
		p.Status = domain.ApprovalStatusExecuted
		p.ExecutedAt = &now
		p.LedgerTransactionID = &entry.ID
		p.UpdatedAt = now
		if err := s.repos.Approvals.Update(ctx, dbTx, p); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update approval: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		executed = true
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return s.markExecutionFailed(ctx, id, failure)
	}
	if executed {
		event := domain.ApprovalEvent(domain.EventApprovalExecuted, p, p.ProposerID, *p.ExecutedAt)
		event.Detail = p.LedgerTransactionID.String()
		s.notify(ctx, event)
		s.log.Info().
			Str("approval_id", p.ID.String()).
			Str("ledger_tx_id", p.LedgerTransactionID.String()).
			Str("amount", p.Amount.String()).
			Msg("proposal executed")
	}
	return p, nil
}

func (s *ApprovalServiceImpl) markExecutionFailed(ctx context.Context, id uuid.UUID, cause error) (*domain.PendingApproval, error) {
	var changed bool
	p, err := withRetry(ctx, s.maxRetries, s.log, "execution_failed", func() (*domain.PendingApproval, error) {
		changed = false
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		p, err := s.repos.Approvals.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock approval: %w", err))
		}
		if p == nil {
			return nil, apperror.ErrNotFound("proposal")
		}
		if p.Status != domain.ApprovalStatusApproved {
			return p, nil
		}
		p.Status = domain.ApprovalStatusExecutionFailed
		p.FailureReason = failureReason(cause)
		p.UpdatedAt = s.now()
		if err := s.repos.Approvals.Update(ctx, dbTx, p); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update approval: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		changed = true
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		execErr := apperror.ErrExecution(cause)
		failed := domain.ApprovalEvent(domain.EventApprovalExecutionFailed, p, p.ProposerID, p.UpdatedAt)
		failed.Detail = execErr.Error()
		s.notify(ctx, failed)
		s.log.Warn().
			Err(execErr).
			Str("error_code", execErr.Code).
			Str("approval_id", p.ID.String()).
			Msg("approved proposal failed to execute")
	}
	return p, nil
}

func failureReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func ledgerDescription(p *domain.PendingApproval) string {
	desc := p.Description
	if p.Type == domain.ProposalTypeTransfer {
		if desc != "" {
			desc += " "
		}
		desc += "(transfer to " + p.Recipient + ")"
	}
	return desc
}

// Sweep expires overdue pending proposals and re-drives approved proposals
// whose execution did not complete within the grace period. It returns every
// proposal it moved to a terminal state.
func (s *ApprovalServiceImpl) Sweep(ctx context.Context, now time.Time) ([]domain.PendingApproval, error) {
	var transitioned []domain.PendingApproval

	expiredIDs, err := s.repos.Approvals.ListExpired(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list expired: %w", err))
	}
	for _, id := range expiredIDs {
		p, err := s.expire(ctx, id, now)
		if err != nil {
			s.log.Warn().Err(err).Str("approval_id", id.String()).Msg("failed to expire proposal")
			continue
		}
		if p != nil {
			transitioned = append(transitioned, *p)
		}
	}

	staleIDs, err := s.repos.Approvals.ListStaleApproved(ctx, now.Add(-s.cfg.ExecutionGrace), s.cfg.SweepBatchSize)
	if err != nil {
		return transitioned, apperror.InternalError(fmt.Errorf("list stale approved: %w", err))
	}
	for _, id := range staleIDs {
		p, err := s.Execute(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("approval_id", id.String()).Msg("failed to execute stale approval")
			continue
		}
		if p.Status.IsTerminal() {
			transitioned = append(transitioned, *p)
		}
	}

	if len(transitioned) > 0 {
		s.log.Info().Int("transitioned", len(transitioned)).Msg("approval sweep finished")
	}
	return transitioned, nil
}

// expire moves a pending proposal past its deadline to expired. It returns nil
// when the proposal was no longer pending or not yet due.
func (s *ApprovalServiceImpl) expire(ctx context.Context, id uuid.UUID, now time.Time) (*domain.PendingApproval, error) {
	p, err := withRetry(ctx, s.maxRetries, s.log, "expire", func() (*domain.PendingApproval, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		p, err := s.repos.Approvals.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock approval: %w", err))
		}
		if p == nil || !p.IsPending() || !p.IsExpiredAt(now) {
			return nil, nil
		}
		if err := s.markExpired(ctx, dbTx, p, now); err != nil {
			return nil, err
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return p, nil
	})
	if err != nil || p == nil {
		return nil, err
	}
	s.notify(ctx, domain.ApprovalEvent(domain.EventApprovalExpired, p, "", now))
	s.log.Info().Str("approval_id", id.String()).Msg("proposal expired")
	return p, nil
}

func (s *ApprovalServiceImpl) markExpired(ctx context.Context, tx pgx.Tx, p *domain.PendingApproval, now time.Time) error {
	p.Status = domain.ApprovalStatusExpired
	p.UpdatedAt = now
	if err := s.repos.Approvals.Update(ctx, tx, p); err != nil {
		return apperror.InternalError(fmt.Errorf("expire approval: %w", err))
	}
	return nil
}

// lockOpenProposal locks a proposal that still accepts votes.
func (s *ApprovalServiceImpl) lockOpenProposal(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PendingApproval, error) {
	p, err := s.repos.Approvals.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock approval: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrNotFound("proposal")
	}
	if err := checkOpen(p); err != nil {
		return nil, err
	}
	return p, nil
}

func checkOpen(p *domain.PendingApproval) error {
	if p.IsPending() {
		return nil
	}
	if p.Status == domain.ApprovalStatusExpired {
		return apperror.ErrExpired()
	}
	return apperror.ErrNotPending(string(p.Status))
}

// lockVaultAndWallet takes the vault lock, then the wallet lock.
func (s *ApprovalServiceImpl) lockVaultAndWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.repos.Wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	vault, err := s.repos.Vaults.GetByIDForUpdate(ctx, tx, w.VaultID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
	}
	if vault == nil || !vault.IsActive() {
		return nil, apperror.ErrNotFound("vault")
	}
	wallet, err := s.repos.Wallets.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

func (s *ApprovalServiceImpl) requirePermission(ctx context.Context, vaultID uuid.UUID, userID string, perm domain.Permission) error {
	m, err := s.repos.Members.Get(ctx, vaultID, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get member: %w", err))
	}
	if m == nil || !m.Can(perm) {
		return apperror.ErrPermission(fmt.Sprintf("caller lacks %s permission", perm))
	}
	return nil
}

func (s *ApprovalServiceImpl) requireActiveMember(ctx context.Context, vaultID uuid.UUID, userID string) error {
	m, err := s.repos.Members.Get(ctx, vaultID, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get member: %w", err))
	}
	if m == nil || !m.IsActive() {
		return apperror.Validation(fmt.Sprintf("user %s is not an active member of the vault", userID))
	}
	return nil
}

func (s *ApprovalServiceImpl) reload(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error) {
	p, err := s.repos.Approvals.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get approval: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrNotFound("proposal")
	}
	return p, nil
}

func (s *ApprovalServiceImpl) notify(ctx context.Context, event domain.Event) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, event)
	}
}

func (s *ApprovalServiceImpl) notifyParty(ctx context.Context, t domain.EventType, actorID string, party *domain.WalletParty) {
	w, err := s.repos.Wallets.GetByID(ctx, party.WalletID)
	if err != nil || w == nil {
		return
	}
	event := domain.NewEvent(t, w.VaultID, actorID, party.UpdatedAt)
	walletID := w.ID
	event.WalletID = &walletID
	event.Detail = party.UserID
	s.notify(ctx, event)
}
