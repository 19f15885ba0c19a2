package service

import (
	"context"
	"fmt"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Membership operations. Every write takes the vault row lock first, which
// serializes member changes of one vault.

// InviteMember creates an invited membership. A previously removed row is reused.
func (s *VaultServiceImpl) InviteMember(ctx context.Context, req ports.InviteMemberRequest) (*domain.VaultMember, error) {
	if req.UserID == "" {
		return nil, apperror.Validation("user_id is required")
	}
	if !req.Role.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown role %q", req.Role))
	}
	if req.Role == domain.RoleOwner {
		return nil, apperror.Validation("owner role can only be granted by ownership transfer")
	}
	if err := validateLimits(req.ContributionLimit, req.WithdrawalLimit); err != nil {
		return nil, err
	}

	member, err := withRetry(ctx, s.cfg.MaxRetries, s.log, "invite_member", func() (*domain.VaultMember, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		vault, err := s.lockActiveVault(ctx, dbTx, req.VaultID)
		if err != nil {
			return nil, err
		}
		caller, err := s.memberFor(ctx, req.VaultID, req.CallerID)
		if err != nil {
			return nil, err
		}
		if caller == nil || !caller.Can(domain.PermInvite) {
			return nil, apperror.ErrPermission("caller cannot invite members")
		}
		if req.Role == domain.RoleAdmin && caller.Role != domain.RoleOwner {
			return nil, apperror.ErrPermission("only the owner can grant the admin role")
		}

		existing, err := s.memberFor(ctx, req.VaultID, req.UserID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status != domain.MemberStatusRemoved {
			return nil, apperror.ErrDuplicateMember(fmt.Sprintf("user %s is already %s in this vault", req.UserID, existing.Status))
		}

		contribution, withdrawal := req.ContributionLimit, req.WithdrawalLimit
		if contribution == nil {
			contribution = vault.Rules.DefaultContributionLimit
		}
		if withdrawal == nil {
			withdrawal = vault.Rules.DefaultWithdrawalLimit
		}

		now := s.now()
		if existing != nil {
			existing.Role = req.Role
			existing.Status = domain.MemberStatusInvited
			existing.ContributionLimit = contribution
			existing.WithdrawalLimit = withdrawal
			existing.InvitedBy = req.CallerID
			existing.JoinedAt = nil
			existing.UpdatedAt = now
			if err := s.repos.Members.Update(ctx, dbTx, existing); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("update member: %w", err))
			}
		} else {
			existing = &domain.VaultMember{
				ID:                uuid.New(),
				VaultID:           req.VaultID,
				UserID:            req.UserID,
				Role:              req.Role,
				Status:            domain.MemberStatusInvited,
				ContributionLimit: contribution,
				WithdrawalLimit:   withdrawal,
				InvitedBy:         req.CallerID,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := s.repos.Members.Create(ctx, dbTx, existing); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("create member: %w", err))
			}
		}

		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return existing, nil
	})
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventMemberInvited, req.VaultID, req.CallerID, member.UpdatedAt)
	event.Detail = member.UserID
	s.notify(ctx, event)
	s.log.Info().
		Str("vault_id", req.VaultID.String()).
		Str("user_id", member.UserID).
		Str("role", string(member.Role)).
		Msg("member invited")

	return member, nil
}

// AcceptInvitation activates the caller's pending invitation.
func (s *VaultServiceImpl) AcceptInvitation(ctx context.Context, vaultID uuid.UUID, callerID string) (*domain.VaultMember, error) {
	member, err := withRetry(ctx, s.cfg.MaxRetries, s.log, "accept_invitation", func() (*domain.VaultMember, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		if _, err := s.lockActiveVault(ctx, dbTx, vaultID); err != nil {
			return nil, err
		}
		member, err := s.memberFor(ctx, vaultID, callerID)
		if err != nil {
			return nil, err
		}
		if member == nil || member.Status == domain.MemberStatusRemoved {
			return nil, apperror.ErrNotFound("invitation")
		}
		if member.IsActive() {
			return nil, apperror.ErrDuplicateMember("caller is already an active member")
		}

		now := s.now()
		member.Status = domain.MemberStatusActive
		member.JoinedAt = &now
		member.UpdatedAt = now
		if err := s.repos.Members.Update(ctx, dbTx, member); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update member: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return member, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.NewEvent(domain.EventMemberJoined, vaultID, callerID, *member.JoinedAt))
	s.log.Info().Str("vault_id", vaultID.String()).Str("user_id", callerID).Msg("invitation accepted")
	return member, nil
}

// ChangeMemberRole changes a member's role. Granting owner transfers ownership:
// the caller is demoted to admin and the vault owner id moves in the same
// transaction. The owner itself can never be demoted directly.
func (s *VaultServiceImpl) ChangeMemberRole(ctx context.Context, req ports.ChangeRoleRequest) (*domain.VaultMember, error) {
	if !req.Role.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown role %q", req.Role))
	}

	var changed bool
	target, err := withRetry(ctx, s.cfg.MaxRetries, s.log, "change_role", func() (*domain.VaultMember, error) {
		changed = false
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		vault, err := s.lockActiveVault(ctx, dbTx, req.VaultID)
		if err != nil {
			return nil, err
		}
		caller, target, err := s.callerAndTarget(ctx, req.VaultID, req.CallerID, req.UserID)
		if err != nil {
			return nil, err
		}
		if !caller.Can(domain.PermManageMembers) {
			return nil, apperror.ErrPermission("caller cannot manage members")
		}
		if target.Role == req.Role {
			return target, nil
		}

		now := s.now()
		switch {
		case req.Role == domain.RoleOwner:
			if err := s.transferOwnership(ctx, dbTx, vault, caller, target, now); err != nil {
				return nil, err
			}
		case target.Role == domain.RoleOwner:
			return nil, apperror.ErrInvariantViolation("a vault must keep exactly one owner; transfer ownership first")
		default:
			if (target.Role == domain.RoleAdmin || req.Role == domain.RoleAdmin) && caller.Role != domain.RoleOwner {
				return nil, apperror.ErrPermission("only the owner can grant or revoke the admin role")
			}
			target.Role = req.Role
			target.UpdatedAt = now
			if err := s.repos.Members.Update(ctx, dbTx, target); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("update member: %w", err))
			}
		}

		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		changed = true
		return target, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return target, nil
	}

	event := domain.NewEvent(domain.EventMemberRoleChanged, req.VaultID, req.CallerID, target.UpdatedAt)
	event.Detail = fmt.Sprintf("%s:%s", target.UserID, target.Role)
	s.notify(ctx, event)
	s.log.Info().
		Str("vault_id", req.VaultID.String()).
		Str("user_id", target.UserID).
		Str("role", string(target.Role)).
		Msg("member role changed")

	return target, nil
}

// transferOwnership demotes the current owner before promoting the target so
// that no intermediate write ever holds two owners.
func (s *VaultServiceImpl) transferOwnership(ctx context.Context, tx pgx.Tx, vault *domain.Vault, caller, target *domain.VaultMember, now time.Time) error {
	if caller.Role != domain.RoleOwner {
		return apperror.ErrPermission("only the owner can transfer ownership")
	}
	if !target.IsActive() {
		return apperror.ErrInvariantViolation("ownership can only be transferred to an active member")
	}

	caller.Role = domain.RoleAdmin
	caller.UpdatedAt = now
	if err := s.repos.Members.Update(ctx, tx, caller); err != nil {
		return apperror.InternalError(fmt.Errorf("demote owner: %w", err))
	}
	target.Role = domain.RoleOwner
	target.UpdatedAt = now
	if err := s.repos.Members.Update(ctx, tx, target); err != nil {
		return apperror.InternalError(fmt.Errorf("promote owner: %w", err))
	}
	vault.OwnerID = target.UserID
	vault.UpdatedAt = now
	if err := s.repos.Vaults.Update(ctx, tx, vault); err != nil {
		return apperror.InternalError(fmt.Errorf("update vault owner: %w", err))
	}
	return nil
}

// UpdateMemberLimits replaces a member's per-operation caps.
func (s *VaultServiceImpl) UpdateMemberLimits(ctx context.Context, req ports.UpdateLimitsRequest) (*domain.VaultMember, error) {
	if err := validateLimits(req.ContributionLimit, req.WithdrawalLimit); err != nil {
		return nil, err
	}

	target, err := withRetry(ctx, s.cfg.MaxRetries, s.log, "update_limits", func() (*domain.VaultMember, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		if _, err := s.lockActiveVault(ctx, dbTx, req.VaultID); err != nil {
			return nil, err
		}
		caller, target, err := s.callerAndTarget(ctx, req.VaultID, req.CallerID, req.UserID)
		if err != nil {
			return nil, err
		}
		if !caller.Can(domain.PermManageMembers) {
			return nil, apperror.ErrPermission("caller cannot manage members")
		}
		if target.UserID != caller.UserID && target.Role != domain.RoleMember && target.Role != domain.RoleBackup && caller.Role != domain.RoleOwner {
			return nil, apperror.ErrPermission("only the owner can change limits of an owner or admin")
		}

		target.ContributionLimit = req.ContributionLimit
		target.WithdrawalLimit = req.WithdrawalLimit
		target.UpdatedAt = s.now()
		if err := s.repos.Members.Update(ctx, dbTx, target); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update member: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return target, nil
	})
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventMemberLimitsUpdated, req.VaultID, req.CallerID, target.UpdatedAt)
	event.Detail = target.UserID
	s.notify(ctx, event)
	s.log.Info().Str("vault_id", req.VaultID.String()).Str("user_id", target.UserID).Msg("member limits updated")
	return target, nil
}

// RemoveMember marks a member removed, deactivates its wallet parties and
// rejects the pending proposals it made.
// Members may always remove themselves. The owner can never be removed.
func (s *VaultServiceImpl) RemoveMember(ctx context.Context, vaultID uuid.UUID, callerID, targetUserID string) error {
	_, err := withRetry(ctx, s.cfg.MaxRetries, s.log, "remove_member", func() (struct{}, error) {
		dbTx, err := s.repos.Transactor.Begin(ctx)
		if err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		if _, err := s.lockActiveVault(ctx, dbTx, vaultID); err != nil {
			return struct{}{}, err
		}
		self := callerID == targetUserID
		caller, err := s.memberFor(ctx, vaultID, callerID)
		if err != nil {
			return struct{}{}, err
		}
		if !self && (caller == nil || !caller.Can(domain.PermManageMembers)) {
			return struct{}{}, apperror.ErrPermission("caller cannot manage members")
		}
		target, err := s.memberFor(ctx, vaultID, targetUserID)
		if err != nil {
			return struct{}{}, err
		}
		if target == nil || target.Status == domain.MemberStatusRemoved {
			return struct{}{}, apperror.ErrNotFound("member")
		}
		if target.Role == domain.RoleOwner {
			return struct{}{}, apperror.ErrInvariantViolation("the owner cannot be removed; transfer ownership first")
		}
		if !self && target.Role == domain.RoleAdmin && caller.Role != domain.RoleOwner {
			return struct{}{}, apperror.ErrPermission("only the owner can remove an admin")
		}

		now := s.now()
		target.Status = domain.MemberStatusRemoved
		target.UpdatedAt = now
		if err := s.repos.Members.Update(ctx, dbTx, target); err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("update member: %w", err))
		}
		unreachable, err := deactivatePartiesOf(ctx, s.repos, dbTx, vaultID, targetUserID, now)
		if err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("deactivate parties: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return struct{}{}, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		for _, walletID := range unreachable {
			s.log.Warn().
				Str("vault_id", vaultID.String()).
				Str("wallet_id", walletID.String()).
				Msg("wallet threshold unreachable after member removal")
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	event := domain.NewEvent(domain.EventMemberRemoved, vaultID, callerID, s.now())
	event.Detail = targetUserID
	s.notify(ctx, event)
	s.rejectPendingProposals(ctx, vaultID, callerID, targetUserID, "proposer removed from vault")
	s.log.Info().Str("vault_id", vaultID.String()).Str("user_id", targetUserID).Msg("member removed")
	return nil
}

func (s *VaultServiceImpl) memberFor(ctx context.Context, vaultID uuid.UUID, userID string) (*domain.VaultMember, error) {
	m, err := s.repos.Members.Get(ctx, vaultID, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get member: %w", err))
	}
	return m, nil
}

// callerAndTarget loads an active caller and a non-removed target.
func (s *VaultServiceImpl) callerAndTarget(ctx context.Context, vaultID uuid.UUID, callerID, targetID string) (*domain.VaultMember, *domain.VaultMember, error) {
	caller, err := s.memberFor(ctx, vaultID, callerID)
	if err != nil {
		return nil, nil, err
	}
	if caller == nil || !caller.IsActive() {
		return nil, nil, apperror.ErrPermission("caller is not an active member")
	}
	if callerID == targetID {
		return caller, caller, nil
	}
	target, err := s.memberFor(ctx, vaultID, targetID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil || target.Status == domain.MemberStatusRemoved {
		return nil, nil, apperror.ErrNotFound("member")
	}
	return caller, target, nil
}
