package service

import (
	"context"
	"fmt"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	ledger  ports.LedgerRepository
	members ports.MemberRepository
	now     func() time.Time
}

// NewReportingService creates a new reporting service.
func NewReportingService(ledger ports.LedgerRepository, members ports.MemberRepository) ports.ReportingService {
	return &reportingService{
		ledger:  ledger,
		members: members,
		now:     time.Now,
	}
}

// GetStats returns aggregated ledger stats for a vault over a period.
func (s *reportingService) GetStats(ctx context.Context, vaultID uuid.UUID, callerID string, period string) (*ports.VaultStats, error) {
	var since *time.Time

	switch period {
	case "day":
		t := s.now().AddDate(0, 0, -1)
		since = &t
	case "week":
		t := s.now().AddDate(0, 0, -7)
		since = &t
	case "month":
		t := s.now().AddDate(0, -1, 0)
		since = &t
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	if err := s.requireView(ctx, vaultID, callerID); err != nil {
		return nil, err
	}

	stats, err := s.ledger.GetStats(ctx, vaultID, since)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return stats, nil
}

// ListTransactions returns a paginated slice of a vault's ledger.
func (s *reportingService) ListTransactions(ctx context.Context, callerID string, params ports.TransactionListParams) ([]domain.VaultTransaction, int64, error) {
	if err := s.requireView(ctx, params.VaultID, callerID); err != nil {
		return nil, 0, err
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, 0, apperror.Validation("to must not be before from")
	}
	params.Page, params.PageSize = ports.NormalizePage(params.Page, params.PageSize)

	txns, total, err := s.ledger.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

func (s *reportingService) requireView(ctx context.Context, vaultID uuid.UUID, callerID string) error {
	m, err := s.members.Get(ctx, vaultID, callerID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get member: %w", err))
	}
	if m == nil || !m.Can(domain.PermView) {
		return apperror.ErrPermission("caller is not a member of this vault")
	}
	return nil
}
