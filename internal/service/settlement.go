package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

// SettlementService produces read-only revenue series from the price and
// commission snapshots on historical order line items.
type SettlementService struct {
	settlements repository.SettlementRepository
	logger      *slog.Logger
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(settlements repository.SettlementRepository, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		settlements: settlements,
		logger:      logger,
	}
}

// VendorSettlement returns per-period revenue buckets for a vendor. Vendors
// may only query themselves; admins may query any vendor, or pass an empty
// vendorID for a marketplace-wide series. Because every bucket is computed
// from placement-time snapshots, re-running a query over a past period
// always yields the same numbers, regardless of later rate changes.
func (s *SettlementService) VendorSettlement(ctx context.Context, principal domain.Principal, vendorID, period string, from, to time.Time) ([]domain.SettlementBucket, error) {
	if !domain.ValidPeriod(period) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("period must be one of: %s, %s, %s, %s",
			domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly, domain.PeriodYearly))
	}
	if !to.After(from) {
		return nil, apperrors.InvalidInput("to must be after from")
	}

	switch {
	case principal.IsAdmin():
		// Any vendor, or all of them.
	case principal.IsVendor():
		if vendorID != "" && vendorID != principal.UserID {
			s.logger.WarnContext(ctx, "access denied",
				slog.String("user_id", principal.UserID),
				slog.String("role", principal.Role),
				slog.String("requested_vendor_id", vendorID),
				slog.String("reason", "vendor queried another vendor's settlement"),
			)
			return nil, apperrors.AccessDenied("vendors can only query their own settlement")
		}
		vendorID = principal.UserID
	default:
		s.logger.WarnContext(ctx, "access denied",
			slog.String("user_id", principal.UserID),
			slog.String("role", principal.Role),
			slog.String("reason", "settlement requires vendor or admin role"),
		)
		return nil, apperrors.AccessDenied("settlement requires vendor or admin role")
	}

	buckets, err := s.settlements.VendorSeries(ctx, vendorID, period, from, to)
	if err != nil {
		return nil, fmt.Errorf("query vendor settlement: %w", err)
	}

	return buckets, nil
}
