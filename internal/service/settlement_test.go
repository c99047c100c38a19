package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

func settlementWindow() (time.Time, time.Time) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func TestVendorSettlement_InvalidPeriod(t *testing.T) {
	svc := NewSettlementService(new(mockSettlementRepository), newTestLogger())
	from, to := settlementWindow()

	_, err := svc.VendorSettlement(context.Background(), adminPrincipal, "", "hourly", from, to)

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "daily")
}

func TestVendorSettlement_InvalidRange(t *testing.T) {
	svc := NewSettlementService(new(mockSettlementRepository), newTestLogger())
	from, _ := settlementWindow()

	_, err := svc.VendorSettlement(context.Background(), adminPrincipal, "", domain.PeriodDaily, from, from)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestVendorSettlement_VendorForcedToOwnScope(t *testing.T) {
	settlements := new(mockSettlementRepository)
	svc := NewSettlementService(settlements, newTestLogger())
	ctx := context.Background()
	from, to := settlementWindow()

	// Empty vendor_id resolves to the caller's own vendor ID.
	settlements.On("VendorSeries", ctx, "vendor-1", domain.PeriodMonthly, from, to).
		Return([]domain.SettlementBucket{{VendorID: "vendor-1", GrossRevenue: 10000}}, nil)

	buckets, err := svc.VendorSettlement(ctx, vendorPrincipal("vendor-1"), "", domain.PeriodMonthly, from, to)

	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "vendor-1", buckets[0].VendorID)
	settlements.AssertExpectations(t)
}

func TestVendorSettlement_VendorCannotQueryOthers(t *testing.T) {
	settlements := new(mockSettlementRepository)
	svc := NewSettlementService(settlements, newTestLogger())
	from, to := settlementWindow()

	_, err := svc.VendorSettlement(context.Background(), vendorPrincipal("vendor-1"), "vendor-2", domain.PeriodDaily, from, to)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	settlements.AssertNotCalled(t, "VendorSeries", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVendorSettlement_CustomerDenied(t *testing.T) {
	svc := NewSettlementService(new(mockSettlementRepository), newTestLogger())
	from, to := settlementWindow()

	_, err := svc.VendorSettlement(context.Background(), customerPrincipal, "", domain.PeriodDaily, from, to)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestVendorSettlement_AdminMarketplaceWide(t *testing.T) {
	settlements := new(mockSettlementRepository)
	svc := NewSettlementService(settlements, newTestLogger())
	ctx := context.Background()
	from, to := settlementWindow()

	settlements.On("VendorSeries", ctx, "", domain.PeriodWeekly, from, to).
		Return([]domain.SettlementBucket{}, nil)

	_, err := svc.VendorSettlement(ctx, adminPrincipal, "", domain.PeriodWeekly, from, to)

	require.NoError(t, err)
	settlements.AssertExpectations(t)
}
