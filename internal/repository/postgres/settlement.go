package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/pkg/database"
)

// SettlementRepository implements repository.SettlementRepository using
// PostgreSQL. All figures are computed from the commission rate and price
// snapshots on order_line_items, so a bucket's numbers never change after
// the fact.
type SettlementRepository struct {
	pool database.DBTX
}

// NewSettlementRepository creates a new PostgreSQL-backed settlement repository.
func NewSettlementRepository(pool database.DBTX) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

// VendorSeries returns per-period revenue buckets for a vendor, or across all
// vendors when vendorID is empty. Cancelled and returned items are excluded.
func (r *SettlementRepository) VendorSeries(ctx context.Context, vendorID, period string, from, to time.Time) ([]domain.SettlementBucket, error) {
	// date_trunc's field argument cannot be a bind parameter; TruncField
	// maps the validated period onto a fixed identifier.
	query := fmt.Sprintf(`
		SELECT date_trunc('%s', o.created_at) AS period_start,
		       COALESCE(li.vendor_id, '') AS vendor_id,
		       COALESCE(SUM(li.unit_price * li.quantity), 0) AS gross_revenue,
		       COALESCE(SUM(li.unit_price * li.quantity
		           - (li.unit_price * li.quantity * (10000 - li.commission_rate_bps) / 10000)), 0) AS commission,
		       COALESCE(SUM(li.unit_price * li.quantity * (10000 - li.commission_rate_bps) / 10000), 0) AS net_revenue,
		       COUNT(DISTINCT o.id) AS order_count
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE ($1 = '' OR li.vendor_id = $1)
		  AND o.created_at >= $2 AND o.created_at < $3
		  AND li.fulfillment_status NOT IN ($4, $5)
		GROUP BY period_start, li.vendor_id
		ORDER BY period_start`, domain.TruncField(period))

	rows, err := r.pool.Query(ctx, query, vendorID, from, to,
		domain.FulfillmentCancelled, domain.FulfillmentReturned)
	if err != nil {
		return nil, fmt.Errorf("query settlement series: %w", err)
	}
	defer rows.Close()

	buckets := make([]domain.SettlementBucket, 0)
	for rows.Next() {
		var b domain.SettlementBucket
		if err := rows.Scan(
			&b.PeriodStart,
			&b.VendorID,
			&b.GrossRevenue,
			&b.Commission,
			&b.NetRevenue,
			&b.OrderCount,
		); err != nil {
			return nil, fmt.Errorf("scan settlement bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement rows: %w", err)
	}

	return buckets, nil
}
