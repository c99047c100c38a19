package domain

import "time"

// Settlement period constants. Each maps onto a postgres date_trunc field.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// SettlementBucket is one aggregation bucket in a vendor revenue series,
// computed from line-item snapshots so historical buckets never change.
type SettlementBucket struct {
	PeriodStart  time.Time `json:"period_start"`
	VendorID     string    `json:"vendor_id"`
	GrossRevenue int64     `json:"gross_revenue"`
	Commission   int64     `json:"commission"`
	NetRevenue   int64     `json:"net_revenue"`
	OrderCount   int       `json:"order_count"`
}

// ValidPeriod reports whether the given settlement period is recognized.
func ValidPeriod(period string) bool {
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// TruncField returns the postgres date_trunc field name for the period.
// Callers must validate the period first; unknown periods fall back to day.
func TruncField(period string) string {
	switch period {
	case PeriodWeekly:
		return "week"
	case PeriodMonthly:
		return "month"
	case PeriodYearly:
		return "year"
	default:
		return "day"
	}
}
