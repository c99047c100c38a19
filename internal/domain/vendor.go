package domain

import "time"

// Commission rates are expressed in basis points (1/100th of a percent) so
// settlement arithmetic stays exact: 1000 bps = 10%.
const (
	MaxCommissionRateBps     = 10000
	DefaultCommissionRateBps = 1000
)

// Vendor represents a selling tenant on the marketplace.
type Vendor struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	CommissionRateBps int       `json:"commission_rate_bps"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ValidCommissionRate reports whether the given basis-point rate is in range.
func ValidCommissionRate(bps int) bool {
	return bps >= 0 && bps <= MaxCommissionRateBps
}
