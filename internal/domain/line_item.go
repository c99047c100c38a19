package domain

// Fulfillment sub-status constants. Each line item is fulfilled independently
// by its vendor.
const (
	FulfillmentPending    = "pending"
	FulfillmentProcessing = "processing"
	FulfillmentShipped    = "shipped"
	FulfillmentDelivered  = "delivered"
	FulfillmentCancelled  = "cancelled"
	FulfillmentReturned   = "returned"
)

// LineItem represents a single vendor-owned line in an order. Name, vendor,
// unit price, and commission rate are snapshots taken at placement and are
// immutable afterwards: later catalog or rate changes never affect them.
type LineItem struct {
	ID                string `json:"id"`
	OrderID           string `json:"order_id"`
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id"`
	VendorID          string `json:"vendor_id"`
	Name              string `json:"name"`
	SKU               string `json:"sku"`
	UnitPrice         int64  `json:"unit_price"`
	CommissionRateBps int    `json:"commission_rate_bps"`
	Quantity          int    `json:"quantity"`
	FulfillmentStatus string `json:"fulfillment_status"`
	TrackingNumber    string `json:"tracking_number,omitempty"`
	Carrier           string `json:"carrier,omitempty"`
	FulfillmentNotes  string `json:"fulfillment_notes,omitempty"`
}

// AllowedFulfillmentTransitions defines which sub-status transitions are valid.
func AllowedFulfillmentTransitions() map[string][]string {
	return map[string][]string{
		FulfillmentPending:    {FulfillmentProcessing, FulfillmentShipped, FulfillmentCancelled},
		FulfillmentProcessing: {FulfillmentShipped, FulfillmentCancelled},
		FulfillmentShipped:    {FulfillmentDelivered, FulfillmentReturned},
		FulfillmentDelivered:  {},
		FulfillmentCancelled:  {},
		FulfillmentReturned:   {},
	}
}

// CanTransitionTo checks if the line item can move to the target sub-status.
func (i *LineItem) CanTransitionTo(target string) bool {
	allowed, ok := AllowedFulfillmentTransitions()[i.FulfillmentStatus]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminalFulfillment reports whether the line item is in a final sub-status.
func (i *LineItem) IsTerminalFulfillment() bool {
	switch i.FulfillmentStatus {
	case FulfillmentDelivered, FulfillmentCancelled, FulfillmentReturned:
		return true
	}
	return false
}

// IsValidFulfillmentStatus checks if a sub-status string is valid.
func IsValidFulfillmentStatus(status string) bool {
	_, ok := AllowedFulfillmentTransitions()[status]
	return ok
}

// LineTotal returns the gross amount for this line (in cents).
func (i *LineItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// NetAmount returns the vendor's share of this line after commission, using
// the rate snapshotted at placement:
//
//	net = unitPrice * quantity * (10000 - rateBps) / 10000
func (i *LineItem) NetAmount() int64 {
	return i.LineTotal() * int64(MaxCommissionRateBps-i.CommissionRateBps) / int64(MaxCommissionRateBps)
}

// CommissionAmount returns the marketplace's share of this line. Defined as
// the complement of NetAmount so the two always sum to LineTotal exactly.
func (i *LineItem) CommissionAmount() int64 {
	return i.LineTotal() - i.NetAmount()
}
