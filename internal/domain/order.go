package domain

import "time"

// Order status constants. The order-level status is always derived from the
// line-item fulfillment sub-statuses, except for the admin-set terminal
// states cancelled and refunded.
const (
	OrderStatusPending            = "pending"
	OrderStatusProcessing         = "processing"
	OrderStatusShipped            = "shipped"
	OrderStatusPartiallyFulfilled = "partially_fulfilled"
	OrderStatusDelivered          = "delivered"
	OrderStatusCancelled          = "cancelled"
	OrderStatusReturned           = "returned"
	OrderStatusRefunded           = "refunded"
)

// Payment status constants.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Order represents a customer order spanning one or more vendors.
type Order struct {
	ID                string     `json:"id"`
	CustomerID        string     `json:"customer_id"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"payment_status"`
	Items             []LineItem `json:"items"`
	SubtotalAmount    int64      `json:"subtotal_amount"`
	ShippingAmount    int64      `json:"shipping_amount"`
	TaxAmount         int64      `json:"tax_amount"`
	TotalAmount       int64      `json:"total_amount"`
	Currency          string     `json:"currency"`
	ShippingAddressID string     `json:"shipping_address_id"`
	BillingAddressID  string     `json:"billing_address_id"`
	PaymentMethod     string     `json:"payment_method"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ValidOrderStatuses returns all valid order statuses.
func ValidOrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusPartiallyFulfilled,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusReturned,
		OrderStatusRefunded,
	}
}

// IsTerminal reports whether the order has reached a final state: either an
// admin-set terminal status or every line item in a terminal sub-status.
func (o *Order) IsTerminal() bool {
	if o.Status == OrderStatusCancelled || o.Status == OrderStatusRefunded {
		return true
	}
	if len(o.Items) == 0 {
		return false
	}
	for i := range o.Items {
		if !o.Items[i].IsTerminalFulfillment() {
			return false
		}
	}
	return true
}

// AggregateStatus derives the order-level status from the line-item
// fulfillment sub-statuses. It is a total function over every combination:
//
//   - all items in the same sub-status: that status
//   - a mix that includes any terminal item: partially_fulfilled
//   - a mix of only non-terminal items: processing
func AggregateStatus(items []LineItem) string {
	if len(items) == 0 {
		return OrderStatusPending
	}

	uniform := true
	anyTerminal := false
	first := items[0].FulfillmentStatus
	for i := range items {
		if items[i].FulfillmentStatus != first {
			uniform = false
		}
		if items[i].IsTerminalFulfillment() {
			anyTerminal = true
		}
	}

	if uniform {
		return first
	}
	if anyTerminal {
		return OrderStatusPartiallyFulfilled
	}
	return OrderStatusProcessing
}
