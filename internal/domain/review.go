package domain

import "time"

// Review represents a verified-purchase product review. OrderID links the
// review to the delivered line item that entitled the customer to write it.
type Review struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	CustomerID string    `json:"customer_id"`
	OrderID    string    `json:"order_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
