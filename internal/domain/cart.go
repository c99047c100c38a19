package domain

import "time"

// Cart represents a shopping cart. The cart is a working document: cached
// prices are display-only and orders are always re-priced from the live
// catalog at placement.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// CartItem represents a single item in the cart, keyed by (product, variant).
type CartItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	VendorID  string `json:"vendor_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// NormalizeVariantID maps an absent variant selection onto the default
// variant key so (product, variant) stays a total identity for cart lines.
func NormalizeVariantID(variantID string) string {
	if variantID == "" {
		return DefaultVariantID
	}
	return variantID
}

// TotalAmount calculates the total price of all items in the cart (in cents),
// always recomputed from the lines.
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the cart item matching the given product
// and variant IDs. Returns -1 if not found.
func (c *Cart) FindItemIndex(productID, variantID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}
