package domain

import "time"

// Product moderation status constants.
const (
	ProductStatusDraft    = "draft"
	ProductStatusPending  = "pending"
	ProductStatusApproved = "approved"
	ProductStatusRejected = "rejected"
)

// DefaultVariantID is the variant key used when a product has no explicit variants.
const DefaultVariantID = "default"

// Product represents a vendor listing that must pass moderation before it is
// sellable.
type Product struct {
	ID          string           `json:"id"`
	VendorID    string           `json:"vendor_id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Price       int64            `json:"price"`
	Currency    string           `json:"currency"`
	Status      string           `json:"status"`
	IsActive    bool             `json:"is_active"`
	ReviewedBy  string           `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
	ReviewNotes string           `json:"review_notes,omitempty"`
	Variants    []ProductVariant `json:"variants,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProductVariant represents a purchasable variation of a product. Price of 0
// means the variant inherits the product's base price.
type ProductVariant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"`
	Inventory int    `json:"inventory"`
}

// ValidProductStatuses returns all valid moderation statuses.
func ValidProductStatuses() []string {
	return []string{
		ProductStatusDraft,
		ProductStatusPending,
		ProductStatusApproved,
		ProductStatusRejected,
	}
}

// IsDecided reports whether moderation has already reached a decision.
func (p *Product) IsDecided() bool {
	return p.Status == ProductStatusApproved || p.Status == ProductStatusRejected
}

// CanSubmit reports whether the product may be submitted for review.
// Only drafts and rejected products can be (re)submitted.
func (p *Product) CanSubmit() bool {
	return p.Status == ProductStatusDraft || p.Status == ProductStatusRejected
}

// MissingRequiredFields returns the names of required listing fields that are
// absent, blocking submission for review.
func (p *Product) MissingRequiredFields() []string {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Description == "" {
		missing = append(missing, "description")
	}
	if p.Price <= 0 {
		missing = append(missing, "price")
	}
	return missing
}

// Variant returns the variant with the given ID, or nil if not present.
func (p *Product) Variant(variantID string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// UnitPrice returns the effective price for the given variant: the variant
// override when set, otherwise the product's base price.
func (p *Product) UnitPrice(v *ProductVariant) int64 {
	if v != nil && v.Price > 0 {
		return v.Price
	}
	return p.Price
}

// IsPurchasable reports whether a product can be bought right now: approved by
// moderation, active, and listed by an active vendor. Computed at query time,
// never stored.
func IsPurchasable(p *Product, v *Vendor) bool {
	if p == nil || v == nil {
		return false
	}
	return p.Status == ProductStatusApproved && p.IsActive && v.IsActive
}
