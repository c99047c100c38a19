package repository

import (
	"context"
	"time"

	"github.com/utafrali/MarketplaceGo/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	VendorID        *string
	Status          *string
	PurchasableOnly bool
	Page            int
	PerPage         int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product and its variants atomically.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its identifier, including variants.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Update persists listing field changes (name, description, price).
	Update(ctx context.Context, product *domain.Product) error

	// UpdateStatus moves the product to the given moderation status,
	// recording the decision metadata when one was made.
	UpdateStatus(ctx context.Context, id, status, reviewedBy, notes string, reviewedAt *time.Time) error

	// SetActive flips the vendor-controlled active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// List returns products matching the filter along with the total count.
	// PurchasableOnly restricts results to approved, active products from
	// active vendors, evaluated in the query.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
}

// VendorRepository defines the interface for vendor persistence operations.
type VendorRepository interface {
	Create(ctx context.Context, vendor *domain.Vendor) error
	GetByID(ctx context.Context, id string) (*domain.Vendor, error)
	UpdateCommissionRate(ctx context.Context, id string, rateBps int) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, page, perPage int) ([]domain.Vendor, int, error)
}

// CartRepository defines the interface for cart persistence operations.
type CartRepository interface {
	// Get retrieves the cart for a user. Returns ErrNotFound if absent.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists the cart unconditionally.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists the cart only if the stored version still
	// matches expectedVersion. Returns ErrConflict when another writer won.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) error

	// Delete removes the cart for a user.
	Delete(ctx context.Context, userID string) error
}

// OrderFilter defines filter criteria for listing orders. VendorID restricts
// results to orders containing that vendor's line items, and the returned
// items are filtered to that vendor in the query itself.
type OrderFilter struct {
	CustomerID *string
	VendorID   *string
	Status     *string
	Page       int
	PerPage    int
}

// LineItemUpdate carries a vendor's fulfillment mutation for one line item.
// Empty strings leave the corresponding column unchanged.
type LineItemUpdate struct {
	FulfillmentStatus string
	TrackingNumber    string
	Carrier           string
	Notes             string
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// CreateWithInventory inserts the order and its items in a single
	// transaction that conditionally decrements variant inventory. If any
	// line exceeds available stock the whole transaction rolls back and an
	// insufficient-inventory error is returned; no partial order is ever
	// observable.
	CreateWithInventory(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with all its line items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetVendorView retrieves an order with only the given vendor's line
	// items. Returns ErrNotFound when the vendor has no items in the order,
	// indistinguishable from the order not existing.
	GetVendorView(ctx context.Context, orderID, vendorID string) (*domain.Order, error)

	// List returns orders matching the filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateLineItem applies a fulfillment mutation to one line item,
	// scoped by vendor in the statement. Returns ErrNotFound when the item
	// does not exist or belongs to another vendor.
	UpdateLineItem(ctx context.Context, orderID, itemID, vendorID string, upd LineItemUpdate) error

	// UpdateStatus sets the derived order-level status.
	UpdateStatus(ctx context.Context, id, status string) error

	// CancelOpenLineItems moves every non-terminal line item of the order
	// to cancelled. Used by admin cancel/refund.
	CancelOpenLineItems(ctx context.Context, orderID string) error

	// FindDeliveredOrder returns the ID of an order belonging to the
	// customer that contains a delivered line item for the product.
	// Returns ErrNotFound when no such order exists.
	FindDeliveredOrder(ctx context.Context, customerID, productID string) (string, error)
}

// SettlementRepository defines read-only revenue aggregation queries.
type SettlementRepository interface {
	// VendorSeries returns per-period revenue buckets computed from
	// line-item snapshots. An empty vendorID aggregates across all vendors.
	VendorSeries(ctx context.Context, vendorID, period string, from, to time.Time) ([]domain.SettlementBucket, error)
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error)
}
