package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/event"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

// placementAttempts bounds how often a contended placement is retried before
// the conflict is surfaced to the caller.
const placementAttempts = 2

// CheckoutConfig holds the pricing knobs applied at placement.
type CheckoutConfig struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
	TaxRateBps            int
}

// CheckoutService turns carts into orders. Orders are always re-priced from
// the live catalog; cached cart prices are ignored.
type CheckoutService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	vendors  repository.VendorRepository
	carts    repository.CartRepository
	producer *event.Producer
	logger   *slog.Logger
	cfg      CheckoutConfig
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	vendors repository.VendorRepository,
	carts repository.CartRepository,
	producer *event.Producer,
	cfg CheckoutConfig,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		products: products,
		vendors:  vendors,
		carts:    carts,
		producer: producer,
		logger:   logger,
		cfg:      cfg,
	}
}

// OrderLineInput is one requested line at checkout.
type OrderLineInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// PlaceOrderInput holds the parameters for placing an order.
type PlaceOrderInput struct {
	Lines             []OrderLineInput `json:"lines"`
	ShippingAddressID string           `json:"shipping_address_id" validate:"required"`
	BillingAddressID  string           `json:"billing_address_id" validate:"required"`
	PaymentMethod     string           `json:"payment_method" validate:"required"`
	Notes             string           `json:"notes"`
}

// PlaceOrder validates, re-prices, and persists an order atomically. Every
// line is priced from the live catalog and stamped with the vendor's current
// commission rate; inventory is decremented conditionally inside the same
// transaction, so either the whole order exists with stock reserved or
// nothing does. One bounded retry absorbs races with concurrent placements.
func (s *CheckoutService) PlaceOrder(ctx context.Context, customerID string, input PlaceOrderInput) (*domain.Order, error) {
	if len(input.Lines) == 0 {
		return nil, apperrors.EmptyCart()
	}
	if _, err := uuid.Parse(input.ShippingAddressID); err != nil {
		return nil, apperrors.InvalidAddress("shipping_address_id must be a valid UUID")
	}
	if _, err := uuid.Parse(input.BillingAddressID); err != nil {
		return nil, apperrors.InvalidAddress("billing_address_id must be a valid UUID")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidInput("line quantity must be positive")
		}
	}

	var lastErr error
	for attempt := 0; attempt < placementAttempts; attempt++ {
		order, err := s.placeOnce(ctx, customerID, input)
		if err == nil {
			return order, nil
		}
		lastErr = err
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "order placement conflict, retrying",
			slog.String("customer_id", customerID),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	return nil, lastErr
}

// placeOnce performs a single placement attempt.
func (s *CheckoutService) placeOnce(ctx context.Context, customerID string, input PlaceOrderInput) (*domain.Order, error) {
	now := time.Now().UTC()
	orderID := uuid.New().String()

	vendorCache := make(map[string]*domain.Vendor)

	var subtotal int64
	currency := "USD"
	items := make([]domain.LineItem, 0, len(input.Lines))

	for _, line := range input.Lines {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product for placement: %w", err)
		}

		vendor, ok := vendorCache[product.VendorID]
		if !ok {
			vendor, err = s.vendors.GetByID(ctx, product.VendorID)
			if err != nil {
				return nil, fmt.Errorf("load vendor for placement: %w", err)
			}
			vendorCache[product.VendorID] = vendor
		}

		if !domain.IsPurchasable(product, vendor) {
			return nil, apperrors.NotPurchasable(product.ID)
		}

		variant, err := resolveVariant(product, line.VariantID)
		if err != nil {
			return nil, err
		}

		currency = product.Currency

		item := domain.LineItem{
			ID:                uuid.New().String(),
			OrderID:           orderID,
			ProductID:         product.ID,
			VariantID:         variant.ID,
			VendorID:          product.VendorID,
			Name:              product.Name,
			SKU:               variant.SKU,
			UnitPrice:         product.UnitPrice(variant),
			CommissionRateBps: vendor.CommissionRateBps,
			Quantity:          line.Quantity,
			FulfillmentStatus: domain.FulfillmentPending,
		}
		subtotal += item.LineTotal()
		items = append(items, item)
	}

	shipping := s.cfg.FlatShippingFee
	if subtotal >= s.cfg.FreeShippingThreshold {
		shipping = 0
	}
	tax := subtotal * int64(s.cfg.TaxRateBps) / int64(domain.MaxCommissionRateBps)

	order := &domain.Order{
		ID:                orderID,
		CustomerID:        customerID,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		Items:             items,
		SubtotalAmount:    subtotal,
		ShippingAmount:    shipping,
		TaxAmount:         tax,
		TotalAmount:       subtotal + shipping + tax,
		Currency:          currency,
		ShippingAddressID: input.ShippingAddressID,
		BillingAddressID:  input.BillingAddressID,
		PaymentMethod:     input.PaymentMethod,
		Notes:             input.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.orders.CreateWithInventory(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The cart is a working document; failing to clear it never fails the order.
	if err := s.carts.Delete(ctx, customerID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after placement",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("customer_id", customerID),
		slog.Int("lines", len(items)),
		slog.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

// GetOrder retrieves an order within the caller's scope: customers see their
// own orders, vendors see a projection containing only their line items,
// admins see everything.
func (s *CheckoutService) GetOrder(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error) {
	if principal.IsVendor() {
		order, err := s.orders.GetVendorView(ctx, orderID, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("get vendor order view: %w", err)
		}
		return order, nil
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if !principal.IsAdmin() && order.CustomerID != principal.UserID {
		s.logger.WarnContext(ctx, "access denied",
			slog.String("user_id", principal.UserID),
			slog.String("role", principal.Role),
			slog.String("order_id", orderID),
		)
		return nil, apperrors.AccessDenied("order belongs to another customer")
	}

	return order, nil
}

// ListOrders returns the caller's orders: the scope filter is forced from the
// principal before the query runs, so cross-tenant rows are never loaded.
func (s *CheckoutService) ListOrders(ctx context.Context, principal domain.Principal, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	switch {
	case principal.IsAdmin():
		// Unrestricted.
	case principal.IsVendor():
		vendorID := principal.UserID
		filter.VendorID = &vendorID
		filter.CustomerID = nil
	default:
		customerID := principal.UserID
		filter.CustomerID = &customerID
		filter.VendorID = nil
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// resolveVariant maps a requested variant selection onto a concrete variant
// row. An empty or "default" selection resolves to the product's default
// variant; an explicit ID must exist.
func resolveVariant(product *domain.Product, variantID string) (*domain.ProductVariant, error) {
	if variantID != "" && variantID != domain.DefaultVariantID {
		v := product.Variant(variantID)
		if v == nil {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return v, nil
	}

	for i := range product.Variants {
		if product.Variants[i].Name == domain.DefaultVariantID {
			return &product.Variants[i], nil
		}
	}
	if len(product.Variants) == 1 {
		return &product.Variants[0], nil
	}

	return nil, apperrors.InvalidInput("variant selection required for product " + product.ID)
}
