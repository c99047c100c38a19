package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/event"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
	"github.com/utafrali/MarketplaceGo/pkg/slug"
)

// CatalogService implements the moderation gate and vendor/product management.
type CatalogService struct {
	products repository.ProductRepository
	vendors  repository.VendorRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repository.ProductRepository, vendors repository.VendorRepository, producer *event.Producer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		vendors:  vendors,
		producer: producer,
		logger:   logger,
	}
}

// CreateVariantInput holds the parameters for one product variant.
type CreateVariantInput struct {
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price" validate:"gte=0"`
	Inventory int    `json:"inventory" validate:"gte=0"`
}

// CreateProductInput holds the parameters for creating a product listing.
type CreateProductInput struct {
	Name        string               `json:"name" validate:"required,min=2,max=200"`
	Description string               `json:"description"`
	Price       int64                `json:"price" validate:"gt=0"`
	Currency    string               `json:"currency"`
	Variants    []CreateVariantInput `json:"variants"`
}

// CreateProduct creates a draft listing owned by the calling vendor. Products
// start as drafts and must pass moderation before they are sellable; the
// active flag defaults to on so approval alone makes them purchasable.
func (s *CatalogService) CreateProduct(ctx context.Context, principal domain.Principal, input CreateProductInput) (*domain.Product, error) {
	if !principal.IsVendor() && !principal.IsAdmin() {
		return nil, s.denyAccess(ctx, principal, "only vendors can create products")
	}

	now := time.Now().UTC()
	productID := uuid.New().String()

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = "USD"
	}

	variants := make([]domain.ProductVariant, 0, len(input.Variants))
	for _, v := range input.Variants {
		variants = append(variants, domain.ProductVariant{
			ID:        uuid.New().String(),
			ProductID: productID,
			Name:      v.Name,
			SKU:       v.SKU,
			Price:     v.Price,
			Inventory: v.Inventory,
		})
	}
	// A product without explicit variants still needs one row to carry
	// inventory, keyed by the default variant name.
	if len(variants) == 0 {
		variants = append(variants, domain.ProductVariant{
			ID:        uuid.New().String(),
			ProductID: productID,
			Name:      domain.DefaultVariantID,
		})
	}

	product := &domain.Product{
		ID:          productID,
		VendorID:    principal.UserID,
		Name:        input.Name,
		Slug:        slug.Generate(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Currency:    currency,
		Status:      domain.ProductStatusDraft,
		IsActive:    true,
		Variants:    variants,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("vendor_id", product.VendorID),
	)

	return product, nil
}

// SubmitProduct moves a draft or rejected product to pending review. Missing
// required listing fields block submission with an error naming each field.
func (s *CatalogService) SubmitProduct(ctx context.Context, principal domain.Principal, productID string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for submit: %w", err)
	}

	if !principal.IsAdmin() && product.VendorID != principal.UserID {
		return nil, s.denyAccess(ctx, principal, "product belongs to another vendor")
	}

	if !product.CanSubmit() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot submit product in %q status", product.Status))
	}

	if missing := product.MissingRequiredFields(); len(missing) > 0 {
		return nil, apperrors.InvalidInput("missing required fields: " + strings.Join(missing, ", "))
	}

	if err := s.products.UpdateStatus(ctx, productID, domain.ProductStatusPending, "", "", nil); err != nil {
		return nil, fmt.Errorf("submit product: %w", err)
	}
	product.Status = domain.ProductStatusPending

	if err := s.producer.PublishProductSubmitted(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.submitted event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product submitted for review",
		slog.String("product_id", productID),
		slog.String("vendor_id", product.VendorID),
	)

	return product, nil
}

// ReviewProductInput holds a moderation decision.
type ReviewProductInput struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Notes    string `json:"notes"`
}

// ReviewProduct records a moderation decision on a pending product. Only
// admins may review. Re-reviewing an already-decided product with the same
// decision is an idempotent no-op; a conflicting decision is rejected so a
// decided product never flips without going through re-submission.
func (s *CatalogService) ReviewProduct(ctx context.Context, principal domain.Principal, productID string, input ReviewProductInput) (*domain.Product, error) {
	if !principal.IsAdmin() {
		return nil, s.denyAccess(ctx, principal, "only admins can review products")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for review: %w", err)
	}

	if product.IsDecided() {
		if product.Status == input.Decision {
			return product, nil
		}
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"product already %s; it must be resubmitted before a different decision", product.Status))
	}

	if product.Status != domain.ProductStatusPending {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot review product in %q status", product.Status))
	}

	now := time.Now().UTC()
	if err := s.products.UpdateStatus(ctx, productID, input.Decision, principal.UserID, input.Notes, &now); err != nil {
		return nil, fmt.Errorf("review product: %w", err)
	}

	product.Status = input.Decision
	product.ReviewedBy = principal.UserID
	product.ReviewedAt = &now
	product.ReviewNotes = input.Notes

	if err := s.producer.PublishProductReviewed(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.reviewed event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product reviewed",
		slog.String("product_id", productID),
		slog.String("decision", input.Decision),
		slog.String("reviewer", principal.UserID),
	)

	return product, nil
}

// SetProductActive flips the listing's active flag. Only approved products
// can be activated; the owning vendor and admins may toggle it.
func (s *CatalogService) SetProductActive(ctx context.Context, principal domain.Principal, productID string, active bool) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for activation: %w", err)
	}

	if !principal.IsAdmin() && product.VendorID != principal.UserID {
		return nil, s.denyAccess(ctx, principal, "product belongs to another vendor")
	}

	if active && product.Status != domain.ProductStatusApproved {
		return nil, apperrors.InvalidInput("only approved products can be activated")
	}

	if err := s.products.SetActive(ctx, productID, active); err != nil {
		return nil, fmt.Errorf("set product active: %w", err)
	}
	product.IsActive = active

	s.logger.InfoContext(ctx, "product active flag changed",
		slog.String("product_id", productID),
		slog.Bool("active", active),
	)

	return product, nil
}

// GetProduct retrieves a product. Customers only see purchasable products;
// vendors see their own in any status; admins see everything.
func (s *CatalogService) GetProduct(ctx context.Context, principal domain.Principal, productID string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if principal.IsAdmin() {
		return product, nil
	}
	if principal.IsVendor() && product.VendorID == principal.UserID {
		return product, nil
	}

	vendor, err := s.vendors.GetByID(ctx, product.VendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor for product: %w", err)
	}
	if !domain.IsPurchasable(product, vendor) {
		// Unpurchasable listings are invisible to shoppers.
		return nil, apperrors.NotFound("product", productID)
	}

	return product, nil
}

// ListProducts returns a scoped product listing: shoppers get purchasable
// products only, vendors get their own products in any status, admins get an
// unrestricted view.
func (s *CatalogService) ListProducts(ctx context.Context, principal domain.Principal, filter repository.ProductFilter) ([]domain.Product, int, error) {
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
		filter.PurchasableOnly = false
	default:
		filter.Status = nil
		filter.PurchasableOnly = true
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// CreateVendorInput holds the parameters for registering a vendor.
type CreateVendorInput struct {
	Name              string `json:"name" validate:"required,min=2,max=200"`
	Email             string `json:"email" validate:"required,email"`
	CommissionRateBps *int   `json:"commission_rate_bps"`
}

// CreateVendor registers a new vendor tenant. Admin only.
func (s *CatalogService) CreateVendor(ctx context.Context, principal domain.Principal, input CreateVendorInput) (*domain.Vendor, error) {
	if !principal.IsAdmin() {
		return nil, s.denyAccess(ctx, principal, "only admins can create vendors")
	}

	rate := domain.DefaultCommissionRateBps
	if input.CommissionRateBps != nil {
		rate = *input.CommissionRateBps
	}
	if !domain.ValidCommissionRate(rate) {
		return nil, apperrors.InvalidInput("commission_rate_bps must be between 0 and 10000")
	}

	now := time.Now().UTC()
	vendor := &domain.Vendor{
		ID:                uuid.New().String(),
		Name:              input.Name,
		Email:             input.Email,
		CommissionRateBps: rate,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.vendors.Create(ctx, vendor); err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}

	s.logger.InfoContext(ctx, "vendor created",
		slog.String("vendor_id", vendor.ID),
		slog.Int("commission_rate_bps", vendor.CommissionRateBps),
	)

	return vendor, nil
}

// UpdateVendorCommission changes a vendor's commission rate going forward.
// Rates snapshotted on existing order line items are untouched.
func (s *CatalogService) UpdateVendorCommission(ctx context.Context, principal domain.Principal, vendorID string, rateBps int) (*domain.Vendor, error) {
	if !principal.IsAdmin() {
		return nil, s.denyAccess(ctx, principal, "only admins can change commission rates")
	}

	if !domain.ValidCommissionRate(rateBps) {
		return nil, apperrors.InvalidInput("commission_rate_bps must be between 0 and 10000")
	}

	vendor, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor for commission update: %w", err)
	}

	if err := s.vendors.UpdateCommissionRate(ctx, vendorID, rateBps); err != nil {
		return nil, fmt.Errorf("update vendor commission: %w", err)
	}
	vendor.CommissionRateBps = rateBps

	s.logger.InfoContext(ctx, "vendor commission rate updated",
		slog.String("vendor_id", vendorID),
		slog.Int("commission_rate_bps", rateBps),
	)

	return vendor, nil
}

// SetVendorActive suspends or reactivates a vendor. Admin only. The vendor's
// products are untouched: purchasability is computed at query time, so the
// entire catalog of a suspended vendor disappears from shopper views at once
// and reappears on reactivation.
func (s *CatalogService) SetVendorActive(ctx context.Context, principal domain.Principal, vendorID string, active bool) (*domain.Vendor, error) {
	if !principal.IsAdmin() {
		return nil, s.denyAccess(ctx, principal, "only admins can suspend vendors")
	}

	vendor, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor for suspension: %w", err)
	}

	if err := s.vendors.SetActive(ctx, vendorID, active); err != nil {
		return nil, fmt.Errorf("set vendor active: %w", err)
	}
	vendor.IsActive = active

	s.logger.InfoContext(ctx, "vendor active flag changed",
		slog.String("vendor_id", vendorID),
		slog.Bool("active", active),
	)

	return vendor, nil
}

// ListVendors returns a page of vendors. Admin only.
func (s *CatalogService) ListVendors(ctx context.Context, principal domain.Principal, page, perPage int) ([]domain.Vendor, int, error) {
	if !principal.IsAdmin() {
		return nil, 0, s.denyAccess(ctx, principal, "only admins can list vendors")
	}

	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	vendors, total, err := s.vendors.List(ctx, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors: %w", err)
	}

	return vendors, total, nil
}

// GetVendor retrieves a vendor by ID.
func (s *CatalogService) GetVendor(ctx context.Context, vendorID string) (*domain.Vendor, error) {
	vendor, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return vendor, nil
}

// denyAccess logs and returns an access-denied error. Every denial is logged;
// the error is never downgraded to a softer kind.
func (s *CatalogService) denyAccess(ctx context.Context, principal domain.Principal, msg string) error {
	s.logger.WarnContext(ctx, "access denied",
		slog.String("user_id", principal.UserID),
		slog.String("role", principal.Role),
		slog.String("reason", msg),
	)
	return apperrors.AccessDenied(msg)
}
