package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

const (
	maxCartItems       = 100
	maxItemQuantity    = 999
	defaultCartTTLDays = 30
)

// CartService implements the business logic for cart operations. The cart is
// a working document: it caches prices for display but is never the source
// of truth for an order.
type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
	ttl      time.Duration
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, products repository.ProductRepository, ttl time.Duration, logger *slog.Logger) *CartService {
	if ttl <= 0 {
		ttl = defaultCartTTLDays * 24 * time.Hour
	}
	return &CartService{
		repo:     repo,
		products: products,
		logger:   logger,
		ttl:      ttl,
	}
}

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=999"`
}

// GetCart retrieves the user's cart, returning an empty cart if none exists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds a product to the cart. Adding an item that is already present
// under the same (product, variant) key merges additively into one line; it
// never creates a duplicate.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (*domain.Cart, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart add: %w", err)
	}

	variantID := domain.NormalizeVariantID(input.VariantID)
	var variant *domain.ProductVariant
	if input.VariantID != "" {
		variant = product.Variant(input.VariantID)
		if variant == nil {
			return nil, apperrors.NotFound("variant", input.VariantID)
		}
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItemIndex(input.ProductID, variantID)
		if idx >= 0 {
			newQty := cart.Items[idx].Quantity + input.Quantity
			if newQty > maxItemQuantity {
				return apperrors.InvalidInput(fmt.Sprintf("quantity cannot exceed %d", maxItemQuantity))
			}
			cart.Items[idx].Quantity = newQty
			return nil
		}

		if len(cart.Items) >= maxCartItems {
			return apperrors.InvalidInput(fmt.Sprintf("cart cannot hold more than %d distinct items", maxCartItems))
		}

		sku := ""
		if variant != nil {
			sku = variant.SKU
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: input.ProductID,
			VariantID: variantID,
			VendorID:  product.VendorID,
			Name:      product.Name,
			SKU:       sku,
			Price:     product.UnitPrice(variant),
			Quantity:  input.Quantity,
		})
		return nil
	})
}

// UpdateItemQuantity sets the quantity of a cart line. A quantity of zero or
// less removes the line entirely.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID, variantID string, quantity int) (*domain.Cart, error) {
	if quantity > maxItemQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity cannot exceed %d", maxItemQuantity))
	}

	variantID = domain.NormalizeVariantID(variantID)

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItemIndex(productID, variantID)
		if idx < 0 {
			return apperrors.NotFound("cart item", productID)
		}

		if quantity <= 0 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
			return nil
		}

		cart.Items[idx].Quantity = quantity
		return nil
	})
}

// RemoveItem removes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID, variantID string) (*domain.Cart, error) {
	return s.UpdateItemQuantity(ctx, userID, productID, variantID, 0)
}

// ClearCart removes the user's cart entirely.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// mutate loads the cart, applies fn, and saves with an optimistic version
// check. A concurrent writer surfaces as ErrConflict for the caller to retry.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	expectedVersion := 0
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get cart for update: %w", err)
		}
		cart = s.newCart(userID)
	} else {
		expectedVersion = cart.Version
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.ttl)

	if err := s.repo.SaveIfVersion(ctx, cart, expectedVersion); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.DebugContext(ctx, "cart updated",
		slog.String("user_id", userID),
		slog.Int("items", len(cart.Items)),
		slog.Int("version", cart.Version),
	)

	return cart, nil
}

func (s *CartService) newCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		Currency:  "USD",
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
}
