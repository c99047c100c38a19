package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

const (
	testShippingAddr = "22222222-2222-2222-2222-222222222222"
	testBillingAddr  = "33333333-3333-3333-3333-333333333333"
)

func newTestCheckoutService(
	orders *mockOrderRepository,
	products *mockProductRepository,
	vendors *mockVendorRepository,
	carts *mockCartRepository,
) *CheckoutService {
	return NewCheckoutService(orders, products, vendors, carts, newTestProducer(),
		CheckoutConfig{
			FreeShippingThreshold: 5000,
			FlatShippingFee:       599,
			TaxRateBps:            0,
		},
		newTestLogger(),
	)
}

func placeInput(lines ...OrderLineInput) PlaceOrderInput {
	return PlaceOrderInput{
		Lines:             lines,
		ShippingAddressID: testShippingAddr,
		BillingAddressID:  testBillingAddr,
		PaymentMethod:     "card",
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc := newTestCheckoutService(new(mockOrderRepository), new(mockProductRepository), new(mockVendorRepository), new(mockCartRepository))

	_, err := svc.PlaceOrder(context.Background(), "customer-1", placeInput())

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPlaceOrder_InvalidAddress(t *testing.T) {
	svc := newTestCheckoutService(new(mockOrderRepository), new(mockProductRepository), new(mockVendorRepository), new(mockCartRepository))

	input := placeInput(OrderLineInput{ProductID: testProduct().ID, Quantity: 1})
	input.ShippingAddressID = "not-a-uuid"

	_, err := svc.PlaceOrder(context.Background(), "customer-1", input)

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "shipping_address_id")
}

func TestPlaceOrder_NotPurchasable(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	vendors := new(mockVendorRepository)
	svc := newTestCheckoutService(orders, products, vendors, new(mockCartRepository))
	ctx := context.Background()

	product := testProduct()
	product.Status = domain.ProductStatusPending
	products.On("GetByID", ctx, product.ID).Return(product, nil)
	vendors.On("GetByID", ctx, "vendor-1").Return(&domain.Vendor{ID: "vendor-1", IsActive: true}, nil)

	_, err := svc.PlaceOrder(ctx, "customer-1", placeInput(OrderLineInput{ProductID: product.ID, Quantity: 1}))

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "not purchasable")
	orders.AssertNotCalled(t, "CreateWithInventory", mock.Anything, mock.Anything)
}

func TestPlaceOrder_SnapshotsPriceAndCommission(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	vendors := new(mockVendorRepository)
	carts := new(mockCartRepository)
	svc := newTestCheckoutService(orders, products, vendors, carts)
	ctx := context.Background()

	product := testProduct()
	products.On("GetByID", ctx, product.ID).Return(product, nil)
	vendors.On("GetByID", ctx, "vendor-1").Return(&domain.Vendor{
		ID:                "vendor-1",
		IsActive:          true,
		CommissionRateBps: 1500,
	}, nil)
	orders.On("CreateWithInventory", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	carts.On("Delete", ctx, "customer-1").Return(nil)

	order, err := svc.PlaceOrder(ctx, "customer-1", placeInput(OrderLineInput{ProductID: product.ID, Quantity: 2}))

	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, int64(45000), item.UnitPrice)
	assert.Equal(t, 1500, item.CommissionRateBps)
	assert.Equal(t, "vendor-1", item.VendorID)
	assert.Equal(t, "var-1", item.VariantID)
	assert.Equal(t, domain.FulfillmentPending, item.FulfillmentStatus)
	assert.Equal(t, int64(90000), order.SubtotalAmount)
	// Over the free-shipping threshold.
	assert.Equal(t, int64(0), order.ShippingAmount)
	assert.Equal(t, int64(90000), order.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	orders.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestPlaceOrder_FlatShippingUnderThreshold(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	vendors := new(mockVendorRepository)
	carts := new(mockCartRepository)
	svc := newTestCheckoutService(orders, products, vendors, carts)
	ctx := context.Background()

	product := testProduct()
	product.Price = 1000
	products.On("GetByID", ctx, product.ID).Return(product, nil)
	vendors.On("GetByID", ctx, "vendor-1").Return(&domain.Vendor{ID: "vendor-1", IsActive: true, CommissionRateBps: 1000}, nil)
	orders.On("CreateWithInventory", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	carts.On("Delete", ctx, "customer-1").Return(nil)

	order, err := svc.PlaceOrder(ctx, "customer-1", placeInput(OrderLineInput{ProductID: product.ID, Quantity: 1}))

	require.NoError(t, err)
	assert.Equal(t, int64(599), order.ShippingAmount)
	assert.Equal(t, int64(1599), order.TotalAmount)
}

func TestPlaceOrder_RetriesOnceOnConflict(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	vendors := new(mockVendorRepository)
	carts := new(mockCartRepository)
	svc := newTestCheckoutService(orders, products, vendors, carts)
	ctx := context.Background()

	product := testProduct()
	products.On("GetByID", ctx, product.ID).Return(product, nil)
	vendors.On("GetByID", ctx, "vendor-1").Return(&domain.Vendor{ID: "vendor-1", IsActive: true}, nil)
	orders.On("CreateWithInventory", ctx, mock.AnythingOfType("*domain.Order")).
		Return(apperrors.Conflict("serialization failure")).Once()
	orders.On("CreateWithInventory", ctx, mock.AnythingOfType("*domain.Order")).
		Return(nil).Once()
	carts.On("Delete", ctx, "customer-1").Return(nil)

	order, err := svc.PlaceOrder(ctx, "customer-1", placeInput(OrderLineInput{ProductID: product.ID, Quantity: 1}))

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	orders.AssertNumberOfCalls(t, "CreateWithInventory", 2)
}

func TestPlaceOrder_InsufficientInventorySurfacesAfterRetry(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	vendors := new(mockVendorRepository)
	svc := newTestCheckoutService(orders, products, vendors, new(mockCartRepository))
	ctx := context.Background()

	product := testProduct()
	products.On("GetByID", ctx, product.ID).Return(product, nil)
	vendors.On("GetByID", ctx, "vendor-1").Return(&domain.Vendor{ID: "vendor-1", IsActive: true}, nil)
	orders.On("CreateWithInventory", ctx, mock.AnythingOfType("*domain.Order")).
		Return(apperrors.InsufficientInventory(product.ID, "var-1", 5, 2))

	_, err := svc.PlaceOrder(ctx, "customer-1", placeInput(OrderLineInput{ProductID: product.ID, Quantity: 5}))

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	orders.AssertNumberOfCalls(t, "CreateWithInventory", 2)
}

func TestGetOrder_CustomerCannotSeeOthers(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestCheckoutService(orders, new(mockProductRepository), new(mockVendorRepository), new(mockCartRepository))
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(&domain.Order{ID: "order-1", CustomerID: "customer-2"}, nil)

	_, err := svc.GetOrder(ctx, customerPrincipal, "order-1")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetOrder_VendorGetsScopedView(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestCheckoutService(orders, new(mockProductRepository), new(mockVendorRepository), new(mockCartRepository))
	ctx := context.Background()

	scoped := &domain.Order{
		ID: "order-1",
		Items: []domain.LineItem{
			{ID: "item-1", VendorID: "vendor-1"},
		},
	}
	orders.On("GetVendorView", ctx, "order-1", "vendor-1").Return(scoped, nil)

	order, err := svc.GetOrder(ctx, vendorPrincipal("vendor-1"), "order-1")

	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "vendor-1", order.Items[0].VendorID)
}

func TestListOrders_ScopeForcedByRole(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestCheckoutService(orders, new(mockProductRepository), new(mockVendorRepository), new(mockCartRepository))
	ctx := context.Background()

	// A customer asking for someone else's orders gets their own scope.
	orders.On("List", ctx, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.CustomerID != nil && *f.CustomerID == "customer-1" && f.VendorID == nil
	})).Return([]domain.Order{}, 0, nil).Once()

	_, _, err := svc.ListOrders(ctx, customerPrincipal, repository.OrderFilter{
		CustomerID: strPtr("customer-2"),
		VendorID:   strPtr("vendor-1"),
	})
	require.NoError(t, err)

	orders.AssertExpectations(t)
}

// --- Concurrency: conditional decrement prevents oversell ---

// inventoryOrderRepository is an in-memory OrderRepository whose
// CreateWithInventory mirrors the conditional-decrement semantics of the
// SQL implementation.
type inventoryOrderRepository struct {
	mu        sync.Mutex
	inventory map[string]int
	created   []*domain.Order
}

func (r *inventoryOrderRepository) CreateWithInventory(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range o.Items {
		available := r.inventory[item.VariantID]
		if available < item.Quantity {
			return apperrors.InsufficientInventory(item.ProductID, item.VariantID, item.Quantity, available)
		}
	}
	for _, item := range o.Items {
		r.inventory[item.VariantID] -= item.Quantity
	}
	r.created = append(r.created, o)
	return nil
}

func (r *inventoryOrderRepository) GetByID(context.Context, string) (*domain.Order, error) {
	return nil, apperrors.ErrNotFound
}

func (r *inventoryOrderRepository) GetVendorView(context.Context, string, string) (*domain.Order, error) {
	return nil, apperrors.ErrNotFound
}

func (r *inventoryOrderRepository) List(context.Context, repository.OrderFilter) ([]domain.Order, int, error) {
	return nil, 0, nil
}

func (r *inventoryOrderRepository) UpdateLineItem(context.Context, string, string, string, repository.LineItemUpdate) error {
	return nil
}

func (r *inventoryOrderRepository) UpdateStatus(context.Context, string, string) error {
	return nil
}

func (r *inventoryOrderRepository) CancelOpenLineItems(context.Context, string) error {
	return nil
}

func (r *inventoryOrderRepository) FindDeliveredOrder(context.Context, string, string) (string, error) {
	return "", apperrors.ErrNotFound
}

func TestPlaceOrder_ConcurrentPlacementsNeverOversell(t *testing.T) {
	products := new(mockProductRepository)
	vendors := new(mockVendorRepository)
	carts := new(mockCartRepository)

	product := testProduct()
	products.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	vendors.On("GetByID", mock.Anything, "vendor-1").Return(&domain.Vendor{ID: "vendor-1", IsActive: true, CommissionRateBps: 1000}, nil)
	carts.On("Delete", mock.Anything, mock.Anything).Return(nil)

	repo := &inventoryOrderRepository{inventory: map[string]int{"var-1": 10}}
	svc := NewCheckoutService(repo, products, vendors, carts, newTestProducer(),
		CheckoutConfig{FreeShippingThreshold: 5000, FlatShippingFee: 599},
		newTestLogger(),
	)

	const (
		workers  = 8
		perOrder = 3
	)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), "customer-1",
				placeInput(OrderLineInput{ProductID: product.ID, Quantity: perOrder}))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, apperrors.ErrConflict)
			failed++
		}
	}

	// 10 units at 3 per order: exactly 3 placements can win.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, failed)

	var reserved int
	for _, o := range repo.created {
		for _, item := range o.Items {
			reserved += item.Quantity
		}
	}
	assert.Equal(t, 9, reserved)
	assert.Equal(t, 1, repo.inventory["var-1"])
}
