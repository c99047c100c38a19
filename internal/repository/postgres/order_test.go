package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	"github.com/utafrali/MarketplaceGo/pkg/database"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

// --- Test Helpers ---

func newTestOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewOrderRepository(mock)
	return repo, mock
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Order{
		ID:                "order-001",
		CustomerID:        "customer-001",
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		SubtotalAmount:    95000,
		ShippingAmount:    0,
		TaxAmount:         0,
		TotalAmount:       95000,
		Currency:          "USD",
		ShippingAddressID: "addr-001",
		BillingAddressID:  "addr-002",
		PaymentMethod:     "card",
		CreatedAt:         now,
		UpdatedAt:         now,
		Items: []domain.LineItem{
			{
				ID:                "item-001",
				OrderID:           "order-001",
				ProductID:         "prod-001",
				VariantID:         "var-001",
				VendorID:          "vendor-001",
				Name:              "Walnut Desk",
				SKU:               "DSK-001",
				UnitPrice:         45000,
				CommissionRateBps: 1000,
				Quantity:          2,
				FulfillmentStatus: domain.FulfillmentPending,
			},
			{
				ID:                "item-002",
				OrderID:           "order-001",
				ProductID:         "prod-002",
				VariantID:         "var-002",
				VendorID:          "vendor-002",
				Name:              "Brass Lamp",
				SKU:               "LMP-001",
				UnitPrice:         5000,
				CommissionRateBps: 1500,
				Quantity:          1,
				FulfillmentStatus: domain.FulfillmentPending,
			},
		},
	}
}

// --- CreateWithInventory Tests ---

func TestOrderRepository_CreateWithInventory_Success(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()

	mock.ExpectBegin()

	for _, item := range o.Items {
		mock.ExpectExec("UPDATE product_variants").
			WithArgs(item.Quantity, item.VariantID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	}

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.CustomerID, o.Status, o.PaymentStatus,
			o.SubtotalAmount, o.ShippingAmount, o.TaxAmount, o.TotalAmount,
			o.Currency, o.ShippingAddressID, o.BillingAddressID,
			o.PaymentMethod, o.Notes, o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	for _, item := range o.Items {
		mock.ExpectExec("INSERT INTO order_line_items").
			WithArgs(
				item.ID, item.OrderID, item.ProductID, item.VariantID, item.VendorID,
				item.Name, item.SKU, item.UnitPrice, item.CommissionRateBps,
				item.Quantity, item.FulfillmentStatus,
				item.TrackingNumber, item.Carrier, item.FulfillmentNotes,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	mock.ExpectCommit()

	err := repo.CreateWithInventory(context.Background(), o)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateWithInventory_InsufficientStock(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()

	mock.ExpectBegin()

	// The conditional decrement matches no rows: not enough stock left.
	mock.ExpectExec("UPDATE product_variants").
		WithArgs(o.Items[0].Quantity, o.Items[0].VariantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	mock.ExpectQuery("SELECT inventory FROM product_variants").
		WithArgs(o.Items[0].VariantID).
		WillReturnRows(pgxmock.NewRows([]string{"inventory"}).AddRow(1))

	mock.ExpectRollback()

	err := repo.CreateWithInventory(context.Background(), o)

	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "INSUFFICIENT_INVENTORY")
	require.NoError(t, mock.ExpectationsWereMet())
}

// --- GetVendorView Tests ---

func lineItemRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "order_id", "product_id", "variant_id", "vendor_id", "name", "sku",
		"unit_price", "commission_rate_bps", "quantity", "fulfillment_status",
		"tracking_number", "carrier", "fulfillment_notes",
	})
}

func TestOrderRepository_GetVendorView_NoItemsIsNotFound(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM order_line_items").
		WithArgs("order-001", "vendor-003").
		WillReturnRows(lineItemRows())

	_, err := repo.GetVendorView(context.Background(), "order-001", "vendor-003")

	// Indistinguishable from the order not existing.
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetVendorView_OnlyVendorItems(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()
	item := o.Items[0]

	mock.ExpectQuery("SELECT (.+) FROM order_line_items").
		WithArgs("order-001", "vendor-001").
		WillReturnRows(lineItemRows().AddRow(
			item.ID, item.OrderID, item.ProductID, item.VariantID, item.VendorID,
			item.Name, item.SKU, item.UnitPrice, item.CommissionRateBps,
			item.Quantity, item.FulfillmentStatus,
			item.TrackingNumber, item.Carrier, item.FulfillmentNotes,
		))

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs("order-001").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "customer_id", "status", "payment_status", "subtotal_amount", "shipping_amount",
			"tax_amount", "total_amount", "currency", "shipping_address_id", "billing_address_id",
			"payment_method", "notes", "created_at", "updated_at",
		}).AddRow(
			o.ID, o.CustomerID, o.Status, o.PaymentStatus, o.SubtotalAmount, o.ShippingAmount,
			o.TaxAmount, o.TotalAmount, o.Currency, o.ShippingAddressID, o.BillingAddressID,
			o.PaymentMethod, o.Notes, o.CreatedAt, o.UpdatedAt,
		))

	got, err := repo.GetVendorView(context.Background(), "order-001", "vendor-001")

	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "vendor-001", got.Items[0].VendorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

// --- UpdateLineItem Tests ---

func TestOrderRepository_UpdateLineItem_VendorScopeInQuery(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	upd := repository.LineItemUpdate{
		FulfillmentStatus: domain.FulfillmentShipped,
		TrackingNumber:    "1Z999",
		Carrier:           "ups",
	}

	// Another vendor's item: the WHERE clause matches nothing.
	mock.ExpectExec("UPDATE order_line_items").
		WithArgs(upd.FulfillmentStatus, upd.TrackingNumber, upd.Carrier, upd.Notes,
			"item-002", "order-001", "vendor-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateLineItem(context.Background(), "order-001", "item-002", "vendor-001", upd)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_NotFound(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusProcessing, pgxmock.AnyArg(), "order-404").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), "order-404", domain.OrderStatusProcessing)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
