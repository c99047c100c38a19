package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	"github.com/utafrali/MarketplaceGo/pkg/database"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const lineItemColumns = `id, order_id, product_id, variant_id, vendor_id, name, sku,
	unit_price, commission_rate_bps, quantity, fulfillment_status,
	tracking_number, carrier, fulfillment_notes`

// CreateWithInventory inserts the order and its items in a single transaction
// that conditionally decrements variant inventory. The decrement only matches
// rows that still have enough stock, so two concurrent orders can never both
// take the last unit: the loser's UPDATE affects zero rows and the whole
// transaction rolls back.
func (r *OrderRepository) CreateWithInventory(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	decrementQuery := `
		UPDATE product_variants
		SET inventory = inventory - $1
		WHERE id = $2 AND inventory >= $1`

	for _, item := range o.Items {
		ct, err := tx.Exec(ctx, decrementQuery, item.Quantity, item.VariantID)
		if err != nil {
			return fmt.Errorf("decrement inventory: %w", err)
		}
		if ct.RowsAffected() == 0 {
			var available int
			if err := tx.QueryRow(ctx,
				"SELECT inventory FROM product_variants WHERE id = $1", item.VariantID,
			).Scan(&available); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NotFound("variant", item.VariantID)
				}
				return fmt.Errorf("read variant inventory: %w", err)
			}
			return apperrors.InsufficientInventory(item.ProductID, item.VariantID, item.Quantity, available)
		}
	}

	orderQuery := `
		INSERT INTO orders (id, customer_id, status, payment_status, subtotal_amount, shipping_amount,
			tax_amount, total_amount, currency, shipping_address_id, billing_address_id,
			payment_method, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.CustomerID,
		o.Status,
		o.PaymentStatus,
		o.SubtotalAmount,
		o.ShippingAmount,
		o.TaxAmount,
		o.TotalAmount,
		o.Currency,
		o.ShippingAddressID,
		o.BillingAddressID,
		o.PaymentMethod,
		o.Notes,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_line_items (id, order_id, product_id, variant_id, vendor_id, name, sku,
			unit_price, commission_rate_bps, quantity, fulfillment_status,
			tracking_number, carrier, fulfillment_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.VariantID,
			item.VendorID,
			item.Name,
			item.SKU,
			item.UnitPrice,
			item.CommissionRateBps,
			item.Quantity,
			item.FulfillmentStatus,
			item.TrackingNumber,
			item.Carrier,
			item.FulfillmentNotes,
		)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order with all its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := r.scanOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := r.loadLineItems(ctx, id, "")
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// GetVendorView retrieves an order with only the given vendor's line items.
// A vendor with no items in the order gets ErrNotFound, indistinguishable
// from the order not existing.
func (r *OrderRepository) GetVendorView(ctx context.Context, orderID, vendorID string) (*domain.Order, error) {
	items, err := r.loadLineItems(ctx, orderID, vendorID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NotFound("order", orderID)
	}

	o, err := r.scanOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// List returns orders matching the given filter with the total count. A
// vendor filter restricts both which orders match and which items are
// loaded: rows belonging to other vendors never leave the database.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", argIndex))
		args = append(args, *filter.CustomerID)
		argIndex++
	}

	if filter.VendorID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM order_line_items li WHERE li.order_id = o.id AND li.vendor_id = $%d)", argIndex))
		args = append(args, *filter.VendorID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.customer_id, o.status, o.payment_status, o.subtotal_amount, o.shipping_amount,
		       o.tax_amount, o.total_amount, o.currency, o.shipping_address_id, o.billing_address_id,
		       o.payment_method, o.notes, o.created_at, o.updated_at,
		       count(*) OVER() AS total_count
		FROM orders o
		%s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.CustomerID,
			&o.Status,
			&o.PaymentStatus,
			&o.SubtotalAmount,
			&o.ShippingAmount,
			&o.TaxAmount,
			&o.TotalAmount,
			&o.Currency,
			&o.ShippingAddressID,
			&o.BillingAddressID,
			&o.PaymentMethod,
			&o.Notes,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load line items in a single query, keeping the vendor scope.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := fmt.Sprintf(`
			SELECT %s
			FROM order_line_items
			WHERE order_id = ANY($1)`, lineItemColumns)
		itemArgs := []any{orderIDs}
		if filter.VendorID != nil {
			itemsQuery += " AND vendor_id = $2"
			itemArgs = append(itemArgs, *filter.VendorID)
		}
		itemsQuery += " ORDER BY id"

		itemRows, err := r.pool.Query(ctx, itemsQuery, itemArgs...)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load line items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.LineItem, len(orders))
		for itemRows.Next() {
			item, err := scanLineItem(itemRows)
			if err != nil {
				return nil, 0, err
			}
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate line item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.LineItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateLineItem applies a fulfillment mutation to one line item. The vendor
// scope lives in the WHERE clause: an item owned by another vendor is simply
// not matched, so the caller cannot tell it apart from a missing item.
func (r *OrderRepository) UpdateLineItem(ctx context.Context, orderID, itemID, vendorID string, upd repository.LineItemUpdate) error {
	query := `
		UPDATE order_line_items
		SET fulfillment_status = COALESCE(NULLIF($1, ''), fulfillment_status),
		    tracking_number    = COALESCE(NULLIF($2, ''), tracking_number),
		    carrier            = COALESCE(NULLIF($3, ''), carrier),
		    fulfillment_notes  = COALESCE(NULLIF($4, ''), fulfillment_notes)
		WHERE id = $5 AND order_id = $6 AND vendor_id = $7`

	ct, err := r.pool.Exec(ctx, query,
		upd.FulfillmentStatus,
		upd.TrackingNumber,
		upd.Carrier,
		upd.Notes,
		itemID,
		orderID,
		vendorID,
	)
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("line item", itemID)
	}

	return nil
}

// UpdateStatus sets the derived order-level status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// CancelOpenLineItems moves every non-terminal line item of the order to
// cancelled.
func (r *OrderRepository) CancelOpenLineItems(ctx context.Context, orderID string) error {
	query := `
		UPDATE order_line_items
		SET fulfillment_status = $1
		WHERE order_id = $2 AND fulfillment_status NOT IN ($3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		domain.FulfillmentCancelled,
		orderID,
		domain.FulfillmentDelivered,
		domain.FulfillmentCancelled,
		domain.FulfillmentReturned,
	)
	if err != nil {
		return fmt.Errorf("cancel open line items: %w", err)
	}

	return nil
}

// FindDeliveredOrder returns the ID of an order belonging to the customer
// that contains a delivered line item for the product.
func (r *OrderRepository) FindDeliveredOrder(ctx context.Context, customerID, productID string) (string, error) {
	query := `
		SELECT o.id
		FROM orders o
		JOIN order_line_items li ON li.order_id = o.id
		WHERE o.customer_id = $1 AND li.product_id = $2 AND li.fulfillment_status = $3
		ORDER BY o.created_at DESC
		LIMIT 1`

	var orderID string
	err := r.pool.QueryRow(ctx, query, customerID, productID, domain.FulfillmentDelivered).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("find delivered order: %w", err)
	}

	return orderID, nil
}

// scanOrder reads the order row without its items.
func (r *OrderRepository) scanOrder(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, customer_id, status, payment_status, subtotal_amount, shipping_amount,
		       tax_amount, total_amount, currency, shipping_address_id, billing_address_id,
		       payment_method, notes, created_at, updated_at
		FROM orders
		WHERE id = $1`

	var o domain.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.CustomerID,
		&o.Status,
		&o.PaymentStatus,
		&o.SubtotalAmount,
		&o.ShippingAmount,
		&o.TaxAmount,
		&o.TotalAmount,
		&o.Currency,
		&o.ShippingAddressID,
		&o.BillingAddressID,
		&o.PaymentMethod,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	return &o, nil
}

// loadLineItems retrieves the order's line items, optionally scoped to one
// vendor in the query itself.
func (r *OrderRepository) loadLineItems(ctx context.Context, orderID, vendorID string) ([]domain.LineItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM order_line_items
		WHERE order_id = $1`, lineItemColumns)
	args := []any{orderID}
	if vendorID != "" {
		query += " AND vendor_id = $2"
		args = append(args, vendorID)
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line item rows: %w", err)
	}

	return items, nil
}

func scanLineItem(rows pgx.Rows) (domain.LineItem, error) {
	var item domain.LineItem
	if err := rows.Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.VariantID,
		&item.VendorID,
		&item.Name,
		&item.SKU,
		&item.UnitPrice,
		&item.CommissionRateBps,
		&item.Quantity,
		&item.FulfillmentStatus,
		&item.TrackingNumber,
		&item.Carrier,
		&item.FulfillmentNotes,
	); err != nil {
		return domain.LineItem{}, fmt.Errorf("scan line item: %w", err)
	}
	return item, nil
}
