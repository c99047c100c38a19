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

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product and its variants atomically.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productQuery := `
		INSERT INTO products (id, vendor_id, name, slug, description, price, currency, status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, productQuery,
		p.ID,
		p.VendorID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Currency,
		p.Status,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	variantQuery := `
		INSERT INTO product_variants (id, product_id, name, sku, price, inventory)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, v := range p.Variants {
		_, err = tx.Exec(ctx, variantQuery,
			v.ID,
			v.ProductID,
			v.Name,
			v.SKU,
			v.Price,
			v.Inventory,
		)
		if err != nil {
			return fmt.Errorf("insert product variant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID, eagerly loading its variants.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, vendor_id, name, slug, description, price, currency, status, is_active,
		       reviewed_by, reviewed_at, review_notes, created_at, updated_at
		FROM products
		WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.VendorID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.Status,
		&p.IsActive,
		&p.ReviewedBy,
		&p.ReviewedAt,
		&p.ReviewNotes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	variants, err := r.loadVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Variants = variants

	return &p, nil
}

// Update persists listing field changes.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.pool.Exec(ctx, query, p.Name, p.Slug, p.Description, p.Price, time.Now().UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// UpdateStatus moves the product to the given moderation status, recording
// the decision metadata when a reviewer made one.
func (r *ProductRepository) UpdateStatus(ctx context.Context, id, status, reviewedBy, notes string, reviewedAt *time.Time) error {
	query := `
		UPDATE products
		SET status = $1, reviewed_by = $2, reviewed_at = $3, review_notes = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.pool.Exec(ctx, query, status, reviewedBy, reviewedAt, notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update product status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// SetActive flips the vendor-controlled active flag.
func (r *ProductRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE products
		SET is_active = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set product active: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// List returns products matching the given filter with the total count.
// PurchasableOnly joins against vendors so suspended vendors' listings drop
// out of results without any write to the products themselves.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.VendorID != nil {
		conditions = append(conditions, fmt.Sprintf("p.vendor_id = $%d", argIndex))
		args = append(args, *filter.VendorID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.PurchasableOnly {
		conditions = append(conditions, "p.status = 'approved'", "p.is_active", "v.is_active")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.vendor_id, p.name, p.slug, p.description, p.price, p.currency, p.status, p.is_active,
		       p.reviewed_by, p.reviewed_at, p.review_notes, p.created_at, p.updated_at,
		       count(*) OVER() AS total_count
		FROM products p
		JOIN vendors v ON v.id = p.vendor_id
		%s
		ORDER BY p.created_at DESC
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
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var totalCount int
	products := make([]domain.Product, 0)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.VendorID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Price,
			&p.Currency,
			&p.Status,
			&p.IsActive,
			&p.ReviewedBy,
			&p.ReviewedAt,
			&p.ReviewNotes,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	// Batch-load variants for all products in a single query to avoid N+1.
	if len(products) > 0 {
		productIDs := make([]string, len(products))
		for i := range products {
			productIDs[i] = products[i].ID
		}

		variantQuery := `
			SELECT id, product_id, name, sku, price, inventory
			FROM product_variants
			WHERE product_id = ANY($1)
			ORDER BY id`

		variantRows, err := r.pool.Query(ctx, variantQuery, productIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load variants: %w", err)
		}
		defer variantRows.Close()

		variantsByProduct := make(map[string][]domain.ProductVariant, len(products))
		for variantRows.Next() {
			var v domain.ProductVariant
			if err := variantRows.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Price, &v.Inventory); err != nil {
				return nil, 0, fmt.Errorf("scan variant row: %w", err)
			}
			variantsByProduct[v.ProductID] = append(variantsByProduct[v.ProductID], v)
		}
		if err := variantRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate variant rows: %w", err)
		}

		for i := range products {
			products[i].Variants = variantsByProduct[products[i].ID]
		}
	}

	return products, totalCount, nil
}

// loadVariants retrieves all variants belonging to a given product.
func (r *ProductRepository) loadVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, name, sku, price, inventory
		FROM product_variants
		WHERE product_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.ProductVariant
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Price, &v.Inventory); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return variants, nil
}
