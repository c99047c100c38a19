package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/pkg/database"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

// VendorRepository implements repository.VendorRepository using PostgreSQL.
type VendorRepository struct {
	pool database.DBTX
}

// NewVendorRepository creates a new PostgreSQL-backed vendor repository.
func NewVendorRepository(pool database.DBTX) *VendorRepository {
	return &VendorRepository{pool: pool}
}

// Create inserts a new vendor.
func (r *VendorRepository) Create(ctx context.Context, v *domain.Vendor) error {
	query := `
		INSERT INTO vendors (id, name, email, commission_rate_bps, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		v.ID,
		v.Name,
		v.Email,
		v.CommissionRateBps,
		v.IsActive,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}

	return nil
}

// GetByID retrieves a vendor by its ID.
func (r *VendorRepository) GetByID(ctx context.Context, id string) (*domain.Vendor, error) {
	query := `
		SELECT id, name, email, commission_rate_bps, is_active, created_at, updated_at
		FROM vendors
		WHERE id = $1`

	var v domain.Vendor
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.Name,
		&v.Email,
		&v.CommissionRateBps,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("vendor", id)
		}
		return nil, fmt.Errorf("scan vendor: %w", err)
	}

	return &v, nil
}

// UpdateCommissionRate changes the vendor's commission rate. Existing order
// line items keep the rate snapshotted at placement.
func (r *VendorRepository) UpdateCommissionRate(ctx context.Context, id string, rateBps int) error {
	query := `
		UPDATE vendors
		SET commission_rate_bps = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, rateBps, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update vendor commission rate: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("vendor", id)
	}

	return nil
}

// SetActive suspends or reactivates a vendor. Product purchasability is
// evaluated at query time, so no product rows are touched.
func (r *VendorRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE vendors
		SET is_active = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set vendor active: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("vendor", id)
	}

	return nil
}

// List returns vendors with the total count.
func (r *VendorRepository) List(ctx context.Context, page, perPage int) ([]domain.Vendor, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * perPage
	}

	query := `
		SELECT id, name, email, commission_rate_bps, is_active, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM vendors
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var totalCount int
	vendors := make([]domain.Vendor, 0)

	for rows.Next() {
		var v domain.Vendor
		if err := rows.Scan(
			&v.ID,
			&v.Name,
			&v.Email,
			&v.CommissionRateBps,
			&v.IsActive,
			&v.CreatedAt,
			&v.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan vendor row: %w", err)
		}
		vendors = append(vendors, v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vendor rows: %w", err)
	}

	return vendors, totalCount, nil
}
