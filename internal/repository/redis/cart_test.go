package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
)

func newTestRepo(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCartRepository(client, time.Hour), mr
}

func testCart(version int) *domain.Cart {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items: []domain.CartItem{
			{ProductID: "prod-1", VariantID: domain.DefaultVariantID, VendorID: "vendor-1", Name: "Desk", Price: 45000, Quantity: 1},
		},
		Currency:  "USD",
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestCartRepository_SaveAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	cart := testCart(1)
	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, cart.Version, got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "prod-1", got.Items[0].ProductID)
}

func TestCartRepository_GetMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nobody")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_SaveIfVersion_NewCart(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// A cart that does not exist yet is saved with expected version 0.
	require.NoError(t, repo.SaveIfVersion(ctx, testCart(1), 0))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestCartRepository_SaveIfVersion_DetectsRace(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	cart := testCart(1)
	require.NoError(t, repo.SaveIfVersion(ctx, cart, 0))

	// Writer A read version 1 and bumps to 2.
	a := testCart(2)
	require.NoError(t, repo.SaveIfVersion(ctx, a, 1))

	// Writer B also read version 1; its write must lose.
	b := testCart(2)
	b.Items[0].Quantity = 99
	err := repo.SaveIfVersion(ctx, b, 1)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	// A's write survived.
	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 1, got.Items[0].Quantity)
}

func TestCartRepository_SaveIfVersion_MissingKeyRequiresZero(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.SaveIfVersion(context.Background(), testCart(5), 4)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCartRepository_TTL(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveIfVersion(ctx, testCart(1), 0))

	mr.FastForward(2 * time.Hour)

	_, err := repo.Get(ctx, "user-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Delete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testCart(1)))
	require.NoError(t, repo.Delete(ctx, "user-1"))

	_, err := repo.Get(ctx, "user-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Deleting an absent cart is not an error.
	require.NoError(t, repo.Delete(ctx, "user-1"))
}
