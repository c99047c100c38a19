package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVariantID(t *testing.T) {
	assert.Equal(t, DefaultVariantID, NormalizeVariantID(""))
	assert.Equal(t, "blue-xl", NormalizeVariantID("blue-xl"))
}

func TestCartTotals(t *testing.T) {
	cart := &Cart{
		Items: []CartItem{
			{ProductID: "p1", VariantID: DefaultVariantID, Price: 1000, Quantity: 2},
			{ProductID: "p2", VariantID: "v1", Price: 2500, Quantity: 3},
		},
	}

	assert.Equal(t, int64(9500), cart.TotalAmount())
	assert.Equal(t, 5, cart.ItemCount())
}

func TestFindItemIndex(t *testing.T) {
	cart := &Cart{
		Items: []CartItem{
			{ProductID: "p1", VariantID: DefaultVariantID},
			{ProductID: "p1", VariantID: "v1"},
		},
	}

	assert.Equal(t, 0, cart.FindItemIndex("p1", DefaultVariantID))
	assert.Equal(t, 1, cart.FindItemIndex("p1", "v1"))
	assert.Equal(t, -1, cart.FindItemIndex("p2", DefaultVariantID))
	assert.Equal(t, -1, cart.FindItemIndex("p1", "v2"))
}
