package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SetActive_Deactivate(t *testing.T) {
	c := &Client{ID: 1, Active: true}
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	c.SetActive(false, now)

	assert.False(t, c.Active)
	require.NotNil(t, c.DeactivatedAt)
	assert.Equal(t, now, *c.DeactivatedAt)
}

func TestClient_SetActive_Reactivate(t *testing.T) {
	then := time.Now().UTC()
	c := &Client{ID: 1, Active: false, DeactivatedAt: &then}

	c.SetActive(true, time.Now())

	assert.True(t, c.Active)
	assert.Nil(t, c.DeactivatedAt)
}

func TestClient_SetActive_NoChange(t *testing.T) {
	then := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &Client{ID: 1, Active: false, DeactivatedAt: &then}

	// Re-deactivating must not move the timestamp.
	c.SetActive(false, time.Now())

	require.NotNil(t, c.DeactivatedAt)
	assert.Equal(t, then, *c.DeactivatedAt)
}

func TestOrder_Key(t *testing.T) {
	o := &Order{
		ID:         99,
		Title:      "Coal delivery",
		SupplierID: 1,
		ConsumerID: 2,
		Price:      decimal.RequireFromString("150.50"),
	}

	assert.Equal(t, BusinessKey{Title: "Coal delivery", SupplierID: 1, ConsumerID: 2}, o.Key())

	// Same key with a different ID and price: still equal.
	other := &Order{ID: 100, Title: "Coal delivery", SupplierID: 1, ConsumerID: 2, Price: decimal.NewFromInt(7)}
	assert.Equal(t, o.Key(), other.Key())
}
