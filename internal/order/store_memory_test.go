package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_ListKeepsInsertionOrder(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for _, id := range []string{"pi_c", "pi_a", "pi_b"} {
		require.NoError(t, s.Put(ctx, Order{PaymentIntentID: id, OrderID: "o-" + id}))
	}
	// Overwrite keeps the original slot.
	require.NoError(t, s.Put(ctx, Order{PaymentIntentID: "pi_c", OrderID: "o-new"}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "o-new", all[0].OrderID)
	assert.Equal(t, "pi_a", all[1].PaymentIntentID)
	assert.Equal(t, "pi_b", all[2].PaymentIntentID)
}

func TestMemStore_UpdateStatus(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	_, err := s.UpdateStatus(ctx, "pi_x", StatusFailed, at)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, Order{PaymentIntentID: "pi_x", Status: StatusCompleted}))

	o, err := s.UpdateStatus(ctx, "pi_x", StatusFailed, at)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, o.Status)
	require.NotNil(t, o.UpdatedAt)
	assert.Equal(t, at, *o.UpdatedAt)

	got, found, err := s.Get(ctx, "pi_x")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, o, got)
}
