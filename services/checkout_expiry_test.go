package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"go.uber.org/zap"
)

func TestCheckoutMachine_IdleSessionExpires(t *testing.T) {
	ctx := context.Background()
	inventory := repository.NewMemoryInventoryRepository(models.Product{Name: "ParacetamolXL", Stock: 10, UnitPrice: 5})
	sessions := repository.NewMemorySessionRepository()
	runs := repository.NewMemoryRunRepository()

	m := NewCheckoutMachine(CheckoutDeps{
		Sessions:  sessions,
		Committer: inventory,
		Ledger:    NewRunLedger(runs, nil, nil, zap.NewNop()),
	}, CheckoutConfig{SessionTTL: 15 * time.Minute}, zap.NewNop())

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	product := models.Product{Name: "ParacetamolXL", Stock: 10, UnitPrice: 5}
	intent := models.Intent{ProductName: "ParacetamolXL", Quantity: 3}
	out, err := m.Start(ctx, "c1", "I need 3 ParacetamolXL", intent, EvaluateProduct(product, 3), clock)
	require.NoError(t, err)
	id := out.Pending.CheckoutID

	clock = clock.Add(10 * time.Minute)
	_, err = m.Confirm(ctx, "c1", id)
	require.NoError(t, err)

	// UpdatedAt moved with the confirm, so the session is still live here.
	clock = clock.Add(10 * time.Minute)
	active, err := m.Active(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, active)

	clock = clock.Add(20 * time.Minute)
	_, err = m.Pay(ctx, "c1", id, "buyer@example.com")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	history, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Approved)
	assert.Equal(t, "Expired after inactivity", history[0].Trace[len(history[0].Trace)-1].Summary)

	p, err := inventory.GetProduct(ctx, "ParacetamolXL")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
}
