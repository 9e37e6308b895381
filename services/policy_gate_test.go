package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"github.com/yashrajoria/pharmacy-agent/services"
)

type failingLookup struct{}

func (failingLookup) GetProduct(ctx context.Context, name string) (*models.Product, error) {
	return nil, errors.New("connection reset")
}

func TestLocalDecisionEngine(t *testing.T) {
	store := repository.NewMemoryInventoryRepository(paracetamol(), amoxicillin())
	engine := services.NewLocalDecisionEngine(store)
	ctx := context.Background()

	tests := []struct {
		name   string
		intent models.Intent
		want   models.DecisionKind
	}{
		{"unresolved", models.Intent{Quantity: 2}, models.DecisionRejectUnresolved},
		{"not found", models.Intent{ProductName: "Ghost", Quantity: 1}, models.DecisionRejectNotFound},
		{"prescription", models.Intent{ProductName: "Amoxicillin", Quantity: 1}, models.DecisionRejectPrescriptionRequired},
		{"insufficient", models.Intent{ProductName: "ParacetamolXL", Quantity: 11}, models.DecisionRejectInsufficientStock},
		{"exact stock", models.Intent{ProductName: "paracetamolxl", Quantity: 10}, models.DecisionApprove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := engine.Evaluate(ctx, tt.intent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Kind)
			assert.Equal(t, tt.intent.Quantity, d.Quantity)
		})
	}
}

func TestLocalDecisionEngine_ApprovePricing(t *testing.T) {
	engine := services.NewLocalDecisionEngine(repository.NewMemoryInventoryRepository(paracetamol()))

	d, err := engine.Evaluate(context.Background(), models.Intent{ProductName: "ParacetamolXL", Quantity: 3})

	require.NoError(t, err)
	assert.True(t, d.Approved())
	assert.Equal(t, 5.0, d.UnitPrice)
	assert.Equal(t, 15.0, d.TotalPrice)
	assert.Equal(t, "ParacetamolXL", d.Product.Name)
}

func TestLocalDecisionEngine_StoreFailureIsUnavailable(t *testing.T) {
	engine := services.NewLocalDecisionEngine(failingLookup{})

	_, err := engine.Evaluate(context.Background(), models.Intent{ProductName: "X", Quantity: 1})

	assert.ErrorIs(t, err, apperrors.ErrCollaboratorUnavailable)
}

func TestEvaluateProduct_PrescriptionBeforeStock(t *testing.T) {
	rx := amoxicillin()
	rx.Stock = 0

	d := services.EvaluateProduct(rx, 5)

	assert.Equal(t, models.DecisionRejectPrescriptionRequired, d.Kind)
	assert.Zero(t, d.TotalPrice)
}
