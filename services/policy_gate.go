package services

import (
	"context"
	"errors"

	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
)

// DecisionEngine turns an Intent into a Decision. An error means the
// engine could not decide (collaborator unavailable), never a rejection.
type DecisionEngine interface {
	Evaluate(ctx context.Context, intent models.Intent) (models.Decision, error)
}

// ProductLookup is the slice of the inventory store the gate needs.
type ProductLookup interface {
	GetProduct(ctx context.Context, name string) (*models.Product, error)
}

// LocalDecisionEngine evaluates policy against the inventory store directly.
type LocalDecisionEngine struct {
	products ProductLookup
}

func NewLocalDecisionEngine(products ProductLookup) *LocalDecisionEngine {
	return &LocalDecisionEngine{products: products}
}

func (e *LocalDecisionEngine) Evaluate(ctx context.Context, intent models.Intent) (models.Decision, error) {
	if !intent.Resolved() {
		return models.Decision{Kind: models.DecisionRejectUnresolved, Quantity: intent.Quantity}, nil
	}

	product, err := e.products.GetProduct(ctx, intent.ProductName)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Decision{
			Kind:        models.DecisionRejectNotFound,
			ProductName: intent.ProductName,
			Quantity:    intent.Quantity,
		}, nil
	}
	if err != nil {
		return models.Decision{}, apperrors.CollaboratorUnavailable("inventory store", err)
	}
	return EvaluateProduct(*product, intent.Quantity), nil
}

// EvaluateProduct applies the gate rules to a product that exists.
// Prescription is checked before stock.
func EvaluateProduct(product models.Product, quantity int) models.Decision {
	d := models.Decision{
		ProductName: product.Name,
		Product:     &product,
		Quantity:    quantity,
	}
	switch {
	case product.RequiresPrescription:
		d.Kind = models.DecisionRejectPrescriptionRequired
	case product.Stock < quantity:
		d.Kind = models.DecisionRejectInsufficientStock
	default:
		d.Kind = models.DecisionApprove
		d.UnitPrice = product.UnitPrice
		d.TotalPrice = product.UnitPrice * float64(quantity)
	}
	return d
}
