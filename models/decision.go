package models

import "fmt"

type DecisionKind string

const (
	DecisionApprove                    DecisionKind = "APPROVE"
	DecisionRejectUnresolved           DecisionKind = "REJECT_UNRESOLVED"
	DecisionRejectNotFound             DecisionKind = "REJECT_NOT_FOUND"
	DecisionRejectPrescriptionRequired DecisionKind = "REJECT_PRESCRIPTION_REQUIRED"
	DecisionRejectInsufficientStock    DecisionKind = "REJECT_INSUFFICIENT_STOCK"
)

// ParseDecisionKind rejects anything outside the closed set so an
// unknown value can never be mistaken for an approval.
func ParseDecisionKind(s string) (DecisionKind, error) {
	switch k := DecisionKind(s); k {
	case DecisionApprove, DecisionRejectUnresolved, DecisionRejectNotFound,
		DecisionRejectPrescriptionRequired, DecisionRejectInsufficientStock:
		return k, nil
	}
	return "", fmt.Errorf("unknown decision kind %q", s)
}

// Decision is the Policy Gate verdict. Which fields are meaningful
// depends on Kind:
//
//	REJECT_UNRESOLVED              Quantity
//	REJECT_NOT_FOUND               ProductName, Quantity
//	REJECT_PRESCRIPTION_REQUIRED   Product, Quantity
//	REJECT_INSUFFICIENT_STOCK      Product, Quantity (Product.Stock is the available count)
//	APPROVE                        Product, Quantity, UnitPrice, TotalPrice
type Decision struct {
	Kind        DecisionKind `json:"kind"`
	ProductName string       `json:"product_name,omitempty"`
	Product     *Product     `json:"product,omitempty"`
	Quantity    int          `json:"quantity"`
	UnitPrice   float64      `json:"unit_price,omitempty"`
	TotalPrice  float64      `json:"total_price,omitempty"`
}

func (d Decision) Approved() bool {
	return d.Kind == DecisionApprove
}
