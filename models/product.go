package models

import "time"

// Product is a catalog entry as held by the inventory store.
type Product struct {
	Name                 string  `json:"name" dynamodbav:"name"`
	Stock                int     `json:"stock" dynamodbav:"stock"`
	UnitPrice            float64 `json:"unit_price" dynamodbav:"price"`
	RequiresPrescription bool    `json:"requires_prescription" dynamodbav:"requires_prescription"`
}

// Order is a committed purchase.
type Order struct {
	OrderID     string    `json:"order_id" dynamodbav:"order_id"`
	ProductName string    `json:"product_name" dynamodbav:"product_name"`
	Quantity    int       `json:"quantity" dynamodbav:"quantity"`
	UnitPrice   float64   `json:"unit_price" dynamodbav:"unit_price"`
	TotalPrice  float64   `json:"total_price" dynamodbav:"total_price"`
	Status      string    `json:"status" dynamodbav:"status"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
}

const OrderStatusCommitted = "COMMITTED"

// CommitResult is what the store reports for an atomic order commit.
// A business failure (stock raced away, product vanished) is
// Success=false with a Reason, not an error.
type CommitResult struct {
	OrderID string `json:"order_id,omitempty"`
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}
