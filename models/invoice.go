package models

import (
	"strings"
	"time"
)

type Invoice struct {
	InvoiceID     string    `json:"invoice_id"`
	OrderID       string    `json:"order_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	UnitPrice     float64   `json:"unit_price"`
	TotalPaid     float64   `json:"total_paid"`
	CustomerEmail string    `json:"customer_email"`
	PaidAt        time.Time `json:"paid_at"`
}

// InvoiceIDFor derives the invoice number from the order id.
func InvoiceIDFor(orderID string) string {
	id := orderID
	if len(id) > 8 {
		id = id[:8]
	}
	return "INV-" + strings.ToUpper(id)
}
