package models

// Intent is the structured reading of one utterance.
// ProductName is empty when no catalog product could be identified.
type Intent struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

func (i Intent) Resolved() bool {
	return i.ProductName != ""
}
