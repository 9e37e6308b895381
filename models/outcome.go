package models

type OutcomeKind string

const (
	OutcomeCompleted       OutcomeKind = "completed"
	OutcomePendingCheckout OutcomeKind = "pending_checkout"
	OutcomeClarification   OutcomeKind = "clarification"
)

// PendingCheckout is the caller-facing view of a live session.
type PendingCheckout struct {
	CheckoutID      string        `json:"checkout_id"`
	Stage           CheckoutStage `json:"stage"`
	ProductName     string        `json:"product_name"`
	Quantity        int           `json:"quantity"`
	UnitPrice       float64       `json:"unit_price"`
	TotalPrice      float64       `json:"total_price"`
	SuggestionScore int           `json:"suggestion_score"`
	Trace           []TraceEvent  `json:"trace"`
}

func NewPendingCheckout(s *CheckoutSession) *PendingCheckout {
	trace := make([]TraceEvent, len(s.Trace))
	copy(trace, s.Trace)
	return &PendingCheckout{
		CheckoutID:      s.ID,
		Stage:           s.Stage,
		ProductName:     s.ProductName,
		Quantity:        s.Quantity,
		UnitPrice:       s.UnitPrice,
		TotalPrice:      s.TotalPrice,
		SuggestionScore: s.SuggestionScore,
		Trace:           trace,
	}
}

// Outcome is returned by every orchestrator operation. Exactly one of
// Run or Pending is set unless Kind is clarification.
type Outcome struct {
	Kind             OutcomeKind      `json:"kind"`
	Message          string           `json:"message"`
	Run              *RunRecord       `json:"run,omitempty"`
	Pending          *PendingCheckout `json:"pending,omitempty"`
	Invoice          *Invoice         `json:"invoice,omitempty"`
	InvoiceDelivered bool             `json:"invoice_delivered"`
	Notices          []string         `json:"notices,omitempty"`
}
