package models

import (
	"fmt"
	"time"
)

type CheckoutStage string

const (
	CheckoutStageConfirm CheckoutStage = "confirm"
	CheckoutStagePayment CheckoutStage = "payment"
)

type CheckoutAction string

const (
	CheckoutActionConfirm CheckoutAction = "confirm"
	CheckoutActionCancel  CheckoutAction = "cancel"
	CheckoutActionPay     CheckoutAction = "pay"
)

func ParseCheckoutAction(s string) (CheckoutAction, error) {
	switch a := CheckoutAction(s); a {
	case CheckoutActionConfirm, CheckoutActionCancel, CheckoutActionPay:
		return a, nil
	}
	return "", fmt.Errorf("unknown checkout action %q", s)
}

// CheckoutPayload carries the caller-supplied data for an action.
// Email is only read for pay.
type CheckoutPayload struct {
	SessionID string `json:"checkout_id"`
	Email     string `json:"email,omitempty"`
}

// CheckoutSession is the single in-flight approved order of a
// conversation. It exists only between approval and a terminal event.
type CheckoutSession struct {
	ID              string        `json:"id"`
	ConversationID  string        `json:"conversation_id"`
	Stage           CheckoutStage `json:"stage"`
	UserPrompt      string        `json:"user_prompt"`
	ProductName     string        `json:"product_name"`
	Quantity        int           `json:"quantity"`
	UnitPrice       float64       `json:"unit_price"`
	TotalPrice      float64       `json:"total_price"`
	CustomerEmail   string        `json:"customer_email,omitempty"`
	Trace           []TraceEvent  `json:"trace"`
	SuggestionScore int           `json:"suggestion_score"`
	ProcessingMs    int64         `json:"processing_ms"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
