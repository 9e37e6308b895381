package models

import "time"

// RunRecord is the immutable audit entry for one utterance-to-resolution
// cycle.
type RunRecord struct {
	RunID           string       `json:"run_id" bson:"run_id"`
	Timestamp       time.Time    `json:"timestamp" bson:"timestamp"`
	UserPrompt      string       `json:"user_prompt" bson:"user_prompt"`
	ProductName     string       `json:"product_name" bson:"product_name"`
	Quantity        int          `json:"quantity" bson:"quantity"`
	Decision        DecisionKind `json:"decision" bson:"decision"`
	OrderID         string       `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Approved        bool         `json:"approved" bson:"approved"`
	CommitOK        bool         `json:"commit_ok" bson:"commit_ok"`
	ResponseText    string       `json:"response_text" bson:"response_text"`
	LatencyMs       int64        `json:"latency_ms" bson:"latency_ms"`
	TraceCount      int          `json:"trace_count" bson:"trace_count"`
	Trace           []TraceEvent `json:"trace" bson:"trace"`
	SuggestionScore int          `json:"suggestion_score" bson:"suggestion_score"`
}

type RunSummary struct {
	TotalRuns          int     `json:"total_runs"`
	Approved           int     `json:"approved"`
	Rejected           int     `json:"rejected"`
	SuccessRate        float64 `json:"success_rate"`
	AvgLatencyMs       int64   `json:"avg_latency_ms"`
	AvgSuggestionScore int     `json:"avg_suggestion_score"`
}

type ProductOrderCount struct {
	ProductName string `json:"product_name"`
	Orders      int    `json:"orders"`
}

type DashboardSummary struct {
	Runs        RunSummary          `json:"runs"`
	TopProducts []ProductOrderCount `json:"top_products"`
	TotalOrders int                 `json:"total_orders"`
	TotalStock  int                 `json:"total_stock"`
}

type LayerStatus string

const (
	LayerPass LayerStatus = "PASS"
	LayerFail LayerStatus = "FAIL"
	LayerNA   LayerStatus = "N/A"
)

type SecurityLayer struct {
	Layer  string      `json:"layer"`
	Status LayerStatus `json:"status"`
}
