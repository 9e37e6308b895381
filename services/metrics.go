package services

import (
	"context"
	"time"

	awspkg "github.com/yashrajoria/pharmacy-agent/pkg/aws"
)

// MetricsRecorder is satisfied by *aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

const (
	MetricRunsApproved     = awspkg.MetricRunsApproved
	MetricRunsRejected     = awspkg.MetricRunsRejected
	MetricOrdersCommitted  = awspkg.MetricOrdersCommitted
	MetricCommitFailed     = awspkg.MetricCommitFailed
	MetricSuggestionScore  = awspkg.MetricSuggestionScore
	MetricRunLatency       = awspkg.MetricRunLatency
	MetricInvoicesSent     = awspkg.MetricInvoicesSent
	MetricCatalogRefreshes = awspkg.MetricCatalogRefreshes
)

const metricsTimeout = 5 * time.Second

// Metrics are sent in the background and their errors dropped.
func recordCount(_ context.Context, m MetricsRecorder, name string, dims map[string]string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
		defer cancel()
		_ = m.RecordCount(ctx, name, dims)
	}()
}

func recordValue(_ context.Context, m MetricsRecorder, name string, v float64, dims map[string]string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
		defer cancel()
		_ = m.RecordValue(ctx, name, v, dims)
	}()
}

func recordLatency(_ context.Context, m MetricsRecorder, name string, d time.Duration, dims map[string]string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
		defer cancel()
		_ = m.RecordLatency(ctx, name, d, dims)
	}()
}
