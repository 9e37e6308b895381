package services

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"go.uber.org/zap"
)

// RunLedger records finalized runs: the bounded history, the optional
// archive, metrics and a log line.
type RunLedger struct {
	history repository.RunRepository
	archive repository.RunArchive
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewRunLedger accepts a nil archive and nil metrics.
func NewRunLedger(history repository.RunRepository, archive repository.RunArchive, metrics MetricsRecorder, logger *zap.Logger) *RunLedger {
	return &RunLedger{history: history, archive: archive, metrics: metrics, logger: logger}
}

// Record persists run. Storage failures are logged, not returned: the
// caller has already reached a terminal state and must report it.
func (l *RunLedger) Record(ctx context.Context, run *models.RunRecord) {
	fields := []zap.Field{
		zap.String("run_id", run.RunID),
		zap.String("product", run.ProductName),
		zap.Int("quantity", run.Quantity),
		zap.String("decision", string(run.Decision)),
		zap.Bool("approved", run.Approved),
		zap.Bool("commit_ok", run.CommitOK),
		zap.Int("suggestion_score", run.SuggestionScore),
		zap.Int64("latency_ms", run.LatencyMs),
	}
	l.logger.Info("run finalized", fields...)

	if err := l.history.Append(ctx, run); err != nil {
		l.logger.Error("failed to append run to history", append(fields, zap.Error(err))...)
	}
	if l.archive != nil {
		if err := l.archive.Archive(ctx, run); err != nil {
			l.logger.Error("failed to archive run", append(fields, zap.Error(err))...)
		}
	}

	dims := map[string]string{"Decision": string(run.Decision)}
	if run.Approved {
		recordCount(ctx, l.metrics, MetricRunsApproved, dims)
	} else {
		recordCount(ctx, l.metrics, MetricRunsRejected, dims)
	}
	recordValue(ctx, l.metrics, MetricSuggestionScore, float64(run.SuggestionScore), nil)
	recordLatency(ctx, l.metrics, MetricRunLatency, time.Duration(run.LatencyMs)*time.Millisecond, nil)
}

func (l *RunLedger) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	return l.history.List(ctx, limit)
}

// ListByProduct returns a product's runs newest first, from the archive
// when there is one and otherwise from the recent history.
func (l *RunLedger) ListByProduct(ctx context.Context, productName string, limit int) ([]models.RunRecord, error) {
	if l.archive != nil {
		return l.archive.ListByProduct(ctx, productName, int64(limit))
	}
	runs, err := l.history.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	key := models.NormalizeText(productName)
	var out []models.RunRecord
	for _, r := range runs {
		if models.NormalizeText(r.ProductName) != key {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Find looks in the archive first, then the recent history.
func (l *RunLedger) Find(ctx context.Context, runID string) (*models.RunRecord, error) {
	if l.archive != nil {
		run, err := l.archive.Get(ctx, runID)
		if err == nil {
			return run, nil
		}
		if !errors.Is(err, repository.ErrRunNotFound) {
			l.logger.Warn("run archive lookup failed", zap.String("run_id", runID), zap.Error(err))
		}
	}
	runs, err := l.history.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].RunID == runID {
			return &runs[i], nil
		}
	}
	return nil, repository.ErrRunNotFound
}

// Summarize aggregates runs. Success rate is a percentage with one
// decimal; averages are rounded.
func Summarize(runs []models.RunRecord) models.RunSummary {
	s := models.RunSummary{TotalRuns: len(runs)}
	if len(runs) == 0 {
		return s
	}
	var latency int64
	score := 0
	for _, r := range runs {
		if r.Approved {
			s.Approved++
		} else {
			s.Rejected++
		}
		latency += r.LatencyMs
		score += r.SuggestionScore
	}
	n := len(runs)
	s.SuccessRate = float64(int(float64(s.Approved)*1000/float64(n)+0.5)) / 10
	s.AvgLatencyMs = (latency + int64(n)/2) / int64(n)
	s.AvgSuggestionScore = (score + n/2) / n
	return s
}
