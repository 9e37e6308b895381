package services

import (
	"fmt"

	"github.com/yashrajoria/pharmacy-agent/models"
)

// TraceRecorder appends to a run's trace. Events already recorded are
// never modified; steps continue from the seed.
type TraceRecorder struct {
	events []models.TraceEvent
}

func NewTraceRecorder(seed []models.TraceEvent) *TraceRecorder {
	return &TraceRecorder{events: append([]models.TraceEvent(nil), seed...)}
}

func (r *TraceRecorder) Append(stage models.Stage, summary string) models.TraceEvent {
	ev := models.TraceEvent{Step: len(r.events) + 1, Stage: stage, Summary: summary}
	r.events = append(r.events, ev)
	return ev
}

func (r *TraceRecorder) Appendf(stage models.Stage, format string, args ...interface{}) models.TraceEvent {
	return r.Append(stage, fmt.Sprintf(format, args...))
}

// Events returns a copy.
func (r *TraceRecorder) Events() []models.TraceEvent {
	return append([]models.TraceEvent(nil), r.events...)
}

func (r *TraceRecorder) Len() int {
	return len(r.events)
}

// ValidateTrace checks that steps run 1..n without gaps.
func ValidateTrace(events []models.TraceEvent) error {
	for i, ev := range events {
		if ev.Step != i+1 {
			return fmt.Errorf("trace step %d at position %d, want %d", ev.Step, i, i+1)
		}
	}
	return nil
}
