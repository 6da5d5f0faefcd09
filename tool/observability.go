package tool

import (
	"context"
	"time"
)

// InvokeObservation captures one tool call outcome.
type InvokeObservation struct {
	ToolName  string
	Duration  time.Duration
	Success   bool
	ErrorCode string
}

// Observer receives tool-level observability events.
type Observer interface {
	ObserveInvoke(ctx context.Context, observation InvokeObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveInvoke(context.Context, InvokeObservation) {}
