package workflow

import (
	"github.com/hashicorp/go-hclog"
)

// Event types emitted by the workflow
const (
	EventWorkflowStarted   = "workflow_started"
	EventWorkflowCompleted = "workflow_completed"
	EventWorkflowFailed    = "workflow_failed"
	EventTaskStarted       = "task_started"
	EventTaskCompleted     = "task_completed"
	EventTaskFailed        = "task_failed"
	EventCycleBroken       = "cycle_broken"
	EventSchedulingStalled = "scheduling_stalled"
)

// EventLogger is the interface for logging structured events during execution.
// Events are a side channel and never affect control flow.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any)
}

// NopEvents discards every event
type NopEvents struct{}

func (NopEvents) LogEvent(string, map[string]any) {}

// HCLogEvents writes events to an hclog logger at debug level
type HCLogEvents struct {
	Logger hclog.Logger
}

func (e *HCLogEvents) LogEvent(eventType string, data map[string]any) {
	args := make([]any, 0, len(data)*2+2)
	args = append(args, "event", eventType)
	for k, v := range data {
		args = append(args, k, v)
	}
	e.Logger.Debug("workflow event", args...)
}

// contextEventLogger wraps an EventLogger and adds context fields to every event
type contextEventLogger struct {
	inner  EventLogger
	fields map[string]any
}

// WithFields returns an EventLogger that merges fields into every event
func WithFields(inner EventLogger, fields map[string]any) EventLogger {
	if inner == nil {
		inner = NopEvents{}
	}
	return &contextEventLogger{inner: inner, fields: fields}
}

func (l *contextEventLogger) LogEvent(eventType string, data map[string]any) {
	merged := make(map[string]any, len(l.fields)+len(data))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	l.inner.LogEvent(eventType, merged)
}

// multiEventLogger fans every event out to several loggers
type multiEventLogger []EventLogger

// Tee returns an EventLogger that forwards every event to each non-nil logger
func Tee(loggers ...EventLogger) EventLogger {
	var out multiEventLogger
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (m multiEventLogger) LogEvent(eventType string, data map[string]any) {
	for _, l := range m {
		l.LogEvent(eventType, data)
	}
}
