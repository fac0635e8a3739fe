package store

import (
	"encoding/json"

	"github.com/hashicorp/go-hclog"
)

// EventRecorder persists workflow events into a RunStore. The request_id and
// task_id fields of each event become columns; the rest is stored as JSON.
type EventRecorder struct {
	runs RunStore
	log  hclog.Logger
}

// NewEventRecorder creates an EventRecorder. Store failures are logged, never returned.
func NewEventRecorder(runs RunStore, logger hclog.Logger) *EventRecorder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &EventRecorder{runs: runs, log: logger}
}

func (r *EventRecorder) LogEvent(eventType string, data map[string]any) {
	event := RunEvent{EventType: eventType}

	rest := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case "request_id":
			event.RequestID, _ = v.(string)
		case "task_id":
			if id, ok := v.(string); ok {
				event.TaskID = &id
			}
		default:
			rest[k] = v
		}
	}

	if event.RequestID == "" {
		r.log.Warn("dropping event without request id", "event", eventType)
		return
	}

	raw, err := json.Marshal(rest)
	if err != nil {
		r.log.Warn("failed to encode event data", "event", eventType, "error", err)
		raw = []byte("{}")
	}
	event.DataJSON = string(raw)

	if err := r.runs.StoreEvent(event); err != nil {
		r.log.Warn("failed to store event", "event", eventType, "error", err)
	}
}
