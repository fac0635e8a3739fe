package streamers

import (
	"context"

	"threadpilot/task"
)

// Handle identifies a message posted to the thread (e.g. its timestamp) so it can be updated later
type Handle string

// ProgressSink posts and edits the progress message of a request.
// Failures are reported to the caller, who logs them and carries on.
type ProgressSink interface {
	// Start posts a new progress message and returns its handle
	Start(ctx context.Context, text string) (Handle, error)

	// Update replaces the text of a progress message
	Update(ctx context.Context, h Handle, text string) error
}

// ResultSink delivers one task result to the thread.
// Delivery errors are handled inside the sink (reported as a notice), never returned.
type ResultSink interface {
	Deliver(ctx context.Context, h Handle, result *task.Result, rec *task.Record)
}

// Notifier posts a standalone message to the thread
type Notifier interface {
	Say(ctx context.Context, text string) error
}

// ThreadHandler is everything a request needs to talk back to its conversation thread.
// Different implementations handle the terminal, the chat gateway, tests, etc.
type ThreadHandler interface {
	ProgressSink
	ResultSink
	Notifier
}
