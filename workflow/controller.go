// Package workflow sequences a request from classification to task execution.
package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"threadpilot/streamers"
	"threadpilot/task"
)

// Apology is posted when a request fails outside the per-task boundaries
const Apology = "⚠️ Sorry, something went wrong while processing your request. Please try again shortly."

// AnalyzingText is the first progress text of every request
const AnalyzingText = "🤖 analyzing your request..."

// Classifier produces an intent document for a message. It must not fail.
type Classifier interface {
	Classify(ctx context.Context, message string, reqCtx *task.RequestContext) task.IntentDocument
}

// Controller runs the full pipeline for a request. It holds no per-request
// state, so one Controller may serve concurrent requests.
type Controller struct {
	classifier Classifier
	executor   Executor
	log        hclog.Logger
	events     EventLogger
}

// ControllerOptions configures a Controller
type ControllerOptions struct {
	Classifier Classifier
	Executor   Executor
	Logger     hclog.Logger
	Events     EventLogger
}

// NewController creates a Controller
func NewController(opts ControllerOptions) *Controller {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	events := opts.Events
	if events == nil {
		events = NopEvents{}
	}
	return &Controller{
		classifier: opts.Classifier,
		executor:   opts.Executor,
		log:        log,
		events:     events,
	}
}

// Handle processes one message. Errors never escape: anything not contained by
// the classifier or the runner ends in a single apology on the thread.
func (c *Controller) Handle(ctx context.Context, message string, reqCtx *task.RequestContext, out streamers.ThreadHandler) {
	// the caller's context is left untouched
	local := task.RequestContext{}
	if reqCtx != nil {
		local = *reqCtx
	}
	reqCtx = &local
	if reqCtx.RequestID == "" {
		reqCtx.RequestID = uuid.New().String()
	}

	log := c.log.With("request_id", reqCtx.RequestID, "user_id", reqCtx.UserID)
	events := WithFields(c.events, map[string]any{"request_id": reqCtx.RequestID})

	log.Info("processing request",
		"message_length", len(message),
		"thread_length", reqCtx.ThreadLength(),
		"has_media", reqCtx.HasMedia())

	if err := c.handle(ctx, message, reqCtx, out, log, events); err != nil {
		log.Error("request failed", "error", err, "message", truncate(message, 100))
		events.LogEvent(EventWorkflowFailed, map[string]any{"error": err.Error()})
		if sayErr := out.Say(ctx, Apology); sayErr != nil {
			log.Error("failed to send apology", "error", sayErr)
		}
	}
}

func (c *Controller) handle(ctx context.Context, message string, reqCtx *task.RequestContext, out streamers.ThreadHandler, log hclog.Logger, events EventLogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	h, err := out.Start(ctx, AnalyzingText)
	if err != nil {
		return fmt.Errorf("posting progress message: %w", err)
	}

	doc := c.classifier.Classify(ctx, message, reqCtx)
	log.Info("intent resolved", "intent", doc.Summary, "task_count", len(doc.Tasks), "strategy", doc.Strategy)

	records := task.Compile(doc, reqCtx)
	ordered := NewScheduler(log.Named("scheduler"), events).Order(records)
	events.LogEvent(EventWorkflowStarted, map[string]any{
		"intent":     doc.Summary,
		"task_count": len(ordered),
		"task_types": taskTypes(ordered),
	})

	runner := NewRunner(c.executor, log.Named("runner"), events)
	runner.progress(ctx, out, h, AnnounceText(len(ordered), doc.EstimatedSeconds))
	runner.Run(ctx, ordered, out, h)

	log.Info("request completed", "task_count", len(ordered))
	events.LogEvent(EventWorkflowCompleted, map[string]any{"task_count": len(ordered)})
	return nil
}

// AnnounceText is the progress text shown once tasks are known
func AnnounceText(count int, estimate string) string {
	if estimate == "" {
		return fmt.Sprintf("📋 processing %d task(s)... (estimated time: unknown)", count)
	}
	return fmt.Sprintf("📋 processing %d task(s)... (estimated time: %ss)", count, estimate)
}

func taskTypes(tasks []*task.Record) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = string(t.Type)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
