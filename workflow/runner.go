package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"threadpilot/streamers"
	"threadpilot/task"
)

// Executor runs a single task and returns its result
type Executor interface {
	Execute(ctx context.Context, rec *task.Record) (*task.Result, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, rec *task.Record) (*task.Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, rec *task.Record) (*task.Result, error) {
	return f(ctx, rec)
}

// ErrNoResult is returned for an executor that reports neither a result nor an error
var ErrNoResult = errors.New("executor returned no result")

// CompletedText is the final progress text of every run
const CompletedText = "✅ all tasks complete."

// Runner executes ordered tasks one at a time
type Runner struct {
	executor Executor
	log      hclog.Logger
	events   EventLogger
}

// NewRunner creates a Runner. log and events may be nil.
func NewRunner(executor Executor, log hclog.Logger, events EventLogger) *Runner {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if events == nil {
		events = NopEvents{}
	}
	return &Runner{executor: executor, log: log, events: events}
}

// Run executes tasks strictly in order. A failing task is reported on the progress
// message and the remaining tasks still run. Progress failures are logged only.
func (r *Runner) Run(ctx context.Context, tasks []*task.Record, out streamers.ThreadHandler, h streamers.Handle) {
	total := len(tasks)
	for i, rec := range tasks {
		r.progress(ctx, out, h, fmt.Sprintf("⚙️ task %d/%d: %s in progress...", i+1, total, rec.Description))

		rec.Status = task.StatusRunning
		r.events.LogEvent(EventTaskStarted, map[string]any{
			"task_id":   rec.ID,
			"task_type": string(rec.Type),
			"index":     i + 1,
			"total":     total,
		})

		start := time.Now()
		result, err := r.execute(ctx, rec)
		rec.Elapsed = time.Since(start)

		if err != nil {
			rec.Status = task.StatusFailed
			rec.Err = err.Error()
			r.log.Error("task failed", "task_id", rec.ID, "task_type", rec.Type, "error", err)
			r.events.LogEvent(EventTaskFailed, map[string]any{
				"task_id": rec.ID,
				"error":   err.Error(),
				"elapsed": rec.Elapsed.String(),
			})
			r.progress(ctx, out, h, fmt.Sprintf("❌ error while processing %s: %v", rec.Description, err))
			continue
		}

		rec.Status = task.StatusDone
		rec.Result = result
		r.log.Info("task completed", "task_id", rec.ID, "elapsed", rec.Elapsed.Round(time.Millisecond))
		r.events.LogEvent(EventTaskCompleted, map[string]any{
			"task_id": rec.ID,
			"kind":    string(result.Kind),
			"elapsed": rec.Elapsed.String(),
		})

		r.deliver(ctx, out, h, result, rec)
	}

	r.progress(ctx, out, h, CompletedText)
}

// execute calls the executor, turning panics and empty results into errors
func (r *Runner) execute(ctx context.Context, rec *task.Record) (result *task.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("executor panic: %v", p)
		}
	}()

	result, err = r.executor.Execute(ctx, rec)
	if err == nil && result == nil {
		err = ErrNoResult
	}
	return result, err
}

// deliver hands the result to the sink; a panicking sink only loses this result
func (r *Runner) deliver(ctx context.Context, out streamers.ResultSink, h streamers.Handle, result *task.Result, rec *task.Record) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("result delivery panicked", "task_id", rec.ID, "panic", fmt.Sprint(p))
		}
	}()
	out.Deliver(ctx, h, result, rec)
}

func (r *Runner) progress(ctx context.Context, out streamers.ProgressSink, h streamers.Handle, text string) {
	if err := out.Update(ctx, h, text); err != nil {
		r.log.Warn("failed to update progress", "error", err)
	}
}
