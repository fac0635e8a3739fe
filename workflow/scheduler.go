package workflow

import (
	"sort"

	"github.com/hashicorp/go-hclog"

	"threadpilot/task"
)

// Scheduler orders task records by dependency and priority
type Scheduler struct {
	log    hclog.Logger
	events EventLogger
}

// NewScheduler creates a Scheduler. Both arguments may be nil.
func NewScheduler(log hclog.Logger, events EventLogger) *Scheduler {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if events == nil {
		events = NopEvents{}
	}
	return &Scheduler{log: log, events: events}
}

// Order schedules tasks with a silent Scheduler
func Order(tasks []*task.Record) []*task.Record {
	return NewScheduler(nil, nil).Order(tasks)
}

// Order returns every input record exactly once, dependencies first and lower
// priority numbers earlier among tasks that are ready together. Cycles and
// references to unknown ids are broken by forcing the lowest priority number
// task of the remainder. Records are tracked by identity, so duplicate ids are fine.
func (s *Scheduler) Order(tasks []*task.Record) []*task.Record {
	sorted := make([]*task.Record, 0, len(tasks))
	scheduledIDs := make(map[string]bool, len(tasks))
	remaining := make([]*task.Record, len(tasks))
	copy(remaining, tasks)

	maxIterations := len(tasks) * 2
	for iteration := 0; len(remaining) > 0 && iteration < maxIterations; iteration++ {
		initialCount := len(remaining)

		var ready []*task.Record
		for _, t := range remaining {
			if dependenciesMet(t, scheduledIDs) {
				ready = append(ready, t)
			}
		}

		if len(ready) == 0 {
			s.log.Warn("dependency cycle detected, forcing highest priority task", "remaining_tasks", ids(remaining))
			forced := byPriority(remaining)[0]
			s.events.LogEvent(EventCycleBroken, map[string]any{
				"forced_task": forced.ID,
				"remaining":   ids(remaining),
			})
			ready = []*task.Record{forced}
		}

		for _, t := range byPriority(ready) {
			sorted = append(sorted, t)
			scheduledIDs[t.ID] = true
			remaining = without(remaining, t)
		}

		if len(remaining) == initialCount {
			s.log.Error("task ordering made no progress, stopping", "remaining_tasks", ids(remaining))
			s.events.LogEvent(EventSchedulingStalled, map[string]any{"remaining": ids(remaining)})
			break
		}
	}

	if len(remaining) > 0 {
		s.log.Warn("appending unordered tasks by priority", "remaining_count", len(remaining))
		sorted = append(sorted, byPriority(remaining)...)
	}

	return sorted
}

func dependenciesMet(t *task.Record, scheduled map[string]bool) bool {
	for _, dep := range t.DependsOn {
		if !scheduled[dep] {
			return false
		}
	}
	return true
}

// byPriority returns a stably sorted copy, lowest priority number first
func byPriority(tasks []*task.Record) []*task.Record {
	out := make([]*task.Record, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// without removes the given record (by identity) from the list
func without(tasks []*task.Record, target *task.Record) []*task.Record {
	for i, t := range tasks {
		if t == target {
			return append(tasks[:i:i], tasks[i+1:]...)
		}
	}
	return tasks
}

func ids(tasks []*task.Record) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
