package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"threadpilot/task"
)

// ErrMissingField is returned when a required field is absent from the reasoning output
var ErrMissingField = errors.New("missing required field")

var codeFence = regexp.MustCompile("```json\\n|```\\n|```")

// rawSpec mirrors task.Spec with pointers so absent fields can be told apart from empty ones
type rawSpec struct {
	ID          *string    `json:"task_id"`
	Type        *task.Type `json:"task_type"`
	Description *string    `json:"description"`
	Input       string     `json:"input_data"`
	Priority    *priority  `json:"priority"`
	DependsOn   []string   `json:"depends_on"`
}

// priority accepts 2, 2.0 and "2"; fractions are truncated
type priority int

func (p *priority) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid priority %s", data)
	}
	*p = priority(int(f))
	return nil
}

func (p *priority) value() *int {
	if p == nil {
		return nil
	}
	v := int(*p)
	return &v
}

type rawDocument struct {
	Summary   *string         `json:"user_intent"`
	Tasks     *[]rawSpec      `json:"required_tasks"`
	Strategy  string          `json:"execution_strategy"`
	Estimated json.RawMessage `json:"estimated_time"`
}

// StripCodeFences removes markdown code fence markers around a JSON payload
func StripCodeFences(content string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(content, ""))
}

// ParseDocument decodes and validates the reasoning service output
func ParseDocument(content string) (task.IntentDocument, error) {
	var raw rawDocument
	if err := json.Unmarshal([]byte(StripCodeFences(content)), &raw); err != nil {
		return task.IntentDocument{}, fmt.Errorf("decode intent: %w", err)
	}

	if raw.Summary == nil {
		return task.IntentDocument{}, fmt.Errorf("%w: user_intent", ErrMissingField)
	}
	if raw.Tasks == nil {
		return task.IntentDocument{}, fmt.Errorf("%w: required_tasks", ErrMissingField)
	}

	doc := task.IntentDocument{
		Summary:          *raw.Summary,
		Tasks:            make([]task.Spec, 0, len(*raw.Tasks)),
		Strategy:         parseStrategy(raw.Strategy),
		EstimatedSeconds: parseEstimate(raw.Estimated),
	}

	for i, rs := range *raw.Tasks {
		switch {
		case rs.ID == nil:
			return task.IntentDocument{}, fmt.Errorf("task %d: %w: task_id", i, ErrMissingField)
		case rs.Type == nil:
			return task.IntentDocument{}, fmt.Errorf("task %d: %w: task_type", i, ErrMissingField)
		case rs.Description == nil:
			return task.IntentDocument{}, fmt.Errorf("task %d: %w: description", i, ErrMissingField)
		}
		doc.Tasks = append(doc.Tasks, task.Spec{
			ID:          *rs.ID,
			Type:        *rs.Type,
			Description: *rs.Description,
			Input:       rs.Input,
			Priority:    rs.Priority.value(),
			DependsOn:   rs.DependsOn,
		})
	}

	return doc, nil
}

func parseStrategy(s string) task.Strategy {
	if task.Strategy(s) == task.StrategyParallel {
		return task.StrategyParallel
	}
	return task.StrategySequential
}

// parseEstimate accepts the estimate as a JSON string or number
func parseEstimate(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
