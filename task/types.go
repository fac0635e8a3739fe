package task

import (
	"encoding/json"
	"fmt"
)

// Type identifies what kind of work a task performs
type Type string

const (
	TypeTextGeneration        Type = "text_generation"
	TypeImageGeneration       Type = "image_generation"
	TypeImageAnalysis         Type = "image_analysis"
	TypeThreadSummary         Type = "thread_summary"
	TypeGeminiTextGeneration  Type = "gemini_text_generation"
	TypeGeminiImageGeneration Type = "gemini_image_generation"
	TypeGeminiVideoGeneration Type = "gemini_video_generation"
	TypeGeminiImageAnalysis   Type = "gemini_image_analysis"
)

// AllTypes lists every task type in the order they are described to the reasoning model
var AllTypes = []Type{
	TypeTextGeneration,
	TypeImageGeneration,
	TypeImageAnalysis,
	TypeThreadSummary,
	TypeGeminiTextGeneration,
	TypeGeminiImageGeneration,
	TypeGeminiVideoGeneration,
	TypeGeminiImageAnalysis,
}

// Valid reports whether t is one of the known task types
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType converts a string to a Type, rejecting unknown values
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown task type '%s'", s)
	}
	return t, nil
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Strategy is the execution hint returned by the classifier. It is informational only.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
)

// DefaultPriority is applied when a task spec has no priority
const DefaultPriority = 5

// Spec is a task as declared by the intent classifier
type Spec struct {
	ID          string   `json:"task_id"`
	Type        Type     `json:"task_type"`
	Description string   `json:"description"`
	Input       string   `json:"input_data"`
	Priority    *int     `json:"priority,omitempty"` // 1 = highest; nil means unset
	DependsOn   []string `json:"depends_on,omitempty"`
}

// IntentDocument is the structured interpretation of one user request
type IntentDocument struct {
	Summary          string   `json:"user_intent"`
	Tasks            []Spec   `json:"required_tasks"`
	Strategy         Strategy `json:"execution_strategy"`
	EstimatedSeconds string   `json:"estimated_time"`
}

// Priority returns a pointer to p, for building specs
func Priority(p int) *int {
	return &p
}
