// Package intent turns a chat message into a structured intent document.
package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"threadpilot/llm"
	"threadpilot/task"
)

// DefaultTemperature keeps classification close to deterministic
const DefaultTemperature = 0.1

// SamplingParams controls a single reasoning call
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
	User        string
}

// Reasoner completes a prompt with text
type Reasoner interface {
	Complete(ctx context.Context, prompt string, params SamplingParams) (string, error)
}

// ProviderReasoner adapts an llm.Provider to Reasoner
type ProviderReasoner struct {
	Provider llm.Provider
	Model    string
}

func (r *ProviderReasoner) Complete(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	resp, err := r.Provider.Chat(ctx, &llm.ChatRequest{
		Model:       r.Model,
		Messages:    []llm.Message{llm.NewTextMessage(llm.RoleUser, prompt)},
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		User:        params.User,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Options configures a Classifier
type Options struct {
	Reasoner     Reasoner
	Keywords     Keywords
	Capabilities string  // defaults to Capabilities
	Temperature  float64 // defaults to DefaultTemperature
	Logger       hclog.Logger
}

// Classifier produces intent documents, falling back to keyword rules on any failure
type Classifier struct {
	reasoner     Reasoner
	keywords     Keywords
	capabilities string
	temperature  float64
	log          hclog.Logger
}

// NewClassifier creates a Classifier
func NewClassifier(opts Options) *Classifier {
	c := &Classifier{
		reasoner:     opts.Reasoner,
		keywords:     opts.Keywords.withDefaults(),
		capabilities: opts.Capabilities,
		temperature:  opts.Temperature,
		log:          opts.Logger,
	}
	if c.capabilities == "" {
		c.capabilities = Capabilities
	}
	if c.temperature <= 0 {
		c.temperature = DefaultTemperature
	}
	if c.log == nil {
		c.log = hclog.NewNullLogger()
	}
	return c
}

// Classify never fails: reasoning, parse and validation errors all yield the fallback document
func (c *Classifier) Classify(ctx context.Context, message string, reqCtx *task.RequestContext) (doc task.IntentDocument) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("classification panicked, using fallback", "panic", r)
			doc = Fallback(message, reqCtx, c.keywords)
		}
	}()

	doc, err := c.classify(ctx, message, reqCtx)
	if err != nil {
		c.log.Warn("intent classification failed, using fallback", "error", err)
		return Fallback(message, reqCtx, c.keywords)
	}

	c.log.Info("intent classified", "intent", doc.Summary, "task_count", len(doc.Tasks))
	return doc
}

func (c *Classifier) classify(ctx context.Context, message string, reqCtx *task.RequestContext) (task.IntentDocument, error) {
	if c.reasoner == nil {
		return task.IntentDocument{}, errors.New("no reasoner configured")
	}

	user := "unknown"
	if reqCtx != nil && reqCtx.UserID != "" {
		user = reqCtx.UserID
	}

	prompt := BuildPrompt(message, reqCtx, c.capabilities)
	content, err := c.reasoner.Complete(ctx, prompt, SamplingParams{
		Temperature: c.temperature,
		User:        user,
	})
	if err != nil {
		return task.IntentDocument{}, fmt.Errorf("reasoning call: %w", err)
	}

	doc, err := ParseDocument(content)
	if err != nil {
		c.log.Debug("unparseable intent response", "content", truncate(content, 200))
		return task.IntentDocument{}, err
	}
	return doc, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
