package executor

import (
	"context"
	"fmt"
	"strings"

	"threadpilot/llm"
	"threadpilot/task"
)

const summaryPrompt = `Summarize the conversation above. List the main topics, any decisions made and open questions. Answer in the language the conversation is written in.`

// threadMessages converts the thread history into chat messages, keeping the most
// recent messages that fit in maxChars
func threadMessages(thread []task.ThreadMessage, maxChars int) []llm.Message {
	var (
		msgs  []llm.Message
		total int
	)
	for i := len(thread) - 1; i >= 0; i-- {
		m := thread[i]
		role := llm.RoleUser
		content := m.Text
		if m.FromBot {
			role = llm.RoleAssistant
		} else {
			name := m.UserName
			if name == "" {
				name = "User"
			}
			content = fmt.Sprintf("%s: %s", name, m.Text)
		}

		total += len([]rune(content))
		if total > maxChars && len(msgs) > 0 {
			break
		}
		msgs = append(msgs, llm.NewTextMessage(role, content))
	}

	// reverse into chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}

func (d *Dispatcher) complete(ctx context.Context, provider llm.Provider, model string, rec *task.Record, msgs []llm.Message) (string, error) {
	resp, err := provider.Chat(ctx, &llm.ChatRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   d.opts.MaxTokens,
		Temperature: d.opts.Temperature,
		User:        userOf(rec),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (d *Dispatcher) converse(ctx context.Context, provider llm.Provider, model string, rec *task.Record) (*task.Result, error) {
	msgs := threadMessages(rec.Thread, d.opts.MaxContextChars)
	msgs = append(msgs, llm.NewTextMessage(llm.RoleUser, rec.Input))

	content, err := d.complete(ctx, provider, model, rec, msgs)
	if err != nil {
		return nil, fmt.Errorf("text generation: %w", err)
	}

	d.log.Info("text generated", "task_id", rec.ID, "model", model, "content_length", len(content))
	return &task.Result{Kind: task.ResultText, Content: content, Model: model}, nil
}

func (d *Dispatcher) textGeneration(ctx context.Context, rec *task.Record) (*task.Result, error) {
	provider, err := d.chatModel()
	if err != nil {
		return nil, err
	}
	return d.converse(ctx, provider, d.opts.ChatModel, rec)
}

func (d *Dispatcher) geminiTextGeneration(ctx context.Context, rec *task.Record) (*task.Result, error) {
	provider, err := d.geminiModel()
	if err != nil {
		return nil, err
	}
	return d.converse(ctx, provider, d.opts.GeminiModel, rec)
}

func (d *Dispatcher) threadSummary(ctx context.Context, rec *task.Record) (*task.Result, error) {
	provider, err := d.chatModel()
	if err != nil {
		return nil, err
	}
	if len(rec.Thread) == 0 {
		return &task.Result{Kind: task.ResultText, Content: "There are no earlier messages in this thread to summarize.", Model: d.opts.ChatModel}, nil
	}

	prompt := summaryPrompt
	if extra := strings.TrimSpace(rec.Input); extra != "" {
		prompt += "\nRequest: " + extra
	}

	msgs := threadMessages(rec.Thread, d.opts.MaxContextChars)
	msgs = append(msgs, llm.NewTextMessage(llm.RoleUser, prompt))

	content, err := d.complete(ctx, provider, d.opts.ChatModel, rec, msgs)
	if err != nil {
		return nil, fmt.Errorf("thread summary: %w", err)
	}
	return &task.Result{Kind: task.ResultText, Content: content, Model: d.opts.ChatModel}, nil
}
