package llm

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

const contentPreviewMaxLen = 200

// CallLogger writes one JSONL line per model call
type CallLogger struct {
	mu        sync.Mutex
	w         io.Writer
	closer    io.Closer
	callCount int
}

// NewCallLogger creates a call logger appending to the given file path
func NewCallLogger(filename string) (*CallLogger, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &CallLogger{w: f, closer: f}, nil
}

// NewCallLoggerWriter creates a call logger on an existing writer
func NewCallLoggerWriter(w io.Writer) *CallLogger {
	return &CallLogger{w: w}
}

// Close closes the underlying file, if any
func (cl *CallLogger) Close() error {
	if cl.closer != nil {
		return cl.closer.Close()
	}
	return nil
}

// callSnapshot is the envelope written per call
type callSnapshot struct {
	Call         int               `json:"call"`
	Timestamp    string            `json:"timestamp"`
	Kind         string            `json:"kind"`
	Model        string            `json:"model"`
	DurationMS   int64             `json:"duration_ms"`
	MessageCount int               `json:"message_count,omitempty"`
	Messages     []messageSnapshot `json:"messages,omitempty"`
	Response     string            `json:"response_preview,omitempty"`
	Usage        *Usage            `json:"usage,omitempty"`
	CostUSD      float64           `json:"cost_usd,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// messageSnapshot captures one message's state without the full payload
type messageSnapshot struct {
	Role           string `json:"role"`
	ContentPreview string `json:"content_preview,omitempty"`
	ContentLength  int    `json:"content_length"`
	HasImage       bool   `json:"has_image"`
	ImageMediaType string `json:"image_media_type,omitempty"`
	ImageBytes     int    `json:"image_bytes,omitempty"`
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > contentPreviewMaxLen {
		return string(r[:contentPreviewMaxLen]) + "..."
	}
	return text
}

func snapshotMessages(messages []Message) []messageSnapshot {
	out := make([]messageSnapshot, len(messages))
	for i, msg := range messages {
		text := msg.GetTextContent()
		ms := messageSnapshot{
			Role:           string(msg.Role),
			ContentLength:  len(text),
			ContentPreview: preview(text),
		}
		for _, part := range msg.Parts {
			if part.Type == ContentTypeImage && part.ImageData != nil {
				ms.HasImage = true
				ms.ImageMediaType = part.ImageData.MediaType
				ms.ImageBytes = len(part.ImageData.Data)
				break // report first image only
			}
		}
		out[i] = ms
	}
	return out
}

func (cl *CallLogger) write(snap callSnapshot) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.callCount++
	snap.Call = cl.callCount
	snap.Timestamp = time.Now().Format(time.RFC3339Nano)

	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	cl.w.Write(append(data, '\n'))
}

// Wrap returns a Provider that logs every call made through p
func (cl *CallLogger) Wrap(p Provider) Provider {
	return &loggedProvider{inner: p, log: cl}
}

type loggedProvider struct {
	inner Provider
	log   *CallLogger
}

func (lp *loggedProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := lp.inner.Chat(ctx, req)

	snap := callSnapshot{
		Kind:         "chat",
		Model:        req.Model,
		DurationMS:   time.Since(start).Milliseconds(),
		MessageCount: len(req.Messages),
		Messages:     snapshotMessages(req.Messages),
	}
	if err != nil {
		snap.Error = err.Error()
	} else {
		snap.Response = preview(resp.Content)
		snap.Usage = &resp.Usage
		snap.CostUSD = CalculateCost(req.Model, resp.Usage)
	}
	lp.log.write(snap)
	return resp, err
}

func (lp *loggedProvider) ChatStream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	lp.log.write(callSnapshot{
		Kind:         "chat_stream",
		Model:        req.Model,
		MessageCount: len(req.Messages),
		Messages:     snapshotMessages(req.Messages),
	})
	return lp.inner.ChatStream(ctx, req)
}
