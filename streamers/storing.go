package streamers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"threadpilot/store"
	"threadpilot/task"
)

// DefaultHistoryMessages caps how many messages a stored conversation keeps
const DefaultHistoryMessages = 20

// LoadThread returns the stored conversation for key, or nil when none is kept
func LoadThread(threads store.ThreadStore, key string) ([]task.ThreadMessage, error) {
	raw, ok, err := threads.Get(key)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	var messages []task.ThreadMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", key, err)
	}
	return messages, nil
}

// StoringHandler is a ThreadHandler decorator that appends the request and
// every delivered result to the ThreadStore, then delegates to an inner
// handler (e.g. CLI or gateway).
type StoringHandler struct {
	ThreadHandler

	threads     store.ThreadStore
	key         string
	user        task.ThreadMessage
	maxMessages int
	log         hclog.Logger

	mu        sync.Mutex
	requested bool
}

// StoringOptions configures a StoringHandler
type StoringOptions struct {
	Threads     store.ThreadStore
	Key         string             // store.ThreadKey of the conversation
	Request     task.ThreadMessage // the user's message, stored with the first result
	MaxMessages int                // defaults to DefaultHistoryMessages
	Logger      hclog.Logger
}

// NewStoringHandler wraps an existing ThreadHandler with conversation persistence.
func NewStoringHandler(inner ThreadHandler, opts StoringOptions) *StoringHandler {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultHistoryMessages
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &StoringHandler{
		ThreadHandler: inner,
		threads:       opts.Threads,
		key:           opts.Key,
		user:          opts.Request,
		maxMessages:   opts.MaxMessages,
		log:           opts.Logger,
	}
}

func (h *StoringHandler) Deliver(ctx context.Context, hd Handle, result *task.Result, rec *task.Record) {
	h.ThreadHandler.Deliver(ctx, hd, result, rec)

	text := result.Content
	if IsMedia(result) {
		text = Caption(result)
	}
	if err := h.append(task.ThreadMessage{UserName: "assistant", Text: text, FromBot: true}); err != nil {
		h.log.Warn("failed to store conversation", "key", h.key, "error", err)
	}
}

// append adds msg (preceded once by the request) and saves the trimmed conversation
func (h *StoringHandler) append(msg task.ThreadMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	messages, err := LoadThread(h.threads, h.key)
	if err != nil {
		h.log.Warn("discarding unreadable conversation", "key", h.key, "error", err)
		messages = nil
	}

	if !h.requested && h.user.Text != "" {
		messages = append(messages, h.user)
	}
	h.requested = true
	messages = append(messages, msg)

	if len(messages) > h.maxMessages {
		messages = messages[len(messages)-h.maxMessages:]
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return h.threads.Put(h.key, h.user.UserID, string(raw))
}
