package store

import (
	"time"
)

// DefaultTTL is how long dedup tokens and thread conversations are kept
const DefaultTTL = time.Hour

// Bundle holds all stores used by the bot
type Bundle struct {
	Events  EventStore
	Threads ThreadStore
	Runs    RunStore
	closer  func() error
}

// Close cleans up the bundle resources
func (b *Bundle) Close() error {
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

// EventStore deduplicates incoming chat events
type EventStore interface {
	// Seen records token on first sight and returns false; within the TTL
	// every later call for the same token returns true.
	Seen(token, user, text string) (bool, error)
}

// ThreadStore keeps the last conversation text of a thread for a limited time
type ThreadStore interface {
	// Get returns the stored conversation, or ok=false when missing or expired
	Get(key string) (conversation string, ok bool, err error)
	Put(key, user, conversation string) error
}

// ThreadKey returns the storage key of a conversation: the thread timestamp,
// or a per-user key for direct messages outside a thread
func ThreadKey(threadTS, user string) string {
	if threadTS != "" {
		return threadTS
	}
	return "dm_" + user
}

// RunStore records workflow events per request
type RunStore interface {
	StoreEvent(event RunEvent) error
	GetEventsByRequest(requestID string, limit, offset int) ([]RunEvent, error)
	ListRequests(limit, offset int) ([]RequestSummary, int, error)
}

// RunEvent is one persisted workflow event
type RunEvent struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	TaskID    *string   `json:"taskId,omitempty"`
	EventType string    `json:"eventType"`
	DataJSON  string    `json:"dataJson"`
	CreatedAt time.Time `json:"createdAt"`
}

// RequestSummary aggregates the events of one request
type RequestSummary struct {
	RequestID  string    `json:"requestId"`
	EventCount int       `json:"eventCount"`
	Failed     bool      `json:"failed"`
	StartedAt  time.Time `json:"startedAt"`
	LastAt     time.Time `json:"lastAt"`
}

// failedEventType marks a request whose workflow hit the apology boundary
const failedEventType = "workflow_failed"
