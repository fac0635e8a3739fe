package store

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// NewMemoryBundle creates a Bundle backed entirely by in-memory stores
func NewMemoryBundle(ttl time.Duration) *Bundle {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	contexts := &memContexts{ttl: ttl, items: make(map[string]*memContext)}
	return &Bundle{
		Events:  &MemoryEventStore{contexts: contexts},
		Threads: &MemoryThreadStore{contexts: contexts},
		Runs:    &MemoryRunStore{},
	}
}

// =============================================================================
// Contexts (shared by events and threads)
// =============================================================================

type memContext struct {
	user         string
	conversation string
	expireAt     time.Time
}

type memContexts struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]*memContext
}

func (c *memContexts) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", false
	}
	if time.Now().After(item.expireAt) {
		delete(c.items, key)
		return "", false
	}
	return item.conversation, true
}

func (c *memContexts) put(key, user, conversation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &memContext{user: user, conversation: conversation, expireAt: time.Now().Add(c.ttl)}
}

// putIfAbsent stores the item unless a live one exists, reporting whether it existed
func (c *memContexts) putIfAbsent(key, user, conversation string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok && time.Now().Before(item.expireAt) {
		return true
	}
	c.items[key] = &memContext{user: user, conversation: conversation, expireAt: time.Now().Add(c.ttl)}
	return false
}

// =============================================================================
// MemoryEventStore
// =============================================================================

type MemoryEventStore struct {
	contexts *memContexts
}

func (s *MemoryEventStore) Seen(token, user, text string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.contexts.putIfAbsent(token, user, text), nil
}

// =============================================================================
// MemoryThreadStore
// =============================================================================

type MemoryThreadStore struct {
	contexts *memContexts
}

func (s *MemoryThreadStore) Get(key string) (string, bool, error) {
	conversation, ok := s.contexts.get(key)
	return conversation, ok, nil
}

func (s *MemoryThreadStore) Put(key, user, conversation string) error {
	if key == "" {
		return fmt.Errorf("put thread: empty key")
	}
	s.contexts.put(key, user, conversation)
	return nil
}

// =============================================================================
// MemoryRunStore
// =============================================================================

type MemoryRunStore struct {
	mu     sync.Mutex
	events []RunEvent
}

func (s *MemoryRunStore) StoreEvent(event RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryRunStore) GetEventsByRequest(requestID string, limit, offset int) ([]RunEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []RunEvent
	for _, e := range s.events {
		if e.RequestID == requestID {
			matched = append(matched, e)
		}
	}
	return paginate(matched, limit, offset), nil
}

func (s *MemoryRunStore) ListRequests(limit, offset int) ([]RequestSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]*RequestSummary)
	for _, e := range s.events {
		sum, ok := byID[e.RequestID]
		if !ok {
			sum = &RequestSummary{RequestID: e.RequestID, StartedAt: e.CreatedAt, LastAt: e.CreatedAt}
			byID[e.RequestID] = sum
		}
		sum.EventCount++
		if e.EventType == failedEventType {
			sum.Failed = true
		}
		if e.CreatedAt.Before(sum.StartedAt) {
			sum.StartedAt = e.CreatedAt
		}
		if e.CreatedAt.After(sum.LastAt) {
			sum.LastAt = e.CreatedAt
		}
	}

	all := make([]RequestSummary, 0, len(byID))
	for _, sum := range byID {
		all = append(all, *sum)
	}
	// newest first
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	return paginate(all, limit, offset), len(all), nil
}

// =============================================================================
// Helpers
// =============================================================================

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func generateID() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}
