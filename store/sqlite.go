package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS contexts (
    id TEXT PRIMARY KEY,
    user_id TEXT,
    conversation TEXT,
    expire_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_events (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    task_id TEXT,
    event_type TEXT NOT NULL,
    data_json TEXT,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_events_request ON run_events(request_id, created_at);
`

// NewSQLiteBundle creates a Bundle backed by SQLite at the given path
func NewSQLiteBundle(dbPath string, ttl time.Duration) (*Bundle, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Bundle{
		Events:  &SQLiteEventStore{db: db, ttl: ttl},
		Threads: &SQLiteThreadStore{db: db, ttl: ttl},
		Runs:    &SQLiteRunStore{db: db},
		closer:  db.Close,
	}, nil
}

// =============================================================================
// SQLiteEventStore
// =============================================================================

type SQLiteEventStore struct {
	db  *sql.DB
	ttl time.Duration
}

func (s *SQLiteEventStore) Seen(token, user, text string) (bool, error) {
	if token == "" {
		return false, nil
	}
	now := time.Now()
	// an expired row is overwritten, a live one is left alone
	res, err := s.db.Exec(
		`INSERT INTO contexts (id, user_id, conversation, expire_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, conversation = excluded.conversation, expire_at = excluded.expire_at
         WHERE contexts.expire_at <= ?`,
		token, user, text, now.Add(s.ttl).UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// =============================================================================
// SQLiteThreadStore
// =============================================================================

type SQLiteThreadStore struct {
	db  *sql.DB
	ttl time.Duration
}

func (s *SQLiteThreadStore) Get(key string) (string, bool, error) {
	var conversation sql.NullString
	err := s.db.QueryRow(
		`SELECT conversation FROM contexts WHERE id = ? AND expire_at > ?`,
		key, time.Now().UnixMilli(),
	).Scan(&conversation)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get thread: %w", err)
	}
	return conversation.String, true, nil
}

func (s *SQLiteThreadStore) Put(key, user, conversation string) error {
	if key == "" {
		return fmt.Errorf("put thread: empty key")
	}
	_, err := s.db.Exec(
		`INSERT INTO contexts (id, user_id, conversation, expire_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, conversation = excluded.conversation, expire_at = excluded.expire_at`,
		key, user, conversation, time.Now().Add(s.ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put thread: %w", err)
	}
	return nil
}

// =============================================================================
// SQLiteRunStore
// =============================================================================

type SQLiteRunStore struct {
	db *sql.DB
}

func (s *SQLiteRunStore) StoreEvent(event RunEvent) error {
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO run_events (id, request_id, task_id, event_type, data_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.RequestID, event.TaskID, event.EventType, event.DataJSON, event.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) GetEventsByRequest(requestID string, limit, offset int) ([]RunEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, request_id, task_id, event_type, data_json, created_at FROM run_events
         WHERE request_id = ? ORDER BY created_at, rowid LIMIT ? OFFSET ?`,
		requestID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []RunEvent{}
	for rows.Next() {
		var e RunEvent
		var taskID, dataJSON sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.RequestID, &taskID, &e.EventType, &dataJSON, &createdAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			e.TaskID = &taskID.String
		}
		e.DataJSON = dataJSON.String
		e.CreatedAt = time.Unix(0, createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteRunStore) ListRequests(limit, offset int) ([]RequestSummary, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT request_id) FROM run_events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT request_id, COUNT(*), MAX(event_type = ?), MIN(created_at), MAX(created_at)
         FROM run_events GROUP BY request_id ORDER BY MIN(created_at) DESC LIMIT ? OFFSET ?`,
		failedEventType, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := []RequestSummary{}
	for rows.Next() {
		var sum RequestSummary
		var failed int
		var startedAt, lastAt int64
		if err := rows.Scan(&sum.RequestID, &sum.EventCount, &failed, &startedAt, &lastAt); err != nil {
			return nil, 0, err
		}
		sum.Failed = failed == 1
		sum.StartedAt = time.Unix(0, startedAt)
		sum.LastAt = time.Unix(0, lastAt)
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}
