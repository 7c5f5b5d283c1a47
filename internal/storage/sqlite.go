package storage

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/errors"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the database at dbPath and ensures the schema exists.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.StorageError("open database", err).WithContext("path", dbPath)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.StorageError("initialize schema", err).WithContext("path", dbPath)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recipient (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		chat_id INTEGER NOT NULL,
		linked_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS care_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		slot TEXT NOT NULL DEFAULT '',
		day TEXT NOT NULL DEFAULT '',
		chat_id INTEGER NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_day ON care_events(day);
	CREATE INDEX IF NOT EXISTS idx_events_kind_slot_day ON care_events(kind, slot, day);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRecipient upserts the single recipient row.
func (s *SQLiteStore) SaveRecipient(ctx context.Context, id care.ChatID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipient (id, chat_id, linked_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET chat_id = excluded.chat_id, linked_at = excluded.linked_at`,
		int64(id), time.Now().Unix(),
	)
	if err != nil {
		return errors.StorageError("save recipient", err)
	}
	return nil
}

// LoadRecipient returns the stored recipient; ok is false when no chat was
// ever linked.
func (s *SQLiteStore) LoadRecipient(ctx context.Context) (care.ChatID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chatID int64
	err := s.db.QueryRowContext(ctx, "SELECT chat_id FROM recipient WHERE id = 1").Scan(&chatID)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.StorageError("load recipient", err)
	}
	return care.ChatID(chatID), true, nil
}

// AppendEvent adds one history row. The store assigns the timestamp.
func (s *SQLiteStore) AppendEvent(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO care_events (kind, slot, day, chat_id, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		string(e.Kind), string(e.Slot), string(e.Day), int64(e.ChatID), e.Detail, time.Now().Unix(),
	)
	if err != nil {
		return errors.StorageError("append event", err).WithContext("kind", string(e.Kind))
	}
	return nil
}

// EventsByDay returns the day's history in insertion order.
func (s *SQLiteStore) EventsByDay(ctx context.Context, day care.Day) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, slot, day, chat_id, detail, created_at FROM care_events WHERE day = ? ORDER BY id",
		string(day),
	)
	if err != nil {
		return nil, errors.StorageError("query events", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LastConfirmation returns when the slot's occurrence on day was last
// confirmed; ok is false when it never was.
func (s *SQLiteStore) LastConfirmation(ctx context.Context, slot care.Slot, day care.Day) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ts int64
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at FROM care_events WHERE kind = ? AND slot = ? AND day = ? ORDER BY id DESC LIMIT 1",
		string(KindConfirmed), string(slot), string(day),
	).Scan(&ts)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.StorageError("query confirmation", err)
	}
	return time.Unix(ts, 0), true, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var kind, slot, day string
		var chatID, ts int64

		if err := rows.Scan(&e.ID, &kind, &slot, &day, &chatID, &e.Detail, &ts); err != nil {
			return nil, errors.StorageError("scan event", err)
		}

		e.Kind = EventKind(kind)
		e.Slot = care.Slot(slot)
		e.Day = care.Day(day)
		e.ChatID = care.ChatID(chatID)
		e.CreatedAt = time.Unix(ts, 0)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("iterate rows", err)
	}

	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
