package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink persists events to a local SQLite database for offline
// inspection (e.g. `sqlite3 telemetry.db "select * from events"`), wiring
// the teacher's modernc.org/sqlite driver (originally used for the
// project index) into the telemetry domain.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (creating if necessary) a SQLite database at path
// and ensures the events table exists.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry sqlite: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT,
		recorded_at TIMESTAMP NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create telemetry schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Notify implements Subscriber. Failures to persist an event are silently
// ignored: telemetry is observability, not a transaction
// that should ever block or fail the task it describes.
func (s *SQLiteSink) Notify(evt Event) {
	payload, _ := json.Marshal(evt.Payload)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _ = s.db.ExecContext(ctx,
		`INSERT INTO events (task_id, kind, payload, recorded_at) VALUES (?, ?, ?, ?)`,
		evt.TaskID, string(evt.Kind), string(payload), time.Now(),
	)
}

// Close releases the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
