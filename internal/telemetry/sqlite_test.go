package telemetry

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLiteSinkCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	sink, err := OpenSQLiteSink(path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	var name string
	if err := sink.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='events'`).Scan(&name); err != nil {
		t.Fatalf("expected events table to exist: %v", err)
	}
}

func TestSQLiteSinkNotifyPersistsEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	sink, err := OpenSQLiteSink(path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	sink.Notify(Event{Kind: EventTaskFinished, TaskID: "task-1", Payload: map[string]any{"answer": "42"}})

	var count int
	if err := sink.db.QueryRow(`SELECT COUNT(*) FROM events WHERE task_id = ?`, "task-1").Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted row, got %d", count)
	}
}

func TestSQLiteSinkCloseReleasesHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	sink, err := OpenSQLiteSink(path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.db.Ping(); err == nil {
		t.Fatal("expected Ping to fail after Close")
	}
}
