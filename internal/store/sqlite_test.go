package store

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

func TestSQLiteJournal_AppendReplayInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenSQLite(ctx, dbPath, logger)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	for _, id := range []string{"m-2", "m-1", "m-3"} {
		if err := j.Append(ctx, Entry{ID: id, Content: "c-" + id, Source: "test", CreatedAt: "2026-02-17T10:00:00Z", Signature: "ab"}); err != nil {
			t.Fatalf("Append(%s) error = %v", id, err)
		}
	}
	if err := j.Append(ctx, Entry{ID: "m-1", CreatedAt: "2026-02-17T10:00:00Z"}); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen to make sure entries survived.
	j, err = OpenSQLite(ctx, dbPath, logger)
	if err != nil {
		t.Fatalf("OpenSQLite(reopen) error = %v", err)
	}
	defer j.Close()

	rep, err := j.Replay(ctx)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(rep.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(rep.Entries))
	}
	if rep.Entries[0].ID != "m-2" || rep.Entries[2].ID != "m-3" {
		t.Fatalf("expected append order, got %+v", rep.Entries)
	}
	if rep.Entries[0].Version() != 1 {
		t.Fatalf("expected default payload version 1, got %d", rep.Entries[0].Version())
	}
}

func TestSQLiteJournal_TamperedRowIsReplayedAsIs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenSQLite(ctx, dbPath, logger)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer j.Close()
	if err := j.Append(ctx, Entry{ID: "m-1", Content: "original", CreatedAt: "2026-02-17T10:00:00Z", Signature: "00"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `UPDATE journal SET content = 'forged' WHERE id = 'm-1'`); err != nil {
		t.Fatalf("tamper error = %v", err)
	}

	rep, err := j.Replay(ctx)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(rep.Entries) != 1 || rep.Entries[0].Content != "forged" {
		t.Fatalf("expected tampered row to be returned for verification upstream, got %+v", rep.Entries)
	}
}

func TestOpen_Backends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	dir := t.TempDir()

	fj, err := Open(ctx, "file", filepath.Join(dir, "memory.log"), logger)
	if err != nil {
		t.Fatalf("Open(file) error = %v", err)
	}
	defer fj.Close()
	if _, ok := fj.(*FileJournal); !ok {
		t.Fatalf("expected *FileJournal, got %T", fj)
	}

	sj, err := Open(ctx, "SQLite", filepath.Join(dir, "memory.db"), logger)
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	defer sj.Close()
	if _, ok := sj.(*SQLiteJournal); !ok {
		t.Fatalf("expected *SQLiteJournal, got %T", sj)
	}

	if _, err := Open(ctx, "postgres", filepath.Join(dir, "x"), logger); err == nil {
		t.Fatal("expected unknown backend error")
	}
}
