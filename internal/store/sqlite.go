package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteJournal keeps the journal in a SQLite table ordered by insertion.
type SQLiteJournal struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

// OpenSQLite opens and initializes the SQLite journal.
func OpenSQLite(ctx context.Context, dbPath string, logger *log.Logger) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes appends.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteJournal{db: db, path: dbPath, logger: logger}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteJournal) init(ctx context.Context) error {
	for _, stmt := range splitSQLStatements(schemaSQL) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run schema stmt: %w", err)
		}
	}
	return nil
}

func splitSQLStatements(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p+";")
	}
	return out
}

// Append inserts e; the insert is committed before it returns.
func (s *SQLiteJournal) Append(ctx context.Context, e Entry) error {
	const q = `INSERT INTO journal (
		id, content, source, created_at, signature, payload_version, appended_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.Content,
		e.Source,
		e.CreatedAt,
		e.Signature,
		e.Version(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Replay returns all rows in append order.
func (s *SQLiteJournal) Replay(ctx context.Context) (Replay, error) {
	var out Replay
	rows, err := s.db.QueryContext(ctx, `SELECT seq, id, content, source, created_at, signature, payload_version
FROM journal
ORDER BY seq ASC`)
	if err != nil {
		return out, fmt.Errorf("replay journal: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq int64
			e   Entry
		)
		if err := rows.Scan(&seq, &e.ID, &e.Content, &e.Source, &e.CreatedAt, &e.Signature, &e.PayloadVersion); err != nil {
			out.Skipped++
			s.logger.Warn("skipping undecodable journal row", "seq", seq, "error", err)
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out, rows.Err()
}

func (s *SQLiteJournal) Path() string {
	return s.path
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
