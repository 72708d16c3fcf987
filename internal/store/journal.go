package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiy/signed-memory/pkg/types"
)

// Supported journal backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Entry is one committed long-term record as it sits in the journal.
type Entry struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	Source         string `json:"source"`
	CreatedAt      string `json:"created_at"`
	Signature      string `json:"signature"`
	PayloadVersion int    `json:"payload_version,omitempty"`

	// Damaged marks an entry whose stored form no longer decodes. Only the
	// id survived.
	Damaged bool `json:"-"`
}

// Replay is the result of reading a journal from the start.
type Replay struct {
	Entries []Entry
	// Skipped counts lines or rows that could not be decoded and had no
	// recoverable id. Damaged entries with an id are in Entries instead.
	Skipped int
}

// Journal is the append-only durable log of long-term admissions.
type Journal interface {
	// Append persists e before returning; a nil error means the entry is durable.
	Append(ctx context.Context, e Entry) error
	Replay(ctx context.Context) (Replay, error)
	Path() string
	Close() error
}

// Open opens the journal for the given backend.
func Open(ctx context.Context, backend, path string, logger *log.Logger) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return OpenFile(path, logger)
	case BackendSQLite:
		return OpenSQLite(ctx, path, logger)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", backend)
	}
}

// EntryFromRecord converts a signed record into its journal form.
func EntryFromRecord(rec types.MemoryRecord, payloadVersion int) Entry {
	return Entry{
		ID:             rec.ID,
		Content:        rec.Content,
		Source:         rec.Source,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		Signature:      hex.EncodeToString(rec.Signature),
		PayloadVersion: payloadVersion,
	}
}

// Record rebuilds the long-term record. A signature that is not valid hex is
// kept as its raw text so that it fails verification instead of reading as unsigned.
func (e Entry) Record() (types.MemoryRecord, error) {
	if e.Damaged {
		return types.MemoryRecord{}, fmt.Errorf("journal entry %s is damaged", e.ID)
	}
	created, err := time.Parse(time.RFC3339Nano, e.CreatedAt)
	if err != nil {
		return types.MemoryRecord{}, fmt.Errorf("parse created_at of %s: %w", e.ID, err)
	}
	sig, err := hex.DecodeString(e.Signature)
	if err != nil {
		sig = []byte(e.Signature)
	}
	return types.MemoryRecord{
		ID:        e.ID,
		Content:   e.Content,
		Source:    e.Source,
		Tier:      types.TierLongTerm,
		CreatedAt: created.UTC(),
		Signature: sig,
	}, nil
}

// Version returns the payload version, treating an absent value as 1.
func (e Entry) Version() int {
	if e.PayloadVersion == 0 {
		return 1
	}
	return e.PayloadVersion
}
