package memory

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/xiy/signed-memory/internal/signing"
	"github.com/xiy/signed-memory/internal/store"
)

// AuditEntry is the verification outcome for one journal entry.
type AuditEntry struct {
	ID        string
	Source    string
	Content   string
	CreatedAt time.Time
	Verified  bool
	Reason    string
}

// AuditReport summarizes a full journal replay checked against one public key.
type AuditReport struct {
	Path     string
	Entries  []AuditEntry
	Verified int
	Rejected int
	Skipped  int
}

// Audit replays j from the start and verifies every entry against pub.
func Audit(ctx context.Context, j store.Journal, pub ed25519.PublicKey) (AuditReport, error) {
	rep := AuditReport{Path: j.Path()}
	replay, err := j.Replay(ctx)
	if err != nil {
		return rep, fmt.Errorf("replay journal: %w", err)
	}
	rep.Skipped = replay.Skipped
	rep.Entries = make([]AuditEntry, 0, len(replay.Entries))

	for _, e := range replay.Entries {
		ae := AuditEntry{ID: e.ID, Source: e.Source, Content: e.Content}
		rec, err := e.Record()
		switch {
		case e.Damaged:
			ae.Reason = "undecodable entry"
		case err != nil:
			ae.Reason = "malformed created_at"
		case e.Version() != signing.PayloadVersion:
			ae.CreatedAt = rec.CreatedAt
			ae.Reason = fmt.Sprintf("unsupported payload version %d", e.Version())
		case !signing.Verify(rec, pub):
			ae.CreatedAt = rec.CreatedAt
			ae.Reason = "signature mismatch"
		default:
			ae.CreatedAt = rec.CreatedAt
			ae.Verified = true
		}
		if ae.Verified {
			rep.Verified++
		} else {
			rep.Rejected++
		}
		rep.Entries = append(rep.Entries, ae)
	}
	return rep, nil
}

// VerifiedContent returns the content of verified entries in journal order.
func (r AuditReport) VerifiedContent() []string {
	out := make([]string, 0, r.Verified)
	for _, e := range r.Entries {
		if e.Verified {
			out = append(out, e.Content)
		}
	}
	return out
}
