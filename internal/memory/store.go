package memory

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiy/signed-memory/internal/keys"
	"github.com/xiy/signed-memory/internal/signing"
	"github.com/xiy/signed-memory/internal/store"
	"github.com/xiy/signed-memory/internal/ttl"
	"github.com/xiy/signed-memory/pkg/types"
)

// Options configures a Store.
type Options struct {
	Keys    keys.Pair
	Journal store.Journal
	Clock   Clock
	Logger  *log.Logger
	// SessionTTL is the lifetime NewRecord gives session records.
	SessionTTL time.Duration
	// SweepInterval enables the background expiry sweep when positive.
	SweepInterval time.Duration
}

// View is the combined read of session and long-term content.
type View struct {
	Session  []string `json:"session"`
	LongTerm []string `json:"long_term"`
}

// Store routes records to their tier and owns the long-term journal.
type Store struct {
	keys       keys.Pair
	journal    store.Journal
	now        Clock
	logger     *log.Logger
	sessionTTL time.Duration

	scratch  *ScratchTier
	session  *SessionTier
	longterm *LongTermTier

	stop context.CancelFunc
	done chan struct{}
}

// Open builds a Store and loads previously committed long-term records from
// the journal. Loaded records are not trusted until a read verifies them.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if !opts.Keys.Valid() {
		return nil, errors.New("a valid ed25519 key pair is required")
	}
	if opts.Journal == nil {
		return nil, errors.New("journal is required")
	}
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}

	s := &Store{
		keys:       opts.Keys,
		journal:    opts.Journal,
		now:        opts.Clock,
		logger:     opts.Logger,
		sessionTTL: opts.SessionTTL,
		scratch:    NewScratchTier(opts.Logger),
		session:    NewSessionTier(opts.Clock, opts.Logger),
		longterm:   NewLongTermTier(opts.Keys.Public, opts.Logger),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	if opts.SweepInterval > 0 {
		sweepCtx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		s.done = make(chan struct{})
		go func() {
			defer close(s.done)
			ttl.NewSweeper(s, opts.SweepInterval, s.logger).Run(sweepCtx)
		}()
	}
	return s, nil
}

// Reload replaces the long-term tier's contents with the journal's current
// contents. Long-term writes wait until it finishes. Entries that no longer
// decode or use an unknown payload version are held as records that fail
// verification.
func (s *Store) Reload(ctx context.Context) error {
	lt := s.longterm
	lt.mu.Lock()
	defer lt.mu.Unlock()

	replay, err := s.journal.Replay(ctx)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	next := NewLongTermTier(s.keys.Public, s.logger)
	for _, e := range replay.Entries {
		var restored bool
		rec, err := e.Record()
		switch {
		case err != nil:
			s.logger.Warn("journal entry is damaged", "id", e.ID, "error", err)
			restored = next.quarantine(e.ID)
		case e.Version() != signing.PayloadVersion:
			s.logger.Warn("journal entry uses an unsupported payload version", "id", e.ID, "version", e.Version())
			restored = next.quarantine(e.ID)
		default:
			restored = next.Restore(rec)
		}
		if !restored {
			s.logger.Warn("duplicate journal entry ignored", "id", e.ID)
		}
	}
	lt.items, lt.order = next.items, next.order
	s.logger.Debug("loaded journal", "path", s.journal.Path(), "entries", len(lt.items), "skipped", replay.Skipped)
	return nil
}

// NewRecord builds an unsigned record stamped with the store clock. Session
// records expire after the configured session TTL.
func (s *Store) NewRecord(tier types.Tier, content, source string, trustScore float64) types.MemoryRecord {
	now := s.now()
	var expiresAt *time.Time
	if tier == types.TierSession {
		t := now.Add(s.sessionTTL)
		expiresAt = &t
	}
	return types.NewRecord(tier, content, source, trustScore, now, expiresAt)
}

// Sign signs rec with the agent's private key.
func (s *Store) Sign(rec types.MemoryRecord) (types.MemoryRecord, error) {
	return signing.Sign(rec, s.keys.Private)
}

// SignForLongTerm signs content directly, without a record around it. The
// caller must rebuild the same bytes to verify it later.
func (s *Store) SignForLongTerm(content string) ([]byte, error) {
	return signing.SignContent(content, s.keys.Private)
}

// Write hands rec to the tier named by rec.Tier. Long-term records are
// appended to the journal before they are admitted.
func (s *Store) Write(ctx context.Context, rec types.MemoryRecord) error {
	switch rec.Tier {
	case types.TierScratch:
		return s.scratch.Add(rec)
	case types.TierSession:
		return s.session.Add(rec)
	case types.TierLongTerm:
		return s.longterm.AddCommitted(rec, func(r types.MemoryRecord) error {
			return s.journal.Append(ctx, store.EntryFromRecord(r, signing.PayloadVersion))
		})
	default:
		return fmt.Errorf("%w: %q on record %s", ErrInvalidTier, rec.Tier, rec.ID)
	}
}

// Read purges expired session records and returns active session content
// plus long-term content from a fresh journal replay that verifies against
// the current public key.
func (s *Store) Read(ctx context.Context) (View, error) {
	s.session.PurgeExpired()
	active := s.session.GetActive()
	view := View{Session: make([]string, 0, len(active))}
	for _, r := range active {
		view.Session = append(view.Session, r.Content)
	}

	rep, err := Audit(ctx, s.journal, s.keys.Public)
	if err != nil {
		return view, err
	}
	if rep.Rejected > 0 {
		s.logger.Warn("journal entries failed verification", "rejected", rep.Rejected, "path", rep.Path)
	}
	view.LongTerm = rep.VerifiedContent()
	return view, nil
}

// PurgeExpired removes expired session records.
func (s *Store) PurgeExpired(_ context.Context) (int64, error) {
	return int64(s.session.PurgeExpired()), nil
}

// Scratch returns the scratch tier.
func (s *Store) Scratch() *ScratchTier { return s.scratch }

// Session returns the session tier.
func (s *Store) Session() *SessionTier { return s.session }

// LongTerm returns the long-term tier.
func (s *Store) LongTerm() *LongTermTier { return s.longterm }

// PublicKey returns the key long-term records are verified against.
func (s *Store) PublicKey() ed25519.PublicKey {
	return s.keys.Public
}

// Close stops the sweeper and closes the journal.
func (s *Store) Close() error {
	if s.stop != nil {
		s.stop()
		<-s.done
		s.stop = nil
	}
	return s.journal.Close()
}
