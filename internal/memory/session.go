package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiy/signed-memory/pkg/types"
)

// Clock returns the current time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// SessionTier is unsigned working memory where every record must expire.
type SessionTier struct {
	mu     sync.Mutex
	items  []types.MemoryRecord
	ids    map[string]struct{}
	now    Clock
	logger *log.Logger
}

// NewSessionTier builds a session tier; a nil clock means the system clock.
func NewSessionTier(now Clock, logger *log.Logger) *SessionTier {
	if now == nil {
		now = systemClock
	}
	return &SessionTier{ids: map[string]struct{}{}, now: now, logger: logger}
}

// Add admits rec if its expiry is set and strictly after now.
func (t *SessionTier) Add(rec types.MemoryRecord) error {
	if rec.Tier != types.TierSession {
		return fmt.Errorf("%w: session tier got %s record %s", ErrTierMismatch, rec.Tier, rec.ID)
	}
	now := t.now()
	if rec.ExpiresAt == nil {
		return fmt.Errorf("%w: session %s has no expiry", ErrExpiryInvalid, rec.ID)
	}
	if !rec.ExpiresAt.After(now) {
		return fmt.Errorf("%w: session %s expires at %s, now %s", ErrExpiryInvalid, rec.ID,
			rec.ExpiresAt.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[rec.ID]; ok {
		return fmt.Errorf("%w: session %s", ErrDuplicateID, rec.ID)
	}
	t.ids[rec.ID] = struct{}{}
	t.items = append(t.items, rec.Clone())
	t.logger.Debug("added session record", "id", rec.ID, "expires_at", rec.ExpiresAt.UTC())
	return nil
}

// GetActive returns records that have not expired as of now. Expired records
// stay stored until PurgeExpired but are never returned here.
func (t *SessionTier) GetActive() []types.MemoryRecord {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.MemoryRecord, 0, len(t.items))
	for _, r := range t.items {
		if active(r, now) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// PurgeExpired removes records whose expiry is at or before now and returns how many went.
func (t *SessionTier) PurgeExpired() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.items[:0]
	removed := 0
	for _, r := range t.items {
		if active(r, now) {
			kept = append(kept, r)
			continue
		}
		delete(t.ids, r.ID)
		removed++
	}
	for i := len(kept); i < len(t.items); i++ {
		t.items[i] = types.MemoryRecord{}
	}
	t.items = kept
	if removed > 0 {
		t.logger.Debug("purged expired session records", "count", removed)
	}
	return removed
}

// Len returns the number of stored session records, expired or not.
func (t *SessionTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

func active(r types.MemoryRecord, now time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}
