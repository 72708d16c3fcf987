package memory

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/xiy/signed-memory/internal/signing"
	"github.com/xiy/signed-memory/pkg/types"
)

// LongTermTier holds signed records. Admission verifies the signature and
// every read verifies it again, so a record altered after admission is never
// returned as trusted.
type LongTermTier struct {
	mu     sync.Mutex
	pub    ed25519.PublicKey
	items  map[string]types.MemoryRecord
	order  []string
	logger *log.Logger
}

// NewLongTermTier returns an empty tier that trusts records signed for pub.
func NewLongTermTier(pub ed25519.PublicKey, logger *log.Logger) *LongTermTier {
	return &LongTermTier{pub: pub, items: map[string]types.MemoryRecord{}, logger: logger}
}

// Add admits a signed record that verifies against the agent's public key.
func (t *LongTermTier) Add(rec types.MemoryRecord) error {
	return t.AddCommitted(rec, nil)
}

// AddCommitted runs the admission checks, then commit, and only then makes the
// record visible. A commit error leaves the tier unchanged.
func (t *LongTermTier) AddCommitted(rec types.MemoryRecord, commit func(types.MemoryRecord) error) error {
	if err := t.check(rec); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[rec.ID]; ok {
		return fmt.Errorf("%w: long-term %s", ErrDuplicateID, rec.ID)
	}
	if commit != nil {
		if err := commit(rec); err != nil {
			return fmt.Errorf("commit long-term %s: %w", rec.ID, err)
		}
	}
	t.put(rec)
	t.logger.Debug("added long-term record", "id", rec.ID)
	return nil
}

func (t *LongTermTier) check(rec types.MemoryRecord) error {
	if rec.Tier != types.TierLongTerm {
		return fmt.Errorf("%w: long-term tier got %s record %s", ErrTierMismatch, rec.Tier, rec.ID)
	}
	if !rec.Signed() {
		return fmt.Errorf("%w: long-term %s", ErrUnsigned, rec.ID)
	}
	if !signing.Verify(rec, t.pub) {
		return fmt.Errorf("%w: long-term %s", ErrSignatureInvalid, rec.ID)
	}
	return nil
}

// Restore places a record replayed from the journal without the admission
// check. It reports false if the id is already held.
func (t *LongTermTier) Restore(rec types.MemoryRecord) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[rec.ID]; ok {
		return false
	}
	t.put(rec)
	return true
}

// quarantine holds id as a record that can never verify, so reads of a
// journal entry damaged after commit report an integrity violation.
func (t *LongTermTier) quarantine(id string) bool {
	return t.Restore(types.MemoryRecord{ID: id, Tier: types.TierLongTerm})
}

func (t *LongTermTier) put(rec types.MemoryRecord) {
	t.items[rec.ID] = rec.Clone()
	t.order = append(t.order, rec.ID)
}

// Get returns the record with the given id after verifying it again.
func (t *LongTermTier) Get(id string) (types.MemoryRecord, error) {
	t.mu.Lock()
	rec, ok := t.items[id]
	if ok {
		rec = rec.Clone()
	}
	t.mu.Unlock()

	if !ok {
		return types.MemoryRecord{}, fmt.Errorf("%w: long-term %s", ErrNotFound, id)
	}
	if !signing.Verify(rec, t.pub) {
		t.logger.Warn("long-term record failed re-verification", "id", id)
		return types.MemoryRecord{}, fmt.Errorf("%w: long-term %s", ErrIntegrityViolation, id)
	}
	return rec, nil
}

// GetAllVerified returns, in admission order, every record that still
// verifies. Records that fail are left out rather than reported as errors.
func (t *LongTermTier) GetAllVerified() []types.MemoryRecord {
	t.mu.Lock()
	snapshot := make([]types.MemoryRecord, 0, len(t.order))
	for _, id := range t.order {
		snapshot = append(snapshot, t.items[id].Clone())
	}
	t.mu.Unlock()

	out := snapshot[:0]
	for _, rec := range snapshot {
		if !signing.Verify(rec, t.pub) {
			t.logger.Warn("excluding long-term record that failed re-verification", "id", rec.ID)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Len returns the number of records held, verified or not.
func (t *LongTermTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}
