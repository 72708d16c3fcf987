package memory

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/xiy/signed-memory/pkg/types"
)

// ScratchTier is unsigned working memory that lives until Clear.
type ScratchTier struct {
	mu     sync.Mutex
	items  []types.MemoryRecord
	ids    map[string]struct{}
	logger *log.Logger
}

// NewScratchTier returns an empty scratch tier.
func NewScratchTier(logger *log.Logger) *ScratchTier {
	return &ScratchTier{ids: map[string]struct{}{}, logger: logger}
}

// Add appends rec without signature or expiry checks.
func (t *ScratchTier) Add(rec types.MemoryRecord) error {
	if rec.Tier != types.TierScratch {
		return fmt.Errorf("%w: scratch tier got %s record %s", ErrTierMismatch, rec.Tier, rec.ID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[rec.ID]; ok {
		return fmt.Errorf("%w: scratch %s", ErrDuplicateID, rec.ID)
	}
	t.ids[rec.ID] = struct{}{}
	t.items = append(t.items, rec.Clone())
	t.logger.Debug("added scratch record", "id", rec.ID)
	return nil
}

// GetAll returns a snapshot of all records in insertion order.
func (t *ScratchTier) GetAll() []types.MemoryRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneAll(t.items)
}

// Clear drops every record.
func (t *ScratchTier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.items)
	t.items = nil
	t.ids = map[string]struct{}{}
	t.logger.Debug("cleared scratch records", "count", n)
}

// Len returns the number of scratch records.
func (t *ScratchTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

func cloneAll(in []types.MemoryRecord) []types.MemoryRecord {
	out := make([]types.MemoryRecord, 0, len(in))
	for _, r := range in {
		out = append(out, r.Clone())
	}
	return out
}
