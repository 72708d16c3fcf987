package types

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the storage class a record belongs to.
type Tier string

const (
	TierScratch  Tier = "SCRATCH"
	TierSession  Tier = "SESSION"
	TierLongTerm Tier = "LONGTERM"
)

// MemoryRecord represents one memory item held by a tier.
type MemoryRecord struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Source     string     `json:"source"`
	Tier       Tier       `json:"tier"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	TrustScore float64    `json:"trust_score"`
	Signature  []byte     `json:"signature,omitempty"`
}

// NewRecord builds an unsigned record with a fresh id. Timestamps are stored in UTC.
func NewRecord(tier Tier, content, source string, trustScore float64, createdAt time.Time, expiresAt *time.Time) MemoryRecord {
	rec := MemoryRecord{
		ID:         uuid.NewString(),
		Content:    content,
		Source:     source,
		Tier:       tier,
		CreatedAt:  createdAt.UTC(),
		TrustScore: trustScore,
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		rec.ExpiresAt = &t
	}
	return rec
}

// Signed reports whether the record carries a signature.
func (r MemoryRecord) Signed() bool {
	return len(r.Signature) > 0
}

// Clone returns a deep copy so callers cannot reach stored state through it.
func (r MemoryRecord) Clone() MemoryRecord {
	out := r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	if r.Signature != nil {
		out.Signature = append([]byte(nil), r.Signature...)
	}
	return out
}
