package types

import (
	"testing"
	"time"
)

func TestNewRecord_NormalizesToUTC(t *testing.T) {
	t.Parallel()
	zone := time.FixedZone("X", -5*3600)
	created := time.Date(2026, 2, 17, 5, 0, 0, 0, zone)
	exp := created.Add(time.Hour)

	a := NewRecord(TierSession, "c", "s", 0.5, created, &exp)
	b := NewRecord(TierSession, "c", "s", 0.5, created, &exp)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.CreatedAt.Location() != time.UTC || a.ExpiresAt.Location() != time.UTC {
		t.Fatal("expected UTC timestamps")
	}
	if a.Signed() {
		t.Fatal("new records start unsigned")
	}
	exp = exp.Add(time.Hour)
	if a.ExpiresAt.Equal(exp) {
		t.Fatal("record must not alias the caller's expiry")
	}
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()
	exp := time.Now().UTC()
	r := MemoryRecord{ID: "x", ExpiresAt: &exp, Signature: []byte{1, 2, 3}}
	c := r.Clone()
	c.Signature[0] = 9
	*c.ExpiresAt = exp.Add(time.Hour)
	if r.Signature[0] != 1 || !r.ExpiresAt.Equal(exp) {
		t.Fatal("clone shares memory with the original")
	}
}
