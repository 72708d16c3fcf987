package signing

import (
	"bytes"
	"testing"
	"time"

	"github.com/xiy/signed-memory/internal/keys"
	"github.com/xiy/signed-memory/pkg/types"
)

func testPair(t *testing.T, b byte) keys.Pair {
	t.Helper()
	p, err := keys.FromSeed(bytes.Repeat([]byte{b}, 32))
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	return p
}

func testRecord() types.MemoryRecord {
	created := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)
	return types.MemoryRecord{
		ID:         "rec-1",
		Content:    "note-A",
		Source:     "planner",
		Tier:       types.TierLongTerm,
		CreatedAt:  created,
		TrustScore: 0.8,
	}
}

func TestVerify_CorrectAndWrongKey(t *testing.T) {
	t.Parallel()
	good := testPair(t, 1)
	other := testPair(t, 2)

	signed, err := Sign(testRecord(), good.Private)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !Verify(signed, good.Public) {
		t.Fatal("expected verification with the signing key to succeed")
	}
	if Verify(signed, other.Public) {
		t.Fatal("expected verification with a different key to fail")
	}
}

func TestSign_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	rec := testRecord()
	signed, err := Sign(rec, testPair(t, 1).Private)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if rec.Signature != nil {
		t.Fatal("expected input record to stay unsigned")
	}
	if signed.Tier != rec.Tier || signed.Content != rec.Content || !signed.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("unexpected field change: %+v", signed)
	}
}

func TestVerify_PayloadFieldMutations(t *testing.T) {
	t.Parallel()
	pair := testPair(t, 1)
	signed, err := Sign(testRecord(), pair.Private)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	cases := map[string]func(*types.MemoryRecord){
		"content":    func(r *types.MemoryRecord) { r.Content = "note-B" },
		"id":         func(r *types.MemoryRecord) { r.ID = "rec-2" },
		"source":     func(r *types.MemoryRecord) { r.Source = "intruder" },
		"created_at": func(r *types.MemoryRecord) { r.CreatedAt = r.CreatedAt.Add(time.Nanosecond) },
	}
	for name, mutate := range cases {
		rec := signed.Clone()
		mutate(&rec)
		if Verify(rec, pair.Public) {
			t.Fatalf("expected verification to fail after mutating %s", name)
		}
	}

	// Fields outside the payload may change freely.
	rec := signed.Clone()
	rec.TrustScore = 0.1
	exp := time.Now().Add(time.Hour)
	rec.ExpiresAt = &exp
	if !Verify(rec, pair.Public) {
		t.Fatal("expected trust_score and expires_at to be outside the payload")
	}
}

func TestVerify_MalformedInputsReturnFalse(t *testing.T) {
	t.Parallel()
	pair := testPair(t, 1)
	rec := testRecord()
	if Verify(rec, pair.Public) {
		t.Fatal("expected unsigned record to fail")
	}
	rec.Signature = []byte("not-a-signature")
	if Verify(rec, pair.Public) {
		t.Fatal("expected short signature to fail")
	}
	signed, err := Sign(testRecord(), pair.Private)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if Verify(signed, nil) {
		t.Fatal("expected nil public key to fail")
	}
	if Verify(signed, pair.Public[:10]) {
		t.Fatal("expected truncated public key to fail")
	}
}

func TestSign_RejectsMalformedPrivateKey(t *testing.T) {
	t.Parallel()
	if _, err := Sign(testRecord(), []byte("short")); err == nil {
		t.Fatal("expected malformed key error")
	}
	if _, err := SignContent("x", nil); err == nil {
		t.Fatal("expected malformed key error")
	}
}

func TestPayload_DeterministicAndUnambiguous(t *testing.T) {
	t.Parallel()
	a := testRecord()
	b := testRecord()
	b.Tier = types.TierScratch
	b.TrustScore = 0
	if !bytes.Equal(Payload(a), Payload(b)) {
		t.Fatal("expected payload to ignore tier and trust_score")
	}

	// Shifting a separator between adjacent fields must change the payload.
	c := testRecord()
	c.Content, c.Source = "a|b", "c"
	d := testRecord()
	d.Content, d.Source = "a", "b|c"
	if bytes.Equal(Payload(c), Payload(d)) {
		t.Fatal("expected distinct payloads for distinct field splits")
	}

	// Time zone of the in-memory value does not matter, the instant does.
	e := testRecord()
	e.CreatedAt = e.CreatedAt.In(time.FixedZone("X", 3600))
	if !bytes.Equal(Payload(a), Payload(e)) {
		t.Fatal("expected payload to normalize created_at to UTC")
	}
}

func TestContentRoundTrip(t *testing.T) {
	t.Parallel()
	pair := testPair(t, 3)
	sig, err := SignContent("raw note", pair.Private)
	if err != nil {
		t.Fatalf("SignContent() error = %v", err)
	}
	if !VerifyContent("raw note", sig, pair.Public) {
		t.Fatal("expected content signature to verify")
	}
	if VerifyContent("raw note!", sig, pair.Public) {
		t.Fatal("expected altered content to fail")
	}
}
