package keys

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGenerate_FreshPairs(t *testing.T) {
	t.Parallel()
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !a.Valid() || !b.Valid() {
		t.Fatal("expected valid key sizes")
	}
	if bytes.Equal(a.Public, b.Public) {
		t.Fatal("expected distinct public keys")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerate_EntropyFailure(t *testing.T) {
	t.Parallel()
	if _, err := generate(failingReader{}); err == nil {
		t.Fatal("expected entropy failure to surface")
	}
}

func TestFromSeed_Deterministic(t *testing.T) {
	t.Parallel()
	seed := bytes.Repeat([]byte{7}, 32)
	a, err := FromSeed(seed)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	b, err := FromSeed(seed)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	if !bytes.Equal(a.Public, b.Public) {
		t.Fatal("expected identical pairs for identical seeds")
	}
	if _, err := FromSeed([]byte("short")); err == nil {
		t.Fatal("expected seed length error")
	}
}

func TestParsePublicKey(t *testing.T) {
	t.Parallel()
	p, err := FromSeed(bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	got, err := ParsePublicKey(" " + p.PublicHex() + "\n")
	if err != nil {
		t.Fatalf("ParsePublicKey() error = %v", err)
	}
	if !bytes.Equal(got, p.Public) {
		t.Fatal("parsed key does not match")
	}
	if _, err := ParsePublicKey("zz"); err == nil {
		t.Fatal("expected hex error")
	}
	if _, err := ParsePublicKey("abcd"); err == nil {
		t.Fatal("expected size error")
	}
}

func TestPair_StringHidesPrivateKey(t *testing.T) {
	t.Parallel()
	p, err := FromSeed(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	privHex := fmt.Sprintf("%x", []byte(p.Private))
	for _, s := range []string{fmt.Sprint(p), fmt.Sprintf("%v", p), fmt.Sprintf("%#v", p)} {
		if strings.Contains(s, privHex[:64]) {
			t.Fatalf("private key leaked in %q", s)
		}
	}
}
