// Package keys owns the agent's Ed25519 signing key pair.
//
// Keys live in process memory only. Persisting or rotating them is left to the
// caller; FromSeed exists so such a collaborator (or a test) can rebuild a
// deterministic pair.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Pair is one agent's signing key pair.
type Pair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// Generate returns a fresh key pair drawn from crypto/rand.
func Generate() (Pair, error) {
	return generate(rand.Reader)
}

func generate(r io.Reader) (Pair, error) {
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return Pair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return Pair{Private: priv, Public: pub}, nil
}

// FromSeed derives a pair from a 32-byte seed.
func FromSeed(seed []byte) (Pair, error) {
	if len(seed) != ed25519.SeedSize {
		return Pair{}, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return Pair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}

// ParsePublicKey decodes a hex encoded Ed25519 public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}

// PublicHex returns the hex form of the public key.
func (p Pair) PublicHex() string {
	return hex.EncodeToString(p.Public)
}

// Valid reports whether both halves have the expected sizes.
func (p Pair) Valid() bool {
	return len(p.Private) == ed25519.PrivateKeySize && len(p.Public) == ed25519.PublicKeySize
}

// String keeps private material out of logs and %v output.
func (p Pair) String() string {
	return "keys.Pair{public=" + p.PublicHex() + "}"
}

// GoString covers %#v.
func (p Pair) GoString() string {
	return p.String()
}
