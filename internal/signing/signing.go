// Package signing builds the canonical payload of a memory record and signs or
// verifies it with Ed25519.
//
// The payload covers id, content, source and created_at only. Changing its
// layout invalidates every record signed before the change, so the layout is
// tagged with PayloadVersion and a new version must get a new header.
package signing

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/xiy/signed-memory/pkg/types"
)

// PayloadVersion identifies the payload layout produced by Payload.
const PayloadVersion = 1

const payloadHeader = "signed-memory/v1"

// Payload returns the bytes that get signed for rec. Each field is written as a
// uvarint length followed by its bytes so no separator can be forged from content.
func Payload(rec types.MemoryRecord) []byte {
	created := rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	fields := []string{rec.ID, rec.Content, rec.Source, created}

	size := len(payloadHeader)
	for _, f := range fields {
		size += binary.MaxVarintLen64 + len(f)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, payloadHeader...)
	for _, f := range fields {
		buf = binary.AppendUvarint(buf, uint64(len(f)))
		buf = append(buf, f...)
	}
	return buf
}

// Sign returns a copy of rec carrying a signature over Payload(rec).
func Sign(rec types.MemoryRecord, priv ed25519.PrivateKey) (types.MemoryRecord, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return rec, fmt.Errorf("sign record %s: private key must be %d bytes, got %d", rec.ID, ed25519.PrivateKeySize, len(priv))
	}
	out := rec.Clone()
	out.Signature = ed25519.Sign(priv, Payload(rec))
	return out, nil
}

// Verify reports whether rec carries a valid signature from pub. It never
// panics: a missing or malformed signature or key is simply false.
func Verify(rec types.MemoryRecord, pub ed25519.PublicKey) bool {
	return verify(pub, Payload(rec), rec.Signature)
}

// SignContent signs raw content bytes, outside of any record.
func SignContent(content string, priv ed25519.PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("sign content: private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	return ed25519.Sign(priv, []byte(content)), nil
}

// VerifyContent is the counterpart of SignContent.
func VerifyContent(content string, sig []byte, pub ed25519.PublicKey) bool {
	return verify(pub, []byte(content), sig)
}

func verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
