package downloadtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinKeyLength is the shortest accepted signing key or master secret.
const MinKeyLength = 32

var ErrKeyTooShort = fmt.Errorf("download token key must be at least %d bytes", MinKeyLength)

// Signer computes and checks HMAC-SHA256 signatures over payload
// segments. The key is copied at construction and never written again,
// so a Signer is safe for concurrent use.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign returns the base64url signature of the exact segment text.
func (s *Signer) Sign(segment string) string {
	return segmentEncoding.EncodeToString(s.mac(segment))
}

// Verify reports whether signature is valid for segment.
func (s *Signer) Verify(segment, signature string) bool {
	got, err := segmentEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.mac(segment))
}

func (s *Signer) mac(segment string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(segment))
	return h.Sum(nil)
}

// DeriveKey expands a master secret into a purpose-bound signing key
// with HKDF-SHA256.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	if purpose == "" {
		return nil, errors.New("key purpose is required")
	}

	key := make([]byte, MinKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// ParseSecret accepts a standard base64 secret, falling back to the raw
// bytes when the value is not base64 or decodes to fewer than
// MinKeyLength bytes.
func ParseSecret(raw string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) >= MinKeyLength {
		return decoded
	}
	return []byte(raw)
}
