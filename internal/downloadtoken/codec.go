package downloadtoken

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMalformedPayload = errors.New("malformed token payload")
	ErrMissingField     = errors.New("token payload field missing")
)

// segmentEncoding is unpadded base64url that rejects non-canonical
// trailing bits, so every distinct segment string maps to distinct bytes.
var segmentEncoding = base64.RawURLEncoding.Strict()

// Payload is the claim set carried by a download token.
type Payload struct {
	TokenID     uuid.UUID
	StatementID uuid.UUID
	CustomerID  string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type wirePayload struct {
	TokenID     *uuid.UUID `json:"tokenId"`
	StatementID *uuid.UUID `json:"statementId"`
	CustomerID  *string    `json:"customerId"`
	IssuedAt    *time.Time `json:"issuedAt"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// EncodePayload serializes p as compact JSON and returns its base64url form.
func EncodePayload(p Payload) (string, error) {
	issuedAt := p.IssuedAt.UTC()
	expiresAt := p.ExpiresAt.UTC()
	raw, err := json.Marshal(wirePayload{
		TokenID:     &p.TokenID,
		StatementID: &p.StatementID,
		CustomerID:  &p.CustomerID,
		IssuedAt:    &issuedAt,
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token payload: %w", err)
	}
	return segmentEncoding.EncodeToString(raw), nil
}

// DecodePayload reverses EncodePayload. It only checks structure; the
// lifetime and ownership rules live in Service.
func DecodePayload(segment string) (Payload, error) {
	raw, err := segmentEncoding.DecodeString(segment)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var w wirePayload
	if err := dec.Decode(&w); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}

	switch {
	case w.TokenID == nil || *w.TokenID == uuid.Nil:
		return Payload{}, fmt.Errorf("%w: tokenId", ErrMissingField)
	case w.StatementID == nil || *w.StatementID == uuid.Nil:
		return Payload{}, fmt.Errorf("%w: statementId", ErrMissingField)
	case w.CustomerID == nil || strings.TrimSpace(*w.CustomerID) == "":
		return Payload{}, fmt.Errorf("%w: customerId", ErrMissingField)
	case w.IssuedAt == nil || w.IssuedAt.IsZero():
		return Payload{}, fmt.Errorf("%w: issuedAt", ErrMissingField)
	case w.ExpiresAt == nil || w.ExpiresAt.IsZero():
		return Payload{}, fmt.Errorf("%w: expiresAt", ErrMissingField)
	}

	return Payload{
		TokenID:     *w.TokenID,
		StatementID: *w.StatementID,
		CustomerID:  *w.CustomerID,
		IssuedAt:    w.IssuedAt.UTC(),
		ExpiresAt:   w.ExpiresAt.UTC(),
	}, nil
}
