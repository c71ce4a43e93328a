// Package downloadtoken mints and checks the short-lived signed tokens
// that authorize a single statement download.
//
// A token is base64url(payload JSON) "." base64url(HMAC-SHA256). The
// service checks integrity and structural freshness only; expiry against
// the current time and ownership are the caller's decisions.
package downloadtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
)

const (
	DefaultMaxLifetime    = 15 * time.Minute
	DefaultClockSkew      = 30 * time.Second
	DefaultMaxTokenLength = 4096
)

var (
	ErrInvalidStatementID = errors.New("statement id is required")
	ErrInvalidCustomerID  = errors.New("customer id is required")
	ErrInvalidExpiry      = errors.New("expiry must be after issuance")
	ErrLifetimeTooLong    = errors.New("token lifetime exceeds maximum")
)

// Reason tags why a token failed validation. It is for logs and
// metrics and never goes back to the caller.
type Reason string

const (
	ReasonTooLong          Reason = "too_long"
	ReasonMalformed        Reason = "malformed"
	ReasonBadSignature     Reason = "bad_signature"
	ReasonBadPayload       Reason = "bad_payload"
	ReasonBadLifetime      Reason = "bad_lifetime"
	ReasonLifetimeExceeded Reason = "lifetime_exceeded"
	ReasonIssuedInFuture   Reason = "issued_in_future"
)

// ValidationError is returned by Validate.
type ValidationError struct {
	Reason Reason
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download token rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("download token rejected (%s)", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}

type Option func(*Service)

func WithMaxLifetime(d time.Duration) Option {
	return func(s *Service) { s.maxLifetime = d }
}

func WithClockSkew(d time.Duration) Option {
	return func(s *Service) { s.clockSkew = d }
}

func WithMaxTokenLength(n int) Option {
	return func(s *Service) { s.maxTokenLength = n }
}

// Service issues and validates download tokens.
type Service struct {
	signer         *Signer
	clock          clock.Clock
	maxLifetime    time.Duration
	clockSkew      time.Duration
	maxTokenLength int
}

func NewService(signer *Signer, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		signer:         signer,
		clock:          clk,
		maxLifetime:    DefaultMaxLifetime,
		clockSkew:      DefaultClockSkew,
		maxTokenLength: DefaultMaxTokenLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxLifetime returns the longest lifetime a token may carry.
func (s *Service) MaxLifetime() time.Duration {
	return s.maxLifetime
}

// CreateToken mints a token for statementID owned by customerID that
// expires at expiresAt.
func (s *Service) CreateToken(statementID uuid.UUID, customerID string, expiresAt time.Time) (string, error) {
	if statementID == uuid.Nil {
		return "", ErrInvalidStatementID
	}
	if strings.TrimSpace(customerID) == "" {
		return "", ErrInvalidCustomerID
	}

	now := s.clock.Now().UTC()
	expiresAt = expiresAt.UTC()
	if !expiresAt.After(now) {
		return "", ErrInvalidExpiry
	}
	if expiresAt.Sub(now) > s.maxLifetime {
		return "", ErrLifetimeTooLong
	}

	segment, err := EncodePayload(Payload{
		TokenID:     uuid.New(),
		StatementID: statementID,
		CustomerID:  customerID,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return "", err
	}

	return segment + "." + s.signer.Sign(segment), nil
}

// TryValidate reports whether token is authentic and well formed.
func (s *Service) TryValidate(token string) (Payload, bool) {
	p, err := s.Validate(token)
	if err != nil {
		return Payload{}, false
	}
	return p, true
}

// Validate runs the checks in order and stops at the first failure.
// Errors are always *ValidationError.
func (s *Service) Validate(token string) (Payload, error) {
	if len(token) > s.maxTokenLength {
		return Payload{}, &ValidationError{Reason: ReasonTooLong}
	}

	segment, signature, ok := strings.Cut(token, ".")
	if !ok || segment == "" || signature == "" {
		return Payload{}, &ValidationError{Reason: ReasonMalformed}
	}

	if !s.signer.Verify(segment, signature) {
		return Payload{}, &ValidationError{Reason: ReasonBadSignature}
	}

	p, err := DecodePayload(segment)
	if err != nil {
		return Payload{}, &ValidationError{Reason: ReasonBadPayload, Err: err}
	}

	if !p.ExpiresAt.After(p.IssuedAt) {
		return Payload{}, &ValidationError{Reason: ReasonBadLifetime}
	}
	if p.ExpiresAt.Sub(p.IssuedAt) > s.maxLifetime {
		return Payload{}, &ValidationError{Reason: ReasonLifetimeExceeded}
	}

	if p.IssuedAt.After(s.clock.Now().Add(s.clockSkew)) {
		return Payload{}, &ValidationError{Reason: ReasonIssuedInFuture}
	}

	return p, nil
}
