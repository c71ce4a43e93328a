package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	issuer       string
	audience     string
	clock        clock.Clock
}

func NewPasetoService(symmetricKey []byte, issuer, audience string, clk clock.Clock) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		issuer:       issuer,
		audience:     audience,
		clock:        clk,
	}, nil
}

// CreateToken generates a new PASETO v4.local token for p
func (s *PasetoService) CreateToken(p Principal, duration time.Duration) (string, error) {
	now := s.clock.Now()

	token := paseto.NewToken()
	token.SetIssuer(s.issuer)
	token.SetAudience(s.audience)
	token.SetSubject(p.Subject)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(duration))
	token.SetString("name", p.Name)
	token.SetString("customerId", p.CustomerID)
	if err := token.Set("roles", p.Roles); err != nil {
		return "", fmt.Errorf("failed to set roles: %w", err)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken decrypts a PASETO v4.local token and returns its principal
func (s *PasetoService) VerifyToken(tokenStr string) (*Principal, error) {
	// Time rules are applied below so the same leeway as JWT applies.
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.IssuedBy(s.issuer), paseto.ForAudience(s.audience))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	now := s.clock.Now()

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !now.Before(expiresAt.Add(DefaultLeeway)) {
		return nil, ErrExpiredToken
	}
	if notBefore, err := token.GetNotBefore(); err == nil && now.Add(DefaultLeeway).Before(notBefore) {
		return nil, ErrInvalidToken
	}

	subject, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}

	p := &Principal{Subject: subject}
	p.Name, _ = token.GetString("name")
	p.CustomerID, _ = token.GetString("customerId")
	if err := token.Get("roles", &p.Roles); err != nil {
		p.Roles = nil
	}

	return p, nil
}
