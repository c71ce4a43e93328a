package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
)

// DefaultLeeway tolerates clock drift between the issuer and this service.
const DefaultLeeway = 30 * time.Second

type jwtClaims struct {
	Name       string           `json:"name,omitempty"`
	CustomerID string           `json:"customerId,omitempty"`
	CID        string           `json:"cid,omitempty"`
	Role       jwt.ClaimStrings `json:"role,omitempty"`
	Roles      jwt.ClaimStrings `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTService validates HS256 bearer tokens issued by the identity
// provider and can mint equivalent tokens for development.
type JWTService struct {
	key      []byte
	issuer   string
	audience string
	clock    clock.Clock
	parser   *jwt.Parser
}

func NewJWTService(key []byte, issuer, audience string, clk clock.Clock) (*JWTService, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("JWT signing key must be at least 32 bytes, got %d", len(key))
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("JWT issuer and audience are required")
	}

	return &JWTService{
		key:      key,
		issuer:   issuer,
		audience: audience,
		clock:    clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithLeeway(DefaultLeeway),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

// CreateToken signs a token for p valid for duration.
func (s *JWTService) CreateToken(p Principal, duration time.Duration) (string, error) {
	now := s.clock.Now()
	claims := jwtClaims{
		Name:       p.Name,
		CustomerID: p.CustomerID,
		Roles:      p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates tokenStr and returns its principal.
func (s *JWTService) VerifyToken(tokenStr string) (*Principal, error) {
	var claims jwtClaims
	_, err := s.parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	customerID := claims.CustomerID
	if customerID == "" {
		customerID = claims.CID
	}

	roles := make([]string, 0, len(claims.Role)+len(claims.Roles))
	roles = append(roles, claims.Role...)
	roles = append(roles, claims.Roles...)

	return &Principal{
		Subject:    claims.Subject,
		Name:       claims.Name,
		CustomerID: customerID,
		Roles:      roles,
	}, nil
}
