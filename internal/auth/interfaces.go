package auth

import (
	"time"
)

// TokenService defines the interface for caller token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(p Principal, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*Principal, error)
}
