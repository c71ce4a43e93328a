package statement

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/downloadtoken"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/filestore"
)

// ListFilter narrows a customer's statement listing. Zero values mean
// no constraint.
type ListFilter struct {
	AccountID     string
	AccountType   AccountType
	PeriodKey     int
	FromPeriodKey int
	ToPeriodKey   int
	Skip          int
	Take          int
}

// Repository persists statements and audit events.
type Repository interface {
	AddStatementWithAudit(ctx context.Context, s *Statement, e *AuditEvent) error
	GetStatement(ctx context.Context, id uuid.UUID) (*Statement, error)
	ListStatements(ctx context.Context, customerID string, f ListFilter) ([]Statement, error)
	AddAuditEvent(ctx context.Context, e *AuditEvent) error
	HasStatements(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
}

// FileStore holds statement files.
type FileStore interface {
	SaveWithHash(ctx context.Context, rel string, r io.Reader) (filestore.SaveResult, error)
	OpenRead(ctx context.Context, rel string) (*filestore.File, error)
	Remove(rel string) error
}

// TokenService mints and checks download tokens.
type TokenService interface {
	CreateToken(statementID uuid.UUID, customerID string, expiresAt time.Time) (string, error)
	Validate(token string) (downloadtoken.Payload, error)
}
