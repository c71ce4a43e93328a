package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Statement struct {
	bun.BaseModel `bun:"table:statements,alias:s"`

	ID          uuid.UUID `bun:"id,pk,type:varchar(36)"`
	CustomerID  string    `bun:"customer_id,notnull"`
	AccountID   string    `bun:"account_id,notnull"`
	AccountType string    `bun:"account_type,notnull"`
	Period      string    `bun:"period,notnull"`
	PeriodKey   int       `bun:"period_key,notnull"`
	FileName    string    `bun:"file_name,notnull"`
	ContentType string    `bun:"content_type,notnull"`
	SizeBytes   int64     `bun:"size_bytes,notnull"`
	SHA256      string    `bun:"sha256,notnull"`
	StoredPath  string    `bun:"stored_path,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type AuditEvent struct {
	bun.BaseModel `bun:"table:audit_events,alias:ae"`

	ID          uuid.UUID  `bun:"id,pk,type:varchar(36)"`
	EventType   string     `bun:"event_type,notnull"`
	StatementID *uuid.UUID `bun:"statement_id,type:varchar(36)"`
	CustomerID  string     `bun:"customer_id,notnull"`
	Actor       string     `bun:"actor,notnull"`
	OccurredAt  time.Time  `bun:"occurred_at,notnull"`
	DetailsJSON *string    `bun:"details_json"`
}
