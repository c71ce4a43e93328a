package statement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/database"
)

const (
	DefaultTake = 50
	MaxTake     = 200
)

// BunRepository stores statements and audit events through bun.
type BunRepository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

// AddStatementWithAudit inserts a statement and its audit event in one
// transaction. Neither row is kept if either insert fails.
func (r *BunRepository) AddStatementWithAudit(ctx context.Context, s *Statement, e *AuditEvent) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := insertStatement(ctx, tx, s); err != nil {
			return err
		}
		return insertAuditEvent(ctx, tx, e)
	})
}

func insertStatement(ctx context.Context, db bun.IDB, s *Statement) error {
	row := mapStatementToDB(s)

	_, err := db.NewInsert().
		Model(row).
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateStatement
		}
		return fmt.Errorf("failed to insert statement: %w", err)
	}

	return nil
}

// GetStatement retrieves a statement by ID
func (r *BunRepository) GetStatement(ctx context.Context, id uuid.UUID) (*Statement, error) {
	row := new(database.Statement)
	err := r.db.NewSelect().
		Model(row).
		Where("s.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatementNotFound
		}
		return nil, fmt.Errorf("failed to get statement by id: %w", err)
	}

	return mapDBStatementToModel(row), nil
}

// ListStatements returns the customer's statements, newest period first.
func (r *BunRepository) ListStatements(ctx context.Context, customerID string, f ListFilter) ([]Statement, error) {
	var rows []database.Statement

	q := r.db.NewSelect().
		Model(&rows).
		Where("s.customer_id = ?", customerID)

	if f.AccountID != "" {
		q = q.Where("s.account_id = ?", f.AccountID)
	}
	if f.AccountType != "" {
		q = q.Where("s.account_type = ?", string(f.AccountType))
	}
	if f.PeriodKey > 0 {
		q = q.Where("s.period_key = ?", f.PeriodKey)
	}
	if f.FromPeriodKey > 0 {
		q = q.Where("s.period_key >= ?", f.FromPeriodKey)
	}
	if f.ToPeriodKey > 0 {
		q = q.Where("s.period_key <= ?", f.ToPeriodKey)
	}

	take := f.Take
	if take <= 0 {
		take = DefaultTake
	}
	if take > MaxTake {
		take = MaxTake
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}

	err := q.
		OrderExpr("s.period_key DESC").
		OrderExpr("s.id DESC").
		Offset(skip).
		Limit(take).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}

	out := make([]Statement, 0, len(rows))
	for i := range rows {
		out = append(out, *mapDBStatementToModel(&rows[i]))
	}
	return out, nil
}

// AddAuditEvent appends an audit record
func (r *BunRepository) AddAuditEvent(ctx context.Context, e *AuditEvent) error {
	return insertAuditEvent(ctx, r.db, e)
}

func insertAuditEvent(ctx context.Context, db bun.IDB, e *AuditEvent) error {
	row := &database.AuditEvent{
		ID:          e.ID,
		EventType:   e.EventType,
		StatementID: e.StatementID,
		CustomerID:  e.CustomerID,
		Actor:       e.Actor,
		OccurredAt:  e.Timestamp.UTC(),
		DetailsJSON: e.DetailsJSON,
	}

	if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns the audit trail of a statement, oldest first.
func (r *BunRepository) ListAuditEvents(ctx context.Context, statementID uuid.UUID) ([]AuditEvent, error) {
	var rows []database.AuditEvent
	err := r.db.NewSelect().
		Model(&rows).
		Where("ae.statement_id = ?", statementID).
		OrderExpr("ae.occurred_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	out := make([]AuditEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, AuditEvent{
			ID:          row.ID,
			EventType:   row.EventType,
			StatementID: row.StatementID,
			CustomerID:  row.CustomerID,
			Actor:       row.Actor,
			Timestamp:   row.OccurredAt,
			DetailsJSON: row.DetailsJSON,
		})
	}
	return out, nil
}

// HasStatements reports whether any statement has been stored.
func (r *BunRepository) HasStatements(ctx context.Context) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.Statement)(nil)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check statements: %w", err)
	}
	return exists, nil
}

func (r *BunRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func mapStatementToDB(s *Statement) *database.Statement {
	return &database.Statement{
		ID:          s.ID,
		CustomerID:  s.CustomerID,
		AccountID:   s.AccountID,
		AccountType: string(s.AccountType),
		Period:      s.Period,
		PeriodKey:   s.PeriodKey,
		FileName:    s.FileName,
		ContentType: s.ContentType,
		SizeBytes:   s.SizeBytes,
		SHA256:      s.SHA256,
		StoredPath:  s.StoredPath,
		CreatedAt:   s.CreatedAt.UTC(),
	}
}

// mapDBStatementToModel converts database model to domain model
func mapDBStatementToModel(row *database.Statement) *Statement {
	return &Statement{
		ID:          row.ID,
		CustomerID:  row.CustomerID,
		AccountID:   row.AccountID,
		AccountType: AccountType(row.AccountType),
		Period:      row.Period,
		PeriodKey:   row.PeriodKey,
		FileName:    row.FileName,
		ContentType: row.ContentType,
		SizeBytes:   row.SizeBytes,
		SHA256:      row.SHA256,
		StoredPath:  row.StoredPath,
		CreatedAt:   row.CreatedAt,
	}
}
