package statement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/filestore"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/logging"
)

const (
	MaxUploadBytes  = 25 * 1024 * 1024
	PDFContentType  = "application/pdf"
	MaxLastMonths   = 120
	defaultFileName = "statement.pdf"
)

// UploadRequest carries an admin upload.
type UploadRequest struct {
	CustomerID  string
	AccountID   string
	AccountType string
	Period      string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
	Actor       string
}

// ListQuery is the caller-facing form of a listing request.
type ListQuery struct {
	AccountID   string
	AccountType string
	Period      string
	FromPeriod  string
	ToPeriod    string
	LastMonths  int
	Skip        int
	Take        int
}

// Service handles statement ingestion and listing.
type Service struct {
	repo   Repository
	files  FileStore
	clock  clock.Clock
	logger *logging.Logger
}

func NewService(repo Repository, files FileStore, clk clock.Clock, logger *logging.Logger) *Service {
	return &Service{
		repo:   repo,
		files:  files,
		clock:  clk,
		logger: logger,
	}
}

// Upload validates and stores a statement PDF, then records it.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Statement, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	accountID := strings.TrimSpace(req.AccountID)
	if customerID == "" {
		return nil, ErrCustomerRequired
	}
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	if !validIdentifier(customerID) || !validIdentifier(accountID) {
		return nil, ErrInvalidIdentifier
	}

	periodKey, err := ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	accountType, err := ParseAccountType(req.AccountType)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(req.ContentType), PDFContentType) {
		return nil, ErrInvalidContentType
	}
	if req.Size <= 0 || req.Size > MaxUploadBytes {
		return nil, ErrInvalidFileSize
	}

	id := uuid.New()
	rel := storedPath(customerID, id)

	// One byte past the declared size is enough to detect a mismatch.
	saved, err := s.files.SaveWithHash(ctx, rel, io.LimitReader(req.Content, req.Size+1))
	if err != nil {
		if errors.Is(err, filestore.ErrNotPDF) {
			return nil, ErrInvalidFileContent
		}
		return nil, fmt.Errorf("failed to store statement file: %w", err)
	}
	if saved.Size != req.Size {
		s.removeOrphan(rel)
		return nil, ErrSizeMismatch
	}

	now := s.clock.Now().UTC()
	st := &Statement{
		ID:          id,
		CustomerID:  customerID,
		AccountID:   accountID,
		AccountType: accountType,
		Period:      strings.TrimSpace(req.Period),
		PeriodKey:   periodKey,
		FileName:    sanitizeFileName(req.FileName),
		ContentType: PDFContentType,
		SizeBytes:   saved.Size,
		SHA256:      saved.SHA256,
		StoredPath:  rel,
		CreatedAt:   now,
	}

	details, err := json.Marshal(map[string]any{
		"sha256":   saved.SHA256,
		"fileSize": saved.Size,
	})
	if err != nil {
		s.removeOrphan(rel)
		return nil, fmt.Errorf("failed to encode audit details: %w", err)
	}

	// The statement only exists together with its upload audit record.
	event := newAuditEvent(EventStatementUploaded, &st.ID, customerID, req.Actor, now, details)
	if err := s.repo.AddStatementWithAudit(ctx, st, event); err != nil {
		s.removeOrphan(rel)
		return nil, fmt.Errorf("failed to save statement: %w", err)
	}

	s.logger.Info("statement uploaded",
		"statement_id", st.ID,
		"customer_id", customerID,
		"size_bytes", saved.Size,
	)

	return st, nil
}

// List returns the customer's statements matching q.
func (s *Service) List(ctx context.Context, customerID string, q ListQuery) ([]Statement, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrCustomerRequired
	}

	f := ListFilter{AccountID: strings.TrimSpace(q.AccountID), Skip: q.Skip, Take: q.Take}

	if q.AccountType != "" {
		at, err := ParseAccountType(q.AccountType)
		if err != nil {
			return nil, err
		}
		f.AccountType = at
	}

	var err error
	if q.Period != "" {
		if f.PeriodKey, err = ParsePeriod(q.Period); err != nil {
			return nil, err
		}
	}
	if q.FromPeriod != "" {
		if f.FromPeriodKey, err = ParsePeriod(q.FromPeriod); err != nil {
			return nil, err
		}
	}
	if q.ToPeriod != "" {
		if f.ToPeriodKey, err = ParsePeriod(q.ToPeriod); err != nil {
			return nil, err
		}
	}

	if q.LastMonths != 0 {
		if q.LastMonths < 1 || q.LastMonths > MaxLastMonths {
			return nil, fmt.Errorf("%w: lastMonths must be between 1 and %d", ErrInvalidListQuery, MaxLastMonths)
		}
		from := PeriodKeyMonthsBack(s.clock.Now().UTC(), q.LastMonths)
		if from > f.FromPeriodKey {
			f.FromPeriodKey = from
		}
	}

	if f.FromPeriodKey > 0 && f.ToPeriodKey > 0 && f.FromPeriodKey > f.ToPeriodKey {
		return nil, fmt.Errorf("%w: fromPeriod is after toPeriod", ErrInvalidListQuery)
	}

	return s.repo.ListStatements(ctx, customerID, f)
}

func (s *Service) removeOrphan(rel string) {
	if err := s.files.Remove(rel); err != nil {
		s.logger.Error("failed to remove orphaned statement file", "path", rel, "error", err.Error())
	}
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return defaultFileName
	}
	return name
}

func newAuditEvent(eventType string, statementID *uuid.UUID, customerID, actor string, at time.Time, details []byte) *AuditEvent {
	e := &AuditEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		StatementID: statementID,
		CustomerID:  customerID,
		Actor:       actor,
		Timestamp:   at,
	}
	if actor == "" {
		e.Actor = "unknown"
	}
	if details != nil {
		d := string(details)
		e.DetailsJSON = &d
	}
	return e
}
