package statement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/downloadtoken"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/filestore"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/logging"
)

// LinkTTL is how long a download link stays redeemable.
const LinkTTL = 5 * time.Minute

// Outcome is the terminal result of a redemption.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeForbidden
	OutcomeOK
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "not_found"
	}
}

// Internal reasons attached to a non-OK redemption.
const (
	ReasonExpired           = "expired"
	ReasonCustomerMismatch  = "customer_mismatch"
	ReasonStatementMissing  = "statement_missing"
	ReasonOwnerMismatch     = "owner_mismatch"
	ReasonFileMissing       = "file_missing"
	ReasonMissingCustomerID = "missing_customer"
)

type CreateLinkRequest struct {
	StatementID uuid.UUID
	CustomerID  string
	Actor       string
}

// DownloadLink is a freshly minted token and its expiry.
type DownloadLink struct {
	Token     string
	ExpiresAt time.Time
}

type RedeemRequest struct {
	Token      string
	CustomerID string
	Actor      string
}

// RedeemResult is returned for every redemption. Content and the file
// fields are only set when Outcome is OutcomeOK; the caller must close
// Content.
type RedeemResult struct {
	Outcome     Outcome
	Reason      string
	StatementID uuid.UUID
	Content     *filestore.File
	ContentType string
	FileName    string
	SizeBytes   int64
}

// DownloadService mints download links and redeems them.
type DownloadService struct {
	repo    Repository
	files   FileStore
	tokens  TokenService
	clock   clock.Clock
	logger  *logging.Logger
	linkTTL time.Duration
}

func NewDownloadService(repo Repository, files FileStore, tokens TokenService, clk clock.Clock, logger *logging.Logger) *DownloadService {
	return &DownloadService{
		repo:    repo,
		files:   files,
		tokens:  tokens,
		clock:   clk,
		logger:  logger,
		linkTTL: LinkTTL,
	}
}

// CreateDownloadLink issues a token for a statement the caller owns.
// A statement owned by someone else is reported as not found.
func (s *DownloadService) CreateDownloadLink(ctx context.Context, req CreateLinkRequest) (*DownloadLink, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, ErrCustomerRequired
	}

	st, err := s.repo.GetStatement(ctx, req.StatementID)
	if err != nil {
		return nil, err
	}
	if st.CustomerID != req.CustomerID {
		return nil, ErrStatementNotFound
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.linkTTL)

	token, err := s.tokens.CreateToken(st.ID, req.CustomerID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create download token: %w", err)
	}

	details, err := json.Marshal(map[string]string{"expiresAt": expiresAt.Format(time.RFC3339Nano)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit details: %w", err)
	}
	if err := s.repo.AddAuditEvent(ctx, newAuditEvent(EventDownloadLinkGenerated, &st.ID, req.CustomerID, req.Actor, now, details)); err != nil {
		return nil, err
	}

	return &DownloadLink{Token: token, ExpiresAt: expiresAt}, nil
}

// Redeem checks a download token against the caller and, when every
// check passes, opens the statement file.
func (s *DownloadService) Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return &RedeemResult{Outcome: OutcomeForbidden, Reason: ReasonMissingCustomerID}, nil
	}

	payload, err := s.tokens.Validate(req.Token)
	if err != nil {
		reason, ok := downloadtoken.ReasonOf(err)
		if !ok {
			reason = downloadtoken.ReasonMalformed
		}
		return &RedeemResult{Outcome: OutcomeNotFound, Reason: string(reason)}, nil
	}

	if !payload.ExpiresAt.After(s.clock.Now()) {
		return &RedeemResult{Outcome: OutcomeNotFound, Reason: ReasonExpired, StatementID: payload.StatementID}, nil
	}

	if payload.CustomerID != req.CustomerID {
		return &RedeemResult{Outcome: OutcomeForbidden, Reason: ReasonCustomerMismatch, StatementID: payload.StatementID}, nil
	}

	st, err := s.repo.GetStatement(ctx, payload.StatementID)
	if err != nil {
		if errors.Is(err, ErrStatementNotFound) {
			return &RedeemResult{Outcome: OutcomeNotFound, Reason: ReasonStatementMissing, StatementID: payload.StatementID}, nil
		}
		return nil, err
	}

	if st.CustomerID != req.CustomerID {
		return &RedeemResult{Outcome: OutcomeForbidden, Reason: ReasonOwnerMismatch, StatementID: st.ID}, nil
	}

	f, err := s.files.OpenRead(ctx, st.StoredPath)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			s.logger.Warn("integrity anomaly: statement file missing",
				"statement_id", st.ID,
				"stored_path", st.StoredPath,
			)
			return &RedeemResult{Outcome: OutcomeNotFound, Reason: ReasonFileMissing, StatementID: st.ID}, nil
		}
		return nil, fmt.Errorf("failed to open statement file: %w", err)
	}

	if err := s.repo.AddAuditEvent(ctx, newAuditEvent(EventStatementDownloaded, &st.ID, req.CustomerID, req.Actor, s.clock.Now().UTC(), nil)); err != nil {
		f.Close()
		return nil, err
	}

	return &RedeemResult{
		Outcome:     OutcomeOK,
		StatementID: st.ID,
		Content:     f,
		ContentType: st.ContentType,
		FileName:    st.FileName,
		SizeBytes:   st.SizeBytes,
	}, nil
}
