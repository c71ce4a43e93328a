package statement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountType distinguishes the account a statement belongs to.
type AccountType string

const (
	AccountTypeMain    AccountType = "main"
	AccountTypeSavings AccountType = "savings"
)

// ParseAccountType accepts "main" or "savings" in any case. Empty input
// yields AccountTypeMain.
func ParseAccountType(s string) (AccountType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(AccountTypeMain):
		return AccountTypeMain, nil
	case string(AccountTypeSavings):
		return AccountTypeSavings, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
}

// Audit event types.
const (
	EventStatementUploaded     = "StatementUploaded"
	EventDownloadLinkGenerated = "DownloadLinkGenerated"
	EventStatementDownloaded   = "StatementDownloaded"
)

type Statement struct {
	ID          uuid.UUID   `json:"id"`
	CustomerID  string      `json:"customerId"`
	AccountID   string      `json:"accountId"`
	AccountType AccountType `json:"accountType"`
	Period      string      `json:"period"`
	PeriodKey   int         `json:"-"`
	FileName    string      `json:"fileName"`
	ContentType string      `json:"contentType"`
	SizeBytes   int64       `json:"sizeBytes"`
	SHA256      string      `json:"sha256"`
	StoredPath  string      `json:"-"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type AuditEvent struct {
	ID          uuid.UUID
	EventType   string
	StatementID *uuid.UUID
	CustomerID  string
	Actor       string
	Timestamp   time.Time
	DetailsJSON *string
}

var periodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ParsePeriod validates a "YYYY-MM" period and returns its sort key
// YYYY*100+MM.
func ParsePeriod(s string) (int, error) {
	m := periodPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if year < 1 || month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return year*100 + month, nil
}

// PeriodKeyMonthsBack returns the key of the month that lies months-1
// months before now, so that months=1 is the current month.
func PeriodKeyMonthsBack(now time.Time, months int) int {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, -(months - 1), 0)
	return start.Year()*100 + int(start.Month())
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// validIdentifier reports whether s is safe to use as a storage path
// component.
func validIdentifier(s string) bool {
	return identifierPattern.MatchString(s) && s != "." && s != ".."
}

// storedPath is the relative location of a statement's file.
func storedPath(customerID string, id uuid.UUID) string {
	return customerID + "/" + strings.ReplaceAll(id.String(), "-", "") + ".pdf"
}
