package statement

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadStoresFileAndAudits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	st := env.upload(t, "cust-1", "acct-1", "2026-01")

	assert.Equal(t, "cust-1", st.CustomerID)
	assert.Equal(t, AccountTypeMain, st.AccountType)
	assert.Equal(t, 202601, st.PeriodKey)
	assert.EqualValues(t, len(samplePDF), st.SizeBytes)
	sum := sha256.Sum256(samplePDF)
	assert.Equal(t, hex.EncodeToString(sum[:]), st.SHA256)
	assert.Equal(t, "cust-1/"+strings.ReplaceAll(st.ID.String(), "-", "")+".pdf", st.StoredPath)
	assert.True(t, env.files.Exists(st.StoredPath))

	stored, err := env.repo.GetStatement(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.SHA256, stored.SHA256)
	assert.Equal(t, "acct-1", stored.AccountID)

	events, err := env.repo.ListAuditEvents(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventStatementUploaded, events[0].EventType)
	assert.Equal(t, "admin-user", events[0].Actor)
	require.NotNil(t, events[0].DetailsJSON)

	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(*events[0].DetailsJSON), &details))
	assert.Equal(t, st.SHA256, details["sha256"])
	assert.EqualValues(t, len(samplePDF), details["fileSize"])
}

func TestUploadAuditFailurePersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.repo.db.ExecContext(ctx, "DROP TABLE audit_events")
	require.NoError(t, err)

	_, err = env.service.Upload(ctx, UploadRequest{
		CustomerID:  "cust-1",
		AccountID:   "acct-1",
		Period:      "2026-01",
		FileName:    "statement.pdf",
		ContentType: PDFContentType,
		Size:        int64(len(samplePDF)),
		Content:     bytes.NewReader(samplePDF),
		Actor:       "admin-user",
	})
	require.Error(t, err)

	list, err := env.repo.ListStatements(ctx, "cust-1", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	has, err := env.repo.HasStatements(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	entries, err := os.ReadDir(filepath.Join(env.files.Root(), "cust-1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)

	valid := func() UploadRequest {
		return UploadRequest{
			CustomerID:  "cust-1",
			AccountID:   "acct-1",
			Period:      "2026-01",
			FileName:    "s.pdf",
			ContentType: PDFContentType,
			Size:        int64(len(samplePDF)),
			Content:     bytes.NewReader(samplePDF),
		}
	}

	tests := []struct {
		name   string
		mutate func(*UploadRequest)
		want   error
	}{
		{name: "missing customer", mutate: func(r *UploadRequest) { r.CustomerID = " " }, want: ErrCustomerRequired},
		{name: "missing account", mutate: func(r *UploadRequest) { r.AccountID = "" }, want: ErrAccountRequired},
		{name: "traversal customer", mutate: func(r *UploadRequest) { r.CustomerID = ".." }, want: ErrInvalidIdentifier},
		{name: "slash in customer", mutate: func(r *UploadRequest) { r.CustomerID = "a/b" }, want: ErrInvalidIdentifier},
		{name: "bad period", mutate: func(r *UploadRequest) { r.Period = "2026-13" }, want: ErrInvalidPeriod},
		{name: "period format", mutate: func(r *UploadRequest) { r.Period = "202601" }, want: ErrInvalidPeriod},
		{name: "account type", mutate: func(r *UploadRequest) { r.AccountType = "credit" }, want: ErrInvalidAccountType},
		{name: "text plain", mutate: func(r *UploadRequest) { r.ContentType = "text/plain" }, want: ErrInvalidContentType},
		{name: "empty file", mutate: func(r *UploadRequest) { r.Size = 0; r.Content = bytes.NewReader(nil) }, want: ErrInvalidFileSize},
		{name: "too large", mutate: func(r *UploadRequest) { r.Size = MaxUploadBytes + 1 }, want: ErrInvalidFileSize},
		{name: "not pdf", mutate: func(r *UploadRequest) { r.Content = strings.NewReader("hello, wo") }, want: ErrInvalidFileContent},
		{name: "short body", mutate: func(r *UploadRequest) { r.Size = 100 }, want: ErrSizeMismatch},
		{name: "long body", mutate: func(r *UploadRequest) { r.Size = 5 }, want: ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			_, err := env.service.Upload(context.Background(), req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	has, err := env.repo.HasStatements(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestUploadAcceptsMaxSize(t *testing.T) {
	env := newTestEnv(t)

	content := make([]byte, MaxUploadBytes)
	copy(content, samplePDF)

	st, err := env.service.Upload(context.Background(), UploadRequest{
		CustomerID:  "cust-1",
		AccountID:   "acct-1",
		AccountType: "savings",
		Period:      "2026-02",
		FileName:    `C:\Users\me\"feb".pdf`,
		ContentType: "Application/PDF",
		Size:        MaxUploadBytes,
		Content:     bytes.NewReader(content),
	})
	require.NoError(t, err)
	assert.Equal(t, AccountTypeSavings, st.AccountType)
	assert.Equal(t, "feb.pdf", st.FileName)
	assert.EqualValues(t, MaxUploadBytes, st.SizeBytes)
}

func TestListIsScopedAndOrdered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	jan := env.upload(t, "cust-1", "acct-1", "2026-01")
	mar := env.upload(t, "cust-1", "acct-1", "2026-03")
	feb := env.upload(t, "cust-1", "acct-2", "2026-02")
	env.upload(t, "cust-2", "acct-1", "2026-03")

	got, err := env.service.List(ctx, "cust-1", ListQuery{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, mar.ID, got[0].ID)
	assert.Equal(t, feb.ID, got[1].ID)
	assert.Equal(t, jan.ID, got[2].ID)
	for _, s := range got {
		assert.Equal(t, "cust-1", s.CustomerID)
	}

	got, err = env.service.List(ctx, "cust-1", ListQuery{AccountID: "acct-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, feb.ID, got[0].ID)

	got, err = env.service.List(ctx, "cust-1", ListQuery{Period: "2026-01"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, jan.ID, got[0].ID)

	got, err = env.service.List(ctx, "cust-1", ListQuery{FromPeriod: "2026-02", ToPeriod: "2026-02"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = env.service.List(ctx, "cust-1", ListQuery{Skip: 1, Take: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, feb.ID, got[0].ID)

	got, err = env.service.List(ctx, "nobody", ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListLastMonthsAndAccountType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Clock sits in 2026-03.
	env.upload(t, "cust-1", "acct-1", "2025-12")
	recent := env.upload(t, "cust-1", "acct-1", "2026-02")

	savings, err := env.service.Upload(ctx, UploadRequest{
		CustomerID:  "cust-1",
		AccountID:   "acct-9",
		AccountType: "savings",
		Period:      "2026-03",
		FileName:    "s.pdf",
		ContentType: PDFContentType,
		Size:        int64(len(samplePDF)),
		Content:     bytes.NewReader(samplePDF),
	})
	require.NoError(t, err)

	got, err := env.service.List(ctx, "cust-1", ListQuery{LastMonths: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, savings.ID, got[0].ID)
	assert.Equal(t, recent.ID, got[1].ID)

	got, err = env.service.List(ctx, "cust-1", ListQuery{AccountType: "savings"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, savings.ID, got[0].ID)

	_, err = env.service.List(ctx, "cust-1", ListQuery{LastMonths: -1})
	require.ErrorIs(t, err, ErrInvalidListQuery)

	_, err = env.service.List(ctx, "cust-1", ListQuery{FromPeriod: "2026-03", ToPeriod: "2026-01"})
	require.ErrorIs(t, err, ErrInvalidListQuery)

	_, err = env.service.List(ctx, "cust-1", ListQuery{Period: "March"})
	require.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = env.service.List(ctx, "", ListQuery{})
	require.ErrorIs(t, err, ErrCustomerRequired)
}

func TestParsePeriod(t *testing.T) {
	key, err := ParsePeriod("2026-01")
	require.NoError(t, err)
	assert.Equal(t, 202601, key)

	for _, bad := range []string{"", "2026-00", "2026-1", "26-01", "2026/01", "0000-01"} {
		_, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, ErrInvalidPeriod, bad)
	}
}

func TestPeriodKeyMonthsBack(t *testing.T) {
	now := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 202603, PeriodKeyMonthsBack(now, 1))
	assert.Equal(t, 202601, PeriodKeyMonthsBack(now, 3))
	assert.Equal(t, 202504, PeriodKeyMonthsBack(now, 12))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "statement.pdf", sanitizeFileName(""))
	assert.Equal(t, "a.pdf", sanitizeFileName("../../a.pdf"))
	assert.Equal(t, "ab.pdf", sanitizeFileName("a\r\nb.pdf"))
}
