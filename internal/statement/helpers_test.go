package statement

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/database"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/downloadtoken"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/filestore"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/logging"
)

var samplePDF = []byte("%PDF-1.4\n")

type testEnv struct {
	repo      *BunRepository
	files     *filestore.Store
	tokens    *downloadtoken.Service
	clock     *clock.FakeClock
	service   *Service
	downloads *DownloadService
}

func newTestRepository(t *testing.T) *BunRepository {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(context.Background(), sqlDB, database.DriverSQLite))

	db, err := database.NewBunDB(sqlDB, database.DriverSQLite)
	require.NoError(t, err)
	return NewRepository(db)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newTestRepository(t)

	files, err := filestore.New(filepath.Join(t.TempDir(), "statements"))
	require.NoError(t, err)

	signer, err := downloadtoken.NewSigner([]byte("test-signing-key-0123456789abcdef"))
	require.NoError(t, err)

	clk := clock.Fake(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	tokens := downloadtoken.NewService(signer, clk)
	logger := logging.Discard()

	return &testEnv{
		repo:      repo,
		files:     files,
		tokens:    tokens,
		clock:     clk,
		service:   NewService(repo, files, clk, logger),
		downloads: NewDownloadService(repo, files, tokens, clk, logger),
	}
}

func (e *testEnv) upload(t *testing.T, customerID, accountID, period string) *Statement {
	t.Helper()
	st, err := e.service.Upload(context.Background(), UploadRequest{
		CustomerID:  customerID,
		AccountID:   accountID,
		Period:      period,
		FileName:    "statement.pdf",
		ContentType: PDFContentType,
		Size:        int64(len(samplePDF)),
		Content:     bytes.NewReader(samplePDF),
		Actor:       "admin-user",
	})
	require.NoError(t, err)
	return st
}
