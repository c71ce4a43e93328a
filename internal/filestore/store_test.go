package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data"), opts...)
	require.NoError(t, err)
	return s
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	s, err := New(root)
	require.NoError(t, err)

	info, err := os.Stat(s.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(s.Root()))
}

func TestNewRejectsFileAsRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := New(path)
	require.ErrorIs(t, err, ErrRootNotWritable)
}

func TestSaveAndOpenRead(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.Save(ctx, "cust-1/a.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.True(t, s.Exists("cust-1/a.pdf"))

	f, err := s.OpenRead(ctx, "cust-1/a.pdf")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.EqualValues(t, 5, f.Size())
}

func TestSaveIsWriteOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "x/y.pdf", strings.NewReader("first"))
	require.NoError(t, err)

	_, err = s.Save(ctx, "x/y.pdf", strings.NewReader("second"))
	require.ErrorIs(t, err, ErrAlreadyExists)

	data, err := os.ReadFile(filepath.Join(s.Root(), "x", "y.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestPathContainment(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	bad := []string{
		"",
		"../escape.pdf",
		"a/../../escape.pdf",
		"a/../b.pdf",
		`a\..\b.pdf`,
		"/etc/passwd",
		`\abs.pdf`,
		".",
		"with\x00nul.pdf",
	}

	for _, rel := range bad {
		_, err := s.Save(ctx, rel, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, "save %q", rel)

		_, err = s.OpenRead(ctx, rel)
		assert.ErrorIs(t, err, ErrInvalidPath, "open %q", rel)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Root()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSymlinkEscapeIsRejected(t *testing.T) {
	s := newStore(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.pdf"), []byte("%PDF-secret"), 0o600))
	require.NoError(t, os.Symlink(outside, filepath.Join(s.Root(), "link")))

	_, err := s.OpenRead(context.Background(), "link/secret.pdf")
	require.ErrorIs(t, err, ErrInvalidPath)

	_, err = s.Save(context.Background(), "link/new.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidPath)
	_, statErr := os.Stat(filepath.Join(outside, "new.pdf"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	// nested levels below the link must not be created outside the root
	_, err = s.Save(context.Background(), "link/created/deeper/x.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidPath)
	_, statErr = os.Stat(filepath.Join(outside, "created"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestSaveRejectsFileAsDirectory(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), "c/r.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "c/r.pdf/nested.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestSaveCreatesNestedDirectories(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), "a/b/c/r.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	info, err := os.Lstat(filepath.Join(s.Root(), "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, s.Exists("a/b/c/r.pdf"))
}

func TestCaseInsensitiveContainment(t *testing.T) {
	s := newStore(t, WithCaseInsensitive(true))
	assert.True(t, s.within(strings.ToUpper(s.Root())+string(filepath.Separator)+"f.pdf", false))

	sensitive := newStore(t)
	assert.False(t, sensitive.within(strings.ToUpper(sensitive.Root())+string(filepath.Separator)+"f.pdf", false))
}

func TestRemove(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), "c/r.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove("c/r.pdf"))
	assert.False(t, s.Exists("c/r.pdf"))
	require.NoError(t, s.Remove("c/r.pdf"))
	require.ErrorIs(t, s.Remove("../r.pdf"), ErrInvalidPath)
}

func TestOpenReadMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.OpenRead(context.Background(), "nobody/none.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveWithHash(t *testing.T) {
	s := newStore(t, WithChunkSize(16))
	content := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("z"), 1000)...)

	res, err := s.SaveWithHash(context.Background(), "c/s.pdf", bytes.NewReader(content))
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.SHA256)
	assert.EqualValues(t, len(content), res.Size)

	stored, err := os.ReadFile(filepath.Join(s.Root(), "c", "s.pdf"))
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestSaveWithHashRejectsNonPDF(t *testing.T) {
	s := newStore(t)

	for _, body := range []string{"", "%PD", "hello world"} {
		_, err := s.SaveWithHash(context.Background(), "c/bad.pdf", strings.NewReader(body))
		require.ErrorIs(t, err, ErrNotPDF)
		assert.False(t, s.Exists("c/bad.pdf"))
	}
}

type cancelAfterReader struct {
	r      io.Reader
	cancel context.CancelFunc
	reads  int
}

func (c *cancelAfterReader) Read(p []byte) (int, error) {
	c.reads++
	if c.reads == 2 {
		c.cancel()
	}
	return c.r.Read(p)
}

func TestSaveCancelledRemovesPartialFile(t *testing.T) {
	s := newStore(t, WithChunkSize(8))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	content := append([]byte("%PDF-1.7"), bytes.Repeat([]byte("a"), 200)...)
	r := &cancelAfterReader{r: bytes.NewReader(content), cancel: cancel}

	_, err := s.SaveWithHash(ctx, "c/partial.pdf", r)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Exists("c/partial.pdf"))
}

type failingReader struct{ n int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.n > 0 {
		return 0, errors.New("boom")
	}
	f.n++
	return copy(p, "%PDF-abc"), nil
}

func TestSaveReadErrorRemovesPartialFile(t *testing.T) {
	s := newStore(t)
	_, err := s.SaveWithHash(context.Background(), "c/broken.pdf", &failingReader{})
	require.Error(t, err)
	assert.False(t, s.Exists("c/broken.pdf"))
}

func TestOpenReadHonoursCancellation(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), "c/f.pdf", strings.NewReader("data"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	f, err := s.OpenRead(ctx, "c/f.pdf")
	require.NoError(t, err)
	defer f.Close()

	cancel()
	_, err = f.Read(make([]byte, 4))
	require.ErrorIs(t, err, context.Canceled)
}
