// Package filestore keeps statement files on local disk under a single
// root. Files are written once, never overwritten, and every relative
// path is confined to the root.
package filestore

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const DefaultChunkSize = 64 * 1024

var (
	ErrInvalidPath     = errors.New("invalid storage path")
	ErrAlreadyExists   = errors.New("file already exists")
	ErrNotFound        = errors.New("file not found")
	ErrNotPDF          = errors.New("content is not a PDF")
	ErrRootNotWritable = errors.New("storage root is not writable")
)

var pdfMagic = []byte("%PDF-")

// SaveResult describes a stored file.
type SaveResult struct {
	SHA256 string
	Size   int64
}

type Option func(*Store)

// WithCaseInsensitive makes root containment compare paths
// case-insensitively, for stores on case-folding filesystems.
func WithCaseInsensitive(v bool) Option {
	return func(s *Store) { s.caseInsensitive = v }
}

func WithChunkSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// Store is a write-once file store rooted at a directory.
type Store struct {
	root            string
	caseInsensitive bool
	chunkSize       int
}

// New creates the root directory if needed and checks that it is
// writable.
func New(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: root is empty", ErrRootNotWritable)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootNotWritable, err)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	probe, err := os.CreateTemp(resolved, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootNotWritable, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	s := &Store{root: resolved, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the resolved absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Save streams r into rel. It fails with ErrAlreadyExists if rel is
// already present.
func (s *Store) Save(ctx context.Context, rel string, r io.Reader) (int64, error) {
	return s.write(ctx, rel, r, nil)
}

// SaveWithHash checks the PDF header, then streams r into rel while
// computing its SHA-256. Nothing is created when the header is wrong.
func (s *Store) SaveWithHash(ctx context.Context, rel string, r io.Reader) (SaveResult, error) {
	br := bufio.NewReaderSize(r, s.chunkSize)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return SaveResult{}, fmt.Errorf("failed to read content header: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return SaveResult{}, ErrNotPDF
	}

	h := sha256.New()
	n, err := s.write(ctx, rel, br, h)
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

func (s *Store) write(ctx context.Context, rel string, r io.Reader, h hash.Hash) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	target, err := s.resolve(rel)
	if err != nil {
		return 0, err
	}

	realDir, err := s.ensureDir(filepath.Dir(target))
	if err != nil {
		if errors.Is(err, ErrInvalidPath) {
			return 0, fmt.Errorf("%w: %s", ErrInvalidPath, rel)
		}
		return 0, err
	}
	target = filepath.Join(realDir, filepath.Base(target))

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, ErrAlreadyExists
		}
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	var w io.Writer = f
	if h != nil {
		w = io.MultiWriter(f, h)
	}

	n, err := s.copy(ctx, w, r)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// ensureDir creates dir inside the root and returns its resolved path.
// The deepest existing ancestor is resolved and checked before anything
// is created, and each new level is created without following links.
func (s *Store) ensureDir(dir string) (string, error) {
	existing := dir
	var missing []string
	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to inspect directory: %w", err)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return "", ErrInvalidPath
		}
		missing = append(missing, filepath.Base(existing))
		existing = parent
	}

	current, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory: %w", err)
	}
	if !s.within(current, true) {
		return "", ErrInvalidPath
	}
	info, err := os.Stat(current)
	if err != nil {
		return "", fmt.Errorf("failed to inspect directory: %w", err)
	}
	if !info.IsDir() {
		return "", ErrInvalidPath
	}

	for i := len(missing) - 1; i >= 0; i-- {
		next := filepath.Join(current, missing[i])
		if err := os.Mkdir(next, 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
		// a concurrent writer may have put something else there
		info, err := os.Lstat(next)
		if err != nil {
			return "", fmt.Errorf("failed to inspect directory: %w", err)
		}
		if info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
			return "", ErrInvalidPath
		}
		current = next
	}

	return current, nil
}

// copy moves data in chunkSize pieces, checking ctx between chunks.
func (s *Store) copy(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, s.chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
			if written != n {
				return total, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, rerr
		}
	}
}

// OpenRead opens rel for reading. The returned File stops reading once
// ctx is done.
func (s *Store) OpenRead(ctx context.Context, rel string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}
	if !s.within(resolved, false) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}

	f, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}

	return &File{ctx: ctx, f: f, size: info.Size(), modTime: info.ModTime()}, nil
}

// Exists reports whether rel names an existing entry inside the root.
func (s *Store) Exists(rel string) bool {
	target, err := s.resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(target)
	return err == nil
}

// Remove deletes rel. A missing file is not an error.
func (s *Store) Remove(rel string) error {
	target, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// resolve validates rel and joins it onto the root without touching
// the filesystem.
func (s *Store) resolve(rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return "", fmt.Errorf("%w: absolute path %q", ErrInvalidPath, rel)
	}
	for _, part := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", fmt.Errorf("%w: parent reference in %q", ErrInvalidPath, rel)
		}
	}

	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if !s.within(target, false) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return target, nil
}

// within reports whether path lies under the root. With allowRoot the
// root itself counts; otherwise path must be a strict descendant.
func (s *Store) within(path string, allowRoot bool) bool {
	root := s.root
	if s.caseInsensitive {
		root = strings.ToLower(root)
		path = strings.ToLower(path)
	}
	if path == root {
		return allowRoot
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
