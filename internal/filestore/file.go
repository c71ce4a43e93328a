package filestore

import (
	"context"
	"os"
	"time"
)

// File is an open stored file. Reads fail with the context error once
// the context used to open it is done.
type File struct {
	ctx     context.Context
	f       *os.File
	size    int64
	modTime time.Time
}

func (f *File) Read(p []byte) (int, error) {
	if err := f.ctx.Err(); err != nil {
		return 0, err
	}
	return f.f.Read(p)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.f.Seek(offset, whence)
}

func (f *File) Close() error {
	return f.f.Close()
}

// Size is the file length in bytes at open time.
func (f *File) Size() int64 {
	return f.size
}

func (f *File) ModTime() time.Time {
	return f.modTime
}
