package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
)

var (
	ErrNotFound = apperror.NotFound("file")
	ErrTooLarge = apperror.Validation("file_too_large", "file is too large").WithField("file")
)

// Disk stores files flat in one directory. Names are generated by the
// caller and never contain path separators.
type Disk struct {
	dir string
}

func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Dir() string { return d.dir }

func (d *Disk) path(name string) string {
	return filepath.Join(d.dir, filepath.Base(name))
}

// Save writes at most limit bytes. Larger input is discarded and ErrTooLarge returned.
func (d *Disk) Save(_ context.Context, name string, r io.Reader, limit int64) (int64, error) {
	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return 0, apperror.Internal(err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, apperror.Internal(err)
	}
	if n > limit {
		return 0, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), d.path(name)); err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (d *Disk) Delete(_ context.Context, name string) error {
	err := os.Remove(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (d *Disk) Stat(_ context.Context, name string) (int64, time.Time, error) {
	info, err := os.Stat(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, time.Time{}, ErrNotFound
	}
	if err != nil {
		return 0, time.Time{}, apperror.Internal(err)
	}
	return info.Size(), info.ModTime(), nil
}
