// Package filestore keeps files uploaded through file upload fields under
// {root}/{entity}/{filename}.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrBadName is returned for file names that are empty or escape the entity
// directory.
var ErrBadName = errors.New("filestore: invalid file name")

// Store saves, opens and deletes uploaded files.
type Store interface {
	Save(ctx context.Context, entity, filename string, r io.Reader) (string, error)
	Open(ctx context.Context, entity, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, entity, filename string) error
}

func cleanName(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrBadName
	}
	return name, nil
}

// prefixed returns name with a unix timestamp prefix, used when a file of
// the same name is already stored.
func prefixed(now time.Time, name string) string {
	return fmt.Sprintf("%d_%s", now.Unix(), name)
}

// Local stores files on the local filesystem.
type Local struct {
	Root string
	Now  func() time.Time
}

// NewLocal returns a Local store rooted at root.
func NewLocal(root string) *Local { return &Local{Root: root, Now: time.Now} }

func (l *Local) path(entity, name string) (string, error) {
	ent, err := cleanName(entity)
	if err != nil {
		return "", err
	}
	n, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.Root, ent, n), nil
}

// Save writes r to the entity directory. When the name is taken a timestamp
// prefix is added; the check and the write are not atomic.
func (l *Local) Save(_ context.Context, entity, filename string, r io.Reader) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	p, err := l.path(entity, name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err == nil {
		now := time.Now
		if l.Now != nil {
			now = l.Now
		}
		name = prefixed(now(), name)
		p = filepath.Join(filepath.Dir(p), name)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", err
	}
	return name, f.Close()
}

// Open opens a stored file.
func (l *Local) Open(_ context.Context, entity, filename string) (io.ReadCloser, error) {
	p, err := l.path(entity, filename)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Delete removes a stored file. Missing files are not an error.
func (l *Local) Delete(_ context.Context, entity, filename string) error {
	p, err := l.path(entity, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
