package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local keeps blobs in a directory on disk, typically the static root
// served at /uploads.
type Local struct {
	root    string
	baseURL string
	now     func() time.Time
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Local{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) Put(ctx context.Context, originalName string, r io.Reader, contentType string) (string, error) {
	name := GenerateName(originalName, l.now())

	var f *os.File
	for attempt := 0; ; attempt++ {
		var err error
		f, err = os.OpenFile(filepath.Join(l.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if errors.Is(err, fs.ErrExist) && attempt < 3 {
			name = disambiguate(GenerateName(originalName, l.now()))
			continue
		}
		return "", fmt.Errorf("failed to create blob: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close blob: %w", err)
	}

	return PathFor(name), nil
}

func (l *Local) Delete(ctx context.Context, path string) error {
	name, err := NameFromPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	name, err := NameFromPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(l.root, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat blob: %w", err)
}

func (l *Local) URL(path string) string {
	return l.baseURL + path
}
