// Package blob stores uploaded order files under generated, path-addressable
// names. Paths handed out by a Store always look like "/uploads/<name>".
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PathPrefix is the public prefix of every stored blob.
const PathPrefix = "/uploads/"

var (
	ErrNotExist    = errors.New("blob does not exist")
	ErrInvalidPath = errors.New("invalid blob path")
)

// Store is the boundary to the external file storage.
type Store interface {
	// Put stores r under a name derived from originalName and returns the
	// blob path. The returned path is never shared with another live blob.
	Put(ctx context.Context, originalName string, r io.Reader, contentType string) (string, error)
	// Delete removes the blob at path. A missing blob yields ErrNotExist.
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// URL returns the address clients fetch the blob from.
	URL(path string) string
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeName replaces every character outside [A-Za-z0-9._-] with '-'.
func SanitizeName(original string) string {
	// browsers on Windows may send the full client path
	if i := strings.LastIndexAny(original, `/\`); i >= 0 {
		original = original[i+1:]
	}
	safe := unsafeChars.ReplaceAllString(original, "-")
	if strings.Trim(safe, ".") == "" {
		return "file"
	}
	return safe
}

// GenerateName builds "<unix-millis>-<sanitized original>".
func GenerateName(original string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeName(original))
}

// disambiguate inserts a short random segment after the time prefix; used
// when a generated name is already taken.
func disambiguate(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if i := strings.IndexByte(name, '-'); i > 0 {
		return name[:i] + "-" + suffix + name[i:]
	}
	return suffix + "-" + name
}

func PathFor(name string) string {
	return PathPrefix + name
}

// NameFromPath validates a blob path and returns the bare object name.
func NameFromPath(path string) (string, error) {
	if !strings.HasPrefix(path, PathPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	name := strings.TrimPrefix(path, PathPrefix)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return name, nil
}
