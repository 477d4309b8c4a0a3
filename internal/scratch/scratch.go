// Package scratch manages the transient per-request filesystem
// artifacts of the ingestion pipeline. Every directory is uniquely
// named, exclusively owned by one request, and removed before the
// request returns regardless of outcome.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// maxNameLength bounds sanitized file names so storage keys stay
	// reasonable regardless of what clients upload.
	maxNameLength = 128

	fallbackName = "upload.bin"

	// rawPrefix namespaces client-derived file names so they can never
	// occupy a path the pipeline later needs as a subdirectory.
	rawPrefix = "raw_"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// Dir is one request's scratch directory. Collision freedom across
// concurrent uploads comes purely from the uuid component of the path,
// so no locking is needed on the shared scratch root.
type Dir struct {
	path string
}

// NewDir creates a fresh uniquely-named directory under root, creating
// root itself if absent.
func NewDir(root string) (*Dir, error) {
	path := filepath.Join(root, uuid.NewString())
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory's absolute location.
func (d *Dir) Path() string {
	return d.path
}

// File returns a path inside the directory for the given original file
// name, sanitized for safe filesystem use and prefixed so it cannot
// collide with a subdirectory created by Subdir.
func (d *Dir) File(originalName string) string {
	return filepath.Join(d.path, rawPrefix+SanitizeName(originalName))
}

// Subdir creates and returns a named directory inside the scratch
// directory, used for the transcode output tree.
func (d *Dir) Subdir(name string) (string, error) {
	path := filepath.Join(d.path, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create scratch subdirectory: %w", err)
	}
	return path, nil
}

// Remove deletes the directory and everything in it. Safe to call on
// every exit path; removal of an already-removed directory is a no-op.
func (d *Dir) Remove() error {
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove scratch directory: %w", err)
	}
	return nil
}

// SanitizeName reduces an untrusted file name to [A-Za-z0-9._-]:
// whitespace runs collapse to a single underscore, every other
// disallowed character is stripped, and path separators never survive.
// A name with nothing left falls back to a fixed placeholder.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	name = whitespaceRe.ReplaceAllString(name, "_")
	name = disallowedRe.ReplaceAllString(name, "")
	name = strings.Trim(name, ".")

	if name == "" || name == "_" {
		return fallbackName
	}
	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) >= maxNameLength {
			// The extension alone blows the bound; nothing worth
			// preserving remains.
			return fallbackName
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}
