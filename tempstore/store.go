// Package tempstore persists clipboard images as PNG files in a scratch
// directory and purges them once they expire.
package tempstore

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	filePrefix = "clip-"
	fileExt    = ".png"
	tempPrefix = "." + filePrefix
	tempExt    = ".tmp"

	// DefaultMaxAge is how long a saved image survives the sweep
	DefaultMaxAge = 24 * time.Hour

	timestampLayout = "20060102-150405"
	maxCollisions   = 1000
)

// EncodeError reports an image that could not be rasterized to PNG
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode png: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IOError reports a failure writing the file to disk
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store writes PNG files into a single directory
type Store struct {
	dir string
	now func() time.Time
}

// New creates a store rooted at dir. An empty dir means os.TempDir().
func New(dir string) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the scratch directory
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the name used for an image saved at t
func FileName(t time.Time) string {
	return fmt.Sprintf("%s%s-%03d%s", filePrefix, t.Format(timestampLayout), t.Nanosecond()/int(time.Millisecond), fileExt)
}

// IsStoreFile reports whether name follows the clip-*.png convention
func IsStoreFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.EqualFold(filepath.Ext(name), fileExt)
}

// isTempFile matches the in-progress files SavePNG leaves behind on a crash
func isTempFile(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempExt)
}

// SavePNG encodes img and atomically moves it into place. The returned path
// is absolute.
func (s *Store) SavePNG(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", &EncodeError{Err: errors.New("empty image")}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", &IOError{Path: s.dir, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*"+tempExt)
	if err != nil {
		return "", &IOError{Path: s.dir, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := png.Encode(w, img); err != nil {
		tmp.Close()
		return "", &EncodeError{Err: err}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return "", &IOError{Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &IOError{Path: tmpName, Err: err}
	}

	dest, err := s.reserve(s.now())
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", &IOError{Path: dest, Err: err}
	}
	committed = true

	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	return dest, nil
}

// reserve picks a destination that does not exist yet, appending -N on a
// same-millisecond collision
func (s *Store) reserve(t time.Time) (string, error) {
	name := FileName(t)
	base := strings.TrimSuffix(name, fileExt)
	for i := 0; i < maxCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, i, fileExt)
		}
		path := filepath.Join(s.dir, candidate)
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", &IOError{Path: filepath.Join(s.dir, name), Err: os.ErrExist}
}

// Sweep deletes store files whose modification time is older than maxAge,
// along with temp files abandoned by an interrupted save. Only the top level
// of the directory is scanned and files that do not match the naming
// convention are never touched. Per-file failures are logged and skipped.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch dir: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !(IsStoreFile(entry.Name()) || isTempFile(entry.Name())) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// raced with another sweep or a rename
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Warn("Failed to remove expired image", "path", path, "error", err)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Debug("Swept expired images", "dir", s.dir, "removed", removed)
	}
	return removed, nil
}
