// Package recent keeps a small most-recently-used list of saved images.
package recent

import (
	"errors"
	"image"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"
)

const (
	// Capacity is the number of images kept
	Capacity = 6

	ThumbnailSize = 48
)

// Entry is one recent image
type Entry struct {
	Path      string      `json:"path"`
	Thumbnail image.Image `json:"-"`
	AddedAt   time.Time   `json:"added_at"`
}

// Registry is a bounded MRU list keyed by path
type Registry struct {
	c   *lru.Cache[string, Entry]
	mu  sync.Mutex
	now func() time.Time
}

// New creates a registry holding at most size entries
func New(size int) (*Registry, error) {
	if size <= 0 {
		return nil, errors.New("registry size must be positive")
	}
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &Registry{c: c, now: time.Now}, nil
}

// Record inserts path at the front, dropping any older occurrence and the
// oldest entry beyond capacity
func (r *Registry) Record(path string, thumb image.Image) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := Entry{Path: path, Thumbnail: thumb, AddedAt: r.now()}
	r.c.Remove(path)
	r.c.Add(path, e)
	return e
}

// Select returns the entry for path if its file still exists. A stale entry
// is removed.
func (r *Registry) Select(path string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.c.Peek(path)
	if !ok {
		return Entry{}, false
	}
	if _, err := os.Stat(path); err != nil {
		r.c.Remove(path)
		return Entry{}, false
	}
	return e, true
}

// Remove drops path from the list
func (r *Registry) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.c.Remove(path)
}

// Entries returns the list newest first
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := r.c.Keys()
	out := make([]Entry, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if e, ok := r.c.Peek(keys[i]); ok {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return r.c.Len()
}

// Thumbnail scales img to fill a w×h box. Aspect ratio is not preserved.
func Thumbnail(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if img == nil || img.Bounds().Empty() {
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
