package tempstore

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xFF})
		}
	}
	return img
}

func TestSavePNG(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	s.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 42*int(time.Millisecond), time.Local) }

	src := testImage(100, 100)
	path, err := s.SavePNG(src)
	if err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	if got, want := filepath.Base(path), "clip-20240305-140709-042.png"; got != want {
		t.Fatalf("file name = %q, want %q", got, want)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("saved file is not a png: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", decoded.Bounds(), src.Bounds())
	}
	for _, p := range []image.Point{{0, 0}, {50, 20}, {99, 99}} {
		r1, g1, b1, a1 := decoded.At(p.X, p.Y).RGBA()
		r2, g2, b2, a2 := src.At(p.X, p.Y).RGBA()
		if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
			t.Fatalf("pixel %v differs", p)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, found %d entries", len(entries))
	}
}

func TestSavePNGCollision(t *testing.T) {
	s := New(t.TempDir())
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	s.now = func() time.Time { return fixed }

	first, err := s.SavePNG(testImage(2, 2))
	if err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	second, err := s.SavePNG(testImage(2, 2))
	if err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	if first == second {
		t.Fatalf("same-millisecond saves share path %q", first)
	}
	if !strings.HasSuffix(second, "-000-1.png") {
		t.Fatalf("unexpected collision name %q", second)
	}
	if !IsStoreFile(filepath.Base(second)) {
		t.Fatalf("collision name %q escapes the sweep pattern", second)
	}
}

func TestSavePNGEmptyImage(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.SavePNG(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodeError, got %v", err)
	}
}

func TestSavePNGUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	s := New(filepath.Join(blocker, "sub"))
	_, err := s.SavePNG(testImage(1, 1))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	files := map[string]time.Duration{
		"clip-20200101-000000-000.png": 25 * time.Hour,
		"clip-20200101-010000-000.png": 23 * time.Hour,
		"other.png":                    30 * time.Hour,
		"clip-notes.txt":               30 * time.Hour,
	}
	for name, age := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		mtime := now.Add(-age)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "clip-dir.png"), 0755); err != nil {
		t.Fatal(err)
	}

	s := New(dir)
	removed, err := s.Sweep(DefaultMaxAge)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}
	if exists("clip-20200101-000000-000.png") {
		t.Fatal("25h old clip file should be deleted")
	}
	for _, name := range []string{"clip-20200101-010000-000.png", "other.png", "clip-notes.txt", "clip-dir.png"} {
		if !exists(name) {
			t.Fatalf("%s should be retained", name)
		}
	}
}

func TestSweepMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))
	removed, err := s.Sweep(DefaultMaxAge)
	if err != nil || removed != 0 {
		t.Fatalf("Sweep = %d, %v; want 0, nil", removed, err)
	}
}

func TestSweepRemovesStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	files := map[string]time.Duration{
		".clip-123456.tmp": 25 * time.Hour,
		".clip-789012.tmp": time.Minute,
		".other-1.tmp":     30 * time.Hour,
	}
	for name, age := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		mtime := now.Add(-age)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := New(dir).Sweep(DefaultMaxAge)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, ".clip-123456.tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("stale temp file should be deleted")
	}
	for _, name := range []string{".clip-789012.tmp", ".other-1.tmp"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s should be retained", name)
		}
	}
}
