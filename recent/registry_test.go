package recent

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(Capacity)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestRecordDedupPromotes(t *testing.T) {
	r := newRegistry(t)
	r.Record("/a.png", nil)
	r.Record("/b.png", nil)
	r.Record("/a.png", nil)

	got := paths(r.Entries())
	want := []string{"/a.png", "/b.png"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
}

func TestRecordEvictsOldest(t *testing.T) {
	r := newRegistry(t)
	for i := 1; i <= Capacity+1; i++ {
		r.Record(fmt.Sprintf("/%d.png", i), nil)
	}

	got := paths(r.Entries())
	if len(got) != Capacity {
		t.Fatalf("len = %d, want %d", len(got), Capacity)
	}
	if got[0] != "/7.png" {
		t.Fatalf("newest = %s, want /7.png", got[0])
	}
	for _, p := range got {
		if p == "/1.png" {
			t.Fatal("oldest entry was not evicted")
		}
	}
}

func TestSelectRemovesMissingFile(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.png")
	if err := os.WriteFile(present, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.png")

	r := newRegistry(t)
	r.Record(present, nil)
	r.Record(missing, nil)

	if _, ok := r.Select(missing); ok {
		t.Fatal("Select returned an entry for a missing file")
	}
	if r.Len() != 1 {
		t.Fatalf("stale entry kept: %v", paths(r.Entries()))
	}

	e, ok := r.Select(present)
	if !ok || e.Path != present {
		t.Fatalf("Select(present) = %+v, %v", e, ok)
	}
	if _, ok := r.Select("/never/recorded.png"); ok {
		t.Fatal("Select returned an unknown path")
	}
}

func TestThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			src.Set(x, y, color.RGBA{G: 0xFF, A: 0xFF})
		}
	}

	thumb := Thumbnail(src, ThumbnailSize, ThumbnailSize)
	if got := thumb.Bounds().Size(); got != image.Pt(ThumbnailSize, ThumbnailSize) {
		t.Fatalf("size = %v", got)
	}
	_, g, _, a := thumb.At(ThumbnailSize/2, ThumbnailSize/2).RGBA()
	if g>>8 != 0xFF || a>>8 != 0xFF {
		t.Fatalf("thumbnail not filled: g=%d a=%d", g>>8, a>>8)
	}

	if empty := Thumbnail(nil, 4, 4); empty.Bounds().Dx() != 4 {
		t.Fatal("nil source should still produce a blank box")
	}
}
