package postprocess

import (
	"context"
	"errors"
	"testing"
)

func TestFormatPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		opts Options
		want string
	}{
		{"plain", "/tmp/clip-1.png", Options{}, "/tmp/clip-1.png"},
		{"leading space", "/tmp/clip-1.png", Options{LeadingSpace: true}, " /tmp/clip-1.png"},
		{"safe path not quoted", "/tmp/clip-1.png", Options{ShellQuote: true}, "/tmp/clip-1.png"},
		{"spaces quoted", "/Users/a b/clip-1.png", Options{ShellQuote: true}, "'/Users/a b/clip-1.png'"},
		{"quote escaped", "/tmp/it's.png", Options{ShellQuote: true}, `'/tmp/it'\''s.png'`},
		{"space outside quotes", "/a b.png", Options{LeadingSpace: true, ShellQuote: true}, " '/a b.png'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatPath(context.Background(), tt.path, tt.opts)
			if err != nil {
				t.Fatalf("FormatPath failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("FormatPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFormatPathEmpty(t *testing.T) {
	if _, err := FormatPath(context.Background(), "", Options{LeadingSpace: true}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPipelineReturnsInputOnError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(
		func(_ context.Context, s string) (string, error) { return s + "!", nil },
		func(_ context.Context, s string) (string, error) { return "", boom },
	)
	got, err := p.Process(context.Background(), "in")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if got != "in" {
		t.Fatalf("got %q, want original input", got)
	}
	if p.Len() != 2 {
		t.Fatalf("Len = %d", p.Len())
	}
}
