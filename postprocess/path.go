package postprocess

import (
	"context"
	"errors"
	"strings"
)

// Options selects the path formatting steps
type Options struct {
	// LeadingSpace separates the pasted path from text already typed
	LeadingSpace bool
	// ShellQuote wraps paths containing shell metacharacters in single quotes
	ShellQuote bool
}

// ForPath builds the pipeline for a saved image path. Quoting runs first so
// the leading space stays outside the quotes.
func ForPath(opts Options) *Pipeline {
	p := NewPipeline(NonEmpty)
	if opts.ShellQuote {
		p.AddProcessor(ShellQuote)
	}
	if opts.LeadingSpace {
		p.AddProcessor(LeadingSpace)
	}
	return p
}

// FormatPath runs ForPath(opts) over path
func FormatPath(ctx context.Context, path string, opts Options) (string, error) {
	return ForPath(opts).Process(ctx, path)
}

// NonEmpty rejects an empty path
func NonEmpty(_ context.Context, text string) (string, error) {
	if text == "" {
		return "", errors.New("empty path")
	}
	return text, nil
}

// LeadingSpace prefixes a single space
func LeadingSpace(_ context.Context, text string) (string, error) {
	return " " + text, nil
}

const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@%+=:,./-_"

// ShellQuote single-quotes text when it contains characters a shell would
// interpret
func ShellQuote(_ context.Context, text string) (string, error) {
	if strings.Trim(text, shellSafe) == "" {
		return text, nil
	}
	return "'" + strings.ReplaceAll(text, "'", `'\''`) + "'", nil
}
