package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config for the pdftotext-based extractor.
type Config struct {
	Pdftotext string        // binary name or path, default "pdftotext"
	Timeout   time.Duration // per-document limit, 0 = none
}

// Extractor pulls raw text out of PDF files by shelling out to pdftotext.
// Encrypted, corrupted, or image-only PDFs come back as an error or empty
// text; the caller decides what that means for the document.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner; tests use this to stub pdftotext.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract returns the text content of the PDF at path and the page count.
// Empty output with a nil error means the PDF had no extractable text.
func (e *Extractor) Extract(ctx context.Context, path string) (string, int, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext %s: %w (%s)", path, err, strings.TrimSpace(string(errb)))
	}
	text := string(out)
	if strings.TrimSpace(text) == "" {
		return "", 0, nil
	}
	// A form-feed \f is used as page separator by default
	pages := 1 + strings.Count(text, "\f")
	return text, pages, nil
}
