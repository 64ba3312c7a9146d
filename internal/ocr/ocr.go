// Package ocr turns source documents into plain text for extraction.
package ocr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/config"
)

// Extractor extracts text content from a source document on disk.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// ErrUnsupportedFormat is returned for files that are neither PDF nor text.
var ErrUnsupportedFormat = eris.New("ocr: unsupported document format")

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".json": true,
	".csv":  true,
	".html": true,
}

// Router picks an extractor by file extension.
type Router struct {
	pdf     Extractor
	text    Extractor
	timeout time.Duration
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) *Router {
	return &Router{
		pdf:     NewPdfToText(cfg.PdfToTextPath),
		text:    PlainText{},
		timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
	}
}

// ExtractText dispatches on the extension of path.
func (r *Router) ExtractText(ctx context.Context, path string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return r.pdf.ExtractText(ctx, path)
	case textExtensions[ext]:
		return r.text.ExtractText(ctx, path)
	default:
		return "", eris.Wrapf(ErrUnsupportedFormat, "ocr: %s", filepath.Base(path))
	}
}

// PlainText reads text files as they are.
type PlainText struct{}

// ExtractText returns the file contents, rejecting binary data.
func (PlainText) ExtractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read %s", path)
	}
	if !utf8.Valid(data) {
		return "", eris.Wrapf(ErrUnsupportedFormat, "ocr: %s is not valid UTF-8", filepath.Base(path))
	}
	return string(data), nil
}
