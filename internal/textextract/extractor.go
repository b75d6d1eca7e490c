package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/common"
)

const DefaultMinTextLength = 20

type Config struct {
	Pdftotext     string // binary name or absolute path; if empty -> "pdftotext"
	MinTextLength int    // non-space runes; default 20
}

// Document is the normalized text of an unstructured menu.
type Document struct {
	Text     string
	Pages    int
	Format   constants.SourceFormat
	Method   string // "plain-text" | "pdf-text"
	IsWine   bool
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for pdftotext.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = DefaultMinTextLength
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads, normalizes and classifies the text of a txt/md or pdf file. fileName is
// the name the user uploaded, used for wine detection; it may differ from path.
func (e *Extractor) Extract(ctx context.Context, path, fileName string) (*Document, error) {
	start := time.Now()
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	format, ok := constants.FormatForExt(filepath.Ext(path))
	if !ok || !format.IsUnstructured() {
		return nil, common.NewAppError(common.CodeUnsupportedFormat,
			fmt.Sprintf("text extraction does not handle %q", filepath.Ext(path)), nil)
	}
	e.logger.Debug("textextract.start", "path", path, "format", format)

	doc := &Document{Format: format}
	switch format {
	case constants.FormatPDF:
		txt, pages, warns, err := e.pdfToText(ctx, path)
		if err != nil {
			return nil, common.NewAppError(common.CodeFileUnreadable, "pdftotext failed", err).
				WithDetail("file", fileName)
		}
		doc.Text, doc.Pages, doc.Warnings, doc.Method = txt, pages, warns, "pdf-text"
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, common.NewAppError(common.CodeFileUnreadable, "read text file", err).
				WithDetail("file", fileName)
		}
		txt, warn := decodeText(raw)
		if warn != "" {
			doc.Warnings = append(doc.Warnings, warn)
		}
		doc.Text, doc.Pages, doc.Method = txt, 1, "plain-text"
	}

	doc.Text = Normalize(doc.Text)
	if n := ContentLength(doc.Text); n < e.cfg.MinTextLength {
		e.logger.Warn("textextract.no_content", "file", fileName, "chars", n, "min", e.cfg.MinTextLength)
		return nil, common.NewAppError(common.CodeNoReadableContent,
			fmt.Sprintf("extracted text has %d characters, need at least %d", n, e.cfg.MinTextLength), nil).
			WithDetail("file", fileName).
			WithDetail("chars", n)
	}

	doc.IsWine = IsWineDocument(fileName, doc.Text)
	if doc.IsWine {
		doc.Text = PreprocessWine(doc.Text)
	}
	doc.Duration = time.Since(start)
	e.logger.Info("textextract.ok",
		"file", fileName,
		"method", doc.Method,
		"pages", doc.Pages,
		"chars", len(doc.Text),
		"wine", doc.IsWine,
		"elapsed_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			warnings = append(warnings, msg)
		}
		return "", 0, warnings, err
	}
	text = strings.TrimRight(string(out), "\f")
	// a form-feed separates pages
	pages = 1 + strings.Count(text, "\f")
	return text, pages, nil, nil
}

// decodeText strips a UTF-8 BOM and falls back to Windows-1252 for non-UTF-8 input.
func decodeText(raw []byte) (string, string) {
	raw = []byte(strings.TrimPrefix(string(raw), "\ufeff"))
	if utf8.Valid(raw) {
		return string(raw), ""
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�"), "text is not valid UTF-8, invalid bytes replaced"
	}
	return string(out), "text decoded as Windows-1252"
}
