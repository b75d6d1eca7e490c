package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/menu-importer/internal/conflict"
	"github.com/joseph-ayodele/menu-importer/internal/enrich"
	"github.com/joseph-ayodele/menu-importer/internal/extraction"
	"github.com/joseph-ayodele/menu-importer/internal/importer"
	"github.com/joseph-ayodele/menu-importer/internal/parser"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
	"github.com/joseph-ayodele/menu-importer/internal/textextract"
	"github.com/joseph-ayodele/menu-importer/internal/validate"
)

// DefaultMaxSizeMB bounds uploads when the caller gives no limit.
const DefaultMaxSizeMB = 10

// TextExtractor reads the text of an unstructured document.
type TextExtractor interface {
	Extract(ctx context.Context, path, fileName string) (*textextract.Document, error)
}

// DocumentExtractor turns document text into records with the generative model.
type DocumentExtractor interface {
	Extract(ctx context.Context, in extraction.Input) (*extraction.Result, error)
}

// Components are the stages the pipeline coordinates. Text and AI may be nil, in which
// case text and PDF documents are rejected; Resolver, Finalizer and Jobs may be nil for
// preview-only use.
type Components struct {
	Parsers   *parser.Registry
	Text      TextExtractor
	AI        DocumentExtractor
	Enhancer  *enrich.Enhancer
	Validator *validate.Validator
	Resolver  *conflict.Resolver
	Finalizer *importer.Finalizer
	Jobs      repository.JobRepository
}

// Pipeline coordinates preview (parse or extract, enrich, validate), conflict
// resolution, finalization and job status.
type Pipeline struct {
	Components
	logger    *slog.Logger
	maxSizeMB int
}

type Option func(*Pipeline)

// WithMaxSizeMB sets the upload limit used when a request carries none.
func WithMaxSizeMB(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxSizeMB = n
		}
	}
}

func New(c Components, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if c.Parsers == nil {
		c.Parsers = parser.DefaultRegistry(logger)
	}
	if c.Enhancer == nil {
		c.Enhancer = enrich.NewEnhancer(logger)
	}
	if c.Validator == nil {
		c.Validator = validate.NewValidator(logger)
	}
	p := &Pipeline{Components: c, logger: logger, maxSizeMB: DefaultMaxSizeMB}
	for _, o := range opts {
		o(p)
	}
	return p
}
