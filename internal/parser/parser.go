package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/mapper"
)

// ErrNoItems marks a document whose layout holds no recognizable item list.
var ErrNoItems = errors.New("no recognizable items")

// Parser turns one document into canonical records.
type Parser interface {
	Format() constants.SourceFormat
	Parse(ctx context.Context, path string) (*Result, error)
}

// Result is the output of a single parse.
type Result struct {
	Format   constants.SourceFormat
	MenuName string
	Records  []entity.Record
	// Warnings are positional and never block processing.
	Warnings []string
	Dropped  int
	Metadata map[string]any
}

func newResult(format constants.SourceFormat) *Result {
	return &Result{Format: format, Metadata: make(map[string]any)}
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// add maps one raw record. Records without a name are dropped with exactly one warning.
func (r *Result) add(position string, index int, pairs []mapper.Pair) (*entity.Record, bool) {
	rec, unmapped, ok := mapper.ToRecord(index, pairs)
	r.noteUnmapped(unmapped)
	if !ok {
		r.Dropped++
		r.warnf("%s: missing item name, row skipped", position)
		return nil, false
	}
	r.Records = append(r.Records, rec)
	return &r.Records[len(r.Records)-1], true
}

func (r *Result) noteUnmapped(cols []string) {
	if len(cols) == 0 {
		return
	}
	set, _ := r.Metadata["unmappedColumns"].([]string)
	for _, c := range cols {
		found := false
		for _, s := range set {
			if s == c {
				found = true
				break
			}
		}
		if !found {
			set = append(set, c)
		}
	}
	sort.Strings(set)
	r.Metadata["unmappedColumns"] = set
}

// Registry selects a parser by source format.
type Registry struct {
	parsers map[constants.SourceFormat]Parser
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger, parsers ...Parser) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{parsers: make(map[constants.SourceFormat]Parser), logger: logger}
	for _, p := range parsers {
		r.parsers[p.Format()] = p
	}
	return r
}

// DefaultRegistry wires every structured-format parser.
func DefaultRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return NewRegistry(logger,
		NewXLSXParser(logger),
		NewCSVParser(logger),
		NewJSONParser(logger),
		NewXMLParser(logger),
		NewDOCXParser(logger),
	)
}

// For returns the parser for format, if one is registered.
func (r *Registry) For(format constants.SourceFormat) (Parser, bool) {
	p, ok := r.parsers[format]
	return p, ok
}

// Parse dispatches to the registered parser for format.
func (r *Registry) Parse(ctx context.Context, format constants.SourceFormat, path string) (*Result, error) {
	p, ok := r.For(format)
	if !ok {
		return nil, fmt.Errorf("no parser registered for format %q", format)
	}
	res, err := p.Parse(ctx, path)
	if err != nil {
		r.logger.Error("parser.failed", "format", format, "path", path, "error", err)
		return nil, err
	}
	r.logger.Info("parser.ok",
		"format", format,
		"records", len(res.Records),
		"dropped", res.Dropped,
		"warnings", len(res.Warnings),
	)
	return res, nil
}
