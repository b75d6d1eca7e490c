package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/menu-importer/internal/cache"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/llm"
	"github.com/joseph-ayodele/menu-importer/internal/mapper"
	"github.com/joseph-ayodele/menu-importer/internal/retry"
)

// PreviewChars bounds the text preview carried by an EXTRACTION_FAILED error.
const PreviewChars = 300

// errNotStructured marks an attempt where the model answered without the function call.
var errNotStructured = errors.New("model did not return a structured response")

// Cache is the subset of the extraction cache the orchestrator uses.
type Cache interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// Input is one unstructured document.
type Input struct {
	Text     string
	FileName string
	IsWine   bool
}

// Result is the canonical output of a successful extraction.
type Result struct {
	MenuName  string
	Records   []entity.Record
	Warnings  []string
	Dropped   int
	Attempts  int
	Recovery  string // recovery step that produced the payload, empty for a clean function call
	FromCache bool
}

type Orchestrator struct {
	extractor    llm.MenuExtractor
	policy       retry.Policy
	cache        Cache
	instructions string
	logger       *slog.Logger
}

type Option func(*Orchestrator)

// WithCache enables result caching keyed by document text and wine flag.
func WithCache(c Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithInstructions appends caller instructions to every system prompt.
func WithInstructions(s string) Option {
	return func(o *Orchestrator) { o.instructions = s }
}

func NewOrchestrator(extractor llm.MenuExtractor, policy retry.Policy, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{extractor: extractor, policy: policy, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type cached struct {
	Menu     llm.MenuFields `json:"menu"`
	Recovery string         `json:"recovery,omitempty"`
}

// Extract asks the model for the document's items, escalating the instruction strategy on
// each attempt. Free text on the final attempt goes through the recovery chain.
func (o *Orchestrator) Extract(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	key := cache.Key(in.Text, fmt.Sprintf("wine=%t", in.IsWine))
	if o.cache != nil {
		var c cached
		if hit, err := o.cache.Get(key, &c); err != nil {
			o.logger.Warn("extraction.cache_get_failed", "error", err)
		} else if hit {
			res := o.toResult(&c.Menu)
			res.Recovery, res.FromCache = c.Recovery, true
			o.logger.Info("extraction.cache_hit", "file", in.FileName, "items", len(res.Records))
			return res, nil
		}
	}

	var (
		menu     *llm.MenuFields
		recovery string
		lastText string
		attempts int
	)
	err := o.policy.Do(ctx, func(ctx context.Context, attempt int, last bool) error {
		attempts = attempt
		req := llm.MenuRequest{
			Text:         in.Text,
			FileName:     in.FileName,
			IsWine:       in.IsWine,
			Strategy:     llm.StrategyForAttempt(attempt),
			Instructions: o.instructions,
		}
		resp, err := o.extractor.ExtractMenu(ctx, req)
		if err != nil {
			o.logger.Warn("extraction.attempt_failed",
				"attempt", attempt, "strategy", req.Strategy.String(), "error", err)
			return err
		}

		if resp.Structured() {
			m, step, err := o.decode(resp.Arguments)
			if err == nil {
				menu, recovery = m, step
				return nil
			}
			lastText = string(resp.Arguments)
			o.logger.Warn("extraction.invalid_arguments",
				"attempt", attempt, "strategy", req.Strategy.String(), "error", err)
			return err
		}

		if resp.Text != "" {
			lastText = resp.Text
		}
		o.logger.Warn("extraction.not_structured",
			"attempt", attempt, "strategy", req.Strategy.String(), "text_len", len(resp.Text))
		if !last || resp.Text == "" {
			return errNotStructured
		}
		raw, step, err := llm.RecoverJSON(resp.Text)
		if err != nil {
			return err
		}
		m, _, err := o.decode(raw)
		if err != nil {
			return err
		}
		menu, recovery = m, step
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if lastText == "" {
			lastText = in.Text
		}
		o.logger.Error("extraction.failed",
			"file", in.FileName,
			"attempts", attempts,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewAppError(common.CodeExtractionFailed,
			fmt.Sprintf("no structured menu after %d attempts", attempts), err).
			WithDetail("file", in.FileName).
			WithDetail("attempts", attempts).
			WithDetail("preview", Preview(lastText))
	}

	if o.cache != nil {
		if err := o.cache.Set(key, cached{Menu: *menu, Recovery: recovery}); err != nil {
			o.logger.Warn("extraction.cache_set_failed", "error", err)
		}
	}
	res := o.toResult(menu)
	res.Attempts, res.Recovery = attempts, recovery
	o.logger.Info("extraction.ok",
		"file", in.FileName,
		"items", len(res.Records),
		"attempts", attempts,
		"recovery", recovery,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// decode normalizes, validates and decodes function-call arguments. Arguments that are
// not valid JSON go through the recovery chain first.
func (o *Orchestrator) decode(raw []byte) (*llm.MenuFields, string, error) {
	step := ""
	if !json.Valid(raw) {
		fixed, s, err := llm.RecoverJSON(string(raw))
		if err != nil {
			return nil, "", err
		}
		raw, step = fixed, s
	}
	norm, _, err := llm.NormalizeMenuJSON(raw, o.logger)
	if err != nil {
		return nil, "", err
	}
	if err := llm.ValidateMenuArguments(norm); err != nil {
		return nil, "", err
	}
	m, err := llm.DecodeMenu(norm)
	if err != nil {
		return nil, "", err
	}
	return m, step, nil
}

func (o *Orchestrator) toResult(m *llm.MenuFields) *Result {
	res := &Result{MenuName: m.MenuName}
	for i, item := range m.Items {
		rec, _, ok := mapper.ToRecord(i+1, mapper.ObjectPairs(item))
		if !ok {
			res.Dropped++
			res.Warnings = append(res.Warnings, fmt.Sprintf("item %d: missing item name, row skipped", i+1))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// Preview returns at most PreviewChars runes of s.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= PreviewChars {
		return s
	}
	r := []rune(s)
	return string(r[:PreviewChars])
}
