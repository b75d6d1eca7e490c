package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

// DefaultThreshold is the similarity a fuzzy candidate must exceed to count as a match.
const DefaultThreshold = 0.7

// Catalog is the read side of the catalog the resolver matches against.
type Catalog interface {
	// FindByName returns items whose name equals name, ignoring case and surrounding space.
	FindByName(ctx context.Context, scope entity.CatalogScope, name string) ([]entity.CatalogItem, error)
	// SearchByWords returns items whose name contains any of the words, ignoring case.
	SearchByWords(ctx context.Context, scope entity.CatalogScope, words []string) ([]entity.CatalogItem, error)
}

// Request is one conflict-resolution call.
type Request struct {
	Items        []entity.ParsedItem
	RestaurantID string
	MenuID       *uuid.UUID
}

func (r Request) scope() entity.CatalogScope {
	return entity.CatalogScope{RestaurantID: r.RestaurantID, MenuID: r.MenuID}
}

type Resolver struct {
	catalog   Catalog
	threshold float64
	logger    *slog.Logger
}

type Option func(*Resolver)

func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 && t < 1 {
			r.threshold = t
		}
	}
}

func NewResolver(catalog Catalog, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{catalog: catalog, threshold: DefaultThreshold, logger: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve annotates every item with its conflict outcome and derived import decision.
// Lookup failures are reported per item; only a cancelled context fails the call.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]entity.ParsedItem, entity.ConflictSummary, error) {
	start := time.Now()
	out := make([]entity.ParsedItem, len(req.Items))
	var sum entity.ConflictSummary
	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return nil, entity.ConflictSummary{}, err
		}
		item.Conflict = r.resolveOne(ctx, req.scope(), item)
		item.ImportDecision = decide(item)
		out[i] = item
		sum.Add(item.Conflict.Status)
	}
	r.logger.Info("conflict.resolve.ok",
		"restaurant_id", req.RestaurantID,
		"items", sum.Total,
		"new", sum.NewItems,
		"updates", sum.UpdateCandidates,
		"ambiguous", sum.Ambiguous,
		"errors", sum.Errors,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, sum, nil
}

func (r *Resolver) resolveOne(ctx context.Context, scope entity.CatalogScope, item entity.ParsedItem) entity.ConflictResolution {
	if item.UserAction == constants.ActionIgnore {
		return entity.ConflictResolution{Status: constants.ConflictSkipped}
	}
	name := strings.TrimSpace(item.Name.Value)
	if name == "" {
		return entity.ConflictResolution{Status: constants.ConflictError, Message: "item has no name"}
	}

	exact, err := r.catalog.FindByName(ctx, scope, name)
	if err != nil {
		return r.lookupFailed(item, err)
	}
	switch len(exact) {
	case 0:
	case 1:
		id := exact[0].ID
		return entity.ConflictResolution{
			Status:      constants.ConflictUpdate,
			MatchedID:   &id,
			MatchedName: exact[0].Item.Name,
			Similarity:  1,
		}
	default:
		return entity.ConflictResolution{
			Status:       constants.ConflictMultiple,
			CandidateIDs: ids(exact),
			Similarity:   1,
			Message:      fmt.Sprintf("%d existing items named %q", len(exact), name),
		}
	}

	words := SignificantWords(name)
	if len(words) == 0 {
		return entity.ConflictResolution{Status: constants.ConflictNone}
	}
	candidates, err := r.catalog.SearchByWords(ctx, scope, words)
	if err != nil {
		return r.lookupFailed(item, err)
	}

	var (
		qualifying []entity.CatalogItem
		best       float64
	)
	seen := make(map[uuid.UUID]bool)
	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		s := Similarity(name, c.Item.Name)
		if s > r.threshold {
			qualifying = append(qualifying, c)
			if s > best {
				best = s
			}
		}
	}
	switch len(qualifying) {
	case 0:
		return entity.ConflictResolution{Status: constants.ConflictNone}
	case 1:
		id := qualifying[0].ID
		return entity.ConflictResolution{
			Status:      constants.ConflictUpdate,
			MatchedID:   &id,
			MatchedName: qualifying[0].Item.Name,
			Similarity:  best,
		}
	}
	return entity.ConflictResolution{
		Status:       constants.ConflictMultiple,
		CandidateIDs: ids(qualifying),
		Similarity:   best,
		Message:      fmt.Sprintf("%d similar existing items", len(qualifying)),
	}
}

func (r *Resolver) lookupFailed(item entity.ParsedItem, err error) entity.ConflictResolution {
	r.logger.Warn("conflict.lookup_failed", "item_id", item.ID, "name", item.Name.Value, "error", err)
	return entity.ConflictResolution{Status: constants.ConflictError, Message: err.Error()}
}

// decide derives the import decision from the conflict outcome. Outcomes that need the
// caller's attention keep whatever decision the caller already set, defaulting to new.
func decide(item entity.ParsedItem) constants.ImportDecision {
	switch item.Conflict.Status {
	case constants.ConflictNone:
		return constants.DecisionNew
	case constants.ConflictUpdate:
		return constants.DecisionUpdate
	case constants.ConflictSkipped:
		return constants.DecisionSkip
	}
	if item.ImportDecision != "" {
		return item.ImportDecision
	}
	return constants.DecisionNew
}

func ids(items []entity.CatalogItem) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// Similarity is 1 - Levenshtein distance / longer length, over case-folded names.
func Similarity(a, b string) float64 {
	a, b = entity.NameKey(a), entity.NameKey(b)
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.Distance(a, b, nil))/float64(longest)
}

var stopWords = map[string]bool{
	"the": true, "and": true, "with": true, "of": true, "de": true, "la": true, "le": true,
	"du": true, "al": true, "a": true, "an": true, "in": true, "on": true, "our": true,
	"house": true, "style": true,
}

// SignificantWords lists the distinct lower-cased words of a name worth searching for.
func SignificantWords(name string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
