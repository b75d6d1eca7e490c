package enrich

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

// Enhancer derives ingredient, allergen, dietary and wine attributes for parsed records.
type Enhancer struct {
	logger  *slog.Logger
	workers int
}

type Option func(*Enhancer)

// WithWorkers bounds how many wine items are enhanced concurrently.
func WithWorkers(n int) Option {
	return func(e *Enhancer) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEnhancer(logger *slog.Logger, opts ...Option) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enhancer{logger: logger, workers: 4}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Output holds enhanced copies of the input records, in input order, and one
// EnrichmentResult per record at the same index.
type Output struct {
	Records []entity.Record
	Results []entity.EnrichmentResult
}

// Enhance never modifies the input records.
func (e *Enhancer) Enhance(ctx context.Context, records []entity.Record) (*Output, error) {
	start := time.Now()
	out := &Output{
		Records: make([]entity.Record, len(records)),
		Results: make([]entity.EnrichmentResult, len(records)),
	}

	var foods []entity.MenuItem
	var wines []int
	for i, rec := range records {
		rec.Item = rec.Item.Clone()
		out.Results[i] = enhanceItem(&rec.Item)
		out.Results[i].ItemID = rec.ID
		out.Records[i] = rec

		switch rec.Item.Kind {
		case constants.KindFood:
			foods = append(foods, rec.Item)
		case constants.KindWine:
			wines = append(wines, i)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, i := range wines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each goroutine owns out.*[i]; foods is read-only
			enhanceWine(&out.Records[i].Item, &out.Results[i], foods)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("enrich.ok",
		"items", len(records),
		"wines", len(wines),
		"foods", len(foods),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func enhanceItem(item *entity.MenuItem) entity.EnrichmentResult {
	var res entity.EnrichmentResult
	source := item.Ingredients
	res.Ingredients = AnalyzeIngredients(source)
	item.Ingredients = cleanedNames(res.Ingredients)

	res.Allergens = DetectAllergens(item.Name, source)
	item.Allergens = mergeAllergens(item.Allergens, TaggedAllergens(res.Allergens))

	res.InferredDietary = InferDietary(item.Name, res.Ingredients, res.Allergens)
	item.Dietary = MergeDietary(item.Dietary, res.InferredDietary)
	return res
}

func enhanceWine(item *entity.MenuItem, res *entity.EnrichmentResult, foods []entity.MenuItem) {
	if item.Wine == nil {
		item.Wine = &entity.WineDetails{}
	}
	if item.Wine.Style == "" {
		item.Wine.Style = InferStyle(*item)
	}

	grapes, confidence := ResolveGrapes(*item)
	if len(item.Wine.Grapes) == 0 {
		item.Wine.Grapes = grapes
	}
	res.GrapeConfidence = confidence
	res.WineColor = WineColor(*item, item.Wine.Grapes)

	res.PairingScores = ScorePairings(res.WineColor, foods)
	merged := MergePairings(item.Wine.FoodPairings, res.PairingScores)
	for _, p := range merged {
		if !containsFold(item.Wine.FoodPairings, p) {
			res.SuggestedPairing = append(res.SuggestedPairing, p)
		}
	}
	item.Wine.FoodPairings = merged
}
