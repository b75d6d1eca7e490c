package validate

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/mapper"
)

// Field limits.
const (
	MaxNameLen          = 200
	MaxDescriptionLen   = 500
	MaxCategoryLen      = 100
	MaxWineTextLen      = 100 // producer, region
	MaxIngredients      = 30
	MaxIngredientLen    = 100
	MaxGrapes           = 10
	MaxServingOptions   = 10
	MaxFoodPairings     = 4
	PriceWarnThreshold  = 10000.0
	MinVintage          = 1800
	VintageYearsAllowed = 5 // beyond the current year
)

// Field names used in warnings and field errors.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldKind        = "kind"
	FieldIngredients = "ingredients"
	FieldAllergens   = "allergens"
	FieldDietary     = "dietary"
	FieldWine        = "wine"
)

// Outcome is the validated form of one item.
type Outcome struct {
	Item     entity.MenuItem
	Warnings []entity.Warning
	// Errors holds, per field, why the source value could not be kept as given.
	Errors  map[string]string
	Dropped bool
}

func (o *Outcome) warn(index int, field, format string, args ...any) {
	o.Warnings = append(o.Warnings, entity.Warning{Index: index, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (o *Outcome) fail(index int, field, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.warn(index, field, "%s", msg)
	if o.Errors == nil {
		o.Errors = make(map[string]string)
	}
	if _, ok := o.Errors[field]; !ok {
		o.Errors[field] = msg
	}
}

type Validator struct {
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Validator)

// WithClock fixes the time used for the vintage window.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func NewValidator(logger *slog.Logger, opts ...Option) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{logger: logger, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// MaxVintage is the latest vintage accepted at the validator's current time.
func (v *Validator) MaxVintage() int {
	return v.now().Year() + VintageYearsAllowed
}

// Validate normalizes one item against the business rules. index is the item's 1-based
// source position used in warnings. The input item is not modified.
func (v *Validator) Validate(index int, in entity.MenuItem) Outcome {
	item := in.Clone()
	out := Outcome{}

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		out.Dropped = true
		out.warn(index, FieldName, "missing item name, item dropped")
		return out
	}
	if s, cut := truncate(item.Name, MaxNameLen); cut {
		item.Name = s
		out.warn(index, FieldName, "name longer than %d characters, truncated", MaxNameLen)
	}

	item.Description = strings.TrimSpace(item.Description)
	if s, cut := truncate(item.Description, MaxDescriptionLen); cut {
		item.Description = s
		out.warn(index, FieldDescription, "description longer than %d characters, truncated", MaxDescriptionLen)
	}

	item.Category = strings.TrimSpace(item.Category)
	if item.Category == "" {
		item.Category = constants.DefaultCategory
	}
	if s, cut := truncate(item.Category, MaxCategoryLen); cut {
		item.Category = s
		out.warn(index, FieldCategory, "category longer than %d characters, truncated", MaxCategoryLen)
	}

	v.checkPrice(index, &item, &out)

	if !item.Kind.Valid() {
		out.fail(index, FieldKind, "unknown item kind %q, defaulted to food", item.Kind)
		item.Kind = constants.KindFood
	}

	v.checkIngredients(index, &item, &out)
	v.checkAllergens(index, &item, &out)

	if item.IsWine() {
		if item.Wine == nil {
			item.Wine = &entity.WineDetails{}
		}
		v.checkWine(index, item.Wine, &out)
	} else if item.Wine != nil && mapper.HasWineAttributes(*item.Wine) {
		out.warn(index, FieldKind, "item has wine attributes but kind is %s", item.Kind)
	}

	v.checkDietary(index, &item, &out)

	out.Item = item
	return out
}

func (v *Validator) checkPrice(index int, item *entity.MenuItem, out *Outcome) {
	if item.Price == nil {
		return
	}
	p := *item.Price
	if math.IsNaN(p) || math.IsInf(p, 0) {
		item.Price = nil
		out.fail(index, FieldPrice, "price is not a finite number, cleared")
		return
	}
	if p < 0 {
		p = -p
		out.warn(index, FieldPrice, "negative price %s made positive", mapper.FormatPrice(&p))
	}
	if p > PriceWarnThreshold {
		out.warn(index, FieldPrice, "price %s is unusually high", mapper.FormatPrice(&p))
	}
	p = mapper.RoundPrice(p)
	item.Price = &p
}

func (v *Validator) checkIngredients(index int, item *entity.MenuItem, out *Outcome) {
	if len(item.Ingredients) == 0 {
		return
	}
	kept := make([]string, 0, len(item.Ingredients))
	long := 0
	for _, ing := range item.Ingredients {
		ing = strings.TrimSpace(ing)
		if ing == "" {
			continue
		}
		if s, cut := truncate(ing, MaxIngredientLen); cut {
			ing = s
			long++
		}
		kept = append(kept, ing)
	}
	if long > 0 {
		out.warn(index, FieldIngredients, "%d ingredient(s) longer than %d characters, truncated", long, MaxIngredientLen)
	}
	if len(kept) > MaxIngredients {
		out.warn(index, FieldIngredients, "%d ingredients, only the first %d kept", len(kept), MaxIngredients)
		kept = kept[:MaxIngredients]
	}
	item.Ingredients = kept
}

func (v *Validator) checkAllergens(index int, item *entity.MenuItem, out *Outcome) {
	if len(item.Allergens) == 0 {
		return
	}
	var kept []constants.Allergen
	seen := make(map[constants.Allergen]bool)
	for _, a := range item.Allergens {
		known, ok := constants.ParseAllergen(strings.ToLower(strings.TrimSpace(string(a))))
		if !ok {
			out.fail(index, FieldAllergens, "unknown allergen %q dropped", a)
			continue
		}
		if !seen[known] {
			seen[known] = true
			kept = append(kept, known)
		}
	}
	item.Allergens = kept
}

func (v *Validator) checkWine(index int, w *entity.WineDetails, out *Outcome) {
	if !w.Style.Valid() {
		if w.Style == "" {
			out.warn(index, FieldWine, "missing wine style, set to %s", constants.WineOther)
		} else {
			out.warn(index, FieldWine, "unknown wine style %q, set to %s", w.Style, constants.WineOther)
		}
		w.Style = constants.WineOther
	}
	if w.Vintage != nil {
		if y, latest := *w.Vintage, v.MaxVintage(); y < MinVintage || y > latest {
			w.Vintage = nil
			out.fail(index, FieldWine, "vintage %d outside %d-%d, cleared", y, MinVintage, latest)
		}
	}
	if len(w.Grapes) > MaxGrapes {
		out.warn(index, FieldWine, "%d grape varieties, only the first %d kept", len(w.Grapes), MaxGrapes)
		w.Grapes = w.Grapes[:MaxGrapes]
	}
	if s, cut := truncate(strings.TrimSpace(w.Producer), MaxWineTextLen); cut {
		out.warn(index, FieldWine, "producer longer than %d characters, truncated", MaxWineTextLen)
		w.Producer = s
	}
	if s, cut := truncate(strings.TrimSpace(w.Region), MaxWineTextLen); cut {
		out.warn(index, FieldWine, "region longer than %d characters, truncated", MaxWineTextLen)
		w.Region = s
	}
	if len(w.ServingOptions) > MaxServingOptions {
		out.warn(index, FieldWine, "%d serving options, only the first %d kept", len(w.ServingOptions), MaxServingOptions)
		w.ServingOptions = w.ServingOptions[:MaxServingOptions]
	}
	for i := range w.ServingOptions {
		if p := w.ServingOptions[i].Price; p != nil && *p < 0 {
			abs := -*p
			w.ServingOptions[i].Price = &abs
			out.warn(index, FieldWine, "negative %s price made positive", w.ServingOptions[i].Size)
		}
	}
	if len(w.FoodPairings) > MaxFoodPairings {
		out.warn(index, FieldWine, "%d food pairings, only the first %d kept", len(w.FoodPairings), MaxFoodPairings)
		w.FoodPairings = w.FoodPairings[:MaxFoodPairings]
	}
}

var nonVeganWords = []string{
	"chicken", "beef", "pork", "lamb", "veal", "duck", "bacon", "ham", "fish", "shrimp", "prawn",
	"salmon", "tuna", "anchovy", "cheese", "butter", "cream", "milk", "yogurt", "egg", "honey",
	"gelatin", "mayonnaise", "parmesan", "mozzarella",
}

func (v *Validator) checkDietary(index int, item *entity.MenuItem, out *Outcome) {
	d := &item.Dietary
	if d.Vegan && !d.Vegetarian {
		d.Vegetarian = true
		out.warn(index, FieldDietary, "vegan item not marked vegetarian, corrected")
	}
	if !d.Vegan {
		return
	}
	for _, ing := range item.Ingredients {
		if w := nonVeganWord(ing); w != "" {
			out.warn(index, FieldDietary, "marked vegan but ingredient %q suggests %s", ing, w)
			return
		}
	}
}

func nonVeganWord(ingredient string) string {
	for _, f := range strings.FieldsFunc(strings.ToLower(ingredient), func(r rune) bool {
		return r == ' ' || r == '-' || r == ',' || r == '/'
	}) {
		f = strings.TrimSuffix(f, "s")
		for _, w := range nonVeganWords {
			if f == w {
				return w
			}
		}
	}
	return ""
}

// truncate cuts s to n runes. It reports whether anything was cut.
func truncate(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	return strings.TrimSpace(string([]rune(s)[:n])), true
}

// Validated pairs a record with its validation outcome.
type Validated struct {
	Record  entity.Record
	Outcome Outcome
}

// ValidateRecords validates records in order. Dropped items are left out of kept; their
// warnings are still returned.
func (v *Validator) ValidateRecords(records []entity.Record) (kept []Validated, warnings []entity.Warning, dropped int) {
	for _, rec := range records {
		o := v.Validate(rec.Index, rec.Item)
		warnings = append(warnings, o.Warnings...)
		if o.Dropped {
			dropped++
			continue
		}
		rec.Item = o.Item
		kept = append(kept, Validated{Record: rec, Outcome: o})
	}
	v.logger.Debug("validate.ok", "items", len(records), "kept", len(kept), "warnings", len(warnings))
	return kept, warnings, dropped
}
