package mapper

import (
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

// Pair is one raw key/value of a source record, in source order.
type Pair struct {
	Key   string
	Value any
}

// Pairs builds source-ordered pairs from a header row and a data row.
func Pairs(headers, row []string) []Pair {
	out := make([]Pair, 0, len(headers))
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		var v any
		if i < len(row) {
			v = row[i]
		}
		out = append(out, Pair{Key: h, Value: v})
	}
	return out
}

// SortPairs orders pairs of an unordered object by canonical field rank, then by key, so
// first-key-wins resolution is deterministic.
func SortPairs(pairs []Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		ri, rj := Rank(pairs[i].Key), Rank(pairs[j].Key)
		if ri != rj {
			return ri < rj
		}
		return pairs[i].Key < pairs[j].Key
	})
}

// ObjectPairs lists the keys of a decoded object in SortPairs order.
func ObjectPairs(m map[string]any) []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	SortPairs(pairs)
	return pairs
}

// ToRecord resolves each key to its canonical field (first key wins per field) and
// coerces the values into a canonical item. ok is false when the record has no name.
func ToRecord(index int, pairs []Pair) (rec entity.Record, unmapped []string, ok bool) {
	rec = entity.Record{Index: index, Raw: make(map[string]any, len(pairs))}
	fields := make(map[Field]any)
	for _, p := range pairs {
		rec.Raw[p.Key] = p.Value
		f, found := Resolve(p.Key)
		if !found {
			unmapped = append(unmapped, p.Key)
			continue
		}
		if _, dup := fields[f]; dup {
			continue
		}
		fields[f] = p.Value
		rec.SetOriginal(string(f), p.Value)
	}
	rec.Item = BuildItem(fields)
	return rec, unmapped, rec.Item.Name != ""
}

var reInnerSpace = regexp.MustCompile(`\s+`)

func cleanText(v any) string {
	return strings.TrimSpace(reInnerSpace.ReplaceAllString(ToString(v), " "))
}

// BuildItem coerces canonical-field values into a MenuItem.
func BuildItem(fields map[Field]any) entity.MenuItem {
	item := entity.MenuItem{
		Name:        cleanText(fields[FieldName]),
		Description: strings.TrimSpace(ToString(fields[FieldDescription])),
		Price:       ParsePrice(fields[FieldPrice]),
		Ingredients: ParseList(fields[FieldIngredients]),
	}

	cat, _ := constants.Canonicalize(ToString(fields[FieldCategory]))
	item.Category = cat

	for _, a := range ParseList(fields[FieldAllergens]) {
		a = strings.ToLower(a)
		if known, ok := constants.ParseAllergen(a); ok {
			item.Allergens = append(item.Allergens, known)
		} else {
			item.Allergens = append(item.Allergens, constants.Allergen(a))
		}
	}

	item.Dietary = entity.Dietary{
		Vegan:      boolValue(fields[FieldVegan]),
		Vegetarian: boolValue(fields[FieldVegetarian]),
		GlutenFree: boolValue(fields[FieldGlutenFree]),
		DairyFree:  boolValue(fields[FieldDairyFree]),
	}

	wine := entity.WineDetails{
		Style:          constants.WineStyle(strings.ToLower(cleanText(fields[FieldWineStyle]))),
		Producer:       cleanText(fields[FieldProducer]),
		Region:         cleanText(fields[FieldRegion]),
		Grapes:         ParseList(fields[FieldGrapes]),
		Vintage:        ParseVintage(fields[FieldVintage]),
		ServingOptions: ParseServingOptions(fields[FieldServingOptions]),
		FoodPairings:   ParseList(fields[FieldFoodPairings]),
	}
	hasWine := HasWineAttributes(wine)

	item.Kind = ParseKind(fields[FieldKind])
	if item.Kind == "" {
		switch {
		case hasWine, item.Category == constants.CategoryWine:
			item.Kind = constants.KindWine
		case item.Category == constants.CategoryBeverages:
			item.Kind = constants.KindBeverage
		default:
			item.Kind = constants.KindFood
		}
	}
	if hasWine || item.Kind == constants.KindWine {
		item.Wine = &wine
	}
	return item
}

func boolValue(v any) bool {
	b := ParseBool(v)
	return b != nil && *b
}

// ParseKind maps free-form kind labels. Unknown non-empty labels are returned as-is
// so validation can flag them.
func ParseKind(v any) constants.ItemKind {
	s := strings.ToLower(cleanText(v))
	switch s {
	case "":
		return ""
	case "food", "dish", "meal":
		return constants.KindFood
	case "beverage", "beverages", "drink", "drinks", "cocktail", "beer":
		return constants.KindBeverage
	case "wine", "wines":
		return constants.KindWine
	}
	return constants.ItemKind(s)
}

// HasWineAttributes reports whether any wine-specific attribute is set.
func HasWineAttributes(w entity.WineDetails) bool {
	return w.Style != "" || w.Producer != "" || w.Region != "" || len(w.Grapes) > 0 || w.Vintage != nil
}

var reTrailingPrice = regexp.MustCompile(`^(.*?)[\s:@-]*((?:[$€£]\s*)?\d+(?:[.,]\d{1,2})?)\s*$`)

// ParseServingOptions accepts "Glass $12 | Bottle $48" style strings or native arrays
// of {size, price} objects.
func ParseServingOptions(v any) []entity.ServingOption {
	var out []entity.ServingOption
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				size := cleanText(m["size"])
				if size == "" {
					continue
				}
				out = append(out, entity.ServingOption{Size: size, Price: ParsePrice(m["price"])})
				continue
			}
			out = append(out, ParseServingOptions(ToString(e))...)
		}
		return out
	}
	for _, part := range ParseList(v) {
		m := reTrailingPrice.FindStringSubmatch(part)
		if m == nil {
			out = append(out, entity.ServingOption{Size: part})
			continue
		}
		size := strings.TrimSpace(m[1])
		if size == "" {
			size = part
		}
		out = append(out, entity.ServingOption{Size: size, Price: ParsePrice(m[2])})
	}
	return out
}
