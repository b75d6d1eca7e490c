package mapper

import (
	"regexp"
	"strings"
)

// Field is a canonical item field name.
type Field string

const (
	FieldName           Field = "name"
	FieldDescription    Field = "description"
	FieldPrice          Field = "price"
	FieldCategory       Field = "category"
	FieldKind           Field = "kind"
	FieldIngredients    Field = "ingredients"
	FieldAllergens      Field = "allergens"
	FieldVegan          Field = "vegan"
	FieldVegetarian     Field = "vegetarian"
	FieldGlutenFree     Field = "gluten_free"
	FieldDairyFree      Field = "dairy_free"
	FieldWineStyle      Field = "wine_style"
	FieldProducer       Field = "producer"
	FieldRegion         Field = "region"
	FieldGrapes         Field = "grapes"
	FieldVintage        Field = "vintage"
	FieldServingOptions Field = "serving_options"
	FieldFoodPairings   Field = "food_pairings"
)

type synonymSet struct {
	field    Field
	synonyms []string
}

// priority is the fixed resolution order; the first set containing a header wins.
var priority = []synonymSet{
	{FieldName, []string{"name", "item", "item name", "dish", "dish name", "product", "product name", "food item", "menu item", "title", "wine", "wine name"}},
	{FieldDescription, []string{"description", "desc", "details", "detail", "notes", "tasting notes", "summary"}},
	{FieldPrice, []string{"price", "cost", "$", "usd", "price $", "price usd", "amount", "rate"}},
	{FieldCategory, []string{"category", "section", "course", "menu section", "group", "menu category"}},
	{FieldKind, []string{"kind", "item kind", "item type", "type"}},
	{FieldIngredients, []string{"ingredients", "ingredient", "contains", "components", "ingredient list"}},
	{FieldAllergens, []string{"allergens", "allergen", "allergy", "allergies", "allergy info"}},
	{FieldVegan, []string{"vegan", "is vegan"}},
	{FieldVegetarian, []string{"vegetarian", "is vegetarian", "veg"}},
	{FieldGlutenFree, []string{"gluten free", "glutenfree", "gf", "is gluten free"}},
	{FieldDairyFree, []string{"dairy free", "dairyfree", "df", "is dairy free"}},
	{FieldWineStyle, []string{"wine style", "style", "wine type"}},
	{FieldProducer, []string{"producer", "winery", "estate", "vineyard", "domaine", "chateau", "maker"}},
	{FieldRegion, []string{"region", "appellation", "origin", "wine region", "country"}},
	{FieldGrapes, []string{"grapes", "grape", "grape variety", "grape varieties", "varietal", "varietals", "variety"}},
	{FieldVintage, []string{"vintage", "year"}},
	{FieldServingOptions, []string{"serving options", "servings", "sizes", "serving sizes", "pours", "serving"}},
	{FieldFoodPairings, []string{"food pairings", "pairings", "pairing", "pairs with", "food pairing"}},
}

var (
	reCamel       = regexp.MustCompile(`(\p{Ll})(\p{Lu})`)
	reHeaderPunct = regexp.MustCompile(`[^\p{L}\p{N}$\s]+`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// NormalizeHeader lower-cases, strips punctuation (keeping $) and collapses whitespace.
// camelCase keys are split into words first.
func NormalizeHeader(h string) string {
	h = reCamel.ReplaceAllString(h, "$1 $2")
	h = strings.ToLower(h)
	h = strings.NewReplacer("_", " ", "-", " ", "/", " ").Replace(h)
	h = reHeaderPunct.ReplaceAllString(h, " ")
	h = strings.ReplaceAll(h, "$", " $ ")
	h = reSpaces.ReplaceAllString(h, " ")
	return strings.TrimSpace(h)
}

// Resolve maps a raw header or key to its canonical field.
func Resolve(header string) (Field, bool) {
	n := NormalizeHeader(header)
	if n == "" {
		return "", false
	}
	for _, set := range priority {
		for _, s := range set.synonyms {
			if n == s {
				return set.field, true
			}
		}
	}
	tokens := strings.Fields(n)
	// head noun: "Item Price" is a price, "Menu Item Description" a description
	head := tokens[len(tokens)-1]
	for _, set := range priority {
		for _, s := range set.synonyms {
			if !strings.Contains(s, " ") && head == s {
				return set.field, true
			}
		}
	}
	for _, set := range priority {
		for _, s := range set.synonyms {
			if strings.Contains(s, " ") && strings.Contains(" "+n+" ", " "+s+" ") {
				return set.field, true
			}
		}
	}
	return "", false
}

// Mapping is the resolved column layout of one table or record shape.
type Mapping struct {
	Columns  map[int]Field
	Unmapped []string
}

// MapHeaders resolves a header row. When two columns resolve to the same field the
// leftmost one wins and the other is reported as unmapped.
func MapHeaders(headers []string) Mapping {
	m := Mapping{Columns: make(map[int]Field)}
	seen := make(map[Field]bool)
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		f, ok := Resolve(h)
		if !ok || seen[f] {
			m.Unmapped = append(m.Unmapped, h)
			continue
		}
		seen[f] = true
		m.Columns[i] = f
	}
	return m
}

// HasName reports whether any column resolved to the name field.
func (m Mapping) HasName() bool {
	for _, f := range m.Columns {
		if f == FieldName {
			return true
		}
	}
	return false
}

// Has reports whether the mapping contains field f.
func (m Mapping) Has(f Field) bool {
	for _, c := range m.Columns {
		if c == f {
			return true
		}
	}
	return false
}

// Rank orders keys so that, among keys resolving to the same field, the one closest
// to the canonical name is seen first. Unresolvable keys sort last.
func Rank(key string) int {
	n := NormalizeHeader(key)
	for pi, set := range priority {
		for si, s := range set.synonyms {
			if n == s {
				return pi*100 + si
			}
		}
	}
	if f, ok := Resolve(key); ok {
		for pi, set := range priority {
			if set.field == f {
				return pi*100 + 99
			}
		}
	}
	return len(priority) * 100
}
