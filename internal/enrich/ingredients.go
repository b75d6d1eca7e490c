package enrich

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

// Ingredient categories.
const (
	CategoryProtein   = "protein"
	CategoryDairy     = "dairy"
	CategoryVegetable = "vegetable"
	CategoryGrain     = "grain"
	CategoryNut       = "nut"
	CategorySeafood   = "seafood"
	CategorySpice     = "spice"
	CategoryOil       = "oil"
	CategoryFruit     = "fruit"
	CategoryOther     = "other"
)

var reDescriptors = regexp.MustCompile(`(?i)\b(?:freshly|fresh|grilled|roasted|fried|deep-fried|pan-seared|pan-fried|seared|sauteed|sautéed|baked|braised|smoked|steamed|poached|chopped|diced|sliced|minced|shredded|crispy|crunchy|toasted|marinated|organic|local|locally sourced|house-made|housemade|homemade|wild|aged|ripe|crushed|grated|whipped|pickled|charred|slow-cooked|slow-roasted|caramelized|shaved|julienned|imported|seasonal)\b`)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	edgeJunkChar = " ,;:.-–—*()"
)

// CleanIngredient removes cooking-method and freshness descriptors, keeping the
// remaining words as written.
func CleanIngredient(s string) string {
	out := reDescriptors.ReplaceAllString(s, " ")
	out = reSpaces.ReplaceAllString(out, " ")
	return strings.Trim(out, edgeJunkChar)
}

// ingredientCategories is checked in order; the first set with a match wins.
var ingredientCategories = []struct {
	category string
	words    keywordSet
}{
	{CategoryOil, newKeywordSet("olive oil", "truffle oil", "sesame oil", "chili oil", "oil", "vinaigrette")},
	{CategoryNut, newKeywordSet("almond", "walnut", "pecan", "cashew", "pistachio", "hazelnut", "peanut", "pine nut", "macadamia", "nut", "praline")},
	{CategorySeafood, newKeywordSet("shrimp", "prawn", "lobster", "crab", "clam", "mussel", "oyster", "scallop", "salmon", "tuna", "cod", "fish", "anchovy", "anchovies", "squid", "calamari", "octopus", "halibut", "trout", "sea bass", "caviar", "sardine", "mackerel", "swordfish", "snapper")},
	{CategoryDairy, newKeywordSet("cheese", "mozzarella", "parmesan", "parmigiano", "pecorino", "cream", "butter", "milk", "yogurt", "ricotta", "feta", "brie", "cheddar", "gorgonzola", "mascarpone", "burrata", "gruyere", "creme fraiche", "ghee")},
	{CategoryProtein, newKeywordSet("chicken", "beef", "pork", "lamb", "veal", "duck", "turkey", "bacon", "ham", "sausage", "steak", "prosciutto", "chorizo", "pancetta", "venison", "brisket", "egg", "tofu", "tempeh", "seitan", "lentil", "chickpea")},
	{CategoryGrain, newKeywordSet("flour", "bread", "pasta", "rice", "noodle", "wheat", "barley", "quinoa", "couscous", "crouton", "tortilla", "oat", "polenta", "dough", "bun", "brioche", "farro", "breadcrumb", "panko")},
	{CategoryFruit, newKeywordSet("lemon", "lime", "orange", "apple", "berry", "berries", "strawberry", "raspberry", "blueberry", "mango", "pineapple", "avocado", "fig", "pear", "grape", "cherry", "peach", "pomegranate", "date")},
	{CategoryVegetable, newKeywordSet("tomato", "tomatoes", "onion", "garlic", "lettuce", "spinach", "kale", "mushroom", "bell pepper", "carrot", "potato", "potatoes", "zucchini", "eggplant", "cucumber", "arugula", "rocket", "broccoli", "cabbage", "celery", "asparagus", "corn", "bean", "pea", "shallot", "leek", "beet", "squash", "romaine", "radish", "artichoke", "olive")},
	{CategorySpice, newKeywordSet("salt", "pepper", "black pepper", "paprika", "cumin", "cinnamon", "chili", "oregano", "thyme", "basil", "rosemary", "parsley", "cilantro", "herb", "nutmeg", "saffron", "ginger", "mint", "dill", "sage", "chive", "vanilla", "turmeric", "curry powder")},
}

var plantProteins = newKeywordSet("tofu", "tempeh", "seitan", "lentil", "chickpea")

// CategorizeIngredient buckets a cleaned ingredient by keyword membership.
func CategorizeIngredient(cleaned string) string {
	f := fold(cleaned)
	for _, c := range ingredientCategories {
		if c.words.in(f) {
			return c.category
		}
	}
	return CategoryOther
}

var (
	garnishWords = newKeywordSet("garnish", "garnished", "sprinkle", "drizzle", "dusting", "dusted", "zest", "microgreens", "to taste", "for dipping", "on the side", "seasoning")
	seasonings   = newKeywordSet("salt", "pepper", "paprika", "cumin", "oregano", "thyme", "parsley", "cilantro", "chives", "dill", "nutmeg", "cinnamon", "sugar", "herbs", "mint", "sage", "rosemary")
)

// IsCore reports whether an ingredient defines the dish. Garnishes and single-word
// seasonings are not core.
func IsCore(cleaned string) bool {
	f := fold(cleaned)
	if garnishWords.in(f) {
		return false
	}
	if len(strings.Fields(f)) == 1 && seasonings.in(f) {
		return false
	}
	return true
}

// AnalyzeIngredients cleans, categorizes and classifies each ingredient. Entries that are
// empty after cleaning are left out; duplicates after cleaning are collapsed.
func AnalyzeIngredients(ingredients []string) []entity.IngredientInfo {
	var out []entity.IngredientInfo
	seen := make(map[string]bool)
	for _, raw := range ingredients {
		cleaned := CleanIngredient(raw)
		if cleaned == "" {
			continue
		}
		key := fold(cleaned)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, entity.IngredientInfo{
			Original: raw,
			Cleaned:  cleaned,
			Category: CategorizeIngredient(cleaned),
			Core:     IsCore(cleaned),
		})
	}
	return out
}

func cleanedNames(infos []entity.IngredientInfo) []string {
	if len(infos) == 0 {
		return nil
	}
	out := make([]string, len(infos))
	for i, in := range infos {
		out[i] = in.Cleaned
	}
	return out
}
