package constants

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCategory is used for items whose source carried no usable category.
const DefaultCategory = "Uncategorized"

const (
	CategoryAppetizers  = "Appetizers"
	CategoryMainCourses = "Main Courses"
	CategoryDesserts    = "Desserts"
	CategoryWine        = "Wine"
	CategoryBeverages   = "Beverages"
	CategorySides       = "Sides"
)

var allCategories = []string{
	CategoryAppetizers,
	CategoryMainCourses,
	CategoryDesserts,
	CategorySides,
	CategoryWine,
	CategoryBeverages,
	DefaultCategory,
}

func AsStringSlice() []string {
	out := make([]string, len(allCategories))
	copy(out, allCategories)
	return out
}

var titleCaser = cases.Title(language.English)

// Canonicalize title-cases a category label and folds well known synonyms onto the
// standard menu sections. Unknown labels are kept, title-cased.
func Canonicalize(input string) (string, bool) {
	normalized := strings.Join(strings.Fields(strings.ToLower(input)), " ")
	if normalized == "" {
		return DefaultCategory, false
	}

	synonyms := map[string]string{
		"appetizer":    CategoryAppetizers,
		"appetizers":   CategoryAppetizers,
		"starters":     CategoryAppetizers,
		"starter":      CategoryAppetizers,
		"small plates": CategoryAppetizers,
		"entree":       CategoryMainCourses,
		"entrees":      CategoryMainCourses,
		"entrée":       CategoryMainCourses,
		"entrées":      CategoryMainCourses,
		"mains":        CategoryMainCourses,
		"main":         CategoryMainCourses,
		"main course":  CategoryMainCourses,
		"main courses": CategoryMainCourses,
		"dessert":      CategoryDesserts,
		"desserts":     CategoryDesserts,
		"sweets":       CategoryDesserts,
		"side":         CategorySides,
		"sides":        CategorySides,
		"wine":         CategoryWine,
		"wines":        CategoryWine,
		"wine list":    CategoryWine,
		"drinks":       CategoryBeverages,
		"beverage":     CategoryBeverages,
		"beverages":    CategoryBeverages,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}
	for _, cat := range allCategories {
		if normalized == strings.ToLower(cat) {
			return cat, true
		}
	}
	return titleCaser.String(normalized), false
}

// TitleCase renders s in English title case.
func TitleCase(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}
