package constants

// ItemKind separates food, non-wine drinks and wine.
type ItemKind string

const (
	KindFood     ItemKind = "food"
	KindBeverage ItemKind = "beverage"
	KindWine     ItemKind = "wine"
)

func (k ItemKind) Valid() bool {
	return k == KindFood || k == KindBeverage || k == KindWine
}

type WineStyle string

const (
	WineStill     WineStyle = "still"
	WineSparkling WineStyle = "sparkling"
	WineChampagne WineStyle = "champagne"
	WineDessert   WineStyle = "dessert"
	WineFortified WineStyle = "fortified"
	WineOther     WineStyle = "other"
)

func (s WineStyle) Valid() bool {
	switch s {
	case WineStill, WineSparkling, WineChampagne, WineDessert, WineFortified, WineOther:
		return true
	}
	return false
}

type Allergen string

const (
	AllergenDairy   Allergen = "dairy"
	AllergenGluten  Allergen = "gluten"
	AllergenNuts    Allergen = "nuts"
	AllergenSeafood Allergen = "seafood"
	AllergenEggs    Allergen = "eggs"
	AllergenSoy     Allergen = "soy"
	AllergenSesame  Allergen = "sesame"
)

// Allergens is the fixed allergen vocabulary in display order.
var Allergens = []Allergen{
	AllergenDairy,
	AllergenGluten,
	AllergenNuts,
	AllergenSeafood,
	AllergenEggs,
	AllergenSoy,
	AllergenSesame,
}

// ParseAllergen maps free-form allergen labels onto the vocabulary.
func ParseAllergen(s string) (Allergen, bool) {
	switch s {
	case "dairy", "milk", "lactose", "cheese":
		return AllergenDairy, true
	case "gluten", "wheat":
		return AllergenGluten, true
	case "nuts", "nut", "tree nuts", "tree nut", "peanut", "peanuts":
		return AllergenNuts, true
	case "seafood", "fish", "shellfish", "crustacean", "crustaceans":
		return AllergenSeafood, true
	case "eggs", "egg":
		return AllergenEggs, true
	case "soy", "soya", "soybean":
		return AllergenSoy, true
	case "sesame":
		return AllergenSesame, true
	}
	return "", false
}
