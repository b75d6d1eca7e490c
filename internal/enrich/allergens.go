package enrich

import (
	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

type allergenTiers struct {
	definite keywordSet
	likely   keywordSet
	possible keywordSet
}

// allergenRules maps each allergen to its keyword tiers. definite names an
// allergen-bearing ingredient, likely a dish strongly associated with it, possible a dish
// that sometimes contains it.
var allergenRules = map[constants.Allergen]allergenTiers{
	constants.AllergenDairy: {
		definite: newKeywordSet("milk", "cheese", "butter", "cream", "yogurt", "yoghurt", "mozzarella", "parmesan", "parmigiano", "pecorino", "ricotta", "feta", "brie", "cheddar", "gorgonzola", "mascarpone", "burrata", "gruyere", "ghee", "whey", "buttermilk", "creme fraiche", "paneer"),
		likely:   newKeywordSet("alfredo", "carbonara", "bechamel", "gratin", "tiramisu", "cheesecake", "risotto", "pizza", "lasagna", "custard", "ice cream", "gelato", "panna cotta", "quiche", "fondue", "chowder", "creamy", "mac and cheese"),
		possible: newKeywordSet("caesar", "pesto", "mashed", "soup", "cake", "curry", "sauce", "gnocchi", "omelette"),
	},
	constants.AllergenGluten: {
		definite: newKeywordSet("wheat", "flour", "bread", "pasta", "noodle", "barley", "rye", "couscous", "crouton", "breadcrumb", "panko", "bun", "pastry", "dough", "semolina", "spelt", "farro", "seitan", "brioche"),
		likely:   newKeywordSet("pizza", "sandwich", "burger", "lasagna", "spaghetti", "linguine", "fettuccine", "penne", "ravioli", "gnocchi", "dumpling", "tempura", "battered", "breaded", "cake", "pie", "tart", "croissant", "waffle", "pancake", "brownie", "cookie", "beer", "bruschetta", "focaccia", "wrap"),
		possible: newKeywordSet("gravy", "sausage", "meatball", "roux", "soy sauce", "teriyaki", "soup", "fried", "caesar"),
	},
	constants.AllergenNuts: {
		definite: newKeywordSet("almond", "walnut", "pecan", "cashew", "pistachio", "hazelnut", "peanut", "pine nut", "macadamia", "nut", "praline", "marzipan", "nutella"),
		likely:   newKeywordSet("pesto", "satay", "baklava", "romesco", "frangipane", "pad thai"),
		possible: newKeywordSet("granola", "mole", "korma", "brittle", "biscotti", "salad"),
	},
	constants.AllergenSeafood: {
		definite: newKeywordSet("shrimp", "prawn", "lobster", "crab", "clam", "mussel", "oyster", "scallop", "salmon", "tuna", "cod", "fish", "anchovy", "anchovies", "squid", "calamari", "octopus", "halibut", "trout", "sea bass", "caviar", "sardine", "mackerel", "swordfish", "snapper"),
		likely:   newKeywordSet("paella", "bouillabaisse", "cioppino", "sushi", "sashimi", "ceviche", "chowder", "scampi", "bisque", "fish sauce", "poke"),
		possible: newKeywordSet("caesar", "worcestershire", "pad thai", "fried rice", "gumbo", "tom yum", "puttanesca"),
	},
	constants.AllergenEggs: {
		definite: newKeywordSet("egg", "yolk", "mayonnaise", "mayo", "meringue", "aioli"),
		likely:   newKeywordSet("carbonara", "hollandaise", "benedict", "custard", "quiche", "frittata", "omelette", "souffle", "tiramisu", "brioche", "creme brulee"),
		possible: newKeywordSet("cake", "pancake", "waffle", "caesar", "meatball", "fried rice", "tempura", "noodle", "pasta"),
	},
	constants.AllergenSoy: {
		definite: newKeywordSet("soy", "soya", "tofu", "tempeh", "edamame", "miso", "soy sauce", "tamari"),
		likely:   newKeywordSet("teriyaki", "stir fry", "stir-fry", "hoisin"),
		possible: newKeywordSet("dumpling", "ramen", "fried rice", "noodle", "vegan burger"),
	},
	constants.AllergenSesame: {
		definite: newKeywordSet("sesame", "tahini"),
		likely:   newKeywordSet("hummus", "halva", "za'atar", "baba ganoush"),
		possible: newKeywordSet("bagel", "bun", "sushi", "poke", "stir fry"),
	},
}

// DetectAllergens scans the item name and ingredient text for every allergen and keeps
// the highest-confidence tier found per allergen, in vocabulary order.
func DetectAllergens(name string, ingredients []string) []entity.AllergenFinding {
	texts := make([]string, 0, len(ingredients)+1)
	texts = append(texts, fold(name))
	for _, ing := range ingredients {
		texts = append(texts, fold(ing))
	}

	var out []entity.AllergenFinding
	for _, a := range constants.Allergens {
		rule := allergenRules[a]
		tiers := []struct {
			confidence string
			words      keywordSet
		}{
			{entity.ConfidenceDefinite, rule.definite},
			{entity.ConfidenceLikely, rule.likely},
			{entity.ConfidencePossible, rule.possible},
		}
	tierLoop:
		for _, tier := range tiers {
			for _, t := range texts {
				if kw := tier.words.find(t); kw != "" {
					out = append(out, entity.AllergenFinding{Allergen: a, Confidence: tier.confidence, Trigger: kw})
					break tierLoop
				}
			}
		}
	}
	return out
}

// TaggedAllergens returns the allergens strong enough to tag on the item.
func TaggedAllergens(findings []entity.AllergenFinding) []constants.Allergen {
	var out []constants.Allergen
	for _, f := range findings {
		if f.Confidence == entity.ConfidenceDefinite || f.Confidence == entity.ConfidenceLikely {
			out = append(out, f.Allergen)
		}
	}
	return out
}

func hasDefinite(findings []entity.AllergenFinding, a constants.Allergen) bool {
	return allergenFound(findings, a, entity.ConfidenceDefinite)
}

// mergeAllergens appends detected allergens not already present in the source list.
func mergeAllergens(source, detected []constants.Allergen) []constants.Allergen {
	out := append([]constants.Allergen(nil), source...)
	for _, d := range detected {
		found := false
		for _, s := range out {
			if s == d {
				found = true
				break
			}
		}
		if !found {
			out = append(out, d)
		}
	}
	return out
}
