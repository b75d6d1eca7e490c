package enrich

import (
	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

var (
	meatWords    = newKeywordSet("chicken", "beef", "pork", "lamb", "veal", "duck", "turkey", "bacon", "ham", "sausage", "steak", "prosciutto", "chorizo", "pancetta", "venison", "brisket", "meatball", "burger", "ribs", "salami", "pepperoni", "foie gras", "gelatin")
	animalOthers = newKeywordSet("honey", "egg", "anchovy", "fish sauce", "gelatin")
)

// InferDietary derives dietary flags from the analyzed ingredients, the item name and the
// allergen findings. Nothing is inferred for items without ingredients.
func InferDietary(name string, infos []entity.IngredientInfo, findings []entity.AllergenFinding) entity.Dietary {
	if len(infos) == 0 {
		return entity.Dietary{}
	}
	folded := []string{fold(name)}
	meat, seafood, animalProtein := false, false, false
	for _, in := range infos {
		f := fold(in.Cleaned)
		folded = append(folded, f)
		switch in.Category {
		case CategorySeafood:
			seafood = true
		case CategoryProtein:
			if !plantProteins.in(f) {
				animalProtein = true
			}
		}
	}
	for _, f := range folded {
		if meatWords.in(f) {
			meat = true
		}
		if animalOthers.in(f) {
			animalProtein = true
		}
	}
	if hasDefinite(findings, constants.AllergenSeafood) {
		seafood = true
	}

	vegan := !hasDefinite(findings, constants.AllergenDairy) &&
		!hasDefinite(findings, constants.AllergenEggs) &&
		!meat && !seafood && !animalProtein
	return entity.Dietary{
		Vegan:      vegan,
		Vegetarian: vegan || (!meat && !seafood),
		GlutenFree: !hasDefinite(findings, constants.AllergenGluten),
		DairyFree:  !hasDefinite(findings, constants.AllergenDairy),
	}
}

// MergeDietary ORs source flags with inferred ones; a source true is never cleared.
func MergeDietary(source, inferred entity.Dietary) entity.Dietary {
	return entity.Dietary{
		Vegan:      source.Vegan || inferred.Vegan,
		Vegetarian: source.Vegetarian || inferred.Vegetarian,
		GlutenFree: source.GlutenFree || inferred.GlutenFree,
		DairyFree:  source.DairyFree || inferred.DairyFree,
	}
}

func allergenFound(findings []entity.AllergenFinding, a constants.Allergen, confidence string) bool {
	for _, f := range findings {
		if f.Allergen == a && f.Confidence == confidence {
			return true
		}
	}
	return false
}
