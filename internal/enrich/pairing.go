package enrich

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

const (
	// MaxPairings caps the food pairings kept on a wine.
	MaxPairings = 4

	disqualifyPenalty = 5
	nameWeight        = 3
	categoryWeight    = 2
	ingredientWeight  = 1
)

type pairingRule struct {
	match      keywordSet
	disqualify keywordSet
}

var pairingRules = map[string]pairingRule{
	ColorRed: {
		match:      newKeywordSet("steak", "beef", "lamb", "venison", "duck", "burger", "ribs", "short rib", "grilled", "roast", "braised", "brisket", "sausage", "mushroom", "lasagna", "bolognese", "ragu", "veal", "pork belly", "filet", "tenderloin"),
		disqualify: newKeywordSet("oyster", "ceviche", "sushi", "sashimi", "crudo", "dessert", "desserts"),
	},
	ColorWhite: {
		match:      newKeywordSet("fish", "salmon", "cod", "halibut", "shrimp", "prawn", "scallop", "lobster", "crab", "clam", "mussel", "oyster", "chicken", "turkey", "poultry", "salad", "risotto", "sole", "trout", "sea bass", "chowder", "goat cheese", "cream"),
		disqualify: newKeywordSet("steak", "beef", "venison", "bbq", "barbecue", "chocolate", "desserts"),
	},
	ColorRose: {
		match:      newKeywordSet("salad", "salmon", "tuna", "charcuterie", "prosciutto", "pizza", "tapas", "grilled vegetables", "chicken", "mezze", "niçoise"),
		disqualify: newKeywordSet("steak", "chocolate", "desserts"),
	},
	ColorSparkling: {
		match:      newKeywordSet("appetizers", "appetizer", "starter", "oyster", "caviar", "canape", "fried", "tempura", "calamari", "crudo", "sushi", "bruschetta", "fries", "chips", "popcorn", "light", "cheese"),
		disqualify: newKeywordSet("steak", "braised", "bbq", "chocolate"),
	},
	ColorDessert: {
		match:      newKeywordSet("desserts", "dessert", "cake", "chocolate", "tart", "blue cheese", "foie gras", "creme brulee", "fruit", "pie", "tiramisu", "cheesecake"),
		disqualify: newKeywordSet("salad", "oyster", "fries"),
	},
}

// ScorePairings scores each food candidate for a wine of the given color. Only candidates
// with a positive score are returned, best first; ties keep document order.
func ScorePairings(color string, foods []entity.MenuItem) []entity.PairingScore {
	rule, ok := pairingRules[color]
	if !ok {
		return nil
	}
	var out []entity.PairingScore
	seen := make(map[string]bool)
	for _, f := range foods {
		name := fold(f.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cat := fold(f.Category)
		ings := fold(strings.Join(f.Ingredients, ", "))

		score := rule.match.count(name)*nameWeight +
			rule.match.count(cat)*categoryWeight +
			rule.match.count(ings)*ingredientWeight
		if rule.disqualify.in(name) || rule.disqualify.in(cat) || rule.disqualify.in(ings) {
			score -= disqualifyPenalty
		}
		if score > 0 {
			out = append(out, entity.PairingScore{Dish: f.Name, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// MergePairings keeps the existing pairings and appends the best scored dishes not already
// listed, up to MaxPairings.
func MergePairings(existing []string, scored []entity.PairingScore) []string {
	var out []string
	for _, p := range existing {
		if len(out) == MaxPairings {
			return out
		}
		if p = strings.TrimSpace(p); p != "" && !containsFold(out, p) {
			out = append(out, p)
		}
	}
	for _, s := range scored {
		if len(out) == MaxPairings {
			break
		}
		if !containsFold(out, s.Dish) {
			out = append(out, s.Dish)
		}
	}
	return out
}
