package enrich

import (
	"strings"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

// Wine colors used for pairing.
const (
	ColorRed       = "red"
	ColorWhite     = "white"
	ColorRose      = "rose"
	ColorSparkling = "sparkling"
	ColorDessert   = "dessert"
)

type variety struct {
	name  string
	color string
}

var varieties = []variety{
	{"Cabernet Sauvignon", ColorRed},
	{"Cabernet Franc", ColorRed},
	{"Pinot Noir", ColorRed},
	{"Pinot Meunier", ColorRed},
	{"Merlot", ColorRed},
	{"Syrah", ColorRed},
	{"Shiraz", ColorRed},
	{"Grenache", ColorRed},
	{"Garnacha", ColorRed},
	{"Tempranillo", ColorRed},
	{"Nebbiolo", ColorRed},
	{"Sangiovese", ColorRed},
	{"Malbec", ColorRed},
	{"Zinfandel", ColorRed},
	{"Primitivo", ColorRed},
	{"Gamay", ColorRed},
	{"Barbera", ColorRed},
	{"Mourvèdre", ColorRed},
	{"Carmenère", ColorRed},
	{"Petit Verdot", ColorRed},
	{"Petite Sirah", ColorRed},
	{"Corvina", ColorRed},
	{"Pinotage", ColorRed},
	{"Chardonnay", ColorWhite},
	{"Sauvignon Blanc", ColorWhite},
	{"Pinot Grigio", ColorWhite},
	{"Pinot Gris", ColorWhite},
	{"Pinot Blanc", ColorWhite},
	{"Riesling", ColorWhite},
	{"Gewürztraminer", ColorWhite},
	{"Viognier", ColorWhite},
	{"Chenin Blanc", ColorWhite},
	{"Albariño", ColorWhite},
	{"Grüner Veltliner", ColorWhite},
	{"Sémillon", ColorWhite},
	{"Moscato", ColorWhite},
	{"Muscat", ColorWhite},
	{"Torrontés", ColorWhite},
	{"Verdejo", ColorWhite},
	{"Vermentino", ColorWhite},
	{"Glera", ColorWhite},
	{"Marsanne", ColorWhite},
	{"Roussanne", ColorWhite},
}

type varietyMatcher struct {
	variety
	words keywordSet
}

var (
	varietyMatchers = func() []varietyMatcher {
		out := make([]varietyMatcher, len(varieties))
		for i, v := range varieties {
			out[i] = varietyMatcher{variety: v, words: newKeywordSet(v.name)}
		}
		return out
	}()
	varietyColor = func() map[string]string {
		m := make(map[string]string, len(varieties))
		for _, v := range varieties {
			m[fold(v.name)] = v.color
		}
		return m
	}()
)

type appellation struct {
	words  keywordSet
	grapes []string
}

func newAppellation(grapes []string, names ...string) appellation {
	return appellation{words: newKeywordSet(names...), grapes: grapes}
}

// nameAppellations are appellations whose name alone determines the variety.
var nameAppellations = []appellation{
	newAppellation([]string{"Chardonnay"}, "chablis", "meursault", "puligny-montrachet", "chassagne-montrachet", "pouilly-fuisse", "montrachet", "macon"),
	newAppellation([]string{"Sauvignon Blanc"}, "sancerre", "pouilly-fume"),
	newAppellation([]string{"Nebbiolo"}, "barolo", "barbaresco"),
	newAppellation([]string{"Tempranillo"}, "rioja", "ribera del duero"),
	newAppellation([]string{"Sangiovese"}, "chianti", "brunello", "vino nobile"),
	newAppellation([]string{"Glera"}, "prosecco"),
	newAppellation([]string{"Gamay"}, "beaujolais", "morgon", "fleurie"),
	newAppellation([]string{"Chenin Blanc"}, "vouvray", "savennieres"),
	newAppellation([]string{"Syrah"}, "hermitage", "cote-rotie", "cornas"),
	newAppellation([]string{"Grenache", "Syrah", "Mourvèdre"}, "chateauneuf-du-pape", "gigondas"),
	newAppellation([]string{"Corvina"}, "amarone", "valpolicella"),
	newAppellation([]string{"Sémillon", "Sauvignon Blanc"}, "sauternes"),
}

// regionGrapes maps wine regions to their canonical varieties.
var regionGrapes = []appellation{
	newAppellation([]string{"Chardonnay", "Pinot Noir", "Pinot Meunier"}, "champagne"),
	newAppellation([]string{"Chardonnay", "Pinot Noir"}, "burgundy", "bourgogne", "cote d'or", "cote de beaune", "cote de nuits"),
	newAppellation([]string{"Cabernet Sauvignon", "Merlot"}, "bordeaux", "medoc", "pauillac", "margaux", "saint-emilion", "pomerol"),
	newAppellation([]string{"Tempranillo"}, "rioja"),
	newAppellation([]string{"Nebbiolo"}, "barolo"),
	newAppellation([]string{"Cabernet Sauvignon"}, "napa", "napa valley"),
	newAppellation([]string{"Pinot Noir"}, "willamette", "central otago", "sonoma coast"),
	newAppellation([]string{"Syrah", "Grenache"}, "rhone", "cotes du rhone"),
	newAppellation([]string{"Sauvignon Blanc", "Chenin Blanc"}, "loire"),
	newAppellation([]string{"Riesling"}, "mosel", "rheingau"),
	newAppellation([]string{"Riesling", "Gewürztraminer"}, "alsace"),
	newAppellation([]string{"Sauvignon Blanc"}, "marlborough"),
	newAppellation([]string{"Malbec"}, "mendoza", "cahors"),
	newAppellation([]string{"Sangiovese"}, "tuscany", "toscana"),
	newAppellation([]string{"Nebbiolo", "Barbera"}, "piedmont", "piemonte"),
	newAppellation([]string{"Shiraz"}, "barossa"),
}

// ResolveGrapes determines a wine's grape varieties and the confidence of the answer:
// source-listed or explicitly named varieties are confirmed, name appellations inferred and
// regional defaults likely.
func ResolveGrapes(item entity.MenuItem) ([]string, string) {
	if item.Wine == nil {
		return nil, ""
	}
	if len(item.Wine.Grapes) > 0 {
		return append([]string(nil), item.Wine.Grapes...), entity.ConfidenceConfirmed
	}

	name := fold(item.Name)
	region := fold(item.Wine.Region)
	producer := fold(item.Wine.Producer)

	var explicit []string
	for _, m := range varietyMatchers {
		if m.words.in(name) || m.words.in(region) || m.words.in(producer) {
			explicit = append(explicit, m.name)
		}
	}
	if len(explicit) > 0 {
		return explicit, entity.ConfidenceConfirmed
	}

	for _, text := range []string{name, region} {
		for _, a := range nameAppellations {
			if a.words.in(text) {
				return append([]string(nil), a.grapes...), entity.ConfidenceInferred
			}
		}
	}
	for _, text := range []string{region, producer, name} {
		for _, a := range regionGrapes {
			if a.words.in(text) {
				return append([]string(nil), a.grapes...), entity.ConfidenceLikely
			}
		}
	}
	return nil, ""
}

var (
	champagneWords = newKeywordSet("champagne")
	sparklingWords = newKeywordSet("sparkling", "prosecco", "cava", "cremant", "spumante", "franciacorta", "sekt", "brut", "pet-nat", "lambrusco", "moscato d'asti", "asti")
	fortifiedWords = newKeywordSet("port", "porto", "sherry", "madeira", "marsala", "vermouth", "tawny", "oloroso", "fino", "amontillado")
	dessertWords   = newKeywordSet("sauternes", "tokaji", "ice wine", "icewine", "late harvest", "vin santo", "passito", "beerenauslese", "trockenbeerenauslese", "dessert wine")
	roseWords      = newKeywordSet("rose", "rosado", "rosato", "blush")
	redWords       = newKeywordSet("red", "rouge", "rosso", "tinto")
	whiteWords     = newKeywordSet("white", "blanc", "bianco", "blanco")
)

// InferStyle guesses the wine style from the name and region.
func InferStyle(item entity.MenuItem) constants.WineStyle {
	text := fold(item.Name)
	if item.Wine != nil {
		text += " | " + fold(item.Wine.Region)
	}
	switch {
	case champagneWords.in(text):
		return constants.WineChampagne
	case sparklingWords.in(text):
		return constants.WineSparkling
	case fortifiedWords.in(text):
		return constants.WineFortified
	case dessertWords.in(text):
		return constants.WineDessert
	}
	return constants.WineStill
}

// WineColor derives the pairing color from style, name and grapes. An empty result means
// the color could not be determined.
func WineColor(item entity.MenuItem, grapes []string) string {
	if item.Wine != nil {
		switch item.Wine.Style {
		case constants.WineChampagne, constants.WineSparkling:
			return ColorSparkling
		case constants.WineDessert, constants.WineFortified:
			return ColorDessert
		}
	}
	name := fold(item.Name)
	if roseWords.in(name) {
		return ColorRose
	}
	red, white := 0, 0
	for _, g := range grapes {
		switch varietyColor[fold(g)] {
		case ColorRed:
			red++
		case ColorWhite:
			white++
		}
	}
	switch {
	case red > white:
		return ColorRed
	case white > red:
		return ColorWhite
	}
	text := name + " " + fold(item.Category)
	switch {
	case redWords.in(text):
		return ColorRed
	case whiteWords.in(text):
		return ColorWhite
	}
	return ""
}

func containsFold(list []string, s string) bool {
	f := fold(strings.TrimSpace(s))
	for _, l := range list {
		if fold(strings.TrimSpace(l)) == f {
			return true
		}
	}
	return false
}
