package textextract

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// \b only sees ASCII word characters, so rosé gets an explicit letter boundary.
var reWineVocabulary = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])ros[ée](?:$|[^\p{L}\p{N}_])|\b(wines?|vintage|cabernet|merlot|pinot|chardonnay|sauvignon|riesling|syrah|shiraz|malbec|tempranillo|nebbiolo|sangiovese|zinfandel|grenache|prosecco|champagne|cava|brut|sommelier|appellation|ao[cp]|docg?|ava|varietal|by the glass|bottle)\b`)

// IsWineDocument reports whether a document should get wine-specific handling.
func IsWineDocument(fileName, text string) bool {
	if strings.Contains(strings.ToLower(filepath.Base(fileName)), "wine") {
		return true
	}
	return reWineVocabulary.MatchString(text)
}

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

var reShortVintage = regexp.MustCompile(`(^|[\s(])['’]([0-9]{2})\b`)

var winePreprocess = []rewrite{
	// vintage notation
	{regexp.MustCompile(`(?i)\bvintage\s*[:\-]\s*((?:19|20)\d{2})\b`), "Vintage $1"},
	// serving sizes
	{regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s+(ml|cl|l|oz)\b`), "$1$2"},
	{regexp.MustCompile(`(?i)\b(gls|glass)\b\.?`), "Glass"},
	{regexp.MustCompile(`(?i)\b(btl|bottle)\b\.?`), "Bottle"},
	{regexp.MustCompile(`(?i)\bcarafe\b`), "Carafe"},
	// appellations and common abbreviations
	{regexp.MustCompile(`\bA\.?O\.?C\.?(\s|$)`), "AOC$1"},
	{regexp.MustCompile(`\bD\.?O\.?C\.?G\.?(\s|$)`), "DOCG$1"},
	{regexp.MustCompile(`\bD\.?O\.?C\.?(\s|$)`), "DOC$1"},
	{regexp.MustCompile(`\bA\.?V\.?A\.?(\s|$)`), "AVA$1"},
	{regexp.MustCompile(`(?i)\bcab\.?\s+sauv\b\.?`), "Cabernet Sauvignon"},
	{regexp.MustCompile(`(?i)\bsauv\.?\s+blanc\b`), "Sauvignon Blanc"},
	{regexp.MustCompile(`(?i)\bpinot\s+grigio\b`), "Pinot Grigio"},
	// quotes and dashes
	{regexp.MustCompile(`[‘’‚‛]`), "'"},
	{regexp.MustCompile(`[“”„‟]`), `"`},
	{regexp.MustCompile(`[–—]`), "-"},
	// price spacing
	{regexp.MustCompile(`([$€£])\s+(\d)`), "$1$2"},
}

// PreprocessWine normalizes notation that wine lists write inconsistently.
func PreprocessWine(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = reShortVintage.ReplaceAllStringFunc(line, expandVintage)
		for _, rw := range winePreprocess {
			line = rw.re.ReplaceAllString(line, rw.repl)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// expandVintage turns '15 into 2015 and '98 into 1998.
func expandVintage(m string) string {
	sub := reShortVintage.FindStringSubmatch(m)
	yy, _ := strconv.Atoi(sub[2])
	y := 2000 + yy
	if y > time.Now().Year()+5 {
		y -= 100
	}
	return sub[1] + strconv.Itoa(y)
}
