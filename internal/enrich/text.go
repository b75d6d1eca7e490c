package enrich

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lower-cases s and strips diacritics so "Crème Brûlée" matches "creme brulee".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// keywordSet matches whole words (with an optional plural suffix) against folded text.
type keywordSet struct {
	words []string
	res   []*regexp.Regexp
}

func newKeywordSet(words ...string) keywordSet {
	folded := make([]string, 0, len(words))
	for _, w := range words {
		folded = append(folded, fold(w))
	}
	// longest first so "olive oil" wins over "oil"
	sort.SliceStable(folded, func(i, j int) bool { return len(folded[i]) > len(folded[j]) })
	k := keywordSet{words: folded, res: make([]*regexp.Regexp, len(folded))}
	for i, w := range folded {
		k.res[i] = regexp.MustCompile(`(?:^|[^\p{L}])` + regexp.QuoteMeta(w) + `(?:e?s)?(?:[^\p{L}]|$)`)
	}
	return k
}

// find returns the longest keyword present in the folded text, or "".
func (k keywordSet) find(folded string) string {
	for i, re := range k.res {
		if strings.Contains(folded, k.words[i]) && re.MatchString(folded) {
			return k.words[i]
		}
	}
	return ""
}

func (k keywordSet) in(folded string) bool {
	return k.find(folded) != ""
}

// count returns how many distinct keywords occur in the folded text.
func (k keywordSet) count(folded string) int {
	n := 0
	for i, re := range k.res {
		if strings.Contains(folded, k.words[i]) && re.MatchString(folded) {
			n++
		}
	}
	return n
}
