package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/mapper"
)

const pricePattern = `[$€£]?\s*\d+(?:[.,]\d{1,2})?`

var (
	reSeparatorOnly = regexp.MustCompile(`^[\s=*~_#\-–—•·.]{3,}$`)
	reDecorated     = regexp.MustCompile(`^[=*~_#\-–—•·]{2,}\s*(.+?)\s*[=*~_#\-–—•·]{2,}$`)
	rePriceOnly     = regexp.MustCompile(`^[\s\-–—|.]*` + pricePattern + `\s*$`)
	reHasPrice      = regexp.MustCompile(`[$€£]\s*\d|\d+[.,]\d{2}\b`)

	// item line shapes, tried in order
	itemPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(.+?)\s*\|\s*(` + pricePattern + `)\s*(?:\|\s*(.*))?$`),
		regexp.MustCompile(`^(.+?)\s+[-–—]\s+(` + pricePattern + `)(?:\s+(.*))?$`),
		regexp.MustCompile(`^(.+?)\s*\(\s*(` + pricePattern + `)\s*\)\s*(.*)$`),
		regexp.MustCompile(`^(.+?)\s*\.{2,}\s*(` + pricePattern + `)\s*$`),
		regexp.MustCompile(`^(.+?)\s+([$€£]\s*\d+(?:[.,]\d{1,2})?)(?:\s+(.*))?$`),
	}

	reContinuation = regexp.MustCompile(`(?i)^(ingredients|allergens|producer|winery|vintage|region|appellation|grape variety|grape varieties|grapes|varietal|pairs with|pairings|style)\s*:\s*(.+)$`)
	reTrailingDesc = regexp.MustCompile(`\s*[-–—]?\s*([$€£]\s*\d+(?:[.,]\d{1,2})?|\d+[.,]\d{2})\s*$`)
	reHasLetter    = regexp.MustCompile(`\p{L}`)
)

var sectionKeywords = []string{
	"appetizer", "appetizers", "starter", "starters", "small plates", "entree", "entrees", "entrée", "entrées",
	"main", "mains", "main course", "main courses", "dessert", "desserts", "sides", "salads", "soups",
	"wine", "wines", "wine list", "red wine", "red wines", "white wine", "white wines", "sparkling",
	"beverage", "beverages", "drinks", "cocktails", "beer", "beers",
}

// Segmenter turns the lines of a word-processing or plain-text menu into records.
type Segmenter struct {
	res     *Result
	section string
	current []mapper.Pair
	lineNo  int
	started bool
	ignored int
}

// SegmentLines runs line-oriented item detection over lines and appends to res.
func SegmentLines(res *Result, lines []string) {
	s := &Segmenter{res: res}
	for i, line := range lines {
		s.lineNo = i + 1
		s.feed(strings.TrimSpace(line))
	}
	s.flush()
	if s.ignored > 0 {
		res.Metadata["ignoredLines"] = s.ignored
	}
}

func (s *Segmenter) feed(line string) {
	if line == "" {
		return
	}
	if reSeparatorOnly.MatchString(line) {
		return
	}
	if header, ok := sectionHeader(line); ok {
		s.flush()
		if !s.started && s.res.MenuName == "" && !isSectionKeyword(header) {
			s.res.MenuName = header
		} else {
			s.section = header
		}
		s.started = true
		return
	}
	s.started = true
	if rePriceOnly.MatchString(line) {
		s.flush()
		s.res.Dropped++
		s.res.warnf("line %d: missing item name, row skipped", s.lineNo)
		return
	}
	if name, price, desc, ok := matchItemLine(line); ok {
		s.flush()
		s.current = []mapper.Pair{
			{Key: "name", Value: name},
			{Key: "price", Value: price},
			{Key: "description", Value: desc},
			{Key: "__line", Value: s.lineNo},
		}
		if s.section != "" {
			s.current = append(s.current, mapper.Pair{Key: "category", Value: s.section})
		}
		return
	}
	if m := reContinuation.FindStringSubmatch(line); m != nil && s.current != nil {
		s.current = append(s.current, mapper.Pair{Key: m[1], Value: strings.TrimSpace(m[2])})
		return
	}
	if s.current != nil {
		for i := range s.current {
			if s.current[i].Key == "description" {
				d := mapper.ToString(s.current[i].Value)
				if d != "" {
					d += " "
				}
				s.current[i].Value = d + line
			}
		}
		return
	}
	s.ignored++
}

func (s *Segmenter) flush() {
	if s.current == nil {
		return
	}
	pairs := s.current
	s.current = nil
	line := s.lineNo
	out := pairs[:0:0]
	for _, p := range pairs {
		if p.Key == "__line" {
			line, _ = p.Value.(int)
			continue
		}
		out = append(out, p)
	}
	start := len(s.res.Records)
	if _, ok := s.res.add(fmt.Sprintf("line %d", line), line, out); !ok {
		return
	}
	rec := &s.res.Records[start]
	if rec.Item.Category == constants.DefaultCategory {
		rec.Item.Category = InferCategory(rec.Item.Name)
		if rec.Item.Category == constants.CategoryWine && mapper.ParseKind(rec.Original["kind"]) == "" {
			rec.Item.Kind = constants.KindWine
		}
		if rec.Item.Category == constants.CategoryBeverages && rec.Item.Kind == constants.KindFood {
			rec.Item.Kind = constants.KindBeverage
		}
	}
	if rec.Item.Price == nil {
		if m := reTrailingDesc.FindStringSubmatchIndex(rec.Item.Description); m != nil {
			rec.Item.Price = mapper.ParsePrice(rec.Item.Description[m[2]:m[3]])
			rec.Item.Description = strings.TrimSpace(rec.Item.Description[:m[0]])
		}
	}
	if s.section != "" && mapper.ParseKind(rec.Original["kind"]) == "" {
		switch InferCategory(s.section) {
		case constants.CategoryWine:
			rec.Item.Kind = constants.KindWine
		case constants.CategoryBeverages:
			rec.Item.Kind = constants.KindBeverage
		}
	}
	if rec.Item.IsWine() && rec.Item.Wine == nil {
		rec.Item.Wine = &entity.WineDetails{}
	}
}

func matchItemLine(line string) (name, price, desc string, ok bool) {
	for _, re := range itemPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name = strings.TrimSpace(strings.Trim(m[1], "•·*-– "))
		if !reHasLetter.MatchString(name) {
			continue
		}
		price = strings.TrimSpace(m[2])
		if looksLikeYear(price) {
			continue
		}
		if len(m) > 3 {
			desc = strings.TrimSpace(m[3])
		}
		return name, price, desc, true
	}
	return "", "", "", false
}

func looksLikeYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	y := mapper.ParseVintage(s)
	return y != nil && *y >= 1800 && *y <= 2100
}

func sectionHeader(line string) (string, bool) {
	if m := reDecorated.FindStringSubmatch(line); m != nil && !reHasPrice.MatchString(m[1]) {
		return strings.TrimSpace(m[1]), true
	}
	text := strings.TrimSpace(strings.TrimSuffix(line, ":"))
	if reHasPrice.MatchString(text) || reContinuation.MatchString(line) {
		return "", false
	}
	if isSectionKeyword(text) {
		return text, true
	}
	if isAllCaps(text) && len(strings.Fields(text)) <= 6 {
		return text, true
	}
	return "", false
}

func isSectionKeyword(s string) bool {
	n := strings.ToLower(strings.TrimSpace(s))
	for _, k := range sectionKeywords {
		if n == k {
			return true
		}
	}
	return false
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

var categoryBuckets = []struct {
	category string
	keywords []string
}{
	{constants.CategoryAppetizers, []string{"salad", "soup", "starter", "bruschetta", "calamari", "wings", "dip", "carpaccio", "tartare", "spring roll", "appetizer"}},
	{constants.CategoryMainCourses, []string{"steak", "chicken", "pasta", "burger", "salmon", "risotto", "lamb", "pork", "ribs", "pizza", "duck", "lasagna", "curry", "tenderloin", "filet"}},
	{constants.CategoryDesserts, []string{"cake", "dessert", "tiramisu", "brownie", "pie", "ice cream", "gelato", "sorbet", "mousse", "cheesecake", "panna cotta", "crème brûlée", "creme brulee", "tart"}},
	{constants.CategoryWine, []string{"wine", "wines", "cabernet", "merlot", "chardonnay", "pinot", "sauvignon", "riesling", "syrah", "shiraz", "malbec", "rioja", "chianti", "champagne", "prosecco", "cava", "chablis", "sancerre", "barolo", "bordeaux", "burgundy"}},
	{constants.CategoryBeverages, []string{"beer", "beers", "ale", "lager", "ipa", "cocktail", "cocktails", "martini", "margarita", "mojito", "spritz", "soda", "juice", "lemonade", "coffee", "espresso", "latte", "tea", "drinks", "beverages"}},
}

// InferCategory buckets an item by keywords in its name.
func InferCategory(name string) string {
	n := " " + strings.ToLower(name) + " "
	for _, b := range categoryBuckets {
		for _, k := range b.keywords {
			if containsWord(n, k) {
				return b.category
			}
		}
	}
	return constants.DefaultCategory
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		before, after := rune(' '), rune(' ')
		if start > 0 {
			before = lastRune(haystack[:start])
		}
		if end < len(haystack) {
			after = firstRune(haystack[end:])
		}
		if !unicode.IsLetter(before) && !unicode.IsLetter(after) {
			return true
		}
		idx = start + 1
	}
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}
