package mapper

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reCurrencyCodes = regexp.MustCompile(`(?i)\b(usd|eur|gbp|cad|aud|inr)\b`)
	reNumberToken   = regexp.MustCompile(`\d[\d.,]*`)
	reThousandComma = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	reThousandDot   = regexp.MustCompile(`^\d{1,3}(\.\d{3}){2,}$`)
	reYear          = regexp.MustCompile(`\b(1[0-9]{3}|2[0-9]{3}|3[0-9]{3})\b`)
	reShortVintage  = regexp.MustCompile(`^'(\d{2})$`)
	reListSplit     = regexp.MustCompile(`[,;|\n]`)
)

const currencySymbols = "$€£¥₹"

// RoundPrice rounds to cents.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParsePrice normalizes a price value. Currency symbols and codes, thousands
// separators and decimal commas are handled; the sign is kept. Anything that does not
// contain a number resolves to nil.
func ParsePrice(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		p := RoundPrice(t)
		return &p
	case float32:
		return ParsePrice(float64(t))
	case int:
		return ParsePrice(float64(t))
	case int64:
		return ParsePrice(float64(t))
	case *float64:
		if t == nil {
			return nil
		}
		return ParsePrice(*t)
	}

	s := strings.TrimSpace(ToString(v))
	if s == "" {
		return nil
	}
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = reCurrencyCodes.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	loc := reNumberToken.FindStringIndex(s)
	if loc == nil {
		return nil
	}
	if prefix := strings.TrimSpace(s[:loc[0]]); strings.HasSuffix(prefix, "-") {
		negative = true
	}
	num := strings.TrimRight(s[loc[0]:loc[1]], ".,")
	num = normalizeSeparators(num)

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	if negative {
		f = -f
	}
	f = RoundPrice(f)
	return &f
}

func normalizeSeparators(num string) string {
	hasComma := strings.Contains(num, ",")
	hasDot := strings.Contains(num, ".")
	switch {
	case hasComma && hasDot:
		// the later separator is the decimal point
		if strings.LastIndex(num, ",") > strings.LastIndex(num, ".") {
			num = strings.ReplaceAll(num, ".", "")
			return strings.Replace(num, ",", ".", 1)
		}
		return strings.ReplaceAll(num, ",", "")
	case hasComma:
		if reThousandComma.MatchString(num) {
			return strings.ReplaceAll(num, ",", "")
		}
		if strings.Count(num, ",") == 1 {
			return strings.Replace(num, ",", ".", 1)
		}
		return strings.ReplaceAll(num, ",", "")
	case hasDot:
		if reThousandDot.MatchString(num) {
			return strings.ReplaceAll(num, ".", "")
		}
		if i := strings.Index(num, "."); i != strings.LastIndex(num, ".") {
			// 1.234.5 style noise: keep the last dot only
			last := strings.LastIndex(num, ".")
			return strings.ReplaceAll(num[:last], ".", "") + num[last:]
		}
	}
	return num
}

// FormatPrice renders a price the way previews display it.
func FormatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	v := RoundPrice(*p)
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

// ParseBool accepts true/yes/1/y/on and false/no/0/n/off; anything else is unset.
func ParseBool(v any) *bool {
	yes, no := true, false
	switch t := v.(type) {
	case bool:
		return &t
	case float64:
		switch t {
		case 1:
			return &yes
		case 0:
			return &no
		}
		return nil
	case int:
		return ParseBool(float64(t))
	}
	switch strings.ToLower(strings.TrimSpace(ToString(v))) {
	case "true", "yes", "1", "y", "on":
		return &yes
	case "false", "no", "0", "n", "off":
		return &no
	}
	return nil
}

// ParseList splits comma, semicolon or pipe delimited strings and flattens native arrays.
func ParseList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		parts = t
	case []any:
		for _, e := range t {
			parts = append(parts, ParseList(e)...)
		}
	default:
		parts = reListSplit.Split(ToString(v), -1)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseVintage finds a four digit year. "NV" and anything without a year is nil.
// Two digit forms like '15 are expanded against the current century.
func ParseVintage(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		y := int(t)
		if float64(y) != t || y <= 0 {
			return nil
		}
		return &y
	case int:
		if t <= 0 {
			return nil
		}
		return &t
	}
	s := strings.TrimSpace(ToString(v))
	if m := reShortVintage.FindStringSubmatch(s); m != nil {
		yy, _ := strconv.Atoi(m[1])
		y := 2000 + yy
		if y > time.Now().Year()+5 {
			y -= 100
		}
		return &y
	}
	m := reYear.FindString(s)
	if m == "" {
		return nil
	}
	y, _ := strconv.Atoi(m)
	return &y
}

// ToString renders scalar source values as text.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
