package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrUnrecoverable is returned when no recovery step yields a JSON document.
var ErrUnrecoverable = errors.New("no JSON document could be recovered from the response")

var (
	reWhitespace    = regexp.MustCompile(`\s+`)
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
	reBareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	reSingleQuoted  = regexp.MustCompile(`([\[{,:]\s*)'((?:[^'\\]|\\.)*)'(\s*[,}\]:])`)
	reFence         = regexp.MustCompile("(?s)```[A-Za-z]*\\s*(.*?)```")
)

// Repair fixes the usual ways a model breaks JSON: newlines inside values, single quotes,
// bare keys and trailing commas.
func Repair(s string) string {
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
	for i := 0; i < 8; i++ {
		next := reSingleQuoted.ReplaceAllStringFunc(s, func(m string) string {
			sub := reSingleQuoted.FindStringSubmatch(m)
			inner := strings.ReplaceAll(sub[2], `\'`, `'`)
			inner = strings.ReplaceAll(inner, `"`, `\"`)
			return sub[1] + `"` + inner + `"` + sub[3]
		})
		if next == s {
			break
		}
		s = next
	}
	s = reBareKey.ReplaceAllString(s, `$1"$2":`)
	for i := 0; i < 4; i++ {
		next := reTrailingComma.ReplaceAllString(s, "$1")
		if next == s {
			break
		}
		s = next
	}
	return s
}

// RecoverJSON pulls a JSON document out of free text. Steps run in order: the whole text,
// the first fenced code block, the first balanced {...} object. Each candidate is tried
// as-is and then repaired. The returned step names which one succeeded.
func RecoverJSON(text string) ([]byte, string, error) {
	steps := []struct {
		name    string
		extract func(string) (string, bool)
	}{
		{"direct", func(s string) (string, bool) { return strings.TrimSpace(s), strings.TrimSpace(s) != "" }},
		{"fenced", fencedBlock},
		{"balanced", firstBalancedObject},
	}
	for _, step := range steps {
		candidate, ok := step.extract(text)
		if !ok {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), step.name, nil
		}
		if repaired := Repair(candidate); json.Valid([]byte(repaired)) {
			return []byte(repaired), step.name + "+repair", nil
		}
	}
	return nil, "", ErrUnrecoverable
}

func fencedBlock(s string) (string, bool) {
	m := reFence.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// firstBalancedObject returns the first {...} span whose braces balance, ignoring braces
// inside quoted strings.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
