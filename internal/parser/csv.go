package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/mapper"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// mojibake maps UTF-8 text that was once decoded as Windows-1252 back to what was meant.
var mojibake = strings.NewReplacer(
	"â€™", "’",
	"â€˜", "‘",
	"â€œ", "“",
	"â€\u009d", "”",
	"â€”", "—",
	"â€“", "–",
	"â€¦", "…",
	"Ã©", "é",
	"Ã¨", "è",
	"Ãª", "ê",
	"Ã«", "ë",
	"Ã¢", "â",
	"Ã ", "à",
	"Ã§", "ç",
	"Ã±", "ñ",
	"Ã¼", "ü",
	"Ã¶", "ö",
	"Ã¤", "ä",
	"Ã®", "î",
	"Ã´", "ô",
	"Â\u00a0", " ",
	"Â ", " ",
	"Â°", "°",
	"Â£", "£",
	"Â©", "©",
	"Â®", "®",
	"Â«", "«",
	"Â»", "»",
	"Â·", "·",
	"Â½", "½",
	"Â¼", "¼",
)

var mojibakeMarkers = []string{"â€", "Ã", "Â"}

type CSVParser struct {
	logger *slog.Logger
}

func NewCSVParser(logger *slog.Logger) *CSVParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVParser{logger: logger}
}

func (p *CSVParser) Format() constants.SourceFormat { return constants.FormatCSV }

func (p *CSVParser) Parse(ctx context.Context, path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	res := newResult(constants.FormatCSV)

	raw = bytes.TrimPrefix(raw, utf8BOM)
	res.Metadata["encoding"] = "utf-8"
	if !utf8.Valid(raw) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		raw = decoded
		res.Metadata["encoding"] = "windows-1252"
	}
	text, fixes := FixMojibake(string(raw))
	if fixes > 0 {
		res.Metadata["encodingFixes"] = fixes
	}

	delim := sniffDelimiter(text)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		delim = '\t'
	}
	res.Metadata["delimiter"] = string(delim)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var headers []string
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			res.warnf("row %d: %v", line, err)
			continue
		}
		line, _ = r.FieldPos(0)
		for i := range row {
			row[i] = StripStrayQuotes(row[i])
		}
		if isBlank(row) {
			continue
		}
		if headers == nil {
			headers = row
			m := mapper.MapHeaders(headers)
			res.Metadata["columns"] = headers
			res.noteUnmapped(m.Unmapped)
			if !m.HasName() {
				return nil, fmt.Errorf("%w: csv header has no item name column: %s", ErrNoItems, strings.Join(headers, ", "))
			}
			continue
		}
		if len(row) > len(headers) {
			res.warnf("row %d: %d extra values ignored", line, len(row)-len(headers))
		}
		res.add(fmt.Sprintf("row %d", line), line, mapper.Pairs(headers, row))
	}

	p.logger.Debug("csv.parsed", "path", path, "delimiter", string(delim), "records", len(res.Records))
	return res, nil
}

// FixMojibake repairs common double-encoding byte sequences and reports how many were fixed.
func FixMojibake(s string) (string, int) {
	hasMarker := false
	for _, m := range mojibakeMarkers {
		if strings.Contains(s, m) {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		return s, 0
	}
	fixed := mojibake.Replace(s)
	n := 0
	for _, m := range mojibakeMarkers {
		n += strings.Count(s, m) - strings.Count(fixed, m)
	}
	return fixed, n
}

// StripStrayQuotes removes quoting left behind by sloppy exports.
func StripStrayQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, `""`, `"`)
	if strings.Count(s, `"`) == 1 && (strings.HasPrefix(s, `"`) || strings.HasSuffix(s, `"`)) {
		s = strings.TrimSpace(strings.Trim(s, `"`))
	}
	return s
}

// sniffDelimiter picks the candidate that appears most often outside quotes on the first
// non-empty line.
func sniffDelimiter(text string) rune {
	var first string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			first = l
			break
		}
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		n, inQuote := 0, false
		for _, r := range first {
			switch {
			case r == '"':
				inQuote = !inQuote
			case r == c && !inQuote:
				n++
			}
		}
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
