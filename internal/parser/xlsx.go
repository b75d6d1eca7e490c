package parser

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/mapper"
)

// MaxReasonablePrice is the ceiling above which spreadsheet prices are flagged as likely data-entry errors.
const MaxReasonablePrice = 10000.0

var reDefaultSheet = regexp.MustCompile(`(?i)^sheet\s*\d*$`)

type XLSXParser struct {
	logger *slog.Logger
}

func NewXLSXParser(logger *slog.Logger) *XLSXParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXParser{logger: logger}
}

func (p *XLSXParser) Format() constants.SourceFormat { return constants.FormatXLSX }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			p.logger.Warn("xlsx close error", "path", path, "error", err)
		}
	}()

	res := newResult(constants.FormatXLSX)
	sheets := f.GetSheetList()
	res.Metadata["sheets"] = sheets
	if len(sheets) == 1 && !reDefaultSheet.MatchString(sheets[0]) {
		res.MenuName = strings.TrimSpace(sheets[0])
	}

	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		prefix := ""
		if len(sheets) > 1 {
			prefix = fmt.Sprintf("sheet %s ", sheet)
		}

		var headers []string
		var mapping mapper.Mapping
		for i, row := range rows {
			if isBlank(row) {
				continue
			}
			rowNum := i + 1
			if headers == nil {
				headers = row
				mapping = mapper.MapHeaders(headers)
				res.noteUnmapped(mapping.Unmapped)
				if !mapping.HasName() {
					res.warnf("%sno item name column, sheet skipped", prefix)
					break
				}
				continue
			}
			pairs := mapper.Pairs(headers, row)
			if !mapping.Has(mapper.FieldCategory) && !reDefaultSheet.MatchString(sheet) {
				pairs = append(pairs, mapper.Pair{Key: "category", Value: sheet})
			}
			start := len(res.Records)
			if _, ok := res.add(fmt.Sprintf("%srow %d", prefix, rowNum), rowNum, pairs); ok {
				clampPrice(res, &res.Records[start], prefix+fmt.Sprintf("row %d", rowNum))
				checkWineConsistency(res, &res.Records[start], prefix+fmt.Sprintf("row %d", rowNum))
			}
		}
	}

	p.logger.Debug("xlsx.parsed", "path", path, "sheets", len(sheets), "records", len(res.Records))
	return res, nil
}

// clampPrice makes negative prices positive and flags absurd ones for review.
func clampPrice(res *Result, rec *entity.Record, pos string) {
	p := rec.Item.Price
	if p == nil {
		return
	}
	if *p < 0 {
		v := math.Abs(*p)
		rec.Item.Price = &v
		res.warnf("%s: negative price %.2f made positive", pos, *p)
		p = rec.Item.Price
	}
	if *p > MaxReasonablePrice {
		res.warnf("%s: price %.2f exceeds %.0f, kept for review", pos, *p, MaxReasonablePrice)
	}
}

// checkWineConsistency fills a default style on wine rows and flags wine columns on other rows.
func checkWineConsistency(res *Result, rec *entity.Record, pos string) {
	item := &rec.Item
	if item.IsWine() {
		if item.Wine == nil {
			item.Wine = &entity.WineDetails{}
		}
		if item.Wine.Style == "" {
			item.Wine.Style = constants.WineStill
			res.warnf("%s: wine %q has no style, assuming still", pos, item.Name)
		}
		return
	}
	if item.Wine != nil && mapper.HasWineAttributes(*item.Wine) {
		res.warnf("%s: %q has wine attributes but is marked %s", pos, item.Name, item.Kind)
	}
}
