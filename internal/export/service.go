package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

const (
	itemsSheet   = "Items"
	summarySheet = "Summary"
)

// Service renders previews as XLSX review sheets.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

var itemHeaders = []string{
	"#",
	"Name",
	"Category",
	"Kind",
	"Price",
	"Description",
	"Ingredients",
	"Allergens",
	"Dietary",
	"Wine Style",
	"Producer / Region",
	"Grapes",
	"Vintage",
	"Food Pairings",
	"Decision",
	"Conflict",
	"Errors",
	"Warnings",
}

// PreviewXLSX returns a workbook with one row per previewed item and a summary sheet.
// Rows of items with field errors are highlighted.
func (s *Service) PreviewXLSX(p *entity.MenuUploadPreview) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(itemsSheet)
	f.SetActiveSheet(activeIndex)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	flagged, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8D7DA"}},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range itemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(itemHeaders))
	_ = f.SetCellStyle(itemsSheet, "A1", lastCol+"1", bold)

	row := 2
	for _, it := range p.Items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(itemsSheet, cell, v)
		}
		write(1, it.SourceIndex)
		write(2, it.Name.Value)
		write(3, it.Category.Value)
		write(4, string(it.Kind.Value))
		if it.Price.Value != nil {
			write(5, *it.Price.Value)
		}
		write(6, truncate(it.Description.Value, 140))
		write(7, strings.Join(it.Ingredients.Value, ", "))
		write(8, joinAll(it.Allergens.Value))
		write(9, dietaryLabel(it.Dietary.Value))
		if w := it.Wine.Value; w != nil {
			write(10, string(w.Style))
			write(11, joinNonEmpty(" / ", w.Producer, w.Region))
			write(12, strings.Join(w.Grapes, ", "))
			if w.Vintage != nil {
				write(13, *w.Vintage)
			}
			write(14, strings.Join(w.FoodPairings, ", "))
		}
		write(15, string(it.ImportDecision))
		write(16, string(it.Conflict.Status))
		write(17, strings.Join(fieldErrors(it), "; "))
		write(18, strings.Join(it.Warnings, "; "))
		if it.HasErrors() {
			_ = f.SetCellStyle(itemsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), flagged)
		}
		row++
	}

	_ = f.SetColWidth(itemsSheet, "A", "A", 6)
	_ = f.SetColWidth(itemsSheet, "B", "B", 32)
	_ = f.SetColWidth(itemsSheet, "C", "D", 16)
	_ = f.SetColWidth(itemsSheet, "E", "E", 10)
	_ = f.SetColWidth(itemsSheet, "F", "F", 48)
	_ = f.SetColWidth(itemsSheet, "G", "N", 22)
	_ = f.SetColWidth(itemsSheet, "O", "P", 18)
	_ = f.SetColWidth(itemsSheet, "Q", "R", 60)
	_ = f.SetPanes(itemsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	s.writeSummary(f, p, bold)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"preview_id", p.PreviewID.String(),
		"rows", len(p.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummary(f *excelize.File, p *entity.MenuUploadPreview, bold int) {
	rows := [][]any{
		{"File", p.FileName},
		{"Format", string(p.SourceFormat)},
		{"Menu", p.MenuName},
		{"Items", p.Summary.TotalItemsParsed},
		{"Food", p.Summary.FoodItems},
		{"Beverages", p.Summary.BeverageItems},
		{"Wines", p.Summary.WineItems},
		{"With errors", p.Summary.ItemsWithErrors},
		{"With warnings", p.Summary.ItemsWithWarnings},
		{"Dropped rows", p.Summary.DroppedRows},
		{"Categories", strings.Join(p.Categories, ", ")},
	}
	for i, r := range rows {
		_ = f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &r)
	}
	_ = f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold)

	row := len(rows) + 2
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Warnings")
	_ = f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), bold)
	for _, w := range append(append([]string{}, p.Errors...), p.Warnings...) {
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), w)
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 48)
}

// ReadItemNames returns column B of the items sheet, for round-trip checks.
func ReadItemNames(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := f.GetRows(itemsSheet)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, r := range rows[1:] {
		if len(r) > 1 {
			names = append(names, r[1])
		}
	}
	return names, nil
}

func fieldErrors(it entity.ParsedItem) []string {
	var out []string
	add := func(name string, valid bool, msg string) {
		if !valid {
			out = append(out, name+": "+msg)
		}
	}
	add("name", it.Name.IsValid, it.Name.ErrorMessage)
	add("description", it.Description.IsValid, it.Description.ErrorMessage)
	add("price", it.Price.IsValid, it.Price.ErrorMessage)
	add("category", it.Category.IsValid, it.Category.ErrorMessage)
	add("kind", it.Kind.IsValid, it.Kind.ErrorMessage)
	add("ingredients", it.Ingredients.IsValid, it.Ingredients.ErrorMessage)
	add("allergens", it.Allergens.IsValid, it.Allergens.ErrorMessage)
	add("dietary", it.Dietary.IsValid, it.Dietary.ErrorMessage)
	add("wine", it.Wine.IsValid, it.Wine.ErrorMessage)
	return out
}

func dietaryLabel(d entity.Dietary) string {
	var tags []string
	if d.Vegan {
		tags = append(tags, "V")
	}
	if d.Vegetarian {
		tags = append(tags, "VG")
	}
	if d.GlutenFree {
		tags = append(tags, "GF")
	}
	if d.DairyFree {
		tags = append(tags, "DF")
	}
	return strings.Join(tags, " ")
}

func joinAll[T ~string](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
