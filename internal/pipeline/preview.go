package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/extraction"
	"github.com/joseph-ayodele/menu-importer/internal/parser"
	"github.com/joseph-ayodele/menu-importer/internal/validate"
)

// PreviewRequest names an uploaded document. FileName is the name the user uploaded and
// decides the format; FilePath is where the bytes are.
type PreviewRequest struct {
	FilePath  string `json:"filePath"`
	FileName  string `json:"fileName"`
	MaxSizeMB int    `json:"maxSizeMb"`
}

// source is the stage-one output shared by the parser and AI paths.
type source struct {
	format   constants.SourceFormat
	menuName string
	records  []entity.Record
	warnings []string
	dropped  int
	metadata map[string]any
}

// Preview parses, enriches and validates a document without touching the catalog.
func (p *Pipeline) Preview(ctx context.Context, req PreviewRequest) (*entity.MenuUploadPreview, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, p.logger)
	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.FilePath)
	}

	format, err := p.checkFile(req, fileName)
	if err != nil {
		logger.Warn("pipeline.preview.rejected", "file", fileName, "error", err)
		return nil, err
	}

	src, err := p.load(ctx, format, req.FilePath, fileName)
	if err != nil {
		logger.Error("pipeline.source.failed", "file", fileName, "format", format, "error", err)
		return nil, err
	}
	logger.Info("pipeline.source.ok", "file", fileName, "format", format, "records", len(src.records), "dropped", src.dropped)
	if len(src.records) == 0 {
		return nil, noItems(fileName, src)
	}
	for i := range src.records {
		if src.records[i].ID == "" {
			src.records[i].ID = uuid.NewString()
		}
	}

	enhanced, err := p.Enhancer.Enhance(ctx, src.records)
	if err != nil {
		return nil, err
	}
	kept, findings, dropped := p.Validator.ValidateRecords(enhanced.Records)
	if len(kept) == 0 {
		src.dropped += dropped
		return nil, noItems(fileName, src)
	}

	preview := &entity.MenuUploadPreview{
		PreviewID:    uuid.New(),
		FilePath:     req.FilePath,
		FileName:     fileName,
		SourceFormat: src.format,
		MenuName:     src.menuName,
		Errors:       []string{},
		Warnings:     append([]string{}, src.warnings...),
		Metadata:     src.metadata,
	}
	if preview.MenuName == "" {
		preview.MenuName = menuNameFromFile(fileName)
	}
	for _, w := range findings {
		preview.Warnings = append(preview.Warnings, w.String())
	}

	byID := make(map[string]entity.EnrichmentResult, len(enhanced.Results))
	for _, r := range enhanced.Results {
		byID[r.ItemID] = r
	}
	categories := map[string]struct{}{}
	for _, v := range kept {
		item := toParsedItem(v)
		preview.Items = append(preview.Items, item)
		if r, ok := byID[item.ID]; ok {
			preview.Enrichment = append(preview.Enrichment, r)
		}
		categories[item.Category.Value] = struct{}{}
	}
	for c := range categories {
		preview.Categories = append(preview.Categories, c)
	}
	sort.Strings(preview.Categories)
	preview.Summary = summarize(preview.Items, src.dropped+dropped)

	logger.Info("pipeline.preview.ok",
		"file", fileName,
		"preview_id", preview.PreviewID,
		"format", src.format,
		"items", preview.Summary.TotalItemsParsed,
		"errors", preview.Summary.ItemsWithErrors,
		"warnings", len(preview.Warnings),
		"dropped", preview.Summary.DroppedRows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return preview, nil
}

// checkFile runs the existence, size and format checks, in that order.
func (p *Pipeline) checkFile(req PreviewRequest, fileName string) (constants.SourceFormat, error) {
	info, err := os.Stat(req.FilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", common.NewAppError(common.CodeFileNotFound, "file does not exist", err).WithDetail("file", fileName)
	case err != nil:
		return "", common.NewAppError(common.CodeFileUnreadable, "cannot read file", err).WithDetail("file", fileName)
	case info.IsDir():
		return "", common.NewAppError(common.CodeFileUnreadable, "path is a directory", nil).WithDetail("file", fileName)
	case info.Size() == 0:
		return "", common.NewAppError(common.CodeEmptyFile, "file is empty", nil).WithDetail("file", fileName)
	}

	maxMB := req.MaxSizeMB
	if maxMB <= 0 {
		maxMB = p.maxSizeMB
	}
	limit := uint64(maxMB) * humanize.MiByte
	if uint64(info.Size()) > limit {
		return "", common.NewAppError(common.CodeFileTooLarge,
			fmt.Sprintf("file is %s, limit is %s", humanize.IBytes(uint64(info.Size())), humanize.IBytes(limit)), nil).
			WithDetail("file", fileName).
			WithDetail("size", info.Size()).
			WithDetail("maxSizeMb", maxMB)
	}

	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = filepath.Ext(req.FilePath)
	}
	format, ok := constants.FormatForExt(ext)
	if !ok {
		return "", common.NewAppError(common.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported file extension %q", ext), nil).WithDetail("file", fileName)
	}
	return format, nil
}

func (p *Pipeline) load(ctx context.Context, format constants.SourceFormat, path, fileName string) (*source, error) {
	if format.IsUnstructured() {
		return p.extract(ctx, path, fileName)
	}
	res, err := p.Parsers.Parse(ctx, format, path)
	if err != nil {
		var ae *common.AppError
		if errors.As(err, &ae) {
			return nil, err
		}
		if errors.Is(err, parser.ErrNoItems) {
			return nil, common.NewAppError(common.CodeNoItemsFound, "no menu items found in document", err).
				WithDetail("file", fileName)
		}
		return nil, common.NewAppError(common.CodeFileUnreadable, "failed to parse "+string(format)+" document", err).
			WithDetail("file", fileName)
	}
	return &source{
		format:   res.Format,
		menuName: res.MenuName,
		records:  res.Records,
		warnings: res.Warnings,
		dropped:  res.Dropped,
		metadata: res.Metadata,
	}, nil
}

// extract sends text and PDF documents through text extraction and the AI orchestrator.
func (p *Pipeline) extract(ctx context.Context, path, fileName string) (*source, error) {
	if p.Text == nil || p.AI == nil {
		return nil, common.NewAppError(common.CodeExtractionFailed, "text extraction is not configured", nil).
			WithDetail("file", fileName)
	}
	doc, err := p.Text.Extract(ctx, path, fileName)
	if err != nil {
		return nil, err
	}
	res, err := p.AI.Extract(ctx, extraction.Input{Text: doc.Text, FileName: fileName, IsWine: doc.IsWine})
	if err != nil {
		return nil, err
	}
	return &source{
		format:   doc.Format,
		menuName: res.MenuName,
		records:  res.Records,
		warnings: append(append([]string{}, doc.Warnings...), res.Warnings...),
		dropped:  res.Dropped,
		metadata: map[string]any{
			"method":    doc.Method,
			"pages":     doc.Pages,
			"wine":      doc.IsWine,
			"attempts":  res.Attempts,
			"recovery":  res.Recovery,
			"fromCache": res.FromCache,
		},
	}, nil
}

func noItems(fileName string, src *source) error {
	return common.NewAppError(common.CodeNoItemsFound, "no menu items found in document", nil).
		WithDetail("file", fileName).
		WithDetail("droppedRows", src.dropped).
		WithDetail("warnings", len(src.warnings))
}

// toParsedItem wraps each validated value with the source value and its field error.
func toParsedItem(v validate.Validated) entity.ParsedItem {
	item, errs, orig := v.Outcome.Item, v.Outcome.Errors, v.Record.Original
	pi := entity.ParsedItem{
		ID:             v.Record.ID,
		SourceIndex:    v.Record.Index,
		Source:         v.Record.Raw,
		Name:           field(item.Name, orig, errs, validate.FieldName),
		Description:    field(item.Description, orig, errs, validate.FieldDescription),
		Price:          field(item.Price, orig, errs, validate.FieldPrice),
		Category:       field(item.Category, orig, errs, validate.FieldCategory),
		Kind:           field(item.Kind, orig, errs, validate.FieldKind),
		Ingredients:    field(item.Ingredients, orig, errs, validate.FieldIngredients),
		Allergens:      field(item.Allergens, orig, errs, validate.FieldAllergens),
		Dietary:        field(item.Dietary, nil, errs, validate.FieldDietary),
		Wine:           field(item.Wine, nil, errs, validate.FieldWine),
		ImportDecision: constants.DecisionNew,
		UserAction:     constants.ActionKeep,
	}
	pi.Dietary.Original = pick(orig, "vegan", "vegetarian", "gluten_free", "dairy_free")
	pi.Wine.Original = pick(orig, "wine_style", "producer", "region", "grapes", "vintage", "serving_options", "food_pairings")
	for _, w := range v.Outcome.Warnings {
		pi.Warnings = append(pi.Warnings, w.Message)
	}
	return pi
}

func field[T any](value T, orig map[string]any, errs map[string]string, name string) entity.Field[T] {
	msg, bad := errs[name]
	return entity.Field[T]{Value: value, Original: orig[name], IsValid: !bad, ErrorMessage: msg}
}

// pick returns the source values of a grouped field, or nil when none were present.
func pick(orig map[string]any, keys ...string) any {
	var out map[string]any
	for _, k := range keys {
		if v, ok := orig[k]; ok {
			if out == nil {
				out = make(map[string]any)
			}
			out[k] = v
		}
	}
	if out == nil {
		return nil
	}
	return out
}

func summarize(items []entity.ParsedItem, dropped int) entity.PreviewSummary {
	s := entity.PreviewSummary{TotalItemsParsed: len(items), DroppedRows: dropped}
	for _, it := range items {
		if it.HasErrors() {
			s.ItemsWithErrors++
		}
		if len(it.Warnings) > 0 {
			s.ItemsWithWarnings++
		}
		switch it.Kind.Value {
		case constants.KindWine:
			s.WineItems++
		case constants.KindBeverage:
			s.BeverageItems++
		default:
			s.FoodItems++
		}
	}
	return s
}

// menuNameFromFile turns "dinner_menu-2024.csv" into "Dinner Menu 2024".
func menuNameFromFile(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	if strings.TrimSpace(base) == "" {
		return "Imported Menu"
	}
	return constants.TitleCase(strings.Join(strings.Fields(base), " "))
}
