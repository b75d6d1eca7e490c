package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/joseph-ayodele/menu-importer/internal/app"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/export"
	"github.com/joseph-ayodele/menu-importer/internal/ingest"
	"github.com/joseph-ayodele/menu-importer/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// row is one line of the summary table.
type row struct {
	file     string
	size     int64
	format   string
	items    int
	errors   int
	warnings int
	dropped  int
	outcome  string
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory of menu documents to preview (required)")
		xlsxDir    = flag.String("xlsx", "", "write a review workbook per document into this directory")
		restaurant = flag.String("commit", "", "import every previewed menu for this restaurant id")
		dbPath     = flag.String("db", "", "SQLite database file for -commit (default: in-memory)")
		recursive  = flag.Bool("r", false, "descend into subdirectories")
		verbose    = flag.Bool("v", false, "log pipeline events to stderr")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	// Messages and attributes only; the table on stdout is the real output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if os.Getenv("DB_URL") == "" || *dbPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = *dbPath
	}
	// Commits from the CLI always run in the foreground.
	cfg.Import.AsyncThreshold = math.MaxInt32
	cfg.Import.UploadDir = ""

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	files, stats, err := ingest.ScanDirectory(*dir, ingest.ScanOptions{Recursive: *recursive, SkipHidden: true})
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		printError("Error: no supported menu documents in %s\n", *dir)
		os.Exit(1)
	}
	logger.Info("scan complete", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "unsupported", stats.Unsupported)
	if *xlsxDir != "" {
		if err := os.MkdirAll(*xlsxDir, 0o755); err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
	}

	exporter := export.NewService(logger)
	var rows []row
	failures := 0
	for _, path := range files {
		r := row{file: filepath.Base(path)}
		if info, err := os.Stat(path); err == nil {
			r.size = info.Size()
		}
		preview, err := a.Pipeline.Preview(ctx, pipeline.PreviewRequest{FilePath: path})
		if err != nil {
			failures++
			r.outcome = errorLabel(err)
			rows = append(rows, r)
			continue
		}
		r.format = string(preview.SourceFormat)
		r.items = preview.Summary.TotalItemsParsed
		r.errors = preview.Summary.ItemsWithErrors
		r.warnings = len(preview.Warnings)
		r.dropped = preview.Summary.DroppedRows
		r.outcome = "previewed"

		if *xlsxDir != "" {
			if err := writeWorkbook(exporter, preview, *xlsxDir); err != nil {
				failures++
				r.outcome = "xlsx failed: " + err.Error()
			}
		}
		if *restaurant != "" {
			r.outcome = commit(ctx, a.Pipeline, preview, *restaurant)
		}
		rows = append(rows, r)
	}

	render(rows)
	if failures > 0 {
		os.Exit(1)
	}
}

func writeWorkbook(exporter *export.Service, preview *entity.MenuUploadPreview, dir string) error {
	data, err := exporter.PreviewXLSX(preview)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(preview.FileName, filepath.Ext(preview.FileName))
	return os.WriteFile(filepath.Join(dir, base+"-review.xlsx"), data, 0o644)
}

// commit resolves conflicts against the restaurant's catalog and imports the result.
func commit(ctx context.Context, p *pipeline.Pipeline, preview *entity.MenuUploadPreview, restaurantID string) string {
	resolved, err := p.ResolveConflicts(ctx, pipeline.ConflictRequest{Items: preview.Items, RestaurantID: restaurantID})
	if err != nil {
		return errorLabel(err)
	}
	out, err := p.Finalize(ctx, pipeline.FinalizeRequest{
		FilePath:     preview.FilePath,
		MenuName:     preview.MenuName,
		RestaurantID: restaurantID,
		Items:        resolved.Items,
	})
	if err != nil {
		return errorLabel(err)
	}
	if out.Async() {
		return "queued " + out.JobID.String()
	}
	res := out.Result
	return fmt.Sprintf("%s: +%d ~%d", res.Status, res.Created, res.Updated)
}

func errorLabel(err error) string {
	if code := common.CodeOf(err); code != "" {
		return code
	}
	return "error: " + err.Error()
}

func render(rows []row) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Size", "Format", "Items", "Errors", "Warnings", "Dropped", "Outcome"})
	table.SetAutoWrapText(false)
	var items, errs int
	for _, r := range rows {
		size := "-"
		if r.size > 0 {
			size = humanize.Bytes(uint64(r.size))
		}
		table.Append([]string{
			r.file, size, r.format,
			strconv.Itoa(r.items), strconv.Itoa(r.errors), strconv.Itoa(r.warnings), strconv.Itoa(r.dropped),
			r.outcome,
		})
		items += r.items
		errs += r.errors
	}
	table.SetFooter([]string{fmt.Sprintf("%d files", len(rows)), "", "", strconv.Itoa(items), strconv.Itoa(errs), "", "", ""})
	table.Render()
}
