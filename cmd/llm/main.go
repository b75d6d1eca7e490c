package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/menu-importer/internal/app"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/pipeline"
)

// Runs a text or PDF menu through extraction several times to check that the model's
// output is stable. Set EXTRACTION_CACHE_DIR empty so every run reaches the model.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <menu.txt|menu.pdf> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 3
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		logger.Error("LLM_API_KEY env var is required")
		os.Exit(2)
	}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = ""
	cfg.Cache.Dir = ""
	cfg.Cache.InMemory = false

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("wire pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	base := filepath.Base(path)
	counts := make([]int, 0, times)
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(ctx, 2*time.Minute)
		start := time.Now()
		logger.Info("pipeline.run.start", "iter", i, "file", base)

		preview, err := a.Pipeline.Preview(runCtx, pipeline.PreviewRequest{FilePath: path})
		cancelRun()

		if err != nil {
			logger.Error("pipeline.run.error", "iter", i, "code", common.CodeOf(err), "err", err)
		} else {
			counts = append(counts, preview.Summary.TotalItemsParsed)
			logger.Info("pipeline.run.ok",
				"iter", i,
				"items", preview.Summary.TotalItemsParsed,
				"wine", preview.Summary.WineItems,
				"errors", preview.Summary.ItemsWithErrors,
				"attempts", preview.Metadata["attempts"],
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}

		time.Sleep(750 * time.Millisecond)
	}

	logger.Info("done", "file", base, "times", times, "item_counts", counts)
}
