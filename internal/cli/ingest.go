package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"podcast/internal/adapter/fs"
	"podcast/internal/usecase"
)

var ingestTopK int

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Backfill the context stores from transcripts on disk",
	Long: `Extract lessons from every transcript under path (default: the
configured transcript directory) and add them to the context stores, in
path order, as if each had been processed by a run.

Files are selected with ingest.includes and ingest.excludes.

Examples:
  podcast ingest
  podcast ingest ./old-transcripts`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVarP(&ingestTopK, "top-k", "k", 0, "related lessons per lesson (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	path := cfg.Path(cfg.Episodes.TranscriptDir)
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	lock, err := lockStores(cfg)
	if err != nil {
		return err
	}
	defer lock.Release()

	builder, err := newContextBuilder(cfg)
	if err != nil {
		return err
	}

	topK := cfg.Context.TopK
	if ingestTopK > 0 {
		topK = ingestTopK
	}

	ingest := usecase.NewIngest(fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes), newExtractor(cfg), builder, logger)
	indexPath, ledgerPath := contextPaths(cfg)

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progress := func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 {
			rate := float64(processed) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := ingest.Run(cmd.Context(), path, indexPath, ledgerPath, topK, progress)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Files ingested: %d\n", result.FilesIngested)
	fmt.Printf("  Files skipped:  %d\n", result.FilesSkipped)
	fmt.Printf("  Lessons added:  %d\n", result.LessonsAdded)
	fmt.Printf("  Context hits:   %d\n", result.ContextHits)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", indexPath)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
