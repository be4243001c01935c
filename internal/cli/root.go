package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"podcast/config"
	"podcast/internal/errs"
	"podcast/internal/logging"
	"podcast/internal/metrics"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *slog.Logger
	reg     *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "podcast",
	Short: "Podcast lessons pipeline - turn a source feed into lesson episodes with context",
	Long: `podcast polls a source RSS feed, transcribes new episodes, extracts the
key lessons of each one and links them to related lessons from earlier
episodes through a persistent vector index.

Example usage:
  podcast run                        # Process the newest unprocessed episode
  podcast ingest ./transcripts       # Backfill the context stores
  podcast lessons transcript.txt     # Show lessons and keywords of a transcript
  podcast context "Revenue grew"     # Find related lessons and record new ones
  podcast inspect                    # Show the state of the context stores
  podcast episodes 3                 # Show a recorded episode`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = logging.New(os.Stderr, logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		reg = metrics.New()
		return nil
	},
}

// Exit statuses beyond the generic failure.
const (
	exitInvalidInput = 2
	exitLockHeld     = 3
)

// Execute runs the root command. Metrics are written whether or not the
// command succeeded.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if merr := writeMetrics(); merr != nil {
		fmt.Fprintln(os.Stderr, "warning:", merr)
	}
	if err != nil {
		reportError(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}

// reportError prints err followed by its structured fields, sorted by key.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	fields := errs.FieldsOf(err)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(w, "  %s: %v\n", k, fields[k])
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.HasCode(err, errs.CodePipelineLockHeld):
		return exitLockHeld
	case errs.IsInvalidInput(err), errs.IsNotFound(err):
		return exitInvalidInput
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./podcast.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

// writeMetrics dumps the registry for the node_exporter textfile collector.
func writeMetrics() error {
	if cfg == nil || reg == nil || cfg.Metrics.Textfile == "" {
		return nil
	}
	path := cfg.Path(cfg.Metrics.Textfile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := reg.WriteTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
