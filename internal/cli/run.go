package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"podcast/config"
	"podcast/internal/adapter/audio"
	"podcast/internal/adapter/feed"
	"podcast/internal/adapter/transcribe"
	"podcast/internal/errs"
	"podcast/internal/usecase"
)

var (
	runNoProgress bool
	runJSON       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the newest unprocessed episode of the source feed",
	Long: `Poll the source feed and, if an episode has not been processed yet,
download and transcribe it, extract its lessons, look up related lessons
from earlier episodes and publish it to the output feed.

At most one episode is processed per run; schedule the command to keep up
with the source.

Examples:
  podcast run
  PODCAST_FEED_URL=https://example.com/rss podcast run --json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "hide the download progress bar")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "output the recorded episode as JSON")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg.Feed.URL == "" {
		return errs.New(errs.CodePipelineInputInvalid, "feed.url is not set (config file or PODCAST_FEED_URL)")
	}

	lock, err := lockStores(cfg)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openEpisodeStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	builder, err := newContextBuilder(cfg)
	if err != nil {
		return err
	}
	writer, err := newEpisodeWriter(cfg)
	if err != nil {
		return err
	}

	audioOpts := audio.Options{
		FFmpegPath: cfg.Audio.FFmpegPath,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		Timeout:    cfg.Audio.DownloadTimeout,
	}
	if !runNoProgress {
		audioOpts.Progress = os.Stderr
	}

	indexPath, ledgerPath := contextPaths(cfg)
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Feed:  feed.NewPoller(cfg.Feed.URL, cfg.Feed.UserAgent, cfg.Feed.Timeout, logger),
		Audio: audio.NewFetcher(audioOpts, audio.ExecRunner, logger),
		Transcriber: transcribe.NewWhisper(transcribe.Options{
			Executable: cfg.Transcribe.Executable,
			ModelPath:  cfg.Path(cfg.Transcribe.ModelPath),
			Language:   cfg.Transcribe.Language,
			Threads:    cfg.Transcribe.Threads,
		}, audio.ExecRunner, logger),
		Extractor: newExtractor(cfg),
		Context:   builder,
		Writer:    writer,
		Store:     st,
		Publisher: newFeedWriter(cfg),
	}, usecase.PipelineConfig{
		AudioDir:      cfg.Path(cfg.Episodes.AudioDir),
		TranscriptDir: cfg.Path(cfg.Episodes.TranscriptDir),
		IndexPath:     indexPath,
		LedgerPath:    ledgerPath,
		TopK:          cfg.Context.TopK,
	}, logger, reg)

	if err := os.MkdirAll(cfg.Path(cfg.Episodes.AudioDir), 0o755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Path(cfg.Episodes.TranscriptDir), 0o755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	result, err := pipeline.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if runJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	if result.Episode == nil {
		fmt.Println("No new episodes.")
		return nil
	}

	ep := result.Episode
	fmt.Printf("Episode %d: %s\n", ep.Number, ep.Title)
	fmt.Printf("  Lessons:  %d\n", len(ep.Lessons))
	fmt.Printf("  Keywords: %d\n", len(ep.Keywords))
	fmt.Printf("  Related:  %d\n", len(ep.Context))
	if ep.ShowNotes != "" {
		fmt.Printf("\n%s\n", ep.ShowNotes)
	}
	fmt.Printf("\nFeed written to: %s\n", cfg.Path(cfg.Episodes.RSSPath))
	return nil
}

func newFeedWriter(cfg *config.Config) *feed.Writer {
	return feed.NewWriter(feed.WriterOptions{
		Path:        cfg.Path(cfg.Episodes.RSSPath),
		Title:       cfg.Episodes.Title,
		Link:        cfg.Episodes.Link,
		Description: cfg.Episodes.Description,
		ImageURL:    cfg.Episodes.ImageURL,
		PublicURL:   cfg.Episodes.PublicURL,
	})
}
