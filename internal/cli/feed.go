package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedStdout bool

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Regenerate the output RSS feed from recorded episodes",
	Long: `Rewrite the output feed from the episode database, for example after
changing the channel title or the public audio URL.

Examples:
  podcast feed
  podcast feed --stdout`,
	Args: cobra.NoArgs,
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().BoolVar(&feedStdout, "stdout", false, "print the feed instead of writing it")
}

func runFeed(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

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

	episodes, err := st.ListEpisodes()
	if err != nil {
		return fmt.Errorf("failed to list episodes: %w", err)
	}

	w := newFeedWriter(cfg)
	if feedStdout {
		rss, err := w.Render(episodes)
		if err != nil {
			return err
		}
		fmt.Println(rss)
		return nil
	}
	if err := w.Publish(episodes); err != nil {
		return err
	}
	fmt.Printf("Wrote %d episodes to %s\n", len(episodes), cfg.Path(cfg.Episodes.RSSPath))
	return nil
}
