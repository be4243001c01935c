package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"podcast/internal/domain"
	"podcast/internal/errs"
)

var episodesJSON bool

var episodesCmd = &cobra.Command{
	Use:   "episodes [number]",
	Short: "List recorded episodes or show one of them",
	Long: `Without an argument, list the episodes in the episode database. With an
episode number, show its lessons, related context and show notes.

Examples:
  podcast episodes
  podcast episodes 12 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEpisodes,
}

func init() {
	rootCmd.AddCommand(episodesCmd)
	episodesCmd.Flags().BoolVar(&episodesJSON, "json", false, "output as JSON")
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	number := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return errs.New(errs.CodePipelineInputInvalid, "episode number must be a positive integer",
				errs.Field("number", args[0]))
		}
		number = n
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

	out := cmd.OutOrStdout()
	if number == 0 {
		episodes, err := st.ListEpisodes()
		if err != nil {
			return fmt.Errorf("failed to list episodes: %w", err)
		}
		if episodesJSON {
			return writeJSON(out, episodes)
		}
		if len(episodes) == 0 {
			fmt.Fprintln(out, "No episodes recorded.")
			return nil
		}
		for _, ep := range episodes {
			fmt.Fprintf(out, "%4d  %s  %s\n", ep.Number, ep.PublishedAt.Format("2006-01-02"), ep.Title)
		}
		return nil
	}

	ep, err := st.GetEpisode(number)
	if errs.IsNotFound(err) {
		episodes, _ := st.ListEpisodes()
		return errs.Wrap(err, errs.CodeEpisodeNotFound, "no such episode", errs.Field("recorded", len(episodes)))
	}
	if err != nil {
		return err
	}
	if episodesJSON {
		return writeJSON(out, ep)
	}
	printEpisode(out, ep)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func printEpisode(w io.Writer, ep domain.Episode) {
	fmt.Fprintf(w, "Episode %d: %s\n", ep.Number, ep.Title)
	fmt.Fprintf(w, "Published: %s\n", ep.PublishedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Source:    %s\n", ep.SourceURL)
	fmt.Fprintln(w, "\nLessons:")
	for _, l := range ep.Lessons {
		fmt.Fprintf(w, "  - %s\n", l)
	}
	if len(ep.Context) > 0 {
		fmt.Fprintln(w, "\nRelated from earlier episodes:")
		for _, c := range ep.Context {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}
	if ep.ShowNotes != "" {
		fmt.Fprintf(w, "\nShow notes:\n%s\n", ep.ShowNotes)
	}
}
