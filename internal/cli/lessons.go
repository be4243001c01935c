package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	lessonsJSON bool
	lessonsTop  int
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons [transcript]",
	Short: "Extract lessons and keywords from a transcript",
	Long: `Print the top-ranked lessons and the keywords of a transcript file, or
of standard input when no file is given. The context stores are not
touched.

Examples:
  podcast lessons data/transcripts/episode_3.txt
  cat notes.txt | podcast lessons --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLessons,
}

func init() {
	rootCmd.AddCommand(lessonsCmd)
	lessonsCmd.Flags().BoolVar(&lessonsJSON, "json", false, "output as JSON")
	lessonsCmd.Flags().IntVarP(&lessonsTop, "top", "n", 0, "number of lessons (default from config)")
}

func runLessons(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	if lessonsTop > 0 {
		cfg.Extract.TopLessons = lessonsTop
	}
	extraction, err := newExtractor(cfg).Extract(cmd.Context(), string(data))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if lessonsJSON {
		output, _ := json.MarshalIndent(extraction, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(extraction.Lessons) == 0 {
		fmt.Fprintln(out, "No lessons found.")
		return nil
	}
	fmt.Fprintf(out, "Lessons (%d):\n", len(extraction.Lessons))
	for i, l := range extraction.Lessons {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, l)
	}
	fmt.Fprintf(out, "\nKeywords: %v\n", extraction.Keywords)
	return nil
}
