package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	contextTopK int
	contextFile string
	contextJSON bool
)

var contextCmd = &cobra.Command{
	Use:   "context [lesson...]",
	Short: "Find related past lessons and record the new ones",
	Long: `Look up the lessons most similar to the given ones among everything
recorded so far, then add the given lessons to the context stores.

Lessons come from the arguments, or one per line from --file.

Examples:
  podcast context "Revenue grew twenty percent" "Costs fell"
  podcast context --file lessons.txt --top-k 5 --json`,
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().IntVarP(&contextTopK, "top-k", "k", 0, "neighbours per lesson (default from config)")
	contextCmd.Flags().StringVarP(&contextFile, "file", "f", "", "read lessons from a file, one per line")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "output as JSON")
}

func runContext(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	lessons := append([]string(nil), args...)
	if contextFile != "" {
		fromFile, err := readLines(contextFile)
		if err != nil {
			return err
		}
		lessons = append(lessons, fromFile...)
	}
	if len(lessons) == 0 {
		return fmt.Errorf("no lessons given")
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
	if contextTopK > 0 {
		topK = contextTopK
	}

	indexPath, ledgerPath := contextPaths(cfg)
	related, err := builder.BuildContext(cmd.Context(), lessons, indexPath, ledgerPath, topK)
	if err != nil && related == nil {
		return err
	}
	if err != nil {
		// related lessons are valid even when saving failed
		logger.Error("context stores not saved", "error", err)
	}

	out := cmd.OutOrStdout()
	if contextJSON {
		output, _ := json.MarshalIndent(related, "", "  ")
		fmt.Fprintln(out, string(output))
	} else if len(related) == 0 {
		fmt.Fprintln(out, "No related lessons.")
	} else {
		fmt.Fprintf(out, "Related lessons (%d):\n", len(related))
		for _, r := range related {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return err
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
