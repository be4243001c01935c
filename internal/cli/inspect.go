package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"podcast/internal/adapter/ledger"
	"podcast/internal/usecase"
)

var (
	inspectJSON    bool
	inspectEntries bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the state of the context stores",
	Long: `Report the vector index and lesson ledger without modifying them:
load status, dimension, entry counts and whether the two agree.

Examples:
  podcast inspect
  podcast inspect --entries --json`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON")
	inspectCmd.Flags().BoolVar(&inspectEntries, "entries", false, "list the ledger entries")
}

type inspectOutput struct {
	usecase.Stats
	Model   string   `json:"model"`
	Entries []string `json:"entries,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	builder, err := newContextBuilder(cfg)
	if err != nil {
		return err
	}

	indexPath, ledgerPath := contextPaths(cfg)
	stats, err := builder.Inspect(indexPath, ledgerPath)
	if err != nil {
		return err
	}

	result := inspectOutput{Stats: stats, Model: cfg.Embedding.Provider + "/" + cfg.Embedding.Model}
	if inspectEntries {
		result.Entries = ledger.Load(ledgerPath, logger).Entries()
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Index:      %s (%s)\n", stats.IndexPath, stats.IndexStatus)
	fmt.Fprintf(out, "Ledger:     %s\n", stats.LedgerPath)
	fmt.Fprintf(out, "Model:      %s\n", result.Model)
	fmt.Fprintf(out, "Dimension:  %d\n", stats.Dimension)
	fmt.Fprintf(out, "Vectors:    %d\n", stats.IndexEntries)
	fmt.Fprintf(out, "Lessons:    %d\n", stats.LedgerLen)
	if !stats.Consistent {
		fmt.Fprintln(out, "\nWarning: index and ledger disagree; the next write will reset both.")
	}
	for i, e := range result.Entries {
		fmt.Fprintf(out, "%5d  %s\n", i, e)
	}
	return nil
}
