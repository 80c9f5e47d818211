package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/windbluesea/tacsim-agent/pkg/replay"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List discovered scenario files",
	Long:  `List replayable scenario files found in the working directory and ./scenarios.`,
	RunE:  listScenarios,
}

func listScenarios(_ *cobra.Command, _ []string) error {
	candidates, err := discoverScenarios()
	if err != nil {
		return fmt.Errorf("failed to discover scenarios: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Println("No scenario files found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tFORMAT")
	_, _ = fmt.Fprintln(w, "----\t------")
	for _, path := range candidates {
		format := "text"
		if replay.IsBinaryCapture(path) {
			format = "binary"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", path, format)
	}
	return w.Flush()
}
