package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/speedwagon-io/gauge/internal/gauge"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gaugectl",
		Short:        "Classify metric readings into dashboard gauge levels",
		SilenceUsage: true,
	}

	root.AddCommand(classifyCmd())
	root.AddCommand(thresholdsCmd())

	return root
}

type classification struct {
	Value string      `json:"value"`
	Level gauge.Level `json:"level"`
}

// classifyCmd prints one level per value.
func classifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <latency|cpu> <value>...",
		Short: "Classify one or more readings",
		Long: `Classify readings against the fixed gauge thresholds.

Flags must come before the metric; everything after it is read as a
value, so negative readings need no quoting.

Examples:
  gaugectl classify latency 149 150 300
  gaugectl classify latency -5 1e400
  gaugectl classify --json cpu 79.5 -Inf`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := gauge.ParseMetric(args[0])
			if err != nil {
				return err
			}

			results := make([]classification, 0, len(args)-1)
			for _, raw := range args[1:] {
				value, err := gauge.ParseValue(raw)
				if err != nil {
					return err
				}
				results = append(results, classification{Value: raw, Level: metric.Level(value)})
			}

			return writeClassifications(cmd.OutOrStdout(), results, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func thresholdsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thresholds",
		Short: "Print the threshold table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METRIC\tMED\tHIGH")
			for _, m := range gauge.Metrics() {
				t, _ := m.Thresholds()
				fmt.Fprintf(w, "%s\t%g\t%g\n", m, t.Med, t.High)
			}
			return w.Flush()
		},
	}
}

func writeClassifications(out io.Writer, results []classification, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\n", r.Value, r.Level)
	}
	return w.Flush()
}
