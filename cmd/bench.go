package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/streamhub/core/stream"
	"github.com/kilianp07/streamhub/internal/bench"
)

var (
	benchOpts  bench.Options
	benchChart string
	benchBins  int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure dispatch latency",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchOpts.Streams, "streams", 100, "registered streams")
	benchCmd.Flags().IntVar(&benchOpts.Calls, "calls", 10000, "dispatched calls")
	benchCmd.Flags().IntVar(&benchOpts.Tags, "tags", 0, "distinct stream tags, 0 disables tag filtering")
	benchCmd.Flags().StringVar(&benchChart, "chart", "", "write an HTML latency histogram to this file")
	benchCmd.Flags().IntVar(&benchBins, "bins", 20, "histogram bins")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	report, err := bench.Run(stream.New(), benchOpts)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if benchChart == "" {
		return nil
	}
	f, err := os.Create(benchChart)
	if err != nil {
		return err
	}
	if err := bench.WriteChart(f, report, benchBins); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
