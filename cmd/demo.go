package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/streamhub/internal/demo"
)

var demoLinger time.Duration

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a tagged, prioritized and sticky dispatch scenario",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().DurationVar(&demoLinger, "linger", 500*time.Millisecond, "time left to event consumers before exiting")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	if _, err := demo.Run(svc.Hub, cmd.OutOrStdout()); err != nil {
		return err
	}
	select {
	case <-time.After(demoLinger):
	case err := <-done:
		return err
	}
	cancel()
	return <-done
}
