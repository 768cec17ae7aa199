package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/micra/internal/coordinator"
	"github.com/dyluth/micra/internal/printer"
	"github.com/spf13/cobra"
)

var (
	runSkipDefine bool
	runJobs       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the coordinator command queue",
	Long: `Register definitions, then pop commands from the command list and run them
until interrupted or a quit command arrives.

Coordinator commands: status (s), list (ls), view (v), message set|clear,
quit (q), plus one forwarding command per entry of forwards in micra.yml.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runSkipDefine, "no-define", false, "Skip registering definitions at startup")
	runCmd.Flags().BoolVar(&runJobs, "jobs", false, "Also register the job queue definitions")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	c := coordinator.New(client, cfg.CommandsKey, printer.Out)
	for name, key := range cfg.Forwards {
		c.Forward(name, key)
	}

	if !runSkipDefine {
		cts, ss := definitions(cfg.ContentTypes, cfg.Structures, runJobs)
		if err := c.Define(ctx, cts, ss); err != nil {
			return printer.Error("Failed to register definitions", err.Error(), nil)
		}
	}

	if err := c.Run(ctx); err != nil && ctx.Err() != context.Canceled {
		return err
	}
	return nil
}
