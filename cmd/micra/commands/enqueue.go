package commands

import (
	"github.com/dyluth/micra/internal/coordinator"
	"github.com/dyluth/micra/internal/printer"
	"github.com/spf13/cobra"
)

var enqueueKey string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue -- COMMAND [ARGS...]",
	Short: "Queue a command for the coordinator",
	Long: `Push a command onto the coordinator's command list.

The words are shell-quoted so the coordinator sees exactly these arguments.
Put -- before the command so its flags are not read as micra flags.

Examples:
  micra enqueue status
  micra enqueue -- view -s 'jobs_*' -o csv -p replies`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueKey, "key", "", "Command list key (default: commands_key from config)")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	cfg, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	key := enqueueKey
	if key == "" {
		key = cfg.CommandsKey
	}
	if err := coordinator.Enqueue(cmd.Context(), client, key, args...); err != nil {
		return err
	}
	printer.Success("Queued on %s\n", key)
	return nil
}
