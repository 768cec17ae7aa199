package coordinator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dyluth/micra/internal/filter"
	"github.com/dyluth/micra/internal/render"
	"github.com/spf13/cobra"
)

// publisher adds --publish/--echo to a command. Output goes to the listed Redis
// channels when any are given, and to the coordinator's output otherwise or when
// echo is set.
type publisher struct {
	channels []string
	echo     bool
}

func (p *publisher) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&p.channels, "publish", "p", nil, "Publish output to a Redis channel (repeatable)")
	cmd.Flags().BoolVarP(&p.echo, "echo", "e", false, "Also print output when publishing")
}

func (p *publisher) emit(c *Coordinator, cmd *cobra.Command, text string) error {
	for _, ch := range p.channels {
		n, err := c.client.Redis().Publish(cmd.Context(), ch, text).Result()
		if err != nil {
			return fmt.Errorf("failed to publish to %s: %w", ch, err)
		}
		if p.echo {
			fmt.Fprintf(cmd.OutOrStdout(), "Sent response to %d subscribers.\n", n)
		}
	}
	if len(p.channels) == 0 || p.echo {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}
	return nil
}

func statusCommand(c *Coordinator) *cobra.Command {
	var pub publisher
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"s"},
		Short:   "Show coordinator status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pub.emit(c, cmd, strings.Join(c.Status(), "\n")+"\n")
		},
	}
	pub.bind(cmd)
	return cmd
}

func listCommand(c *Coordinator) *cobra.Command {
	var (
		pub     publisher
		targets []string
		crit    filter.Criteria
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List content types and structures",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := crit.Validate(); err != nil {
				return err
			}
			want := map[string]bool{}
			for _, t := range targets {
				if t != "types" && t != "structures" {
					return fmt.Errorf("invalid target %q (must be types or structures)", t)
				}
				want[t] = true
			}
			all := len(want) == 0

			var b strings.Builder
			if all || want["types"] {
				cts, err := c.client.ContentTypes(cmd.Context())
				if err != nil {
					return err
				}
				for _, ct := range crit.ContentTypes(cts) {
					fmt.Fprintf(&b, "%s %s\n", ct.Identifier, ct.Summary())
				}
			}
			if all || want["structures"] {
				ss, err := c.client.Structures(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range crit.Structures(ss) {
					fmt.Fprintf(&b, "%s %s\n", s.Identifier, s.Summary())
				}
			}
			return pub.emit(c, cmd, b.String())
		},
	}
	pub.bind(cmd)
	cmd.Flags().StringArrayVarP(&targets, "target", "t", nil, "Restrict to types or structures (repeatable)")
	cmd.Flags().StringArrayVar(&crit.IDGlobs, "id", nil, "Filter by identifier glob (repeatable)")
	cmd.Flags().StringArrayVar(&crit.TagGlobs, "tag", nil, "Filter by tag glob (repeatable)")
	return cmd
}

func viewCommand(c *Coordinator) *cobra.Command {
	var (
		pub    publisher
		crit   filter.Criteria
		format string
	)
	cmd := &cobra.Command{
		Use:     "view",
		Aliases: []string{"v"},
		Short:   "Render the views of matching structures",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := render.Format(format)
			if err := f.Validate(); err != nil {
				return err
			}
			if err := crit.Validate(); err != nil {
				return err
			}
			ss, err := c.client.Structures(cmd.Context())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			for _, s := range crit.Structures(ss) {
				if len(s.KeyTokens) > 0 {
					// templates need token values; view them through a join or the CLI
					continue
				}
				table, err := s.View(cmd.Context(), c.client.Redis(), c.client)
				if err != nil {
					return fmt.Errorf("view %s: %w", s.Identifier, err)
				}
				if f == render.FormatTable {
					fmt.Fprintf(&buf, "%s\n", s.Identifier)
				}
				if err := render.View(&buf, f, s.Identifier, table); err != nil {
					return err
				}
			}
			return pub.emit(c, cmd, buf.String())
		},
	}
	pub.bind(cmd)
	cmd.Flags().StringArrayVarP(&crit.IDGlobs, "structure-id", "s", nil, "Filter by structure identifier glob (repeatable)")
	cmd.Flags().StringArrayVarP(&crit.TagGlobs, "tag", "t", nil, "Filter by tag glob (repeatable)")
	cmd.Flags().StringVarP(&format, "output", "o", string(render.FormatTable), "Output format: table, csv or json")
	return cmd
}

func messageCommand(c *Coordinator) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Set or clear status messages",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <message>",
			Short: "Attach a status message",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c.SetMessage(args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear <key>",
			Short: "Remove a status message",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !c.ClearMessage(args[0]) {
					return fmt.Errorf("no message under %q", args[0])
				}
				return nil
			},
		},
	)
	return cmd
}

func quitCommand(c *Coordinator) *cobra.Command {
	return &cobra.Command{
		Use:     "quit",
		Aliases: []string{"q"},
		Short:   "Stop the coordinator",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errQuit
		},
	}
}
