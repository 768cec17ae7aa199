// Package coordinator registers definitions and serves the textual command queue.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/micra/pkg/store"
	"github.com/kballard/go-shellquote"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	// ErrUnknownCommand means no registered command has the requested name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrAmbiguousCommand means more than one command answers to the name.
	ErrAmbiguousCommand = errors.New("ambiguous command")

	errQuit = errors.New("quit requested")
)

// PollInterval bounds each blocking pop so cancellation is noticed promptly.
var PollInterval = time.Second

// Factory builds a fresh command for each dispatch so flag state never leaks
// between runs.
type Factory func(c *Coordinator) *cobra.Command

// Coordinator listens on a Redis list and runs each popped line as a command.
type Coordinator struct {
	client    *store.Client
	key       string
	out       io.Writer
	factories []Factory

	mu       sync.Mutex
	messages map[string]string
	running  bool
	handled  int
}

// New creates a coordinator for the command list at key. Command output goes to out.
func New(client *store.Client, key string, out io.Writer) *Coordinator {
	c := &Coordinator{
		client:   client,
		key:      key,
		out:      out,
		messages: map[string]string{},
	}
	c.factories = append(c.factories, statusCommand, listCommand, viewCommand, messageCommand, quitCommand)
	return c
}

// Register adds a command.
func (c *Coordinator) Register(f Factory) {
	c.factories = append(c.factories, f)
}

// Forward registers a command that re-queues its arguments onto another command list.
func (c *Coordinator) Forward(name, key string) {
	c.Register(func(*Coordinator) *cobra.Command {
		return &cobra.Command{
			Use:                name + " [args...]",
			Short:              fmt.Sprintf("Forward a command to %s", key),
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return Enqueue(cmd.Context(), c.client, key, args...)
			},
		}
	})
}

// Define registers the built-in definitions followed by the given ones.
func (c *Coordinator) Define(ctx context.Context, contentTypes []*store.ContentType, structures []*store.Structure) error {
	if err := c.client.DefineBuiltins(ctx); err != nil {
		return fmt.Errorf("failed to define built-ins: %w", err)
	}
	for _, ct := range contentTypes {
		if err := c.client.DefineContentType(ctx, ct); err != nil {
			return err
		}
	}
	for _, s := range structures {
		if err := c.client.DefineStructure(ctx, s); err != nil {
			return err
		}
	}
	slog.Info("definitions registered", "content_types", len(contentTypes), "structures", len(structures))
	return nil
}

// Dispatch parses one shell-quoted command line and runs the command its first word
// names.
func (c *Coordinator) Dispatch(ctx context.Context, line string) error {
	argv, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}

	var matches []*cobra.Command
	for _, f := range c.factories {
		cmd := f(c)
		if cmd.Name() == argv[0] || cmd.HasAlias(argv[0]) {
			matches = append(matches, cmd)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, argv[0])
	case 1:
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name()
		}
		return fmt.Errorf("%w: %s matches %s", ErrAmbiguousCommand, argv[0], strings.Join(names, ", "))
	}

	cmd := matches[0]
	cmd.SetArgs(append([]string{}, argv[1:]...))
	cmd.SetOut(c.out)
	cmd.SetErr(c.out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.ExecuteContext(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.handled++
	c.mu.Unlock()
	return nil
}

// Run pops commands until ctx is cancelled or a quit command arrives. Failing
// commands are logged and never stop the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	c.setRunning(true)
	defer c.setRunning(false)
	slog.Info("listening for commands", "key", c.key)

	for ctx.Err() == nil {
		res, err := c.client.Redis().BRPop(ctx, PollInterval, c.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Warn("command queue read failed, retrying", "key", c.key, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(PollInterval):
			}
			continue
		}

		line := res[1]
		slog.Debug("command received", "command", line)
		if err := c.Dispatch(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				slog.Info("quit requested", "key", c.key)
				return nil
			}
			slog.Warn("command failed", "command", line, "error", err)
		}
	}
	return nil
}

// Enqueue pushes a command onto the list at key. Arguments are shell-quoted so the
// listener sees exactly these words.
func Enqueue(ctx context.Context, client *store.Client, key string, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}
	line := shellquote.Join(args...)
	if err := client.Redis().LPush(ctx, key, line).Err(); err != nil {
		return fmt.Errorf("failed to enqueue %q on %s: %w", line, key, err)
	}
	return nil
}

// Status returns the human-readable state lines.
func (c *Coordinator) Status() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := "idle"
	if c.running {
		state = "listening on " + c.key
	}
	lines := []string{
		"Running: " + state,
		fmt.Sprintf("Handled: %d", c.handled),
	}
	keys := make([]string, 0, len(c.messages))
	for k := range c.messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, c.messages[k])
	}
	return lines
}

// SetMessage attaches a status line under key.
func (c *Coordinator) SetMessage(key, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[key] = message
}

// ClearMessage removes a status line. Reports whether it existed.
func (c *Coordinator) ClearMessage(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.messages[key]
	delete(c.messages, key)
	return ok
}

func (c *Coordinator) setRunning(running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = running
}
