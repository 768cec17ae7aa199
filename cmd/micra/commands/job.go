package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/micra/internal/job"
	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/internal/resolver"
	"github.com/dyluth/micra/internal/timespec"
	"github.com/dyluth/micra/internal/watch"
	"github.com/dyluth/micra/pkg/store"
	"github.com/spf13/cobra"
)

var (
	jobFields  []string
	jobScore   float64
	jobHost    string
	jobResult  string
	jobTimeout time.Duration
	jobSince   string
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Schedule, appoint, claim and finish queued jobs",
	Long: `Drive job records through the job queue structures.

A job instance is scheduled into the scored set, appointed into the ready set
(which also announces it on the appointment stream), claimed by exactly one
host and finished by that host. Register the structures first with:
  micra define --jobs

INSTANCE is a full job name or a unique prefix (at least 6 characters) of the
instance id of an active job.`,
}

var jobScheduleCmd = &cobra.Command{
	Use:   "schedule JOB-NAME VERSION",
	Short: "Create a job instance and score it",
	Example: `  micra job schedule 'job:almacen-api:fetch' v2 \
    --field source=cron --field realm=eu --field company=acme \
    --field action=fetch --field target=orders --field objective=sync --score 3`,
	Args: cobra.ExactArgs(2),
	RunE: runJobSchedule,
}

var jobAppointCmd = &cobra.Command{
	Use:   "appoint INSTANCE",
	Short: "Move a scored job to the ready set",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobAppoint,
}

var jobClaimCmd = &cobra.Command{
	Use:   "claim INSTANCE",
	Short: "Claim a job for --host",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobClaim,
}

var jobFinishCmd = &cobra.Command{
	Use:   "finish INSTANCE",
	Short: "Record the result of a claimed job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobFinish,
}

var jobWaitCmd = &cobra.Command{
	Use:   "wait INSTANCE",
	Short: "Wait until a job has a result and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobWait,
}

var jobWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow job appointments as they happen",
	Long: `Print one line per appointment until interrupted.

--since accepts a duration ("1h" for the last hour), an RFC3339 timestamp or
"all"; without it only new appointments are shown.`,
	Args: cobra.NoArgs,
	RunE: runJobWatch,
}

func init() {
	jobScheduleCmd.Flags().StringArrayVar(&jobFields, "field", nil, "Job field FIELD=VALUE (repeatable)")
	jobScheduleCmd.Flags().Float64Var(&jobScore, "score", 0, "Score in the scored set")

	for _, cmd := range []*cobra.Command{jobClaimCmd, jobFinishCmd} {
		cmd.Flags().StringVar(&jobHost, "host", "", "Host running the job (required)")
		_ = cmd.MarkFlagRequired("host")
	}
	jobFinishCmd.Flags().StringVar(&jobResult, "result", "", "Result to record")
	jobWaitCmd.Flags().DurationVar(&jobTimeout, "timeout", 30*time.Second, "How long to wait")
	jobWatchCmd.Flags().StringVar(&jobSince, "since", "", "Replay appointments since a duration, timestamp or 'all'")

	jobCmd.AddCommand(jobScheduleCmd, jobAppointCmd, jobClaimCmd, jobFinishCmd, jobWaitCmd, jobWatchCmd)
	rootCmd.AddCommand(jobCmd)
}

func runJobSchedule(cmd *cobra.Command, args []string) error {
	fields, err := parseAssignments(jobFields)
	if err != nil {
		return printer.Error("Invalid --field", err.Error(), nil)
	}
	j := job.NewInstance(args[0], args[1], fields)
	if err := j.Validate(); err != nil {
		return printer.Error("Incomplete job", err.Error(),
			[]string{fmt.Sprintf("Every job needs --field for each of %v", job.RequiredFields)})
	}

	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := job.Schedule(cmd.Context(), client, j, jobScore); err != nil {
		return err
	}
	printer.Success("Scheduled %s\n", j.Name())
	return nil
}

func runJobAppoint(cmd *cobra.Command, args []string) error {
	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	name, err := resolveInstance(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	id, err := job.Appoint(cmd.Context(), client, name)
	if err != nil {
		return err
	}
	printer.Success("Appointed %s (stream entry %s)\n", name, id)
	return nil
}

func runJobClaim(cmd *cobra.Command, args []string) error {
	cfg, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	name, err := resolveInstance(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	_, err = job.Claim(cmd.Context(), client, retryPolicy(cfg), name, jobHost)
	if errors.Is(err, job.ErrClaimed) {
		return printer.ErrorWithContext("Job already claimed", err.Error(),
			map[string]string{"Job": name, "Host": jobHost}, nil)
	}
	if err != nil {
		return err
	}
	printer.Success("Claimed %s for %s\n", name, jobHost)
	return nil
}

func runJobFinish(cmd *cobra.Command, args []string) error {
	cfg, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	name, err := resolveInstance(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	_, err = job.Finish(cmd.Context(), client, retryPolicy(cfg), name, jobHost, jobResult)
	if errors.Is(err, job.ErrNotOwner) {
		return printer.ErrorWithContext("Job not held by this host", err.Error(),
			map[string]string{"Job": name, "Host": jobHost},
			[]string{"Claim it first with: micra job claim " + args[0] + " --host " + jobHost})
	}
	if err != nil {
		return err
	}
	printer.Success("Finished %s\n", name)
	return nil
}

func runJobWait(cmd *cobra.Command, args []string) error {
	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	name, err := resolveInstance(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	r, err := watch.PollForField(cmd.Context(), client, name, job.FieldResult, jobTimeout)
	if err != nil {
		return printer.ErrorWithContext("Job has no result yet", err.Error(),
			map[string]string{"Job": name}, []string{"Wait longer with --timeout"})
	}
	printer.Printf("%s\n", *job.Wrap(r).Result())
	return nil
}

func runJobWatch(cmd *cobra.Command, args []string) error {
	start, err := timespec.StreamID(jobSince, time.Now())
	if err != nil {
		return printer.Error("Invalid --since", err.Error(), nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	return watch.FollowAppointments(ctx, client, job.AppointmentsKey, start, func(a watch.Appointment) error {
		printer.Printf("%s  %s  %s\n", a.At.Format(time.RFC3339), a.ID, a.Job)
		return nil
	})
}

// resolveInstance expands short instance ids, rendering lookup failures.
func resolveInstance(ctx context.Context, client *store.Client, ref string) (string, error) {
	name, err := resolver.ResolveInstance(ctx, client, ref)
	var amb *resolver.AmbiguousError
	switch {
	case errors.As(err, &amb):
		return "", printer.Error("Ambiguous job reference", resolver.FormatAmbiguousError(amb),
			[]string{"Use a longer prefix or the full job name"})
	case resolver.IsNotFoundError(err):
		return "", printer.Error("Job not found", err.Error(), []string{"List active jobs with: micra view jobs_active"})
	case err != nil:
		return "", printer.Error("Invalid job reference", err.Error(), nil)
	}
	return name, nil
}
