package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dyluth/micra/internal/retry"
	"github.com/dyluth/micra/pkg/store"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrClaimed means another host already holds the job.
	ErrClaimed = errors.New("job already claimed")

	// ErrNotOwner means the finishing host does not hold the job.
	ErrNotOwner = errors.New("job held by another host")
)

// Schedule stores a new job instance and scores it. Scored jobs are also active.
func Schedule(ctx context.Context, client *store.Client, j *Job, score float64) error {
	if err := j.Validate(); err != nil {
		return err
	}
	if created, _ := j.Created(); created.IsZero() {
		j.SetCreated(time.Now())
	}
	if _, err := client.SaveRecord(ctx, j.Record, nil); err != nil {
		return err
	}
	_, err := client.Redis().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, ScoredKey, redis.Z{Score: score, Member: j.Name()})
		pipe.SAdd(ctx, ActiveKey, j.Name())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", j.Name(), err)
	}
	slog.Debug("job scheduled", "job", j.Name(), "score", score)
	return nil
}

// Appoint moves a scored job to the ready set and announces it on the appointment
// stream. Returns the stream entry id.
func Appoint(ctx context.Context, client *store.Client, name string) (string, error) {
	var add *redis.StringCmd
	_, err := client.Redis().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, ScoredKey, name)
		pipe.SAdd(ctx, ReadyKey, name)
		add = pipe.XAdd(ctx, &redis.XAddArgs{Stream: AppointmentsKey, Values: map[string]any{"job": name}})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to appoint %s: %w", name, err)
	}
	return add.Val(), nil
}

// Claim marks host as running the job. Fails with ErrClaimed when any host holds it.
func Claim(ctx context.Context, client *store.Client, policy retry.Policy, name, host string) (*Job, error) {
	return claim(ctx, client, policy, name, host, claimMutation(name, host))
}

func claim(ctx context.Context, client *store.Client, policy retry.Policy, name, host string, mutate retry.MutateFunc) (*Job, error) {
	r, err := retry.Update(ctx, client, policy, name, []string{FieldHost}, mutate)
	if err != nil {
		return nil, err
	}
	slog.Info("job claimed", "job", name, "host", host)
	return Wrap(r), nil
}

func claimMutation(name, host string) retry.MutateFunc {
	return func(r *store.Record) error {
		j := Wrap(r)
		if err := j.Validate(); err != nil {
			return err
		}
		if current := j.Host(); current != nil {
			return fmt.Errorf("%w: %s by %s", ErrClaimed, name, *current)
		}
		j.SetRan(time.Now())
		return j.SetHost(&host)
	}
}

// Finish records the result of a job run by host and retires it from the queues.
func Finish(ctx context.Context, client *store.Client, policy retry.Policy, name, host, result string) (*Job, error) {
	r, err := retry.Update(ctx, client, policy, name, []string{FieldHost}, func(r *store.Record) error {
		j := Wrap(r)
		if current := j.Host(); current == nil || *current != host {
			return fmt.Errorf("%w: %s", ErrNotOwner, name)
		}
		j.SetFinished(time.Now())
		return j.SetResult(&result)
	})
	if err != nil {
		return nil, err
	}
	_, err = client.Redis().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, ReadyKey, name)
		pipe.SRem(ctx, ActiveKey, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retire %s: %w", name, err)
	}
	return Wrap(r), nil
}
