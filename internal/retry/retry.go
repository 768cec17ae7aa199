// Package retry re-runs optimistic record updates until they commit.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dyluth/micra/pkg/store"
)

// ErrConflict is returned when concurrent writers kept winning until the policy's
// elapsed budget ran out.
var ErrConflict = errors.New("record update kept conflicting")

// Policy shapes the exponential backoff between attempts.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPolicy mirrors the config defaults.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// MutateFunc changes a freshly loaded record in memory.
type MutateFunc func(*store.Record) error

// Update loads the record, remembers the current value of each watched field,
// applies mutate and saves with those values as the expectation.
//
// A lost race reloads and tries again with jittered exponential backoff. Errors
// returned by mutate stop the loop immediately, as do store errors other than a
// lost race. Watched fields absent at load time must still be absent at save time,
// so two writers that both saw a field unset cannot both commit.
func Update(ctx context.Context, client *store.Client, policy Policy, name string, watch []string, mutate MutateFunc) (*store.Record, error) {
	var saved *store.Record
	attempt := 0

	operation := func() error {
		attempt++
		r, err := client.LoadRecord(ctx, name)
		if err != nil {
			return backoff.Permanent(err)
		}

		expected := make(map[string]string, len(watch))
		var absent []string
		for _, field := range watch {
			if v := r.Optional(field); v != nil {
				expected[field] = *v
			} else {
				absent = append(absent, field)
			}
		}

		if err := mutate(r); err != nil {
			return backoff.Permanent(err)
		}

		ok, err := client.SaveRecordExpecting(ctx, r, expected, absent)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			slog.Debug("record update conflicted, retrying", "record", name, "attempt", attempt)
			return ErrConflict
		}
		saved = r
		return nil
	}

	if err := backoff.Retry(operation, policy.backOff(ctx)); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrConflict, name, attempt)
		}
		return nil, err
	}
	return saved, nil
}
