// Package watch follows job progress: polling a record until a field appears and
// tailing the appointment stream.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/micra/pkg/store"
	"github.com/redis/go-redis/v9"
)

// PollInterval is the delay between record reads in PollForField.
var PollInterval = 200 * time.Millisecond

// readBlock bounds each XREAD so cancellation is noticed between reads.
const readBlock = time.Second

// PollForField polls the record until field is present and returns it.
// Returns an error if timeout elapses first.
func PollForField(ctx context.Context, client *store.Client, name, field string, timeout time.Duration) (*store.Record, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for %s on %s after %v", field, name, timeout)

		case <-ticker.C:
			r, err := client.LoadRecord(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", name, err)
			}
			if r.Optional(field) != nil {
				return r, nil
			}
		}
	}
}

// Appointment is one entry of an appointment stream.
type Appointment struct {
	ID  string
	Job string
	At  time.Time
}

// FollowAppointments reads stream entries after startID and calls fn for each,
// oldest first. It returns nil when ctx is cancelled and fn's error if fn fails.
// startID "$" follows only entries added from now on.
func FollowAppointments(ctx context.Context, client *store.Client, stream, startID string, fn func(Appointment) error) error {
	last := startID
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := client.Redis().XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, last},
			Count:   100,
			Block:   readBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read %s: %w", stream, err)
		}

		for _, s := range res {
			for _, m := range s.Messages {
				last = m.ID
				if err := fn(appointment(m)); err != nil {
					return err
				}
			}
		}
	}
}

func appointment(m redis.XMessage) Appointment {
	a := Appointment{ID: m.ID}
	if j, ok := m.Values["job"].(string); ok {
		a.Job = j
	}
	ms, _, _ := strings.Cut(m.ID, "-")
	if n, err := strconv.ParseInt(ms, 10, 64); err == nil {
		a.At = time.UnixMilli(n).UTC()
	}
	return a
}
