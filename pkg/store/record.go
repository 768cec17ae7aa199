package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Record is a short-lived view of a hash-backed entity.
//
// A Record is loaded, mutated through its accessors and saved back with
// Client.SaveRecord. It is never cached: staleness is only detected at save time
// through the expected-values check.
type Record struct {
	name   string
	fields map[string]string
}

// NewRecord creates a record with the given name and initial fields.
// The field map is copied.
func NewRecord(name string, fields map[string]string) *Record {
	r := &Record{name: name, fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		r.fields[k] = v
	}
	return r
}

// Name returns the store key of the record.
func (r *Record) Name() string {
	return r.name
}

// Fields returns a copy of the raw field map.
func (r *Record) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// FieldNames returns the field names in sorted order.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for k := range r.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Get returns a required field.
// Returns ErrMissingField if the field is absent.
func (r *Record) Get(field string) (string, error) {
	v, ok := r.fields[field]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrMissingField, field, r.name)
	}
	return v, nil
}

// Optional returns an optional field, or nil when absent.
func (r *Record) Optional(field string) *string {
	v, ok := r.fields[field]
	if !ok {
		return nil
	}
	return &v
}

// Set assigns a field value.
func (r *Record) Set(field, value string) {
	r.fields[field] = value
}

// SetField assigns or clears a field.
//
// A nil value removes an optional field. Nil on a required field, or removing an
// optional field that is not present, returns ErrInvalidValue.
func (r *Record) SetField(field string, value *string, optional bool) error {
	if value != nil {
		r.fields[field] = *value
		return nil
	}
	if !optional {
		return fmt.Errorf("%w: %s is required on %s", ErrInvalidValue, field, r.name)
	}
	if _, ok := r.fields[field]; !ok {
		return fmt.Errorf("%w: %s is not set on %s", ErrInvalidValue, field, r.name)
	}
	delete(r.fields, field)
	return nil
}

// errExpectationFailed aborts a watched transaction when an expected value differs.
var errExpectationFailed = errors.New("expected value mismatch")

// LoadRecord reads all fields of a record.
// An absent key yields an empty record, not an error.
func (c *Client) LoadRecord(ctx context.Context, name string) (*Record, error) {
	fields, err := c.rdb.HGetAll(ctx, name).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", name, err)
	}
	return &Record{name: name, fields: fields}, nil
}

// SaveRecord replaces the stored entry with the record's fields in one transaction.
//
// When expected is non-nil the key is watched and the current values of exactly the
// expected fields are compared first; an absent field never matches. The entry is
// deleted and rewritten only when every value matches.
//
// Returns false without mutating anything on a mismatch or when a concurrent writer
// touched the key before commit. Retrying is up to the caller.
func (c *Client) SaveRecord(ctx context.Context, r *Record, expected map[string]string) (bool, error) {
	return c.SaveRecordExpecting(ctx, r, expected, nil)
}

// SaveRecordExpecting is SaveRecord with an extra expectation that every field in
// absent is currently missing from the stored entry. A non-empty absent list
// watches the key even when expected is nil.
func (c *Client) SaveRecordExpecting(ctx context.Context, r *Record, expected map[string]string, absent []string) (bool, error) {
	if expected == nil && len(absent) == 0 {
		_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			replaceHash(ctx, pipe, r)
			return nil
		})
		if err != nil {
			return false, fmt.Errorf("failed to save record %s: %w", r.name, err)
		}
		return true, nil
	}

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		if len(keys) > 0 {
			current, err := tx.HMGet(ctx, r.name, keys...).Result()
			if err != nil {
				return err
			}
			for i, k := range keys {
				v, ok := current[i].(string)
				if !ok || v != expected[k] {
					return errExpectationFailed
				}
			}
		}
		if len(absent) > 0 {
			current, err := tx.HMGet(ctx, r.name, absent...).Result()
			if err != nil {
				return err
			}
			for _, v := range current {
				if v != nil {
					return errExpectationFailed
				}
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			replaceHash(ctx, pipe, r)
			return nil
		})
		return err
	}, r.name)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errExpectationFailed):
		slog.Debug("record save rejected", "record", r.name, "reason", "expected values differ")
		return false, nil
	case errors.Is(err, redis.TxFailedErr):
		slog.Debug("record save rejected", "record", r.name, "reason", "concurrent write")
		return false, nil
	default:
		return false, fmt.Errorf("failed to save record %s: %w", r.name, err)
	}
}

// replaceHash queues a delete followed by a full rewrite of the record's hash.
func replaceHash(ctx context.Context, pipe redis.Pipeliner, r *Record) {
	pipe.Del(ctx, r.name)
	if len(r.fields) == 0 {
		return
	}
	values := make(map[string]interface{}, len(r.fields))
	for k, v := range r.fields {
		values[k] = v
	}
	pipe.HSet(ctx, r.name, values)
}
