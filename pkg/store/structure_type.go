package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// StructureType is the Redis collection shape backing a structure.
//
// Behaviour is keyed by the tag: Size, ReadContent and Rows each switch over every
// variant, so adding a shape means touching each of them.
type StructureType string

const (
	// StructureValue is a plain string key.
	StructureValue StructureType = "value"

	// StructureList is a Redis list, one row per element.
	StructureList StructureType = "list"

	// StructureSet is a Redis set, one row per member in no particular order.
	StructureSet StructureType = "set"

	// StructureOrderedSet is a Redis sorted set, one row per member with its score.
	StructureOrderedSet StructureType = "ordered_set"

	// StructureHash is a Redis hash, one row per field with the field name.
	StructureHash StructureType = "hash"

	// StructureStream is a Redis stream, one row per entry with the entry id.
	StructureStream StructureType = "stream"
)

// Validate checks if the StructureType is a valid enum value.
func (st StructureType) Validate() error {
	switch st {
	case StructureValue, StructureList, StructureSet, StructureOrderedSet, StructureHash, StructureStream:
		return nil
	default:
		return fmt.Errorf("unknown structure type: %q", st)
	}
}

// Size returns the element count of the collection at key.
// Plain values have no size and return ErrUnsupported.
func (st StructureType) Size(ctx context.Context, rdb redis.Cmdable, key string) (int64, error) {
	var cmd *redis.IntCmd
	switch st {
	case StructureList:
		cmd = rdb.LLen(ctx, key)
	case StructureSet:
		cmd = rdb.SCard(ctx, key)
	case StructureOrderedSet:
		cmd = rdb.ZCard(ctx, key)
	case StructureHash:
		cmd = rdb.HLen(ctx, key)
	case StructureStream:
		cmd = rdb.XLen(ctx, key)
	case StructureValue:
		return 0, fmt.Errorf("%w: size of %s structure", ErrUnsupported, st)
	default:
		return 0, fmt.Errorf("unknown structure type: %q", st)
	}
	n, err := cmd.Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read size of %s: %w", key, err)
	}
	return n, nil
}

// ReadContent reads the full collection at key.
//
// The concrete type depends on the variant: value yields a string (nil when the key
// is absent), list and set yield []string, ordered_set yields []redis.Z, hash yields
// map[string]string and stream yields []redis.XMessage.
func (st StructureType) ReadContent(ctx context.Context, rdb redis.Cmdable, key string) (any, error) {
	var (
		content any
		err     error
	)
	switch st {
	case StructureValue:
		content, err = rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
	case StructureList:
		content, err = rdb.LRange(ctx, key, 0, -1).Result()
	case StructureSet:
		content, err = rdb.SMembers(ctx, key).Result()
	case StructureOrderedSet:
		content, err = rdb.ZRangeWithScores(ctx, key, 0, -1).Result()
	case StructureHash:
		content, err = rdb.HGetAll(ctx, key).Result()
	case StructureStream:
		content, err = rdb.XRange(ctx, key, "-", "+").Result()
	default:
		return nil, fmt.Errorf("unknown structure type: %q", st)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s content of %s: %w", st, key, err)
	}
	return content, nil
}

// Rows converts content read by ReadContent into rows.
//
// A collection-converting converter turns the whole content into exactly one row.
// Otherwise each member is converted on its own and the shape's reserved field
// (score, hash field or stream id) is placed first in the row.
func (st StructureType) Rows(content any, converter ContentConverter) ([]Entry, error) {
	if converter.ConvertsCollection() {
		entry, err := converter.ConvertEntry(content)
		if err != nil {
			return nil, err
		}
		return []Entry{entry}, nil
	}

	switch st {
	case StructureValue:
		if content == nil {
			return nil, nil
		}
		entry, err := converter.ConvertEntry(content)
		if err != nil {
			return nil, err
		}
		return []Entry{entry}, nil

	case StructureList, StructureSet:
		members, ok := content.([]string)
		if !ok {
			return nil, contentTypeError(st, content)
		}
		entries := make([]Entry, 0, len(members))
		for _, m := range members {
			entry, err := converter.ConvertEntry(m)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil

	case StructureOrderedSet:
		members, ok := content.([]redis.Z)
		if !ok {
			return nil, contentTypeError(st, content)
		}
		entries := make([]Entry, 0, len(members))
		for _, z := range members {
			entry, err := converter.ConvertEntry(z.Member)
			if err != nil {
				return nil, err
			}
			entries = append(entries, prepend(ColumnOrderedSetScore, z.Score, entry))
		}
		return entries, nil

	case StructureHash:
		fields, ok := content.(map[string]string)
		if !ok {
			return nil, contentTypeError(st, content)
		}
		names := make([]string, 0, len(fields))
		for k := range fields {
			names = append(names, k)
		}
		sort.Strings(names)
		entries := make([]Entry, 0, len(names))
		for _, k := range names {
			entry, err := converter.ConvertEntry(fields[k])
			if err != nil {
				return nil, err
			}
			entries = append(entries, prepend(ColumnHashKey, k, entry))
		}
		return entries, nil

	case StructureStream:
		messages, ok := content.([]redis.XMessage)
		if !ok {
			return nil, contentTypeError(st, content)
		}
		entries := make([]Entry, 0, len(messages))
		for _, msg := range messages {
			entry, err := converter.ConvertEntry(msg.Values)
			if err != nil {
				return nil, err
			}
			entries = append(entries, prepend(ColumnStreamID, msg.ID, entry))
		}
		return entries, nil

	default:
		return nil, fmt.Errorf("unknown structure type: %q", st)
	}
}

// prepend places a reserved field in front of a converted row.
func prepend(column string, value any, entry Entry) Entry {
	out := make(Entry, 0, len(entry)+1)
	out = append(out, Cell{Name: reserved(column), Value: value})
	return append(out, entry...)
}

func contentTypeError(st StructureType, content any) error {
	return fmt.Errorf("unexpected %s content %T", st, content)
}
