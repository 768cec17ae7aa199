package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Catalog resolves definitions by identifier. Implementations must return a fresh
// value on every call: definitions are never cached.
type Catalog interface {
	ContentType(ctx context.Context, identifier string) (*ContentType, error)
	Structure(ctx context.Context, identifier string) (*Structure, error)
}

var _ Catalog = (*Client)(nil)

// ContentType reads a content type definition from the catalog.
// Returns an error wrapping ErrNotDefined if it is not registered.
func (c *Client) ContentType(ctx context.Context, identifier string) (*ContentType, error) {
	var ct ContentType
	if err := c.readDefinition(ctx, ContentTypesKey, identifier, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// Structure reads a structure definition from the catalog.
// Returns an error wrapping ErrNotDefined if it is not registered.
func (c *Client) Structure(ctx context.Context, identifier string) (*Structure, error) {
	var s Structure
	if err := c.readDefinition(ctx, StructuresKey, identifier, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ContentTypes returns every registered content type ordered by identifier.
func (c *Client) ContentTypes(ctx context.Context) ([]*ContentType, error) {
	raw, err := c.readAll(ctx, ContentTypesKey)
	if err != nil {
		return nil, err
	}
	out := make([]*ContentType, 0, len(raw))
	for _, id := range sortedKeys(raw) {
		var ct ContentType
		if err := json.Unmarshal([]byte(raw[id]), &ct); err != nil {
			return nil, fmt.Errorf("failed to decode content type %s: %w", id, err)
		}
		out = append(out, &ct)
	}
	return out, nil
}

// Structures returns every registered structure ordered by identifier.
func (c *Client) Structures(ctx context.Context) ([]*Structure, error) {
	raw, err := c.readAll(ctx, StructuresKey)
	if err != nil {
		return nil, err
	}
	out := make([]*Structure, 0, len(raw))
	for _, id := range sortedKeys(raw) {
		var s Structure
		if err := json.Unmarshal([]byte(raw[id]), &s); err != nil {
			return nil, fmt.Errorf("failed to decode structure %s: %w", id, err)
		}
		out = append(out, &s)
	}
	return out, nil
}

// DefineContentType validates a content type and writes its canonical JSON.
// Writing an unchanged definition is idempotent.
func (c *Client) DefineContentType(ctx context.Context, ct *ContentType) error {
	if err := ct.Validate(); err != nil {
		return fmt.Errorf("invalid content type: %w", err)
	}
	return c.writeDefinition(ctx, ContentTypesKey, ct.Identifier, ct.canonical())
}

// DefineStructure validates a structure and writes its canonical JSON.
func (c *Client) DefineStructure(ctx context.Context, s *Structure) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid structure: %w", err)
	}
	return c.writeDefinition(ctx, StructuresKey, s.Identifier, s.canonical())
}

// View resolves a structure by identifier, fills its key tokens and builds its view.
func (c *Client) View(ctx context.Context, identifier string, tokens ...string) (*Table, error) {
	s, err := c.Structure(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if len(s.KeyTokens) > 0 || len(tokens) > 0 {
		if s, err = s.WithTokens(tokens); err != nil {
			return nil, err
		}
	}
	return s.View(ctx, c.rdb, c)
}

func (c *Client) readDefinition(ctx context.Context, registry, identifier string, v any) error {
	raw, err := c.rdb.HGet(ctx, registry, identifier).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s in %s", ErrNotDefined, identifier, registry)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s from %s: %w", identifier, registry, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode %s from %s: %w", identifier, registry, err)
	}
	return nil
}

func (c *Client) readAll(ctx context.Context, registry string) (map[string]string, error) {
	raw, err := c.rdb.HGetAll(ctx, registry).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", registry, err)
	}
	return raw, nil
}

func (c *Client) writeDefinition(ctx context.Context, registry, identifier string, v any) error {
	text, err := CanonicalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", identifier, err)
	}
	if err := c.rdb.HSet(ctx, registry, identifier, text).Err(); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", identifier, registry, err)
	}
	slog.Debug("definition registered", "registry", registry, "identifier", identifier)
	return nil
}

// canonical returns a copy with sets sorted and empty collections non-nil.
func (e Element) canonical() Element {
	e.Tags = sortedSet(e.Tags)
	return e
}

func (ct *ContentType) canonical() *ContentType {
	out := *ct
	out.Element = ct.Element.canonical()
	out.Properties = make(map[string]string, len(ct.Properties))
	for k, v := range ct.Properties {
		out.Properties[k] = v
	}
	return &out
}

func (s *Structure) canonical() *Structure {
	out := s.clone()
	out.Element = s.Element.canonical()
	for i := range out.Joins {
		p := out.Joins[i].PrefixOrDefault()
		out.Joins[i].Prefix = &p
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
