package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// Catalog entries are stored as canonical JSON: object keys sorted, tag sets sorted
// and deduplicated. Re-serializing an unchanged definition yields identical bytes, so
// writes are idempotent and stored definitions diff cleanly.

var canonicalOptions = func() ojg.Options {
	o := ojg.DefaultOptions
	o.Sort = true
	return o
}()

// CanonicalJSON renders v as canonical JSON.
func CanonicalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal definition: %w", err)
	}
	generic, err := oj.Parse(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse definition: %w", err)
	}
	return oj.JSON(generic, &canonicalOptions), nil
}

// sortedSet returns the distinct values of s in sorted order, never nil.
func sortedSet(s []string) []string {
	seen := make(map[string]bool, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
