package filter

import (
	"path/filepath"

	"github.com/dyluth/micra/pkg/store"
)

// Criteria defines filtering criteria for catalog definitions.
// Both filters are ANDed together; within a filter any pattern may match.
type Criteria struct {
	IDGlobs  []string // Glob patterns for the identifier, empty = no filter
	TagGlobs []string // Glob patterns matched against each tag, empty = no filter
}

// Matches returns true if the element matches all filter criteria.
func (c *Criteria) Matches(e *store.Element) bool {
	if len(c.IDGlobs) > 0 && !anyMatch(c.IDGlobs, []string{e.Identifier}) {
		return false
	}
	if len(c.TagGlobs) > 0 && !anyMatch(c.TagGlobs, e.Tags) {
		return false
	}
	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return len(c.IDGlobs) > 0 || len(c.TagGlobs) > 0
}

// Validate rejects malformed glob patterns up front so Matches never has to.
func (c *Criteria) Validate() error {
	for _, patterns := range [][]string{c.IDGlobs, c.TagGlobs} {
		for _, p := range patterns {
			if _, err := filepath.Match(p, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func anyMatch(patterns, values []string) bool {
	for _, p := range patterns {
		for _, v := range values {
			if matched, err := filepath.Match(p, v); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// ContentTypes keeps the content types matching c, in order.
func (c *Criteria) ContentTypes(cts []*store.ContentType) []*store.ContentType {
	var out []*store.ContentType
	for _, ct := range cts {
		if c.Matches(&ct.Element) {
			out = append(out, ct)
		}
	}
	return out
}

// Structures keeps the structures matching c, in order.
func (c *Criteria) Structures(ss []*store.Structure) []*store.Structure {
	var out []*store.Structure
	for _, s := range ss {
		if c.Matches(&s.Element) {
			out = append(out, s)
		}
	}
	return out
}
