// Package resolver expands short job references into full instance names.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/micra/internal/job"
	"github.com/dyluth/micra/pkg/store"
)

// MinShortIDLength is the minimum length of an instance id prefix.
const MinShortIDLength = 6

// ResolveInstance resolves ref to the name of an active job instance.
//
// A ref containing ':' is taken as a full name and must exist. Otherwise it is a
// prefix of the instance id (the last name component) matched against the active
// jobs set, and exactly one job must match.
func ResolveInstance(ctx context.Context, client *store.Client, ref string) (string, error) {
	if strings.Contains(ref, ":") {
		n, err := client.Redis().Exists(ctx, ref).Result()
		if err != nil {
			return "", fmt.Errorf("failed to verify job existence: %w", err)
		}
		if n == 0 {
			return "", &NotFoundError{Ref: ref}
		}
		return ref, nil
	}

	if len(ref) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(ref))
	}

	members, err := client.Redis().SMembers(ctx, job.ActiveKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to search for job: %w", err)
	}

	var matches []string
	for _, name := range members {
		components := store.DecodeName(name)
		if strings.HasPrefix(components[len(components)-1], ref) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Ref: ref}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Ref: ref, Matches: matches}
	}
}

// NotFoundError indicates no job matched the reference.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no active job matching '%s'", e.Ref)
}

// AmbiguousError indicates several jobs matched the short id.
type AmbiguousError struct {
	Ref     string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d jobs", e.Ref, len(e.Matches))
}

// FormatAmbiguousError lists the matching names (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	displayCount := min(len(err.Matches), 10)
	for _, m := range err.Matches[:displayCount] {
		fmt.Fprintf(&b, "  %s\n", m)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}
	return b.String()
}

// IsNotFoundError reports whether err is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAmbiguousError reports whether err is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var target *AmbiguousError
	return errors.As(err, &target)
}
