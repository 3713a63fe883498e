package mapkit

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// Registry kinds used in NotFoundError messages.
const (
	KindRepository = "repository"
	KindRelation   = "relation"
	KindMapper     = "mapper"
	KindCommand    = "command"
)

// NotFoundError reports a symbolic name absent from a registry. It signals
// a configuration error (unknown name), not a transient condition.
type NotFoundError struct {
	Kind       string
	Name       string
	Suggestion string // nearest registered name, "" when nothing is close
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("mapkit: %s %q not found (did you mean %q?)", e.Kind, e.Name, e.Suggestion)
	}
	return fmt.Sprintf("mapkit: %s %q not found", e.Kind, e.Name)
}

func notFound(kind, name string, known []string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name, Suggestion: nearestName(name, known)}
}

// nearestName returns the registered name closest to name, or "" when no
// candidate is within edit distance 2 (anything further is unlikely to be
// a typo).
func nearestName(name string, known []string) string {
	best := ""
	bestDist := 3
	for _, k := range known {
		if d := levenshtein.ComputeDistance(name, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
