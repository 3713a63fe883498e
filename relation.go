package mapkit

import "context"

// Tuple is the native row form produced by a relation: column name to value.
type Tuple map[string]any

// Relation is a named, queryable data source. Implementations must be
// immutable: refinements derive a new Relation rather than modifying the
// receiver, so a registered relation can be shared freely.
type Relation interface {
	// Name returns the symbolic name the relation is registered under.
	Name() string
	// Tuples executes the fetch and returns the raw rows. Implementations
	// must not cache; every call re-reads the underlying source.
	Tuples(ctx context.Context) ([]Tuple, error)
}

// Refinement narrows a relation (filters, ordering, pagination) without
// executing it. It receives the raw relation and must return the narrowed
// one, leaving its argument untouched.
type Refinement func(Relation) Relation
