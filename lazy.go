package mapkit

import "context"

// LazyRelation wraps a relation together with the mapper pipeline bound to
// it. Construction is allocation-only; nothing touches the underlying data
// source until Materialize or Each is called.
type LazyRelation struct {
	relation Relation
	mappers  []Mapper
}

// NewLazyRelation wraps rel. Any mappers given are bound in order and
// applied at materialization time.
func NewLazyRelation(rel Relation, mappers ...Mapper) *LazyRelation {
	return &LazyRelation{relation: rel, mappers: mappers}
}

// Relation returns the wrapped (already refined) relation.
func (l *LazyRelation) Relation() Relation { return l.relation }

// Mappers returns the bound pipeline in application order.
func (l *LazyRelation) Mappers() []Mapper {
	out := make([]Mapper, len(l.mappers))
	copy(out, l.mappers)
	return out
}

// Materialize executes the fetch and routes every tuple through the bound
// pipeline. With no pipeline bound the tuples come back unchanged, one per
// element.
func (l *LazyRelation) Materialize(ctx context.Context) ([]any, error) {
	tuples, err := l.relation.Tuples(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(tuples))
	for _, t := range tuples {
		v, err := applyMappers(l.mappers, any(t))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Each materializes the relation and calls fn for every shaped value,
// stopping at the first error.
func (l *LazyRelation) Each(ctx context.Context, fn func(any) error) error {
	vs, err := l.Materialize(ctx)
	if err != nil {
		return err
	}
	for _, v := range vs {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
