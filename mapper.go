package mapkit

// Mapper shapes one materialized value. The first mapper in a pipeline
// receives the relation's Tuple; each subsequent mapper receives the
// previous mapper's output, so a pipeline ends in whatever type its last
// mapper produces.
type Mapper interface {
	Map(v any) (any, error)
}

// MapperFunc adapts a plain function to Mapper.
type MapperFunc func(v any) (any, error)

func (f MapperFunc) Map(v any) (any, error) { return f(v) }

// applyMappers routes v through ms in registration order. An empty pipeline
// returns v unchanged.
func applyMappers(ms []Mapper, v any) (any, error) {
	out := v
	for _, m := range ms {
		var err error
		out, err = m.Map(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
