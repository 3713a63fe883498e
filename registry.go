package mapkit

import (
	"reflect"
	"sort"
)

// RelationRegistry maps symbolic names to relations. Populated once through
// the constructor; read-only afterwards.
type RelationRegistry struct {
	relations map[string]Relation
}

// NewRelationRegistry copies relations into a registry.
func NewRelationRegistry(relations map[string]Relation) *RelationRegistry {
	rs := make(map[string]Relation, len(relations))
	for name, rel := range relations {
		rs[name] = rel
	}
	return &RelationRegistry{relations: rs}
}

// Has reports whether name is registered.
func (r *RelationRegistry) Has(name string) bool {
	_, ok := r.relations[name]
	return ok
}

// Get returns the relation registered under name.
func (r *RelationRegistry) Get(name string) (Relation, error) {
	rel, ok := r.relations[name]
	if !ok {
		return nil, notFound(KindRelation, name, r.Names())
	}
	return rel, nil
}

// Names returns the registered names, sorted.
func (r *RelationRegistry) Names() []string {
	names := make([]string, 0, len(r.relations))
	for name := range r.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *RelationRegistry) equal(other *RelationRegistry) bool {
	if len(r.relations) != len(other.relations) {
		return false
	}
	for name, rel := range r.relations {
		o, ok := other.relations[name]
		if !ok || !sameRef(rel, o) {
			return false
		}
	}
	return true
}

// MapperRegistry maps relation names to the ordered mapper pipeline
// configured for them. Absence of a name is a valid state meaning "no
// transformation configured".
type MapperRegistry struct {
	mappers map[string][]Mapper
}

// NewMapperRegistry copies mappers into a registry. Pipelines keep their
// registration order.
func NewMapperRegistry(mappers map[string][]Mapper) *MapperRegistry {
	ms := make(map[string][]Mapper, len(mappers))
	for name, pipeline := range mappers {
		cp := make([]Mapper, len(pipeline))
		copy(cp, pipeline)
		ms[name] = cp
	}
	return &MapperRegistry{mappers: ms}
}

// Has reports whether a pipeline is configured for name.
func (r *MapperRegistry) Has(name string) bool {
	_, ok := r.mappers[name]
	return ok
}

// Lookup returns the pipeline for name and whether one is configured. An
// empty configured pipeline is present with zero mappers, which behaves as
// a no-op at materialization time.
func (r *MapperRegistry) Lookup(name string) ([]Mapper, bool) {
	pipeline, ok := r.mappers[name]
	if !ok {
		return nil, false
	}
	cp := make([]Mapper, len(pipeline))
	copy(cp, pipeline)
	return cp, true
}

// Get returns the pipeline for name, failing when none is configured.
func (r *MapperRegistry) Get(name string) ([]Mapper, error) {
	pipeline, ok := r.Lookup(name)
	if !ok {
		return nil, notFound(KindMapper, name, r.Names())
	}
	return pipeline, nil
}

// Names returns the names with a configured pipeline, sorted.
func (r *MapperRegistry) Names() []string {
	names := make([]string, 0, len(r.mappers))
	for name := range r.mappers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *MapperRegistry) equal(other *MapperRegistry) bool {
	if len(r.mappers) != len(other.mappers) {
		return false
	}
	for name, pipeline := range r.mappers {
		o, ok := other.mappers[name]
		if !ok || len(pipeline) != len(o) {
			return false
		}
		for i := range pipeline {
			if !sameRef(pipeline[i], o[i]) {
				return false
			}
		}
	}
	return true
}

// CommandRegistry maps relation names to their configured command set.
type CommandRegistry struct {
	commands map[string]*CommandSet
}

// NewCommandRegistry copies sets into a registry.
func NewCommandRegistry(commands map[string]*CommandSet) *CommandRegistry {
	cs := make(map[string]*CommandSet, len(commands))
	for name, set := range commands {
		cs[name] = set
	}
	return &CommandRegistry{commands: cs}
}

// Has reports whether a command set is registered for name.
func (r *CommandRegistry) Has(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Get returns the command set registered under name.
func (r *CommandRegistry) Get(name string) (*CommandSet, error) {
	set, ok := r.commands[name]
	if !ok {
		return nil, notFound(KindCommand, name, r.Names())
	}
	return set, nil
}

// Names returns the registered names, sorted.
func (r *CommandRegistry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *CommandRegistry) equal(other *CommandRegistry) bool {
	if len(r.commands) != len(other.commands) {
		return false
	}
	for name, set := range r.commands {
		if o, ok := other.commands[name]; !ok || o != set {
			return false
		}
	}
	return true
}

// sameRef compares two registry entries by identity. Entries are typically
// pointers or func values; func, map and slice values are not comparable
// with ==, so those compare by underlying pointer.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice:
		return va.Pointer() == vb.Pointer()
	default:
		if !va.Type().Comparable() {
			return false
		}
		return a == b
	}
}
