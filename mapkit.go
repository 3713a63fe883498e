// Package mapkit is the runtime environment of a small data-mapper
// toolkit. An Env exposes named relations (queryable data sources), mapper
// pipelines that shape fetched rows, and command sets for writes through a
// single lookup facade. All four backing registries are frozen at
// construction, so an Env is safe for unsynchronized concurrent use.
package mapkit

import (
	"log"
	"sort"
)

// Repository is an opaque handle to a configured storage backend. The Env
// only carries it for lookup; fetches and writes go through the relations
// and command sets built on top of it at bootstrap.
type Repository interface {
	// Kind identifies the backend, e.g. "sqlite".
	Kind() string
}

// Env is the environment facade. Immutable after New: no field may be
// reassigned, and none of the registries expose mutation.
type Env struct {
	repositories map[string]Repository
	relations    *RelationRegistry
	mappers      *MapperRegistry
	commands     *CommandRegistry
}

// New builds an Env from the bootstrap output. The repositories map is
// copied; nil registries are replaced with empty ones.
func New(repositories map[string]Repository, relations *RelationRegistry, mappers *MapperRegistry, commands *CommandRegistry) *Env {
	repos := make(map[string]Repository, len(repositories))
	for name, r := range repositories {
		repos[name] = r
	}
	if relations == nil {
		relations = NewRelationRegistry(nil)
	}
	if mappers == nil {
		mappers = NewMapperRegistry(nil)
	}
	if commands == nil {
		commands = NewCommandRegistry(nil)
	}
	return &Env{
		repositories: repos,
		relations:    relations,
		mappers:      mappers,
		commands:     commands,
	}
}

// Relation resolves name to a lazy relation. Refinements are applied to the
// raw registered relation in order, before the lazy wrapper; when a mapper
// pipeline is configured for name it is bound to the wrapper, so
// materialized output passes through it. No fetch happens here.
func (e *Env) Relation(name string, refinements ...Refinement) (*LazyRelation, error) {
	rel, err := e.relations.Get(name)
	if err != nil {
		return nil, err
	}
	for _, refine := range refinements {
		rel = refine(rel)
	}
	if pipeline, ok := e.mappers.Lookup(name); ok {
		return NewLazyRelation(rel, pipeline...), nil
	}
	return NewLazyRelation(rel), nil
}

// Read resolves name exactly like Relation.
//
// Deprecated: use Relation. Read logs a one-line migration notice on every
// call; the returned value is identical to Relation's.
func (e *Env) Read(name string, refinements ...Refinement) (*LazyRelation, error) {
	log.Printf("mapkit: Env.Read is deprecated, use Env.Relation(%q) instead", name)
	return e.Relation(name, refinements...)
}

// Command resolves name to its command set. When a mapper pipeline is
// configured for name the returned set is an independent derived copy with
// the pipeline bound; the registry entry itself is never modified.
func (e *Env) Command(name string) (*CommandSet, error) {
	set, err := e.commands.Get(name)
	if err != nil {
		return nil, err
	}
	if pipeline, ok := e.mappers.Lookup(name); ok {
		return set.WithMappers(pipeline...), nil
	}
	return set, nil
}

// Repository returns the storage handle registered under name.
func (e *Env) Repository(name string) (Repository, error) {
	repo, ok := e.repositories[name]
	if !ok {
		names := make([]string, 0, len(e.repositories))
		for n := range e.repositories {
			names = append(names, n)
		}
		return nil, notFound(KindRepository, name, names)
	}
	return repo, nil
}

// RepositoryNames returns the registered repository names, sorted.
func (e *Env) RepositoryNames() []string {
	names := make([]string, 0, len(e.repositories))
	for name := range e.repositories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Relations returns the relation registry.
func (e *Env) Relations() *RelationRegistry { return e.relations }

// Mappers returns the mapper registry.
func (e *Env) Mappers() *MapperRegistry { return e.mappers }

// Commands returns the command registry.
func (e *Env) Commands() *CommandRegistry { return e.commands }

// Equal reports structural equality: both Envs hold the same repositories,
// relations, mapper pipelines and command sets, entry by entry.
func (e *Env) Equal(other *Env) bool {
	if other == nil {
		return false
	}
	if len(e.repositories) != len(other.repositories) {
		return false
	}
	for name, repo := range e.repositories {
		o, ok := other.repositories[name]
		if !ok || !sameRef(repo, o) {
			return false
		}
	}
	return e.relations.equal(other.relations) &&
		e.mappers.equal(other.mappers) &&
		e.commands.equal(other.commands)
}
