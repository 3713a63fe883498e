package setup

import (
	"fmt"

	"github.com/mapkit-go/mapkit"
	"github.com/mapkit-go/mapkit/sqlite"
)

// Setup accumulates registrations and freezes them into an Env. It is the
// only mutation surface of the toolkit; once Finalize has run, the returned
// Env and its registries are read-only.
type Setup struct {
	repositories map[string]mapkit.Repository
	relations    map[string]mapkit.Relation
	mappers      map[string][]mapkit.Mapper
	commands     map[string]*mapkit.CommandSet
}

// New returns an empty Setup.
func New() *Setup {
	return &Setup{
		repositories: make(map[string]mapkit.Repository),
		relations:    make(map[string]mapkit.Relation),
		mappers:      make(map[string][]mapkit.Mapper),
		commands:     make(map[string]*mapkit.CommandSet),
	}
}

// Repository registers a storage handle. Duplicate names are an error.
func (s *Setup) Repository(name string, repo mapkit.Repository) error {
	if _, exists := s.repositories[name]; exists {
		return fmt.Errorf("setup: repository %q already registered", name)
	}
	s.repositories[name] = repo
	return nil
}

// Relation registers a relation under name.
func (s *Setup) Relation(name string, rel mapkit.Relation) error {
	if _, exists := s.relations[name]; exists {
		return fmt.Errorf("setup: relation %q already registered", name)
	}
	s.relations[name] = rel
	return nil
}

// Mappers registers the mapper pipeline for name, in application order.
func (s *Setup) Mappers(name string, ms ...mapkit.Mapper) error {
	if _, exists := s.mappers[name]; exists {
		return fmt.Errorf("setup: mappers for %q already registered", name)
	}
	s.mappers[name] = append([]mapkit.Mapper(nil), ms...)
	return nil
}

// Commands registers the command set for name.
func (s *Setup) Commands(name string, set *mapkit.CommandSet) error {
	if _, exists := s.commands[name]; exists {
		return fmt.Errorf("setup: commands for %q already registered", name)
	}
	s.commands[name] = set
	return nil
}

// Finalize freezes the registrations into an immutable Env. The Setup can
// be discarded afterwards; further registrations do not reach the Env.
func (s *Setup) Finalize() *mapkit.Env {
	return mapkit.New(
		s.repositories,
		mapkit.NewRelationRegistry(s.relations),
		mapkit.NewMapperRegistry(s.mappers),
		mapkit.NewCommandRegistry(s.commands),
	)
}

// FromConfig opens the configured sqlite gateway, applies migrations when a
// migration directory is configured, and builds an Env with one dataset
// relation (plus optionally the default command set) per configured
// relation. The returned closer releases the database handle.
func FromConfig(cfg Config) (*mapkit.Env, func() error, error) {
	if cfg.Database.Migrations != "" {
		if err := sqlite.RunMigrations(cfg.Database.Path, cfg.Database.Migrations); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	gw := sqlite.NewGateway(db)

	s := New()
	if err := s.Repository("default", gw); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	for _, rc := range cfg.Relations {
		if err := s.Relation(rc.Name, gw.Dataset(rc.Name, rc.table())); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if rc.Commands {
			if err := s.Commands(rc.Name, gw.Commands(rc.Name, rc.table(), rc.pk())); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
	}
	return s.Finalize(), db.Close, nil
}
