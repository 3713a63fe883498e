package mapkit

import (
	"context"
	"sort"
)

// Command is a single mutation capability (create, update, delete style)
// scoped to one relation. Call returns whatever the storage layer reports
// for the mutation, typically the affected row as a Tuple.
type Command interface {
	Call(ctx context.Context, input any) (any, error)
}

// CommandFunc adapts a plain function to Command.
type CommandFunc func(ctx context.Context, input any) (any, error)

func (f CommandFunc) Call(ctx context.Context, input any) (any, error) { return f(ctx, input) }

// CommandSet bundles the commands configured for one relation, keyed by
// operation name ("create", "update", "delete", ...). A set with a bound
// mapper pipeline routes every command result through it.
type CommandSet struct {
	relation string
	commands map[string]Command
	mappers  []Mapper
}

// NewCommandSet builds a set for relation from the given commands. The map
// is copied; later changes to it do not affect the set.
func NewCommandSet(relation string, commands map[string]Command) *CommandSet {
	cmds := make(map[string]Command, len(commands))
	for op, c := range commands {
		cmds[op] = c
	}
	return &CommandSet{relation: relation, commands: cmds}
}

// RelationName returns the name of the relation the set is scoped to.
func (s *CommandSet) RelationName() string { return s.relation }

// Ops returns the registered operation names, sorted.
func (s *CommandSet) Ops() []string {
	ops := make([]string, 0, len(s.commands))
	for op := range s.commands {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Mapped reports whether a mapper pipeline is bound to the set.
func (s *CommandSet) Mapped() bool { return s.mappers != nil }

// WithMappers returns an independent derived set whose command results pass
// through ms in order. The receiver is left untouched.
func (s *CommandSet) WithMappers(ms ...Mapper) *CommandSet {
	derived := NewCommandSet(s.relation, s.commands)
	derived.mappers = make([]Mapper, len(ms))
	copy(derived.mappers, ms)
	return derived
}

// Get returns the command registered for op. On a mapped set the returned
// command routes its result through the bound pipeline.
func (s *CommandSet) Get(op string) (Command, error) {
	cmd, ok := s.commands[op]
	if !ok {
		return nil, notFound(KindCommand, s.relation+"."+op, s.qualifiedOps())
	}
	if len(s.mappers) == 0 {
		return cmd, nil
	}
	return &mappedCommand{cmd: cmd, mappers: s.mappers}, nil
}

// Call looks up op and executes it with input.
func (s *CommandSet) Call(ctx context.Context, op string, input any) (any, error) {
	cmd, err := s.Get(op)
	if err != nil {
		return nil, err
	}
	return cmd.Call(ctx, input)
}

func (s *CommandSet) qualifiedOps() []string {
	ops := s.Ops()
	for i, op := range ops {
		ops[i] = s.relation + "." + op
	}
	return ops
}

// mappedCommand decorates a command with the set's pipeline.
type mappedCommand struct {
	cmd     Command
	mappers []Mapper
}

func (m *mappedCommand) Call(ctx context.Context, input any) (any, error) {
	out, err := m.cmd.Call(ctx, input)
	if err != nil {
		return nil, err
	}
	return applyMappers(m.mappers, out)
}
