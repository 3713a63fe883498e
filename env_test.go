package mapkit

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRelation is an instrumented in-memory relation counting fetches.
type fakeRelation struct {
	name    string
	rows    []Tuple
	fetches int
}

func (r *fakeRelation) Name() string { return r.name }

func (r *fakeRelation) Tuples(ctx context.Context) ([]Tuple, error) {
	r.fetches++
	out := make([]Tuple, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

// filteredRelation derives from a base relation without copying its rows.
type filteredRelation struct {
	base Relation
	keep func(Tuple) bool
}

func (r *filteredRelation) Name() string { return r.base.Name() }

func (r *filteredRelation) Tuples(ctx context.Context) ([]Tuple, error) {
	rows, err := r.base.Tuples(ctx)
	if err != nil {
		return nil, err
	}
	var out []Tuple
	for _, t := range rows {
		if r.keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeRepo struct{ kind string }

func (r *fakeRepo) Kind() string { return r.kind }

func userRows() []Tuple {
	return []Tuple{
		{"id": "u1", "name": "ada"},
		{"id": "u2", "name": "grace"},
	}
}

func testEnv(users *fakeRelation, mappers map[string][]Mapper, commands map[string]*CommandSet) *Env {
	return New(
		map[string]Repository{"default": &fakeRepo{kind: "memory"}},
		NewRelationRegistry(map[string]Relation{users.name: users}),
		NewMapperRegistry(mappers),
		NewCommandRegistry(commands),
	)
}

func TestRelationUnmappedDeterministic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, nil, nil)

	lazy, err := env.Relation("users")
	require.NoError(t, err)

	first, err := lazy.Materialize(ctx)
	require.NoError(t, err)
	second, err := lazy.Materialize(ctx)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 2)
	require.Equal(t, any(Tuple{"id": "u1", "name": "ada"}), first[0])
}

func TestRelationMapperPipelineOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m1 := MapperFunc(func(v any) (any, error) {
		t := v.(Tuple)
		return t["name"].(string) + "|first", nil
	})
	m2 := MapperFunc(func(v any) (any, error) {
		return v.(string) + "|second", nil
	})

	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, map[string][]Mapper{"users": {m1, m2}}, nil)

	lazy, err := env.Relation("users")
	require.NoError(t, err)
	out, err := lazy.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"ada|first|second", "grace|first|second"}, out)

	// equivalent to applying the pipeline to the unmapped output
	bare := NewLazyRelation(users)
	raw, err := bare.Materialize(ctx)
	require.NoError(t, err)
	for i, v := range raw {
		shaped, err := applyMappers([]Mapper{m1, m2}, v)
		require.NoError(t, err)
		require.Equal(t, out[i], shaped)
	}
}

func TestRelationIsLazy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, nil, nil)

	lazy, err := env.Relation("users")
	require.NoError(t, err)
	require.Equal(t, 0, users.fetches, "resolving must not fetch")

	_, err = lazy.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, users.fetches)

	_, err = lazy.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, users.fetches, "every materialization re-fetches")
}

func TestRefinementAppliedBeforeWrapping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	pick := MapperFunc(func(v any) (any, error) {
		return v.(Tuple)["name"], nil
	})
	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, map[string][]Mapper{"users": {pick}}, nil)

	var sawRaw Relation
	lazy, err := env.Relation("users", func(r Relation) Relation {
		sawRaw = r
		return &filteredRelation{base: r, keep: func(t Tuple) bool { return t["id"] == "u2" }}
	})
	require.NoError(t, err)
	require.Same(t, Relation(users), sawRaw, "refinement receives the raw registered relation")

	_, ok := lazy.Relation().(*filteredRelation)
	require.True(t, ok, "the refined relation is what gets wrapped")

	out, err := lazy.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"grace"}, out, "mappers run on the refined rows")
}

func TestRelationNotFound(t *testing.T) {
	t.Parallel()

	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, nil, nil)

	lazy, err := env.Relation("userz")
	require.Nil(t, lazy)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, KindRelation, nf.Kind)
	require.Equal(t, "userz", nf.Name)
	require.Contains(t, err.Error(), `"userz"`)
	require.Contains(t, err.Error(), `did you mean "users"`)
}

func TestCommandNotFound(t *testing.T) {
	t.Parallel()

	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, nil, nil)

	set, err := env.Command("missing")
	require.Nil(t, set)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, KindCommand, nf.Kind)
	require.Contains(t, err.Error(), `"missing"`)
}

func TestCommandMapperBindingDerivesNewSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	echo := CommandFunc(func(ctx context.Context, input any) (any, error) {
		return input, nil
	})
	upper := MapperFunc(func(v any) (any, error) {
		return strings.ToUpper(v.(string)), nil
	})

	raw := NewCommandSet("users", map[string]Command{"create": echo})
	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, map[string][]Mapper{"users": {upper}}, map[string]*CommandSet{"users": raw})

	first, err := env.Command("users")
	require.NoError(t, err)
	second, err := env.Command("users")
	require.NoError(t, err)
	require.NotSame(t, first, second, "each resolution derives an independent set")
	require.True(t, first.Mapped())

	out, err := first.Call(ctx, "create", "ada")
	require.NoError(t, err)
	require.Equal(t, "ADA", out)

	// deriving further from one resolution leaves the registry entry pristine
	_ = first.WithMappers(upper, upper)
	entry, err := env.Commands().Get("users")
	require.NoError(t, err)
	require.Same(t, raw, entry)
	require.False(t, entry.Mapped())

	rawOut, err := entry.Call(ctx, "create", "ada")
	require.NoError(t, err)
	require.Equal(t, "ada", rawOut)
}

func TestReadMatchesRelationAndWarns(t *testing.T) {
	// not parallel: swaps the process logger
	ctx := context.Background()

	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, map[string][]Mapper{"users": {MapperFunc(func(v any) (any, error) {
		return v.(Tuple)["id"], nil
	})}}, nil)

	viaRead, err := env.Read("users")
	require.NoError(t, err)
	viaRelation, err := env.Relation("users")
	require.NoError(t, err)

	require.Same(t, viaRead.Relation(), viaRelation.Relation())
	require.Len(t, viaRead.Mappers(), len(viaRelation.Mappers()))

	a, err := viaRead.Materialize(ctx)
	require.NoError(t, err)
	b, err := viaRelation.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, b, a)

	require.Contains(t, buf.String(), "deprecated")
	require.Contains(t, buf.String(), "Env.Relation")
}

func TestEmptyMapperPipelineIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := &fakeRelation{name: "users", rows: userRows()}
	env := testEnv(users, map[string][]Mapper{"users": {}}, nil)

	lazy, err := env.Relation("users")
	require.NoError(t, err)
	out, err := lazy.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{any(Tuple{"id": "u1", "name": "ada"}), any(Tuple{"id": "u2", "name": "grace"})}, out)
}

func TestEnvEqual(t *testing.T) {
	t.Parallel()

	users := &fakeRelation{name: "users", rows: userRows()}
	orders := &fakeRelation{name: "orders"}
	repo := &fakeRepo{kind: "memory"}
	pick := MapperFunc(func(v any) (any, error) { return v, nil })
	set := NewCommandSet("users", map[string]Command{"create": CommandFunc(func(ctx context.Context, input any) (any, error) {
		return input, nil
	})})

	build := func() *Env {
		return New(
			map[string]Repository{"default": repo},
			NewRelationRegistry(map[string]Relation{"users": users}),
			NewMapperRegistry(map[string][]Mapper{"users": {pick}}),
			NewCommandRegistry(map[string]*CommandSet{"users": set}),
		)
	}

	a := build()
	b := build()
	require.True(t, a.Equal(b), "same pieces, distinct registries: structurally equal")
	require.True(t, b.Equal(a))

	withExtraRelation := New(
		map[string]Repository{"default": repo},
		NewRelationRegistry(map[string]Relation{"users": users, "orders": orders}),
		a.Mappers(),
		a.Commands(),
	)
	require.False(t, a.Equal(withExtraRelation))

	withOtherRepo := New(
		map[string]Repository{"default": &fakeRepo{kind: "memory"}},
		a.Relations(),
		a.Mappers(),
		a.Commands(),
	)
	require.False(t, a.Equal(withOtherRepo))

	withoutMappers := New(
		map[string]Repository{"default": repo},
		a.Relations(),
		NewMapperRegistry(nil),
		a.Commands(),
	)
	require.False(t, a.Equal(withoutMappers))

	withoutCommands := New(
		map[string]Repository{"default": repo},
		a.Relations(),
		a.Mappers(),
		NewCommandRegistry(nil),
	)
	require.False(t, a.Equal(withoutCommands))

	require.False(t, a.Equal(nil))
}

func TestScenarioMappedAndUnmappedRelations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	presenter := MapperFunc(func(v any) (any, error) {
		t := v.(Tuple)
		return fmt.Sprintf("%s <%s>", t["name"], t["id"]), nil
	})
	users := &fakeRelation{name: "users", rows: userRows()}
	orders := &fakeRelation{name: "orders", rows: []Tuple{{"id": "o1", "total": 42}}}

	env := New(
		map[string]Repository{"default": &fakeRepo{kind: "memory"}},
		NewRelationRegistry(map[string]Relation{"users": users, "orders": orders}),
		NewMapperRegistry(map[string][]Mapper{"users": {presenter}}),
		NewCommandRegistry(nil),
	)

	shaped, err := env.Relation("users")
	require.NoError(t, err)
	out, err := shaped.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"ada <u1>", "grace <u2>"}, out)

	bare, err := env.Relation("orders")
	require.NoError(t, err)
	rows, err := bare.Materialize(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{any(Tuple{"id": "o1", "total": 42})}, rows)

	_, err = env.Command("missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"missing"`)
}
