package types_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldt-lang/veldt/frontend/types"
	"github.com/veldt-lang/veldt/frontend/verr"
)

type fakeResolver map[string]*types.Module

func (r fakeResolver) GetModule(name string) (*types.Module, bool) {
	m, ok := r[name]
	return m, ok
}

func pushRequire(e *env, moduleName types.TypeID) types.TypePackID {
	result := e.a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       types.NewRequireFunction(e.a),
		ArgsPack: e.a.NewPack(&types.ListPack{Head: []types.TypeID{moduleName}}),
		Result:   result,
	})
	return result
}

func TestRequireResolvesModuleReturns(t *testing.T) {
	e := newEnv()
	a := e.a
	resolver := fakeResolver{
		"util": {Name: "util", Returns: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}})},
	}
	result := pushRequire(e, a.New(types.StringSingleton("util")))

	s := e.newSolver(resolver, nil)
	require.NoError(t, s.Run(context.Background()))
	requireNoTypeErrors(t, s)
	assert.Equal(t, "number", a.PackString(result))
}

func TestRequireUnknownModule(t *testing.T) {
	e := newEnv()
	a := e.a
	result := pushRequire(e, a.New(types.StringSingleton("missing")))

	s := e.newSolver(fakeResolver{}, nil)
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, verr.UnknownRequire, firstCode(s))
	assert.Equal(t, "*error-pack*", a.PackString(result))
}

func TestRequireWithoutResolver(t *testing.T) {
	e := newEnv()
	result := pushRequire(e, e.a.New(types.StringSingleton("anything")))

	s := e.solve(t)
	assert.Equal(t, verr.UnknownRequire, firstCode(s))
	assert.Equal(t, "*error-pack*", e.a.PackString(result))
}

func TestRequireNameMustBeLiteral(t *testing.T) {
	e := newEnv()
	a := e.a
	resolver := fakeResolver{
		"util": {Name: "util", Returns: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}})},
	}
	result := pushRequire(e, a.Builtins.String)

	s := e.newSolver(resolver, nil)
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, verr.IllegalRequire, firstCode(s))
	assert.Equal(t, "*error-pack*", a.PackString(result))
}

func TestRequireMissingArgument(t *testing.T) {
	e := newEnv()
	a := e.a
	result := a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       types.NewRequireFunction(a),
		ArgsPack: a.NewPack(&types.ListPack{}),
		Result:   result,
	})

	s := e.solve(t)
	assert.Equal(t, verr.IllegalRequire, firstCode(s))
}

func TestRequireCycleDecaysExportedGenerics(t *testing.T) {
	e := newEnv()
	a := e.a
	generic := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	exported := a.New(&types.FunctionType{
		Generics: []types.TypeID{generic},
		ArgPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{generic}}),
		RetPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{generic}}),
	})
	resolver := fakeResolver{
		"a": {Name: "a", Returns: a.NewPack(&types.ListPack{Head: []types.TypeID{exported}})},
	}
	result := pushRequire(e, a.New(types.StringSingleton("a")))

	s := e.newSolver(resolver, [][]string{{"a", "b"}})
	require.NoError(t, s.Run(context.Background()))
	requireNoTypeErrors(t, s)
	assert.Equal(t, "(any) -> any", a.PackString(result))
}

func TestRequireOffCycleKeepsGenerics(t *testing.T) {
	e := newEnv()
	a := e.a
	generic := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	exported := a.New(&types.FunctionType{
		Generics: []types.TypeID{generic},
		ArgPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{generic}}),
		RetPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{generic}}),
	})
	resolver := fakeResolver{
		"a": {Name: "a", Returns: a.NewPack(&types.ListPack{Head: []types.TypeID{exported}})},
	}
	result := pushRequire(e, a.New(types.StringSingleton("a")))

	s := e.newSolver(resolver, [][]string{{"b", "c"}})
	require.NoError(t, s.Run(context.Background()))
	requireNoTypeErrors(t, s)
	flat := a.Flatten(result)
	require.Len(t, flat.Head, 1)
	assert.Equal(t, a.Follow(exported), a.Follow(flat.Head[0]))
}
