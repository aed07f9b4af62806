package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldt-lang/veldt/frontend/types"
	"github.com/veldt-lang/veldt/frontend/verr"
)

// definePair registers Pair<T, U = T> = {first: T, second: U} and
// returns its generics.
func definePair(e *env) (t, u types.TypeID) {
	t = e.a.New(&types.GenericType{Name: "T", Scope: e.scope})
	u = e.a.New(&types.GenericType{Name: "U", Scope: e.scope})
	e.scope.TypeAliases["Pair"] = &types.TypeAlias{
		Name: "Pair",
		TypeParams: []types.TypeParam{
			{Generic: t},
			{Generic: u, Default: t},
		},
		Body: e.a.New(&types.TableType{
			Props: map[string]types.Property{
				"first":  types.SharedProperty(t),
				"second": types.SharedProperty(u),
			},
			State: types.TableSealed,
		}),
	}
	return t, u
}

func expand(e *env, name string, tys []types.TypeID, packs []types.TypePackID) types.TypeID {
	pending := e.a.New(&types.PendingExpansionType{
		Name:          name,
		TypeArguments: tys,
		PackArguments: packs,
	})
	e.push(&types.TypeAliasExpansionConstraint{Target: pending})
	return pending
}

func TestAliasDefaultFillsMissingParameter(t *testing.T) {
	e := newEnv()
	definePair(e)
	pending := expand(e, "Pair", []types.TypeID{e.a.Builtins.Number}, nil)

	s := e.solve(t)
	requireNoTypeErrors(t, s)

	table, ok := e.a.Resolve(pending).(*types.TableType)
	require.True(t, ok, "expected a table, got %s", e.a.TypeString(pending))
	assert.Equal(t, "number", e.a.TypeString(table.Props["first"].ReadType))
	assert.Equal(t, "number", e.a.TypeString(table.Props["second"].ReadType))
}

func TestAliasExplicitSecondArgument(t *testing.T) {
	e := newEnv()
	definePair(e)
	pending := expand(e, "Pair", []types.TypeID{e.a.Builtins.Number, e.a.Builtins.String}, nil)

	s := e.solve(t)
	requireNoTypeErrors(t, s)

	table, ok := e.a.Resolve(pending).(*types.TableType)
	require.True(t, ok)
	assert.Equal(t, "number", e.a.TypeString(table.Props["first"].ReadType))
	assert.Equal(t, "string", e.a.TypeString(table.Props["second"].ReadType))
}

func TestAliasOverflowIntoPackParameter(t *testing.T) {
	e := newEnv()
	a := e.a
	tGen := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	aPack := a.NewPack(&types.GenericPack{Name: "A"})
	e.scope.TypeAliases["Fn"] = &types.TypeAlias{
		Name:       "Fn",
		TypeParams: []types.TypeParam{{Generic: tGen}},
		PackParams: []types.PackParam{{Generic: aPack}},
		Body: a.New(&types.FunctionType{
			ArgPack: aPack,
			RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{tGen}}),
		}),
	}
	pending := expand(e, "Fn",
		[]types.TypeID{a.Builtins.Number, a.Builtins.String, a.Builtins.Boolean}, nil)

	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "(string, boolean) -> number", a.TypeString(pending))
}

func TestAliasMissingArgumentPadsWithError(t *testing.T) {
	e := newEnv()
	a := e.a
	tGen := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	e.scope.TypeAliases["Box"] = &types.TypeAlias{
		Name:       "Box",
		TypeParams: []types.TypeParam{{Generic: tGen}},
		Body: a.New(&types.TableType{
			Props: map[string]types.Property{"value": types.SharedProperty(tGen)},
			State: types.TableSealed,
		}),
	}
	pending := expand(e, "Box", nil, nil)

	s := e.solve(t)
	requireNoTypeErrors(t, s)

	table, ok := a.Resolve(pending).(*types.TableType)
	require.True(t, ok)
	assert.Equal(t, "*error-type*", a.TypeString(table.Props["value"].ReadType))
}

func TestAliasIdentityApplicationBindsBody(t *testing.T) {
	e := newEnv()
	tGen, u := definePair(e)
	pending := expand(e, "Pair", []types.TypeID{tGen, u}, nil)

	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, e.a.Follow(e.scope.TypeAliases["Pair"].Body), e.a.Follow(pending))
}

func TestAliasSelfApplicationFailsOccursCheck(t *testing.T) {
	e := newEnv()
	definePair(e)
	pending := e.a.New(&types.PendingExpansionType{Name: "Pair"})
	e.a.Get(pending).(*types.PendingExpansionType).TypeArguments = []types.TypeID{pending}
	e.push(&types.TypeAliasExpansionConstraint{Target: pending})

	s := e.solve(t)
	assert.Equal(t, verr.OccursCheckFailed, firstCode(s))
	assert.Equal(t, "*error-type*", e.a.TypeString(pending))
}

func TestRecursiveAliasWithDifferentParametersRejected(t *testing.T) {
	e := newEnv()
	a := e.a
	tGen := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	inner := a.New(&types.PendingExpansionType{
		Name:          "List",
		TypeArguments: []types.TypeID{a.Builtins.Number},
	})
	e.scope.TypeAliases["List"] = &types.TypeAlias{
		Name:       "List",
		TypeParams: []types.TypeParam{{Generic: tGen}},
		Body: a.New(&types.TableType{
			Props: map[string]types.Property{
				"head": types.SharedProperty(tGen),
				"tail": types.SharedProperty(inner),
			},
			State: types.TableSealed,
		}),
	}
	_ = expand(e, "List", []types.TypeID{a.Builtins.String}, nil)

	s := e.solve(t)
	require.NotEmpty(t, s.Errors.Errors())
	assert.Equal(t, verr.Generic, firstCode(s))
	assert.Contains(t, s.Errors.Errors()[0].Error(), "recursive type")
}

func TestRecursiveAliasWithSameParametersTiesTheKnot(t *testing.T) {
	e := newEnv()
	a := e.a
	tGen := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	inner := a.New(&types.PendingExpansionType{
		Name:          "List",
		TypeArguments: []types.TypeID{tGen},
	})
	e.scope.TypeAliases["List"] = &types.TypeAlias{
		Name:       "List",
		TypeParams: []types.TypeParam{{Generic: tGen}},
		Body: a.New(&types.TableType{
			Props: map[string]types.Property{
				"head": types.SharedProperty(tGen),
				"tail": types.SharedProperty(inner),
			},
			State: types.TableSealed,
		}),
	}
	pending := expand(e, "List", []types.TypeID{a.Builtins.Number}, nil)

	s := e.solve(t)
	requireNoTypeErrors(t, s)

	table, ok := a.Resolve(pending).(*types.TableType)
	require.True(t, ok)
	assert.Equal(t, "number", a.TypeString(table.Props["head"].ReadType))
	assert.Equal(t, a.Follow(pending), a.Follow(table.Props["tail"].ReadType))
}

func TestUnknownAliasReported(t *testing.T) {
	e := newEnv()
	pending := expand(e, "Nope", []types.TypeID{e.a.Builtins.Number}, nil)

	s := e.solve(t)
	assert.Equal(t, verr.UnknownSymbol, firstCode(s))
	assert.Equal(t, "*error-type*", e.a.TypeString(pending))
}

func TestAliasInstantiationsAreShared(t *testing.T) {
	e := newEnv()
	definePair(e)
	p1 := expand(e, "Pair", []types.TypeID{e.a.Builtins.Number}, nil)
	p2 := expand(e, "Pair", []types.TypeID{e.a.Builtins.Number}, nil)

	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, e.a.Follow(p1), e.a.Follow(p2))
}
