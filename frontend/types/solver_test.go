package types_test

import (
	"context"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldt-lang/veldt/frontend/ast"
	"github.com/veldt-lang/veldt/frontend/types"
	"github.com/veldt-lang/veldt/frontend/verr"
)

// env assembles a constraint batch by hand, the way the checker would,
// and solves it.
type env struct {
	a     *types.Arena
	scope *types.Scope
	cs    []*types.Constraint
}

func newEnv() *env {
	return &env{
		a:     types.NewArena(),
		scope: types.NewRootScope(),
	}
}

func (e *env) push(v types.ConstraintV) *types.Constraint {
	c := &types.Constraint{Scope: e.scope, Location: ast.Range{}, V: v}
	e.cs = append(e.cs, c)
	return c
}

func (e *env) newSolver(resolver types.ModuleResolver, cycles [][]string) *types.Solver {
	return types.NewSolver(nil, e.a, e.scope, e.cs, "test", resolver, cycles, nil, types.Limits{})
}

func (e *env) solve(t *testing.T) *types.Solver {
	t.Helper()
	defer func() {
		if err := recover(); err != nil {
			t.Fatalf("panic: %v\n%s", err, string(debug.Stack()))
		}
	}()
	s := e.newSolver(nil, nil)
	require.NoError(t, s.Run(context.Background()))
	return s
}

func requireNoTypeErrors(t *testing.T, s *types.Solver) {
	t.Helper()
	for _, e := range s.Errors.Errors() {
		t.Errorf("unexpected error: %s", verr.FormatWithCode(e))
	}
	if t.Failed() {
		t.FailNow()
	}
}

func firstCode(s *types.Solver) verr.ErrCode {
	errs := s.Errors.Errors()
	if len(errs) == 0 {
		return verr.None
	}
	return errs[0].Code()
}

func TestInferCallOnFreeFunction(t *testing.T) {
	e := newEnv()
	fn := e.a.FreshFree(e.scope)
	result := e.a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       fn,
		ArgsPack: e.a.NewPack(&types.ListPack{Head: []types.TypeID{e.a.Builtins.Number}}),
		Result:   result,
	})
	first := e.a.New(&types.BlockedType{})
	e.push(&types.UnpackConstraint{
		ResultPack: e.a.NewPack(&types.ListPack{Head: []types.TypeID{first}}),
		SourcePack: result,
	})
	generalized := e.a.New(&types.BlockedType{})
	e.push(&types.GeneralizationConstraint{GeneralizedType: generalized, SourceType: fn})

	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.True(t, s.Done())
	assert.Equal(t, "(number) -> (...any)", e.a.TypeString(fn))
	assert.Equal(t, "any", e.a.TypeString(first))
}

func TestCallErrorCallee(t *testing.T) {
	e := newEnv()
	result := e.a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       e.a.Builtins.Error,
		ArgsPack: e.a.Builtins.EmptyPack,
		Result:   result,
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "*error-pack*", e.a.PackString(result))
}

func TestCallNonCallable(t *testing.T) {
	e := newEnv()
	result := e.a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       e.a.Builtins.Number,
		ArgsPack: e.a.Builtins.EmptyPack,
		Result:   result,
	})
	s := e.solve(t)
	assert.True(t, s.Errors.HasError())
	assert.Equal(t, verr.Generic, firstCode(s))
}

func TestCallThroughCallMetamethod(t *testing.T) {
	e := newEnv()
	a := e.a
	callee := a.New(&types.FunctionType{
		ArgPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Table, a.Builtins.Number}}),
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.String}}),
	})
	callable := a.New(&types.MetatableType{
		Table: a.New(&types.TableType{State: types.TableSealed}),
		Metatable: a.New(&types.TableType{
			Props: map[string]types.Property{"__call": types.SharedProperty(callee)},
			State: types.TableSealed,
		}),
	})
	result := a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       callable,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
		Result:   result,
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "string", e.a.PackString(result))
}

func TestOverloadSelection(t *testing.T) {
	e := newEnv()
	a := e.a
	numToNum := a.New(&types.FunctionType{
		ArgPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
	})
	strToStr := a.New(&types.FunctionType{
		ArgPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.String}}),
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.String}}),
	})
	overloaded := a.NewIntersection(numToNum, strToStr)
	result := a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       overloaded,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.String}}),
		Result:   result,
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "string", e.a.PackString(result))
}

func TestGenericInstantiationPerCall(t *testing.T) {
	e := newEnv()
	a := e.a
	g := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	identity := a.New(&types.FunctionType{
		Generics: []types.TypeID{g},
		ArgPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{g}}),
		RetPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{g}}),
	})
	numResult := a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       identity,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
		Result:   numResult,
	})
	strResult := a.NewPack(&types.BlockedPack{})
	e.push(&types.FunctionCallConstraint{
		Fn:       identity,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.String}}),
		Result:   strResult,
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	// each call gets its own instantiation, so the generic never leaks
	// one call's argument into the other
	assert.Equal(t, "number", a.PackString(numResult))
	assert.Equal(t, "string", a.PackString(strResult))
}

func TestGeneralizeUnboundedFree(t *testing.T) {
	e := newEnv()
	a := e.a
	param := a.FreshFree(e.scope)
	fn := a.New(&types.FunctionType{
		ArgPack: a.NewPack(&types.ListPack{Head: []types.TypeID{param}}),
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{param}}),
	})
	generalized := a.New(&types.BlockedType{})
	e.push(&types.GeneralizationConstraint{GeneralizedType: generalized, SourceType: fn})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	fnTerm, ok := a.Resolve(generalized).(*types.FunctionType)
	require.True(t, ok)
	assert.Len(t, fnTerm.Generics, 1)
}

func TestGeneralizeBoundedFreeCollapses(t *testing.T) {
	e := newEnv()
	a := e.a
	f := a.FreshFree(e.scope)
	e.push(&types.SubtypeConstraint{SubType: a.Builtins.Number, SuperType: f})
	generalized := a.New(&types.BlockedType{})
	e.push(&types.GeneralizationConstraint{GeneralizedType: generalized, SourceType: f})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "number", a.TypeString(generalized))
}

func TestPrimitiveDecay(t *testing.T) {
	e := newEnv()
	a := e.a
	lit := a.FreshFree(e.scope)
	a.Get(lit).(*types.FreeType).LowerBound = a.New(&types.SingletonType{IsString: true, StringValue: "on"})
	e.push(&types.PrimitiveTypeConstraint{FreeType: lit, PrimitiveTy: a.Builtins.String})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "string", a.TypeString(lit))
}

func TestPrimitiveKeepsSingletonWhenExpected(t *testing.T) {
	e := newEnv()
	a := e.a
	lit := a.FreshFree(e.scope)
	a.Get(lit).(*types.FreeType).LowerBound = a.New(&types.SingletonType{IsString: true, StringValue: "on"})
	expected := a.New(&types.SingletonType{IsString: true, StringValue: "on"})
	e.push(&types.PrimitiveTypeConstraint{FreeType: lit, ExpectedType: expected, PrimitiveTy: a.Builtins.String})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, `"on"`, a.TypeString(lit))
}

func TestSubtypeUnionSuper(t *testing.T) {
	e := newEnv()
	a := e.a
	e.push(&types.SubtypeConstraint{
		SubType:   a.Builtins.Number,
		SuperType: a.NewUnion(a.Builtins.Number, a.Builtins.String),
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
}

func TestSubtypeUnionSuperFails(t *testing.T) {
	e := newEnv()
	a := e.a
	e.push(&types.SubtypeConstraint{
		SubType:   a.Builtins.Boolean,
		SuperType: a.NewUnion(a.Builtins.Number, a.Builtins.String),
	})
	s := e.solve(t)
	assert.True(t, s.Errors.HasError())
}

func TestPackSubtypeNilPadding(t *testing.T) {
	e := newEnv()
	a := e.a
	sub := a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}})
	super := a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number, a.Builtins.Nil}})
	e.push(&types.PackSubtypeConstraint{SubPack: sub, SuperPack: super})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
}

func TestPackSubtypeMissingValueFails(t *testing.T) {
	e := newEnv()
	a := e.a
	sub := a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}})
	super := a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number, a.Builtins.String}})
	e.push(&types.PackSubtypeConstraint{SubPack: sub, SuperPack: super})
	s := e.solve(t)
	assert.True(t, s.Errors.HasError())
}

func TestFunctionArgumentContravariance(t *testing.T) {
	e := newEnv()
	a := e.a
	acceptsUnknown := a.New(&types.FunctionType{
		ArgPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Unknown}}),
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
	})
	acceptsNumber := a.New(&types.FunctionType{
		ArgPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
	})
	e.push(&types.SubtypeConstraint{SubType: acceptsUnknown, SuperType: acceptsNumber})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
}

func TestEqualityMismatch(t *testing.T) {
	e := newEnv()
	e.push(&types.EqualityConstraint{
		ResultType:     e.a.Builtins.Number,
		AssignmentType: e.a.Builtins.String,
	})
	s := e.solve(t)
	assert.Equal(t, verr.TypeMismatch, firstCode(s))
}

func TestSetPropThenHasProp(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{
		Props: map[string]types.Property{},
		State: types.TableUnsealed,
		Scope: e.scope,
	})
	written := a.New(&types.BlockedType{})
	e.push(&types.SetPropConstraint{
		Result:   written,
		Subject:  subject,
		Path:     []string{"user", "name"},
		PropType: a.Builtins.String,
	})
	user := a.New(&types.BlockedType{})
	e.push(&types.HasPropConstraint{Result: user, Subject: subject, Prop: "user"})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "{| name: string |}", a.TypeString(user))
	assert.Equal(t, "{| user: {| name: string |} |}", a.TypeString(subject))
}

func TestReadSynthesizesReadOnlyProp(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{State: types.TableFree, Scope: e.scope})
	result := a.New(&types.BlockedType{})
	e.push(&types.HasPropConstraint{Result: result, Subject: subject, Prop: "x"})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	prop := a.Get(subject).(*types.TableType).Props["x"]
	assert.NotEqual(t, types.NoType, prop.ReadType)
	assert.Equal(t, types.NoType, prop.WriteType)
}

func TestLValueLookupSynthesizesSharedProp(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{State: types.TableUnsealed, Scope: e.scope})
	result := a.New(&types.BlockedType{})
	e.push(&types.HasPropConstraint{
		Result:  result,
		Subject: subject,
		Prop:    "x",
		Context: types.ValueContextLValue,
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	prop := a.Get(subject).(*types.TableType).Props["x"]
	assert.Equal(t, prop.ReadType, prop.WriteType)
	assert.NotEqual(t, types.NoType, prop.WriteType)
}

func TestAssignmentWidensReadOnlyProp(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{State: types.TableFree, Scope: e.scope})
	read := a.New(&types.BlockedType{})
	e.push(&types.HasPropConstraint{Result: read, Subject: subject, Prop: "x"})
	written := a.New(&types.BlockedType{})
	e.push(&types.SetPropConstraint{
		Result:   written,
		Subject:  subject,
		Path:     []string{"x"},
		PropType: a.Builtins.Number,
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	prop := a.Get(subject).(*types.TableType).Props["x"]
	assert.Equal(t, prop.ReadType, prop.WriteType)
	assert.NotEqual(t, types.NoType, prop.WriteType)
}

func TestHasPropMissingOnSealedTable(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{
		Props: map[string]types.Property{"x": types.SharedProperty(a.Builtins.Number)},
		State: types.TableSealed,
	})
	result := a.New(&types.BlockedType{})
	e.push(&types.HasPropConstraint{Result: result, Subject: subject, Prop: "y"})
	s := e.solve(t)
	assert.True(t, s.Errors.HasError())
	assert.Equal(t, "*error-type*", a.TypeString(result))
}

func TestHasPropInConditionalSoftensToUnknown(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{State: types.TableSealed})
	result := a.New(&types.BlockedType{})
	e.push(&types.HasPropConstraint{Result: result, Subject: subject, Prop: "maybe", InConditional: true})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "unknown", a.TypeString(result))
}

func TestLookupThroughMetatableIndex(t *testing.T) {
	e := newEnv()
	a := e.a
	greet := a.New(&types.FunctionType{
		ArgPack: a.Builtins.EmptyPack,
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.String}}),
	})
	methods := a.New(&types.TableType{
		Props: map[string]types.Property{"greet": types.SharedProperty(greet)},
		State: types.TableSealed,
	})
	subject := a.New(&types.MetatableType{
		Table: a.New(&types.TableType{State: types.TableSealed}),
		Metatable: a.New(&types.TableType{
			Props: map[string]types.Property{"__index": types.SharedProperty(methods)},
			State: types.TableSealed,
		}),
	})
	result := a.New(&types.BlockedType{})
	e.push(&types.HasPropConstraint{Result: result, Subject: subject, Prop: "greet"})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "() -> string", a.TypeString(result))
}

func TestHasIndexerOnSealedTable(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{
		Indexer: &types.Indexer{KeyType: a.Builtins.Number, ValueType: a.Builtins.String},
		State:   types.TableSealed,
	})
	result := a.New(&types.BlockedType{})
	e.push(&types.HasIndexerConstraint{Result: result, Subject: subject, IndexType: a.Builtins.Number})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "string", a.TypeString(result))
}

func TestSetIndexerCreatesIndexer(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{State: types.TableUnsealed, Scope: e.scope})
	e.push(&types.SetIndexerConstraint{
		Subject:   subject,
		IndexType: a.Builtins.Number,
		PropType:  a.Builtins.Boolean,
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "{| [number]: boolean |}", a.TypeString(subject))
}

func TestIterableOverIndexerTable(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.TableType{
		Indexer: &types.Indexer{KeyType: a.Builtins.Number, ValueType: a.Builtins.String},
		State:   types.TableSealed,
	})
	k := a.New(&types.BlockedType{})
	v := a.New(&types.BlockedType{})
	e.push(&types.IterableConstraint{
		Iterator:  a.NewPack(&types.ListPack{Head: []types.TypeID{subject}}),
		Variables: []types.TypeID{k, v},
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "number", a.TypeString(k))
	assert.Equal(t, "string", a.TypeString(v))
}

func TestIterableWithIteratorFunction(t *testing.T) {
	e := newEnv()
	a := e.a
	iter := a.New(&types.FunctionType{
		ArgPack: a.Builtins.EmptyPack,
		RetPack: a.NewPack(&types.ListPack{Head: []types.TypeID{
			a.NewUnion(a.Builtins.Number, a.Builtins.Nil),
			a.Builtins.String,
		}}),
	})
	k := a.New(&types.BlockedType{})
	v := a.New(&types.BlockedType{})
	e.push(&types.IterableConstraint{
		Iterator:  a.NewPack(&types.ListPack{Head: []types.TypeID{iter}}),
		Variables: []types.TypeID{k, v},
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	// a nil first return ends the loop, so the variable drops it
	assert.Equal(t, "number", a.TypeString(k))
	assert.Equal(t, "string", a.TypeString(v))
}

func TestIterableFreeMetatableTooComplex(t *testing.T) {
	e := newEnv()
	a := e.a
	subject := a.New(&types.MetatableType{
		Table:     a.New(&types.TableType{State: types.TableSealed}),
		Metatable: a.FreshFree(e.scope),
	})
	k := a.New(&types.BlockedType{})
	e.push(&types.IterableConstraint{
		Iterator:  a.NewPack(&types.ListPack{Head: []types.TypeID{subject}}),
		Variables: []types.TypeID{k},
	})
	s := e.solve(t)
	assert.Equal(t, verr.UnificationTooComplex, firstCode(s))
}

func TestUnpackPadsWithNil(t *testing.T) {
	e := newEnv()
	a := e.a
	first := a.New(&types.BlockedType{})
	second := a.New(&types.BlockedType{})
	e.push(&types.UnpackConstraint{
		ResultPack: a.NewPack(&types.ListPack{Head: []types.TypeID{first, second}}),
		SourcePack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}}),
	})
	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "number", a.TypeString(first))
	assert.Equal(t, "nil", a.TypeString(second))
}

func TestForcedPassCompletesBlockedSubtype(t *testing.T) {
	e := newEnv()
	a := e.a
	// nothing ever binds this blocked type, so only a forced pass can
	// retire the constraint
	stuck := a.New(&types.BlockedType{})
	e.push(&types.SubtypeConstraint{SubType: stuck, SuperType: a.Builtins.Number})
	s := e.solve(t)
	assert.True(t, s.Done())
}

func TestRandomizeInvariance(t *testing.T) {
	build := func() (*env, types.TypeID, types.TypeID) {
		e := newEnv()
		a := e.a
		subject := a.New(&types.TableType{
			Props: map[string]types.Property{},
			State: types.TableUnsealed,
			Scope: e.scope,
		})
		written := a.New(&types.BlockedType{})
		e.push(&types.SetPropConstraint{
			Result:   written,
			Subject:  subject,
			Path:     []string{"user", "name"},
			PropType: a.Builtins.String,
		})
		user := a.New(&types.BlockedType{})
		e.push(&types.HasPropConstraint{Result: user, Subject: subject, Prop: "user"})
		e.push(&types.SubtypeConstraint{
			SubType:   a.Builtins.Number,
			SuperType: a.NewUnion(a.Builtins.Number, a.Builtins.String),
		})
		return e, subject, user
	}

	baseline := ""
	for _, seed := range []uint64{0, 1, 7, 42} {
		e, subject, user := build()
		s := e.newSolver(nil, nil)
		if seed != 0 {
			s.Randomize(seed)
		}
		require.NoError(t, s.Run(context.Background()))
		requireNoTypeErrors(t, s)
		rendered := e.a.TypeString(subject) + " / " + e.a.TypeString(user)
		if baseline == "" {
			baseline = rendered
		} else {
			assert.Equal(t, baseline, rendered, "seed %d produced different bindings", seed)
		}
	}
}

func TestSolverDeadlineAborts(t *testing.T) {
	e := newEnv()
	a := e.a
	e.push(&types.SubtypeConstraint{SubType: a.Builtins.Number, SuperType: a.Builtins.Number})
	s := types.NewSolver(nil, e.a, e.scope, e.cs, "test", nil, nil, nil, types.Limits{
		Deadline: time.Now().Add(-time.Second),
	})
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solving test")
}

func TestSolverCancellation(t *testing.T) {
	e := newEnv()
	a := e.a
	e.push(&types.SubtypeConstraint{SubType: a.Builtins.Number, SuperType: a.Builtins.Number})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := e.newSolver(nil, nil)
	err := s.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "cancel")
}
