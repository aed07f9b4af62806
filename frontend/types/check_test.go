package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldt-lang/veldt/frontend/ast"
	"github.com/veldt-lang/veldt/frontend/types"
)

func newFn(a *types.Arena, params []types.TypeID, rets []types.TypeID) types.TypeID {
	return a.New(&types.FunctionType{
		ArgPack: a.NewPack(&types.ListPack{Head: params}),
		RetPack: a.NewPack(&types.ListPack{Head: rets}),
	})
}

func TestCheckRecordsExpectedTypes(t *testing.T) {
	e := newEnv()
	a := e.a
	callee := newFn(a, []types.TypeID{a.Builtins.Number, a.Builtins.String}, nil)
	numArg := &ast.NumberLit{Value: "1"}
	strArg := &ast.StringLit{Value: "hi"}
	e.push(&types.FunctionCheckConstraint{
		Fn: callee,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{
			a.Builtins.Number,
			a.New(types.StringSingleton("hi")),
		}}),
		CallSite: &ast.Call{Args: []ast.Expr{numArg, strArg}},
	})

	s := e.solve(t)
	assert.Equal(t, a.Builtins.Number, s.AstExpectedTypes[numArg])
	assert.Equal(t, a.Builtins.String, s.AstExpectedTypes[strArg])
}

func TestCheckBindsLambdaParameters(t *testing.T) {
	e := newEnv()
	a := e.a
	expectedLambda := newFn(a, []types.TypeID{a.Builtins.Number}, []types.TypeID{a.Builtins.String})
	callee := newFn(a, []types.TypeID{expectedLambda}, nil)

	param := a.FreshFree(e.scope)
	lambdaTy := newFn(a, []types.TypeID{param}, []types.TypeID{a.New(&types.BlockedType{})})
	lambda := &ast.Func{Params: []*ast.Var{{Name: "x"}}}
	e.push(&types.FunctionCheckConstraint{
		Fn:       callee,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{lambdaTy}}),
		CallSite: &ast.Call{Args: []ast.Expr{lambda}},
	})

	s := e.solve(t)
	requireNoTypeErrors(t, s)
	assert.Equal(t, "number", a.TypeString(param))
}

func TestCheckLeavesAnnotatedLambdaParameterAlone(t *testing.T) {
	e := newEnv()
	a := e.a
	expectedLambda := newFn(a, []types.TypeID{a.Builtins.Number}, nil)
	callee := newFn(a, []types.TypeID{expectedLambda}, nil)

	lambdaTy := newFn(a, []types.TypeID{a.Builtins.String}, nil)
	lambda := &ast.Func{Params: []*ast.Var{{Name: "x"}}}
	e.push(&types.FunctionCheckConstraint{
		Fn:       callee,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{lambdaTy}}),
		CallSite: &ast.Call{Args: []ast.Expr{lambda}},
	})

	e.solve(t)
	assert.Equal(t, "(string) -> ()", a.TypeString(lambdaTy))
}

func TestCheckTableLiteralFieldsLearnExpectedTypes(t *testing.T) {
	e := newEnv()
	a := e.a
	expectedTable := a.New(&types.TableType{
		Props: map[string]types.Property{"count": types.SharedProperty(a.Builtins.Number)},
		State: types.TableSealed,
	})
	callee := newFn(a, []types.TypeID{expectedTable}, nil)

	countValue := &ast.NumberLit{Value: "3"}
	lit := &ast.TableLit{Fields: []ast.TableField{
		{Key: &ast.StringLit{Value: "count"}, Value: countValue},
	}}
	countTy := a.FreshFree(e.scope)
	argTable := a.New(&types.TableType{
		Props: map[string]types.Property{"count": types.SharedProperty(countTy)},
		State: types.TableUnsealed,
		Scope: e.scope,
	})
	e.push(&types.FunctionCheckConstraint{
		Fn:       callee,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{argTable}}),
		CallSite: &ast.Call{Args: []ast.Expr{lit}},
	})

	s := e.solve(t)
	require.Contains(t, s.AstExpectedTypes, ast.Expr(countValue))
	assert.Equal(t, a.Builtins.Number, s.AstExpectedTypes[countValue])
	require.NotEmpty(t, s.UpperBoundContributors[countTy])
	assert.Equal(t, a.Builtins.Number, s.UpperBoundContributors[countTy][0].Ty)
}

func TestCheckGenericParameterReadsAsUnknown(t *testing.T) {
	e := newEnv()
	a := e.a
	generic := a.New(&types.GenericType{Name: "T", Scope: e.scope})
	callee := a.New(&types.FunctionType{
		Generics: []types.TypeID{generic},
		ArgPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{generic}}),
		RetPack:  a.NewPack(&types.ListPack{Head: []types.TypeID{generic}}),
	})
	arg := &ast.StringLit{Value: "hi"}
	e.push(&types.FunctionCheckConstraint{
		Fn:       callee,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.New(types.StringSingleton("hi"))}}),
		CallSite: &ast.Call{Args: []ast.Expr{arg}},
	})

	s := e.solve(t)
	assert.Equal(t, "unknown", a.TypeString(s.AstExpectedTypes[arg]))
}

func TestCheckPrefersCheckableOverload(t *testing.T) {
	e := newEnv()
	a := e.a
	plain := newFn(a, []types.TypeID{a.Builtins.Number}, nil)
	checkable := a.New(&types.FunctionType{
		ArgPack:     a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.String}}),
		RetPack:     a.NewPack(&types.ListPack{}),
		IsCheckable: true,
	})
	callee := a.NewIntersection(plain, checkable)

	arg := &ast.StringLit{Value: "hi"}
	e.push(&types.FunctionCheckConstraint{
		Fn:       callee,
		ArgsPack: a.NewPack(&types.ListPack{Head: []types.TypeID{a.New(types.StringSingleton("hi"))}}),
		CallSite: &ast.Call{Args: []ast.Expr{arg}},
	})

	s := e.solve(t)
	assert.Equal(t, a.Builtins.String, s.AstExpectedTypes[arg])
}
