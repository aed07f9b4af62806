package types

import (
	"github.com/veldt-lang/veldt/frontend/ast"
)

// solveFunctionCheck pushes a callee's parameter types into the call's
// argument expressions before the call itself is solved. Lambdas get
// their parameters bound, literals get their expected shape recorded,
// and everything else just remembers the expected type for later
// display and refinement.
func (s *Solver) solveFunctionCheck(c *Constraint, v *FunctionCheckConstraint, force bool) bool {
	a := s.Arena
	fn := a.Follow(v.Fn)
	if s.isBlockedTerm(fn) {
		if force {
			return true
		}
		return s.blockOnType(fn, c)
	}

	fnType := s.checkableFunction(fn)
	if fnType == NoType {
		return true
	}
	// generics read as unknown here so checking cannot commit them
	widened := s.replaceGenericsWithUnknown(fnType)
	fnTerm, ok := a.Resolve(widened).(*FunctionType)
	if !ok {
		return true
	}

	expected := a.Flatten(fnTerm.ArgPack)
	args := a.Flatten(v.ArgsPack)
	var exprs []ast.Expr
	if v.CallSite != nil {
		exprs = v.CallSite.Args
	}

	for i := 0; i < len(args.Head) && i < len(exprs); i++ {
		expectedTy, ok := expected.At(i)
		if !ok {
			break
		}
		expectedTy = a.Follow(expectedTy)
		argTy := a.Follow(args.Head[i])
		expr := exprs[i]
		s.AstExpectedTypes[expr] = expectedTy

		switch expr := expr.(type) {
		case *ast.Func:
			s.checkLambdaArgument(expr, argTy, expectedTy)
		case *ast.StringLit, *ast.NumberLit, *ast.BoolLit, *ast.TableLit:
			s.matchLiteralType(expr, argTy, expectedTy)
		}
	}
	return true
}

// checkableFunction finds the function to check against: the callee
// itself, or the first checkable part of an overloaded callee (its first
// function part when no part is checkable).
func (s *Solver) checkableFunction(fn TypeID) TypeID {
	a := s.Arena
	switch t := a.Resolve(fn).(type) {
	case *FunctionType:
		return a.Follow(fn)
	case *IntersectionType:
		var firstFn TypeID = NoType
		for _, p := range t.Parts {
			part, isFn := a.Resolve(p).(*FunctionType)
			if !isFn {
				continue
			}
			if part.IsCheckable {
				return a.Follow(p)
			}
			if firstFn == NoType {
				firstFn = a.Follow(p)
			}
		}
		return firstFn
	}
	return NoType
}

// checkLambdaArgument binds a lambda argument's free parameter types
// to the parameters the callee expects, so the lambda body checks
// against concrete types instead of solving them from scratch.
func (s *Solver) checkLambdaArgument(lambda *ast.Func, argTy, expectedTy TypeID) {
	a := s.Arena
	argFn, ok := a.Resolve(argTy).(*FunctionType)
	if !ok {
		return
	}
	expectedFn, ok := a.Resolve(expectedTy).(*FunctionType)
	if !ok {
		return
	}
	lambdaParams := a.Flatten(argFn.ArgPack)
	expectedParams := a.Flatten(expectedFn.ArgPack)
	for i := range lambda.Params {
		paramTy, ok := lambdaParams.At(i)
		if !ok {
			break
		}
		paramTy = a.Follow(paramTy)
		expectedParam, ok := expectedParams.At(i)
		if !ok {
			break
		}
		expectedParam = a.Follow(expectedParam)
		if _, isFree := a.Get(paramTy).(*FreeType); !isFree {
			continue
		}
		switch a.Resolve(expectedParam).(type) {
		case *FreeType, *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
			continue
		}
		s.bindType(paramTy, expectedParam)
	}
}

// matchLiteralType checks a literal argument against the type the
// callee expects. Table literals descend into their fields first so
// each value expression learns its own expected type.
func (s *Solver) matchLiteralType(expr ast.Expr, argTy, expectedTy TypeID) {
	a := s.Arena
	if table, isTable := expr.(*ast.TableLit); isTable {
		expectedTable, ok := a.Resolve(expectedTy).(*TableType)
		if ok {
			s.matchTableLiteral(table, argTy, expectedTable)
		}
	}
	u := newUnifier(s, false)
	u.unify(argTy, expectedTy)
	for free, contributors := range u.expandedFreeTypes {
		for _, contrib := range contributors {
			s.UpperBoundContributors[free] = append(s.UpperBoundContributors[free],
				TypeLocation{Ty: contrib, Location: ast.RangeOf(expr)})
		}
	}
}

func (s *Solver) matchTableLiteral(table *ast.TableLit, argTy TypeID, expected *TableType) {
	a := s.Arena
	argTable, _ := a.Resolve(argTy).(*TableType)
	for _, field := range table.Fields {
		key, isNamed := field.Key.(*ast.StringLit)
		if field.Key == nil || !isNamed {
			continue
		}
		prop, found := expected.Props[key.Value]
		if !found || prop.ReadType == NoType {
			continue
		}
		expectedProp := a.Follow(prop.ReadType)
		s.AstExpectedTypes[field.Value] = expectedProp
		if argTable == nil {
			continue
		}
		argProp, present := argTable.Props[key.Value]
		if !present || argProp.ReadType == NoType {
			continue
		}
		s.matchLiteralType(field.Value, a.Follow(argProp.ReadType), expectedProp)
	}
}
