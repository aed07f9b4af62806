package types

import (
	"github.com/veldt-lang/veldt/frontend/verr"
)

// solveFunctionCall resolves a call site: strips error and never callees,
// follows __call metamethods, lets magic functions intercept, picks an
// overload, and unifies the call's argument and result packs against it.
func (s *Solver) solveFunctionCall(c *Constraint, v *FunctionCallConstraint, force bool) bool {
	a := s.Arena
	fn := a.Follow(v.Fn)
	if s.isBlockedTerm(fn) {
		if !force {
			return s.blockOnType(fn, c)
		}
		s.bindResultPack(v.Result, a.Builtins.ErrorPack)
		return true
	}
	if !force && !s.blockOnPendingTypes(c, nil, []TypePackID{v.ArgsPack}) {
		return false
	}

	switch t := a.Get(fn).(type) {
	case *ErrorType:
		s.bindResultPack(v.Result, a.Builtins.ErrorPack)
		s.bindDiscriminants(v)
		return true
	case *NeverType:
		never := a.NewPack(&VariadicPack{Elem: a.Builtins.Never})
		s.bindResultPack(v.Result, never)
		s.bindDiscriminants(v)
		return true
	case *AnyType:
		s.bindResultPack(v.Result, a.Builtins.AnyPack)
		s.bindDiscriminants(v)
		return true
	case *FreeType:
		// calling something unsolved: the callee must at least be a
		// function from args to result
		expected := a.New(&FunctionType{ArgPack: v.ArgsPack, RetPack: v.Result})
		t.UpperBound = a.NewIntersection(t.UpperBound, expected)
		s.UpperBoundContributors[fn] = append(s.UpperBoundContributors[fn],
			TypeLocation{Ty: expected, Location: c.Location})
		s.bindResultPack(v.Result, a.Builtins.AnyPack)
		s.bindDiscriminants(v)
		return true
	case *UnionType:
		// a callable union must agree on a single shape
		first := a.Follow(t.Options[0])
		agreed := true
		for _, o := range t.Options[1:] {
			if a.Follow(o) != first {
				agreed = false
				break
			}
		}
		if !agreed {
			s.reportError(verr.NewGeneric{
				Positioner: c.Location,
				Message:    "cannot call a value of type " + a.TypeString(fn),
			})
			s.bindResultPack(v.Result, a.Builtins.ErrorPack)
			s.bindDiscriminants(v)
			return true
		}
		fn = first
	}

	// __call metamethods make tables callable: the receiver becomes the
	// first argument
	if callee, found := s.callMetamethod(fn); found {
		args := a.Flatten(v.ArgsPack)
		head := append([]TypeID{fn}, args.Head...)
		tail := NoPack
		if !args.Finite() {
			tail = args.TailID
		}
		v = &FunctionCallConstraint{
			Fn:                callee,
			ArgsPack:          a.NewPack(&ListPack{Head: head, Tail: tail}),
			Result:            v.Result,
			CallSite:          v.CallSite,
			DiscriminantTypes: v.DiscriminantTypes,
		}
		fn = a.Follow(callee)
		if s.isBlockedTerm(fn) && !force {
			c.V = v
			return s.blockOnType(fn, c)
		}
	}

	if fnType, isFn := a.Resolve(fn).(*FunctionType); isFn && fnType.Magic != nil {
		handled, ok := fnType.Magic(s, c, v)
		if handled {
			s.bindDiscriminants(v)
			return ok
		}
	}

	// refinement slots stay pinned to the top type so the call does not
	// overcommit them
	s.bindDiscriminants(v)

	resolver := &overloadResolver{s: s, scope: c.Scope, location: c.Location}
	overload, found := resolver.resolve(fn, v.ArgsPack)
	if !found {
		s.reportError(verr.NewGeneric{
			Positioner: c.Location,
			Message:    "no overload of " + a.TypeString(fn) + " accepts the given arguments",
		})
		s.bindResultPack(v.Result, a.Builtins.ErrorPack)
		return true
	}
	overload = s.instantiateFunction(c.Scope, c.Location, overload)
	if v.CallSite != nil {
		s.AstOverloadResolvedTypes[v.CallSite] = overload
	}

	// the chosen overload must accept exactly this call's shape
	inferred := a.New(&FunctionType{ArgPack: v.ArgsPack, RetPack: v.Result})
	u := newUnifier(s, force)
	u.unify(overload, inferred)
	s.reactToUnify(c, u)

	if ov, ok := a.Resolve(overload).(*FunctionType); ok {
		s.bindResultPack(v.Result, ov.RetPack)
	} else {
		s.bindResultPack(v.Result, a.Builtins.ErrorPack)
	}
	return true
}

// bindResultPack binds the blocked result pack of a call unless it is
// already solved.
func (s *Solver) bindResultPack(result TypePackID, to TypePackID) {
	result = s.Arena.FollowPack(result)
	if _, blocked := s.Arena.GetPack(result).(*BlockedPack); !blocked {
		return
	}
	to = s.Arena.FollowPack(to)
	if to == result {
		to = s.Arena.NewPack(&VariadicPack{Elem: s.Arena.FreshFree(s.rootScope)})
	}
	s.bindPack(result, to)
}

// bindDiscriminants pins every refinement slot the checker threaded
// through the call to the top type. A later refinement pass re-derives
// them; committing anything narrower here could poison refinements.
func (s *Solver) bindDiscriminants(v *FunctionCallConstraint) {
	for _, d := range v.DiscriminantTypes {
		d = s.Arena.Follow(d)
		switch s.Arena.Get(d).(type) {
		case *BlockedType, *FreeType:
			s.bindType(d, s.Arena.Builtins.Any)
		}
	}
}

// callMetamethod finds a __call entry behind a table or metatable.
func (s *Solver) callMetamethod(fn TypeID) (TypeID, bool) {
	switch t := s.Arena.Resolve(fn).(type) {
	case *MetatableType:
		if mt, ok := s.Arena.Resolve(t.Metatable).(*TableType); ok {
			if prop, found := mt.Props["__call"]; found && prop.ReadType != NoType {
				return prop.ReadType, true
			}
		}
	case *ClassType:
		if t.Metatable != NoType {
			if mt, ok := s.Arena.Resolve(t.Metatable).(*TableType); ok {
				if prop, found := mt.Props["__call"]; found && prop.ReadType != NoType {
					return prop.ReadType, true
				}
			}
		}
	}
	return NoType, false
}
