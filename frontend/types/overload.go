package types

import (
	"github.com/veldt-lang/veldt/frontend/ast"
)

// overloadResolver picks the overload of a callee that accepts a given
// argument pack. A plain function is its own single overload; an
// intersection contributes one overload per function part.
type overloadResolver struct {
	s        *Solver
	scope    *Scope
	location ast.Range
}

// resolve returns the overload to call. With a single candidate there
// is nothing to choose, so it is returned as-is and the caller's
// unification reports any mismatch at the right place. With several
// candidates the first whose parameters decidedly accept the arguments
// wins; failing that, the first candidate that could not be decided
// (free or still-solving argument types) is chosen, so an in-progress
// call does not rule out an overload prematurely.
func (r *overloadResolver) resolve(fn TypeID, argsPack TypePackID) (TypeID, bool) {
	candidates := r.collect(fn)
	if len(candidates) == 0 {
		return NoType, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}
	u := newUnifier(r.s, false)
	var undecided []TypeID
	for _, candidate := range candidates {
		params := r.paramsOf(candidate)
		holds, decided := u.packSubsumesPure(argsPack, params, map[typePairKey]struct{}{})
		if decided && holds {
			return candidate, true
		}
		if !decided {
			undecided = append(undecided, candidate)
		}
	}
	if len(undecided) > 0 {
		return undecided[0], true
	}
	return NoType, false
}

// collect gathers the function parts of the callee.
func (r *overloadResolver) collect(fn TypeID) []TypeID {
	a := r.s.Arena
	switch t := a.Resolve(fn).(type) {
	case *FunctionType:
		return []TypeID{a.Follow(fn)}
	case *IntersectionType:
		var fns []TypeID
		for _, p := range t.Parts {
			if _, isFn := a.Resolve(p).(*FunctionType); isFn {
				fns = append(fns, a.Follow(p))
			}
		}
		return fns
	}
	return nil
}

// paramsOf is the candidate's argument pack with its generics read as
// unknown, so scoring does not commit any generic.
func (r *overloadResolver) paramsOf(candidate TypeID) TypePackID {
	a := r.s.Arena
	widened := r.s.replaceGenericsWithUnknown(candidate)
	if fn, ok := a.Resolve(widened).(*FunctionType); ok {
		return fn.ArgPack
	}
	return a.Builtins.AnyPack
}
