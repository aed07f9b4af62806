package types

import (
	"github.com/veldt-lang/veldt/frontend/verr"
)

// solveIterable destructures the iterand of a for-in loop into the loop
// variables. Two shapes iterate: an iterator function, whose returns
// feed the variables directly, and a table, whose indexer supplies the
// key and value.
func (s *Solver) solveIterable(c *Constraint, v *IterableConstraint, force bool) bool {
	a := s.Arena
	iterator := a.FollowPack(v.Iterator)
	if _, blocked := a.GetPack(iterator).(*BlockedPack); blocked {
		if !force {
			return s.blockOnPack(iterator, c)
		}
		s.bindVariables(v.Variables, a.Builtins.Error)
		return true
	}
	flat := a.Flatten(iterator)
	if len(flat.Head) == 0 {
		if elem, isVariadic := flat.Tail.(*VariadicPack); isVariadic {
			return s.iterateOver(c, v, a.Follow(elem.Elem), force)
		}
		s.bindVariables(v.Variables, a.Builtins.Error)
		return true
	}
	iterand := a.Follow(flat.Head[0])
	return s.iterateOver(c, v, iterand, force)
}

func (s *Solver) iterateOver(c *Constraint, v *IterableConstraint, iterand TypeID, force bool) bool {
	a := s.Arena
	if s.isBlockedTerm(iterand) {
		if !force {
			return s.blockOnType(iterand, c)
		}
		s.bindVariables(v.Variables, a.Builtins.Error)
		return true
	}

	switch t := a.Get(iterand).(type) {
	case *AnyType:
		s.bindVariables(v.Variables, a.Builtins.Any)
		return true
	case *ErrorType:
		s.bindVariables(v.Variables, a.Builtins.Error)
		return true
	case *NeverType:
		s.bindVariables(v.Variables, a.Builtins.Never)
		return true
	case *FreeType:
		// iterating an unsolved value pins it down to an indexed table
		key := a.FreshFree(t.Scope)
		value := a.FreshFree(t.Scope)
		expected := a.New(&TableType{
			Indexer: &Indexer{KeyType: key, ValueType: value},
			State:   TableUnsealed,
			Scope:   t.Scope,
		})
		t.UpperBound = a.NewIntersection(t.UpperBound, expected)
		s.bindIndexerVariables(v.Variables, key, value)
		return true
	case *LocalType:
		return s.iterateOver(c, v, a.Follow(t.Domain), force)
	case *FunctionType:
		return s.iterateWithFunction(c, v, t)
	case *TableType:
		if t.Indexer != nil {
			s.bindIndexerVariables(v.Variables, t.Indexer.KeyType, t.Indexer.ValueType)
			return true
		}
		if len(t.Props) > 0 {
			// a record iterates as string keys over the union of its
			// value types
			values := make([]TypeID, 0, len(t.Props))
			for _, p := range t.Props {
				if p.ReadType != NoType {
					values = append(values, p.ReadType)
				}
			}
			s.bindIndexerVariables(v.Variables, a.Builtins.String, a.NewUnion(values...))
			return true
		}
		s.bindIndexerVariables(v.Variables, a.Builtins.Never, a.Builtins.Never)
		return true
	case *MetatableType:
		meta := a.Follow(t.Metatable)
		if s.isBlockedTerm(meta) {
			if !force {
				return s.blockOnType(meta, c)
			}
			s.bindVariables(v.Variables, a.Builtins.Error)
			return true
		}
		if _, isFree := a.Get(meta).(*FreeType); isFree {
			s.reportError(verr.NewUnificationTooComplex{Positioner: c.Location})
			s.bindVariables(v.Variables, a.Builtins.Error)
			return true
		}
		if mt, ok := a.Resolve(meta).(*TableType); ok {
			if iter, present := mt.Props["__iter"]; present && iter.ReadType != NoType {
				if iterFn, isFn := a.Resolve(iter.ReadType).(*FunctionType); isFn {
					return s.iterateWithFunction(c, v, iterFn)
				}
			}
		}
		return s.iterateOver(c, v, a.Follow(t.Table), force)
	default:
		s.reportError(verr.NewGeneric{
			Positioner: c.Location,
			Message:    "cannot iterate over " + a.TypeString(iterand),
		})
		s.bindVariables(v.Variables, a.Builtins.Error)
		return true
	}
}

// iterateWithFunction feeds an iterator function's returns to the loop
// variables. The first return drops nil from its type: a nil first
// return ends the loop instead of reaching the body.
func (s *Solver) iterateWithFunction(c *Constraint, v *IterableConstraint, fn *FunctionType) bool {
	a := s.Arena
	rets := a.Flatten(fn.RetPack)
	if _, blocked := rets.Tail.(*BlockedPack); blocked {
		s.bindVariables(v.Variables, a.Builtins.Error)
		return true
	}
	for i, variable := range v.Variables {
		ret, ok := rets.At(i)
		if !ok {
			ret = a.Builtins.Nil
		}
		if i == 0 {
			ret = a.StripNil(ret)
		}
		s.bindBlockedType(variable, a.Follow(ret))
	}
	return true
}

// bindIndexerVariables assigns a table iteration's key and value to the
// first two loop variables; any further variables read as nil.
func (s *Solver) bindIndexerVariables(variables []TypeID, key, value TypeID) {
	a := s.Arena
	for i, variable := range variables {
		switch i {
		case 0:
			s.bindBlockedType(variable, a.Follow(key))
		case 1:
			s.bindBlockedType(variable, a.Follow(value))
		default:
			s.bindBlockedType(variable, a.Builtins.Nil)
		}
	}
}

func (s *Solver) bindVariables(variables []TypeID, to TypeID) {
	for _, variable := range variables {
		s.bindBlockedType(variable, to)
	}
}
