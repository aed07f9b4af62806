package types

import (
	"github.com/veldt-lang/veldt/frontend/verr"
)

// solveReduce drives a type function instance to its reduced form. A
// reduction can report blockers, in which case the constraint waits for
// them and retries.
func (s *Solver) solveReduce(c *Constraint, v *ReduceConstraint, force bool) bool {
	a := s.Arena
	ty := a.Follow(v.Ty)
	instance, ok := a.Get(ty).(*TypeFunctionInstance)
	if !ok {
		// already reduced
		return true
	}
	reduction := instance.Function.Reduce(s, ty, instance.TypeArgs, instance.PackArgs)
	if len(reduction.Blockers) > 0 {
		if !force {
			for _, b := range reduction.Blockers {
				s.blockOnType(b, c)
			}
			return false
		}
		s.bindType(ty, a.Builtins.Error)
		return true
	}
	if reduction.Uninhabited {
		s.uninhabitedTypeFunctions.Insert(ty)
		s.reportError(verr.NewGeneric{
			Positioner: c.Location,
			Message:    "type function " + instance.Function.Name + " reduces to an uninhabited type",
		})
		s.bindType(ty, a.Builtins.Never)
		return true
	}
	result := reduction.Result
	if result == NoType {
		result = a.Builtins.Error
	}
	s.bindType(ty, a.Follow(result))
	return true
}

// solveReducePack reduces every type function instance reachable from
// the pack. The instances themselves are handed to Reduce constraints;
// this constraint just waits for them.
func (s *Solver) solveReducePack(c *Constraint, v *ReducePackConstraint, force bool) bool {
	a := s.Arena
	var instances []TypeID
	visitor := newTypeVisitor(a)
	visitor.onType = func(id TypeID, t TypeTerm) bool {
		if _, isInstance := t.(*TypeFunctionInstance); isInstance {
			instances = append(instances, id)
			return false
		}
		return true
	}
	visitor.traversePack(v.Pack)
	if len(instances) == 0 {
		return true
	}
	if force {
		for _, id := range instances {
			s.bindType(id, a.Builtins.Error)
		}
		return true
	}
	for _, id := range instances {
		inner := s.PushConstraint(c.Scope, c.Location, &ReduceConstraint{Ty: id})
		s.InheritBlocks(c, inner)
		s.blockOnType(id, c)
	}
	return false
}
