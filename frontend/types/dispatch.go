package types

import (
	"fmt"
)

// tryDispatch runs the handler for c once. A true result means the
// constraint is fully satisfied and can be retired; false means the
// handler registered at least one blocker and will be retried. Handlers
// must be idempotent: a retried constraint observes whatever bindings
// its earlier attempts made.
func (s *Solver) tryDispatch(c *Constraint, force bool) bool {
	switch v := c.V.(type) {
	case *SubtypeConstraint:
		return s.solveSubtype(c, v, force)
	case *PackSubtypeConstraint:
		return s.solvePackSubtype(c, v, force)
	case *GeneralizationConstraint:
		return s.solveGeneralization(c, v, force)
	case *IterableConstraint:
		return s.solveIterable(c, v, force)
	case *NameConstraint:
		return s.solveName(c, v)
	case *TypeAliasExpansionConstraint:
		return s.solveTypeAliasExpansion(c, v)
	case *FunctionCallConstraint:
		return s.solveFunctionCall(c, v, force)
	case *FunctionCheckConstraint:
		return s.solveFunctionCheck(c, v, force)
	case *PrimitiveTypeConstraint:
		return s.solvePrimitiveType(c, v, force)
	case *HasPropConstraint:
		return s.solveHasProp(c, v, force)
	case *SetPropConstraint:
		return s.solveSetProp(c, v, force)
	case *HasIndexerConstraint:
		return s.solveHasIndexer(c, v, force)
	case *SetIndexerConstraint:
		return s.solveSetIndexer(c, v, force)
	case *UnpackConstraint:
		return s.solveUnpack(c, v, force)
	case *Unpack1Constraint:
		return s.solveUnpack1(c, v, force)
	case *ReduceConstraint:
		return s.solveReduce(c, v, force)
	case *ReducePackConstraint:
		return s.solveReducePack(c, v, force)
	case *EqualityConstraint:
		return s.solveEquality(c, v, force)
	default:
		panic(fmt.Sprintf("unhandled constraint kind %T", c.V))
	}
}
