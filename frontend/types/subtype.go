package types

func (s *Solver) isBlockedTerm(ty TypeID) bool {
	switch s.Arena.Resolve(ty).(type) {
	case *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
		return true
	}
	return false
}

func (s *Solver) solveSubtype(c *Constraint, v *SubtypeConstraint, force bool) bool {
	sub := s.Arena.Follow(v.SubType)
	super := s.Arena.Follow(v.SuperType)
	if !force {
		if s.isBlockedTerm(sub) {
			return s.blockOnType(sub, c)
		}
		if s.isBlockedTerm(super) {
			return s.blockOnType(super, c)
		}
	}
	return s.unifyAndReact(c, sub, super, force)
}

func (s *Solver) solvePackSubtype(c *Constraint, v *PackSubtypeConstraint, force bool) bool {
	sub := s.Arena.FollowPack(v.SubPack)
	super := s.Arena.FollowPack(v.SuperPack)
	if !force {
		if _, blocked := s.Arena.GetPack(sub).(*BlockedPack); blocked {
			return s.blockOnPack(sub, c)
		}
		if _, blocked := s.Arena.GetPack(super).(*BlockedPack); blocked {
			return s.blockOnPack(super, c)
		}
	}
	return s.unifyPacksAndReact(c, sub, super, force)
}

// solveEquality unifies in both directions: each side must accommodate
// the other.
func (s *Solver) solveEquality(c *Constraint, v *EqualityConstraint, force bool) bool {
	result := s.Arena.Follow(v.ResultType)
	assignment := s.Arena.Follow(v.AssignmentType)
	if !force {
		if s.isBlockedTerm(result) {
			return s.blockOnType(result, c)
		}
		if s.isBlockedTerm(assignment) {
			return s.blockOnType(assignment, c)
		}
	}
	u := newUnifier(s, force)
	u.unify(result, assignment)
	u.unify(assignment, result)
	return s.reactToUnify(c, u)
}

// solveName names a type for display. Cosmetic only; never fails.
func (s *Solver) solveName(c *Constraint, v *NameConstraint) bool {
	switch t := s.Arena.Resolve(v.NamedType).(type) {
	case *TableType:
		if t.Name == "" {
			t.Name = v.Name
		}
	case *MetatableType:
		if table, ok := s.Arena.Resolve(t.Table).(*TableType); ok && table.Name == "" {
			table.Name = v.Name
		}
	}
	return true
}

// solvePrimitiveType decays a literal's singleton type to its primitive
// form, unless the expected type wants the singleton kept. While other
// constraints still mention the free type they may sharpen the expected
// type, so the decision waits for them.
func (s *Solver) solvePrimitiveType(c *Constraint, v *PrimitiveTypeConstraint, force bool) bool {
	freeID := s.Arena.Follow(v.FreeType)
	free, stillFree := s.Arena.Get(freeID).(*FreeType)
	if !stillFree {
		// someone already solved it
		return true
	}
	if !force && s.unresolvedConstraints[freeID] > 1 {
		return s.blockOnType(freeID, c)
	}
	if v.ExpectedType != NoType {
		expected := s.Arena.Resolve(v.ExpectedType)
		if !force {
			if _, blocked := expected.(*BlockedType); blocked {
				return s.blockOnType(s.Arena.Follow(v.ExpectedType), c)
			}
		}
		if _, isSingleton := expected.(*SingletonType); isSingleton {
			// the context wants the literal type itself
			s.bindType(freeID, free.LowerBound)
			return true
		}
	}
	s.bindType(freeID, v.PrimitiveTy)
	return true
}
