package types

// solveUnpack distributes the types of SourcePack over the targets in
// ResultPack. Missing source values read as nil, extra ones are
// dropped. Local type targets accumulate the source into their domain
// instead of binding outright.
func (s *Solver) solveUnpack(c *Constraint, v *UnpackConstraint, force bool) bool {
	a := s.Arena
	source := a.FollowPack(v.SourcePack)
	if _, blocked := a.GetPack(source).(*BlockedPack); blocked {
		if !force {
			return s.blockOnPack(source, c)
		}
		source = a.Builtins.ErrorPack
	}
	sourceFlat := a.Flatten(source)
	if _, blocked := sourceFlat.Tail.(*BlockedPack); blocked && !force {
		return s.blockOnPack(sourceFlat.TailID, c)
	}

	resultFlat := a.Flatten(a.FollowPack(v.ResultPack))
	for i, target := range resultFlat.Head {
		src, ok := sourceFlat.At(i)
		if !ok {
			src = a.Builtins.Nil
		}
		s.unpackInto(c, target, src, force)
	}
	return true
}

func (s *Solver) solveUnpack1(c *Constraint, v *Unpack1Constraint, force bool) bool {
	source := s.Arena.Follow(v.Source)
	if s.isBlockedTerm(source) && !force {
		return s.blockOnType(source, c)
	}
	s.unpackInto(c, v.Result, source, force)
	return true
}

func (s *Solver) unpackInto(c *Constraint, target, src TypeID, force bool) {
	a := s.Arena
	target = a.Follow(target)
	src = a.Follow(src)
	switch t := a.Get(target).(type) {
	case *BlockedType:
		s.bindBlockedType(target, src)
	case *LocalType:
		t.Domain = a.NewUnion(t.Domain, src)
		if t.BlockCount > 0 {
			t.BlockCount--
		}
		if t.BlockCount == 0 {
			s.UnblockType(target)
		}
	case *FreeType:
		s.unifyAndReact(c, src, target, force)
	default:
		s.unifyAndReact(c, src, target, force)
	}
}
