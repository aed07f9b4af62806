package types

import (
	"github.com/hashicorp/go-set/v3"
)

// The block graph is bipartite: blockers (types, packs, or other
// constraints) on one side, waiting constraints on the other. A
// constraint with a nonzero wait count is skipped by normal passes.

func (s *Solver) blockOnType(ty TypeID, c *Constraint) bool {
	ty = s.Arena.Follow(ty)
	for _, waiting := range s.blockedOnType[ty] {
		if waiting == c {
			return false
		}
	}
	s.blockedOnType[ty] = append(s.blockedOnType[ty], c)
	s.blockedCount[c]++
	if DebugLogSolver {
		s.logger.Debug("blocked", "constraint", c.ID, "onType", s.Arena.TypeString(ty))
	}
	return false
}

func (s *Solver) blockOnPack(tp TypePackID, c *Constraint) bool {
	tp = s.Arena.FollowPack(tp)
	for _, waiting := range s.blockedOnPack[tp] {
		if waiting == c {
			return false
		}
	}
	s.blockedOnPack[tp] = append(s.blockedOnPack[tp], c)
	s.blockedCount[c]++
	if DebugLogSolver {
		s.logger.Debug("blocked", "constraint", c.ID, "onPack", tp)
	}
	return false
}

func (s *Solver) blockOnConstraint(target *Constraint, c *Constraint) bool {
	for _, waiting := range s.blockedOnConstraint[target] {
		if waiting == c {
			return false
		}
	}
	s.blockedOnConstraint[target] = append(s.blockedOnConstraint[target], c)
	s.blockedCount[c]++
	if DebugLogSolver {
		s.logger.Debug("blocked", "constraint", c.ID, "onConstraint", target.ID)
	}
	return false
}

func (s *Solver) wake(waiters []*Constraint) {
	for _, c := range waiters {
		if s.blockedCount[c] > 0 {
			s.blockedCount[c]--
		}
	}
}

// UnblockType wakes everything waiting on ty. The bound chain starting
// at ty is walked too: waiters may have registered against any link.
func (s *Solver) UnblockType(ty TypeID) {
	seen := set.New[TypeID](2)
	for {
		if seen.Contains(ty) {
			return
		}
		seen.Insert(ty)
		if waiters, ok := s.blockedOnType[ty]; ok {
			s.wake(waiters)
			delete(s.blockedOnType, ty)
		}
		b, ok := s.Arena.Get(ty).(*BoundType)
		if !ok {
			return
		}
		ty = b.Target
	}
}

func (s *Solver) UnblockPack(tp TypePackID) {
	seen := set.New[TypePackID](2)
	for {
		if seen.Contains(tp) {
			return
		}
		seen.Insert(tp)
		if waiters, ok := s.blockedOnPack[tp]; ok {
			s.wake(waiters)
			delete(s.blockedOnPack, tp)
		}
		b, ok := s.Arena.GetPack(tp).(*BoundPack)
		if !ok {
			return
		}
		tp = b.Target
	}
}

func (s *Solver) unblockConstraint(target *Constraint) {
	if waiters, ok := s.blockedOnConstraint[target]; ok {
		s.wake(waiters)
		delete(s.blockedOnConstraint, target)
	}
}

// InheritBlocks makes every constraint waiting on from also wait on to.
// Used when a constraint spawns successors that finish its work.
func (s *Solver) InheritBlocks(from, to *Constraint) {
	for _, waiting := range s.blockedOnConstraint[from] {
		s.blockOnConstraint(to, waiting)
	}
}

// bindType solves ty to target and wakes its waiters.
func (s *Solver) bindType(ty, target TypeID) {
	s.Arena.Bind(ty, target)
	s.UnblockType(ty)
}

func (s *Solver) bindPack(tp, target TypePackID) {
	s.Arena.BindPack(tp, target)
	s.UnblockPack(tp)
}

// emplaceType replaces the slot in place and wakes waiters. For slots
// that change shape rather than forward.
func (s *Solver) emplaceType(ty TypeID, t TypeTerm) {
	s.Arena.Emplace(ty, t)
	s.UnblockType(ty)
}

// bindBlockedType binds a blocked type to its computed result. A result
// that turns out to be the blocked type itself gets a fresh free type in
// the root scope instead, so the slot always makes progress.
func (s *Solver) bindBlockedType(blocked, result TypeID) {
	if s.Arena.Follow(result) == s.Arena.Follow(blocked) {
		result = s.Arena.FreshFree(s.rootScope)
		if s.Arena.Follow(result) == s.Arena.Follow(blocked) {
			// fresh type cannot alias an existing slot
			panic("fresh free type aliased a blocked type")
		}
	}
	s.bindType(blocked, result)
}

// blockOnPendingTypes registers c against every blocked type or pack
// reachable from the given roots. Returns false (the dispatch result)
// when anything blocked was found.
func (s *Solver) blockOnPendingTypes(c *Constraint, tys []TypeID, packs []TypePackID) bool {
	clean := true
	v := newTypeVisitor(s.Arena)
	v.onType = func(id TypeID, t TypeTerm) bool {
		switch t.(type) {
		case *BlockedType, *PendingExpansionType:
			s.blockOnType(id, c)
			clean = false
			return false
		}
		return true
	}
	v.onPack = func(id TypePackID, p PackTerm) bool {
		if _, blocked := p.(*BlockedPack); blocked {
			s.blockOnPack(id, c)
			clean = false
			return false
		}
		return true
	}
	for _, ty := range tys {
		v.traverse(ty)
	}
	for _, tp := range packs {
		v.traversePack(tp)
	}
	return clean
}
