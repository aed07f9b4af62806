package types

import (
	"github.com/veldt-lang/veldt/frontend/verr"
	"github.com/veldt-lang/veldt/util"
)

// pair keys are ordered sub then super
type typePairKey = util.Pair[TypeID, TypeID]
type packPairKey = util.Pair[TypePackID, TypePackID]

// unifier makes subTy fit under superTy, widening free type bounds as it
// goes. Pairs it cannot decide yet (blocked types discovered mid
// structure) are collected for requeueing as fresh subtype constraints.
type unifier struct {
	s *Solver
	// force skips undecidable pairs instead of requeueing them, so a
	// forced dispatch always terminates.
	force bool
	seen  map[typePairKey]struct{}

	// expandedFreeTypes records which types widened each free type's
	// upper bound during this unification.
	expandedFreeTypes map[TypeID][]TypeID

	incompleteTypes []typePairKey
	incompletePacks []packPairKey

	failed       bool
	failedOccurs bool
	failedSub    TypeID
	failedSuper  TypeID
}

func newUnifier(s *Solver, force bool) *unifier {
	return &unifier{
		s:                 s,
		force:             force,
		seen:              map[typePairKey]struct{}{},
		expandedFreeTypes: map[TypeID][]TypeID{},
	}
}

func (u *unifier) fail(sub, super TypeID) {
	if !u.failed {
		u.failed = true
		u.failedSub = sub
		u.failedSuper = super
	}
}

func (u *unifier) failOccurs(sub, super TypeID) {
	if !u.failed {
		u.failedOccurs = true
	}
	u.fail(sub, super)
}

// occurs reports whether needle appears in the graph under haystack.
func (u *unifier) occurs(needle TypeID, haystack TypeID) bool {
	needle = u.s.Arena.Follow(needle)
	found := false
	v := newTypeVisitor(u.s.Arena)
	v.onType = func(id TypeID, t TypeTerm) bool {
		if id == needle {
			found = true
		}
		return !found
	}
	v.traverse(haystack)
	return found
}

func (u *unifier) unify(subTy, superTy TypeID) {
	a := u.s.Arena
	subTy = a.Follow(subTy)
	superTy = a.Follow(superTy)
	if subTy == superTy || u.failed {
		return
	}
	key := typePairKey{Fst: subTy, Snd: superTy}
	if _, ok := u.seen[key]; ok {
		return
	}
	u.seen[key] = struct{}{}

	sub := a.Get(subTy)
	super := a.Get(superTy)

	// blocked or pending on either side: decide later
	switch sub.(type) {
	case *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
		if !u.force {
			u.incompleteTypes = append(u.incompleteTypes, key)
		}
		return
	}
	switch super.(type) {
	case *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
		if !u.force {
			u.incompleteTypes = append(u.incompleteTypes, key)
		}
		return
	}

	// top and error types absorb everything
	switch sub.(type) {
	case *AnyType, *ErrorType, *NeverType:
		return
	}
	switch super.(type) {
	case *AnyType, *ErrorType, *UnknownType:
		return
	}

	if subFree, ok := sub.(*FreeType); ok {
		if superFree, ok := super.(*FreeType); ok {
			// two frees: each becomes a bound of the other
			superFree.LowerBound = a.NewUnion(superFree.LowerBound, subTy)
			subFree.UpperBound = a.NewIntersection(subFree.UpperBound, superTy)
			u.expandedFreeTypes[subTy] = append(u.expandedFreeTypes[subTy], superTy)
			return
		}
		if u.occurs(subTy, superTy) {
			u.failOccurs(subTy, superTy)
			return
		}
		if meet, ok := u.s.Normalizer.Intersect(subFree.UpperBound, superTy); ok {
			subFree.UpperBound = meet
		} else {
			subFree.UpperBound = a.NewIntersection(subFree.UpperBound, superTy)
		}
		u.expandedFreeTypes[subTy] = append(u.expandedFreeTypes[subTy], superTy)
		return
	}
	if superFree, ok := super.(*FreeType); ok {
		if u.occurs(superTy, subTy) {
			u.failOccurs(subTy, superTy)
			return
		}
		superFree.LowerBound = a.NewUnion(superFree.LowerBound, subTy)
		return
	}
	if subLocal, ok := sub.(*LocalType); ok {
		u.unify(subLocal.Domain, superTy)
		return
	}
	if superLocal, ok := super.(*LocalType); ok {
		superLocal.Domain = a.NewUnion(superLocal.Domain, subTy)
		return
	}

	switch super := super.(type) {
	case *UnionType:
		// a concrete sub fits a union if some option takes it
		for _, o := range super.Options {
			if holds, decided := u.subsumesPure(subTy, o); decided && holds {
				return
			}
		}
		for _, o := range super.Options {
			if _, isFree := a.Resolve(o).(*FreeType); isFree {
				u.unify(subTy, o)
				return
			}
		}
		if subUnion, ok := sub.(*UnionType); ok {
			for _, o := range subUnion.Options {
				u.unify(o, superTy)
			}
			return
		}
		u.fail(subTy, superTy)
		return
	case *IntersectionType:
		for _, p := range super.Parts {
			u.unify(subTy, p)
		}
		return
	}

	switch sub := sub.(type) {
	case *UnionType:
		for _, o := range sub.Options {
			u.unify(o, superTy)
		}
		return
	case *IntersectionType:
		// some part must fit; prefer a decidedly fitting one
		for _, p := range sub.Parts {
			if holds, decided := u.subsumesPure(p, superTy); decided && holds {
				return
			}
		}
		u.unify(sub.Parts[0], superTy)
		return
	case *PrimitiveType:
		if holds, _ := u.subsumesPure(subTy, superTy); holds {
			return
		}
		u.fail(subTy, superTy)
		return
	case *SingletonType:
		if holds, _ := u.subsumesPure(subTy, superTy); holds {
			return
		}
		u.fail(subTy, superTy)
		return
	case *FunctionType:
		superFn, ok := super.(*FunctionType)
		if !ok {
			if p, isPrim := super.(*PrimitiveType); isPrim && p.Kind == PrimFunction {
				return
			}
			u.fail(subTy, superTy)
			return
		}
		// arguments are contravariant, returns covariant
		u.unifyPacks(superFn.ArgPack, sub.ArgPack)
		u.unifyPacks(sub.RetPack, superFn.RetPack)
		return
	case *TableType:
		u.unifyTable(subTy, sub, superTy, super)
		return
	case *MetatableType:
		if superMt, ok := super.(*MetatableType); ok {
			u.unify(sub.Table, superMt.Table)
			u.unify(sub.Metatable, superMt.Metatable)
			return
		}
		u.unify(sub.Table, superTy)
		return
	case *ClassType:
		if superClass, ok := super.(*ClassType); ok {
			for cur := sub; cur != nil; {
				if cur.Name == superClass.Name {
					return
				}
				parent, isClass := a.Resolve(cur.Parent).(*ClassType)
				if cur.Parent == NoType || !isClass {
					break
				}
				cur = parent
			}
		}
		u.fail(subTy, superTy)
		return
	case *GenericType:
		u.fail(subTy, superTy)
		return
	case *UnknownType:
		u.fail(subTy, superTy)
		return
	default:
		u.fail(subTy, superTy)
		return
	}
}

func (u *unifier) unifyTable(subID TypeID, sub *TableType, superID TypeID, super TypeTerm) {
	superTable, ok := super.(*TableType)
	if !ok {
		if p, isPrim := super.(*PrimitiveType); isPrim && p.Kind == PrimTable {
			return
		}
		if superMt, isMt := super.(*MetatableType); isMt {
			u.unify(subID, superMt.Table)
			return
		}
		u.fail(subID, superID)
		return
	}
	for name, superProp := range superTable.Props {
		subProp, present := sub.Props[name]
		if !present {
			if sub.State == TableFree || sub.State == TableUnsealed {
				if sub.Props == nil {
					sub.Props = map[string]Property{}
				}
				sub.Props[name] = superProp
				continue
			}
			u.fail(subID, superID)
			return
		}
		if superProp.ReadType != NoType && subProp.ReadType != NoType {
			u.unify(subProp.ReadType, superProp.ReadType)
		}
		if superProp.WriteType != NoType && subProp.WriteType != NoType {
			u.unify(superProp.WriteType, subProp.WriteType)
		}
	}
	if superTable.Indexer != nil {
		if sub.Indexer != nil {
			u.unify(superTable.Indexer.KeyType, sub.Indexer.KeyType)
			u.unify(sub.Indexer.ValueType, superTable.Indexer.ValueType)
		} else if sub.State == TableFree || sub.State == TableUnsealed {
			sub.Indexer = &Indexer{KeyType: superTable.Indexer.KeyType, ValueType: superTable.Indexer.ValueType}
		} else {
			u.fail(subID, superID)
			return
		}
	}
}

func (u *unifier) unifyPacks(subPack, superPack TypePackID) {
	a := u.s.Arena
	subPack = a.FollowPack(subPack)
	superPack = a.FollowPack(superPack)
	if subPack == superPack || u.failed {
		return
	}
	incomplete := func() {
		if !u.force {
			u.incompletePacks = append(u.incompletePacks, packPairKey{Fst: subPack, Snd: superPack})
		}
	}
	if _, blocked := a.GetPack(subPack).(*BlockedPack); blocked {
		incomplete()
		return
	}
	if _, blocked := a.GetPack(superPack).(*BlockedPack); blocked {
		incomplete()
		return
	}
	subFlat := a.Flatten(subPack)
	superFlat := a.Flatten(superPack)
	if _, blocked := subFlat.Tail.(*BlockedPack); blocked {
		incomplete()
		return
	}
	if _, blocked := superFlat.Tail.(*BlockedPack); blocked {
		incomplete()
		return
	}
	n := len(superFlat.Head)
	if len(subFlat.Head) > n {
		n = len(subFlat.Head)
	}
	for i := 0; i < n; i++ {
		subTy, subOk := subFlat.At(i)
		superTy, superOk := superFlat.At(i)
		switch {
		case subOk && superOk:
			u.unify(subTy, superTy)
		case !subOk && superOk:
			// sub ran out: the missing values are nil
			u.unify(a.Builtins.Nil, superTy)
		case subOk && !superOk:
			// extra sub values are discarded
		}
	}
	subVar, subIsVar := subFlat.Tail.(*VariadicPack)
	superVar, superIsVar := superFlat.Tail.(*VariadicPack)
	if subIsVar && superIsVar {
		u.unify(subVar.Elem, superVar.Elem)
	}
}

// subsumesPure is a side-effect-free subtype check over concrete terms.
// decided is false when free, blocked, or pending terms make the
// question unanswerable without solving further.
func (u *unifier) subsumesPure(subTy, superTy TypeID) (holds bool, decided bool) {
	return u.subsumesPureSeen(subTy, superTy, map[typePairKey]struct{}{})
}

func (u *unifier) subsumesPureSeen(subTy, superTy TypeID, seen map[typePairKey]struct{}) (bool, bool) {
	a := u.s.Arena
	subTy = a.Follow(subTy)
	superTy = a.Follow(superTy)
	if subTy == superTy {
		return true, true
	}
	key := typePairKey{Fst: subTy, Snd: superTy}
	if _, ok := seen[key]; ok {
		return true, true
	}
	seen[key] = struct{}{}
	sub := a.Get(subTy)
	super := a.Get(superTy)
	switch sub.(type) {
	case *FreeType, *BlockedType, *PendingExpansionType, *TypeFunctionInstance, *LocalType:
		return false, false
	case *AnyType, *ErrorType, *NeverType:
		return true, true
	}
	switch super.(type) {
	case *FreeType, *BlockedType, *PendingExpansionType, *TypeFunctionInstance, *LocalType:
		return false, false
	case *AnyType, *ErrorType, *UnknownType:
		return true, true
	}
	switch sub := sub.(type) {
	case *UnionType:
		for _, o := range sub.Options {
			holds, decided := u.subsumesPureSeen(o, superTy, seen)
			if !decided {
				return false, false
			}
			if !holds {
				return false, true
			}
		}
		return true, true
	case *IntersectionType:
		undecided := false
		for _, p := range sub.Parts {
			holds, decided := u.subsumesPureSeen(p, superTy, seen)
			if decided && holds {
				return true, true
			}
			undecided = undecided || !decided
		}
		return false, !undecided
	}
	switch super := super.(type) {
	case *UnionType:
		undecided := false
		for _, o := range super.Options {
			holds, decided := u.subsumesPureSeen(subTy, o, seen)
			if decided && holds {
				return true, true
			}
			undecided = undecided || !decided
		}
		return false, !undecided
	case *IntersectionType:
		for _, p := range super.Parts {
			holds, decided := u.subsumesPureSeen(subTy, p, seen)
			if !decided {
				return false, false
			}
			if !holds {
				return false, true
			}
		}
		return true, true
	}
	switch sub := sub.(type) {
	case *PrimitiveType:
		superPrim, ok := super.(*PrimitiveType)
		return ok && superPrim.Kind == sub.Kind, true
	case *SingletonType:
		switch super := super.(type) {
		case *SingletonType:
			return *sub == *super, true
		case *PrimitiveType:
			if sub.IsString {
				return super.Kind == PrimString, true
			}
			return super.Kind == PrimBoolean, true
		}
		return false, true
	case *FunctionType:
		switch super := super.(type) {
		case *PrimitiveType:
			return super.Kind == PrimFunction, true
		case *FunctionType:
			holds, decided := u.packSubsumesPure(super.ArgPack, sub.ArgPack, seen)
			if !decided || !holds {
				return holds, decided
			}
			return u.packSubsumesPure(sub.RetPack, super.RetPack, seen)
		}
		return false, true
	case *TableType:
		switch super := super.(type) {
		case *PrimitiveType:
			return super.Kind == PrimTable, true
		case *TableType:
			for name, superProp := range super.Props {
				subProp, present := sub.Props[name]
				if !present {
					return false, true
				}
				holds, decided := u.subsumesPureSeen(subProp.ReadType, superProp.ReadType, seen)
				if !decided || !holds {
					return holds, decided
				}
			}
			return true, true
		}
		return false, true
	case *MetatableType:
		return u.subsumesPureSeen(sub.Table, superTy, seen)
	case *ClassType:
		superClass, ok := super.(*ClassType)
		if !ok {
			return false, true
		}
		for cur := sub; cur != nil; {
			if cur.Name == superClass.Name {
				return true, true
			}
			parent, isClass := a.Resolve(cur.Parent).(*ClassType)
			if cur.Parent == NoType || !isClass {
				return false, true
			}
			cur = parent
		}
		return false, true
	case *GenericType:
		return false, true
	default:
		return false, true
	}
}

func (u *unifier) packSubsumesPure(subPack, superPack TypePackID, seen map[typePairKey]struct{}) (bool, bool) {
	a := u.s.Arena
	subFlat := a.Flatten(a.FollowPack(subPack))
	superFlat := a.Flatten(a.FollowPack(superPack))
	if _, blocked := subFlat.Tail.(*BlockedPack); blocked {
		return false, false
	}
	if _, blocked := superFlat.Tail.(*BlockedPack); blocked {
		return false, false
	}
	n := len(superFlat.Head)
	for i := 0; i < n; i++ {
		superTy, _ := superFlat.At(i)
		subTy, ok := subFlat.At(i)
		if !ok {
			subTy = a.Builtins.Nil
		}
		holds, decided := u.subsumesPureSeen(subTy, superTy, seen)
		if !decided || !holds {
			return holds, decided
		}
	}
	return true, true
}

// unifyAndReact runs a unification for constraint c and feeds the
// outcome back into the solver: incomplete pairs respawn as subtype
// constraints inheriting c's waiters, widened free types are recorded
// for diagnostics, and hard failures become accumulated errors. The
// return value is always true: from the queue's point of view the
// constraint is finished either way.
func (s *Solver) unifyAndReact(c *Constraint, subTy, superTy TypeID, force bool) bool {
	u := newUnifier(s, force)
	u.unify(subTy, superTy)
	return s.reactToUnify(c, u)
}

func (s *Solver) unifyPacksAndReact(c *Constraint, subPack, superPack TypePackID, force bool) bool {
	u := newUnifier(s, force)
	u.unifyPacks(subPack, superPack)
	return s.reactToUnify(c, u)
}

func (s *Solver) reactToUnify(c *Constraint, u *unifier) bool {
	if u.failed {
		if u.failedOccurs {
			s.reportError(verr.NewOccursCheckFailed{
				Positioner: c.Location,
				Sub:        s.Arena.TypeString(u.failedSub),
				Super:      s.Arena.TypeString(u.failedSuper),
			})
		} else {
			s.reportError(verr.NewTypeMismatch{
				Positioner: c.Location,
				Sub:        s.Arena.TypeString(u.failedSub),
				Super:      s.Arena.TypeString(u.failedSuper),
			})
		}
		return true
	}
	for _, pair := range u.incompleteTypes {
		sc := s.PushConstraint(c.Scope, c.Location, &SubtypeConstraint{SubType: pair.Fst, SuperType: pair.Snd})
		s.InheritBlocks(c, sc)
	}
	for _, pair := range u.incompletePacks {
		sc := s.PushConstraint(c.Scope, c.Location, &PackSubtypeConstraint{SubPack: pair.Fst, SuperPack: pair.Snd})
		s.InheritBlocks(c, sc)
	}
	for free, contributors := range u.expandedFreeTypes {
		for _, contrib := range contributors {
			s.UpperBoundContributors[free] = append(s.UpperBoundContributors[free],
				TypeLocation{Ty: contrib, Location: c.Location})
		}
	}
	return true
}
