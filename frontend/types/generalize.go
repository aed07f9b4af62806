package types

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/veldt-lang/veldt/frontend/verr"
)

// generalizer quantifies the free types owned by a scope once nothing
// else can sharpen them. Frees with no accumulated bounds become
// generics; bounded frees collapse into their bounds.
type generalizer struct {
	s     *Solver
	scope *Scope
	seen  *set.Set[TypeID]
	fuel  int

	generics     []TypeID
	genericPacks []TypePackID
}

func (g *generalizer) generalize(id TypeID) bool {
	if g.fuel <= 0 {
		return false
	}
	g.fuel--
	a := g.s.Arena
	id = a.Follow(id)
	if g.seen.Contains(id) {
		return true
	}
	g.seen.Insert(id)
	switch t := a.Get(id).(type) {
	case *FreeType:
		if !g.scope.Encloses(t.Scope) {
			// owned by an outer scope, leave it to them
			return true
		}
		lower := a.Follow(t.LowerBound)
		upper := a.Follow(t.UpperBound)
		_, lowerIsNever := a.Get(lower).(*NeverType)
		_, upperIsUnknown := a.Get(upper).(*UnknownType)
		switch {
		case lowerIsNever && upperIsUnknown:
			a.Emplace(id, &GenericType{Scope: t.Scope})
			g.generics = append(g.generics, id)
			g.s.UnblockType(id)
		case !lowerIsNever:
			if !g.generalize(lower) {
				return false
			}
			g.s.bindType(id, lower)
		default:
			if !g.generalize(upper) {
				return false
			}
			g.s.bindType(id, upper)
		}
		return true
	case *LocalType:
		return g.generalize(t.Domain)
	case *FunctionType:
		return g.generalizePack(t.ArgPack) && g.generalizePack(t.RetPack)
	case *TableType:
		for _, p := range t.Props {
			if p.ReadType != NoType && !g.generalize(p.ReadType) {
				return false
			}
			if p.WriteType != NoType && !g.generalize(p.WriteType) {
				return false
			}
		}
		if t.Indexer != nil {
			return g.generalize(t.Indexer.KeyType) && g.generalize(t.Indexer.ValueType)
		}
		return true
	case *MetatableType:
		return g.generalize(t.Table) && g.generalize(t.Metatable)
	case *UnionType:
		for _, o := range t.Options {
			if !g.generalize(o) {
				return false
			}
		}
		return true
	case *IntersectionType:
		for _, p := range t.Parts {
			if !g.generalize(p) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (g *generalizer) generalizePack(id TypePackID) bool {
	if id == NoPack {
		return true
	}
	flat := g.s.Arena.Flatten(id)
	for _, h := range flat.Head {
		if !g.generalize(h) {
			return false
		}
	}
	if v, ok := flat.Tail.(*VariadicPack); ok {
		return g.generalize(v.Elem)
	}
	return true
}

func (s *Solver) solveGeneralization(c *Constraint, v *GeneralizationConstraint, force bool) bool {
	a := s.Arena
	source := a.Follow(v.SourceType)
	if !force && s.isBlockedTerm(source) {
		return s.blockOnType(source, c)
	}
	g := &generalizer{
		s:     s,
		scope: c.Scope,
		seen:  set.New[TypeID](16),
		fuel:  s.limits.recursionLimit() * 8,
	}
	if !g.generalize(source) {
		s.reportError(verr.NewCodeTooComplex{Positioner: c.Location})
		s.bindBlockedType(v.GeneralizedType, a.Builtins.Error)
		return true
	}
	if fn, ok := a.Resolve(source).(*FunctionType); ok && len(g.generics) > 0 {
		fn.Generics = append(fn.Generics, g.generics...)
		fn.GenericPacks = append(fn.GenericPacks, g.genericPacks...)
	}
	s.bindBlockedType(v.GeneralizedType, a.Follow(source))

	// leftover local types decay to their accumulated domains
	for _, interior := range v.InteriorTypes {
		interiorID := a.Follow(interior)
		if local, ok := a.Get(interiorID).(*LocalType); ok {
			domain := local.Domain
			if _, never := a.Resolve(domain).(*NeverType); never {
				domain = a.Builtins.Unknown
			}
			s.bindType(interiorID, domain)
		}
	}
	return true
}
