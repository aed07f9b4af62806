package types

import (
	"github.com/veldt-lang/veldt/frontend/ast"
)

// instantiateFunction replaces a function's generics with fresh free
// types scoped to the call, and its generic packs with variadic packs
// of fresh free types. The result is a monomorphic copy that unification can bite
// into.
func (s *Solver) instantiateFunction(scope *Scope, location ast.Range, fnID TypeID) TypeID {
	fn, ok := s.Arena.Resolve(fnID).(*FunctionType)
	if !ok || (len(fn.Generics) == 0 && len(fn.GenericPacks) == 0) {
		return fnID
	}
	typeMap := make(map[TypeID]TypeID, len(fn.Generics))
	for _, g := range fn.Generics {
		typeMap[s.Arena.Follow(g)] = s.Arena.FreshFree(scope)
	}
	packMap := make(map[TypePackID]TypePackID, len(fn.GenericPacks))
	for _, g := range fn.GenericPacks {
		elem := s.Arena.FreshFree(scope)
		packMap[s.Arena.FollowPack(g)] = s.Arena.NewPack(&VariadicPack{Elem: elem})
	}
	sb := newSubstituter(s.Arena, typeMap, packMap, false)
	instantiated := s.Arena.New(&FunctionType{
		ArgPack:     sb.substitutePack(fn.ArgPack),
		RetPack:     sb.substitutePack(fn.RetPack),
		Magic:       fn.Magic,
		IsCheckable: fn.IsCheckable,
	})
	s.queuePendingExpansions(scope, location, sb)
	return instantiated
}

// replaceGenericsWithUnknown rewrites a function signature so its
// generics read as unknown. Bidirectional checking pushes the result
// into argument expressions without committing the generics.
func (s *Solver) replaceGenericsWithUnknown(fnID TypeID) TypeID {
	fn, ok := s.Arena.Resolve(fnID).(*FunctionType)
	if !ok || (len(fn.Generics) == 0 && len(fn.GenericPacks) == 0) {
		return fnID
	}
	typeMap := make(map[TypeID]TypeID, len(fn.Generics))
	for _, g := range fn.Generics {
		typeMap[s.Arena.Follow(g)] = s.Arena.Builtins.Unknown
	}
	packMap := make(map[TypePackID]TypePackID, len(fn.GenericPacks))
	for _, g := range fn.GenericPacks {
		packMap[s.Arena.FollowPack(g)] = s.Arena.Builtins.AnyPack
	}
	sb := newSubstituter(s.Arena, typeMap, packMap, false)
	return s.Arena.New(&FunctionType{
		ArgPack:     sb.substitutePack(fn.ArgPack),
		RetPack:     sb.substitutePack(fn.RetPack),
		IsCheckable: fn.IsCheckable,
	})
}

// anyifyModuleReturnPackGenerics flattens leftover generics in a
// required module's return pack into any. A module on a require cycle
// cannot be fully solved from here, so its exported generics decay.
func (s *Solver) anyifyModuleReturnPackGenerics(pack TypePackID) TypePackID {
	typeMap := map[TypeID]TypeID{}
	packMap := map[TypePackID]TypePackID{}
	v := newTypeVisitor(s.Arena)
	v.onType = func(id TypeID, t TypeTerm) bool {
		if _, isGeneric := t.(*GenericType); isGeneric {
			typeMap[id] = s.Arena.Builtins.Any
		}
		return true
	}
	v.onPack = func(id TypePackID, p PackTerm) bool {
		if _, isGeneric := p.(*GenericPack); isGeneric {
			packMap[id] = s.Arena.Builtins.AnyPack
		}
		return true
	}
	v.traversePack(pack)
	if len(typeMap) == 0 && len(packMap) == 0 {
		return pack
	}
	sb := newSubstituter(s.Arena, typeMap, packMap, false)
	return sb.substitutePack(pack)
}

// queuePendingExpansions pushes an expansion constraint for every alias
// application a substitution materialized.
func (s *Solver) queuePendingExpansions(scope *Scope, location ast.Range, sb *substituter) {
	for _, pending := range sb.newPendingExpansions {
		s.PushConstraint(scope, location, &TypeAliasExpansionConstraint{Target: pending})
	}
}
