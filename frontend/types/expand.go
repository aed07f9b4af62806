package types

import (
	"fmt"
	"strings"

	"github.com/veldt-lang/veldt/frontend/verr"
)

// saturateArguments fits the provided arguments of an alias application
// onto the alias's parameter list:
//   - extra type arguments overflow into the first pack parameter
//   - a one-element pack argument can decompose to fill a type parameter
//   - defaults apply left to right and may reference earlier parameters
//   - anything still missing is padded with the error type
func (s *Solver) saturateArguments(alias *TypeAlias, pending *PendingExpansionType) (tys []TypeID, packs []TypePackID) {
	a := s.Arena
	providedTys := append([]TypeID(nil), pending.TypeArguments...)
	providedPacks := append([]TypePackID(nil), pending.PackArguments...)

	if len(providedTys) > len(alias.TypeParams) && len(alias.PackParams) > 0 {
		overflow := providedTys[len(alias.TypeParams):]
		providedTys = providedTys[:len(alias.TypeParams)]
		packed := a.NewPack(&ListPack{Head: overflow})
		providedPacks = append([]TypePackID{packed}, providedPacks...)
	}

	for len(providedTys) < len(alias.TypeParams) && len(providedPacks) > 0 {
		flat := a.Flatten(providedPacks[0])
		if !flat.Finite() || len(flat.Head) != 1 {
			break
		}
		providedTys = append(providedTys, flat.Head[0])
		providedPacks = providedPacks[1:]
	}

	tys = make([]TypeID, len(alias.TypeParams))
	substitution := map[TypeID]TypeID{}
	for i, param := range alias.TypeParams {
		switch {
		case i < len(providedTys):
			tys[i] = providedTys[i]
		case param.Default != NoType:
			// defaults can mention earlier parameters
			sb := newSubstituter(a, substitution, nil, false)
			tys[i] = sb.substitute(param.Default)
		default:
			tys[i] = a.Builtins.Error
		}
		substitution[a.Follow(param.Generic)] = tys[i]
	}

	packs = make([]TypePackID, len(alias.PackParams))
	for i, param := range alias.PackParams {
		switch {
		case i < len(providedPacks):
			packs[i] = providedPacks[i]
		case param.Default != NoPack:
			packs[i] = param.Default
		default:
			packs[i] = a.Builtins.ErrorPack
		}
	}
	return tys, packs
}

func (s *Solver) instantiationKey(name string, tys []TypeID, packs []TypePackID) string {
	var b strings.Builder
	b.WriteString(name)
	for _, ty := range tys {
		fmt.Fprintf(&b, "|t%d", s.Arena.Follow(ty))
	}
	for _, p := range packs {
		fmt.Fprintf(&b, "|p%d", s.Arena.FollowPack(p))
	}
	return b.String()
}

// containsInfiniteExpansion detects a recursive alias applied to
// different parameters than its own, which would expand forever.
func (s *Solver) containsInfiniteExpansion(alias *TypeAlias) bool {
	found := false
	v := newTypeVisitor(s.Arena)
	v.onType = func(id TypeID, t TypeTerm) bool {
		pending, ok := t.(*PendingExpansionType)
		if !ok || pending.Name != alias.Name {
			return !found
		}
		if len(pending.TypeArguments) != len(alias.TypeParams) {
			found = true
			return false
		}
		for i, arg := range pending.TypeArguments {
			if s.Arena.Follow(arg) != s.Arena.Follow(alias.TypeParams[i].Generic) {
				found = true
				return false
			}
		}
		return !found
	}
	v.traverse(alias.Body)
	return found
}

func (s *Solver) solveTypeAliasExpansion(c *Constraint, v *TypeAliasExpansionConstraint) bool {
	a := s.Arena
	target := a.Follow(v.Target)
	pending, ok := a.Get(target).(*PendingExpansionType)
	if !ok {
		// already expanded
		return true
	}
	alias, found := c.Scope.LookupTypeAlias(pending.Name)
	if !found {
		s.reportError(verr.NewUnknownSymbol{Positioner: c.Location, Name: pending.Name})
		s.bindBlockedType(target, a.Builtins.Error)
		return true
	}

	// an alias applied to itself cannot terminate
	for _, arg := range pending.TypeArguments {
		if a.Follow(arg) == target {
			s.reportError(verr.NewOccursCheckFailed{
				Positioner: c.Location,
				Sub:        pending.Name,
				Super:      pending.Name,
			})
			s.bindBlockedType(target, a.Builtins.Error)
			return true
		}
	}

	tys, packs := s.saturateArguments(alias, pending)

	// identity applications collapse to the alias body directly
	identity := len(tys) == len(alias.TypeParams) && len(packs) == len(alias.PackParams)
	if identity {
		for i, ty := range tys {
			if a.Follow(ty) != a.Follow(alias.TypeParams[i].Generic) {
				identity = false
				break
			}
		}
		for i, p := range packs {
			if identity && a.FollowPack(p) != a.FollowPack(alias.PackParams[i].Generic) {
				identity = false
			}
		}
	}
	if identity {
		s.bindBlockedType(target, alias.Body)
		return true
	}

	key := s.instantiationKey(alias.Name, tys, packs)
	if cached, hit := s.instantiationCache[key]; hit {
		s.bindBlockedType(target, cached)
		return true
	}

	if s.containsInfiniteExpansion(alias) {
		s.reportError(verr.NewGeneric{
			Positioner: c.Location,
			Message:    fmt.Sprintf("recursive type %q being used with different parameters", alias.Name),
		})
		s.bindBlockedType(target, a.Builtins.Error)
		return true
	}

	// seed the cache with the application itself so a same-arguments
	// recursion inside the body resolves to it instead of re-expanding
	s.instantiationCache[key] = target

	typeMap := map[TypeID]TypeID{}
	for i, param := range alias.TypeParams {
		typeMap[a.Follow(param.Generic)] = tys[i]
	}
	packMap := map[TypePackID]TypePackID{}
	for i, param := range alias.PackParams {
		packMap[a.FollowPack(param.Generic)] = packs[i]
	}
	sb := newSubstituter(a, typeMap, packMap, true)
	instantiated := sb.substitute(alias.Body)
	s.queuePendingExpansions(c.Scope, c.Location, sb)

	if named, isTable := a.Resolve(instantiated).(*TableType); isTable && named.Name == "" {
		named.Name = alias.Name
	}
	s.bindBlockedType(target, instantiated)
	return true
}
