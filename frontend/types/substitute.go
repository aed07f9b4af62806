package types

// substituter clones a type graph with some slots replaced. Subtrees
// containing no replaced slot are shared, except tables and metatables
// when cloneTables is set: an instantiated alias body must never alias
// the definition's tables, or mutating the instance would corrupt the
// alias for every other user.
type substituter struct {
	a           *Arena
	typeMap     map[TypeID]TypeID
	packMap     map[TypePackID]TypePackID
	cloneTables bool

	clonedTypes map[TypeID]TypeID
	clonedPacks map[TypePackID]TypePackID
	touchedMemo map[TypeID]bool

	// newPendingExpansions are pending alias applications materialized
	// by this substitution. The caller queues expansion constraints for
	// them.
	newPendingExpansions []TypeID
}

func newSubstituter(a *Arena, typeMap map[TypeID]TypeID, packMap map[TypePackID]TypePackID, cloneTables bool) *substituter {
	if typeMap == nil {
		typeMap = map[TypeID]TypeID{}
	}
	if packMap == nil {
		packMap = map[TypePackID]TypePackID{}
	}
	return &substituter{
		a:           a,
		typeMap:     typeMap,
		packMap:     packMap,
		cloneTables: cloneTables,
		clonedTypes: map[TypeID]TypeID{},
		clonedPacks: map[TypePackID]TypePackID{},
		touchedMemo: map[TypeID]bool{},
	}
}

// touched reports whether the subtree under id contains a replaced slot
// or, under cloneTables, any table.
func (sb *substituter) touched(id TypeID) bool {
	id = sb.a.Follow(id)
	if hit, ok := sb.touchedMemo[id]; ok {
		return hit
	}
	// cycles resolve to false unless something else in them is mapped
	sb.touchedMemo[id] = false
	result := false
	if _, mapped := sb.typeMap[id]; mapped {
		result = true
	}
	if !result {
		switch t := sb.a.Get(id).(type) {
		case *TableType:
			result = sb.cloneTables
			if !result {
				for _, p := range t.Props {
					if (p.ReadType != NoType && sb.touched(p.ReadType)) ||
						(p.WriteType != NoType && sb.touched(p.WriteType)) {
						result = true
						break
					}
				}
				if !result && t.Indexer != nil {
					result = sb.touched(t.Indexer.KeyType) || sb.touched(t.Indexer.ValueType)
				}
			}
		case *MetatableType:
			result = sb.cloneTables || sb.touched(t.Table) || sb.touched(t.Metatable)
		case *FunctionType:
			result = sb.touchedPack(t.ArgPack) || sb.touchedPack(t.RetPack)
		case *UnionType:
			for _, o := range t.Options {
				if sb.touched(o) {
					result = true
					break
				}
			}
		case *IntersectionType:
			for _, p := range t.Parts {
				if sb.touched(p) {
					result = true
					break
				}
			}
		case *PendingExpansionType:
			for _, arg := range t.TypeArguments {
				if sb.touched(arg) {
					result = true
					break
				}
			}
			if !result {
				for _, arg := range t.PackArguments {
					if sb.touchedPack(arg) {
						result = true
						break
					}
				}
			}
		case *TypeFunctionInstance:
			for _, arg := range t.TypeArgs {
				if sb.touched(arg) {
					result = true
					break
				}
			}
			if !result {
				for _, arg := range t.PackArgs {
					if sb.touchedPack(arg) {
						result = true
						break
					}
				}
			}
		case *FreeType:
			result = sb.touched(t.LowerBound) || sb.touched(t.UpperBound)
		case *LocalType:
			result = sb.touched(t.Domain)
		}
	}
	sb.touchedMemo[id] = result
	return result
}

func (sb *substituter) touchedPack(id TypePackID) bool {
	if id == NoPack {
		return false
	}
	id = sb.a.FollowPack(id)
	if _, mapped := sb.packMap[id]; mapped {
		return true
	}
	switch p := sb.a.GetPack(id).(type) {
	case *ListPack:
		for _, h := range p.Head {
			if sb.touched(h) {
				return true
			}
		}
		return sb.touchedPack(p.Tail)
	case *VariadicPack:
		return sb.touched(p.Elem)
	default:
		return false
	}
}

func (sb *substituter) substitute(id TypeID) TypeID {
	if id == NoType {
		return id
	}
	id = sb.a.Follow(id)
	if mapped, ok := sb.typeMap[id]; ok {
		return mapped
	}
	if cloned, ok := sb.clonedTypes[id]; ok {
		return cloned
	}
	if !sb.touched(id) {
		return id
	}
	switch t := sb.a.Get(id).(type) {
	case *FunctionType:
		newID := sb.a.New(&BoundType{Target: id})
		sb.clonedTypes[id] = newID
		sb.a.Emplace(newID, &FunctionType{
			Generics:     t.Generics,
			GenericPacks: t.GenericPacks,
			ArgPack:      sb.substitutePack(t.ArgPack),
			RetPack:      sb.substitutePack(t.RetPack),
			Magic:        t.Magic,
			IsCheckable:  t.IsCheckable,
		})
		return newID
	case *TableType:
		newID := sb.a.New(&BoundType{Target: id})
		sb.clonedTypes[id] = newID
		props := make(map[string]Property, len(t.Props))
		for name, p := range t.Props {
			np := Property{}
			if p.ReadType != NoType {
				np.ReadType = sb.substitute(p.ReadType)
			}
			if p.WriteType != NoType {
				np.WriteType = sb.substitute(p.WriteType)
			}
			props[name] = np
		}
		var indexer *Indexer
		if t.Indexer != nil {
			indexer = &Indexer{
				KeyType:   sb.substitute(t.Indexer.KeyType),
				ValueType: sb.substitute(t.Indexer.ValueType),
			}
		}
		sb.a.Emplace(newID, &TableType{
			Props:   props,
			Indexer: indexer,
			State:   t.State,
			Scope:   t.Scope,
			Name:    t.Name,
		})
		return newID
	case *MetatableType:
		newID := sb.a.New(&BoundType{Target: id})
		sb.clonedTypes[id] = newID
		sb.a.Emplace(newID, &MetatableType{
			Table:     sb.substitute(t.Table),
			Metatable: sb.substitute(t.Metatable),
		})
		return newID
	case *UnionType:
		newID := sb.a.New(&BoundType{Target: id})
		sb.clonedTypes[id] = newID
		options := make([]TypeID, len(t.Options))
		for i, o := range t.Options {
			options[i] = sb.substitute(o)
		}
		sb.a.Emplace(newID, &UnionType{Options: options})
		return newID
	case *IntersectionType:
		newID := sb.a.New(&BoundType{Target: id})
		sb.clonedTypes[id] = newID
		parts := make([]TypeID, len(t.Parts))
		for i, p := range t.Parts {
			parts[i] = sb.substitute(p)
		}
		sb.a.Emplace(newID, &IntersectionType{Parts: parts})
		return newID
	case *PendingExpansionType:
		newID := sb.a.New(&BoundType{Target: id})
		sb.clonedTypes[id] = newID
		typeArgs := make([]TypeID, len(t.TypeArguments))
		for i, arg := range t.TypeArguments {
			typeArgs[i] = sb.substitute(arg)
		}
		packArgs := make([]TypePackID, len(t.PackArguments))
		for i, arg := range t.PackArguments {
			packArgs[i] = sb.substitutePack(arg)
		}
		sb.a.Emplace(newID, &PendingExpansionType{
			Name:          t.Name,
			TypeArguments: typeArgs,
			PackArguments: packArgs,
		})
		sb.newPendingExpansions = append(sb.newPendingExpansions, newID)
		return newID
	case *TypeFunctionInstance:
		newID := sb.a.New(&BoundType{Target: id})
		sb.clonedTypes[id] = newID
		typeArgs := make([]TypeID, len(t.TypeArgs))
		for i, arg := range t.TypeArgs {
			typeArgs[i] = sb.substitute(arg)
		}
		packArgs := make([]TypePackID, len(t.PackArgs))
		for i, arg := range t.PackArgs {
			packArgs[i] = sb.substitutePack(arg)
		}
		sb.a.Emplace(newID, &TypeFunctionInstance{
			Function: t.Function,
			TypeArgs: typeArgs,
			PackArgs: packArgs,
		})
		return newID
	default:
		return id
	}
}

func (sb *substituter) substitutePack(id TypePackID) TypePackID {
	if id == NoPack {
		return id
	}
	id = sb.a.FollowPack(id)
	if mapped, ok := sb.packMap[id]; ok {
		return mapped
	}
	if cloned, ok := sb.clonedPacks[id]; ok {
		return cloned
	}
	if !sb.touchedPack(id) {
		return id
	}
	switch p := sb.a.GetPack(id).(type) {
	case *ListPack:
		newID := sb.a.NewPack(&BoundPack{Target: id})
		sb.clonedPacks[id] = newID
		head := make([]TypeID, len(p.Head))
		for i, h := range p.Head {
			head[i] = sb.substitute(h)
		}
		tail := NoPack
		if p.Tail != NoPack {
			tail = sb.substitutePack(p.Tail)
		}
		sb.a.EmplacePack(newID, &ListPack{Head: head, Tail: tail})
		return newID
	case *VariadicPack:
		newID := sb.a.NewPack(&VariadicPack{Elem: sb.substitute(p.Elem)})
		sb.clonedPacks[id] = newID
		return newID
	default:
		return id
	}
}
