package types

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/veldt-lang/veldt/frontend/verr"
)

// propLookup walks a subject type looking for a named property,
// following metatable __index chains and class parents. Blocked types
// discovered along the way are reported so the constraint can wait for
// them instead of failing early.
type propLookup struct {
	s       *Solver
	prop    string
	context ValueContext
	seen    *set.Set[TypeID]
	fuel    int

	blocked []TypeID
}

func (l *propLookup) find(subject TypeID) (TypeID, bool) {
	if l.fuel <= 0 {
		return NoType, false
	}
	l.fuel--
	a := l.s.Arena
	subject = a.Follow(subject)
	if l.seen.Contains(subject) {
		return NoType, false
	}
	l.seen.Insert(subject)

	switch t := a.Get(subject).(type) {
	case *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
		l.blocked = append(l.blocked, subject)
		return NoType, false
	case *AnyType:
		return a.Builtins.Any, true
	case *ErrorType:
		return a.Builtins.Error, true
	case *NeverType:
		return a.Builtins.Never, true
	case *FreeType:
		// reading a prop off an unsolved type: its upper bound must at
		// least be a table carrying the prop
		if found, ok := l.find(t.UpperBound); ok {
			return found, true
		}
		result := a.FreshFree(t.Scope)
		expected := a.New(&TableType{
			Props: map[string]Property{l.prop: l.newProp(result)},
			State: TableUnsealed,
			Scope: t.Scope,
		})
		t.UpperBound = a.NewIntersection(t.UpperBound, expected)
		return result, true
	case *LocalType:
		return l.find(t.Domain)
	case *TableType:
		return l.findInTable(t)
	case *MetatableType:
		if found, ok := l.find(t.Table); ok {
			return found, true
		}
		return l.findInMetatable(t.Metatable)
	case *ClassType:
		if prop, present := t.Props[l.prop]; present {
			return l.propType(prop)
		}
		if t.Parent != NoType {
			if found, ok := l.find(t.Parent); ok {
				return found, true
			}
		}
		if t.Metatable != NoType {
			return l.findInMetatable(t.Metatable)
		}
		return NoType, false
	case *UnionType:
		// every option must carry the prop
		parts := make([]TypeID, 0, len(t.Options))
		for _, o := range t.Options {
			found, ok := l.find(o)
			if !ok {
				return NoType, false
			}
			parts = append(parts, found)
		}
		if l.context == ValueContextLValue {
			return a.NewIntersection(parts...), true
		}
		return a.NewUnion(parts...), true
	case *IntersectionType:
		for _, p := range t.Parts {
			if found, ok := l.find(p); ok {
				return found, true
			}
		}
		return NoType, false
	default:
		return NoType, false
	}
}

func (l *propLookup) findInTable(t *TableType) (TypeID, bool) {
	a := l.s.Arena
	if prop, present := t.Props[l.prop]; present {
		if l.context == ValueContextLValue && prop.WriteType == NoType && prop.ReadType != NoType {
			// assigning through a read-only property widens it
			prop.WriteType = prop.ReadType
			t.Props[l.prop] = prop
		}
		return l.propType(prop)
	}
	if t.Indexer != nil {
		u := newUnifier(l.s, false)
		key := a.New(&SingletonType{IsString: true, StringValue: l.prop})
		if holds, decided := u.subsumesPure(key, t.Indexer.KeyType); decided && holds {
			return t.Indexer.ValueType, true
		}
	}
	// free tables may still grow the prop later; unsealed tables grow it
	// only when written to
	if t.State == TableFree || (t.State == TableUnsealed && l.context == ValueContextLValue) {
		result := a.FreshFree(t.Scope)
		if t.Props == nil {
			t.Props = map[string]Property{}
		}
		t.Props[l.prop] = l.newProp(result)
		return result, true
	}
	return NoType, false
}

// newProp synthesizes the property a lookup grows its table with. A
// read creates it read-only; an assignment creates it read-write.
func (l *propLookup) newProp(ty TypeID) Property {
	if l.context == ValueContextLValue {
		return SharedProperty(ty)
	}
	return ReadOnlyProperty(ty)
}

// findInMetatable resolves the __index entry of a metatable. A table
// __index redirects the lookup into it; a function __index gives the
// call's first return.
func (l *propLookup) findInMetatable(metatable TypeID) (TypeID, bool) {
	a := l.s.Arena
	mt, ok := a.Resolve(metatable).(*TableType)
	if !ok {
		switch a.Resolve(metatable).(type) {
		case *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
			l.blocked = append(l.blocked, a.Follow(metatable))
		}
		return NoType, false
	}
	index, present := mt.Props["__index"]
	if !present || index.ReadType == NoType {
		return NoType, false
	}
	switch target := a.Resolve(index.ReadType).(type) {
	case *FunctionType:
		if first, ok := a.FirstType(target.RetPack); ok {
			return first, true
		}
		return NoType, false
	default:
		return l.find(index.ReadType)
	}
}

func (l *propLookup) propType(prop Property) (TypeID, bool) {
	if l.context == ValueContextLValue {
		if prop.WriteType != NoType {
			return prop.WriteType, true
		}
		return NoType, false
	}
	if prop.ReadType != NoType {
		return prop.ReadType, true
	}
	return NoType, false
}

func (s *Solver) solveHasProp(c *Constraint, v *HasPropConstraint, force bool) bool {
	a := s.Arena
	subject := a.Follow(v.Subject)
	if s.isBlockedTerm(subject) {
		if !force {
			return s.blockOnType(subject, c)
		}
		s.bindBlockedType(v.Result, a.Builtins.Error)
		return true
	}

	l := &propLookup{
		s:       s,
		prop:    v.Prop,
		context: v.Context,
		seen:    set.New[TypeID](8),
		fuel:    s.limits.recursionLimit(),
	}
	found, ok := l.find(subject)
	if len(l.blocked) > 0 && !force {
		for _, b := range l.blocked {
			s.blockOnType(b, c)
		}
		return false
	}
	if !ok {
		if v.InConditional {
			// probing an absent prop in a condition reads as unknown
			s.bindBlockedType(v.Result, a.Builtins.Unknown)
			return true
		}
		s.reportError(verr.NewGeneric{
			Positioner: c.Location,
			Message:    "key " + quoteProp(v.Prop) + " not found in " + a.TypeString(subject),
		})
		s.bindBlockedType(v.Result, a.Builtins.Error)
		return true
	}
	if !v.SuppressSimplification {
		found = a.Follow(found)
	}
	s.bindBlockedType(v.Result, found)
	return true
}

func quoteProp(name string) string {
	return "'" + name + "'"
}
