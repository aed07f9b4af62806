package types

import (
	"github.com/veldt-lang/veldt/frontend/verr"
)

// solveSetProp assigns a type to the property at the end of Path,
// creating intermediate tables inside unsealed subjects as it descends.
func (s *Solver) solveSetProp(c *Constraint, v *SetPropConstraint, force bool) bool {
	a := s.Arena
	subject := a.Follow(v.Subject)
	if s.isBlockedTerm(subject) {
		if !force {
			return s.blockOnType(subject, c)
		}
		s.bindBlockedType(v.Result, a.Builtins.Error)
		return true
	}

	cur := subject
	i := 0
	for i < len(v.Path) {
		segment := v.Path[i]
		last := i == len(v.Path)-1
		cur = a.Follow(cur)
		if s.isBlockedTerm(cur) {
			if !force {
				return s.blockOnType(cur, c)
			}
			s.bindBlockedType(v.Result, a.Builtins.Error)
			return true
		}
		switch t := a.Get(cur).(type) {
		case *AnyType, *ErrorType:
			s.bindBlockedType(v.Result, subject)
			return true
		case *FreeType:
			// writing through an unsolved type forces it to be a table
			table := a.New(&TableType{
				Props: map[string]Property{},
				State: TableUnsealed,
				Scope: t.Scope,
			})
			s.bindType(cur, table)
			cur = table
		case *LocalType:
			cur = t.Domain
		case *MetatableType:
			cur = t.Table
		case *TableType:
			if last {
				s.writeProp(c, cur, t, segment, v.PropType)
				s.bindBlockedType(v.Result, subject)
				return true
			}
			next, present := t.Props[segment]
			switch {
			case present && next.ReadType != NoType:
				cur = next.ReadType
			case t.State == TableFree || t.State == TableUnsealed:
				inner := a.New(&TableType{
					Props: map[string]Property{},
					State: TableUnsealed,
					Scope: t.Scope,
				})
				if t.Props == nil {
					t.Props = map[string]Property{}
				}
				t.Props[segment] = SharedProperty(inner)
				cur = inner
			default:
				s.reportError(verr.NewGeneric{
					Positioner: c.Location,
					Message:    "key " + quoteProp(segment) + " not found in " + a.TypeString(cur),
				})
				s.bindBlockedType(v.Result, a.Builtins.Error)
				return true
			}
			i++
		default:
			s.reportError(verr.NewGeneric{
				Positioner: c.Location,
				Message:    "cannot assign a property of " + a.TypeString(cur),
			})
			s.bindBlockedType(v.Result, a.Builtins.Error)
			return true
		}
	}
	s.bindBlockedType(v.Result, subject)
	return true
}

// writeProp stores propType under name. Existing props accept the new
// value via unification; sealed tables without the prop reject it.
func (s *Solver) writeProp(c *Constraint, tableID TypeID, t *TableType, name string, propType TypeID) {
	if existing, present := t.Props[name]; present {
		if existing.WriteType == NoType && existing.ReadType != NoType {
			// the write widens a read-only property to read-write
			existing.WriteType = existing.ReadType
			t.Props[name] = existing
		}
		if existing.WriteType != NoType {
			s.unifyAndReact(c, propType, existing.WriteType, false)
		}
		return
	}
	if t.State == TableFree || t.State == TableUnsealed {
		if t.Props == nil {
			t.Props = map[string]Property{}
		}
		t.Props[name] = SharedProperty(propType)
		return
	}
	s.reportError(verr.NewGeneric{
		Positioner: c.Location,
		Message:    "cannot add key " + quoteProp(name) + " to sealed table " + s.Arena.TypeString(tableID),
	})
}
