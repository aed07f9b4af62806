package types

import (
	"github.com/veldt-lang/veldt/frontend/verr"
)

// solveHasIndexer binds Result to the element type obtained by indexing
// Subject with IndexType.
func (s *Solver) solveHasIndexer(c *Constraint, v *HasIndexerConstraint, force bool) bool {
	a := s.Arena
	subject := a.Follow(v.Subject)
	if s.isBlockedTerm(subject) {
		if !force {
			return s.blockOnType(subject, c)
		}
		s.bindBlockedType(v.Result, a.Builtins.Error)
		return true
	}

	switch t := a.Get(subject).(type) {
	case *AnyType:
		s.bindBlockedType(v.Result, a.Builtins.Any)
		return true
	case *ErrorType:
		s.bindBlockedType(v.Result, a.Builtins.Error)
		return true
	case *NeverType:
		s.bindBlockedType(v.Result, a.Builtins.Never)
		return true
	case *FreeType:
		// indexing an unsolved type: it must at least be a table indexed
		// by the key
		result := a.FreshFree(t.Scope)
		expected := a.New(&TableType{
			Indexer: &Indexer{KeyType: v.IndexType, ValueType: result},
			State:   TableUnsealed,
			Scope:   t.Scope,
		})
		t.UpperBound = a.NewIntersection(t.UpperBound, expected)
		s.UpperBoundContributors[subject] = append(s.UpperBoundContributors[subject],
			TypeLocation{Ty: expected, Location: c.Location})
		s.bindBlockedType(v.Result, result)
		return true
	case *LocalType:
		v2 := &HasIndexerConstraint{Result: v.Result, Subject: t.Domain, IndexType: v.IndexType}
		c.V = v2
		return s.solveHasIndexer(c, v2, force)
	case *TableType:
		return s.indexTable(c, v, subject, t)
	case *MetatableType:
		v2 := &HasIndexerConstraint{Result: v.Result, Subject: t.Table, IndexType: v.IndexType}
		c.V = v2
		return s.solveHasIndexer(c, v2, force)
	case *ClassType:
		if t.Indexer != nil {
			s.unifyAndReact(c, v.IndexType, t.Indexer.KeyType, force)
			s.bindBlockedType(v.Result, t.Indexer.ValueType)
			return true
		}
	case *UnionType:
		parts := make([]TypeID, 0, len(t.Options))
		for _, o := range t.Options {
			elem := a.FreshFree(c.Scope)
			inner := s.PushConstraint(c.Scope, c.Location, &HasIndexerConstraint{
				Result:    elem,
				Subject:   o,
				IndexType: v.IndexType,
			})
			s.InheritBlocks(c, inner)
			parts = append(parts, elem)
		}
		s.bindBlockedType(v.Result, a.NewUnion(parts...))
		return true
	}

	s.reportError(verr.NewGeneric{
		Positioner: c.Location,
		Message:    "cannot index " + a.TypeString(subject) + " with " + a.TypeString(v.IndexType),
	})
	s.bindBlockedType(v.Result, a.Builtins.Error)
	return true
}

func (s *Solver) indexTable(c *Constraint, v *HasIndexerConstraint, subject TypeID, t *TableType) bool {
	a := s.Arena
	if key, isSingleton := a.Resolve(v.IndexType).(*SingletonType); isSingleton && key.IsString {
		if prop, present := t.Props[key.StringValue]; present && prop.ReadType != NoType {
			s.bindBlockedType(v.Result, prop.ReadType)
			return true
		}
	}
	if t.Indexer != nil {
		s.unifyAndReact(c, v.IndexType, t.Indexer.KeyType, false)
		s.bindBlockedType(v.Result, t.Indexer.ValueType)
		return true
	}
	if t.State == TableFree || t.State == TableUnsealed {
		// the first read through an indexer decides its shape
		elem := a.FreshFree(t.Scope)
		t.Indexer = &Indexer{KeyType: v.IndexType, ValueType: elem}
		s.bindBlockedType(v.Result, elem)
		return true
	}
	s.reportError(verr.NewGeneric{
		Positioner: c.Location,
		Message:    "cannot index " + a.TypeString(subject) + " with " + a.TypeString(v.IndexType),
	})
	s.bindBlockedType(v.Result, a.Builtins.Error)
	return true
}

// solveSetIndexer writes PropType through Subject's indexer, creating
// the indexer on growable tables.
func (s *Solver) solveSetIndexer(c *Constraint, v *SetIndexerConstraint, force bool) bool {
	a := s.Arena
	subject := a.Follow(v.Subject)
	if s.isBlockedTerm(subject) {
		if !force {
			return s.blockOnType(subject, c)
		}
		return true
	}

	switch t := a.Get(subject).(type) {
	case *AnyType, *ErrorType, *NeverType:
		return true
	case *FreeType:
		table := a.New(&TableType{
			Indexer: &Indexer{KeyType: v.IndexType, ValueType: v.PropType},
			State:   TableUnsealed,
			Scope:   t.Scope,
		})
		s.bindType(subject, table)
		return true
	case *LocalType:
		v2 := &SetIndexerConstraint{Subject: t.Domain, IndexType: v.IndexType, PropType: v.PropType}
		c.V = v2
		return s.solveSetIndexer(c, v2, force)
	case *MetatableType:
		v2 := &SetIndexerConstraint{Subject: t.Table, IndexType: v.IndexType, PropType: v.PropType}
		c.V = v2
		return s.solveSetIndexer(c, v2, force)
	case *TableType:
		if t.Indexer != nil {
			s.unifyAndReact(c, v.IndexType, t.Indexer.KeyType, force)
			s.unifyAndReact(c, v.PropType, t.Indexer.ValueType, force)
			return true
		}
		if t.State == TableFree || t.State == TableUnsealed {
			t.Indexer = &Indexer{KeyType: v.IndexType, ValueType: v.PropType}
			return true
		}
	}
	s.reportError(verr.NewGeneric{
		Positioner: c.Location,
		Message:    "cannot index " + a.TypeString(subject) + " with " + a.TypeString(v.IndexType),
	})
	return true
}
