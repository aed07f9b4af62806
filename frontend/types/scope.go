package types

import (
	"github.com/benbjohnson/immutable"
)

// Scope is one lexical level of the module being checked. Bindings are
// immutable so child scopes can share their parent's map without copying.
type Scope struct {
	Parent   *Scope
	Bindings *immutable.Map[string, TypeID]
	// TypeAliases are the alias definitions visible at this level,
	// consulted by pending expansions.
	TypeAliases map[string]*TypeAlias
	// Returns is the pack of the enclosing function's return values.
	Returns TypePackID
}

// TypeAlias is an alias definition: a body parameterized over generic
// types and packs, with optional defaults on trailing parameters.
type TypeAlias struct {
	Name       string
	TypeParams []TypeParam
	PackParams []PackParam
	Body       TypeID
}

type TypeParam struct {
	Generic TypeID
	Default TypeID
}

type PackParam struct {
	Generic TypePackID
	Default TypePackID
}

func NewRootScope() *Scope {
	return &Scope{
		Bindings:    immutable.NewMap[string, TypeID](nil),
		TypeAliases: map[string]*TypeAlias{},
	}
}

func (s *Scope) Child() *Scope {
	return &Scope{
		Parent:   s,
		Bindings: s.Bindings,
		Returns:  s.Returns,
	}
}

func (s *Scope) Bind(name string, ty TypeID) {
	s.Bindings = s.Bindings.Set(name, ty)
}

// Lookup walks the scope chain for a value binding.
func (s *Scope) Lookup(name string) (TypeID, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if ty, ok := cur.Bindings.Get(name); ok {
			return ty, true
		}
	}
	return NoType, false
}

// LookupTypeAlias walks the scope chain for an alias definition.
func (s *Scope) LookupTypeAlias(name string) (*TypeAlias, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.TypeAliases == nil {
			continue
		}
		if alias, ok := cur.TypeAliases[name]; ok {
			return alias, true
		}
	}
	return nil, false
}

// Root returns the outermost scope in the chain.
func (s *Scope) Root() *Scope {
	cur := s
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// Encloses reports whether s is other or an ancestor of other.
func (s *Scope) Encloses(other *Scope) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == s {
			return true
		}
	}
	return false
}
