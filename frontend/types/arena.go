package types

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"
)

// Arena owns every type and pack the solver can reach. IDs are stable for
// the lifetime of the arena; solving mutates slots in place, usually by
// replacing a term with a BoundType forwarding to its solution.
type Arena struct {
	types []TypeTerm
	packs []PackTerm

	Builtins Builtins
}

// Builtins are the interned terms every module shares.
type Builtins struct {
	Any     TypeID
	Unknown TypeID
	Never   TypeID
	Error   TypeID
	Nil     TypeID
	Boolean TypeID
	Number  TypeID
	String  TypeID
	Thread  TypeID
	// Table and Function are the untyped primitive forms, distinct from
	// structural TableType/FunctionType terms.
	Table    TypeID
	Function TypeID
	True     TypeID
	False    TypeID

	AnyPack   TypePackID
	ErrorPack TypePackID
	EmptyPack TypePackID
}

func NewArena() *Arena {
	a := &Arena{
		// slot 0 is NoType/NoPack
		types: make([]TypeTerm, 1, 64),
		packs: make([]PackTerm, 1, 16),
	}
	a.Builtins = Builtins{
		Any:      a.New(&AnyType{}),
		Unknown:  a.New(&UnknownType{}),
		Never:    a.New(&NeverType{}),
		Error:    a.New(&ErrorType{}),
		Nil:      a.New(&PrimitiveType{Kind: PrimNil}),
		Boolean:  a.New(&PrimitiveType{Kind: PrimBoolean}),
		Number:   a.New(&PrimitiveType{Kind: PrimNumber}),
		String:   a.New(&PrimitiveType{Kind: PrimString}),
		Thread:   a.New(&PrimitiveType{Kind: PrimThread}),
		Table:    a.New(&PrimitiveType{Kind: PrimTable}),
		Function: a.New(&PrimitiveType{Kind: PrimFunction}),
		True:     a.New(BoolSingleton(true)),
		False:    a.New(BoolSingleton(false)),
	}
	a.Builtins.AnyPack = a.NewPack(&VariadicPack{Elem: a.Builtins.Any})
	a.Builtins.ErrorPack = a.NewPack(&ErrorPack{})
	a.Builtins.EmptyPack = a.NewPack(&ListPack{})
	return a
}

func (a *Arena) New(t TypeTerm) TypeID {
	a.types = append(a.types, t)
	return TypeID(len(a.types) - 1)
}

func (a *Arena) NewPack(p PackTerm) TypePackID {
	a.packs = append(a.packs, p)
	return TypePackID(len(a.packs) - 1)
}

// Get returns the term at id without following bounds.
func (a *Arena) Get(id TypeID) TypeTerm {
	if id == NoType || int(id) >= len(a.types) {
		panic(fmt.Sprintf("invalid type id %d", id))
	}
	return a.types[id]
}

func (a *Arena) GetPack(id TypePackID) PackTerm {
	if id == NoPack || int(id) >= len(a.packs) {
		panic(fmt.Sprintf("invalid pack id %d", id))
	}
	return a.packs[id]
}

// Follow resolves a chain of BoundType forwards. Intermediate slots are
// compressed to point at the representative.
func (a *Arena) Follow(id TypeID) TypeID {
	root := id
	for {
		b, ok := a.Get(root).(*BoundType)
		if !ok {
			break
		}
		root = b.Target
	}
	for id != root {
		b := a.Get(id).(*BoundType)
		a.types[id] = &BoundType{Target: root}
		id = b.Target
	}
	return root
}

func (a *Arena) FollowPack(id TypePackID) TypePackID {
	for {
		b, ok := a.GetPack(id).(*BoundPack)
		if !ok {
			return id
		}
		id = b.Target
	}
}

// Resolve is Get after Follow.
func (a *Arena) Resolve(id TypeID) TypeTerm {
	return a.Get(a.Follow(id))
}

func (a *Arena) ResolvePack(id TypePackID) PackTerm {
	return a.GetPack(a.FollowPack(id))
}

// Bind solves the slot at id by forwarding it to target. Binding a slot
// to itself is a programming error; callers that can self-bind go through
// Solver.bindBlockedType instead.
func (a *Arena) Bind(id TypeID, target TypeID) {
	if a.Follow(target) == a.Follow(id) && a.Follow(id) == id {
		panic(fmt.Sprintf("cannot bind type %d to itself", id))
	}
	a.types[id] = &BoundType{Target: target}
}

func (a *Arena) BindPack(id TypePackID, target TypePackID) {
	if a.FollowPack(target) == id {
		panic(fmt.Sprintf("cannot bind pack %d to itself", id))
	}
	a.packs[id] = &BoundPack{Target: target}
}

// Emplace replaces the term at id outright. Used when a slot changes
// shape rather than forwards, like a free table gaining a property.
func (a *Arena) Emplace(id TypeID, t TypeTerm) {
	if id == NoType || int(id) >= len(a.types) {
		panic(fmt.Sprintf("invalid type id %d", id))
	}
	a.types[id] = t
}

func (a *Arena) EmplacePack(id TypePackID, p PackTerm) {
	if id == NoPack || int(id) >= len(a.packs) {
		panic(fmt.Sprintf("invalid pack id %d", id))
	}
	a.packs[id] = p
}

// FreshFree allocates an unsolved type variable scoped to scope, bounded
// by never below and unknown above.
func (a *Arena) FreshFree(scope *Scope) TypeID {
	return a.New(&FreeType{
		Scope:      scope,
		LowerBound: a.Builtins.Never,
		UpperBound: a.Builtins.Unknown,
	})
}

// NewUnion interns a union of the given options, flattening nested unions
// and deduplicating. Any option absorbs the union; never options vanish.
func (a *Arena) NewUnion(options ...TypeID) TypeID {
	flat := a.flattenSumOptions(options, true)
	switch len(flat) {
	case 0:
		return a.Builtins.Never
	case 1:
		return flat[0]
	}
	for _, o := range flat {
		if _, isAny := a.Resolve(o).(*AnyType); isAny {
			return a.Builtins.Any
		}
	}
	return a.New(&UnionType{Options: flat})
}

// NewIntersection interns an intersection, flattening and deduplicating.
// Unknown parts vanish; a never part collapses the whole intersection.
func (a *Arena) NewIntersection(parts ...TypeID) TypeID {
	flat := a.flattenSumOptions(parts, false)
	switch len(flat) {
	case 0:
		return a.Builtins.Unknown
	case 1:
		return flat[0]
	}
	for _, p := range flat {
		if _, isNever := a.Resolve(p).(*NeverType); isNever {
			return a.Builtins.Never
		}
	}
	return a.New(&IntersectionType{Parts: flat})
}

func (a *Arena) flattenSumOptions(options []TypeID, union bool) []TypeID {
	seen := set.New[TypeID](len(options))
	var out []TypeID
	var walk func(ids []TypeID)
	walk = func(ids []TypeID) {
		for _, id := range ids {
			id = a.Follow(id)
			switch t := a.Get(id).(type) {
			case *UnionType:
				if union {
					walk(t.Options)
					continue
				}
			case *IntersectionType:
				if !union {
					walk(t.Parts)
					continue
				}
			case *NeverType:
				if union {
					continue
				}
			case *UnknownType:
				if !union {
					continue
				}
			}
			if !seen.Contains(id) {
				seen.Insert(id)
				out = append(out, id)
			}
		}
	}
	walk(options)
	return out
}

// TruthyType strips nil and false from a type, approximating the values
// that pass a condition.
func (a *Arena) TruthyType(id TypeID) TypeID {
	id = a.Follow(id)
	switch t := a.Get(id).(type) {
	case *PrimitiveType:
		if t.Kind == PrimNil {
			return a.Builtins.Never
		}
	case *SingletonType:
		if !t.IsString && !t.BoolValue {
			return a.Builtins.Never
		}
	case *UnionType:
		kept := make([]TypeID, 0, len(t.Options))
		for _, o := range t.Options {
			stripped := a.TruthyType(o)
			if _, never := a.Resolve(stripped).(*NeverType); !never {
				kept = append(kept, stripped)
			}
		}
		return a.NewUnion(kept...)
	}
	return id
}

// StripNil removes nil from a union. A bare nil becomes never; other
// non-union types pass through.
func (a *Arena) StripNil(id TypeID) TypeID {
	id = a.Follow(id)
	u, ok := a.Get(id).(*UnionType)
	if !ok {
		if p, isPrim := a.Get(id).(*PrimitiveType); isPrim && p.Kind == PrimNil {
			return a.Builtins.Never
		}
		return id
	}
	kept := make([]TypeID, 0, len(u.Options))
	for _, o := range u.Options {
		if p, isPrim := a.Resolve(o).(*PrimitiveType); isPrim && p.Kind == PrimNil {
			continue
		}
		kept = append(kept, o)
	}
	return a.NewUnion(kept...)
}
