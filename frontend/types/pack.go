package types

import (
	"github.com/hashicorp/go-set/v3"
)

// TypePackID names a pack slot in an Arena. The zero value is the empty
// sentinel used for optional tails.
type TypePackID uint32

const NoPack TypePackID = 0

type PackTerm interface {
	packKind() string
}

var _ PackTerm = (*ListPack)(nil)
var _ PackTerm = (*VariadicPack)(nil)
var _ PackTerm = (*GenericPack)(nil)
var _ PackTerm = (*BlockedPack)(nil)
var _ PackTerm = (*BoundPack)(nil)
var _ PackTerm = (*ErrorPack)(nil)

// ListPack is a finite prefix of types plus an optional tail pack.
type ListPack struct {
	Head []TypeID
	Tail TypePackID
}

func (*ListPack) packKind() string { return "list" }

// VariadicPack repeats Elem indefinitely.
type VariadicPack struct {
	Elem TypeID
}

func (*VariadicPack) packKind() string { return "variadic" }

type GenericPack struct {
	Name string
}

func (*GenericPack) packKind() string { return "genericPack" }

type BlockedPack struct {
	Owner *Constraint
}

func (*BlockedPack) packKind() string { return "blockedPack" }

type BoundPack struct {
	Target TypePackID
}

func (*BoundPack) packKind() string { return "boundPack" }

type ErrorPack struct{}

func (*ErrorPack) packKind() string { return "errorPack" }

// FlatPack is the normalized view of a pack: the concrete head types in
// order, plus whatever tail could not be flattened. Tail is nil for a
// finite pack.
type FlatPack struct {
	Head []TypeID
	Tail PackTerm
	// TailID is the arena slot Tail lives at, when Tail is not nil.
	TailID TypePackID
}

// Flatten walks list heads and bound chains until it reaches a terminal
// tail. Cyclic tails terminate via the seen set and report an error tail.
func (a *Arena) Flatten(id TypePackID) FlatPack {
	var out FlatPack
	seen := set.New[TypePackID](4)
	for id != NoPack {
		if seen.Contains(id) {
			out.Tail = &ErrorPack{}
			out.TailID = a.Builtins.ErrorPack
			return out
		}
		seen.Insert(id)
		switch p := a.GetPack(id).(type) {
		case *ListPack:
			out.Head = append(out.Head, p.Head...)
			id = p.Tail
		case *BoundPack:
			id = p.Target
		default:
			out.Tail = p
			out.TailID = id
			return out
		}
	}
	return out
}

// Finite reports whether the pack has no tail after flattening.
func (f FlatPack) Finite() bool { return f.Tail == nil }

// At returns the i-th type of the pack, consulting a variadic tail when
// the head runs out. ok is false past the end of a finite pack.
func (f FlatPack) At(i int) (ty TypeID, ok bool) {
	if i < len(f.Head) {
		return f.Head[i], true
	}
	if v, isVariadic := f.Tail.(*VariadicPack); isVariadic {
		return v.Elem, true
	}
	return NoType, false
}

// FirstType returns the first element of the pack, if any.
func (a *Arena) FirstType(id TypePackID) (TypeID, bool) {
	return a.Flatten(id).At(0)
}
