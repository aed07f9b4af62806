package types

import (
	"github.com/hashicorp/go-set/v3"
)

// typeVisitor walks the type graph once, following bound chains and
// skipping already-seen slots. onType and onPack may be nil; returning
// false from onType stops descent into that term's children.
type typeVisitor struct {
	a         *Arena
	seenTypes *set.Set[TypeID]
	seenPacks *set.Set[TypePackID]
	onType    func(id TypeID, t TypeTerm) bool
	onPack    func(id TypePackID, p PackTerm) bool
}

func newTypeVisitor(a *Arena) *typeVisitor {
	return &typeVisitor{
		a:         a,
		seenTypes: set.New[TypeID](16),
		seenPacks: set.New[TypePackID](4),
	}
}

func (v *typeVisitor) traverse(id TypeID) {
	if id == NoType {
		return
	}
	id = v.a.Follow(id)
	if v.seenTypes.Contains(id) {
		return
	}
	v.seenTypes.Insert(id)
	t := v.a.Get(id)
	if v.onType != nil && !v.onType(id, t) {
		return
	}
	switch t := t.(type) {
	case *FreeType:
		v.traverse(t.LowerBound)
		v.traverse(t.UpperBound)
	case *PendingExpansionType:
		for _, arg := range t.TypeArguments {
			v.traverse(arg)
		}
		for _, arg := range t.PackArguments {
			v.traversePack(arg)
		}
	case *TypeFunctionInstance:
		for _, arg := range t.TypeArgs {
			v.traverse(arg)
		}
		for _, arg := range t.PackArgs {
			v.traversePack(arg)
		}
	case *LocalType:
		v.traverse(t.Domain)
	case *FunctionType:
		v.traversePack(t.ArgPack)
		v.traversePack(t.RetPack)
	case *TableType:
		for _, prop := range t.Props {
			v.traverse(prop.ReadType)
			v.traverse(prop.WriteType)
		}
		if t.Indexer != nil {
			v.traverse(t.Indexer.KeyType)
			v.traverse(t.Indexer.ValueType)
		}
	case *MetatableType:
		v.traverse(t.Table)
		v.traverse(t.Metatable)
	case *ClassType:
		// host classes are closed; nothing inside them can be free
	case *UnionType:
		for _, o := range t.Options {
			v.traverse(o)
		}
	case *IntersectionType:
		for _, p := range t.Parts {
			v.traverse(p)
		}
	}
}

func (v *typeVisitor) traversePack(id TypePackID) {
	if id == NoPack {
		return
	}
	id = v.a.FollowPack(id)
	if v.seenPacks.Contains(id) {
		return
	}
	v.seenPacks.Insert(id)
	p := v.a.GetPack(id)
	if v.onPack != nil && !v.onPack(id, p) {
		return
	}
	switch p := p.(type) {
	case *ListPack:
		for _, h := range p.Head {
			v.traverse(h)
		}
		v.traversePack(p.Tail)
	case *VariadicPack:
		v.traverse(p.Elem)
	}
}

// rootTypes lists the type and pack IDs a constraint payload names
// directly.
func rootTypes(c *Constraint) (tys []TypeID, packs []TypePackID) {
	switch v := c.V.(type) {
	case *SubtypeConstraint:
		tys = []TypeID{v.SubType, v.SuperType}
	case *PackSubtypeConstraint:
		packs = []TypePackID{v.SubPack, v.SuperPack}
	case *GeneralizationConstraint:
		tys = append([]TypeID{v.GeneralizedType, v.SourceType}, v.InteriorTypes...)
	case *IterableConstraint:
		tys = v.Variables
		packs = []TypePackID{v.Iterator}
	case *NameConstraint:
		tys = []TypeID{v.NamedType}
	case *TypeAliasExpansionConstraint:
		tys = []TypeID{v.Target}
	case *FunctionCallConstraint:
		tys = append([]TypeID{v.Fn}, v.DiscriminantTypes...)
		packs = []TypePackID{v.ArgsPack, v.Result}
	case *FunctionCheckConstraint:
		tys = []TypeID{v.Fn}
		packs = []TypePackID{v.ArgsPack}
	case *PrimitiveTypeConstraint:
		tys = []TypeID{v.FreeType, v.ExpectedType, v.PrimitiveTy}
	case *HasPropConstraint:
		tys = []TypeID{v.Result, v.Subject}
	case *SetPropConstraint:
		tys = []TypeID{v.Result, v.Subject, v.PropType}
	case *HasIndexerConstraint:
		tys = []TypeID{v.Result, v.Subject, v.IndexType}
	case *SetIndexerConstraint:
		tys = []TypeID{v.Subject, v.IndexType, v.PropType}
	case *UnpackConstraint:
		packs = []TypePackID{v.ResultPack, v.SourcePack}
	case *Unpack1Constraint:
		tys = []TypeID{v.Result, v.Source}
	case *ReduceConstraint:
		tys = []TypeID{v.Ty}
	case *ReducePackConstraint:
		packs = []TypePackID{v.Pack}
	case *EqualityConstraint:
		tys = []TypeID{v.ResultType, v.AssignmentType}
	}
	out := tys[:0]
	for _, t := range tys {
		if t != NoType {
			out = append(out, t)
		}
	}
	tys = out
	outP := packs[:0]
	for _, p := range packs {
		if p != NoPack {
			outP = append(outP, p)
		}
	}
	return tys, outP
}

// freeTypesMentioned collects the free types reachable from a
// constraint. Each one holds a unit of the constraint's contribution to
// unresolvedConstraints while the constraint is alive.
func freeTypesMentioned(a *Arena, c *Constraint) []TypeID {
	var frees []TypeID
	v := newTypeVisitor(a)
	v.onType = func(id TypeID, t TypeTerm) bool {
		if _, isFree := t.(*FreeType); isFree {
			frees = append(frees, id)
		}
		return true
	}
	tys, packs := rootTypes(c)
	for _, t := range tys {
		v.traverse(t)
	}
	for _, p := range packs {
		v.traversePack(p)
	}
	return frees
}
