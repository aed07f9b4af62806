package types

// Normalizer answers semantic questions the solver cannot settle
// structurally. The default implementation is conservative; a checker
// with a full normal form cache can plug in its own.
type Normalizer interface {
	// IsInhabited reports whether any value can have the given type.
	// ok is false when unresolved types make the question undecidable.
	IsInhabited(ty TypeID) (inhabited bool, ok bool)
	// Intersect returns the meet of left and right. ok is false when
	// unresolved types prevent computing it.
	Intersect(left, right TypeID) (result TypeID, ok bool)
}

type basicNormalizer struct {
	a *Arena
}

func NewNormalizer(a *Arena) Normalizer {
	return &basicNormalizer{a: a}
}

func (n *basicNormalizer) IsInhabited(ty TypeID) (bool, bool) {
	switch t := n.a.Resolve(ty).(type) {
	case *NeverType:
		return false, true
	case *FreeType, *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
		return false, false
	case *UnionType:
		decided := true
		for _, o := range t.Options {
			inhabited, ok := n.IsInhabited(o)
			if inhabited {
				return true, true
			}
			decided = decided && ok
		}
		return false, decided
	case *IntersectionType:
		// distinct concrete shapes cannot intersect
		var kind string
		for _, p := range t.Parts {
			inhabited, ok := n.IsInhabited(p)
			if !ok {
				return false, false
			}
			if !inhabited {
				return false, true
			}
			k := shapeOf(n.a.Resolve(p))
			if k == "" {
				continue
			}
			if kind == "" {
				kind = k
			} else if kind != k {
				return false, true
			}
		}
		return true, true
	default:
		return true, true
	}
}

// shapeOf buckets terms whose values cannot overlap.
func shapeOf(t TypeTerm) string {
	switch t := t.(type) {
	case *PrimitiveType:
		return t.Kind.String()
	case *SingletonType:
		if t.IsString {
			return PrimString.String()
		}
		return PrimBoolean.String()
	case *FunctionType:
		return PrimFunction.String()
	case *TableType, *MetatableType:
		return PrimTable.String()
	default:
		return ""
	}
}

func (n *basicNormalizer) Intersect(left, right TypeID) (TypeID, bool) {
	left = n.a.Follow(left)
	right = n.a.Follow(right)
	switch n.a.Get(left).(type) {
	case *FreeType, *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
		return NoType, false
	}
	switch n.a.Get(right).(type) {
	case *FreeType, *BlockedType, *PendingExpansionType, *TypeFunctionInstance:
		return NoType, false
	}
	if left == right {
		return left, true
	}
	if _, isUnknown := n.a.Get(left).(*UnknownType); isUnknown {
		return right, true
	}
	if _, isUnknown := n.a.Get(right).(*UnknownType); isUnknown {
		return left, true
	}
	result := n.a.NewIntersection(left, right)
	if inhabited, ok := n.IsInhabited(result); ok && !inhabited {
		return n.a.Builtins.Never, true
	}
	return result, true
}
