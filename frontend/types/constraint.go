package types

import (
	"github.com/veldt-lang/veldt/frontend/ast"
)

// Constraint is one unit of solver work. Payloads are the V variants
// below; Scope and Location anchor diagnostics and fresh types.
type Constraint struct {
	ID       uint64
	Scope    *Scope
	Location ast.Range
	V        ConstraintV
}

type ConstraintV interface {
	constraintKind() string
}

var _ ConstraintV = (*SubtypeConstraint)(nil)
var _ ConstraintV = (*PackSubtypeConstraint)(nil)
var _ ConstraintV = (*GeneralizationConstraint)(nil)
var _ ConstraintV = (*IterableConstraint)(nil)
var _ ConstraintV = (*NameConstraint)(nil)
var _ ConstraintV = (*TypeAliasExpansionConstraint)(nil)
var _ ConstraintV = (*FunctionCallConstraint)(nil)
var _ ConstraintV = (*FunctionCheckConstraint)(nil)
var _ ConstraintV = (*PrimitiveTypeConstraint)(nil)
var _ ConstraintV = (*HasPropConstraint)(nil)
var _ ConstraintV = (*SetPropConstraint)(nil)
var _ ConstraintV = (*HasIndexerConstraint)(nil)
var _ ConstraintV = (*SetIndexerConstraint)(nil)
var _ ConstraintV = (*UnpackConstraint)(nil)
var _ ConstraintV = (*Unpack1Constraint)(nil)
var _ ConstraintV = (*ReduceConstraint)(nil)
var _ ConstraintV = (*ReducePackConstraint)(nil)
var _ ConstraintV = (*EqualityConstraint)(nil)

// SubtypeConstraint asserts SubType <: SuperType.
type SubtypeConstraint struct {
	SubType   TypeID
	SuperType TypeID
}

func (*SubtypeConstraint) constraintKind() string { return "subtype" }

type PackSubtypeConstraint struct {
	SubPack   TypePackID
	SuperPack TypePackID
}

func (*PackSubtypeConstraint) constraintKind() string { return "packSubtype" }

// GeneralizationConstraint quantifies SourceType once it is fully solved
// and binds the result to GeneralizedType.
type GeneralizationConstraint struct {
	GeneralizedType TypeID
	SourceType      TypeID
	InteriorTypes   []TypeID
}

func (*GeneralizationConstraint) constraintKind() string { return "generalization" }

// IterableConstraint destructures the iterand of a for-in loop into the
// loop variables.
type IterableConstraint struct {
	Iterator  TypePackID
	Variables []TypeID
}

func (*IterableConstraint) constraintKind() string { return "iterable" }

// NameConstraint attaches a user-facing name to a table or metatable type.
// Purely cosmetic.
type NameConstraint struct {
	NamedType TypeID
	Name      string
}

func (*NameConstraint) constraintKind() string { return "name" }

// TypeAliasExpansionConstraint instantiates the PendingExpansionType at
// Target.
type TypeAliasExpansionConstraint struct {
	Target TypeID
}

func (*TypeAliasExpansionConstraint) constraintKind() string { return "typeAliasExpansion" }

// FunctionCallConstraint resolves a call of Fn with ArgsPack, binding
// Result to the selected overload's returns. DiscriminantTypes are the
// refinement slots the checker threaded through the call.
type FunctionCallConstraint struct {
	Fn                TypeID
	ArgsPack          TypePackID
	Result            TypePackID
	CallSite          *ast.Call
	DiscriminantTypes []TypeID
}

func (*FunctionCallConstraint) constraintKind() string { return "functionCall" }

// FunctionCheckConstraint pushes an expected function type into the
// argument expressions of a call, before the call itself resolves.
type FunctionCheckConstraint struct {
	Fn       TypeID
	ArgsPack TypePackID
	CallSite *ast.Call
}

func (*FunctionCheckConstraint) constraintKind() string { return "functionCheck" }

// PrimitiveTypeConstraint decays a literal's singleton type into its
// primitive form unless an expected type keeps the singleton alive.
type PrimitiveTypeConstraint struct {
	FreeType     TypeID
	ExpectedType TypeID
	PrimitiveTy  TypeID
}

func (*PrimitiveTypeConstraint) constraintKind() string { return "primitiveType" }

type ValueContext int

const (
	ValueContextRValue ValueContext = iota
	ValueContextLValue
)

// HasPropConstraint binds Result to the type of Subject.Prop.
type HasPropConstraint struct {
	Result  TypeID
	Subject TypeID
	Prop    string
	Context ValueContext
	// InConditional softens missing properties to unknown instead of an
	// error, for `if t.x then` style probes.
	InConditional          bool
	SuppressSimplification bool
}

func (*HasPropConstraint) constraintKind() string { return "hasProp" }

// SetPropConstraint assigns PropType at the end of Path starting from
// Subject, growing unsealed tables along the way.
type SetPropConstraint struct {
	Result   TypeID
	Subject  TypeID
	Path     []string
	PropType TypeID
}

func (*SetPropConstraint) constraintKind() string { return "setProp" }

type HasIndexerConstraint struct {
	Result    TypeID
	Subject   TypeID
	IndexType TypeID
}

func (*HasIndexerConstraint) constraintKind() string { return "hasIndexer" }

type SetIndexerConstraint struct {
	Subject   TypeID
	IndexType TypeID
	PropType  TypeID
}

func (*SetIndexerConstraint) constraintKind() string { return "setIndexer" }

// UnpackConstraint destructures SourcePack into the types of ResultPack,
// padding with nil when the source runs out.
type UnpackConstraint struct {
	ResultPack TypePackID
	SourcePack TypePackID
}

func (*UnpackConstraint) constraintKind() string { return "unpack" }

// Unpack1Constraint is the single-type form of UnpackConstraint.
type Unpack1Constraint struct {
	Result TypeID
	Source TypeID
}

func (*Unpack1Constraint) constraintKind() string { return "unpack1" }

// ReduceConstraint drives a TypeFunctionInstance to its reduced form.
type ReduceConstraint struct {
	Ty TypeID
}

func (*ReduceConstraint) constraintKind() string { return "reduce" }

type ReducePackConstraint struct {
	Pack TypePackID
}

func (*ReducePackConstraint) constraintKind() string { return "reducePack" }

// EqualityConstraint unifies both ways: each side must accommodate the
// other.
type EqualityConstraint struct {
	ResultType     TypeID
	AssignmentType TypeID
}

func (*EqualityConstraint) constraintKind() string { return "equality" }

func (c *Constraint) Kind() string {
	if c == nil || c.V == nil {
		return "<nil>"
	}
	return c.V.constraintKind()
}
