package types

import (
	"github.com/veldt-lang/veldt/frontend/ast"
)

// TypeID names a slot in an Arena. The zero value is not a valid type.
type TypeID uint32

// NoType is the absent-type sentinel for optional fields.
const NoType TypeID = 0

// TypeTerm is the vocabulary of the type graph. Implementations are the
// only terms the solver understands; the interface is sealed via termKind.
type TypeTerm interface {
	termKind() string
}

var _ TypeTerm = (*FreeType)(nil)
var _ TypeTerm = (*BoundType)(nil)
var _ TypeTerm = (*BlockedType)(nil)
var _ TypeTerm = (*PendingExpansionType)(nil)
var _ TypeTerm = (*TypeFunctionInstance)(nil)
var _ TypeTerm = (*LocalType)(nil)
var _ TypeTerm = (*FunctionType)(nil)
var _ TypeTerm = (*TableType)(nil)
var _ TypeTerm = (*MetatableType)(nil)
var _ TypeTerm = (*ClassType)(nil)
var _ TypeTerm = (*UnionType)(nil)
var _ TypeTerm = (*IntersectionType)(nil)
var _ TypeTerm = (*PrimitiveType)(nil)
var _ TypeTerm = (*SingletonType)(nil)
var _ TypeTerm = (*AnyType)(nil)
var _ TypeTerm = (*UnknownType)(nil)
var _ TypeTerm = (*NeverType)(nil)
var _ TypeTerm = (*ErrorType)(nil)
var _ TypeTerm = (*GenericType)(nil)

// FreeType is an unsolved unification variable. Its bounds tighten as
// constraints against it dispatch; generalization or a PrimitiveType
// constraint eventually binds it.
type FreeType struct {
	Scope      *Scope
	LowerBound TypeID
	UpperBound TypeID
}

func (*FreeType) termKind() string { return "free" }

// BoundType is a forwarding slot: the term at this ID has been solved to
// Target. Chains of BoundType are followed, never cyclic.
type BoundType struct {
	Target TypeID
}

func (*BoundType) termKind() string { return "bound" }

// BlockedType stands for a type some constraint has yet to compute.
// Owner is the constraint expected to bind it.
type BlockedType struct {
	Owner *Constraint
}

func (*BlockedType) termKind() string { return "blocked" }

// PendingExpansionType is an alias application that has not been expanded
// into its instantiated body yet.
type PendingExpansionType struct {
	Name           string
	TypeArguments  []TypeID
	PackArguments  []TypePackID
}

func (*PendingExpansionType) termKind() string { return "pendingExpansion" }

// TypeFunctionInstance is an application of a builtin type function, solved
// by Reduce constraints.
type TypeFunctionInstance struct {
	Function *TypeFunctionDef
	TypeArgs []TypeID
	PackArgs []TypePackID
}

func (*TypeFunctionInstance) termKind() string { return "typeFunctionInstance" }

// TypeFunctionDef is the reducer behind a TypeFunctionInstance. Reduce
// returns the reduced type, or blockers when arguments are not resolved
// enough, or uninhabited=true when the application can never be inhabited.
type TypeFunctionDef struct {
	Name   string
	Reduce func(s *Solver, instance TypeID, typeArgs []TypeID, packArgs []TypePackID) TypeFunctionReduction
}

type TypeFunctionReduction struct {
	Result      TypeID
	Blockers    []TypeID
	Uninhabited bool
}

// LocalType is the inferred domain of a local binding still awaiting
// assignments. Each pending assignment holds one unit of BlockCount.
type LocalType struct {
	Domain     TypeID
	BlockCount int
	Name       string
}

func (*LocalType) termKind() string { return "local" }

// MagicFunction lets builtins intercept call resolution before overload
// selection. Returning handled=false falls through to regular resolution.
type MagicFunction func(s *Solver, c *Constraint, call *FunctionCallConstraint) (handled bool, ok bool)

type FunctionType struct {
	Generics     []TypeID
	GenericPacks []TypePackID
	ArgPack      TypePackID
	RetPack      TypePackID
	Magic        MagicFunction
	IsCheckable  bool
}

func (*FunctionType) termKind() string { return "function" }

// Property is a table or class member. Read and write types are tracked
// separately; most properties have both equal.
type Property struct {
	ReadType  TypeID
	WriteType TypeID
}

func SharedProperty(ty TypeID) Property {
	return Property{ReadType: ty, WriteType: ty}
}

// ReadOnlyProperty can be read but not assigned. An assignment through
// it widens it to read-write.
func ReadOnlyProperty(ty TypeID) Property {
	return Property{ReadType: ty}
}

type Indexer struct {
	KeyType   TypeID
	ValueType TypeID
}

type TableState int

const (
	// TableFree tables accrete properties as they are used.
	TableFree TableState = iota
	// TableUnsealed tables accept new properties on assignment.
	TableUnsealed
	// TableSealed tables reject unknown properties.
	TableSealed
	// TableGeneric marks a table quantified by generalization.
	TableGeneric
)

func (s TableState) String() string {
	switch s {
	case TableFree:
		return "free"
	case TableUnsealed:
		return "unsealed"
	case TableSealed:
		return "sealed"
	case TableGeneric:
		return "generic"
	}
	return "invalid"
}

type TableType struct {
	Props   map[string]Property
	Indexer *Indexer
	State   TableState
	Scope   *Scope
	Name    string
}

func (*TableType) termKind() string { return "table" }

type MetatableType struct {
	Table     TypeID
	Metatable TypeID
}

func (*MetatableType) termKind() string { return "metatable" }

// ClassType is a host-provided nominal type with a parent chain.
type ClassType struct {
	Name      string
	Props     map[string]Property
	Parent    TypeID
	Metatable TypeID
	Indexer   *Indexer
}

func (*ClassType) termKind() string { return "class" }

type UnionType struct {
	Options []TypeID
}

func (*UnionType) termKind() string { return "union" }

type IntersectionType struct {
	Parts []TypeID
}

func (*IntersectionType) termKind() string { return "intersection" }

type PrimitiveKind int

const (
	PrimNil PrimitiveKind = iota
	PrimBoolean
	PrimNumber
	PrimString
	PrimThread
	PrimTable
	PrimFunction
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimNil:
		return "nil"
	case PrimBoolean:
		return "boolean"
	case PrimNumber:
		return "number"
	case PrimString:
		return "string"
	case PrimThread:
		return "thread"
	case PrimTable:
		return "table"
	case PrimFunction:
		return "function"
	}
	return "invalid"
}

type PrimitiveType struct {
	Kind PrimitiveKind
	// Metatable is only set for primitives carrying one, like string.
	Metatable TypeID
}

func (*PrimitiveType) termKind() string { return "primitive" }

// SingletonType is a literal type: a specific string or boolean value.
type SingletonType struct {
	IsString    bool
	StringValue string
	BoolValue   bool
}

func (*SingletonType) termKind() string { return "singleton" }

func StringSingleton(v string) *SingletonType {
	return &SingletonType{IsString: true, StringValue: v}
}

func BoolSingleton(v bool) *SingletonType {
	return &SingletonType{BoolValue: v}
}

type AnyType struct{}

func (*AnyType) termKind() string { return "any" }

type UnknownType struct{}

func (*UnknownType) termKind() string { return "unknown" }

type NeverType struct{}

func (*NeverType) termKind() string { return "never" }

// ErrorType poisons positions where inference already failed, so one
// mistake does not cascade into a wall of diagnostics.
type ErrorType struct{}

func (*ErrorType) termKind() string { return "error" }

type GenericType struct {
	Name  string
	Scope *Scope
}

func (*GenericType) termKind() string { return "generic" }

// TypeLocation pairs a type with the source range that produced it.
type TypeLocation struct {
	Ty       TypeID
	Location ast.Range
}
