package verr

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/veldt-lang/veldt/frontend/ast"
)

// enableDebugErrorPrinting makes errors include their stacktrace when printed
const enableDebugErrorPrinting bool = true
const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None          ErrCode = iota
	UnknownSymbol ErrCode = iota
	OccursCheckFailed
	Generic
	CodeTooComplex
	UnificationTooComplex
	UnknownRequire
	IllegalRequire
	TimeLimit
	UserCancel
	TypeMismatch
)

// VeldtError is a type error produced while solving. Errors carry rendered
// type strings rather than live type graph nodes, so they stay meaningful
// after the graph keeps mutating.
type VeldtError interface {
	Error() string
	Code() ErrCode
	ast.Positioner

	withStack([]byte) VeldtError
	getStack() []byte
}

func FormatWithCode(e VeldtError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			lines := strings.Split(stack, "\n")
			if len(lines) > 6 {
				stack = lines[6]
			}
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

func New[E VeldtError](err E) VeldtError {
	return err.withStack(debug.Stack())
}

type NewUnknownSymbol struct {
	ast.Positioner
	Name  string
	In    string
	stack []byte
}

func (e NewUnknownSymbol) Error() string {
	if e.In == "" {
		return fmt.Sprintf("key '%s' not found", e.Name)
	}
	return fmt.Sprintf("key '%s' not found in %s", e.Name, e.In)
}
func (e NewUnknownSymbol) Code() ErrCode    { return UnknownSymbol }
func (e NewUnknownSymbol) getStack() []byte { return e.stack }
func (e NewUnknownSymbol) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

type NewOccursCheckFailed struct {
	ast.Positioner
	Sub   string
	Super string
	stack []byte
}

func (e NewOccursCheckFailed) Error() string {
	return fmt.Sprintf("type '%s' could not be converted into '%s': occurs check failed", e.Sub, e.Super)
}
func (e NewOccursCheckFailed) Code() ErrCode    { return OccursCheckFailed }
func (e NewOccursCheckFailed) getStack() []byte { return e.stack }
func (e NewOccursCheckFailed) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

type NewGeneric struct {
	ast.Positioner
	Message string
	stack   []byte
}

func (e NewGeneric) Error() string     { return e.Message }
func (e NewGeneric) Code() ErrCode     { return Generic }
func (e NewGeneric) getStack() []byte  { return e.stack }
func (e NewGeneric) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

type NewCodeTooComplex struct {
	ast.Positioner
	stack []byte
}

func (e NewCodeTooComplex) Error() string {
	return "code is too complex to typecheck! Consider adding type annotations around this area"
}
func (e NewCodeTooComplex) Code() ErrCode    { return CodeTooComplex }
func (e NewCodeTooComplex) getStack() []byte { return e.stack }
func (e NewCodeTooComplex) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

type NewUnificationTooComplex struct {
	ast.Positioner
	stack []byte
}

func (e NewUnificationTooComplex) Error() string {
	return "internal error: unification is too complex to perform"
}
func (e NewUnificationTooComplex) Code() ErrCode    { return UnificationTooComplex }
func (e NewUnificationTooComplex) getStack() []byte { return e.stack }
func (e NewUnificationTooComplex) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

type NewUnknownRequire struct {
	ast.Positioner
	ModuleName string
	stack      []byte
}

func (e NewUnknownRequire) Error() string {
	return fmt.Sprintf("unknown require: %s", e.ModuleName)
}
func (e NewUnknownRequire) Code() ErrCode    { return UnknownRequire }
func (e NewUnknownRequire) getStack() []byte { return e.stack }
func (e NewUnknownRequire) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

type NewIllegalRequire struct {
	ast.Positioner
	ModuleName string
	Reason     string
	stack      []byte
}

func (e NewIllegalRequire) Error() string {
	return fmt.Sprintf("cannot require module %s: %s", e.ModuleName, e.Reason)
}
func (e NewIllegalRequire) Code() ErrCode    { return IllegalRequire }
func (e NewIllegalRequire) getStack() []byte { return e.stack }
func (e NewIllegalRequire) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

// NewTimeLimit is fatal: the solver returns it from Run instead of
// accumulating it.
type NewTimeLimit struct {
	ast.Positioner
	stack []byte
}

func (e NewTimeLimit) Error() string     { return "typechecking time limit exceeded" }
func (e NewTimeLimit) Code() ErrCode     { return TimeLimit }
func (e NewTimeLimit) getStack() []byte  { return e.stack }
func (e NewTimeLimit) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

// NewUserCancel is fatal, like NewTimeLimit.
type NewUserCancel struct {
	ast.Positioner
	stack []byte
}

func (e NewUserCancel) Error() string     { return "typechecking cancelled by the user" }
func (e NewUserCancel) Code() ErrCode     { return UserCancel }
func (e NewUserCancel) getStack() []byte  { return e.stack }
func (e NewUserCancel) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

type NewTypeMismatch struct {
	ast.Positioner
	Sub   string
	Super string
	stack []byte
}

func (e NewTypeMismatch) Error() string {
	return fmt.Sprintf("type '%s' could not be converted into '%s'", e.Sub, e.Super)
}
func (e NewTypeMismatch) Code() ErrCode    { return TypeMismatch }
func (e NewTypeMismatch) getStack() []byte { return e.stack }
func (e NewTypeMismatch) withStack(stack []byte) VeldtError {
	e.stack = stack
	return e
}

var _ VeldtError = NewUnknownSymbol{}
var _ VeldtError = NewOccursCheckFailed{}
var _ VeldtError = NewGeneric{}
var _ VeldtError = NewCodeTooComplex{}
var _ VeldtError = NewUnificationTooComplex{}
var _ VeldtError = NewUnknownRequire{}
var _ VeldtError = NewIllegalRequire{}
var _ VeldtError = NewTimeLimit{}
var _ VeldtError = NewUserCancel{}
var _ VeldtError = NewTypeMismatch{}
