package types

import (
	"github.com/veldt-lang/veldt/frontend/verr"
)

// resolveModule looks up the return pack of a required module. A module
// on a require cycle cannot be fully solved from here, so its exported
// generics decay to any.
func (s *Solver) resolveModule(c *Constraint, name string) TypePackID {
	a := s.Arena
	if s.moduleResolver == nil {
		s.reportError(verr.NewUnknownRequire{Positioner: c.Location, ModuleName: name})
		return a.Builtins.ErrorPack
	}
	module, found := s.moduleResolver.GetModule(name)
	if !found {
		s.reportError(verr.NewUnknownRequire{Positioner: c.Location, ModuleName: name})
		return a.Builtins.ErrorPack
	}
	if s.onRequireCycle(name) {
		return s.anyifyModuleReturnPackGenerics(module.Returns)
	}
	return module.Returns
}

func (s *Solver) onRequireCycle(name string) bool {
	for _, cycle := range s.requireCycles {
		for _, member := range cycle {
			if member == name {
				return true
			}
		}
	}
	return false
}

// RequireMagic intercepts calls to require. The module name must be a
// literal string so the import graph stays static.
func RequireMagic(s *Solver, c *Constraint, call *FunctionCallConstraint) (bool, bool) {
	a := s.Arena
	args := a.Flatten(call.ArgsPack)
	if len(args.Head) == 0 {
		s.reportError(verr.NewIllegalRequire{
			Positioner: c.Location,
			ModuleName: "<missing>",
			Reason:     "require takes a module name",
		})
		s.bindResultPack(call.Result, a.Builtins.ErrorPack)
		return true, true
	}
	arg := a.Follow(args.Head[0])
	if s.isBlockedTerm(arg) {
		return true, s.blockOnType(arg, c)
	}
	name, ok := a.Resolve(arg).(*SingletonType)
	if !ok || !name.IsString {
		s.reportError(verr.NewIllegalRequire{
			Positioner: c.Location,
			ModuleName: a.TypeString(arg),
			Reason:     "the module name must be a literal string",
		})
		s.bindResultPack(call.Result, a.Builtins.ErrorPack)
		return true, true
	}
	s.bindResultPack(call.Result, s.resolveModule(c, name.StringValue))
	return true, true
}

// NewRequireFunction builds the require builtin: a magic function from
// a string to whatever the named module returns.
func NewRequireFunction(a *Arena) TypeID {
	result := a.NewPack(&VariadicPack{Elem: a.Builtins.Any})
	return a.New(&FunctionType{
		ArgPack: a.NewPack(&ListPack{Head: []TypeID{a.Builtins.String}}),
		RetPack: result,
		Magic:   RequireMagic,
	})
}
