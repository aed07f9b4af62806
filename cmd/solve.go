package cmd

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/veldt-lang/veldt/frontend/ast"
	"github.com/veldt-lang/veldt/frontend/types"
	"github.com/veldt-lang/veldt/frontend/verr"
	"github.com/veldt-lang/veldt/internal/log"
)

var SolveCmd = &cobra.Command{
	Use:          "solve [scenario]",
	Short:        "Run the constraint solver over a named demo scenario",
	RunE:         runSolve,
	SilenceUsage: true,
}

var (
	debugSolver    *bool
	debugBindings  *bool
	recursionLimit *int
	seed           *uint64
	timeout        *time.Duration
	logLevel       *int
)

func init() {
	debugSolver = SolveCmd.Flags().Bool("debug-solver", false, "log every dispatch attempt")
	debugBindings = SolveCmd.Flags().Bool("debug-bindings", false, "additionally dump bindings after each dispatch")
	recursionLimit = SolveCmd.Flags().Int("recursion-limit", types.DefaultRecursionLimit, "recursion limit for lookups and generalization")
	seed = SolveCmd.Flags().Uint64("seed", 0, "shuffle the constraint queue with this seed (0 keeps source order)")
	timeout = SolveCmd.Flags().Duration("timeout", 0, "abort solving after this duration")
	logLevel = SolveCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

// scenario builds a constraint batch and names the types whose solved
// forms the command prints.
type scenario struct {
	detail string
	build  func(a *types.Arena, scope *types.Scope) (constraints []*types.Constraint, results map[string]types.TypeID)
}

var scenarios = map[string]scenario{
	"call": {
		detail: "call an unannotated function with a number and infer its type",
		build: func(a *types.Arena, scope *types.Scope) ([]*types.Constraint, map[string]types.TypeID) {
			fn := a.FreshFree(scope)
			result := a.NewPack(&types.BlockedPack{})
			args := a.NewPack(&types.ListPack{Head: []types.TypeID{a.Builtins.Number}})
			call := &types.Constraint{Scope: scope, Location: ast.Range{}, V: &types.FunctionCallConstraint{
				Fn:       fn,
				ArgsPack: args,
				Result:   result,
			}}
			first := a.New(&types.BlockedType{})
			unpack := &types.Constraint{Scope: scope, Location: ast.Range{}, V: &types.UnpackConstraint{
				ResultPack: a.NewPack(&types.ListPack{Head: []types.TypeID{first}}),
				SourcePack: result,
			}}
			return []*types.Constraint{call, unpack}, map[string]types.TypeID{
				"f": fn,
				"r": first,
			}
		},
	},
	"alias": {
		detail: "expand Pair<number> where Pair<T, U = T> = {first: T, second: U}",
		build: func(a *types.Arena, scope *types.Scope) ([]*types.Constraint, map[string]types.TypeID) {
			t := a.New(&types.GenericType{Name: "T", Scope: scope})
			u := a.New(&types.GenericType{Name: "U", Scope: scope})
			scope.TypeAliases["Pair"] = &types.TypeAlias{
				Name: "Pair",
				TypeParams: []types.TypeParam{
					{Generic: t},
					{Generic: u, Default: t},
				},
				Body: a.New(&types.TableType{
					Props: map[string]types.Property{
						"first":  types.SharedProperty(t),
						"second": types.SharedProperty(u),
					},
					State: types.TableSealed,
				}),
			}
			pending := a.New(&types.PendingExpansionType{
				Name:          "Pair",
				TypeArguments: []types.TypeID{a.Builtins.Number},
			})
			expand := &types.Constraint{Scope: scope, Location: ast.Range{}, V: &types.TypeAliasExpansionConstraint{
				Target: pending,
			}}
			return []*types.Constraint{expand}, map[string]types.TypeID{"Pair<number>": pending}
		},
	},
	"table": {
		detail: "write t.user.name and read t.user back",
		build: func(a *types.Arena, scope *types.Scope) ([]*types.Constraint, map[string]types.TypeID) {
			subject := a.New(&types.TableType{
				Props: map[string]types.Property{},
				State: types.TableUnsealed,
				Scope: scope,
			})
			written := a.New(&types.BlockedType{})
			user := a.New(&types.BlockedType{})
			set := &types.Constraint{Scope: scope, Location: ast.Range{}, V: &types.SetPropConstraint{
				Result:   written,
				Subject:  subject,
				Path:     []string{"user", "name"},
				PropType: a.Builtins.String,
			}}
			get := &types.Constraint{Scope: scope, Location: ast.Range{}, V: &types.HasPropConstraint{
				Result:  user,
				Subject: subject,
				Prop:    "user",
			}}
			return []*types.Constraint{set, get}, map[string]types.TypeID{
				"t":      subject,
				"t.user": user,
			}
		},
	},
}

func runSolve(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*logLevel))
	types.DebugLogSolver = *debugSolver
	types.DebugLogBindings = *debugBindings
	if *debugSolver || *debugBindings {
		log.SetLevel(slog.LevelDebug)
	}

	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(args) == 0 {
		fmt.Println("available scenarios:")
		for _, name := range names {
			fmt.Printf("  %s\t%s\n", name, scenarios[name].detail)
		}
		return nil
	}

	sc, ok := scenarios[args[0]]
	if !ok {
		return fmt.Errorf("unknown scenario %q, expected one of: %s", args[0], strings.Join(names, ", "))
	}

	arena := types.NewArena()
	scope := types.NewRootScope()
	constraints, results := sc.build(arena, scope)
	limits := types.Limits{RecursionLimit: *recursionLimit}
	if *timeout > 0 {
		limits.Deadline = time.Now().Add(*timeout)
	}
	solver := types.NewSolver(nil, arena, scope, constraints, args[0], nil, nil, nil, limits)
	if *seed != 0 {
		solver.Randomize(*seed)
	}
	if err := solver.Run(cmd.Context()); err != nil {
		return err
	}

	for _, e := range solver.Errors.Errors() {
		fmt.Println(verr.FormatWithCode(e))
	}
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s : %s\n", k, arena.TypeString(results[k]))
	}
	return nil
}
