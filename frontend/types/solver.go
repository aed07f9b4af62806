package types

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"
	"github.com/veldt-lang/veldt/frontend/ast"
	"github.com/veldt-lang/veldt/frontend/verr"
	"github.com/veldt-lang/veldt/internal/log"
)

var logger = log.DefaultLogger.With("section", "solver")

// DebugLogSolver dumps every dispatch attempt to the solver log section.
var DebugLogSolver = false

// DebugLogBindings additionally dumps solver bindings after each
// successful dispatch. Extremely verbose.
var DebugLogBindings = false

// DefaultRecursionLimit bounds recursive walks in property lookup and
// generalization.
const DefaultRecursionLimit = 500

type Limits struct {
	// Deadline aborts the run with a time limit error once passed. The
	// zero time means no deadline.
	Deadline time.Time
	// RecursionLimit defaults to DefaultRecursionLimit when zero.
	RecursionLimit int
}

func (l Limits) recursionLimit() int {
	if l.RecursionLimit <= 0 {
		return DefaultRecursionLimit
	}
	return l.RecursionLimit
}

// Module is the solved surface of a required module.
type Module struct {
	Name    string
	Returns TypePackID
}

// ModuleResolver hands the solver the modules the checked code requires.
type ModuleResolver interface {
	GetModule(name string) (*Module, bool)
}

// Solver drives a batch of constraints to quiescence. It is single
// threaded: constraints suspend by blocking on the type, pack, or
// constraint that must resolve first, and resume when it does.
type Solver struct {
	Arena      *Arena
	Normalizer Normalizer

	rootScope      *Scope
	moduleName     string
	moduleResolver ModuleResolver
	requireCycles  [][]string
	limits         Limits
	logger         *slog.Logger

	unsolvedConstraints []*Constraint

	// blockedOn* map a blocker to the constraints waiting on it;
	// blockedCount is the per-constraint wait count.
	blockedOnType       map[TypeID][]*Constraint
	blockedOnPack       map[TypePackID][]*Constraint
	blockedOnConstraint map[*Constraint][]*Constraint
	blockedCount        map[*Constraint]int

	// unresolvedConstraints counts, per free type, the live constraints
	// that mention it. A free type with more than one mentioning
	// constraint may still be sharpened, so some handlers wait for the
	// count to drop.
	unresolvedConstraints map[TypeID]int
	mentions              map[*Constraint][]TypeID

	Errors *verr.Errors

	// UpperBoundContributors records, per free type, which types widened
	// its upper bound and where. The checker uses it to explain errors
	// against inferred bounds.
	UpperBoundContributors map[TypeID][]TypeLocation
	// AstOverloadResolvedTypes records the overload picked at each call.
	AstOverloadResolvedTypes map[*ast.Call]TypeID
	// AstExpectedTypes records the bidirectionally-pushed expected type
	// of expressions, keyed by the expression node.
	AstExpectedTypes map[ast.Expr]TypeID

	uninhabitedTypeFunctions *set.Set[TypeID]
	instantiationCache       map[string]TypeID

	nextConstraintID uint64
	rngState         uint64
}

// NewSolver prepares a solver over the given constraints. The normalizer
// may be nil, in which case a structural default is used.
func NewSolver(
	normalizer Normalizer,
	arena *Arena,
	rootScope *Scope,
	constraints []*Constraint,
	moduleName string,
	moduleResolver ModuleResolver,
	requireCycles [][]string,
	lg *slog.Logger,
	limits Limits,
) *Solver {
	if lg == nil {
		lg = logger
	}
	if normalizer == nil {
		normalizer = NewNormalizer(arena)
	}
	s := &Solver{
		Arena:                    arena,
		Normalizer:               normalizer,
		rootScope:                rootScope,
		moduleName:               moduleName,
		moduleResolver:           moduleResolver,
		requireCycles:            requireCycles,
		limits:                   limits,
		logger:                   lg,
		blockedOnType:            map[TypeID][]*Constraint{},
		blockedOnPack:            map[TypePackID][]*Constraint{},
		blockedOnConstraint:      map[*Constraint][]*Constraint{},
		blockedCount:             map[*Constraint]int{},
		unresolvedConstraints:    map[TypeID]int{},
		mentions:                 map[*Constraint][]TypeID{},
		Errors:                   &verr.Errors{},
		UpperBoundContributors:   map[TypeID][]TypeLocation{},
		AstOverloadResolvedTypes: map[*ast.Call]TypeID{},
		AstExpectedTypes:         map[ast.Expr]TypeID{},
		uninhabitedTypeFunctions: set.New[TypeID](4),
		instantiationCache:       map[string]TypeID{},
	}
	for _, c := range constraints {
		s.register(c)
	}
	return s
}

func (s *Solver) register(c *Constraint) {
	if c.ID == 0 {
		s.nextConstraintID++
		c.ID = s.nextConstraintID
	} else if c.ID > s.nextConstraintID {
		s.nextConstraintID = c.ID
	}
	s.unsolvedConstraints = append(s.unsolvedConstraints, c)
	frees := freeTypesMentioned(s.Arena, c)
	s.mentions[c] = frees
	for _, f := range frees {
		s.unresolvedConstraints[f]++
	}
}

// PushConstraint adds a constraint mid-run. Handlers use it to split
// work they cannot finish in one dispatch.
func (s *Solver) PushConstraint(scope *Scope, location ast.Range, v ConstraintV) *Constraint {
	c := &Constraint{Scope: scope, Location: location, V: v}
	s.register(c)
	return c
}

// Randomize shuffles the constraint queue. The final bindings must not
// depend on dispatch order, so shaking the queue is a cheap way to find
// order bugs.
func (s *Solver) Randomize(seed uint64) {
	s.rngState = seed
	for i := len(s.unsolvedConstraints) - 1; i > 0; i-- {
		s.rngState = s.rngState*1664525 + 1013904223
		j := int(s.rngState % uint64(i+1))
		s.unsolvedConstraints[i], s.unsolvedConstraints[j] = s.unsolvedConstraints[j], s.unsolvedConstraints[i]
	}
}

// Done reports whether every constraint has been dispatched successfully.
func (s *Solver) Done() bool {
	return len(s.unsolvedConstraints) == 0
}

// Run dispatches constraints until quiescence. Type errors accumulate in
// s.Errors; only cancellation and the time limit abort the run, returned
// as the error.
func (s *Solver) Run(ctx context.Context) error {
	for !s.Done() {
		progress := false
		i := 0
		for i < len(s.unsolvedConstraints) {
			c := s.unsolvedConstraints[i]
			if s.blockedCount[c] > 0 {
				i++
				continue
			}
			if err := s.checkLimits(ctx, c.Location); err != nil {
				return err
			}
			if s.attempt(c, false) {
				s.removeConstraintAt(i)
				progress = true
			} else {
				i++
			}
		}
		if progress || s.Done() {
			continue
		}
		// No runnable constraint made progress: force blocked ones in
		// queue order until one succeeds, then resume normal passes.
		forced := false
		for i := 0; i < len(s.unsolvedConstraints); i++ {
			c := s.unsolvedConstraints[i]
			if err := s.checkLimits(ctx, c.Location); err != nil {
				return err
			}
			if s.attempt(c, true) {
				s.removeConstraintAt(i)
				forced = true
				break
			}
		}
		if !forced {
			// nothing can run, forced or not. The remaining constraints
			// are stuck on types nothing will ever bind.
			s.logger.Warn("solver wedged with constraints remaining", "count", len(s.unsolvedConstraints))
			break
		}
	}
	return nil
}

func (s *Solver) checkLimits(ctx context.Context, loc ast.Range) error {
	if !s.limits.Deadline.IsZero() && time.Now().After(s.limits.Deadline) {
		e := verr.New(verr.NewTimeLimit{Positioner: loc})
		return errors.Wrap(e, "solving "+s.moduleName)
	}
	select {
	case <-ctx.Done():
		e := verr.New(verr.NewUserCancel{Positioner: loc})
		return errors.Wrap(e, "solving "+s.moduleName)
	default:
	}
	return nil
}

func (s *Solver) attempt(c *Constraint, force bool) bool {
	if DebugLogSolver {
		s.logger.Debug("dispatching", "id", c.ID, "kind", c.Kind(), "force", force)
	}
	success := s.tryDispatch(c, force)
	if DebugLogSolver {
		s.logger.Debug("dispatched", "id", c.ID, "kind", c.Kind(), "force", force, "success", success)
	}
	if force && !success {
		s.logger.Error("forced dispatch failed to complete", "id", c.ID, "kind", c.Kind())
	}
	if success {
		s.completeConstraint(c)
		if DebugLogBindings {
			s.logger.Debug("bindings", "state", spew.Sdump(s.Arena.types))
		}
	}
	return success
}

func (s *Solver) removeConstraintAt(i int) {
	s.unsolvedConstraints = append(s.unsolvedConstraints[:i], s.unsolvedConstraints[i+1:]...)
}

// completeConstraint retires a successfully dispatched constraint:
// its free type mentions are released and its waiters woken.
func (s *Solver) completeConstraint(c *Constraint) {
	for _, f := range s.mentions[c] {
		if s.unresolvedConstraints[f] > 0 {
			s.unresolvedConstraints[f]--
			if s.unresolvedConstraints[f] == 0 {
				delete(s.unresolvedConstraints, f)
			}
		}
	}
	delete(s.mentions, c)
	s.unblockConstraint(c)
	delete(s.blockedCount, c)
}

func (s *Solver) reportError(e verr.VeldtError) {
	s.Errors = s.Errors.With(verr.New(e))
}

// Dump renders the queue and block graph for debugging.
func (s *Solver) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Constraints (%d):\n", len(s.unsolvedConstraints))
	for _, c := range s.unsolvedConstraints {
		fmt.Fprintf(&b, "\t%d\t%s\tblocked=%d\n", c.ID, c.Kind(), s.blockedCount[c])
	}
	fmt.Fprintf(&b, "Blocked on types: %d, packs: %d, constraints: %d\n",
		len(s.blockedOnType), len(s.blockedOnPack), len(s.blockedOnConstraint))
	return b.String()
}
