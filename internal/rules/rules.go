// Package rules implements a dispatch table of Alethe rule checkers. Most
// rules are checked structurally (clause equality up to the relevant
// substitution) rather than by full first-order unification — a
// deliberate simplification so the package can exercise the subproof
// context engine end-to-end without reimplementing an SMT solver's
// congruence closure (see DESIGN.md).
package rules

import (
	"errors"
	"fmt"

	"github.com/carcara-go/alethectx/internal/proof"
	"github.com/carcara-go/alethectx/internal/term"
	"github.com/carcara-go/alethectx/pkg/subctx"
)

// ErrUnknownRule is returned by Check when a step names a rule this table
// does not recognize and Config.SkipUnknownRules is false.
var ErrUnknownRule = errors.New("rules: unknown rule")

// ErrRuleCheckFailed is wrapped with the rule name and a reason by every
// checker that rejects its step.
type ErrRuleCheckFailed struct {
	Rule   string
	Reason string
}

func (e *ErrRuleCheckFailed) Error() string {
	return fmt.Sprintf("rule %q check failed: %s", e.Rule, e.Reason)
}

// Env is everything a rule checker needs: the term pool, this worker's
// context stack, and the command being checked along with its resolved
// premise clauses.
type Env struct {
	Pool     *term.Pool
	Stack    *subctx.Stack
	Step     proof.Command
	Premises [][]term.Ref // conclusion clause of each premise, in order
}

// CheckFunc validates one step's conclusion given its premises and the
// current context stack. It returns an error (wrapped as
// ErrRuleCheckFailed by the caller if not already) when the step does not
// follow.
type CheckFunc func(env Env) error

// Table maps rule names to their checkers. Unknown rule names are handled
// by Dispatch, not by a Table entry.
var Table = map[string]CheckFunc{
	"true":          checkTrue,
	"false":         checkFalse,
	"not_not":       checkNotNot,
	"and":           checkAnd,
	"or":            checkOr,
	"resolution":    checkResolution,
	"contraction":   checkContraction,
	"eq_reflexive":  checkEqReflexive,
	"eq_transitive": checkEqTransitive,
	"eq_congruent":  checkEqCongruent,
	"refl":          checkRefl,
	"bind":          checkBind,
	"let":           checkLet,
	"onepoint":      checkOnePoint,
	"sko_ex":        checkSkoEx,
	"sko_forall":    checkSkoForall,
	"subproof":      checkSubproof,
	"hole":          checkHole,
}

// Dispatch looks up and runs the checker for env.Step.Rule. skipUnknown
// mirrors Config.SkipUnknownRules: an unrecognized rule is treated as a
// hole instead of failing.
func Dispatch(env Env, skipUnknown bool) error {
	fn, ok := Table[env.Step.Rule]
	if !ok {
		if skipUnknown {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownRule, env.Step.Rule)
	}
	if err := fn(env); err != nil {
		var already *ErrRuleCheckFailed
		if errors.As(err, &already) {
			return err
		}
		return &ErrRuleCheckFailed{Rule: env.Step.Rule, Reason: err.Error()}
	}
	return nil
}

func fail(reason string, args ...any) error {
	return errors.New(fmt.Sprintf(reason, args...))
}

func single(clause []term.Ref) (term.Ref, bool) {
	if len(clause) != 1 {
		return term.Ref{}, false
	}
	return clause[0], true
}

// asApp returns the App view of ref, or ok=false if ref is not an
// application (e.g. a bare variable or constant).
func asApp(pool *term.Pool, ref term.Ref) (term.Term, bool) {
	t, ok := pool.Lookup(ref)
	if !ok || t.Kind != term.KindApp {
		return term.Term{}, false
	}
	return t, true
}

func isNot(pool *term.Pool, ref term.Ref) (term.Ref, bool) {
	t, ok := asApp(pool, ref)
	if !ok || t.Op != "not" || len(t.Args) != 1 {
		return term.Ref{}, false
	}
	return t.Args[0], true
}
