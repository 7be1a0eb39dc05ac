// Package subctx implements the parallel subproof context engine: the
// shared stack of substitution contexts used by subproof-sensitive Alethe
// rules (refl, bind, let, onepoint, sko_ex, sko_forall, subproof, ...).
//
// The engine is split across three cooperating pieces, one per file:
// Substitution (this file), Context/ContextRegistry (context.go) and
// ContextStack (stack.go). Term representation and interning are owned by
// the sibling internal/term package and are treated as an external,
// thread-safe collaborator.
package subctx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/carcara-go/alethectx/internal/term"
)

// ErrNotAVariable is returned by Insert when the substitution key is not a
// variable term.
var ErrNotAVariable = errors.New("subctx: substitution key is not a variable")

// SortMismatchError is returned by Insert when the value's sort does not
// match the key's declared sort.
type SortMismatchError struct {
	Expected, Got term.Sort
}

func (e *SortMismatchError) Error() string {
	return fmt.Sprintf("subctx: sort mismatch: expected %q, got %q", e.Expected, e.Got)
}

// binderOps names the operators whose first argument is a bound-variable
// list (see applyBinder below). This mirrors Alethe's own
// closed set of quantifiers/binders.
var binderOps = map[string]bool{
	"forall": true,
	"exists": true,
	"choice": true,
	"lambda": true,
}

// binderListOp marks the synthetic App node that carries a binder's
// bound-variable list as Args.
const binderListOp = "!binder!"

// Substitution is an immutable-once-built mapping from variable TermRefs to
// their replacement TermRefs. It is not safe for concurrent mutation, but
// once built it is only ever read, so concurrent Apply calls are safe.
type Substitution struct {
	m map[term.Ref]term.Ref
	// order preserves insertion order for deterministic iteration, used by
	// catchUpCumulative's tie-break rule (§4.3).
	order []term.Ref
}

// NewSubstitution returns an empty substitution.
func NewSubstitution() *Substitution {
	return &Substitution{m: make(map[term.Ref]term.Ref)}
}

// Insert binds key to value. It fails if key does not refer to a variable
// term or if value's sort differs from key's sort.
func (s *Substitution) Insert(pool *term.Pool, key, value term.Ref) error {
	if !pool.IsVar(key) {
		return ErrNotAVariable
	}
	keySort := pool.Sort(key)
	valueSort := pool.Sort(value)
	if keySort != valueSort {
		return &SortMismatchError{Expected: keySort, Got: valueSort}
	}
	if _, exists := s.m[key]; !exists {
		s.order = append(s.order, key)
	}
	s.m[key] = value
	return nil
}

// Get returns the binding for key, if any.
func (s *Substitution) Get(key term.Ref) (term.Ref, bool) {
	v, ok := s.m[key]
	return v, ok
}

// Len reports the number of bindings.
func (s *Substitution) Len() int { return len(s.m) }

// Entries iterates bindings in insertion order.
func (s *Substitution) Entries(fn func(key, value term.Ref)) {
	for _, k := range s.order {
		fn(k, s.m[k])
	}
}

// clone returns a deep copy so callers can mutate the copy without
// disturbing a shared, already-installed Substitution.
func (s *Substitution) clone() *Substitution {
	c := &Substitution{
		m:     make(map[term.Ref]term.Ref, len(s.m)),
		order: append([]term.Ref(nil), s.order...),
	}
	for k, v := range s.m {
		c.m[k] = v
	}
	return c
}

// Apply rewrites t, replacing every free occurrence of a key with its
// bound value in a single pass. Applying the same Substitution to the same
// term twice yields the same Ref (interning makes Apply a pure function of
// its inputs). Apply is not idempotent in general: when a stored value
// mentions another key (e.g. {a↦b, b↦c}, from mappings declared out of
// fold order), applying S to S(t) rewrites further.
func (s *Substitution) Apply(pool *term.Pool, t term.Ref) term.Ref {
	return s.apply(pool, t, nil)
}

// bound tracks which binder-introduced variables shadow substitution keys
// at the current traversal point, keyed by the variable as it occurs in
// the body being rewritten: the original variable when the binder keeps
// it, the fresh replacement when the binder was alpha-renamed.
func (s *Substitution) apply(pool *term.Pool, t term.Ref, bound map[term.Ref]bool) term.Ref {
	tm, ok := pool.Lookup(t)
	if !ok {
		return t
	}

	switch tm.Kind {
	case term.KindVar:
		if bound[t] {
			return t
		}
		if v, ok := s.Get(t); ok {
			return v
		}
		return t

	case term.KindConst:
		return t

	case term.KindApp:
		if binderOps[tm.Op] && len(tm.Args) == 2 {
			return s.applyBinder(pool, tm, bound)
		}
		newArgs := make([]term.Ref, len(tm.Args))
		changed := false
		for i, a := range tm.Args {
			newArgs[i] = s.apply(pool, a, bound)
			if newArgs[i] != a {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return pool.Add(term.NewApp(tm.Op, tm.Sort, newArgs...))

	default:
		return t
	}
}

// applyBinder rewrites a quantifier/lambda node, alpha-renaming bound
// variables that would otherwise capture a free variable introduced by
// one of the substitution's values (spec §8 property 6: capture
// avoidance).
func (s *Substitution) applyBinder(pool *term.Pool, tm term.Term, bound map[term.Ref]bool) term.Ref {
	binderList, _ := pool.Lookup(tm.Args[0])
	body := tm.Args[1]

	capturing := map[term.Ref]bool{}
	for _, bv := range binderList.Args {
		if s.valueMentionsAsFree(pool, bv) {
			capturing[bv] = true
		}
	}

	newBound := make(map[term.Ref]bool, len(bound)+len(binderList.Args))
	for k, v := range bound {
		newBound[k] = v
	}

	renamed := map[term.Ref]term.Ref{}
	newBinderVars := make([]term.Ref, len(binderList.Args))
	for i, bv := range binderList.Args {
		if capturing[bv] {
			fresh := freshenVar(pool, bv)
			newBinderVars[i] = fresh
			renamed[bv] = fresh
		} else {
			newBinderVars[i] = bv
			newBound[bv] = true
		}
	}

	renamedBody := body
	if len(renamed) > 0 {
		renameSub := NewSubstitution()
		for old, fresh := range renamed {
			// renameSub is only ever used for an alpha-rename, so sorts
			// always match by construction (fresh shares old's sort).
			_ = renameSub.Insert(pool, old, fresh)
			newBound[fresh] = true
		}
		renamedBody = renameSub.apply(pool, body, bound)
	}

	newBody := s.apply(pool, renamedBody, newBound)
	newList := pool.Add(term.NewApp(binderListOp, binderList.Sort, newBinderVars...))
	return pool.Add(term.NewApp(tm.Op, tm.Sort, newList, newBody))
}

// valueMentionsAsFree reports whether bv occurs as a free variable in any
// value this substitution would rewrite something to, i.e. whether
// rewriting under this binder without renaming bv would capture it.
func (s *Substitution) valueMentionsAsFree(pool *term.Pool, bv term.Ref) bool {
	for _, k := range s.order {
		if k == bv {
			continue
		}
		if containsFreeVar(pool, s.m[k], bv) {
			return true
		}
	}
	return false
}

func containsFreeVar(pool *term.Pool, t, target term.Ref) bool {
	if t == target {
		return true
	}
	tm, ok := pool.Lookup(t)
	if !ok || tm.Kind != term.KindApp {
		return false
	}
	for _, a := range tm.Args {
		if containsFreeVar(pool, a, target) {
			return true
		}
	}
	return false
}

var freshCounter struct {
	n  uint64
	mu sync.Mutex
}

func freshenVar(pool *term.Pool, v term.Ref) term.Ref {
	vt, _ := pool.Lookup(v)
	freshCounter.mu.Lock()
	freshCounter.n++
	id := freshCounter.n
	freshCounter.mu.Unlock()
	return pool.Add(term.NewVar(fmt.Sprintf("%s!%d", vt.Name, id), vt.Sort))
}
