package subctx

import (
	"fmt"

	"github.com/carcara-go/alethectx/internal/term"
)

// ErrContextUnderflow is panicked by Pop when a worker's usage accounting
// disagrees with the registry's declared usage counts — a scheduler bug,
// never a malformed-proof condition. Checker callers recover it at the top
// of each worker goroutine (see pkg/checker) and turn it into an error.
type ErrContextUnderflow struct {
	ContextID int
}

func (e *ErrContextUnderflow) Error() string {
	return fmt.Sprintf("subctx: a worker tried to leave %s, which was not allocated to it", fmtContextID(e.ContextID))
}

// Stack is a single worker's view of the currently-open subproof contexts:
// an ordered list of slot indices into a shared Registry, plus bookkeeping
// for how much of the cumulative-substitution prefix has been computed.
// A Stack is not safe for concurrent use by more than one goroutine — each
// worker owns exactly one.
type Stack struct {
	registry                *Registry
	stack                   []int
	numCumulativeCalculated int
}

// NewStack creates an empty stack bound to registry.
func NewStack(registry *Registry) *Stack {
	return &Stack{registry: registry}
}

// Fork returns a fresh, empty stack sharing the same underlying registry —
// used when spinning up a new worker (§4.5 from_previous).
func (s *Stack) Fork() *Stack {
	return &Stack{registry: s.registry}
}

// Len reports the current subproof nesting depth.
func (s *Stack) Len() int { return len(s.stack) }

// IsEmpty reports whether the stack has no open contexts.
func (s *Stack) IsEmpty() bool { return len(s.stack) == 0 }

// Last returns a read-only view of the top frame, or nil if the stack is
// empty. Used by rules (e.g. bind) that inspect mappings/bindings
// directly rather than through Apply.
func (s *Stack) Last() *Context {
	if s.IsEmpty() {
		return nil
	}
	id := s.stack[len(s.stack)-1]
	sl := s.registry.slotAt(id)
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.ctx
}

// Push opens a subproof context. If this is the first worker to reach
// contextID, it builds the Context under a write lock; otherwise it
// observes that another worker already built (or is building) it and
// simply records the id on the local stack — a later Apply/ApplyPrevious
// blocks until the builder's write lock is released (§4.4, exercised by
// scenario E in stack_test.go).
func (s *Stack) Push(pool *term.Pool, assignmentArgs []Mapping, variableArgs []SortedVar, contextID int) error {
	sl := s.registry.slotAt(contextID)

	if sl.mu.TryLock() {
		if sl.ctx == nil {
			ctx, err := buildContext(pool, assignmentArgs, variableArgs)
			if err != nil {
				sl.mu.Unlock()
				return err
			}
			sl.ctx = ctx
			sl.fixedPoint = FixedPointSubstitution(pool, assignmentArgs)
		}
		sl.mu.Unlock()
	}
	// TryLock failing means another worker currently holds the write lock
	// and is building contextID; we proceed without waiting, relying on a
	// later Apply/ApplyPrevious/Last to block on the read lock until that
	// build completes.

	s.stack = append(s.stack, contextID)
	return nil
}

// buildContext constructs a Context from an anchor's raw assignment and
// variable args, per §4.4 step 1. The caller already guarantees it holds
// the slot's write lock and the slot was empty.
func buildContext(pool *term.Pool, assignmentArgs []Mapping, variableArgs []SortedVar) (*Context, error) {
	mappings := make([]Mapping, 0, len(assignmentArgs))
	check := NewSubstitution()
	for _, a := range assignmentArgs {
		// Surfaces ErrNotAVariable / *SortMismatchError for a malformed
		// anchor before anything is installed in the slot.
		if err := check.Insert(pool, a.Var, a.Value); err != nil {
			return nil, err
		}
		mappings = append(mappings, Mapping{Var: a.Var, Value: a.Value})
	}

	bindings := make(map[SortedVar]struct{}, len(variableArgs))
	for _, v := range variableArgs {
		bindings[v] = struct{}{}
	}

	return &Context{Mappings: mappings, Bindings: bindings}, nil
}

// FixedPointSubstitution builds the side-product substitution described in
// §4.2: the same bottom-up fold as the simultaneous substitution, handed
// directly to rules (e.g. refl) that need to rewrite a term until a fixed
// point rather than store it in the Context. Push calls this once per
// builder, alongside buildContext, under the same write lock.
func FixedPointSubstitution(pool *term.Pool, assignmentArgs []Mapping) *Substitution {
	return simultaneousOf(pool, assignmentArgs)
}

// FixedPoint returns the fixed-point substitution built alongside the top
// frame, or nil if the stack is empty. A caller blocks on the same read
// lock Last uses, so if another worker is still building the top frame
// this call waits for that build to finish rather than observing a
// half-built slot.
func (s *Stack) FixedPoint() *Substitution {
	if s.IsEmpty() {
		return nil
	}
	id := s.stack[len(s.stack)-1]
	sl := s.registry.slotAt(id)
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.fixedPoint
}

// Pop closes the top subproof context, decrementing its slot's usage
// counter and releasing the Context once the last interested worker has
// left.
func (s *Stack) Pop() {
	if len(s.stack) == 0 {
		return
	}
	id := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	sl := s.registry.slotAt(id)
	remaining := sl.remaining.Add(-1)
	if remaining < 0 {
		panic(&ErrContextUnderflow{ContextID: id})
	}
	if remaining == 0 {
		sl.mu.Lock()
		sl.ctx = nil
		sl.fixedPoint = nil
		sl.mu.Unlock()
	}

	if s.numCumulativeCalculated > len(s.stack) {
		s.numCumulativeCalculated = len(s.stack)
	}
}

// catchUpCumulative advances numCumulativeCalculated through
// max(upTo+1, len(stack)), installing each frame's CumulativeSubstitution
// exactly once (§4.3). It is idempotent: calling it repeatedly at the same
// stack state after the first call is a no-op (§8 property 4), since every
// frame it would touch already has CumulativeSubstitution installed.
func (s *Stack) catchUpCumulative(pool *term.Pool, upTo int) {
	target := upTo + 1
	if len(s.stack) > target {
		target = len(s.stack)
	}

	for i := s.numCumulativeCalculated; i < target; i++ {
		id := s.stack[i]
		sl := s.registry.slotAt(id)

		sl.mu.RLock()
		ctx := sl.ctx
		simul := simultaneousOf(pool, ctx.Mappings)
		cum := simul.clone()

		if i > 0 {
			// The previous frame was pushed earlier on this worker's own
			// stack, so by construction its builder (this worker or
			// another) has already released the write lock by the time we
			// read it here; RLock only ever waits on an in-flight build,
			// never deadlocks (see §5 deadlock argument).
			prevSl := s.registry.slotAt(s.stack[i-1])
			prevSl.mu.RLock()
			prevCum := prevSl.ctx.CumulativeSubstitution
			prevSl.mu.RUnlock()

			prevCum.Entries(func(k, v term.Ref) {
				value := v
				if rewritten, ok := simul.Get(v); ok {
					value = rewritten
				}
				cum.Insert(pool, k, value) //nolint:errcheck // k/value sorts match prevCum's own invariant
			})
		}
		sl.mu.RUnlock()

		sl.mu.Lock()
		sl.ctx.CumulativeSubstitution = cum
		sl.mu.Unlock()

		s.numCumulativeCalculated = i + 1
	}
}

// Apply rewrites term through the cumulative substitution at the current
// (deepest) depth. If the stack is empty, term is returned unchanged.
func (s *Stack) Apply(pool *term.Pool, t term.Ref) term.Ref {
	if s.IsEmpty() {
		return t
	}
	return s.applyAt(pool, len(s.stack)-1, t)
}

// ApplyPrevious rewrites term through the cumulative substitution one
// level up from the current depth. If the stack has fewer than two
// frames, term is returned unchanged (ErrMissingPrevious is not a real
// error condition — see §7).
func (s *Stack) ApplyPrevious(pool *term.Pool, t term.Ref) term.Ref {
	if len(s.stack) < 2 {
		return t
	}
	return s.applyAt(pool, len(s.stack)-2, t)
}

func (s *Stack) applyAt(pool *term.Pool, index int, t term.Ref) term.Ref {
	s.catchUpCumulative(pool, index)

	sl := s.registry.slotAt(s.stack[index])
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.ctx.CumulativeSubstitution.Apply(pool, t)
}
