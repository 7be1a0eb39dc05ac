package subctx

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/carcara-go/alethectx/internal/term"
)

// Mapping is a single `(:= x e)` assignment argument, in the order it was
// declared on an anchor.
type Mapping struct {
	Var   term.Ref
	Value term.Ref
}

// SortedVar is a `(x S)` variable argument: a newly bound variable
// introduced by a subproof.
type SortedVar struct {
	Name string
	Sort term.Sort
}

// Context is one subproof frame: the raw assignment mappings in declared
// order, the set of newly bound variables, and a lazily-computed
// cumulative substitution. Once installed into a registry slot, a Context
// is immutable except for CumulativeSubstitution, which is write-once.
type Context struct {
	Mappings               []Mapping
	Bindings               map[SortedVar]struct{}
	CumulativeSubstitution *Substitution
}

// HasBinding reports whether name/sort was introduced as a variable arg of
// this context.
func (c *Context) HasBinding(name string, sort term.Sort) bool {
	_, ok := c.Bindings[SortedVar{Name: name, Sort: sort}]
	return ok
}

// simultaneousOf builds the simultaneous substitution for a frame's
// mappings per §4.2: a bottom-up fold where later mappings see the effect
// of earlier ones.
func simultaneousOf(pool *term.Pool, mappings []Mapping) *Substitution {
	result := NewSubstitution()
	for _, m := range mappings {
		newValue := result.Apply(pool, m.Value)
		// Insert cannot fail for mappings Push accepted: buildContext
		// already checked that m.Var is a variable of m.Value's sort, and
		// newValue shares m.Value's sort because Apply never changes a
		// term's sort.
		_ = result.Insert(pool, m.Var, newValue)
	}
	return result
}

// slot is one entry in the ContextRegistry: a decrementing usage counter
// plus a write-once, lock-guarded payload. fixedPoint is built alongside
// ctx by the same builder under the same write lock, but is a side
// product of push (§4.2), not part of the Context payload itself — it is
// only ever handed to rule checkers that need it (e.g. refl), never
// stored in or read from ctx.
type slot struct {
	remaining  atomic.Int64
	mu         sync.RWMutex
	ctx        *Context
	fixedPoint *Substitution
}

// Registry is the process-wide, index-addressable array of context slots.
// It is built once per check run and shared by reference across every
// worker's ContextStack.
type Registry struct {
	slots []slot
}

// NewRegistryFromUsage creates one slot per anchor. usage[i] is the number
// of workers expected to push context id i over the lifetime of the run.
func NewRegistryFromUsage(usage []int) *Registry {
	r := &Registry{slots: make([]slot, len(usage))}
	for i, u := range usage {
		r.slots[i].remaining.Store(int64(u))
	}
	return r
}

// Len returns the number of slots (one per anchor seen at construction
// time); the count is fixed for the lifetime of the registry.
func (r *Registry) Len() int { return len(r.slots) }

// Remaining returns the current usage counter for contextID, for tests and
// diagnostics (property 3, §8).
func (r *Registry) Remaining(contextID int) int64 {
	return r.slots[contextID].remaining.Load()
}

// IsEmpty reports whether contextID's slot currently holds no Context.
func (r *Registry) IsEmpty(contextID int) bool {
	s := &r.slots[contextID]
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx == nil
}

func (r *Registry) slotAt(id int) *slot { return &r.slots[id] }

// Fork returns a Registry handle sharing the same underlying slot array —
// used when spinning up a new worker: the worker gets a fresh, empty
// ContextStack of its own, built atop the same shared slots so builds and
// reference counts are still coordinated across every forked handle.
func (r *Registry) Fork() *Registry {
	return &Registry{slots: r.slots}
}

func fmtContextID(id int) string { return fmt.Sprintf("context id %d", id) }
