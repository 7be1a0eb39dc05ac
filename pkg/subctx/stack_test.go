package subctx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carcara-go/alethectx/internal/term"
)

// Scenario A: empty stack — Apply/ApplyPrevious are no-ops.
func TestStackEmptyApplyIsNoop(t *testing.T) {
	pool := term.NewPool()
	reg := NewRegistryFromUsage(nil)
	s := NewStack(reg)

	x := pool.Add(term.NewVar("x", "Int"))
	require.True(t, s.IsEmpty())
	require.Equal(t, x, s.Apply(pool, x))
	require.Equal(t, x, s.ApplyPrevious(pool, x))
}

// Scenario B: single anchor — Apply rewrites through its mapping.
func TestStackSingleAnchor(t *testing.T) {
	pool := term.NewPool()
	reg := NewRegistryFromUsage([]int{1})
	s := NewStack(reg)

	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))

	require.NoError(t, s.Push(pool, []Mapping{{Var: x, Value: e}}, nil, 0))
	require.Equal(t, 1, s.Len())
	require.Equal(t, e, s.Apply(pool, x))

	s.Pop()
	require.True(t, s.IsEmpty())
	require.Equal(t, int64(0), reg.Remaining(0))
	require.True(t, reg.IsEmpty(0))
}

// Scenario C: two nested anchors, chained substitution (§4.3's worked
// example: y:=z, then x:=f(y) at the inner frame).
func TestStackNestedAnchorsChainSubstitution(t *testing.T) {
	pool := term.NewPool()
	reg := NewRegistryFromUsage([]int{1, 1})
	s := NewStack(reg)

	y := pool.Add(term.NewVar("y", "Int"))
	z := pool.Add(term.NewVar("z", "Int"))
	x := pool.Add(term.NewVar("x", "Int"))

	require.NoError(t, s.Push(pool, []Mapping{{Var: y, Value: z}}, nil, 0))

	fy := pool.Add(term.NewApp("f", "Int", y))
	require.NoError(t, s.Push(pool, []Mapping{{Var: x, Value: fy}}, nil, 1))

	// x at depth 1 must resolve through both frames: x -> f(y) -> f(z).
	fz := pool.Add(term.NewApp("f", "Int", z))
	require.Equal(t, fz, s.Apply(pool, x))

	// ApplyPrevious (depth 0) only sees the outer frame: y -> z.
	require.Equal(t, z, s.ApplyPrevious(pool, y))

	s.Pop()
	s.Pop()
}

// Scenario D: two workers sharing a slot — only one builds, both read the
// same Context.
func TestStackTwoWorkersShareSlot(t *testing.T) {
	pool := term.NewPool()
	reg := NewRegistryFromUsage([]int{2})

	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))

	var wg sync.WaitGroup
	results := make([]term.Ref, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st := NewStack(reg.Fork())
			require.NoError(t, st.Push(pool, []Mapping{{Var: x, Value: e}}, nil, 0))
			results[i] = st.Apply(pool, x)
			st.Pop()
		}(i)
	}
	wg.Wait()

	require.Equal(t, e, results[0])
	require.Equal(t, e, results[1])
	require.Equal(t, int64(0), reg.Remaining(0))
	require.True(t, reg.IsEmpty(0))
}

// Scenario E: a contending reader must block until the builder releases
// the write lock, then observe the fully-built Context rather than a
// torn/partial one.
func TestStackContendingReaderSeesCompletedBuild(t *testing.T) {
	pool := term.NewPool()
	reg := NewRegistryFromUsage([]int{2})

	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))

	builderEntered := make(chan struct{})
	releaseBuilder := make(chan struct{})

	builder := NewStack(reg.Fork())
	go func() {
		sl := reg.slotAt(0)
		sl.mu.Lock()
		close(builderEntered)
		<-releaseBuilder
		sl.ctx = &Context{Mappings: []Mapping{{Var: x, Value: e}}}
		sl.mu.Unlock()
	}()
	<-builderEntered

	reader := NewStack(reg.Fork())
	done := make(chan term.Ref)
	go func() {
		// Push observes the slot already locked (TryLock fails) and
		// simply records the id; Apply then blocks on the read lock
		// until the goroutine above releases it.
		_ = reader.Push(pool, nil, nil, 0)
		done <- reader.Apply(pool, x)
	}()

	close(releaseBuilder)
	got := <-done
	require.Equal(t, e, got)

	_ = builder // builder's own stack is unused directly; the slot was built by hand above to simulate the build under test.
}

// Scenario F: usage underflow panics.
func TestStackPopUnderflowPanics(t *testing.T) {
	pool := term.NewPool()
	reg := NewRegistryFromUsage([]int{1})
	s := NewStack(reg)

	x := pool.Add(term.NewVar("x", "Int"))
	require.NoError(t, s.Push(pool, nil, []SortedVar{{Name: "x", Sort: "Int"}}, 0))
	s.Pop()

	// Force a second pop of the same already-exhausted slot by pushing it
	// again manually (usage accounting says this should never happen).
	s.stack = append(s.stack, 0)
	require.Panics(t, func() { s.Pop() })
	_ = x
}

// Property 4 (§8): catchUpCumulative is idempotent once the prefix is
// already installed.
func TestCatchUpCumulativeIsIdempotent(t *testing.T) {
	pool := term.NewPool()
	reg := NewRegistryFromUsage([]int{1})
	s := NewStack(reg)

	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))
	require.NoError(t, s.Push(pool, []Mapping{{Var: x, Value: e}}, nil, 0))

	s.catchUpCumulative(pool, 0)
	first := s.numCumulativeCalculated
	sub := reg.slotAt(0).ctx.CumulativeSubstitution

	s.catchUpCumulative(pool, 0)
	require.Equal(t, first, s.numCumulativeCalculated)
	require.Same(t, sub, reg.slotAt(0).ctx.CumulativeSubstitution)
}

// Property 5 (§8): order-sensitivity of the simultaneous substitution.
func TestSimultaneousOfIsOrderSensitive(t *testing.T) {
	pool := term.NewPool()
	x := pool.Add(term.NewVar("x", "Int"))
	y := pool.Add(term.NewVar("y", "Int"))
	z := pool.Add(term.NewVar("z", "Int"))
	fy := pool.Add(term.NewApp("f", "Int", y))
	fz := pool.Add(term.NewApp("f", "Int", z))

	forward := simultaneousOf(pool, []Mapping{{Var: y, Value: z}, {Var: x, Value: fy}})
	fwdX, ok := forward.Get(x)
	require.True(t, ok)
	require.Equal(t, fz, fwdX, "y:=z then x:=f(y) must rewrite x to f(z)")

	backward := simultaneousOf(pool, []Mapping{{Var: x, Value: fy}, {Var: y, Value: z}})
	bwdX, ok := backward.Get(x)
	require.True(t, ok)
	require.Equal(t, fy, bwdX, "x:=f(y) declared before y:=z must not see y's rewrite")
}
