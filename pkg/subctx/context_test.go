package subctx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carcara-go/alethectx/internal/term"
)

func TestContextHasBinding(t *testing.T) {
	c := &Context{
		Bindings: map[SortedVar]struct{}{
			{Name: "x", Sort: "Int"}: {},
		},
	}
	require.True(t, c.HasBinding("x", "Int"))
	require.False(t, c.HasBinding("x", "Bool"))
	require.False(t, c.HasBinding("y", "Int"))
}

func TestRegistryForkSharesSlots(t *testing.T) {
	reg := NewRegistryFromUsage([]int{2})
	forked := reg.Fork()

	require.Equal(t, reg.Len(), forked.Len())

	pool := term.NewPool()
	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))

	s1 := NewStack(reg)
	require.NoError(t, s1.Push(pool, []Mapping{{Var: x, Value: e}}, nil, 0))

	s2 := NewStack(forked)
	// forked shares the same underlying slot, so its Last() sees s1's
	// build even though s2 pushes with no assignment args of its own.
	require.NoError(t, s2.Push(pool, nil, nil, 0))
	require.NotNil(t, s2.Last())
	require.Equal(t, int64(2), forked.Remaining(0))

	s1.Pop()
	require.Equal(t, int64(1), forked.Remaining(0))
	s2.Pop()
	require.Equal(t, int64(0), forked.Remaining(0))
	require.True(t, forked.IsEmpty(0))
}
