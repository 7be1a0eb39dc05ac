package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carcara-go/alethectx/internal/proof"
	"github.com/carcara-go/alethectx/internal/term"
	"github.com/carcara-go/alethectx/pkg/subctx"
)

func TestCheckReflAppliesFixedPointSubstitution(t *testing.T) {
	pool := term.NewPool()
	reg := subctx.NewRegistryFromUsage([]int{1})
	stack := subctx.NewStack(reg)

	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))
	require.NoError(t, stack.Push(pool, []subctx.Mapping{{Var: x, Value: e}}, nil, 0))

	eq := pool.Add(term.NewApp("=", "Bool", x, e))
	env := Env{Pool: pool, Stack: stack, Step: proof.Command{Rule: "refl", Conclusion: []term.Ref{eq}}}
	require.NoError(t, Dispatch(env, false))

	wrongEq := pool.Add(term.NewApp("=", "Bool", x, x))
	env.Step.Conclusion = []term.Ref{wrongEq}
	require.Error(t, Dispatch(env, false))
}

// TestCheckReflIteratesToAFixedPoint declares mappings out of fold order
// (a := b before b := c), so the single simultaneous substitution built
// from them rewrites a to b, not all the way to c (§8 property 5: a
// single Apply stops after one pass). refl must apply it again until the
// term stops changing, reaching c — a single env.Stack.Apply call (the
// cumulative substitution) would reject this conclusion.
func TestCheckReflIteratesToAFixedPoint(t *testing.T) {
	pool := term.NewPool()
	reg := subctx.NewRegistryFromUsage([]int{1})
	stack := subctx.NewStack(reg)

	a := pool.Add(term.NewVar("a", "Int"))
	b := pool.Add(term.NewVar("b", "Int"))
	c := pool.Add(term.NewVar("c", "Int"))
	mappings := []subctx.Mapping{{Var: a, Value: b}, {Var: b, Value: c}}
	require.NoError(t, stack.Push(pool, mappings, nil, 0))

	eq := pool.Add(term.NewApp("=", "Bool", a, c))
	env := Env{Pool: pool, Stack: stack, Step: proof.Command{Rule: "refl", Conclusion: []term.Ref{eq}}}
	require.NoError(t, Dispatch(env, false))

	oneHopOnly := pool.Add(term.NewApp("=", "Bool", a, b))
	env.Step.Conclusion = []term.Ref{oneHopOnly}
	require.Error(t, Dispatch(env, false))
}

func TestCheckLetRewritesBody(t *testing.T) {
	pool := term.NewPool()
	reg := subctx.NewRegistryFromUsage([]int{1})
	stack := subctx.NewStack(reg)

	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))
	require.NoError(t, stack.Push(pool, []subctx.Mapping{{Var: x, Value: e}}, nil, 0))

	fx := pool.Add(term.NewApp("f", "Bool", x))
	letExpr := pool.Add(term.NewApp("let", "Bool", x, fx))
	fe := pool.Add(term.NewApp("f", "Bool", e))
	eq := pool.Add(term.NewApp("=", "Bool", letExpr, fe))

	env := Env{Pool: pool, Stack: stack, Step: proof.Command{Rule: "let", Conclusion: []term.Ref{eq}}}
	require.NoError(t, Dispatch(env, false))
}

func TestCheckSubproofDischargesViaApplyPrevious(t *testing.T) {
	pool := term.NewPool()
	reg := subctx.NewRegistryFromUsage([]int{1})
	stack := subctx.NewStack(reg)

	x := pool.Add(term.NewVar("x", "Int"))
	e := pool.Add(term.NewVar("e", "Int"))
	require.NoError(t, stack.Push(pool, []subctx.Mapping{{Var: x, Value: e}}, nil, 0))

	// The inner step's conclusion mentions x; ApplyPrevious at depth 0
	// (there's no frame below this one) leaves it unchanged, matching
	// ApplyPrevious's documented fewer-than-two-frames behavior.
	inner := []term.Ref{x}
	env := Env{
		Pool:     pool,
		Stack:    stack,
		Step:     proof.Command{Rule: "subproof", Conclusion: []term.Ref{x}},
		Premises: [][]term.Ref{inner},
	}
	require.NoError(t, Dispatch(env, false))
}

func TestCheckBindRequiresDeclaredBinding(t *testing.T) {
	pool := term.NewPool()
	reg := subctx.NewRegistryFromUsage([]int{1})
	stack := subctx.NewStack(reg)

	require.NoError(t, stack.Push(pool, nil, []subctx.SortedVar{{Name: "y", Sort: "Int"}}, 0))

	x := pool.Add(term.NewVar("x", "Int"))
	y := pool.Add(term.NewVar("y", "Int"))
	body := pool.Add(term.NewVar("phi", "Bool"))

	xList := pool.Add(term.NewApp("!binder!", "Int", x))
	yList := pool.Add(term.NewApp("!binder!", "Int", y))
	lhs := pool.Add(term.NewApp("forall", "Bool", xList, body))
	rhs := pool.Add(term.NewApp("forall", "Bool", yList, body))
	eq := pool.Add(term.NewApp("=", "Bool", lhs, rhs))

	bodyEq := pool.Add(term.NewApp("=", "Bool", body, body))
	env := Env{
		Pool:     pool,
		Stack:    stack,
		Step:     proof.Command{Rule: "bind", Conclusion: []term.Ref{eq}},
		Premises: [][]term.Ref{{bodyEq}},
	}
	require.NoError(t, Dispatch(env, false))
}
