package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carcara-go/alethectx/internal/proof"
	"github.com/carcara-go/alethectx/internal/term"
)

func TestCheckTrue(t *testing.T) {
	pool := term.NewPool()
	tru := pool.Add(term.NewConst(true, "Bool"))
	env := Env{Pool: pool, Step: proof.Command{Rule: "true", Conclusion: []term.Ref{tru}}}
	require.NoError(t, Dispatch(env, false))
}

func TestCheckResolutionChainsThreePremises(t *testing.T) {
	pool := term.NewPool()
	p := pool.Add(term.NewVar("p", "Bool"))
	q := pool.Add(term.NewVar("q", "Bool"))
	r := pool.Add(term.NewVar("r", "Bool"))
	notP := pool.Add(term.NewApp("not", "Bool", p))
	notQ := pool.Add(term.NewApp("not", "Bool", q))

	// premises: (p, q), (not p, r), (not q)  => resolvent: r
	premises := [][]term.Ref{
		{p, q},
		{notP, r},
		{notQ},
	}
	env := Env{
		Pool:     pool,
		Step:     proof.Command{Rule: "resolution", Conclusion: []term.Ref{r}},
		Premises: premises,
	}
	require.NoError(t, Dispatch(env, false))
}

func TestCheckResolutionRejectsWrongConclusion(t *testing.T) {
	pool := term.NewPool()
	p := pool.Add(term.NewVar("p", "Bool"))
	q := pool.Add(term.NewVar("q", "Bool"))
	notP := pool.Add(term.NewApp("not", "Bool", p))

	env := Env{
		Pool:     pool,
		Step:     proof.Command{Rule: "resolution", Conclusion: []term.Ref{p}}, // wrong: should be q
		Premises: [][]term.Ref{{p}, {notP, q}},
	}
	require.Error(t, Dispatch(env, false))
}

func TestCheckAndClausifiesOneConjunct(t *testing.T) {
	pool := term.NewPool()
	p := pool.Add(term.NewVar("p", "Bool"))
	q := pool.Add(term.NewVar("q", "Bool"))
	and := pool.Add(term.NewApp("and", "Bool", p, q))

	env := Env{
		Pool:     pool,
		Step:     proof.Command{Rule: "and", Conclusion: []term.Ref{q}},
		Premises: [][]term.Ref{{and}},
	}
	require.NoError(t, Dispatch(env, false))
}

func TestDispatchUnknownRule(t *testing.T) {
	env := Env{Step: proof.Command{Rule: "some_future_rule"}}
	err := Dispatch(env, false)
	require.Error(t, err)

	err = Dispatch(env, true)
	require.NoError(t, err)
}

func TestCheckHoleAlwaysPasses(t *testing.T) {
	env := Env{Step: proof.Command{Rule: "hole"}}
	require.NoError(t, Dispatch(env, false))
}
