package rules

import "github.com/carcara-go/alethectx/internal/term"

// checkEqReflexive accepts `(cl (= t t))` with no premises.
func checkEqReflexive(env Env) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("eq_reflexive expects a single-literal clause")
	}
	eq, ok := asApp(env.Pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return fail("eq_reflexive conclusion must be an equality")
	}
	if eq.Args[0] != eq.Args[1] {
		return fail("eq_reflexive: the two equated terms are not identical")
	}
	return nil
}

// checkEqTransitive chains a sequence of equality premises `(= a b), (= b
// c), ...` into `(= a z)`.
func checkEqTransitive(env Env) error {
	if len(env.Premises) < 1 {
		return fail("eq_transitive expects at least one premise")
	}
	var chain [][2]term.Ref
	for i, p := range env.Premises {
		lit, ok := single(p)
		if !ok {
			return fail("eq_transitive premise %d must be a single-literal clause", i)
		}
		eq, ok := asApp(env.Pool, lit)
		if !ok || eq.Op != "=" || len(eq.Args) != 2 {
			return fail("eq_transitive premise %d must be an equality", i)
		}
		chain = append(chain, [2]term.Ref{eq.Args[0], eq.Args[1]})
	}
	for i := 1; i < len(chain); i++ {
		if chain[i][0] != chain[i-1][1] {
			return fail("eq_transitive: premise %d does not chain from premise %d", i, i-1)
		}
	}
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("eq_transitive conclusion must be a single-literal clause")
	}
	eq, ok := asApp(env.Pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return fail("eq_transitive conclusion must be an equality")
	}
	if eq.Args[0] != chain[0][0] || eq.Args[1] != chain[len(chain)-1][1] {
		return fail("eq_transitive conclusion does not match the chained endpoints")
	}
	return nil
}

// checkEqCongruent accepts `(= (f a1 .. an) (f b1 .. bn))` given premises
// `(= a1 b1) .. (= an bn)` (allowing ai == bi to skip that premise).
func checkEqCongruent(env Env) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("eq_congruent conclusion must be a single-literal clause")
	}
	eq, ok := asApp(env.Pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return fail("eq_congruent conclusion must be an equality")
	}
	lhs, ok := asApp(env.Pool, eq.Args[0])
	if !ok {
		return fail("eq_congruent: left side must be an application")
	}
	rhs, ok := asApp(env.Pool, eq.Args[1])
	if !ok || rhs.Op != lhs.Op || len(rhs.Args) != len(lhs.Args) {
		return fail("eq_congruent: both sides must be applications of the same function")
	}

	premiseIdx := 0
	for i := range lhs.Args {
		if lhs.Args[i] == rhs.Args[i] {
			continue
		}
		if premiseIdx >= len(env.Premises) {
			return fail("eq_congruent: not enough premises for the differing arguments")
		}
		p, ok := single(env.Premises[premiseIdx])
		if !ok {
			return fail("eq_congruent premise %d must be a single-literal clause", premiseIdx)
		}
		peq, ok := asApp(env.Pool, p)
		if !ok || peq.Op != "=" || len(peq.Args) != 2 {
			return fail("eq_congruent premise %d must be an equality", premiseIdx)
		}
		if peq.Args[0] != lhs.Args[i] || peq.Args[1] != rhs.Args[i] {
			return fail("eq_congruent premise %d does not match argument %d", premiseIdx, i)
		}
		premiseIdx++
	}
	return nil
}
