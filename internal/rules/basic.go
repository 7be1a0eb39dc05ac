package rules

import "github.com/carcara-go/alethectx/internal/term"

// checkTrue accepts the single-literal clause `(cl true)`.
func checkTrue(env Env) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("true expects a single-literal clause")
	}
	t, found := env.Pool.Lookup(lit)
	if !found || t.Kind != term.KindConst || t.Value != true {
		return fail("true expects conclusion (cl true)")
	}
	return nil
}

// checkFalse accepts the single-literal clause `(cl (not false))`.
func checkFalse(env Env) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("false expects a single-literal clause")
	}
	inner, ok := isNot(env.Pool, lit)
	if !ok {
		return fail("false expects conclusion (cl (not false))")
	}
	t, found := env.Pool.Lookup(inner)
	if !found || t.Kind != term.KindConst || t.Value != false {
		return fail("false expects conclusion (cl (not false))")
	}
	return nil
}

// checkNotNot rewrites `(not (not (not p)))` premises into `p`: conclusion
// must be `(cl (not (not (not p))) p)` with no premises (veriT emits this
// as a tautology rule, not a resolution step).
func checkNotNot(env Env) error {
	if len(env.Step.Conclusion) != 2 {
		return fail("not_not expects a 2-literal clause")
	}
	outer, ok := isNot(env.Pool, env.Step.Conclusion[0])
	if !ok {
		return fail("not_not: first literal must be a negation")
	}
	mid, ok := isNot(env.Pool, outer)
	if !ok {
		return fail("not_not: first literal must be a double negation")
	}
	p, ok := isNot(env.Pool, mid)
	if !ok {
		return fail("not_not: first literal must be a triple negation")
	}
	if p != env.Step.Conclusion[1] {
		return fail("not_not: second literal must match the innermost negated term")
	}
	return nil
}

// checkAnd is the clausification of a conjunction premise: given premise
// `(and p1 ... pn)`, any single conjunct pi may be concluded.
func checkAnd(env Env) error {
	if len(env.Premises) != 1 {
		return fail("and expects exactly one premise")
	}
	premise, ok := single(env.Premises[0])
	if !ok {
		return fail("and premise must be a single-literal clause")
	}
	t, ok := asApp(env.Pool, premise)
	if !ok || t.Op != "and" {
		return fail("and premise must be an `and` application")
	}
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("and conclusion must be a single-literal clause")
	}
	for _, conjunct := range t.Args {
		if conjunct == lit {
			return nil
		}
	}
	return fail("and conclusion is not one of the premise's conjuncts")
}

// checkOr is the reverse clausification: given premise `(or p1 ... pn)`,
// the conclusion is the clause `(cl p1 ... pn)`.
func checkOr(env Env) error {
	if len(env.Premises) != 1 {
		return fail("or expects exactly one premise")
	}
	premise, ok := single(env.Premises[0])
	if !ok {
		return fail("or premise must be a single-literal clause")
	}
	t, ok := asApp(env.Pool, premise)
	if !ok || t.Op != "or" {
		return fail("or premise must be an `or` application")
	}
	if len(t.Args) != len(env.Step.Conclusion) {
		return fail("or conclusion arity does not match the premise's disjuncts")
	}
	for i, arg := range t.Args {
		if arg != env.Step.Conclusion[i] {
			return fail("or conclusion literal %d does not match the premise's disjunct", i)
		}
	}
	return nil
}

// checkResolution checks a simplified binary/chain resolution: the
// conclusion must equal the multiset union of the premises' literals minus
// exactly one complementary pair per adjacent premise pair. This
// implementation checks the common case of pairwise resolution across all
// premises in order, which is sufficient for the proof shapes this repo
// exercises (full pivot-search resolution is out of scope, DESIGN.md).
func checkResolution(env Env) error {
	if len(env.Premises) < 2 {
		return fail("resolution expects at least two premises")
	}
	current := append([]term.Ref(nil), env.Premises[0]...)
	for _, next := range env.Premises[1:] {
		resolved, ok := resolveOnce(env.Pool, current, next)
		if !ok {
			return fail("no complementary literal found between adjacent premises")
		}
		current = resolved
	}
	if !sameMultiset(current, env.Step.Conclusion) {
		return fail("conclusion does not match the resolvent of the premises")
	}
	return nil
}

// resolveOnce finds a literal in a and its negation in b, and returns the
// union of both clauses with that complementary pair removed.
func resolveOnce(pool *term.Pool, a, b []term.Ref) ([]term.Ref, bool) {
	for _, la := range a {
		negA, isNegA := isNot(pool, la)
		for _, lb := range b {
			if isNegA && negA == lb {
				return mergeExcluding(a, b, la, lb), true
			}
			if negB, isNegB := isNot(pool, lb); isNegB && negB == la {
				return mergeExcluding(a, b, la, lb), true
			}
		}
	}
	return nil, false
}

func mergeExcluding(a, b []term.Ref, excludeA, excludeB term.Ref) []term.Ref {
	var out []term.Ref
	for _, l := range a {
		if l != excludeA {
			out = append(out, l)
		}
	}
	for _, l := range b {
		if l != excludeB {
			out = append(out, l)
		}
	}
	return out
}

// checkContraction drops duplicate literals from the single premise.
func checkContraction(env Env) error {
	if len(env.Premises) != 1 {
		return fail("contraction expects exactly one premise")
	}
	seen := map[term.Ref]bool{}
	var deduped []term.Ref
	for _, l := range env.Premises[0] {
		if !seen[l] {
			seen[l] = true
			deduped = append(deduped, l)
		}
	}
	if !sameMultiset(deduped, env.Step.Conclusion) {
		return fail("conclusion is not the premise with duplicates removed")
	}
	return nil
}

func sameMultiset(a, b []term.Ref) bool {
	if len(a) != len(b) {
		return false
	}
	counts := map[term.Ref]int{}
	for _, x := range a {
		counts[x]++
	}
	for _, x := range b {
		counts[x]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// checkHole always accepts: the proof records a gap the checker does not
// verify, matching veriT/carcara's treatment of the `hole` rule.
func checkHole(env Env) error { return nil }
