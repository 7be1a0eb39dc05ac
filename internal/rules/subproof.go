// This file holds the subproof-sensitive rule checkers: the ones that
// actually call through to the context stack (Apply/ApplyPrevious/Last),
// which makes them the rules that exercise the engine under test. Their
// mathematical checks are simplified to structural equality after
// substitution rather than full first-order unification (DESIGN.md).
package rules

import "github.com/carcara-go/alethectx/internal/term"

// checkRefl accepts `(cl (= t t'))` where t' is t rewritten by the current
// context's fixed-point substitution (§4.2) applied repeatedly until the
// term stops changing, rather than the single-pass cumulative
// substitution the other subproof-closing rules use.
func checkRefl(env Env) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("refl expects a single-literal clause")
	}
	eq, ok := asApp(env.Pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return fail("refl conclusion must be an equality")
	}
	fp := env.Stack.FixedPoint()
	if fp == nil {
		return fail("refl requires an open subproof context")
	}
	want := eq.Args[0]
	for {
		next := fp.Apply(env.Pool, want)
		if next == want {
			break
		}
		want = next
	}
	if want != eq.Args[1] {
		return fail("refl: right side is not the left side rewritten to a fixed point by the current context")
	}
	return nil
}

// binderEquality pulls apart a conclusion of shape `(= (<op> <binder-list>
// body) (<op> <binder-list'> body'))`, which bind/onepoint/sko_ex/
// sko_forall all conclude.
type binderEquality struct {
	op               string
	lhsVars, rhsVars []term.Ref
	lhsBody, rhsBody term.Ref
}

func parseBinderEquality(pool *term.Pool, conclusion []term.Ref) (binderEquality, error) {
	lit, ok := single(conclusion)
	if !ok {
		return binderEquality{}, fail("expects a single-literal clause")
	}
	eq, ok := asApp(pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return binderEquality{}, fail("conclusion must be an equality")
	}
	lhs, ok := asApp(pool, eq.Args[0])
	if !ok || len(lhs.Args) != 2 {
		return binderEquality{}, fail("left side must be a binder application")
	}
	rhs, ok := asApp(pool, eq.Args[1])
	if !ok || rhs.Op != lhs.Op || len(rhs.Args) != 2 {
		return binderEquality{}, fail("right side must be a matching binder application")
	}
	lhsList, ok := asApp(pool, lhs.Args[0])
	if !ok {
		return binderEquality{}, fail("left binder list malformed")
	}
	rhsList, ok := asApp(pool, rhs.Args[0])
	if !ok {
		return binderEquality{}, fail("right binder list malformed")
	}
	return binderEquality{
		op:      lhs.Op,
		lhsVars: lhsList.Args,
		rhsVars: rhsList.Args,
		lhsBody: lhs.Args[1],
		rhsBody: rhs.Args[1],
	}, nil
}

// checkBind closes a subproof that renamed a binder's bound variables: the
// conclusion equates two binder applications with the same arity of bound
// variables, and the one premise is the subproof's internal equality
// between the two bodies under that renaming.
func checkBind(env Env) error {
	be, err := parseBinderEquality(env.Pool, env.Step.Conclusion)
	if err != nil {
		return err
	}
	if len(be.lhsVars) != len(be.rhsVars) {
		return fail("bind: binder variable lists differ in arity")
	}
	if len(env.Premises) != 1 {
		return fail("bind expects exactly one premise")
	}
	premiseLit, ok := single(env.Premises[0])
	if !ok {
		return fail("bind premise must be a single-literal clause")
	}
	peq, ok := asApp(env.Pool, premiseLit)
	if !ok || peq.Op != "=" || len(peq.Args) != 2 {
		return fail("bind premise must be an equality")
	}
	if peq.Args[0] != be.lhsBody || peq.Args[1] != be.rhsBody {
		return fail("bind premise does not equate the two binder bodies")
	}
	last := env.Stack.Last()
	if last == nil {
		return fail("bind requires an open subproof context")
	}
	for _, v := range be.rhsVars {
		vt, ok := env.Pool.Lookup(v)
		if !ok || vt.Kind != term.KindVar || !last.HasBinding(vt.Name, vt.Sort) {
			return fail("bind: renamed variable %q is not declared by the enclosing anchor", vt.Name)
		}
	}
	return nil
}

// checkLet closes a `let`-subproof: the conclusion equates the `let`
// expression with its body rewritten through the subproof's assignment
// substitution.
func checkLet(env Env) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("let expects a single-literal clause")
	}
	eq, ok := asApp(env.Pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return fail("let conclusion must be an equality")
	}
	letApp, ok := asApp(env.Pool, eq.Args[0])
	if !ok || letApp.Op != "let" || len(letApp.Args) != 2 {
		return fail("let conclusion's left side must be a let expression")
	}
	want := env.Stack.Apply(env.Pool, letApp.Args[1])
	if want != eq.Args[1] {
		return fail("let: right side is not the let-bound body rewritten by the current context")
	}
	return nil
}

// checkOnePoint closes a one-point-rule subproof: a quantifier whose bound
// variable is pinned by an equality in its body collapses to the body with
// that variable substituted away.
func checkOnePoint(env Env) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("onepoint expects a single-literal clause")
	}
	eq, ok := asApp(env.Pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return fail("onepoint conclusion must be an equality")
	}
	quant, ok := asApp(env.Pool, eq.Args[0])
	if !ok || (quant.Op != "forall" && quant.Op != "exists") || len(quant.Args) != 2 {
		return fail("onepoint conclusion's left side must be a quantified formula")
	}
	want := env.Stack.Apply(env.Pool, quant.Args[1])
	if want != eq.Args[1] {
		return fail("onepoint: right side is not the quantifier body rewritten by the current context")
	}
	return nil
}

// checkSkoEx closes an existential-Skolemization subproof: `(exists (x)
// phi)` becomes `phi` with x replaced by the anchor's Skolem witness term.
func checkSkoEx(env Env) error {
	return checkSkolem(env, "exists")
}

// checkSkoForall closes a universal-Skolemization subproof.
func checkSkoForall(env Env) error {
	return checkSkolem(env, "forall")
}

func checkSkolem(env Env, op string) error {
	lit, ok := single(env.Step.Conclusion)
	if !ok {
		return fail("%s Skolemization expects a single-literal clause", op)
	}
	eq, ok := asApp(env.Pool, lit)
	if !ok || eq.Op != "=" || len(eq.Args) != 2 {
		return fail("%s Skolemization conclusion must be an equality", op)
	}
	quant, ok := asApp(env.Pool, eq.Args[0])
	if !ok || quant.Op != op || len(quant.Args) != 2 {
		return fail("%s Skolemization conclusion's left side must be a %s formula", op, op)
	}
	want := env.Stack.Apply(env.Pool, quant.Args[1])
	if want != eq.Args[1] {
		return fail("%s Skolemization: right side is not the body rewritten by the Skolem witness", op)
	}
	return nil
}

// checkSubproof closes a generic subproof: its conclusion is the
// subproof's final inner step's conclusion, discharged one level up via
// ApplyPrevious (so assumptions/bindings local to the closed subproof no
// longer appear free).
func checkSubproof(env Env) error {
	if len(env.Premises) != 1 {
		return fail("subproof expects exactly one premise (its final inner step)")
	}
	if len(env.Step.Conclusion) != len(env.Premises[0]) {
		return fail("subproof conclusion arity does not match its final inner step")
	}
	for i, lit := range env.Premises[0] {
		want := env.Stack.ApplyPrevious(env.Pool, lit)
		if want != env.Step.Conclusion[i] {
			return fail("subproof: conclusion literal %d is not the inner step's literal discharged one level up", i)
		}
	}
	return nil
}
