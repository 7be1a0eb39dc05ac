package subctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carcara-go/alethectx/internal/term"
)

func TestSubstitutionApplyRewritesFreeVariables(t *testing.T) {
	pool := term.NewPool()
	x := pool.Add(term.NewVar("x", "Int"))
	y := pool.Add(term.NewVar("y", "Int"))
	z := pool.Add(term.NewVar("z", "Int"))

	s := NewSubstitution()
	require.NoError(t, s.Insert(pool, x, z))

	fx := pool.Add(term.NewApp("f", "Bool", x, y))
	got := s.Apply(pool, fx)

	want := pool.Add(term.NewApp("f", "Bool", z, y))
	require.Equal(t, want, got)
}

func TestSubstitutionInsertRejectsNonVariableKey(t *testing.T) {
	pool := term.NewPool()
	c := pool.Add(term.NewConst(3, "Int"))
	v := pool.Add(term.NewVar("x", "Int"))

	s := NewSubstitution()
	err := s.Insert(pool, c, v)
	require.True(t, errors.Is(err, ErrNotAVariable))
}

func TestSubstitutionInsertRejectsSortMismatch(t *testing.T) {
	pool := term.NewPool()
	x := pool.Add(term.NewVar("x", "Int"))
	b := pool.Add(term.NewVar("b", "Bool"))

	s := NewSubstitution()
	err := s.Insert(pool, x, b)
	var sortErr *SortMismatchError
	require.True(t, errors.As(err, &sortErr))
	require.Equal(t, term.Sort("Int"), sortErr.Expected)
	require.Equal(t, term.Sort("Bool"), sortErr.Got)
}

// TestSubstitutionApplyAvoidsCapture exercises property 6 (§8): applying a
// substitution whose value mentions a variable also bound by an inner
// binder must alpha-rename the inner binder rather than let it capture
// the substituted-in occurrence.
func TestSubstitutionApplyAvoidsCapture(t *testing.T) {
	pool := term.NewPool()
	x := pool.Add(term.NewVar("x", "Int"))
	y := pool.Add(term.NewVar("y", "Int"))

	s := NewSubstitution()
	// x := y: substituting x with a term that mentions y.
	require.NoError(t, s.Insert(pool, x, y))

	// forall y. (f x y)  -- inner binder reuses the name "y".
	binderList := pool.Add(term.NewApp(binderListOp, "Int", y))
	body := pool.Add(term.NewApp("f", "Bool", x, y))
	forall := pool.Add(term.NewApp("forall", "Bool", binderList, body))

	got := s.Apply(pool, forall)

	gotTerm, ok := pool.Lookup(got)
	require.True(t, ok)
	require.Equal(t, "forall", gotTerm.Op)

	newBinderList, ok := pool.Lookup(gotTerm.Args[0])
	require.True(t, ok)
	require.Len(t, newBinderList.Args, 1)
	require.NotEqual(t, y, newBinderList.Args[0], "the inner binder's y must be renamed to avoid capturing the substituted y")

	newBody, ok := pool.Lookup(gotTerm.Args[1])
	require.True(t, ok)
	require.Equal(t, "f", newBody.Op)
	require.Equal(t, y, newBody.Args[0], "the free y introduced by substituting x must survive unrenamed")
	require.Equal(t, newBinderList.Args[0], newBody.Args[1], "the body's bound occurrence must use the renamed variable")
}

func TestSubstitutionApplyIsIdempotentOnAlreadyRewrittenTerm(t *testing.T) {
	pool := term.NewPool()
	x := pool.Add(term.NewVar("x", "Int"))
	z := pool.Add(term.NewVar("z", "Int"))

	s := NewSubstitution()
	require.NoError(t, s.Insert(pool, x, z))

	once := s.Apply(pool, x)
	twice := s.Apply(pool, once)
	require.Equal(t, once, twice)
}
