package checker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carcara-go/alethectx/internal/parser"
	"github.com/carcara-go/alethectx/internal/term"
)

func TestCheckSimpleResolutionProofReachesEmptyClause(t *testing.T) {
	src := `
(assume a1 p)
(assume a2 (not p))
(step t1 (cl) :rule resolution :premises (a1 a2))
`
	pool := term.NewPool()
	p := parser.New(pool)
	commands, err := p.Parse(strings.NewReader(src))
	require.NoError(t, err)

	cfg := NewConfig(WithWorkers(2))
	result, err := Check(context.Background(), pool, commands, cfg)
	require.NoError(t, err)
	require.True(t, result.ReachedEmptyClause)
	require.Equal(t, 3, result.StepsChecked)
}

func TestCheckSubproofExercisesContextEngine(t *testing.T) {
	src := `
(anchor :step t2 :args ((:= x e)))
(step t2.1 (cl (= x e)) :rule refl)
(step t2 (cl (= x e)) :rule subproof :premises (t2.1))
`
	pool := term.NewPool()
	p := parser.New(pool)
	commands, err := p.Parse(strings.NewReader(src))
	require.NoError(t, err)

	cfg := NewConfig(WithWorkers(1), WithStrict(false))
	result, err := Check(context.Background(), pool, commands, cfg)
	require.NoError(t, err)
	require.Equal(t, 3, result.StepsChecked)
}

func TestCheckFailsOnUnknownRule(t *testing.T) {
	src := "(step t1 (cl p) :rule not_a_real_rule)\n"
	pool := term.NewPool()
	p := parser.New(pool)
	commands, err := p.Parse(strings.NewReader(src))
	require.NoError(t, err)

	cfg := NewConfig(WithStrict(false))
	_, err = Check(context.Background(), pool, commands, cfg)
	require.Error(t, err)
}

func TestCheckSkipUnknownRulesTreatsAsHole(t *testing.T) {
	src := "(step t1 (cl p) :rule not_a_real_rule)\n"
	pool := term.NewPool()
	p := parser.New(pool)
	commands, err := p.Parse(strings.NewReader(src))
	require.NoError(t, err)

	cfg := NewConfig(WithStrict(false), WithSkipUnknownRules())
	result, err := Check(context.Background(), pool, commands, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.StepsChecked)
}

func TestCheckStrictModeFailsWithoutEmptyClause(t *testing.T) {
	src := "(assume a1 p)\n"
	pool := term.NewPool()
	p := parser.New(pool)
	commands, err := p.Parse(strings.NewReader(src))
	require.NoError(t, err)

	cfg := NewConfig()
	_, err = Check(context.Background(), pool, commands, cfg)
	require.ErrorIs(t, err, ErrDoesNotReachEmptyClause)
}
