// Command alethectx-check reads a proof script and runs it through the
// checker, reporting pass/fail with colored output in the style of the
// pack's own CLI diagnostics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/carcara-go/alethectx/internal/parser"
	"github.com/carcara-go/alethectx/internal/term"
	"github.com/carcara-go/alethectx/pkg/checker"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("alethectx-check", flag.ContinueOnError)
	workers := fs.Int("workers", 0, "number of worker goroutines (0 = GOMAXPROCS)")
	strict := fs.Bool("strict", true, "fail if the proof never reaches the empty clause")
	skipUnknown := fs.Bool("skip-unknown-rules", false, "treat unrecognized rules as holes instead of failing")
	verbose := fs.Bool("verbose", false, "log context push/pop decisions")
	timing := fs.Bool("timing", false, "print elapsed time for the check")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: alethectx-check [flags] <proof-file>")
		fs.PrintDefaults()
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		color.Red("could not open proof file: %v", err)
		return 1
	}
	defer f.Close()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	pool := term.NewPool()
	p := parser.New(pool)
	commands, err := p.Parse(f)
	if err != nil {
		color.Red("parse error: %v", err)
		return 1
	}

	opts := []checker.Option{checker.WithLogger(logger), checker.WithStrict(*strict)}
	if *workers > 0 {
		opts = append(opts, checker.WithWorkers(*workers))
	}
	if *skipUnknown {
		opts = append(opts, checker.WithSkipUnknownRules())
	}
	cfg := checker.NewConfig(opts...)

	start := time.Now()
	result, err := checker.Check(context.Background(), pool, commands, cfg)
	elapsed := time.Since(start)

	if err != nil {
		color.Red("✗ %v", err)
		return 1
	}

	color.Green("✓ proof checked: %d steps, reached empty clause = %v", result.StepsChecked, result.ReachedEmptyClause)
	if *timing {
		fmt.Printf("→ %s\n", elapsed)
	}
	return 0
}
