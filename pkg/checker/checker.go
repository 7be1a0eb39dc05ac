package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carcara-go/alethectx/internal/proof"
	"github.com/carcara-go/alethectx/internal/rules"
	"github.com/carcara-go/alethectx/internal/scheduler"
	"github.com/carcara-go/alethectx/internal/term"
	"github.com/carcara-go/alethectx/internal/workerpool"
	"github.com/carcara-go/alethectx/pkg/subctx"
)

// stallTimeout bounds how long a worker can wait on an unpublished
// premise before the run logs a warning. It does not abort the run —
// ctx cancellation is the caller's tool for that — it just turns a
// silent hang into an actionable log line.
const stallTimeout = 10 * time.Second

// Result summarizes a finished Check run.
type Result struct {
	ReachedEmptyClause bool
	StepsChecked       int
}

// Check runs commands through cfg.Workers worker goroutines in parallel,
// sharing one subctx.Registry across them, and returns once every worker
// has finished or the run aborts on the first failing step.
func Check(ctx context.Context, pool *term.Pool, commands []proof.Command, cfg Config) (*Result, error) {
	log := cfg.Logger.WithField("component", "checker")

	sched := scheduler.Split(commands, cfg.Workers)
	registry := subctx.NewRegistryFromUsage(sched.UsageCount)
	log.WithFields(logrus.Fields{"workers": len(sched.Schedules), "contexts": registry.Len()}).Debug("scheduled proof")

	store := newPremiseStore()
	abort := newAbortFlag()
	done := make(chan struct{})
	// Trip the abort flag on ctx cancellation even while every worker is
	// blocked in premiseStore.Wait, which selects on abort but not on ctx.
	go func() {
		select {
		case <-ctx.Done():
			abort.Set()
		case <-done:
		}
	}()
	stalls := workerpool.NewStallWatcher(stallTimeout, func(workerID int, premiseID string, waited time.Duration) {
		log.WithFields(logrus.Fields{"worker": workerID, "premise": premiseID, "waited": waited}).Warn("worker stalled waiting on premise")
	})

	var stepsChecked int64Counter
	var reachedEmpty boolFlag
	var firstErr errorBox

	wp := workerpool.New(len(sched.Schedules))
	tasks := make([]func() error, len(sched.Schedules))
	for workerID, sc := range sched.Schedules {
		workerID, sc := workerID, sc
		tasks[workerID] = func() error {
			w := &worker{
				id:     workerID,
				pool:   pool,
				stack:  subctx.NewStack(registry.Fork()),
				store:  store,
				abort:  abort,
				done:   done,
				stalls: stalls,
				cfg:    cfg,
				log:    log.WithField("worker", workerID),
			}
			for _, cmd := range sc.Commands {
				select {
				case <-ctx.Done():
					abort.Set()
					return fmt.Errorf("checker: %w", ctx.Err())
				case <-abort.C():
					return nil
				default:
				}

				if err := w.runCommand(cmd); err != nil {
					abort.Set()
					return err
				}
				stepsChecked.Add(1)
				if w.lastWasEmptyClause(cmd) {
					reachedEmpty.Set()
				}
			}
			return nil
		}
	}
	for _, err := range wp.Run(tasks) {
		if err != nil {
			firstErr.SetOnce(err)
		}
	}
	close(done)
	log.WithField("stats", wp.Stats().Snapshot().String()).Debug("check finished")

	if err := firstErr.Get(); err != nil {
		return nil, err
	}

	result := &Result{
		ReachedEmptyClause: reachedEmpty.Get(),
		StepsChecked:       int(stepsChecked.Load()),
	}
	if cfg.Strict && !result.ReachedEmptyClause {
		return result, ErrDoesNotReachEmptyClause
	}
	return result, nil
}

// worker holds one goroutine's private state: its own context stack over
// the shared registry, plus references to the run-wide collaborators.
type worker struct {
	id     int
	pool   *term.Pool
	stack  *subctx.Stack
	store  *premiseStore
	abort  *abortFlag
	done   <-chan struct{}
	stalls *workerpool.StallWatcher
	cfg    Config
	log    *logrus.Entry
}

// runCommand checks one command, recovering from the context engine's
// fatal underflow panic and turning it into a CheckError so one worker's
// bug cannot crash the process (§7).
func (w *worker) runCommand(cmd proof.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CheckError{Step: cmd.Id, Rule: cmd.Rule, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	switch cmd.Kind {
	case proof.KindAssume:
		w.store.Publish(cmd.Id, cmd.Conclusion)
		return nil

	case proof.KindAnchor:
		mappings := make([]subctx.Mapping, 0, len(cmd.AssignmentArgs))
		for _, m := range cmd.AssignmentArgs {
			varRef := w.pool.Add(term.NewVar(m.VarName, m.VarSort))
			mappings = append(mappings, subctx.Mapping{Var: varRef, Value: m.Value})
		}
		vars := make([]subctx.SortedVar, 0, len(cmd.VariableArgs))
		for _, v := range cmd.VariableArgs {
			vars = append(vars, subctx.SortedVar{Name: v.Name, Sort: v.Sort})
		}
		if err := w.stack.Push(w.pool, mappings, vars, cmd.ContextID); err != nil {
			w.log.WithFields(logrus.Fields{"context": cmd.ContextID, "err": err}).Warn("anchor push failed")
			return &CheckError{Step: cmd.Id, Rule: "anchor", Err: err}
		}
		w.log.WithField("context", cmd.ContextID).Debug("pushed context")
		return nil

	case proof.KindStep, proof.KindClosing:
		premises, err := w.resolvePremises(cmd)
		if err != nil {
			return &CheckError{Step: cmd.Id, Rule: cmd.Rule, Err: err}
		}
		env := rules.Env{Pool: w.pool, Stack: w.stack, Step: cmd, Premises: premises}
		if err := rules.Dispatch(env, w.cfg.SkipUnknownRules); err != nil {
			return &CheckError{Step: cmd.Id, Rule: cmd.Rule, Err: err}
		}
		w.store.Publish(cmd.Id, cmd.Conclusion)
		if cmd.Kind == proof.KindClosing {
			w.stack.Pop()
			w.log.WithField("context", cmd.CurrentSubproof()).Debug("popped context")
		}
		return nil

	default:
		return &CheckError{Step: cmd.Id, Err: fmt.Errorf("unrecognized command kind %v", cmd.Kind)}
	}
}

func (w *worker) resolvePremises(cmd proof.Command) ([][]term.Ref, error) {
	premises := make([][]term.Ref, 0, len(cmd.Premises))
	for _, id := range cmd.Premises {
		doneWaiting := w.stalls.Begin(w.id, id)
		clause, ok := w.store.Wait(w.abort, w.done, id)
		doneWaiting()
		if !ok {
			if w.abort.IsSet() {
				return nil, fmt.Errorf("aborted waiting for premise %q", id)
			}
			return nil, fmt.Errorf("%w: %q", ErrUnknownPremise, id)
		}
		premises = append(premises, clause)
	}
	return premises, nil
}

// lastWasEmptyClause reports whether cmd's conclusion is the empty
// clause, i.e. a step with zero literals.
func (w *worker) lastWasEmptyClause(cmd proof.Command) bool {
	return cmd.Kind == proof.KindStep && len(cmd.Conclusion) == 0
}
