// Package scheduler splits a flat proof command stream into per-worker
// schedules along subproof boundaries, and reports how many distinct
// workers will visit each anchor — the usage counts the context registry
// needs at construction time.
package scheduler

import "github.com/carcara-go/alethectx/internal/proof"

// Schedule is one worker's slice of the proof: the top-level command
// groups assigned to it round-robin, in proof order (a group is a plain
// command, or an anchor together with everything nested inside it up to
// and including its closing step).
type Schedule struct {
	Commands []proof.Command
}

// Result is the output of Split: one Schedule per worker plus the usage
// count vector the context registry is built from.
type Result struct {
	Schedules []Schedule
	// UsageCount[i] is the number of distinct workers whose Schedule
	// contains the anchor with ContextID i.
	UsageCount []int
}

// group is one top-level unit of work: either a single non-subproof
// command, or an anchor plus its full nested body (which may itself
// contain further nested anchors — the whole thing always stays together).
type group struct {
	commands []proof.Command
}

// Split partitions commands into numWorkers schedules. Commands are first
// grouped so that a subproof (anchor through its closing step) never
// splits across workers — only top-level groups are distributed, via
// round-robin, which keeps the partitioning deterministic and simple while
// still balancing load roughly evenly across large proofs.
func Split(commands []proof.Command, numWorkers int) Result {
	if numWorkers < 1 {
		numWorkers = 1
	}

	groups := groupTopLevel(commands)

	schedules := make([]Schedule, numWorkers)
	maxContextID := -1
	for _, c := range commands {
		if c.Kind == proof.KindAnchor && c.ContextID > maxContextID {
			maxContextID = c.ContextID
		}
	}
	usageSeen := make([]map[int]bool, maxContextID+1)
	for i := range usageSeen {
		usageSeen[i] = make(map[int]bool)
	}

	for i, g := range groups {
		w := i % numWorkers
		schedules[w].Commands = append(schedules[w].Commands, g.commands...)
		for _, c := range g.commands {
			if c.Kind == proof.KindAnchor {
				usageSeen[c.ContextID][w] = true
			}
		}
	}

	usageCount := make([]int, len(usageSeen))
	for id, workers := range usageSeen {
		usageCount[id] = len(workers)
	}

	return Result{Schedules: schedules, UsageCount: usageCount}
}

// groupTopLevel walks commands and folds each subproof (an anchor through
// its matching closing step, including any anchors nested inside it) into
// a single group, alongside standalone assume/step commands at depth 0.
func groupTopLevel(commands []proof.Command) []group {
	var groups []group
	i := 0
	for i < len(commands) {
		c := commands[i]
		if c.Kind != proof.KindAnchor {
			groups = append(groups, group{commands: []proof.Command{c}})
			i++
			continue
		}

		// An anchor's own closing step carries the same Depth value the
		// anchor itself does (see internal/parser): the anchor's Depth is
		// the nesting level it just opened, and its closing step's Depth
		// is recomputed to match after the parser pops back to it. A more
		// deeply nested anchor's closing always carries a strictly
		// greater Depth, so this comparison cannot fire early on it.
		depth := c.Depth
		body := []proof.Command{c}
		i++
		for i < len(commands) {
			body = append(body, commands[i])
			closed := commands[i].Kind == proof.KindClosing && commands[i].Depth == depth
			i++
			if closed {
				break
			}
		}
		groups = append(groups, group{commands: body})
	}
	return groups
}
