// Package proof defines the in-memory command stream a checked proof is
// turned into by internal/parser: a flat, depth-annotated sequence that
// internal/scheduler splits across workers and pkg/checker replays.
package proof

import "github.com/carcara-go/alethectx/internal/term"

// Mapping is a `(:= x e)` assignment argument as parsed, before it is
// turned into a subctx.Mapping (which requires an interned Pool).
type Mapping struct {
	VarName string
	VarSort term.Sort
	Value   term.Ref
}

// SortedVar is a `(x S)` variable argument as parsed.
type SortedVar struct {
	Name string
	Sort term.Sort
}

// Kind distinguishes the four command shapes a proof script is made of.
type Kind uint8

const (
	// KindAssume introduces a premise term with a given id.
	KindAssume Kind = iota
	// KindStep closes a rule application, producing a clause under a given id.
	KindStep
	// KindAnchor opens a subproof, declaring its assignment/variable args
	// and the context id the engine should push.
	KindAnchor
	// KindClosing marks the final step of a subproof, after which the
	// worker must pop the context its enclosing anchor pushed.
	KindClosing
)

// Command is one line of a parsed proof script.
type Command struct {
	Kind Kind

	// Id is this command's step/anchor id, as written in the proof.
	Id string

	// Step fields (KindStep, and KindClosing which is a step too).
	Rule      string
	Conclusion []term.Ref
	Premises   []string
	Args       []term.Ref

	// Anchor fields (KindAnchor).
	AssignmentArgs []Mapping
	VariableArgs   []SortedVar
	ContextID      int

	// Depth is the subproof nesting depth this command executes at: the
	// number of anchors opened and not yet closed before this command,
	// counting an anchor itself as being at the depth it opens.
	Depth int

	// EnclosingContextID is the ContextID of the nearest still-open anchor
	// at the point this command executes, or -1 at depth 0.
	EnclosingContextID int
}

// IsInSubproof reports whether c executes inside at least one open anchor.
func (c Command) IsInSubproof() bool { return c.Depth > 0 }

// IsEndStep reports whether c is the final step of its enclosing subproof
// (and therefore the `subproof` rule's conclusion once it closes).
func (c Command) IsEndStep() bool { return c.Kind == KindClosing }

// CurrentSubproof returns the ContextID of the nearest enclosing anchor,
// or -1 if c is not nested in any subproof.
func (c Command) CurrentSubproof() int { return c.EnclosingContextID }

// GetPremise returns the step id of the i'th premise, or "" if out of
// range.
func (c Command) GetPremise(i int) string {
	if i < 0 || i >= len(c.Premises) {
		return ""
	}
	return c.Premises[i]
}
