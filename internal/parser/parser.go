// Package parser reads a small, line-oriented textual subset of Alethe
// sufficient to build an internal/proof command stream and drive the
// context engine end-to-end. It is not a full Alethe/SMT-LIB parser: sort
// checking is limited to what anchors declare explicitly (see
// resolveSort), and terms are plain S-expressions rather than full SMT-LIB
// syntax. This is a deliberate, documented simplification (DESIGN.md) —
// the engine under test only needs terms it can intern and rewrite, not a
// production parser.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carcara-go/alethectx/internal/proof"
	"github.com/carcara-go/alethectx/internal/term"
)

// ErrSyntax is wrapped with positional context by every parse failure.
type ErrSyntax struct {
	Line int
	Msg  string
}

func (e *ErrSyntax) Error() string {
	return fmt.Sprintf("parser: line %d: %s", e.Line, e.Msg)
}

// Parser turns a proof script's source text into a []proof.Command,
// interning every term it reads into pool.
type Parser struct {
	pool *term.Pool

	// scopes is a stack of name->sort maps, one per currently-open anchor,
	// innermost last; resolveSort searches from the top down, falling
	// back to the package-wide default sort for an undeclared symbol.
	scopes []map[string]term.Sort

	depth       int
	nextContext int
	contextIDs  []int // stack of context ids matching the anchors currently open
}

// DefaultSort is used for any symbol that is not `true`/`false`, not an
// integer literal, and not declared by an enclosing anchor's variable
// args — i.e. an uninterpreted 0-ary function symbol.
const DefaultSort term.Sort = "U"

// New creates a parser that interns terms into pool.
func New(pool *term.Pool) *Parser {
	return &Parser{pool: pool, scopes: []map[string]term.Sort{{}}}
}

// Parse reads every line of r as one command and returns the resulting
// command stream.
func (p *Parser) Parse(r io.Reader) ([]proof.Command, error) {
	var commands []proof.Command
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		toks, err := tokenize(line)
		if err != nil {
			return nil, &ErrSyntax{Line: lineNo, Msg: err.Error()}
		}

		cmd, closing, err := p.parseCommand(toks, lineNo)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
		if closing != nil {
			commands = append(commands, *closing)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	return commands, nil
}

// parseCommand dispatches on the command's head symbol. A `step` command
// whose rule is `subproof` is returned as a KindClosing command in place
// of a KindStep (and pops the scope/depth), since in Alethe the
// subproof-closing step and its own step id are the same line.
func (p *Parser) parseCommand(toks sexpr, lineNo int) (proof.Command, *proof.Command, error) {
	if len(toks.items) == 0 || toks.items[0].atom == "" {
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: "empty command"}
	}

	switch toks.items[0].atom {
	case "assume":
		return p.parseAssume(toks, lineNo)
	case "anchor":
		return p.parseAnchor(toks, lineNo)
	case "step":
		return p.parseStep(toks, lineNo)
	default:
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: fmt.Sprintf("unknown command %q", toks.items[0].atom)}
	}
}

func (p *Parser) parseAssume(toks sexpr, lineNo int) (proof.Command, *proof.Command, error) {
	if len(toks.items) != 3 {
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: "assume expects (assume <id> <term>)"}
	}
	id := toks.items[1].atom
	t, err := p.termFrom(toks.items[2])
	if err != nil {
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: err.Error()}
	}
	return proof.Command{
		Kind:               proof.KindAssume,
		Id:                 id,
		Conclusion:         []term.Ref{t},
		Depth:              p.depth,
		EnclosingContextID: p.enclosingContextID(),
	}, nil, nil
}

// enclosingContextID returns the ContextID of the nearest still-open
// anchor, or -1 if none is open.
func (p *Parser) enclosingContextID() int {
	if len(p.contextIDs) == 0 {
		return -1
	}
	return p.contextIDs[len(p.contextIDs)-1]
}

func (p *Parser) parseAnchor(toks sexpr, lineNo int) (proof.Command, *proof.Command, error) {
	var stepID string
	var assignmentArgs []proof.Mapping
	var variableArgs []proof.SortedVar

	i := 1
	for i < len(toks.items) {
		switch toks.items[i].atom {
		case ":step":
			i++
			stepID = toks.items[i].atom
			i++
		case ":args":
			i++
			argList := toks.items[i]
			if argList.list == nil {
				return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: ":args must be a list"}
			}
			for _, a := range argList.list.items {
				m, v, err := p.parseAnchorArg(a)
				if err != nil {
					return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: err.Error()}
				}
				if m != nil {
					assignmentArgs = append(assignmentArgs, *m)
				}
				if v != nil {
					variableArgs = append(variableArgs, *v)
				}
			}
			i++
		default:
			return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: fmt.Sprintf("unexpected anchor token %q", toks.items[i].atom)}
		}
	}

	contextID := p.nextContext
	p.nextContext++
	enclosing := p.enclosingContextID()

	scope := map[string]term.Sort{}
	for k, v := range p.scopes[len(p.scopes)-1] {
		scope[k] = v
	}
	for _, va := range variableArgs {
		scope[va.Name] = va.Sort
	}
	p.scopes = append(p.scopes, scope)
	p.contextIDs = append(p.contextIDs, contextID)
	p.depth++

	return proof.Command{
		Kind:               proof.KindAnchor,
		Id:                 stepID,
		AssignmentArgs:     assignmentArgs,
		VariableArgs:       variableArgs,
		ContextID:          contextID,
		Depth:              p.depth,
		EnclosingContextID: enclosing,
	}, nil, nil
}

// parseAnchorArg parses one `(:= x e)` assignment arg or `(x S)` variable
// arg inside an anchor's :args list.
func (p *Parser) parseAnchorArg(a sexprItem) (*proof.Mapping, *proof.SortedVar, error) {
	if a.list == nil {
		return nil, nil, fmt.Errorf("anchor arg must be a list, got %q", a.atom)
	}
	items := a.list.items
	if len(items) == 3 && items[0].atom == ":=" {
		name := items[1].atom
		valueRef, err := p.termFrom(items[2])
		if err != nil {
			return nil, nil, err
		}
		sort := p.pool.Sort(valueRef)
		if sort == "" {
			sort = DefaultSort
		}
		return &proof.Mapping{VarName: name, VarSort: sort, Value: valueRef}, nil, nil
	}
	if len(items) == 2 {
		name := items[0].atom
		sort := term.Sort(items[1].atom)
		return nil, &proof.SortedVar{Name: name, Sort: sort}, nil
	}
	return nil, nil, fmt.Errorf("malformed anchor arg")
}

func (p *Parser) parseStep(toks sexpr, lineNo int) (proof.Command, *proof.Command, error) {
	if len(toks.items) < 3 {
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: "step expects (step <id> (cl ...) :rule <name> ...)"}
	}
	id := toks.items[1].atom
	clauseList := toks.items[2]
	if clauseList.list == nil || len(clauseList.list.items) == 0 || clauseList.list.items[0].atom != "cl" {
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: "step clause must start with cl"}
	}
	var conclusion []term.Ref
	for _, t := range clauseList.list.items[1:] {
		ref, err := p.termFrom(t)
		if err != nil {
			return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: err.Error()}
		}
		conclusion = append(conclusion, ref)
	}

	var rule string
	var premises []string
	var args []term.Ref

	i := 3
	for i < len(toks.items) {
		switch toks.items[i].atom {
		case ":rule":
			i++
			rule = toks.items[i].atom
			i++
		case ":premises":
			i++
			for _, pr := range toks.items[i].list.items {
				premises = append(premises, pr.atom)
			}
			i++
		case ":args":
			i++
			for _, a := range toks.items[i].list.items {
				ref, err := p.termFrom(a)
				if err != nil {
					return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: err.Error()}
				}
				args = append(args, ref)
			}
			i++
		default:
			return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: fmt.Sprintf("unexpected step token %q", toks.items[i].atom)}
		}
	}
	if rule == "" {
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: "step missing :rule"}
	}

	cmd := proof.Command{
		Kind:               proof.KindStep,
		Id:                 id,
		Rule:               rule,
		Conclusion:         conclusion,
		Premises:           premises,
		Args:               args,
		Depth:              p.depth,
		EnclosingContextID: p.enclosingContextID(),
	}

	if rule != "subproof" {
		return cmd, nil, nil
	}

	if p.depth == 0 {
		return proof.Command{}, nil, &ErrSyntax{Line: lineNo, Msg: "subproof step with no open anchor"}
	}
	closedContextID := p.enclosingContextID()
	p.depth--
	p.scopes = p.scopes[:len(p.scopes)-1]
	p.contextIDs = p.contextIDs[:len(p.contextIDs)-1]

	closing := proof.Command{
		Kind:               proof.KindClosing,
		Id:                 id,
		Rule:               rule,
		Conclusion:         conclusion,
		Premises:           premises,
		Args:               args,
		Depth:              p.depth + 1,
		EnclosingContextID: closedContextID,
	}
	return closing, nil, nil
}

// termFrom converts a parsed s-expression item into an interned term.Ref.
func (p *Parser) termFrom(item sexprItem) (term.Ref, error) {
	if item.list != nil {
		if len(item.list.items) == 0 {
			return term.Ref{}, fmt.Errorf("empty term application")
		}
		op := item.list.items[0].atom
		args := make([]term.Ref, 0, len(item.list.items)-1)
		for _, a := range item.list.items[1:] {
			ref, err := p.termFrom(a)
			if err != nil {
				return term.Ref{}, err
			}
			args = append(args, ref)
		}
		sort := p.inferAppSort(op)
		return p.pool.Add(term.NewApp(op, sort, args...)), nil
	}

	atom := item.atom
	switch atom {
	case "true", "false":
		return p.pool.Add(term.NewConst(atom == "true", "Bool")), nil
	}
	if n, err := strconv.ParseInt(atom, 10, 64); err == nil {
		return p.pool.Add(term.NewConst(n, "Int")), nil
	}
	return p.pool.Add(term.NewVar(atom, p.resolveSort(atom))), nil
}

// inferAppSort gives every application a Bool sort, the binder operators
// (a quantified formula) included. This
// repo's rule checkers only need sort identity for substitution's sort
// check, not a full signature table, so a single uniform sort for
// applications is an accepted simplification (DESIGN.md).
func (p *Parser) inferAppSort(op string) term.Sort {
	switch op {
	case "forall", "exists", "choice", "lambda":
		return "Bool"
	default:
		return "Bool"
	}
}

func (p *Parser) resolveSort(name string) term.Sort {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if s, ok := p.scopes[i][name]; ok {
			return s
		}
	}
	return DefaultSort
}
