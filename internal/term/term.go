// Package term provides a minimal, thread-safe interning pool for the
// terms that flow through the subproof context engine. Term representation
// and the pool implementation are explicitly out of scope for the engine
// itself (see pkg/subctx); this package is the smallest real stand-in that
// satisfies the Add/Sort contract the engine and rule checkers depend on,
// so a production interning pool can be swapped in without touching either.
package term

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Sort identifies the sort (type) of a term, e.g. "Bool", "Int", or a
// user-declared sort name.
type Sort string

// Kind distinguishes the three term shapes the engine needs to know about.
type Kind uint8

const (
	// KindVar is a logic/bound variable, e.g. x.
	KindVar Kind = iota
	// KindApp is an application of an operator to zero or more arguments,
	// e.g. (f x y) or a 0-ary function symbol.
	KindApp
	// KindConst is a literal constant, e.g. 3 or true.
	KindConst
)

// Ref is an opaque, cheap-to-copy handle into a Pool. The zero Ref is never
// a valid interned term; pools start numbering ids at 1.
type Ref struct {
	id uint32
}

// IsValid reports whether r refers to an interned term.
func (r Ref) IsValid() bool { return r.id != 0 }

func (r Ref) String() string { return fmt.Sprintf("term#%d", r.id) }

// Term is the uninterned description of a term node. Args must already be
// interned Refs; Term itself is never shared, only the Ref returned by
// Pool.Add is.
type Term struct {
	Kind Kind
	Sort Sort

	// Var
	Name string

	// App
	Op   string
	Args []Ref

	// Const
	Value any
}

// NewVar builds an uninterned variable term.
func NewVar(name string, sort Sort) Term {
	return Term{Kind: KindVar, Name: name, Sort: sort}
}

// NewApp builds an uninterned application term.
func NewApp(op string, sort Sort, args ...Ref) Term {
	return Term{Kind: KindApp, Op: op, Sort: sort, Args: args}
}

// NewConst builds an uninterned constant term.
func NewConst(value any, sort Sort) Term {
	return Term{Kind: KindConst, Value: value, Sort: sort}
}

const stripeCount = 32

// Pool is a thread-safe, structurally-interning term store. It shards its
// bucket table across stripeCount locks (generalizing the single-mutex
// pattern used by the pack's constraint-store pools to reduce contention
// under concurrent Add/Sort from many checker workers).
type Pool struct {
	stripes [stripeCount]stripe
	nextID  uint32
	idMu    sync.Mutex
}

type stripe struct {
	mu      sync.RWMutex
	buckets map[uint64][]entry
}

type entry struct {
	ref  Ref
	term Term
}

// NewPool creates an empty term pool.
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.stripes {
		p.stripes[i].buckets = make(map[uint64][]entry)
	}
	return p
}

// Add interns t, returning a stable Ref. Structurally identical terms
// (same Kind/Sort/Name/Op/Args/Value) always return the same Ref.
func (p *Pool) Add(t Term) Ref {
	h := hashTerm(t)
	s := &p.stripes[h%stripeCount]

	s.mu.RLock()
	for _, e := range s.buckets[h] {
		if termsEqual(e.term, t) {
			s.mu.RUnlock()
			return e.ref
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.buckets[h] {
		if termsEqual(e.term, t) {
			return e.ref
		}
	}

	p.idMu.Lock()
	p.nextID++
	ref := Ref{id: p.nextID}
	p.idMu.Unlock()

	s.buckets[h] = append(s.buckets[h], entry{ref: ref, term: t})
	return ref
}

// Sort returns the sort of an interned term. It never mutates the pool in
// this implementation, but the method exists on Pool (rather than as a
// free function over Term) because a richer pool may need to intern
// parametric sorts on demand.
func (p *Pool) Sort(ref Ref) Sort {
	t, ok := p.Lookup(ref)
	if !ok {
		return ""
	}
	return t.Sort
}

// Lookup returns the uninterned Term behind ref.
func (p *Pool) Lookup(ref Ref) (Term, bool) {
	for i := range p.stripes {
		s := &p.stripes[i]
		s.mu.RLock()
		for _, bucket := range s.buckets {
			for _, e := range bucket {
				if e.ref == ref {
					s.mu.RUnlock()
					return e.term, true
				}
			}
		}
		s.mu.RUnlock()
	}
	return Term{}, false
}

// IsVar reports whether ref refers to a variable term.
func (p *Pool) IsVar(ref Ref) bool {
	t, ok := p.Lookup(ref)
	return ok && t.Kind == KindVar
}

// String renders ref for diagnostics.
func (p *Pool) String(ref Ref) string {
	t, ok := p.Lookup(ref)
	if !ok {
		return "<invalid>"
	}
	switch t.Kind {
	case KindVar:
		return t.Name
	case KindConst:
		return fmt.Sprintf("%v", t.Value)
	default:
		if len(t.Args) == 0 {
			return t.Op
		}
		s := "(" + t.Op
		for _, a := range t.Args {
			s += " " + p.String(a)
		}
		return s + ")"
	}
}

func hashTerm(t Term) uint64 {
	h := xxhash.New()
	h.Write([]byte{byte(t.Kind)})
	h.Write([]byte(t.Sort))
	switch t.Kind {
	case KindVar:
		h.Write([]byte(t.Name))
	case KindConst:
		fmt.Fprintf(h, "%v", t.Value)
	case KindApp:
		h.Write([]byte(t.Op))
		for _, a := range t.Args {
			var b [4]byte
			b[0] = byte(a.id)
			b[1] = byte(a.id >> 8)
			b[2] = byte(a.id >> 16)
			b[3] = byte(a.id >> 24)
			h.Write(b[:])
		}
	}
	return h.Sum64()
}

func termsEqual(a, b Term) bool {
	if a.Kind != b.Kind || a.Sort != b.Sort {
		return false
	}
	switch a.Kind {
	case KindVar:
		return a.Name == b.Name
	case KindConst:
		return fmt.Sprintf("%v", a.Value) == fmt.Sprintf("%v", b.Value)
	case KindApp:
		if a.Op != b.Op || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if a.Args[i] != b.Args[i] {
				return false
			}
		}
		return true
	}
	return false
}
