package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentic-research/archmap/internal/dotpath"
)

// Expr is a parsed attribute path: a sequence of mapping keys optionally
// followed by one trailing integer.
//
// A non-negative trailing integer indexes into the sequence reached by the
// keys. A negative trailing integer k splits the string reached by the keys
// on "." and selects the element k from the end, which turns a peer port such
// as "system.membus.slave[1]" into its owner ("membus" for k = -2). The split
// must have more than -k elements, so the first element is never selected.
type Expr struct {
	keys     []string
	index    int
	hasIndex bool
}

// NewExpr builds an expression from keys with no trailing index.
func NewExpr(keys ...string) Expr {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return Expr{keys: cp}
}

// WithIndex returns a copy of e carrying a trailing index.
func (e Expr) WithIndex(i int) Expr {
	return Expr{keys: e.keys, index: i, hasIndex: true}
}

// PathExpr turns a node path into an expression addressing the same node.
func PathExpr(p dotpath.Path) Expr {
	return Expr{keys: p.Segments()}
}

// ParseExpr parses "clk_domain.clock" or "port.peer.-2".
// An all-digit final segment is always read as an index, so a mapping key
// such as "0" cannot be addressed as the last element of a path.
func ParseExpr(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Expr{}, errors.New("empty attribute path")
	}
	segs := dotpath.Parse(s).Segments()
	if len(segs) == 0 {
		return Expr{}, fmt.Errorf("invalid attribute path %q", s)
	}
	last := segs[len(segs)-1]
	if n, err := strconv.Atoi(last); err == nil {
		if len(segs) == 1 {
			return Expr{}, fmt.Errorf("invalid attribute path %q: index without key", s)
		}
		return Expr{keys: segs[:len(segs)-1], index: n, hasIndex: true}, nil
	}
	return Expr{keys: segs}, nil
}

// MustParseExpr is ParseExpr for literals known to be valid.
func MustParseExpr(s string) Expr {
	e, err := ParseExpr(s)
	if err != nil {
		panic(err)
	}
	return e
}

// Keys returns a copy of the key sequence.
func (e Expr) Keys() []string {
	cp := make([]string, len(e.keys))
	copy(cp, e.keys)
	return cp
}

// Index returns the trailing index and whether one is present.
func (e Expr) Index() (int, bool) { return e.index, e.hasIndex }

func (e Expr) String() string {
	s := strings.Join(e.keys, dotpath.Sep)
	if e.hasIndex {
		s += dotpath.Sep + strconv.Itoa(e.index)
	}
	return s
}

// Resolve evaluates e against root. It never fails: anything that cannot be
// reached (missing key, non-mapping intermediate, JSON null, out-of-range
// index) reports ok == false.
//
// One-element sequences are unwrapped to their sole element both while
// walking and on the final value, so [500] and 500 resolve identically.
func Resolve(root any, e Expr) (any, bool) {
	cur := root
	for _, k := range e.keys {
		m, ok := unwrap(cur).(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[k]
		if !ok {
			return nil, false
		}
		cur = next
	}

	if !e.hasIndex {
		v := unwrap(cur)
		return v, v != nil
	}

	if e.index < 0 {
		s, ok := unwrap(cur).(string)
		if !ok {
			return nil, false
		}
		parts := strings.Split(s, dotpath.Sep)
		i := len(parts) + e.index
		if i < 1 {
			return nil, false
		}
		return parts[i], true
	}

	seq, ok := cur.([]any)
	if !ok || e.index >= len(seq) {
		return nil, false
	}
	v := unwrap(seq[e.index])
	return v, v != nil
}

// Raw is Resolve without unwrapping the final value, for callers that need
// to see a sequence as a sequence (counting elements, for instance).
func Raw(root any, e Expr) (any, bool) {
	if e.hasIndex {
		return Resolve(root, e)
	}
	cur := root
	for _, k := range e.keys {
		m, ok := unwrap(cur).(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Node resolves the mapping at path p. Non-mapping values report false.
func Node(root any, p dotpath.Path) (map[string]any, bool) {
	v, ok := Resolve(root, PathExpr(p))
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func unwrap(v any) any {
	if seq, ok := v.([]any); ok && len(seq) == 1 {
		return seq[0]
	}
	return v
}
