// Package dotpath implements immutable, segment-addressed paths.
//
// Paths are kept as ordered segment sequences everywhere inside archmap and
// only become dotted strings ("system.chip.dcache") at I/O and diagnostic
// boundaries.
package dotpath

import (
	"strings"
)

// Sep is the boundary separator.
const Sep = "."

// Path is an immutable sequence of segments. The zero value is the empty path.
type Path struct {
	segs []string
}

// New builds a path from segments. The slice is copied.
func New(segs ...string) Path {
	if len(segs) == 0 {
		return Path{}
	}
	cp := make([]string, len(segs))
	copy(cp, segs)
	return Path{segs: cp}
}

// Parse splits a dotted string. Empty segments are dropped, so "" parses to
// the empty path and "a..b" to [a b].
func Parse(s string) Path {
	if s == "" {
		return Path{}
	}
	parts := strings.Split(s, Sep)
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return Path{segs: segs}
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// IsEmpty reports whether p has no segments.
func (p Path) IsEmpty() bool { return len(p.segs) == 0 }

// Segment returns the i-th segment.
func (p Path) Segment(i int) string { return p.segs[i] }

// Segments returns a copy of the segments.
func (p Path) Segments() []string {
	cp := make([]string, len(p.segs))
	copy(cp, p.segs)
	return cp
}

// First returns the first segment or "".
func (p Path) First() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[0]
}

// Last returns the final segment or "".
func (p Path) Last() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[len(p.segs)-1]
}

// Parent drops the last segment. The parent of a one-segment path is empty.
func (p Path) Parent() Path {
	if len(p.segs) <= 1 {
		return Path{}
	}
	return Path{segs: p.segs[:len(p.segs)-1:len(p.segs)-1]}
}

// Child returns p extended by name. p itself is never modified.
func (p Path) Child(name ...string) Path {
	segs := make([]string, 0, len(p.segs)+len(name))
	segs = append(segs, p.segs...)
	segs = append(segs, name...)
	return Path{segs: segs}
}

// Join concatenates two paths.
func (p Path) Join(q Path) Path {
	return p.Child(q.segs...)
}

// HasPrefix reports whether q is a leading sub-sequence of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q.segs) > len(p.segs) {
		return false
	}
	for i, s := range q.segs {
		if p.segs[i] != s {
			return false
		}
	}
	return true
}

// Equal compares segment-wise.
func (p Path) Equal(q Path) bool {
	return len(p.segs) == len(q.segs) && p.HasPrefix(q)
}

// String renders the dotted form.
func (p Path) String() string {
	return strings.Join(p.segs, Sep)
}

// MarshalText renders the dotted form for encoders.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the dotted form.
func (p *Path) UnmarshalText(b []byte) error {
	*p = Parse(string(b))
	return nil
}
