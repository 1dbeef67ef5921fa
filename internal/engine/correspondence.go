package engine

import "github.com/agentic-research/archmap/internal/dotpath"

// Entry records which source node a destination component was derived from.
type Entry struct {
	Destination dotpath.Path
	Source      dotpath.Path
	Class       string
	Rule        string
}

// Correspondence is the destination -> source side table of a run. It is
// keyed by destination path and grouped by target class; several components
// may share a source path.
type Correspondence struct {
	entries []Entry
	byDest  map[string]int
	byClass map[string][]int
}

func NewCorrespondence() *Correspondence {
	return &Correspondence{
		byDest:  make(map[string]int),
		byClass: make(map[string][]int),
	}
}

// Add records e. A destination is recorded once; later entries for the same
// destination replace the earlier one.
func (c *Correspondence) Add(e Entry) {
	key := e.Destination.String()
	if i, ok := c.byDest[key]; ok {
		old := c.entries[i]
		c.entries[i] = e
		if old.Class != e.Class {
			c.byClass[old.Class] = remove(c.byClass[old.Class], i)
			c.byClass[e.Class] = append(c.byClass[e.Class], i)
		}
		return
	}
	c.entries = append(c.entries, e)
	i := len(c.entries) - 1
	c.byDest[key] = i
	c.byClass[e.Class] = append(c.byClass[e.Class], i)
}

// Source returns the source path recorded for dest.
func (c *Correspondence) Source(dest dotpath.Path) (dotpath.Path, bool) {
	i, ok := c.byDest[dest.String()]
	if !ok {
		return dotpath.Path{}, false
	}
	return c.entries[i].Source, true
}

// ByClass returns the entries of one target class in insertion order.
func (c *Correspondence) ByClass(class string) []Entry {
	idx := c.byClass[class]
	out := make([]Entry, len(idx))
	for j, i := range idx {
		out[j] = c.entries[i]
	}
	return out
}

// BySource returns every entry derived from src.
func (c *Correspondence) BySource(src dotpath.Path) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Source.Equal(src) {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry in insertion order.
func (c *Correspondence) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Correspondence) Len() int { return len(c.entries) }

func remove(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}
