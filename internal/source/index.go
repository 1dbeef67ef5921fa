package source

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/archmap/internal/dotpath"
)

// TypeField is the key that carries a node's simulator class.
const TypeField = "type"

// IndexOptions controls the traversal performed by BuildIndex.
type IndexOptions struct {
	// DescendSequences enters one-element sequences whose element is a
	// mapping (e.g. "cpu": [{...}]). The element is indexed under the
	// sequence key's path, with no index segment.
	DescendSequences bool
}

// TypeIndex maps a type name to every source path carrying that type.
//
// Each typed node gets an ordinal in depth-first order; a type owns a bitmap
// of the ordinals of its nodes, so iterating the bitmap yields traversal
// order.
type TypeIndex struct {
	paths   []dotpath.Path
	ordinal map[string]uint32
	types   map[string]*roaring.Bitmap
}

// BuildIndex indexes the subtree reached by root (a dotted path such as
// "system") inside src. A missing root yields an empty index.
func BuildIndex(src any, root dotpath.Path, opts IndexOptions) *TypeIndex {
	ix := &TypeIndex{
		ordinal: make(map[string]uint32),
		types:   make(map[string]*roaring.Bitmap),
	}
	if node, ok := Node(src, root); ok {
		ix.visit(node, root, opts)
	}
	return ix
}

func (ix *TypeIndex) visit(node map[string]any, p dotpath.Path, opts IndexOptions) {
	if t, ok := node[TypeField].(string); ok && t != "" {
		ix.add(t, p)
	}

	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := node[k].(type) {
		case map[string]any:
			ix.visit(v, p.Child(k), opts)
		case []any:
			if !opts.DescendSequences || len(v) != 1 {
				continue
			}
			if child, ok := v[0].(map[string]any); ok {
				ix.visit(child, p.Child(k), opts)
			}
		}
	}
}

func (ix *TypeIndex) add(t string, p dotpath.Path) {
	id := uint32(len(ix.paths))
	ix.paths = append(ix.paths, p)
	ix.ordinal[p.String()] = id

	bm, ok := ix.types[t]
	if !ok {
		bm = roaring.New()
		ix.types[t] = bm
	}
	bm.Add(id)
}

// Lookup returns the paths of every node of type t in traversal order.
func (ix *TypeIndex) Lookup(t string) []dotpath.Path {
	bm, ok := ix.types[t]
	if !ok {
		return nil
	}
	out := make([]dotpath.Path, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, ix.paths[it.Next()])
	}
	return out
}

// Contains reports whether p is indexed under type t.
func (ix *TypeIndex) Contains(t string, p dotpath.Path) bool {
	bm, ok := ix.types[t]
	if !ok {
		return false
	}
	id, ok := ix.ordinal[p.String()]
	return ok && bm.Contains(id)
}

// TypeOf returns the type indexed at p.
func (ix *TypeIndex) TypeOf(p dotpath.Path) (string, bool) {
	id, ok := ix.ordinal[p.String()]
	if !ok {
		return "", false
	}
	for t, bm := range ix.types {
		if bm.Contains(id) {
			return t, true
		}
	}
	return "", false
}

// Types lists the indexed type names, sorted.
func (ix *TypeIndex) Types() []string {
	out := make([]string, 0, len(ix.types))
	for t := range ix.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Count returns how many nodes carry type t.
func (ix *TypeIndex) Count(t string) int {
	if bm, ok := ix.types[t]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// Len returns the number of typed nodes.
func (ix *TypeIndex) Len() int { return len(ix.paths) }
