// Package arch holds the destination architecture tree.
//
// Nodes are addressed only by dotted paths built from ancestor names. A path,
// once created, never changes: nodes are not renamed, moved or deleted, and
// attributes are only ever added or overwritten.
package arch

import (
	"github.com/agentic-research/archmap/internal/dotpath"
)

// Kind distinguishes structural containers from rule-instantiated components.
type Kind int

const (
	KindRoot Kind = iota
	KindContainer
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindContainer:
		return "subtree"
	case KindLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Node is one component of the architecture.
type Node struct {
	Name       string
	Class      string
	Kind       Kind
	Attributes Attributes
	Local      []*Node // rule-instantiated components
	Subtree    []*Node // named grouping containers
}

func (n *Node) child(name string) *Node {
	for _, c := range n.Local {
		if c.Name == name {
			return c
		}
	}
	for _, c := range n.Subtree {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Tree is the mutable destination tree owned by one engine run.
type Tree struct {
	root  *Node
	nodes map[string]*Node
}

// New creates a tree holding only its root.
func New(rootName string) *Tree {
	root := &Node{Name: rootName, Kind: KindRoot}
	return &Tree{
		root:  root,
		nodes: map[string]*Node{rootName: root},
	}
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// RootPath returns the one-segment path of the root.
func (t *Tree) RootPath() dotpath.Path { return dotpath.New(t.root.Name) }

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Lookup returns the node at p.
func (t *Tree) Lookup(p dotpath.Path) (*Node, bool) {
	n, ok := t.nodes[p.String()]
	return n, ok
}

// EnsureContainer returns the container name under parent, creating it on
// first reference. The parent must already exist.
func (t *Tree) EnsureContainer(parent dotpath.Path, name string) (dotpath.Path, error) {
	pn, ok := t.Lookup(parent)
	if !ok {
		return dotpath.Path{}, &StructureError{Path: parent, Reason: "parent does not exist"}
	}
	p := parent.Child(name)
	if existing := pn.child(name); existing != nil {
		if existing.Kind != KindContainer {
			return dotpath.Path{}, &StructureError{Path: p, Reason: "name is taken by a local component"}
		}
		return p, nil
	}
	n := &Node{Name: name, Kind: KindContainer}
	pn.Subtree = append(pn.Subtree, n)
	t.nodes[p.String()] = n
	return p, nil
}

// EnsurePath creates every missing container along p. The first segment
// must name the root.
func (t *Tree) EnsurePath(p dotpath.Path) (dotpath.Path, error) {
	if p.First() != t.root.Name {
		return dotpath.Path{}, &StructureError{Path: p, Reason: "root component " + p.First() + " does not match " + t.root.Name}
	}
	cur := t.RootPath()
	for i := 1; i < p.Len(); i++ {
		next, err := t.EnsureContainer(cur, p.Segment(i))
		if err != nil {
			return dotpath.Path{}, err
		}
		cur = next
	}
	return cur, nil
}

// Instantiate creates a local component under parent. A sibling with the
// same name, local or container, fails with DuplicateNameError and leaves
// the tree untouched.
func (t *Tree) Instantiate(parent dotpath.Path, name, class string) (dotpath.Path, error) {
	pn, ok := t.Lookup(parent)
	if !ok {
		return dotpath.Path{}, &StructureError{Path: parent, Reason: "cannot attach " + name + ": parent does not exist"}
	}
	if pn.child(name) != nil {
		return dotpath.Path{}, &DuplicateNameError{Parent: parent, Name: name}
	}
	p := parent.Child(name)
	n := &Node{Name: name, Class: class, Kind: KindLocal}
	pn.Local = append(pn.Local, n)
	t.nodes[p.String()] = n
	return p, nil
}

// SetAttribute attaches or overwrites one attribute.
func (t *Tree) SetAttribute(p dotpath.Path, name string, value any) error {
	n, ok := t.Lookup(p)
	if !ok {
		return &NotFoundError{Path: p}
	}
	n.Attributes.Set(name, value)
	return nil
}

// SetClass overwrites the class of the node at p.
func (t *Tree) SetClass(p dotpath.Path, class string) error {
	n, ok := t.Lookup(p)
	if !ok {
		return &NotFoundError{Path: p}
	}
	n.Class = class
	return nil
}

// Attribute returns the named attribute of the node at p.
func (t *Tree) Attribute(p dotpath.Path, name string) (any, bool) {
	n, ok := t.Lookup(p)
	if !ok {
		return nil, false
	}
	return n.Attributes.Get(name)
}

// Inherited searches p and then its ancestors for attribute name.
func (t *Tree) Inherited(p dotpath.Path, name string) (any, bool) {
	for cur := p; !cur.IsEmpty(); cur = cur.Parent() {
		if v, ok := t.Attribute(cur, name); ok {
			return v, true
		}
	}
	return nil, false
}

// Walk visits every node in pre-order: a node, its local components, then
// its containers.
func (t *Tree) Walk(fn func(p dotpath.Path, n *Node) error) error {
	return walk(t.RootPath(), t.root, fn)
}

func walk(p dotpath.Path, n *Node, fn func(dotpath.Path, *Node) error) error {
	if err := fn(p, n); err != nil {
		return err
	}
	for _, c := range n.Local {
		if err := walk(p.Child(c.Name), c, fn); err != nil {
			return err
		}
	}
	for _, c := range n.Subtree {
		if err := walk(p.Child(c.Name), c, fn); err != nil {
			return err
		}
	}
	return nil
}
