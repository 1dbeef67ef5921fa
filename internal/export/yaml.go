// Package export renders a run's results as the two documents handed to the
// energy estimator, and optionally persists them to SQLite.
package export

import (
	"bytes"
	"fmt"

	"github.com/agentic-research/archmap/internal/actions"
	"github.com/agentic-research/archmap/internal/arch"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"
)

// Version of both output documents.
const Version = "0.3"

// Default file names, relative to the output filesystem.
const (
	ArchitectureFile = "architecture.yaml"
	ActionCountsFile = "action_counts.yaml"
)

// ArchitectureDocument renders t as
//
//	architecture: {version: 0.3, subtree: [<root>]}
//
// Attributes keep their insertion order.
func ArchitectureDocument(t *arch.Tree) (*yaml.Node, error) {
	root, err := treeNode(t.Root())
	if err != nil {
		return nil, err
	}
	body := mapping(
		scalar("version"), version(),
		scalar("subtree"), sequence(root),
	)
	return document(mapping(scalar("architecture"), body)), nil
}

func treeNode(n *arch.Node) (*yaml.Node, error) {
	m := mapping(scalar("name"), scalar(n.Name))
	if n.Kind == arch.KindLocal && n.Class != "" {
		m.Content = append(m.Content, scalar("class"), scalar(n.Class))
	}
	if n.Attributes.Len() > 0 {
		attrs := mapping()
		for _, k := range n.Attributes.Keys() {
			v, _ := n.Attributes.Get(k)
			vn, err := valueNode(v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", n.Name, k, err)
			}
			attrs.Content = append(attrs.Content, scalar(k), vn)
		}
		m.Content = append(m.Content, scalar("attributes"), attrs)
	}
	if len(n.Local) > 0 {
		seq := sequence()
		for _, c := range n.Local {
			cn, err := treeNode(c)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, cn)
		}
		m.Content = append(m.Content, scalar("local"), seq)
	}
	if len(n.Subtree) > 0 {
		seq := sequence()
		for _, c := range n.Subtree {
			cn, err := treeNode(c)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, cn)
		}
		m.Content = append(m.Content, scalar("subtree"), seq)
	}
	return m, nil
}

// ActionCountsDocument renders counts as
//
//	action_counts: {version: 0.3, local: [{name, action_counts: [{name, counts}]}]}
func ActionCountsDocument(counts []actions.ComponentCounts) (*yaml.Node, error) {
	local := sequence()
	for _, cc := range counts {
		acts := sequence()
		for _, a := range cc.Actions {
			cn, err := valueNode(a.Counts)
			if err != nil {
				return nil, err
			}
			acts.Content = append(acts.Content, mapping(
				scalar("name"), scalar(a.Name),
				scalar("counts"), cn,
			))
		}
		local.Content = append(local.Content, mapping(
			scalar("name"), scalar(cc.Component.String()),
			scalar("action_counts"), acts,
		))
	}
	body := mapping(
		scalar("version"), version(),
		scalar("local"), local,
	)
	return document(mapping(scalar("action_counts"), body)), nil
}

// Encode writes doc as YAML with two-space indentation.
func Encode(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writer writes the output documents to a filesystem.
type Writer struct {
	FS billy.Filesystem
}

// WriteArchitecture renders t into name (ArchitectureFile when empty) and
// returns the path written.
func (w *Writer) WriteArchitecture(name string, t *arch.Tree) (string, error) {
	if name == "" {
		name = ArchitectureFile
	}
	doc, err := ArchitectureDocument(t)
	if err != nil {
		return "", err
	}
	return name, w.write(name, doc)
}

// WriteActionCounts renders counts into name (ActionCountsFile when empty)
// and returns the path written.
func (w *Writer) WriteActionCounts(name string, counts []actions.ComponentCounts) (string, error) {
	if name == "" {
		name = ActionCountsFile
	}
	doc, err := ActionCountsDocument(counts)
	if err != nil {
		return "", err
	}
	return name, w.write(name, doc)
}

func (w *Writer) write(name string, doc *yaml.Node) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := util.WriteFile(w.FS, name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func document(n *yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{n}}
}

func mapping(kv ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: kv}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func version() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: Version}
}

func valueNode(v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}
