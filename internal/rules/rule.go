// Package rules holds the compiled mapping-rule catalog: which source types
// become which destination components, and how their attributes and action
// counts are resolved.
package rules

import (
	"sort"

	"github.com/agentic-research/archmap/internal/actions"
	"github.com/agentic-research/archmap/internal/dotpath"
	"github.com/agentic-research/archmap/internal/source"
)

// AttributeSource is one of Static, FromPath or Computed.
type AttributeSource interface {
	isAttributeSource()
}

// Static is a literal value.
type Static struct {
	Value any
}

// FromPath resolves a path relative to the candidate's source node.
type FromPath struct {
	Path source.Expr
	// AllowMissing drops the attribute without a diagnostic when the path
	// does not resolve.
	AllowMissing bool
}

// Computed calls a registered function with the candidate's source node.
type Computed struct {
	Func string
	Args []string
	Fn   Func
}

func (Static) isAttributeSource()   {}
func (FromPath) isAttributeSource() {}
func (Computed) isAttributeSource() {}

// Attribute is a named attribute and where its value comes from.
type Attribute struct {
	Name   string
	Source AttributeSource
	// Required makes a miss fatal (containers only).
	Required bool
}

// Criteria is one of Always, Predicate or Filter.
type Criteria interface {
	isCriteria()
}

// Always accepts every candidate.
type Always struct{}

// Predicate accepts candidates for which Fn returns true.
type Predicate struct {
	Name string
	Fn   func(node map[string]any) (bool, error)
}

// Filter accepts candidates selected by a JSONPath filter expression.
type Filter struct {
	Expr string
}

func (Always) isCriteria()    {}
func (Predicate) isCriteria() {}
func (Filter) isCriteria()    {}

// Never rejects every candidate.
var Never = Predicate{Name: "never", Fn: func(map[string]any) (bool, error) { return false, nil }}

// Rule turns every accepted instance of SourceType into a component of
// class TargetClass under Parent.
type Rule struct {
	Name        string
	SourceType  string
	TargetClass string
	Parent      dotpath.Path
	NameSuffix  string
	Criteria    Criteria
	// Attributes in application order: static, then source paths, then computed.
	Attributes []Attribute
	// Inherit names attributes taken from the nearest ancestor when absent.
	Inherit  []string
	Strategy actions.Strategy
	Fragment string
	Actions  []actions.Action
}

// ComponentName derives the destination name from a source path.
func (r *Rule) ComponentName(src dotpath.Path) string {
	name := src.Last()
	if r.NameSuffix != "" {
		name += "_" + r.NameSuffix
	}
	return name
}

// Container carries attributes for a structural node.
type Container struct {
	Path       dotpath.Path
	Source     dotpath.Path
	Attributes []Attribute
}

// Catalog is a compiled, validated rule catalog. It doubles as the engine
// configuration: every behavior that differs between source formats is a
// field here.
type Catalog struct {
	Version          string
	Root             dotpath.Path
	DescendSequences bool
	Required         []string
	// ClassMap maps target class to source type.
	ClassMap         map[string]string
	ClassRemap       map[string]string
	AttrRemap        map[string]map[string]any
	LowercaseStrings bool
	Inherit          map[string][]string
	Strategies       map[string]actions.Strategy
	GlobalFallback   bool

	System     *Container
	Containers []Container
	Rules      []Rule
}

// RulesFor returns the rules targeting class, in catalog order.
func (c *Catalog) RulesFor(class string) []Rule {
	var out []Rule
	for _, r := range c.Rules {
		if r.TargetClass == class {
			out = append(out, r)
		}
	}
	return out
}

// Classes returns the distinct target classes, sorted.
func (c *Catalog) Classes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.Rules {
		if !seen[r.TargetClass] {
			seen[r.TargetClass] = true
			out = append(out, r.TargetClass)
		}
	}
	sort.Strings(out)
	return out
}

// SourceTypes returns the distinct source types referenced by rules, sorted.
func (c *Catalog) SourceTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.Rules {
		if !seen[r.SourceType] {
			seen[r.SourceType] = true
			out = append(out, r.SourceType)
		}
	}
	sort.Strings(out)
	return out
}
