package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/archmap/api"
	"github.com/agentic-research/archmap/internal/actions"
	"github.com/agentic-research/archmap/internal/dotpath"
	"github.com/agentic-research/archmap/internal/source"
	"github.com/ohler55/ojg/jp"
)

// DefaultRoot is used when a catalog names no root.
const DefaultRoot = "system"

// Compile validates doc and resolves it into a Catalog. Every problem found
// is reported, joined into one error.
func Compile(doc *api.Catalog, reg *Registry) (*Catalog, error) {
	if doc == nil {
		return nil, errors.New("nil catalog")
	}
	if reg == nil {
		reg = DefaultRegistry()
	}

	root := doc.Root
	if root == "" {
		root = DefaultRoot
	}
	cat := &Catalog{
		Version:          doc.Version,
		Root:             dotpath.Parse(root),
		DescendSequences: doc.DescendSequences,
		Required:         append([]string(nil), doc.Required...),
		ClassMap:         copyMap(doc.ClassMap),
		ClassRemap:       lowerKeys(doc.ClassRemap),
		AttrRemap:        make(map[string]map[string]any, len(doc.AttrRemap)),
		LowercaseStrings: doc.LowercaseStrings,
		Inherit:          make(map[string][]string, len(doc.Inherit)),
		Strategies:       make(map[string]actions.Strategy, len(doc.Strategies)),
		GlobalFallback:   doc.GlobalFallback,
	}

	var errs []error
	fail := func(where string, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", where, err))
	}

	for attr, m := range doc.AttrRemap {
		inner := make(map[string]any, len(m))
		for k, v := range m {
			inner[k] = Normalize(v)
		}
		cat.AttrRemap[attr] = inner
	}
	for class, names := range doc.Inherit {
		cat.Inherit[class] = append([]string(nil), names...)
	}
	for class, s := range doc.Strategies {
		st, err := actions.ParseStrategy(s)
		if err != nil {
			fail("strategies."+class, err)
			continue
		}
		cat.Strategies[class] = st
	}

	if doc.System != nil {
		sys := *doc.System
		if sys.Path == "" {
			sys.Path = cat.Root.Last()
		}
		c, err := compileContainer(sys, cat.Root, reg)
		if err != nil {
			fail("system", err)
		} else {
			cat.System = &c
		}
	}
	for i, dc := range doc.Containers {
		c, err := compileContainer(dc, cat.Root, reg)
		if err != nil {
			fail(fmt.Sprintf("containers[%d] %s", i, dc.Path), err)
			continue
		}
		cat.Containers = append(cat.Containers, c)
	}

	for i, dr := range doc.Rules {
		r, err := compileRule(dr, cat, reg)
		if err != nil {
			fail(fmt.Sprintf("rules[%d] %s", i, ruleLabel(dr)), err)
			continue
		}
		cat.Rules = append(cat.Rules, r)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cat, nil
}

func ruleLabel(r api.Rule) string {
	if r.Name != "" {
		return r.Name
	}
	return r.SourceType + "_" + r.TargetClass
}

func compileRule(dr api.Rule, cat *Catalog, reg *Registry) (Rule, error) {
	r := Rule{
		Name:        ruleLabel(dr),
		SourceType:  dr.SourceType,
		TargetClass: dr.TargetClass,
		Parent:      dotpath.Parse(dr.Parent),
		NameSuffix:  dr.NameSuffix,
		Fragment:    dr.Fragment,
	}
	if r.TargetClass == "" {
		return Rule{}, errors.New("target_class is required")
	}
	if r.SourceType == "" {
		r.SourceType = cat.ClassMap[r.TargetClass]
		if r.SourceType == "" {
			return Rule{}, fmt.Errorf("no source_type and no class_map entry for %q", r.TargetClass)
		}
		if dr.Name == "" {
			r.Name = r.SourceType + "_" + r.TargetClass
		}
	}
	if r.Parent.IsEmpty() {
		return Rule{}, errors.New("parent is required")
	}
	if r.Parent.First() != cat.Root.Last() {
		return Rule{}, fmt.Errorf("parent %s is not under root %s", r.Parent, cat.Root.Last())
	}

	crit, err := ParseCriteria(dr.Criteria)
	if err != nil {
		return Rule{}, err
	}
	r.Criteria = crit

	attrs, err := compileAttributes(dr.Static, dr.Attributes, dr.Computed, reg)
	if err != nil {
		return Rule{}, err
	}
	r.Attributes = attrs

	r.Inherit = mergeNames(cat.Inherit[r.TargetClass], dr.Inherit)

	r.Strategy = cat.Strategies[r.TargetClass]
	if dr.Strategy != "" {
		if r.Strategy, err = actions.ParseStrategy(dr.Strategy); err != nil {
			return Rule{}, err
		}
	}

	seen := make(map[string]bool)
	for _, da := range dr.Actions {
		a, err := compileAction(da)
		if err != nil {
			return Rule{}, err
		}
		if seen[a.Name] {
			return Rule{}, fmt.Errorf("duplicate action %q", a.Name)
		}
		seen[a.Name] = true
		r.Actions = append(r.Actions, a)
	}
	return r, nil
}

func compileContainer(dc api.Container, root dotpath.Path, reg *Registry) (Container, error) {
	c := Container{Path: dotpath.Parse(dc.Path), Source: dotpath.Parse(dc.Source)}
	if c.Path.IsEmpty() {
		return Container{}, errors.New("path is required")
	}
	if c.Path.First() != root.Last() {
		return Container{}, fmt.Errorf("path %s is not under root %s", c.Path, root.Last())
	}
	if c.Source.IsEmpty() {
		c.Source = root
	}
	attrs, err := compileAttributes(dc.Static, dc.Attributes, dc.Computed, reg)
	if err != nil {
		return Container{}, err
	}
	c.Attributes = attrs
	return c, nil
}

func compileAttributes(static []api.Static, paths []api.Attribute, computed []api.Computed, reg *Registry) ([]Attribute, error) {
	var out []Attribute
	for _, s := range static {
		if s.Name == "" {
			return nil, errors.New("static attribute without name")
		}
		out = append(out, Attribute{Name: s.Name, Source: Static{Value: Normalize(s.Value)}})
	}
	for _, a := range paths {
		if a.Name == "" {
			return nil, fmt.Errorf("attribute without name (path %q)", a.Path)
		}
		e, err := source.ParseExpr(a.Path)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
		}
		out = append(out, Attribute{
			Name:     a.Name,
			Source:   FromPath{Path: e, AllowMissing: a.AllowMissing},
			Required: a.Required,
		})
	}
	for _, c := range computed {
		if c.Name == "" {
			return nil, fmt.Errorf("computed attribute without name (func %q)", c.Func)
		}
		spec, ok := reg.Lookup(c.Func)
		if !ok {
			return nil, fmt.Errorf("computed %s: unknown function %q", c.Name, c.Func)
		}
		if err := spec.checkArity(len(c.Args)); err != nil {
			return nil, fmt.Errorf("computed %s: %s: %w", c.Name, c.Func, err)
		}
		out = append(out, Attribute{
			Name:     c.Name,
			Source:   Computed{Func: c.Func, Args: append([]string(nil), c.Args...), Fn: spec.Fn},
			Required: c.Required,
		})
	}
	return out, nil
}

func compileAction(da api.Action) (actions.Action, error) {
	a := actions.Action{Name: da.Name, Optional: da.Optional}
	if a.Name == "" {
		return a, errors.New("action without name")
	}
	if len(da.Add) == 0 {
		return a, fmt.Errorf("action %s: no additive counters", a.Name)
	}
	for _, s := range da.Add {
		c, err := actions.ParseCounter(s)
		if err != nil {
			return a, fmt.Errorf("action %s: %w", a.Name, err)
		}
		a.Add = append(a.Add, c)
	}
	for _, s := range da.Subtract {
		c, err := actions.ParseCounter(s)
		if err != nil {
			return a, fmt.Errorf("action %s: %w", a.Name, err)
		}
		a.Subtract = append(a.Subtract, c)
	}
	return a, nil
}

// ParseCriteria accepts "always" (or empty, "true"), "never" ("false") or a
// JSONPath filter. Filters are syntax-checked here.
func ParseCriteria(s string) (Criteria, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always", "true":
		return Always{}, nil
	case "never", "false":
		return Never, nil
	}
	expr := strings.TrimSpace(s)
	if _, err := jp.ParseString(source.FilterSelector(expr)); err != nil {
		return nil, fmt.Errorf("criteria %q: %w", s, err)
	}
	return Filter{Expr: expr}, nil
}

// Normalize converts decoder-specific numbers to int64 (when integral) or
// float64, recursively.
func Normalize(v any) any {
	switch t := v.(type) {
	case int, int32, uint64, json.Number:
		if i, ok := source.Int(t); ok {
			return i
		}
		if f, ok := source.Float(t); ok {
			return f
		}
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	}
	return v
}

func mergeNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, n := range append(append([]string(nil), a...), b...) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
