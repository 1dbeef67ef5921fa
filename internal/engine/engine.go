// Package engine runs a rule catalog against a source record and a counter
// log, producing the destination tree, the correspondence table and the
// per-component action counts.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/agentic-research/archmap/internal/actions"
	"github.com/agentic-research/archmap/internal/arch"
	"github.com/agentic-research/archmap/internal/counters"
	"github.com/agentic-research/archmap/internal/diag"
	"github.com/agentic-research/archmap/internal/dotpath"
	"github.com/agentic-research/archmap/internal/rules"
	"github.com/agentic-research/archmap/internal/source"
)

// ClassAttribute is the resolved attribute that, with a class remap
// configured, replaces the component's class instead of being emitted.
const ClassAttribute = "class"

// Config configures an Engine.
type Config struct {
	Catalog *rules.Catalog
	// Inputs are system-wide constants such as technology or datawidth.
	// They become attributes of the root node.
	Inputs map[string]any
	// Logger, when set, echoes diagnostics as they are recorded: warnings
	// and errors always, info records only with Verbose.
	Logger  *log.Logger
	Verbose bool
}

// Result is everything one run produces.
type Result struct {
	Tree           *arch.Tree
	Index          *source.TypeIndex
	Correspondence *Correspondence
	Bindings       []actions.Binding
	Counts         []actions.ComponentCounts
	Diagnostics    []diag.Diagnostic
	// Warnings is the number of warning-level diagnostics.
	Warnings int
}

// Engine evaluates a compiled catalog. It holds no per-run state and may be
// reused for several runs, one at a time.
type Engine struct {
	cfg    Config
	cat    *rules.Catalog
	walker *source.Walker
}

func New(cfg Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("engine: no catalog")
	}
	return &Engine{cfg: cfg, cat: cfg.Catalog, walker: source.NewWalker()}, nil
}

// run is the state of one invocation.
type run struct {
	*Engine
	src      any
	diags    *diag.Collector
	tree     *arch.Tree
	corr     *Correspondence
	bindings []actions.Binding
}

// Run maps src and aggregates records. Fatal conditions (missing inputs,
// duplicate or unreachable destination paths) abort with an error; all
// others are recorded in Result.Diagnostics.
func (e *Engine) Run(src any, records []counters.Record) (*Result, error) {
	var opts []diag.Option
	if e.cfg.Logger != nil {
		level := diag.Warning
		if e.cfg.Verbose {
			level = diag.Info
		}
		opts = append(opts, diag.WithLogger(e.cfg.Logger, level))
	}
	r := &run{Engine: e, src: src, diags: diag.NewCollector(opts...), corr: NewCorrespondence()}
	res, err := r.execute(records)
	if err != nil {
		r.diags.Errorf(diag.CodeFatal, "", "%v", err)
		return nil, err
	}
	return res, nil
}

func (r *run) execute(records []counters.Record) (*Result, error) {
	if err := r.checkInputs(); err != nil {
		return nil, err
	}
	containers, err := r.stageContainers()
	if err != nil {
		return nil, err
	}

	ix := source.BuildIndex(r.src, r.cat.Root, source.IndexOptions{DescendSequences: r.cat.DescendSequences})
	r.tree = arch.New(r.cat.Root.Last())
	if err := r.applyInputs(); err != nil {
		return nil, err
	}
	for _, sc := range containers {
		if err := r.applyContainer(sc); err != nil {
			return nil, err
		}
	}
	for i := range r.cat.Rules {
		if err := r.applyRule(&r.cat.Rules[i], ix); err != nil {
			return nil, err
		}
	}

	agg := &actions.Aggregator{GlobalFallback: r.cat.GlobalFallback, Sink: r.diags}
	counts := agg.Aggregate(r.bindings, records)

	return &Result{
		Tree:           r.tree,
		Index:          ix,
		Correspondence: r.corr,
		Bindings:       r.bindings,
		Counts:         counts,
		Diagnostics:    r.diags.Records(),
		Warnings:       r.diags.Count(diag.Warning),
	}, nil
}

func (r *run) checkInputs() error {
	var missing []string
	for _, name := range r.cat.Required {
		if v, ok := r.cfg.Inputs[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Reason: "required inputs not supplied", Missing: missing}
	}
	return nil
}

// applyInputs copies the inputs to the root: required ones first in declared
// order, then the rest by name.
func (r *run) applyInputs() error {
	root := r.tree.RootPath()
	done := make(map[string]bool)
	for _, name := range r.cat.Required {
		if err := r.tree.SetAttribute(root, name, r.cfg.Inputs[name]); err != nil {
			return err
		}
		done[name] = true
	}
	var rest []string
	for name := range r.cfg.Inputs {
		if !done[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		if err := r.tree.SetAttribute(root, name, r.cfg.Inputs[name]); err != nil {
			return err
		}
	}
	return nil
}

type stagedContainer struct {
	path  dotpath.Path
	attrs *attrList
}

// stageContainers resolves every container attribute before the tree
// exists, so a required miss is reported before anything is built.
func (r *run) stageContainers() ([]stagedContainer, error) {
	var all []rules.Container
	if r.cat.System != nil {
		all = append(all, *r.cat.System)
	}
	all = append(all, r.cat.Containers...)

	var out []stagedContainer
	var missing []string
	for _, c := range all {
		node, _ := source.Node(r.src, c.Source)
		attrs, miss := r.resolve(c.Path, c.Source, node, c.Attributes)
		for _, m := range miss {
			missing = append(missing, c.Path.String()+dotpath.Sep+m)
		}
		r.finish(attrs)
		out = append(out, stagedContainer{path: c.Path, attrs: attrs})
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Reason: "required attributes did not resolve", Missing: missing}
	}
	return out, nil
}

func (r *run) applyContainer(sc stagedContainer) error {
	p, err := r.tree.EnsurePath(sc.path)
	if err != nil {
		return fmt.Errorf("container %s: %w", sc.path, err)
	}
	return r.write(p, sc.attrs)
}

func (r *run) applyRule(rule *rules.Rule, ix *source.TypeIndex) error {
	candidates := ix.Lookup(rule.SourceType)
	if len(candidates) == 0 {
		r.diags.Warnf(diag.CodeNoMatches, rule.Parent.String(), "rule %s: no instances of source type %s", rule.Name, rule.SourceType)
		return nil
	}

	matched := 0
	for _, sp := range candidates {
		node, ok := source.Node(r.src, sp)
		if !ok {
			continue
		}
		pass, err := r.accept(rule.Criteria, node)
		if err != nil {
			r.diags.Warnf(diag.CodeCriteria, sp.String(), "rule %s: %v", rule.Name, err)
			continue
		}
		if !pass {
			continue
		}
		if err := r.instantiate(rule, sp, node); err != nil {
			return fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		matched++
	}
	if matched == 0 {
		r.diags.Warnf(diag.CodeNoMatches, rule.Parent.String(), "rule %s: criteria rejected all %d instances of %s", rule.Name, len(candidates), rule.SourceType)
	}
	return nil
}

func (r *run) instantiate(rule *rules.Rule, sp dotpath.Path, node map[string]any) error {
	parent, err := r.tree.EnsurePath(rule.Parent)
	if err != nil {
		return err
	}
	dest, err := r.tree.Instantiate(parent, rule.ComponentName(sp), rule.TargetClass)
	if err != nil {
		return err
	}
	r.diags.Infof(diag.CodeMapped, dest.String(), "%s -> %s (%s)", sp, dest, rule.TargetClass)

	attrs, _ := r.resolve(dest, sp, node, rule.Attributes)
	for _, name := range rule.Inherit {
		if attrs.has(name) {
			continue
		}
		if v, ok := r.tree.Inherited(parent, name); ok {
			attrs.set(name, v)
		}
	}

	if len(r.cat.ClassRemap) > 0 {
		if v, ok := attrs.remove(ClassAttribute); ok {
			class := strings.ToLower(fmt.Sprint(v))
			if mapped, ok := r.cat.ClassRemap[class]; ok {
				class = strings.ToLower(mapped)
			}
			if err := r.tree.SetClass(dest, class); err != nil {
				return err
			}
		}
	}
	r.finish(attrs)
	if err := r.write(dest, attrs); err != nil {
		return err
	}

	r.corr.Add(Entry{Destination: dest, Source: sp, Class: rule.TargetClass, Rule: rule.Name})
	r.bindings = append(r.bindings, actions.Binding{
		Component: dest,
		Source:    sp,
		Fragment:  rule.Fragment,
		Strategy:  rule.Strategy,
		Actions:   rule.Actions,
	})
	return nil
}

func (r *run) accept(c rules.Criteria, node map[string]any) (bool, error) {
	switch c := c.(type) {
	case nil, rules.Always:
		return true, nil
	case rules.Predicate:
		return c.Fn(node)
	case rules.Filter:
		return r.walker.Matches(node, c.Expr)
	}
	return false, fmt.Errorf("unsupported criteria %T", c)
}

// resolve evaluates attrs against node. It returns the resolved attributes
// in declaration order and the names of required attributes that missed.
func (r *run) resolve(dest, src dotpath.Path, node map[string]any, attrs []rules.Attribute) (*attrList, []string) {
	out := newAttrList()
	var missing []string
	miss := func(a rules.Attribute) {
		if a.Required {
			missing = append(missing, a.Name)
		}
	}
	for _, a := range attrs {
		switch s := a.Source.(type) {
		case rules.Static:
			out.set(a.Name, s.Value)
		case rules.FromPath:
			v, ok := source.Resolve(node, s.Path)
			if !ok {
				if !s.AllowMissing {
					r.diags.Warnf(diag.CodeUnresolved, dest.String(), "cannot locate attribute %s of %s", s.Path, src)
				}
				miss(a)
				continue
			}
			out.set(a.Name, r.lower(v))
		case rules.Computed:
			v, err := s.Fn(node, s.Args)
			if err != nil {
				code := diag.CodeComputeFailed
				if errors.Is(err, rules.ErrMissing) {
					code = diag.CodeUnresolved
				}
				r.diags.Warnf(code, dest.String(), "%s(%s) for %s: %v", s.Func, strings.Join(s.Args, ", "), a.Name, err)
				miss(a)
				continue
			}
			out.set(a.Name, r.lower(v))
		}
	}
	return out, missing
}

func (r *run) lower(v any) any {
	if s, ok := v.(string); ok && r.cat.LowercaseStrings {
		return strings.ToLower(s)
	}
	return v
}

// finish applies the value remap table.
func (r *run) finish(attrs *attrList) {
	for _, name := range attrs.names {
		m, ok := r.cat.AttrRemap[name]
		if !ok {
			continue
		}
		v := attrs.vals[name]
		key := fmt.Sprint(v)
		if nv, ok := m[key]; ok {
			attrs.vals[name] = nv
		} else if nv, ok := m[strings.ToLower(key)]; ok {
			attrs.vals[name] = nv
		}
	}
}

func (r *run) write(p dotpath.Path, attrs *attrList) error {
	for _, name := range attrs.names {
		v := attrs.vals[name]
		if err := r.tree.SetAttribute(p, name, v); err != nil {
			return err
		}
		r.diags.Infof(diag.CodeAttribute, p.String(), "%s = %v", name, v)
	}
	return nil
}
