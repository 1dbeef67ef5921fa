package actions

import (
	"fmt"
	"strings"

	"github.com/agentic-research/archmap/internal/counters"
	"github.com/agentic-research/archmap/internal/diag"
	"github.com/agentic-research/archmap/internal/dotpath"
)

// Binding ties one destination component to the source path it came from and
// the actions declared for its class.
type Binding struct {
	Component dotpath.Path
	Source    dotpath.Path
	// Fragment is the substring matched against counter names under the
	// Substring strategy. Empty means the last segment of Source.
	Fragment string
	Strategy Strategy
	Actions  []Action
}

func (b Binding) fragment() string {
	if b.Fragment != "" {
		return b.Fragment
	}
	return b.Source.Last()
}

// Count is one resolved action.
type Count struct {
	Name   string
	Counts int64
}

// ComponentCounts holds the resolved actions of one component.
type ComponentCounts struct {
	Component dotpath.Path
	Actions   []Count
}

// Aggregator resolves bindings against counter records.
type Aggregator struct {
	// GlobalFallback makes the direct strategy retry a counter name verbatim
	// when source + "." + name is not in the log.
	GlobalFallback bool
	Sink           diag.Sink
}

// Aggregate resolves every binding. Components without a single resolved
// action are left out. Output follows binding order.
func (a *Aggregator) Aggregate(bindings []Binding, records []counters.Record) []ComponentCounts {
	set := counters.NewSet(records)
	scanned := scanSubstring(bindings, records)

	var out []ComponentCounts
	for i, b := range bindings {
		lookup := func(c Counter) (int64, bool) {
			if b.Strategy == Substring {
				v, ok := scanned[i][counterKey(c)]
				return v, ok
			}
			return a.direct(set, b.Source, c)
		}

		cc := ComponentCounts{Component: b.Component}
		for _, act := range b.Actions {
			if n, ok := a.evaluate(b.Component, act, lookup); ok {
				cc.Actions = append(cc.Actions, Count{Name: act.Name, Counts: n})
			}
		}
		if len(cc.Actions) == 0 {
			if len(b.Actions) > 0 {
				a.report(diag.Warning, diag.CodeCounter, b.Component, "no action resolved; component omitted from action counts")
			}
			continue
		}
		out = append(out, cc)
	}
	return out
}

func (a *Aggregator) evaluate(comp dotpath.Path, act Action, lookup func(Counter) (int64, bool)) (int64, bool) {
	var total int64
	resolved := 0
	apply := func(cs []Counter, sign int64) bool {
		for _, c := range cs {
			v, ok := lookup(c)
			if !ok {
				if c.Optional || act.Optional {
					continue
				}
				a.report(diag.Warning, diag.CodeCounter, comp, "cannot locate counter %s for action %s", c, act.Name)
				return false
			}
			total += sign * v
			resolved++
		}
		return true
	}
	if !apply(act.Add, 1) || !apply(act.Subtract, -1) {
		return 0, false
	}
	if resolved == 0 {
		a.report(diag.Warning, diag.CodeCounter, comp, "no counter of action %s resolved", act.Name)
		return 0, false
	}
	a.report(diag.Info, diag.CodeAction, comp, "%s = %d", act.Name, total)
	return total, true
}

func (a *Aggregator) direct(set *counters.Set, src dotpath.Path, c Counter) (int64, bool) {
	for _, alt := range c.Alternatives {
		name := alt
		if !src.IsEmpty() {
			name = src.String() + dotpath.Sep + alt
		}
		if v, ok := set.Lookup(name); ok {
			return v, true
		}
	}
	if !a.GlobalFallback {
		return 0, false
	}
	for _, alt := range c.Alternatives {
		if v, ok := set.Lookup(alt); ok {
			return v, true
		}
	}
	return 0, false
}

func (a *Aggregator) report(sev diag.Severity, code string, comp dotpath.Path, format string, args ...any) {
	sink := a.Sink
	if sink == nil {
		sink = diag.Discard
	}
	sink.Report(diag.Diagnostic{Severity: sev, Code: code, Path: comp.String(), Message: fmt.Sprintf(format, args...)})
}

func counterKey(c Counter) string { return strings.Join(c.Alternatives, "|") }

// scanSubstring makes one pass over the records for all Substring bindings.
// A record is owned by the binding with the longest fragment contained in the
// record name; ties go to the earlier binding. Records the owner has no use
// for are dropped, never handed to a shorter fragment. Within the owner each
// counter keeps the first record that matched it.
func scanSubstring(bindings []Binding, records []counters.Record) []map[string]int64 {
	out := make([]map[string]int64, len(bindings))
	pending := make([][]Counter, len(bindings))
	var active []int
	for i, b := range bindings {
		if b.Strategy != Substring || b.fragment() == "" {
			continue
		}
		out[i] = make(map[string]int64)
		seen := make(map[string]bool)
		for _, act := range b.Actions {
			for _, c := range act.counters() {
				k := counterKey(c)
				if !seen[k] {
					seen[k] = true
					pending[i] = append(pending[i], c)
				}
			}
		}
		active = append(active, i)
	}
	if len(active) == 0 {
		return out
	}

	for _, r := range records {
		owner := -1
		for _, i := range active {
			frag := bindings[i].fragment()
			if !strings.Contains(r.Name, frag) {
				continue
			}
			if owner < 0 || len(frag) > len(bindings[owner].fragment()) {
				owner = i
			}
		}
		if owner < 0 {
			continue
		}
		for _, c := range pending[owner] {
			k := counterKey(c)
			if _, done := out[owner][k]; done {
				continue
			}
			if matches(c, r.Name) {
				out[owner][k] = r.Value
			}
		}
	}
	return out
}

func matches(c Counter, name string) bool {
	for _, alt := range c.Alternatives {
		if strings.Contains(name, alt) {
			return true
		}
	}
	return false
}
