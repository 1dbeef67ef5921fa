package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-research/archmap/internal/source"
)

// ErrMissing is returned (wrapped) by a function whose input path does not
// resolve. The engine reports it as an unresolved attribute rather than a
// failed computation.
var ErrMissing = errors.New("value not found")

// Func computes an attribute from a candidate's source node.
type Func func(node map[string]any, args []string) (any, error)

// FuncSpec is a registered function and its accepted argument count.
// MaxArgs < 0 means variadic.
type FuncSpec struct {
	Fn      Func
	MinArgs int
	MaxArgs int
}

func (s FuncSpec) checkArity(n int) error {
	if n < s.MinArgs {
		return fmt.Errorf("want at least %d arguments, got %d", s.MinArgs, n)
	}
	if s.MaxArgs >= 0 && n > s.MaxArgs {
		return fmt.Errorf("want at most %d arguments, got %d", s.MaxArgs, n)
	}
	return nil
}

// Registry maps function names to implementations.
type Registry struct {
	specs map[string]FuncSpec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]FuncSpec)}
}

// DefaultRegistry returns a registry with the built-in functions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("ps_to_mhz", FuncSpec{Fn: psToMHz, MinArgs: 1, MaxArgs: 1})
	r.Register("lower", FuncSpec{Fn: lower, MinArgs: 1, MaxArgs: 1})
	r.Register("count", FuncSpec{Fn: count, MinArgs: 1, MaxArgs: 1})
	r.Register("first_of", FuncSpec{Fn: firstOf, MinArgs: 1, MaxArgs: -1})
	r.Register("func_units", FuncSpec{Fn: funcUnits, MinArgs: 2, MaxArgs: 2})
	return r
}

func (r *Registry) Register(name string, spec FuncSpec) {
	r.specs[name] = spec
}

func (r *Registry) Lookup(name string) (FuncSpec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for n := range r.specs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func lookup(node map[string]any, path string) (any, error) {
	e, err := source.ParseExpr(path)
	if err != nil {
		return nil, err
	}
	v, ok := source.Resolve(node, e)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrMissing)
	}
	return v, nil
}

// psToMHz converts a clock period in picoseconds to a frequency in MHz,
// truncated to an integer.
func psToMHz(node map[string]any, args []string) (any, error) {
	v, err := lookup(node, args[0])
	if err != nil {
		return nil, err
	}
	ps, ok := source.Float(v)
	if !ok || ps <= 0 {
		return nil, fmt.Errorf("%s: not a positive period: %v", args[0], v)
	}
	return int64(1e6 / ps), nil
}

func lower(node map[string]any, args []string) (any, error) {
	v, err := lookup(node, args[0])
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%s: not a string: %v", args[0], v)
	}
	return strings.ToLower(s), nil
}

func count(node map[string]any, args []string) (any, error) {
	e, err := source.ParseExpr(args[0])
	if err != nil {
		return nil, err
	}
	v, ok := source.Raw(node, e)
	if !ok {
		return nil, fmt.Errorf("%s: %w", args[0], ErrMissing)
	}
	switch c := v.(type) {
	case []any:
		return int64(len(c)), nil
	case map[string]any:
		return int64(len(c)), nil
	}
	return int64(1), nil
}

func firstOf(node map[string]any, args []string) (any, error) {
	for _, p := range args {
		v, err := lookup(node, p)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrMissing) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", strings.Join(args, ", "), ErrMissing)
}

// Functional-unit kinds, classified by the op classes a unit executes.
const (
	UnitALU = "alu"
	UnitMUL = "mul"
	UnitFPU = "fpu"
	UnitAll = "all"
)

// ClassifyUnit assigns a functional unit to a kind: any floating-point op
// makes it an FPU, otherwise any multiply or divide op makes it a MUL unit,
// otherwise it is an ALU.
func ClassifyUnit(ops []string) string {
	for _, op := range ops {
		if strings.Contains(op, "Float") {
			return UnitFPU
		}
	}
	for _, op := range ops {
		if strings.Contains(op, "Div") || strings.Contains(op, "Mul") {
			return UnitMUL
		}
	}
	return UnitALU
}

// funcUnits counts the functional units of one kind in the list at args[0].
// A unit with a "count" field stands for that many units.
func funcUnits(node map[string]any, args []string) (any, error) {
	kind := strings.ToLower(strings.TrimSpace(args[1]))
	switch kind {
	case UnitALU, UnitMUL, UnitFPU, UnitAll:
	default:
		return nil, fmt.Errorf("unknown functional unit kind %q", args[1])
	}
	e, err := source.ParseExpr(args[0])
	if err != nil {
		return nil, err
	}
	v, ok := source.Raw(node, e)
	if !ok {
		return nil, fmt.Errorf("%s: %w", args[0], ErrMissing)
	}
	units, ok := v.([]any)
	if !ok {
		units = []any{v}
	}

	var total int64
	for _, u := range units {
		n := int64(1)
		if m, ok := u.(map[string]any); ok {
			if c, ok := source.Int(unwrapOne(m["count"])); ok && c > 0 {
				n = c
			}
		}
		if kind == UnitAll || ClassifyUnit(collectOps(u, nil)) == kind {
			total += n
		}
	}
	return total, nil
}

// collectOps gathers every "opClass" string below v.
func collectOps(v any, acc []string) []string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := unwrapOne(t[k]).(string); ok && k == "opClass" {
				acc = append(acc, s)
				continue
			}
			acc = collectOps(t[k], acc)
		}
	case []any:
		for _, e := range t {
			acc = collectOps(e, acc)
		}
	}
	return acc
}

func unwrapOne(v any) any {
	if s, ok := v.([]any); ok && len(s) == 1 {
		return s[0]
	}
	return v
}
