package rules

import (
	"errors"
	"fmt"

	"github.com/agentic-research/archmap/api"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/ohler55/ojg/oj"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// HCL form of a catalog:
//
//	root = "system"
//	rule "dcache" {
//	  source_type  = "Cache"
//	  target_class = "cache"
//	  parent       = "system.chip"
//	  criteria     = "@.name == 'dcache'"
//	  static "n_banks" { value = 1 }
//	  attribute "size" { path = "size" }
//	  action "read_access" { add = ["ReadReq_accesses::total"] }
//	}
type hclCatalog struct {
	Version          string              `hcl:"version,optional"`
	Root             string              `hcl:"root,optional"`
	DescendSequences bool                `hcl:"descend_sequences,optional"`
	Required         []string            `hcl:"required,optional"`
	ClassMap         map[string]string   `hcl:"class_map,optional"`
	ClassRemap       map[string]string   `hcl:"class_remap,optional"`
	AttrRemap        hcl.Expression      `hcl:"attr_remap,optional"`
	LowercaseStrings bool                `hcl:"lowercase_strings,optional"`
	Inherit          map[string][]string `hcl:"inherit,optional"`
	Strategies       map[string]string   `hcl:"strategies,optional"`
	GlobalFallback   bool                `hcl:"global_fallback,optional"`

	System     *hclSystem     `hcl:"system,block"`
	Containers []hclContainer `hcl:"container,block"`
	Rules      []hclRule      `hcl:"rule,block"`
}

type hclSystem struct {
	Source     string         `hcl:"source,optional"`
	Static     []hclStatic    `hcl:"static,block"`
	Attributes []hclAttribute `hcl:"attribute,block"`
	Computed   []hclComputed  `hcl:"computed,block"`
}

type hclContainer struct {
	Path       string         `hcl:"path,label"`
	Source     string         `hcl:"source,optional"`
	Static     []hclStatic    `hcl:"static,block"`
	Attributes []hclAttribute `hcl:"attribute,block"`
	Computed   []hclComputed  `hcl:"computed,block"`
}

type hclRule struct {
	Name        string         `hcl:"name,label"`
	SourceType  string         `hcl:"source_type,optional"`
	TargetClass string         `hcl:"target_class"`
	Parent      string         `hcl:"parent"`
	NameSuffix  string         `hcl:"name_suffix,optional"`
	Criteria    string         `hcl:"criteria,optional"`
	Static      []hclStatic    `hcl:"static,block"`
	Attributes  []hclAttribute `hcl:"attribute,block"`
	Computed    []hclComputed  `hcl:"computed,block"`
	Inherit     []string       `hcl:"inherit,optional"`
	Strategy    string         `hcl:"strategy,optional"`
	Fragment    string         `hcl:"fragment,optional"`
	Actions     []hclAction    `hcl:"action,block"`
}

type hclStatic struct {
	Name  string         `hcl:"name,label"`
	Value hcl.Expression `hcl:"value"`
}

type hclAttribute struct {
	Name         string `hcl:"name,label"`
	Path         string `hcl:"path"`
	AllowMissing bool   `hcl:"allow_missing,optional"`
	Required     bool   `hcl:"required,optional"`
}

type hclComputed struct {
	Name     string   `hcl:"name,label"`
	Func     string   `hcl:"func"`
	Args     []string `hcl:"args,optional"`
	Required bool     `hcl:"required,optional"`
}

type hclAction struct {
	Name     string   `hcl:"name,label"`
	Add      []string `hcl:"add"`
	Subtract []string `hcl:"subtract,optional"`
	Optional bool     `hcl:"optional,optional"`
}

func decodeHCL(data []byte, filename string) (*api.Catalog, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}
	var h hclCatalog
	if diags := gohcl.DecodeBody(file.Body, nil, &h); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", filename, diags)
	}

	doc := &api.Catalog{
		Version:          h.Version,
		Root:             h.Root,
		DescendSequences: h.DescendSequences,
		Required:         h.Required,
		ClassMap:         h.ClassMap,
		ClassRemap:       h.ClassRemap,
		LowercaseStrings: h.LowercaseStrings,
		Inherit:          h.Inherit,
		Strategies:       h.Strategies,
		GlobalFallback:   h.GlobalFallback,
	}

	remap, err := exprValue(h.AttrRemap)
	if err != nil {
		return nil, fmt.Errorf("%s: attr_remap: %w", filename, err)
	}
	if remap != nil {
		outer, ok := remap.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: attr_remap must be an object", filename)
		}
		doc.AttrRemap = make(map[string]map[string]any, len(outer))
		for k, v := range outer {
			inner, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: attr_remap.%s must be an object", filename, k)
			}
			doc.AttrRemap[k] = inner
		}
	}

	if h.System != nil {
		c, err := hclContainerBody(filename, "", h.System.Source, h.System.Static, h.System.Attributes, h.System.Computed)
		if err != nil {
			return nil, err
		}
		doc.System = &c
	}
	for _, hc := range h.Containers {
		c, err := hclContainerBody(filename, hc.Path, hc.Source, hc.Static, hc.Attributes, hc.Computed)
		if err != nil {
			return nil, err
		}
		doc.Containers = append(doc.Containers, c)
	}
	for _, hr := range h.Rules {
		static, err := hclStatics(filename, hr.Static)
		if err != nil {
			return nil, err
		}
		r := api.Rule{
			Name:        hr.Name,
			SourceType:  hr.SourceType,
			TargetClass: hr.TargetClass,
			Parent:      hr.Parent,
			NameSuffix:  hr.NameSuffix,
			Criteria:    hr.Criteria,
			Static:      static,
			Attributes:  hclAttributes(hr.Attributes),
			Computed:    hclComputeds(hr.Computed),
			Inherit:     hr.Inherit,
			Strategy:    hr.Strategy,
			Fragment:    hr.Fragment,
		}
		for _, ha := range hr.Actions {
			r.Actions = append(r.Actions, api.Action{
				Name:     ha.Name,
				Add:      ha.Add,
				Subtract: ha.Subtract,
				Optional: ha.Optional,
			})
		}
		doc.Rules = append(doc.Rules, r)
	}
	return doc, nil
}

func hclContainerBody(filename, path, src string, static []hclStatic, attrs []hclAttribute, computed []hclComputed) (api.Container, error) {
	st, err := hclStatics(filename, static)
	if err != nil {
		return api.Container{}, err
	}
	return api.Container{
		Path:       path,
		Source:     src,
		Static:     st,
		Attributes: hclAttributes(attrs),
		Computed:   hclComputeds(computed),
	}, nil
}

func hclStatics(filename string, in []hclStatic) ([]api.Static, error) {
	var out []api.Static
	for _, s := range in {
		v, err := exprValue(s.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: static %s: %w", filename, s.Name, err)
		}
		out = append(out, api.Static{Name: s.Name, Value: v})
	}
	return out, nil
}

func hclAttributes(in []hclAttribute) []api.Attribute {
	var out []api.Attribute
	for _, a := range in {
		out = append(out, api.Attribute{Name: a.Name, Path: a.Path, AllowMissing: a.AllowMissing, Required: a.Required})
	}
	return out
}

func hclComputeds(in []hclComputed) []api.Computed {
	var out []api.Computed
	for _, c := range in {
		out = append(out, api.Computed{Name: c.Name, Func: c.Func, Args: c.Args, Required: c.Required})
	}
	return out
}

// exprValue evaluates a constant expression into plain Go values, with
// integral numbers as int64. A null or absent expression yields nil.
func exprValue(expr hcl.Expression) (any, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, errors.New("value is not known")
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	return oj.Parse(raw)
}
