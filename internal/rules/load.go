package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentic-research/archmap/api"
	"gopkg.in/yaml.v3"
)

// Format of a catalog document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatOf picks a format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	case ".hcl":
		return FormatHCL, true
	}
	return "", false
}

// Decode parses one catalog document.
func Decode(data []byte, format Format, filename string) (*api.Catalog, error) {
	var doc api.Catalog
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	case FormatHCL:
		d, err := decodeHCL(data, filename)
		if err != nil {
			return nil, err
		}
		doc = *d
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	return &doc, nil
}

// LoadFile reads a catalog document, choosing the format by extension.
func LoadFile(path string) (*api.Catalog, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("unsupported catalog file %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, format, path)
}

// Load reads a catalog file, or every catalog file of a directory merged in
// lexical file order.
func Load(path string) (*api.Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatOf(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no catalog files in %s", path)
	}

	var docs []*api.Catalog
	for _, n := range names {
		d, err := LoadFile(filepath.Join(path, n))
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return Merge(docs...), nil
}

// Merge combines documents in order. Rules and containers are appended;
// map entries and set scalars of later documents override earlier ones;
// required inputs are unioned.
func Merge(docs ...*api.Catalog) *api.Catalog {
	out := &api.Catalog{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		if d.Version != "" {
			out.Version = d.Version
		}
		if d.Root != "" {
			out.Root = d.Root
		}
		out.DescendSequences = out.DescendSequences || d.DescendSequences
		out.LowercaseStrings = out.LowercaseStrings || d.LowercaseStrings
		out.GlobalFallback = out.GlobalFallback || d.GlobalFallback
		out.Required = mergeNames(out.Required, d.Required)
		out.ClassMap = mergeMap(out.ClassMap, d.ClassMap)
		out.ClassRemap = mergeMap(out.ClassRemap, d.ClassRemap)
		out.Strategies = mergeMap(out.Strategies, d.Strategies)
		for k, v := range d.AttrRemap {
			if out.AttrRemap == nil {
				out.AttrRemap = make(map[string]map[string]any)
			}
			out.AttrRemap[k] = v
		}
		for k, v := range d.Inherit {
			if out.Inherit == nil {
				out.Inherit = make(map[string][]string)
			}
			out.Inherit[k] = mergeNames(out.Inherit[k], v)
		}
		if d.System != nil {
			out.System = d.System
		}
		out.Containers = append(out.Containers, d.Containers...)
		out.Rules = append(out.Rules, d.Rules...)
	}
	return out
}

func mergeMap[V any](dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
