package rules

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/agentic-research/archmap/api"
)

//go:embed catalogs/*.yaml
var builtinFS embed.FS

// DefaultCatalog names the built-in catalog used when none is given.
const DefaultCatalog = "gem5"

// Builtin returns a built-in catalog document by name.
func Builtin(name string) (*api.Catalog, error) {
	file := path.Join("catalogs", name+".yaml")
	data, err := builtinFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("no built-in catalog %q (have %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Decode(data, FormatYAML, file)
}

// BuiltinNames lists the built-in catalogs.
func BuiltinNames() []string {
	entries, _ := builtinFS.ReadDir("catalogs")
	var out []string
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}
