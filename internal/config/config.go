// Package config resolves CLI settings from defaults, a .env file and the
// environment. Flags are applied on top by the cmd package.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agentic-research/archmap/api"
	"github.com/agentic-research/archmap/internal/rules"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvRules     = "ARCHMAP_RULES"
	EnvEstimator = "ARCHMAP_ESTIMATOR"
	EnvDB        = "ARCHMAP_DB"
	EnvVerbose   = "ARCHMAP_VERBOSE"
)

const DefaultEstimator = "accelergy"

// Settings are the knobs shared by every subcommand.
type Settings struct {
	// Rules is a catalog file, a directory of catalog files or the name of
	// a built-in catalog.
	Rules     string
	Estimator string
	// DB, when set, also persists each run into this SQLite file.
	DB      string
	Verbose bool
}

func Defaults() Settings {
	return Settings{
		Rules:     rules.DefaultCatalog,
		Estimator: DefaultEstimator,
	}
}

// Load returns Defaults overlaid with the environment. Files in envFiles
// are loaded first (".env" when none are given); a missing file is not an
// error, and variables already set in the process win over the file.
func Load(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
				return Settings{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	s := Defaults()
	if v := strings.TrimSpace(os.Getenv(EnvRules)); v != "" {
		s.Rules = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEstimator)); v != "" {
		s.Estimator = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDB)); v != "" {
		s.DB = v
	}
	if raw := strings.TrimSpace(os.Getenv(EnvVerbose)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", EnvVerbose, err)
		}
		s.Verbose = v
	}
	return s, nil
}

// LoadInputs reads a YAML mapping of system-wide constants such as
// technology, datawidth and device_type.
func LoadInputs(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = rules.Normalize(v)
	}
	return out, nil
}

// LoadCatalog resolves s.Rules: an existing file or directory is loaded
// from disk, anything else is looked up among the built-in catalogs. The
// document is compiled against the default function registry.
func (s Settings) LoadCatalog() (*rules.Catalog, error) {
	name := s.Rules
	if name == "" {
		name = rules.DefaultCatalog
	}
	var (
		doc *api.Catalog
		err error
	)
	if _, statErr := os.Stat(name); statErr == nil {
		doc, err = rules.Load(name)
	} else {
		doc, err = rules.Builtin(name)
	}
	if err != nil {
		return nil, err
	}
	cat, err := rules.Compile(doc, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}
	return cat, nil
}
