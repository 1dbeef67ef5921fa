package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/archmap/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the variables for the test and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvRules, EnvEstimator, EnvDB, EnvVerbose} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	s, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
	assert.Equal(t, rules.DefaultCatalog, s.Rules)
	assert.Equal(t, DefaultEstimator, s.Estimator)
}

func TestLoad_EnvFileAndEnvironment(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ARCHMAP_ESTIMATOR=fake-estimator\nARCHMAP_DB=file.db\nARCHMAP_VERBOSE=true\n"), 0o644))
	t.Setenv(EnvDB, "env.db")

	s, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "fake-estimator", s.Estimator)
	assert.Equal(t, "env.db", s.DB, "process environment wins over the file")
	assert.True(t, s.Verbose)
	assert.Equal(t, rules.DefaultCatalog, s.Rules)
}

func TestLoad_BadVerbose(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvVerbose, "loud")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attributes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("technology: 45nm\ndatawidth: 32\ndevice_type: cpu\nvdd: 0.9\n"), 0o644))

	in, err := LoadInputs(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"technology":  "45nm",
		"datawidth":   int64(32),
		"device_type": "cpu",
		"vdd":         0.9,
	}, in)

	_, err = LoadInputs(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- a\n- b\n"), 0o644))
	_, err = LoadInputs(bad)
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	cat, err := Defaults().LoadCatalog()
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Rules)

	path := filepath.Join(t.TempDir(), "mini.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - source_type: Foo
    target_class: ctrl
    parent: system
`), 0o644))
	cat, err = Settings{Rules: path}.LoadCatalog()
	require.NoError(t, err)
	require.Len(t, cat.Rules, 1)
	assert.Equal(t, "Foo_ctrl", cat.Rules[0].Name)

	_, err = Settings{Rules: "no-such-catalog"}.LoadCatalog()
	assert.Error(t, err)
}
