package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `{
  "system": {
    "type": "System",
    "cache_line_size": 64,
    "clk_domain": {"type": "SrcClockDomain", "clock": [500]},
    "cpu": [{
      "type": "MinorCPU",
      "numThreads": 1,
      "dcache": {"type": "Cache", "name": "dcache", "size": 65536, "assoc": 2},
      "icache": {"type": "Cache", "name": "icache", "size": 32768, "assoc": 2}
    }],
    "mem_ctrls": [{"type": "DRAMCtrl", "tCL": 13750}]
  }
}`

const testStats = `
---------- Begin Simulation Statistics ----------
sim_seconds                                  0.000100                       # Number of seconds simulated
system.cpu.numCycles                              500                       # number of cpu cycles simulated
system.cpu.op_class_0::IntAlu                     120     60.00%     60.00% # Class of committed instruction
system.cpu.dcache.ReadReq_accesses::total          40                       # number of ReadReq accesses(hits+misses)
system.cpu.dcache.ReadReq_misses::total             4                       # number of ReadReq misses
system.mem_ctrls.num_reads::total                  30                       # Number of read requests accepted
system.mem_ctrls.num_writes::total                 10                       # Number of write requests accepted
`

func writeFixture(t *testing.T) (m5out, attrs string) {
	t.Helper()
	dir := t.TempDir()
	m5out = filepath.Join(dir, "m5out")
	require.NoError(t, os.MkdirAll(m5out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m5out, configFile), []byte(testConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m5out, statsFile), []byte(testStats), 0o644))
	attrs = filepath.Join(dir, "attributes.yaml")
	require.NoError(t, os.WriteFile(attrs, []byte("technology: 45nm\ndatawidth: 32\ndevice_type: cpu\n"), 0o644))
	return m5out, attrs
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	noEnv := filepath.Join(t.TempDir(), "none.env")
	root.SetArgs(append([]string{"--env-file", noEnv}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestConvert_DryRun(t *testing.T) {
	m5out, attrs := writeFixture(t)
	input := filepath.Join(t.TempDir(), "input")
	db := filepath.Join(t.TempDir(), "run.db")

	out, err := run(t, "convert", "-m", m5out, "-i", input, "-a", attrs, "-d", "--db", db, "--estimator", "fake-estimator")
	require.NoError(t, err)
	assert.Contains(t, out, "Mapped ")
	assert.Contains(t, out, "fake-estimator -o")
	assert.FileExists(t, db)

	data, err := os.ReadFile(filepath.Join(input, "architecture.yaml"))
	require.NoError(t, err)
	var archDoc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &archDoc))
	body := archDoc["architecture"].(map[string]any)
	assert.Equal(t, 0.3, body["version"])
	sys := body["subtree"].([]any)[0].(map[string]any)
	assert.Equal(t, "system", sys["name"])
	attrsOut := sys["attributes"].(map[string]any)
	assert.Equal(t, "45nm", attrsOut["technology"])
	assert.Equal(t, 2000, attrsOut["clockrate"])

	data, err = os.ReadFile(filepath.Join(input, "action_counts.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: system.chip.dcache")
	assert.Contains(t, string(data), "name: system.mem_ctrls")
}

func TestConvert_MissingInputs(t *testing.T) {
	m5out, _ := writeFixture(t)
	_, err := run(t, "convert", "-m", m5out, "-i", t.TempDir(), "-d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "technology")
}

func TestConvert_OutputRequired(t *testing.T) {
	m5out, attrs := writeFixture(t)
	_, err := run(t, "convert", "-m", m5out, "-i", t.TempDir(), "-a", attrs)
	assert.ErrorContains(t, err, "--output")
}

func TestIndexAndResolve(t *testing.T) {
	m5out, _ := writeFixture(t)
	cfg := filepath.Join(m5out, configFile)

	out, err := run(t, "index", cfg, "--descend-sequences")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache (2)")
	assert.Contains(t, out, "  system.cpu.dcache\n")

	out, err = run(t, "index", cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "Cache")

	out, err = run(t, "index", cfg, "--descend-sequences", "--type", "DRAMCtrl", "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "system.mem_ctrls")

	out, err = run(t, "resolve", cfg, "system.clk_domain.clock")
	require.NoError(t, err)
	assert.Equal(t, "500\n", out)

	out, err = run(t, "resolve", cfg, "--jsonpath", "$.system.cpu[0].dcache.size")
	require.NoError(t, err)
	assert.Equal(t, "- 65536\n", out)

	_, err = run(t, "resolve", cfg, "system.nope")
	assert.Error(t, err)
}

func TestRulesCmd(t *testing.T) {
	out, err := run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog gem5:")
	assert.Contains(t, out, "Cache_dcache")
	assert.Contains(t, out, "required inputs: technology, datawidth, device_type")

	out, err = run(t, "rules", "--builtin")
	require.NoError(t, err)
	assert.Equal(t, "gem5\n", out)

	_, err = run(t, "rules", "-r", "missing-catalog")
	assert.Error(t, err)
}
