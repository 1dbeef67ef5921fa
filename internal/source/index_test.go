package source

import (
	"testing"

	"github.com/agentic-research/archmap/internal/dotpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(ps []dotpath.Path) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func TestBuildIndex_MappingsOnly(t *testing.T) {
	ix := BuildIndex(sampleConfig(), dotpath.New("system"), IndexOptions{})

	assert.Equal(t, []string{"system"}, paths(ix.Lookup("System")))
	assert.Equal(t, []string{"system.clk_domain"}, paths(ix.Lookup("SrcClockDomain")))
	assert.Empty(t, ix.Lookup("MinorCPU"), "sequences are not entered by default")
	assert.Empty(t, ix.Lookup("Cache"))
	assert.Equal(t, 2, ix.Len())
}

func TestBuildIndex_DescendSequences(t *testing.T) {
	ix := BuildIndex(sampleConfig(), dotpath.New("system"), IndexOptions{DescendSequences: true})

	assert.Equal(t, []string{"system.cpu"}, paths(ix.Lookup("MinorCPU")))
	assert.Equal(t, []string{"system.cpu.dcache"}, paths(ix.Lookup("Cache")))
	assert.Equal(t, []string{"system.mem_ctrls"}, paths(ix.Lookup("DRAMCtrl")))
	assert.Equal(t, []string{"Cache", "DRAMCtrl", "MinorCPU", "SrcClockDomain", "System"}, ix.Types())
}

func TestBuildIndex_Completeness(t *testing.T) {
	src := sampleConfig()
	ix := BuildIndex(src, dotpath.New("system"), IndexOptions{DescendSequences: true})

	for _, typ := range ix.Types() {
		for _, p := range ix.Lookup(typ) {
			n, ok := Node(src, p)
			require.True(t, ok, p.String())
			assert.Equal(t, typ, n[TypeField])

			got, ok := ix.TypeOf(p)
			require.True(t, ok)
			assert.Equal(t, typ, got)

			for _, other := range ix.Types() {
				assert.Equal(t, other == typ, ix.Contains(other, p), "%s under %s", p, other)
			}
		}
	}
}

func TestBuildIndex_StableOrder(t *testing.T) {
	src := map[string]any{
		"system": map[string]any{
			"zeta":  map[string]any{"type": "Cache"},
			"alpha": map[string]any{"type": "Cache", "inner": map[string]any{"type": "Cache"}},
			"mid":   map[string]any{"type": "Cache"},
		},
	}
	want := []string{"system.alpha", "system.alpha.inner", "system.mid", "system.zeta"}
	for i := 0; i < 5; i++ {
		ix := BuildIndex(src, dotpath.New("system"), IndexOptions{})
		assert.Equal(t, want, paths(ix.Lookup("Cache")))
		assert.Equal(t, 4, ix.Count("Cache"))
	}
}

func TestBuildIndex_EmptyAndMissingRoot(t *testing.T) {
	assert.Equal(t, 0, BuildIndex(map[string]any{}, dotpath.New("system"), IndexOptions{}).Len())
	assert.Equal(t, 0, BuildIndex(nil, dotpath.New("system"), IndexOptions{}).Len())
	assert.Nil(t, BuildIndex(sampleConfig(), dotpath.New("system"), IndexOptions{}).Lookup("Nope"))
}

func TestWalker(t *testing.T) {
	w := NewWalker()
	node := map[string]any{"name": "dcache", "size": 32768}

	ok, err := w.Matches(node, "@.name == 'dcache'")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Matches(node, "$[?(@.name == 'icache')]")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = w.Matches(node, "@.name ==")
	assert.Error(t, err)

	got, err := w.Query(sampleConfig(), "$.system.clk_domain.type")
	require.NoError(t, err)
	assert.Equal(t, []any{"SrcClockDomain"}, got)

	// second compile is served from the cache
	x1, err := w.Compile("$.system")
	require.NoError(t, err)
	x2, err := w.Compile("$.system")
	require.NoError(t, err)
	assert.Equal(t, x1.String(), x2.String())
}
