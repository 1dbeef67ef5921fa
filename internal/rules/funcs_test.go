package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fu(count any, ops ...string) map[string]any {
	var list []any
	for _, op := range ops {
		list = append(list, map[string]any{"type": "OpDesc", "opClass": op})
	}
	m := map[string]any{
		"type":      "MinorFU",
		"opClasses": map[string]any{"type": "MinorOpClassSet", "opClasses": list},
	}
	if count != nil {
		m["count"] = count
	}
	return m
}

func cpuNode() map[string]any {
	return map[string]any{
		"type":      "MinorCPU",
		"name":      "CPU",
		"clk":       []any{int64(333)},
		"zero":      0,
		"dcache":    map[string]any{"type": "Cache"},
		"peerNames": []any{"a", "b", "c"},
		"executeFuncUnits": map[string]any{
			"funcUnits": []any{
				fu([]any{int64(2)}, "IntAlu"),
				fu(nil, "IntMult", "IntDiv"),
				fu(nil, "FloatAdd", "FloatMult"),
				fu(nil, "MemRead", "MemWrite"),
			},
		},
	}
}

func call(t *testing.T, name string, args ...string) (any, error) {
	t.Helper()
	spec, ok := DefaultRegistry().Lookup(name)
	require.True(t, ok, name)
	require.NoError(t, spec.checkArity(len(args)))
	return spec.Fn(cpuNode(), args)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"count", "first_of", "func_units", "lower", "ps_to_mhz"}, r.Names())

	r.Register("const", FuncSpec{Fn: func(map[string]any, []string) (any, error) { return 1, nil }})
	_, ok := r.Lookup("const")
	assert.True(t, ok)

	spec, _ := r.Lookup("first_of")
	assert.NoError(t, spec.checkArity(5))
	assert.Error(t, spec.checkArity(0))
	spec, _ = r.Lookup("lower")
	assert.Error(t, spec.checkArity(2))
}

func TestPsToMHz(t *testing.T) {
	v, err := call(t, "ps_to_mhz", "clk")
	require.NoError(t, err)
	assert.Equal(t, int64(3003), v)

	_, err = call(t, "ps_to_mhz", "missing")
	assert.True(t, errors.Is(err, ErrMissing))

	_, err = call(t, "ps_to_mhz", "zero")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissing))
}

func TestLowerCountFirstOf(t *testing.T) {
	v, err := call(t, "lower", "name")
	require.NoError(t, err)
	assert.Equal(t, "cpu", v)

	_, err = call(t, "lower", "clk")
	assert.Error(t, err)

	v, err = call(t, "count", "peerNames")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = call(t, "count", "clk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "one-element list counts one")

	v, err = call(t, "count", "dcache")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = call(t, "first_of", "nope", "dcache.type", "name")
	require.NoError(t, err)
	assert.Equal(t, "Cache", v)

	_, err = call(t, "first_of", "nope", "nada")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestFuncUnits(t *testing.T) {
	for kind, want := range map[string]int64{"alu": 3, "mul": 1, "fpu": 1, "all": 5} {
		v, err := call(t, "func_units", "executeFuncUnits.funcUnits", kind)
		require.NoError(t, err, kind)
		assert.Equal(t, want, v, kind)
	}

	_, err := call(t, "func_units", "executeFuncUnits.funcUnits", "gpu")
	assert.Error(t, err)

	_, err = call(t, "func_units", "fuPool.FUList", "alu")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestClassifyUnit(t *testing.T) {
	assert.Equal(t, UnitFPU, ClassifyUnit([]string{"IntMult", "FloatMult"}))
	assert.Equal(t, UnitMUL, ClassifyUnit([]string{"IntAlu", "IntDiv"}))
	assert.Equal(t, UnitALU, ClassifyUnit([]string{"IntAlu"}))
	assert.Equal(t, UnitALU, ClassifyUnit(nil))
}
