package actions

import (
	"testing"

	"github.com/agentic-research/archmap/internal/counters"
	"github.com/agentic-research/archmap/internal/diag"
	"github.com/agentic-research/archmap/internal/dotpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counts(cc ComponentCounts) map[string]int64 {
	m := make(map[string]int64, len(cc.Actions))
	for _, a := range cc.Actions {
		m[a.Name] = a.Counts
	}
	return m
}

func act(name string, add ...string) Action {
	a := Action{Name: name}
	for _, s := range add {
		a.Add = append(a.Add, MustParseCounter(s))
	}
	return a
}

func TestParseCounter(t *testing.T) {
	c, err := ParseCounter("?hits::total | overall_hits::total")
	require.NoError(t, err)
	assert.True(t, c.Optional)
	assert.Equal(t, []string{"hits::total", "overall_hits::total"}, c.Alternatives)
	assert.Equal(t, "?hits::total|overall_hits::total", c.String())

	_, err = ParseCounter(" ? ")
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Direct, s)
	s, err = ParseStrategy("Substring")
	require.NoError(t, err)
	assert.Equal(t, Substring, s)
	_, err = ParseStrategy("fuzzy")
	assert.Error(t, err)
}

func TestAggregate_DirectField(t *testing.T) {
	recs := []counters.Record{{Name: "sysA.hits::total", Value: 10}, {Name: "sysA.misses::total", Value: 2}}
	b := Binding{
		Component: dotpath.Parse("system.chip.sysA"),
		Source:    dotpath.Parse("sysA"),
		Actions:   []Action{act("read_access", "hits::total"), act("read_miss", "misses::total")},
	}

	agg := &Aggregator{}
	out := agg.Aggregate([]Binding{b}, recs)
	require.Len(t, out, 1)
	assert.Equal(t, "system.chip.sysA", out[0].Component.String())
	assert.Equal(t, map[string]int64{"read_access": 10, "read_miss": 2}, counts(out[0]))
	assert.Equal(t, "read_access", out[0].Actions[0].Name, "declaration order kept")
}

func TestAggregate_DirectRepeatedName(t *testing.T) {
	recs := []counters.Record{{Name: "system.l2.hits", Value: 100}, {Name: "system.l2.hits", Value: 250}}
	b := Binding{Component: dotpath.Parse("system.chip.l2"), Source: dotpath.Parse("system.l2"), Actions: []Action{act("read", "hits")}}

	out := (&Aggregator{}).Aggregate([]Binding{b}, recs)
	require.Len(t, out, 1)
	assert.Equal(t, int64(250), out[0].Actions[0].Counts, "last dump wins")
}

func TestAggregate_Additivity(t *testing.T) {
	recs := []counters.Record{
		{Name: "system.cpu.a", Value: 7},
		{Name: "system.cpu.b", Value: 5},
		{Name: "system.cpu.c", Value: 3},
	}
	a := Action{
		Name:     "derived",
		Add:      []Counter{MustParseCounter("a"), MustParseCounter("b")},
		Subtract: []Counter{MustParseCounter("c")},
	}
	b := Binding{Component: dotpath.Parse("system.chip.cpu"), Source: dotpath.Parse("system.cpu"), Actions: []Action{a}}

	out := (&Aggregator{}).Aggregate([]Binding{b}, recs)
	require.Len(t, out, 1)
	assert.Equal(t, int64(7+5-3), out[0].Actions[0].Counts)
}

func TestAggregate_MissingCounters(t *testing.T) {
	recs := []counters.Record{{Name: "system.cpu.a", Value: 7}}
	comp := dotpath.Parse("system.chip.cpu")
	src := dotpath.Parse("system.cpu")

	t.Run("required missing omits action", func(t *testing.T) {
		c := diag.NewCollector()
		b := Binding{Component: comp, Source: src, Actions: []Action{
			act("ok", "a"),
			{Name: "bad", Add: []Counter{MustParseCounter("a"), MustParseCounter("missing")}},
		}}
		out := (&Aggregator{Sink: c}).Aggregate([]Binding{b}, recs)
		require.Len(t, out, 1)
		assert.Equal(t, map[string]int64{"ok": 7}, counts(out[0]))
		require.Len(t, c.Filter(diag.CodeCounter), 1)
		assert.Contains(t, c.Filter(diag.CodeCounter)[0].Message, "missing")
	})

	t.Run("optional missing counts as zero", func(t *testing.T) {
		b := Binding{Component: comp, Source: src, Actions: []Action{
			{Name: "x", Add: []Counter{MustParseCounter("a")}, Subtract: []Counter{MustParseCounter("?missing")}},
			{Name: "y", Add: []Counter{MustParseCounter("a"), MustParseCounter("gone")}, Optional: true},
		}}
		out := (&Aggregator{}).Aggregate([]Binding{b}, recs)
		require.Len(t, out, 1)
		assert.Equal(t, map[string]int64{"x": 7, "y": 7}, counts(out[0]))
	})

	t.Run("nothing resolved omits component", func(t *testing.T) {
		c := diag.NewCollector()
		b := Binding{Component: comp, Source: src, Actions: []Action{act("z", "?gone")}}
		out := (&Aggregator{Sink: c}).Aggregate([]Binding{b}, recs)
		assert.Empty(t, out)
		assert.Len(t, c.Filter(diag.CodeCounter), 2)
	})
}

func TestAggregate_AlternativesAndGlobalFallback(t *testing.T) {
	recs := []counters.Record{
		{Name: "system.cpu.dcache.overall_hits::total", Value: 4},
		{Name: "system.cpu.numCycles", Value: 900},
	}
	b := Binding{
		Component: dotpath.Parse("system.chip.dcache"),
		Source:    dotpath.Parse("system.cpu.dcache"),
		Actions: []Action{
			act("hit", "hits::total|overall_hits::total"),
			act("cycles", "system.cpu.numCycles"),
		},
	}

	out := (&Aggregator{}).Aggregate([]Binding{b}, recs)
	require.Len(t, out, 1)
	assert.Equal(t, map[string]int64{"hit": 4}, counts(out[0]))

	out = (&Aggregator{GlobalFallback: true}).Aggregate([]Binding{b}, recs)
	require.Len(t, out, 1)
	assert.Equal(t, map[string]int64{"hit": 4, "cycles": 900}, counts(out[0]))
}

func TestAggregate_Substring(t *testing.T) {
	recs := []counters.Record{
		{Name: "system.cpu2.icache.ReadReq_accesses::total", Value: 20},
		{Name: "system.cpu.icache.ReadReq_accesses::total", Value: 10},
		{Name: "system.cpu.icache.ReadReq_accesses::cpu.inst", Value: 99},
		{Name: "system.l2.ReadReq_accesses::total", Value: 5},
	}
	mk := func(comp, frag string) Binding {
		return Binding{
			Component: dotpath.Parse(comp),
			Source:    dotpath.Parse(comp),
			Fragment:  frag,
			Strategy:  Substring,
			Actions:   []Action{act("read_access", "ReadReq_accesses")},
		}
	}

	t.Run("first match wins", func(t *testing.T) {
		out := (&Aggregator{}).Aggregate([]Binding{mk("system.chip.l2", "l2")}, recs)
		require.Len(t, out, 1)
		assert.Equal(t, int64(5), out[0].Actions[0].Counts)
	})

	t.Run("longest fragment owns the record", func(t *testing.T) {
		out := (&Aggregator{}).Aggregate([]Binding{
			mk("system.chip.cpu", "cpu"),
			mk("system.chip.cpu2", "cpu2"),
		}, recs)
		require.Len(t, out, 2)
		assert.Equal(t, int64(10), counts(out[0])["read_access"], "cpu must not take cpu2's record")
		assert.Equal(t, int64(20), counts(out[1])["read_access"])
	})

	t.Run("longer fragment keeps records it already resolved", func(t *testing.T) {
		recs := []counters.Record{
			{Name: "system.cpu2.icache.ReadReq_accesses::total", Value: 20},
			{Name: "system.cpu2.dcache.ReadReq_accesses::total", Value: 30},
			{Name: "system.cpu.icache.ReadReq_accesses::total", Value: 10},
		}
		out := (&Aggregator{}).Aggregate([]Binding{
			mk("system.chip.cpu", "cpu"),
			mk("system.chip.cpu2", "cpu2"),
		}, recs)
		require.Len(t, out, 2)
		assert.Equal(t, int64(10), counts(out[0])["read_access"])
		assert.Equal(t, int64(20), counts(out[1])["read_access"])
	})

	t.Run("default fragment is last source segment", func(t *testing.T) {
		b := Binding{
			Component: dotpath.Parse("system.chip.cache_l2"),
			Source:    dotpath.Parse("system.l2"),
			Strategy:  Substring,
			Actions:   []Action{act("read_access", "ReadReq_accesses")},
		}
		out := (&Aggregator{}).Aggregate([]Binding{b}, recs)
		require.Len(t, out, 1)
		assert.Equal(t, int64(5), out[0].Actions[0].Counts)
	})
}

func TestAggregate_EmptyRecords(t *testing.T) {
	b := Binding{Component: dotpath.Parse("system.x"), Source: dotpath.Parse("system.x"), Actions: []Action{act("a", "n")}}
	assert.Empty(t, (&Aggregator{}).Aggregate([]Binding{b}, nil))
	assert.Empty(t, (&Aggregator{}).Aggregate(nil, nil))
}
