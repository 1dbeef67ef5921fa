package diag

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Infof(CodeMapped, "system.chip.dcache", "mapped from %s", "system.cpu.dcache")
	c.Warnf(CodeUnresolved, "system.cpu.dcache", "cannot locate attribute %s", "tags.block_size")
	c.Warnf(CodeNoMatches, "", "no matches for %s", "TLB")

	assert.Len(t, c.Records(), 3)
	assert.Equal(t, 2, c.Count(Warning))
	assert.Equal(t, 1, c.Count(Info))
	assert.Len(t, c.Filter(CodeNoMatches), 1)
	assert.Equal(t, "[unresolved-attribute] system.cpu.dcache: cannot locate attribute tags.block_size",
		c.Filter(CodeUnresolved)[0].String())
}

func TestCollector_EchoRespectsThreshold(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(WithLogger(log.New(&buf, "", 0), Warning))

	c.Infof(CodeAttribute, "system", "quiet")
	c.Warnf(CodeCounter, "system.mem", "missing %s", "num_reads::total")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), `level=warning code=unresolved-counter path=system.mem msg="missing num_reads::total"`)
	assert.Len(t, c.Records(), 2)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "unknown", Severity(9).String())
}
