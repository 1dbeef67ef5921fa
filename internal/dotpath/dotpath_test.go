package dotpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.True(t, Parse("").IsEmpty())
	assert.Equal(t, []string{"system", "chip", "dcache"}, Parse("system.chip.dcache").Segments())
	assert.Equal(t, []string{"a", "b"}, Parse("a..b.").Segments())
}

func TestPath_ChildDoesNotAlias(t *testing.T) {
	base := Parse("system.chip")
	a := base.Parent().Child("x")
	b := base.Parent().Child("y")

	assert.Equal(t, "system.x", a.String())
	assert.Equal(t, "system.y", b.String())
	assert.Equal(t, "system.chip", base.String())
}

func TestPath_Navigation(t *testing.T) {
	p := New("system", "cpu", "dcache")

	assert.Equal(t, "system", p.First())
	assert.Equal(t, "dcache", p.Last())
	assert.Equal(t, "system.cpu", p.Parent().String())
	assert.True(t, New("x").Parent().IsEmpty())
	assert.True(t, p.HasPrefix(New("system", "cpu")))
	assert.False(t, p.HasPrefix(New("system", "chip")))
	assert.True(t, p.Equal(Parse("system.cpu.dcache")))
	assert.Equal(t, "system.cpu.dcache.tags", p.Join(New("tags")).String())
}

func TestPath_TextRoundTrip(t *testing.T) {
	var p Path
	assert.NoError(t, p.UnmarshalText([]byte("a.b")))
	b, err := p.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "a.b", string(b))
}
