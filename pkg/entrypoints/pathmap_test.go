package entrypoints

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMap(t *testing.T) {
	m := NewPathMap()
	m.Record("welcome/index.js", "welcome-1e67239d.js")
	m.Record("assets/theme.scss", "theme-44b5be96.css")
	m.Record("_theme-44b5be96.css", "theme-44b5be96.css")

	out, ok := m.Lookup("welcome/index.js")
	assert.True(t, ok)
	assert.Equal(t, "welcome-1e67239d.js", out)

	_, ok = m.Lookup("missing.js")
	assert.False(t, ok)

	// first recorded source wins on reverse lookup
	src, ok := m.ReverseLookup("theme-44b5be96.css")
	assert.True(t, ok)
	assert.Equal(t, "assets/theme.scss", src)

	_, ok = m.ReverseLookup("nothing.css")
	assert.False(t, ok)

	// re-recording overwrites and keeps the original position
	m.Record("welcome/index.js", "welcome-ffffffff.js")
	out, _ = m.Lookup("welcome/index.js")
	assert.Equal(t, "welcome-ffffffff.js", out)
	assert.Equal(t, 3, m.Len())

	m.Reset()
	assert.Equal(t, 0, m.Len())
	_, ok = m.ReverseLookup("theme-44b5be96.css")
	assert.False(t, ok)
}
