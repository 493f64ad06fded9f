package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkrenn/clubwatch/internal/keys"
)

func TestViewShowsBindingsAndPollingNote(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)

	out := m.View()

	assert.Contains(t, out, "Keys")
	assert.Contains(t, out, "polls the server on its own")
	// Full help mode lists secondary bindings, not just the short row.
	assert.Contains(t, out, "settings")
}

func TestSetSizeResizesHelp(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.SetSize(60, 20)

	assert.Equal(t, 60, m.width)
	assert.Equal(t, 56, m.help.Width)
}
