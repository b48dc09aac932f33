package chatclient

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSetEvictsOldest(t *testing.T) {
	t.Parallel()

	s := newSeenSet(3)
	assert.True(t, s.add("a"))
	assert.False(t, s.add("a"))
	assert.True(t, s.add("b"))
	assert.True(t, s.add("c"))
	assert.True(t, s.add("d"))

	assert.False(t, s.has("a"), "oldest id evicted")
	assert.True(t, s.has("b"))
	assert.True(t, s.has("d"))
	assert.Equal(t, 3, s.len())

	assert.True(t, s.add("e"))
	assert.False(t, s.has("b"))
	assert.True(t, s.has("c"))

	for i := range 1000 {
		s.add(fmt.Sprintf("m%d", i))
	}
	assert.Equal(t, 3, s.len())
	assert.True(t, s.has("m999"))
	assert.False(t, s.has("m996"))
}

func TestClientSeenCapacity(t *testing.T) {
	t.Parallel()

	c, err := New(Config{BaseURL: "http://localhost:8080", Room: "R1", UserID: "A", SeenCapacity: 2}, Handlers{})
	assert.NoError(t, err)
	c.Remember("m1", "m2", "m3")
	assert.False(t, c.Seen("m1"))
	assert.True(t, c.Seen("m3"))

	c, err = New(Config{BaseURL: "http://localhost:8080", Room: "R1", UserID: "A"}, Handlers{})
	assert.NoError(t, err)
	assert.Equal(t, DefaultSeenCapacity, c.cfg.SeenCapacity)
}
