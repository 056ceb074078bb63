package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asteroids-server/internal/protocol"
)

func rec(seq uint64) protocol.InputMsg {
	return protocol.InputMsg{Sequence: seq, Timestamp: int64(seq) * 16}
}

func TestInputBufferRejectsStaleSequences(t *testing.T) {
	b := NewInputBuffer(10)

	ok, _ := b.Push(rec(1), 0)
	assert.True(t, ok)
	ok, _ = b.Push(rec(3), 0)
	assert.True(t, ok)

	ok, _ = b.Push(rec(3), 0)
	assert.False(t, ok, "duplicate")
	ok, _ = b.Push(rec(2), 0)
	assert.False(t, ok, "out of order")
	assert.Equal(t, 2, b.Len())
}

func TestInputBufferEvictsOldest(t *testing.T) {
	b := NewInputBuffer(3)
	for i := uint64(1); i <= 3; i++ {
		_, evicted := b.Push(rec(i), 0)
		assert.False(t, evicted)
	}
	_, evicted := b.Push(rec(4), 0)
	assert.True(t, evicted)
	assert.Equal(t, 3, b.Len())

	var seen []uint64
	b.Drain(func(m protocol.InputMsg) { seen = append(seen, m.Sequence) })
	assert.Equal(t, []uint64{2, 3, 4}, seen)
}

func TestInputBufferDrainOnce(t *testing.T) {
	b := NewInputBuffer(10)
	b.Push(rec(1), 0)
	b.Push(rec(2), 0)

	require.Equal(t, 2, b.Drain(func(protocol.InputMsg) {}))
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 0, b.Drain(func(protocol.InputMsg) { t.Fatal("reprocessed") }))

	b.Push(rec(3), 0)
	var seen []uint64
	b.Drain(func(m protocol.InputMsg) { seen = append(seen, m.Sequence) })
	assert.Equal(t, []uint64{3}, seen)
}

func TestInputBufferPrune(t *testing.T) {
	b := NewInputBuffer(10)
	b.Push(rec(1), 0)
	b.Push(rec(2), 500)
	b.Drain(func(protocol.InputMsg) {})
	b.Push(rec(3), 0) // unprocessed, kept regardless of age

	b.Prune(1200, 1000)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 1, b.Pending())

	b.Prune(5000, 1000)
	assert.Equal(t, 1, b.Len())
}
