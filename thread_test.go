package uthread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAllocReusesLowestSlot(t *testing.T) {
	tb := newTable()
	tb.slots[0].state = Running

	a := tb.alloc()
	require.Equal(t, 1, a)
	tb.slots[a].state = Ready

	b := tb.alloc()
	require.Equal(t, 2, b)
	tb.slots[b].state = Ready

	tb.slots[a].reset(a)
	c := tb.alloc()
	assert.Equal(t, a, c, "a reclaimed slot should be reused before higher-numbered ones")
}

func TestTableAllocExhausted(t *testing.T) {
	tb := newTable()
	for i := 1; i < MaxThreadNum; i++ {
		tb.slots[i].state = Ready
	}
	assert.Equal(t, -1, tb.alloc())
}

func TestTableGetRejectsUnusedAndOutOfRange(t *testing.T) {
	tb := newTable()
	_, ok := tb.get(5)
	assert.False(t, ok, "an UNUSED slot is not a live thread")

	tb.slots[5].state = Blocked
	rec, ok := tb.get(5)
	require.True(t, ok)
	assert.Equal(t, 5, rec.tid)

	_, ok = tb.get(-1)
	assert.False(t, ok)
	_, ok = tb.get(MaxThreadNum)
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "UNUSED", Unused.String())
	assert.Equal(t, "READY", Ready.String())
	assert.Equal(t, "RUNNING", Running.String())
	assert.Equal(t, "BLOCKED", Blocked.String())
	assert.Equal(t, "TERMINATED", Terminated.String())
	assert.Equal(t, "INVALID", State(99).String())
}
