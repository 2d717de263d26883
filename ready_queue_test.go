package uthread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyQueueFIFO(t *testing.T) {
	var rq readyQueue
	require.True(t, rq.empty(), "new queue should be empty")
	rq.enqueue(3)
	rq.enqueue(1)
	rq.enqueue(4)

	want := []int{3, 1, 4}
	for _, w := range want {
		require.Equal(t, w, rq.dequeue())
	}
	assert.True(t, rq.empty(), "queue should be empty after draining")
	assert.Equal(t, -1, rq.dequeue(), "dequeue() on empty queue")
}

func TestReadyQueueWraps(t *testing.T) {
	var rq readyQueue
	// Push and pop enough times to wrap the backing array more than once.
	for round := 0; round < MaxThreadNum*3; round++ {
		rq.enqueue(round % MaxThreadNum)
		require.Equal(t, round%MaxThreadNum, rq.dequeue())
	}
}
