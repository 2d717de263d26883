package uthread

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandQueueFIFOSingleProducer(t *testing.T) {
	q := newCommandQueue()
	for i := 0; i < 5; i++ {
		q.push(command{kind: cmdTick, tid: i})
	}
	for i := 0; i < 5; i++ {
		cmd, ok := q.pop()
		assert.True(t, ok)
		assert.Equal(t, i, cmd.tid)
	}
	_, ok := q.pop()
	assert.False(t, ok)
}

func TestCommandQueueConcurrentProducers(t *testing.T) {
	q := newCommandQueue()
	const producers, perProducer = 8, 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.push(command{kind: cmdSpawned, tid: p*perProducer + i})
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	q.drain(func(cmd command) { seen[cmd.tid] = true })
	assert.Len(t, seen, producers*perProducer)
}
