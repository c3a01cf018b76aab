package queue

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type msgItem struct {
	Data string
}

func TestLockFreeQueue(t *testing.T) {
	assert := assert.New(t)
	t.Run("Empty Queue", func(t *testing.T) {
		q := NewLockFreeQueue[*msgItem]()

		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())

		item, ok := q.Dequeue()
		assert.False(ok)
		assert.Nil(item)

		item, ok = q.Peek()
		assert.False(ok)
		assert.Nil(item)
	})

	t.Run("Enqueue and Dequeue", func(t *testing.T) {
		q := NewLockFreeQueue[*msgItem]()

		item1 := &msgItem{"data1"}
		q.Enqueue(item1)
		assert.False(q.IsEmpty())
		assert.Equal(1, q.Length())

		item2 := &msgItem{"data2"}
		q.Enqueue(item2)
		assert.Equal(2, q.Length())

		dequeuedItem1, ok := q.Dequeue()
		assert.True(ok)
		assert.Equal(item1, dequeuedItem1)
		assert.Equal(1, q.Length())

		dequeuedItem2, ok := q.Dequeue()
		assert.True(ok)
		assert.Equal(item2, dequeuedItem2)
		assert.True(q.IsEmpty())

		dequeuedItem3, ok := q.Dequeue()
		assert.False(ok)
		assert.Nil(dequeuedItem3)
		assert.True(q.IsEmpty())
	})

	t.Run("Peek", func(t *testing.T) {
		q := NewLockFreeQueue[*msgItem]()

		item1 := &msgItem{"data1"}
		item2 := &msgItem{"data2"}
		q.Enqueue(item1)

		peeked, ok := q.Peek()
		assert.True(ok)
		assert.Equal(item1, peeked)
		assert.Equal(1, q.Length()) // Length should not change after peek

		q.Enqueue(item2)

		peeked, ok = q.Peek()
		assert.True(ok)
		assert.Equal(item1, peeked)
		assert.Equal(2, q.Length())

		q.Dequeue()
		peeked, ok = q.Peek()
		assert.True(ok)
		assert.Equal(item2, peeked)
		assert.Equal(1, q.Length())

		q.Dequeue()
		_, ok = q.Peek()
		assert.False(ok)
		assert.Equal(0, q.Length())
	})

	t.Run("Value Types", func(t *testing.T) {
		q := NewLockFreeQueue[[]byte]()

		q.Enqueue([]byte("abc"))
		q.Enqueue(nil)

		data, ok := q.Dequeue()
		assert.True(ok)
		assert.Equal([]byte("abc"), data)

		// a nil payload is still a queued item
		data, ok = q.Dequeue()
		assert.True(ok)
		assert.Nil(data)

		assert.True(q.IsEmpty())
	})

	t.Run("Reset", func(t *testing.T) {
		q := NewLockFreeQueue[*msgItem]()

		q.Enqueue(&msgItem{"data1"})
		q.Enqueue(&msgItem{"data2"})
		assert.Equal(2, q.Length())

		q.Reset()
		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())

		_, ok := q.Dequeue()
		assert.False(ok)
	})

	t.Run("Concurrency", func(t *testing.T) {
		q := NewLockFreeQueue[*msgItem]()

		var wg sync.WaitGroup
		for i := 0; i < 1000; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				q.Enqueue(&msgItem{strconv.Itoa(i)})
			}(i)
		}
		wg.Wait()

		assert.Equal(1000, q.Length())

		wg.Add(1000)
		for i := 0; i < 1000; i++ {
			go func() {
				defer wg.Done()
				q.Dequeue()
			}()
		}
		wg.Wait()

		assert.True(q.IsEmpty())
	})
}

func BenchmarkLockFreeQueue_100(b *testing.B) {
	benchLockFreeQueue(b, 100)
}

func BenchmarkChannelUnbuffered_100(b *testing.B) {
	benchChannel(b, 100, false)
}

func BenchmarkChannelBuffered_100(b *testing.B) {
	benchChannel(b, 100, true)
}

func benchLockFreeQueue(b *testing.B, iterCount int) {
	q := NewLockFreeQueue[int]()

	// warm up queue
	for i := 0; i < iterCount; i++ {
		q.Enqueue(i)
	}

	for i := 0; i < iterCount; i++ {
		_, _ = q.Dequeue()
	}

	b.ResetTimer()
	for i := 0; i <= b.N; i++ {
		stopCh := make(chan struct{})
		go func(q Queue[int]) {
			for {
				item, ok := q.Dequeue()
				if !ok {
					continue
				}
				if item == iterCount {
					close(stopCh)
					return
				}
			}
		}(q)

		for i := 0; i < iterCount; i++ {
			q.Enqueue(i + 1)
		}
		<-stopCh
	}
	b.StopTimer()
}

func benchChannel(b *testing.B, iterCount int, buffered bool) {
	var input chan int
	if buffered {
		input = make(chan int, iterCount)
	} else {
		input = make(chan int)
	}
	b.ResetTimer()
	for i := 0; i <= b.N; i++ {
		stopCh := make(chan struct{})
		go func(input chan int) {
			for data := range input {
				if data == iterCount {
					close(stopCh)
					return
				}
			}
		}(input)

		for i := 0; i < iterCount; i++ {
			input <- (i + 1)
		}
		<-stopCh
	}
	b.StopTimer()
}
