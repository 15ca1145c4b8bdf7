package queue

import (
	"context"
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

		got, ok := q.Dequeue()
		assert.True(ok)
		assert.Same(item1, got)
		assert.Equal(1, q.Length())

		got, ok = q.Dequeue()
		assert.True(ok)
		assert.Same(item2, got)
		assert.True(q.IsEmpty())

		_, ok = q.Dequeue()
		assert.False(ok)
	})

	t.Run("Zero values are items", func(t *testing.T) {
		q := NewLockFreeQueue[int]()
		q.Enqueue(0)

		v, ok := q.Dequeue()
		assert.True(ok)
		assert.Equal(0, v)
	})

	t.Run("Peek", func(t *testing.T) {
		q := NewLockFreeQueue[*msgItem]()

		item1 := &msgItem{"data1"}
		item2 := &msgItem{"data2"}
		q.Enqueue(item1)

		got, _ := q.Peek()
		assert.Same(item1, got)
		assert.Equal(1, q.Length()) // Length should not change after peek

		q.Enqueue(item2)
		got, _ = q.Peek()
		assert.Same(item1, got)

		q.Dequeue()
		got, _ = q.Peek()
		assert.Same(item2, got)

		q.Dequeue()
		_, ok := q.Peek()
		assert.False(ok)
	})

	t.Run("Reset", func(t *testing.T) {
		q := NewLockFreeQueue[int]()
		q.Enqueue(1)
		q.Enqueue(2)
		q.Reset()

		assert.True(q.IsEmpty())
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

	t.Run("Per-producer FIFO", func(t *testing.T) {
		q := NewLockFreeQueue[[2]int]()

		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 250; i++ {
					q.Enqueue([2]int{p, i})
				}
			}(p)
		}
		wg.Wait()

		last := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
		for {
			v, ok := q.Dequeue()
			if !ok {
				break
			}
			assert.Equal(last[v[0]]+1, v[1])
			last[v[0]] = v[1]
		}
	})
}

func BenchmarkLockFreeQueue_100(b *testing.B) {
	benchLockFreeQueue(b, 100)
}

func BenchmarkChannelBuffered_100(b *testing.B) {
	benchChannel(b, 100)
}

func benchLockFreeQueue(b *testing.B, iterCount int) {
	ctx := context.Background()
	q := NewLockFreeQueue[int]()

	b.ResetTimer()
	for i := 0; i <= b.N; i++ {
		stopCh := make(chan struct{})
		go func(ctx context.Context, q Queue[int]) {
			for {
				select {
				case <-ctx.Done():
					return
				default:
					item, ok := q.Dequeue()
					if ok && item == iterCount {
						close(stopCh)
						return
					}
				}
			}
		}(ctx, q)

		for i := 0; i < iterCount; i++ {
			q.Enqueue(i + 1)
		}
		<-stopCh
	}
	b.StopTimer()
}

func benchChannel(b *testing.B, iterCount int) {
	input := make(chan int, iterCount)

	b.ResetTimer()
	for i := 0; i <= b.N; i++ {
		stopCh := make(chan struct{})
		go func() {
			for data := range input {
				if data == iterCount {
					close(stopCh)
					return
				}
			}
		}()

		for i := 0; i < iterCount; i++ {
			input <- (i + 1)
		}
		<-stopCh
	}
	b.StopTimer()
}
