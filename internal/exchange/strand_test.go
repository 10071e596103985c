package exchange

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
)

func newTestPool(t *testing.T, size int) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(size)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Release)
	return pool
}

func TestStrandFIFO(t *testing.T) {
	pool := newTestPool(t, 4)
	s := NewStrand(pool)

	const n = 1000
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		s.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestStrandNeverConcurrent(t *testing.T) {
	pool := newTestPool(t, 8)
	s := NewStrand(pool)

	var active, maxActive int32
	var wg sync.WaitGroup
	const n = 200
	wg.Add(n)

	for i := 0; i < n; i++ {
		s.Post(func() {
			cur := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if cur <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, cur) {
					break
				}
			}
			time.Sleep(50 * time.Microsecond)
			atomic.AddInt32(&active, -1)
			wg.Done()
		})
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Fatalf("max concurrent tasks = %d, want 1", got)
	}
}

func TestStrandsRunInParallel(t *testing.T) {
	pool := newTestPool(t, 4)
	a := NewStrand(pool)
	b := NewStrand(pool)

	start := make(chan struct{})
	aInside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	a.Post(func() {
		<-start
		close(aInside)
		<-release
	})
	b.Post(func() {
		<-start
		close(done)
	})

	close(start)
	<-aInside
	// strand a is blocked; strand b must still make progress
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("independent strand starved by a blocked sibling")
	}
	close(release)
}

func TestStrandSurvivesPanic(t *testing.T) {
	pool := newTestPool(t, 2)
	s := NewStrand(pool)

	ran := make(chan struct{})
	s.Post(func() { panic("boom") })
	s.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task after panic never ran")
	}
}

func TestStrandDropsAfterPoolRelease(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	s := NewStrand(pool)

	var wg sync.WaitGroup
	wg.Add(1)
	s.Post(wg.Done)
	wg.Wait()

	pool.Release()

	// must not panic or block; the task is silently dropped
	s.Post(func() { t.Error("task ran after pool release") })
	time.Sleep(50 * time.Millisecond)
}
