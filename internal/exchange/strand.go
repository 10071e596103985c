package exchange

import (
	"log"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Strand serializes tasks onto a shared worker pool: tasks posted to one
// strand run in post order, never concurrently, while independent strands
// progress in parallel on the pool's workers. Between tasks the strand
// yields its worker, so a busy strand never pins one for longer than a
// single task.
type Strand struct {
	pool *ants.Pool

	mu      sync.Mutex
	queue   []func()
	running bool
}

// NewStrand creates a strand over the given pool.
func NewStrand(pool *ants.Pool) *Strand {
	return &Strand{pool: pool}
}

// Post enqueues a task. If the strand is idle, a driver is submitted to the
// pool. Posting to a released pool silently drops the task, matching the
// pool's own drop-on-shutdown behavior.
func (s *Strand) Post(task func()) {
	s.mu.Lock()
	s.queue = append(s.queue, task)
	start := !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	if start {
		s.dispatch()
	}
}

// dispatch hands the driver to the pool, unwinding the running flag if the
// pool no longer accepts work.
func (s *Strand) dispatch() {
	if err := s.pool.Submit(s.runNext); err != nil {
		s.mu.Lock()
		s.queue = nil
		s.running = false
		s.mu.Unlock()
	}
}

// runNext executes exactly one queued task, then either resubmits itself or
// marks the strand idle.
func (s *Strand) runNext() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.running = false
		s.mu.Unlock()
		return
	}
	task := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()

	runRecovered(task)

	s.mu.Lock()
	if len(s.queue) > 0 {
		s.mu.Unlock()
		s.dispatch()
		return
	}
	s.running = false
	s.mu.Unlock()
}

// runRecovered executes a task, containing panics so one bad task cannot
// stall the strand.
func runRecovered(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("strand task panic: %v", r)
		}
	}()
	task()
}
