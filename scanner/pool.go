package scanner

import (
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Submit once Shutdown has been called.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Pool runs submitted tasks on a fixed set of goroutines fed from one
// unbounded FIFO queue. A Pool serves a single scan.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	head    int
	stopped bool

	workers sync.WaitGroup
	once    sync.Once
}

// NewPool starts workers goroutines. Values below 1 start one worker.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)

	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

// Submit enqueues task without waiting for a free worker.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// Shutdown stops accepting work and blocks until every queued and running
// task has finished. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		p.cond.Broadcast()
	})
	p.workers.Wait()
}

func (p *Pool) loop() {
	defer p.workers.Done()
	for {
		task, ok := p.next()
		if !ok {
			return
		}
		task()
	}
}

// next blocks until a task is available. It reports false only when the
// pool is stopped and the queue is drained.
func (p *Pool) next() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for !p.stopped && p.head == len(p.queue) {
		p.cond.Wait()
	}
	if p.head == len(p.queue) {
		return nil, false
	}

	task := p.queue[p.head]
	p.queue[p.head] = nil
	p.head++
	if p.head == len(p.queue) {
		p.queue = p.queue[:0]
		p.head = 0
	}
	return task, true
}
