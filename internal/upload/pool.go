package upload

import "sync"

// Pool is a fixed-size worker pool for transfer jobs. Detached uploads
// run here instead of on bare goroutines spawned from request handlers,
// so the number of concurrent provider transfers is bounded and job
// lifecycle is independent of the HTTP layer.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	once sync.Once
}

// NewPool starts workers goroutines consuming from a queue of the given
// size. Submit blocks once the queue is full, which applies natural
// backpressure to upload endpoints.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{jobs: make(chan func(), queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Submit enqueues a job. Panics if called after Stop.
func (p *Pool) Submit(job func()) {
	p.jobs <- job
}

// Stop drains the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
