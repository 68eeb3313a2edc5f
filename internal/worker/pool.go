package worker

import (
	"sync"
)

type Job func()

// Pool is a fixed-size worker pool with a bounded queue. The reminder
// scanner uses it so a burst of due tasks cannot fan out an unbounded
// number of webhook requests.
type Pool struct {
	maxWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	quit       chan struct{}
}

// queueCap bounds the number of pending jobs; Submit rejects beyond it.
const queueCap = 100

func NewPool(maxWorkers int) *Pool {
	p := &Pool{
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueCap),
		quit:       make(chan struct{}),
	}
	p.start()
	return p
}

func (p *Pool) start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case job, ok := <-p.jobQueue:
					if !ok {
						return
					}
					job()
				case <-p.quit:
					return
				}
			}
		}()
	}
}

// Submit enqueues a job without blocking. It reports false when the
// queue is full, leaving the caller to decide whether to retry or drop.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

func (p *Pool) Shutdown() {
	close(p.quit)
	p.wg.Wait()
}
