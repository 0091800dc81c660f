// Package worker fans jobs out to per-key loops that share one concurrency
// semaphore. One loop per key keeps a conversation's jobs strictly ordered
// while different conversations proceed in parallel.
package worker

import (
	"context"
	"sync"
)

// Pool owns the per-key job loops. Loops are created lazily on first
// Enqueue and live until the pool context is cancelled.
type Pool[K comparable, J any] struct {
	ctx    context.Context
	sem    chan struct{}
	buffer int
	handle func(context.Context, J)

	mu    sync.Mutex
	loops map[K]chan J
}

func NewPool[K comparable, J any](ctx context.Context, concurrency, buffer int, handle func(context.Context, J)) *Pool[K, J] {
	if concurrency <= 0 {
		concurrency = 1
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &Pool[K, J]{
		ctx:    ctx,
		sem:    make(chan struct{}, concurrency),
		buffer: buffer,
		handle: handle,
		loops:  make(map[K]chan J),
	}
}

// Enqueue hands one job to the key's loop, starting the loop on first use.
// It blocks while the loop's buffer is full and fails once either context
// is cancelled.
func (p *Pool[K, J]) Enqueue(ctx context.Context, key K, job J) error {
	p.mu.Lock()
	jobs, ok := p.loops[key]
	if !ok {
		jobs = make(chan J, p.buffer)
		p.loops[key] = jobs
		go p.run(jobs)
	}
	p.mu.Unlock()

	if ctx == nil {
		ctx = p.ctx
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	case jobs <- job:
		return nil
	}
}

func (p *Pool[K, J]) run(jobs <-chan J) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			select {
			case p.sem <- struct{}{}:
			case <-p.ctx.Done():
				return
			}
			p.handle(p.ctx, job)
			<-p.sem
		}
	}
}
