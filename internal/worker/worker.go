// Package worker runs the parallel render stage of pre-render mode.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/andresmejia3/ascivid/internal/store"
	"github.com/andresmejia3/ascivid/internal/types"
)

// QueueSize bounds how many decoded frames can wait for a worker.
const QueueSize = 64

// RenderFunc turns a decoded frame into its text form.
type RenderFunc func(types.RawFrame) string

// Stats counts what the pool did.
type Stats struct {
	Rendered int64
	Failed   int64
}

// Pool is a fixed set of workers draining a bounded queue into a FrameStore.
type Pool struct {
	size   int
	render RenderFunc
	store  store.FrameStore
	queue  chan types.FrameTask

	wg      sync.WaitGroup
	done    chan struct{}
	started atomic.Bool

	rendered atomic.Int64
	failed   atomic.Int64
}

// NewPool prepares size workers. Nothing runs until Start.
func NewPool(size int, render RenderFunc, st store.FrameStore) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:   size,
		render: render,
		store:  st,
		queue:  make(chan types.FrameTask, QueueSize),
		done:   make(chan struct{}),
	}
}

// Size is the number of workers.
func (p *Pool) Size() int { return p.size }

// Start launches the workers. They exit on their stop sentinel or when ctx is done.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			slog.Debug("worker: cancelled", "worker", id)
			return
		case task := <-p.queue:
			if task.IsStop() {
				slog.Debug("worker: stop signal received", "worker", id)
				return
			}
			if ctx.Err() != nil {
				return
			}
			p.process(ctx, id, task)
		}
	}
}

// process renders one frame. Failures stay local to the frame: they are logged and counted.
func (p *Pool) process(ctx context.Context, id int, task types.FrameTask) {
	frame, err := p.renderSafely(task)
	if err != nil {
		p.failed.Add(1)
		slog.Error("worker: render failed", "worker", id, "frame", task.Index, "error", err)
		return
	}
	if err := p.store.Put(ctx, task.Index, frame); err != nil {
		p.failed.Add(1)
		if ctx.Err() == nil {
			slog.Error("worker: store write failed", "worker", id, "frame", task.Index, "error", err)
		}
		return
	}
	p.rendered.Add(1)
}

func (p *Pool) renderSafely(task types.FrameTask) (frame string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.render(task.Frame), nil
}

// Submit queues a task, blocking while the queue is full. Nothing is queued once ctx is done.
func (p *Pool) Submit(ctx context.Context, task types.FrameTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown queues exactly one stop sentinel per worker, after all submitted work.
func (p *Pool) Shutdown(ctx context.Context) error {
	for i := 0; i < p.size; i++ {
		if err := p.Submit(ctx, types.Stop); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	if p.started.Load() {
		<-p.done
	}
}

// Done is closed once every worker has exited.
func (p *Pool) Done() <-chan struct{} { return p.done }

// Stats returns the counters so far.
func (p *Pool) Stats() Stats {
	return Stats{Rendered: p.rendered.Load(), Failed: p.failed.Load()}
}
