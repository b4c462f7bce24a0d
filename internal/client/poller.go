package client

import (
	"context"
	"sync"
	"time"
)

// Poller re-fetches on an interval. Starting a fetch cancels the one in flight, and a
// result is delivered only if no newer fetch has started since.
type Poller[T any] struct {
	fetch    func(context.Context) (T, error)
	interval time.Duration
	deliver  func(T, error)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller[T any](interval time.Duration, fetch func(context.Context) (T, error), deliver func(T, error)) *Poller[T] {
	if interval <= 0 {
		interval = 8 * time.Second
	}
	return &Poller[T]{fetch: fetch, interval: interval, deliver: deliver}
}

// Run fetches immediately and then on every tick until ctx is done.
func (p *Poller[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			if p.cancel != nil {
				p.cancel()
			}
			p.mu.Unlock()
			p.wg.Wait()
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh starts a fetch that supersedes any in flight.
func (p *Poller[T]) Refresh(ctx context.Context) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		v, err := p.fetch(fctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen || fctx.Err() != nil {
			return
		}
		p.deliver(v, err)
	}()
}
