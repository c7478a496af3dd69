// Package pool keeps reusable resources with explicit create, reset and
// destroy hooks.
package pool

import "sync"

// Config holds the lifecycle hooks of a Pool. New is required.
type Config[T comparable] struct {
	New       func() T
	OnGet     func(T)
	OnRelease func(T)
	OnDestroy func(T)

	// InitialSize items are created and parked up front.
	InitialSize int
	// MaxSize caps the number of parked items; extra releases are destroyed.
	// Zero means unbounded.
	MaxSize int
}

// Pool hands out items to at most one owner at a time.
type Pool[T comparable] struct {
	mu     sync.Mutex
	cfg    Config[T]
	idle   []T
	inUse  map[T]struct{}
	closed bool
}

// New creates a pool and prewarms InitialSize items.
func New[T comparable](cfg Config[T]) *Pool[T] {
	p := new(Pool[T])
	p.cfg = cfg
	p.inUse = make(map[T]struct{})
	for i := 0; i < cfg.InitialSize; i++ {
		item := cfg.New()
		if cfg.OnRelease != nil {
			cfg.OnRelease(item)
		}
		p.park(item)
	}
	return p
}

func (p *Pool[T]) park(item T) {
	if p.cfg.MaxSize > 0 && len(p.idle) >= p.cfg.MaxSize {
		if p.cfg.OnDestroy != nil {
			p.cfg.OnDestroy(item)
		}
		return
	}
	p.idle = append(p.idle, item)
}

// Get returns a parked item, or a new one if none are parked.
func (p *Pool[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()

	var item T
	if n := len(p.idle); n > 0 {
		item = p.idle[n-1]
		var zero T
		p.idle[n-1] = zero
		p.idle = p.idle[:n-1]
	} else {
		item = p.cfg.New()
	}
	p.inUse[item] = struct{}{}
	if p.cfg.OnGet != nil {
		p.cfg.OnGet(item)
	}
	return item
}

// Release returns an item to the pool. Releasing an item that is not in
// use is a no-op and reports false.
func (p *Pool[T]) Release(item T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inUse[item]; !ok {
		return false
	}
	delete(p.inUse, item)
	if p.cfg.OnRelease != nil {
		p.cfg.OnRelease(item)
	}
	if p.closed {
		if p.cfg.OnDestroy != nil {
			p.cfg.OnDestroy(item)
		}
		return true
	}
	p.park(item)
	return true
}

// Owned reports whether item is currently handed out.
func (p *Pool[T]) Owned(item T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inUse[item]
	return ok
}

// InUse returns the number of items handed out.
func (p *Pool[T]) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

// Idle returns the number of parked items.
func (p *Pool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close destroys every parked and in-use item. The pool stays usable for
// Release, which becomes a no-op for destroyed items.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.OnDestroy != nil {
		for _, item := range p.idle {
			p.cfg.OnDestroy(item)
		}
		for item := range p.inUse {
			p.cfg.OnDestroy(item)
		}
	}
	p.idle = nil
	p.inUse = make(map[T]struct{})
	p.closed = true
}
