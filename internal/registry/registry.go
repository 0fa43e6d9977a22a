// Package registry owns the process-wide lifecycle of the four named
// cache slots: LocalMachine and UserAccount are persistent, Secure is
// encrypted, InMemory never touches disk. Applications look caches up
// by slot name instead of constructing and threading them
// individually.
package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/akavache-go/akavache/internal/cache"
)

// Slot names the four standard cache roles an application can request.
type Slot string

const (
	LocalMachine Slot = "local-machine"
	UserAccount  Slot = "user-account"
	Secure       Slot = "secure"
	InMemory     Slot = "in-memory"
)

// Factory builds the Cache for a slot on first request. Registry calls
// it at most once per slot.
type Factory func() (cache.Cache, error)

// Registry holds lazily-constructed, named cache instances and
// coordinates shutting them all down together.
type Registry struct {
	mu        sync.Mutex
	factories map[Slot]Factory
	instances map[Slot]cache.Cache

	shutdownRequested atomic.Bool
}

// New creates an empty Registry. Register a Factory for each slot an
// application intends to use before calling Get.
func New() *Registry {
	return &Registry{
		factories: make(map[Slot]Factory),
		instances: make(map[Slot]cache.Cache),
	}
}

// Register installs the Factory used to build slot's cache the first
// time it's requested. Registering a slot twice replaces the prior
// factory; it has no effect on an instance already built.
func (r *Registry) Register(slot Slot, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[slot] = factory
}

// Get returns slot's cache, building it via its registered Factory on
// first use. Get fails once Shutdown has been called.
func (r *Registry) Get(slot Slot) (cache.Cache, error) {
	if r.shutdownRequested.Load() {
		return nil, fmt.Errorf("registry: shutdown already requested")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.instances[slot]; ok {
		return c, nil
	}
	factory, ok := r.factories[slot]
	if !ok {
		return nil, fmt.Errorf("registry: no factory registered for slot %q", slot)
	}
	c, err := factory()
	if err != nil {
		return nil, fmt.Errorf("registry: build slot %q: %w", slot, err)
	}
	r.instances[slot] = c
	return c, nil
}

// Shutdown flushes and closes every cache instance built so far,
// blocking until all of them finish or ctx is cancelled. Subsequent
// calls to Get fail. Shutdown is safe to call more than once; later
// calls are no-ops.
func (r *Registry) Shutdown(ctx context.Context) error {
	if !r.shutdownRequested.CompareAndSwap(false, true) {
		return nil
	}

	r.mu.Lock()
	instances := make([]cache.Cache, 0, len(r.instances))
	for _, c := range r.instances {
		instances = append(instances, c)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, len(instances))
	for i, c := range instances {
		wg.Add(1)
		go func(i int, c cache.Cache) {
			defer wg.Done()
			if err := c.Flush(ctx); err != nil {
				errs[i] = err
				return
			}
			errs[i] = c.Close()
		}(i, c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
