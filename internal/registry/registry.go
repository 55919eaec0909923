// Package registry implements the Object Registry: the single place
// that guarantees at most one RemoteObj wrapper exists per (device,
// handle) pair, and that a LocalObj can be found back by the kernel
// cookie it was registered under.
package registry

import (
	"fmt"
	"sync"

	"github.com/kbinder/go-binder/internal/driver"
	"github.com/kbinder/go-binder/internal/interfaces"
)

// RemoteFactory builds a RemoteObj for a freshly acquired handle. The
// registry owns uniqueness; construction itself is left to the caller
// (internal/remoteobj) to avoid an import cycle.
type RemoteFactory func(handle uint32) interfaces.RemoteObj

// Registry is the Object Registry described by the component design:
// a handle→RemoteObj map, a pointer→LocalObj map, and a creation-in-
// flight set that serializes races on the same handle.
type Registry struct {
	mu      sync.Mutex
	driver  *driver.Driver
	remotes map[uint32]interfaces.RemoteObj
	cookies map[uint64]interfaces.RemoteObj
	locals  map[uint64]interfaces.LocalObj
	pending map[uint32]chan struct{}
	factory RemoteFactory
}

// New creates a Registry bound to one Driver. factory constructs the
// RemoteObj wrapper for a handle the registry decides to create.
func New(d *driver.Driver, factory RemoteFactory) *Registry {
	return &Registry{
		driver:  d,
		remotes: make(map[uint32]interfaces.RemoteObj),
		cookies: make(map[uint64]interfaces.RemoteObj),
		locals:  make(map[uint64]interfaces.LocalObj),
		pending: make(map[uint32]chan struct{}),
		factory: factory,
	}
}

// GetRemote returns the unique RemoteObj wrapper for handle. If one
// already exists it is returned directly. Otherwise, when mayCreate is
// true, the registry issues BC_ACQUIRE and BC_REQUEST_DEATH_NOTIFICATION
// for the handle and installs a new wrapper; concurrent callers racing
// on the same handle block on the winner and receive its wrapper.
func (r *Registry) GetRemote(handle uint32, mayCreate bool) (interfaces.RemoteObj, error) {
	for {
		r.mu.Lock()
		if ro, ok := r.remotes[handle]; ok {
			r.mu.Unlock()
			return ro, nil
		}
		if !mayCreate {
			r.mu.Unlock()
			return nil, nil
		}
		if wait, inFlight := r.pending[handle]; inFlight {
			r.mu.Unlock()
			<-wait
			continue
		}
		done := make(chan struct{})
		r.pending[handle] = done
		r.mu.Unlock()

		ro, err := r.createRemote(handle, done)
		return ro, err
	}
}

func (r *Registry) createRemote(handle uint32, done chan struct{}) (interfaces.RemoteObj, error) {
	defer func() {
		r.mu.Lock()
		delete(r.pending, handle)
		r.mu.Unlock()
		close(done)
	}()

	if err := r.driver.Acquire(handle); err != nil {
		return nil, fmt.Errorf("registry: acquire handle %d: %w", handle, err)
	}
	ro := r.factory(handle)
	if err := r.driver.RequestDeathNotification(handle, ro.Cookie()); err != nil {
		_ = r.driver.Release(handle)
		return nil, fmt.Errorf("registry: request death notification for %d: %w", handle, err)
	}

	r.mu.Lock()
	if existing, ok := r.remotes[handle]; ok {
		r.mu.Unlock()
		_ = r.driver.Release(handle)
		_ = r.driver.ClearDeathNotification(handle, ro.Cookie())
		return existing, nil
	}
	r.remotes[handle] = ro
	r.cookies[ro.Cookie()] = ro
	r.mu.Unlock()
	return ro, nil
}

// GetLocal returns the LocalObj registered under ptr, if any.
func (r *Registry) GetLocal(ptr uint64) (interfaces.LocalObj, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lo, ok := r.locals[ptr]
	return lo, ok
}

// GetRemoteByCookie returns the RemoteObj that was registered with the
// death-notification cookie the kernel echoes back in BR_DEAD_BINDER.
// The cookie identifies the object uniquely even across the window
// where a handle has been reused for a different object, since each
// RemoteObj wrapper mints its own cookie at construction time.
func (r *Registry) GetRemoteByCookie(cookie uint64) (interfaces.RemoteObj, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ro, ok := r.cookies[cookie]
	return ro, ok
}

// RegisterLocal makes obj visible to ReadObject decoding a
// BINDER_TYPE_BINDER flat object bearing its pointer/cookie.
func (r *Registry) RegisterLocal(obj interfaces.LocalObj) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locals[obj.Ptr()] = obj
}

// UnregisterLocal removes obj once its kernel refs and user refs both
// reach zero.
func (r *Registry) UnregisterLocal(obj interfaces.LocalObj) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locals, obj.Ptr())
}

// ReleaseRemote drops the registry's wrapper for handle and issues
// BC_RELEASE + BC_CLEAR_DEATH_NOTIFICATION, matching spec.md's
// destruction rule for the last strong ref to a RemoteObj.
func (r *Registry) ReleaseRemote(handle uint32, cookie uint64) error {
	r.mu.Lock()
	delete(r.remotes, handle)
	delete(r.cookies, cookie)
	r.mu.Unlock()

	if err := r.driver.Release(handle); err != nil {
		return err
	}
	return r.driver.ClearDeathNotification(handle, cookie)
}
