package binder

import (
	"sync"
	"sync/atomic"

	"github.com/kbinder/go-binder/internal/interfaces"
)

// MockRemoteObject is a mock implementation of interfaces.RemoteObj for
// testing client code against a Binder peer without a real kernel device.
// It records the transactions a test reports through RecordTransaction
// and can be marked dead; it produces no replies.
type MockRemoteObject struct {
	handle uint32
	cookie uint64
	dead   int32

	mu           sync.Mutex
	transactions int
	lastCode     uint32
	lastOneway   bool
}

// NewMockRemoteObject creates a mock remote object bound to handle.
func NewMockRemoteObject(handle uint32) *MockRemoteObject {
	return &MockRemoteObject{handle: handle, cookie: uint64(handle)<<32 | 0xfeed}
}

// Handle implements interfaces.RemoteObj.
func (m *MockRemoteObject) Handle() uint32 { return m.handle }

// Dead implements interfaces.RemoteObj.
func (m *MockRemoteObject) Dead() bool { return atomic.LoadInt32(&m.dead) != 0 }

// Cookie implements interfaces.RemoteObj.
func (m *MockRemoteObject) Cookie() uint64 { return m.cookie }

// MarkDead flips the object to dead, as a real RemoteObject is flipped on
// BR_DEAD_BINDER, or on BR_DEAD_REPLY to a oneway call.
func (m *MockRemoteObject) MarkDead() { atomic.StoreInt32(&m.dead, 1) }

// RecordTransaction lets a test harness record that code was issued
// against this mock, for later assertion via Transactions/LastCode.
func (m *MockRemoteObject) RecordTransaction(code uint32, oneway bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions++
	m.lastCode = code
	m.lastOneway = oneway
}

// Transactions returns the number of transactions recorded so far.
func (m *MockRemoteObject) Transactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions
}

// LastCode returns the most recently recorded transaction code and
// whether it was sent oneway.
func (m *MockRemoteObject) LastCode() (code uint32, oneway bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode, m.lastOneway
}

// Reset clears recorded call counts and the dead flag.
func (m *MockRemoteObject) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = 0
	m.lastCode = 0
	m.lastOneway = false
	atomic.StoreInt32(&m.dead, 0)
}

// MockLocalObject is a mock implementation of interfaces.LocalObj for
// exercising dispatch-side code (registries, death bookkeeping) without
// a real kernel-assigned pointer.
type MockLocalObject struct {
	ptr uint64

	mu      sync.Mutex
	strong  int32
	weak    int32
	dropped bool
}

// NewMockLocalObject creates a mock local object whose pointer value is
// ptr; keeping it unique is up to the caller.
func NewMockLocalObject(ptr uint64) *MockLocalObject {
	return &MockLocalObject{ptr: ptr}
}

// Ptr implements interfaces.LocalObj.
func (m *MockLocalObject) Ptr() uint64 { return m.ptr }

// IncRefsLocked mirrors localobj.LocalObject's refcount bookkeeping so
// MockLocalObject can stand in wherever a txn.Engine worker expects a
// ref-countable local object.
func (m *MockLocalObject) IncRefsLocked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weak++
}

func (m *MockLocalObject) DecRefsLocked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weak--
}

func (m *MockLocalObject) AcquireLocked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strong++
}

func (m *MockLocalObject) ReleaseLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strong--
	zero := m.strong == 0 && m.weak == 0
	if zero {
		m.dropped = true
	}
	return zero
}

// Dropped reports whether ReleaseLocked has ever observed a zero
// strong/weak count.
func (m *MockLocalObject) Dropped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Compile-time interface checks.
var (
	_ interfaces.RemoteObj = (*MockRemoteObject)(nil)
	_ interfaces.LocalObj  = (*MockLocalObject)(nil)
)
