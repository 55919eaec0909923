package txn

import (
	"sync"
	"testing"

	"github.com/kbinder/go-binder/internal/interfaces"
	"github.com/kbinder/go-binder/internal/parcel"
	"github.com/stretchr/testify/assert"
)

type fakeTarget struct {
	handle uint32
	dead   bool
	mu     sync.Mutex
}

func (f *fakeTarget) Handle() uint32 { return f.handle }
func (f *fakeTarget) Cookie() uint64 { return uint64(f.handle) }
func (f *fakeTarget) Dead() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dead
}
func (f *fakeTarget) MarkDead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead = true
}

var _ interfaces.RemoteObj = (*fakeTarget)(nil)

func newTestEngine() *Engine {
	return &Engine{asyncCalls: make(map[uint64]*asyncCall)}
}

// A dead target short-circuits TransactSyncReply before any driver
// access, so this is exercisable without a real /dev/binder.
func TestTransactSyncReplyDeadTargetShortCircuits(t *testing.T) {
	e := newTestEngine()
	target := &fakeTarget{handle: 3, dead: true}

	reader, status, err := e.TransactSyncReply(target, 42, nil)
	assert.Nil(t, reader)
	assert.Equal(t, StatusESTALE, status)
	var deadErr *ErrDead
	assert.ErrorAs(t, err, &deadErr)
	assert.Equal(t, uint32(3), deadErr.Handle)
}

func TestTransactSyncOnewayDeadTargetShortCircuits(t *testing.T) {
	e := newTestEngine()
	target := &fakeTarget{handle: 9, dead: true}

	err := e.TransactSyncOneway(target, 42, nil)
	var deadErr *ErrDead
	assert.ErrorAs(t, err, &deadErr)
	assert.Equal(t, uint32(9), deadErr.Handle)
}

// TransactAsync against a dead target never touches the driver either,
// so its onReply/onDone wiring is fully exercisable here.
func TestTransactAsyncDeadTargetInvokesCallbacksWithoutDriver(t *testing.T) {
	e := newTestEngine()
	target := &fakeTarget{handle: 5, dead: true}

	var gotStatus int32
	var gotReply bool
	done := make(chan struct{})

	callID := e.TransactAsync(target, 1, nil,
		func(reply *parcel.Reader, status int32) {
			gotReply = reply != nil
			gotStatus = status
		},
		func() { close(done) },
	)
	assert.NotZero(t, callID)

	<-done
	assert.False(t, gotReply)
	assert.Equal(t, StatusESTALE, gotStatus)

	e.asyncMu.Lock()
	_, stillTracked := e.asyncCalls[callID]
	e.asyncMu.Unlock()
	assert.False(t, stillTracked)
}

func TestCancelUnknownCallIDIsNoop(t *testing.T) {
	e := newTestEngine()
	assert.NotPanics(t, func() { e.Cancel(9999) })
}

func TestCancelMarksCallCancelled(t *testing.T) {
	e := newTestEngine()
	e.asyncMu.Lock()
	e.asyncCalls[1] = &asyncCall{}
	e.asyncMu.Unlock()

	e.Cancel(1)

	e.asyncMu.Lock()
	call := e.asyncCalls[1]
	e.asyncMu.Unlock()
	assert.Equal(t, int32(1), call.cancelled)
}
