package binder

import (
	"time"

	"github.com/kbinder/go-binder/internal/parcel"
	"github.com/kbinder/go-binder/internal/remoteobj"
)

// RemoteObject is a proxy for an object hosted in another process,
// reached through the handle the kernel assigned it in this process.
type RemoteObject struct {
	inner *remoteobj.RemoteObject
	ipc   *Ipc
}

// Handle returns the kernel-assigned handle this proxy addresses.
func (r *RemoteObject) Handle() uint32 { return r.inner.Handle() }

// Dead reports whether this object's peer has gone away.
func (r *RemoteObject) Dead() bool { return r.inner.Dead() }

// AddDeathHandler registers a callback invoked each time this object
// transitions to dead: once, unless Reanimate revives it and it dies
// again.
func (r *RemoteObject) AddDeathHandler(h func(*RemoteObject)) {
	r.inner.AddDeathHandler(func(*remoteobj.RemoteObject) { h(r) })
}

// Reanimate re-acquires a dead handle and re-requests death
// notification, per spec.md §9's literal reanimation semantics.
func (r *RemoteObject) Reanimate() error {
	return WrapError("REANIMATE", r.inner.Reanimate())
}

// Release drops this process's strong reference to the remote object.
func (r *RemoteObject) Release() error {
	return WrapError("RELEASE", r.inner.Release())
}

// Transact issues a blocking sync call against this object and returns
// the decoded reply. A dead object short-circuits with ErrCodeDeadObject
// and performs no I/O.
func (r *RemoteObject) Transact(code uint32, req *RemoteRequest) (*RemoteReply, error) {
	start := time.Now()
	reader, status, err := r.ipc.engine.TransactSyncReply(r.inner, code, req.w)
	latency := uint64(time.Since(start).Nanoseconds())

	success := err == nil && status == 0
	if r.ipc.observer != nil {
		r.ipc.observer.ObserveTransaction(latency, false, success)
	}
	if err != nil {
		return nil, WrapError("TRANSACT", err)
	}
	if status != 0 {
		return nil, NewStatusError("TRANSACT", r.Handle(), status)
	}
	return &RemoteReply{r: reader, ipc: r.ipc}, nil
}

// TransactOneway issues a fire-and-forget call, returning once the
// kernel acknowledges delivery but before any reply, if one is ever
// sent, arrives.
func (r *RemoteObject) TransactOneway(code uint32, req *RemoteRequest) error {
	start := time.Now()
	err := r.ipc.engine.TransactSyncOneway(r.inner, code, req.w)
	latency := uint64(time.Since(start).Nanoseconds())

	if r.ipc.observer != nil {
		r.ipc.observer.ObserveTransaction(latency, true, err == nil)
	}
	if err != nil {
		return WrapError("TRANSACT_ONEWAY", err)
	}
	return nil
}

// AsyncCallback receives the decoded reply (nil on error) and status of
// a TransactAsync call.
type AsyncCallback func(reply *RemoteReply, status int32)

// TransactAsync issues the call from a dedicated goroutine and invokes
// onReply once a reply arrives; onDone always runs afterward. It
// returns a call ID usable with CancelAsync.
func (r *RemoteObject) TransactAsync(code uint32, req *RemoteRequest, onReply AsyncCallback, onDone func()) uint64 {
	start := time.Now()
	return r.ipc.engine.TransactAsync(r.inner, code, req.w,
		func(reader *parcel.Reader, status int32) {
			latency := uint64(time.Since(start).Nanoseconds())
			success := reader != nil && status == 0
			if r.ipc.observer != nil {
				r.ipc.observer.ObserveAsync(latency, false, success)
			}
			var reply *RemoteReply
			if reader != nil {
				reply = &RemoteReply{r: reader, ipc: r.ipc}
			}
			if onReply != nil {
				onReply(reply, status)
			}
		},
		func() {
			if onDone != nil {
				onDone()
			}
		},
	)
}

// CancelAsync detaches callID's callback; the underlying kernel
// transaction still completes, but its reply is discarded.
func (r *RemoteObject) CancelAsync(callID uint64) {
	r.ipc.engine.Cancel(callID)
}
