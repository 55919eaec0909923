package txn

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/kbinder/go-binder/internal/driver"
	"github.com/kbinder/go-binder/internal/interfaces"
	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/parcel"
	"github.com/kbinder/go-binder/internal/uapi"
)

// TransactSyncReply issues BC_TRANSACTION against target and blocks the
// calling goroutine — pinned to its OS thread for the duration, since
// the kernel associates a pending call with the thread that issued it —
// until a matching Reply, DeadReply, or TransactionError arrives. Events
// unrelated to this call (incoming transactions, ref ops) are forwarded
// to the worker pool.
func (e *Engine) TransactSyncReply(target interfaces.RemoteObj, code uint32, req *parcel.Writer) (*parcel.Reader, int32, error) {
	if target.Dead() {
		return nil, StatusESTALE, &ErrDead{Handle: target.Handle()}
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := e.sendTransaction(target.Handle(), code, 0, req); err != nil {
		return nil, 0, err
	}
	return e.waitForReply(target)
}

// TransactSyncOneway issues BC_TRANSACTION with TF_ONE_WAY set and waits
// only for TransactionComplete, not a Reply.
func (e *Engine) TransactSyncOneway(target interfaces.RemoteObj, code uint32, req *parcel.Writer) error {
	if target.Dead() {
		return &ErrDead{Handle: target.Handle()}
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := e.sendTransaction(target.Handle(), code, uapi.TF_ONE_WAY, req); err != nil {
		return err
	}

	readBuf := make([]byte, 4096)
	for {
		_, readConsumed, err := e.driver.WriteRead(nil, readBuf)
		if err != nil {
			return fmt.Errorf("txn: oneway read: %w", err)
		}
		events, err := driver.DecodeEvents(readBuf[:readConsumed], e.io)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if ev.Kind == driver.EventTransactionComplete {
				return nil
			}
			if ev.Kind == driver.EventDeadReply {
				if d, ok := target.(interface{ MarkDead() }); ok {
					d.MarkDead()
				}
				return &ErrDead{Handle: target.Handle()}
			}
			e.forwardOrHandle(ev)
		}
	}
}

func (e *Engine) waitForReply(target interfaces.RemoteObj) (*parcel.Reader, int32, error) {
	readBuf := make([]byte, 4096)
	for {
		_, readConsumed, err := e.driver.WriteRead(nil, readBuf)
		if err != nil {
			return nil, 0, fmt.Errorf("txn: sync read: %w", err)
		}
		events, err := driver.DecodeEvents(readBuf[:readConsumed], e.io)
		if err != nil {
			return nil, 0, err
		}
		for _, ev := range events {
			switch ev.Kind {
			case driver.EventReply:
				data := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ev.BufferPtr))), ev.BufferSize)
				offsets := decodeOffsets(ev.OffsetsPtr, ev.OffsetsLen)
				return parcel.NewReader(e.io, data, offsets, e.registry), 0, nil
			case driver.EventDeadReply:
				return nil, StatusESTALE, nil
			case driver.EventTransactionError:
				return nil, ev.Status, nil
			case driver.EventTransactionComplete:
				// one-way ack preceding the real reply for this call; keep reading
			default:
				e.forwardOrHandle(ev)
			}
		}
	}
}

func (e *Engine) forwardOrHandle(ev driver.Event) {
	select {
	case e.workCh <- ev:
	default:
		e.handleWorkerEvent(ev)
	}
}

func (e *Engine) sendTransaction(handle, code, flags uint32, w *parcel.Writer) error {
	var payload []byte
	var offsets []uint64
	var fds []int
	if w != nil {
		payload, offsets, fds = w.Finish()
	}

	td := ioabi.TransactionData{TargetHandle: uint64(handle), Code: code, Flags: flags}
	if len(payload) > 0 {
		td.DataSize = uint64(len(payload))
		td.DataBuffer = uint64(uintptr(unsafe.Pointer(&payload[0])))
	}
	if len(offsets) > 0 {
		offBuf := make([]byte, 8*len(offsets))
		for i, off := range offsets {
			binary.LittleEndian.PutUint64(offBuf[i*8:], off)
		}
		td.OffsetsSize = uint64(len(offBuf))
		td.DataOffsets = uint64(uintptr(unsafe.Pointer(&offBuf[0])))
	}
	err := e.writeCommand(uapi.BC_TRANSACTION, e.io.MarshalTransaction(td))
	// the kernel holds its own reference to each fd once the write returns
	for _, fd := range fds {
		_ = syscall.Close(fd)
	}
	return err
}

// TransactAsync issues the transaction from a dedicated goroutine and
// invokes onReply from that same goroutine once a Reply/DeadReply/
// TransactionError arrives; onDone always runs afterward, whether the
// call completed or was cancelled. It returns a call ID usable with
// Cancel.
func (e *Engine) TransactAsync(target interfaces.RemoteObj, code uint32, req *parcel.Writer, onReply AsyncCallback, onDone DoneCallback) uint64 {
	callID := atomic.AddUint64(&e.nextCallID, 1)
	call := &asyncCall{onReply: onReply, onDone: onDone}

	e.asyncMu.Lock()
	e.asyncCalls[callID] = call
	e.asyncMu.Unlock()

	go func() {
		defer func() {
			e.asyncMu.Lock()
			delete(e.asyncCalls, callID)
			e.asyncMu.Unlock()
			if call.onDone != nil {
				call.onDone()
			}
		}()

		reply, status, err := e.TransactSyncReply(target, code, req)
		if atomic.LoadInt32(&call.cancelled) != 0 {
			return
		}
		if err != nil {
			if call.onReply != nil {
				call.onReply(nil, status)
			}
			return
		}
		if call.onReply != nil {
			call.onReply(reply, status)
		}
	}()

	return callID
}

// Cancel detaches callID's callback; the underlying kernel transaction
// still completes, but its reply (if any) is discarded.
func (e *Engine) Cancel(callID uint64) {
	e.asyncMu.Lock()
	defer e.asyncMu.Unlock()
	if c, ok := e.asyncCalls[callID]; ok {
		atomic.StoreInt32(&c.cancelled, 1)
	}
}
