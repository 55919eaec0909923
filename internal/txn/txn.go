// Package txn implements the Transaction Engine: the looper thread that
// drains incoming kernel events, the worker pool that runs local-object
// handlers, and the three call flavors (sync-reply, sync-oneway, async)
// client code issues against a RemoteObject.
package txn

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/kbinder/go-binder/internal/driver"
	"github.com/kbinder/go-binder/internal/interfaces"
	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/localobj"
	"github.com/kbinder/go-binder/internal/parcel"
	"github.com/kbinder/go-binder/internal/protocol"
	"github.com/kbinder/go-binder/internal/registry"
	"github.com/kbinder/go-binder/internal/uapi"
)

const defaultWorkers = 2

// ErrDead is returned when a call targets a RemoteObj whose dead flag
// is already set; per spec.md §7 this short-circuits without any I/O.
type ErrDead struct{ Handle uint32 }

func (e *ErrDead) Error() string { return fmt.Sprintf("txn: handle %d is dead", e.Handle) }

// StatusESTALE is the status value returned to callers of a dead object,
// matching the kernel's own convention for a stale handle.
const StatusESTALE int32 = -116

// AsyncCallback receives the reply (nil on error) and status of an async
// transact() call, invoked from the goroutine TransactAsync starts for it.
type AsyncCallback func(reply *parcel.Reader, status int32)

// DoneCallback is invoked once an async call's callback has either run
// or been discarded due to cancellation.
type DoneCallback func()

// Dispatcher resolves an incoming transaction's target object and runs
// its handler; internal/localobj.LocalObject satisfies this directly.
type Dispatcher interface {
	Dispatch(code, flags uint32, req *parcel.Reader) (payload []byte, status int32)
}

// InterfaceChecker is the subset of internal/localobj.LocalObject's
// surface the looper consults to validate the interface a non-built-in
// transaction's RPC header claims before letting Dispatch run against
// it (spec.md §4.5's can_handle(interface, code)).
type InterfaceChecker interface {
	CanHandle(iface string, code uint32) localobj.Disposition
}

type asyncCall struct {
	onReply    AsyncCallback
	onDone     DoneCallback
	cancelled  int32
}

// Engine owns the looper goroutine, the worker pool, and in-flight
// async call bookkeeping for one Ipc.
type Engine struct {
	driver   *driver.Driver
	io       ioabi.Io
	protocol protocol.Protocol
	registry *registry.Registry
	logger   interfaces.Logger
	observer interfaces.Observer

	workCh  chan driver.Event
	workers int32
	wg      sync.WaitGroup

	stopCh chan struct{}
	fatal  int32

	nextCallID uint64
	asyncMu    sync.Mutex
	asyncCalls map[uint64]*asyncCall
}

// New builds an Engine bound to d; it does not start any goroutines
// until Start is called. proto selects how incoming RPC headers on
// non-built-in transactions are parsed for interface validation.
func New(d *driver.Driver, proto protocol.Protocol, reg *registry.Registry, logger interfaces.Logger, observer interfaces.Observer) *Engine {
	return &Engine{
		driver:     d,
		io:         d.Io(),
		protocol:   proto,
		registry:   reg,
		logger:     logger,
		observer:   observer,
		workCh:     make(chan driver.Event, 64),
		stopCh:     make(chan struct{}),
		asyncCalls: make(map[uint64]*asyncCall),
	}
}

// Start launches the looper thread and a worker pool of the given size
// (zero selects defaultWorkers).
func (e *Engine) Start(workers int) error {
	if workers <= 0 {
		workers = defaultWorkers
	}
	for i := 0; i < workers; i++ {
		e.spawnWorker()
	}
	e.wg.Add(1)
	go e.loop()
	return nil
}

// Stop exits the looper and drains the worker pool.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

func (e *Engine) spawnWorker() {
	atomic.AddInt32(&e.workers, 1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for ev := range e.workCh {
			e.handleWorkerEvent(ev)
		}
	}()
}

// loop is the single looper thread: it registers with the kernel via
// enter_looper, then repeatedly reads and dispatches events until
// exit_looper is requested or a transport error occurs. A transport
// error here is fatal per spec.md §7: the looper exits and every
// outstanding sync call will observe DeadReply on its own next read.
func (e *Engine) loop() {
	defer e.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := e.driver.EnterLooper(); err != nil {
		e.logger.Error("enter_looper failed", "err", err)
		atomic.StoreInt32(&e.fatal, 1)
		return
	}

	readBuf := make([]byte, 4096)
	for {
		select {
		case <-e.stopCh:
			_ = e.driver.ExitLooper()
			return
		default:
		}

		_, readConsumed, err := e.driver.WriteRead(nil, readBuf)
		if err != nil {
			e.logger.Error("looper WriteRead failed", "err", err)
			atomic.StoreInt32(&e.fatal, 1)
			return
		}
		events, err := driver.DecodeEvents(readBuf[:readConsumed], e.io)
		if err != nil {
			e.logger.Error("failed to decode BR stream", "err", err)
			continue
		}
		for _, ev := range events {
			e.dispatchLooperEvent(ev)
		}
	}
}

func (e *Engine) dispatchLooperEvent(ev driver.Event) {
	switch ev.Kind {
	case driver.EventSpawnLooper:
		e.spawnWorker()
	case driver.EventTransactionComplete, driver.EventNoop, driver.EventFinished:
		// nothing to do at the looper level
	default:
		select {
		case e.workCh <- ev:
		default:
			e.logger.Warn("worker queue full, dropping event", "kind", ev.Kind)
		}
	}
}

func (e *Engine) handleWorkerEvent(ev driver.Event) {
	switch ev.Kind {
	case driver.EventIncomingTransaction:
		e.handleIncomingTransaction(ev)
	case driver.EventDeadBinder:
		if ro, ok := e.registry.GetRemoteByCookie(ev.Cookie); ok {
			if d, ok := ro.(interface{ MarkDead() }); ok {
				d.MarkDead()
			}
		} else {
			e.logger.Warn("BR_DEAD_BINDER for unknown cookie", "cookie", ev.Cookie)
		}
		if e.observer != nil {
			e.observer.ObserveDeath()
		}
	case driver.EventAcquireResult, driver.EventReply, driver.EventDeadReply, driver.EventTransactionError:
		// replies arriving here belong to a sync caller's own read loop
		// in the common case; if the looper observes one instead (the
		// caller thread hadn't started reading yet), it's dropped, same
		// as libbinder treats a reply with no waiting thread as an error.
		e.logger.Warn("unmatched reply-class event observed off the caller thread", "kind", ev.Kind)
	case driver.EventIncRefs, driver.EventAcquire, driver.EventRelease, driver.EventDecRefs:
		e.handleRefEvent(ev)
	case driver.EventClearDeathNotificationDone:
	}
}

func (e *Engine) handleRefEvent(ev driver.Event) {
	lo, ok := e.registry.GetLocal(ev.Ptr)
	if !ok {
		return
	}
	type refCounter interface {
		IncRefsLocked()
		DecRefsLocked()
		AcquireLocked()
		ReleaseLocked() bool
	}
	rc, ok := lo.(refCounter)
	if !ok {
		return
	}
	switch ev.Kind {
	case driver.EventIncRefs:
		rc.IncRefsLocked()
		_ = e.driver.IncRefsDone(ev.Ptr, ev.Cookie)
	case driver.EventAcquire:
		rc.AcquireLocked()
		_ = e.driver.AcquireDone(ev.Ptr, ev.Cookie)
	case driver.EventRelease:
		rc.ReleaseLocked()
	case driver.EventDecRefs:
		rc.DecRefsLocked()
	}
}

func (e *Engine) handleIncomingTransaction(ev driver.Event) {
	if e.observer != nil {
		e.observer.ObserveIncoming(ev.Code, isBuiltinCode(ev.Code))
	}
	lo, ok := e.registry.GetLocal(ev.TargetPtr)
	if !ok {
		e.logger.Warn("incoming transaction for unknown local object", "ptr", ev.TargetPtr)
		return
	}
	disp, ok := lo.(Dispatcher)
	if !ok {
		return
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ev.BufferPtr))), ev.BufferSize)
	offsets := decodeOffsets(ev.OffsetsPtr, ev.OffsetsLen)
	reader := parcel.NewReader(e.io, data, offsets, e.registry)

	if !isBuiltinCode(ev.Code) {
		if checker, ok := lo.(InterfaceChecker); ok {
			iface, err := e.protocol.ReadHeader(reader)
			if err != nil {
				e.logger.Warn("failed to parse RPC header", "code", ev.Code, "err", err)
				if ev.Flags&uapi.TF_ONE_WAY == 0 {
					_ = e.sendReply(nil, -int32(syscall.EBADMSG))
				}
				_ = e.driver.FreeBuffer(ev.BufferPtr)
				return
			}
			if checker.CanHandle(iface, ev.Code) == localobj.NotSupported {
				e.logger.Warn("rejecting transaction for unclaimed interface", "iface", iface, "code", ev.Code)
				if ev.Flags&uapi.TF_ONE_WAY == 0 {
					_ = e.sendReply(nil, -int32(syscall.EBADMSG))
				}
				_ = e.driver.FreeBuffer(ev.BufferPtr)
				return
			}
		}
	}

	payload, status := disp.Dispatch(ev.Code, ev.Flags, reader)

	if ev.Flags&uapi.TF_ONE_WAY == 0 {
		_ = e.sendReply(payload, status)
	}
	_ = e.driver.FreeBuffer(ev.BufferPtr)
}

func isBuiltinCode(code uint32) bool {
	switch code {
	case uapi.AIDL_PING_TRANSACTION, uapi.AIDL_INTERFACE_TRANSACTION,
		uapi.HIDL_PING_TRANSACTION, uapi.HIDL_GET_DESCRIPTOR_TRANSACTION,
		uapi.HIDL_DESCRIPTOR_CHAIN_TRANSACTION:
		return true
	}
	return false
}

func decodeOffsets(ptr uint64, byteLen uint64) []uint64 {
	if byteLen == 0 {
		return nil
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), byteLen)
	n := int(byteLen / 8)
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return out
}

func (e *Engine) sendReply(payload []byte, status int32) error {
	var td ioabi.TransactionData
	if payload == nil && status != 0 {
		td.Flags = uapi.TF_STATUS_CODE
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(status))
		td.DataSize = uint64(len(buf))
		td.DataBuffer = uint64(uintptr(unsafe.Pointer(&buf[0])))
		return e.writeCommand(uapi.BC_REPLY, e.io.MarshalTransaction(td))
	}
	if len(payload) > 0 {
		td.DataSize = uint64(len(payload))
		td.DataBuffer = uint64(uintptr(unsafe.Pointer(&payload[0])))
	}
	return e.writeCommand(uapi.BC_REPLY, e.io.MarshalTransaction(td))
}

func (e *Engine) writeCommand(cmd uint32, operand []byte) error {
	buf := make([]byte, 4+len(operand))
	binary.LittleEndian.PutUint32(buf, cmd)
	copy(buf[4:], operand)
	_, _, err := e.driver.WriteRead(buf, nil)
	return err
}
