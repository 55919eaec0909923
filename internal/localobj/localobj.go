// Package localobj implements Local Object Dispatch: the side of
// Binder that answers transactions directed at an object this process
// exposes to others, including the built-in PING/INTERFACE/
// GET_DESCRIPTOR/DESCRIPTOR_CHAIN transactions every object answers
// without involving user code.
package localobj

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/kbinder/go-binder/internal/interfaces"
	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/parcel"
	"github.com/kbinder/go-binder/internal/uapi"
)

// Disposition is the result of can_handle: whether, and how, an
// incoming transaction code should be delivered.
type Disposition int

const (
	// NotSupported means no handler nor built-in answers this code.
	NotSupported Disposition = iota
	// Supported means the user handler should run on a worker.
	Supported
	// Looper means the answer is static and cheap enough to compute
	// inline on the looper thread without involving the worker pool.
	Looper
)

// Handler processes one incoming transaction for an object and returns
// a reply parcel plus a status code. A nil reply with non-zero status
// is serialized back to the caller as a transaction-error parcel.
type Handler func(code uint32, flags uint32, req *parcel.Reader) (reply *parcel.Writer, status int32)

// LocalObject is an object this process exposes to others: an ordered
// interface-descriptor list plus a user Handler, with strong/weak
// counts mirroring what the kernel believes it holds.
type LocalObject struct {
	interfaces_ []string
	handler     Handler
	io          ioabi.Io

	mu     sync.Mutex
	strong int32
	weak   int32
}

// New creates a LocalObject exposing ifaces, dispatched to handler for
// any transaction code not answered by a built-in.
func New(ifaces []string, handler Handler, io ioabi.Io) *LocalObject {
	return &LocalObject{interfaces_: append([]string(nil), ifaces...), handler: handler, io: io}
}

// Ptr is the opaque cookie identifying this object to the kernel: its
// own address, matching RemoteObject's convention.
func (o *LocalObject) Ptr() uint64 {
	return uint64(uintptr(unsafe.Pointer(o)))
}

func isBuiltin(code uint32) bool {
	switch code {
	case uapi.AIDL_PING_TRANSACTION, uapi.AIDL_INTERFACE_TRANSACTION,
		uapi.HIDL_PING_TRANSACTION, uapi.HIDL_GET_DESCRIPTOR_TRANSACTION,
		uapi.HIDL_DESCRIPTOR_CHAIN_TRANSACTION:
		return true
	default:
		return false
	}
}

// supportsInterface reports whether iface is one this object declared,
// or iface is empty (no RPC header on the wire, as with most of the
// built-in meta-transactions).
func (o *LocalObject) supportsInterface(iface string) bool {
	if iface == "" {
		return true
	}
	for _, candidate := range o.interfaces_ {
		if candidate == iface {
			return true
		}
	}
	return false
}

// CanHandle computes the dispatch disposition for code against iface,
// the interface name the caller claimed in its RPC header (empty if the
// transaction carried none, as with AIDL's headerless PING). An object
// never answers under an interface it doesn't expose, built-in or not.
func (o *LocalObject) CanHandle(iface string, code uint32) Disposition {
	if !o.supportsInterface(iface) {
		return NotSupported
	}
	if isBuiltin(code) {
		return Looper
	}
	if o.handler != nil {
		return Supported
	}
	return NotSupported
}

// Dispatch runs the built-in or user handler for code and returns the
// reply payload bytes ready to send back as a BC_REPLY, along with the
// status to report.
func (o *LocalObject) Dispatch(code, flags uint32, req *parcel.Reader) (payload []byte, status int32) {
	switch code {
	case uapi.AIDL_PING_TRANSACTION, uapi.HIDL_PING_TRANSACTION:
		return o.replyPing()
	case uapi.AIDL_INTERFACE_TRANSACTION:
		return o.replyDescriptor()
	case uapi.HIDL_GET_DESCRIPTOR_TRANSACTION:
		return o.replyHidlDescriptor()
	case uapi.HIDL_DESCRIPTOR_CHAIN_TRANSACTION:
		return o.replyDescriptorChain()
	}

	if o.handler == nil {
		return nil, -int32(syscall.EINVAL)
	}
	w, st := o.handler(code, flags, req)
	if w == nil {
		return nil, st
	}
	p, _, _ := w.Finish()
	return p, st
}

// replyPing answers S1: a bare status=0 parcel, no interface name
// attached (PING carries no descriptor either direction).
func (o *LocalObject) replyPing() ([]byte, int32) {
	return []byte{0, 0, 0, 0}, 0
}

// replyDescriptor answers S2: a single String16 naming this object's
// primary (first-listed) interface. This is AIDL's INTERFACE_TRANSACTION
// reply, a bare headerless String16.
func (o *LocalObject) replyDescriptor() ([]byte, int32) {
	w := parcel.NewWriter(o.io)
	w.String16(o.primaryInterface())
	p, _, _ := w.Finish()
	return p, 0
}

// replyHidlDescriptor answers HIDL's GET_DESCRIPTOR_TRANSACTION, whose
// reply is int32(status) followed by a hidl_string, not AIDL's bare
// String16 (unit_local_object.c's test_custom_iface parses it with
// read_int32 then read_hidl_string).
func (o *LocalObject) replyHidlDescriptor() ([]byte, int32) {
	w := parcel.NewWriter(o.io)
	w.Int32(0)
	w.HidlString(o.primaryInterface())
	p, _, _ := w.Finish()
	return p, 0
}

func (o *LocalObject) primaryInterface() string {
	if len(o.interfaces_) > 0 {
		return o.interfaces_[0]
	}
	return ""
}

// replyDescriptorChain answers S3: a hidl_vec<hidl_string> listing every
// supported interface, most-derived first, in declaration order.
func (o *LocalObject) replyDescriptorChain() ([]byte, int32) {
	w := parcel.NewWriter(o.io)
	w.HidlVec(len(o.interfaces_), func(i int) {
		w.HidlString(o.interfaces_[i])
	})
	p, _, _ := w.Finish()
	return p, 0
}

// IncRefsLocked increments the kernel-visible weak count, called by the
// looper when BR_INCREFS is delivered for this object.
func (o *LocalObject) IncRefsLocked() {
	o.mu.Lock()
	defer o.mu.Unlock()
	atomic.AddInt32(&o.weak, 1)
}

// DecRefsLocked decrements the kernel-visible weak count.
func (o *LocalObject) DecRefsLocked() {
	o.mu.Lock()
	defer o.mu.Unlock()
	atomic.AddInt32(&o.weak, -1)
}

// AcquireLocked increments the kernel-visible strong count, called when
// BR_ACQUIRE is delivered.
func (o *LocalObject) AcquireLocked() {
	o.mu.Lock()
	defer o.mu.Unlock()
	atomic.AddInt32(&o.strong, 1)
}

// ReleaseLocked decrements the kernel-visible strong count and reports
// whether both strong and weak counts have reached zero, the signal the
// registry uses to decide whether an object on the drop-pending list can
// finally be freed.
func (o *LocalObject) ReleaseLocked() (zero bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	atomic.AddInt32(&o.strong, -1)
	return atomic.LoadInt32(&o.strong) == 0 && atomic.LoadInt32(&o.weak) == 0
}

var _ interfaces.LocalObj = (*LocalObject)(nil)
