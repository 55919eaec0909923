package binder

import (
	"github.com/kbinder/go-binder/internal/localobj"
	"github.com/kbinder/go-binder/internal/parcel"
)

// LocalHandler processes one incoming transaction against a LocalObject
// for a code not answered by a built-in (PING/INTERFACE/descriptor
// queries). A nil reply with non-zero status is serialized back to the
// caller as a transaction-error parcel.
type LocalHandler func(ipc *Ipc, code uint32, flags uint32, req *LocalRequest) (reply *LocalReply, status int32)

// LocalObject is an object this process exposes to others: an ordered
// interface-descriptor list plus a user handler.
type LocalObject struct {
	inner *localobj.LocalObject
}

// NewLocalObject creates a LocalObject exposing ifaces (most-derived
// interface first), dispatched to handler for any transaction code not
// answered by a built-in. ifaces and handler are bound to ipc's wire
// codec.
func NewLocalObject(ipc *Ipc, ifaces []string, handler LocalHandler) *LocalObject {
	adapted := func(code, flags uint32, req *parcel.Reader) (*parcel.Writer, int32) {
		reply, status := handler(ipc, code, flags, &LocalRequest{r: req, ipc: ipc})
		if reply == nil {
			return nil, status
		}
		return reply.w, status
	}
	return &LocalObject{inner: localobj.New(ifaces, adapted, ipc.IO())}
}

// Ptr is the opaque cookie identifying this object to the kernel.
func (o *LocalObject) Ptr() uint64 { return o.inner.Ptr() }

// CanHandle reports whether this object can answer code claimed under
// iface, and how. iface is empty for transactions that carry no RPC
// header.
func (o *LocalObject) CanHandle(iface string, code uint32) localobj.Disposition {
	return o.inner.CanHandle(iface, code)
}
