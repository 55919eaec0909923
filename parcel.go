package binder

import "github.com/kbinder/go-binder/internal/parcel"

// RemoteRequest is an outgoing parcel being built for a call against a
// RemoteObject. Client.NewRequest pre-fills it with the interface's RPC
// header; zero-value RemoteRequests are only valid once header-written
// by the Protocol in use.
type RemoteRequest struct{ w *parcel.Writer }

// NewRemoteRequest creates an empty outgoing parcel for ipc's wire
// codec, with no RPC header. Most callers should build requests
// through a Client, which pre-fills the header; NewRemoteRequest is
// for transactions against well-known objects (PING, and the
// context manager's raw handle-0 protocol) that carry no header.
func NewRemoteRequest(ipc *Ipc) *RemoteRequest {
	return &RemoteRequest{w: parcel.NewWriter(ipc.IO())}
}

func (r *RemoteRequest) Int32(v int32)          { r.w.Int32(v) }
func (r *RemoteRequest) Int64(v int64)          { r.w.Int64(v) }
func (r *RemoteRequest) Bytes(b []byte)         { r.w.Bytes(b) }
func (r *RemoteRequest) String8(s string)       { r.w.String8(s) }
func (r *RemoteRequest) String16(s string)      { r.w.String16(s) }
func (r *RemoteRequest) HidlString(s string)    { r.w.HidlString(s) }
func (r *RemoteRequest) HidlVec(count int, writeElem func(i int)) {
	r.w.HidlVec(count, writeElem)
}
func (r *RemoteRequest) RemoteObject(obj *RemoteObject) { r.w.RemoteObject(obj.inner) }
func (r *RemoteRequest) LocalObject(obj *LocalObject)   { r.w.LocalObject(obj.inner) }
func (r *RemoteRequest) Fd(fd int, dup func(int) (int, error)) error {
	return r.w.Fd(fd, dup)
}

// RemoteReply is the decoded parcel returned by a successful call
// against a RemoteObject.
type RemoteReply struct {
	r   *parcel.Reader
	ipc *Ipc
}

func (r *RemoteReply) Int32() (int32, error)       { return r.r.Int32() }
func (r *RemoteReply) Int64() (int64, error)       { return r.r.Int64() }
func (r *RemoteReply) Bytes(n int) ([]byte, error) { return r.r.Bytes(n) }
func (r *RemoteReply) String8(n int) (string, error) {
	return r.r.String8(n)
}
func (r *RemoteReply) String16() (string, error)   { return r.r.String16() }
func (r *RemoteReply) HidlString() (string, error) { return r.r.HidlString() }
func (r *RemoteReply) HidlVec(readElem func(i int) error) (int, error) {
	return r.r.HidlVec(readElem)
}

// ReadObject decodes the next flat binder object recorded in this reply
// into either a RemoteObject or a LocalObject proxy, depending on
// whether the sender handed over a handle or one of our own pointers
// being passed back.
func (r *RemoteReply) ReadObject() (*RemoteObject, *LocalObject, error) {
	ro, lo, err := r.r.ReadObject()
	if err != nil {
		return nil, nil, err
	}
	return r.ipc.wrapRemote(ro), r.ipc.wrapLocal(lo), nil
}

// LocalRequest is the decoded incoming parcel for a transaction
// dispatched against a LocalObject.
type LocalRequest struct {
	r   *parcel.Reader
	ipc *Ipc
}

func (r *LocalRequest) Int32() (int32, error)       { return r.r.Int32() }
func (r *LocalRequest) Int64() (int64, error)       { return r.r.Int64() }
func (r *LocalRequest) Bytes(n int) ([]byte, error) { return r.r.Bytes(n) }
func (r *LocalRequest) String8(n int) (string, error) {
	return r.r.String8(n)
}
func (r *LocalRequest) String16() (string, error)   { return r.r.String16() }
func (r *LocalRequest) HidlString() (string, error) { return r.r.HidlString() }
func (r *LocalRequest) HidlVec(readElem func(i int) error) (int, error) {
	return r.r.HidlVec(readElem)
}

func (r *LocalRequest) ReadObject() (*RemoteObject, *LocalObject, error) {
	ro, lo, err := r.r.ReadObject()
	if err != nil {
		return nil, nil, err
	}
	return r.ipc.wrapRemote(ro), r.ipc.wrapLocal(lo), nil
}

// LocalReply is the outgoing parcel a LocalHandler builds in answer to
// an incoming transaction.
type LocalReply struct{ w *parcel.Writer }

// NewLocalReply creates an empty reply parcel for the given Ipc's wire
// codec.
func NewLocalReply(ipc *Ipc) *LocalReply {
	return &LocalReply{w: parcel.NewWriter(ipc.IO())}
}

func (r *LocalReply) Int32(v int32)       { r.w.Int32(v) }
func (r *LocalReply) Int64(v int64)       { r.w.Int64(v) }
func (r *LocalReply) Bytes(b []byte)      { r.w.Bytes(b) }
func (r *LocalReply) String8(s string)    { r.w.String8(s) }
func (r *LocalReply) String16(s string)   { r.w.String16(s) }
func (r *LocalReply) HidlString(s string) { r.w.HidlString(s) }
func (r *LocalReply) HidlVec(count int, writeElem func(i int)) {
	r.w.HidlVec(count, writeElem)
}
func (r *LocalReply) RemoteObject(obj *RemoteObject) { r.w.RemoteObject(obj.inner) }
func (r *LocalReply) LocalObject(obj *LocalObject)   { r.w.LocalObject(obj.inner) }
