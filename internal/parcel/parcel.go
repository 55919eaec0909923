// Package parcel implements the Binder wire format: a payload byte
// array, a parallel offset array marking where flat-object headers sit,
// and an auxiliary region for variable-sized subobjects. It mirrors the
// read/write split the kernel itself enforces — writers only append,
// readers only advance.
package parcel

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"

	"github.com/kbinder/go-binder/internal/driver"
	"github.com/kbinder/go-binder/internal/interfaces"
	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/uapi"
)

var (
	// ErrShortRead is returned by any Reader method that runs past the
	// end of the payload. The cursor is left where the failure occurred,
	// matching the "false and no rollback" behavior callers depend on.
	ErrShortRead = errors.New("parcel: short read")
	// ErrObjectMismatch is returned when ReadObject is called but the
	// cursor does not sit on the next recorded offset-array entry.
	ErrObjectMismatch = errors.New("parcel: cursor does not match next object offset")
	// ErrBadString is returned for malformed length prefixes or missing
	// NUL/UTF-16 termination.
	ErrBadString = errors.New("parcel: malformed string")
)

func align4(n int) int {
	return (n + 3) &^ 3
}

// Writer builds an outgoing parcel by appending fields. It never
// rewrites or removes bytes once written.
type Writer struct {
	io      ioabi.Io
	data    []byte
	offsets []uint64
	fds     []int
}

// NewWriter creates an empty writer using io to encode flat objects.
func NewWriter(io ioabi.Io) *Writer {
	return &Writer{io: io}
}

func (w *Writer) pad() {
	for len(w.data)%4 != 0 {
		w.data = append(w.data, 0)
	}
}

// Int32 appends a little-endian 4-byte signed integer.
func (w *Writer) Int32(v int32) {
	w.pad()
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	w.data = append(w.data, b...)
}

// Int64 appends a little-endian 8-byte signed integer.
func (w *Writer) Int64(v int64) {
	w.pad()
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	w.data = append(w.data, b...)
}

// Bytes appends buf verbatim, padded to a 4-byte boundary, with no
// length prefix of its own (callers that need one write it separately).
func (w *Writer) Bytes(buf []byte) {
	w.pad()
	w.data = append(w.data, buf...)
	w.pad()
}

// String8 appends a UTF-8 string with a NUL terminator, 4-byte padded.
func (w *Writer) String8(s string) {
	w.Bytes(append([]byte(s), 0))
}

// String16 appends a length-prefixed UTF-16LE string, matching
// libbinder's String16 wire representation: an int32 character count
// (not counting the terminator) followed by that many UTF-16 code
// units plus a trailing NUL, 4-byte padded.
func (w *Writer) String16(s string) {
	units := utf16.Encode([]rune(s))
	w.Int32(int32(len(units)))
	w.pad()
	b := make([]byte, 2*(len(units)+1))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	w.data = append(w.data, b...)
	w.pad()
}

// HidlString appends a HIDL hidl_string as UTF-8 with an explicit
// length: an int32 byte count followed inline by the bytes, a NUL and
// 4-byte padding. No separate buffer object is written for the string
// data.
func (w *Writer) HidlString(s string) {
	w.Int32(int32(len(s)))
	w.String8(s)
}

// HidlVec appends a hidl_vec<T> header (an int32 element count) followed
// by each element written through writeElem. Callers are responsible for
// any nested auxiliary-buffer bookkeeping their element type needs.
func (w *Writer) HidlVec(count int, writeElem func(i int)) {
	w.Int32(int32(count))
	for i := 0; i < count; i++ {
		writeElem(i)
	}
}

// LocalObject writes a strong BINDER_TYPE_BINDER flat object referring
// to obj and increments its kernel-visible strong count, per spec
// invariant 3 (matched by the kernel's corresponding BR_RELEASE).
func (w *Writer) LocalObject(obj interfaces.LocalObj) {
	w.pad()
	fo := ioabi.FlatObject{
		Type:           uapi.BINDER_TYPE_BINDER,
		HandleOrBinder: obj.Ptr(),
		Cookie:         obj.Ptr(),
	}
	w.writeFlatObject(fo)
	if rc, ok := obj.(interface{ AcquireLocked() }); ok {
		rc.AcquireLocked()
	}
}

// RemoteObject writes a BINDER_TYPE_HANDLE flat object referring to the
// remote proxy's handle.
func (w *Writer) RemoteObject(obj interfaces.RemoteObj) {
	w.pad()
	fo := ioabi.FlatObject{
		Type:           uapi.BINDER_TYPE_HANDLE,
		HandleOrBinder: uint64(obj.Handle()),
	}
	w.writeFlatObject(fo)
}

// Fd dups fd and writes a BINDER_TYPE_FD flat object for it. Finish
// hands the duplicate back alongside the payload, and the transaction
// engine closes it once the transaction carrying it has been written.
func (w *Writer) Fd(fd int, dup func(int) (int, error)) error {
	dupFd, err := dup(fd)
	if err != nil {
		return err
	}
	w.fds = append(w.fds, dupFd)
	w.pad()
	fo := ioabi.FlatObject{
		Type:           uapi.BINDER_TYPE_FD,
		HandleOrBinder: uint64(dupFd),
	}
	w.writeFlatObject(fo)
	return nil
}

func (w *Writer) writeFlatObject(fo ioabi.FlatObject) {
	w.offsets = append(w.offsets, uint64(len(w.data)))
	w.data = append(w.data, w.io.MarshalFlatObject(fo)...)
}

// FixedBuffer appends sub inline to the payload, 4-byte aligned. It does
// not record parentOffset, add an offset-array entry, or write a
// BINDER_TYPE_PTR object, so no parent chain is linked for the data.
func (w *Writer) FixedBuffer(parentOffset uint64, sub []byte) {
	w.pad()
	w.data = append(w.data, sub...)
}

// Finish returns the accumulated payload, offset array, and owned fd
// list. The writer remains usable after calling this.
func (w *Writer) Finish() (payload []byte, offsets []uint64, fds []int) {
	return w.data, w.offsets, w.fds
}

// Reader walks a received parcel, advancing a cursor through the
// payload and a parallel cursor through the offset array.
type Reader struct {
	io           ioabi.Io
	data         []byte
	offsets      []uint64
	cursor       int
	objectCursor int
	resolver     interfaces.ObjectResolver
}

// NewReader wraps data/offsets for sequential reading. resolver may be
// nil if the caller never intends to read embedded objects.
func NewReader(io ioabi.Io, data []byte, offsets []uint64, resolver interfaces.ObjectResolver) *Reader {
	return &Reader{io: io, data: data, offsets: offsets, resolver: resolver}
}

func (r *Reader) align() {
	r.cursor = align4(r.cursor)
}

// Cursor returns the current byte offset into the payload.
func (r *Reader) Cursor() int { return r.cursor }

// Int32 reads a 4-byte little-endian signed integer.
func (r *Reader) Int32() (int32, error) {
	r.align()
	if r.cursor+4 > len(r.data) {
		return 0, ErrShortRead
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.cursor:]))
	r.cursor += 4
	return v, nil
}

// Int64 reads an 8-byte little-endian signed integer.
func (r *Reader) Int64() (int64, error) {
	r.align()
	if r.cursor+8 > len(r.data) {
		return 0, ErrShortRead
	}
	v := int64(binary.LittleEndian.Uint64(r.data[r.cursor:]))
	r.cursor += 8
	return v, nil
}

// Bytes reads n raw bytes, 4-byte aligned before and after.
func (r *Reader) Bytes(n int) ([]byte, error) {
	r.align()
	if r.cursor+n > len(r.data) {
		return nil, ErrShortRead
	}
	out := r.data[r.cursor : r.cursor+n]
	r.cursor += n
	r.align()
	return out, nil
}

// String8 reads a NUL-terminated UTF-8 string of exactly n content
// bytes (not counting the terminator), 4-byte aligned.
func (r *Reader) String8(n int) (string, error) {
	buf, err := r.Bytes(n + 1)
	if err != nil {
		return "", err
	}
	if buf[n] != 0 {
		return "", ErrBadString
	}
	return string(buf[:n]), nil
}

// CString reads a NUL-terminated UTF-8 string of unknown length, 4-byte
// aligned before and after, matching the bare C-string form HIDL writes
// for its RPC header interface name (Writer.String8 with no caller-known
// length on the reading side).
func (r *Reader) CString() (string, error) {
	r.align()
	nul := -1
	for i := r.cursor; i < len(r.data); i++ {
		if r.data[i] == 0 {
			nul = i
			break
		}
	}
	if nul < 0 {
		return "", ErrBadString
	}
	s := string(r.data[r.cursor:nul])
	r.cursor = nul + 1
	r.align()
	return s, nil
}

// String16 reads a length-prefixed UTF-16LE string written by Writer.String16.
func (r *Reader) String16() (string, error) {
	n, err := r.Int32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrBadString
	}
	r.align()
	byteLen := int(n)*2 + 2
	if r.cursor+byteLen > len(r.data) {
		return "", ErrShortRead
	}
	raw := r.data[r.cursor : r.cursor+byteLen]
	r.cursor += byteLen
	r.align()

	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	if binary.LittleEndian.Uint16(raw[2*int(n):]) != 0 {
		return "", ErrBadString
	}
	return string(utf16.Decode(units)), nil
}

// HidlString reads a hidl_string written by Writer.HidlString.
func (r *Reader) HidlString() (string, error) {
	n, err := r.Int32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrBadString
	}
	return r.String8(int(n))
}

// HidlVec reads a hidl_vec<T> header and invokes readElem once per
// element; it returns the element count.
func (r *Reader) HidlVec(readElem func(i int) error) (int, error) {
	n, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrBadString
	}
	for i := 0; i < int(n); i++ {
		if err := readElem(i); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

// ReadObject asserts the cursor sits on the next recorded object offset,
// decodes the flat object there, and resolves it through the registry:
// a BINDER_TYPE_HANDLE becomes a RemoteObj, a BINDER_TYPE_BINDER whose
// pointer matches one of our own local objects becomes a LocalObj.
func (r *Reader) ReadObject() (interfaces.RemoteObj, interfaces.LocalObj, error) {
	if r.objectCursor >= len(r.offsets) {
		return nil, nil, ErrObjectMismatch
	}
	if uint64(r.cursor) != r.offsets[r.objectCursor] {
		return nil, nil, ErrObjectMismatch
	}
	size := r.io.FlatObjectSize()
	if r.cursor+size > len(r.data) {
		return nil, nil, ErrShortRead
	}
	fo := r.io.UnmarshalFlatObject(r.data[r.cursor : r.cursor+size])
	r.cursor += size
	r.objectCursor++

	if r.resolver == nil {
		return nil, nil, nil
	}

	switch fo.Type {
	case uapi.BINDER_TYPE_HANDLE, uapi.BINDER_TYPE_WEAK_HANDLE:
		ro, err := r.resolver.GetRemote(uint32(fo.HandleOrBinder), true)
		if err != nil {
			return nil, nil, err
		}
		return ro, nil, nil
	case uapi.BINDER_TYPE_BINDER, uapi.BINDER_TYPE_WEAK_BINDER:
		if lo, ok := r.resolver.GetLocal(fo.Cookie); ok {
			return nil, lo, nil
		}
		return nil, nil, nil
	default:
		return nil, nil, nil
	}
}

// ObjectOffsets returns the parcel's offset array, used by CloseFds when
// a received transaction is discarded unread.
func (r *Reader) ObjectOffsets() []uint64 { return r.offsets }

// CloseUnreadFds closes every BINDER_TYPE_FD object remaining in the
// buffer the reader was built from, for transactions rejected without
// being fully consumed. bufferBase is the buffer's mmap'd base address.
func CloseUnreadFds(d *driver.Driver, offsets []uint64, bufferBase uintptr) error {
	return d.CloseFds(offsets, bufferBase)
}
