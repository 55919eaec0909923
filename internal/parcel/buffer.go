package parcel

import (
	"sync/atomic"
	"unsafe"

	"github.com/kbinder/go-binder/internal/driver"
)

// bufferContents is the single refcounted node behind a chain of nested
// Buffers (e.g. a hidl_vec plus its string payloads): freeing the
// kernel's receive region must happen exactly once no matter how many
// Buffer handles point into it, so every nested Buffer shares one
// contents node instead of holding its own reference to the driver.
type bufferContents struct {
	refcount int32
	ptr      uintptr
	size     uint64
	objects  []uint64 // flat-object byte offsets within ptr
	driver   *driver.Driver
}

func newBufferContents(d *driver.Driver, ptr uintptr, size uint64, objects []uint64) *bufferContents {
	return &bufferContents{refcount: 1, ptr: ptr, size: size, objects: objects, driver: d}
}

func (c *bufferContents) ref() {
	atomic.AddInt32(&c.refcount, 1)
}

func (c *bufferContents) unref() {
	if atomic.AddInt32(&c.refcount, -1) == 0 {
		_ = c.driver.CloseFds(c.objects, c.ptr)
		_ = c.driver.FreeBuffer(uint64(c.ptr))
	}
}

// Buffer is a kernel-owned receive-side region: a transaction or reply
// payload, or a nested sub-buffer sharing its root's lifetime.
type Buffer struct {
	contents *bufferContents
	offset   uintptr
	size     uint64
}

// NewBuffer wraps a freshly received transaction buffer. offsets lists
// flat-object byte positions within the buffer; when the last reference
// is released, every BINDER_TYPE_FD object among them is closed, whether
// or not the buffer was read.
func NewBuffer(d *driver.Driver, ptr uintptr, size uint64, offsets []uint64) *Buffer {
	return &Buffer{contents: newBufferContents(d, ptr, size, offsets), offset: 0, size: size}
}

// WithParent builds a nested Buffer (e.g. a string payload referenced
// from a hidl_vec) that shares its parent's BufferContents node, so the
// whole chain is freed by exactly one BC_FREE_BUFFER.
func (b *Buffer) WithParent(relOffset uintptr, size uint64) *Buffer {
	b.contents.ref()
	return &Buffer{contents: b.contents, offset: b.offset + relOffset, size: size}
}

// Data returns the bytes this Buffer covers, as a slice over the
// kernel's mmap'd region. Callers must not retain it past Release.
func (b *Buffer) Data() []byte {
	base := unsafe.Pointer(b.contents.ptr + b.offset)
	return unsafe.Slice((*byte)(base), b.size)
}

// Ptr returns the buffer's absolute address, as used in BC_FREE_BUFFER
// and as a BINDER_TYPE_PTR parent reference.
func (b *Buffer) Ptr() uintptr { return b.contents.ptr + b.offset }

// Size returns the number of bytes this Buffer (not its root) covers.
func (b *Buffer) Size() uint64 { return b.size }

// Release drops this Buffer's reference to its BufferContents node,
// freeing the underlying kernel memory once the last reference (root
// plus every nested child) is gone.
func (b *Buffer) Release() {
	b.contents.unref()
}
