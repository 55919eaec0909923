package parcel

import "sync"

// Auxiliary-region size buckets for pooled scratch buffers used when
// assembling hidl_vec payloads and other variable-sized subobjects
// before they're copied into a transaction's final payload.
const (
	size4k  = 4 * 1024
	size16k = 16 * 1024
	size64k = 64 * 1024
)

var auxPool = struct {
	pool4k  sync.Pool
	pool16k sync.Pool
	pool64k sync.Pool
}{
	pool4k:  sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
	pool16k: sync.Pool{New: func() any { b := make([]byte, size16k); return &b }},
	pool64k: sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
}

// GetAux returns a pooled scratch buffer of at least size bytes. Callers
// must call PutAux when done; buffers larger than size64k are not pooled.
func GetAux(size int) []byte {
	switch {
	case size <= size4k:
		return (*auxPool.pool4k.Get().(*[]byte))[:size]
	case size <= size16k:
		return (*auxPool.pool16k.Get().(*[]byte))[:size]
	case size <= size64k:
		return (*auxPool.pool64k.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// PutAux returns buf to the pool matching its capacity, if any.
func PutAux(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size4k:
		auxPool.pool4k.Put(&buf)
	case size16k:
		auxPool.pool16k.Put(&buf)
	case size64k:
		auxPool.pool64k.Put(&buf)
	}
}
