// Package driver wraps the raw Binder device node: open/mmap/ioctl, the
// BC_*/BR_* command encoding, and the read-side decode into tagged events.
// It has no notion of parcels, objects, or transactions above the wire
// level — that lives in internal/parcel, internal/registry and
// internal/txn, which treat Driver as their only point of kernel contact.
package driver

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kbinder/go-binder/internal/interfaces"
	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/ioring"
	"github.com/kbinder/go-binder/internal/logging"
	"github.com/kbinder/go-binder/internal/uapi"
)

var (
	errShortRead      = errors.New("driver: truncated BR_* stream")
	errUnknownCommand = errors.New("driver: unrecognized BR_* command")
)

// DefaultDevice is the default Binder device node, used when the caller
// doesn't specify one from configuration.
const DefaultDevice = "/dev/binder"

// defaultMaxThreads matches the historical libbinder default.
const defaultMaxThreads = 15

// Driver owns one open Binder device fd: its mmap'd receive region, its
// ABI width, and an optional io_uring batching path.
type Driver struct {
	mu sync.Mutex

	fd       int
	path     string
	io       ioabi.Io
	mmapSize uintptr
	mmapAddr unsafe.Pointer

	ring ioring.Ring

	logger interfaces.Logger
	closed bool
}

// Options configures Open.
type Options struct {
	// MaxThreads caps the number of looper threads the kernel will spawn
	// via BR_SPAWN_LOOPER. Zero selects defaultMaxThreads.
	MaxThreads uint32
	// MapSize is the size of the mmap'd receive-only region. Zero selects
	// 1 MiB minus two pages, matching libbinder's ProcessState default.
	MapSize uintptr
	// Ring, if non-nil, is handed to the Driver and closed by Close.
	// WriteRead does not submit through it: every write/read cycle is a
	// bare ioctl.
	Ring ioring.Ring
}

func defaultMapSize() uintptr {
	pageSize := uintptr(unix.Getpagesize())
	return 1024*1024 - 2*pageSize
}

// Open opens the device node at path, validates the kernel's Binder
// protocol version, negotiates the thread pool size, and maps the
// kernel's receive-only buffer region into this process.
func Open(path string, opts Options) (*Driver, error) {
	logger := logging.Default()

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("driver: open %s: %w", path, err)
	}

	d := &Driver{
		fd:     fd,
		path:   path,
		io:     ioabi.Native(),
		ring:   opts.Ring,
		logger: logger,
	}

	if err := d.checkVersion(); err != nil {
		unix.Close(fd)
		return nil, err
	}

	maxThreads := opts.MaxThreads
	if maxThreads == 0 {
		maxThreads = defaultMaxThreads
	}
	if err := d.setMaxThreads(maxThreads); err != nil {
		unix.Close(fd)
		return nil, err
	}

	mapSize := opts.MapSize
	if mapSize == 0 {
		mapSize = defaultMapSize()
	}
	addr, err := unix.Mmap(fd, 0, int(mapSize), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("driver: mmap %s: %w", path, err)
	}
	d.mmapSize = mapSize
	d.mmapAddr = unsafe.Pointer(&addr[0])

	logger.Debug("opened binder device", "path", path, "max_threads", maxThreads, "map_size", mapSize)
	return d, nil
}

func (d *Driver) checkVersion() error {
	var ver uapi.BinderVersion
	if err := d.ioctl(uapi.BINDER_VERSION, unsafe.Pointer(&ver)); err != nil {
		return fmt.Errorf("driver: BINDER_VERSION: %w", err)
	}
	if ver.ProtocolVersion != uapi.BinderCurrentProtocolVersion {
		return fmt.Errorf("driver: protocol version mismatch: kernel=%d expected=%d",
			ver.ProtocolVersion, uapi.BinderCurrentProtocolVersion)
	}
	return nil
}

func (d *Driver) setMaxThreads(n uint32) error {
	v := n
	return d.ioctl(uapi.BINDER_SET_MAX_THREADS, unsafe.Pointer(&v))
}

// Fd returns the underlying device file descriptor, for use with Poll or
// an externally owned epoll/io_uring loop.
func (d *Driver) Fd() int {
	return d.fd
}

// Poll blocks until the device fd is readable or writable, or the
// timeout (milliseconds, -1 for infinite) elapses.
func (d *Driver) Poll(events int16, timeoutMs int) (int16, error) {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: events}}
	for {
		n, err := unix.Poll(fds, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, nil
		}
		return fds[0].Revents, nil
	}
}

// WriteRead issues one BINDER_WRITE_READ ioctl, writing write and reading
// into read. It returns the number of bytes consumed from write and the
// number of bytes placed into read. EAGAIN and EINTR are retried
// transparently; any other errno is surfaced to the caller.
func (d *Driver) WriteRead(write, read []byte) (writeConsumed, readConsumed uint64, err error) {
	wr := ioabi.WriteRead{
		WriteSize:   uint64(len(write)),
		ReadSize:    uint64(len(read)),
	}
	if len(write) > 0 {
		wr.WriteBuffer = uint64(uintptr(unsafe.Pointer(&write[0])))
	}
	if len(read) > 0 {
		wr.ReadBuffer = uint64(uintptr(unsafe.Pointer(&read[0])))
	}

	for {
		payload := d.io.MarshalWriteRead(wr)
		ioErr := d.ioctl(uapi.BINDER_WRITE_READ, unsafe.Pointer(&payload[0]))
		if ioErr != nil {
			if ioErr == unix.EAGAIN || ioErr == unix.EINTR {
				continue
			}
			return 0, 0, fmt.Errorf("driver: BINDER_WRITE_READ: %w", ioErr)
		}
		out := d.io.UnmarshalWriteRead(payload)
		return out.WriteConsumed, out.ReadConsumed, nil
	}
}

// EnterLooper tells the kernel this thread is joining the looper pool;
// it must be called once per OS thread before that thread calls
// WriteRead with a zero-length write buffer to block for work.
func (d *Driver) EnterLooper() error {
	return d.writeBareCommand(uapi.BC_ENTER_LOOPER)
}

// ExitLooper removes this thread from the looper pool.
func (d *Driver) ExitLooper() error {
	return d.writeBareCommand(uapi.BC_EXIT_LOOPER)
}

// RegisterLooper registers an additional thread spawned in response to
// BR_SPAWN_LOOPER.
func (d *Driver) RegisterLooper() error {
	return d.writeBareCommand(uapi.BC_REGISTER_LOOPER)
}

func (d *Driver) writeBareCommand(cmd uint32) error {
	buf := make([]byte, 4)
	lePutUint32(buf, cmd)
	_, _, err := d.WriteRead(buf, nil)
	return err
}

// FreeBuffer releases a transaction buffer back to the kernel once its
// contents have been fully consumed.
func (d *Driver) FreeBuffer(ptr uint64) error {
	buf := make([]byte, 12)
	lePutUint32(buf[0:4], uapi.BC_FREE_BUFFER)
	lePutUint64(buf[4:12], ptr)
	_, _, err := d.WriteRead(buf, nil)
	return err
}

// CloseFds closes every fd embedded as a BINDER_TYPE_FD object at the
// given byte offsets from bufferBase, so a received buffer's fds don't
// leak once the buffer is freed.
func (d *Driver) CloseFds(objectTable []uint64, bufferBase uintptr) error {
	for _, off := range objectTable {
		obj := (*uapi.FlatBinderObject64)(unsafe.Pointer(bufferBase + uintptr(off)))
		if obj.Type == uapi.BINDER_TYPE_FD {
			_ = unix.Close(int(obj.HandleOrBinder))
		}
	}
	return nil
}

func (d *Driver) refCommand(cmd uint32, handle uint32) error {
	buf := make([]byte, 8)
	lePutUint32(buf[0:4], cmd)
	lePutUint32(buf[4:8], handle)
	_, _, err := d.WriteRead(buf, nil)
	return err
}

// IncRefs increments the kernel's weak refcount on handle.
func (d *Driver) IncRefs(handle uint32) error { return d.refCommand(uapi.BC_INCREFS, handle) }

// Acquire increments the kernel's strong refcount on handle.
func (d *Driver) Acquire(handle uint32) error { return d.refCommand(uapi.BC_ACQUIRE, handle) }

// Release decrements the kernel's strong refcount on handle.
func (d *Driver) Release(handle uint32) error { return d.refCommand(uapi.BC_RELEASE, handle) }

// DecRefs decrements the kernel's weak refcount on handle.
func (d *Driver) DecRefs(handle uint32) error { return d.refCommand(uapi.BC_DECREFS, handle) }

func (d *Driver) ptrCookieCommand(cmd uint32, ptr, cookie uint64) error {
	buf := make([]byte, 4+16)
	lePutUint32(buf[0:4], cmd)
	pc := uapi.PtrCookie64{Ptr: ptr, Cookie: cookie}
	copy(buf[4:], uapi.Marshal(&pc))
	_, _, err := d.WriteRead(buf, nil)
	return err
}

// AcquireDone acknowledges a BR_ACQUIRE for the local object at ptr.
func (d *Driver) AcquireDone(ptr, cookie uint64) error {
	return d.ptrCookieCommand(uapi.BC_ACQUIRE_DONE, ptr, cookie)
}

// IncRefsDone acknowledges a BR_INCREFS for the local object at ptr.
func (d *Driver) IncRefsDone(ptr, cookie uint64) error {
	return d.ptrCookieCommand(uapi.BC_INCREFS_DONE, ptr, cookie)
}

func (d *Driver) handleCookieCommand(cmd uint32, handle uint32, cookie uint64) error {
	buf := make([]byte, 4+int(uapi.SizeofHandleCookie64))
	lePutUint32(buf[0:4], cmd)
	hc := uapi.HandleCookie64{Handle: handle, Cookie: cookie}
	copy(buf[4:], uapi.Marshal(&hc))
	_, _, err := d.WriteRead(buf, nil)
	return err
}

// RequestDeathNotification asks the kernel to deliver BR_DEAD_BINDER for
// handle, tagged with cookie, when its process dies.
func (d *Driver) RequestDeathNotification(handle uint32, cookie uint64) error {
	return d.handleCookieCommand(uapi.BC_REQUEST_DEATH_NOTIFICATION, handle, cookie)
}

// ClearDeathNotification cancels a prior RequestDeathNotification; the
// kernel confirms with BR_CLEAR_DEATH_NOTIFICATION_DONE.
func (d *Driver) ClearDeathNotification(handle uint32, cookie uint64) error {
	return d.handleCookieCommand(uapi.BC_CLEAR_DEATH_NOTIFICATION, handle, cookie)
}

// DeadBinderDone acknowledges a BR_DEAD_BINDER delivery.
func (d *Driver) DeadBinderDone(cookie uint64) error {
	buf := make([]byte, 4+8)
	lePutUint32(buf[0:4], uapi.BC_DEAD_BINDER_DONE)
	lePutUint64(buf[4:12], cookie)
	_, _, err := d.WriteRead(buf, nil)
	return err
}

// Io exposes the driver's ABI selection to callers that need to marshal
// flat binder objects or transaction data themselves (internal/parcel).
func (d *Driver) Io() ioabi.Io {
	return d.io
}

// Close unmaps the receive region and closes the device fd.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.ring != nil {
		_ = d.ring.Close()
	}
	if d.mmapAddr != nil {
		region := unsafe.Slice((*byte)(d.mmapAddr), d.mmapSize)
		_ = unix.Munmap(region)
	}
	return unix.Close(d.fd)
}

func (d *Driver) ioctl(req uint32, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func lePutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func lePutUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
