package ioring

import (
	"encoding/binary"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/logging"
)

const (
	__NR_io_uring_setup = 425
	__NR_io_uring_enter = 426
)

// IORING_OP_IOCTL is a stable, well-known opcode; unlike URING_CMD support
// (which varies by kernel and driver), no runtime feature probing is needed
// to use it against an arbitrary character device's ioctl surface.
const IORING_OP_IOCTL = 36

const (
	ioringSetupSQE128 = 1 << 10
	ioringSetupCQE32  = 1 << 11
	ioringEnterGetevents = 1 << 0
)

// sqe128 is the 128-byte submission queue entry layout, matching
// include/uapi/linux/io_uring.h's io_uring_sqe when SQE128 is enabled.
type sqe128 struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	opcodeFlags uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceOff   int32
	cmd         [80]byte // overlays addr3/__pad2 at offset 48
}

// cqe32 is the 32-byte completion queue entry layout.
type cqe32 struct {
	userData uint64
	res      int32
	flags    uint32
	bigCQE   [16]uint8
}

type ioUringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCpu  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        struct {
		head        uint32
		tail        uint32
		ringMask    uint32
		ringEntries uint32
		flags       uint32
		dropped     uint32
		array       uint32
		resv1       uint32
		userAddr    uint64
	}
	cqOff struct {
		head        uint32
		tail        uint32
		ringMask    uint32
		ringEntries uint32
		overflow    uint32
		cqes        uint32
		flags       uint32
		resv1       uint32
		userAddr    uint64
	}
}

// minimalRing is a hand-rolled io_uring limited to IORING_OP_IOCTL, enough
// to batch BINDER_WRITE_READ submissions across several device fds.
type minimalRing struct {
	fd     int
	params ioUringParams
	sqAddr unsafe.Pointer
	cqAddr unsafe.Pointer
	io     ioabi.Io
}

func newMinimalRing(entries uint32) (Ring, error) {
	logger := logging.Default()
	logger.Debug("creating minimal io_uring", "entries", entries)

	params := ioUringParams{
		sqEntries: entries,
		cqEntries: entries * 2,
		flags:     ioringSetupSQE128 | ioringSetupCQE32,
	}

	ringFd, _, errno := syscall.Syscall(__NR_io_uring_setup,
		uintptr(entries),
		uintptr(unsafe.Pointer(&params)),
		0)
	if errno != 0 {
		logger.Error("io_uring_setup failed", "errno", errno)
		return nil, fmt.Errorf("io_uring_setup failed: %v", errno)
	}

	sqSize := params.sqOff.array + params.sqEntries*4
	cqSize := params.cqOff.cqes + params.cqEntries*uint32(unsafe.Sizeof(cqe32{}))

	sqAddr, err := unix.Mmap(int(ringFd), 0, int(sqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		syscall.Close(int(ringFd))
		return nil, fmt.Errorf("failed to mmap SQ: %v", err)
	}

	cqAddr, err := unix.Mmap(int(ringFd), 0x8000000, int(cqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Munmap(sqAddr)
		syscall.Close(int(ringFd))
		return nil, fmt.Errorf("failed to mmap CQ: %v", err)
	}

	return &minimalRing{
		fd:     int(ringFd),
		params: params,
		sqAddr: unsafe.Pointer(&sqAddr[0]),
		cqAddr: unsafe.Pointer(&cqAddr[0]),
		io:     ioabi.Native(),
	}, nil
}

func (r *minimalRing) Close() error {
	return syscall.Close(r.fd)
}

type minimalResult struct {
	userData uint64
	value    int32
	err      error
}

func (res *minimalResult) UserData() uint64 { return res.userData }
func (res *minimalResult) Value() int32     { return res.value }
func (res *minimalResult) Error() error     { return res.err }

func (r *minimalRing) prepIoctlSQE(fd int32, wr ioabi.WriteRead, userData uint64) (*sqe128, *[]byte) {
	payload := r.io.MarshalWriteRead(wr)
	sqe := &sqe128{
		opcode:      IORING_OP_IOCTL,
		fd:          fd,
		addr:        uint64(uintptr(unsafe.Pointer(&payload[0]))),
		len:         uint32(len(payload)),
		userData:    userData,
	}
	binary.LittleEndian.PutUint32(sqe.cmd[0:4], r.io.WriteReadIoctl())
	return sqe, &payload
}

func (r *minimalRing) SubmitWriteRead(fd int32, wr ioabi.WriteRead, userData uint64) (Result, error) {
	sqe, payload := r.prepIoctlSQE(fd, wr, userData)
	res, err := r.submitAndWait(sqe)
	if err != nil {
		return nil, err
	}
	_ = payload // kept alive until the kernel copies out of it during submit
	return res, nil
}

func (r *minimalRing) PrepareWriteRead(fd int32, wr ioabi.WriteRead, userData uint64) error {
	sqHead := (*uint32)(unsafe.Add(r.sqAddr, r.params.sqOff.head))
	sqTail := (*uint32)(unsafe.Add(r.sqAddr, r.params.sqOff.tail))
	if (*sqTail - *sqHead) >= r.params.sqEntries {
		return ErrRingFull
	}

	sqe, _ := r.prepIoctlSQE(fd, wr, userData)
	sqMask := r.params.sqEntries - 1
	sqArray := unsafe.Add(r.sqAddr, r.params.sqOff.array)
	sqIndex := *sqTail & sqMask
	sqeSlot := unsafe.Add(r.sqAddr, uintptr(128*sqIndex))
	*(*sqe128)(sqeSlot) = *sqe
	*(*uint32)(unsafe.Add(sqArray, uintptr(4*sqIndex))) = sqIndex
	Sfence()
	*sqTail++
	return nil
}

func (r *minimalRing) FlushSubmissions() (uint32, error) {
	sqHead := (*uint32)(unsafe.Add(r.sqAddr, r.params.sqOff.head))
	sqTail := (*uint32)(unsafe.Add(r.sqAddr, r.params.sqOff.tail))
	pending := *sqTail - *sqHead
	if pending == 0 {
		return 0, nil
	}
	submitted, _, errno := r.enter(pending, 0)
	if errno != 0 {
		return submitted, fmt.Errorf("io_uring_enter failed: %v", errno)
	}
	return submitted, nil
}

func (r *minimalRing) WaitForCompletion(timeoutMs int) ([]Result, error) {
	var results []Result
	for {
		res, err := r.processCompletion()
		if err != nil {
			break
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *minimalRing) NewBatch() Batch {
	return &minimalBatch{ring: r}
}

type minimalBatch struct {
	ring *minimalRing
	n    int
}

func (b *minimalBatch) Add(fd int32, wr ioabi.WriteRead, userData uint64) error {
	if err := b.ring.PrepareWriteRead(fd, wr, userData); err != nil {
		return err
	}
	b.n++
	return nil
}

func (b *minimalBatch) Submit() ([]Result, error) {
	submitted, err := b.ring.FlushSubmissions()
	if err != nil {
		return nil, err
	}
	if _, _, errno := b.ring.enter(0, submitted); errno != 0 {
		return nil, fmt.Errorf("io_uring_enter wait failed: %v", errno)
	}
	return b.ring.WaitForCompletion(0)
}

func (b *minimalBatch) Len() int { return b.n }

func (r *minimalRing) submitAndWait(sqe *sqe128) (Result, error) {
	sqHead := (*uint32)(unsafe.Add(r.sqAddr, r.params.sqOff.head))
	sqTail := (*uint32)(unsafe.Add(r.sqAddr, r.params.sqOff.tail))
	sqMask := r.params.sqEntries - 1

	if (*sqTail - *sqHead) >= r.params.sqEntries {
		return nil, ErrRingFull
	}

	sqArray := unsafe.Add(r.sqAddr, r.params.sqOff.array)
	sqIndex := *sqTail & sqMask
	sqeSlot := unsafe.Add(r.sqAddr, uintptr(128*sqIndex))
	*(*sqe128)(sqeSlot) = *sqe
	*(*uint32)(unsafe.Add(sqArray, uintptr(4*sqIndex))) = sqIndex
	Sfence()
	*sqTail++

	_, _, errno := r.enter(1, 1)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_enter failed: %v", errno)
	}
	return r.processCompletion()
}

func (r *minimalRing) enter(toSubmit, minComplete uint32) (submitted, completed uint32, errno syscall.Errno) {
	flags := uint32(0)
	if minComplete > 0 {
		flags = ioringEnterGetevents
	}
	r1, r2, err := syscall.Syscall6(
		__NR_io_uring_enter,
		uintptr(r.fd),
		uintptr(toSubmit),
		uintptr(minComplete),
		uintptr(flags),
		0, 0)
	return uint32(r1), uint32(r2), err
}

func (r *minimalRing) processCompletion() (Result, error) {
	cqHead := (*uint32)(unsafe.Add(r.cqAddr, r.params.cqOff.head))
	cqTail := (*uint32)(unsafe.Add(r.cqAddr, r.params.cqOff.tail))

	if *cqHead == *cqTail {
		return nil, fmt.Errorf("no completions available")
	}

	cqMask := r.params.cqEntries - 1
	cqIndex := *cqHead & cqMask
	cqeSlot := unsafe.Add(r.cqAddr, uintptr(32*cqIndex))
	cqe := (*cqe32)(cqeSlot)

	result := &minimalResult{userData: cqe.userData, value: cqe.res}
	if cqe.res < 0 {
		result.err = fmt.Errorf("ioctl submission failed with result: %d", cqe.res)
	}

	*cqHead++
	return result, nil
}
