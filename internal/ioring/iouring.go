//go:build giouring
// +build giouring

// Package ioring, built with -tags giouring, offloads SQ/CQ ring management
// to github.com/pawelgaczynski/giouring instead of the hand-rolled syscalls
// in minimal.go.
package ioring

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/pawelgaczynski/giouring"

	"github.com/kbinder/go-binder/internal/ioabi"
)

func uintptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

type giouRing struct {
	ring *giouring.Ring
	io   ioabi.Io
}

type giouResult struct {
	userData uint64
	value    int32
	err      error
}

func (r *giouResult) UserData() uint64 { return r.userData }
func (r *giouResult) Value() int32     { return r.value }
func (r *giouResult) Error() error     { return r.err }

// NewRealRing creates a giouring-backed Ring.
func NewRealRing(config Config) (Ring, error) {
	ring, err := giouring.CreateRing(config.Entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create io_uring: %v", err)
	}
	return &giouRing{ring: ring, io: ioabi.Native()}, nil
}

func (r *giouRing) Close() error {
	if r.ring != nil {
		r.ring.QueueExit()
	}
	return nil
}

func (r *giouRing) prepIoctl(sqe *giouring.SubmissionQueueEntry, fd int32, wr ioabi.WriteRead, userData uint64) []byte {
	payload := r.io.MarshalWriteRead(wr)
	sqe.PrepRW(IORING_OP_IOCTL, fd, uint64(uintptrOf(payload)), uint32(len(payload)), 0)
	sqe.SetUserData(userData)

	var cmd [4]byte
	binary.LittleEndian.PutUint32(cmd[:], r.io.WriteReadIoctl())
	sqe.SetCmd(cmd[:])
	return payload
}

func (r *giouRing) SubmitWriteRead(fd int32, wr ioabi.WriteRead, userData uint64) (Result, error) {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return nil, ErrRingFull
	}
	payload := r.prepIoctl(sqe, fd, wr, userData)

	if _, err := r.ring.SubmitAndWait(1); err != nil {
		return nil, fmt.Errorf("submit failed: %v", err)
	}
	_ = payload

	cqe, err := r.ring.WaitCQE()
	if err != nil {
		return nil, fmt.Errorf("wait cqe failed: %v", err)
	}
	res := &giouResult{userData: cqe.UserData, value: cqe.Res}
	if cqe.Res < 0 {
		res.err = fmt.Errorf("ioctl failed with result: %d", cqe.Res)
	}
	r.ring.CQESeen(cqe)
	return res, nil
}

func (r *giouRing) PrepareWriteRead(fd int32, wr ioabi.WriteRead, userData uint64) error {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return ErrRingFull
	}
	r.prepIoctl(sqe, fd, wr, userData)
	return nil
}

func (r *giouRing) FlushSubmissions() (uint32, error) {
	n, err := r.ring.Submit()
	if err != nil {
		return 0, fmt.Errorf("submit failed: %v", err)
	}
	return uint32(n), nil
}

func (r *giouRing) WaitForCompletion(timeoutMs int) ([]Result, error) {
	var results []Result
	for {
		cqe, err := r.ring.PeekCQE()
		if err != nil || cqe == nil {
			break
		}
		res := &giouResult{userData: cqe.UserData, value: cqe.Res}
		if cqe.Res < 0 {
			res.err = fmt.Errorf("ioctl failed with result: %d", cqe.Res)
		}
		r.ring.CQESeen(cqe)
		results = append(results, res)
	}
	return results, nil
}

func (r *giouRing) NewBatch() Batch {
	return &giouBatch{ring: r}
}

type giouBatch struct {
	ring *giouRing
	n    int
}

func (b *giouBatch) Add(fd int32, wr ioabi.WriteRead, userData uint64) error {
	if err := b.ring.PrepareWriteRead(fd, wr, userData); err != nil {
		return err
	}
	b.n++
	return nil
}

func (b *giouBatch) Submit() ([]Result, error) {
	if _, err := b.ring.FlushSubmissions(); err != nil {
		return nil, err
	}
	return b.ring.WaitForCompletion(0)
}

func (b *giouBatch) Len() int { return b.n }
