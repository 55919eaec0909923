// Package ioring provides interfaces for batching BINDER_WRITE_READ ioctls
// through io_uring's IORING_OP_IOCTL. Binder processes that own several
// device fds (e.g. both /dev/binder and /dev/hwbinder, or several looper
// threads) can submit multiple write/read cycles in one io_uring_enter
// instead of one syscall per fd.
package ioring

import (
	"errors"

	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/logging"
)

// ErrRingFull is returned when the submission queue has no free SQE.
// The transaction engine never submits more than its worker-pool size
// concurrently, so this should not occur in normal operation.
var ErrRingFull = errors.New("submission queue full")

// Ring batches BINDER_WRITE_READ ioctls across one or more device fds.
type Ring interface {
	// Close closes the ring and releases resources.
	Close() error

	// SubmitWriteRead submits a single BINDER_WRITE_READ and waits for completion.
	SubmitWriteRead(fd int32, wr ioabi.WriteRead, userData uint64) (Result, error)

	// PrepareWriteRead stages a BINDER_WRITE_READ SQE without submitting it,
	// so several can be flushed together. Returns ErrRingFull if no SQE is free.
	PrepareWriteRead(fd int32, wr ioabi.WriteRead, userData uint64) error

	// FlushSubmissions submits all staged SQEs with one io_uring_enter call
	// and returns the number submitted.
	FlushSubmissions() (uint32, error)

	// WaitForCompletion drains the completions already posted to the CQ
	// and returns them. It does not block: timeoutMs is not used, and an
	// empty CQ yields an empty result.
	WaitForCompletion(timeoutMs int) ([]Result, error)

	// NewBatch creates a batch for bulk submission.
	NewBatch() Batch
}

// Batch collects several BINDER_WRITE_READ submissions to flush together.
type Batch interface {
	// Add stages one BINDER_WRITE_READ in the batch.
	Add(fd int32, wr ioabi.WriteRead, userData uint64) error
	// Submit flushes the batch and waits for all completions.
	Submit() ([]Result, error)
	// Len reports how many operations are staged.
	Len() int
}

// Result is the outcome of one ring operation.
type Result interface {
	// UserData returns the tag supplied at submission time.
	UserData() uint64
	// Value returns the ioctl's return value (0 success, negative errno).
	Value() int32
	// Error returns a non-nil error when Value indicates failure.
	Error() error
}

// Config configures a new Ring.
type Config struct {
	Entries uint32 // submission queue depth
	Flags   uint32
}

// NewRing creates a Ring using the pure-Go minimal implementation. Callers
// that built with -tags giouring get NewRealRing instead, which offloads
// SQ/CQ management to github.com/pawelgaczynski/giouring.
func NewRing(config Config) (Ring, error) {
	logger := logging.Default()
	logger.Debug("creating io_uring for binder write/read batching", "entries", config.Entries)

	ring, err := newMinimalRing(config.Entries)
	if err != nil {
		logger.Error("failed to create io_uring", "error", err)
		return nil, err
	}

	logger.Info("created io_uring", "entries", config.Entries)
	return ring, nil
}
