//go:build !(linux && cgo)

package ioring

// Sfence is a no-op without cgo; the Go memory model's happens-before
// ordering on the syscall that follows is sufficient on non-x86 or
// cgo-disabled builds where we can't emit the bare instruction.
func Sfence() {}

// Mfence is a no-op without cgo.
func Mfence() {}
