//go:build linux && cgo

package ioring

/*
#include <stdint.h>

static inline void sfence_impl(void) {
    __asm__ __volatile__("sfence" ::: "memory");
}

static inline void mfence_impl(void) {
    __asm__ __volatile__("mfence" ::: "memory");
}
*/
import "C"

// Sfence issues a store fence (x86 SFENCE instruction), ensuring an SQE
// write is globally visible before the tail update that exposes it to
// the kernel.
func Sfence() {
	C.sfence_impl()
}

// Mfence issues a full memory fence (x86 MFENCE instruction).
func Mfence() {
	C.mfence_impl()
}
