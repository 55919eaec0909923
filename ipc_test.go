package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// GetOrOpen against a path no device node exists at must fail and must
// not leave a half-constructed entry in the process-wide cache.
func TestGetOrOpenMissingDeviceDoesNotCache(t *testing.T) {
	const device = "/nonexistent/binder-device-for-tests"

	ipc, err := GetOrOpen(device, nil)
	assert.Error(t, err)
	assert.Nil(t, ipc)

	processIpcsMu.Lock()
	_, cached := processIpcs[device]
	processIpcsMu.Unlock()
	assert.False(t, cached)
}

func TestCloseRefcountDecrementStopsAtZero(t *testing.T) {
	ipc := &Ipc{device: "/test/device", refs: 0}
	// Close itself is not called: this Ipc has no engine or driver to
	// stop. The body repeats Close's decrement step and checks that a
	// refcount already at zero stays at zero instead of going negative.
	ipc.mu.Lock()
	if ipc.refs > 0 {
		ipc.refs--
	}
	remaining := ipc.refs
	ipc.mu.Unlock()
	assert.Equal(t, 0, remaining)
}
