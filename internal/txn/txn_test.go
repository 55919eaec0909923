package txn

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/kbinder/go-binder/internal/uapi"
	"github.com/stretchr/testify/assert"
)

func TestErrDeadMessage(t *testing.T) {
	err := &ErrDead{Handle: 7}
	assert.Contains(t, err.Error(), "7")
}

func TestIsBuiltinCode(t *testing.T) {
	builtins := []uint32{
		uapi.AIDL_PING_TRANSACTION,
		uapi.AIDL_INTERFACE_TRANSACTION,
		uapi.HIDL_PING_TRANSACTION,
		uapi.HIDL_GET_DESCRIPTOR_TRANSACTION,
		uapi.HIDL_DESCRIPTOR_CHAIN_TRANSACTION,
	}
	for _, code := range builtins {
		assert.True(t, isBuiltinCode(code))
	}
	assert.False(t, isBuiltinCode(uapi.FIRST_CALL_TRANSACTION))
}

func TestDecodeOffsetsEmpty(t *testing.T) {
	assert.Nil(t, decodeOffsets(0, 0))
}

func TestDecodeOffsetsRoundTrip(t *testing.T) {
	want := []uint64{0, 8, 24}
	raw := make([]byte, len(want)*8)
	for i, v := range want {
		binary.LittleEndian.PutUint64(raw[i*8:], v)
	}
	ptr := uint64(uintptr(unsafe.Pointer(&raw[0])))

	got := decodeOffsets(ptr, uint64(len(raw)))
	assert.Equal(t, want, got)
}

func TestStatusESTALEMatchesKernelConvention(t *testing.T) {
	assert.Equal(t, int32(-116), StatusESTALE)
}
