package uapi

import (
	"testing"
	"unsafe"
)

func TestStructSizes(t *testing.T) {
	tests := []struct {
		name     string
		size     uintptr
		expected int
	}{
		{"BinderWriteRead64", unsafe.Sizeof(BinderWriteRead64{}), 48},
		{"BinderWriteRead32", unsafe.Sizeof(BinderWriteRead32{}), 24},
		{"FlatBinderObject64", unsafe.Sizeof(FlatBinderObject64{}), 24},
		{"FlatBinderObject32", unsafe.Sizeof(FlatBinderObject32{}), 16},
		{"BinderTransactionData64", unsafe.Sizeof(BinderTransactionData64{}), 64},
		{"BinderTransactionData32", unsafe.Sizeof(BinderTransactionData32{}), 40},
		{"PtrCookie64", unsafe.Sizeof(PtrCookie64{}), 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if int(tt.size) != tt.expected {
				t.Errorf("%s size = %d, want %d", tt.name, tt.size, tt.expected)
			}
		})
	}
}

func TestMarshalUnmarshalWriteRead64(t *testing.T) {
	original := &BinderWriteRead64{
		WriteSize:     40,
		WriteConsumed: 0,
		WriteBuffer:   0xDEADBEEF,
		ReadSize:      256,
		ReadConsumed:  0,
		ReadBuffer:    0xC0FFEE,
	}

	data := Marshal(original)
	if len(data) != 48 {
		t.Fatalf("Marshal length = %d, want 48", len(data))
	}

	var got BinderWriteRead64
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got != *original {
		t.Errorf("got %+v, want %+v", got, original)
	}
}

func TestMarshalUnmarshalTransactionData64(t *testing.T) {
	original := &BinderTransactionData64{
		TargetHandle: 7,
		Code:         FIRST_CALL_TRANSACTION,
		Flags:        TF_ACCEPT_FDS,
		SenderPID:    1234,
		SenderEUID:   1000,
		DataSize:     128,
		OffsetsSize:  8,
		DataBuffer:   0x7f0000000000,
		DataOffsets:  0x7f0000000080,
	}

	data := Marshal(original)
	if len(data) != 64 {
		t.Fatalf("Marshal length = %d, want 64", len(data))
	}

	var got BinderTransactionData64
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got != *original {
		t.Errorf("got %+v, want %+v", got, original)
	}
}

func TestUnmarshalInsufficientData(t *testing.T) {
	var got BinderTransactionData64
	err := Unmarshal(make([]byte, 4), &got)
	if err != ErrInsufficientData {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestMarshalUnsupportedType(t *testing.T) {
	if Marshal(42) != nil {
		t.Error("Marshal of unsupported type should return nil")
	}
	if Unmarshal([]byte{1, 2, 3}, &struct{}{}) != ErrUnsupportedType {
		t.Error("Unmarshal of unsupported type should return ErrUnsupportedType")
	}
}

func TestFlatBinderObjectRoundTrip32(t *testing.T) {
	original := &FlatBinderObject32{
		Type:           BINDER_TYPE_HANDLE,
		Flags:          0,
		HandleOrBinder: 3,
		Cookie:         0,
	}

	data := Marshal(original)
	var got FlatBinderObject32
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got != *original {
		t.Errorf("got %+v, want %+v", got, original)
	}
}

func TestIoctlEncoding(t *testing.T) {
	if BINDER_WRITE_READ == 0 {
		t.Error("BINDER_WRITE_READ encoded to 0")
	}
	if BC_TRANSACTION == BC_REPLY {
		t.Error("BC_TRANSACTION and BC_REPLY must encode differently")
	}
	if iow('b', 8, 4) != BINDER_THREAD_EXIT {
		t.Error("iow helper mismatch for BINDER_THREAD_EXIT")
	}
}

func TestPackCharsBuiltinCodes(t *testing.T) {
	if AIDL_PING_TRANSACTION == 0 {
		t.Error("AIDL_PING_TRANSACTION should not be zero")
	}
	if AIDL_PING_TRANSACTION == AIDL_INTERFACE_TRANSACTION {
		t.Error("built-in transaction codes must be distinct")
	}
	if HIDL_PING_TRANSACTION != 0x00c0317e {
		t.Errorf("HIDL_PING_TRANSACTION = %#x, want 0x00c0317e", HIDL_PING_TRANSACTION)
	}
}

func BenchmarkMarshalTransactionData64(b *testing.B) {
	cmd := &BinderTransactionData64{
		TargetHandle: 7,
		Code:         FIRST_CALL_TRANSACTION,
		DataSize:     128,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Marshal(cmd)
	}
}

func BenchmarkUnmarshalTransactionData64(b *testing.B) {
	cmd := &BinderTransactionData64{
		TargetHandle: 7,
		Code:         FIRST_CALL_TRANSACTION,
		DataSize:     128,
	}
	data := Marshal(cmd)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var got BinderTransactionData64
		_ = Unmarshal(data, &got)
	}
}
