package ioabi

import "testing"

func TestNativeRoundTripWriteRead(t *testing.T) {
	io := Native()
	wr := WriteRead{
		WriteSize:   40,
		WriteBuffer: 0x1000,
		ReadSize:    256,
		ReadBuffer:  0x2000,
	}

	data := io.MarshalWriteRead(wr)
	if len(data) != io.WriteReadSize() {
		t.Fatalf("marshaled length = %d, want %d", len(data), io.WriteReadSize())
	}

	got := io.UnmarshalWriteRead(data)
	if got != wr {
		t.Errorf("got %+v, want %+v", got, wr)
	}
}

func TestNativeRoundTripTransaction(t *testing.T) {
	io := Native()
	txn := TransactionData{
		TargetHandle: 5,
		Code:         1,
		Flags:        0x10,
		SenderPID:    999,
		SenderEUID:   1000,
		DataSize:     64,
		OffsetsSize:  8,
		DataBuffer:   0x7f0000001000,
		DataOffsets:  0x7f0000001040,
	}

	data := io.MarshalTransaction(txn)
	if len(data) != io.TransactionDataSize() {
		t.Fatalf("marshaled length = %d, want %d", len(data), io.TransactionDataSize())
	}

	got := io.UnmarshalTransaction(data)
	if got != txn {
		t.Errorf("got %+v, want %+v", got, txn)
	}
}

func TestNativeRoundTripFlatObject(t *testing.T) {
	io := Native()
	obj := FlatObject{
		Type:           0x73682a85,
		Flags:          0,
		HandleOrBinder: 3,
		Cookie:         0,
	}

	data := io.MarshalFlatObject(obj)
	if len(data) != io.FlatObjectSize() {
		t.Fatalf("marshaled length = %d, want %d", len(data), io.FlatObjectSize())
	}

	got := io.UnmarshalFlatObject(data)
	if got != obj {
		t.Errorf("got %+v, want %+v", got, obj)
	}
}

func TestWriteReadIoctlStable(t *testing.T) {
	io := Native()
	if io.WriteReadIoctl() == 0 {
		t.Error("WriteReadIoctl must not be zero")
	}
}
