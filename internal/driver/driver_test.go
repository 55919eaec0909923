package driver

import (
	"testing"

	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/uapi"
)

func encodeTransaction(t *testing.T, io ioabi.Io, td ioabi.TransactionData) []byte {
	t.Helper()
	return io.MarshalTransaction(td)
}

func TestDecodeEventsSimpleStream(t *testing.T) {
	io := ioabi.Native()

	var buf []byte
	buf = append(buf, leUint32(uapi.BR_NOOP)...)
	buf = append(buf, leUint32(uapi.BR_TRANSACTION_COMPLETE)...)
	buf = append(buf, leUint32(uapi.BR_SPAWN_LOOPER)...)

	events, err := DecodeEvents(buf, io)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantKinds := []EventKind{EventNoop, EventTransactionComplete, EventSpawnLooper}
	for i, k := range wantKinds {
		if events[i].Kind != k {
			t.Errorf("event %d: got kind %v, want %v", i, events[i].Kind, k)
		}
	}
}

func TestDecodeEventsIncomingTransaction(t *testing.T) {
	io := ioabi.Native()

	td := ioabi.TransactionData{
		Code:        0x1,
		Flags:       0,
		SenderPID:   1234,
		SenderEUID:  1000,
		DataSize:    16,
		OffsetsSize: 0,
		DataBuffer:  0xdeadbeef,
	}

	var buf []byte
	buf = append(buf, leUint32(uapi.BR_TRANSACTION)...)
	buf = append(buf, encodeTransaction(t, io, td)...)

	events, err := DecodeEvents(buf, io)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != EventIncomingTransaction {
		t.Fatalf("expected EventIncomingTransaction, got %v", ev.Kind)
	}
	if ev.Code != td.Code || ev.SenderPID != td.SenderPID || ev.BufferPtr != td.DataBuffer {
		t.Errorf("decoded transaction mismatch: %+v", ev)
	}
}

func TestDecodeEventsDeadBinder(t *testing.T) {
	io := ioabi.Native()
	var buf []byte
	buf = append(buf, leUint32(uapi.BR_DEAD_BINDER)...)
	buf = append(buf, leUint64(0xcafef00d)...)

	events, err := DecodeEvents(buf, io)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventDeadBinder {
		t.Fatalf("expected one EventDeadBinder, got %+v", events)
	}
	if events[0].Cookie != 0xcafef00d {
		t.Errorf("got cookie %x, want cafef00d", events[0].Cookie)
	}
}

func TestDecodeEventsUnknownCommand(t *testing.T) {
	io := ioabi.Native()
	buf := leUint32(0xffffffff)
	if _, err := DecodeEvents(buf, io); err == nil {
		t.Fatal("expected error for unknown BR_* command")
	}
}

func TestDecodeEventsShortRead(t *testing.T) {
	io := ioabi.Native()
	buf := leUint32(uapi.BR_TRANSACTION) // no payload follows
	if _, err := DecodeEvents(buf, io); err != errShortRead {
		t.Fatalf("expected errShortRead, got %v", err)
	}
}

func TestDefaultMapSizeBelowOneMiB(t *testing.T) {
	size := defaultMapSize()
	if size >= 1024*1024 {
		t.Errorf("expected map size under 1 MiB (two pages reserved), got %d", size)
	}
}

func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
