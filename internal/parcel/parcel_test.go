package parcel

import (
	"testing"

	"github.com/kbinder/go-binder/internal/ioabi"
)

func TestWriterReaderInt32Int64RoundTrip(t *testing.T) {
	io := ioabi.Native()
	w := NewWriter(io)
	w.Int32(42)
	w.Int64(42)

	payload, offsets, _ := w.Finish()
	wantPayload := []byte{0x2A, 0, 0, 0, 0x2A, 0, 0, 0, 0, 0, 0, 0}
	if string(payload) != string(wantPayload) {
		t.Fatalf("payload = % x, want % x", payload, wantPayload)
	}
	if len(offsets) != 0 {
		t.Fatalf("expected no object offsets, got %v", offsets)
	}

	r := NewReader(io, payload, offsets, nil)
	v32, err := r.Int32()
	if err != nil || v32 != 42 {
		t.Fatalf("Int32() = %d, %v, want 42, nil", v32, err)
	}
	v64, err := r.Int64()
	if err != nil || v64 != 42 {
		t.Fatalf("Int64() = %d, %v, want 42, nil", v64, err)
	}
}

func TestWriterReaderString16RoundTrip(t *testing.T) {
	io := ioabi.Native()
	w := NewWriter(io)
	w.String16("x")
	payload, _, _ := w.Finish()

	r := NewReader(io, payload, nil, nil)
	s, err := r.String16()
	if err != nil {
		t.Fatalf("String16: %v", err)
	}
	if s != "x" {
		t.Fatalf("got %q, want %q", s, "x")
	}
}

func TestWriterReaderCStringRoundTrip(t *testing.T) {
	io := ioabi.Native()
	w := NewWriter(io)
	w.String8("android.hidl.base@1.0::IBase")
	w.Int32(7)
	payload, _, _ := w.Finish()

	r := NewReader(io, payload, nil, nil)
	s, err := r.CString()
	if err != nil {
		t.Fatalf("CString: %v", err)
	}
	if s != "android.hidl.base@1.0::IBase" {
		t.Fatalf("got %q, want %q", s, "android.hidl.base@1.0::IBase")
	}
	trailing, err := r.Int32()
	if err != nil {
		t.Fatalf("Int32 after CString: %v", err)
	}
	if trailing != 7 {
		t.Fatalf("got %d, want 7", trailing)
	}
}

func TestWriterReaderHidlStringRoundTrip(t *testing.T) {
	io := ioabi.Native()
	w := NewWriter(io)
	w.HidlString("android.hidl.base@1.0::IBase")
	payload, _, _ := w.Finish()

	r := NewReader(io, payload, nil, nil)
	s, err := r.HidlString()
	if err != nil {
		t.Fatalf("HidlString: %v", err)
	}
	if s != "android.hidl.base@1.0::IBase" {
		t.Fatalf("got %q", s)
	}
}

func TestReaderShortReadLeavesCursorInPlace(t *testing.T) {
	io := ioabi.Native()
	r := NewReader(io, []byte{1, 2}, nil, nil)
	if _, err := r.Int32(); err != ErrShortRead {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
	if r.Cursor() != 0 {
		t.Fatalf("cursor moved on failed read: %d", r.Cursor())
	}
}

func TestReadObjectWithoutOffsetMismatch(t *testing.T) {
	io := ioabi.Native()
	w := NewWriter(io)
	w.Int32(1)
	payload, offsets, _ := w.Finish()

	r := NewReader(io, payload, offsets, nil)
	r.Int32() //nolint:errcheck
	if _, _, err := r.ReadObject(); err != ErrObjectMismatch {
		t.Fatalf("expected ErrObjectMismatch, got %v", err)
	}
}

func TestHidlVecRoundTrip(t *testing.T) {
	io := ioabi.Native()
	items := []string{"x", "android.hidl.base@1.0::IBase"}

	w := NewWriter(io)
	w.HidlVec(len(items), func(i int) {
		w.HidlString(items[i])
	})
	payload, _, _ := w.Finish()

	r := NewReader(io, payload, nil, nil)
	var got []string
	n, err := r.HidlVec(func(i int) error {
		s, err := r.HidlString()
		if err != nil {
			return err
		}
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatalf("HidlVec: %v", err)
	}
	if n != len(items) {
		t.Fatalf("got %d elements, want %d", n, len(items))
	}
	for i, s := range items {
		if got[i] != s {
			t.Errorf("element %d = %q, want %q", i, got[i], s)
		}
	}
}
