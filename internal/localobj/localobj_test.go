package localobj

import (
	"bytes"
	"testing"

	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/parcel"
	"github.com/kbinder/go-binder/internal/uapi"
)

func TestDispatchPingHidl(t *testing.T) {
	o := New([]string{"x"}, nil, ioabi.Native())
	payload, status := o.Dispatch(uapi.HIDL_PING_TRANSACTION, 0, nil)
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	want := []byte{0, 0, 0, 0}
	if !bytes.Equal(payload, want) {
		t.Fatalf("payload = % x, want % x", payload, want)
	}
}

func TestDispatchInterfaceQueryAidl(t *testing.T) {
	o := New([]string{"x"}, nil, ioabi.Native())
	payload, status := o.Dispatch(uapi.AIDL_INTERFACE_TRANSACTION, 0, nil)
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x78, 0x00, 0x00, 0x00}
	if !bytes.Equal(payload, want) {
		t.Fatalf("payload = % x, want % x", payload, want)
	}
}

// HIDL's GET_DESCRIPTOR reply is int32(status) followed by a
// hidl_string, a different encoding from AIDL's bare String16.
func TestDispatchInterfaceQueryHidl(t *testing.T) {
	o := New([]string{"x"}, nil, ioabi.Native())
	payload, status := o.Dispatch(uapi.HIDL_GET_DESCRIPTOR_TRANSACTION, 0, nil)
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	want := []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x78, 0x00, 0x00, 0x00}
	if !bytes.Equal(payload, want) {
		t.Fatalf("payload = % x, want % x", payload, want)
	}
}

func TestDispatchDescriptorChainOrderAndCount(t *testing.T) {
	ifaces := []string{"x", "android.hidl.base@1.0::IBase"}
	o := New(ifaces, nil, ioabi.Native())
	payload, status := o.Dispatch(uapi.HIDL_DESCRIPTOR_CHAIN_TRANSACTION, 0, nil)
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}

	if len(payload) < 4 {
		t.Fatal("payload too short to contain hidl_vec count")
	}
	count := int32(payload[0]) | int32(payload[1])<<8 | int32(payload[2])<<16 | int32(payload[3])<<24
	if int(count) != len(ifaces) {
		t.Fatalf("vec count = %d, want %d", count, len(ifaces))
	}
}

func TestCanHandleBuiltinsAreLooperDisposition(t *testing.T) {
	o := New([]string{"x"}, nil, ioabi.Native())
	for _, code := range []uint32{
		uapi.AIDL_PING_TRANSACTION,
		uapi.HIDL_PING_TRANSACTION,
		uapi.HIDL_GET_DESCRIPTOR_TRANSACTION,
		uapi.HIDL_DESCRIPTOR_CHAIN_TRANSACTION,
	} {
		if d := o.CanHandle("", code); d != Looper {
			t.Errorf("code %x: disposition = %v, want Looper", code, d)
		}
		if d := o.CanHandle("x", code); d != Looper {
			t.Errorf("code %x against declared interface: disposition = %v, want Looper", code, d)
		}
	}
}

func TestCanHandleUnsupportedWithoutHandler(t *testing.T) {
	o := New([]string{"x"}, nil, ioabi.Native())
	if d := o.CanHandle("", 0x1000); d != NotSupported {
		t.Fatalf("disposition = %v, want NotSupported", d)
	}
}

func TestCanHandleSupportedWithHandler(t *testing.T) {
	called := false
	handler := func(code, flags uint32, req *parcel.Reader) (*parcel.Writer, int32) {
		called = true
		return nil, 0
	}
	o := New([]string{"x"}, handler, ioabi.Native())
	if d := o.CanHandle("", 0x1000); d != Supported {
		t.Fatalf("disposition = %v, want Supported", d)
	}
	payload, status := o.Dispatch(0x1000, 0, nil)
	if !called {
		t.Fatal("expected handler to run for a non-builtin code")
	}
	if payload != nil || status != 0 {
		t.Fatalf("got payload=%v status=%d, want nil, 0", payload, status)
	}
}

// An object never answers under an interface it doesn't expose, built-in
// query or user code alike (unit_local_object.c's multi-interface test).
func TestCanHandleRejectsUnclaimedInterface(t *testing.T) {
	handler := func(code, flags uint32, req *parcel.Reader) (*parcel.Writer, int32) {
		return nil, 0
	}
	o := New([]string{"x"}, handler, ioabi.Native())

	if d := o.CanHandle("android.hidl.base@1.0::IBase", uapi.HIDL_PING_TRANSACTION); d != NotSupported {
		t.Fatalf("builtin under unclaimed interface: disposition = %v, want NotSupported", d)
	}
	if d := o.CanHandle("android.hidl.base@1.0::IBase", 0x1000); d != NotSupported {
		t.Fatalf("user code under unclaimed interface: disposition = %v, want NotSupported", d)
	}
	if d := o.CanHandle("x", 0x1000); d != Supported {
		t.Fatalf("user code under declared interface: disposition = %v, want Supported", d)
	}
}

func TestRefcountTransitionsToZero(t *testing.T) {
	o := New([]string{"x"}, nil, ioabi.Native())
	o.AcquireLocked()
	if zero := o.ReleaseLocked(); !zero {
		t.Fatal("expected strong+weak to reach zero after matching Acquire/Release")
	}
}
