// Package protocol implements the two RPC-header dialects Binder
// clients speak: AIDL (modern Android, /dev/binder) and HIDL (the older
// HAL wire format, /dev/hwbinder). A Protocol only knows how to
// read/write the header bytes every non-built-in transaction carries;
// it has no opinion about transports or object lifetime.
package protocol

import (
	"github.com/kbinder/go-binder/internal/parcel"
	"github.com/kbinder/go-binder/internal/uapi"
)

// Protocol selects the RPC-header dialect for one device.
type Protocol int

const (
	AIDL Protocol = iota
	HIDL
)

// String implements fmt.Stringer for log messages.
func (p Protocol) String() string {
	if p == HIDL {
		return "hidl"
	}
	return "aidl"
}

// ForDevice returns the conventional Protocol for a device path,
// defaulting to AIDL for anything not recognized as the HIDL node.
func ForDevice(path string) Protocol {
	if path == uapi.DefaultHwBinderDevice {
		return HIDL
	}
	return AIDL
}

// WriteHeader appends the RPC header identifying iface to w, following
// this Protocol's dialect. AIDL prepends a strict-mode policy word (and,
// per the reproduced Category byte pattern, a stability marker after the
// descriptor) before the interface name; HIDL writes a bare NUL-padded
// interface string.
func (p Protocol) WriteHeader(w *parcel.Writer, iface string) {
	switch p {
	case AIDL:
		w.Int32(0) // strict_mode_policy
		w.String16(iface)
		w.Bytes([]byte{uapi.StabilityCategorySystem, 0, 0, uapi.StabilityVersion})
	case HIDL:
		w.String8(iface)
	}
}

// ReadHeader consumes the RPC header from r and returns the interface
// name it names, for dispatch against a LocalObject's supported list.
func (p Protocol) ReadHeader(r *parcel.Reader) (iface string, err error) {
	switch p {
	case AIDL:
		if _, err = r.Int32(); err != nil {
			return "", err
		}
		iface, err = r.String16()
		if err != nil {
			return "", err
		}
		if _, err = r.Bytes(4); err != nil {
			return "", err
		}
		return iface, nil
	case HIDL:
		return r.CString()
	}
	return "", nil
}
