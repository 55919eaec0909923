// Package servicemanager speaks to the well-known Binder object at
// handle 0, Android's context manager, under whichever of the four
// wire dialects the device's service manager happens to implement.
package servicemanager

import (
	binder "github.com/kbinder/go-binder"
)

// well-known handle bound to every process's context manager.
const contextManagerHandle = 0

// Transaction codes shared by the legacy and AIDL2/3/4 dialects. AOSP
// has kept these stable since IServiceManager's introduction; the
// dialects differ in payload shape, not in transaction numbering.
const (
	getServiceTransaction   = binder.FirstCallTransaction + 0
	checkServiceTransaction = binder.FirstCallTransaction + 1
	addServiceTransaction   = binder.FirstCallTransaction + 2
	listServicesTransaction = binder.FirstCallTransaction + 3
)

// dump priority flags accompanying AIDL3+'s add/list calls.
const (
	dumpFlagPriorityCritical = 1 << 0
	dumpFlagPriorityHigh     = 1 << 1
	dumpFlagPriorityNormal   = 1 << 2
	dumpFlagPriorityDefault  = dumpFlagPriorityCritical | dumpFlagPriorityHigh | dumpFlagPriorityNormal
	dumpFlagPriorityAll      = dumpFlagPriorityDefault | (1 << 3)
)

const aidlDescriptor = "android.os.IServiceManager"

// Variant selects which wire dialect to speak to the context manager.
// Devices disagree on this. The legacy and AIDL2/3/4 dialects here all
// send the same interface-token header and String16 names; they differ
// in the int32 fields add_service appends and in list's priority flag.
// /dev/hwbinder speaks HIDL instead of AIDL entirely.
type Variant int

const (
	Legacy Variant = iota
	AIDL2
	AIDL3
	AIDL4
	HIDL
)

func (v Variant) String() string {
	switch v {
	case Legacy:
		return "legacy"
	case AIDL2:
		return "aidl2"
	case AIDL3:
		return "aidl3"
	case AIDL4:
		return "aidl4"
	case HIDL:
		return "hidl"
	default:
		return "unknown"
	}
}

// ParseVariant maps a config-file variant name to its Variant, as used
// by internal/config's ServiceManager field.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case "", "legacy":
		return Legacy, nil
	case "aidl2":
		return AIDL2, nil
	case "aidl3":
		return AIDL3, nil
	case "aidl4":
		return AIDL4, nil
	case "hidl":
		return HIDL, nil
	default:
		return Legacy, binder.NewError("PARSE_VARIANT", binder.ErrCodeInvalid, "unknown servicemanager variant "+name)
	}
}

// ServiceManager looks up, registers and watches named services
// through a device's context manager.
type ServiceManager interface {
	// List returns every registered service name.
	List() ([]string, error)

	// GetService blocks (subject to the underlying transaction's own
	// timeout behavior) waiting for name to become available.
	GetService(name string) (*binder.RemoteObject, error)

	// CheckService returns immediately, yielding a nil object if name
	// is not currently registered. The HIDL dialect has no separate
	// check call; its CheckService is GetService.
	CheckService(name string) (*binder.RemoteObject, error)

	// AddService registers obj under name with this process as owner.
	AddService(name string, obj *binder.LocalObject) error

	// Watch issues one CheckService for name and, if the service is
	// already registered, calls onAvailable before returning. If it is
	// not, onAvailable is never called: a later registration is not
	// watched for. The returned func does nothing.
	Watch(name string, onAvailable func(*binder.RemoteObject)) (cancel func(), err error)
}

// New opens the context manager for ipc under variant and returns a
// ServiceManager speaking that dialect.
func New(ipc *binder.Ipc, variant Variant) (ServiceManager, error) {
	remote, err := ipc.GetRemote(contextManagerHandle)
	if err != nil {
		return nil, binder.WrapError("SERVICEMANAGER_NEW", err)
	}

	if variant == HIDL {
		return newHidlServiceManager(ipc, remote), nil
	}
	return newAidlServiceManager(ipc, remote, variant), nil
}
