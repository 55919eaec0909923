package servicemanager

import (
	binder "github.com/kbinder/go-binder"
)

// aidlServiceManager implements the legacy and AIDL2/3/4 dialects,
// which share get/check/list wire formats and differ only in what
// add_service appends after the name and the object itself.
type aidlServiceManager struct {
	client  *binder.Client
	variant Variant
}

func newAidlServiceManager(ipc *binder.Ipc, remote *binder.RemoteObject, variant Variant) *aidlServiceManager {
	client := binder.NewClient(ipc, remote, []binder.InterfaceRange{
		{Iface: aidlDescriptor, LastCode: listServicesTransaction},
	})
	return &aidlServiceManager{client: client, variant: variant}
}

func (s *aidlServiceManager) GetService(name string) (*binder.RemoteObject, error) {
	reply, err := s.client.Call(getServiceTransaction, func(r *binder.RemoteRequest) {
		r.String16(name)
	})
	if err != nil {
		return nil, err
	}
	return s.readServiceReply(reply)
}

func (s *aidlServiceManager) CheckService(name string) (*binder.RemoteObject, error) {
	reply, err := s.client.Call(checkServiceTransaction, func(r *binder.RemoteRequest) {
		r.String16(name)
	})
	if err != nil {
		return nil, err
	}
	return s.readServiceReply(reply)
}

func (s *aidlServiceManager) readServiceReply(reply *binder.RemoteReply) (*binder.RemoteObject, error) {
	remote, _, err := reply.ReadObject()
	if err != nil {
		return nil, err
	}
	return remote, nil
}

func (s *aidlServiceManager) AddService(name string, obj *binder.LocalObject) error {
	_, err := s.client.Call(addServiceTransaction, func(r *binder.RemoteRequest) {
		r.String16(name)
		r.LocalObject(obj)
		for _, field := range addServiceTailFields(s.variant) {
			r.Int32(field)
		}
	})
	return err
}

// addServiceTailFields returns the int32 fields AOSP grew onto
// add_service between Android 8 and Android 12, each dialect a
// superset of the last: legacy appends nothing, AIDL2 adds an
// allow-isolated flag, AIDL3 adds a dump-priority flag, AIDL4
// prepends a packed stability category ahead of both.
func addServiceTailFields(variant Variant) []int32 {
	switch variant {
	case AIDL2:
		return []int32{0} // allowIsolated
	case AIDL3:
		return []int32{0, dumpFlagPriorityDefault}
	case AIDL4:
		return []int32{stabilityCategory(systemStability, binderWireFormatVersion), 0, dumpFlagPriorityDefault}
	default: // Legacy
		return nil
	}
}

const (
	systemStability         = 0x0c
	binderWireFormatVersion = 1
)

// stabilityCategory packs the Stability::Category AOSP introduced in
// Android 12: a version byte, two reserved bytes and a one-byte level
// bitmask, little-endian in a single int32.
func stabilityCategory(level byte, version byte) int32 {
	return int32(version) | int32(level)<<24
}

func (s *aidlServiceManager) List() ([]string, error) {
	flag := int32(dumpFlagPriorityAll)
	if s.variant == Legacy {
		flag = 0
	}
	reply, err := s.client.Call(listServicesTransaction, func(r *binder.RemoteRequest) {
		r.Int32(flag)
	})
	if err != nil {
		return nil, err
	}
	count, err := reply.Int32()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := int32(0); i < count; i++ {
		name, err := reply.String16()
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Watch issues a single CheckService and calls onAvailable
// synchronously if name is already registered. It does not poll, so a
// service registered later is not reported. The returned cancel func
// does nothing.
func (s *aidlServiceManager) Watch(name string, onAvailable func(*binder.RemoteObject)) (func(), error) {
	remote, err := s.CheckService(name)
	if err != nil {
		return func() {}, err
	}
	if remote != nil && onAvailable != nil {
		onAvailable(remote)
	}
	return func() {}, nil
}
