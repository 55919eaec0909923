package servicemanager

import (
	binder "github.com/kbinder/go-binder"
)

const hidlDescriptor = "android.hidl.manager@1.0::IServiceManager"

// Transaction codes from android.hidl.manager@1.0::IServiceManager,
// numbered from FIRST_CALL_TRANSACTION the way every HIDL interface's
// generated stub is.
const (
	hidlGetTransaction                      = binder.FirstCallTransaction + 0
	hidlAddTransaction                      = binder.FirstCallTransaction + 1
	hidlListTransaction                     = binder.FirstCallTransaction + 2
	hidlListByInterfaceTransaction           = binder.FirstCallTransaction + 3
	hidlRegisterForNotificationsTransaction  = binder.FirstCallTransaction + 4
)

// hidlServiceManager implements android.hidl.manager@1.0, used on
// /dev/hwbinder. Names are fqName+instance pairs in the real
// interface; this client treats name as an opaque instance string
// the way gbinder's hwservicemanager client does, leaving fqName
// negotiation to the caller.
type hidlServiceManager struct {
	client *binder.Client
}

func newHidlServiceManager(ipc *binder.Ipc, remote *binder.RemoteObject) *hidlServiceManager {
	client := binder.NewClient(ipc, remote, []binder.InterfaceRange{
		{Iface: hidlDescriptor, LastCode: hidlRegisterForNotificationsTransaction},
	})
	return &hidlServiceManager{client: client}
}

func (s *hidlServiceManager) GetService(name string) (*binder.RemoteObject, error) {
	reply, err := s.client.Call(hidlGetTransaction, func(r *binder.RemoteRequest) {
		r.HidlString(name)
	})
	if err != nil {
		return nil, err
	}
	remote, _, err := reply.ReadObject()
	return remote, err
}

// CheckService has no native HIDL counterpart; hidl's get blocks for a
// startup grace period rather than failing fast, so CheckService is
// simply an alias.
func (s *hidlServiceManager) CheckService(name string) (*binder.RemoteObject, error) {
	return s.GetService(name)
}

func (s *hidlServiceManager) AddService(name string, obj *binder.LocalObject) error {
	reply, err := s.client.Call(hidlAddTransaction, func(r *binder.RemoteRequest) {
		r.LocalObject(obj)
		r.HidlString(name)
	})
	if err != nil {
		return err
	}
	ok, err := reply.Int32()
	if err != nil {
		return err
	}
	if ok == 0 {
		return binder.NewError("ADD_SERVICE", binder.ErrCodeTransaction, "hwservicemanager refused registration")
	}
	return nil
}

func (s *hidlServiceManager) List() ([]string, error) {
	reply, err := s.client.Call(hidlListTransaction, nil)
	if err != nil {
		return nil, err
	}
	var names []string
	_, err = reply.HidlVec(func(i int) error {
		name, err := reply.HidlString()
		if err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	return names, err
}

// Watch does not call registerForNotifications: this package owns no
// LocalObject to receive IServiceNotification callbacks. Like the AIDL
// dialects' Watch, it issues one CheckService and calls onAvailable only
// if name is already registered. The returned cancel func does nothing.
func (s *hidlServiceManager) Watch(name string, onAvailable func(*binder.RemoteObject)) (func(), error) {
	remote, err := s.CheckService(name)
	if err != nil {
		return func() {}, err
	}
	if remote != nil && onAvailable != nil {
		onAvailable(remote)
	}
	return func() {}, nil
}
