// Package binder is a userspace client library for the Android Binder
// IPC mechanism: it speaks the Binder wire protocol to a kernel driver
// device node (/dev/binder, /dev/hwbinder, ...) to invoke methods on
// remote objects hosted in other processes and to host local objects
// invokable from other processes.
//
// Open or GetOrOpen a device to obtain an Ipc, look up a peer with
// Ipc.GetRemote, and either transact against it directly or wrap it in
// a Client for interface-aware request building:
//
//	ipc, err := binder.GetOrOpen(binder.DefaultBinderDevice, nil)
//	remote, err := ipc.GetRemote(someHandle)
//	client := binder.NewClient(ipc, remote, []binder.InterfaceRange{
//		{Iface: "android.os.IServiceManager", LastCode: 10},
//	})
//	reply, err := client.Call(checkServiceCode, func(r *binder.RemoteRequest) {
//		r.String16("media.audio_flinger")
//	})
package binder
