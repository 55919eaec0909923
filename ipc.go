package binder

import (
	"sync"

	"github.com/kbinder/go-binder/internal/driver"
	"github.com/kbinder/go-binder/internal/interfaces"
	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/localobj"
	"github.com/kbinder/go-binder/internal/logging"
	"github.com/kbinder/go-binder/internal/protocol"
	"github.com/kbinder/go-binder/internal/registry"
	"github.com/kbinder/go-binder/internal/remoteobj"
	"github.com/kbinder/go-binder/internal/txn"
)

// Logger is the logging surface an Ipc and its subsystems use.
type Logger = interfaces.Logger

// Options configures Open and GetOrOpen.
type Options struct {
	// Logger receives debug/info/warn/error messages; defaults to
	// internal/logging's package default if nil.
	Logger Logger

	// Observer receives per-call metrics events; defaults to a
	// MetricsObserver wrapping a fresh Metrics instance if nil.
	Observer Observer

	// Workers sets the initial worker pool size; zero selects the
	// Transaction Engine's default.
	Workers int

	// MaxThreads caps the looper thread pool the kernel will spawn.
	MaxThreads uint32

	// MapSize overrides the size of the mmap'd receive region.
	MapSize uintptr
}

// Ipc owns one open Binder device: the driver, the object registry, and
// the transaction engine multiplexing calls across it.
type Ipc struct {
	device   string
	protocol protocol.Protocol
	driver   *driver.Driver
	registry *registry.Registry
	engine   *txn.Engine
	metrics  *Metrics
	observer Observer
	logger   Logger

	mu   sync.Mutex
	refs int
}

var (
	processIpcsMu sync.Mutex
	processIpcs   = map[string]*Ipc{}
)

// GetOrOpen returns the process-wide Ipc bound to device, opening it on
// the first call and handing out a reference-counted handle to the same
// Ipc on subsequent calls — spec.md §9's single-runtime-per-device
// convention, so two packages in one process never fight over the same
// fd and looper.
func GetOrOpen(device string, options *Options) (*Ipc, error) {
	processIpcsMu.Lock()
	defer processIpcsMu.Unlock()

	if ipc, ok := processIpcs[device]; ok {
		ipc.mu.Lock()
		ipc.refs++
		ipc.mu.Unlock()
		return ipc, nil
	}

	ipc, err := Open(device, options)
	if err != nil {
		return nil, err
	}
	ipc.refs = 1
	processIpcs[device] = ipc
	return ipc, nil
}

// Open opens device directly, bypassing the process-wide cache. Most
// callers should prefer GetOrOpen; Open is useful for tests that want an
// isolated Ipc per test case.
func Open(device string, options *Options) (*Ipc, error) {
	if options == nil {
		options = &Options{}
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Default()
	}

	d, err := driver.Open(device, driver.Options{
		MaxThreads: options.MaxThreads,
		MapSize:    options.MapSize,
	})
	if err != nil {
		return nil, WrapError("OPEN", err)
	}

	metrics := NewMetrics()
	observer := options.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	ipc := &Ipc{
		device:   device,
		protocol: protocol.ForDevice(device),
		driver:   d,
		metrics:  metrics,
		observer: observer,
		logger:   logger,
	}
	ipc.registry = registry.New(d, ipc.newRemoteObject)
	ipc.engine = txn.New(d, ipc.protocol, ipc.registry, logger, observer)

	if err := ipc.engine.Start(options.Workers); err != nil {
		_ = d.Close()
		return nil, WrapError("START", err)
	}

	return ipc, nil
}

func (i *Ipc) newRemoteObject(handle uint32) interfaces.RemoteObj {
	return remoteobj.New(handle, i.driver, i.registry)
}

func (i *Ipc) wrapRemote(ro interfaces.RemoteObj) *RemoteObject {
	if ro == nil {
		return nil
	}
	rc, _ := ro.(*remoteobj.RemoteObject)
	return &RemoteObject{inner: rc, ipc: i}
}

func (i *Ipc) wrapLocal(lo interfaces.LocalObj) *LocalObject {
	if lo == nil {
		return nil
	}
	lc, _ := lo.(*localobj.LocalObject)
	return &LocalObject{inner: lc}
}

// Device returns the device node path this Ipc was opened against.
func (i *Ipc) Device() string { return i.device }

// Protocol returns the RPC dialect selected for this device (AIDL for
// /dev/binder, HIDL for /dev/hwbinder).
func (i *Ipc) Protocol() protocol.Protocol { return i.protocol }

// IO returns the ABI-selected wire codec for this device, needed to
// build LocalObjects and Requests directly.
func (i *Ipc) IO() ioabi.Io { return i.driver.Io() }

// GetRemote returns the RemoteObject proxying handle, creating and
// acquiring it with the kernel on first use and returning the cached
// wrapper on subsequent calls for the same handle.
func (i *Ipc) GetRemote(handle uint32) (*RemoteObject, error) {
	ro, err := i.registry.GetRemote(handle, true)
	if err != nil {
		return nil, WrapError("GET_REMOTE", err)
	}
	return i.wrapRemote(ro), nil
}

// Register exposes local to other processes by adding it to this Ipc's
// object registry; incoming transactions whose target pointer matches
// local.Ptr() will be dispatched to it.
func (i *Ipc) Register(local *LocalObject) {
	i.registry.RegisterLocal(local.inner)
}

// Unregister removes local from this Ipc's object registry.
func (i *Ipc) Unregister(local *LocalObject) {
	i.registry.UnregisterLocal(local.inner)
}

// Metrics returns this Ipc's built-in metrics, regardless of which
// Observer was configured — useful for dashboards even when a custom
// Observer is also wired in for forwarding.
func (i *Ipc) Metrics() *Metrics { return i.metrics }

// Close releases this process's reference to the Ipc; once the last
// reference is released, the Transaction Engine is stopped and the
// device fd is closed.
func (i *Ipc) Close() error {
	processIpcsMu.Lock()
	i.mu.Lock()
	if i.refs > 0 {
		i.refs--
	}
	remaining := i.refs
	i.mu.Unlock()
	if remaining > 0 {
		processIpcsMu.Unlock()
		return nil
	}
	delete(processIpcs, i.device)
	processIpcsMu.Unlock()

	i.engine.Stop()
	i.metrics.Stop()
	return i.driver.Close()
}
