// Package interfaces provides internal interface definitions for go-binder.
// These are separate from the public interfaces to avoid circular imports
// between the root package and the internal packages that implement it.
package interfaces

// Logger is the minimal logging surface internal packages depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives transaction-level events for metrics collection.
// Implementations must be thread-safe: methods are called from the
// looper goroutine and from worker-pool goroutines concurrently.
type Observer interface {
	// ObserveTransaction is called when a sync or oneway transaction completes.
	ObserveTransaction(latencyNs uint64, oneway bool, success bool)
	// ObserveAsync is called when an async transaction's callback fires.
	ObserveAsync(latencyNs uint64, cancelled bool, success bool)
	// ObserveIncoming is called when the looper dispatches an incoming transaction.
	ObserveIncoming(code uint32, builtin bool)
	// ObserveDeath is called when a RemoteObject transitions to dead.
	ObserveDeath()
}

// RemoteObj is the surface a parcel needs from a proxy for an object
// living in another process. Concrete implementations live in
// internal/remoteobj; this interface exists so internal/parcel and
// internal/registry never need to import that package.
type RemoteObj interface {
	Handle() uint32
	Dead() bool
	// Cookie is the value registered with the kernel for death
	// notifications on this handle; by convention it's the wrapper's
	// own address, reinterpreted as a u64.
	Cookie() uint64
}

// LocalObj is the surface a parcel needs from an object exposed to other
// processes. Concrete implementations live in internal/localobj.
type LocalObj interface {
	// Ptr is the opaque cookie value identifying this object to the kernel.
	Ptr() uint64
}

// ObjectResolver turns wire-level handles and pointers into the live
// wrapper objects a Reader embeds in decoded parcels. internal/registry
// implements this; internal/parcel depends only on the interface.
type ObjectResolver interface {
	GetRemote(handle uint32, mayCreate bool) (RemoteObj, error)
	GetLocal(ptr uint64) (LocalObj, bool)
}
