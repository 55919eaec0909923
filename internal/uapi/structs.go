package uapi

import "unsafe"

// BinderWriteRead64 mirrors struct binder_write_read on a 64-bit ABI.
//
//	struct binder_write_read {
//	  binder_size_t  write_size;
//	  binder_size_t  write_consumed;
//	  binder_uintptr_t write_buffer;
//	  binder_size_t  read_size;
//	  binder_size_t  read_consumed;
//	  binder_uintptr_t read_buffer;
//	};
type BinderWriteRead64 struct {
	WriteSize     uint64
	WriteConsumed uint64
	WriteBuffer   uint64
	ReadSize      uint64
	ReadConsumed  uint64
	ReadBuffer    uint64
}

const SizeofBinderWriteRead64 = unsafe.Sizeof(BinderWriteRead64{})

var _ [48]byte = [SizeofBinderWriteRead64]byte{}

// BinderWriteRead32 is the 32-bit ABI variant: binder_size_t and
// binder_uintptr_t both shrink to 4 bytes.
type BinderWriteRead32 struct {
	WriteSize     uint32
	WriteConsumed uint32
	WriteBuffer   uint32
	ReadSize      uint32
	ReadConsumed  uint32
	ReadBuffer    uint32
}

const SizeofBinderWriteRead32 = unsafe.Sizeof(BinderWriteRead32{})

var _ [24]byte = [SizeofBinderWriteRead32]byte{}

// FlatBinderObject64 mirrors struct flat_binder_object on a 64-bit ABI.
// HandleOrBinder holds either a local object's address (BINDER_TYPE_BINDER/
// WEAK_BINDER) or a remote handle (BINDER_TYPE_HANDLE/WEAK_HANDLE/FD),
// matching the kernel's union of the two.
type FlatBinderObject64 struct {
	Type           uint32
	Flags          uint32
	HandleOrBinder uint64
	Cookie         uint64
}

const SizeofFlatBinderObject64 = unsafe.Sizeof(FlatBinderObject64{})

var _ [24]byte = [SizeofFlatBinderObject64]byte{}

// FlatBinderObject32 is the 32-bit ABI variant.
type FlatBinderObject32 struct {
	Type           uint32
	Flags          uint32
	HandleOrBinder uint32
	Cookie         uint32
}

const SizeofFlatBinderObject32 = unsafe.Sizeof(FlatBinderObject32{})

var _ [16]byte = [SizeofFlatBinderObject32]byte{}

// BinderTransactionData64 mirrors struct binder_transaction_data (64-bit ABI).
// TargetHandle and the Data union are both stored at their full 8-byte width;
// callers narrow as needed (TargetHandle's top 32 bits are always zero when
// it denotes a handle rather than a raw local-object pointer).
type BinderTransactionData64 struct {
	TargetHandle uint64
	Cookie       uint64
	Code         uint32
	Flags        uint32
	SenderPID    int32
	SenderEUID   uint32
	DataSize     uint64
	OffsetsSize  uint64
	DataBuffer   uint64
	DataOffsets  uint64
}

const SizeofBinderTransactionData64 = unsafe.Sizeof(BinderTransactionData64{})

var _ [64]byte = [SizeofBinderTransactionData64]byte{}

// BinderTransactionData32 is the 32-bit ABI variant.
type BinderTransactionData32 struct {
	TargetHandle uint32
	Cookie       uint32
	Code         uint32
	Flags        uint32
	SenderPID    int32
	SenderEUID   uint32
	DataSize     uint32
	OffsetsSize  uint32
	DataBuffer   uint32
	DataOffsets  uint32
}

const SizeofBinderTransactionData32 = unsafe.Sizeof(BinderTransactionData32{})

var _ [40]byte = [SizeofBinderTransactionData32]byte{}

// HandleCookie64 backs BC_REQUEST_DEATH_NOTIFICATION, BC_CLEAR_DEATH_NOTIFICATION.
type HandleCookie64 struct {
	Handle uint32
	_      uint32 // alignment padding, matches the kernel layout
	Cookie uint64
}

const SizeofHandleCookie64 = unsafe.Sizeof(HandleCookie64{})

// PtrCookie64 backs BR_INCREFS/BR_ACQUIRE/BR_RELEASE/BR_DECREFS and
// BC_INCREFS_DONE/BC_ACQUIRE_DONE.
type PtrCookie64 struct {
	Ptr    uint64
	Cookie uint64
}

const SizeofPtrCookie64 = unsafe.Sizeof(PtrCookie64{})

// BinderVersion mirrors struct binder_version, used with BINDER_VERSION.
type BinderVersion struct {
	ProtocolVersion int32
}

// BinderCurrentProtocolVersion is the value the kernel is expected to
// report; callers should treat a mismatch as a fatal transport error.
const BinderCurrentProtocolVersion int32 = 8
