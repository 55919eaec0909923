// Package ioabi abstracts the one dimension of Binder's wire format that
// depends on the host process's pointer width: whether binder_size_t and
// binder_uintptr_t fields are 4 or 8 bytes wide. Everything above this
// package works in terms of plain uint64s; the Io implementation narrows
// or widens them at the moment bytes cross into or out of the kernel.
package ioabi

import (
	"unsafe"

	"github.com/kbinder/go-binder/internal/uapi"
)

// Io encodes and decodes the ABI-dependent uapi structs for one pointer
// width. Callers obtain the right Io once via Native() and reuse it for
// the lifetime of a driver; the kernel never changes ABI under a running
// process.
type Io interface {
	// WriteReadSize returns sizeof(binder_write_read) for this ABI.
	WriteReadSize() int
	// TransactionDataSize returns sizeof(binder_transaction_data) for this ABI.
	TransactionDataSize() int
	// FlatObjectSize returns sizeof(flat_binder_object) for this ABI.
	FlatObjectSize() int

	// MarshalWriteRead encodes a write/read control block.
	MarshalWriteRead(wr WriteRead) []byte
	// UnmarshalWriteRead decodes a write/read control block, returning the
	// consumed counts the kernel wrote back.
	UnmarshalWriteRead(data []byte) WriteRead

	// MarshalTransaction encodes an outgoing BC_TRANSACTION/BC_REPLY payload.
	MarshalTransaction(t TransactionData) []byte
	// UnmarshalTransaction decodes a BR_TRANSACTION/BR_REPLY payload.
	UnmarshalTransaction(data []byte) TransactionData

	// MarshalFlatObject encodes a flat_binder_object.
	MarshalFlatObject(o FlatObject) []byte
	// UnmarshalFlatObject decodes a flat_binder_object.
	UnmarshalFlatObject(data []byte) FlatObject

	// WriteReadIoctl returns the BINDER_WRITE_READ ioctl number for this ABI.
	WriteReadIoctl() uint32
}

// WriteRead is the ABI-independent view of binder_write_read.
type WriteRead struct {
	WriteSize     uint64
	WriteConsumed uint64
	WriteBuffer   uint64
	ReadSize      uint64
	ReadConsumed  uint64
	ReadBuffer    uint64
}

// TransactionData is the ABI-independent view of binder_transaction_data.
type TransactionData struct {
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

// FlatObject is the ABI-independent view of flat_binder_object.
type FlatObject struct {
	Type           uint32
	Flags          uint32
	HandleOrBinder uint64
	Cookie         uint64
}

// Native returns the Io implementation matching the running process's
// pointer width. Binder has no provision for a 32-bit userspace process
// talking to the driver with 64-bit structs or vice versa, so this is
// decided once at process start and never reconsidered.
func Native() Io {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return io64{}
	}
	return io32{}
}

type io64 struct{}

func (io64) WriteReadSize() int          { return int(uapi.SizeofBinderWriteRead64) }
func (io64) TransactionDataSize() int    { return int(uapi.SizeofBinderTransactionData64) }
func (io64) FlatObjectSize() int         { return int(uapi.SizeofFlatBinderObject64) }
func (io64) WriteReadIoctl() uint32      { return uapi.BINDER_WRITE_READ }

func (io64) MarshalWriteRead(wr WriteRead) []byte {
	return uapi.Marshal(&uapi.BinderWriteRead64{
		WriteSize:     wr.WriteSize,
		WriteConsumed: wr.WriteConsumed,
		WriteBuffer:   wr.WriteBuffer,
		ReadSize:      wr.ReadSize,
		ReadConsumed:  wr.ReadConsumed,
		ReadBuffer:    wr.ReadBuffer,
	})
}

func (io64) UnmarshalWriteRead(data []byte) WriteRead {
	var w uapi.BinderWriteRead64
	_ = uapi.Unmarshal(data, &w)
	return WriteRead{
		WriteSize:     w.WriteSize,
		WriteConsumed: w.WriteConsumed,
		WriteBuffer:   w.WriteBuffer,
		ReadSize:      w.ReadSize,
		ReadConsumed:  w.ReadConsumed,
		ReadBuffer:    w.ReadBuffer,
	}
}

func (io64) MarshalTransaction(t TransactionData) []byte {
	return uapi.Marshal(&uapi.BinderTransactionData64{
		TargetHandle: t.TargetHandle,
		Cookie:       t.Cookie,
		Code:         t.Code,
		Flags:        t.Flags,
		SenderPID:    t.SenderPID,
		SenderEUID:   t.SenderEUID,
		DataSize:     t.DataSize,
		OffsetsSize:  t.OffsetsSize,
		DataBuffer:   t.DataBuffer,
		DataOffsets:  t.DataOffsets,
	})
}

func (io64) UnmarshalTransaction(data []byte) TransactionData {
	var t uapi.BinderTransactionData64
	_ = uapi.Unmarshal(data, &t)
	return TransactionData{
		TargetHandle: t.TargetHandle,
		Cookie:       t.Cookie,
		Code:         t.Code,
		Flags:        t.Flags,
		SenderPID:    t.SenderPID,
		SenderEUID:   t.SenderEUID,
		DataSize:     t.DataSize,
		OffsetsSize:  t.OffsetsSize,
		DataBuffer:   t.DataBuffer,
		DataOffsets:  t.DataOffsets,
	}
}

func (io64) MarshalFlatObject(o FlatObject) []byte {
	return uapi.Marshal(&uapi.FlatBinderObject64{
		Type:           o.Type,
		Flags:          o.Flags,
		HandleOrBinder: o.HandleOrBinder,
		Cookie:         o.Cookie,
	})
}

func (io64) UnmarshalFlatObject(data []byte) FlatObject {
	var o uapi.FlatBinderObject64
	_ = uapi.Unmarshal(data, &o)
	return FlatObject{
		Type:           o.Type,
		Flags:          o.Flags,
		HandleOrBinder: o.HandleOrBinder,
		Cookie:         o.Cookie,
	}
}

type io32 struct{}

func (io32) WriteReadSize() int       { return int(uapi.SizeofBinderWriteRead32) }
func (io32) TransactionDataSize() int { return int(uapi.SizeofBinderTransactionData32) }
func (io32) FlatObjectSize() int      { return int(uapi.SizeofFlatBinderObject32) }
func (io32) WriteReadIoctl() uint32   { return uapi.BINDER_WRITE_READ }

func (io32) MarshalWriteRead(wr WriteRead) []byte {
	return uapi.Marshal(&uapi.BinderWriteRead32{
		WriteSize:     uint32(wr.WriteSize),
		WriteConsumed: uint32(wr.WriteConsumed),
		WriteBuffer:   uint32(wr.WriteBuffer),
		ReadSize:      uint32(wr.ReadSize),
		ReadConsumed:  uint32(wr.ReadConsumed),
		ReadBuffer:    uint32(wr.ReadBuffer),
	})
}

func (io32) UnmarshalWriteRead(data []byte) WriteRead {
	var w uapi.BinderWriteRead32
	_ = uapi.Unmarshal(data, &w)
	return WriteRead{
		WriteSize:     uint64(w.WriteSize),
		WriteConsumed: uint64(w.WriteConsumed),
		WriteBuffer:   uint64(w.WriteBuffer),
		ReadSize:      uint64(w.ReadSize),
		ReadConsumed:  uint64(w.ReadConsumed),
		ReadBuffer:    uint64(w.ReadBuffer),
	}
}

func (io32) MarshalTransaction(t TransactionData) []byte {
	return uapi.Marshal(&uapi.BinderTransactionData32{
		TargetHandle: uint32(t.TargetHandle),
		Cookie:       uint32(t.Cookie),
		Code:         t.Code,
		Flags:        t.Flags,
		SenderPID:    t.SenderPID,
		SenderEUID:   t.SenderEUID,
		DataSize:     uint32(t.DataSize),
		OffsetsSize:  uint32(t.OffsetsSize),
		DataBuffer:   uint32(t.DataBuffer),
		DataOffsets:  uint32(t.DataOffsets),
	})
}

func (io32) UnmarshalTransaction(data []byte) TransactionData {
	var t uapi.BinderTransactionData32
	_ = uapi.Unmarshal(data, &t)
	return TransactionData{
		TargetHandle: uint64(t.TargetHandle),
		Cookie:       uint64(t.Cookie),
		Code:         t.Code,
		Flags:        t.Flags,
		SenderPID:    t.SenderPID,
		SenderEUID:   t.SenderEUID,
		DataSize:     uint64(t.DataSize),
		OffsetsSize:  uint64(t.OffsetsSize),
		DataBuffer:   uint64(t.DataBuffer),
		DataOffsets:  uint64(t.DataOffsets),
	}
}

func (io32) MarshalFlatObject(o FlatObject) []byte {
	return uapi.Marshal(&uapi.FlatBinderObject32{
		Type:           o.Type,
		Flags:          o.Flags,
		HandleOrBinder: uint32(o.HandleOrBinder),
		Cookie:         uint32(o.Cookie),
	})
}

func (io32) UnmarshalFlatObject(data []byte) FlatObject {
	var o uapi.FlatBinderObject32
	_ = uapi.Unmarshal(data, &o)
	return FlatObject{
		Type:           o.Type,
		Flags:          o.Flags,
		HandleOrBinder: uint64(o.HandleOrBinder),
		Cookie:         uint64(o.Cookie),
	}
}
