package uapi

import "encoding/binary"

// MarshalError reports a wire-encoding failure.
type MarshalError string

func (e MarshalError) Error() string { return string(e) }

const (
	ErrInsufficientData MarshalError = "insufficient data for unmarshaling"
	ErrUnsupportedType  MarshalError = "unsupported type for marshaling"
)

// Marshal encodes a known uapi struct into its little-endian wire form.
// An unrecognized type yields nil, mirroring the zero-value-on-miss
// behavior callers rely on elsewhere in this package.
func Marshal(v interface{}) []byte {
	switch val := v.(type) {
	case *BinderWriteRead64:
		return marshalWriteRead64(val)
	case *BinderWriteRead32:
		return marshalWriteRead32(val)
	case *FlatBinderObject64:
		return marshalFlatObject64(val)
	case *FlatBinderObject32:
		return marshalFlatObject32(val)
	case *BinderTransactionData64:
		return marshalTxnData64(val)
	case *BinderTransactionData32:
		return marshalTxnData32(val)
	case *HandleCookie64:
		return marshalHandleCookie64(val)
	case *PtrCookie64:
		return marshalPtrCookie64(val)
	default:
		return nil
	}
}

// Unmarshal decodes bytes into a known uapi struct.
func Unmarshal(data []byte, v interface{}) error {
	switch val := v.(type) {
	case *BinderWriteRead64:
		return unmarshalWriteRead64(data, val)
	case *BinderWriteRead32:
		return unmarshalWriteRead32(data, val)
	case *FlatBinderObject64:
		return unmarshalFlatObject64(data, val)
	case *FlatBinderObject32:
		return unmarshalFlatObject32(data, val)
	case *BinderTransactionData64:
		return unmarshalTxnData64(data, val)
	case *BinderTransactionData32:
		return unmarshalTxnData32(data, val)
	case *PtrCookie64:
		return unmarshalPtrCookie64(data, val)
	default:
		return ErrUnsupportedType
	}
}

func marshalWriteRead64(w *BinderWriteRead64) []byte {
	buf := make([]byte, SizeofBinderWriteRead64)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], w.WriteSize)
	le.PutUint64(buf[8:16], w.WriteConsumed)
	le.PutUint64(buf[16:24], w.WriteBuffer)
	le.PutUint64(buf[24:32], w.ReadSize)
	le.PutUint64(buf[32:40], w.ReadConsumed)
	le.PutUint64(buf[40:48], w.ReadBuffer)
	return buf
}

func unmarshalWriteRead64(data []byte, w *BinderWriteRead64) error {
	if len(data) < int(SizeofBinderWriteRead64) {
		return ErrInsufficientData
	}
	le := binary.LittleEndian
	w.WriteSize = le.Uint64(data[0:8])
	w.WriteConsumed = le.Uint64(data[8:16])
	w.WriteBuffer = le.Uint64(data[16:24])
	w.ReadSize = le.Uint64(data[24:32])
	w.ReadConsumed = le.Uint64(data[32:40])
	w.ReadBuffer = le.Uint64(data[40:48])
	return nil
}

func marshalWriteRead32(w *BinderWriteRead32) []byte {
	buf := make([]byte, SizeofBinderWriteRead32)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], w.WriteSize)
	le.PutUint32(buf[4:8], w.WriteConsumed)
	le.PutUint32(buf[8:12], w.WriteBuffer)
	le.PutUint32(buf[12:16], w.ReadSize)
	le.PutUint32(buf[16:20], w.ReadConsumed)
	le.PutUint32(buf[20:24], w.ReadBuffer)
	return buf
}

func unmarshalWriteRead32(data []byte, w *BinderWriteRead32) error {
	if len(data) < int(SizeofBinderWriteRead32) {
		return ErrInsufficientData
	}
	le := binary.LittleEndian
	w.WriteSize = le.Uint32(data[0:4])
	w.WriteConsumed = le.Uint32(data[4:8])
	w.WriteBuffer = le.Uint32(data[8:12])
	w.ReadSize = le.Uint32(data[12:16])
	w.ReadConsumed = le.Uint32(data[16:20])
	w.ReadBuffer = le.Uint32(data[20:24])
	return nil
}

func marshalFlatObject64(o *FlatBinderObject64) []byte {
	buf := make([]byte, SizeofFlatBinderObject64)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], o.Type)
	le.PutUint32(buf[4:8], o.Flags)
	le.PutUint64(buf[8:16], o.HandleOrBinder)
	le.PutUint64(buf[16:24], o.Cookie)
	return buf
}

func unmarshalFlatObject64(data []byte, o *FlatBinderObject64) error {
	if len(data) < int(SizeofFlatBinderObject64) {
		return ErrInsufficientData
	}
	le := binary.LittleEndian
	o.Type = le.Uint32(data[0:4])
	o.Flags = le.Uint32(data[4:8])
	o.HandleOrBinder = le.Uint64(data[8:16])
	o.Cookie = le.Uint64(data[16:24])
	return nil
}

func marshalFlatObject32(o *FlatBinderObject32) []byte {
	buf := make([]byte, SizeofFlatBinderObject32)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], o.Type)
	le.PutUint32(buf[4:8], o.Flags)
	le.PutUint32(buf[8:12], o.HandleOrBinder)
	le.PutUint32(buf[12:16], o.Cookie)
	return buf
}

func unmarshalFlatObject32(data []byte, o *FlatBinderObject32) error {
	if len(data) < int(SizeofFlatBinderObject32) {
		return ErrInsufficientData
	}
	le := binary.LittleEndian
	o.Type = le.Uint32(data[0:4])
	o.Flags = le.Uint32(data[4:8])
	o.HandleOrBinder = le.Uint32(data[8:12])
	o.Cookie = le.Uint32(data[12:16])
	return nil
}

func marshalTxnData64(t *BinderTransactionData64) []byte {
	buf := make([]byte, SizeofBinderTransactionData64)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], t.TargetHandle)
	le.PutUint64(buf[8:16], t.Cookie)
	le.PutUint32(buf[16:20], t.Code)
	le.PutUint32(buf[20:24], t.Flags)
	le.PutUint32(buf[24:28], uint32(t.SenderPID))
	le.PutUint32(buf[28:32], t.SenderEUID)
	le.PutUint64(buf[32:40], t.DataSize)
	le.PutUint64(buf[40:48], t.OffsetsSize)
	le.PutUint64(buf[48:56], t.DataBuffer)
	le.PutUint64(buf[56:64], t.DataOffsets)
	return buf
}

func unmarshalTxnData64(data []byte, t *BinderTransactionData64) error {
	if len(data) < int(SizeofBinderTransactionData64) {
		return ErrInsufficientData
	}
	le := binary.LittleEndian
	t.TargetHandle = le.Uint64(data[0:8])
	t.Cookie = le.Uint64(data[8:16])
	t.Code = le.Uint32(data[16:20])
	t.Flags = le.Uint32(data[20:24])
	t.SenderPID = int32(le.Uint32(data[24:28]))
	t.SenderEUID = le.Uint32(data[28:32])
	t.DataSize = le.Uint64(data[32:40])
	t.OffsetsSize = le.Uint64(data[40:48])
	t.DataBuffer = le.Uint64(data[48:56])
	t.DataOffsets = le.Uint64(data[56:64])
	return nil
}

func marshalTxnData32(t *BinderTransactionData32) []byte {
	buf := make([]byte, SizeofBinderTransactionData32)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], t.TargetHandle)
	le.PutUint32(buf[4:8], t.Cookie)
	le.PutUint32(buf[8:12], t.Code)
	le.PutUint32(buf[12:16], t.Flags)
	le.PutUint32(buf[16:20], uint32(t.SenderPID))
	le.PutUint32(buf[20:24], t.SenderEUID)
	le.PutUint32(buf[24:28], t.DataSize)
	le.PutUint32(buf[28:32], t.OffsetsSize)
	le.PutUint32(buf[32:36], t.DataBuffer)
	le.PutUint32(buf[36:40], t.DataOffsets)
	return buf
}

func unmarshalTxnData32(data []byte, t *BinderTransactionData32) error {
	if len(data) < int(SizeofBinderTransactionData32) {
		return ErrInsufficientData
	}
	le := binary.LittleEndian
	t.TargetHandle = le.Uint32(data[0:4])
	t.Cookie = le.Uint32(data[4:8])
	t.Code = le.Uint32(data[8:12])
	t.Flags = le.Uint32(data[12:16])
	t.SenderPID = int32(le.Uint32(data[16:20]))
	t.SenderEUID = le.Uint32(data[20:24])
	t.DataSize = le.Uint32(data[24:28])
	t.OffsetsSize = le.Uint32(data[28:32])
	t.DataBuffer = le.Uint32(data[32:36])
	t.DataOffsets = le.Uint32(data[36:40])
	return nil
}

func marshalHandleCookie64(h *HandleCookie64) []byte {
	buf := make([]byte, SizeofHandleCookie64)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], h.Handle)
	le.PutUint64(buf[8:16], h.Cookie)
	return buf
}

func marshalPtrCookie64(p *PtrCookie64) []byte {
	buf := make([]byte, SizeofPtrCookie64)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], p.Ptr)
	le.PutUint64(buf[8:16], p.Cookie)
	return buf
}

func unmarshalPtrCookie64(data []byte, p *PtrCookie64) error {
	if len(data) < int(SizeofPtrCookie64) {
		return ErrInsufficientData
	}
	le := binary.LittleEndian
	p.Ptr = le.Uint64(data[0:8])
	p.Cookie = le.Uint64(data[8:16])
	return nil
}
