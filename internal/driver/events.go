package driver

import (
	"encoding/binary"

	"github.com/kbinder/go-binder/internal/ioabi"
	"github.com/kbinder/go-binder/internal/uapi"
)

// EventKind tags a decoded BR_* return code.
type EventKind int

const (
	EventNoop EventKind = iota
	EventTransactionComplete
	EventIncomingTransaction
	EventReply
	EventDeadReply
	EventTransactionError
	EventAcquireResult
	EventIncRefs
	EventAcquire
	EventRelease
	EventDecRefs
	EventDeadBinder
	EventClearDeathNotificationDone
	EventSpawnLooper
	EventFinished
)

// Event is one decoded entry from the BR_* return stream.
type Event struct {
	Kind EventKind

	// IncomingTransaction / Reply
	Code       uint32
	Flags      uint32
	SenderPID  int32
	SenderEUID uint32
	TargetPtr  uint64 // local-object cookie when delivering to us
	BufferPtr  uint64
	BufferSize uint64
	OffsetsPtr uint64
	OffsetsLen uint64

	// TransactionError / AcquireResult
	Status int32

	// ref-count ops / death notification
	Ptr    uint64
	Cookie uint64
}

// DecodeEvents is a pure function: it walks a BR_* stream and yields the
// tagged events it contains, without touching the driver or the device.
func DecodeEvents(buf []byte, io ioabi.Io) ([]Event, error) {
	var events []Event
	pos := 0
	for pos < len(buf) {
		if pos+4 > len(buf) {
			break
		}
		cmd := binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4

		switch cmd {
		case uapi.BR_NOOP:
			events = append(events, Event{Kind: EventNoop})
		case uapi.BR_TRANSACTION_COMPLETE:
			events = append(events, Event{Kind: EventTransactionComplete})
		case uapi.BR_SPAWN_LOOPER:
			events = append(events, Event{Kind: EventSpawnLooper})
		case uapi.BR_FINISHED:
			events = append(events, Event{Kind: EventFinished})
		case uapi.BR_DEAD_REPLY:
			events = append(events, Event{Kind: EventDeadReply})
		case uapi.BR_FAILED_REPLY:
			events = append(events, Event{Kind: EventTransactionError, Status: -1})

		case uapi.BR_TRANSACTION, uapi.BR_REPLY:
			size := io.TransactionDataSize()
			if pos+size > len(buf) {
				return events, errShortRead
			}
			t := io.UnmarshalTransaction(buf[pos : pos+size])
			pos += size
			ev := Event{
				Code:       t.Code,
				Flags:      t.Flags,
				SenderPID:  t.SenderPID,
				SenderEUID: t.SenderEUID,
				TargetPtr:  t.TargetHandle,
				BufferPtr:  t.DataBuffer,
				BufferSize: t.DataSize,
				OffsetsPtr: t.DataOffsets,
				OffsetsLen: t.OffsetsSize,
			}
			if cmd == uapi.BR_TRANSACTION {
				ev.Kind = EventIncomingTransaction
			} else {
				ev.Kind = EventReply
			}
			events = append(events, ev)

		case uapi.BR_ACQUIRE_RESULT:
			if pos+4 > len(buf) {
				return events, errShortRead
			}
			v := int32(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			pos += 4
			events = append(events, Event{Kind: EventAcquireResult, Status: v})

		case uapi.BR_INCREFS, uapi.BR_ACQUIRE, uapi.BR_RELEASE, uapi.BR_DECREFS:
			size := int(uapi.SizeofPtrCookie64)
			if pos+size > len(buf) {
				return events, errShortRead
			}
			var pc uapi.PtrCookie64
			_ = uapi.Unmarshal(buf[pos:pos+size], &pc)
			pos += size
			ev := Event{Ptr: pc.Ptr, Cookie: pc.Cookie}
			switch cmd {
			case uapi.BR_INCREFS:
				ev.Kind = EventIncRefs
			case uapi.BR_ACQUIRE:
				ev.Kind = EventAcquire
			case uapi.BR_RELEASE:
				ev.Kind = EventRelease
			case uapi.BR_DECREFS:
				ev.Kind = EventDecRefs
			}
			events = append(events, ev)

		case uapi.BR_DEAD_BINDER:
			if pos+8 > len(buf) {
				return events, errShortRead
			}
			cookie := binary.LittleEndian.Uint64(buf[pos : pos+8])
			pos += 8
			events = append(events, Event{Kind: EventDeadBinder, Cookie: cookie})

		case uapi.BR_CLEAR_DEATH_NOTIFICATION_DONE:
			if pos+8 > len(buf) {
				return events, errShortRead
			}
			cookie := binary.LittleEndian.Uint64(buf[pos : pos+8])
			pos += 8
			events = append(events, Event{Kind: EventClearDeathNotificationDone, Cookie: cookie})

		case uapi.BR_ERROR:
			if pos+4 > len(buf) {
				return events, errShortRead
			}
			v := int32(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			pos += 4
			events = append(events, Event{Kind: EventTransactionError, Status: v})

		default:
			return events, errUnknownCommand
		}
	}
	return events, nil
}
