package binder

import "testing"

func TestMockRemoteObjectLifecycle(t *testing.T) {
	m := NewMockRemoteObject(7)

	if m.Handle() != 7 {
		t.Fatalf("Handle() = %d, want 7", m.Handle())
	}
	if m.Dead() {
		t.Fatal("expected new mock to start alive")
	}

	m.RecordTransaction(42, false)
	m.RecordTransaction(43, true)
	if got := m.Transactions(); got != 2 {
		t.Fatalf("Transactions() = %d, want 2", got)
	}
	code, oneway := m.LastCode()
	if code != 43 || !oneway {
		t.Fatalf("LastCode() = (%d, %v), want (43, true)", code, oneway)
	}

	m.MarkDead()
	if !m.Dead() {
		t.Fatal("expected MarkDead to set dead flag")
	}

	m.Reset()
	if m.Dead() || m.Transactions() != 0 {
		t.Fatal("expected Reset to clear dead flag and call counts")
	}
}

func TestMockLocalObjectRefcounting(t *testing.T) {
	m := NewMockLocalObject(0xdead0000)

	if m.Ptr() != 0xdead0000 {
		t.Fatalf("Ptr() = %#x, want %#x", m.Ptr(), 0xdead0000)
	}

	m.AcquireLocked()
	m.IncRefsLocked()
	if m.ReleaseLocked() {
		t.Fatal("should not be dropped while a weak reference remains")
	}
	if m.Dropped() {
		t.Fatal("Dropped should be false before reaching zero")
	}
	m.DecRefsLocked()
	m.AcquireLocked()
	if !m.ReleaseLocked() {
		t.Fatal("expected zero strong/weak after matching Acquire/Release and IncRefs/DecRefs")
	}
	if !m.Dropped() {
		t.Fatal("expected Dropped to be true once strong and weak both reach zero")
	}
}
