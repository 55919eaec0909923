package remoteobj

import "testing"

func TestMarkDeadIsIdempotentAndFiresHandlersOnce(t *testing.T) {
	r := New(1, nil, nil)
	var fired int
	r.AddDeathHandler(func(*RemoteObject) { fired++ })

	r.MarkDead()
	r.MarkDead()

	if !r.Dead() {
		t.Fatal("expected Dead() true after MarkDead")
	}
	if fired != 1 {
		t.Fatalf("handler fired %d times, want 1", fired)
	}
}

func TestCookieStableAcrossCalls(t *testing.T) {
	r := New(5, nil, nil)
	if r.Cookie() != r.Cookie() {
		t.Fatal("Cookie() should be stable for the lifetime of the wrapper")
	}
}

func TestNewRemoteObjectStartsAlive(t *testing.T) {
	r := New(2, nil, nil)
	if r.Dead() {
		t.Fatal("freshly constructed RemoteObject should not be dead")
	}
}
