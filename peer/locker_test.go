package peer

import "testing"

func TestTryLockExclusivity(t *testing.T) {
	l := newTryLock()
	if !l.acquire() {
		t.Fatal("expected first acquire to succeed")
	}
	if l.acquire() {
		t.Fatal("expected second concurrent acquire to fail")
	}
	l.release()
	if !l.acquire() {
		t.Fatal("expected acquire to succeed again after release")
	}
	l.release()
}

func TestTryLockReleaseWithoutAcquireIsNoop(t *testing.T) {
	l := newTryLock()
	l.release()
	if !l.acquire() {
		t.Fatal("expected acquire to succeed after spurious release")
	}
}
