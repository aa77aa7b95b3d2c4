package transport

import (
	"testing"
	"time"
)

func TestPVRingBufPushAndFind(t *testing.T) {
	r := newPVRingBuf(2)
	data := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !r.push(pvEntry{data: data, expiry: time.Now().Add(time.Second)}) {
		t.Fatal("push into a non-full buffer should succeed")
	}
	if _, ok := r.find(data); !ok {
		t.Fatal("find should locate a freshly pushed entry")
	}
	other := [8]byte{9}
	if _, ok := r.find(other); ok {
		t.Fatal("find should not match an unrelated challenge")
	}
}

func TestPVRingBufFullRejectsPush(t *testing.T) {
	r := newPVRingBuf(1)
	r.push(pvEntry{expiry: time.Now().Add(time.Second)})
	if r.push(pvEntry{expiry: time.Now().Add(time.Second)}) {
		t.Fatal("push into a full buffer should fail")
	}
}

func TestPVRingBufRemoveExpired(t *testing.T) {
	r := newPVRingBuf(2)
	past := time.Now().Add(-time.Second)
	future := time.Now().Add(time.Hour)
	r.push(pvEntry{data: [8]byte{1}, expiry: past})
	r.push(pvEntry{data: [8]byte{2}, expiry: future})
	dropped := r.removeExpired(time.Now())
	if dropped != 1 {
		t.Fatalf("removeExpired dropped %d, want 1", dropped)
	}
	if _, ok := r.find([8]byte{1}); ok {
		t.Fatal("expired entry should no longer be found")
	}
	if _, ok := r.find([8]byte{2}); !ok {
		t.Fatal("live entry should still be found")
	}
}

func TestPVRingBufNextExpiry(t *testing.T) {
	r := newPVRingBuf(2)
	if _, ok := r.nextExpiry(); ok {
		t.Fatal("empty ring buffer should report no expiry")
	}
	soon := time.Now().Add(time.Millisecond)
	r.push(pvEntry{expiry: soon})
	got, ok := r.nextExpiry()
	if !ok || !got.Equal(soon) {
		t.Fatalf("nextExpiry = %v, %v, want %v, true", got, ok, soon)
	}
}
