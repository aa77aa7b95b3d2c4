package transport

import (
	"testing"
	"time"
)

func newTestRecovery() *recoveryState {
	var spaces [numPacketNumberSpaces]*packetNumberSpace
	for i := range spaces {
		spaces[i] = newPacketNumberSpace(packetNumberSpaceID(i))
	}
	return newRecoveryState(spaces, 25*time.Millisecond)
}

func TestRecoveryUpdateRTTFirstSample(t *testing.T) {
	r := newTestRecovery()
	r.updateRTT(50*time.Millisecond, 0)
	if !r.haveRTT {
		t.Fatal("haveRTT should be set after the first sample")
	}
	if r.smoothedRTT != 50*time.Millisecond {
		t.Fatalf("smoothedRTT = %v, want 50ms", r.smoothedRTT)
	}
	if r.minRTT != 50*time.Millisecond {
		t.Fatalf("minRTT = %v, want 50ms", r.minRTT)
	}
}

func TestRecoveryUpdateRTTSubsequentSample(t *testing.T) {
	r := newTestRecovery()
	r.updateRTT(100*time.Millisecond, 0)
	before := r.smoothedRTT
	r.updateRTT(50*time.Millisecond, 0)
	if r.smoothedRTT == before {
		t.Fatal("smoothedRTT should move toward a new, lower sample")
	}
	if r.smoothedRTT >= before {
		t.Fatalf("smoothedRTT = %v, want less than initial %v", r.smoothedRTT, before)
	}
	if r.minRTT != 50*time.Millisecond {
		t.Fatalf("minRTT should track the smaller sample, got %v", r.minRTT)
	}
}

func TestRecoveryCongestionEventHalvesWindow(t *testing.T) {
	r := newTestRecovery()
	before := r.congestionWindow
	now := time.Now()
	r.onCongestionEvent(now, now)
	if r.congestionWindow != before/2 {
		t.Fatalf("congestionWindow after loss = %d, want %d", r.congestionWindow, before/2)
	}
	if !r.inRecovery {
		t.Fatal("inRecovery should be set after a congestion event")
	}
}

func TestRecoveryCongestionEventDedupWithinPeriod(t *testing.T) {
	r := newTestRecovery()
	now := time.Now()
	r.onCongestionEvent(now, now)
	reduced := r.congestionWindow
	// A second loss for a packet sent before the recovery period began
	// must not halve the window again.
	r.onCongestionEvent(now.Add(-time.Millisecond), now.Add(time.Millisecond))
	if r.congestionWindow != reduced {
		t.Fatalf("congestionWindow changed on a loss within the recovery period: got %d, want %d", r.congestionWindow, reduced)
	}
}

func TestRecoveryPacketThresholdLoss(t *testing.T) {
	space := newPacketNumberSpace(spaceApplication)
	now := time.Now()
	for pn := uint64(0); pn <= 4; pn++ {
		space.addSent(&sentPacket{packetNumber: pn, sentTime: now, size: 100, ackEliciting: true, inFlight: true})
	}
	lost, remaining, _ := detectLostPackets(space, 4, now, 100*time.Millisecond)
	if len(lost) != 2 || lost[0].packetNumber != 0 || lost[1].packetNumber != 1 {
		t.Fatalf("expected packets 0 and 1 lost by count threshold, got %v", lost)
	}
	if len(remaining) != 3 {
		t.Fatalf("remaining = %d, want 3", len(remaining))
	}
}

func TestRecoveryTimeThresholdLoss(t *testing.T) {
	space := newPacketNumberSpace(spaceApplication)
	sentTime := time.Now().Add(-time.Second)
	space.addSent(&sentPacket{packetNumber: 0, sentTime: sentTime, size: 100, ackEliciting: true, inFlight: true})
	space.addSent(&sentPacket{packetNumber: 1, sentTime: time.Now(), size: 100, ackEliciting: true, inFlight: true})
	lost, remaining, _ := detectLostPackets(space, 1, time.Now(), 10*time.Millisecond)
	if len(lost) != 1 || lost[0].packetNumber != 0 {
		t.Fatalf("expected packet 0 lost by time threshold, got %v", lost)
	}
	if len(remaining) != 1 || remaining[0].packetNumber != 1 {
		t.Fatalf("remaining = %v, want [1]", remaining)
	}
}

func TestRecoveryCanSendRespectsWindow(t *testing.T) {
	r := newTestRecovery()
	r.congestionWindow = 1000
	r.bytesInFlight = 900
	if !r.canSend(100) {
		t.Fatal("canSend(100) at exactly the window edge should be true")
	}
	if r.canSend(101) {
		t.Fatal("canSend(101) past the window edge should be false")
	}
}
