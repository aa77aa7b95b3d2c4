package transport

import "testing"

func TestFlowControlRecvWindowUpdate(t *testing.T) {
	var f flowControl
	f.init(100, 0)
	if f.shouldUpdateMaxRecv() {
		t.Fatal("fresh flow control should not need an update")
	}
	f.addRecv(40)
	if f.shouldUpdateMaxRecv() {
		t.Fatalf("consumed 40/100 should not cross the half threshold")
	}
	f.addRecv(20) // rxOffset now 60, >= 100/2
	if !f.shouldUpdateMaxRecv() {
		t.Fatal("consumed 60/100 should trigger a re-advertisement")
	}
	f.commitMaxRecv()
	if f.shouldUpdateMaxRecv() {
		t.Fatal("commitMaxRecv should clear the pending update")
	}
	if f.maxRecv != 200 {
		t.Fatalf("maxRecv after commit = %d, want 200", f.maxRecv)
	}
}

func TestFlowControlCanRecv(t *testing.T) {
	var f flowControl
	f.init(10, 0)
	f.addRecv(10)
	if f.canRecv() != 0 {
		t.Fatalf("canRecv after exhausting credit = %d, want 0", f.canRecv())
	}
}

func TestFlowControlSendCredit(t *testing.T) {
	var f flowControl
	f.init(0, 100)
	if f.canSend() != 100 {
		t.Fatalf("canSend = %d, want 100", f.canSend())
	}
	f.addSend(100)
	if f.canSend() != 0 {
		t.Fatalf("canSend after spending all credit = %d, want 0", f.canSend())
	}
	f.setMaxSend(50) // stale, smaller than current maxSend
	if f.maxSend != 100 {
		t.Fatalf("setMaxSend must be monotonic, got maxSend=%d", f.maxSend)
	}
	f.setMaxSend(150)
	if f.canSend() != 50 {
		t.Fatalf("canSend after grant = %d, want 50", f.canSend())
	}
}

func TestFlowControlAddSendUpToIgnoresRetransmission(t *testing.T) {
	var f flowControl
	f.init(0, 100)
	if delta := f.addSendUpTo(10); delta != 10 {
		t.Fatalf("first send of [0,10) delta = %d, want 10", delta)
	}
	if delta := f.addSendUpTo(10); delta != 0 {
		t.Fatalf("retransmitting [0,10) delta = %d, want 0", delta)
	}
	if f.txOffset != 10 {
		t.Fatalf("txOffset after retransmit = %d, want unchanged at 10", f.txOffset)
	}
	if delta := f.addSendUpTo(25); delta != 15 {
		t.Fatalf("sending [10,25) delta = %d, want 15", delta)
	}
}

func TestFlowControlNeedBlockedDedup(t *testing.T) {
	var f flowControl
	f.init(0, 10)
	f.addSend(10)
	offset, blocked := f.needBlocked()
	if !blocked || offset != 10 {
		t.Fatalf("needBlocked at limit = (%d, %v), want (10, true)", offset, blocked)
	}
	if _, blocked := f.needBlocked(); blocked {
		t.Fatal("needBlocked should not fire twice for the same limit")
	}
	f.setMaxSend(20)
	offset, blocked = f.needBlocked()
	if blocked {
		t.Fatal("needBlocked should not fire once credit is available again")
	}
	f.addSend(10)
	offset, blocked = f.needBlocked()
	if !blocked || offset != 20 {
		t.Fatalf("needBlocked at new limit = (%d, %v), want (20, true)", offset, blocked)
	}
}
