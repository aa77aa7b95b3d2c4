package transport

import "testing"

func TestStreamMapCreateEnforcesIDCredit(t *testing.T) {
	m := newStreamMap(true, &flowControl{})
	m.setPeerCredit(classBidiClient, 0) // allows exactly index 0
	if _, err := m.create(true); err != nil {
		t.Fatalf("first stream should be allowed: %v", err)
	}
	if _, err := m.create(true); err == nil {
		t.Fatal("second stream should be blocked by id credit")
	}
}

func TestStreamMapCreateAssignsClientBidiIDs(t *testing.T) {
	m := newStreamMap(true, &flowControl{})
	m.setPeerCredit(classBidiClient, 10)
	s1, err := m.create(true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s2, err := m.create(true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s1.id != 0 || s2.id != 4 {
		t.Fatalf("client bidi ids = %d, %d, want 0, 4", s1.id, s2.id)
	}
}

func TestStreamMapGetOrCreatePeerImplicitlyOpensLowerStreams(t *testing.T) {
	// Server's perspective: client-initiated bidi class (0) is remote.
	m := newStreamMap(false, &flowControl{})
	m.setOwnCredit(classBidiClient, 10)
	s, err := m.getOrCreatePeer(8) // index 2 of class 0
	if err != nil {
		t.Fatalf("getOrCreatePeer: %v", err)
	}
	if s.id != 8 {
		t.Fatalf("returned stream id = %d, want 8", s.id)
	}
	for _, id := range []uint64{0, 4, 8} {
		if _, ok := m.get(id); !ok {
			t.Fatalf("stream %d should have been implicitly opened", id)
		}
	}
}

func TestStreamMapGetOrCreatePeerRejectsLocallyOwnedID(t *testing.T) {
	m := newStreamMap(true, &flowControl{})
	m.setOwnCredit(classBidiServer, 0)
	// Class 0 (bidi client) is local to a client; the peer may not use it.
	if _, err := m.getOrCreatePeer(0); err == nil {
		t.Fatal("expected an error when the peer addresses a locally-owned stream id")
	}
}

func TestStreamMapGetOrCreatePeerRejectsOverLimit(t *testing.T) {
	m := newStreamMap(false, &flowControl{})
	m.setOwnCredit(classBidiClient, 1) // only index 0 permitted
	if _, err := m.getOrCreatePeer(4); err == nil { // index 1
		t.Fatal("expected an error when the peer exceeds the advertised stream id limit")
	}
}

func TestStreamMapRemoveReplenishesCredit(t *testing.T) {
	m := newStreamMap(false, &flowControl{})
	m.setOwnCredit(classBidiClient, 1)
	if _, err := m.getOrCreatePeer(0); err != nil {
		t.Fatalf("getOrCreatePeer: %v", err)
	}
	m.remove(0)
	id, ok := m.pendingMaxStreamID(classBidiClient)
	if !ok {
		t.Fatal("expected a pending MAX_STREAM_ID update after remove")
	}
	if id != 4 { // class 0, index 1
		t.Fatalf("pendingMaxStreamID = %d, want 4", id)
	}
	m.commitMaxStreamID(classBidiClient)
	if m.idCredit[classBidiClient] != 2 {
		t.Fatalf("idCredit after commit = %d, want 2", m.idCredit[classBidiClient])
	}
}

func TestStreamMapNeedIDBlockedDedup(t *testing.T) {
	m := newStreamMap(true, &flowControl{})
	m.setPeerCredit(classUniClient, 0)
	if _, err := m.create(false); err != nil {
		t.Fatalf("create: %v", err)
	}
	id, blocked := m.needIDBlocked(classUniClient)
	if !blocked || id != idForClass(classUniClient, 1) {
		t.Fatalf("needIDBlocked = (%d, %v), want (%d, true)", id, blocked, idForClass(classUniClient, 1))
	}
	if _, blocked := m.needIDBlocked(classUniClient); blocked {
		t.Fatal("needIDBlocked should not repeat for the same credit level")
	}
	m.setPeerCredit(classUniClient, 1)
	if _, blocked := m.needIDBlocked(classUniClient); blocked {
		t.Fatal("needIDBlocked should clear once more credit arrives")
	}
}
