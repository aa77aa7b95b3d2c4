package transport

// streamClass identifies one of the four independent stream-id
// spaces: (bidirectional|unidirectional) x (client-initiated|
// server-initiated). It is exactly the low two bits of a stream id.
type streamClass uint8

const (
	classBidiClient streamClass = iota
	classBidiServer
	classUniClient
	classUniServer
)

func classOf(id uint64) streamClass {
	return streamClass(id & 0x3)
}

func (c streamClass) bidi() bool {
	return c&0x2 == 0
}

func (c streamClass) clientInitiated() bool {
	return c&0x1 == 0
}

func idForClass(c streamClass, index uint64) uint64 {
	return index<<2 | uint64(c)
}

// streamMap holds the per-class id-count credits the library
// advertises to the peer (remote classes, i.e. streams the peer may
// open) and those the peer advertises to us (local classes, i.e.
// streams we may open). A single MAX_STREAM_ID frame names one class
// via the low bits of the id it carries (§4.2), unlike later QUIC
// drafts which split this into MAX_STREAMS_BIDI/MAX_STREAMS_UNI.
type streamMap struct {
	isClient bool
	streams  map[uint64]*Stream

	// nextIndex[c] is the next index to allocate for a locally-created
	// stream of class c. Only meaningful for local classes.
	nextIndex [4]uint64

	// idCredit[c] is the current max index permitted in class c: our
	// own grant when c is a remote class, the peer's grant to us when
	// c is a local class.
	idCredit     [4]uint64
	idCreditNext [4]uint64 // pending grant increase, for remote classes
	idIncrement  [4]uint64

	blockedAt       [4]uint64
	blockedNotified [4]bool

	streamDataBidiLocal  uint64
	streamDataBidiRemote uint64
	streamDataUni        uint64
	connFlow             *flowControl

	// Peer-announced per-class send windows, filled in once transport
	// parameters are exchanged.
	peerBidiLocal  uint64
	peerBidiRemote uint64
	peerUni        uint64
}

func newStreamMap(isClient bool, connFlow *flowControl) *streamMap {
	return &streamMap{
		isClient: isClient,
		streams:  make(map[uint64]*Stream),
		connFlow: connFlow,
	}
}

func (m *streamMap) isLocalClass(c streamClass) bool {
	return c.clientInitiated() == m.isClient
}

// initLocal seeds nextIndex for the classes this endpoint initiates;
// called once the handshake's transport parameters are known.
func (m *streamMap) initLocal() {
	for c := streamClass(0); c < 4; c++ {
		if m.isLocalClass(c) {
			m.nextIndex[c] = 0
		}
	}
}

// setPeerCredit applies MAX_STREAM_ID/initial_max_streams_* from the
// peer: the greatest index c permits us to use.
func (m *streamMap) setPeerCredit(c streamClass, index uint64) {
	if index+1 > m.idCredit[c] {
		m.idCredit[c] = index + 1
		m.blockedNotified[c] = false
	}
}

// setOwnCredit seeds the count of remote-initiated streams we accept,
// from our own configuration (sent to the peer in our transport
// parameters).
func (m *streamMap) setOwnCredit(c streamClass, count uint64) {
	m.idCredit[c] = count
	m.idCreditNext[c] = count
	m.idIncrement[c] = count
}

// get looks up an existing stream.
func (m *streamMap) get(id uint64) (*Stream, bool) {
	s, ok := m.streams[id]
	return s, ok
}

// create allocates a new locally-initiated stream of the given
// directionality, enforcing the peer's id-count grant.
func (m *streamMap) create(bidi bool) (*Stream, *Error) {
	c := classForDirection(m.isClient, bidi, true)
	idx := m.nextIndex[c]
	if idx >= m.idCredit[c] {
		return nil, newError(StreamIDBlocked, "stream id limit reached")
	}
	id := idForClass(c, idx)
	m.nextIndex[c] = idx + 1
	s := newStream(id, true, bidi)
	m.initStreamFlow(s, c)
	m.streams[id] = s
	return s, nil
}

// getOrCreatePeer returns the stream for a remote-initiated id,
// creating every lower-indexed stream of the same class implicitly
// (§4.2: receiving data on a higher stream id implicitly opens all
// lower unseen streams of that class).
func (m *streamMap) getOrCreatePeer(id uint64) (*Stream, *Error) {
	if s, ok := m.streams[id]; ok {
		return s, nil
	}
	c := classOf(id)
	if m.isLocalClass(c) {
		return nil, newError(StreamStateError, "peer used a locally-owned stream id")
	}
	idx := id >> 2
	if idx >= m.idCredit[c] {
		return nil, newError(StreamIDError, "stream id exceeds advertised limit")
	}
	var created *Stream
	for i := m.streamCountSeen(c); i <= idx; i++ {
		sid := idForClass(c, i)
		if _, ok := m.streams[sid]; ok {
			continue
		}
		s := newStream(sid, false, c.bidi())
		m.initStreamFlow(s, c)
		m.streams[sid] = s
		if sid == id {
			created = s
		}
	}
	if created == nil {
		created = m.streams[id]
	}
	return created, nil
}

func (m *streamMap) streamCountSeen(c streamClass) uint64 {
	var max uint64
	found := false
	for id := range m.streams {
		if classOf(id) != c {
			continue
		}
		idx := id >> 2
		if !found || idx+1 > max {
			max = idx + 1
			found = true
		}
	}
	return max
}

func classForDirection(isClient, bidi, local bool) streamClass {
	clientInitiated := isClient == local
	switch {
	case bidi && clientInitiated:
		return classBidiClient
	case bidi && !clientInitiated:
		return classBidiServer
	case !bidi && clientInitiated:
		return classUniClient
	default:
		return classUniServer
	}
}

func (m *streamMap) initStreamFlow(s *Stream, c streamClass) {
	var recvWindow, sendWindow uint64
	switch {
	case s.local && s.bidi:
		recvWindow = m.streamDataBidiLocal
		sendWindow = m.peerBidiRemote
	case !s.local && s.bidi:
		recvWindow = m.streamDataBidiRemote
		sendWindow = m.peerBidiLocal
	case s.local && !s.bidi:
		sendWindow = m.peerUni
	default:
		recvWindow = m.streamDataUni
	}
	s.flow.init(recvWindow, sendWindow)
	s.connFlow = m.connFlow
}

// remove drops a stream once both directions are fully closed
// (data_recvd/reset_read and data_recvd/reset_recvd, §3), replenishing
// one slot of id-count credit for a remote-initiated stream.
func (m *streamMap) remove(id uint64) {
	s, ok := m.streams[id]
	if !ok {
		return
	}
	delete(m.streams, id)
	c := classOf(id)
	if !m.isLocalClass(c) {
		m.idCreditNext[c] += 1
	}
	_ = s
}

// pendingMaxStreamID returns a MAX_STREAM_ID update to send for a
// remote class, if the replenished credit has grown.
func (m *streamMap) pendingMaxStreamID(c streamClass) (uint64, bool) {
	if m.isLocalClass(c) || m.idCreditNext[c] <= m.idCredit[c] {
		return 0, false
	}
	return idForClass(c, m.idCreditNext[c]-1), true
}

func (m *streamMap) commitMaxStreamID(c streamClass) {
	m.idCredit[c] = m.idCreditNext[c]
}

// needIDBlocked reports whether STREAM_ID_BLOCKED should be sent for
// a local class whose credit is exhausted.
func (m *streamMap) needIDBlocked(c streamClass) (uint64, bool) {
	if !m.isLocalClass(c) {
		return 0, false
	}
	if m.nextIndex[c] < m.idCredit[c] {
		m.blockedNotified[c] = false
		return 0, false
	}
	if m.blockedNotified[c] && m.blockedAt[c] == m.idCredit[c] {
		return 0, false
	}
	m.blockedAt[c] = m.idCredit[c]
	m.blockedNotified[c] = true
	return idForClass(c, m.idCredit[c]), true
}

// all returns every known stream, for sweeping sends across streams.
func (m *streamMap) all() []*Stream {
	out := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, s)
	}
	return out
}
