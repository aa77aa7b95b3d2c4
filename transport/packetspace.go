package transport

import "time"

// packetNumberSpaceID identifies which of the three independent
// packet-number spaces (§3, §GLOSSARY) a piece of state belongs to.
type packetNumberSpaceID uint8

const (
	spaceInitial packetNumberSpaceID = iota
	spaceHandshake
	spaceApplication
	numPacketNumberSpaces
)

// frameLogEntry records enough about one frame placed in a sent
// packet to replay loss/ack handling without re-encoding it.
type frameLogEntry struct {
	ackEliciting bool
	streamID     uint64
	hasStream    bool
	offset       uint64
	length       int
	fin          bool
	isCrypto     bool
	data         []byte // borrowed, kept alive until acked or requeued on loss
}

// sentPacket is an outstanding, not-yet-acked or not-yet-declared-lost
// packet tracked by the reliable transmission buffer (RTB), §4.5.
type sentPacket struct {
	packetNumber uint64
	sentTime     time.Time
	size         int
	ackEliciting bool
	inFlight     bool
	frames       []frameLogEntry
}

// packetNumberSpace holds everything scoped to one of Initial,
// Handshake or Application: the next packet number to send, the set
// of packet numbers received (for ACK frame generation and dedup),
// and the crypto byte stream for that encryption level.
type packetNumberSpace struct {
	id packetNumberSpaceID

	nextPacketNumber uint64

	recvPacketNumbers rangeSet
	largestRecvTime   time.Time
	ackElicited       bool
	lastAckSent       uint64
	haveLastAckSent   bool

	crypto cryptoLevelStream

	sent []*sentPacket

	largestAckedByPeer uint64
	haveLargestAcked   bool

	discarded bool
}

func newPacketNumberSpace(id packetNumberSpaceID) *packetNumberSpace {
	return &packetNumberSpace{id: id}
}

func (s *packetNumberSpace) allocatePacketNumber() uint64 {
	pn := s.nextPacketNumber
	s.nextPacketNumber++
	return pn
}

// recvPacket records a newly-decrypted packet as received, rejecting
// duplicates (§4.1 replay-within-a-space protection).
func (s *packetNumberSpace) recvPacket(pn uint64, now time.Time, ackEliciting bool) bool {
	if s.recvPacketNumbers.contains(pn) {
		return false
	}
	prevLargest, hadAny := s.recvPacketNumbers.largest()
	s.recvPacketNumbers.push(pn, pn)
	if !hadAny || pn > prevLargest {
		s.largestRecvTime = now
	}
	if ackEliciting {
		s.ackElicited = true
	}
	return true
}

// needAck reports whether an ACK frame is due for this space.
func (s *packetNumberSpace) needAck() bool {
	return s.ackElicited
}

func (s *packetNumberSpace) buildAck(ackDelay uint64) ackFrame {
	f := newAckFrameFromSet(&s.recvPacketNumbers, ackDelay)
	s.ackElicited = false
	if largest, ok := s.recvPacketNumbers.largest(); ok {
		s.lastAckSent = largest
		s.haveLastAckSent = true
	}
	return f
}

func (s *packetNumberSpace) addSent(p *sentPacket) {
	s.sent = append(s.sent, p)
}

func (s *packetNumberSpace) largestRecvPN() uint64 {
	if v, ok := s.recvPacketNumbers.largest(); ok {
		return v
	}
	return 0
}

func (s *packetNumberSpace) hasUnackedAckEliciting() bool {
	for _, p := range s.sent {
		if p.ackEliciting {
			return true
		}
	}
	return false
}
