package transport

// packetType distinguishes the long-header packet types from the
// short header used once the connection reaches 1-RTT, per §3/§4.1.
// 0-RTT is out of scope (Non-goal): packets of that shape are treated
// as unknown and dropped.
type packetType uint8

const (
	packetTypeInitial packetType = iota
	packetTypeHandshake
	packetTypeRetry
	packetTypeShort
	packetTypeVersionNegotiation
)

const (
	longHeaderForm  = 0x80
	fixedBit        = 0x40
	longTypeInitial = 0x00
	longTypeZeroRTT = 0x10
	longTypeHandshake = 0x20
	longTypeRetry   = 0x30
	longTypeMask    = 0x30
)

// maxCIDLen bounds connection ids per the wire format's one-byte
// length prefix in long headers (§GLOSSARY).
const maxCIDLen = 18

// ConnectionID is an opaque endpoint identifier, 0-18 bytes.
type ConnectionID []byte

func (c ConnectionID) equal(o ConnectionID) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// header is the decoded form of either a long or short packet header.
type header struct {
	typ      packetType
	version  uint32
	dcid     ConnectionID
	scid     ConnectionID
	token    []byte // Initial only
	supportedVersions []uint32 // version negotiation only
	packetNumberLen int // short/long header pre-decrypt form carries this in the first byte
	length   uint64 // long header payload length field (Initial/Handshake), post packet-number
}

// isLongHeader reports whether the first byte begins a long header.
func isLongHeader(b byte) bool {
	return b&longHeaderForm != 0
}

func encodeLongHeaderType(t packetType) byte {
	switch t {
	case packetTypeInitial:
		return longTypeInitial
	case packetTypeHandshake:
		return longTypeHandshake
	case packetTypeRetry:
		return longTypeRetry
	default:
		return longTypeZeroRTT
	}
}

func decodeLongHeaderType(b byte) packetType {
	switch b & longTypeMask {
	case longTypeInitial:
		return packetTypeInitial
	case longTypeHandshake:
		return packetTypeHandshake
	case longTypeRetry:
		return packetTypeRetry
	default:
		return packetTypeVersionNegotiation // 0-RTT folds in here: unknown/unsupported
	}
}

// encodeLongHeader writes everything up to and including the length
// varint; the caller appends the (not-yet-encrypted) packet number
// and payload afterward, since the packet number length is only known
// once the sender has picked it against the current largest-acked.
func encodeLongHeader(b []byte, h header, pnLen int) int {
	n := 0
	b[n] = longHeaderForm | fixedBit | encodeLongHeaderType(h.typ) | byte(pnLen-1)
	n++
	b[n] = byte(h.version >> 24)
	b[n+1] = byte(h.version >> 16)
	b[n+2] = byte(h.version >> 8)
	b[n+3] = byte(h.version)
	n += 4
	b[n] = byte(len(h.dcid))
	n++
	n += copy(b[n:], h.dcid)
	b[n] = byte(len(h.scid))
	n++
	n += copy(b[n:], h.scid)
	if h.typ == packetTypeInitial {
		n += putVarint(b[n:], uint64(len(h.token)))
		n += copy(b[n:], h.token)
	}
	n += putVarint(b[n:], h.length)
	return n
}

func encodedLongHeaderLen(h header) int {
	n := 1 + 4 + 1 + len(h.dcid) + 1 + len(h.scid)
	if h.typ == packetTypeInitial {
		n += varintLen(uint64(len(h.token))) + len(h.token)
	}
	n += varintLen(h.length)
	return n
}

// decodeLongHeader parses a long header (not version negotiation or
// retry, which have their own shapes) up through the length field.
// Returns the header and the number of bytes consumed.
func decodeLongHeader(b []byte) (header, int, *Error) {
	if len(b) < 6 {
		return header{}, 0, newError(MalformedTransportParameter, "short header buffer")
	}
	var h header
	h.typ = decodeLongHeaderType(b[0])
	h.packetNumberLen = int(b[0]&0x3) + 1
	h.version = uint32(b[1])<<24 | uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])
	n := 5
	dcidLen := int(b[n])
	n++
	if len(b)-n < dcidLen {
		return h, 0, newError(UnknownPacketType, "truncated dcid")
	}
	h.dcid = append(ConnectionID(nil), b[n:n+dcidLen]...)
	n += dcidLen
	if n >= len(b) {
		return h, 0, newError(UnknownPacketType, "truncated scid length")
	}
	scidLen := int(b[n])
	n++
	if len(b)-n < scidLen {
		return h, 0, newError(UnknownPacketType, "truncated scid")
	}
	h.scid = append(ConnectionID(nil), b[n:n+scidLen]...)
	n += scidLen
	if h.typ == packetTypeInitial {
		var tokenLen uint64
		m := getVarint(b[n:], &tokenLen)
		if m == 0 {
			return h, 0, newError(UnknownPacketType, "truncated token length")
		}
		n += m
		if uint64(len(b)-n) < tokenLen {
			return h, 0, newError(UnknownPacketType, "truncated token")
		}
		h.token = append([]byte(nil), b[n:n+int(tokenLen)]...)
		n += int(tokenLen)
	}
	m := getVarint(b[n:], &h.length)
	if m == 0 {
		return h, 0, newError(UnknownPacketType, "truncated length")
	}
	n += m
	return h, n, nil
}

// encodeShortHeader writes a 1-RTT short header (no length field: the
// UDP datagram boundary delimits the packet).
func encodeShortHeader(b []byte, dcid ConnectionID, pnLen int) int {
	b[0] = fixedBit | byte(pnLen-1)
	n := 1
	n += copy(b[n:], dcid)
	return n
}

func decodeShortHeader(b []byte, dcidLen int) (header, int, *Error) {
	if len(b) < 1+dcidLen {
		return header{}, 0, newError(UnknownPacketType, "truncated short header")
	}
	h := header{typ: packetTypeShort, packetNumberLen: int(b[0]&0x3) + 1}
	n := 1
	h.dcid = append(ConnectionID(nil), b[n:n+dcidLen]...)
	n += dcidLen
	return h, n, nil
}

// encodeVersionNegotiation writes the special all-long-header-bits
// version negotiation datagram (version field is all zero).
func encodeVersionNegotiation(b []byte, dcid, scid ConnectionID, versions []uint32) int {
	b[0] = longHeaderForm | fixedBit
	n := 1
	n += 4 // version 0
	b[n] = byte(len(dcid))
	n++
	n += copy(b[n:], dcid)
	b[n] = byte(len(scid))
	n++
	n += copy(b[n:], scid)
	for _, v := range versions {
		b[n] = byte(v >> 24)
		b[n+1] = byte(v >> 16)
		b[n+2] = byte(v >> 8)
		b[n+3] = byte(v)
		n += 4
	}
	return n
}

func decodeVersionNegotiation(b []byte) (header, *Error) {
	if len(b) < 6 {
		return header{}, newError(UnknownPacketType, "truncated version negotiation")
	}
	h := header{typ: packetTypeVersionNegotiation}
	n := 5
	dcidLen := int(b[n])
	n++
	if len(b)-n < dcidLen {
		return h, newError(UnknownPacketType, "truncated dcid")
	}
	h.dcid = append(ConnectionID(nil), b[n:n+dcidLen]...)
	n += dcidLen
	if n >= len(b) {
		return h, newError(UnknownPacketType, "truncated scid length")
	}
	scidLen := int(b[n])
	n++
	if len(b)-n < scidLen {
		return h, newError(UnknownPacketType, "truncated scid")
	}
	h.scid = append(ConnectionID(nil), b[n:n+scidLen]...)
	n += scidLen
	for n+4 <= len(b) {
		v := uint32(b[n])<<24 | uint32(b[n+1])<<16 | uint32(b[n+2])<<8 | uint32(b[n+3])
		h.supportedVersions = append(h.supportedVersions, v)
		n += 4
	}
	return h, nil
}

// Retry packets append a 16-byte integrity tag after the (unencrypted,
// CRYPTO-less) payload, which here is just the opaque retry token.
const retryIntegrityTagLen = 16

func encodeRetry(b []byte, dcid, scid ConnectionID, token []byte) int {
	h := header{typ: packetTypeRetry, dcid: dcid, scid: scid}
	n := 0
	b[n] = longHeaderForm | fixedBit | longTypeRetry
	n++
	n += 4 // version filled by caller
	b[n] = byte(len(h.dcid))
	n++
	n += copy(b[n:], h.dcid)
	b[n] = byte(len(h.scid))
	n++
	n += copy(b[n:], h.scid)
	n += copy(b[n:], token)
	return n
}

// decodeRetry parses a Retry packet, which has no packet-number/length
// fields and instead carries an opaque token followed by a 16-byte
// integrity tag running to the end of the datagram (§4.1 REDESIGN:
// unlike Initial/Handshake, decodeLongHeader cannot parse this shape).
func decodeRetry(b []byte) (header, *Error) {
	if len(b) < 7 {
		return header{}, newError(UnknownPacketType, "truncated retry")
	}
	h := header{typ: packetTypeRetry}
	h.version = uint32(b[1])<<24 | uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])
	n := 5
	dcidLen := int(b[n])
	n++
	if len(b)-n < dcidLen {
		return h, newError(UnknownPacketType, "truncated dcid")
	}
	h.dcid = append(ConnectionID(nil), b[n:n+dcidLen]...)
	n += dcidLen
	if n >= len(b) {
		return h, newError(UnknownPacketType, "truncated scid length")
	}
	scidLen := int(b[n])
	n++
	if len(b)-n < scidLen {
		return h, newError(UnknownPacketType, "truncated scid")
	}
	h.scid = append(ConnectionID(nil), b[n:n+scidLen]...)
	n += scidLen
	if len(b)-n < retryIntegrityTagLen {
		return h, newError(UnknownPacketType, "truncated retry integrity tag")
	}
	h.token = append([]byte(nil), b[n:len(b)-retryIntegrityTagLen]...)
	return h, nil
}

// InitialHeader exposes just the fields a server needs from a
// client's first Initial packet to start a new connection, without
// exporting the full internal header type.
type InitialHeader struct {
	DCID  ConnectionID
	SCID  ConnectionID
	Token []byte
}

// DecodeInitialHeader parses the long header of what is expected to be
// an Initial packet, for a server deciding whether to accept a new
// connection attempt.
func DecodeInitialHeader(b []byte) (InitialHeader, int, *Error) {
	h, n, err := decodeLongHeader(b)
	if err != nil {
		return InitialHeader{}, 0, err
	}
	if h.typ != packetTypeInitial {
		return InitialHeader{}, 0, newError(UnknownPacketType, "not an initial packet")
	}
	return InitialHeader{DCID: h.dcid, SCID: h.scid, Token: h.token}, n, nil
}

// PeekConnectionID extracts the destination connection id from a raw
// datagram without fully decoding or authenticating the packet, so a
// server can route it to the right Conn before that Conn exists.
// shortDCIDLen is this endpoint's own connection id length, needed
// because a short header's dcid has no self-describing length field.
func PeekConnectionID(b []byte, shortDCIDLen int) (ConnectionID, bool) {
	if len(b) < 1 {
		return nil, false
	}
	if !isLongHeader(b[0]) {
		if len(b) < 1+shortDCIDLen {
			return nil, false
		}
		return ConnectionID(append([]byte(nil), b[1:1+shortDCIDLen]...)), true
	}
	if len(b) < 6 {
		return nil, false
	}
	dcidLen := int(b[5])
	if len(b)-6 < dcidLen {
		return nil, false
	}
	return ConnectionID(append([]byte(nil), b[6:6+dcidLen]...)), true
}
