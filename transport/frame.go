package transport

import "fmt"

// Frame type codes, exactly as carried on the wire (§4.1, §GLOSSARY).
const (
	frameTypePadding            = 0x00
	frameTypeResetStream        = 0x01
	frameTypeConnectionClose    = 0x02
	frameTypeApplicationClose   = 0x03
	frameTypeMaxData            = 0x04
	frameTypeMaxStreamData      = 0x05
	frameTypeMaxStreamID        = 0x06
	frameTypePing               = 0x07
	frameTypeBlocked            = 0x08
	frameTypeStreamBlocked      = 0x09
	frameTypeStreamIDBlocked    = 0x0a
	frameTypeNewConnectionID    = 0x0b
	frameTypeStopSending        = 0x0c
	frameTypeRetireConnectionID = 0x0d
	frameTypePathChallenge      = 0x0e
	frameTypePathResponse       = 0x0f
	frameTypeStream             = 0x10 // through 0x17: low 3 bits carry OFF/LEN/FIN
	frameTypeStreamMax          = 0x17
	frameTypeCrypto             = 0x18
	frameTypeNewToken           = 0x19
	frameTypeAck                = 0x1a
)

const streamFrameFlagFin = 0x01
const streamFrameFlagLen = 0x02
const streamFrameFlagOff = 0x04

// frame is any decoded QUIC frame. encode writes the frame's wire
// form (including its type byte) into b and returns the number of
// bytes written; it must not be called with a buffer shorter than
// encodedLen().
type frame interface {
	encode(b []byte) int
	encodedLen() int
}

// --- PADDING ---

type paddingFrame struct {
	length int
}

func newPaddingFrame(n int) paddingFrame { return paddingFrame{length: n} }

func (f paddingFrame) encode(b []byte) int {
	for i := 0; i < f.length; i++ {
		b[i] = frameTypePadding
	}
	return f.length
}

func (f paddingFrame) encodedLen() int { return f.length }

// --- PING ---

type pingFrame struct{}

func (f pingFrame) encode(b []byte) int {
	b[0] = frameTypePing
	return 1
}

func (f pingFrame) encodedLen() int { return 1 }

// --- ACK ---

type ackRange struct {
	gap      uint64 // packets between this range and the previous one, minus 2
	ackRange uint64 // additional packets acknowledged below the range start, minus 1
}

type ackFrame struct {
	largestAck     uint64
	ackDelay       uint64 // encoded microsecond delay, already divided by the exponent
	firstAckRange  uint64
	ranges         []ackRange
}

// newAckFrameFromSet builds an ackFrame from a rangeSet of received
// packet numbers, encoding its descending gap/range list per §4.1.
func newAckFrameFromSet(rs *rangeSet, ackDelay uint64) ackFrame {
	desc := rs.descending()
	if len(desc) == 0 {
		return ackFrame{}
	}
	f := ackFrame{
		largestAck:    desc[0].hi,
		ackDelay:      ackDelay,
		firstAckRange: desc[0].hi - desc[0].lo,
	}
	prevLo := desc[0].lo
	for _, r := range desc[1:] {
		gap := prevLo - r.hi - 2
		f.ranges = append(f.ranges, ackRange{gap: gap, ackRange: r.hi - r.lo})
		prevLo = r.lo
	}
	return f
}

// toRangeSet reconstructs the set of acknowledged packet numbers.
func (f ackFrame) toRangeSet() *rangeSet {
	rs := &rangeSet{}
	hi := f.largestAck
	lo := hi - f.firstAckRange
	rs.push(lo, hi)
	for _, r := range f.ranges {
		hi = lo - r.gap - 2
		lo = hi - r.ackRange
		rs.push(lo, hi)
	}
	return rs
}

func (f ackFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeAck
	n++
	n += putVarint(b[n:], f.largestAck)
	n += putVarint(b[n:], f.ackDelay)
	n += putVarint(b[n:], uint64(len(f.ranges)))
	n += putVarint(b[n:], f.firstAckRange)
	for _, r := range f.ranges {
		n += putVarint(b[n:], r.gap)
		n += putVarint(b[n:], r.ackRange)
	}
	return n
}

func (f ackFrame) encodedLen() int {
	n := 1 + varintLen(f.largestAck) + varintLen(f.ackDelay) +
		varintLen(uint64(len(f.ranges))) + varintLen(f.firstAckRange)
	for _, r := range f.ranges {
		n += varintLen(r.gap) + varintLen(r.ackRange)
	}
	return n
}

func decodeAckFrame(b []byte) (ackFrame, int, *Error) {
	var f ackFrame
	n := 1
	m := getVarint(b[n:], &f.largestAck)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "ack: largest")
	}
	n += m
	m = getVarint(b[n:], &f.ackDelay)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "ack: delay")
	}
	n += m
	var count uint64
	m = getVarint(b[n:], &count)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "ack: count")
	}
	n += m
	m = getVarint(b[n:], &f.firstAckRange)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "ack: first range")
	}
	n += m
	for i := uint64(0); i < count; i++ {
		var r ackRange
		m = getVarint(b[n:], &r.gap)
		if m == 0 {
			return f, 0, newError(FrameEncodingError, "ack: gap")
		}
		n += m
		m = getVarint(b[n:], &r.ackRange)
		if m == 0 {
			return f, 0, newError(FrameEncodingError, "ack: range")
		}
		n += m
		f.ranges = append(f.ranges, r)
	}
	return f, n, nil
}

// --- RST_STREAM ---

type resetStreamFrame struct {
	streamID  uint64
	errorCode uint64
	finalSize uint64
}

func newResetStreamFrame(streamID, errorCode, finalSize uint64) resetStreamFrame {
	return resetStreamFrame{streamID: streamID, errorCode: errorCode, finalSize: finalSize}
}

func (f resetStreamFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeResetStream
	n++
	n += putVarint(b[n:], f.streamID)
	n += putVarint(b[n:], f.errorCode)
	n += putVarint(b[n:], f.finalSize)
	return n
}

func (f resetStreamFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.errorCode) + varintLen(f.finalSize)
}

func decodeResetStreamFrame(b []byte) (resetStreamFrame, int, *Error) {
	var f resetStreamFrame
	n := 1
	for _, p := range []*uint64{&f.streamID, &f.errorCode, &f.finalSize} {
		m := getVarint(b[n:], p)
		if m == 0 {
			return f, 0, newError(FrameEncodingError, "reset_stream")
		}
		n += m
	}
	return f, n, nil
}

// --- STOP_SENDING ---

type stopSendingFrame struct {
	streamID  uint64
	errorCode uint64
}

func newStopSendingFrame(streamID, errorCode uint64) stopSendingFrame {
	return stopSendingFrame{streamID: streamID, errorCode: errorCode}
}

func (f stopSendingFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeStopSending
	n++
	n += putVarint(b[n:], f.streamID)
	n += putVarint(b[n:], f.errorCode)
	return n
}

func (f stopSendingFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.errorCode)
}

func decodeStopSendingFrame(b []byte) (stopSendingFrame, int, *Error) {
	var f stopSendingFrame
	n := 1
	m := getVarint(b[n:], &f.streamID)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "stop_sending")
	}
	n += m
	m = getVarint(b[n:], &f.errorCode)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "stop_sending")
	}
	n += m
	return f, n, nil
}

// --- CRYPTO ---

type cryptoFrame struct {
	offset uint64
	data   []byte
}

func newCryptoFrame(data []byte, offset uint64) cryptoFrame {
	return cryptoFrame{data: data, offset: offset}
}

func (f cryptoFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeCrypto
	n++
	n += putVarint(b[n:], f.offset)
	n += putVarint(b[n:], uint64(len(f.data)))
	n += copy(b[n:], f.data)
	return n
}

func (f cryptoFrame) encodedLen() int {
	return 1 + varintLen(f.offset) + varintLen(uint64(len(f.data))) + len(f.data)
}

func decodeCryptoFrame(b []byte) (cryptoFrame, int, *Error) {
	var f cryptoFrame
	n := 1
	m := getVarint(b[n:], &f.offset)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "crypto: offset")
	}
	n += m
	var length uint64
	m = getVarint(b[n:], &length)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "crypto: length")
	}
	n += m
	if uint64(len(b)-n) < length {
		return f, 0, newError(FrameEncodingError, "crypto: truncated")
	}
	f.data = b[n : n+int(length)]
	n += int(length)
	return f, n, nil
}

// --- NEW_TOKEN ---

type newTokenFrame struct {
	token []byte
}

func newNewTokenFrame(token []byte) newTokenFrame {
	return newTokenFrame{token: token}
}

func (f newTokenFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeNewToken
	n++
	n += putVarint(b[n:], uint64(len(f.token)))
	n += copy(b[n:], f.token)
	return n
}

func (f newTokenFrame) encodedLen() int {
	return 1 + varintLen(uint64(len(f.token))) + len(f.token)
}

func decodeNewTokenFrame(b []byte) (newTokenFrame, int, *Error) {
	var f newTokenFrame
	n := 1
	var length uint64
	m := getVarint(b[n:], &length)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "new_token: length")
	}
	n += m
	if uint64(len(b)-n) < length {
		return f, 0, newError(FrameEncodingError, "new_token: truncated")
	}
	f.token = b[n : n+int(length)]
	n += int(length)
	return f, n, nil
}

// --- STREAM ---

type streamFrame struct {
	streamID uint64
	offset   uint64
	data     []byte
	fin      bool
}

func newStreamFrame(streamID uint64, data []byte, offset uint64, fin bool) streamFrame {
	return streamFrame{streamID: streamID, data: data, offset: offset, fin: fin}
}

func (f streamFrame) encode(b []byte) int {
	typ := byte(frameTypeStream) | streamFrameFlagLen
	if f.offset > 0 {
		typ |= streamFrameFlagOff
	}
	if f.fin {
		typ |= streamFrameFlagFin
	}
	n := 0
	b[n] = typ
	n++
	n += putVarint(b[n:], f.streamID)
	if f.offset > 0 {
		n += putVarint(b[n:], f.offset)
	}
	n += putVarint(b[n:], uint64(len(f.data)))
	n += copy(b[n:], f.data)
	return n
}

func (f streamFrame) encodedLen() int {
	n := 1 + varintLen(f.streamID) + varintLen(uint64(len(f.data))) + len(f.data)
	if f.offset > 0 {
		n += varintLen(f.offset)
	}
	return n
}

func decodeStreamFrame(b []byte) (streamFrame, int, *Error) {
	var f streamFrame
	typ := b[0]
	f.fin = typ&streamFrameFlagFin != 0
	hasLen := typ&streamFrameFlagLen != 0
	hasOff := typ&streamFrameFlagOff != 0
	n := 1
	m := getVarint(b[n:], &f.streamID)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "stream: id")
	}
	n += m
	if hasOff {
		m = getVarint(b[n:], &f.offset)
		if m == 0 {
			return f, 0, newError(FrameEncodingError, "stream: offset")
		}
		n += m
	}
	var length uint64
	if hasLen {
		m = getVarint(b[n:], &length)
		if m == 0 {
			return f, 0, newError(FrameEncodingError, "stream: length")
		}
		n += m
	} else {
		length = uint64(len(b) - n)
	}
	if uint64(len(b)-n) < length {
		return f, 0, newError(FrameEncodingError, "stream: truncated")
	}
	f.data = b[n : n+int(length)]
	n += int(length)
	return f, n, nil
}

// --- MAX_DATA / MAX_STREAM_DATA / MAX_STREAM_ID ---

type maxDataFrame struct {
	max uint64
}

func newMaxDataFrame(max uint64) maxDataFrame { return maxDataFrame{max: max} }

func (f maxDataFrame) encode(b []byte) int {
	b[0] = frameTypeMaxData
	return 1 + putVarint(b[1:], f.max)
}

func (f maxDataFrame) encodedLen() int { return 1 + varintLen(f.max) }

func decodeMaxDataFrame(b []byte) (maxDataFrame, int, *Error) {
	var f maxDataFrame
	m := getVarint(b[1:], &f.max)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "max_data")
	}
	return f, 1 + m, nil
}

type maxStreamDataFrame struct {
	streamID uint64
	max      uint64
}

func newMaxStreamDataFrame(streamID, max uint64) maxStreamDataFrame {
	return maxStreamDataFrame{streamID: streamID, max: max}
}

func (f maxStreamDataFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeMaxStreamData
	n++
	n += putVarint(b[n:], f.streamID)
	n += putVarint(b[n:], f.max)
	return n
}

func (f maxStreamDataFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.max)
}

func decodeMaxStreamDataFrame(b []byte) (maxStreamDataFrame, int, *Error) {
	var f maxStreamDataFrame
	n := 1
	m := getVarint(b[n:], &f.streamID)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "max_stream_data: id")
	}
	n += m
	m = getVarint(b[n:], &f.max)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "max_stream_data: max")
	}
	n += m
	return f, n, nil
}

// maxStreamIDFrame carries a single stream id: the class (bidi/uni,
// client/server-initiated) is inferred from its low two bits, unlike
// later QUIC drafts which split this into two frame types.
type maxStreamIDFrame struct {
	maxStreamID uint64
}

func newMaxStreamIDFrame(id uint64) maxStreamIDFrame { return maxStreamIDFrame{maxStreamID: id} }

func (f maxStreamIDFrame) encode(b []byte) int {
	b[0] = frameTypeMaxStreamID
	return 1 + putVarint(b[1:], f.maxStreamID)
}

func (f maxStreamIDFrame) encodedLen() int { return 1 + varintLen(f.maxStreamID) }

func decodeMaxStreamIDFrame(b []byte) (maxStreamIDFrame, int, *Error) {
	var f maxStreamIDFrame
	m := getVarint(b[1:], &f.maxStreamID)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "max_stream_id")
	}
	return f, 1 + m, nil
}

// --- BLOCKED / STREAM_BLOCKED / STREAM_ID_BLOCKED ---

type blockedFrame struct {
	offset uint64
}

func newBlockedFrame(offset uint64) blockedFrame { return blockedFrame{offset: offset} }

func (f blockedFrame) encode(b []byte) int {
	b[0] = frameTypeBlocked
	return 1 + putVarint(b[1:], f.offset)
}

func (f blockedFrame) encodedLen() int { return 1 + varintLen(f.offset) }

func decodeBlockedFrame(b []byte) (blockedFrame, int, *Error) {
	var f blockedFrame
	m := getVarint(b[1:], &f.offset)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "blocked")
	}
	return f, 1 + m, nil
}

type streamBlockedFrame struct {
	streamID uint64
	offset   uint64
}

func newStreamBlockedFrame(streamID, offset uint64) streamBlockedFrame {
	return streamBlockedFrame{streamID: streamID, offset: offset}
}

func (f streamBlockedFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeStreamBlocked
	n++
	n += putVarint(b[n:], f.streamID)
	n += putVarint(b[n:], f.offset)
	return n
}

func (f streamBlockedFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.offset)
}

func decodeStreamBlockedFrame(b []byte) (streamBlockedFrame, int, *Error) {
	var f streamBlockedFrame
	n := 1
	m := getVarint(b[n:], &f.streamID)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "stream_blocked: id")
	}
	n += m
	m = getVarint(b[n:], &f.offset)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "stream_blocked: offset")
	}
	n += m
	return f, n, nil
}

type streamIDBlockedFrame struct {
	streamID uint64
}

func newStreamIDBlockedFrame(streamID uint64) streamIDBlockedFrame {
	return streamIDBlockedFrame{streamID: streamID}
}

func (f streamIDBlockedFrame) encode(b []byte) int {
	b[0] = frameTypeStreamIDBlocked
	return 1 + putVarint(b[1:], f.streamID)
}

func (f streamIDBlockedFrame) encodedLen() int { return 1 + varintLen(f.streamID) }

func decodeStreamIDBlockedFrame(b []byte) (streamIDBlockedFrame, int, *Error) {
	var f streamIDBlockedFrame
	m := getVarint(b[1:], &f.streamID)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "stream_id_blocked")
	}
	return f, 1 + m, nil
}

// --- NEW_CONNECTION_ID / RETIRE_CONNECTION_ID ---

type newConnectionIDFrame struct {
	seq                uint64
	retirePriorTo      uint64
	connID             []byte
	statelessResetToken [16]byte
}

func (f newConnectionIDFrame) encode(b []byte) int {
	n := 0
	b[n] = frameTypeNewConnectionID
	n++
	n += putVarint(b[n:], f.seq)
	n += putVarint(b[n:], f.retirePriorTo)
	b[n] = byte(len(f.connID))
	n++
	n += copy(b[n:], f.connID)
	n += copy(b[n:], f.statelessResetToken[:])
	return n
}

func (f newConnectionIDFrame) encodedLen() int {
	return 1 + varintLen(f.seq) + varintLen(f.retirePriorTo) + 1 + len(f.connID) + 16
}

func decodeNewConnectionIDFrame(b []byte) (newConnectionIDFrame, int, *Error) {
	var f newConnectionIDFrame
	n := 1
	m := getVarint(b[n:], &f.seq)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "new_connection_id: seq")
	}
	n += m
	m = getVarint(b[n:], &f.retirePriorTo)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "new_connection_id: retire_prior_to")
	}
	n += m
	if n >= len(b) {
		return f, 0, newError(FrameEncodingError, "new_connection_id: length")
	}
	idLen := int(b[n])
	n++
	if idLen < 1 || idLen > 18 || len(b)-n < idLen+16 {
		return f, 0, newError(FrameEncodingError, "new_connection_id: truncated")
	}
	f.connID = append([]byte(nil), b[n:n+idLen]...)
	n += idLen
	copy(f.statelessResetToken[:], b[n:n+16])
	n += 16
	return f, n, nil
}

type retireConnectionIDFrame struct {
	seq uint64
}

func (f retireConnectionIDFrame) encode(b []byte) int {
	b[0] = frameTypeRetireConnectionID
	return 1 + putVarint(b[1:], f.seq)
}

func (f retireConnectionIDFrame) encodedLen() int { return 1 + varintLen(f.seq) }

func decodeRetireConnectionIDFrame(b []byte) (retireConnectionIDFrame, int, *Error) {
	var f retireConnectionIDFrame
	m := getVarint(b[1:], &f.seq)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "retire_connection_id")
	}
	return f, 1 + m, nil
}

// --- PATH_CHALLENGE / PATH_RESPONSE ---

type pathChallengeFrame struct {
	data [8]byte
}

func (f pathChallengeFrame) encode(b []byte) int {
	b[0] = frameTypePathChallenge
	copy(b[1:], f.data[:])
	return 9
}

func (f pathChallengeFrame) encodedLen() int { return 9 }

func decodePathChallengeFrame(b []byte) (pathChallengeFrame, int, *Error) {
	var f pathChallengeFrame
	if len(b) < 9 {
		return f, 0, newError(FrameEncodingError, "path_challenge")
	}
	copy(f.data[:], b[1:9])
	return f, 9, nil
}

type pathResponseFrame struct {
	data [8]byte
}

func (f pathResponseFrame) encode(b []byte) int {
	b[0] = frameTypePathResponse
	copy(b[1:], f.data[:])
	return 9
}

func (f pathResponseFrame) encodedLen() int { return 9 }

func decodePathResponseFrame(b []byte) (pathResponseFrame, int, *Error) {
	var f pathResponseFrame
	if len(b) < 9 {
		return f, 0, newError(FrameEncodingError, "path_response")
	}
	copy(f.data[:], b[1:9])
	return f, 9, nil
}

// --- CONNECTION_CLOSE / APPLICATION_CLOSE ---

type connectionCloseFrame struct {
	errorCode uint64
	frameType uint64 // 0 when isApp, or when the frame type is unknown
	reason    string
	isApp     bool
}

func newConnectionCloseFrame(errorCode, frameType uint64, reason string, isApp bool) connectionCloseFrame {
	return connectionCloseFrame{errorCode: errorCode, frameType: frameType, reason: reason, isApp: isApp}
}

func (f connectionCloseFrame) encode(b []byte) int {
	n := 0
	if f.isApp {
		b[n] = frameTypeApplicationClose
	} else {
		b[n] = frameTypeConnectionClose
	}
	n++
	n += putVarint(b[n:], f.errorCode)
	if !f.isApp {
		n += putVarint(b[n:], f.frameType)
	}
	n += putVarint(b[n:], uint64(len(f.reason)))
	n += copy(b[n:], f.reason)
	return n
}

func (f connectionCloseFrame) encodedLen() int {
	n := 1 + varintLen(f.errorCode) + varintLen(uint64(len(f.reason))) + len(f.reason)
	if !f.isApp {
		n += varintLen(f.frameType)
	}
	return n
}

func decodeConnectionCloseFrame(b []byte, isApp bool) (connectionCloseFrame, int, *Error) {
	f := connectionCloseFrame{isApp: isApp}
	n := 1
	m := getVarint(b[n:], &f.errorCode)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "connection_close: code")
	}
	n += m
	if !isApp {
		m = getVarint(b[n:], &f.frameType)
		if m == 0 {
			return f, 0, newError(FrameEncodingError, "connection_close: frame type")
		}
		n += m
	}
	var length uint64
	m = getVarint(b[n:], &length)
	if m == 0 {
		return f, 0, newError(FrameEncodingError, "connection_close: reason length")
	}
	n += m
	if uint64(len(b)-n) < length {
		return f, 0, newError(FrameEncodingError, "connection_close: truncated")
	}
	f.reason = string(b[n : n+int(length)])
	n += int(length)
	return f, n, nil
}

// frameTypeName returns a human-readable name for logging, used by
// log.go regardless of whether the frame decoded successfully.
func frameTypeName(typ byte) string {
	if typ >= frameTypeStream && typ <= frameTypeStreamMax {
		return "STREAM"
	}
	switch typ {
	case frameTypePadding:
		return "PADDING"
	case frameTypeResetStream:
		return "RST_STREAM"
	case frameTypeConnectionClose:
		return "CONNECTION_CLOSE"
	case frameTypeApplicationClose:
		return "APPLICATION_CLOSE"
	case frameTypeMaxData:
		return "MAX_DATA"
	case frameTypeMaxStreamData:
		return "MAX_STREAM_DATA"
	case frameTypeMaxStreamID:
		return "MAX_STREAM_ID"
	case frameTypePing:
		return "PING"
	case frameTypeBlocked:
		return "BLOCKED"
	case frameTypeStreamBlocked:
		return "STREAM_BLOCKED"
	case frameTypeStreamIDBlocked:
		return "STREAM_ID_BLOCKED"
	case frameTypeNewConnectionID:
		return "NEW_CONNECTION_ID"
	case frameTypeStopSending:
		return "STOP_SENDING"
	case frameTypeRetireConnectionID:
		return "RETIRE_CONNECTION_ID"
	case frameTypePathChallenge:
		return "PATH_CHALLENGE"
	case frameTypePathResponse:
		return "PATH_RESPONSE"
	case frameTypeCrypto:
		return "CRYPTO"
	case frameTypeNewToken:
		return "NEW_TOKEN"
	case frameTypeAck:
		return "ACK"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", typ)
	}
}
