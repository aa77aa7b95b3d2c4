package transport

// flowControl tracks credit accounting for one flow-control scope —
// either a whole connection or a single stream, per §4.3. The
// connection and each stream each own one instance.
type flowControl struct {
	// Receive side.
	rxOffset     uint64 // bytes credited to flow control so far
	maxRecv      uint64 // credit currently advertised to the peer
	maxRecvNext  uint64 // credit pending advertisement (bumped, sent lazily)
	recvWindow   uint64 // increment applied each time the window is extended

	// Send side.
	txOffset      uint64 // bytes sent so far
	maxSend       uint64 // credit received from the peer
	blockedAtSend uint64 // maxSend value we last reported *_BLOCKED for
	blockedNotified bool
}

func (f *flowControl) init(maxRecv, maxSend uint64) {
	f.maxRecv = maxRecv
	f.maxRecvNext = maxRecv
	f.recvWindow = maxRecv
	f.maxSend = maxSend
}

// canRecv returns how many more bytes may be received before a
// flow-control violation.
func (f *flowControl) canRecv() uint64 {
	if f.rxOffset >= f.maxRecv {
		return 0
	}
	return f.maxRecv - f.rxOffset
}

// addRecv credits n newly-seen bytes (already deduplicated by the
// caller, see recvBuffer.pushRecv) and decides whether the advertised
// window should grow.
func (f *flowControl) addRecv(n int) {
	if n <= 0 {
		return
	}
	f.rxOffset += uint64(n)
	// Re-advertise once consumed >= max_data/2, per §4.3.
	if f.recvWindow > 0 && f.rxOffset*2 >= f.maxRecvNext && f.maxRecvNext == f.maxRecv {
		f.maxRecvNext = f.maxRecv + f.recvWindow
	}
}

// shouldUpdateMaxRecv reports whether a MAX_DATA/MAX_STREAM_DATA
// needs to be (re)sent.
func (f *flowControl) shouldUpdateMaxRecv() bool {
	return f.maxRecvNext > f.maxRecv
}

// commitMaxRecv marks the pending credit increase as sent.
func (f *flowControl) commitMaxRecv() {
	f.maxRecv = f.maxRecvNext
}

// setMaxSend applies a MAX_DATA/MAX_STREAM_DATA received from the
// peer. Credit grants are monotonic; a smaller value is ignored.
func (f *flowControl) setMaxSend(v uint64) {
	if v > f.maxSend {
		f.maxSend = v
		f.blockedNotified = false
	}
}

// canSend returns how many more bytes may be sent before hitting the
// peer's credit limit.
func (f *flowControl) canSend() uint64 {
	if f.txOffset >= f.maxSend {
		return 0
	}
	return f.maxSend - f.txOffset
}

func (f *flowControl) addSend(n int) {
	f.txOffset += uint64(n)
}

// addSendUpTo advances credit consumption to end, the byte offset one
// past the range just sent, and reports how much of that range is new
// rather than a retransmission of bytes already credited: a
// stream's credit is keyed to the highest offset ever sent, so resending
// an already-sent range (after loss) must not consume it twice (§4.3).
func (f *flowControl) addSendUpTo(end uint64) uint64 {
	if end <= f.txOffset {
		return 0
	}
	delta := end - f.txOffset
	f.txOffset = end
	return delta
}

// needBlocked reports whether a BLOCKED/STREAM_BLOCKED should be
// emitted: at most once per distinct blocking offset (§4.3).
func (f *flowControl) needBlocked() (uint64, bool) {
	if f.canSend() > 0 {
		f.blockedNotified = false
		return 0, false
	}
	if f.blockedNotified && f.blockedAtSend == f.maxSend {
		return 0, false
	}
	f.blockedAtSend = f.maxSend
	f.blockedNotified = true
	return f.maxSend, true
}
