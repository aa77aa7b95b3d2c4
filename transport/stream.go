package transport

import "io"

// Stream send-side and receive-side states, per §3 data model.
type streamSendState uint8

const (
	sendStateReady streamSendState = iota
	sendStateSend
	sendStateDataSent
	sendStateDataRecvd
	sendStateResetSent
	sendStateResetRecvd
)

type streamRecvState uint8

const (
	recvStateRecv streamRecvState = iota
	recvStateSizeKnown
	recvStateDataRecvd
	recvStateDataRead
	recvStateResetRecvd
	recvStateResetRead
)

// appErrorStopping is the application error code sentinel (0) used
// only to mean "no error" or, on an RST_STREAM sent in response to
// STOP_SENDING, "stopped per peer request". Interfaces that accept an
// application error code elsewhere must reject it: design note (a).
const appErrorStopping = 0

// Stream is one multiplexed byte stream within a connection: §3,
// §4.2. It is always reached through Conn; callers never construct
// one directly.
type Stream struct {
	id    uint64
	local bool // true if locally-initiated
	bidi  bool

	send sendBuffer
	recv recvBuffer

	flow     flowControl
	connFlow *flowControl

	updateMaxData bool // a MAX_STREAM_DATA needs to be sent

	sendState streamSendState
	recvState streamRecvState

	resetErrorCode  uint64
	wantReset       bool // RST_STREAM queued by shutdown-write
	wantStopSending bool // STOP_SENDING queued by shutdown-read
	stopErrorCode   uint64

	peerResetCode uint64
	gotPeerReset  bool
}

func newStream(id uint64, local, bidi bool) *Stream {
	return &Stream{id: id, local: local, bidi: bidi}
}

// ID returns the stream's 62-bit identifier.
func (s *Stream) ID() uint64 {
	return s.id
}

// isStreamLocal reports whether id was initiated by this endpoint.
// Client-initiated ids have bit 0 clear; server-initiated have it set.
func isStreamLocal(id uint64, isClient bool) bool {
	clientInitiated := id&0x1 == 0
	return clientInitiated == isClient
}

// isStreamBidi reports whether id names a bidirectional stream (bit 1
// clear) as opposed to unidirectional (bit 1 set).
func isStreamBidi(id uint64) bool {
	return id&0x2 == 0
}

// streamIndex returns id's position within its (bidi/uni,
// local/remote) class, used against the peer-advertised max stream id.
func streamIndex(id uint64) uint64 {
	return id >> 2
}

// pushRecv buffers data arriving in a STREAM frame, enforcing both
// per-stream and per-connection flow-control credit before crediting
// newly-seen bytes to either. tx_offset/last_rx_offset invariants
// (§3) are enforced here: end must never exceed either credit.
func (s *Stream) pushRecv(data []byte, offset uint64, fin bool) *Error {
	end := offset + uint64(len(data))
	if end > s.flow.maxRecv {
		return errFlowControl
	}
	if s.connFlow != nil && end > s.connFlow.maxRecv {
		return errFlowControl
	}
	newBytes, err := s.recv.pushRecv(data, offset, fin)
	if err != nil {
		return err
	}
	s.flow.addRecv(newBytes)
	if s.connFlow != nil {
		s.connFlow.addRecv(newBytes)
	}
	if fin {
		s.recvState = recvStateSizeKnown
	}
	if s.recv.dataRecvd() {
		s.recvState = recvStateDataRecvd
	}
	return nil
}

// applyReset applies a peer RST_STREAM's final_offset, crediting any
// newly-committed bytes to flow control exactly as pushRecv does.
func (s *Stream) applyReset(finalSize uint64, errCode uint64) *Error {
	if finalSize > s.flow.maxRecv || (s.connFlow != nil && finalSize > s.connFlow.maxRecv) {
		return errFlowControl
	}
	newBytes, err := s.recv.reset(finalSize)
	if err != nil {
		return err
	}
	s.flow.addRecv(newBytes)
	if s.connFlow != nil {
		s.connFlow.addRecv(newBytes)
	}
	s.peerResetCode = errCode
	s.gotPeerReset = true
	s.recvState = recvStateResetRecvd
	return nil
}

// popSend returns the next chunk of outgoing STREAM data up to max
// bytes, respecting nothing but the caller-supplied budget — flow
// control and congestion budget are enforced by the caller before
// calling this.
func (s *Stream) popSend(max int) (data []byte, offset uint64, fin bool) {
	return s.send.popSend(max)
}

// Write queues p for sending on the stream's send side. Buffers are
// borrowed: the caller must not mutate p until the data is acked.
// Returns StreamDataBlocked, without queuing anything, if p would
// push the stream past the peer-granted flow-control credit; the
// caller should retry once an EventStreamWritable arrives (ngtcp2
// returns NGTCP2_ERR_STREAM_DATA_BLOCKED from this same entrypoint).
func (s *Stream) Write(p []byte) (int, error) {
	if s.sendState >= sendStateResetSent {
		return 0, newError(StreamShutWrite, "stream send side closed")
	}
	if s.send.tailOffset+uint64(len(p)) > s.flow.maxSend {
		return 0, newError(StreamDataBlocked, "stream blocked on peer flow-control credit")
	}
	if err := s.send.write(p, false); err != nil {
		return 0, err
	}
	if s.sendState == sendStateReady {
		s.sendState = sendStateSend
	}
	return len(p), nil
}

// Close marks the send side finished: a STREAM frame carrying fin
// will eventually be emitted once queued data drains.
func (s *Stream) Close() error {
	if s.sendState >= sendStateDataSent {
		return nil
	}
	if err := s.send.write(nil, true); err != nil {
		return err
	}
	s.sendState = sendStateDataSent
	return nil
}

// Read drains the contiguous prefix of received data into p, in
// strictly ascending offset order (§5). Returns io.EOF once fin has
// been delivered and all data consumed.
func (s *Stream) Read(p []byte) (int, error) {
	data, _, fin, ok := s.recv.popRecv()
	if !ok {
		if s.recvState == recvStateDataRecvd && s.recv.rob.empty() {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, data)
	if n < len(data) {
		// Rare: caller buffer smaller than buffered chunk. Re-queue the
		// remainder at its original offset.
		remaining := data[n:]
		s.recv.rob.chunks = append([]robChunk{{offset: s.recv.readOffset - uint64(len(remaining)), data: remaining}}, s.recv.rob.chunks...)
		s.recv.readOffset -= uint64(len(remaining))
		fin = false
	}
	if fin {
		s.recvState = recvStateDataRead
		return n, io.EOF
	}
	return n, nil
}

// shutdownWrite discards unacked send data and queues RST_STREAM with
// appErr, per §4.2.
func (s *Stream) shutdownWrite(appErr uint64) {
	if s.sendState >= sendStateResetSent {
		return
	}
	s.send.queue = nil
	s.resetErrorCode = appErr
	s.wantReset = true
	s.sendState = sendStateResetSent
}

// shutdownRead queues STOP_SENDING with appErr, per §4.2.
func (s *Stream) shutdownRead(appErr uint64) {
	if s.recvState >= recvStateResetRecvd {
		return
	}
	s.stopErrorCode = appErr
	s.wantStopSending = true
}

func (s *Stream) ackMaxData() {
	s.updateMaxData = false
}

// finalSendOffset returns the offset RST_STREAM should carry.
func (s *Stream) finalSendOffset() uint64 {
	return s.send.tailOffset
}
