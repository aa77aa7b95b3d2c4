package transport

import "time"

// recvFrames walks the decrypted payload of one packet in space,
// dispatching each frame to its handler, and reports whether the
// packet was ack-eliciting (carried any frame other than PADDING/ACK,
// §4.1).
func (c *Conn) recvFrames(space packetNumberSpaceID, b []byte, now time.Time) (bool, *Error) {
	ackEliciting := false
	for len(b) > 0 {
		typ := b[0]
		n, err := c.recvFrame(space, typ, b, now)
		if err != nil {
			return ackEliciting, err
		}
		if n <= 0 {
			return ackEliciting, newError(FrameEncodingError, "zero-length frame decode")
		}
		if typ != frameTypePadding && typ != frameTypeAck {
			ackEliciting = true
		}
		b = b[n:]
	}
	return ackEliciting, nil
}

func (c *Conn) recvFrame(space packetNumberSpaceID, typ byte, b []byte, now time.Time) (int, *Error) {
	switch {
	case typ == frameTypePadding:
		n := 0
		for n < len(b) && b[n] == frameTypePadding {
			n++
		}
		return n, nil
	case typ == frameTypePing:
		return 1, nil
	case typ == frameTypeAck:
		f, n, err := decodeAckFrame(b)
		if err != nil {
			return 0, err
		}
		c.recvAck(space, f, now)
		return n, nil
	case typ == frameTypeCrypto:
		f, n, err := decodeCryptoFrame(b)
		if err != nil {
			return 0, err
		}
		return n, c.recvCrypto(space, f)
	case typ == frameTypeNewToken:
		f, n, err := decodeNewTokenFrame(b)
		if err != nil {
			return 0, err
		}
		_ = f
		return n, nil
	case typ == frameTypeResetStream:
		f, n, err := decodeResetStreamFrame(b)
		if err != nil {
			return 0, err
		}
		return n, c.recvResetStream(f)
	case typ == frameTypeStopSending:
		f, n, err := decodeStopSendingFrame(b)
		if err != nil {
			return 0, err
		}
		return n, c.recvStopSending(f)
	case typ >= frameTypeStream && typ <= frameTypeStreamMax:
		f, n, err := decodeStreamFrame(b)
		if err != nil {
			return 0, err
		}
		return n, c.recvStream(f)
	case typ == frameTypeMaxData:
		f, n, err := decodeMaxDataFrame(b)
		if err != nil {
			return 0, err
		}
		c.connFlow.setMaxSend(f.max)
		return n, nil
	case typ == frameTypeMaxStreamData:
		f, n, err := decodeMaxStreamDataFrame(b)
		if err != nil {
			return 0, err
		}
		return n, c.recvMaxStreamData(f)
	case typ == frameTypeMaxStreamID:
		f, n, err := decodeMaxStreamIDFrame(b)
		if err != nil {
			return 0, err
		}
		c.streams.setPeerCredit(classOf(f.maxStreamID), streamIndex(f.maxStreamID))
		return n, nil
	case typ == frameTypeBlocked:
		f, n, err := decodeBlockedFrame(b)
		if err != nil {
			return 0, err
		}
		_ = f
		return n, nil
	case typ == frameTypeStreamBlocked:
		f, n, err := decodeStreamBlockedFrame(b)
		if err != nil {
			return 0, err
		}
		_ = f
		return n, nil
	case typ == frameTypeStreamIDBlocked:
		f, n, err := decodeStreamIDBlockedFrame(b)
		if err != nil {
			return 0, err
		}
		_ = f
		return n, nil
	case typ == frameTypeNewConnectionID:
		f, n, err := decodeNewConnectionIDFrame(b)
		if err != nil {
			return 0, err
		}
		_ = f
		return n, nil
	case typ == frameTypeRetireConnectionID:
		f, n, err := decodeRetireConnectionIDFrame(b)
		if err != nil {
			return 0, err
		}
		_ = f
		return n, nil
	case typ == frameTypePathChallenge:
		f, n, err := decodePathChallengeFrame(b)
		if err != nil {
			return 0, err
		}
		c.recvPathChallenge(f)
		return n, nil
	case typ == frameTypePathResponse:
		f, n, err := decodePathResponseFrame(b)
		if err != nil {
			return 0, err
		}
		c.recvPathResponse(f)
		return n, nil
	case typ == frameTypeConnectionClose || typ == frameTypeApplicationClose:
		f, n, err := decodeConnectionCloseFrame(b, typ == frameTypeApplicationClose)
		if err != nil {
			return 0, err
		}
		c.recvConnectionClose(f)
		return n, nil
	default:
		return 0, newError(FrameEncodingError, "unknown frame type")
	}
}

// recvAck processes an ACK frame: marks newly-acked packets acked in
// the recovery state, folds an RTT sample from the largest newly
// acked packet, and runs loss detection for everything below it
// (§4.5).
func (c *Conn) recvAck(spaceID packetNumberSpaceID, f ackFrame, now time.Time) {
	space := c.spaces[spaceID]
	acked := f.toRangeSet()
	var newlyAckedLargest *sentPacket
	var remaining []*sentPacket
	for _, p := range space.sent {
		if acked.contains(p.packetNumber) {
			c.recovery.onPacketAcked(p, now)
			if newlyAckedLargest == nil || p.packetNumber > newlyAckedLargest.packetNumber {
				newlyAckedLargest = p
			}
			c.ackPacketFrames(spaceID, p)
			continue
		}
		remaining = append(remaining, p)
	}
	space.sent = remaining
	if !space.haveLargestAcked || f.largestAck > space.largestAckedByPeer {
		space.largestAckedByPeer = f.largestAck
		space.haveLargestAcked = true
	}
	if newlyAckedLargest != nil && newlyAckedLargest.packetNumber == f.largestAck {
		ackDelay := time.Duration(f.ackDelay) * (time.Microsecond << c.ackDelayExp)
		sample := now.Sub(newlyAckedLargest.sentTime)
		c.recovery.updateRTT(sample, ackDelay)
	}
	lost, remaining2, _ := detectLostPackets(space, space.largestAckedByPeer, now, c.recovery.smoothedRTT)
	for _, p := range lost {
		c.recovery.onPacketLost(p)
		c.requeueLostFrames(spaceID, p)
		c.recordDrop("lost")
		c.logEvent(newLogEventPacketDropped("lost", p.size))
	}
	if len(lost) > 0 {
		c.recovery.onCongestionEvent(lost[len(lost)-1].sentTime, now)
	}
	space.sent = remaining2
}

// ackPacketFrames applies the bookkeeping side effects of a packet
// being acknowledged: crediting acked CRYPTO/STREAM bytes so they are
// never retransmitted.
func (c *Conn) ackPacketFrames(spaceID packetNumberSpaceID, p *sentPacket) {
	for _, fl := range p.frames {
		if fl.isCrypto {
			c.spaces[spaceID].crypto.ack(fl.offset, uint64(fl.length))
			continue
		}
		if fl.hasStream {
			if s, ok := c.streams.get(fl.streamID); ok {
				s.send.ack(fl.offset, uint64(fl.length))
				if s.sendState == sendStateDataSent && s.send.empty() {
					s.sendState = sendStateDataRecvd
				}
			}
		}
	}
}

// requeueLostFrames re-queues the CRYPTO/STREAM ranges a declared-lost
// packet carried so they are retransmitted in a later packet (§4.5);
// pure ACK/PADDING/PATH_RESPONSE content carries nothing to requeue.
func (c *Conn) requeueLostFrames(spaceID packetNumberSpaceID, p *sentPacket) {
	for _, fl := range p.frames {
		if fl.isCrypto {
			c.spaces[spaceID].crypto.push(fl.data, fl.offset)
			continue
		}
		if fl.hasStream {
			if s, ok := c.streams.get(fl.streamID); ok {
				s.send.push(fl.data, fl.offset, fl.fin)
			}
		}
	}
}

func (c *Conn) recvCrypto(spaceID packetNumberSpaceID, f cryptoFrame) *Error {
	space := c.spaces[spaceID]
	if err := space.crypto.pushRecv(f.data, f.offset); err != nil {
		return err
	}
	for {
		data, ok := space.crypto.drainRecv()
		if !ok {
			break
		}
		outputs, err := c.handshaker.Advance(spaceID, data)
		if err != nil {
			return err
		}
		for _, out := range outputs {
			if err := c.spaces[out.Level].crypto.queueSend(out.Data); err != nil {
				return err
			}
		}
	}
	if c.peerParams == nil {
		if p := c.handshaker.PeerParameters(); p != nil {
			if err := c.applyPeerParameters(p); err != nil {
				return err
			}
			c.peerParams = p
		}
	}
	if c.handshaker.IsComplete() && c.state < stateEstablished {
		c.state = stateEstablished
		c.addEvent(newHandshakeCompleteEvent())
		if c.metrics != nil {
			c.metrics.HandshakesDone.Inc()
		}
	}
	return nil
}

// applyPeerParameters installs the peer's negotiated transport
// parameters. A client that went through Retry requires the server to
// echo the original destination connection id back; a server omitting
// it is rejected rather than silently trusted.
func (c *Conn) applyPeerParameters(p *Parameters) *Error {
	if c.isClient && len(c.retryToken) > 0 && len(p.OriginalConnectionID) == 0 {
		return newError(RequiredTransportParameter, "original_connection_id required after retry")
	}
	c.connFlow.setMaxSend(p.InitialMaxData)
	c.streams.peerBidiLocal = p.InitialMaxStreamDataBidiLocal
	c.streams.peerBidiRemote = p.InitialMaxStreamDataBidiRemote
	c.streams.peerUni = p.InitialMaxStreamDataUni
	if p.InitialMaxStreamsBidi > 0 {
		c.streams.setPeerCredit(classForDirection(c.isClient, true, true), p.InitialMaxStreamsBidi-1)
	}
	if p.InitialMaxStreamsUni > 0 {
		c.streams.setPeerCredit(classForDirection(c.isClient, false, true), p.InitialMaxStreamsUni-1)
	}
	for _, s := range c.streams.all() {
		if s.local {
			if s.bidi {
				s.flow.setMaxSend(p.InitialMaxStreamDataBidiRemote)
			} else {
				s.flow.setMaxSend(p.InitialMaxStreamDataUni)
			}
		}
	}
	if len(p.StatelessResetToken) == 16 {
		copy(c.statelessResetToken[:], p.StatelessResetToken)
	}
	if p.haveMaxAckDelay {
		c.maxAckDelay = p.MaxAckDelay
		c.recovery.maxAckDelay = p.MaxAckDelay
	}
	if p.haveAckDelayExponent {
		c.ackDelayExp = p.AckDelayExponent
	}
	return nil
}

func (c *Conn) recvStream(f streamFrame) *Error {
	s, err := c.getOrCreatePeerStream(f.streamID)
	if err != nil {
		return err
	}
	if err := s.pushRecv(f.data, f.offset, f.fin); err != nil {
		return err
	}
	c.addEvent(newStreamReadableEvent(f.streamID))
	return nil
}

func (c *Conn) recvResetStream(f resetStreamFrame) *Error {
	s, err := c.getOrCreatePeerStream(f.streamID)
	if err != nil {
		return err
	}
	if err := s.applyReset(f.finalSize, f.errorCode); err != nil {
		return err
	}
	c.addEvent(newStreamResetEvent(f.streamID, f.errorCode))
	return nil
}

func (c *Conn) recvStopSending(f stopSendingFrame) *Error {
	s, err := c.getOrCreatePeerStream(f.streamID)
	if err != nil {
		return err
	}
	s.shutdownWrite(appErrorStopping)
	c.addEvent(newStreamStopSendingEvent(f.streamID, f.errorCode))
	return nil
}

func (c *Conn) recvMaxStreamData(f maxStreamDataFrame) *Error {
	s, err := c.getOrCreatePeerStream(f.streamID)
	if err != nil {
		return err
	}
	s.flow.setMaxSend(f.max)
	c.addEvent(newStreamWritableEvent(f.streamID))
	return nil
}

// recvPathChallenge records the challenge data so the send path can
// attach a matching PATH_RESPONSE to the next outgoing packet (§4.8).
func (c *Conn) recvPathChallenge(f pathChallengeFrame) {
	c.pendingPathResponse = &f
}

func (c *Conn) recvPathResponse(f pathResponseFrame) {
	if c.pathVal == nil {
		return
	}
	ok := c.pathVal.verify(f.data)
	if ok {
		c.addEvent(newPathValidatedEvent(c.pathVal.path, true))
		c.pathVal = nil
	}
}

func (c *Conn) recvConnectionClose(f connectionCloseFrame) {
	code := ErrorCode(InternalError)
	if !f.isApp {
		code = errorCodeFromTransport(f.errorCode)
	}
	e := newError(code, f.reason)
	e.wireCode = f.errorCode
	e.isApp = f.isApp
	c.closeErr = e
	c.setDraining()
}
