package transport

import "time"

// maxFrameOverhead bounds the per-frame header bytes reserved when
// deciding whether another frame still fits a packet being built.
const maxFrameOverhead = 32

// Send fills b with the next datagram this connection wants to emit,
// trying each packet-number space in turn (Initial, Handshake, then
// Application, coalesced into one UDP datagram per §4.1), and returns
// how many bytes were written. A zero-length, nil-error result means
// there is nothing to send right now.
func (c *Conn) Send(b []byte, now time.Time) (int, *Error) {
	if c.state == stateClosed {
		return 0, nil
	}
	if c.wantClose {
		return c.buildClosePacket(b, now)
	}
	if c.state == stateDraining {
		return 0, nil
	}

	total := 0
	for _, spaceID := range []packetNumberSpaceID{spaceInitial, spaceHandshake, spaceApplication} {
		space := c.spaces[spaceID]
		if space.discarded {
			continue
		}
		if total >= len(b)-32 {
			break
		}
		n := c.buildPacket(spaceID, b[total:], now)
		total += n
	}
	return total, nil
}

// buildPacket assembles a single packet for spaceID at the front of
// b, returning the number of bytes written (0 if nothing to send).
func (c *Conn) buildPacket(spaceID packetNumberSpaceID, b []byte, now time.Time) int {
	space := c.spaces[spaceID]
	keys, ok := c.levelKeys(spaceID)
	if !ok || keys == nil || keys.Seal == nil {
		return 0
	}

	var frames []frame
	var frameLog []frameLogEntry

	if space.needAck() {
		ack := space.buildAck(encodeAckDelay(c.ackDelayExp))
		frames = append(frames, ack)
	}

	if data, offset := space.crypto.popSend(900); len(data) > 0 {
		cf := newCryptoFrame(data, offset)
		frames = append(frames, cf)
		frameLog = append(frameLog, frameLogEntry{ackEliciting: true, isCrypto: true, offset: offset, length: len(data), data: data})
	}

	if spaceID == spaceApplication {
		frames, frameLog = c.appendApplicationFrames(frames, frameLog)
	}

	if len(frames) == 0 {
		return 0
	}

	payloadLen := 0
	for _, f := range frames {
		payloadLen += f.encodedLen()
	}
	if payloadLen < 4 {
		pad := newPaddingFrame(4 - payloadLen)
		frames = append([]frame{pad}, frames...)
		payloadLen += pad.encodedLen()
	}

	ackEliciting := false
	for _, f := range frames {
		if _, isAck := f.(ackFrame); !isAck {
			if _, isPad := f.(paddingFrame); !isPad {
				ackEliciting = true
			}
		}
	}

	size := payloadLen + aeadOverhead
	if ackEliciting && !c.recovery.canSend(size) {
		return 0
	}
	if ackEliciting && !c.recovery.pacingAllows(size) {
		return 0
	}

	pn := space.allocatePacketNumber()
	largestAcked := uint64(0)
	if space.haveLastAckSent {
		largestAcked = space.lastAckSent
	}
	pnLen := packetNumberLen(pn, largestAcked)

	long := spaceID != spaceApplication
	var hdrLen int
	if long {
		h := header{typ: longHeaderTypeFor(spaceID), version: c.version, dcid: c.dcid, scid: c.scid, length: uint64(pnLen + payloadLen + aeadOverhead)}
		hdrLen = encodeLongHeader(b, h, pnLen)
	} else {
		hdrLen = encodeShortHeader(b, c.dcid, pnLen)
	}
	pnOff := hdrLen
	encodePacketNumber(b[pnOff:], pn, pnLen)
	payloadOff := pnOff + pnLen

	payload := make([]byte, 0, payloadLen)
	for _, f := range frames {
		fb := make([]byte, f.encodedLen())
		f.encode(fb)
		payload = append(payload, fb...)
	}

	nonce := packetIV(keys.SealIV, pn)
	sealed := keys.Seal.Seal(b[payloadOff:payloadOff], nonce, payload, b[:payloadOff])
	total := payloadOff + len(sealed)

	sampleStart := sampleOffset(pnOff)
	if sampleStart+16 <= total {
		mask, merr := headerProtectionMask(keys.SealHP, b[sampleStart:sampleStart+16])
		if merr == nil {
			applyHeaderProtection(b, 0, pnOff, pnLen, mask, long)
		}
	}

	sp := &sentPacket{packetNumber: pn, sentTime: now, size: total, ackEliciting: ackEliciting, inFlight: ackEliciting, frames: frameLog}
	space.addSent(sp)
	c.recovery.onPacketSent(spaceID, sp)
	c.recordSent(total)
	c.logEvent(newLogEventPacket(now, logEventPacketSent, loggedPacket{typ: packetTypeFor(spaceID), packetNumber: pn, payloadLen: payloadLen}))
	return total
}

func longHeaderTypeFor(spaceID packetNumberSpaceID) packetType {
	if spaceID == spaceInitial {
		return packetTypeInitial
	}
	return packetTypeHandshake
}

func packetTypeFor(spaceID packetNumberSpaceID) packetType {
	switch spaceID {
	case spaceInitial:
		return packetTypeInitial
	case spaceHandshake:
		return packetTypeHandshake
	default:
		return packetTypeShort
	}
}

func encodeAckDelay(exp uint64) uint64 {
	return 0 // no local clock skew to report when acking synchronously
}

// appendApplicationFrames adds everything that only makes sense once
// 1-RTT keys are installed: connection- and stream-level flow
// control updates, BLOCKED frames, stream data, and a queued
// PATH_RESPONSE.
func (c *Conn) appendApplicationFrames(frames []frame, frameLog []frameLogEntry) ([]frame, []frameLogEntry) {
	if c.pendingPathResponse != nil {
		frames = append(frames, pathResponseFrame{data: c.pendingPathResponse.data})
		c.pendingPathResponse = nil
	}

	if c.connFlow.shouldUpdateMaxRecv() {
		frames = append(frames, newMaxDataFrame(c.connFlow.maxRecvNext))
		c.connFlow.commitMaxRecv()
	}
	if offset, blocked := c.connFlow.needBlocked(); blocked {
		frames = append(frames, newBlockedFrame(offset))
	}

	frames = append(frames, c.collectStreamControlFrames()...)

	budget := 900
	for _, s := range c.streams.all() {
		if budget <= 0 {
			break
		}
		if s.flow.shouldUpdateMaxRecv() {
			frames = append(frames, newMaxStreamDataFrame(s.id, s.flow.maxRecvNext))
			s.flow.commitMaxRecv()
		}
		if offset, blocked := s.flow.needBlocked(); blocked {
			frames = append(frames, newStreamBlockedFrame(s.id, offset))
		}
		if s.wantReset {
			frames = append(frames, newResetStreamFrame(s.id, s.resetErrorCode, s.finalSendOffset()))
			s.wantReset = false
		}
		if s.wantStopSending {
			frames = append(frames, newStopSendingFrame(s.id, s.stopErrorCode))
			s.wantStopSending = false
		}
		if !s.local && s.sendState >= sendStateResetSent {
			continue
		}
		avail := s.flow.canSend()
		connAvail := c.connFlow.canSend()
		if avail > connAvail {
			avail = connAvail
		}
		if avail == 0 {
			continue
		}
		max := budget
		if avail < uint64(max) {
			max = int(avail)
		}
		data, offset, fin := s.popSend(max)
		if len(data) == 0 && !fin {
			continue
		}
		sf := newStreamFrame(s.id, data, offset, fin)
		frames = append(frames, sf)
		frameLog = append(frameLog, frameLogEntry{ackEliciting: true, hasStream: true, streamID: s.id, offset: offset, length: len(data), fin: fin, data: data})
		delta := s.flow.addSendUpTo(offset + uint64(len(data)))
		c.connFlow.addSend(int(delta))
		budget -= len(data) + maxFrameOverhead
		if s.sendState == sendStateSend && fin {
			s.sendState = sendStateDataSent
		}
	}
	return frames, frameLog
}

// buildClosePacket writes a single CONNECTION_CLOSE/APPLICATION_CLOSE
// packet at the highest encryption level currently available and
// moves the connection to the draining state once it is sent (§4.9).
// The packet is sent once: a later call finds closeSent set and marks
// the connection closed, and Close on a connection that is already
// closing does nothing.
func (c *Conn) buildClosePacket(b []byte, now time.Time) (int, *Error) {
	if c.closeSent {
		c.state = stateClosed
		return 0, nil
	}
	spaceID := spaceApplication
	for i := int(spaceApplication); i >= int(spaceInitial); i-- {
		if !c.spaces[i].discarded {
			if keys, ok := c.levelKeys(packetNumberSpaceID(i)); ok && keys != nil && keys.Seal != nil {
				spaceID = packetNumberSpaceID(i)
				break
			}
		}
	}
	keys, ok := c.levelKeys(spaceID)
	if !ok || keys == nil || keys.Seal == nil {
		c.state = stateClosed
		return 0, nil
	}
	space := c.spaces[spaceID]
	cf := newConnectionCloseFrame(c.closeErr.wireCode, 0, c.closeErr.Msg, c.closeErr.isApp)
	payloadLen := cf.encodedLen()

	pn := space.allocatePacketNumber()
	pnLen := packetNumberLen(pn, 0)
	long := spaceID != spaceApplication
	var hdrLen int
	if long {
		h := header{typ: longHeaderTypeFor(spaceID), version: c.version, dcid: c.dcid, scid: c.scid, length: uint64(pnLen + payloadLen + aeadOverhead)}
		hdrLen = encodeLongHeader(b, h, pnLen)
	} else {
		hdrLen = encodeShortHeader(b, c.dcid, pnLen)
	}
	pnOff := hdrLen
	encodePacketNumber(b[pnOff:], pn, pnLen)
	payloadOff := pnOff + pnLen

	payload := make([]byte, payloadLen)
	cf.encode(payload)
	nonce := packetIV(keys.SealIV, pn)
	sealed := keys.Seal.Seal(b[payloadOff:payloadOff], nonce, payload, b[:payloadOff])
	total := payloadOff + len(sealed)

	sampleStart := sampleOffset(pnOff)
	if sampleStart+16 <= total {
		mask, merr := headerProtectionMask(keys.SealHP, b[sampleStart:sampleStart+16])
		if merr == nil {
			applyHeaderProtection(b, 0, pnOff, pnLen, mask, long)
		}
	}

	c.closeSent = true
	c.wantClose = false
	c.setDraining()
	c.recordSent(total)
	c.logEvent(newLogEventPacket(now, logEventPacketSent, loggedPacket{typ: packetTypeFor(spaceID), packetNumber: pn, payloadLen: payloadLen}))
	return total, nil
}
