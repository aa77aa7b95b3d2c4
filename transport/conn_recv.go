package transport

import (
	"crypto/subtle"
	"time"
)

// Recv processes one UDP datagram received on path, which may carry
// several coalesced QUIC packets (§4.1). Errors returned here are
// connection-fatal; per-packet problems (a corrupt or undecryptable
// packet among several coalesced ones) are logged and the remaining
// packets in the datagram are still attempted, per the "unknown but
// skippable" tolerance the wire format is designed around.
func (c *Conn) Recv(data []byte, path netPath, now time.Time) *Error {
	if c.state == stateClosed {
		return newError(DrainingError, "connection closed")
	}
	if c.state == stateClosing || c.state == stateDraining {
		c.setDraining()
		return nil
	}
	b := data
	sawValid := false
	for len(b) > 0 {
		consumed, ok := c.processOnePacket(b, path, now)
		if consumed <= 0 {
			break
		}
		if ok {
			sawValid = true
		}
		b = b[consumed:]
	}
	if sawValid {
		c.lastRecvTime = now
		c.path = path
	}
	return nil
}

// processOnePacket decodes and handles a single packet at the front
// of b, returning how many bytes it consumed (so the caller can move
// to the next coalesced packet) and whether it was successfully
// authenticated and processed.
func (c *Conn) processOnePacket(b []byte, path netPath, now time.Time) (int, bool) {
	if len(b) < 1 {
		return 0, false
	}
	if !isLongHeader(b[0]) {
		return c.processShortHeaderPacket(b, path, now)
	}
	if len(b) >= 5 && b[1] == 0 && b[2] == 0 && b[3] == 0 && b[4] == 0 {
		c.processVersionNegotiation(b)
		return len(b), true
	}
	if decodeLongHeaderType(b[0]) == packetTypeRetry {
		h, derr := decodeRetry(b)
		if derr != nil {
			return len(b), false
		}
		c.processRetry(b, h)
		return len(b), true
	}
	h, hdrLen, derr := decodeLongHeader(b)
	if derr != nil {
		return len(b), false
	}
	spaceID := spaceForPacketType(h.typ)
	total := hdrLen + int(h.length)
	if total > len(b) {
		total = len(b)
	}
	if h.length < uint64(minPacketNumberLenGuess) {
		return total, false
	}
	ok := c.decryptAndProcessLong(b[:total], h, hdrLen, spaceID, now)
	return total, ok
}

const minPacketNumberLenGuess = 1 + aeadOverhead

func spaceForPacketType(t packetType) packetNumberSpaceID {
	switch t {
	case packetTypeInitial:
		return spaceInitial
	case packetTypeHandshake:
		return spaceHandshake
	default:
		return spaceApplication
	}
}

func (c *Conn) decryptAndProcessLong(pkt []byte, h header, hdrLen int, spaceID packetNumberSpaceID, now time.Time) bool {
	space := c.spaces[spaceID]
	if space.discarded {
		return false
	}
	keys, ok := c.levelKeys(spaceID)
	if !ok || keys == nil || keys.Open == nil {
		c.recordDrop("no_key")
		c.logEvent(newLogEventPacketDropped("no_key", len(pkt)))
		return false
	}
	pnOff := hdrLen
	sampleStart := sampleOffset(pnOff)
	if sampleStart+16 > len(pkt) {
		return false
	}
	mask, merr := headerProtectionMask(keys.OpenHP, pkt[sampleStart:sampleStart+16])
	if merr != nil {
		return false
	}
	pnLen := removeHeaderProtection(pkt, 0, pnOff, mask, true)
	truncated := decodePacketNumberTruncated(pkt[pnOff : pnOff+pnLen])
	pn := decodePacketNumber(truncated, pnLen, space.largestRecvPN())
	payloadOff := pnOff + pnLen
	if payloadOff > len(pkt) {
		return false
	}
	nonce := packetIV(keys.OpenIV, pn)
	plaintext, oerr := keys.Open.Open(nil, nonce, pkt[payloadOff:], pkt[:payloadOff])
	if oerr != nil {
		c.recordDrop("decrypt_failure")
		c.logEvent(newLogEventPacketDropped("decrypt_failure", len(pkt)))
		return false
	}
	if space.recvPacketNumbers.contains(pn) {
		return true // duplicate: already-seen, not an error
	}
	if c.isClient && !c.peerAddressed(h.scid) {
		c.dcid = h.scid
	}
	c.recordRecv(len(pkt))
	c.logEvent(newLogEventPacket(now, logEventPacketReceived, loggedPacket{typ: h.typ, hdr: h, packetNumber: pn, payloadLen: len(plaintext)}))
	ackEliciting, ferr := c.recvFrames(spaceID, plaintext, now)
	if ferr != nil {
		c.closeWithError(ferr)
		return false
	}
	space.recvPacket(pn, now, ackEliciting)
	if c.state == stateInitial {
		c.state = stateHandshake
	}
	return true
}

func (c *Conn) peerAddressed(scid ConnectionID) bool {
	return c.dcid.equal(scid)
}

func (c *Conn) processShortHeaderPacket(b []byte, path netPath, now time.Time) (int, bool) {
	space := c.spaces[spaceApplication]
	dcidLen := len(c.scid)
	h, hdrLen, derr := decodeShortHeader(b, dcidLen)
	if derr != nil {
		return len(b), false
	}
	keys, ok := c.levelKeys(spaceApplication)
	if !ok || keys == nil || keys.Open == nil {
		return len(b), false
	}
	pnOff := hdrLen
	sampleStart := sampleOffset(pnOff)
	if sampleStart+16 > len(b) {
		return len(b), false
	}
	pkt := append([]byte(nil), b...)
	mask, merr := headerProtectionMask(keys.OpenHP, pkt[sampleStart:sampleStart+16])
	if merr != nil {
		return len(b), false
	}
	pnLen := removeHeaderProtection(pkt, 0, pnOff, mask, false)
	truncated := decodePacketNumberTruncated(pkt[pnOff : pnOff+pnLen])
	pn := decodePacketNumber(truncated, pnLen, space.largestRecvPN())
	payloadOff := pnOff + pnLen
	nonce := packetIV(keys.OpenIV, pn)
	plaintext, oerr := keys.Open.Open(nil, nonce, pkt[payloadOff:], pkt[:payloadOff])
	if oerr != nil {
		if c.isStatelessReset(b) {
			c.handleStatelessReset()
			return len(b), true
		}
		return len(b), false
	}
	if space.recvPacketNumbers.contains(pn) {
		return len(b), true
	}
	c.recordRecv(len(b))
	c.logEvent(newLogEventPacket(now, logEventPacketReceived, loggedPacket{typ: packetTypeShort, hdr: h, packetNumber: pn, payloadLen: len(plaintext)}))
	ackEliciting, ferr := c.recvFrames(spaceApplication, plaintext, now)
	if ferr != nil {
		c.closeWithError(ferr)
		return len(b), false
	}
	space.recvPacket(pn, now, ackEliciting)
	if c.state == stateHandshake && c.handshaker.IsComplete() {
		c.state = stateEstablished
		c.addEvent(newHandshakeCompleteEvent())
		if c.metrics != nil {
			c.metrics.HandshakesDone.Inc()
		}
	}
	return len(b), true
}

// isStatelessReset compares the trailing bytes of an unauthenticable
// short-header datagram against the token the peer announced in its
// transport parameters (§4.1, §GLOSSARY).
func (c *Conn) isStatelessReset(b []byte) bool {
	if c.peerParams == nil || len(c.peerParams.StatelessResetToken) != 16 || len(b) < 16 {
		return false
	}
	return subtle.ConstantTimeCompare(b[len(b)-16:], c.peerParams.StatelessResetToken) == 1
}

func (c *Conn) handleStatelessReset() {
	c.closeErr = newError(InternalError, "stateless reset")
	c.state = stateDraining
	c.drainDeadline = time.Now().Add(3 * c.recovery.pto())
	c.addEvent(newConnectionCloseEvent(c.closeErr))
}

func (c *Conn) processVersionNegotiation(b []byte) {
	if !c.isClient || c.state != stateInitial {
		return
	}
	h, err := decodeVersionNegotiation(b)
	if err != nil {
		return
	}
	for _, v := range h.supportedVersions {
		if v == c.version {
			return // peer actually supports our version: ignore, per anti-spoofing guidance
		}
	}
	c.closeErr = newError(VersionNegotiationError, "no common version")
	c.state = stateClosed
	c.addEvent(newConnectionCloseEvent(c.closeErr))
}

func (c *Conn) processRetry(b []byte, h header) {
	if !c.isClient || c.state != stateInitial || len(c.retryToken) > 0 {
		return
	}
	if len(b) < retryIntegrityTagLen {
		return
	}
	c.retryToken = append([]byte(nil), h.token...)
	c.dcid = h.scid
	keys, kerr := newInitialKeyPair(h.scid)
	if kerr == nil {
		c.initialKeys = keys
	}
	for _, sp := range c.spaces {
		sp.nextPacketNumber = 0
	}
}

func (c *Conn) closeWithError(err *Error) {
	if c.state >= stateClosing {
		return
	}
	c.closeErr = err
	c.state = stateClosing
	c.wantClose = true
}
