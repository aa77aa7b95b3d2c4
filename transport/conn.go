package transport

import (
	"crypto/rand"
	"time"

	"github.com/rs/xid"
)

// connState is the connection-wide lifecycle state (§3, §4.9):
// initial -> handshake -> established -> closing -> draining -> closed.
type connState uint8

const (
	stateInitial connState = iota
	stateHandshake
	stateEstablished
	stateClosing
	stateDraining
	stateClosed
)

// Conn is one QUIC connection: the handshake, the three packet-number
// spaces, the multiplexed streams and the loss-recovery state that
// together implement §4's component design. A Conn is driven entirely
// by its host calling Recv/Send/CheckTimeout; it never spawns a
// goroutine or blocks (§5).
type Conn struct {
	isClient bool
	version  uint32
	config   Config

	localParams *Parameters
	peerParams  *Parameters

	originalDCID ConnectionID
	scid         ConnectionID
	dcid         ConnectionID
	dcidSeq      uint64

	spaces   [numPacketNumberSpaces]*packetNumberSpace
	recovery *recoveryState

	streams  *streamMap
	connFlow flowControl

	handshaker  Handshaker
	initialKeys *initialKeyPair

	state connState

	path    netPath
	pathVal *pathValidator

	// pendingPathResponse holds a PATH_CHALLENGE awaiting a
	// PATH_RESPONSE on the next outgoing packet.
	pendingPathResponse *pathChallengeFrame

	retryToken          []byte
	statelessResetToken [16]byte

	lastRecvTime time.Time
	idleTimeout  time.Duration

	closeErr      *Error
	closeSent     bool
	wantClose     bool
	drainDeadline time.Time
	maxAckDelay   time.Duration
	ackDelayExp   uint64

	events []Event

	traceID string

	onLogEvent func(LogEvent)
	metrics    *Metrics
}

func randomConnID(n int) ConnectionID {
	b := make([]byte, n)
	rand.Read(b)
	return ConnectionID(b)
}

func newConn(isClient bool, scid, dcid ConnectionID, config Config, handshaker Handshaker) (*Conn, *Error) {
	if config.MaxUDPPayloadSize == 0 {
		config = defaultConfig()
	}
	c := &Conn{
		isClient:    isClient,
		version:     1,
		config:      config,
		localParams: &config.Params,
		scid:        scid,
		dcid:        dcid,
		streams:     newStreamMap(isClient, nil),
		idleTimeout: config.MaxIdleTimeout,
		maxAckDelay: defaultMaxAckDelay,
		ackDelayExp: defaultAckDelayExponent,
		handshaker:  handshaker,
		traceID:     xid.New().String(),
	}
	for i := range c.spaces {
		c.spaces[i] = newPacketNumberSpace(packetNumberSpaceID(i))
	}
	c.recovery = newRecoveryState(c.spaces, c.maxAckDelay)
	c.connFlow.init(config.Params.InitialMaxData, 0)
	c.streams.connFlow = &c.connFlow
	c.streams.streamDataBidiLocal = config.Params.InitialMaxStreamDataBidiLocal
	c.streams.streamDataBidiRemote = config.Params.InitialMaxStreamDataBidiRemote
	c.streams.streamDataUni = config.Params.InitialMaxStreamDataUni
	c.streams.setOwnCredit(classForDirection(isClient, true, false), config.Params.InitialMaxStreamsBidi)
	c.streams.setOwnCredit(classForDirection(isClient, false, false), config.Params.InitialMaxStreamsUni)
	return c, nil
}

// NewClientConn creates a client-role connection. It picks a random
// initial destination connection id and derives the Initial secrets
// from it (§4.6).
func NewClientConn(config Config, handshaker Handshaker) (*Conn, *Error) {
	scid := randomConnID(8)
	dcid := randomConnID(8)
	c, err := newConn(true, scid, dcid, config, handshaker)
	if err != nil {
		return nil, err
	}
	c.originalDCID = dcid
	keys, kerr := newInitialKeyPair(dcid)
	if kerr != nil {
		return nil, newError(InternalError, kerr.Error())
	}
	c.initialKeys = keys
	c.state = stateInitial
	if err := c.startHandshake(); err != nil {
		return nil, err
	}
	return c, nil
}

// startHandshake primes the handshaker for the client role: nothing
// ever arrives to trigger recvCrypto before the client has sent
// anything, so the first flight (ClientHello) has to be pulled out
// explicitly here instead.
func (c *Conn) startHandshake() *Error {
	outputs, err := c.handshaker.Advance(spaceInitial, nil)
	if err != nil {
		return err
	}
	for _, out := range outputs {
		if err := c.spaces[out.Level].crypto.queueSend(out.Data); err != nil {
			return err
		}
	}
	return nil
}

// NewServerConn creates a server-role connection from a client's
// first Initial packet header.
func NewServerConn(config Config, handshaker Handshaker, clientDCID, clientSCID ConnectionID) (*Conn, *Error) {
	scid := randomConnID(8)
	c, err := newConn(false, scid, clientSCID, config, handshaker)
	if err != nil {
		return nil, err
	}
	c.originalDCID = clientDCID
	keys, kerr := newInitialKeyPair(clientDCID)
	if kerr != nil {
		return nil, newError(InternalError, kerr.Error())
	}
	c.initialKeys = keys
	c.state = stateInitial
	return c, nil
}

// IsEstablished reports whether the handshake has completed.
func (c *Conn) IsEstablished() bool { return c.state >= stateEstablished && c.state < stateClosing }

// IsClosed reports whether the connection has fully drained and no
// further Send/Recv calls are meaningful.
func (c *Conn) IsClosed() bool { return c.state == stateClosed }

// TraceID returns this connection's externally-visible trace
// identifier, used to correlate log lines and metrics across a
// connection's lifetime. A random one is assigned at construction;
// SetTraceID overrides it.
func (c *Conn) TraceID() string { return c.traceID }

// SetTraceID assigns the identifier TraceID returns.
func (c *Conn) SetTraceID(id string) { c.traceID = id }

// SCID returns this endpoint's own source connection id, the value a
// peer will address future packets to.
func (c *Conn) SCID() ConnectionID { return c.scid }

// OriginalDCID returns the destination connection id carried on the
// very first Initial packet of the handshake, used to route any
// further datagrams that still target it before the peer switches to
// addressing this endpoint's SCID.
func (c *Conn) OriginalDCID() ConnectionID { return c.originalDCID }

// SetLogger installs the callback invoked with wire-level events as
// the connection processes packets (§4.9).
func (c *Conn) SetLogger(f func(LogEvent)) { c.onLogEvent = f }

// Events drains and returns the notifications queued since the last
// call (§4.9).
func (c *Conn) Events() []Event {
	ev := c.events
	c.events = nil
	return ev
}

func (c *Conn) addEvent(e Event) {
	c.events = append(c.events, e)
}

// Stream returns the stream with the given id, if known.
func (c *Conn) Stream(id uint64) (*Stream, bool) {
	return c.streams.get(id)
}

// OpenStream creates a new locally-initiated stream.
func (c *Conn) OpenStream(bidi bool) (*Stream, *Error) {
	s, err := c.streams.create(bidi)
	if err == nil && c.metrics != nil {
		c.metrics.ActiveStreams.Inc()
	}
	return s, err
}

// getOrCreatePeerStream wraps streamMap.getOrCreatePeer so newly
// implicitly-opened remote streams are reflected in ActiveStreams too.
func (c *Conn) getOrCreatePeerStream(id uint64) (*Stream, *Error) {
	before := len(c.streams.streams)
	s, err := c.streams.getOrCreatePeer(id)
	if err == nil && c.metrics != nil && len(c.streams.streams) > before {
		c.metrics.ActiveStreams.Add(float64(len(c.streams.streams) - before))
	}
	return s, err
}

func (c *Conn) logEvent(e LogEvent) {
	if c.onLogEvent != nil {
		c.onLogEvent(e)
	}
}

func (c *Conn) recordRecv(size int) {
	if c.metrics == nil {
		return
	}
	c.metrics.PacketsReceived.Inc()
	c.metrics.BytesReceived.Add(float64(size))
}

func (c *Conn) recordSent(size int) {
	if c.metrics == nil {
		return
	}
	c.metrics.PacketsSent.Inc()
	c.metrics.BytesSent.Add(float64(size))
}

func (c *Conn) recordDrop(reason string) {
	if c.metrics == nil {
		return
	}
	c.metrics.PacketsDropped.WithLabelValues(reason).Inc()
	if reason == "lost" {
		c.metrics.PacketsLost.Inc()
	}
}

// initialLevelKeys adapts the directional initialKeyPair into the
// unified LevelKeys shape the rest of the packet-protection code
// uses.
func (c *Conn) initialLevelKeys() *LevelKeys {
	var mine, theirs *initialKeys
	if c.isClient {
		mine, theirs = c.initialKeys.client, c.initialKeys.server
	} else {
		mine, theirs = c.initialKeys.server, c.initialKeys.client
	}
	lk := &LevelKeys{}
	if mine != nil {
		lk.Seal, lk.SealIV, lk.SealHP = mine.aead, mine.iv, mine.hp
	}
	if theirs != nil {
		lk.Open, lk.OpenIV, lk.OpenHP = theirs.aead, theirs.iv, theirs.hp
	}
	return lk
}

func (c *Conn) levelKeys(space packetNumberSpaceID) (*LevelKeys, bool) {
	if space == spaceInitial {
		return c.initialLevelKeys(), true
	}
	return c.handshaker.Keys(space)
}

// Close begins closing the connection: a CONNECTION_CLOSE or
// APPLICATION_CLOSE frame is queued and will be attached to the next
// Send call, and the connection transitions to the closing state
// (§3, §4.9).
func (c *Conn) Close(errorCode uint64, reason string, isApp bool) *Error {
	if c.state >= stateClosing {
		return nil
	}
	code := ErrorCode(InternalError)
	if !isApp {
		code = errorCodeFromTransport(errorCode)
	}
	e := newError(code, reason)
	e.wireCode = errorCode
	e.isApp = isApp
	c.closeErr = e
	c.state = stateClosing
	c.wantClose = true
	c.closeSent = false
	return nil
}

func (c *Conn) setDraining() {
	if c.state == stateDraining || c.state == stateClosed {
		return
	}
	c.state = stateDraining
	c.drainDeadline = time.Now().Add(3 * c.recovery.pto())
	c.addEvent(newConnectionCloseEvent(c.closeErr))
}

// Timeout returns the instant CheckTimeout next needs calling,
// whichever of the idle timeout, loss-detection timer, or draining
// deadline comes first (§4.9).
func (c *Conn) Timeout() time.Time {
	deadline := c.lastRecvTime.Add(c.idleTimeout)
	if c.state == stateDraining && c.drainDeadline.Before(deadline) {
		deadline = c.drainDeadline
	}
	if t, ok := c.recovery.lossDetectionTimeout(); ok && t.Before(deadline) {
		deadline = t
	}
	return deadline
}

// CheckTimeout is called by the host once Timeout() has passed,
// driving idle-timeout closure, draining completion, and loss
// detection/probe timeout expiry.
func (c *Conn) CheckTimeout(now time.Time) *Error {
	if c.state == stateDraining {
		if !now.Before(c.drainDeadline) {
			c.state = stateClosed
		}
		return nil
	}
	if !c.lastRecvTime.IsZero() && now.Sub(c.lastRecvTime) >= c.idleTimeout {
		c.closeErr = newError(InternalError, "idle timeout")
		c.state = stateClosed
		c.addEvent(newConnectionCloseEvent(c.closeErr))
		return nil
	}
	if t, ok := c.recovery.lossDetectionTimeout(); ok && !now.Before(t) {
		c.onLossDetectionTimeout(now)
	}
	return nil
}

func (c *Conn) onLossDetectionTimeout(now time.Time) {
	anyLoss := false
	for spaceID, space := range c.spaces {
		if space.discarded || !space.haveLargestAcked {
			continue
		}
		lost, remaining, _ := detectLostPackets(space, space.largestAckedByPeer, now, c.recovery.smoothedRTT)
		if len(lost) > 0 {
			anyLoss = true
			for _, p := range lost {
				c.recovery.onPacketLost(p)
				c.requeueLostFrames(packetNumberSpaceID(spaceID), p)
				c.recordDrop("lost")
				c.logEvent(newLogEventPacketDropped("lost", p.size))
			}
			c.recovery.onCongestionEvent(lost[len(lost)-1].sentTime, now)
		}
		space.sent = remaining
	}
	if anyLoss {
		c.recovery.ptoCount = 0
	} else {
		c.recovery.ptoCount++
	}
}

// collectStreamControlFrames sweeps every class through
// pendingMaxStreamID/needIDBlocked looking for MAX_STREAM_ID and
// STREAM_ID_BLOCKED frames the stream map wants sent, used by the send path
// (conn_send.go) once per Application-space packet build.
func (c *Conn) collectStreamControlFrames() []frame {
	var out []frame
	for cl := streamClass(0); cl < 4; cl++ {
		if id, ok := c.streams.pendingMaxStreamID(cl); ok {
			out = append(out, newMaxStreamIDFrame(id))
			c.streams.commitMaxStreamID(cl)
		}
		if id, ok := c.streams.needIDBlocked(cl); ok {
			out = append(out, newStreamIDBlockedFrame(id))
		}
	}
	return out
}
