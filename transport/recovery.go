package transport

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	initialRTT           = 100 * time.Millisecond
	packetThreshold      = 3
	timeThresholdNum     = 9
	timeThresholdDen     = 8
	granularity          = time.Millisecond
	initialWindowPackets = 10
	minWindowPackets     = 2
	maxDatagramSize      = 1452
	lossReductionFactor  = 0.5
	probeCountLimit      = 2
)

// recoveryState is the connection-wide loss detection, congestion
// control and RTT estimator, shared across the three packet-number
// spaces exactly as ngtcp2/quic-go keep one recovery state per
// connection rather than per space (§4.5).
type recoveryState struct {
	spaces [numPacketNumberSpaces]*packetNumberSpace

	minRTT      time.Duration
	smoothedRTT time.Duration
	rttVar      time.Duration
	haveRTT     bool
	latestRTT   time.Duration

	maxAckDelay time.Duration

	congestionWindow    uint64
	bytesInFlight       uint64
	slowStartThreshold  uint64
	congestionRecoveryStart time.Time
	inRecovery          bool

	ptoCount int
	lossTime [numPacketNumberSpaces]time.Time
	lastSentAckEliciting [numPacketNumberSpaces]time.Time

	pacer *rate.Limiter
}

func newRecoveryState(spaces [numPacketNumberSpaces]*packetNumberSpace, maxAckDelay time.Duration) *recoveryState {
	r := &recoveryState{
		spaces:             spaces,
		smoothedRTT:        initialRTT,
		rttVar:             initialRTT / 2,
		minRTT:             initialRTT,
		maxAckDelay:        maxAckDelay,
		congestionWindow:   initialWindowPackets * maxDatagramSize,
		slowStartThreshold: ^uint64(0),
	}
	r.updatePacer()
	return r
}

// updateRTT folds a freshly-measured sample into the RFC6298-derived
// estimator (§4.5).
func (r *recoveryState) updateRTT(sample time.Duration, ackDelay time.Duration) {
	if sample <= 0 {
		return
	}
	if !r.haveRTT || sample < r.minRTT {
		r.minRTT = sample
	}
	adjusted := sample
	if ackDelay > r.maxAckDelay {
		ackDelay = r.maxAckDelay
	}
	if sample-r.minRTT >= ackDelay {
		adjusted = sample - ackDelay
	}
	r.latestRTT = sample
	if !r.haveRTT {
		r.smoothedRTT = adjusted
		r.rttVar = adjusted / 2
		r.haveRTT = true
		r.updatePacer()
		return
	}
	diff := r.smoothedRTT - adjusted
	if diff < 0 {
		diff = -diff
	}
	r.rttVar = (3*r.rttVar + diff) / 4
	r.smoothedRTT = (7*r.smoothedRTT + adjusted) / 8
	r.updatePacer()
}

// pto returns the current probe timeout duration (§4.5): smoothed_rtt
// + max(4*rttvar, granularity) + max_ack_delay, scaled by 2^ptoCount.
func (r *recoveryState) pto() time.Duration {
	rttVarTerm := 4 * r.rttVar
	if rttVarTerm < granularity {
		rttVarTerm = granularity
	}
	base := r.smoothedRTT + rttVarTerm + r.maxAckDelay
	for i := 0; i < r.ptoCount; i++ {
		base *= 2
	}
	return base
}

func (r *recoveryState) lossDetectionTimeout() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, t := range r.lossTime {
		if t.IsZero() {
			continue
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	return earliest, found
}

func (r *recoveryState) onPacketSent(id packetNumberSpaceID, p *sentPacket) {
	if p.ackEliciting {
		r.lastSentAckEliciting[id] = p.sentTime
		if p.inFlight {
			r.bytesInFlight += uint64(p.size)
		}
	}
}

// inCongestionRecovery reports whether sentTime falls within the
// current recovery period, exempting packets from cwnd-reduction
// re-triggering (New Reno, §4.5).
func (r *recoveryState) inCongestionRecovery(sentTime time.Time) bool {
	return r.inRecovery && !sentTime.After(r.congestionRecoveryStart)
}

func (r *recoveryState) onCongestionEvent(sentTime time.Time, now time.Time) {
	if r.inCongestionRecovery(sentTime) {
		return
	}
	r.inRecovery = true
	r.congestionRecoveryStart = now
	r.congestionWindow = uint64(float64(r.congestionWindow) * lossReductionFactor)
	if r.congestionWindow < minWindowPackets*maxDatagramSize {
		r.congestionWindow = minWindowPackets * maxDatagramSize
	}
	r.slowStartThreshold = r.congestionWindow
	r.updatePacer()
}

func (r *recoveryState) onPacketAcked(p *sentPacket, now time.Time) {
	if !p.ackEliciting || !p.inFlight {
		return
	}
	if r.bytesInFlight >= uint64(p.size) {
		r.bytesInFlight -= uint64(p.size)
	} else {
		r.bytesInFlight = 0
	}
	if r.inCongestionRecovery(p.sentTime) {
		return
	}
	if r.congestionWindow < r.slowStartThreshold {
		r.congestionWindow += uint64(p.size)
	} else {
		r.congestionWindow += uint64(p.size) * maxDatagramSize / r.congestionWindow
	}
	r.updatePacer()
}

func (r *recoveryState) onPacketLost(p *sentPacket) {
	if p.inFlight {
		if r.bytesInFlight >= uint64(p.size) {
			r.bytesInFlight -= uint64(p.size)
		} else {
			r.bytesInFlight = 0
		}
	}
}

func (r *recoveryState) canSend(size int) bool {
	return r.bytesInFlight+uint64(size) <= r.congestionWindow
}

// updatePacer retunes the token-bucket pacer (golang.org/x/time/rate)
// to roughly congestion_window / smoothed_rtt bytes/sec, spreading a
// window's worth of sends across an RTT instead of bursting it.
func (r *recoveryState) updatePacer() {
	rtt := r.smoothedRTT
	if rtt <= 0 {
		rtt = initialRTT
	}
	ratePerSec := float64(r.congestionWindow) / rtt.Seconds()
	if ratePerSec < float64(maxDatagramSize) {
		ratePerSec = float64(maxDatagramSize)
	}
	burst := int(r.congestionWindow)
	if burst < maxDatagramSize {
		burst = maxDatagramSize
	}
	if r.pacer == nil {
		r.pacer = rate.NewLimiter(rate.Limit(ratePerSec), burst)
		return
	}
	r.pacer.SetLimit(rate.Limit(ratePerSec))
	r.pacer.SetBurst(burst)
}

// pacingAllows reports whether size bytes may be sent right now
// without violating the pacer, without blocking: the connection is
// single-threaded and cooperative (§5), so pacing can only refuse,
// never wait.
func (r *recoveryState) pacingAllows(size int) bool {
	return r.pacer.AllowN(time.Now(), size)
}

// detectLostPackets walks one space's outstanding packets and returns
// those that should be declared lost, per the packet- and
// time-threshold rules (§4.5). Also returns the remaining (not lost,
// not acked) packets so the caller can replace the space's sent list.
func detectLostPackets(space *packetNumberSpace, largestAcked uint64, now time.Time, rtt time.Duration) (lost []*sentPacket, remaining []*sentPacket, lossTime time.Time) {
	lossDelay := time.Duration(float64(rtt) * timeThresholdNum / timeThresholdDen)
	if lossDelay < granularity {
		lossDelay = granularity
	}
	for _, p := range space.sent {
		if p.packetNumber > largestAcked {
			remaining = append(remaining, p)
			continue
		}
		lostByCount := largestAcked >= p.packetNumber+packetThreshold
		lostByTime := !now.Before(p.sentTime.Add(lossDelay))
		if lostByCount || lostByTime {
			lost = append(lost, p)
			continue
		}
		candidate := p.sentTime.Add(lossDelay)
		if lossTime.IsZero() || candidate.Before(lossTime) {
			lossTime = candidate
		}
		remaining = append(remaining, p)
	}
	return lost, remaining, lossTime
}
