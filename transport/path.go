package transport

import (
	"time"
)

// pathValidatorFlag mirrors the C library's bitset of path-validation
// behaviors (§4.8), kept as independent bits rather than a struct of
// bools to match how they are combined when a validator is created.
type pathValidatorFlag uint8

const (
	pvFlagNone pathValidatorFlag = 0
	// pvFlagBlocking means application data must not be sent on this
	// path until validation completes.
	pvFlagBlocking pathValidatorFlag = 1 << 0
	// pvFlagDontCare means the outcome is advisory only: used for
	// unsolicited PATH_CHALLENGE probes the peer is allowed to ignore.
	pvFlagDontCare pathValidatorFlag = 1 << 1
	// pvFlagRetireDCIDOnFinish retires the connection id used on the
	// old path once validation of the new one succeeds.
	pvFlagRetireDCIDOnFinish pathValidatorFlag = 1 << 2
)

const pvMaxEntries = 4
const pvEntryTimeout = 3 * time.Second

// netPath names the local/remote address pair a packet arrived on or
// will be sent on; path validation exists to confirm the remote half
// of a pair actually controls the address it claims (§4.8).
type netPath struct {
	local  string
	remote string
}

func (p netPath) equal(o netPath) bool {
	return p.local == o.local && p.remote == o.remote
}

// NewPath builds the local/remote address pair Recv and Send use to
// identify which network path a datagram belongs to. A host drives
// this from the addresses its socket reports.
func NewPath(local, remote string) netPath {
	return netPath{local: local, remote: remote}
}

// pathValidator tracks one in-progress PATH_CHALLENGE/PATH_RESPONSE
// exchange for a candidate path, grounded on ngtcp2_pv's ring buffer
// of outstanding challenge tokens plus expiry handling.
type pathValidator struct {
	path      netPath
	dcid      ConnectionID
	dcidSeq   uint64
	entries   pvRingBuf
	timeout   time.Duration
	startedAt time.Time
	lossCount int
	flags     pathValidatorFlag

	finished  bool
	succeeded bool
}

func newPathValidator(path netPath, dcid ConnectionID, dcidSeq uint64, flags pathValidatorFlag, now time.Time) *pathValidator {
	return &pathValidator{
		path:      path,
		dcid:      dcid,
		dcidSeq:   dcidSeq,
		entries:   newPVRingBuf(pvMaxEntries),
		timeout:   pvEntryTimeout,
		startedAt: now,
		flags:     flags,
	}
}

// addEntry records token as an outstanding PATH_CHALLENGE, returning
// whether the ring buffer had room; a full buffer counts as a loss.
func (pv *pathValidator) addEntry(token [8]byte, now time.Time) bool {
	if pv.entries.full() {
		pv.lossCount++
	}
	return pv.entries.push(pvEntry{data: token, expiry: now.Add(pv.timeout)})
}

// verify checks an incoming PATH_RESPONSE token against outstanding
// challenges, using the ring buffer's constant-time lookup.
func (pv *pathValidator) verify(token [8]byte) bool {
	if _, ok := pv.entries.find(token); ok {
		pv.finished = true
		pv.succeeded = true
		return true
	}
	return false
}

// expireEntries drops challenges past their deadline, freeing their
// slots; it does not itself decide that validation has timed out
// (see timedOut).
func (pv *pathValidator) expireEntries(now time.Time) {
	pv.entries.removeExpired(now)
}

// timedOut reports whether validation should be abandoned: the ring
// buffer has cycled through pvMaxEntries challenges with no response.
func (pv *pathValidator) timedOut(now time.Time) bool {
	if pv.finished {
		return false
	}
	return pv.lossCount >= pvMaxEntries
}

func (pv *pathValidator) nextExpiry() (time.Time, bool) {
	return pv.entries.nextExpiry()
}

func (pv *pathValidator) isBlocking() bool {
	return pv.flags&pvFlagBlocking != 0
}

func (pv *pathValidator) isDontCare() bool {
	return pv.flags&pvFlagDontCare != 0
}

func (pv *pathValidator) retireDCIDOnFinish() bool {
	return pv.flags&pvFlagRetireDCIDOnFinish != 0
}
