package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
)

// LevelKeys bundles the packet- and header-protection material for
// one direction at one encryption level, as produced by a Handshaker
// once that level's keys become available (§4.6).
type LevelKeys struct {
	Open   cipher.AEAD
	OpenIV []byte
	OpenHP []byte

	Seal   cipher.AEAD
	SealIV []byte
	SealHP []byte
}

// HandshakeOutput is a chunk of handshake bytes a Handshaker produced
// that must be sent as a CRYPTO frame at Level.
type HandshakeOutput struct {
	Level packetNumberSpaceID
	Data  []byte
}

// Handshaker is the TLS collaborator a Conn drives to completion. It
// owns the actual key exchange; Conn is responsible only for
// transporting CRYPTO frame bytes to and from it and for installing
// whatever keys it reports as ready (§4.6, §6). Implementations wrap
// a real TLS 1.3 stack configured for QUIC's exported-secret mode;
// tests use fakeHandshaker.
type Handshaker interface {
	// Advance feeds newly-received, already-reassembled CRYPTO bytes
	// arriving at level into the handshake state machine and returns
	// any bytes produced in response, each tagged with the level it
	// must be sent at (a level change happens exactly at the
	// Handshake/Application key install boundary).
	Advance(level packetNumberSpaceID, data []byte) ([]HandshakeOutput, *Error)

	// IsComplete reports whether the handshake has finished: for a
	// client, once it has processed the server's Finished; for a
	// server, once it has verified the client's Finished (if any).
	IsComplete() bool

	// LocalParameters/PeerParameters expose the transport parameters
	// each side advertised, once known.
	LocalParameters() *Parameters
	PeerParameters() *Parameters

	// Keys returns the installed keys for level, if the handshake has
	// reached that level yet.
	Keys(level packetNumberSpaceID) (*LevelKeys, bool)
}

// fakeHandshaker is a minimal deterministic stand-in for a real TLS
// 1.3 stack, used by tests that exercise connection-level behavior
// without depending on an actual certificate chain. It exchanges a
// fixed two-message handshake and installs deterministic AES-GCM keys,
// the same for both directions, at the Handshake and Application
// levels; Initial keys come from the Conn's own derivation.
type fakeHandshaker struct {
	isClient   bool
	local      *Parameters
	peer       *Parameters
	sentHello  bool
	sentFin    bool
	recvHello  bool
	recvFin    bool
	keys       [numPacketNumberSpaces]*LevelKeys
}

func newFakeHandshaker(isClient bool, local *Parameters) *fakeHandshaker {
	h := &fakeHandshaker{isClient: isClient, local: local}
	for i := range h.keys {
		if i == int(spaceInitial) {
			continue
		}
		h.keys[i] = fakeLevelKeys(i)
	}
	return h
}

// fakeLevelKeys derives a deterministic (test-only) AES-GCM key pair
// for a non-Initial level, standing in for the keys a real TLS stack
// would export once it reaches that level. Both directions share one
// key here since the fake handshake never negotiates distinct
// client/server traffic secrets.
func fakeLevelKeys(level int) *LevelKeys {
	h := sha256.Sum256([]byte{byte(level), 'f', 'a', 'k', 'e'})
	block, err := aes.NewCipher(h[:16])
	if err != nil {
		return &LevelKeys{}
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return &LevelKeys{}
	}
	iv := h[16:28]
	hp := append([]byte(nil), h[:16]...)
	return &LevelKeys{Open: aead, OpenIV: iv, OpenHP: hp, Seal: aead, SealIV: iv, SealHP: hp}
}

func (h *fakeHandshaker) Advance(level packetNumberSpaceID, data []byte) ([]HandshakeOutput, *Error) {
	var out []HandshakeOutput
	if len(data) > 0 {
		if h.peer == nil {
			p, err := UnmarshalParameters(data)
			if err != nil {
				return nil, err
			}
			h.peer = p
			h.recvHello = true
		} else {
			h.recvFin = true
		}
	}
	if h.isClient {
		if !h.sentHello {
			h.sentHello = true
			out = append(out, HandshakeOutput{Level: spaceInitial, Data: h.local.Marshal()})
		}
		if h.recvHello && !h.sentFin {
			h.sentFin = true
			out = append(out, HandshakeOutput{Level: spaceHandshake, Data: []byte{0x14}})
		}
	} else {
		if h.recvHello && !h.sentHello {
			h.sentHello = true
			out = append(out, HandshakeOutput{Level: spaceInitial, Data: h.local.Marshal()})
			out = append(out, HandshakeOutput{Level: spaceHandshake, Data: []byte{0x14}})
		}
	}
	return out, nil
}

func (h *fakeHandshaker) IsComplete() bool {
	if h.isClient {
		return h.recvFin || h.sentFin && h.recvHello
	}
	return h.recvFin
}

func (h *fakeHandshaker) LocalParameters() *Parameters { return h.local }
func (h *fakeHandshaker) PeerParameters() *Parameters  { return h.peer }

func (h *fakeHandshaker) Keys(level packetNumberSpaceID) (*LevelKeys, bool) {
	if level == spaceInitial {
		return h.keys[level], true
	}
	if h.recvHello {
		return h.keys[level], true
	}
	return nil, false
}
