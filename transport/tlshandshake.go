package transport

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/tls"
)

// tlsHandshaker drives the real handshake through crypto/tls's QUIC
// support (tls.QUICConn, added in Go 1.21 specifically for transports
// like this one), translating its secret/event model into the
// CRYPTO-frame/LevelKeys model the rest of this package speaks.
type tlsHandshaker struct {
	conn  *tls.QUICConn
	local *Parameters
	peer  *Parameters
	keys  [numPacketNumberSpaces]*LevelKeys
	done  bool
}

// NewTLSHandshaker wraps cfg for one connection, driving the
// handshake through crypto/tls's QUIC support. isClient selects
// tls.QUICClient vs tls.QUICServer; local is this endpoint's transport
// parameters, sent to the peer as a TLS extension.
func NewTLSHandshaker(isClient bool, cfg *tls.Config, local *Parameters) (Handshaker, *Error) {
	qcfg := &tls.QUICConfig{TLSConfig: cfg}
	var qc *tls.QUICConn
	if isClient {
		qc = tls.QUICClient(qcfg)
	} else {
		qc = tls.QUICServer(qcfg)
	}
	qc.SetTransportParameters(local.Marshal())
	h := &tlsHandshaker{conn: qc, local: local}
	if err := qc.Start(context.Background()); err != nil {
		return nil, newError(InternalError, "tls start: "+err.Error())
	}
	return h, nil
}

func (h *tlsHandshaker) Advance(level packetNumberSpaceID, data []byte) ([]HandshakeOutput, *Error) {
	if len(data) > 0 {
		if err := h.conn.HandleData(quicLevel(level), data); err != nil {
			return nil, newError(CryptoError, "tls handshake: "+err.Error())
		}
	}
	var out []HandshakeOutput
	for {
		ev := h.conn.NextEvent()
		switch ev.Kind {
		case tls.QUICNoEvent:
			return out, nil
		case tls.QUICTransportParameters:
			p, perr := UnmarshalParameters(ev.Data)
			if perr != nil {
				return nil, perr
			}
			h.peer = p
		case tls.QUICWriteData:
			out = append(out, HandshakeOutput{Level: levelFromQUIC(ev.Level), Data: append([]byte(nil), ev.Data...)})
		case tls.QUICSetReadSecret:
			h.installSecret(ev.Level, ev.Suite, ev.Data, false)
		case tls.QUICSetWriteSecret:
			h.installSecret(ev.Level, ev.Suite, ev.Data, true)
		case tls.QUICHandshakeDone:
			h.done = true
		}
	}
}

func (h *tlsHandshaker) installSecret(level tls.QUICEncryptionLevel, suite uint16, secret []byte, write bool) {
	space := levelFromQUIC(level)
	if h.keys[space] == nil {
		h.keys[space] = &LevelKeys{}
	}
	keyLen := 16
	if suite == tls.TLS_AES_256_GCM_SHA384 {
		keyLen = 32
	}
	key := hkdfExpandLabel(secret, "quic key", keyLen)
	iv := hkdfExpandLabel(secret, "quic iv", 12)
	hp := hkdfExpandLabel(secret, "quic hp", keyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return
	}
	if write {
		h.keys[space].Seal, h.keys[space].SealIV, h.keys[space].SealHP = aead, iv, hp
	} else {
		h.keys[space].Open, h.keys[space].OpenIV, h.keys[space].OpenHP = aead, iv, hp
	}
}

func (h *tlsHandshaker) IsComplete() bool { return h.done }

func (h *tlsHandshaker) LocalParameters() *Parameters { return h.local }
func (h *tlsHandshaker) PeerParameters() *Parameters  { return h.peer }

func (h *tlsHandshaker) Keys(level packetNumberSpaceID) (*LevelKeys, bool) {
	k := h.keys[level]
	if k == nil || k.Seal == nil || k.Open == nil {
		return nil, false
	}
	return k, true
}

func quicLevel(space packetNumberSpaceID) tls.QUICEncryptionLevel {
	switch space {
	case spaceInitial:
		return tls.QUICEncryptionLevelInitial
	case spaceHandshake:
		return tls.QUICEncryptionLevelHandshake
	default:
		return tls.QUICEncryptionLevelApplication
	}
}

func levelFromQUIC(level tls.QUICEncryptionLevel) packetNumberSpaceID {
	switch level {
	case tls.QUICEncryptionLevelInitial:
		return spaceInitial
	case tls.QUICEncryptionLevelHandshake:
		return spaceHandshake
	default:
		return spaceApplication
	}
}
