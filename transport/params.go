package transport

import "time"

// Transport parameter ids, exactly as exchanged in the TLS extension
// during the handshake (§4.7, §GLOSSARY).
const (
	paramInitialMaxStreamDataBidiLocal  = 0x00
	paramInitialMaxData                 = 0x01
	paramInitialMaxBidiStreams          = 0x02
	paramIdleTimeout                    = 0x03
	paramPreferredAddress               = 0x04
	paramMaxPacketSize                  = 0x05
	paramStatelessResetToken            = 0x06
	paramAckDelayExponent               = 0x07
	paramInitialMaxUniStreams           = 0x08
	paramDisableMigration               = 0x09
	paramInitialMaxStreamDataBidiRemote = 0x0a
	paramInitialMaxStreamDataUni        = 0x0b
	paramMaxAckDelay                    = 0x0c
	paramOriginalConnectionID           = 0x0d
)

// Parameters is the decoded set of transport parameters one endpoint
// announces to the other, carried inside the TLS ClientHello or
// EncryptedExtensions depending on role (§4.7). Fields not received
// take Go zero values, which the caller must interpret against the
// RFC-mandated defaults (handled by Parameters.applyDefaults).
type Parameters struct {
	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64
	InitialMaxData                 uint64
	InitialMaxStreamsBidi           uint64
	InitialMaxStreamsUni            uint64
	IdleTimeout                    time.Duration
	MaxPacketSize                  uint64
	StatelessResetToken            []byte
	AckDelayExponent               uint64
	DisableMigration               bool
	MaxAckDelay                    time.Duration
	OriginalConnectionID           ConnectionID
	PreferredAddress               []byte // decoded-and-ignored: no address migration beyond path validation

	haveAckDelayExponent bool
	haveMaxAckDelay      bool
}

const defaultAckDelayExponent = 3
const defaultMaxAckDelay = 25 * time.Millisecond

// applyDefaults fills in RFC-mandated defaults for parameters the
// peer was allowed to omit.
func (p *Parameters) applyDefaults() {
	if !p.haveAckDelayExponent {
		p.AckDelayExponent = defaultAckDelayExponent
	}
	if !p.haveMaxAckDelay {
		p.MaxAckDelay = defaultMaxAckDelay
	}
	if p.MaxPacketSize == 0 {
		p.MaxPacketSize = 65527
	}
}

// Marshal encodes the parameters as a flat id/length/value sequence,
// the wire form carried inside the TLS extension.
func (p *Parameters) Marshal() []byte {
	b := make([]byte, 0, 256)
	putParam := func(id uint64, v uint64) {
		b = appendVarintParam(b, id, varintLen(v))
		n := varintLen(v)
		tmp := make([]byte, n)
		putVarint(tmp, v)
		b = append(b, tmp...)
	}
	if p.InitialMaxStreamDataBidiLocal > 0 {
		putParam(paramInitialMaxStreamDataBidiLocal, p.InitialMaxStreamDataBidiLocal)
	}
	if p.InitialMaxData > 0 {
		putParam(paramInitialMaxData, p.InitialMaxData)
	}
	if p.InitialMaxStreamsBidi > 0 {
		putParam(paramInitialMaxBidiStreams, p.InitialMaxStreamsBidi)
	}
	if p.IdleTimeout > 0 {
		putParam(paramIdleTimeout, uint64(p.IdleTimeout/time.Millisecond))
	}
	if p.MaxPacketSize > 0 {
		putParam(paramMaxPacketSize, p.MaxPacketSize)
	}
	if len(p.StatelessResetToken) == 16 {
		b = appendVarintParam(b, paramStatelessResetToken, 16)
		b = append(b, p.StatelessResetToken...)
	}
	if p.haveAckDelayExponent {
		putParam(paramAckDelayExponent, p.AckDelayExponent)
	}
	if p.InitialMaxStreamsUni > 0 {
		putParam(paramInitialMaxUniStreams, p.InitialMaxStreamsUni)
	}
	if p.DisableMigration {
		b = appendVarintParam(b, paramDisableMigration, 0)
	}
	if p.InitialMaxStreamDataBidiRemote > 0 {
		putParam(paramInitialMaxStreamDataBidiRemote, p.InitialMaxStreamDataBidiRemote)
	}
	if p.InitialMaxStreamDataUni > 0 {
		putParam(paramInitialMaxStreamDataUni, p.InitialMaxStreamDataUni)
	}
	if p.haveMaxAckDelay {
		putParam(paramMaxAckDelay, uint64(p.MaxAckDelay/time.Millisecond))
	}
	if len(p.OriginalConnectionID) > 0 {
		b = appendVarintParam(b, paramOriginalConnectionID, len(p.OriginalConnectionID))
		b = append(b, p.OriginalConnectionID...)
	}
	return b
}

func appendVarintParam(b []byte, id uint64, valueLen int) []byte {
	idBuf := make([]byte, varintLen(id))
	putVarint(idBuf, id)
	b = append(b, idBuf...)
	lenBuf := make([]byte, varintLen(uint64(valueLen)))
	putVarint(lenBuf, uint64(valueLen))
	return append(b, lenBuf...)
}

// UnmarshalParameters decodes a wire-form parameter list. Unknown
// parameter ids (e.g. a future GREASE id, or preferred_address
// fields this implementation does not act on) are skipped rather than
// rejected, per §4.7 and the frame/param "unknown but skippable"
// convention used throughout.
func UnmarshalParameters(b []byte) (*Parameters, *Error) {
	p := &Parameters{}
	n := 0
	seen := make(map[uint64]bool)
	for n < len(b) {
		var id, length uint64
		m := getVarint(b[n:], &id)
		if m == 0 {
			return nil, newError(TransportParameterError, "param id")
		}
		n += m
		m = getVarint(b[n:], &length)
		if m == 0 {
			return nil, newError(TransportParameterError, "param length")
		}
		n += m
		if uint64(len(b)-n) < length {
			return nil, newError(TransportParameterError, "param value truncated")
		}
		v := b[n : n+int(length)]
		n += int(length)
		if seen[id] {
			return nil, newError(MalformedTransportParameter, "duplicate transport parameter")
		}
		seen[id] = true
		switch id {
		case paramInitialMaxStreamDataBidiLocal:
			p.InitialMaxStreamDataBidiLocal = decodeParamVarint(v)
		case paramInitialMaxData:
			p.InitialMaxData = decodeParamVarint(v)
		case paramInitialMaxBidiStreams:
			p.InitialMaxStreamsBidi = decodeParamVarint(v)
		case paramIdleTimeout:
			p.IdleTimeout = time.Duration(decodeParamVarint(v)) * time.Millisecond
		case paramPreferredAddress:
			p.PreferredAddress = append([]byte(nil), v...)
		case paramMaxPacketSize:
			p.MaxPacketSize = decodeParamVarint(v)
		case paramStatelessResetToken:
			if len(v) != 16 {
				return nil, newError(MalformedTransportParameter, "stateless_reset_token length")
			}
			p.StatelessResetToken = append([]byte(nil), v...)
		case paramAckDelayExponent:
			p.AckDelayExponent = decodeParamVarint(v)
			p.haveAckDelayExponent = true
		case paramInitialMaxUniStreams:
			p.InitialMaxStreamsUni = decodeParamVarint(v)
		case paramDisableMigration:
			p.DisableMigration = true
		case paramInitialMaxStreamDataBidiRemote:
			p.InitialMaxStreamDataBidiRemote = decodeParamVarint(v)
		case paramInitialMaxStreamDataUni:
			p.InitialMaxStreamDataUni = decodeParamVarint(v)
		case paramMaxAckDelay:
			p.MaxAckDelay = time.Duration(decodeParamVarint(v)) * time.Millisecond
			p.haveMaxAckDelay = true
		case paramOriginalConnectionID:
			p.OriginalConnectionID = append(ConnectionID(nil), v...)
		default:
			// Unknown id: skip (GREASE / future extension).
		}
	}
	p.applyDefaults()
	return p, nil
}

func decodeParamVarint(v []byte) uint64 {
	var out uint64
	getVarint(v, &out)
	return out
}
