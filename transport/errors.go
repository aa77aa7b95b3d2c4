package transport

import "fmt"

// ErrorCode classifies an internal library error.
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html
type ErrorCode int

// Error kinds, grouped as in the design (input, protocol, stream,
// crypto, lifecycle, fatal).
const (
	// Input
	InvalidArgument ErrorCode = iota + 1
	NoBuffer
	UnknownPacketType
	// Protocol
	ProtocolViolation
	AckFrameError
	StreamIDError
	FinalOffsetError
	FlowControlError
	FrameEncodingError
	StreamStateError
	VersionNegotiationError
	TransportParameterError
	RequiredTransportParameter
	MalformedTransportParameter
	// Stream
	StreamNotFound
	StreamShutWrite
	StreamIDBlocked
	StreamInUse
	StreamDataBlocked
	// Crypto
	CryptoError
	TLSDecryptError
	NoKeyError
	// Lifecycle
	ClosingError
	DrainingError
	DiscardPacket
	EarlyDataRejected
	RecvVersionNegotiation
	// Fatal
	OutOfMemory
	CallbackFailure
	InternalError
	PacketNumberExhausted
)

var errorCodeNames = map[ErrorCode]string{
	InvalidArgument:             "invalid-argument",
	NoBuffer:                    "no-buffer",
	UnknownPacketType:           "unknown-packet-type",
	ProtocolViolation:           "protocol-violation",
	AckFrameError:               "ack-frame",
	StreamIDError:               "stream-id",
	FinalOffsetError:            "final-offset",
	FlowControlError:            "flow-control",
	FrameEncodingError:          "frame-encoding",
	StreamStateError:            "stream-state",
	VersionNegotiationError:     "version-negotiation",
	TransportParameterError:     "transport-param",
	RequiredTransportParameter:  "required-transport-param",
	MalformedTransportParameter: "malformed-transport-param",
	StreamNotFound:              "stream-not-found",
	StreamShutWrite:             "stream-shut-wr",
	StreamIDBlocked:             "stream-id-blocked",
	StreamInUse:                 "stream-in-use",
	StreamDataBlocked:           "stream-data-blocked",
	CryptoError:                 "crypto",
	TLSDecryptError:             "tls-decrypt",
	NoKeyError:                  "no-key",
	ClosingError:                "closing",
	DrainingError:               "draining",
	DiscardPacket:               "discard-pkt",
	EarlyDataRejected:           "early-data-rejected",
	RecvVersionNegotiation:      "recv-version-negotiation",
	OutOfMemory:                 "out-of-memory",
	CallbackFailure:             "callback-failure",
	InternalError:               "internal",
	PacketNumberExhausted:       "pkt-num-exhausted",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeNames[c]; ok {
		return s
	}
	return "unknown-error"
}

// Error is returned by transport operations. It carries an ErrorCode
// so callers (and TransportErrorCode) can classify the failure
// without string matching.
type Error struct {
	Code ErrorCode
	Msg  string

	// wireCode/isApp record the raw application error code and close
	// kind for an Error built by Conn.Close, so the CONNECTION_CLOSE/
	// APPLICATION_CLOSE frame can carry the caller's exact code rather
	// than one re-derived from Code.
	wireCode uint64
	isApp    bool
}

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// IsFatal reports whether the connection must be torn down. Fatal
// errors leave the connection in an undefined state; further calls on
// it are undefined.
func (e *Error) IsFatal() bool {
	switch e.Code {
	case OutOfMemory, CallbackFailure, InternalError, PacketNumberExhausted:
		return true
	}
	return false
}

// TransportErrorCode maps a non-fatal protocol Error to the QUIC wire
// transport error code sent in CONNECTION_CLOSE. This is
// err_infer_quic_transport_error_code from §7.
func (e *Error) TransportErrorCode() uint64 {
	switch e.Code {
	case ProtocolViolation:
		return uint64(tecProtocolViolation)
	case AckFrameError, FrameEncodingError:
		return uint64(tecFrameEncoding)
	case StreamIDError, StreamIDBlocked:
		return uint64(tecStreamID)
	case FinalOffsetError:
		return uint64(tecFinalOffset)
	case FlowControlError, StreamDataBlocked:
		return uint64(tecFlowControl)
	case StreamStateError, StreamNotFound, StreamShutWrite, StreamInUse:
		return uint64(tecStreamState)
	case VersionNegotiationError:
		return uint64(tecVersionNegotiation)
	case TransportParameterError, RequiredTransportParameter, MalformedTransportParameter:
		return uint64(tecTransportParameter)
	case CryptoError, TLSDecryptError, NoKeyError:
		return uint64(tecCrypto)
	default:
		return uint64(tecInternal)
	}
}

// Wire transport error codes, sent in CONNECTION_CLOSE frames.
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#transport-error-codes
type transportErrorCode uint64

const (
	tecNoError           transportErrorCode = 0x0
	tecInternal          transportErrorCode = 0x1
	tecServerBusy        transportErrorCode = 0x2
	tecFlowControl       transportErrorCode = 0x3
	tecStreamID          transportErrorCode = 0x4
	tecStreamState       transportErrorCode = 0x5
	tecFinalOffset       transportErrorCode = 0x6
	tecFrameEncoding     transportErrorCode = 0x7
	tecTransportParameter transportErrorCode = 0x8
	tecVersionNegotiation transportErrorCode = 0x9
	tecProtocolViolation transportErrorCode = 0xa
	tecInvalidMigration  transportErrorCode = 0xc
	tecCrypto            transportErrorCode = 0x100
)

func errorCodeString(code uint64) string {
	switch transportErrorCode(code) {
	case tecNoError:
		return "no_error"
	case tecInternal:
		return "internal_error"
	case tecServerBusy:
		return "server_busy"
	case tecFlowControl:
		return "flow_control_error"
	case tecStreamID:
		return "stream_id_error"
	case tecStreamState:
		return "stream_state_error"
	case tecFinalOffset:
		return "final_offset_error"
	case tecFrameEncoding:
		return "frame_encoding_error"
	case tecTransportParameter:
		return "transport_parameter_error"
	case tecVersionNegotiation:
		return "version_negotiation_error"
	case tecProtocolViolation:
		return "protocol_violation"
	case tecInvalidMigration:
		return "invalid_migration"
	default:
		if code >= uint64(tecCrypto) && code < uint64(tecCrypto)+0x100 {
			return fmt.Sprintf("crypto_error_%d", code-uint64(tecCrypto))
		}
		return fmt.Sprintf("unknown_error_0x%x", code)
	}
}

// errorCodeFromTransport maps a received wire transport error code
// back to the closest ErrorCode, for representing a peer's
// CONNECTION_CLOSE as an Error.
func errorCodeFromTransport(code uint64) ErrorCode {
	switch transportErrorCode(code) {
	case tecNoError:
		return InternalError
	case tecFlowControl:
		return FlowControlError
	case tecStreamID:
		return StreamIDError
	case tecStreamState:
		return StreamStateError
	case tecFinalOffset:
		return FinalOffsetError
	case tecFrameEncoding:
		return FrameEncodingError
	case tecTransportParameter:
		return TransportParameterError
	case tecVersionNegotiation:
		return VersionNegotiationError
	case tecProtocolViolation:
		return ProtocolViolation
	default:
		if code >= uint64(tecCrypto) {
			return CryptoError
		}
		return InternalError
	}
}

// Sentinel errors for conditions with no interesting per-call message.
var (
	errShortBuffer  = newError(NoBuffer, "short buffer")
	errInvalidToken = newError(InvalidArgument, "invalid retry token")
	errFlowControl  = newError(FlowControlError, "")
)

func sprint(args ...interface{}) string {
	return fmt.Sprint(args...)
}
