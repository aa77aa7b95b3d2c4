package transport

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Supported log events, named after qlog's draft-marx QUIC event
// definitions.
const (
	logEventPacketReceived  = "packet_received"
	logEventPacketSent      = "packet_sent"
	logEventPacketDropped   = "packet_dropped"
	logEventFramesProcessed = "frames_processed"
)

// LogEvent is one wire-level event a Conn reports through its
// installed logger callback (§4.9).
type LogEvent struct {
	Time   time.Time
	Type   string
	Fields []LogField
}

func newLogEvent(tm time.Time, tp string) LogEvent {
	return LogEvent{
		Time:   tm,
		Type:   tp,
		Fields: make([]LogField, 0, 8),
	}
}

func (s *LogEvent) addField(k string, v interface{}) {
	s.Fields = append(s.Fields, newLogField(k, v))
}

func (s LogEvent) String() string {
	buf := bytes.Buffer{}
	buf.WriteString(s.Time.Format(time.RFC3339))
	buf.WriteString(" ")
	buf.WriteString(s.Type)
	for _, f := range s.Fields {
		buf.WriteString(" ")
		buf.WriteString(f.String())
	}
	return buf.String()
}

// LogField is one key/value pair attached to a LogEvent.
type LogField struct {
	Key string
	Str string
	Num uint64
}

func newLogField(key string, val interface{}) LogField {
	s := LogField{Key: key}
	switch val := val.(type) {
	case int:
		s.Num = uint64(val)
	case int8:
		s.Num = uint64(val)
	case int16:
		s.Num = uint64(val)
	case int32:
		s.Num = uint64(val)
	case int64:
		s.Num = uint64(val)
	case uint:
		s.Num = uint64(val)
	case uint8:
		s.Num = uint64(val)
	case uint16:
		s.Num = uint64(val)
	case uint32:
		s.Num = uint64(val)
	case uint64:
		s.Num = val
	case bool:
		s.Str = strconv.FormatBool(val)
	case string:
		s.Str = val
	case []byte:
		s.Str = hex.EncodeToString(val)
	case []uint32:
		b := make([]byte, 0, 32)
		b = append(b, '[')
		for i, v := range val {
			if i > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendUint(b, uint64(v), 10)
		}
		b = append(b, ']')
		s.Str = string(b)
	default:
		panic("unsupported type for log field")
	}
	return s
}

func (s LogField) String() string {
	if s.Str == "" {
		return fmt.Sprintf("%s=%d", s.Key, s.Num)
	}
	return fmt.Sprintf("%s=%s", s.Key, s.Str)
}

// --- packets ---

// loggedPacket carries just enough decoded header information to log
// a packet without depending on the full send/recv pipeline types.
type loggedPacket struct {
	typ          packetType
	hdr          header
	packetNumber uint64
	payloadLen   int
}

func newLogEventPacket(tm time.Time, tp string, p loggedPacket) LogEvent {
	e := newLogEvent(tm, tp)
	logPacket(&e, p)
	return e
}

func logPacket(e *LogEvent, p loggedPacket) {
	e.addField("packet_type", packetTypeName(p.typ))
	if p.hdr.version > 0 {
		e.addField("version", p.hdr.version)
	}
	if len(p.hdr.dcid) > 0 {
		e.addField("dcid", []byte(p.hdr.dcid))
	}
	if len(p.hdr.scid) > 0 {
		e.addField("scid", []byte(p.hdr.scid))
	}
	e.addField("packet_number", p.packetNumber)
	if p.payloadLen > 0 {
		e.addField("payload_length", p.payloadLen)
	}
	if len(p.hdr.supportedVersions) > 0 {
		e.addField("supported_versions", p.hdr.supportedVersions)
	}
	if len(p.hdr.token) > 0 {
		e.addField("token", p.hdr.token)
	}
}

func packetTypeName(t packetType) string {
	switch t {
	case packetTypeInitial:
		return "initial"
	case packetTypeHandshake:
		return "handshake"
	case packetTypeRetry:
		return "retry"
	case packetTypeShort:
		return "1RTT"
	case packetTypeVersionNegotiation:
		return "version_negotiation"
	default:
		return "unknown"
	}
}

func newLogEventPacketDropped(reason string, size int) LogEvent {
	e := newLogEvent(time.Time{}, logEventPacketDropped)
	e.addField("reason", reason)
	e.addField("size", size)
	return e
}

// --- frames ---

func newLogEventFrame(tm time.Time, tp string, f frame) LogEvent {
	e := newLogEvent(tm, tp)
	switch f := f.(type) {
	case paddingFrame:
		logFramePadding(&e, f)
	case pingFrame:
		logFramePing(&e, f)
	case ackFrame:
		logFrameAck(&e, f)
	case resetStreamFrame:
		logFrameResetStream(&e, f)
	case stopSendingFrame:
		logFrameStopSending(&e, f)
	case cryptoFrame:
		logFrameCrypto(&e, f)
	case newTokenFrame:
		logFrameNewToken(&e, f)
	case streamFrame:
		logFrameStream(&e, f)
	case maxDataFrame:
		logFrameMaxData(&e, f)
	case maxStreamDataFrame:
		logFrameMaxStreamData(&e, f)
	case maxStreamIDFrame:
		logFrameMaxStreamID(&e, f)
	case blockedFrame:
		logFrameBlocked(&e, f)
	case streamBlockedFrame:
		logFrameStreamBlocked(&e, f)
	case streamIDBlockedFrame:
		logFrameStreamIDBlocked(&e, f)
	case newConnectionIDFrame:
		logFrameNewConnectionID(&e, f)
	case retireConnectionIDFrame:
		logFrameRetireConnectionID(&e, f)
	case pathChallengeFrame:
		logFramePathChallenge(&e, f)
	case pathResponseFrame:
		logFramePathResponse(&e, f)
	case connectionCloseFrame:
		logFrameConnectionClose(&e, f)
	}
	return e
}

func logFramePadding(e *LogEvent, s paddingFrame) {
	e.addField("frame_type", "padding")
	e.addField("length", s.length)
}

func logFramePing(e *LogEvent, s pingFrame) {
	e.addField("frame_type", "ping")
}

func logFrameAck(e *LogEvent, s ackFrame) {
	e.addField("frame_type", "ack")
	e.addField("largest_acked", s.largestAck)
	e.addField("ack_delay", s.ackDelay)
}

func logFrameResetStream(e *LogEvent, s resetStreamFrame) {
	e.addField("frame_type", "reset_stream")
	e.addField("stream_id", s.streamID)
	e.addField("error_code", s.errorCode)
	e.addField("final_size", s.finalSize)
}

func logFrameStopSending(e *LogEvent, s stopSendingFrame) {
	e.addField("frame_type", "stop_sending")
	e.addField("stream_id", s.streamID)
	e.addField("error_code", s.errorCode)
}

func logFrameCrypto(e *LogEvent, s cryptoFrame) {
	e.addField("frame_type", "crypto")
	e.addField("offset", s.offset)
	e.addField("length", len(s.data))
}

func logFrameNewToken(e *LogEvent, s newTokenFrame) {
	e.addField("frame_type", "new_token")
	e.addField("token", s.token)
}

func logFrameStream(e *LogEvent, s streamFrame) {
	e.addField("frame_type", "stream")
	e.addField("stream_id", s.streamID)
	e.addField("offset", s.offset)
	e.addField("length", len(s.data))
	e.addField("fin", s.fin)
}

func logFrameMaxData(e *LogEvent, s maxDataFrame) {
	e.addField("frame_type", "max_data")
	e.addField("maximum", s.max)
}

func logFrameMaxStreamData(e *LogEvent, s maxStreamDataFrame) {
	e.addField("frame_type", "max_stream_data")
	e.addField("stream_id", s.streamID)
	e.addField("maximum", s.max)
}

func logFrameMaxStreamID(e *LogEvent, s maxStreamIDFrame) {
	e.addField("frame_type", "max_stream_id")
	e.addField("maximum", s.maxStreamID)
}

func logFrameBlocked(e *LogEvent, s blockedFrame) {
	e.addField("frame_type", "blocked")
	e.addField("limit", s.offset)
}

func logFrameStreamBlocked(e *LogEvent, s streamBlockedFrame) {
	e.addField("frame_type", "stream_blocked")
	e.addField("stream_id", s.streamID)
	e.addField("limit", s.offset)
}

func logFrameStreamIDBlocked(e *LogEvent, s streamIDBlockedFrame) {
	e.addField("frame_type", "stream_id_blocked")
	e.addField("limit", s.streamID)
}

func logFrameNewConnectionID(e *LogEvent, s newConnectionIDFrame) {
	e.addField("frame_type", "new_connection_id")
	e.addField("sequence_number", s.seq)
	e.addField("retire_prior_to", s.retirePriorTo)
	e.addField("connection_id", s.connID)
}

func logFrameRetireConnectionID(e *LogEvent, s retireConnectionIDFrame) {
	e.addField("frame_type", "retire_connection_id")
	e.addField("sequence_number", s.seq)
}

func logFramePathChallenge(e *LogEvent, s pathChallengeFrame) {
	e.addField("frame_type", "path_challenge")
	e.addField("data", s.data[:])
}

func logFramePathResponse(e *LogEvent, s pathResponseFrame) {
	e.addField("frame_type", "path_response")
	e.addField("data", s.data[:])
}

func logFrameConnectionClose(e *LogEvent, s connectionCloseFrame) {
	e.addField("frame_type", "connection_close")
	if s.isApp {
		e.addField("error_space", "application")
	} else {
		e.addField("error_space", "transport")
	}
	if s.isApp {
		e.addField("error_code", s.errorCode)
	} else {
		e.addField("error_code", errorCodeString(s.errorCode))
	}
	e.addField("raw_error_code", s.errorCode)
	e.addField("reason", s.reason)
	if !s.isApp && s.frameType > 0 {
		e.addField("trigger_frame_type", s.frameType)
	}
}

func logUnknownFrame(e *LogEvent, frameType byte, b []byte) {
	e.addField("frame_type", "unknown")
	e.addField("frame_name", frameTypeName(frameType))
	e.addField("raw_frame_type", uint64(frameType))
	e.addField("raw", b)
}
