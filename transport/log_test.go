package transport

import (
	"strings"
	"testing"
	"time"
)

func testLogFrame(t *testing.T, f frame, expect string) {
	t.Helper()
	e := newLogEventFrame(time.Time{}, logEventFramesProcessed, f)
	got := e.String()
	if !strings.Contains(got, expect) {
		t.Fatalf("log event %q does not contain %q", got, expect)
	}
}

func TestLogFramePadding(t *testing.T) {
	testLogFrame(t, newPaddingFrame(4), "frame_type=padding")
}

func TestLogFramePing(t *testing.T) {
	testLogFrame(t, pingFrame{}, "frame_type=ping")
}

func TestLogFrameAck(t *testing.T) {
	f := ackFrame{largestAck: 10, ackDelay: 5, firstAckRange: 2}
	testLogFrame(t, f, "frame_type=ack")
	testLogFrame(t, f, "largest_acked=10")
}

func TestLogFrameResetStream(t *testing.T) {
	f := newResetStreamFrame(4, 1, 100)
	testLogFrame(t, f, "frame_type=reset_stream")
	testLogFrame(t, f, "stream_id=4")
}

func TestLogFrameStopSending(t *testing.T) {
	f := newStopSendingFrame(4, 1)
	testLogFrame(t, f, "frame_type=stop_sending")
}

func TestLogFrameCrypto(t *testing.T) {
	f := newCryptoFrame([]byte("hello"), 0)
	testLogFrame(t, f, "frame_type=crypto")
	testLogFrame(t, f, "length=5")
}

func TestLogFrameNewToken(t *testing.T) {
	f := newNewTokenFrame([]byte{1, 2, 3})
	testLogFrame(t, f, "frame_type=new_token")
}

func TestLogFrameStream(t *testing.T) {
	f := newStreamFrame(8, []byte("data"), 0, true)
	testLogFrame(t, f, "frame_type=stream")
	testLogFrame(t, f, "fin=true")
}

func TestLogFrameMaxData(t *testing.T) {
	f := newMaxDataFrame(1000)
	testLogFrame(t, f, "frame_type=max_data")
	testLogFrame(t, f, "maximum=1000")
}

func TestLogFrameMaxStreamData(t *testing.T) {
	f := newMaxStreamDataFrame(4, 500)
	testLogFrame(t, f, "frame_type=max_stream_data")
}

func TestLogFrameMaxStreamID(t *testing.T) {
	f := newMaxStreamIDFrame(40)
	testLogFrame(t, f, "frame_type=max_stream_id")
	testLogFrame(t, f, "maximum=40")
}

func TestLogFrameBlocked(t *testing.T) {
	f := newBlockedFrame(1000)
	testLogFrame(t, f, "frame_type=blocked")
}

func TestLogFrameStreamBlocked(t *testing.T) {
	f := newStreamBlockedFrame(4, 500)
	testLogFrame(t, f, "frame_type=stream_blocked")
}

func TestLogFrameStreamIDBlocked(t *testing.T) {
	f := newStreamIDBlockedFrame(40)
	testLogFrame(t, f, "frame_type=stream_id_blocked")
}

func TestLogFrameNewConnectionID(t *testing.T) {
	f := newConnectionIDFrame{seq: 1, connID: []byte{1, 2, 3, 4}}
	testLogFrame(t, f, "frame_type=new_connection_id")
}

func TestLogFrameRetireConnectionID(t *testing.T) {
	f := retireConnectionIDFrame{seq: 1}
	testLogFrame(t, f, "frame_type=retire_connection_id")
}

func TestLogFramePathChallenge(t *testing.T) {
	f := pathChallengeFrame{}
	testLogFrame(t, f, "frame_type=path_challenge")
}

func TestLogFramePathResponse(t *testing.T) {
	f := pathResponseFrame{}
	testLogFrame(t, f, "frame_type=path_response")
}

func TestLogFrameConnectionClose(t *testing.T) {
	f := newConnectionCloseFrame(10, 0, "bye", false)
	testLogFrame(t, f, "frame_type=connection_close")
	testLogFrame(t, f, "error_space=transport")
}

func TestLogFrameApplicationClose(t *testing.T) {
	f := newConnectionCloseFrame(1, 0, "done", true)
	testLogFrame(t, f, "error_space=application")
}

func TestErrorCodeString(t *testing.T) {
	if got := errorCodeString(0x3); got != "flow_control_error" {
		t.Fatalf("errorCodeString(0x3) = %q", got)
	}
	if got := errorCodeString(0x100); got != "crypto_error_0" {
		t.Fatalf("errorCodeString(0x100) = %q", got)
	}
}
