package transport

import (
	"bytes"
	"io"
	"testing"
	"time"
)

// newFakeConnPair builds a client/server Conn pair driven by
// fakeHandshaker instead of a real TLS stack, mirroring how the log
// tests avoid depending on the wider endpoint machinery.
func newFakeConnPair(t *testing.T, configure func(client, server *Config)) (*Conn, *Conn) {
	t.Helper()
	clientCfg := DefaultConfig()
	serverCfg := DefaultConfig()
	if configure != nil {
		configure(&clientCfg, &serverCfg)
	}

	clientHS := newFakeHandshaker(true, &clientCfg.Params)
	client, err := NewClientConn(clientCfg, clientHS)
	if err != nil {
		t.Fatalf("NewClientConn: %v", err)
	}

	serverHS := newFakeHandshaker(false, &serverCfg.Params)
	server, err := NewServerConn(serverCfg, serverHS, client.originalDCID, client.scid)
	if err != nil {
		t.Fatalf("NewServerConn: %v", err)
	}
	return client, server
}

// drainSends pumps every datagram from currently sits in the queue
// from "from" to "to", stopping once Send reports nothing left.
func drainSends(t *testing.T, from, to *Conn, path netPath, now time.Time) bool {
	t.Helper()
	buf := make([]byte, 2048)
	progressed := false
	for i := 0; i < 64; i++ {
		n, err := from.Send(buf, now)
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if n == 0 {
			break
		}
		progressed = true
		if err := to.Recv(append([]byte(nil), buf[:n]...), path, now); err != nil {
			t.Fatalf("Recv: %v", err)
		}
	}
	return progressed
}

// pump alternately drains both directions until neither side has
// anything left to send, or rounds is exhausted.
func pump(t *testing.T, a, b *Conn, now time.Time, rounds int) time.Time {
	t.Helper()
	path := NewPath("client-addr", "server-addr")
	for i := 0; i < rounds; i++ {
		p1 := drainSends(t, a, b, path, now)
		p2 := drainSends(t, b, a, path, now)
		if !p1 && !p2 {
			break
		}
		now = now.Add(10 * time.Millisecond)
	}
	return now
}

func establishedPair(t *testing.T, configure func(client, server *Config)) (*Conn, *Conn, time.Time) {
	t.Helper()
	client, server := newFakeConnPair(t, configure)
	now := pump(t, client, server, time.Now(), 10)
	if !client.IsEstablished() {
		t.Fatal("client did not reach the established state")
	}
	if !server.IsEstablished() {
		t.Fatal("server did not reach the established state")
	}
	// drain the events the handshake itself generated so later
	// assertions only see what the scenario under test produced.
	client.Events()
	server.Events()
	return client, server, now
}

func TestConnHandshakeCompletes(t *testing.T) {
	client, server := newFakeConnPair(t, nil)
	pump(t, client, server, time.Now(), 10)

	if !client.IsEstablished() {
		t.Fatal("client did not reach established state")
	}
	if !server.IsEstablished() {
		t.Fatal("server did not reach established state")
	}

	sawClientEvent := false
	for _, e := range client.Events() {
		if e.Type == EventHandshakeComplete {
			sawClientEvent = true
		}
	}
	if !sawClientEvent {
		t.Fatal("client never surfaced EventHandshakeComplete")
	}

	sawServerEvent := false
	for _, e := range server.Events() {
		if e.Type == EventHandshakeComplete {
			sawServerEvent = true
		}
	}
	if !sawServerEvent {
		t.Fatal("server never surfaced EventHandshakeComplete")
	}
}

func TestConnBidirectionalStreamEcho(t *testing.T) {
	client, server, now := establishedPair(t, nil)

	stream, err := client.OpenStream(true)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if _, werr := stream.Write([]byte("ping")); werr != nil {
		t.Fatalf("client Write: %v", werr)
	}
	if cerr := stream.Close(); cerr != nil {
		t.Fatalf("client Close: %v", cerr)
	}

	now = pump(t, client, server, now, 10)

	var serverStream *Stream
	for _, e := range server.Events() {
		if e.Type == EventStreamReadable {
			s, ok := server.Stream(e.StreamID)
			if !ok {
				t.Fatalf("server missing stream %d named in its own event", e.StreamID)
			}
			serverStream = s
		}
	}
	if serverStream == nil {
		t.Fatal("server never saw a readable stream")
	}

	got := make([]byte, 16)
	n, rerr := serverStream.Read(got)
	if rerr != nil && rerr != io.EOF {
		t.Fatalf("server Read: %v", rerr)
	}
	if string(got[:n]) != "ping" {
		t.Fatalf("server received %q, want %q", got[:n], "ping")
	}

	if _, werr := serverStream.Write([]byte("pong")); werr != nil {
		t.Fatalf("server Write: %v", werr)
	}
	if cerr := serverStream.Close(); cerr != nil {
		t.Fatalf("server Close: %v", cerr)
	}

	pump(t, client, server, now, 10)

	got2 := make([]byte, 16)
	n2, rerr2 := stream.Read(got2)
	if rerr2 != nil && rerr2 != io.EOF {
		t.Fatalf("client Read: %v", rerr2)
	}
	if string(got2[:n2]) != "pong" {
		t.Fatalf("client received %q, want %q", got2[:n2], "pong")
	}
}

// TestConnLossTriggersRetransmission drops a client datagram carrying
// stream data on the floor, forces the loss-detection path to declare
// it lost by packet-count threshold, and checks the data still
// arrives via the requeued retransmission.
func TestConnLossTriggersRetransmission(t *testing.T) {
	client, server, now := establishedPair(t, nil)

	stream, err := client.OpenStream(true)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if _, werr := stream.Write([]byte("lost-data")); werr != nil {
		t.Fatalf("Write: %v", werr)
	}

	buf := make([]byte, 2048)
	n, serr := client.Send(buf, now)
	if serr != nil {
		t.Fatalf("client.Send: %v", serr)
	}
	if n == 0 {
		t.Fatal("expected a packet carrying the stream write, got none")
	}
	// The datagram is never delivered to server: simulates network loss.

	space := client.spaces[spaceApplication]
	if len(space.sent) == 0 {
		t.Fatal("expected an outstanding sent packet before loss detection runs")
	}
	lostPN := space.sent[len(space.sent)-1].packetNumber

	// Act as if the peer had acknowledged a packet far enough ahead
	// that the packet-count threshold (§4.5) declares this one lost
	// outright, without needing to wait out the time threshold too.
	space.largestAckedByPeer = lostPN + packetThreshold
	space.haveLargestAcked = true

	later := now.Add(time.Second)
	client.onLossDetectionTimeout(later)

	for _, p := range space.sent {
		if p.packetNumber == lostPN {
			t.Fatal("the lost packet should have been removed from the outstanding list")
		}
	}

	n2, serr2 := client.Send(buf, later)
	if serr2 != nil {
		t.Fatalf("client.Send after loss: %v", serr2)
	}
	if n2 == 0 {
		t.Fatal("expected a retransmission after loss was declared, got nothing to send")
	}
	if err := server.Recv(append([]byte(nil), buf[:n2]...), NewPath("client-addr", "server-addr"), later); err != nil {
		t.Fatalf("server.Recv: %v", err)
	}

	pump(t, client, server, later, 10)

	var serverStream *Stream
	for _, e := range server.Events() {
		if e.Type == EventStreamReadable {
			s, ok := server.Stream(e.StreamID)
			if ok {
				serverStream = s
			}
		}
	}
	if serverStream == nil {
		t.Fatal("server never saw the retransmitted stream data")
	}
	got := make([]byte, 32)
	gn, _ := serverStream.Read(got)
	if string(got[:gn]) != "lost-data" {
		t.Fatalf("server received %q after retransmission, want %q", got[:gn], "lost-data")
	}
}

// TestConnFlowControlStallAndUnblock grants the client only a tiny
// amount of stream send credit, verifies a write that would exceed it
// is rejected with StreamDataBlocked from the entrypoint (scenario 4:
// "the send path returns stream-data-blocked"), then exercises the
// real MAX_STREAM_DATA receive path to unblock it.
func TestConnFlowControlStallAndUnblock(t *testing.T) {
	const grant = 8
	payload := "0123456789abcdefghij"

	client, server, now := establishedPair(t, func(_, server *Config) {
		server.Params.InitialMaxStreamDataBidiRemote = grant
	})

	stream, err := client.OpenStream(true)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if _, werr := stream.Write([]byte(payload[:grant])); werr != nil {
		t.Fatalf("Write up to the grant: %v", werr)
	}

	_, werr := stream.Write([]byte(payload[grant : grant+1]))
	if werr == nil {
		t.Fatal("Write past the grant succeeded, want StreamDataBlocked")
	}
	transportErr, ok := werr.(*Error)
	if !ok || transportErr.Code != StreamDataBlocked {
		t.Fatalf("Write past the grant returned %v, want StreamDataBlocked", werr)
	}

	now = pump(t, client, server, now, 10)

	if stream.flow.canSend() != 0 {
		t.Fatalf("canSend after exhausting the grant = %d, want 0", stream.flow.canSend())
	}

	var serverStream *Stream
	for _, e := range server.Events() {
		if e.Type == EventStreamReadable {
			if s, ok := server.Stream(e.StreamID); ok {
				serverStream = s
			}
		}
	}
	if serverStream == nil {
		t.Fatal("server never saw the stalled stream")
	}
	buf := make([]byte, 32)
	n, _ := serverStream.Read(buf)
	if n != grant {
		t.Fatalf("server received %d bytes before the stall, want %d", n, grant)
	}

	if cerr := client.recvMaxStreamData(maxStreamDataFrame{streamID: stream.id, max: uint64(len(payload)) + 100}); cerr != nil {
		t.Fatalf("recvMaxStreamData: %v", cerr)
	}
	if stream.flow.canSend() == 0 {
		t.Fatal("canSend should be positive once more credit has been granted")
	}

	sawWritable := false
	for _, e := range client.Events() {
		if e.Type == EventStreamWritable {
			sawWritable = true
		}
	}
	if !sawWritable {
		t.Fatal("client never surfaced EventStreamWritable after the credit grant")
	}

	if _, werr := stream.Write([]byte(payload[grant:])); werr != nil {
		t.Fatalf("Write after the credit grant: %v", werr)
	}

	pump(t, client, server, now, 10)

	total := n
	for {
		m, rerr := serverStream.Read(buf)
		if m > 0 {
			total += m
		}
		if m == 0 || rerr != nil {
			break
		}
	}
	if total != len(payload) {
		t.Fatalf("server eventually received %d bytes, want %d", total, len(payload))
	}
}

// TestConnRetryIsProcessed feeds a freshly-minted client a Retry
// packet and checks it adopts the new connection id and retry token
// the way §4.1 requires before re-sending its Initial flight.
func TestConnRetryIsProcessed(t *testing.T) {
	clientCfg := DefaultConfig()
	clientHS := newFakeHandshaker(true, &clientCfg.Params)
	client, err := NewClientConn(clientCfg, clientHS)
	if err != nil {
		t.Fatalf("NewClientConn: %v", err)
	}

	newSCID := randomConnID(8)
	token := []byte("retry-token-opaque-bytes")

	buf := make([]byte, 256)
	n := encodeRetry(buf, client.dcid, newSCID, token)
	buf[4] = 1 // version, left for the caller to fill in by encodeRetry's contract
	n += copy(buf[n:], bytes.Repeat([]byte{0xCC}, retryIntegrityTagLen))

	if err := client.Recv(buf[:n], NewPath("client-addr", "server-addr"), time.Now()); err != nil {
		t.Fatalf("Recv retry: %v", err)
	}

	if !bytes.Equal(client.retryToken, token) {
		t.Fatalf("retryToken = %q, want %q", client.retryToken, token)
	}
	if !client.dcid.equal(newSCID) {
		t.Fatal("client did not switch its destination connection id to the retry's scid")
	}
	for _, sp := range client.spaces {
		if sp.nextPacketNumber != 0 {
			t.Fatalf("packet numbers should reset to 0 after a retry, space has %d queued", sp.nextPacketNumber)
		}
	}
}

// TestConnStatelessResetTransitionsToDraining crafts an
// unauthenticable short-header datagram ending in the peer's
// announced stateless reset token and checks the connection
// recognizes it instead of just dropping it as corrupt (§4.1).
func TestConnStatelessResetTransitionsToDraining(t *testing.T) {
	token := bytes.Repeat([]byte{0x42}, 16)
	client, _, _ := establishedPair(t, func(_, server *Config) {
		server.Params.StatelessResetToken = append([]byte(nil), token...)
	})

	if !bytes.Equal(client.peerParams.StatelessResetToken, token) {
		t.Fatalf("client peerParams token = %x, want %x", client.peerParams.StatelessResetToken, token)
	}

	buf := make([]byte, 40)
	encodeShortHeader(buf, make([]byte, len(client.scid)), 1)
	for i := 9; i < len(buf); i++ {
		buf[i] = 0xAB
	}
	copy(buf[len(buf)-16:], token)

	if err := client.Recv(buf, NewPath("client-addr", "server-addr"), time.Now()); err != nil {
		t.Fatalf("Recv stateless reset: %v", err)
	}

	if client.state != stateDraining {
		t.Fatalf("state = %v, want draining", client.state)
	}
	sawClose := false
	for _, e := range client.Events() {
		if e.Type == EventConnectionClose {
			sawClose = true
		}
	}
	if !sawClose {
		t.Fatal("expected EventConnectionClose after a recognized stateless reset")
	}
}
