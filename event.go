package quic

import "github.com/quincequic/quince/transport"

// EventKind distinguishes connection-lifecycle events a Client/Server
// reports (accept, close) from wire-level events the transport layer
// already reports through transport.Event.
type EventKind uint8

const (
	// EventTransport carries a transport.Event verbatim; see its Type
	// field for the specific kind (stream readable, handshake done...).
	EventTransport EventKind = iota
	// EventConnAccept fires once, the first time a Handler sees a given
	// Conn: for a server this is on accepting a new connection attempt,
	// for a client once the connection object exists and a handshake
	// has been kicked off.
	EventConnAccept
	// EventConnClose fires once a connection has fully drained and its
	// Handler will not be invoked for it again.
	EventConnClose
)

// Event is what a Handler's Serve method receives: either a
// connection-lifecycle notification or a wrapped transport.Event.
type Event struct {
	Kind      EventKind
	Transport transport.Event
}

func newAcceptEvent() Event { return Event{Kind: EventConnAccept} }
func newCloseEvent() Event  { return Event{Kind: EventConnClose} }

func wrapTransportEvent(e transport.Event) Event {
	return Event{Kind: EventTransport, Transport: e}
}
