package transport

// EventType distinguishes the kinds of Event a Conn surfaces to its
// host through Conn.Events() after each call into the library (§4.9,
// §6). Events are the Go-idiomatic rendering of what the original
// library reports through callback invocations: instead of a
// function-pointer table, Conn accumulates a batch of Events per
// call and the host drains them afterward.
type EventType uint8

const (
	// EventStreamReadable fires when new in-order bytes (or a fin) are
	// available on a stream's receive side.
	EventStreamReadable EventType = iota
	// EventStreamWritable fires when a previously flow-control-blocked
	// stream gains send credit.
	EventStreamWritable
	// EventStreamReset fires when the peer reset a stream's send side.
	EventStreamReset
	// EventStreamStopSending fires when the peer asked this endpoint to
	// stop sending on a stream.
	EventStreamStopSending
	// EventHandshakeComplete fires once the handshake finishes.
	EventHandshakeComplete
	// EventConnectionClose fires when the connection enters the closing
	// or draining state, carrying the reason.
	EventConnectionClose
	// EventPathValidated fires when a path validation attempt this
	// endpoint initiated completes, successfully or not.
	EventPathValidated
)

// Event is one notification queued for the host to observe via
// Conn.Events().
type Event struct {
	Type      EventType
	StreamID  uint64
	ErrorCode uint64
	Err       *Error
	Path      netPath
	Success   bool
}

func newStreamReadableEvent(id uint64) Event {
	return Event{Type: EventStreamReadable, StreamID: id}
}

func newStreamWritableEvent(id uint64) Event {
	return Event{Type: EventStreamWritable, StreamID: id}
}

func newStreamResetEvent(id uint64, errorCode uint64) Event {
	return Event{Type: EventStreamReset, StreamID: id, ErrorCode: errorCode}
}

func newStreamStopSendingEvent(id uint64, errorCode uint64) Event {
	return Event{Type: EventStreamStopSending, StreamID: id, ErrorCode: errorCode}
}

func newHandshakeCompleteEvent() Event {
	return Event{Type: EventHandshakeComplete}
}

func newConnectionCloseEvent(err *Error) Event {
	return Event{Type: EventConnectionClose, Err: err}
}

func newPathValidatedEvent(path netPath, ok bool) Event {
	return Event{Type: EventPathValidated, Path: path, Success: ok}
}
