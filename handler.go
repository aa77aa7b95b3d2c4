package quic

// Handler processes the events a Conn accumulated since the last time
// it was driven, the host-visible half of the Recv/Send/Events loop
// transport.Conn exposes.
type Handler interface {
	Serve(c Conn, events []Event)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(c Conn, events []Event)

func (f HandlerFunc) Serve(c Conn, events []Event) { f(c, events) }
