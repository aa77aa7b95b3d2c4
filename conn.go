package quic

import (
	"net"

	"github.com/quincequic/quince/transport"
)

// Conn is the host-facing view of one connection: everything
// wire-level lives in *transport.Conn, this just adds the network
// address a Client/Server needs in order to address reply datagrams.
type Conn interface {
	RemoteAddr() net.Addr
	Stream(id uint64) *transport.Stream
	OpenStream(bidi bool) (*transport.Stream, error)
	Close(code uint64, reason string) error
	TraceID() string
}

// remoteConn is the concrete Conn both Client and Server hand to a
// Handler.
type remoteConn struct {
	conn *transport.Conn
	addr net.Addr
}

func newRemoteConn(c *transport.Conn, addr net.Addr) *remoteConn {
	return &remoteConn{conn: c, addr: addr}
}

func (c *remoteConn) RemoteAddr() net.Addr { return c.addr }

func (c *remoteConn) Stream(id uint64) *transport.Stream {
	s, ok := c.conn.Stream(id)
	if !ok {
		return nil
	}
	return s
}

func (c *remoteConn) OpenStream(bidi bool) (*transport.Stream, error) {
	s, err := c.conn.OpenStream(bidi)
	return s, asError(err)
}

func (c *remoteConn) Close(code uint64, reason string) error {
	return asError(c.conn.Close(code, reason, true))
}

func (c *remoteConn) TraceID() string { return c.conn.TraceID() }

// asError converts the library's *transport.Error, a typed nil that
// would otherwise satisfy the error interface as non-nil, into a
// proper nil error.
func asError(e *transport.Error) error {
	if e == nil {
		return nil
	}
	return e
}
