package quic

import (
	"io"
	"net"

	"github.com/quincequic/quince/transport"
)

// Client drives outbound connections over a single UDP socket.
type Client struct {
	ep *endpoint
	rc *remoteConn
}

// NewClient constructs a Client; a nil config uses defaults.
func NewClient(config *Config) *Client {
	return &Client{ep: newEndpoint(config, true)}
}

// SetHandler installs the Handler invoked with connection events.
func (cl *Client) SetHandler(h Handler) { cl.ep.handler = h }

// SetLogger sets the verbosity and output for this client's logger.
func (cl *Client) SetLogger(level int, w io.Writer) {
	cl.ep.logger.setLevel(logLevel(level), w)
}

// SetMetrics attaches a shared Metrics set to every connection this
// client creates from here on.
func (cl *Client) SetMetrics(m *transport.Metrics) { cl.ep.metrics = m }

// ListenAndServe opens the local UDP socket connections are sent from
// and received on.
func (cl *Client) ListenAndServe(addr string) error {
	return cl.ep.listen(addr)
}

// Connect starts a new handshake against addr.
func (cl *Client) Connect(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	handshaker, herr := newClientHandshaker(&cl.ep.config.TLS, &cl.ep.config.Transport.Params)
	if herr != nil {
		return herr
	}
	c, cerr := transport.NewClientConn(cl.ep.config.Transport, handshaker)
	if cerr != nil {
		return cerr
	}
	if cl.ep.metrics != nil {
		cl.ep.metrics.Attach(c)
	}
	rc := newRemoteConn(c, udpAddr)
	cl.ep.register(rc)
	cl.ep.logger.attachLogger(rc)
	cl.rc = rc
	if cl.ep.handler != nil {
		cl.ep.handler.Serve(rc, []Event{newAcceptEvent()})
	}
	cl.ep.drain(rc)
	return nil
}

// Close shuts down the socket and waits for its loops to exit.
func (cl *Client) Close() error {
	return cl.ep.close()
}
