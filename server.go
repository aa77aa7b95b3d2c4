package quic

import (
	"io"

	"github.com/quincequic/quince/transport"
)

// Server accepts inbound connections over a single UDP socket.
type Server struct {
	ep *endpoint
}

// NewServer constructs a Server; a nil config uses defaults, but TLS
// certificates must be set before ListenAndServe is called.
func NewServer(config *Config) *Server {
	return &Server{ep: newEndpoint(config, false)}
}

// SetHandler installs the Handler invoked with connection events.
func (s *Server) SetHandler(h Handler) { s.ep.handler = h }

// SetLogger sets the verbosity and output for this server's logger.
func (s *Server) SetLogger(level int, w io.Writer) {
	s.ep.logger.setLevel(logLevel(level), w)
}

// SetMetrics attaches a shared Metrics set to every connection this
// server accepts from here on.
func (s *Server) SetMetrics(m *transport.Metrics) { s.ep.metrics = m }

// ListenAndServe opens the local UDP socket and starts accepting
// connections.
func (s *Server) ListenAndServe(addr string) error {
	return s.ep.listen(addr)
}

// Close shuts down the socket and waits for its loops to exit.
func (s *Server) Close() error {
	return s.ep.close()
}
