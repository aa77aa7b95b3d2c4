package quic

import (
	"crypto/tls"

	"github.com/quincequic/quince/transport"
)

// Config bundles the TLS configuration this endpoint uses for the
// handshake alongside the wire-level transport.Config. Zero value is
// usable: an empty transport.Config gets RFC-mandated defaults filled
// in when the first connection is created, and an empty tls.Config is
// only valid for a client talking to a server whose certificate chain
// the system root pool already trusts.
type Config struct {
	TLS       tls.Config
	Transport transport.Config
}
