package quic

import (
	"crypto/tls"

	"github.com/quincequic/quince/transport"
)

func newClientHandshaker(cfg *tls.Config, local *transport.Parameters) (transport.Handshaker, error) {
	h, err := transport.NewTLSHandshaker(true, cfg, local)
	return h, asError(err)
}

func newServerHandshaker(cfg *tls.Config, local *transport.Parameters) (transport.Handshaker, error) {
	h, err := transport.NewTLSHandshaker(false, cfg, local)
	return h, asError(err)
}
