package transport

import "time"

// Config carries everything a Conn needs at construction time: the
// transport parameters this endpoint will advertise, plus a handful
// of implementation-level tunables that have no wire representation
// (§4.7, §5).
type Config struct {
	// TLS parameters exchanged during the handshake.
	Params Parameters

	// MaxIdleTimeout bounds how long the connection tolerates silence
	// from the peer before closing itself (§4.9).
	MaxIdleTimeout time.Duration

	// MaxUDPPayloadSize is the datagram size this configuration is
	// tuned for. Conn does not consult it when building packets (the
	// buffer passed to Send bounds a datagram) and does not pad Initial
	// packets to it; a zero value makes the Conn constructors substitute
	// DefaultConfig() for the whole Config.
	MaxUDPPayloadSize int

	// TokenStore holds resumption tokens for a host that wants to keep
	// them. Conn itself neither reads nor writes it, and does not store
	// tokens from NEW_TOKEN frames in it.
	TokenStore TokenStore
}

// TokenStore persists NEW_TOKEN/Retry tokens across connection
// attempts to the same server, keyed by server name.
type TokenStore interface {
	Get(serverName string) []byte
	Put(serverName string, token []byte)
}

// DefaultConfig returns the RFC-mandated default transport parameters
// and tunables applied whenever a Config with a zero MaxUDPPayloadSize
// is passed to NewClientConn/NewServerConn. Hosts that want to see
// (and advertise to a Handshaker) the parameters a Conn will actually
// use should call this themselves rather than relying on the
// constructors' implicit substitution.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		MaxIdleTimeout:    30 * time.Second,
		MaxUDPPayloadSize: 1452,
		Params: Parameters{
			InitialMaxData:                 1 << 20,
			InitialMaxStreamDataBidiLocal:  1 << 16,
			InitialMaxStreamDataBidiRemote: 1 << 16,
			InitialMaxStreamDataUni:        1 << 16,
			InitialMaxStreamsBidi:          100,
			InitialMaxStreamsUni:           100,
		},
	}
}
