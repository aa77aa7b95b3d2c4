package quic

import (
	"net"
	"sync"
	"time"

	"github.com/quincequic/quince/transport"
)

// scidLen is the connection id length this endpoint always generates
// for itself (transport.randomConnID(8) on the library side); fixed so
// PeekConnectionID can parse short headers before a Conn exists to ask.
const scidLen = 8

// endpoint is the shared read/write/timeout loop behind both Client
// and Server: a UDP socket, a registry of live connections keyed by
// the connection id a peer will address packets to, and a Handler
// that is told about every event each Conn accumulated since the last
// pass.
type endpoint struct {
	socket  net.PacketConn
	config  *Config
	handler Handler
	logger  *logger
	metrics *transport.Metrics

	mu    sync.Mutex
	conns map[string]*remoteConn

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	isClient bool
}

func newEndpoint(config *Config, isClient bool) *endpoint {
	if config == nil {
		config = &Config{}
	}
	if config.Transport.MaxUDPPayloadSize == 0 {
		config.Transport = transport.DefaultConfig()
	}
	return &endpoint{
		config:   config,
		logger:   newLogger(),
		conns:    make(map[string]*remoteConn),
		closed:   make(chan struct{}),
		isClient: isClient,
	}
}

func (e *endpoint) listen(addr string) error {
	sock, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	e.socket = sock
	e.wg.Add(2)
	go e.readLoop()
	go e.timeoutLoop()
	return nil
}

func (e *endpoint) readLoop() {
	defer e.wg.Done()
	buf := make([]byte, 65535)
	for {
		n, addr, err := e.socket.ReadFrom(buf)
		if err != nil {
			select {
			case <-e.closed:
				return
			default:
			}
			return
		}
		e.handleDatagram(append([]byte(nil), buf[:n]...), addr)
	}
}

func (e *endpoint) handleDatagram(b []byte, addr net.Addr) {
	dcid, ok := transport.PeekConnectionID(b, scidLen)
	if !ok {
		return
	}
	rc := e.lookup(dcid)
	if rc == nil {
		if e.isClient {
			return
		}
		var err error
		rc, err = e.acceptNew(b, addr)
		if err != nil || rc == nil {
			return
		}
	}
	path := transport.NewPath(e.socket.LocalAddr().String(), addr.String())
	rc.conn.Recv(b, path, time.Now())
	e.drain(rc)
}

func (e *endpoint) lookup(dcid transport.ConnectionID) *remoteConn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conns[string(dcid)]
}

func (e *endpoint) register(rc *remoteConn) {
	e.mu.Lock()
	e.conns[string(rc.conn.SCID())] = rc
	if od := rc.conn.OriginalDCID(); len(od) > 0 {
		e.conns[string(od)] = rc
	}
	e.mu.Unlock()
}

func (e *endpoint) unregister(rc *remoteConn) {
	e.mu.Lock()
	delete(e.conns, string(rc.conn.SCID()))
	if od := rc.conn.OriginalDCID(); len(od) > 0 {
		delete(e.conns, string(od))
	}
	e.mu.Unlock()
}

// drain flushes outgoing datagrams for rc, surfaces its accumulated
// events to the handler, and unregisters it once fully closed.
func (e *endpoint) drain(rc *remoteConn) {
	out := make([]byte, 1452)
	for {
		n, err := rc.conn.Send(out, time.Now())
		if err != nil || n == 0 {
			break
		}
		e.socket.WriteTo(out[:n], rc.addr)
	}
	events := rc.conn.Events()
	if len(events) > 0 && e.handler != nil {
		wrapped := make([]Event, len(events))
		for i, ev := range events {
			wrapped[i] = wrapTransportEvent(ev)
		}
		e.handler.Serve(rc, wrapped)
	}
	if rc.conn.IsClosed() {
		e.unregister(rc)
		if e.handler != nil {
			e.handler.Serve(rc, []Event{newCloseEvent()})
		}
		e.logger.detachLogger(rc)
	}
}

func (e *endpoint) acceptNew(b []byte, addr net.Addr) (*remoteConn, error) {
	h, _, derr := transport.DecodeInitialHeader(b)
	if derr != nil {
		return nil, derr
	}
	handshaker, err := newServerHandshaker(&e.config.TLS, &e.config.Transport.Params)
	if err != nil {
		return nil, err
	}
	c, cerr := transport.NewServerConn(e.config.Transport, handshaker, h.DCID, h.SCID)
	if cerr != nil {
		return nil, cerr
	}
	if e.metrics != nil {
		e.metrics.Attach(c)
	}
	rc := newRemoteConn(c, addr)
	e.register(rc)
	e.logger.attachLogger(rc)
	if e.handler != nil {
		e.handler.Serve(rc, []Event{newAcceptEvent()})
	}
	return rc, nil
}

func (e *endpoint) timeoutLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-e.closed:
			return
		case now := <-ticker.C:
			e.checkTimeouts(now)
		}
	}
}

func (e *endpoint) checkTimeouts(now time.Time) {
	e.mu.Lock()
	var rcs []*remoteConn
	seen := make(map[*remoteConn]bool)
	for _, rc := range e.conns {
		if !seen[rc] {
			seen[rc] = true
			rcs = append(rcs, rc)
		}
	}
	e.mu.Unlock()
	for _, rc := range rcs {
		if !rc.conn.Timeout().IsZero() && !now.Before(rc.conn.Timeout()) {
			rc.conn.CheckTimeout(now)
			e.drain(rc)
		}
	}
}

func (e *endpoint) close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		if e.socket != nil {
			e.socket.Close()
		}
	})
	e.wg.Wait()
	return nil
}
