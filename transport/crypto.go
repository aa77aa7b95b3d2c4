package transport

// cryptoLevelStream is the per-packet-number-space ordered byte
// stream that feeds the TLS handshake collaborator, and drains bytes
// the collaborator produces back out in CRYPTO frames (§4.6). Unlike
// a Stream, it carries no flow control: crypto data is exempt from
// flow control by definition.
type cryptoLevelStream struct {
	send sendBuffer
	recv recvBuffer
}

// pushRecv buffers a received CRYPTO frame's payload.
func (c *cryptoLevelStream) pushRecv(data []byte, offset uint64) *Error {
	_, err := c.recv.pushRecv(data, offset, false)
	return err
}

// drainRecv returns the next contiguous chunk of handshake bytes
// ready for the TLS collaborator to consume, if any.
func (c *cryptoLevelStream) drainRecv() ([]byte, bool) {
	data, _, _, ok := c.recv.popRecv()
	return data, ok
}

// queueSend appends bytes the TLS collaborator produced for
// transmission at this encryption level.
func (c *cryptoLevelStream) queueSend(data []byte) *Error {
	return c.send.write(data, false)
}

func (c *cryptoLevelStream) popSend(max int) (data []byte, offset uint64) {
	d, off, _ := c.send.popSend(max)
	return d, off
}

func (c *cryptoLevelStream) ack(offset, length uint64) {
	c.send.ack(offset, length)
}

// push re-queues a declared-lost CRYPTO range for retransmission.
func (c *cryptoLevelStream) push(data []byte, offset uint64) *Error {
	return c.send.push(data, offset, false)
}

func (c *cryptoLevelStream) hasPending() bool {
	return !c.send.empty()
}
