package transport

// sendChunk is a pending outgoing range of bytes, still on the queue
// either because it has never been sent or because it was declared
// lost and must be retransmitted.
type sendChunk struct {
	offset uint64
	data   []byte
	fin    bool
}

func (c sendChunk) end() uint64 {
	return c.offset + uint64(len(c.data))
}

// sendBuffer is the per-stream/per-crypto-level outgoing byte queue:
// a key-sorted (by offset) list of pending chunks plus a gap-tracking
// set of acknowledged ranges. It plays the role of ngtcp2_strm's
// streamfrq (pending chunks) and acked_tx_offset (gaptr) together.
//
// Buffers handed to write/push are borrowed: the caller must keep
// them alive until the corresponding ack fires, per §5.
type sendBuffer struct {
	queue      []sendChunk // sorted ascending by offset, non-overlapping
	tailOffset uint64      // offset of the next byte appended by write
	finalSize  uint64
	finSet     bool
	acked      rangeSet
}

// write appends newly-produced application/handshake data to the
// tail of the stream.
func (b *sendBuffer) write(data []byte, fin bool) *Error {
	if b.finSet {
		return newError(InternalError, "write after fin")
	}
	if len(data) > 0 {
		b.queue = append(b.queue, sendChunk{offset: b.tailOffset, data: data})
		b.tailOffset += uint64(len(data))
	}
	if fin {
		b.finSet = true
		b.finalSize = b.tailOffset
		// Mark fin on the last chunk so popSend can see it, or append
		// an empty fin-only marker chunk if there was no data.
		if len(b.queue) > 0 && b.queue[len(b.queue)-1].end() == b.finalSize {
			b.queue[len(b.queue)-1].fin = true
		} else {
			b.queue = append(b.queue, sendChunk{offset: b.finalSize, fin: true})
		}
	}
	return nil
}

// push re-queues data declared lost, for retransmission. Keeps the
// queue sorted by offset.
func (b *sendBuffer) push(data []byte, offset uint64, fin bool) *Error {
	c := sendChunk{offset: offset, data: data, fin: fin}
	i := 0
	for i < len(b.queue) && b.queue[i].offset < offset {
		i++
	}
	b.queue = append(b.queue, sendChunk{})
	copy(b.queue[i+1:], b.queue[i:])
	b.queue[i] = c
	return nil
}

// popSend removes and returns up to max bytes of pending data from
// the front of the queue, splitting a chunk if it is larger than max.
// fin is true only when the returned bytes are immediately followed
// by the end of the stream.
func (b *sendBuffer) popSend(max int) (data []byte, offset uint64, fin bool) {
	if len(b.queue) == 0 || max <= 0 {
		return nil, 0, false
	}
	c := b.queue[0]
	if len(c.data) == 0 {
		// fin-only marker
		b.queue = b.queue[1:]
		return nil, c.offset, c.fin
	}
	if len(c.data) <= max {
		b.queue = b.queue[1:]
		return c.data, c.offset, c.fin
	}
	head := c.data[:max]
	rest := sendChunk{offset: c.offset + uint64(max), data: c.data[max:], fin: c.fin}
	b.queue[0] = rest
	return head, c.offset, false
}

// ack records [offset, offset+length) as acknowledged.
func (b *sendBuffer) ack(offset uint64, length uint64) {
	if length == 0 {
		return
	}
	b.acked.push(offset, offset+length-1)
}

// complete reports whether every byte up to and including fin has
// been acknowledged.
func (b *sendBuffer) complete() bool {
	if !b.finSet {
		return false
	}
	if b.finalSize == 0 {
		return true
	}
	return b.acked.firstGapOffset() >= b.finalSize
}

// empty reports whether there is no pending data to send.
func (b *sendBuffer) empty() bool {
	return len(b.queue) == 0
}
