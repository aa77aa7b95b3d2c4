package transport

// robChunk is a buffered range of received-but-not-yet-contiguous
// bytes: [offset, offset+len(data)).
type robChunk struct {
	offset uint64
	data   []byte
}

func (c robChunk) end() uint64 {
	return c.offset + uint64(len(c.data))
}

// reassemblyBuffer (ROB) buffers out-of-order received bytes keyed by
// offset, merging overlapping/duplicate ranges, and exposes the
// contiguous prefix ready for the application/handshake consumer.
// Mirrors ngtcp2_rob.
type reassemblyBuffer struct {
	chunks []robChunk // sorted ascending by offset, non-overlapping
}

// push stores data at offset, discarding any bytes already covered
// and merging with adjacent/overlapping buffered chunks.
func (b *reassemblyBuffer) push(data []byte, offset uint64) {
	if len(data) == 0 {
		return
	}
	end := offset + uint64(len(data))
	i := 0
	for i < len(b.chunks) && b.chunks[i].end() < offset {
		i++
	}
	j := i
	lo, hi := offset, end
	for j < len(b.chunks) && b.chunks[j].offset <= hi {
		if b.chunks[j].offset < lo {
			lo = b.chunks[j].offset
		}
		if b.chunks[j].end() > hi {
			hi = b.chunks[j].end()
		}
		j++
	}
	merged := make([]byte, hi-lo)
	for _, c := range b.chunks[i:j] {
		copy(merged[c.offset-lo:], c.data)
	}
	copy(merged[offset-lo:], data)
	out := make([]robChunk, 0, len(b.chunks)-(j-i)+1)
	out = append(out, b.chunks[:i]...)
	out = append(out, robChunk{offset: lo, data: merged})
	out = append(out, b.chunks[j:]...)
	b.chunks = out
}

// firstGapOffset returns the offset of the first byte not yet
// received, assuming data is consumed from offset 0.
func (b *reassemblyBuffer) firstGapOffset() uint64 {
	if len(b.chunks) == 0 || b.chunks[0].offset != 0 {
		return 0
	}
	return b.chunks[0].end()
}

// popFront removes and returns the front chunk, if it starts exactly
// at consumed, for the consumer to read. The caller passes the
// offset it has already consumed up to; popFront only returns data
// contiguous with it.
func (b *reassemblyBuffer) popFront(consumed uint64) ([]byte, bool) {
	if len(b.chunks) == 0 || b.chunks[0].offset != consumed {
		return nil, false
	}
	c := b.chunks[0]
	b.chunks = b.chunks[1:]
	return c.data, true
}

func (b *reassemblyBuffer) empty() bool {
	return len(b.chunks) == 0
}
