package transport

// recvBuffer is the receive side of a stream or crypto-level byte
// stream: it reassembles out-of-order bytes (via reassemblyBuffer)
// and tracks the data-model attributes named in §3 — last_rx_offset
// (the highest byte offset seen) and the final size once a fin (or
// RST_STREAM) has fixed it.
type recvBuffer struct {
	rob          reassemblyBuffer
	readOffset   uint64 // consumed by the application/handshake
	lastRxOffset uint64
	finalSize    uint64
	finSet       bool
}

// pushRecv buffers data received at offset, validating the final-size
// invariant: once fin is set, last_rx_offset is final and immutable.
// Returns the number of previously-uncredited bytes this frame
// contributes to flow control (bytes beyond any offset already seen,
// regardless of reordering), so the caller can charge flow control
// exactly once per byte.
func (b *recvBuffer) pushRecv(data []byte, offset uint64, fin bool) (int, *Error) {
	end := offset + uint64(len(data))
	if b.finSet {
		if end > b.finalSize || (fin && end != b.finalSize) {
			return 0, newError(FinalOffsetError, "data beyond final size")
		}
	}
	if fin {
		if end < b.lastRxOffset {
			return 0, newError(FinalOffsetError, "fin offset below bytes already seen")
		}
		b.finSet = true
		b.finalSize = end
	}
	newBytes := 0
	if end > b.lastRxOffset {
		newBytes = int(end - b.lastRxOffset)
		b.lastRxOffset = end
	}
	b.rob.push(data, offset)
	return newBytes, nil
}

// popRecv returns the next contiguous chunk ready for the
// application/handshake to consume, in ascending offset order.
func (b *recvBuffer) popRecv() (data []byte, offset uint64, fin bool, ok bool) {
	d, found := b.rob.popFront(b.readOffset)
	if !found {
		return nil, 0, false, false
	}
	start := b.readOffset
	b.readOffset += uint64(len(d))
	fin = b.finSet && b.readOffset == b.finalSize
	return d, start, fin, true
}

// reset applies a RST_STREAM's final_offset, as if a fin had arrived
// at that offset with no further data. Returns the number of
// previously-uncredited bytes it commits to flow control.
func (b *recvBuffer) reset(finalSize uint64) (int, *Error) {
	if b.finSet && b.finalSize != finalSize {
		return 0, newError(FinalOffsetError, "conflicting final size")
	}
	if finalSize < b.lastRxOffset {
		return 0, newError(FinalOffsetError, "final size below bytes already seen")
	}
	newBytes := 0
	if finalSize > b.lastRxOffset {
		newBytes = int(finalSize - b.lastRxOffset)
		b.lastRxOffset = finalSize
	}
	b.finSet = true
	b.finalSize = finalSize
	return newBytes, nil
}

func (b *recvBuffer) dataRecvd() bool {
	return b.finSet && b.rob.empty() && b.readOffset == b.finalSize
}
