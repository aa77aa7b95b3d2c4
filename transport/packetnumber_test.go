package transport

import "testing"

func TestPacketNumberRoundTrip(t *testing.T) {
	cases := []struct {
		largest uint64
		pn      uint64
	}{
		{largest: 0, pn: 0},
		{largest: 0, pn: 1},
		{largest: 100, pn: 101},
		{largest: 0x7fff, pn: 0x8000},
		{largest: 1 << 20, pn: 1<<20 + 50},
	}
	for _, c := range cases {
		length := packetNumberLen(c.pn, c.largest)
		b := make([]byte, length)
		encodePacketNumber(b, c.pn, length)
		truncated := decodePacketNumberTruncated(b)
		got := decodePacketNumber(truncated, length, c.largest)
		if got != c.pn {
			t.Fatalf("largest=%d pn=%d: reconstructed %d (length %d)", c.largest, c.pn, got, length)
		}
	}
}

// TestPacketNumberReorderingWindow checks that a packet number well
// below the largest-acked, but still within the truncation window,
// round-trips correctly -- this is the case truncation exists to
// handle cheaply (most packets are close to the largest sent).
func TestPacketNumberReorderingWindow(t *testing.T) {
	largest := uint64(1000)
	pn := uint64(990)
	length := packetNumberLen(pn, largest)
	b := make([]byte, length)
	encodePacketNumber(b, pn, length)
	truncated := decodePacketNumberTruncated(b)
	got := decodePacketNumber(truncated, length, largest)
	if got != pn {
		t.Fatalf("reordered packet number: got %d, want %d", got, pn)
	}
}
