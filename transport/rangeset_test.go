package transport

import "testing"

func TestRangeSetMerge(t *testing.T) {
	var s rangeSet
	s.push(5, 10)
	s.push(12, 15)
	s.push(11, 11) // bridges the two ranges
	if len(s.ranges) != 1 {
		t.Fatalf("expected one merged range, got %v", s.ranges)
	}
	if s.ranges[0] != (rangeRange{5, 15}) {
		t.Fatalf("merged range = %v, want {5 15}", s.ranges[0])
	}
}

func TestRangeSetContains(t *testing.T) {
	var s rangeSet
	s.push(0, 3)
	s.push(10, 10)
	for _, v := range []uint64{0, 1, 3, 10} {
		if !s.contains(v) {
			t.Fatalf("contains(%d) = false, want true", v)
		}
	}
	for _, v := range []uint64{4, 9, 11} {
		if s.contains(v) {
			t.Fatalf("contains(%d) = true, want false", v)
		}
	}
}

func TestRangeSetRemoveUntil(t *testing.T) {
	var s rangeSet
	s.push(0, 20)
	s.removeUntil(9)
	if got, ok := s.largest(); !ok || got != 20 {
		t.Fatalf("largest after removeUntil = %d, %v", got, ok)
	}
	if s.contains(9) || !s.contains(10) {
		t.Fatalf("removeUntil(9) left boundary wrong: %v", s.ranges)
	}
}

func TestRangeSetFirstGapOffset(t *testing.T) {
	var s rangeSet
	if s.firstGapOffset() != 0 {
		t.Fatal("empty set should report gap at 0")
	}
	s.push(0, 9)
	if s.firstGapOffset() != 10 {
		t.Fatalf("firstGapOffset = %d, want 10", s.firstGapOffset())
	}
	s.push(20, 29) // not contiguous with [0,9]
	if s.firstGapOffset() != 10 {
		t.Fatalf("firstGapOffset with a later disjoint range = %d, want 10", s.firstGapOffset())
	}
}

func TestRangeSetDescending(t *testing.T) {
	var s rangeSet
	s.push(0, 5)
	s.push(10, 12)
	desc := s.descending()
	if len(desc) != 2 || desc[0].lo != 10 || desc[1].lo != 0 {
		t.Fatalf("descending() = %v, want highest range first", desc)
	}
}
