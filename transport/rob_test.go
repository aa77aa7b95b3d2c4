package transport

import "testing"

func TestReassemblyBufferInOrder(t *testing.T) {
	var b reassemblyBuffer
	b.push([]byte("hello"), 0)
	data, ok := b.popFront(0)
	if !ok || string(data) != "hello" {
		t.Fatalf("popFront = %q, %v, want %q, true", data, ok, "hello")
	}
	if !b.empty() {
		t.Fatal("buffer should be empty after consuming its only chunk")
	}
}

func TestReassemblyBufferOutOfOrder(t *testing.T) {
	var b reassemblyBuffer
	b.push([]byte("World"), 5)
	if _, ok := b.popFront(0); ok {
		t.Fatal("popFront should not return data with a gap at the front")
	}
	b.push([]byte("Hello"), 0)
	data, ok := b.popFront(0)
	if !ok || string(data) != "HelloWorld" {
		t.Fatalf("popFront after fill = %q, %v, want %q, true", data, ok, "HelloWorld")
	}
}

func TestReassemblyBufferOverlapMerge(t *testing.T) {
	var b reassemblyBuffer
	b.push([]byte("aaXXaa"), 0)
	b.push([]byte("bb"), 2) // overlaps the middle
	data, ok := b.popFront(0)
	if !ok || string(data) != "aabbaa" {
		t.Fatalf("merged chunk = %q, %v, want %q, true", data, ok, "aabbaa")
	}
}

func TestReassemblyBufferFirstGapOffset(t *testing.T) {
	var b reassemblyBuffer
	if b.firstGapOffset() != 0 {
		t.Fatal("empty buffer should report the gap at 0")
	}
	b.push([]byte("abc"), 0)
	if b.firstGapOffset() != 3 {
		t.Fatalf("firstGapOffset = %d, want 3", b.firstGapOffset())
	}
	b.push([]byte("xyz"), 10) // disjoint, doesn't move the gap
	if b.firstGapOffset() != 3 {
		t.Fatalf("firstGapOffset with a later disjoint chunk = %d, want 3", b.firstGapOffset())
	}
}
