package cbor_test

import (
	"bytes"
	"testing"

	cbor "github.com/yasmewad/cborscan/runtime"
)

func TestByteBufferPool(t *testing.T) {
	bb := cbor.GetMinSize(4096)
	if bb.Cap() < 4096 {
		t.Fatalf("cap: got %d want >= 4096", bb.Cap())
	}
	if bb.Len() != 0 {
		t.Fatalf("len: got %d want 0", bb.Len())
	}

	bb.WriteString("abc")
	d := bb.Extend(2)
	d[0], d[1] = 'd', 'e'
	if !bytes.Equal(bb.Bytes(), []byte("abcde")) {
		t.Fatalf("got %q", bb.Bytes())
	}
	cbor.PutByteBuffer(bb)

	// A fresh Get must come back empty.
	bb = cbor.GetByteBuffer()
	if bb.Len() != 0 {
		t.Fatalf("reused buffer not reset: len %d", bb.Len())
	}
	cbor.PutByteBuffer(bb)
}
