package cbor_test

import (
	"bytes"
	"math"
	"testing"

	cbor "github.com/yasmewad/cborscan/runtime"
)

func TestReadUnsignedWidths(t *testing.T) {
	cases := []struct {
		hex  string
		sz   int
		want uint64
	}{
		{"00", 0, 0},
		{"17", 0, 23},
		{"1818", 1, 24},
		{"18ff", 1, 255},
		{"190100", 2, 256},
		{"19ffff", 2, 65535},
		{"1a00010000", 4, 65536},
		{"1affffffff", 4, 4294967295},
		{"1b0000000100000000", 8, 4294967296},
		{"1bffffffffffffffff", 8, math.MaxUint64},
	}
	for _, tc := range cases {
		v, err := cbor.ReadUnsigned(mustHex(t, tc.hex), 0, tc.sz)
		if err != nil {
			t.Fatalf("%s: %v", tc.hex, err)
		}
		if v != tc.want {
			t.Fatalf("%s: got %d want %d", tc.hex, v, tc.want)
		}
	}
}

func TestReadLongBounds(t *testing.T) {
	// Largest representable negative: -(2^63).
	v, err := cbor.ReadLong(mustHex(t, "3b7fffffffffffffff"), cbor.TokenNegInt, 0, 8)
	if err != nil || v != math.MinInt64 {
		t.Fatalf("got %d err %v", v, err)
	}
	// Largest representable positive.
	v, err = cbor.ReadLong(mustHex(t, "1b7fffffffffffffff"), cbor.TokenPosInt, 0, 8)
	if err != nil || v != math.MaxInt64 {
		t.Fatalf("got %d err %v", v, err)
	}

	// One past either end overflows.
	if _, err := cbor.ReadLong(mustHex(t, "1b8000000000000000"), cbor.TokenPosInt, 0, 8); err == nil {
		t.Fatal("expected overflow for 2^63")
	}
	if _, err := cbor.ReadLong(mustHex(t, "3b8000000000000000"), cbor.TokenNegInt, 0, 8); err == nil {
		t.Fatal("expected overflow for -(2^63)-1")
	}
}

func TestReadIntBounds(t *testing.T) {
	v, err := cbor.ReadInt(mustHex(t, "1a7fffffff"), cbor.TokenPosInt, 0, 4)
	if err != nil || v != math.MaxInt32 {
		t.Fatalf("got %d err %v", v, err)
	}
	v, err = cbor.ReadInt(mustHex(t, "3a7fffffff"), cbor.TokenNegInt, 0, 4)
	if err != nil || v != math.MinInt32 {
		t.Fatalf("got %d err %v", v, err)
	}
	if _, err := cbor.ReadInt(mustHex(t, "1a80000000"), cbor.TokenPosInt, 0, 4); err == nil {
		t.Fatal("expected overflow for 2^31")
	}
}

func TestReadFloatWidths(t *testing.T) {
	cases := []struct {
		hex  string
		sz   int
		want float64
	}{
		{"f93c00", 2, 1.0},
		{"f9c400", 2, -4.0},
		{"f90001", 2, 5.960464477539063e-8},
		{"fa47c35000", 4, 100000.0},
		{"fb3ff199999999999a", 8, 1.1},
		{"fbc010666666666666", 8, -4.1},
	}
	for _, tc := range cases {
		f, err := cbor.ReadFloat(mustHex(t, tc.hex), 0, tc.sz)
		if err != nil {
			t.Fatalf("%s: %v", tc.hex, err)
		}
		if f != tc.want {
			t.Fatalf("%s: got %v want %v", tc.hex, f, tc.want)
		}
	}

	if f, err := cbor.ReadFloat(mustHex(t, "f97c00"), 0, 2); err != nil || !math.IsInf(f, +1) {
		t.Fatalf("infinity: got %v err %v", f, err)
	}
	if f, err := cbor.ReadFloat(mustHex(t, "f97e00"), 0, 2); err != nil || !math.IsNaN(f) {
		t.Fatalf("nan: got %v err %v", f, err)
	}
}

// TestReadByteStringZeroCopy checks that a definite-length byte string
// comes back as a view of the source buffer, not a copy.
func TestReadByteStringZeroCopy(t *testing.T) {
	b := mustHex(t, "43010203")
	got, err := cbor.ReadByteString(b, 0, 3)
	if err != nil {
		t.Fatalf("ReadByteString: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %x", got)
	}
	b[1] = 0x7f
	if got[0] != 0x7f {
		t.Fatal("definite byte string was copied")
	}
}

func TestReadByteStringChunked(t *testing.T) {
	// (_ h'0102', h'03')
	b := mustHex(t, "5f4201024103ff")
	got, err := cbor.ReadByteString(b, 0, 3)
	if err != nil {
		t.Fatalf("ReadByteString: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %x", got)
	}
	// Chunked strings concatenate into fresh storage.
	b[2] = 0x7f
	if got[0] == 0x7f {
		t.Fatal("chunked byte string aliases the source buffer")
	}
}

func TestReadTextStringUTF8(t *testing.T) {
	bad := mustHex(t, "62c328")
	if _, err := cbor.ReadTextString(bad, 0, 2); err == nil {
		t.Fatal("expected UTF-8 validation error")
	}

	cbor.ValidateUTF8OnDecode = false
	defer func() { cbor.ValidateUTF8OnDecode = true }()
	if _, err := cbor.ReadTextString(bad, 0, 2); err != nil {
		t.Fatalf("validation disabled but got %v", err)
	}
}

func TestReadTextStringUnsafe(t *testing.T) {
	cbor.UnsafeStringDecode = true
	defer func() { cbor.UnsafeStringDecode = false }()

	b := mustHex(t, "6568656c6c6f")
	v, err := cbor.ReadTextString(b, 0, 5)
	if err != nil || v != "hello" {
		t.Fatalf("got %q err %v", v, err)
	}
}

func TestStringEquals(t *testing.T) {
	def := mustHex(t, "6568656c6c6f")         // "hello"
	chunked := mustHex(t, "7f626865636c6c6fff") // (_ "he", "llo")

	for _, b := range [][]byte{def, chunked} {
		if !cbor.StringEquals(b, 0, 5, []byte("hello")) {
			t.Fatalf("%x: expected match", b)
		}
		if cbor.StringEquals(b, 0, 5, []byte("hellx")) {
			t.Fatalf("%x: unexpected match", b)
		}
		if cbor.StringEquals(b, 0, 5, []byte("hell")) {
			t.Fatalf("%x: length mismatch matched", b)
		}
	}
}

// TestStringRegionsEqual compares two differently chunked encodings of
// the same text without materializing either.
func TestStringRegionsEqual(t *testing.T) {
	b := append(mustHex(t, "6568656c6c6f"), mustHex(t, "7f626865636c6c6fff")...)
	if !cbor.StringRegionsEqual(b, 0, 5, 6, 5) {
		t.Fatal("expected equal regions")
	}

	b = append(mustHex(t, "6568656c6c6f"), mustHex(t, "65776f726c64")...)
	if cbor.StringRegionsEqual(b, 0, 5, 6, 5) {
		t.Fatal("hello vs world reported equal")
	}
}

func TestReadDecimalExponentOverflow(t *testing.T) {
	// 4([2^32, 1])
	b := mustHex(t, "c4821b000000010000000001")
	s := cbor.NewScanner(b)
	if tok, err := s.Advance(); err != nil || tok != cbor.TokenBigDecimal {
		t.Fatalf("got %v err %v", tok, err)
	}
	_, err := cbor.ReadDecimal(b, s.Position(), s.ItemLength())
	if err == nil {
		t.Fatal("expected exponent overflow")
	}
	if err.Error() != "cbor: decimal fraction exponent cannot fit into an int" {
		t.Fatalf("message: got %q", err.Error())
	}
}

func TestDecimalString(t *testing.T) {
	b := mustHex(t, "c48203c249010000000000000000") // 4([3, 2^64])
	s := cbor.NewScanner(b)
	if tok, err := s.Advance(); err != nil || tok != cbor.TokenBigDecimal {
		t.Fatalf("got %v err %v", tok, err)
	}
	d, err := cbor.ReadDecimal(b, s.Position(), s.ItemLength())
	if err != nil {
		t.Fatalf("ReadDecimal: %v", err)
	}
	if got := d.String(); got != "18446744073709551.616" {
		t.Fatalf("String: got %q", got)
	}

	// Small-magnitude coefficients pad with leading zeros.
	b2 := mustHex(t, "c4820301") // 4([3, 1])
	s2 := cbor.NewScanner(b2)
	if _, err := s2.Advance(); err != nil {
		t.Fatal(err)
	}
	d2, err := cbor.ReadDecimal(b2, s2.Position(), s2.ItemLength())
	if err != nil {
		t.Fatalf("ReadDecimal: %v", err)
	}
	if got := d2.String(); got != "0.001" {
		t.Fatalf("String: got %q", got)
	}
}
