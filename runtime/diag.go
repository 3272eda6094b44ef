package cbor

import (
	"encoding/hex"
	"math"
	"math/big"
	"strconv"
)

// Diag renders a CBOR payload in a diagnostic notation close to the RFC
// 8949 one, driven entirely by the token scanner. Chunked strings keep
// their (_ ...) chunk structure; bignums and decimal fractions render as
// their materialized values; epoch timestamps keep the 1(...) tag form.
// Top-level sequences are comma separated.
func Diag(b []byte) (string, error) {
	bb := GetByteBuffer()
	defer PutByteBuffer(bb)

	type diagFrame struct {
		m        bool // map
		indef    bool
		first    bool
		afterKey bool
	}
	var frames []diagFrame
	topFirst := true

	writeSep := func() {
		if len(frames) == 0 {
			if !topFirst {
				bb.WriteString(", ")
			}
			topFirst = false
			return
		}
		f := &frames[len(frames)-1]
		if f.afterKey {
			bb.WriteString(": ")
			f.afterKey = false
			return
		}
		if f.first {
			if f.indef {
				bb.WriteString(" ")
			}
			f.first = false
			return
		}
		bb.WriteString(", ")
	}

	s := NewScanner(b)
	for {
		tok, err := s.Advance()
		if err != nil {
			return "", err
		}
		if tok == TokenFinished {
			break
		}
		pos, sz := s.Position(), s.ItemLength()

		switch tok {
		case TokenStartArray, TokenStartObject:
			writeSep()
			f := diagFrame{m: tok == TokenStartObject, indef: s.CollectionSize() < 0, first: true}
			if f.m {
				bb.WriteString("{")
			} else {
				bb.WriteString("[")
			}
			if f.indef {
				bb.WriteString("_")
			}
			frames = append(frames, f)

		case TokenEndArray, TokenEndObject:
			frames = frames[:len(frames)-1]
			if tok == TokenEndObject {
				bb.WriteString("}")
			} else {
				bb.WriteString("]")
			}

		case TokenKey:
			writeSep()
			if err := diagString(bb, b, pos, sz); err != nil {
				return "", err
			}
			frames[len(frames)-1].afterKey = true

		case TokenText:
			writeSep()
			if err := diagString(bb, b, pos, sz); err != nil {
				return "", err
			}

		case TokenBytes:
			writeSep()
			if err := diagHex(bb, b, pos); err != nil {
				return "", err
			}

		case TokenPosInt:
			writeSep()
			u, err := ReadUnsigned(b, pos, sz)
			if err != nil {
				return "", err
			}
			bb.WriteString(strconv.FormatUint(u, 10))

		case TokenNegInt:
			writeSep()
			u, err := ReadUnsigned(b, pos, sz)
			if err != nil {
				return "", err
			}
			bb.WriteString(formatNegArg(u))

		case TokenFloat:
			writeSep()
			f, err := ReadFloat(b, pos, sz)
			if err != nil {
				return "", err
			}
			bb.WriteString(formatFloatDiag(f, sz))

		case TokenTrue:
			writeSep()
			bb.WriteString("true")
		case TokenFalse:
			writeSep()
			bb.WriteString("false")
		case TokenNull:
			writeSep()
			bb.WriteString("null")

		case TokenPosBignum, TokenNegBignum:
			writeSep()
			z, err := ReadBigInt(b, tok, pos, sz)
			if err != nil {
				return "", err
			}
			bb.WriteString(z.String())

		case TokenBigDecimal:
			writeSep()
			d, err := ReadDecimal(b, pos, sz)
			if err != nil {
				return "", err
			}
			bb.WriteString(d.String())

		case TokenEpochPosInt, TokenEpochNegInt:
			writeSep()
			v, err := ReadLong(b, tok, pos, sz)
			if err != nil {
				return "", err
			}
			bb.WriteString("1(" + strconv.FormatInt(v, 10) + ")")

		case TokenEpochFloat:
			writeSep()
			f, err := ReadFloat(b, pos, sz)
			if err != nil {
				return "", err
			}
			bb.WriteString("1(" + formatFloatDiag(f, sz) + ")")
		}
	}

	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return UnsafeString(out), nil
}

// diagString renders a text string, keeping chunk structure for
// indefinite-length encodings.
func diagString(bb *ByteBuffer, b []byte, pos, sz int) error {
	if getAddInfo(b[pos]) != addInfoIndefinite {
		v, err := ReadTextString(b, pos, sz)
		if err != nil {
			return err
		}
		bb.WriteString(strconv.Quote(v))
		return nil
	}
	bb.WriteString("(_")
	it := newChunkIter(b, pos, majorTypeText)
	first := true
	for {
		chunk, ok := it.next()
		if !ok {
			break
		}
		if first {
			bb.WriteString(" ")
			first = false
		} else {
			bb.WriteString(", ")
		}
		bb.WriteString(strconv.Quote(string(chunk)))
	}
	if it.err != nil {
		return it.err
	}
	bb.WriteString(")")
	return nil
}

// diagHex renders a byte string as h'..', keeping chunk structure for
// indefinite-length encodings.
func diagHex(bb *ByteBuffer, b []byte, pos int) error {
	writeOne := func(chunk []byte) {
		bb.WriteString("h'")
		d := bb.Extend(hex.EncodedLen(len(chunk)))
		hex.Encode(d, chunk)
		bb.WriteString("'")
	}
	if getAddInfo(b[pos]) != addInfoIndefinite {
		it := newChunkIter(b, pos, majorTypeBytes)
		chunk, ok := it.next()
		if !ok {
			return it.err
		}
		writeOne(chunk)
		return nil
	}
	bb.WriteString("(_")
	it := newChunkIter(b, pos, majorTypeBytes)
	first := true
	for {
		chunk, ok := it.next()
		if !ok {
			break
		}
		if first {
			bb.WriteString(" ")
			first = false
		} else {
			bb.WriteString(", ")
		}
		writeOne(chunk)
	}
	if it.err != nil {
		return it.err
	}
	bb.WriteString(")")
	return nil
}

// formatNegArg renders a major type 1 argument as -(arg)-1, going
// through big.Int when the value exceeds int64.
func formatNegArg(u uint64) string {
	if u <= math.MaxInt64 {
		return strconv.FormatInt(-1-int64(u), 10)
	}
	z := new(big.Int).SetUint64(u)
	z.Add(z, bigOne)
	z.Neg(z)
	return z.String()
}

// formatFloatDiag returns a diagnostic string for a float, matching the
// RFC examples for the special values.
func formatFloatDiag(f float64, sz int) string {
	if math.IsInf(f, +1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	bits := 64
	if sz <= 4 {
		bits = 32
	}
	af := math.Abs(f)
	var s string
	if af == 0 || af < 1e15 {
		s = strconv.FormatFloat(f, 'f', -1, bits)
	} else {
		s = strconv.FormatFloat(f, 'g', -1, bits)
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == 'e' {
			return s
		}
	}
	return s + ".0"
}
