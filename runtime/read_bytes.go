package cbor

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/x448/float16"
)

var be = binary.BigEndian

var bigOne = big.NewInt(1)

// The read utilities materialize scalar values from positions reported
// by the Scanner: off is the absolute offset of the item's header byte
// (tag bytes already stripped) and sz is the item's logical length as
// reported by ItemLength. Every function re-validates bounds so it is
// also safe to call against untrusted offsets.

// argLen returns the number of additional bytes encoding the argument
// of a header whose additional info is add: 0, 1, 2, 4, or 8.
func argLen(add uint8) (int, error) {
	switch {
	case add <= addInfoDirect:
		return 0, nil
	case add == addInfoUint8:
		return 1, nil
	case add == addInfoUint16:
		return 2, nil
	case add == addInfoUint32:
		return 4, nil
	case add == addInfoUint64:
		return 8, nil
	default:
		return 0, malformedf("illegal arg length type %d", add)
	}
}

// readArg reads the integer argument of the header at off. The operand
// width n must already be bounds-checked. n == 0 reads the value from
// the minor bits of the header byte itself.
func readArg(b []byte, off, n int) uint64 {
	switch n {
	case 0:
		return uint64(getAddInfo(b[off]))
	case 1:
		return uint64(b[off+1])
	case 2:
		return uint64(be.Uint16(b[off+1:]))
	case 4:
		return uint64(be.Uint32(b[off+1:]))
	default:
		return be.Uint64(b[off+1:])
	}
}

// ReadUnsigned reconstructs a big-endian unsigned integer from the sz
// (0, 1, 2, 4, or 8) operand bytes of the header at off. sz == 0 reads
// the value embedded in the header's minor bits.
func ReadUnsigned(b []byte, off, sz int) (uint64, error) {
	switch sz {
	case 0, 1, 2, 4, 8:
	default:
		return 0, malformedf("illegal arg length %d", sz)
	}
	if off < 0 || off >= len(b) || len(b)-off < 1+sz {
		return 0, malformed("unexpected end of payload")
	}
	return readArg(b, off, sz), nil
}

// ReadLong reads a signed 64-bit integer for an integer-valued token.
// Negative-integer items decode as -(argument)-1 per the CBOR encoding.
// Arguments above math.MaxInt64 cannot be represented and fail.
func ReadLong(b []byte, tok Token, off, sz int) (int64, error) {
	u, err := ReadUnsigned(b, off, sz)
	if err != nil {
		return 0, err
	}
	switch tok {
	case TokenPosInt, TokenEpochPosInt:
		if u > math.MaxInt64 {
			return 0, malformed("value cannot fit into a long")
		}
		return int64(u), nil
	case TokenNegInt, TokenEpochNegInt:
		if u > math.MaxInt64 {
			return 0, malformed("value cannot fit into a long")
		}
		return -1 - int64(u), nil
	default:
		return 0, malformedf("%s is not an integer token", tok)
	}
}

// ReadInt is ReadLong narrowed to 32 bits.
func ReadInt(b []byte, tok Token, off, sz int) (int32, error) {
	v, err := ReadLong(b, tok, off, sz)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, malformed("value cannot fit into an int")
	}
	return int32(v), nil
}

// stringExtent measures the (possibly chunked) string at off without
// touching payload bytes: the logical payload length and the number of
// header/terminator bytes. end bounds the readable window.
func stringExtent(b []byte, end, off int, major uint8) (sz, head int, err error) {
	if off < 0 || off >= end {
		return 0, 0, malformed("unexpected end of payload")
	}
	lead := b[off]
	if getMajorType(lead) != major {
		return 0, 0, malformedf("expected major type %d, found %d", major, getMajorType(lead))
	}
	add := getAddInfo(lead)
	if add != addInfoIndefinite {
		n, err := argLen(add)
		if err != nil {
			return 0, 0, err
		}
		if end-off < 1+n {
			return 0, 0, malformed("unexpected end of payload")
		}
		v := readArg(b, off, n)
		if v > uint64(end-(off+1+n)) {
			return 0, 0, malformed("unexpected end of payload")
		}
		return int(v), 1 + n, nil
	}
	// Indefinite: a run of definite chunks of the same major type,
	// terminated by a break byte.
	p := off + 1
	head = 1
	for {
		if p >= end {
			return 0, 0, malformed("non-terminating string")
		}
		c := b[p]
		if c == makeByte(majorTypeSimple, simpleBreak) {
			return sz, head + 1, nil
		}
		if getMajorType(c) != major {
			return 0, 0, malformed("invalid chunk in indefinite-length string")
		}
		cadd := getAddInfo(c)
		if cadd == addInfoIndefinite {
			return 0, 0, malformed("nested indefinite-length string")
		}
		n, err := argLen(cadd)
		if err != nil {
			return 0, 0, err
		}
		if end-p < 1+n {
			return 0, 0, malformed("non-terminating string")
		}
		v := readArg(b, p, n)
		if v > uint64(end-(p+1+n)) {
			return 0, 0, malformed("non-terminating string")
		}
		sz += int(v)
		head += 1 + n
		p += 1 + n + int(v)
	}
}

// chunkIter walks the payload regions of the string at off, definite or
// chunked, without copying. A definite string yields a single chunk.
type chunkIter struct {
	b     []byte
	p     int
	major uint8
	indef bool
	done  bool
	err   error
}

func newChunkIter(b []byte, off int, major uint8) chunkIter {
	it := chunkIter{b: b, p: off, major: major}
	if off < 0 || off >= len(b) {
		it.err = malformed("unexpected end of payload")
		it.done = true
		return it
	}
	if getMajorType(b[off]) != major {
		it.err = malformedf("expected major type %d, found %d", major, getMajorType(b[off]))
		it.done = true
		return it
	}
	if getAddInfo(b[off]) == addInfoIndefinite {
		it.indef = true
		it.p = off + 1
	}
	return it
}

// next returns the next payload chunk. ok is false at the end of the
// string or on error; check err after the walk.
func (it *chunkIter) next() (chunk []byte, ok bool) {
	if it.done {
		return nil, false
	}
	if it.indef {
		if it.p >= len(it.b) {
			it.err = malformed("non-terminating string")
			it.done = true
			return nil, false
		}
		if it.b[it.p] == makeByte(majorTypeSimple, simpleBreak) {
			it.done = true
			return nil, false
		}
		if getMajorType(it.b[it.p]) != it.major || getAddInfo(it.b[it.p]) == addInfoIndefinite {
			it.err = malformed("invalid chunk in indefinite-length string")
			it.done = true
			return nil, false
		}
	} else {
		it.done = true
	}
	n, err := argLen(getAddInfo(it.b[it.p]))
	if err != nil {
		it.err = err
		it.done = true
		return nil, false
	}
	if len(it.b)-it.p < 1+n {
		it.err = malformed("unexpected end of payload")
		it.done = true
		return nil, false
	}
	v := readArg(it.b, it.p, n)
	start := it.p + 1 + n
	if v > uint64(len(it.b)-start) {
		it.err = malformed("unexpected end of payload")
		it.done = true
		return nil, false
	}
	it.p = start + int(v)
	return it.b[start : start+int(v)], true
}

// ReadByteString reads the byte string at off. Definite-length strings
// return a zero-copy view of the buffer; chunked strings concatenate
// into one destination slice sized by sz, the precomputed logical
// length.
func ReadByteString(b []byte, off, sz int) ([]byte, error) {
	if off < 0 || off >= len(b) {
		return nil, malformed("unexpected end of payload")
	}
	if getAddInfo(b[off]) != addInfoIndefinite {
		it := newChunkIter(b, off, majorTypeBytes)
		chunk, ok := it.next()
		if !ok {
			return nil, it.err
		}
		return chunk, nil
	}
	out := make([]byte, 0, sz)
	it := newChunkIter(b, off, majorTypeBytes)
	for {
		chunk, ok := it.next()
		if !ok {
			break
		}
		out = append(out, chunk...)
	}
	if it.err != nil {
		return nil, it.err
	}
	return out, nil
}

// ReadTextString reads the text string at off as a string, honoring the
// ValidateUTF8OnDecode and UnsafeStringDecode package options.
func ReadTextString(b []byte, off, sz int) (string, error) {
	if off < 0 || off >= len(b) {
		return "", malformed("unexpected end of payload")
	}
	if getAddInfo(b[off]) != addInfoIndefinite {
		it := newChunkIter(b, off, majorTypeText)
		chunk, ok := it.next()
		if !ok {
			return "", it.err
		}
		if ValidateUTF8OnDecode && !isUTF8Valid(chunk) {
			return "", malformed("invalid UTF-8 in text string")
		}
		if UnsafeStringDecode {
			return UnsafeString(chunk), nil
		}
		return string(chunk), nil
	}
	out := make([]byte, 0, sz)
	it := newChunkIter(b, off, majorTypeText)
	for {
		chunk, ok := it.next()
		if !ok {
			break
		}
		out = append(out, chunk...)
	}
	if it.err != nil {
		return "", it.err
	}
	if ValidateUTF8OnDecode && !isUTF8Valid(out) {
		return "", malformed("invalid UTF-8 in text string")
	}
	// out is freshly allocated and never escapes, so the zero-copy
	// conversion is safe here regardless of the package option.
	return UnsafeString(out), nil
}

// StringEquals reports whether the text or byte string at off equals
// want, byte for byte, without materializing it. Chunked strings are
// walked in place. Malformed input compares unequal.
func StringEquals(b []byte, off, sz int, want []byte) bool {
	if sz != len(want) || off < 0 || off >= len(b) {
		return false
	}
	major := getMajorType(b[off])
	if major != majorTypeBytes && major != majorTypeText {
		return false
	}
	it := newChunkIter(b, off, major)
	rest := want
	for {
		chunk, ok := it.next()
		if !ok {
			break
		}
		if len(chunk) > len(rest) || !bytes.Equal(chunk, rest[:len(chunk)]) {
			return false
		}
		rest = rest[len(chunk):]
	}
	return it.err == nil && len(rest) == 0
}

// StringRegionsEqual compares two string regions of the same buffer
// without allocating, walking chunk boundaries independently on each
// side. Malformed input compares unequal.
func StringRegionsEqual(b []byte, offA, szA, offB, szB int) bool {
	if szA != szB {
		return false
	}
	if offA < 0 || offA >= len(b) || offB < 0 || offB >= len(b) {
		return false
	}
	majA, majB := getMajorType(b[offA]), getMajorType(b[offB])
	if majA != majorTypeBytes && majA != majorTypeText {
		return false
	}
	if majB != majorTypeBytes && majB != majorTypeText {
		return false
	}
	ia := newChunkIter(b, offA, majA)
	ib := newChunkIter(b, offB, majB)
	var ca, cb []byte
	for {
		if len(ca) == 0 {
			chunk, ok := ia.next()
			if !ok {
				break
			}
			ca = chunk
			continue
		}
		if len(cb) == 0 {
			chunk, ok := ib.next()
			if !ok {
				return false
			}
			cb = chunk
			continue
		}
		n := min(len(ca), len(cb))
		if !bytes.Equal(ca[:n], cb[:n]) {
			return false
		}
		ca, cb = ca[n:], cb[n:]
	}
	if ia.err != nil {
		return false
	}
	if len(cb) == 0 {
		// Drain residual empty chunks on the B side.
		for {
			chunk, ok := ib.next()
			if !ok {
				break
			}
			if len(chunk) != 0 {
				return false
			}
		}
	}
	return ib.err == nil && len(cb) == 0
}

// ReadBigInt reads the bignum whose byte-string payload starts at off.
// tok carries the sign: TokenNegBignum values decode as -(magnitude)-1.
// Payloads of at most 8 bytes take a uint64 fast path and skip the
// byte-slice assembly entirely; only genuinely oversized values pay for
// a scratch buffer.
func ReadBigInt(b []byte, tok Token, off, sz int) (*big.Int, error) {
	var neg bool
	switch tok {
	case TokenPosBignum:
	case TokenNegBignum:
		neg = true
	default:
		return nil, malformedf("%s is not a bignum token", tok)
	}
	if sz <= 8 {
		var u uint64
		it := newChunkIter(b, off, majorTypeBytes)
		for {
			chunk, ok := it.next()
			if !ok {
				break
			}
			for _, c := range chunk {
				u = u<<8 | uint64(c)
			}
		}
		if it.err != nil {
			return nil, it.err
		}
		z := new(big.Int).SetUint64(u)
		if neg {
			z.Add(z, bigOne)
			z.Neg(z)
		}
		return z, nil
	}
	bb := GetMinSize(sz)
	defer PutByteBuffer(bb)
	it := newChunkIter(b, off, majorTypeBytes)
	for {
		chunk, ok := it.next()
		if !ok {
			break
		}
		bb.Write(chunk)
	}
	if it.err != nil {
		return nil, it.err
	}
	z := new(big.Int).SetBytes(bb.Bytes())
	if neg {
		z.Add(z, bigOne)
		z.Neg(z)
	}
	return z, nil
}

// Decimal is a decimal fraction: Coeff × 10^Exp. Exp is the negated
// wire exponent: the encoding carries a scale, so [2, 27315] is 273.15.
type Decimal struct {
	Coeff *big.Int
	Exp   int32
}

// String renders the decimal in plain notation ("2.73", "27300", "-0.001").
func (d Decimal) String() string {
	s := d.Coeff.String()
	if d.Exp == 0 {
		return s
	}
	if d.Exp > 0 {
		return s + strings.Repeat("0", int(d.Exp))
	}
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	scale := int(-d.Exp)
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	point := len(digits) - scale
	out := digits[:point] + "." + digits[point:]
	if neg {
		out = "-" + out
	}
	return out
}

// ReadDecimal reads the decimal-fraction payload starting at off: a
// two-element array [exponent, mantissa] where the exponent is a plain
// integer fitting 32 bits and the mantissa is a plain integer or a
// tag 2/3 bignum. The value is mantissa x 10^(-exponent). sz is the
// total byte span of the array as reported by ItemLength and is used
// as a consistency check.
func ReadDecimal(b []byte, off, sz int) (Decimal, error) {
	end := len(b)
	if off < 0 || off >= end {
		return Decimal{}, malformed("unexpected end of payload")
	}
	lead := b[off]
	if getMajorType(lead) != majorTypeArray {
		return Decimal{}, malformed("decimal fraction must be an array")
	}
	indef := getAddInfo(lead) == addInfoIndefinite
	p := off + 1
	if !indef {
		n, err := argLen(getAddInfo(lead))
		if err != nil {
			return Decimal{}, err
		}
		if end-off < 1+n {
			return Decimal{}, malformed("unexpected end of payload")
		}
		if readArg(b, off, n) != 2 {
			return Decimal{}, malformed("decimal fraction must be a 2-element array")
		}
		p = off + 1 + n
	}

	// Exponent: plain integer, must fit an int.
	if p >= end {
		return Decimal{}, malformed("unexpected end of payload")
	}
	var etok Token
	switch getMajorType(b[p]) {
	case majorTypeUint:
		etok = TokenPosInt
	case majorTypeNegInt:
		etok = TokenNegInt
	default:
		return Decimal{}, malformed("decimal fraction exponent must be an integer")
	}
	en, err := argLen(getAddInfo(b[p]))
	if err != nil {
		return Decimal{}, err
	}
	exp, err := ReadLong(b, etok, p, en)
	if err != nil {
		return Decimal{}, err
	}
	// The negated value must fit too.
	if exp > math.MaxInt32 || exp < -math.MaxInt32 {
		return Decimal{}, malformed("decimal fraction exponent cannot fit into an int")
	}
	p += 1 + en

	// Mantissa: plain integer or bignum.
	if p >= end {
		return Decimal{}, malformed("unexpected end of payload")
	}
	var coeff *big.Int
	switch getMajorType(b[p]) {
	case majorTypeUint, majorTypeNegInt:
		mtok := TokenPosInt
		if getMajorType(b[p]) == majorTypeNegInt {
			mtok = TokenNegInt
		}
		mn, err := argLen(getAddInfo(b[p]))
		if err != nil {
			return Decimal{}, err
		}
		v, err := ReadLong(b, mtok, p, mn)
		if err != nil {
			return Decimal{}, err
		}
		coeff = big.NewInt(v)
		p += 1 + mn
	case majorTypeTag:
		tn, err := argLen(getAddInfo(b[p]))
		if err != nil {
			return Decimal{}, err
		}
		if end-p < 1+tn {
			return Decimal{}, malformed("unexpected end of payload")
		}
		mtok := Token(0)
		switch readArg(b, p, tn) {
		case tagPosBignum:
			mtok = TokenPosBignum
		case tagNegBignum:
			mtok = TokenNegBignum
		default:
			return Decimal{}, malformed("decimal fraction mantissa must be an integer")
		}
		child := p + 1 + tn
		msz, mhead, err := stringExtent(b, end, child, majorTypeBytes)
		if err != nil {
			return Decimal{}, err
		}
		coeff, err = ReadBigInt(b, mtok, child, msz)
		if err != nil {
			return Decimal{}, err
		}
		p = child + mhead + msz
	default:
		return Decimal{}, malformed("decimal fraction mantissa must be an integer")
	}

	if indef {
		if p >= end || b[p] != makeByte(majorTypeSimple, simpleBreak) {
			return Decimal{}, malformed("decimal fraction must be a 2-element array")
		}
		p++
	}
	if sz > 0 && p-off != sz {
		// The scanner validated this exact span; a mismatch here means
		// the two walks disagree.
		return Decimal{}, malformedStack("decimal fraction length mismatch")
	}
	return Decimal{Coeff: coeff, Exp: int32(-exp)}, nil
}

// ReadFloat reads the floating-point item at off. sz selects the width:
// 2 (IEEE 754 binary16), 4, or 8 bytes.
func ReadFloat(b []byte, off, sz int) (float64, error) {
	if off < 0 || off >= len(b) || len(b)-off < 1+sz {
		return 0, malformed("unexpected end of payload")
	}
	lead := b[off]
	switch {
	case lead == makeByte(majorTypeSimple, simpleFloat16) && sz == 2:
		return float64(float16.Frombits(be.Uint16(b[off+1:])).Float32()), nil
	case lead == makeByte(majorTypeSimple, simpleFloat32) && sz == 4:
		return float64(math.Float32frombits(be.Uint32(b[off+1:]))), nil
	case lead == makeByte(majorTypeSimple, simpleFloat64) && sz == 8:
		return math.Float64frombits(be.Uint64(b[off+1:])), nil
	default:
		return 0, malformed("not a float item")
	}
}

// ReadEpochMillis reads a tag 1 epoch timestamp as milliseconds since
// the Unix epoch. Integer children scale by 1000; float children round
// to the nearest millisecond, matching the wire producers exactly.
func ReadEpochMillis(b []byte, tok Token, off, sz int) (int64, error) {
	switch tok {
	case TokenEpochPosInt, TokenEpochNegInt:
		sec, err := ReadLong(b, tok, off, sz)
		if err != nil {
			return 0, err
		}
		return sec * 1000, nil
	case TokenEpochFloat:
		f, err := ReadFloat(b, off, sz)
		if err != nil {
			return 0, err
		}
		return int64(math.Round(f * 1000)), nil
	default:
		return 0, malformedf("%s is not a timestamp token", tok)
	}
}

// ReadTime is ReadEpochMillis converted to a time.Time in UTC.
func ReadTime(b []byte, tok Token, off, sz int) (time.Time, error) {
	ms, err := ReadEpochMillis(b, tok, off, sz)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
