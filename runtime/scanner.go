package cbor

import "math"

// IndefiniteLength is the CollectionSize sentinel reported for
// indefinite-length arrays and maps.
const IndefiniteLength int64 = -1

type frameKind uint8

const (
	frameArray frameKind = iota
	frameMap
)

// frame is the nesting state of one open collection. remaining counts
// the elements (pairs, for maps) still expected; negative means
// indefinite. expectValue is set between a map key and its value.
type frame struct {
	remaining   int64
	kind        frameKind
	expectValue bool
}

// Scanner is a pull parser over a single in-memory CBOR buffer. It is
// single-use and forward-only: construct one per payload, call Advance
// until TokenFinished, and query Position/ItemLength between calls to
// materialize values with the ReadXxxx utilities. A Scanner borrows the
// buffer, never copies or mutates it, and must not be shared across
// goroutines or copied after first use.
type Scanner struct {
	buf      []byte
	end      int // window end, absolute
	idx      int // first byte of the current token, tags included
	valuePos int // item header with tag bytes stripped
	itemLen  int
	overhead int
	tok      Token
	collSize int64

	stack  []frame
	inline [4]frame // backs stack until nesting exceeds 4
}

// NewScanner constructs a Scanner over buf.
func NewScanner(buf []byte) *Scanner {
	return NewScannerAt(buf, 0, len(buf))
}

// NewScannerAt constructs a Scanner over the window [off, off+length)
// of buf. Positions reported by the Scanner stay absolute within buf.
func NewScannerAt(buf []byte, off, length int) *Scanner {
	s := &Scanner{buf: buf, end: off + length, idx: off}
	s.stack = s.inline[:0]
	return s
}

// Current returns the token produced by the last Advance.
func (s *Scanner) Current() Token { return s.tok }

// Position returns the absolute offset of the current item's header
// byte, with any tag bytes stripped. The ReadXxxx utilities consume
// from this offset.
func (s *Scanner) Position() int { return s.valuePos }

// ItemLength returns the logical length of the current item: operand
// byte count for integers and floats, concatenated payload length for
// strings and bignums, the total byte span of the [exponent, mantissa]
// array for big decimals, and zero for collections and simple values.
func (s *Scanner) ItemLength() int { return s.itemLen }

// CollectionSize returns the element count of the collection whose
// start token is current (pairs, for maps), or IndefiniteLength. It is
// meaningful only while positioned on a start token.
func (s *Scanner) CollectionSize() int64 { return s.collSize }

func (s *Scanner) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

// consumeItem records that one element of the innermost open collection
// has been produced.
func (s *Scanner) consumeItem() {
	if len(s.stack) == 0 {
		return
	}
	f := &s.stack[len(s.stack)-1]
	if f.kind == frameMap {
		f.expectValue = false
	}
	if f.remaining > 0 {
		f.remaining--
	}
}

func (s *Scanner) close(kind frameKind) Token {
	s.stack = s.stack[:len(s.stack)-1]
	tok := TokenEndArray
	if kind == frameMap {
		tok = TokenEndObject
	}
	s.valuePos = s.idx
	s.tok = tok
	return tok
}

func (s *Scanner) incomplete(f *frame) error {
	kind := "array"
	if f.kind == frameMap {
		kind = "map"
	}
	if f.remaining < 0 {
		return malformedf("incomplete %s: expecting stream break", kind)
	}
	return malformedf("incomplete %s: expecting %d more elements", kind, f.remaining)
}

// Advance moves to the next data item and returns its semantic token,
// TokenFinished once the window is exhausted at depth zero, or a
// DecodeError. A single error invalidates the whole parse; the Scanner
// must not be advanced further after one.
func (s *Scanner) Advance() (Token, error) {
	if s.tok == TokenFinished {
		return TokenFinished, nil
	}
	pos := s.idx + s.itemLen + s.overhead
	s.idx = pos
	s.itemLen, s.overhead = 0, 0

	// A definite collection whose element budget just hit zero closes
	// without consuming a byte.
	if f := s.top(); f != nil && f.remaining == 0 && !f.expectValue {
		return s.close(f.kind), nil
	}

	if pos >= s.end {
		if f := s.top(); f != nil {
			return TokenInvalid, s.incomplete(f)
		}
		s.tok = TokenFinished
		return TokenFinished, nil
	}

	lead := s.buf[pos]

	// A break byte closes the innermost indefinite collection.
	if lead == makeByte(majorTypeSimple, simpleBreak) {
		f := s.top()
		if f == nil || f.remaining >= 0 {
			return TokenInvalid, malformed("unexpected stream break")
		}
		if f.kind == frameMap && f.expectValue {
			return TokenInvalid, malformed("incomplete map: stream break after key")
		}
		s.overhead = 1
		return s.close(f.kind), nil
	}

	// Map-key position: the item must be a text string.
	if f := s.top(); f != nil && f.kind == frameMap && !f.expectValue {
		if getMajorType(lead) != majorTypeText {
			return TokenInvalid, malformed("map keys must be strings")
		}
		sz, head, err := stringExtent(s.buf, s.end, pos, majorTypeText)
		if err != nil {
			return TokenInvalid, err
		}
		s.valuePos = pos
		s.itemLen = sz
		s.overhead = head
		f.expectValue = true
		s.tok = TokenKey
		return TokenKey, nil
	}

	return s.scanValue(pos, lead)
}

func (s *Scanner) scanValue(pos int, lead byte) (Token, error) {
	major := getMajorType(lead)
	add := getAddInfo(lead)

	switch major {
	case majorTypeUint, majorTypeNegInt:
		n, err := argLen(add)
		if err != nil {
			return TokenInvalid, err
		}
		if s.end-pos < 1+n {
			return TokenInvalid, malformed("unexpected end of payload")
		}
		s.valuePos = pos
		s.itemLen = n
		s.overhead = 1
		s.consumeItem()
		tok := TokenPosInt
		if major == majorTypeNegInt {
			tok = TokenNegInt
		}
		s.tok = tok
		return tok, nil

	case majorTypeBytes, majorTypeText:
		sz, head, err := stringExtent(s.buf, s.end, pos, major)
		if err != nil {
			return TokenInvalid, err
		}
		s.valuePos = pos
		s.itemLen = sz
		s.overhead = head
		s.consumeItem()
		tok := TokenBytes
		if major == majorTypeText {
			tok = TokenText
		}
		s.tok = tok
		return tok, nil

	case majorTypeArray, majorTypeMap:
		count := IndefiniteLength
		head := 1
		if add != addInfoIndefinite {
			n, err := argLen(add)
			if err != nil {
				return TokenInvalid, err
			}
			if s.end-pos < 1+n {
				return TokenInvalid, malformed("unexpected end of payload")
			}
			v := readArg(s.buf, pos, n)
			if v > math.MaxInt64 {
				return TokenInvalid, malformed("value cannot fit into a long")
			}
			count = int64(v)
			head = 1 + n
		}
		// The new collection counts as one element of its parent.
		s.consumeItem()
		kind := frameArray
		tok := TokenStartArray
		if major == majorTypeMap {
			kind = frameMap
			tok = TokenStartObject
		}
		s.stack = append(s.stack, frame{remaining: count, kind: kind})
		s.valuePos = pos
		s.overhead = head
		s.collSize = count
		s.tok = tok
		return tok, nil

	case majorTypeTag:
		return s.scanTagged(pos, add)

	default: // majorTypeSimple
		switch add {
		case simpleFalse, simpleTrue, simpleNull:
			s.valuePos = pos
			s.overhead = 1
			s.consumeItem()
			tok := TokenNull
			switch add {
			case simpleFalse:
				tok = TokenFalse
			case simpleTrue:
				tok = TokenTrue
			}
			s.tok = tok
			return tok, nil
		case simpleFloat16, simpleFloat32, simpleFloat64:
			n := floatWidth(add)
			if s.end-pos < 1+n {
				return TokenInvalid, malformed("unexpected end of payload")
			}
			s.valuePos = pos
			s.itemLen = n
			s.overhead = 1
			s.consumeItem()
			s.tok = TokenFloat
			return TokenFloat, nil
		default:
			return TokenInvalid, malformedf("unsupported simple value %d", add)
		}
	}
}

func (s *Scanner) scanTagged(pos int, add uint8) (Token, error) {
	n, err := argLen(add)
	if err != nil {
		return TokenInvalid, err
	}
	if s.end-pos < 1+n {
		return TokenInvalid, malformed("unexpected end of payload")
	}
	tag := readArg(s.buf, pos, n)
	head := 1 + n
	child := pos + head
	if child >= s.end {
		return TokenInvalid, malformed("unexpected end of payload")
	}
	clead := s.buf[child]
	if getMajorType(clead) == majorTypeTag {
		return TokenInvalid, malformed("nested tags not permitted")
	}

	var tok Token
	switch tag {
	case tagEpochDateTime:
		switch getMajorType(clead) {
		case majorTypeUint, majorTypeNegInt:
			cn, err := argLen(getAddInfo(clead))
			if err != nil {
				return TokenInvalid, err
			}
			if s.end-child < 1+cn {
				return TokenInvalid, malformed("unexpected end of payload")
			}
			s.itemLen = cn
			tok = TokenEpochPosInt
			if getMajorType(clead) == majorTypeNegInt {
				tok = TokenEpochNegInt
			}
		case majorTypeSimple:
			switch getAddInfo(clead) {
			case simpleFloat16, simpleFloat32, simpleFloat64:
			default:
				return TokenInvalid, malformed("invalid epoch timestamp")
			}
			cn := floatWidth(getAddInfo(clead))
			if s.end-child < 1+cn {
				return TokenInvalid, malformed("unexpected end of payload")
			}
			s.itemLen = cn
			tok = TokenEpochFloat
		default:
			return TokenInvalid, malformed("invalid epoch timestamp")
		}
		s.overhead = head + 1
		s.valuePos = child

	case tagPosBignum, tagNegBignum:
		if getMajorType(clead) != majorTypeBytes {
			return TokenInvalid, malformed("bignum must be a byte string")
		}
		sz, chead, err := stringExtent(s.buf, s.end, child, majorTypeBytes)
		if err != nil {
			return TokenInvalid, err
		}
		s.itemLen = sz
		s.overhead = head + chead
		s.valuePos = child
		tok = TokenPosBignum
		if tag == tagNegBignum {
			tok = TokenNegBignum
		}

	case tagDecimalFrac:
		span, err := s.peekDecimal(child)
		if err != nil {
			return TokenInvalid, err
		}
		s.itemLen = span
		s.overhead = head
		s.valuePos = child
		tok = TokenBigDecimal

	default:
		return TokenInvalid, malformedf("unsupported tag %d", tag)
	}

	s.consumeItem()
	s.tok = tok
	return tok, nil
}

// peekDecimal validates the tag 4 payload at off — a 2-element array of
// [integer exponent, integer-or-bignum mantissa] — by walking the bytes
// one step ahead and returning the validated span. The cursor itself
// never moves; the caller commits the whole span as one item.
func (s *Scanner) peekDecimal(off int) (int, error) {
	lead := s.buf[off]
	if getMajorType(lead) != majorTypeArray {
		return 0, malformed("decimal fraction must be an array")
	}
	indef := getAddInfo(lead) == addInfoIndefinite
	p := off + 1
	if !indef {
		n, err := argLen(getAddInfo(lead))
		if err != nil {
			return 0, err
		}
		if s.end-off < 1+n {
			return 0, malformed("unexpected end of payload")
		}
		if readArg(s.buf, off, n) != 2 {
			return 0, malformed("decimal fraction must be a 2-element array")
		}
		p = off + 1 + n
	}

	// Exponent: a plain integer.
	if p >= s.end {
		return 0, malformed("unexpected end of payload")
	}
	switch getMajorType(s.buf[p]) {
	case majorTypeUint, majorTypeNegInt:
	default:
		return 0, malformed("decimal fraction exponent must be an integer")
	}
	en, err := argLen(getAddInfo(s.buf[p]))
	if err != nil {
		return 0, err
	}
	if s.end-p < 1+en {
		return 0, malformed("unexpected end of payload")
	}
	p += 1 + en

	// Mantissa: a plain integer or a tag 2/3 bignum.
	if p >= s.end {
		return 0, malformed("unexpected end of payload")
	}
	switch getMajorType(s.buf[p]) {
	case majorTypeUint, majorTypeNegInt:
		mn, err := argLen(getAddInfo(s.buf[p]))
		if err != nil {
			return 0, err
		}
		if s.end-p < 1+mn {
			return 0, malformed("unexpected end of payload")
		}
		p += 1 + mn
	case majorTypeTag:
		tn, err := argLen(getAddInfo(s.buf[p]))
		if err != nil {
			return 0, err
		}
		if s.end-p < 1+tn {
			return 0, malformed("unexpected end of payload")
		}
		switch readArg(s.buf, p, tn) {
		case tagPosBignum, tagNegBignum:
		default:
			return 0, malformed("decimal fraction mantissa must be an integer")
		}
		mchild := p + 1 + tn
		msz, mhead, err := stringExtent(s.buf, s.end, mchild, majorTypeBytes)
		if err != nil {
			return 0, err
		}
		p = mchild + mhead + msz
	default:
		return 0, malformed("decimal fraction mantissa must be an integer")
	}

	if indef {
		if p >= s.end || s.buf[p] != makeByte(majorTypeSimple, simpleBreak) {
			return 0, malformed("decimal fraction must be a 2-element array")
		}
		p++
	}
	return p - off, nil
}

func floatWidth(add uint8) int {
	switch add {
	case simpleFloat16:
		return 2
	case simpleFloat32:
		return 4
	default:
		return 8
	}
}
