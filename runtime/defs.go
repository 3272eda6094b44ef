// Package cbor implements a streaming, zero-copy token scanner for the
// CBOR (RFC 8949) subset used by schema-driven RPC payloads.
//
// The package has three layers:
//   - Scanner: a pull parser over an in-memory buffer. Repeated calls to
//     Advance() classify the next data item into a semantic Token and
//     record its position and logical length without copying anything.
//   - ReadXxxx utilities: pure functions that materialize a scalar value
//     from (buf, Position(), ItemLength()) once the consumer decides it
//     wants one.
//   - DecodeError: the single malformed-input error kind raised by both.
//
// The scanner handles definite and indefinite-length strings, arrays,
// and maps, and the semantic tags needed by the schema model: epoch
// timestamps (tag 1), bignums (tags 2/3), and decimal fractions (tag 4).
// It does not build values, resolve schemas, or encode; those concerns
// belong to the layers above and are out of scope here.
package cbor

// CBOR major types (3 bits)
const (
	majorTypeUint   = 0 // unsigned integer
	majorTypeNegInt = 1 // negative integer
	majorTypeBytes  = 2 // byte string
	majorTypeText   = 3 // text string (UTF-8)
	majorTypeArray  = 4 // array
	majorTypeMap    = 5 // map
	majorTypeTag    = 6 // semantic tag
	majorTypeSimple = 7 // float, simple values, break
)

// Additional info values (5 bits)
const (
	// 0-23: literal value
	addInfoDirect     = 23 // max direct value
	addInfoUint8      = 24 // 1-byte uint8 follows
	addInfoUint16     = 25 // 2-byte uint16 follows
	addInfoUint32     = 26 // 4-byte uint32 follows
	addInfoUint64     = 27 // 8-byte uint64 follows
	addInfoIndefinite = 31 // indefinite length (for bytes, text, array, map)
)

// Simple values in major type 7
const (
	simpleFalse   = 20
	simpleTrue    = 21
	simpleNull    = 22
	simpleFloat16 = 25
	simpleFloat32 = 26
	simpleFloat64 = 27
	simpleBreak   = 31
)

// Semantic tags in the supported subset
const (
	tagDateTimeString = 0 // RFC3339 date/time string (rejected)
	tagEpochDateTime  = 1 // Unix timestamp (int or float)
	tagPosBignum      = 2 // positive bignum
	tagNegBignum      = 3 // negative bignum
	tagDecimalFrac    = 4 // decimal fraction [exponent, mantissa]
)

// makeByte creates a CBOR initial byte from major type and additional info
func makeByte(majorType, addInfo uint8) byte {
	return byte((majorType << 5) | addInfo)
}

// getMajorType extracts the major type from a CBOR initial byte
func getMajorType(b byte) uint8 {
	return (b >> 5) & 0x07
}

// getAddInfo extracts the additional info from a CBOR initial byte
func getAddInfo(b byte) uint8 {
	return b & 0x1f
}

// Token is a semantic classification of a CBOR data item as produced by
// Scanner.Advance. The set is closed: tagged items are folded into their
// own variants so consumers never re-inspect tag bytes.
type Token uint8

// Tokens
const (
	TokenInvalid Token = iota

	TokenPosInt      // major 0
	TokenNegInt      // major 1
	TokenBytes       // major 2, definite or chunked
	TokenText        // major 3, definite or chunked
	TokenNull        // simple 22
	TokenKey         // text string in map-key position
	TokenStartObject // map open
	TokenStartArray  // array open
	TokenEndObject   // map close
	TokenEndArray    // array close
	TokenPosBignum   // tag 2 over a byte string
	TokenNegBignum   // tag 3 over a byte string
	TokenFloat       // simple 25/26/27
	TokenBigDecimal  // tag 4 over [exponent, mantissa]
	TokenTrue        // simple 21
	TokenFalse       // simple 20
	TokenEpochPosInt // tag 1 over major 0
	TokenEpochNegInt // tag 1 over major 1
	TokenEpochFloat  // tag 1 over simple 25/26/27
	TokenFinished    // end of input at depth 0
)

// String implements fmt.Stringer
func (t Token) String() string {
	switch t {
	case TokenPosInt:
		return "pos-int"
	case TokenNegInt:
		return "neg-int"
	case TokenBytes:
		return "bytes"
	case TokenText:
		return "text"
	case TokenNull:
		return "null"
	case TokenKey:
		return "key"
	case TokenStartObject:
		return "start-object"
	case TokenStartArray:
		return "start-array"
	case TokenEndObject:
		return "end-object"
	case TokenEndArray:
		return "end-array"
	case TokenPosBignum:
		return "pos-bignum"
	case TokenNegBignum:
		return "neg-bignum"
	case TokenFloat:
		return "float"
	case TokenBigDecimal:
		return "big-decimal"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenEpochPosInt:
		return "epoch-pos-int"
	case TokenEpochNegInt:
		return "epoch-neg-int"
	case TokenEpochFloat:
		return "epoch-float"
	case TokenFinished:
		return "finished"
	default:
		return "<invalid>"
	}
}

// ValidateUTF8OnDecode controls whether ReadTextString validates UTF-8.
// Enabled by default for spec compliance; can be disabled in hot paths.
var ValidateUTF8OnDecode = true

// UnsafeStringDecode controls whether ReadTextString converts zero-copy
// using UnsafeString (unsafe) instead of allocating a new string.
// Disabled by default.
var UnsafeStringDecode = false
