package cbor_test

import (
	"testing"

	cbor "github.com/yasmewad/cborscan/runtime"
)

// FuzzAdvance fuzzes the scanner and the surfaces layered on it to
// ensure they never panic on arbitrary inputs, and that every value a
// completed scan describes can be materialized.
func FuzzAdvance(f *testing.F) {
	f.Add([]byte{0xa1, 0x61, 0x61, 0x01})             // {"a":1}
	f.Add([]byte{0x83, 0x01, 0x02, 0x03})             // [1,2,3]
	f.Add([]byte{0x9f, 0x01, 0x02, 0xff})             // [_ 1, 2]
	f.Add([]byte{0x7f, 0x61, 0x61, 0x61, 0x62, 0xff}) // (_ "a", "b")
	f.Add([]byte{0xc1, 0x1a, 0x51, 0x4b, 0x67, 0xb0}) // 1(1363896240)
	f.Add([]byte{0xc2, 0x42, 0x01, 0x00})             // 2(h'0100')
	f.Add([]byte{0xc4, 0x82, 0x21, 0x19, 0x6a, 0xb3}) // 4([-2, 27315])
	f.Add([]byte{0xff, 0x00, 0x01, 0x02, 0x03})       // invalid start

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic in scanner fuzz: %v", r)
			}
		}()

		s := cbor.NewScanner(data)
		for {
			tok, err := s.Advance()
			if err != nil {
				if cbor.Resumable(err) {
					t.Fatalf("malformed input reported resumable: %v", err)
				}
				break
			}
			if tok == cbor.TokenFinished {
				break
			}
			pos, sz := s.Position(), s.ItemLength()
			switch tok {
			case cbor.TokenPosInt, cbor.TokenNegInt, cbor.TokenEpochPosInt, cbor.TokenEpochNegInt:
				_, _ = cbor.ReadLong(data, tok, pos, sz)
				_, _ = cbor.ReadUnsigned(data, pos, sz)
			case cbor.TokenKey, cbor.TokenText:
				_, _ = cbor.ReadTextString(data, pos, sz)
			case cbor.TokenBytes:
				_, _ = cbor.ReadByteString(data, pos, sz)
			case cbor.TokenFloat, cbor.TokenEpochFloat:
				_, _ = cbor.ReadFloat(data, pos, sz)
			case cbor.TokenPosBignum, cbor.TokenNegBignum:
				_, _ = cbor.ReadBigInt(data, tok, pos, sz)
			case cbor.TokenBigDecimal:
				_, _ = cbor.ReadDecimal(data, pos, sz)
			}
		}

		// The layered surfaces must agree that the payload either scans
		// or fails, and must never panic either way.
		_ = cbor.Valid(data)
		_, _ = cbor.Diag(data)
	})
}
