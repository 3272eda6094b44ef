package cbor

// ValidateDocument scans every data item in b and returns the first
// malformed-input error, or nil when the whole payload is well formed.
func ValidateDocument(b []byte) error {
	s := NewScanner(b)
	for {
		tok, err := s.Advance()
		if err != nil {
			return err
		}
		if tok == TokenFinished {
			return nil
		}
	}
}

// Valid reports whether b is a well formed CBOR payload.
func Valid(b []byte) bool {
	return ValidateDocument(b) == nil
}
