package cbor

import "unsafe"

// UnsafeString returns a string that shares the same underlying
// memory as b. The backing buffer must stay immutable for the
// lifetime of the string; see UnsafeStringDecode.
func UnsafeString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}
