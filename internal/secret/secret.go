// Package secret holds helpers for short-lived secret buffers. Callers defer
// Wipe immediately after acquiring a buffer so it is cleared on every return
// path, including panics.
package secret

import (
	"github.com/awnumar/memguard"
)

// Wipe overwrites every buffer with zeros.
func Wipe(bufs ...[]byte) {
	for _, b := range bufs {
		if len(b) > 0 {
			memguard.WipeBytes(b)
		}
	}
}

// Clone returns an independent copy of b. A nil input stays nil.
func Clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// IsZero reports whether every byte of b is zero.
func IsZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}
