package wire

import (
	"ledgerlock/go-backend/internal/secerr"
)

const (
	// Signature marks a combined needle/haystack blob, masked by its first
	// haystack byte.
	Signature = 0x5C

	MaxNeedle   = 255
	MinHaystack = 16
)

func needleOffset(mask byte) int {
	return 1 + int((mask>>4)&0xF)
}

// Hide splices needle into haystack at an offset derived from haystack[0].
// The output is
//
//	[Signature^mask] haystack[:pos] [len^mask] needle^mask haystack[pos:]
//
// This is a transport encoding. It hides nothing from anyone who knows it.
func Hide(needle, haystack []byte) ([]byte, error) {
	if len(needle) > MaxNeedle {
		return nil, secerr.Data("needle of %d bytes exceeds %d", len(needle), MaxNeedle)
	}
	if len(haystack) < MinHaystack {
		return nil, secerr.Data("haystack of %d bytes is shorter than %d", len(haystack), MinHaystack)
	}
	mask := haystack[0]
	pos := needleOffset(mask)

	out := make([]byte, 0, len(haystack)+len(needle)+2)
	out = append(out, Signature^mask)
	out = append(out, haystack[:pos]...)
	out = append(out, byte(len(needle))^mask)
	for _, b := range needle {
		out = append(out, b^mask)
	}
	return append(out, haystack[pos:]...), nil
}

// Find reverses Hide. ok is false when combined does not carry a valid
// needle.
func Find(combined []byte) (needle, haystack []byte, ok bool) {
	if len(combined) < MinHaystack+2 {
		return nil, nil, false
	}
	mask := combined[1]
	if combined[0]^mask != Signature {
		return nil, nil, false
	}
	pos := needleOffset(mask)
	n := int(combined[1+pos] ^ mask)
	hayLen := len(combined) - 2 - n
	if hayLen < MinHaystack {
		return nil, nil, false
	}

	needle = make([]byte, n)
	for i := range needle {
		needle[i] = combined[2+pos+i] ^ mask
	}
	haystack = make([]byte, 0, hayLen)
	haystack = append(haystack, combined[1:1+pos]...)
	haystack = append(haystack, combined[2+pos+n:]...)
	return needle, haystack, true
}
