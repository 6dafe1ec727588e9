// Package wire holds the self-describing byte layouts shared by the engine:
// nybble-packed key-mode descriptors, the needle/haystack tag splice and the
// offset-clamped IV splice.
package wire

import (
	"bytes"

	"ledgerlock/go-backend/internal/secerr"
)

// ModeVersion is the only key-mode descriptor version this build reads.
const ModeVersion = 1

// PackNybbles packs values two per byte: element 2i lands in the low nybble
// of byte i and element 2i+1 in its high nybble.
func PackNybbles(values []int) ([]byte, error) {
	out := make([]byte, (len(values)+1)/2)
	for i, v := range values {
		if v < 0 || v > 0xF {
			return nil, secerr.Logic("nybble value %d out of range", v)
		}
		if i%2 == 0 {
			out[i/2] |= byte(v)
		} else {
			out[i/2] |= byte(v) << 4
		}
	}
	return out, nil
}

// UnpackNybbles reads n values from data.
func UnpackNybbles(data []byte, n int) ([]int, error) {
	if n < 0 || len(data) < (n+1)/2 {
		return nil, secerr.Data("need %d nybbles, have %d bytes", n, len(data))
	}
	out := make([]int, n)
	for i := range out {
		b := data[i/2]
		if i%2 == 0 {
			out[i] = int(b & 0xF)
		} else {
			out[i] = int(b >> 4)
		}
	}
	return out, nil
}

// ModeLen is the encoded length of a descriptor with n fields.
func ModeLen(n int) int {
	return (n + 2) / 2
}

// EncodeMode packs the version nybble followed by fields.
func EncodeMode(fields ...int) ([]byte, error) {
	return PackNybbles(append([]int{ModeVersion}, fields...))
}

// DecodeMode checks the version, unpacks n fields and verifies that
// re-encoding reproduces the input bytes.
func DecodeMode(data []byte, n int) ([]int, error) {
	if len(data) < ModeLen(n) {
		return nil, secerr.Data("key mode truncated: %d bytes", len(data))
	}
	data = data[:ModeLen(n)]
	values, err := UnpackNybbles(data, n+1)
	if err != nil {
		return nil, err
	}
	if values[0] != ModeVersion {
		return nil, secerr.Data("unsupported key mode version %d", values[0])
	}
	again, err := PackNybbles(values)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(again, data) {
		return nil, secerr.Data("key mode has stray bits")
	}
	return values[1:], nil
}
