package wire

import "ledgerlock/go-backend/internal/secerr"

// Clamp limits x to [lo, hi]. When the range is empty lo wins.
func Clamp(x, lo, hi int) int {
	if x > hi {
		x = hi
	}
	if x < lo {
		x = lo
	}
	return x
}

// Splice returns data[:offset] ‖ insert ‖ data[offset:].
func Splice(data, insert []byte, offset int) ([]byte, error) {
	if offset < 0 || offset > len(data) {
		return nil, secerr.Logic("splice offset %d outside %d bytes", offset, len(data))
	}
	out := make([]byte, 0, len(data)+len(insert))
	out = append(out, data[:offset]...)
	out = append(out, insert...)
	return append(out, data[offset:]...), nil
}

// Unsplice removes size bytes at offset and returns them with the remainder.
func Unsplice(data []byte, offset, size int) (removed, rest []byte, err error) {
	if offset < 0 || size < 0 || offset+size > len(data) {
		return nil, nil, secerr.Data("splice of %d bytes at %d outside %d bytes", size, offset, len(data))
	}
	removed = append([]byte(nil), data[offset:offset+size]...)
	rest = make([]byte, 0, len(data)-size)
	rest = append(rest, data[:offset]...)
	rest = append(rest, data[offset+size:]...)
	return removed, rest, nil
}
