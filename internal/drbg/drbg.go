// Package drbg implements the SP 800-90A HMAC_DRBG and Hash_DRBG mechanisms
// and a locked io.Reader over them that reseeds transparently.
package drbg

import (
	"errors"
	"io"

	"ledgerlock/go-backend/internal/secerr"
)

const (
	// MaxRequestBytes is the largest single Generate request (2^19 bits).
	MaxRequestBytes = 1 << 16
	// MaxReseedInterval is the largest number of Generate calls between reseeds.
	MaxReseedInterval = uint64(1) << 48
	// EntropyBytes is read from the entropy source on every (re)seed.
	EntropyBytes = 32
	// NonceBytes is read from the entropy source when no nonce is supplied.
	NonceBytes = 16
)

// ErrReseedRequired is returned by Generate once the reseed interval is
// exhausted. No output is produced and the state is unchanged.
var ErrReseedRequired = errors.New("drbg reseed required")

// Mechanism is a DRBG state machine. Implementations are not safe for
// concurrent use; wrap them in a Reader.
type Mechanism interface {
	Generate(out, additional []byte, predictionResistant bool) error
	Reseed(additional []byte) error
}

type options struct {
	reseedInterval uint64
}

type Option func(*options)

// WithReseedInterval bounds the number of Generate calls between reseeds.
func WithReseedInterval(n uint64) Option {
	return func(o *options) {
		o.reseedInterval = n
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{reseedInterval: MaxReseedInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reseedInterval == 0 || o.reseedInterval > MaxReseedInterval {
		return options{}, secerr.Logic("reseed interval %d out of range", o.reseedInterval)
	}
	return o, nil
}

func readEntropy(src io.Reader, n int) ([]byte, error) {
	if src == nil {
		return nil, secerr.Logic("drbg entropy source is nil")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, secerr.Crypto(err, "read drbg entropy")
	}
	return buf, nil
}

func concat(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func checkRequest(n int) error {
	if n > MaxRequestBytes {
		return secerr.Logic("drbg request of %d bytes exceeds %d", n, MaxRequestBytes)
	}
	return nil
}
