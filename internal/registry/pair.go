package registry

import (
	"io"

	"ledgerlock/go-backend/internal/catalog"
)

// KeyPair holds encoded halves of an asymmetric key. Private is nil for a
// public-only key.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// PairFactory is the boundary to the asymmetric primitive provider. Keys
// cross it only in encoded form: PKIX/PKCS#8 DER for RSA and NIST curves, raw
// 32-byte scalars and points for X25519.
type PairFactory interface {
	Type() catalog.AsymKeyType
	// Elliptic reports whether Agree is supported. Non-elliptic factories
	// support Wrap and Unwrap instead.
	Elliptic() bool
	Generate(rng io.Reader) (KeyPair, error)
	// ParsePublic validates an encoded public key and returns its canonical
	// encoding.
	ParsePublic(public []byte) ([]byte, error)
	// ParsePrivate validates an encoded private key and returns the pair.
	ParsePrivate(private []byte) (KeyPair, error)
	Agree(private, peerPublic []byte) ([]byte, error)
	Wrap(rng io.Reader, public, data []byte) ([]byte, error)
	Unwrap(private, data []byte) ([]byte, error)
}
