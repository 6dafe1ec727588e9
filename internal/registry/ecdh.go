package registry

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/x509"
	"io"

	"golang.org/x/crypto/curve25519"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
)

type ecdhFactory struct {
	t     catalog.AsymKeyType
	curve ecdh.Curve
	size  int
	top   byte
}

// scalarAttempts bounds rejection sampling; a P-256 draw misses roughly once
// in 2^32.
const scalarAttempts = 64

func newECDHFactory(t catalog.AsymKeyType) (PairFactory, error) {
	switch t {
	case catalog.P256:
		return ecdhFactory{t: t, curve: ecdh.P256(), size: 32, top: 0xFF}, nil
	case catalog.P384:
		return ecdhFactory{t: t, curve: ecdh.P384(), size: 48, top: 0xFF}, nil
	case catalog.P521:
		return ecdhFactory{t: t, curve: ecdh.P521(), size: 66, top: 0x01}, nil
	}
	return nil, secerr.Crypto(nil, "no curve for %s", t)
}

func (f ecdhFactory) Type() catalog.AsymKeyType { return f.t }

func (f ecdhFactory) Elliptic() bool { return true }

// Generate draws the scalar from rng itself, so a seeded rng yields the same
// key pair every time. Draws of zero or at least the group order are retried.
func (f ecdhFactory) Generate(rng io.Reader) (KeyPair, error) {
	scalar := make([]byte, f.size)
	defer secret.Wipe(scalar)
	for i := 0; i < scalarAttempts; i++ {
		if _, err := io.ReadFull(rng, scalar); err != nil {
			return KeyPair{}, secerr.Crypto(err, "generate %s key", f.t)
		}
		scalar[0] &= f.top
		priv, err := f.curve.NewPrivateKey(scalar)
		if err != nil {
			continue
		}
		return f.encode(priv)
	}
	return KeyPair{}, secerr.Crypto(nil, "generate %s key: no valid scalar in %d draws", f.t, scalarAttempts)
}

func (f ecdhFactory) encode(priv *ecdh.PrivateKey) (KeyPair, error) {
	public, err := x509.MarshalPKIXPublicKey(priv.PublicKey())
	if err != nil {
		return KeyPair{}, secerr.Crypto(err, "encode %s public key", f.t)
	}
	private, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, secerr.Crypto(err, "encode %s private key", f.t)
	}
	return KeyPair{Public: public, Private: private}, nil
}

func (f ecdhFactory) publicKey(der []byte) (*ecdh.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, secerr.Data("parse %s public key: %v", f.t, err)
	}
	var pub *ecdh.PublicKey
	switch k := parsed.(type) {
	case *ecdsa.PublicKey:
		pub, err = k.ECDH()
		if err != nil {
			return nil, secerr.Data("convert %s public key: %v", f.t, err)
		}
	case *ecdh.PublicKey:
		pub = k
	default:
		return nil, secerr.Data("public key is not a %s key", f.t)
	}
	if pub.Curve() != f.curve {
		return nil, secerr.Data("public key is not a %s key", f.t)
	}
	return pub, nil
}

func (f ecdhFactory) privateKey(der []byte) (*ecdh.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, secerr.Data("parse %s private key: %v", f.t, err)
	}
	var priv *ecdh.PrivateKey
	switch k := parsed.(type) {
	case *ecdsa.PrivateKey:
		priv, err = k.ECDH()
		if err != nil {
			return nil, secerr.Data("convert %s private key: %v", f.t, err)
		}
	case *ecdh.PrivateKey:
		priv = k
	default:
		return nil, secerr.Data("private key is not a %s key", f.t)
	}
	if priv.Curve() != f.curve {
		return nil, secerr.Data("private key is not a %s key", f.t)
	}
	return priv, nil
}

func (f ecdhFactory) ParsePublic(public []byte) ([]byte, error) {
	pub, err := f.publicKey(public)
	if err != nil {
		return nil, err
	}
	out, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, secerr.Crypto(err, "encode %s public key", f.t)
	}
	return out, nil
}

func (f ecdhFactory) ParsePrivate(private []byte) (KeyPair, error) {
	priv, err := f.privateKey(private)
	if err != nil {
		return KeyPair{}, err
	}
	return f.encode(priv)
}

func (f ecdhFactory) Agree(private, peerPublic []byte) ([]byte, error) {
	priv, err := f.privateKey(private)
	if err != nil {
		return nil, err
	}
	pub, err := f.publicKey(peerPublic)
	if err != nil {
		return nil, err
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, secerr.Crypto(err, "%s agreement", f.t)
	}
	return shared, nil
}

func (f ecdhFactory) Wrap(io.Reader, []byte, []byte) ([]byte, error) {
	return nil, secerr.Logic("%s keys do not wrap directly", f.t)
}

func (f ecdhFactory) Unwrap([]byte, []byte) ([]byte, error) {
	return nil, secerr.Logic("%s keys do not unwrap directly", f.t)
}

// x25519Factory uses raw 32-byte encodings for both halves.
type x25519Factory struct{}

func (x25519Factory) Type() catalog.AsymKeyType { return catalog.X25519 }

func (x25519Factory) Elliptic() bool { return true }

func (f x25519Factory) Generate(rng io.Reader) (KeyPair, error) {
	scalar := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rng, scalar); err != nil {
		return KeyPair{}, secerr.Crypto(err, "generate X25519 key")
	}
	return f.ParsePrivate(scalar)
}

func (x25519Factory) ParsePublic(public []byte) ([]byte, error) {
	if len(public) != curve25519.PointSize {
		return nil, secerr.Data("X25519 public key must be %d bytes, got %d", curve25519.PointSize, len(public))
	}
	if bytes.Equal(public, make([]byte, curve25519.PointSize)) {
		return nil, secerr.Data("X25519 public key is the zero point")
	}
	return append([]byte(nil), public...), nil
}

func (x25519Factory) ParsePrivate(private []byte) (KeyPair, error) {
	if len(private) != curve25519.ScalarSize {
		return KeyPair{}, secerr.Data("X25519 private key must be %d bytes, got %d", curve25519.ScalarSize, len(private))
	}
	public, err := curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, secerr.Crypto(err, "derive X25519 public key")
	}
	return KeyPair{Public: public, Private: append([]byte(nil), private...)}, nil
}

func (f x25519Factory) Agree(private, peerPublic []byte) ([]byte, error) {
	if len(private) != curve25519.ScalarSize {
		return nil, secerr.Data("X25519 private key must be %d bytes", curve25519.ScalarSize)
	}
	if _, err := f.ParsePublic(peerPublic); err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(private, peerPublic)
	if err != nil {
		return nil, secerr.Crypto(err, "X25519 agreement")
	}
	return shared, nil
}

func (x25519Factory) Wrap(io.Reader, []byte, []byte) ([]byte, error) {
	return nil, secerr.Logic("X25519 keys do not wrap directly")
}

func (x25519Factory) Unwrap([]byte, []byte) ([]byte, error) {
	return nil, secerr.Logic("X25519 keys do not unwrap directly")
}
