package registry

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"io"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
)

// rsaFactory wraps with RSA-OAEP over SHA-256. Data longer than one OAEP
// block is split into chunks; every chunk encrypts to one modulus-sized
// block.
type rsaFactory struct {
	t    catalog.AsymKeyType
	bits int
}

func newRSAFactory(t catalog.AsymKeyType) (PairFactory, error) {
	bits := t.Bits()
	if bits < 2048 {
		return nil, secerr.Crypto(nil, "no modulus size for %s", t)
	}
	return rsaFactory{t: t, bits: bits}, nil
}

func (f rsaFactory) Type() catalog.AsymKeyType { return f.t }

func (f rsaFactory) Elliptic() bool { return false }

// Generate passes rng through, but crypto/rsa draws its primes from the
// system CSPRNG whatever reader it is given, so RSA pairs are never
// reproducible from a seed.
func (f rsaFactory) Generate(rng io.Reader) (KeyPair, error) {
	priv, err := rsa.GenerateKey(rng, f.bits)
	if err != nil {
		return KeyPair{}, secerr.Crypto(err, "generate %s key", f.t)
	}
	return f.encode(priv)
}

func (f rsaFactory) encode(priv *rsa.PrivateKey) (KeyPair, error) {
	public, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, secerr.Crypto(err, "encode %s public key", f.t)
	}
	private, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, secerr.Crypto(err, "encode %s private key", f.t)
	}
	return KeyPair{Public: public, Private: private}, nil
}

func (f rsaFactory) publicKey(der []byte) (*rsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, secerr.Data("parse %s public key: %v", f.t, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok || pub.N.BitLen() != f.bits {
		return nil, secerr.Data("public key is not a %s key", f.t)
	}
	return pub, nil
}

func (f rsaFactory) privateKey(der []byte) (*rsa.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, secerr.Data("parse %s private key: %v", f.t, err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok || priv.N.BitLen() != f.bits {
		return nil, secerr.Data("private key is not a %s key", f.t)
	}
	return priv, nil
}

func (f rsaFactory) ParsePublic(public []byte) ([]byte, error) {
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

func (f rsaFactory) ParsePrivate(private []byte) (KeyPair, error) {
	priv, err := f.privateKey(private)
	if err != nil {
		return KeyPair{}, err
	}
	return f.encode(priv)
}

func (f rsaFactory) Agree([]byte, []byte) ([]byte, error) {
	return nil, secerr.Logic("%s keys do not support key agreement", f.t)
}

// chunkSize is the largest OAEP-SHA256 plaintext for the modulus.
func (f rsaFactory) chunkSize() int {
	return f.bits/8 - 2*sha256.Size - 2
}

func (f rsaFactory) Wrap(rng io.Reader, public, data []byte) ([]byte, error) {
	pub, err := f.publicKey(public)
	if err != nil {
		return nil, err
	}
	step := f.chunkSize()
	out := make([]byte, 0, (len(data)/step+1)*pub.Size())
	for off := 0; ; off += step {
		end := min(off+step, len(data))
		block, err := rsa.EncryptOAEP(sha256.New(), rng, pub, data[off:end], nil)
		if err != nil {
			return nil, secerr.Crypto(err, "%s wrap", f.t)
		}
		out = append(out, block...)
		if end == len(data) {
			break
		}
	}
	return out, nil
}

func (f rsaFactory) Unwrap(private, data []byte) ([]byte, error) {
	priv, err := f.privateKey(private)
	if err != nil {
		return nil, err
	}
	size := priv.Size()
	if len(data) == 0 || len(data)%size != 0 {
		return nil, secerr.Data("%s wrapped data of %d bytes is not a multiple of %d", f.t, len(data), size)
	}
	out := make([]byte, 0, len(data))
	for off := 0; off < len(data); off += size {
		chunk, err := rsa.DecryptOAEP(sha256.New(), nil, priv, data[off:off+size], nil)
		if err != nil {
			return nil, secerr.Crypto(err, "%s unwrap", f.t)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
