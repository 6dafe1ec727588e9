// Package registry caches the primitive factories used by the key engine.
// Entries are built on first request and reused for the life of the
// registry.
package registry

import (
	"crypto/cipher"
	"io"
	"sync"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
)

type cipherKey struct {
	id     catalog.SymKeyType
	keyLen int
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	ciphers map[cipherKey]*CipherFactory
	pairs   map[catalog.AsymKeyType]PairFactory
}

func New() *Registry {
	return &Registry{
		ciphers: make(map[cipherKey]*CipherFactory),
		pairs:   make(map[catalog.AsymKeyType]PairFactory),
	}
}

// Cipher returns the factory for (t, keyLen). Repeated calls return the same
// factory.
func (r *Registry) Cipher(t catalog.SymKeyType, keyLen int) (*CipherFactory, error) {
	if !t.Valid() {
		return nil, secerr.Data("unknown symmetric key type %d", int(t))
	}
	k := cipherKey{id: t, keyLen: keyLen}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.ciphers[k]; ok {
		return f, nil
	}
	// A probe construction surfaces unsupported key lengths here instead of
	// on first use.
	if _, err := t.NewCipher(make([]byte, keyLen)); err != nil {
		return nil, secerr.Crypto(err, "register %s/%d", t, keyLen*8)
	}
	f := &CipherFactory{Type: t, KeyLen: keyLen}
	r.ciphers[k] = f
	return f, nil
}

// KeyPair returns the key-pair factory for t.
func (r *Registry) KeyPair(t catalog.AsymKeyType) (PairFactory, error) {
	if !t.Valid() {
		return nil, secerr.Data("unknown asymmetric key type %d", int(t))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.pairs[t]; ok {
		return f, nil
	}
	f, err := newPairFactory(t)
	if err != nil {
		return nil, err
	}
	r.pairs[t] = f
	return f, nil
}

// Len reports the number of cached factories.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ciphers) + len(r.pairs)
}

// CipherFactory builds block ciphers of one type and key length.
type CipherFactory struct {
	Type   catalog.SymKeyType
	KeyLen int
}

func (f *CipherFactory) New(key []byte) (cipher.Block, error) {
	if len(key) != f.KeyLen {
		return nil, secerr.Data("%s key must be %d bytes, got %d", f.Type, f.KeyLen, len(key))
	}
	return f.Type.NewCipher(key)
}

// Generate reads a fresh raw key from rng.
func (f *CipherFactory) Generate(rng io.Reader) ([]byte, error) {
	key := make([]byte, f.KeyLen)
	if _, err := io.ReadFull(rng, key); err != nil {
		return nil, secerr.Crypto(err, "generate %s key", f.Type)
	}
	return key, nil
}

func newPairFactory(t catalog.AsymKeyType) (PairFactory, error) {
	switch {
	case t == catalog.X25519:
		return x25519Factory{}, nil
	case t.IsElliptic():
		return newECDHFactory(t)
	default:
		return newRSAFactory(t)
	}
}
