// Package asymmetric owns key pairs and the key-wrapping built on them:
// RSA-OAEP for RSA keys and ECDH-seeded cipher chains for elliptic keys.
package asymmetric

import (
	"bytes"
	"crypto/subtle"
	"io"
	"sync"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/cipherchain"
	"ledgerlock/go-backend/internal/registry"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
	"ledgerlock/go-backend/internal/wire"
)

const (
	MaxPublicKeySize      = 1024
	MaxWrappedPrivateSize = 4096

	fingerprintPrefix = "lk1"
)

// Provider supplies the random source, factories and chain shape.
type Provider interface {
	Random() io.Reader
	Registry() *registry.Registry
	ChainConfig() cipherchain.Config
}

// Key is a key pair or a public-only key. Equality follows the public spec
// and the private encoding, not identity.
type Key struct {
	provider Provider
	factory  registry.PairFactory
	mode     wire.AsymKeyMode
	public   []byte
	private  []byte

	mu   sync.Mutex
	sets map[setID]*setEntry
}

type setID struct {
	partner string
	salt    string
}

type setEntry struct {
	once sync.Once
	set  *cipherchain.Set
	err  error
}

// Generate creates a pair of type t with a randomly chosen chain digest.
func Generate(p Provider, t catalog.AsymKeyType) (*Key, error) {
	f, err := p.Registry().KeyPair(t)
	if err != nil {
		return nil, err
	}
	digests, err := catalog.Sample(catalog.DigestTypes(), 1, p.Random())
	if err != nil {
		return nil, err
	}
	pair, err := f.Generate(p.Random())
	if err != nil {
		return nil, err
	}
	return newKey(p, f, wire.AsymKeyMode{Key: t, Digest: digests[0]}, pair)
}

// GenerateFor creates a pair able to agree with partner.
func GenerateFor(p Provider, partner *Key) (*Key, error) {
	if !partner.mode.Key.IsElliptic() {
		return nil, secerr.Logic("%s keys have no agreement partner", partner.mode.Key)
	}
	return Generate(p, partner.mode.Key)
}

// ParsePublic decodes a public spec produced by PublicSpec.
func ParsePublic(p Provider, spec []byte) (*Key, error) {
	if len(spec) > MaxPublicKeySize {
		return nil, secerr.Data("public key of %d bytes exceeds %d", len(spec), MaxPublicKeySize)
	}
	mode, err := wire.DecodeAsymKeyMode(spec)
	if err != nil {
		return nil, err
	}
	f, err := p.Registry().KeyPair(mode.Key)
	if err != nil {
		return nil, err
	}
	public, err := f.ParsePublic(spec[wire.AsymKeyModeLen:])
	if err != nil {
		return nil, err
	}
	return newKey(p, f, mode, registry.KeyPair{Public: public})
}

// WithPrivate rebuilds a pair from its public spec and private encoding. The
// two halves must belong together.
func WithPrivate(p Provider, spec, private []byte) (*Key, error) {
	if len(private) > MaxWrappedPrivateSize {
		return nil, secerr.Data("private key of %d bytes exceeds %d", len(private), MaxWrappedPrivateSize)
	}
	pub, err := ParsePublic(p, spec)
	if err != nil {
		return nil, err
	}
	pair, err := pub.factory.ParsePrivate(private)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(pair.Private)
	if !bytes.Equal(pair.Public, pub.public) {
		return nil, secerr.Data("private key does not match %s public key", pub.mode.Key)
	}
	pub.private = secret.Clone(private)
	return pub, nil
}

func newKey(p Provider, f registry.PairFactory, mode wire.AsymKeyMode, pair registry.KeyPair) (*Key, error) {
	if wire.AsymKeyModeLen+len(pair.Public) > MaxPublicKeySize {
		return nil, secerr.Data("%s public key exceeds %d bytes", mode.Key, MaxPublicKeySize)
	}
	if _, err := mode.Encode(); err != nil {
		return nil, err
	}
	return &Key{
		provider: p,
		factory:  f,
		mode:     mode,
		public:   pair.Public,
		private:  pair.Private,
		sets:     make(map[setID]*setEntry),
	}, nil
}

func (k *Key) Type() catalog.AsymKeyType { return k.mode.Key }

func (k *Key) Mode() wire.AsymKeyMode { return k.mode }

func (k *Key) IsPublicOnly() bool { return k.private == nil }

// PublicSpec is mode ‖ public encoding.
func (k *Key) PublicSpec() []byte {
	mode, _ := k.mode.Encode()
	return append(mode, k.public...)
}

// Fingerprint names the key by its public spec.
func (k *Key) Fingerprint() string {
	sum := blake2b.Sum256(k.PublicSpec())
	return fingerprintPrefix + base58.Encode(sum[:])
}

// PublicOnly returns the public half as its own key.
func (k *Key) PublicOnly() *Key {
	pub, _ := newKey(k.provider, k.factory, k.mode, registry.KeyPair{Public: k.public})
	return pub
}

// MarshalPrivate returns a copy of the private encoding.
func (k *Key) MarshalPrivate() ([]byte, error) {
	if k.IsPublicOnly() {
		return nil, secerr.Logic("%s key has no private half", k.mode.Key)
	}
	return secret.Clone(k.private), nil
}

func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.mode == other.mode &&
		bytes.Equal(k.public, other.public) &&
		subtle.ConstantTimeCompare(k.private, other.private) == 1 &&
		(k.private == nil) == (other.private == nil)
}

// Destroy wipes the private half and every cached chain set.
func (k *Key) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	secret.Wipe(k.private)
	k.private = nil
	for id, e := range k.sets {
		if e.set != nil {
			e.set.Destroy()
		}
		delete(k.sets, id)
	}
}
