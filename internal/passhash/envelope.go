// Package passhash derives password verifiers and password-seeded cipher
// chains.
//
// An envelope carries the verifier hash, a separate secret hash that keys
// its cipher chain, and the password encrypted under that chain so a sibling
// envelope can be derived without prompting again. Password buffers handed
// to this package are wiped before the call returns.
package passhash

import (
	"crypto/subtle"
	"hash"

	"ledgerlock/go-backend/internal/asymmetric"
	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/cipherchain"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
	"ledgerlock/go-backend/internal/symmetric"
)

// Provider supplies randomness, the phrase-seeded MACs and the ratchet
// length.
type Provider interface {
	asymmetric.Provider
	Mac(mac catalog.MacType, digest catalog.DigestType, key []byte) (hash.Hash, error)
	Iterations() int
}

type Envelope struct {
	provider    Provider
	key         HashKey
	hash        []byte
	secret      []byte
	set         *cipherchain.Set
	password    []byte
	passwordLen int
}

// New enrols password under a fresh HashKey.
func New(p Provider, password []byte) (*Envelope, error) {
	defer secret.Wipe(password)
	if len(password) == 0 {
		return nil, secerr.Logic("empty password")
	}
	hk, err := NewHashKey(p.Random())
	if err != nil {
		return nil, err
	}
	e, err := build(p, hk, password)
	if err != nil {
		return nil, err
	}
	e.password, err = e.set.Encrypt(password)
	if err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}

// Derive verifies password against a stored external form. A wrong password
// yields secerr.ErrInvalidCredentials; malformed input yields a data error.
func Derive(p Provider, stored, password []byte) (*Envelope, error) {
	defer secret.Wipe(password)
	hk, want, err := parseExternal(stored, len(password))
	if err != nil {
		return nil, err
	}
	e, err := build(p, hk, password)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(e.hash, want) != 1 {
		e.Destroy()
		return nil, secerr.ErrInvalidCredentials
	}
	e.password, err = e.set.Encrypt(password)
	if err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}

func build(p Provider, hk HashKey, password []byte) (*Envelope, error) {
	verifier, secretHash, err := ratchet(p, hk, password)
	if err != nil {
		return nil, err
	}
	cfg := p.ChainConfig()
	cfg.Digest = hk.Cipher
	set, err := cipherchain.New(p.Registry(), cfg, p.Random(), secretHash, hk.IV[:])
	if err != nil {
		secret.Wipe(verifier, secretHash)
		return nil, err
	}
	return &Envelope{
		provider:    p,
		key:         hk,
		hash:        verifier,
		secret:      secretHash,
		set:         set,
		passwordLen: len(password),
	}, nil
}

func (e *Envelope) Key() HashKey {
	return e.key
}

// External is the storable form: mode ‖ hash[:off] ‖ IV ‖ hash[off:].
func (e *Envelope) External() ([]byte, error) {
	return e.key.external(e.hash, e.passwordLen)
}

// CipherSet is the chain seeded by the secret hash.
func (e *Envelope) CipherSet() *cipherchain.Set {
	return e.set
}

// Similar enrols the same password under a fresh HashKey.
func (e *Envelope) Similar() (*Envelope, error) {
	pw, err := e.set.Decrypt(e.password)
	if err != nil {
		return nil, err
	}
	return New(e.provider, pw)
}

// Matches reports whether stored verifies the password this envelope holds.
func (e *Envelope) Matches(stored []byte) (bool, error) {
	pw, err := e.set.Decrypt(e.password)
	if err != nil {
		return false, err
	}
	other, err := Derive(e.provider, stored, pw)
	switch {
	case err == nil:
		other.Destroy()
		return true, nil
	case secerr.KindOf(err) == secerr.KindInvalidCredentials:
		return false, nil
	default:
		return false, err
	}
}

func (e *Envelope) SecureSymmetricKey(k *symmetric.Key) ([]byte, error) {
	return e.set.SecureSymmetricKey(k)
}

func (e *Envelope) DeriveSymmetricKey(wrapped []byte) (*symmetric.Key, error) {
	return e.set.DeriveSymmetricKey(wrapped)
}

func (e *Envelope) SecureStreamKey(k *symmetric.StreamKey) ([]byte, error) {
	return e.set.SecureStreamKey(k)
}

func (e *Envelope) DeriveStreamKey(wrapped []byte) (*symmetric.StreamKey, error) {
	return e.set.DeriveStreamKey(wrapped)
}

func checkWrappedPrivate(wrapped []byte) error {
	if len(wrapped) > asymmetric.MaxWrappedPrivateSize {
		return secerr.Data("wrapped private key of %d bytes exceeds %d", len(wrapped), asymmetric.MaxWrappedPrivateSize)
	}
	return nil
}

// SecurePrivateKey wraps the private half of k.
func (e *Envelope) SecurePrivateKey(k *asymmetric.Key) ([]byte, error) {
	private, err := k.MarshalPrivate()
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(private)
	wrapped, err := e.set.SecureTagged(cipherchain.TagPrivate, k.Type().ID(), private)
	if err != nil {
		return nil, err
	}
	if err := checkWrappedPrivate(wrapped); err != nil {
		return nil, err
	}
	return wrapped, nil
}

// DerivePrivateKey rebuilds a key pair from its public spec and a wrapped
// private half.
func (e *Envelope) DerivePrivateKey(publicSpec, wrapped []byte) (*asymmetric.Key, error) {
	if err := checkWrappedPrivate(wrapped); err != nil {
		return nil, err
	}
	pub, err := asymmetric.ParsePublic(e.provider, publicSpec)
	if err != nil {
		return nil, err
	}
	id, private, err := e.set.DeriveTagged(cipherchain.TagPrivate, wrapped)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(private)
	if id != pub.Type().ID() {
		return nil, secerr.Data("wrapped key is type %d, public key is %s", id, pub.Type())
	}
	return asymmetric.WithPrivate(e.provider, publicSpec, private)
}

func (e *Envelope) EncryptString(plaintext string) ([]byte, error) {
	return e.set.EncryptString(plaintext)
}

func (e *Envelope) DecryptString(blob []byte) (string, error) {
	return e.set.DecryptString(blob)
}

// Destroy wipes the hashes, the encrypted password and the chain keys.
func (e *Envelope) Destroy() {
	secret.Wipe(e.hash, e.secret, e.password)
	if e.set != nil {
		e.set.Destroy()
	}
}
