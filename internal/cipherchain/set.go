// Package cipherchain composes a random ordered chain of distinct block
// ciphers, all keyed from one shared secret, into a single encryption
// pipeline.
package cipherchain

import (
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/registry"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
	"ledgerlock/go-backend/internal/symmetric"
)

const infoPrefix = "ledgerlock/cipherchain/v1|"

// Recorder counts chain operations.
type Recorder interface {
	CipherOp(op string)
}

// Config fixes the shape of a chain. Both ends of an exchange must agree on
// Restricted and Digest; Steps only affects encryption.
type Config struct {
	Steps      int
	Restricted bool
	Digest     catalog.DigestType
	Recorder   Recorder
}

func (c Config) Validate() error {
	if c.Steps < 1 || c.Steps > catalog.Count(catalog.CategorySymKey) {
		return secerr.Logic("cipher chain steps %d out of range", c.Steps)
	}
	if !c.Digest.Valid() {
		return secerr.Logic("cipher chain digest %d unknown", int(c.Digest))
	}
	return nil
}

// Set holds one derived key per catalog cipher. Keys are derived on first
// use and then fixed for the life of the set. A Set is safe for concurrent
// use when rng is.
type Set struct {
	cfg    Config
	reg    *registry.Registry
	rng    io.Reader
	secret []byte
	salt   []byte

	// mu is held shared for every cipher pass and exclusively by Destroy.
	mu        sync.RWMutex
	destroyed bool
	once      sync.Once
	keys      map[catalog.SymKeyType]*symmetric.Key
	err       error
}

// New copies sharedSecret and salt. The caller keeps ownership of both.
func New(reg *registry.Registry, cfg Config, rng io.Reader, sharedSecret, salt []byte) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil || rng == nil {
		return nil, secerr.Logic("cipher chain needs a registry and a random source")
	}
	if len(sharedSecret) == 0 {
		return nil, secerr.Logic("cipher chain needs a shared secret")
	}
	return &Set{
		cfg:    cfg,
		reg:    reg,
		rng:    rng,
		secret: secret.Clone(sharedSecret),
		salt:   secret.Clone(salt),
	}, nil
}

func (s *Set) Config() Config {
	return s.cfg
}

func (s *Set) init() {
	s.once.Do(func() {
		keys := make(map[catalog.SymKeyType]*symmetric.Key, catalog.Count(catalog.CategorySymKey))
		for _, t := range catalog.SymKeyTypes() {
			k, err := s.derive(t)
			if err != nil {
				s.err = err
				return
			}
			keys[t] = k
		}
		s.keys = keys
	})
}

func (s *Set) derive(t catalog.SymKeyType) (*symmetric.Key, error) {
	f, err := s.reg.Cipher(t, t.KeyLen(s.cfg.Restricted))
	if err != nil {
		return nil, err
	}
	raw := make([]byte, f.KeyLen)
	defer secret.Wipe(raw)
	kdf := hkdf.New(s.cfg.Digest.HashFunc(), s.secret, s.salt, []byte(infoPrefix+t.String()))
	if _, err := io.ReadFull(kdf, raw); err != nil {
		return nil, secerr.Crypto(err, "derive %s chain key", t)
	}
	if _, err := f.New(raw); err != nil {
		return nil, err
	}
	return symmetric.NewKey(t, raw)
}

// key needs s.mu held shared.
func (s *Set) key(t catalog.SymKeyType) (*symmetric.Key, error) {
	if s.destroyed {
		return nil, secerr.Logic("cipher chain set destroyed")
	}
	s.init()
	if s.err != nil {
		return nil, s.err
	}
	k, ok := s.keys[t]
	if !ok {
		return nil, secerr.Data("cipher %d not in chain set", int(t))
	}
	return k, nil
}

// NewKey samples a fresh ordered cipher list and, unless noIV, a fresh IV.
func (s *Set) NewKey(noIV bool) (Key, error) {
	ciphers, err := catalog.Sample(catalog.SymKeyTypes(), s.cfg.Steps, s.rng)
	if err != nil {
		return Key{}, err
	}
	k := Key{Ciphers: ciphers}
	if !noIV {
		k.IV = make([]byte, IVSize)
		if _, err := io.ReadFull(s.rng, k.IV); err != nil {
			return Key{}, secerr.Crypto(err, "read chain iv")
		}
	}
	return k, nil
}

// Encrypt runs plaintext through a freshly sampled chain and returns the
// self-describing blob.
func (s *Set) Encrypt(plaintext []byte) ([]byte, error) {
	k, err := s.NewKey(false)
	if err != nil {
		return nil, err
	}
	s.record("encrypt")
	return s.EncryptWith(k, plaintext)
}

// EncryptWith runs plaintext through the chain described by k.
func (s *Set) EncryptWith(k Key, plaintext []byte) ([]byte, error) {
	iv := k.IV
	if iv == nil {
		iv = make([]byte, IVSize)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ct := plaintext
	for i, t := range k.Ciphers {
		key, err := s.key(t)
		if err != nil {
			return nil, err
		}
		next, err := key.Cipher().Encrypt(iv, ct)
		if err != nil {
			return nil, err
		}
		// Intermediate stages belong to us; plaintext belongs to the caller.
		if i > 0 {
			secret.Wipe(ct)
		}
		ct = next
	}
	return k.Wrap(ct)
}

// Decrypt parses the chain key from blob and inverts the chain.
func (s *Set) Decrypt(blob []byte) ([]byte, error) {
	k, ct, err := ParseKey(blob)
	if err != nil {
		return nil, err
	}
	s.record("decrypt")
	iv := k.IV
	if iv == nil {
		iv = make([]byte, IVSize)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(k.Ciphers) - 1; i >= 0; i-- {
		key, err := s.key(k.Ciphers[i])
		if err != nil {
			return nil, err
		}
		next, err := key.Cipher().Decrypt(iv, ct)
		secret.Wipe(ct)
		if err != nil {
			return nil, err
		}
		ct = next
	}
	return ct, nil
}

func (s *Set) EncryptString(plaintext string) ([]byte, error) {
	return s.Encrypt([]byte(plaintext))
}

func (s *Set) DecryptString(blob []byte) (string, error) {
	pt, err := s.Decrypt(blob)
	if err != nil {
		return "", err
	}
	defer secret.Wipe(pt)
	return string(pt), nil
}

// Destroy wipes the shared secret and any derived keys. It waits for
// in-flight cipher passes and never derives keys itself.
func (s *Set) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	secret.Wipe(s.secret, s.salt)
	for _, k := range s.keys {
		k.Destroy()
	}
	s.keys = nil
	s.err = secerr.Logic("cipher chain set destroyed")
}

func (s *Set) record(op string) {
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.CipherOp(op)
	}
}
