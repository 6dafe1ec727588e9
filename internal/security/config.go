package security

import (
	"strings"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/drbg"
	"ledgerlock/go-backend/internal/secerr"
)

const (
	DefaultCipherSteps    = 3
	DefaultHashIterations = 2048
	MaxHashIterations     = 1 << 20

	DRBGHMAC = "hmac"
	DRBGHash = "hash"
)

// Config is fixed when the Generator is built.
type Config struct {
	// Restricted limits block-cipher keys to 128 bits. Peers exchanging
	// chain ciphertexts must agree on it.
	Restricted bool
	// LongHash selects SHA-512 instead of SHA-256 for the DRBG and the
	// default chain digest.
	LongHash bool
	// CipherSteps is the number of distinct ciphers in an encryption chain.
	CipherSteps int
	// HashIterations is the base pass count of the password ratchet.
	HashIterations int
	// Phrase personalizes the DRBG and prefixes every MAC.
	Phrase []byte

	DRBG                string
	ReseedInterval      uint64
	PredictionResistant bool
}

func DefaultConfig() Config {
	return Config{
		LongHash:       true,
		CipherSteps:    DefaultCipherSteps,
		HashIterations: DefaultHashIterations,
		DRBG:           DRBGHMAC,
	}
}

func (c Config) Validate() error {
	if c.CipherSteps < 1 || c.CipherSteps > catalog.Count(catalog.CategorySymKey) {
		return secerr.Logic("cipher steps %d out of range 1..%d", c.CipherSteps, catalog.Count(catalog.CategorySymKey))
	}
	if c.HashIterations < 1 || c.HashIterations > MaxHashIterations {
		return secerr.Logic("hash iterations %d out of range 1..%d", c.HashIterations, MaxHashIterations)
	}
	switch strings.ToLower(strings.TrimSpace(c.DRBG)) {
	case "", DRBGHMAC, DRBGHash:
	default:
		return secerr.Logic("unknown drbg %q", c.DRBG)
	}
	if c.ReseedInterval > drbg.MaxReseedInterval {
		return secerr.Logic("reseed interval %d exceeds %d", c.ReseedInterval, drbg.MaxReseedInterval)
	}
	return nil
}

// chainDigest is the digest used for chains that are not bound to a hash
// key or key pair.
func (c Config) chainDigest() catalog.DigestType {
	if c.LongHash {
		return catalog.SHA512
	}
	return catalog.SHA256
}
