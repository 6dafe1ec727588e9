// Package security is the composition root of the key engine. A Generator
// owns the configuration, the DRBG-backed random source and the key
// registry; every envelope, key and chain is built through it.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"ledgerlock/go-backend/internal/asymmetric"
	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/cipherchain"
	"ledgerlock/go-backend/internal/drbg"
	"ledgerlock/go-backend/internal/passhash"
	"ledgerlock/go-backend/internal/platform/privacylog"
	"ledgerlock/go-backend/internal/platform/ratelimiter"
	"ledgerlock/go-backend/internal/registry"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
	"ledgerlock/go-backend/internal/symmetric"
)

// ErrVerifyThrottled is returned when a stored hash has seen too many
// verification attempts. The ratchet does not run.
var ErrVerifyThrottled = errors.New("password verification throttled")

// Recorder receives engine activity for metrics.
type Recorder interface {
	drbg.Observer
	cipherchain.Recorder
	Verification(result string)
}

type Generator struct {
	cfg      Config
	phrase   []byte
	random   *drbg.Reader
	registry *registry.Registry
	logger   *slog.Logger
	recorder Recorder
	limiter  *ratelimiter.MapLimiter
	now      func() time.Time
}

type options struct {
	entropy  io.Reader
	logger   *slog.Logger
	recorder Recorder
	registry *registry.Registry
	limiter  *ratelimiter.MapLimiter
	now      func() time.Time
}

type Option func(*options)

// WithEntropy replaces crypto/rand as the DRBG entropy source.
func WithEntropy(r io.Reader) Option {
	return func(o *options) { o.entropy = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithVerifyLimiter throttles DerivePasswordHash per stored hash.
func WithVerifyLimiter(l *ratelimiter.MapLimiter) Option {
	return func(o *options) { o.limiter = l }
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New validates cfg and instantiates the DRBG. cfg.Phrase is copied.
func New(cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{entropy: rand.Reader, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = registry.New()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := slog.New(privacylog.WrapHandler(o.logger.Handler())).With("component", "security")

	phrase := secret.Clone(cfg.Phrase)
	cfg.Phrase = nil
	mech, err := newMechanism(cfg, o.entropy, phrase)
	if err != nil {
		secret.Wipe(phrase)
		return nil, err
	}
	reader := drbg.NewReader(mech, cfg.PredictionResistant)
	if o.recorder != nil {
		reader.SetObserver(o.recorder)
	}

	g := &Generator{
		cfg:      cfg,
		phrase:   phrase,
		random:   reader,
		registry: o.registry,
		logger:   logger,
		recorder: o.recorder,
		limiter:  o.limiter,
		now:      o.now,
	}
	logger.Debug("generator ready",
		"drbg", mechanismName(cfg),
		"long_hash", cfg.LongHash,
		"restricted", cfg.Restricted,
		"cipher_steps", cfg.CipherSteps,
		"hash_iterations", cfg.HashIterations,
	)
	return g, nil
}

func mechanismName(cfg Config) string {
	name := strings.ToLower(strings.TrimSpace(cfg.DRBG))
	if name == "" {
		return DRBGHMAC
	}
	return name
}

func newMechanism(cfg Config, entropy io.Reader, phrase []byte) (drbg.Mechanism, error) {
	h := sha256.New
	if cfg.LongHash {
		h = sha512.New
	}
	var opts []drbg.Option
	if cfg.ReseedInterval != 0 {
		opts = append(opts, drbg.WithReseedInterval(cfg.ReseedInterval))
	}
	if mechanismName(cfg) == DRBGHash {
		return drbg.NewHash(h, entropy, phrase, nil, opts...)
	}
	return drbg.NewHMAC(h, entropy, phrase, nil, opts...)
}

// Config returns the configuration without the phrase.
func (g *Generator) Config() Config {
	return g.cfg
}

// Random is the engine-wide random source, safe for concurrent use.
func (g *Generator) Random() io.Reader {
	return g.random
}

// Reseed mixes fresh entropy and additional into the DRBG.
func (g *Generator) Reseed(additional []byte) error {
	return g.random.Reseed(additional)
}

func (g *Generator) Registry() *registry.Registry {
	return g.registry
}

func (g *Generator) Iterations() int {
	return g.cfg.HashIterations
}

func (g *Generator) ChainConfig() cipherchain.Config {
	cfg := cipherchain.Config{
		Steps:      g.cfg.CipherSteps,
		Restricted: g.cfg.Restricted,
		Digest:     g.cfg.chainDigest(),
	}
	if g.recorder != nil {
		cfg.Recorder = g.recorder
	}
	return cfg
}

// Digest returns an unkeyed hash of type t.
func (g *Generator) Digest(t catalog.DigestType) (hash.Hash, error) {
	return t.New()
}

// Mac returns a MAC keyed by key with the security phrase written first.
func (g *Generator) Mac(mac catalog.MacType, digest catalog.DigestType, key []byte) (hash.Hash, error) {
	h, err := mac.New(digest, key)
	if err != nil {
		return nil, err
	}
	return newPhrasedMAC(h, g.phrase), nil
}

// NewCipherSet builds a chain set from an arbitrary shared secret.
func (g *Generator) NewCipherSet(sharedSecret, salt []byte) (*cipherchain.Set, error) {
	return cipherchain.New(g.registry, g.ChainConfig(), g.random, sharedSecret, salt)
}

// GeneratePasswordHash enrols password. The buffer is wiped.
func (g *Generator) GeneratePasswordHash(password []byte) (*passhash.Envelope, error) {
	e, err := passhash.New(g, password)
	if err != nil {
		g.logger.Warn("password enrolment failed", "reason", err.Error())
		return nil, err
	}
	if stored, err := e.External(); err == nil {
		g.logger.Info("password enrolled", "hash_id", HashID(stored))
	}
	return e, nil
}

// DerivePasswordHash verifies password against stored. The buffer is wiped
// on every path. A wrong password wraps secerr.ErrInvalidCredentials.
func (g *Generator) DerivePasswordHash(stored, password []byte) (*passhash.Envelope, error) {
	id := HashID(stored)
	if !g.limiter.Allow(id, g.now()) {
		secret.Wipe(password)
		g.recordVerification("throttled")
		g.logger.Warn("password verification throttled", "hash_id", id)
		return nil, ErrVerifyThrottled
	}
	e, err := passhash.Derive(g, stored, password)
	switch {
	case err == nil:
		g.limiter.Forget(id)
		g.recordVerification("ok")
		g.logger.Info("password verified", "hash_id", id)
		return e, nil
	case secerr.KindOf(err) == secerr.KindInvalidCredentials:
		g.recordVerification("invalid")
		g.logger.Info("password rejected", "hash_id", id)
	default:
		g.recordVerification("error")
		g.logger.Warn("password verification failed", "hash_id", id, "reason", err.Error())
	}
	return nil, err
}

func (g *Generator) recordVerification(result string) {
	if g.recorder != nil {
		g.recorder.Verification(result)
	}
}

// HashID names a stored password hash for logs and throttling.
func HashID(stored []byte) string {
	sum := blake2b.Sum256(stored)
	return "lh1" + base58.Encode(sum[:16])
}

func (g *Generator) GenerateAsymmetricKey(t catalog.AsymKeyType) (*asymmetric.Key, error) {
	k, err := asymmetric.Generate(g, t)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("key pair generated", "key_type", t.String(), "key_id", k.Fingerprint())
	return k, nil
}

// GenerateRandomAsymmetricKey picks one of the elliptic key types, so the
// result can always take part in key agreement.
func (g *Generator) GenerateRandomAsymmetricKey() (*asymmetric.Key, error) {
	picked, err := catalog.Sample(catalog.EllipticKeyTypes(), 1, g.random)
	if err != nil {
		return nil, err
	}
	return g.GenerateAsymmetricKey(picked[0])
}

// GenerateAsymmetricKeyFor builds a pair of the partner's elliptic type.
func (g *Generator) GenerateAsymmetricKeyFor(partner *asymmetric.Key) (*asymmetric.Key, error) {
	k, err := asymmetric.GenerateFor(g, partner)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("partner key pair generated", "key_type", k.Type().String(), "partner", partner.Fingerprint())
	return k, nil
}

func (g *Generator) ParsePublicKey(spec []byte) (*asymmetric.Key, error) {
	return asymmetric.ParsePublic(g, spec)
}

// RestoreKeyPair rebuilds a pair from its public spec and private encoding.
func (g *Generator) RestoreKeyPair(spec, private []byte) (*asymmetric.Key, error) {
	return asymmetric.WithPrivate(g, spec, private)
}

func (g *Generator) GenerateSymmetricKey(t catalog.SymKeyType) (*symmetric.Key, error) {
	f, err := g.registry.Cipher(t, t.KeyLen(g.cfg.Restricted))
	if err != nil {
		return nil, err
	}
	return symmetric.Generate(f, g.random)
}

func (g *Generator) GenerateRandomSymmetricKey() (*symmetric.Key, error) {
	picked, err := catalog.Sample(catalog.SymKeyTypes(), 1, g.random)
	if err != nil {
		return nil, err
	}
	return g.GenerateSymmetricKey(picked[0])
}

func (g *Generator) GenerateStreamKey(t catalog.StreamKeyType) (*symmetric.StreamKey, error) {
	return symmetric.GenerateStream(t, g.random)
}

func (g *Generator) GenerateRandomStreamKey() (*symmetric.StreamKey, error) {
	picked, err := catalog.Sample(catalog.StreamKeyTypes(), 1, g.random)
	if err != nil {
		return nil, err
	}
	return g.GenerateStreamKey(picked[0])
}

// Destroy wipes the phrase. The generator must not be used afterwards.
func (g *Generator) Destroy() {
	secret.Wipe(g.phrase)
}
