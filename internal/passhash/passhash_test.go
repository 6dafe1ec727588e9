package passhash

import (
	"bytes"
	"crypto/rand"
	"errors"
	"hash"
	"io"
	"testing"

	"ledgerlock/go-backend/internal/asymmetric"
	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/cipherchain"
	"ledgerlock/go-backend/internal/registry"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
	"ledgerlock/go-backend/internal/symmetric"
)

type testProvider struct {
	reg        *registry.Registry
	iterations int
}

func newTestProvider(iterations int) *testProvider {
	return &testProvider{reg: registry.New(), iterations: iterations}
}

func (p *testProvider) Random() io.Reader             { return rand.Reader }
func (p *testProvider) Registry() *registry.Registry { return p.reg }
func (p *testProvider) Iterations() int              { return p.iterations }
func (p *testProvider) ChainConfig() cipherchain.Config {
	return cipherchain.Config{Steps: 3, Digest: catalog.SHA256}
}
func (p *testProvider) Mac(mac catalog.MacType, digest catalog.DigestType, key []byte) (hash.Hash, error) {
	return mac.New(digest, key)
}

func pw(s string) []byte {
	return []byte(s)
}

func enrol(t *testing.T, p Provider, password string) *Envelope {
	t.Helper()
	e, err := New(p, pw(password))
	if err != nil {
		t.Fatalf("enrol failed: %v", err)
	}
	return e
}

func TestEnrolAndVerify(t *testing.T) {
	p := newTestProvider(32)
	e := enrol(t, p, "correct horse")
	stored, err := e.External()
	if err != nil {
		t.Fatalf("external failed: %v", err)
	}
	hk := e.Key()
	if len(stored) != ModeLen+hk.HashLen()+IVSize {
		t.Fatalf("stored hash is %d bytes", len(stored))
	}
	off := hashOffset(len("correct horse"), hk.HashLen())
	if !bytes.Equal(stored[ModeLen+off:ModeLen+off+IVSize], hk.IV[:]) {
		t.Fatal("IV not spliced at the password-length offset")
	}

	blob, err := e.EncryptString("ledger entry")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	d, err := Derive(p, stored, pw("correct horse"))
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	got, err := d.DecryptString(blob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if got != "ledger entry" {
		t.Fatalf("unexpected plaintext %q", got)
	}
	again, _ := d.External()
	if !bytes.Equal(again, stored) {
		t.Fatal("derived envelope must reproduce the stored form")
	}
}

func TestWrongPasswordIsInvalidCredentials(t *testing.T) {
	p := newTestProvider(16)
	e := enrol(t, p, "open sesame")
	stored, _ := e.External()
	for _, guess := range []string{"open sesamE", "open", "a much longer wrong password"} {
		_, err := Derive(p, stored, pw(guess))
		if !errors.Is(err, secerr.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %q, got %v", guess, err)
		}
		if secerr.KindOf(err) != secerr.KindInvalidCredentials {
			t.Fatalf("unexpected kind %v", secerr.KindOf(err))
		}
	}
}

func TestIterationCountChangesVerifier(t *testing.T) {
	e := enrol(t, newTestProvider(16), "stable")
	stored, _ := e.External()
	if _, err := Derive(newTestProvider(17), stored, pw("stable")); !errors.Is(err, secerr.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for other iteration count, got %v", err)
	}
}

func TestCorruptStoredHashIsDataError(t *testing.T) {
	p := newTestProvider(8)
	stored, _ := enrol(t, p, "pass").External()

	bad := append([]byte(nil), stored...)
	bad[0] = bad[0]&0xF0 | 0x7
	if _, err := Derive(p, bad, pw("pass")); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for bad version, got %v", err)
	}
	if _, err := Derive(p, stored[:len(stored)-1], pw("pass")); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for truncated hash, got %v", err)
	}
	if _, err := Derive(p, stored[:2], pw("pass")); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for short hash, got %v", err)
	}
}

func TestPasswordBuffersAreWiped(t *testing.T) {
	p := newTestProvider(8)
	buf := pw("wipe me please")
	e, err := New(p, buf)
	if err != nil {
		t.Fatalf("enrol failed: %v", err)
	}
	if !secret.IsZero(buf) {
		t.Fatal("enrol must wipe the password")
	}
	stored, _ := e.External()

	buf = pw("wipe me please")
	if _, err := Derive(p, stored, buf); err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if !secret.IsZero(buf) {
		t.Fatal("derive must wipe the password on success")
	}
	buf = pw("wrong password")
	if _, err := Derive(p, stored, buf); err == nil {
		t.Fatal("expected failure")
	}
	if !secret.IsZero(buf) {
		t.Fatal("derive must wipe the password on failure")
	}
	buf = pw("corrupt")
	if _, err := Derive(p, []byte{1}, buf); err == nil {
		t.Fatal("expected failure")
	}
	if !secret.IsZero(buf) {
		t.Fatal("derive must wipe the password on parse failure")
	}
}

func TestSimilarAndMatches(t *testing.T) {
	p := newTestProvider(8)
	e := enrol(t, p, "sibling")
	sib, err := e.Similar()
	if err != nil {
		t.Fatalf("similar failed: %v", err)
	}
	a, _ := e.External()
	b, _ := sib.External()
	if bytes.Equal(a, b) {
		t.Fatal("sibling must use a fresh hash key")
	}
	if _, err := Derive(p, b, pw("sibling")); err != nil {
		t.Fatalf("sibling does not verify the same password: %v", err)
	}
	ok, err := e.Matches(b)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	other, _ := enrol(t, p, "stranger").External()
	ok, err = e.Matches(other)
	if err != nil || ok {
		t.Fatalf("expected no match, got %v %v", ok, err)
	}
}

func TestRatchetDependsOnAdjust(t *testing.T) {
	p := newTestProvider(8)
	hk, err := NewHashKey(rand.Reader)
	if err != nil {
		t.Fatalf("hash key failed: %v", err)
	}
	hk.Adjust = 0
	v1, s1, err := ratchet(p, hk, pw("x"))
	if err != nil {
		t.Fatalf("ratchet failed: %v", err)
	}
	v2, s2, _ := ratchet(p, hk, pw("x"))
	if !bytes.Equal(v1, v2) || !bytes.Equal(s1, s2) {
		t.Fatal("ratchet must be deterministic")
	}
	if bytes.Contains(v1, s1) {
		t.Fatal("secret hash must be disjoint from the verifier")
	}
	hk.Adjust = 1
	v3, _, _ := ratchet(p, hk, pw("x"))
	if bytes.Equal(v1, v3) {
		t.Fatal("adjustment must change the verifier")
	}
}

func TestHashKeyModeRoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		hk, err := NewHashKey(rand.Reader)
		if err != nil {
			t.Fatalf("hash key failed: %v", err)
		}
		if hk.Prime == hk.Alternate || hk.Prime == hk.Secret || hk.Alternate == hk.Secret {
			t.Fatalf("ratchet digests must be distinct: %+v", hk)
		}
		mode, err := hk.Mode()
		if err != nil {
			t.Fatalf("mode failed: %v", err)
		}
		if len(mode) != ModeLen {
			t.Fatalf("mode is %d bytes", len(mode))
		}
		got, err := decodeHashKey(mode)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		got.IV = hk.IV
		if got != hk {
			t.Fatalf("mode round trip mismatch: %+v != %+v", got, hk)
		}
	}
}

func TestEnvelopeKeyWrapping(t *testing.T) {
	p := newTestProvider(8)
	e := enrol(t, p, "wrap keys")

	sym, err := symmetric.NewKey(catalog.Serpent, bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatalf("symmetric key failed: %v", err)
	}
	wrapped, err := e.SecureSymmetricKey(sym)
	if err != nil {
		t.Fatalf("wrap failed: %v", err)
	}
	got, err := e.DeriveSymmetricKey(wrapped)
	if err != nil || !got.Equal(sym) {
		t.Fatalf("symmetric key did not round trip: %v", err)
	}

	stream, _ := symmetric.GenerateStream(catalog.Salsa20, rand.Reader)
	wrapped, err = e.SecureStreamKey(stream)
	if err != nil {
		t.Fatalf("stream wrap failed: %v", err)
	}
	gotStream, err := e.DeriveStreamKey(wrapped)
	if err != nil || !gotStream.Equal(stream) {
		t.Fatalf("stream key did not round trip: %v", err)
	}

	pair, err := asymmetric.Generate(p, catalog.X25519)
	if err != nil {
		t.Fatalf("key pair failed: %v", err)
	}
	wrapped, err = e.SecurePrivateKey(pair)
	if err != nil {
		t.Fatalf("private wrap failed: %v", err)
	}
	restored, err := e.DerivePrivateKey(pair.PublicSpec(), wrapped)
	if err != nil {
		t.Fatalf("private unwrap failed: %v", err)
	}
	if !restored.Equal(pair) {
		t.Fatal("private key did not round trip")
	}
	if len(wrapped) > asymmetric.MaxWrappedPrivateSize {
		t.Fatalf("wrapped private key of %d bytes exceeds the unwrap limit", len(wrapped))
	}
	if _, err := e.DeriveSymmetricKey(wrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData unwrapping a private key as a block key, got %v", err)
	}
	if _, err := e.DerivePrivateKey(pair.PublicSpec(), make([]byte, asymmetric.MaxWrappedPrivateSize+1)); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for oversized wrapped key, got %v", err)
	}
	p256, _ := asymmetric.Generate(p, catalog.P256)
	if _, err := e.DerivePrivateKey(p256.PublicSpec(), wrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for mismatched key type, got %v", err)
	}
}

func TestWrappedPrivateSizeLimit(t *testing.T) {
	if err := checkWrappedPrivate(make([]byte, asymmetric.MaxWrappedPrivateSize)); err != nil {
		t.Fatalf("limit-sized wrap rejected: %v", err)
	}
	if err := checkWrappedPrivate(make([]byte, asymmetric.MaxWrappedPrivateSize+1)); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for oversized wrap, got %v", err)
	}
}
