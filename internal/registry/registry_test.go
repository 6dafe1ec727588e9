package registry

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"testing"

	"golang.org/x/crypto/sha3"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
)

func TestCipherIsIdempotent(t *testing.T) {
	r := New()
	first, err := r.Cipher(catalog.AES, 32)
	if err != nil {
		t.Fatalf("cipher lookup failed: %v", err)
	}
	second, err := r.Cipher(catalog.AES, 32)
	if err != nil {
		t.Fatalf("cipher lookup failed: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached factory to be reused")
	}
	other, err := r.Cipher(catalog.AES, 16)
	if err != nil {
		t.Fatalf("cipher lookup failed: %v", err)
	}
	if other == first {
		t.Fatal("expected distinct factories per key length")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 cached factories, got %d", r.Len())
	}
}

func TestCipherRejectsUnsupportedLength(t *testing.T) {
	r := New()
	if _, err := r.Cipher(catalog.AES, 7); !errors.Is(err, secerr.ErrCrypto) {
		t.Fatalf("expected ErrCrypto, got %v", err)
	}
	if _, err := r.Cipher(catalog.SymKeyType(42), 16); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatal("failed lookups must not be cached")
	}
}

func TestCipherFactoryBuildsEveryCatalogCipher(t *testing.T) {
	r := New()
	for _, st := range catalog.SymKeyTypes() {
		for _, restricted := range []bool{true, false} {
			f, err := r.Cipher(st, st.KeyLen(restricted))
			if err != nil {
				t.Fatalf("register %s failed: %v", st, err)
			}
			key, err := f.Generate(rand.Reader)
			if err != nil {
				t.Fatalf("generate %s key failed: %v", st, err)
			}
			block, err := f.New(key)
			if err != nil {
				t.Fatalf("build %s failed: %v", st, err)
			}
			if block.BlockSize() != st.BlockSize() {
				t.Fatalf("%s block size %d != %d", st, block.BlockSize(), st.BlockSize())
			}
			if _, err := f.New(key[1:]); !errors.Is(err, secerr.ErrData) {
				t.Fatalf("expected ErrData for short %s key, got %v", st, err)
			}
		}
	}
}

func TestConcurrentKeyPairLookup(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	results := make([]PairFactory, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := r.KeyPair(catalog.P256)
			if err != nil {
				t.Errorf("key pair lookup failed: %v", err)
				return
			}
			results[i] = f
		}(i)
	}
	wg.Wait()
	for _, f := range results[1:] {
		if f != results[0] {
			t.Fatal("expected every caller to receive the same factory")
		}
	}
	if r.Len() != 1 {
		t.Fatalf("expected one cached factory, got %d", r.Len())
	}
}

func TestEllipticAgreement(t *testing.T) {
	r := New()
	for _, at := range catalog.EllipticKeyTypes() {
		f, err := r.KeyPair(at)
		if err != nil {
			t.Fatalf("key pair %s failed: %v", at, err)
		}
		if !f.Elliptic() || f.Type() != at {
			t.Fatalf("unexpected factory for %s", at)
		}
		a, err := f.Generate(rand.Reader)
		if err != nil {
			t.Fatalf("generate %s failed: %v", at, err)
		}
		b, err := f.Generate(rand.Reader)
		if err != nil {
			t.Fatalf("generate %s failed: %v", at, err)
		}
		ab, err := f.Agree(a.Private, b.Public)
		if err != nil {
			t.Fatalf("agree %s failed: %v", at, err)
		}
		ba, err := f.Agree(b.Private, a.Public)
		if err != nil {
			t.Fatalf("agree %s failed: %v", at, err)
		}
		if !bytes.Equal(ab, ba) {
			t.Fatalf("%s shared secrets differ", at)
		}

		parsed, err := f.ParsePrivate(a.Private)
		if err != nil {
			t.Fatalf("parse %s private failed: %v", at, err)
		}
		if !bytes.Equal(parsed.Public, a.Public) {
			t.Fatalf("%s public key not recovered from private key", at)
		}
		canon, err := f.ParsePublic(a.Public)
		if err != nil || !bytes.Equal(canon, a.Public) {
			t.Fatalf("%s public key not canonical: %v", at, err)
		}
		if _, err := f.Wrap(rand.Reader, a.Public, []byte("x")); !errors.Is(err, secerr.ErrLogic) {
			t.Fatalf("expected ErrLogic from %s wrap, got %v", at, err)
		}
	}
}

func TestEllipticRejectsForeignCurve(t *testing.T) {
	r := New()
	p256, _ := r.KeyPair(catalog.P256)
	p384, _ := r.KeyPair(catalog.P384)
	pair, err := p384.Generate(rand.Reader)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := p256.ParsePublic(pair.Public); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for foreign curve, got %v", err)
	}
	x, _ := r.KeyPair(catalog.X25519)
	if _, err := x.ParsePublic(make([]byte, 32)); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for zero point, got %v", err)
	}
	if _, err := x.ParsePublic(make([]byte, 31)); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for short point, got %v", err)
	}
}

func TestRSAChunkedWrap(t *testing.T) {
	r := New()
	f, err := r.KeyPair(catalog.RSA2048)
	if err != nil {
		t.Fatalf("key pair failed: %v", err)
	}
	if f.Elliptic() {
		t.Fatal("RSA factory must not claim key agreement")
	}
	pair, err := f.Generate(rand.Reader)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	for _, size := range []int{0, 1, 190, 191, 500} {
		data := bytes.Repeat([]byte{0x42}, size)
		wrapped, err := f.Wrap(rand.Reader, pair.Public, data)
		if err != nil {
			t.Fatalf("wrap %d bytes failed: %v", size, err)
		}
		if len(wrapped)%256 != 0 {
			t.Fatalf("wrapped length %d is not block aligned", len(wrapped))
		}
		got, err := f.Unwrap(pair.Private, wrapped)
		if err != nil {
			t.Fatalf("unwrap %d bytes failed: %v", size, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("unwrap of %d bytes mismatched", size)
		}
	}
	if _, err := f.Unwrap(pair.Private, make([]byte, 100)); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for ragged input, got %v", err)
	}
	if _, err := f.Agree(pair.Private, pair.Public); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic from RSA agree, got %v", err)
	}
}

func seeded(seed string) io.Reader {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(seed))
	return h
}

func TestEllipticGenerateFollowsRandomSource(t *testing.T) {
	r := New()
	for _, at := range catalog.EllipticKeyTypes() {
		f, err := r.KeyPair(at)
		if err != nil {
			t.Fatalf("key pair %s failed: %v", at, err)
		}
		a, err := f.Generate(seeded("elliptic " + at.String()))
		if err != nil {
			t.Fatalf("generate %s failed: %v", at, err)
		}
		b, err := f.Generate(seeded("elliptic " + at.String()))
		if err != nil {
			t.Fatalf("generate %s failed: %v", at, err)
		}
		if !bytes.Equal(a.Private, b.Private) || !bytes.Equal(a.Public, b.Public) {
			t.Fatalf("%s keys from the same seed differ", at)
		}
		c, err := f.Generate(seeded("other " + at.String()))
		if err != nil {
			t.Fatalf("generate %s failed: %v", at, err)
		}
		if bytes.Equal(a.Private, c.Private) {
			t.Fatalf("%s keys from different seeds match", at)
		}
	}
}

func TestEllipticGenerateRejectsOutOfRangeScalars(t *testing.T) {
	f, err := New().KeyPair(catalog.P256)
	if err != nil {
		t.Fatalf("key pair failed: %v", err)
	}
	// All-ones exceeds the P-256 order and zero is not a valid scalar.
	draws := append(bytes.Repeat([]byte{0xFF}, 32), make([]byte, 32)...)
	draws = append(draws, bytes.Repeat([]byte{0x01}, 32)...)
	pair, err := f.Generate(bytes.NewReader(draws))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	want, err := f.Generate(bytes.NewReader(bytes.Repeat([]byte{0x01}, 32)))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !bytes.Equal(want.Private, pair.Private) {
		t.Fatal("expected the first in-range draw to become the key")
	}
	if _, err := f.Generate(bytes.NewReader(bytes.Repeat([]byte{0xFF}, 32))); !errors.Is(err, secerr.ErrCrypto) {
		t.Fatalf("expected ErrCrypto when the source runs dry, got %v", err)
	}
}
