package cipherchain

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"testing"

	"golang.org/x/crypto/sha3"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/registry"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/symmetric"
)

func seeded(seed string) io.Reader {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(seed))
	return h
}

type countingRecorder struct {
	mu  sync.Mutex
	ops map[string]int
}

func (r *countingRecorder) CipherOp(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
	}
	r.ops[op]++
}

func newTestSet(t *testing.T, steps int, salt string) *Set {
	t.Helper()
	cfg := Config{Steps: steps, Digest: catalog.SHA512}
	s, err := New(registry.New(), cfg, rand.Reader, []byte("shared secret material"), []byte(salt))
	if err != nil {
		t.Fatalf("new set failed: %v", err)
	}
	return s
}

func TestHelloWorldLayout(t *testing.T) {
	s := newTestSet(t, 3, "salt")
	blob, err := s.Encrypt([]byte("hello world"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	k, ct, err := ParseKey(blob)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(k.Ciphers) != 3 || len(k.IV) != IVSize {
		t.Fatalf("unexpected key %+v", k)
	}
	if HeaderLen(3) != 2 {
		t.Fatalf("three-step header must be 2 bytes, got %d", HeaderLen(3))
	}
	if len(blob) != 2+IVSize+len(ct) {
		t.Fatalf("blob length %d, want %d", len(blob), 2+IVSize+len(ct))
	}
	if blob[0]&0x0F != 3 || blob[0]&noIVFlag != 0 {
		t.Fatalf("unexpected first header byte %#x", blob[0])
	}
	pt, err := s.Decrypt(blob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(pt) != "hello world" {
		t.Fatalf("unexpected plaintext %q", pt)
	}
}

func TestRoundTripEveryDepth(t *testing.T) {
	msgs := [][]byte{{}, []byte("x"), bytes.Repeat([]byte("0123456789abcdef"), 64)}
	for steps := 1; steps <= catalog.Count(catalog.CategorySymKey); steps++ {
		s := newTestSet(t, steps, "depth")
		for _, msg := range msgs {
			blob, err := s.Encrypt(msg)
			if err != nil {
				t.Fatalf("steps=%d encrypt failed: %v", steps, err)
			}
			pt, err := s.Decrypt(blob)
			if err != nil {
				t.Fatalf("steps=%d decrypt failed: %v", steps, err)
			}
			if !bytes.Equal(pt, msg) {
				t.Fatalf("steps=%d round trip mismatch", steps)
			}
		}
	}
}

func TestFreshCiphertextEveryCall(t *testing.T) {
	s := newTestSet(t, 3, "fresh")
	a, err := s.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	b, err := s.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("expected distinct ciphertexts for repeated encryption")
	}
}

func TestSetsFromSameSecretInteroperate(t *testing.T) {
	a := newTestSet(t, 4, "pair")
	b := newTestSet(t, 2, "pair")
	blob, err := a.Encrypt([]byte("across sets"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	pt, err := b.Decrypt(blob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(pt) != "across sets" {
		t.Fatalf("unexpected plaintext %q", pt)
	}

	other := newTestSet(t, 4, "other salt")
	got, err := other.Decrypt(blob)
	if err == nil && bytes.Equal(got, []byte("across sets")) {
		t.Fatal("a different salt must not decrypt")
	}
}

func TestDeterministicWithSeededRandom(t *testing.T) {
	build := func() []byte {
		s, err := New(registry.New(), Config{Steps: 3, Digest: catalog.SHA256}, seeded("chain"), []byte("k"), []byte("s"))
		if err != nil {
			t.Fatalf("new set failed: %v", err)
		}
		blob, err := s.Encrypt([]byte("repeatable"))
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		return blob
	}
	if !bytes.Equal(build(), build()) {
		t.Fatal("same seed must give the same blob")
	}
}

func TestParseKeyRejectsBadHeaders(t *testing.T) {
	tail := bytes.Repeat([]byte{0x44}, 64)
	unknown := append([]byte{0x12, 0x09}, tail...)
	if _, err := newTestSet(t, 2, "h").Decrypt(unknown); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for unknown id, got %v", err)
	}
	repeated := append([]byte{0x12, 0x01}, tail...)
	if _, _, err := ParseKey(repeated); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for repeated id, got %v", err)
	}
	zero := append([]byte{0x10}, tail...)
	if _, _, err := ParseKey(zero); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for empty chain, got %v", err)
	}
	stray := append([]byte{0x12, 0x53}, tail...)
	if _, _, err := ParseKey(stray); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for stray bits, got %v", err)
	}
}

func TestTamperedCiphertextFails(t *testing.T) {
	s := newTestSet(t, 3, "tamper")
	blob, err := s.Encrypt([]byte("do not touch"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := s.Decrypt(blob[:len(blob)-1]); !errors.Is(err, secerr.ErrCrypto) {
		t.Fatalf("expected ErrCrypto for truncated blob, got %v", err)
	}
}

func TestNoIVForm(t *testing.T) {
	s := newTestSet(t, 3, "noiv")
	k, err := s.NewKey(true)
	if err != nil {
		t.Fatalf("new key failed: %v", err)
	}
	blob, err := s.EncryptWith(k, []byte("no iv here"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if blob[0]&noIVFlag == 0 {
		t.Fatal("expected the no-IV flag")
	}
	parsed, _, err := ParseKey(blob)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.IV != nil {
		t.Fatal("no-IV form must not carry an IV")
	}
	for i, c := range parsed.Ciphers {
		if c != k.Ciphers[i] {
			t.Fatalf("cipher %d mismatch", i)
		}
	}
	pt, err := s.Decrypt(blob)
	if err != nil || string(pt) != "no iv here" {
		t.Fatalf("decrypt failed: %v", err)
	}
}

func TestKeyWrapping(t *testing.T) {
	rec := &countingRecorder{}
	s, err := New(registry.New(), Config{Steps: 3, Digest: catalog.SHA256, Recorder: rec}, rand.Reader, []byte("wrap"), nil)
	if err != nil {
		t.Fatalf("new set failed: %v", err)
	}
	for _, st := range catalog.SymKeyTypes() {
		key, err := symmetric.NewKey(st, bytes.Repeat([]byte{byte(st)}, st.KeyLen(true)))
		if err != nil {
			t.Fatalf("key %s failed: %v", st, err)
		}
		wrapped, err := s.SecureSymmetricKey(key)
		if err != nil {
			t.Fatalf("wrap %s failed: %v", st, err)
		}
		got, err := s.DeriveSymmetricKey(wrapped)
		if err != nil {
			t.Fatalf("unwrap %s failed: %v", st, err)
		}
		if !got.Equal(key) {
			t.Fatalf("%s did not round trip", st)
		}
	}
	stream, err := symmetric.GenerateStream(catalog.XSalsa20, rand.Reader)
	if err != nil {
		t.Fatalf("stream key failed: %v", err)
	}
	wrapped, err := s.SecureStreamKey(stream)
	if err != nil {
		t.Fatalf("wrap stream failed: %v", err)
	}
	got, err := s.DeriveStreamKey(wrapped)
	if err != nil || !got.Equal(stream) {
		t.Fatalf("stream key did not round trip: %v", err)
	}

	wrapped[0] ^= 0xFF
	if _, err := s.DeriveStreamKey(wrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for missing tag, got %v", err)
	}
	if rec.ops["wrap"] != 8 || rec.ops["unwrap"] != 8 {
		t.Fatalf("unexpected op counts %v", rec.ops)
	}
}

func TestBytesWrapping(t *testing.T) {
	s := newTestSet(t, 3, "bytes")
	payload := []byte("opaque payload")
	wrapped, err := s.SecureBytes(payload)
	if err != nil {
		t.Fatalf("wrap failed: %v", err)
	}
	got, err := s.DeriveBytes(wrapped)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("bytes did not round trip: %v", err)
	}

	key, err := symmetric.NewKey(catalog.AES, bytes.Repeat([]byte{1}, 16))
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	keyWrapped, err := s.SecureSymmetricKey(key)
	if err != nil {
		t.Fatalf("wrap key failed: %v", err)
	}
	if _, err := s.DeriveBytes(keyWrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for a key payload, got %v", err)
	}
}

func TestWrappedKindsDoNotAlias(t *testing.T) {
	s := newTestSet(t, 3, "kinds")
	stream, err := symmetric.GenerateStream(catalog.ChaCha20, rand.Reader)
	if err != nil {
		t.Fatalf("stream key failed: %v", err)
	}
	streamWrapped, err := s.SecureStreamKey(stream)
	if err != nil {
		t.Fatalf("wrap stream failed: %v", err)
	}
	if _, err := s.DeriveSymmetricKey(streamWrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData unwrapping a stream key as a block key, got %v", err)
	}
	if _, err := s.DeriveBytes(streamWrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData unwrapping a stream key as bytes, got %v", err)
	}

	key, err := symmetric.NewKey(catalog.AES, bytes.Repeat([]byte{7}, 16))
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	keyWrapped, err := s.SecureSymmetricKey(key)
	if err != nil {
		t.Fatalf("wrap key failed: %v", err)
	}
	if _, err := s.DeriveStreamKey(keyWrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData unwrapping a block key as a stream key, got %v", err)
	}
	if _, _, err := s.DeriveTagged(TagPrivate, keyWrapped); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData unwrapping a block key as a private key, got %v", err)
	}
}

func TestTagNeedles(t *testing.T) {
	sym, err := TagNeedle(TagSymmetric, 1)
	if err != nil || !bytes.Equal(sym, []byte{17}) {
		t.Fatalf("symmetric needle = %x, %v", sym, err)
	}
	str, err := TagNeedle(TagStream, 1)
	if err != nil || !bytes.Equal(str, []byte{'S', 17}) {
		t.Fatalf("stream needle = %x, %v", str, err)
	}
	if _, err := TagNeedle(TagStream, 16); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic for id 16, got %v", err)
	}
	if id, err := ParseTag(TagStream, str); err != nil || id != 1 {
		t.Fatalf("parse stream needle = %d, %v", id, err)
	}
	if _, err := ParseTag(TagSymmetric, []byte{0, 17}); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for a zero kind prefix, got %v", err)
	}
	if _, err := ParseTag(TagSymmetric, []byte{16}); !errors.Is(err, secerr.ErrData) {
		t.Fatalf("expected ErrData for an unaligned tag, got %v", err)
	}
}

func TestConcurrentUse(t *testing.T) {
	s := newTestSet(t, 5, "race")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := bytes.Repeat([]byte{byte(i)}, i+1)
			blob, err := s.Encrypt(msg)
			if err != nil {
				t.Errorf("encrypt failed: %v", err)
				return
			}
			pt, err := s.Decrypt(blob)
			if err != nil || !bytes.Equal(pt, msg) {
				t.Errorf("round trip failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestDestroyedSetRefusesWork(t *testing.T) {
	s := newTestSet(t, 2, "gone")
	blob, err := s.Encrypt([]byte("bye"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	s.Destroy()
	if _, err := s.Decrypt(blob); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic after destroy, got %v", err)
	}
}

func TestDestroyBeforeUseDerivesNothing(t *testing.T) {
	s := newTestSet(t, 2, "unused")
	s.Destroy()
	if s.keys != nil {
		t.Fatal("destroy derived chain keys")
	}
	derived := true
	s.once.Do(func() { derived = false })
	if derived {
		t.Fatal("destroy ran key derivation")
	}
	if _, err := s.Encrypt([]byte("late")); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic after destroy, got %v", err)
	}
	s.Destroy()
}

func TestDestroyDuringUse(t *testing.T) {
	s := newTestSet(t, 3, "racing destroy")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := bytes.Repeat([]byte{byte(i)}, 32)
			blob, err := s.Encrypt(msg)
			if err != nil {
				if !errors.Is(err, secerr.ErrLogic) {
					t.Errorf("unexpected encrypt error: %v", err)
				}
				return
			}
			pt, err := s.Decrypt(blob)
			if err != nil {
				if !errors.Is(err, secerr.ErrLogic) {
					t.Errorf("unexpected decrypt error: %v", err)
				}
				return
			}
			if !bytes.Equal(pt, msg) {
				t.Error("round trip mismatch")
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Destroy()
	}()
	wg.Wait()
	if _, err := s.Encrypt([]byte("after")); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic after destroy, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	reg := registry.New()
	if _, err := New(reg, Config{Steps: 0, Digest: catalog.SHA256}, rand.Reader, []byte("k"), nil); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic for zero steps, got %v", err)
	}
	if _, err := New(reg, Config{Steps: 8, Digest: catalog.SHA256}, rand.Reader, []byte("k"), nil); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic for eight steps, got %v", err)
	}
	if _, err := New(reg, Config{Steps: 3, Digest: catalog.SHA256}, rand.Reader, nil, nil); !errors.Is(err, secerr.ErrLogic) {
		t.Fatalf("expected ErrLogic for empty secret, got %v", err)
	}
}
