package symmetric

import (
	"crypto/cipher"
	"crypto/subtle"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
)

// StreamKey is a stream-cipher key. Ciphertexts from Encrypt carry their
// nonce as a prefix and are not authenticated.
type StreamKey struct {
	Type catalog.StreamKeyType
	raw  []byte
}

func NewStreamKey(t catalog.StreamKeyType, raw []byte) (*StreamKey, error) {
	if !t.Valid() {
		return nil, secerr.Data("unknown stream key type %d", int(t))
	}
	if len(raw) != t.KeyLen() {
		return nil, secerr.Data("%s key must be %d bytes, got %d", t, t.KeyLen(), len(raw))
	}
	return &StreamKey{Type: t, raw: secret.Clone(raw)}, nil
}

func GenerateStream(t catalog.StreamKeyType, rng io.Reader) (*StreamKey, error) {
	if !t.Valid() {
		return nil, secerr.Data("unknown stream key type %d", int(t))
	}
	raw := make([]byte, t.KeyLen())
	defer secret.Wipe(raw)
	if _, err := io.ReadFull(rng, raw); err != nil {
		return nil, secerr.Crypto(err, "generate %s key", t)
	}
	return NewStreamKey(t, raw)
}

func (k *StreamKey) Encoded() []byte {
	return secret.Clone(k.raw)
}

func (k *StreamKey) Equal(other *StreamKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.Type == other.Type && subtle.ConstantTimeCompare(k.raw, other.raw) == 1
}

func (k *StreamKey) Destroy() {
	secret.Wipe(k.raw)
	k.raw = nil
}

// XORKeyStream applies the keystream for nonce to src.
func (k *StreamKey) XORKeyStream(nonce, src []byte) ([]byte, error) {
	if len(nonce) != k.Type.NonceSize() {
		return nil, secerr.Logic("%s nonce must be %d bytes, got %d", k.Type, k.Type.NonceSize(), len(nonce))
	}
	out := make([]byte, len(src))
	switch k.Type {
	case catalog.Salsa20, catalog.XSalsa20:
		var key [32]byte
		copy(key[:], k.raw)
		salsa20.XORKeyStream(out, src, nonce, &key)
		secret.Wipe(key[:])
	default:
		s, err := k.NewStream(nonce)
		if err != nil {
			return nil, err
		}
		s.XORKeyStream(out, src)
	}
	return out, nil
}

// NewStream returns a cipher.Stream. Only the ChaCha20 family offers one.
func (k *StreamKey) NewStream(nonce []byte) (cipher.Stream, error) {
	switch k.Type {
	case catalog.ChaCha20, catalog.XChaCha20:
		if len(nonce) != k.Type.NonceSize() {
			return nil, secerr.Logic("%s nonce must be %d bytes, got %d", k.Type, k.Type.NonceSize(), len(nonce))
		}
		s, err := chacha20.NewUnauthenticatedCipher(k.raw, nonce)
		if err != nil {
			return nil, secerr.Crypto(err, "init %s", k.Type)
		}
		return s, nil
	default:
		return nil, secerr.Logic("%s has no incremental stream", k.Type)
	}
}

// Encrypt returns nonce ‖ ciphertext with a fresh nonce from rng.
func (k *StreamKey) Encrypt(rng io.Reader, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, k.Type.NonceSize())
	if _, err := io.ReadFull(rng, nonce); err != nil {
		return nil, secerr.Crypto(err, "read nonce")
	}
	ct, err := k.XORKeyStream(nonce, plaintext)
	if err != nil {
		return nil, err
	}
	return append(nonce, ct...), nil
}

func (k *StreamKey) Decrypt(data []byte) ([]byte, error) {
	n := k.Type.NonceSize()
	if len(data) < n {
		return nil, secerr.Data("ciphertext of %d bytes is shorter than its nonce", len(data))
	}
	return k.XORKeyStream(data[:n], data[n:])
}
