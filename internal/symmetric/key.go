// Package symmetric owns block-cipher and stream-cipher secret keys and the
// cipher objects built over them.
package symmetric

import (
	"crypto/cipher"
	"crypto/subtle"
	"io"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/registry"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
)

// Key is a block-cipher key with its algorithm id. Two keys are equal when
// the id and raw bytes match.
type Key struct {
	Type  catalog.SymKeyType
	raw   []byte
	block cipher.Block
}

// NewKey copies raw. The length must be one the type accepts.
func NewKey(t catalog.SymKeyType, raw []byte) (*Key, error) {
	if !t.Valid() {
		return nil, secerr.Data("unknown symmetric key type %d", int(t))
	}
	if len(raw) != t.KeyLen(true) && len(raw) != t.KeyLen(false) {
		return nil, secerr.Data("%s key of %d bytes", t, len(raw))
	}
	block, err := t.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	return &Key{Type: t, raw: secret.Clone(raw), block: block}, nil
}

// Generate draws a fresh key through the registry factory.
func Generate(f *registry.CipherFactory, rng io.Reader) (*Key, error) {
	raw, err := f.Generate(rng)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(raw)
	return NewKey(f.Type, raw)
}

// Encoded returns a copy of the raw key bytes.
func (k *Key) Encoded() []byte {
	return secret.Clone(k.raw)
}

func (k *Key) BlockSize() int {
	return k.block.BlockSize()
}

func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.Type == other.Type && subtle.ConstantTimeCompare(k.raw, other.raw) == 1
}

// Destroy wipes the raw key. The key must not be used afterwards.
func (k *Key) Destroy() {
	secret.Wipe(k.raw)
	k.raw = nil
	k.block = nil
}

// Cipher returns the fixed-mode cipher: CBC with PKCS#7 padding.
func (k *Key) Cipher() *BlockCipher {
	return &BlockCipher{block: k.block}
}

// BlockCipher is CBC with PKCS#7 padding. Only the first BlockSize bytes of
// an IV are used.
type BlockCipher struct {
	block cipher.Block
}

func (c *BlockCipher) BlockSize() int {
	return c.block.BlockSize()
}

func (c *BlockCipher) Encrypt(iv, plaintext []byte) ([]byte, error) {
	bs := c.block.BlockSize()
	if len(iv) < bs {
		return nil, secerr.Logic("iv of %d bytes is shorter than block size %d", len(iv), bs)
	}
	out := pad(plaintext, bs)
	cipher.NewCBCEncrypter(c.block, iv[:bs]).CryptBlocks(out, out)
	return out, nil
}

func (c *BlockCipher) Decrypt(iv, ciphertext []byte) ([]byte, error) {
	bs := c.block.BlockSize()
	if len(iv) < bs {
		return nil, secerr.Logic("iv of %d bytes is shorter than block size %d", len(iv), bs)
	}
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, secerr.Crypto(nil, "ciphertext of %d bytes is not block aligned", len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv[:bs]).CryptBlocks(out, ciphertext)
	return unpad(out, bs)
}

func pad(data []byte, bs int) []byte {
	n := bs - len(data)%bs
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(data []byte, bs int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > bs {
		return nil, secerr.Crypto(nil, "bad padding")
	}
	bad := 0
	for _, b := range data[len(data)-n:] {
		bad |= int(b) ^ n
	}
	if bad != 0 {
		return nil, secerr.Crypto(nil, "bad padding")
	}
	return data[:len(data)-n], nil
}
