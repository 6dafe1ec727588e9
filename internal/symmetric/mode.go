package symmetric

import (
	"crypto/cipher"
	"io"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
)

// ModeCipher runs the key in a selectable mode. Encrypt and Decrypt carry the
// IV or nonce as a prefix of the ciphertext.
type ModeCipher struct {
	Mode  catalog.CipherMode
	block cipher.Block
	aead  cipher.AEAD
}

// ModeCipher returns a cipher for mode. GCM needs a 128-bit block cipher.
func (k *Key) ModeCipher(mode catalog.CipherMode) (*ModeCipher, error) {
	m := &ModeCipher{Mode: mode, block: k.block}
	switch mode {
	case catalog.CBC, catalog.OFB, catalog.CFB, catalog.CTR:
	case catalog.GCM:
		if k.block.BlockSize() != 16 {
			return nil, secerr.Logic("GCM needs a 16 byte block, %s has %d", k.Type, k.block.BlockSize())
		}
		aead, err := cipher.NewGCM(k.block)
		if err != nil {
			return nil, secerr.Crypto(err, "init %s/GCM", k.Type)
		}
		m.aead = aead
	case catalog.EAX:
		m.aead = NewEAX(k.block)
	default:
		return nil, secerr.Data("unknown cipher mode %d", int(mode))
	}
	return m, nil
}

// IVSize is the block size, or the nonce size for AEAD modes.
func (m *ModeCipher) IVSize() int {
	if m.aead != nil {
		return m.aead.NonceSize()
	}
	return m.block.BlockSize()
}

// Seal encrypts with an explicit IV. aad is accepted only by AEAD modes.
func (m *ModeCipher) Seal(iv, plaintext, aad []byte) ([]byte, error) {
	if err := m.check(iv, aad); err != nil {
		return nil, err
	}
	switch {
	case m.aead != nil:
		return m.aead.Seal(nil, iv, plaintext, aad), nil
	case m.Mode == catalog.CBC:
		return (&BlockCipher{block: m.block}).Encrypt(iv, plaintext)
	default:
		out := make([]byte, len(plaintext))
		m.stream(iv, true).XORKeyStream(out, plaintext)
		return out, nil
	}
}

func (m *ModeCipher) Open(iv, ciphertext, aad []byte) ([]byte, error) {
	if err := m.check(iv, aad); err != nil {
		return nil, err
	}
	switch {
	case m.aead != nil:
		out, err := m.aead.Open(nil, iv, ciphertext, aad)
		if err != nil {
			return nil, secerr.Crypto(err, "%s open", m.Mode)
		}
		return out, nil
	case m.Mode == catalog.CBC:
		return (&BlockCipher{block: m.block}).Decrypt(iv, ciphertext)
	default:
		out := make([]byte, len(ciphertext))
		m.stream(iv, false).XORKeyStream(out, ciphertext)
		return out, nil
	}
}

// Encrypt draws a fresh IV from rng and returns IV ‖ ciphertext.
func (m *ModeCipher) Encrypt(rng io.Reader, plaintext, aad []byte) ([]byte, error) {
	iv := make([]byte, m.IVSize())
	if _, err := io.ReadFull(rng, iv); err != nil {
		return nil, secerr.Crypto(err, "read iv")
	}
	sealed, err := m.Seal(iv, plaintext, aad)
	if err != nil {
		return nil, err
	}
	return append(iv, sealed...), nil
}

func (m *ModeCipher) Decrypt(data, aad []byte) ([]byte, error) {
	n := m.IVSize()
	if len(data) < n {
		return nil, secerr.Data("ciphertext of %d bytes is shorter than its iv", len(data))
	}
	return m.Open(data[:n], data[n:], aad)
}

// NewWriter encrypts everything written to w. Only OFB, CFB and CTR stream.
func (m *ModeCipher) NewWriter(w io.Writer, iv []byte) (io.Writer, error) {
	if !m.Mode.IsStream() {
		return nil, secerr.Logic("%s does not stream", m.Mode)
	}
	if err := m.check(iv, nil); err != nil {
		return nil, err
	}
	return cipher.StreamWriter{S: m.stream(iv, true), W: w}, nil
}

// NewReader decrypts everything read from r.
func (m *ModeCipher) NewReader(r io.Reader, iv []byte) (io.Reader, error) {
	if !m.Mode.IsStream() {
		return nil, secerr.Logic("%s does not stream", m.Mode)
	}
	if err := m.check(iv, nil); err != nil {
		return nil, err
	}
	return cipher.StreamReader{S: m.stream(iv, false), R: r}, nil
}

func (m *ModeCipher) check(iv, aad []byte) error {
	if len(iv) != m.IVSize() {
		return secerr.Logic("%s iv must be %d bytes, got %d", m.Mode, m.IVSize(), len(iv))
	}
	if len(aad) > 0 && m.aead == nil {
		return secerr.Logic("%s does not authenticate additional data", m.Mode)
	}
	return nil
}

func (m *ModeCipher) stream(iv []byte, encrypt bool) cipher.Stream {
	switch m.Mode {
	case catalog.OFB:
		return cipher.NewOFB(m.block, iv)
	case catalog.CFB:
		if encrypt {
			return cipher.NewCFBEncrypter(m.block, iv)
		}
		return cipher.NewCFBDecrypter(m.block, iv)
	default:
		return cipher.NewCTR(m.block, iv)
	}
}
