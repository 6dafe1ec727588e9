package symmetric

import (
	"crypto/cipher"
	"crypto/subtle"
	"errors"
)

var errEAXOpen = errors.New("eax: message authentication failed")

// eax is the EAX AEAD mode (Bellare, Rogaway, Wagner) over any block cipher
// with a 64 or 128 bit block. Nonce and tag are one block long.
type eax struct {
	block  cipher.Block
	k1, k2 []byte
}

// NewEAX returns EAX over block.
func NewEAX(block cipher.Block) cipher.AEAD {
	bs := block.BlockSize()
	l := make([]byte, bs)
	block.Encrypt(l, l)
	k1 := double(l)
	return &eax{block: block, k1: k1, k2: double(k1)}
}

// double multiplies by x in GF(2^n).
func double(in []byte) []byte {
	out := make([]byte, len(in))
	var carry byte
	for i := len(in) - 1; i >= 0; i-- {
		out[i] = in[i]<<1 | carry
		carry = in[i] >> 7
	}
	if carry != 0 {
		if len(in) == 8 {
			out[len(out)-1] ^= 0x1B
		} else {
			out[len(out)-1] ^= 0x87
		}
	}
	return out
}

func (e *eax) NonceSize() int { return e.block.BlockSize() }

func (e *eax) Overhead() int { return e.block.BlockSize() }

// omac computes OMAC^t(data) = CMAC([t]_n ‖ data).
func (e *eax) omac(t byte, data []byte) []byte {
	bs := e.block.BlockSize()
	x := make([]byte, bs)
	x[bs-1] = t
	if len(data) == 0 {
		xor(x, e.k1)
		e.block.Encrypt(x, x)
		return x
	}
	e.block.Encrypt(x, x)
	for len(data) > bs {
		xor(x, data[:bs])
		e.block.Encrypt(x, x)
		data = data[bs:]
	}
	last := make([]byte, bs)
	copy(last, data)
	if len(data) == bs {
		xor(last, e.k1)
	} else {
		last[len(data)] = 0x80
		xor(last, e.k2)
	}
	xor(x, last)
	e.block.Encrypt(x, x)
	return x
}

func xor(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func (e *eax) tag(nonceMAC, aad, ciphertext []byte) []byte {
	t := e.omac(2, ciphertext)
	xor(t, nonceMAC)
	xor(t, e.omac(1, aad))
	return t
}

func (e *eax) Seal(dst, nonce, plaintext, aad []byte) []byte {
	if len(nonce) != e.NonceSize() {
		panic("eax: incorrect nonce length")
	}
	n := e.omac(0, nonce)
	ret, out := sliceForAppend(dst, len(plaintext)+e.Overhead())
	ct := out[:len(plaintext)]
	cipher.NewCTR(e.block, n).XORKeyStream(ct, plaintext)
	copy(out[len(plaintext):], e.tag(n, aad, ct))
	return ret
}

func (e *eax) Open(dst, nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != e.NonceSize() {
		panic("eax: incorrect nonce length")
	}
	if len(ciphertext) < e.Overhead() {
		return nil, errEAXOpen
	}
	split := len(ciphertext) - e.Overhead()
	ct, want := ciphertext[:split], ciphertext[split:]
	n := e.omac(0, nonce)
	if subtle.ConstantTimeCompare(e.tag(n, aad, ct), want) != 1 {
		return nil, errEAXOpen
	}
	ret, out := sliceForAppend(dst, len(ct))
	cipher.NewCTR(e.block, n).XORKeyStream(out, ct)
	return ret, nil
}

func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return head, tail
}
