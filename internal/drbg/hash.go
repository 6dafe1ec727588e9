package drbg

import (
	"encoding/binary"
	"hash"
	"io"

	"ledgerlock/go-backend/internal/secret"
)

const (
	shortSeedLen = 440 / 8
	longSeedLen  = 888 / 8
)

// Hash is Hash_DRBG (SP 800-90A section 10.1.1).
type Hash struct {
	newHash        func() hash.Hash
	entropy        io.Reader
	seedLen        int
	value          []byte
	constant       []byte
	reseedCounter  uint64
	reseedInterval uint64
}

// NewHash instantiates Hash_DRBG over h. A nil nonce is read from entropy.
func NewHash(h func() hash.Hash, entropy io.Reader, personalization, nonce []byte, opts ...Option) (*Hash, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	seed, err := readEntropy(entropy, EntropyBytes)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(seed)
	if nonce == nil {
		if nonce, err = readEntropy(entropy, NonceBytes); err != nil {
			return nil, err
		}
	}

	seedLen := shortSeedLen
	if h().Size() > 32 {
		seedLen = longSeedLen
	}
	d := &Hash{
		newHash:        h,
		entropy:        entropy,
		seedLen:        seedLen,
		reseedInterval: o.reseedInterval,
	}
	d.value = d.derive(seedLen, seed, nonce, personalization)
	d.constant = d.derive(seedLen, []byte{0x00}, d.value)
	d.reseedCounter = 1
	return d, nil
}

func (d *Hash) digest(parts ...[]byte) []byte {
	h := d.newHash()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// derive is Hash_df.
func (d *Hash) derive(n int, parts ...[]byte) []byte {
	var header [5]byte
	binary.BigEndian.PutUint32(header[1:], uint32(n*8))
	out := make([]byte, 0, n+d.newHash().Size())
	for counter := byte(1); len(out) < n; counter++ {
		header[0] = counter
		out = append(out, d.digest(append([][]byte{header[:]}, parts...)...)...)
	}
	return out[:n]
}

// addInto computes dst = (dst + src) mod 2^(8*len(dst)); src may be shorter.
func addInto(dst, src []byte) {
	carry := 0
	for i, j := len(dst)-1, len(src)-1; i >= 0; i, j = i-1, j-1 {
		sum := int(dst[i]) + carry
		if j >= 0 {
			sum += int(src[j])
		}
		dst[i] = byte(sum)
		carry = sum >> 8
	}
}

func (d *Hash) Reseed(additional []byte) error {
	seed, err := readEntropy(d.entropy, EntropyBytes)
	if err != nil {
		return err
	}
	defer secret.Wipe(seed)
	d.value = d.derive(d.seedLen, []byte{0x01}, d.value, seed, additional)
	d.constant = d.derive(d.seedLen, []byte{0x00}, d.value)
	d.reseedCounter = 1
	return nil
}

func (d *Hash) Generate(out, additional []byte, predictionResistant bool) error {
	if err := checkRequest(len(out)); err != nil {
		return err
	}
	if d.reseedCounter > d.reseedInterval {
		return ErrReseedRequired
	}
	if predictionResistant {
		if err := d.Reseed(additional); err != nil {
			return err
		}
		additional = nil
	}
	if len(additional) > 0 {
		addInto(d.value, d.digest([]byte{0x02}, d.value, additional))
	}

	data := append([]byte(nil), d.value...)
	for off := 0; off < len(out); {
		off += copy(out[off:], d.digest(data))
		addInto(data, []byte{0x01})
	}

	addInto(d.value, d.digest([]byte{0x03}, d.value))
	addInto(d.value, d.constant)
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], d.reseedCounter)
	addInto(d.value, counter[:])
	d.reseedCounter++
	return nil
}
