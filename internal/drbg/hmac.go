package drbg

import (
	"crypto/hmac"
	"hash"
	"io"

	"ledgerlock/go-backend/internal/secret"
)

// HMAC is HMAC_DRBG (SP 800-90A section 10.1.2).
type HMAC struct {
	newHash        func() hash.Hash
	entropy        io.Reader
	key            []byte
	value          []byte
	reseedCounter  uint64
	reseedInterval uint64
}

// NewHMAC instantiates HMAC_DRBG over h. A nil nonce is read from entropy.
func NewHMAC(h func() hash.Hash, entropy io.Reader, personalization, nonce []byte, opts ...Option) (*HMAC, error) {
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

	size := h().Size()
	d := &HMAC{
		newHash:        h,
		entropy:        entropy,
		key:            make([]byte, size),
		value:          make([]byte, size),
		reseedInterval: o.reseedInterval,
	}
	for i := range d.value {
		d.value[i] = 0x01
	}
	d.update(concat(seed, nonce, personalization))
	d.reseedCounter = 1
	return d, nil
}

func (d *HMAC) mac(key []byte, parts ...[]byte) []byte {
	m := hmac.New(d.newHash, key)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

// update is HMAC_DRBG_Update.
func (d *HMAC) update(provided []byte) {
	d.key = d.mac(d.key, d.value, []byte{0x00}, provided)
	d.value = d.mac(d.key, d.value)
	if len(provided) == 0 {
		return
	}
	d.key = d.mac(d.key, d.value, []byte{0x01}, provided)
	d.value = d.mac(d.key, d.value)
}

func (d *HMAC) Reseed(additional []byte) error {
	seed, err := readEntropy(d.entropy, EntropyBytes)
	if err != nil {
		return err
	}
	defer secret.Wipe(seed)
	d.update(concat(seed, additional))
	d.reseedCounter = 1
	return nil
}

func (d *HMAC) Generate(out, additional []byte, predictionResistant bool) error {
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
	} else if len(additional) > 0 {
		d.update(additional)
	}

	for off := 0; off < len(out); {
		d.value = d.mac(d.key, d.value)
		off += copy(out[off:], d.value)
	}
	d.update(additional)
	d.reseedCounter++
	return nil
}
