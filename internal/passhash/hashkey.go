package passhash

import (
	"io"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/wire"
)

const (
	IVSize    = 32
	MaxAdjust = 15

	modeFields = 5
)

// ModeLen is the encoded length of a HashKey mode.
var ModeLen = wire.ModeLen(modeFields)

// HashKey holds the public parameters of one envelope: the three ratchet
// digests, the chain digest, the extra pass count and the IV.
type HashKey struct {
	Prime     catalog.DigestType
	Alternate catalog.DigestType
	Secret    catalog.DigestType
	Cipher    catalog.DigestType
	Adjust    int
	IV        [IVSize]byte
}

// NewHashKey picks three distinct ratchet digests, a chain digest, an
// adjustment and an IV from rng.
func NewHashKey(rng io.Reader) (HashKey, error) {
	ratchet, err := catalog.Sample(catalog.DigestTypes(), 3, rng)
	if err != nil {
		return HashKey{}, err
	}
	chain, err := catalog.Sample(catalog.DigestTypes(), 1, rng)
	if err != nil {
		return HashKey{}, err
	}
	var adjust [1]byte
	if _, err := io.ReadFull(rng, adjust[:]); err != nil {
		return HashKey{}, secerr.Crypto(err, "read hash adjustment")
	}
	hk := HashKey{
		Prime:     ratchet[0],
		Alternate: ratchet[1],
		Secret:    ratchet[2],
		Cipher:    chain[0],
		Adjust:    int(adjust[0] & MaxAdjust),
	}
	if _, err := io.ReadFull(rng, hk.IV[:]); err != nil {
		return HashKey{}, secerr.Crypto(err, "read hash iv")
	}
	return hk, nil
}

func (h HashKey) Mode() ([]byte, error) {
	if h.Adjust < 0 || h.Adjust > MaxAdjust {
		return nil, secerr.Logic("hash adjustment %d out of range", h.Adjust)
	}
	for _, d := range []catalog.DigestType{h.Prime, h.Alternate, h.Secret, h.Cipher} {
		if !d.Valid() {
			return nil, secerr.Logic("hash digest %d unknown", int(d))
		}
	}
	return wire.EncodeMode(h.Prime.ID(), h.Alternate.ID(), h.Secret.ID(), h.Cipher.ID(), h.Adjust)
}

// HashLen is the verifier length: the prime and alternate digest sizes.
func (h HashKey) HashLen() int {
	return h.Prime.Size() + h.Alternate.Size()
}

func decodeHashKey(mode []byte) (HashKey, error) {
	fields, err := wire.DecodeMode(mode, modeFields)
	if err != nil {
		return HashKey{}, err
	}
	var digests [4]catalog.DigestType
	for i := range digests {
		d, err := catalog.DigestTypeFromID(fields[i])
		if err != nil {
			return HashKey{}, err
		}
		digests[i] = d
	}
	return HashKey{
		Prime:     digests[0],
		Alternate: digests[1],
		Secret:    digests[2],
		Cipher:    digests[3],
		Adjust:    fields[4],
	}, nil
}

func hashOffset(passwordLen, hashLen int) int {
	return wire.Clamp(passwordLen, 4, hashLen-4)
}

// external lays out mode ‖ hash[:off] ‖ IV ‖ hash[off:].
func (h HashKey) external(hash []byte, passwordLen int) ([]byte, error) {
	mode, err := h.Mode()
	if err != nil {
		return nil, err
	}
	body, err := wire.Splice(hash, h.IV[:], hashOffset(passwordLen, len(hash)))
	if err != nil {
		return nil, err
	}
	return append(mode, body...), nil
}

// parseExternal splits a stored hash. The password length locates the IV.
func parseExternal(stored []byte, passwordLen int) (HashKey, []byte, error) {
	if len(stored) < ModeLen {
		return HashKey{}, nil, secerr.Data("stored hash truncated")
	}
	hk, err := decodeHashKey(stored[:ModeLen])
	if err != nil {
		return HashKey{}, nil, err
	}
	body := stored[ModeLen:]
	hashLen := hk.HashLen()
	if len(body) != hashLen+IVSize {
		return HashKey{}, nil, secerr.Data("stored hash is %d bytes, want %d", len(stored), ModeLen+hashLen+IVSize)
	}
	iv, hash, err := wire.Unsplice(body, hashOffset(passwordLen, hashLen), IVSize)
	if err != nil {
		return HashKey{}, nil, err
	}
	copy(hk.IV[:], iv)
	return hk, hash, nil
}
