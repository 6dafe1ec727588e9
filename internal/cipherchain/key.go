package cipherchain

import (
	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/wire"
)

const (
	// IVSize is the length of the IV shared by every step of a chain.
	IVSize = 32

	noIVFlag = 0x80
)

// Key is the public half of one chain invocation: the ordered cipher ids and
// the shared IV. IV is nil in the no-IV form.
type Key struct {
	Ciphers []catalog.SymKeyType
	IV      []byte
}

// HeaderLen is the encoded length of a key with the given number of steps.
func HeaderLen(steps int) int {
	return 1 + steps/2
}

// header packs [count, ids...] as nybbles. The no-IV form sets the top bit of
// the first byte, which cipher ids never reach.
func (k Key) header() ([]byte, error) {
	if len(k.Ciphers) == 0 || len(k.Ciphers) > catalog.Count(catalog.CategorySymKey) {
		return nil, secerr.Logic("chain of %d ciphers", len(k.Ciphers))
	}
	fields := make([]int, 0, len(k.Ciphers)+1)
	fields = append(fields, len(k.Ciphers))
	for _, c := range k.Ciphers {
		if !c.Valid() || c.ID() >= noIVFlag>>4 {
			return nil, secerr.Logic("cipher id %d cannot be chained", c.ID())
		}
		fields = append(fields, c.ID())
	}
	out, err := wire.PackNybbles(fields)
	if err != nil {
		return nil, err
	}
	if k.IV == nil {
		out[0] |= noIVFlag
	} else if len(k.IV) != IVSize {
		return nil, secerr.Logic("chain iv must be %d bytes, got %d", IVSize, len(k.IV))
	}
	return out, nil
}

// Wrap lays out header ‖ ct[:off] ‖ IV ‖ ct[off:] with off derived from
// ct[0], or header ‖ ct in the no-IV form.
func (k Key) Wrap(ct []byte) ([]byte, error) {
	hdr, err := k.header()
	if err != nil {
		return nil, err
	}
	if len(ct) == 0 {
		return nil, secerr.Logic("empty chain ciphertext")
	}
	if k.IV == nil {
		return append(hdr, ct...), nil
	}
	body, err := wire.Splice(ct, k.IV, ivOffset(ct[0], len(ct)))
	if err != nil {
		return nil, err
	}
	return append(hdr, body...), nil
}

func ivOffset(first byte, ctLen int) int {
	return wire.Clamp(int(first), 4, ctLen-4)
}

// ParseKey splits blob into its chain key and ciphertext. Unknown or repeated
// cipher ids are data errors.
func ParseKey(blob []byte) (Key, []byte, error) {
	if len(blob) == 0 {
		return Key{}, nil, secerr.Data("empty chain blob")
	}
	noIV := blob[0]&noIVFlag != 0
	count := int(blob[0] & 0x0F)
	if count == 0 || count > catalog.Count(catalog.CategorySymKey) {
		return Key{}, nil, secerr.Data("chain of %d ciphers", count)
	}
	n := HeaderLen(count)
	if len(blob) < n {
		return Key{}, nil, secerr.Data("chain header truncated")
	}
	hdr := append([]byte(nil), blob[:n]...)
	hdr[0] &^= noIVFlag
	fields, err := wire.UnpackNybbles(hdr, count+1)
	if err != nil {
		return Key{}, nil, err
	}
	again, err := wire.PackNybbles(fields)
	if err != nil || string(again) != string(hdr) {
		return Key{}, nil, secerr.Data("chain header has stray bits")
	}

	key := Key{Ciphers: make([]catalog.SymKeyType, 0, count)}
	seen := make(map[catalog.SymKeyType]bool, count)
	for _, id := range fields[1:] {
		c, err := catalog.SymKeyTypeFromID(id)
		if err != nil {
			return Key{}, nil, err
		}
		if seen[c] {
			return Key{}, nil, secerr.Data("cipher %s repeated in chain", c)
		}
		seen[c] = true
		key.Ciphers = append(key.Ciphers, c)
	}

	rest := blob[n:]
	if noIV {
		if len(rest) == 0 {
			return Key{}, nil, secerr.Data("chain ciphertext missing")
		}
		return key, append([]byte(nil), rest...), nil
	}
	if len(rest) < IVSize+1 {
		return Key{}, nil, secerr.Data("chain ciphertext truncated")
	}
	ctLen := len(rest) - IVSize
	off := ivOffset(rest[0], ctLen)
	iv, ct, err := wire.Unsplice(rest, off, IVSize)
	if err != nil {
		return Key{}, nil, err
	}
	key.IV = iv
	return key, ct, nil
}
