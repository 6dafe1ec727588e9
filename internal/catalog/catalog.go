// Package catalog holds the closed algorithm enumerations used by the key
// engine. Every variant has a stable small positive id; ids are persisted
// inside key-mode descriptors and must never be renumbered.
package catalog

import (
	"io"
	"math/big"

	"ledgerlock/go-backend/internal/secerr"
)

// Algorithm is implemented by every catalog enum.
type Algorithm interface {
	comparable
	ID() int
	String() string
}

// Category names one of the catalog enums.
type Category int

const (
	CategorySymKey Category = iota + 1
	CategoryDigest
	CategoryMac
	CategoryStreamKey
	CategoryAsymKey
	CategoryMode
)

func (c Category) String() string {
	switch c {
	case CategorySymKey:
		return "symmetric"
	case CategoryDigest:
		return "digest"
	case CategoryMac:
		return "mac"
	case CategoryStreamKey:
		return "stream"
	case CategoryAsymKey:
		return "asymmetric"
	case CategoryMode:
		return "mode"
	default:
		return "unknown"
	}
}

// Count returns the number of variants in the category.
func Count(c Category) int {
	switch c {
	case CategorySymKey:
		return len(symKeyTable)
	case CategoryDigest:
		return len(digestTable)
	case CategoryMac:
		return len(macTable)
	case CategoryStreamKey:
		return len(streamKeyTable)
	case CategoryAsymKey:
		return len(asymKeyTable)
	case CategoryMode:
		return len(modeTable)
	default:
		return 0
	}
}

// FromID resolves id within the category. The result is one of the typed
// enums (SymKeyType, DigestType, ...).
func (c Category) FromID(id int) (any, error) {
	switch c {
	case CategorySymKey:
		return SymKeyTypeFromID(id)
	case CategoryDigest:
		return DigestTypeFromID(id)
	case CategoryMac:
		return MacTypeFromID(id)
	case CategoryStreamKey:
		return StreamKeyTypeFromID(id)
	case CategoryAsymKey:
		return AsymKeyTypeFromID(id)
	case CategoryMode:
		return CipherModeFromID(id)
	default:
		return nil, secerr.Logic("unknown catalog category %d", int(c))
	}
}

// FromID returns the member of values carrying id. Unknown ids are a data
// error; no default is ever substituted.
func FromID[T Algorithm](values []T, id int) (T, error) {
	for _, v := range values {
		if v.ID() == id {
			return v, nil
		}
	}
	var zero T
	return zero, secerr.Data("unknown algorithm id %d", id)
}

// Bound returns the number of ordered samples of k distinct items out of n,
// n*(n-1)*...*(n-k+1).
func Bound(n, k int) *big.Int {
	out := big.NewInt(1)
	for i := 0; i < k; i++ {
		out.Mul(out, big.NewInt(int64(n-i)))
	}
	return out
}

// Sample picks k distinct members of values in random order. It consumes a
// single bounded integer draw from rng, so identical rng output yields the
// identical ordered sample.
func Sample[T Algorithm](values []T, k int, rng io.Reader) ([]T, error) {
	if k < 0 || k > len(values) {
		return nil, secerr.Logic("cannot sample %d of %d items", k, len(values))
	}
	index, err := uniform(rng, Bound(len(values), k))
	if err != nil {
		return nil, err
	}
	return Permutation(values, k, index)
}

// Permutation maps index in [0, Bound(len(values), k)) to its ordered sample.
// Each step takes index mod n, moves the chosen element to the end of the
// working copy and shrinks n by one.
func Permutation[T Algorithm](values []T, k int, index *big.Int) ([]T, error) {
	if k < 0 || k > len(values) {
		return nil, secerr.Logic("cannot sample %d of %d items", k, len(values))
	}
	if index.Sign() < 0 || index.Cmp(Bound(len(values), k)) >= 0 {
		return nil, secerr.Logic("sample index out of range")
	}
	work := append([]T(nil), values...)
	rest := new(big.Int).Set(index)
	digit := new(big.Int)
	out := make([]T, 0, k)
	n := len(work)
	for i := 0; i < k; i++ {
		rest.DivMod(rest, big.NewInt(int64(n)), digit)
		idx := int(digit.Int64())
		out = append(out, work[idx])
		work[idx], work[n-1] = work[n-1], work[idx]
		n--
	}
	return out, nil
}

// uniform draws an integer in [0, bound) by rejection sampling from rng.
func uniform(rng io.Reader, bound *big.Int) (*big.Int, error) {
	if bound.Sign() <= 0 {
		return nil, secerr.Logic("non-positive sample bound")
	}
	max := new(big.Int).Sub(bound, big.NewInt(1))
	bits := max.BitLen()
	if bits == 0 {
		return new(big.Int), nil
	}
	buf := make([]byte, (bits+7)/8)
	topMask := byte(0xFF >> (8*len(buf) - bits))
	out := new(big.Int)
	for {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return nil, secerr.Crypto(err, "read random sample")
		}
		buf[0] &= topMask
		out.SetBytes(buf)
		if out.Cmp(bound) < 0 {
			return out, nil
		}
	}
}
