package catalog

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	"ledgerlock/go-backend/internal/secerr"
)

// DigestType identifies a message digest.
type DigestType int

const (
	SHA256 DigestType = iota + 1
	SHA384
	SHA512
	SHA3_256
	SHA3_512
	BLAKE2b
	BLAKE2s
	SHA512_256
)

type digestInfo struct {
	name string
	size int
	fn   func() hash.Hash
}

var digestTable = map[DigestType]digestInfo{
	SHA256:     {"SHA256", sha256.Size, sha256.New},
	SHA384:     {"SHA384", sha512.Size384, sha512.New384},
	SHA512:     {"SHA512", sha512.Size, sha512.New},
	SHA3_256:   {"SHA3-256", 32, sha3.New256},
	SHA3_512:   {"SHA3-512", 64, sha3.New512},
	BLAKE2b:    {"BLAKE2b", blake2b.Size, newBlake2b},
	BLAKE2s:    {"BLAKE2s", blake2s.Size, newBlake2s},
	SHA512_256: {"SHA512-256", sha512.Size256, sha512.New512_256},
}

func newBlake2b() hash.Hash {
	h, _ := blake2b.New512(nil)
	return h
}

func newBlake2s() hash.Hash {
	h, _ := blake2s.New256(nil)
	return h
}

func DigestTypes() []DigestType {
	return []DigestType{SHA256, SHA384, SHA512, SHA3_256, SHA3_512, BLAKE2b, BLAKE2s, SHA512_256}
}

func DigestTypeFromID(id int) (DigestType, error) {
	return FromID(DigestTypes(), id)
}

func (d DigestType) ID() int { return int(d) }

func (d DigestType) String() string {
	if info, ok := digestTable[d]; ok {
		return info.name
	}
	return "DigestType(unknown)"
}

func (d DigestType) Valid() bool {
	_, ok := digestTable[d]
	return ok
}

// Size is the digest output length in bytes.
func (d DigestType) Size() int {
	return digestTable[d].size
}

// HashFunc returns the constructor, or nil for an unknown type.
func (d DigestType) HashFunc() func() hash.Hash {
	return digestTable[d].fn
}

func (d DigestType) New() (hash.Hash, error) {
	info, ok := digestTable[d]
	if !ok {
		return nil, secerr.Data("unknown digest type %d", int(d))
	}
	return info.fn(), nil
}

// MacType identifies a keyed MAC construction.
type MacType int

const (
	HMAC MacType = iota + 1
	BLAKE2bMAC
	BLAKE2sMAC
)

var macTable = map[MacType]string{
	HMAC:       "HMAC",
	BLAKE2bMAC: "BLAKE2b-MAC",
	BLAKE2sMAC: "BLAKE2s-MAC",
}

func MacTypes() []MacType {
	return []MacType{HMAC, BLAKE2bMAC, BLAKE2sMAC}
}

func MacTypeFromID(id int) (MacType, error) {
	return FromID(MacTypes(), id)
}

func (m MacType) ID() int { return int(m) }

func (m MacType) String() string {
	if name, ok := macTable[m]; ok {
		return name
	}
	return "MacType(unknown)"
}

// New builds the MAC. The digest only applies to HMAC. Keyed BLAKE2 MACs
// require non-empty keys no longer than the BLAKE2 key limit; longer keys are
// first compressed with the unkeyed BLAKE2 hash.
func (m MacType) New(digest DigestType, key []byte) (hash.Hash, error) {
	switch m {
	case HMAC:
		fn := digest.HashFunc()
		if fn == nil {
			return nil, secerr.Data("unknown digest type %d", int(digest))
		}
		return hmac.New(fn, key), nil
	case BLAKE2bMAC:
		if len(key) > blake2b.Size {
			sum := blake2b.Sum512(key)
			key = sum[:]
		}
		h, err := blake2b.New512(key)
		if err != nil {
			return nil, secerr.Crypto(err, "init %s", m)
		}
		return h, nil
	case BLAKE2sMAC:
		if len(key) > blake2s.Size {
			sum := blake2s.Sum256(key)
			key = sum[:]
		}
		if len(key) == 0 {
			return nil, secerr.Logic("%s requires a key", m)
		}
		h, err := blake2s.New256(key)
		if err != nil {
			return nil, secerr.Crypto(err, "init %s", m)
		}
		return h, nil
	default:
		return nil, secerr.Data("unknown mac type %d", int(m))
	}
}
