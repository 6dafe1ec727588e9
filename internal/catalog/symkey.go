package catalog

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/aead/serpent"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/tea"
	"golang.org/x/crypto/twofish"
	"golang.org/x/crypto/xtea"

	"ledgerlock/go-backend/internal/secerr"
)

// SymKeyType identifies a block cipher.
type SymKeyType int

const (
	AES SymKeyType = iota + 1
	Twofish
	Serpent
	Blowfish
	CAST5
	XTEA
	TEA
)

type symKeyInfo struct {
	name      string
	blockSize int
	// fixedKey is non-zero when the cipher only accepts one key length.
	fixedKey int
	build    func(key []byte) (cipher.Block, error)
}

var symKeyTable = map[SymKeyType]symKeyInfo{
	AES:     {name: "AES", blockSize: aes.BlockSize, build: aes.NewCipher},
	Twofish: {name: "Twofish", blockSize: twofish.BlockSize, build: func(k []byte) (cipher.Block, error) { return twofish.NewCipher(k) }},
	Serpent: {name: "Serpent", blockSize: serpent.BlockSize, build: serpent.NewCipher},
	Blowfish: {name: "Blowfish", blockSize: blowfish.BlockSize, build: func(k []byte) (cipher.Block, error) {
		return blowfish.NewCipher(k)
	}},
	CAST5: {name: "CAST5", blockSize: cast5.BlockSize, fixedKey: cast5.KeySize, build: func(k []byte) (cipher.Block, error) {
		return cast5.NewCipher(k)
	}},
	XTEA: {name: "XTEA", blockSize: xtea.BlockSize, fixedKey: 16, build: func(k []byte) (cipher.Block, error) {
		return xtea.NewCipher(k)
	}},
	TEA: {name: "TEA", blockSize: tea.BlockSize, fixedKey: tea.KeySize, build: tea.NewCipher},
}

// SymKeyTypes returns every block cipher in id order.
func SymKeyTypes() []SymKeyType {
	return []SymKeyType{AES, Twofish, Serpent, Blowfish, CAST5, XTEA, TEA}
}

func SymKeyTypeFromID(id int) (SymKeyType, error) {
	return FromID(SymKeyTypes(), id)
}

func (t SymKeyType) ID() int { return int(t) }

func (t SymKeyType) String() string {
	if info, ok := symKeyTable[t]; ok {
		return info.name
	}
	return "SymKeyType(unknown)"
}

func (t SymKeyType) Valid() bool {
	_, ok := symKeyTable[t]
	return ok
}

func (t SymKeyType) BlockSize() int {
	return symKeyTable[t].blockSize
}

// KeyLen returns the key length in bytes. Restricted configurations use
// 128-bit keys; otherwise 256-bit keys are used where the cipher allows.
func (t SymKeyType) KeyLen(restricted bool) int {
	info := symKeyTable[t]
	if info.fixedKey != 0 {
		return info.fixedKey
	}
	if restricted {
		return 16
	}
	return 32
}

func (t SymKeyType) NewCipher(key []byte) (cipher.Block, error) {
	info, ok := symKeyTable[t]
	if !ok {
		return nil, secerr.Data("unknown symmetric key type %d", int(t))
	}
	block, err := info.build(key)
	if err != nil {
		return nil, secerr.Crypto(err, "init %s", info.name)
	}
	return block, nil
}
