package catalog

import (
	"golang.org/x/crypto/chacha20"
)

// StreamKeyType identifies a stream cipher.
type StreamKeyType int

const (
	ChaCha20 StreamKeyType = iota + 1
	XChaCha20
	Salsa20
	XSalsa20
)

type streamKeyInfo struct {
	name      string
	nonceSize int
}

var streamKeyTable = map[StreamKeyType]streamKeyInfo{
	ChaCha20:  {"ChaCha20", chacha20.NonceSize},
	XChaCha20: {"XChaCha20", chacha20.NonceSizeX},
	Salsa20:   {"Salsa20", 8},
	XSalsa20:  {"XSalsa20", 24},
}

func StreamKeyTypes() []StreamKeyType {
	return []StreamKeyType{ChaCha20, XChaCha20, Salsa20, XSalsa20}
}

func StreamKeyTypeFromID(id int) (StreamKeyType, error) {
	return FromID(StreamKeyTypes(), id)
}

func (s StreamKeyType) ID() int { return int(s) }

func (s StreamKeyType) String() string {
	if info, ok := streamKeyTable[s]; ok {
		return info.name
	}
	return "StreamKeyType(unknown)"
}

func (s StreamKeyType) Valid() bool {
	_, ok := streamKeyTable[s]
	return ok
}

// KeyLen is 32 bytes for every supported stream cipher.
func (s StreamKeyType) KeyLen() int {
	return chacha20.KeySize
}

func (s StreamKeyType) NonceSize() int {
	return streamKeyTable[s].nonceSize
}
