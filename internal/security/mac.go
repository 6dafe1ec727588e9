package security

import "hash"

// phrasedMAC writes the security phrase ahead of any caller data, and again
// after every Reset.
type phrasedMAC struct {
	hash.Hash
	phrase []byte
}

func newPhrasedMAC(h hash.Hash, phrase []byte) hash.Hash {
	if len(phrase) == 0 {
		return h
	}
	m := &phrasedMAC{Hash: h, phrase: phrase}
	m.Hash.Write(phrase)
	return m
}

func (m *phrasedMAC) Reset() {
	m.Hash.Reset()
	m.Hash.Write(m.phrase)
}
