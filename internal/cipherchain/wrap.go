package cipherchain

import (
	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
	"ledgerlock/go-backend/internal/symmetric"
	"ledgerlock/go-backend/internal/wire"
)

// tagStep spreads catalog ids across the tag byte.
const tagStep = 17

// TagKind names the id space a wrapped payload belongs to. Symmetric keys
// carry the bare id*17 byte; every other kind prefixes it with its own marker
// so ids from different catalogs never alias.
type TagKind byte

const (
	TagSymmetric TagKind = 0
	TagStream    TagKind = 'S'
	TagPrivate   TagKind = 'P'
	TagBytes     TagKind = 'B'
)

func (k TagKind) String() string {
	switch k {
	case TagSymmetric:
		return "symmetric key"
	case TagStream:
		return "stream key"
	case TagPrivate:
		return "private key"
	case TagBytes:
		return "byte payload"
	}
	return "unknown"
}

// TagNeedle builds the needle for id in the kind's space.
func TagNeedle(kind TagKind, id int) ([]byte, error) {
	if id <= 0 || id*tagStep > 0xFF {
		return nil, secerr.Logic("tag id %d out of range", id)
	}
	if kind == TagSymmetric {
		return []byte{byte(id * tagStep)}, nil
	}
	return []byte{byte(kind), byte(id * tagStep)}, nil
}

// ParseTag recovers the id from needle, failing when the needle belongs to
// another kind.
func ParseTag(kind TagKind, needle []byte) (int, error) {
	var got TagKind
	var b byte
	switch len(needle) {
	case 1:
		got, b = TagSymmetric, needle[0]
	case 2:
		got, b = TagKind(needle[0]), needle[1]
		if got == TagSymmetric {
			return 0, secerr.Data("wrapped key carries no type tag")
		}
	default:
		return 0, secerr.Data("wrapped key carries no type tag")
	}
	if b == 0 || b%tagStep != 0 {
		return 0, secerr.Data("wrapped key carries no type tag")
	}
	if got != kind {
		return 0, secerr.Data("wrapped payload is a %s, want a %s", got, kind)
	}
	return int(b / tagStep), nil
}

// SecureTagged encrypts data in the no-IV form and bundles the kind's type
// tag with the result.
func (s *Set) SecureTagged(kind TagKind, id int, data []byte) ([]byte, error) {
	needle, err := TagNeedle(kind, id)
	if err != nil {
		return nil, err
	}
	k, err := s.NewKey(true)
	if err != nil {
		return nil, err
	}
	blob, err := s.EncryptWith(k, data)
	if err != nil {
		return nil, err
	}
	s.record("wrap")
	return wire.Hide(needle, blob)
}

// DeriveTagged reverses SecureTagged and returns the tag id with the
// plaintext. A payload wrapped under another kind is a data error.
func (s *Set) DeriveTagged(kind TagKind, wrapped []byte) (int, []byte, error) {
	needle, blob, ok := wire.Find(wrapped)
	if !ok {
		return 0, nil, secerr.Data("wrapped key carries no type tag")
	}
	id, err := ParseTag(kind, needle)
	if err != nil {
		return 0, nil, err
	}
	data, err := s.Decrypt(blob)
	if err != nil {
		return 0, nil, err
	}
	s.record("unwrap")
	return id, data, nil
}

func (s *Set) SecureSymmetricKey(k *symmetric.Key) ([]byte, error) {
	raw := k.Encoded()
	defer secret.Wipe(raw)
	return s.SecureTagged(TagSymmetric, k.Type.ID(), raw)
}

func (s *Set) DeriveSymmetricKey(wrapped []byte) (*symmetric.Key, error) {
	id, raw, err := s.DeriveTagged(TagSymmetric, wrapped)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(raw)
	t, err := catalog.SymKeyTypeFromID(id)
	if err != nil {
		return nil, err
	}
	return symmetric.NewKey(t, raw)
}

func (s *Set) SecureStreamKey(k *symmetric.StreamKey) ([]byte, error) {
	raw := k.Encoded()
	defer secret.Wipe(raw)
	return s.SecureTagged(TagStream, k.Type.ID(), raw)
}

func (s *Set) DeriveStreamKey(wrapped []byte) (*symmetric.StreamKey, error) {
	id, raw, err := s.DeriveTagged(TagStream, wrapped)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(raw)
	t, err := catalog.StreamKeyTypeFromID(id)
	if err != nil {
		return nil, err
	}
	return symmetric.NewStreamKey(t, raw)
}

// bytesTag is the id opaque payloads carry in the TagBytes space.
const bytesTag = 15

func (s *Set) SecureBytes(data []byte) ([]byte, error) {
	return s.SecureTagged(TagBytes, bytesTag, data)
}

func (s *Set) DeriveBytes(wrapped []byte) ([]byte, error) {
	id, data, err := s.DeriveTagged(TagBytes, wrapped)
	if err != nil {
		return nil, err
	}
	if id != bytesTag {
		secret.Wipe(data)
		return nil, secerr.Data("wrapped payload tag %d is not a byte payload", id)
	}
	return data, nil
}
