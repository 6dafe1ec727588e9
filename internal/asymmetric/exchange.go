package asymmetric

import (
	"bytes"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/cipherchain"
	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
	"ledgerlock/go-backend/internal/symmetric"
	"ledgerlock/go-backend/internal/wire"
)

// chainDigest is taken from whichever key has the smaller public encoding,
// so both partners pick the same digest.
func (k *Key) chainDigest(partner *Key) catalog.DigestType {
	if bytes.Compare(k.public, partner.public) <= 0 {
		return k.mode.Digest
	}
	return partner.mode.Digest
}

// CipherSet returns the chain set shared with partner under salt. The
// agreement runs once per (partner, salt); concurrent callers share the
// result.
func (k *Key) CipherSet(partner *Key, salt []byte) (*cipherchain.Set, error) {
	if k.IsPublicOnly() {
		return nil, secerr.Logic("%s key has no private half", k.mode.Key)
	}
	if !k.mode.Key.IsElliptic() || partner.mode.Key != k.mode.Key {
		return nil, secerr.Logic("cannot agree %s with %s", k.mode.Key, partner.mode.Key)
	}

	id := setID{partner: string(partner.PublicSpec()), salt: string(salt)}
	k.mu.Lock()
	e, ok := k.sets[id]
	if !ok {
		e = &setEntry{}
		k.sets[id] = e
	}
	private := k.private
	k.mu.Unlock()

	e.once.Do(func() {
		e.set, e.err = k.buildSet(private, partner, salt)
	})
	return e.set, e.err
}

func (k *Key) buildSet(private []byte, partner *Key, salt []byte) (*cipherchain.Set, error) {
	if private == nil {
		return nil, secerr.Logic("%s key destroyed", k.mode.Key)
	}
	shared, err := k.factory.Agree(private, partner.public)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe(shared)
	cfg := k.provider.ChainConfig()
	cfg.Digest = k.chainDigest(partner)
	return cipherchain.New(k.provider.Registry(), cfg, k.provider.Random(), shared, salt)
}

// selfSet is the chain set agreed with the key's own public half, salted
// with the public spec.
func (k *Key) selfSet() (*cipherchain.Set, error) {
	return k.CipherSet(k, k.PublicSpec())
}

func (k *Key) secureTagged(kind cipherchain.TagKind, id int, data []byte) ([]byte, error) {
	if k.mode.Key.IsElliptic() {
		set, err := k.selfSet()
		if err != nil {
			return nil, err
		}
		return set.SecureTagged(kind, id, data)
	}
	needle, err := cipherchain.TagNeedle(kind, id)
	if err != nil {
		return nil, err
	}
	wrapped, err := k.factory.Wrap(k.provider.Random(), k.public, data)
	if err != nil {
		return nil, err
	}
	return wire.Hide(needle, wrapped)
}

func (k *Key) deriveTagged(kind cipherchain.TagKind, wrapped []byte) (int, []byte, error) {
	if k.mode.Key.IsElliptic() {
		set, err := k.selfSet()
		if err != nil {
			return 0, nil, err
		}
		return set.DeriveTagged(kind, wrapped)
	}
	if k.IsPublicOnly() {
		return 0, nil, secerr.Logic("%s key has no private half", k.mode.Key)
	}
	needle, body, ok := wire.Find(wrapped)
	if !ok {
		return 0, nil, secerr.Data("wrapped key carries no type tag")
	}
	id, err := cipherchain.ParseTag(kind, needle)
	if err != nil {
		return 0, nil, err
	}
	data, err := k.factory.Unwrap(k.private, body)
	if err != nil {
		return 0, nil, err
	}
	return id, data, nil
}

// SecureSymmetricKey wraps key for this key pair. RSA keys wrap with the
// public half alone; elliptic keys need the private half.
func (k *Key) SecureSymmetricKey(key *symmetric.Key) ([]byte, error) {
	raw := key.Encoded()
	defer secret.Wipe(raw)
	return k.secureTagged(cipherchain.TagSymmetric, key.Type.ID(), raw)
}

func (k *Key) DeriveSymmetricKey(wrapped []byte) (*symmetric.Key, error) {
	id, raw, err := k.deriveTagged(cipherchain.TagSymmetric, wrapped)
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

func (k *Key) SecureStreamKey(key *symmetric.StreamKey) ([]byte, error) {
	raw := key.Encoded()
	defer secret.Wipe(raw)
	return k.secureTagged(cipherchain.TagStream, key.Type.ID(), raw)
}

func (k *Key) DeriveStreamKey(wrapped []byte) (*symmetric.StreamKey, error) {
	id, raw, err := k.deriveTagged(cipherchain.TagStream, wrapped)
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
