package wire

import (
	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secerr"
)

// AsymKeyModeLen is the encoded size of an AsymKeyMode.
var AsymKeyModeLen = ModeLen(2)

// AsymKeyMode records an asymmetric key type and the digest used to derive
// cipher-chain keys from its agreements.
type AsymKeyMode struct {
	Key    catalog.AsymKeyType
	Digest catalog.DigestType
}

func (m AsymKeyMode) Encode() ([]byte, error) {
	if !m.Key.Valid() || !m.Digest.Valid() {
		return nil, secerr.Logic("invalid asymmetric key mode %d/%d", int(m.Key), int(m.Digest))
	}
	return EncodeMode(m.Key.ID(), m.Digest.ID())
}

func DecodeAsymKeyMode(data []byte) (AsymKeyMode, error) {
	fields, err := DecodeMode(data, 2)
	if err != nil {
		return AsymKeyMode{}, err
	}
	key, err := catalog.AsymKeyTypeFromID(fields[0])
	if err != nil {
		return AsymKeyMode{}, err
	}
	digest, err := catalog.DigestTypeFromID(fields[1])
	if err != nil {
		return AsymKeyMode{}, err
	}
	return AsymKeyMode{Key: key, Digest: digest}, nil
}
