package security

import (
	"fmt"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"ledgerlock/go-backend/internal/secerr"
	"ledgerlock/go-backend/internal/secret"
)

// NewPhrase returns a 24-word mnemonic built from 256 bits of rng output.
func NewPhrase(rng io.Reader) (string, error) {
	entropy := make([]byte, 32)
	defer secret.Wipe(entropy)
	if _, err := io.ReadFull(rng, entropy); err != nil {
		return "", secerr.Crypto(err, "read phrase entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", secerr.Crypto(err, "build phrase")
	}
	return mnemonic, nil
}

// PhraseFromMnemonic validates mnemonic and expands it to the phrase bytes
// used by Config.Phrase.
func PhraseFromMnemonic(mnemonic string) ([]byte, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: invalid security phrase mnemonic", secerr.ErrData)
	}
	return bip39.NewSeed(mnemonic, "ledgerlock"), nil
}
