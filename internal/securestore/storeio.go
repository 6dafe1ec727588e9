package securestore

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ReadOpenedFile reads and opens a sealed file.
func ReadOpenedFile(path string, passphrase []byte) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(passphrase, raw)
}

// WriteSealedJSON marshals, seals and writes v with private permissions.
func (s Sealer) WriteSealedJSON(path string, passphrase []byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sealed, err := s.Seal(passphrase, payload)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}
