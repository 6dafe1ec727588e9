// Package storage persists the password hash and wrapped keys of one
// keytool user.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ledgerlock/go-backend/internal/securestore"
)

const FileVersion = 1

var (
	ErrEntryConflict            = errors.New("key entry id conflict")
	ErrEntryNotFound            = errors.New("key entry not found")
	ErrUnsupportedStorageSchema = errors.New("unsupported storage schema version")
)

// Entry kinds.
const (
	KindAsymmetric = "asymmetric"
	KindSymmetric  = "symmetric"
	KindStream     = "stream"
)

// Entry is one wrapped key. Wrapped is produced by the password envelope;
// PublicSpec is set for key pairs.
type Entry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Algorithm  string    `json:"algorithm"`
	PublicSpec []byte    `json:"public_spec,omitempty"`
	Wrapped    []byte    `json:"wrapped"`
	CreatedAt  time.Time `json:"created_at"`
}

// File is the on-disk and export snapshot.
type File struct {
	Version      int     `json:"version"`
	PasswordHash []byte  `json:"password_hash,omitempty"`
	Keys         []Entry `json:"keys"`
}

type KeyStore struct {
	mu           sync.RWMutex
	path         string
	passwordHash []byte
	entries      map[string]Entry
}

func NewKeyStore() *KeyStore {
	return &KeyStore{entries: make(map[string]Entry)}
}

// Load opens the store at path. A missing file yields an empty store that
// is created on the first write.
func Load(path string) (*KeyStore, error) {
	s := &KeyStore{path: path, entries: make(map[string]Entry)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode key store: %w", err)
	}
	if err := s.apply(f); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *KeyStore) apply(f File) error {
	if f.Version != FileVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedStorageSchema, f.Version)
	}
	entries := make(map[string]Entry, len(f.Keys))
	for _, e := range f.Keys {
		if _, dup := entries[e.ID]; dup {
			return fmt.Errorf("%w: %s", ErrEntryConflict, e.ID)
		}
		entries[e.ID] = e
	}
	s.passwordHash = f.PasswordHash
	s.entries = entries
	return nil
}

func (s *KeyStore) PasswordHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.passwordHash...)
}

// SetPasswordHash replaces the stored hash. Entries wrapped under the old
// hash are not rewrapped.
func (s *KeyStore) SetPasswordHash(hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]byte(nil), hash...)
	if err := s.persistSnapshotLocked(next, s.entries); err != nil {
		return err
	}
	s.passwordHash = next
	return nil
}

// Put adds e. Re-putting an identical entry is a no-op.
func (s *KeyStore) Put(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[e.ID]; ok {
		if entriesEqual(existing, e) {
			return nil
		}
		return ErrEntryConflict
	}
	next := cloneEntries(s.entries)
	next[e.ID] = e
	if err := s.persistSnapshotLocked(s.passwordHash, next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *KeyStore) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (s *KeyStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	next := cloneEntries(s.entries)
	delete(next, id)
	if err := s.persistSnapshotLocked(s.passwordHash, next); err != nil {
		return false, err
	}
	s.entries = next
	return true, nil
}

// List returns entries oldest first.
func (s *KeyStore) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEntries(s.entries)
}

// Snapshot is the current content as a File.
func (s *KeyStore) Snapshot() File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return File{
		Version:      FileVersion,
		PasswordHash: append([]byte(nil), s.passwordHash...),
		Keys:         sortedEntries(s.entries),
	}
}

// Save writes the store to its path.
func (s *KeyStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistSnapshotLocked(s.passwordHash, s.entries)
}

// Export writes a passphrase-sealed copy of the store to path.
func (s *KeyStore) Export(sealer securestore.Sealer, path string, passphrase []byte) error {
	return sealer.WriteSealedJSON(path, passphrase, s.Snapshot())
}

// Import replaces the store content with a sealed export and persists it.
func (s *KeyStore) Import(path string, passphrase []byte) error {
	plain, err := securestore.ReadOpenedFile(path, passphrase)
	if err != nil {
		return err
	}
	var f File
	if err := json.Unmarshal(plain, &f); err != nil {
		return fmt.Errorf("decode export: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prevHash, prevEntries := s.passwordHash, s.entries
	if err := s.apply(f); err != nil {
		return err
	}
	if err := s.persistSnapshotLocked(s.passwordHash, s.entries); err != nil {
		s.passwordHash, s.entries = prevHash, prevEntries
		return err
	}
	return nil
}

func (s *KeyStore) persistSnapshotLocked(hash []byte, entries map[string]Entry) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(File{
		Version:      FileVersion,
		PasswordHash: hash,
		Keys:         sortedEntries(entries),
	}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func sortedEntries(in map[string]Entry) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneEntries(in map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func entriesEqual(a, b Entry) bool {
	return a.ID == b.ID &&
		a.Kind == b.Kind &&
		a.Algorithm == b.Algorithm &&
		bytes.Equal(a.PublicSpec, b.PublicSpec) &&
		bytes.Equal(a.Wrapped, b.Wrapped) &&
		a.CreatedAt.Equal(b.CreatedAt)
}
