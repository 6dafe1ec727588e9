package main

import (
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"ledgerlock/go-backend/internal/asymmetric"
	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/passhash"
	"ledgerlock/go-backend/internal/securestore"
	"ledgerlock/go-backend/internal/security"
	"ledgerlock/go-backend/internal/storage"
)

var errNotEnrolled = errors.New("store has no password; run enroll first")

var commands = map[string]func(*app, []string) error{
	"phrase": cmdPhrase,
	"enroll": cmdEnroll,
	"verify": cmdVerify,
	"genkey": cmdGenkey,
	"check":  cmdCheck,
	"list":   cmdList,
	"export": cmdExport,
	"import": cmdImport,
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func cmdPhrase(a *app, args []string) error {
	if err := newFlagSet("phrase").Parse(args); err != nil {
		return err
	}
	m, err := security.NewPhrase(rand.Reader)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, m)
	return nil
}

func cmdEnroll(a *app, args []string) error {
	fs := newFlagSet("enroll")
	force := fs.Bool("force", false, "replace an existing password; stored keys become unreadable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(a.store.PasswordHash()) != 0 && !*force {
		return errors.New("store already enrolled; pass -force to replace")
	}
	password, err := readPassword()
	if err != nil {
		return err
	}
	env, err := a.gen.GeneratePasswordHash(password)
	if err != nil {
		return err
	}
	defer env.Destroy()
	stored, err := env.External()
	if err != nil {
		return err
	}
	if err := a.store.SetPasswordHash(stored); err != nil {
		return err
	}
	fmt.Fprintln(a.out, security.HashID(stored))
	return nil
}

// unlock verifies the password against the store.
func (a *app) unlock() (*passhash.Envelope, error) {
	stored := a.store.PasswordHash()
	if len(stored) == 0 {
		return nil, errNotEnrolled
	}
	password, err := readPassword()
	if err != nil {
		return nil, err
	}
	return a.gen.DerivePasswordHash(stored, password)
}

func cmdVerify(a *app, args []string) error {
	if err := newFlagSet("verify").Parse(args); err != nil {
		return err
	}
	env, err := a.unlock()
	if err != nil {
		return err
	}
	env.Destroy()
	fmt.Fprintln(a.out, "ok")
	return nil
}

func cmdGenkey(a *app, args []string) error {
	fs := newFlagSet("genkey")
	name := fs.String("type", "", "algorithm name; random elliptic pair when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	env, err := a.unlock()
	if err != nil {
		return err
	}
	defer env.Destroy()

	e, err := a.generate(env, strings.TrimSpace(*name))
	if err != nil {
		return err
	}
	e.CreatedAt = time.Now().UTC()
	if err := a.store.Put(e); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s %s\n", e.ID, e.Kind, e.Algorithm)
	return nil
}

func (a *app) generate(env *passhash.Envelope, name string) (storage.Entry, error) {
	if name == "" {
		k, err := a.gen.GenerateRandomAsymmetricKey()
		if err != nil {
			return storage.Entry{}, err
		}
		defer k.Destroy()
		return pairEntry(env, k)
	}
	if t, ok := lookup(catalog.AsymKeyTypes(), name); ok {
		k, err := a.gen.GenerateAsymmetricKey(t)
		if err != nil {
			return storage.Entry{}, err
		}
		defer k.Destroy()
		return pairEntry(env, k)
	}
	if t, ok := lookup(catalog.SymKeyTypes(), name); ok {
		k, err := a.gen.GenerateSymmetricKey(t)
		if err != nil {
			return storage.Entry{}, err
		}
		defer k.Destroy()
		wrapped, err := env.SecureSymmetricKey(k)
		if err != nil {
			return storage.Entry{}, err
		}
		return a.secretEntry(storage.KindSymmetric, t.String(), wrapped)
	}
	if t, ok := lookup(catalog.StreamKeyTypes(), name); ok {
		k, err := a.gen.GenerateStreamKey(t)
		if err != nil {
			return storage.Entry{}, err
		}
		defer k.Destroy()
		wrapped, err := env.SecureStreamKey(k)
		if err != nil {
			return storage.Entry{}, err
		}
		return a.secretEntry(storage.KindStream, t.String(), wrapped)
	}
	return storage.Entry{}, fmt.Errorf("unknown key type %q", name)
}

func pairEntry(env *passhash.Envelope, k *asymmetric.Key) (storage.Entry, error) {
	wrapped, err := env.SecurePrivateKey(k)
	if err != nil {
		return storage.Entry{}, err
	}
	return storage.Entry{
		ID:         k.Fingerprint(),
		Kind:       storage.KindAsymmetric,
		Algorithm:  k.Type().String(),
		PublicSpec: k.PublicSpec(),
		Wrapped:    wrapped,
	}, nil
}

func (a *app) secretEntry(kind, algorithm string, wrapped []byte) (storage.Entry, error) {
	id := make([]byte, 12)
	if _, err := io.ReadFull(a.gen.Random(), id); err != nil {
		return storage.Entry{}, err
	}
	return storage.Entry{
		ID:        "lk1" + base58.Encode(id),
		Kind:      kind,
		Algorithm: algorithm,
		Wrapped:   wrapped,
	}, nil
}

func lookup[T catalog.Algorithm](values []T, name string) (T, bool) {
	for _, v := range values {
		if strings.EqualFold(v.String(), name) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func cmdCheck(a *app, args []string) error {
	fs := newFlagSet("check")
	id := fs.String("id", "", "entry id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := a.store.Get(*id)
	if err != nil {
		return err
	}
	env, err := a.unlock()
	if err != nil {
		return err
	}
	defer env.Destroy()

	switch e.Kind {
	case storage.KindAsymmetric:
		k, err := env.DerivePrivateKey(e.PublicSpec, e.Wrapped)
		if err != nil {
			return err
		}
		k.Destroy()
	case storage.KindSymmetric:
		k, err := env.DeriveSymmetricKey(e.Wrapped)
		if err != nil {
			return err
		}
		k.Destroy()
	case storage.KindStream:
		k, err := env.DeriveStreamKey(e.Wrapped)
		if err != nil {
			return err
		}
		k.Destroy()
	default:
		return fmt.Errorf("entry %s has unknown kind %q", e.ID, e.Kind)
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func cmdList(a *app, args []string) error {
	if err := newFlagSet("list").Parse(args); err != nil {
		return err
	}
	for _, e := range a.store.List() {
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", e.ID, e.Kind, e.Algorithm, e.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func cmdExport(a *app, args []string) error {
	fs := newFlagSet("export")
	out := fs.String("out", "", "export file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("export requires -out")
	}
	passphrase, err := readExportPassphrase()
	if err != nil {
		return err
	}
	sealer := securestore.Sealer{Random: a.gen.Random(), KDF: securestore.DefaultKDF}
	return a.store.Export(sealer, *out, passphrase)
}

func cmdImport(a *app, args []string) error {
	fs := newFlagSet("import")
	in := fs.String("in", "", "export file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("import requires -in")
	}
	passphrase, err := readExportPassphrase()
	if err != nil {
		return err
	}
	return a.store.Import(*in, passphrase)
}
