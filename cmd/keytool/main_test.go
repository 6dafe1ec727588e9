package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledgerlock/go-backend/internal/secerr"
)

type harness struct {
	t      *testing.T
	config string
	store  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "keytool.yaml")
	body := "security:\n  hashIterations: 8\n  phrase: test-phrase\nlog:\n  level: error\n"
	if err := os.WriteFile(cfg, []byte(body), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return &harness{t: t, config: cfg, store: filepath.Join(dir, "store", "keys.json")}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-config", h.config, "-store", h.store}, args...)
	err := run(full, &out, &errOut)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestEnrollGenerateAndCheck(t *testing.T) {
	t.Setenv("LEDGERLOCK_PASSWORD", "correct horse")
	h := newHarness(t)

	if id := strings.TrimSpace(h.mustRun("enroll")); !strings.HasPrefix(id, "lh1") {
		t.Fatalf("unexpected hash id %q", id)
	}
	if _, err := h.run("enroll"); err == nil {
		t.Fatal("second enroll without -force must fail")
	}
	if out := h.mustRun("verify"); strings.TrimSpace(out) != "ok" {
		t.Fatalf("unexpected verify output %q", out)
	}

	var ids []string
	for _, typ := range []string{"X25519", "aes", "ChaCha20", ""} {
		out := h.mustRun("genkey", "-type", typ)
		fields := strings.Fields(out)
		if len(fields) != 3 {
			t.Fatalf("unexpected genkey output %q", out)
		}
		ids = append(ids, fields[0])
	}
	list := h.mustRun("list")
	if got := strings.Count(list, "\n"); got != 4 {
		t.Fatalf("expected 4 listed keys, got %d:\n%s", got, list)
	}
	for _, id := range ids {
		if out := h.mustRun("check", "-id", id); strings.TrimSpace(out) != "ok" {
			t.Fatalf("check %s printed %q", id, out)
		}
	}

	if _, err := h.run("genkey", "-type", "ROT13"); err == nil {
		t.Fatal("expected unknown key type to fail")
	}
}

func TestWrongPasswordRejected(t *testing.T) {
	h := newHarness(t)
	t.Setenv("LEDGERLOCK_PASSWORD", "right")
	h.mustRun("enroll")

	t.Setenv("LEDGERLOCK_PASSWORD", "wrong")
	if _, err := h.run("verify"); !errors.Is(err, secerr.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestVerifyRequiresEnrollment(t *testing.T) {
	t.Setenv("LEDGERLOCK_PASSWORD", "pw")
	h := newHarness(t)
	if _, err := h.run("verify"); !errors.Is(err, errNotEnrolled) {
		t.Fatalf("expected errNotEnrolled, got %v", err)
	}
}

func TestExportImport(t *testing.T) {
	t.Setenv("LEDGERLOCK_PASSWORD", "pw")
	t.Setenv("LEDGERLOCK_EXPORT_PASSPHRASE", "bundle-pass")
	src := newHarness(t)
	src.mustRun("enroll")
	id := strings.Fields(src.mustRun("genkey", "-type", "Serpent"))[0]

	bundle := filepath.Join(t.TempDir(), "keys.llk")
	src.mustRun("export", "-out", bundle)

	dst := newHarness(t)
	dst.config = src.config
	dst.mustRun("import", "-in", bundle)
	if out := dst.mustRun("check", "-id", id); strings.TrimSpace(out) != "ok" {
		t.Fatalf("imported key check printed %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("frobnicate"); err == nil {
		t.Fatal("expected unknown command to fail")
	}
}

func TestPhraseCommand(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("phrase")
	if n := len(strings.Fields(out)); n != 24 {
		t.Fatalf("expected 24 words, got %d", n)
	}
}
