package privacylog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSanitizeArgsFingerprintsKeyIDs(t *testing.T) {
	args := SanitizeArgs(
		"key_id", "lk1abc",
		"partner", "lk1def",
		"kind", "X25519",
	)
	if len(args) != 6 {
		t.Fatalf("unexpected args length: %d", len(args))
	}
	if got := args[0]; got != "key_id_fp" {
		t.Fatalf("unexpected key: %v", got)
	}
	if got := args[1].(string); !strings.HasPrefix(got, "fp_") {
		t.Fatalf("unexpected fingerprint value: %q", got)
	}
	if got := args[2]; got != "partner_fp" {
		t.Fatalf("unexpected key: %v", got)
	}
	if got := args[4]; got != "kind" {
		t.Fatalf("expected untouched key, got %v", got)
	}
}

func TestSanitizeArgsRedactsSecrets(t *testing.T) {
	args := SanitizeArgs("security_phrase", "abandon ability", "key_material", []byte{1, 2}, "private_key", "der")
	for i := 1; i < len(args); i += 2 {
		if args[i] != redactedValue {
			t.Fatalf("expected %v to be redacted, got %v", args[i-1], args[i])
		}
	}
}

func TestSanitizingHandlerRedactsSensitiveAndIDs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(WrapHandler(base))
	logger.Info("test", "hash_id", "lk1hash", "password", "hunter2", "status", "ok")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if _, ok := payload["hash_id"]; ok {
		t.Fatal("hash_id should not be present")
	}
	if _, ok := payload["hash_id_fp"]; !ok {
		t.Fatal("hash_id_fp should be present")
	}
	if got, _ := payload["password"].(string); got != redactedValue {
		t.Fatalf("expected redacted password, got %q", got)
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Fatal("password leaked into log output")
	}
}

func TestSanitizingHandlerWithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil))).With("phrase", "words")
	logger.Info("grouped", slog.Group("key", slog.String("key_id", "lk1x"), slog.Int("bits", 256)))
	out := buf.String()
	if strings.Contains(out, "words") || strings.Contains(out, "lk1x") {
		t.Fatalf("expected sanitized output, got %s", out)
	}
	if !strings.Contains(out, "key_id_fp") {
		t.Fatalf("expected fingerprinted group attr, got %s", out)
	}
}

func TestSanitizingHandlerImplementsSlogHandlerContract(t *testing.T) {
	var buf bytes.Buffer
	h := WrapHandler(slog.NewJSONHandler(&buf, nil))
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected handler enabled for info")
	}
	rec := slog.NewRecord(time.Now().UTC(), slog.LevelInfo, "msg", 0)
	rec.AddAttrs(slog.String("entry_id", "e1"))
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(buf.String(), "entry_id_fp") {
		t.Fatalf("expected sanitized entry_id key, got %s", buf.String())
	}
	if WrapHandler(nil) != nil {
		t.Fatal("expected nil handler passthrough")
	}
	if WrapHandler(h) != h {
		t.Fatal("expected wrapping to be idempotent")
	}
}

func TestByteValuesReplacedWithLength(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Info("blob", "ciphertext", []byte{0xde, 0xad, 0xbe, 0xef})
	if !strings.Contains(buf.String(), "[4 bytes]") {
		t.Fatalf("expected byte length placeholder, got %s", buf.String())
	}
}

func TestFingerprintStableWithinProcess(t *testing.T) {
	a := FingerprintID("lk1abc")
	if a != FingerprintID(" lk1abc ") {
		t.Fatal("fingerprint must ignore surrounding whitespace")
	}
	if a == FingerprintID("lk1abd") {
		t.Fatal("distinct ids must fingerprint differently")
	}
	if FingerprintID("") != "" {
		t.Fatal("empty id must stay empty")
	}
}
