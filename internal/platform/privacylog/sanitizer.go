// Package privacylog wraps slog handlers so that engine logs never carry
// secrets, raw key bytes or linkable identifiers.
package privacylog

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const redactedValue = "[REDACTED]"

type action int

const (
	keep action = iota
	redact
	fingerprint
)

var (
	// fingerprintKey is drawn per process so fingerprints only link lines
	// of one run.
	fingerprintKey = newFingerprintKey()

	linkableIDs = map[string]struct{}{
		"key_id":   {},
		"hash_id":  {},
		"partner":  {},
		"entry_id": {},
	}
	sensitiveKeyParts = []string{"token", "secret", "password", "passphrase", "phrase", "mnemonic", "key_material", "private"}
)

type SanitizingHandler struct {
	next slog.Handler
}

// WrapHandler returns nil for a nil handler.
func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	if h, ok := next.(*SanitizingHandler); ok {
		return h
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(sanitizeAttrs(attrs))}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

func classify(key string) action {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return redact
		}
	}
	if _, ok := linkableIDs[key]; ok {
		return fingerprint
	}
	return keep
}

// SanitizeAttr redacts secret keys, fingerprints identifier keys under a
// "_fp" suffix and replaces raw byte values with their length. Groups are
// sanitized recursively.
func SanitizeAttr(attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	switch classify(attr.Key) {
	case redact:
		return slog.String(attr.Key, redactedValue)
	case fingerprint:
		return slog.String(attr.Key+"_fp", FingerprintID(valueString(attr.Value)))
	}
	switch attr.Value.Kind() {
	case slog.KindGroup:
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(sanitizeAttrs(attr.Value.Group())...)}
	case slog.KindAny:
		if b, ok := attr.Value.Any().([]byte); ok {
			return slog.String(attr.Key, fmt.Sprintf("[%d bytes]", len(b)))
		}
	}
	return attr
}

// SanitizeArgs applies SanitizeAttr to key/value pairs in slog argument
// form. Non-string keys and a trailing odd value pass through.
func SanitizeArgs(args ...any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			out = append(out, args[i])
			continue
		}
		attr := SanitizeAttr(slog.Any(key, args[i+1]))
		i++
		out = append(out, attr.Key, attr.Value.Any())
	}
	return out
}

// FingerprintID is a short keyed hash of value, stable within one process.
func FingerprintID(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	h, err := blake2b.New(16, fingerprintKey)
	if err != nil {
		return redactedValue
	}
	h.Write([]byte(trimmed))
	return "fp_" + base58.Encode(h.Sum(nil))
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return out
}

func valueString(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return fmt.Sprint(v.Any())
}

func newFingerprintKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("privacylog: read fingerprint key: %v", err))
	}
	return key
}
