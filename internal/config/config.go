// Package config loads keytool settings from YAML and the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ledgerlock/go-backend/internal/platform/privacylog"
	"ledgerlock/go-backend/internal/platform/ratelimiter"
	"ledgerlock/go-backend/internal/security"
)

type Config struct {
	Security     security.Config
	Verification Verification
	LogLevel     string
}

type Verification struct {
	AttemptsPerSecond float64
	Burst             int
	IdleTTL           time.Duration
}

type FileConfig struct {
	Security     FileSecurityConfig     `yaml:"security"`
	Verification FileVerificationConfig `yaml:"verification"`
	Log          FileLogConfig          `yaml:"log"`
}

type FileSecurityConfig struct {
	Restricted          *bool  `yaml:"restricted"`
	LongHash            *bool  `yaml:"longHash"`
	CipherSteps         int    `yaml:"cipherSteps"`
	HashIterations      int    `yaml:"hashIterations"`
	Phrase              string `yaml:"phrase"`
	PhraseMnemonic      string `yaml:"phraseMnemonic"`
	DRBG                string `yaml:"drbg"`
	ReseedInterval      uint64 `yaml:"reseedInterval"`
	PredictionResistant *bool  `yaml:"predictionResistant"`
}

type FileVerificationConfig struct {
	AttemptsPerSecond float64       `yaml:"attemptsPerSecond"`
	Burst             int           `yaml:"burst"`
	IdleTTL           time.Duration `yaml:"idleTTL"`
}

type FileLogConfig struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Security: security.DefaultConfig(),
		Verification: Verification{
			AttemptsPerSecond: 1,
			Burst:             5,
			IdleTTL:           10 * time.Minute,
		},
		LogLevel: "info",
	}
}

// Load reads configPath, or the first default location that exists when
// configPath is empty, then applies environment overrides. A missing
// default file is not an error; a missing explicit file is.
func Load(configPath string) (Config, error) {
	cfg := Default()

	candidates := []string{configPath}
	if configPath == "" {
		candidates = []string{"configs/keytool.yaml", "keytool.yaml"}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := Merge(&cfg, parsed); err != nil {
			return Config{}, err
		}
		break
	}

	ApplyEnvOverrides(&cfg)
	if err := cfg.Security.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src FileConfig) error {
	s := src.Security
	if s.Restricted != nil {
		dst.Security.Restricted = *s.Restricted
	}
	if s.LongHash != nil {
		dst.Security.LongHash = *s.LongHash
	}
	if s.CipherSteps != 0 {
		dst.Security.CipherSteps = s.CipherSteps
	}
	if s.HashIterations != 0 {
		dst.Security.HashIterations = s.HashIterations
	}
	if s.Phrase != "" && s.PhraseMnemonic != "" {
		return fmt.Errorf("config sets both phrase and phraseMnemonic")
	}
	if s.Phrase != "" {
		dst.Security.Phrase = []byte(s.Phrase)
	}
	if s.PhraseMnemonic != "" {
		phrase, err := security.PhraseFromMnemonic(s.PhraseMnemonic)
		if err != nil {
			return err
		}
		dst.Security.Phrase = phrase
	}
	if s.DRBG != "" {
		dst.Security.DRBG = s.DRBG
	}
	if s.ReseedInterval != 0 {
		dst.Security.ReseedInterval = s.ReseedInterval
	}
	if s.PredictionResistant != nil {
		dst.Security.PredictionResistant = *s.PredictionResistant
	}

	v := src.Verification
	if v.AttemptsPerSecond != 0 {
		dst.Verification.AttemptsPerSecond = v.AttemptsPerSecond
	}
	if v.Burst != 0 {
		dst.Verification.Burst = v.Burst
	}
	if v.IdleTTL != 0 {
		dst.Verification.IdleTTL = v.IdleTTL
	}
	if src.Log.Level != "" {
		dst.LogLevel = src.Log.Level
	}
	return nil
}

// ApplyEnvOverrides ignores values that do not parse.
func ApplyEnvOverrides(cfg *Config) {
	if phrase := os.Getenv("LEDGERLOCK_SECURITY_PHRASE"); phrase != "" {
		cfg.Security.Phrase = []byte(phrase)
	}
	if raw := strings.TrimSpace(os.Getenv("LEDGERLOCK_HASH_ITERATIONS")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.Security.HashIterations = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("LEDGERLOCK_CIPHER_STEPS")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.Security.CipherSteps = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("LEDGERLOCK_RESTRICTED")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Security.Restricted = v
		}
	}
	if level := strings.TrimSpace(os.Getenv("LEDGERLOCK_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}
}

// Limiter returns nil when throttling is disabled.
func (c Config) Limiter() *ratelimiter.MapLimiter {
	return ratelimiter.New(c.Verification.AttemptsPerSecond, c.Verification.Burst, c.Verification.IdleTTL)
}

// Logger builds a sanitizing JSON logger at the configured level. Unknown
// levels fall back to info.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(privacylog.WrapHandler(h))
}
