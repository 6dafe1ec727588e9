package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"ledgerlock/go-backend/internal/config"
	"ledgerlock/go-backend/internal/metrics"
	"ledgerlock/go-backend/internal/security"
	"ledgerlock/go-backend/internal/storage"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const usage = `usage: keytool [-config path] [-store path] <command> [flags]

commands:
  phrase    print a new security phrase mnemonic
  enroll    set the store password
  verify    check a password against the store
  genkey    generate and store a wrapped key (-type AES|X25519|ChaCha20|...)
  check     unwrap a stored key (-id)
  list      list stored keys
  export    write a passphrase-sealed copy of the store (-out)
  import    replace the store with a sealed export (-in)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("keytool: %v", err)
	}
}

// app carries what every command needs.
type app struct {
	cfg   config.Config
	gen   *security.Generator
	store *storage.KeyStore
	out   io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("keytool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "Path to keytool.yaml (optional)")
	storePath := fs.String("store", defaultStorePath(), "Path to the key store")
	showMetrics := fs.Bool("metrics", false, "print engine counters to stderr on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "keytool version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	name, rest := fs.Arg(0), fs.Args()[1:]

	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger(stderr)
	reg := prometheus.NewRegistry()
	recorder, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if *showMetrics {
		defer dumpMetrics(reg, stderr)
	}
	gen, err := security.New(cfg.Security,
		security.WithLogger(logger),
		security.WithRecorder(recorder),
		security.WithVerifyLimiter(cfg.Limiter()),
	)
	if err != nil {
		return err
	}
	defer gen.Destroy()

	store, err := storage.Load(*storePath)
	if err != nil {
		return err
	}
	return cmd(&app{cfg: cfg, gen: gen, store: store, out: stdout}, rest)
}

func dumpMetrics(reg *prometheus.Registry, w io.Writer) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(w, "gather metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return
		}
	}
}

func defaultStorePath() string {
	if p := os.Getenv("LEDGERLOCK_STORE"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "keys.json"
	}
	return dir + string(os.PathSeparator) + "ledgerlock" + string(os.PathSeparator) + "keys.json"
}
