package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// readSecret returns the value of env when set, otherwise prompts on the
// terminal without echo.
func readSecret(env, prompt string) ([]byte, error) {
	if v := os.Getenv(env); v != "" {
		return []byte(v), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read %s: stdin is not a terminal and %s is unset", prompt, env)
	}
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", prompt, err)
	}
	return secret, nil
}

func readPassword() ([]byte, error) {
	return readSecret("LEDGERLOCK_PASSWORD", "password")
}

func readExportPassphrase() ([]byte, error) {
	return readSecret("LEDGERLOCK_EXPORT_PASSPHRASE", "export passphrase")
}
