package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"
)

const passwordEnv = "CBPORTAL_PASSWORD"

// readPassword returns the encryption password from --password-file,
// $CBPORTAL_PASSWORD, or an interactive no-echo prompt, in that order.
// The password is never written anywhere.
func readPassword(v *viper.Viper) (string, error) {
	if path := v.GetString("password-file"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		pw := strings.TrimRight(string(b), "\r\n")
		if pw == "" {
			return "", fmt.Errorf("password file %s is empty", path)
		}
		return pw, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal: use --password-file or " + passwordEnv)
	}
	fmt.Fprint(os.Stderr, "Password (same on every device): ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(b), nil
}
