// pkg/appdctl_io/secure_input.go

package appdctl_io

import (
	"fmt"
	"os"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"golang.org/x/term"
)

// StdinIsTerminal reports whether stdin is an interactive terminal.
// Callers use it to decide between prompting and taking a default.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadPassword reads a secret without echoing when stdin is a terminal.
// On a pipe it falls back to a plain line read so scripted runs work.
func ReadPassword(rc *RuntimeContext, prompt string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("terminal prompt: " + prompt)
	fmt.Fprintf(os.Stderr, "%s: ", prompt)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ReadInput(rc)
	}

	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if err := validateUserInput(string(secret), "password"); err != nil {
		return "", err
	}
	return string(secret), nil
}
