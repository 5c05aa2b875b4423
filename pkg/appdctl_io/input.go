// pkg/appdctl_io/input.go

package appdctl_io

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// MaxInputLength caps interactive input reads.
const MaxInputLength = 4096

var (
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x9F]`)
	ansiEscapeRegex  = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]|\x9b[0-9;]*[A-Za-z]`)
)

// InputValidationError describes why a line of user input was rejected.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Field, e.Reason)
}

func validateUserInput(input, fieldName string) error {
	if len(input) > MaxInputLength {
		return &InputValidationError{Field: fieldName, Reason: fmt.Sprintf("too long (%d chars, max %d)", len(input), MaxInputLength)}
	}
	if !utf8.ValidString(input) {
		return &InputValidationError{Field: fieldName, Reason: "contains invalid UTF-8 sequences"}
	}
	if controlCharRegex.MatchString(input) {
		return &InputValidationError{Field: fieldName, Reason: "contains control characters"}
	}
	if ansiEscapeRegex.MatchString(input) {
		return &InputValidationError{Field: fieldName, Reason: "contains ANSI escape sequences"}
	}
	return nil
}

func sanitizeUserInput(input string) string {
	sanitized := controlCharRegex.ReplaceAllString(input, "")
	sanitized = ansiEscapeRegex.ReplaceAllString(sanitized, "")
	sanitized = strings.ReplaceAll(sanitized, "\x00", "")
	return strings.TrimSpace(sanitized)
}

// ReadInput reads one line from stdin with validation. Works on pipes as
// well as terminals; prompting is the caller's job (log a
// "terminal prompt: ..." line first).
func ReadInput(rc *RuntimeContext) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", fmt.Errorf("no input received")
	}

	input := scanner.Text()
	if err := validateUserInput(input, "stdin"); err != nil {
		logger.Warn("Invalid stdin input", zap.Error(err))
		return "", err
	}
	return sanitizeUserInput(input), nil
}

// PromptYesNo logs and prints a yes/no prompt and interprets the answer.
// Anything other than an explicit yes counts as no.
func PromptYesNo(rc *RuntimeContext, prompt string) (bool, error) {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("terminal prompt: " + prompt)
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)

	input, err := ReadInput(rc)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
