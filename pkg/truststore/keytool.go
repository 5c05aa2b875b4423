// pkg/truststore/keytool.go

package truststore

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"

	"github.com/opsdep/appdctl/pkg/execute"
)

// Keytool wraps one resolved keytool binary.
type Keytool struct {
	Bin string
}

// FindKeytool prefers the JRE the agent bundle ships, then PATH.
func FindKeytool(installDir string) (*Keytool, error) {
	candidates := []string{
		filepath.Join(installDir, "jre", "bin", "keytool"),
		filepath.Join(installDir, "java", "bin", "keytool"),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return &Keytool{Bin: candidate}, nil
		}
	}
	if path, err := exec.LookPath("keytool"); err == nil {
		return &Keytool{Bin: path}, nil
	}
	return nil, cerr.New("keytool not found: the agent ships no JRE and PATH has none")
}

// HasAlias reports whether the keystore already holds the alias. A
// missing keystore file holds nothing.
func (k *Keytool) HasAlias(ctx context.Context, store, storepass, alias string) (bool, error) {
	if _, err := os.Stat(store); err != nil {
		return false, nil
	}
	_, err := execute.Run(ctx, execute.Options{
		Command: k.Bin,
		Args: []string{
			"-list",
			"-keystore", store,
			"-storepass", storepass,
			"-alias", alias,
		},
		Capture: true,
	})
	if err == nil {
		return true, nil
	}
	// keytool answers "alias does not exist" with exit code 1.
	var exitErr *exec.ExitError
	if cerr.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, cerr.Wrapf(err, "list alias %s in %s", alias, store)
}

// ImportCert imports one PEM certificate under the alias, creating the
// keystore when it does not exist yet.
func (k *Keytool) ImportCert(ctx context.Context, store, storepass, alias, pemPath string) error {
	out, err := execute.Run(ctx, execute.Options{
		Command: k.Bin,
		Args: []string{
			"-importcert",
			"-noprompt",
			"-trustcacerts",
			"-keystore", store,
			"-storepass", storepass,
			"-alias", alias,
			"-file", pemPath,
		},
		Capture: true,
	})
	if err != nil {
		return cerr.Wrapf(err, "import %s as %s: %s", pemPath, alias, strings.TrimSpace(out))
	}
	return nil
}
