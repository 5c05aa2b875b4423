// pkg/truststore/truststore.go

// Package truststore teaches the agent's JVM to trust the controller:
// it fetches the TLS chain the controller actually serves, imports each
// certificate into the agent's keystore, and wires the keystore into the
// agent's startup options.
package truststore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/agentconfig"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

const (
	// DefaultStorePass is the keytool default; most agent bundles ship
	// their cacerts with it unchanged.
	DefaultStorePass = "changeit"

	// DefaultAliasPrefix names imported certificates controller-0..n.
	DefaultAliasPrefix = "controller"

	// DefaultPort is used when neither a flag nor the agent
	// configuration supplies a controller port.
	DefaultPort = 443

	fetchTimeout = 30 * time.Second
)

// Options configures a truststore setup run. Zero values mean "work it
// out": install dir from the standard path or a running process, host
// and port from the agent configuration.
type Options struct {
	Host        string
	Port        int
	InstallDir  string
	StorePass   string
	AliasPrefix string
	NoRestart   bool

	// ConfirmWait is how long to wait before the single post-restart
	// poll. Zero selects the shared default.
	ConfirmWait time.Duration
}

// Report says what a run changed.
type Report struct {
	TruststorePath string
	BackupPath     string
	Imported       []string
	Skipped        []string
	OptionsPatched bool
	Restarted      bool
	Warnings       []string
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Run performs the whole setup: fetch chain, import certificates, patch
// the startup script, restart the agent. Already-imported aliases are
// skipped, so reruns converge instead of failing.
func Run(rc *appdctl_io.RuntimeContext, sys systemctl.Client, opts Options) (*Report, error) {
	logger := otelzap.Ctx(rc.Ctx)

	installDir, err := resolveInstallDir(rc.Ctx, opts.InstallDir)
	if err != nil {
		return nil, err
	}

	if opts.StorePass == "" {
		opts.StorePass = DefaultStorePass
	}
	if opts.AliasPrefix == "" {
		opts.AliasPrefix = DefaultAliasPrefix
	}
	if opts.ConfirmWait <= 0 {
		opts.ConfirmWait = shared.ServiceStartWaitSeconds * time.Second
	}

	host, port, err := resolveEndpoint(rc.Ctx, installDir, opts.Host, opts.Port)
	if err != nil {
		return nil, err
	}

	keytool, err := FindKeytool(installDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("Using keytool", zap.String("path", keytool.Bin))

	fetchCtx, cancel := context.WithTimeout(rc.Ctx, fetchTimeout)
	defer cancel()
	certs, err := FetchChain(fetchCtx, host, port)
	if err != nil {
		return nil, err
	}
	logger.Info("Fetched controller certificate chain",
		zap.String("host", host),
		zap.Int("port", port),
		zap.Int("certificates", len(certs)))

	pemDir, err := os.MkdirTemp("", "appdctl-certs-")
	if err != nil {
		return nil, cerr.Wrap(err, "create temp dir for certificates")
	}
	defer os.RemoveAll(pemDir)

	pems, err := WritePEMs(pemDir, certs)
	if err != nil {
		return nil, err
	}

	storePath := filepath.Join(installDir, filepath.FromSlash(shared.AgentTruststore))
	if err := os.MkdirAll(filepath.Dir(storePath), shared.DirPermStandard); err != nil {
		return nil, cerr.Wrapf(err, "create %s", filepath.Dir(storePath))
	}
	report := &Report{TruststorePath: storePath}

	if _, err := os.Stat(storePath); err == nil {
		backupPath := storePath + ".backup." + time.Now().UTC().Format("20060102-150405")
		if err := copyPlainFile(storePath, backupPath); err != nil {
			return nil, cerr.Wrap(err, "back up existing truststore")
		}
		report.BackupPath = backupPath
		logger.Info("Backed up existing truststore", zap.String("backup", backupPath))
	}

	for i, pemPath := range pems {
		alias := fmt.Sprintf("%s-%d", opts.AliasPrefix, i)
		subject := certs[i].Subject.CommonName

		present, err := keytool.HasAlias(rc.Ctx, storePath, opts.StorePass, alias)
		if err != nil {
			return report, err
		}
		if present {
			logger.Info("Alias already in truststore, skipping",
				zap.String("alias", alias),
				zap.String("subject", subject))
			report.Skipped = append(report.Skipped, alias)
			continue
		}

		if err := keytool.ImportCert(rc.Ctx, storePath, opts.StorePass, alias, pemPath); err != nil {
			return report, err
		}
		logger.Info("Imported certificate",
			zap.String("alias", alias),
			zap.String("subject", subject))
		report.Imported = append(report.Imported, alias)
	}

	script := filepath.Join(installDir, "bin", "machine-agent")
	patched, err := EnsureJavaOptions(script,
		"-Djavax.net.ssl.trustStore="+storePath,
		"-Djavax.net.ssl.trustStorePassword="+opts.StorePass,
	)
	if err != nil {
		report.warnf("startup script not updated: %v", err)
		logger.Warn("Could not patch agent startup options",
			zap.String("script", script), zap.Error(err))
	}
	report.OptionsPatched = patched
	if patched {
		logger.Info("Added truststore options to agent startup script",
			zap.String("script", script))
	}

	if opts.NoRestart {
		logger.Info("Restart skipped on request; truststore takes effect on next agent start")
		return report, nil
	}

	unit := shared.AgentUnitFile
	exists, err := sys.UnitExists(rc.Ctx, unit)
	if err != nil {
		report.warnf("could not query service %s: %v", unit, err)
		return report, nil
	}
	if !exists {
		report.warnf("service %s is not registered; restart the agent manually", unit)
		return report, nil
	}

	logger.Info("Restarting agent service", zap.String("unit", unit))
	if err := sys.Restart(rc.Ctx, unit); err != nil {
		return report, err
	}

	select {
	case <-rc.Ctx.Done():
		return report, rc.Ctx.Err()
	case <-time.After(opts.ConfirmWait):
	}

	state, err := sys.ActiveState(rc.Ctx, unit)
	if err != nil {
		return report, err
	}
	if state != "active" {
		diag := systemctl.CaptureDiagnostics(rc.Ctx, sys, unit)
		logger.Error("Agent did not come back after restart",
			zap.String("state", state),
			zap.String("status", diag.StatusOutput),
			zap.String("journal", diag.JournalOutput))
		return report, cerr.Newf("service %s is %s after restart", unit, state)
	}
	report.Restarted = true
	logger.Info("Agent service is active")
	return report, nil
}

// resolveInstallDir prefers an explicit path, then the standard install
// location, then the command line of a running agent process.
func resolveInstallDir(ctx context.Context, explicit string) (string, error) {
	logger := otelzap.Ctx(ctx)

	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", cerr.Wrapf(err, "install dir %s", explicit)
		}
		if !info.IsDir() {
			return "", cerr.Newf("install dir %s is not a directory", explicit)
		}
		return explicit, nil
	}

	if info, err := os.Stat(shared.AgentInstallDir); err == nil && info.IsDir() {
		return shared.AgentInstallDir, nil
	}

	logger.Debug("Standard install dir missing, scanning for a running agent",
		zap.String("dir", shared.AgentInstallDir))
	dir, err := DiscoverInstallDir(ctx)
	if err != nil {
		return "", cerr.Wrap(err, "agent installation not found; pass --install-dir")
	}
	logger.Info("Found agent install dir from running process", zap.String("dir", dir))
	return dir, nil
}

// resolveEndpoint fills host and port from the agent configuration when
// flags left them empty.
func resolveEndpoint(ctx context.Context, installDir, host string, port int) (string, int, error) {
	logger := otelzap.Ctx(ctx)

	if host == "" || port == 0 {
		confPath := filepath.Join(installDir, filepath.FromSlash(shared.AgentControllerInfo))
		ci, err := agentconfig.Load(confPath)
		if err != nil {
			logger.Debug("Agent configuration unreadable", zap.String("path", confPath), zap.Error(err))
		} else {
			if host == "" {
				host = ci.ControllerHost
			}
			if port == 0 && ci.ControllerPort != "" {
				p, convErr := strconv.Atoi(ci.ControllerPort)
				if convErr != nil {
					logger.Debug("Configured controller port is not numeric",
						zap.String("port", ci.ControllerPort))
				} else {
					port = p
				}
			}
		}
	}

	if host == "" {
		return "", 0, cerr.New("controller host unknown: pass --host or configure the agent first")
	}
	if port == 0 {
		port = DefaultPort
	}
	return host, port, nil
}

// copyPlainFile copies one regular file preserving nothing but content
// and mode.
func copyPlainFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
