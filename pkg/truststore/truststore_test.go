// pkg/truststore/truststore_test.go

package truststore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/agentconfig"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

func testRC() *appdctl_io.RuntimeContext {
	return &appdctl_io.RuntimeContext{
		Ctx: context.Background(),
		Log: zap.NewNop(),
	}
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not on PATH", name)
	}
}

func serverHostPort(t *testing.T, srv *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func selfSignedCert(t *testing.T, commonName string) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestFetchChainReturnsServerCert(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	certs, err := FetchChain(context.Background(), host, port)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, srv.Certificate().Raw, certs[0].Raw)
}

func TestFetchChainNonTLSEndpoint(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	_, err = FetchChain(context.Background(), host, port)
	assert.Error(t, err)
}

func TestWritePEMs(t *testing.T) {
	t.Parallel()

	cert := selfSignedCert(t, "controller.example.com")
	dir := t.TempDir()

	paths, err := WritePEMs(dir, []*x509.Certificate{cert})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "cert-0.pem"), paths[0])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	block, rest := pem.Decode(data)
	require.NotNil(t, block)
	assert.Empty(t, rest)
	assert.Equal(t, "CERTIFICATE", block.Type)

	parsed, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "controller.example.com", parsed.Subject.CommonName)

	info, err := os.Stat(paths[0])
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFindKeytoolPrefersBundledJRE(t *testing.T) {
	t.Parallel()

	installDir := t.TempDir()
	bundled := filepath.Join(installDir, "jre", "bin", "keytool")
	require.NoError(t, os.MkdirAll(filepath.Dir(bundled), 0o755))
	require.NoError(t, os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0o755))

	kt, err := FindKeytool(installDir)
	require.NoError(t, err)
	assert.Equal(t, bundled, kt.Bin)
}

func TestFindKeytoolJavaDirFallback(t *testing.T) {
	t.Parallel()

	installDir := t.TempDir()
	candidate := filepath.Join(installDir, "java", "bin", "keytool")
	require.NoError(t, os.MkdirAll(filepath.Dir(candidate), 0o755))
	require.NoError(t, os.WriteFile(candidate, []byte("#!/bin/sh\n"), 0o755))

	kt, err := FindKeytool(installDir)
	require.NoError(t, err)
	assert.Equal(t, candidate, kt.Bin)
}

func TestHasAliasMissingStore(t *testing.T) {
	t.Parallel()

	kt := &Keytool{Bin: filepath.Join(t.TempDir(), "no-such-keytool")}
	present, err := kt.HasAlias(context.Background(),
		filepath.Join(t.TempDir(), "absent.jks"), DefaultStorePass, "controller-0")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestResolveInstallDirExplicit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resolved, err := resolveInstallDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, resolved)

	_, err = resolveInstallDir(context.Background(), filepath.Join(dir, "absent"))
	assert.Error(t, err)

	file := filepath.Join(dir, "plainfile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = resolveInstallDir(context.Background(), file)
	assert.Error(t, err)
}

func TestResolveEndpointFromConfig(t *testing.T) {
	t.Parallel()

	installDir := t.TempDir()
	ci := agentconfig.Default()
	ci.ControllerHost = "appd.example.com"
	ci.ControllerPort = "8181"
	confPath := filepath.Join(installDir, filepath.FromSlash(shared.AgentControllerInfo))
	require.NoError(t, ci.Save(confPath))

	host, port, err := resolveEndpoint(context.Background(), installDir, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "appd.example.com", host)
	assert.Equal(t, 8181, port)
}

func TestResolveEndpointFlagsWin(t *testing.T) {
	t.Parallel()

	installDir := t.TempDir()
	ci := agentconfig.Default()
	ci.ControllerHost = "appd.example.com"
	ci.ControllerPort = "8181"
	require.NoError(t, ci.Save(filepath.Join(installDir, filepath.FromSlash(shared.AgentControllerInfo))))

	host, port, err := resolveEndpoint(context.Background(), installDir, "other.example.com", 9443)
	require.NoError(t, err)
	assert.Equal(t, "other.example.com", host)
	assert.Equal(t, 9443, port)
}

func TestResolveEndpointDefaultPort(t *testing.T) {
	t.Parallel()

	host, port, err := resolveEndpoint(context.Background(), t.TempDir(), "saas.example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, "saas.example.com", host)
	assert.Equal(t, DefaultPort, port)
}

func TestResolveEndpointNoHostAnywhere(t *testing.T) {
	t.Parallel()

	_, _, err := resolveEndpoint(context.Background(), t.TempDir(), "", 0)
	assert.Error(t, err)
}

func TestDiscoverInstallDirNoAgent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := DiscoverInstallDir(ctx)
	assert.Error(t, err)
}

// seedTruststoreInstall lays out the pieces of an installation Run
// touches: the startup script and (optionally) nothing else, since the
// keystore is created on first import.
func seedTruststoreInstall(t *testing.T) string {
	t.Helper()
	installDir := t.TempDir()
	script := filepath.Join(installDir, "bin", "machine-agent")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o755))
	require.NoError(t, os.WriteFile(script, []byte(testStartScript), 0o755))
	return installDir
}

func TestRunImportsChainAndConverges(t *testing.T) {
	t.Parallel()
	requireTool(t, "keytool")

	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	installDir := seedTruststoreInstall(t)
	fake := systemctl.NewFake()

	report, err := Run(testRC(), fake, Options{
		Host:       host,
		Port:       port,
		InstallDir: installDir,
		NoRestart:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"controller-0"}, report.Imported)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.BackupPath)
	assert.True(t, report.OptionsPatched)
	assert.False(t, report.Restarted)

	storePath := filepath.Join(installDir, filepath.FromSlash(shared.AgentTruststore))
	assert.Equal(t, storePath, report.TruststorePath)
	_, err = os.Stat(storePath)
	require.NoError(t, err)

	script, err := os.ReadFile(filepath.Join(installDir, "bin", "machine-agent"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "-Djavax.net.ssl.trustStore="+storePath)
	assert.Contains(t, string(script), "-Djavax.net.ssl.trustStorePassword="+DefaultStorePass)

	// No restart was requested, so the service manager stays untouched.
	assert.Empty(t, fake.Calls)

	// A second run finds everything in place and changes nothing except
	// backing up the now-existing keystore.
	report2, err := Run(testRC(), fake, Options{
		Host:       host,
		Port:       port,
		InstallDir: installDir,
		NoRestart:  true,
	})
	require.NoError(t, err)
	assert.Empty(t, report2.Imported)
	assert.Equal(t, []string{"controller-0"}, report2.Skipped)
	assert.False(t, report2.OptionsPatched)
	require.NotEmpty(t, report2.BackupPath)
	_, err = os.Stat(report2.BackupPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(report2.BackupPath), "cacerts.jks.backup."))
}

func TestRunRestartsService(t *testing.T) {
	t.Parallel()
	requireTool(t, "keytool")

	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	installDir := seedTruststoreInstall(t)
	fake := systemctl.NewFake()
	fake.Register(shared.AgentUnitFile, "active")

	report, err := Run(testRC(), fake, Options{
		Host:        host,
		Port:        port,
		InstallDir:  installDir,
		ConfirmWait: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, report.Restarted)
	assert.Contains(t, fake.Calls, "restart "+shared.AgentUnitFile)
}

func TestRunWarnsWhenServiceNotRegistered(t *testing.T) {
	t.Parallel()
	requireTool(t, "keytool")

	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	installDir := seedTruststoreInstall(t)
	fake := systemctl.NewFake()

	report, err := Run(testRC(), fake, Options{
		Host:        host,
		Port:        port,
		InstallDir:  installDir,
		ConfirmWait: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.False(t, report.Restarted)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "not registered")
	assert.Empty(t, fake.Calls)
}
