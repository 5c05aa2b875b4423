// pkg/truststore/chain.go

package truststore

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	cerr "github.com/cockroachdb/errors"
)

// FetchChain connects to host:port and returns the certificate chain the
// server presents, leaf first. Verification is deliberately off: the
// whole point is to capture what the controller serves so it can be
// trusted afterwards.
func FetchChain(ctx context.Context, host string, port int) ([]*x509.Certificate, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         host,
		},
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, cerr.Wrapf(err, "connect to %s", addr)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, cerr.Newf("unexpected connection type %T", conn)
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, cerr.Newf("%s presented no certificates", addr)
	}
	out := make([]*x509.Certificate, len(certs))
	copy(out, certs)
	return out, nil
}

// WritePEMs writes one PEM file per certificate into dir, in chain
// order, and returns the paths.
func WritePEMs(dir string, certs []*x509.Certificate) ([]string, error) {
	paths := make([]string, 0, len(certs))
	for i, cert := range certs {
		path := filepath.Join(dir, fmt.Sprintf("cert-%d.pem", i))
		data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, cerr.Wrapf(err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
