package transport

import (
	"crypto/tls"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// FetchServerCertificate connects to server (a "host" or "host:port"
// string) and writes its leaf TLS certificate as PEM to destPath. The
// saved certificate pins subsequent HTTPS exchanges. Returns false
// without error when the server does not speak TLS, which downgrades
// the client to plain HTTP.
func FetchServerCertificate(server, destPath string) (bool, error) {
	host, port, err := net.SplitHostPort(server)
	if err != nil {
		host = server
		port = "443"
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, port), &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // pinning, not verifying
		ServerName:         host,
	})
	if err != nil {
		return false, nil
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return false, errors.Wrapf(err, "creating directory for '%s'", destPath)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return false, errors.Wrapf(err, "creating '%s'", destPath)
	}
	defer out.Close()

	for _, cert := range certs {
		block := &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}
		if err := pem.Encode(out, block); err != nil {
			return false, errors.Wrap(err, "encoding certificate")
		}
	}

	return true, nil
}
