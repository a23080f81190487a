// Package mtls manages the client's mutual-TLS identity: importing
// certificate bundles handed out by the server and fetching fresh ones
// when the server supports issuing them.
package mtls

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/migasfree/migasfree-client/settings"
	"github.com/migasfree/migasfree-client/transport"
)

// ErrNotAvailable reports that the server does not issue mTLS
// certificates, so callers can skip the feature silently.
var ErrNotAvailable = errors.New("server does not issue mTLS certificates")

// ImportCertificate extracts the .p12 bundle from tarFile and installs
// the certificate and private key in PEM form under the mTLS path.
func ImportCertificate(tarFile, password string, st *settings.Settings) error {
	if _, err := os.Stat(tarFile); err != nil {
		return errors.Wrapf(err, "certificate file not found: %s", tarFile)
	}

	if err := os.MkdirAll(st.MTLSPath, 0o755); err != nil {
		return errors.Wrapf(err, "creating certificate directory %s", st.MTLSPath)
	}

	tmpDir, err := os.MkdirTemp("", "migasfree-mtls-")
	if err != nil {
		return errors.Wrap(err, "creating extraction directory")
	}
	defer os.RemoveAll(tmpDir)

	if err := archiver.Unarchive(tarFile, tmpDir); err != nil {
		return errors.Wrapf(err, "extracting %s", tarFile)
	}

	p12File, err := findP12(tmpDir)
	if err != nil {
		return err
	}

	grip.Debug(message.Fields{"message": "found p12 bundle", "file": p12File})

	return extractFromP12(p12File, password, st)
}

func findP12(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", dir)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".p12") {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", errors.New("no .p12 file found in archive")
}

func extractFromP12(p12File, password string, st *settings.Settings) error {
	data, err := os.ReadFile(p12File)
	if err != nil {
		return errors.Wrapf(err, "reading %s", p12File)
	}

	key, cert, _, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return errors.Wrap(err, "decoding p12 bundle")
	}

	if cert == nil {
		return errors.New("no certificate found in p12 bundle")
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	if err := os.WriteFile(st.MTLSCertFile, certPEM, 0o644); err != nil {
		return errors.Wrapf(err, "writing certificate %s", st.MTLSCertFile)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return errors.Wrap(err, "encoding private key")
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(st.MTLSKeyFile, keyPEM, 0o600); err != nil {
		return errors.Wrapf(err, "writing private key %s", st.MTLSKeyFile)
	}

	grip.Info(message.Fields{
		"message":     "mTLS certificate imported",
		"certificate": st.MTLSCertFile,
		"key":         st.MTLSKeyFile,
	})

	return nil
}

// HasCertificate reports whether both the certificate and the key are
// installed.
func HasCertificate(st *settings.Settings) bool {
	_, certErr := os.Stat(st.MTLSCertFile)
	_, keyErr := os.Stat(st.MTLSKeyFile)

	if certErr == nil && keyErr != nil {
		grip.Warning(message.Fields{
			"message": "mTLS certificate exists but key is missing",
			"key":     st.MTLSKeyFile,
		})
	} else if keyErr == nil && certErr != nil {
		grip.Warning(message.Fields{
			"message":     "mTLS key exists but certificate is missing",
			"certificate": st.MTLSCertFile,
		})
	}

	return certErr == nil && keyErr == nil
}

// Credentials returns the certificate and key paths when both exist.
func Credentials(st *settings.Settings) (certPath, keyPath string, ok bool) {
	if !HasCertificate(st) {
		return "", "", false
	}

	return st.MTLSCertFile, st.MTLSKeyFile, true
}

type tokenRequest struct {
	UUID         string `json:"uuid"`
	ProjectName  string `json:"project_name"`
	ValidityDays int    `json:"validity_days"`
}

type tokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// RequestToken asks the server for a one-shot certificate token.
// Servers without the issuing endpoint yield ErrNotAvailable.
func RequestToken(ctx context.Context, req *transport.Request, hwUUID, project string) (string, error) {
	payload := tokenRequest{
		UUID:         hwUUID,
		ProjectName:  project,
		ValidityDays: settings.MTLSDefaultValidityDays,
	}

	var resp tokenResponse
	if err := req.PostPublic(ctx, transport.EndpointMTLSTokens, payload, &resp); err != nil {
		if transport.IsNotFound(err) {
			return "", ErrNotAvailable
		}

		return "", errors.Wrap(err, "requesting mTLS token")
	}

	if resp.Data.Token == "" {
		return "", errors.New("no token in server response")
	}

	return resp.Data.Token, nil
}

type certificateRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DownloadCertificate trades token for a certificate bundle, written
// to destPath. It returns the generated bundle password.
func DownloadCertificate(ctx context.Context, req *transport.Request, token, destPath string) (string, error) {
	password, err := randomPassword()
	if err != nil {
		return "", err
	}

	payload := certificateRequest{Token: token, Password: password}

	content, err := req.DownloadPublic(ctx, transport.EndpointMTLSCertificates, payload)
	if err != nil {
		return "", errors.Wrap(err, "downloading mTLS certificate")
	}

	if len(content) == 0 {
		return "", errors.New("empty certificate bundle in response")
	}

	if err := os.WriteFile(destPath, content, 0o600); err != nil {
		return "", errors.Wrapf(err, "writing certificate bundle %s", destPath)
	}

	return password, nil
}

// FetchAndInstall runs the full issuing workflow: request a token,
// download the bundle, and import it.
func FetchAndInstall(ctx context.Context, req *transport.Request, hwUUID, project string, st *settings.Settings) error {
	token, err := RequestToken(ctx, req, hwUUID, project)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "migasfree-cert-*.tar")
	if err != nil {
		return errors.Wrap(err, "creating temporary bundle file")
	}

	tarPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tarPath)

	password, err := DownloadCertificate(ctx, req, token, tarPath)
	if err != nil {
		return err
	}

	return ImportCertificate(tarPath, password, st)
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating bundle password")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
