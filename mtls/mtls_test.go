package mtls

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mholt/archiver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/migasfree/migasfree-client/settings"
)

func testSettings(t *testing.T) *settings.Settings {
	t.Helper()

	dir := t.TempDir()

	return &settings.Settings{
		MTLSPath:     filepath.Join(dir, "mtls"),
		MTLSCertFile: filepath.Join(dir, "mtls", "client.crt"),
		MTLSKeyFile:  filepath.Join(dir, "mtls", "client.key"),
	}
}

func makeBundle(t *testing.T, password string) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-computer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pfx, err := pkcs12.Modern.Encode(key, cert, nil, password)
	require.NoError(t, err)

	dir := t.TempDir()
	p12Path := filepath.Join(dir, "computer.p12")
	require.NoError(t, os.WriteFile(p12Path, pfx, 0o600))

	tarPath := filepath.Join(dir, "bundle.tar")
	require.NoError(t, archiver.Archive([]string{p12Path}, tarPath))

	return tarPath
}

func TestImportCertificate(t *testing.T) {
	st := testSettings(t)
	tarPath := makeBundle(t, "s3cret")

	require.NoError(t, ImportCertificate(tarPath, "s3cret", st))

	certPEM, err := os.ReadFile(st.MTLSCertFile)
	require.NoError(t, err)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE", block.Type)

	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "test-computer", cert.Subject.CommonName)

	keyPEM, err := os.ReadFile(st.MTLSKeyFile)
	require.NoError(t, err)
	block, _ = pem.Decode(keyPEM)
	require.NotNil(t, block)
	assert.Equal(t, "PRIVATE KEY", block.Type)

	_, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	assert.NoError(t, err)

	info, err := os.Stat(st.MTLSKeyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.True(t, HasCertificate(st))

	certPath, keyPath, ok := Credentials(st)
	assert.True(t, ok)
	assert.Equal(t, st.MTLSCertFile, certPath)
	assert.Equal(t, st.MTLSKeyFile, keyPath)
}

func TestImportCertificateWrongPassword(t *testing.T) {
	st := testSettings(t)
	tarPath := makeBundle(t, "right")

	assert.Error(t, ImportCertificate(tarPath, "wrong", st))
}

func TestImportCertificateMissingFile(t *testing.T) {
	st := testSettings(t)

	assert.Error(t, ImportCertificate(filepath.Join(t.TempDir(), "nope.tar"), "", st))
}

func TestImportCertificateNoP12InArchive(t *testing.T) {
	st := testSettings(t)
	dir := t.TempDir()

	stray := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(stray, []byte("nothing here"), 0o644))

	tarPath := filepath.Join(dir, "bundle.tar")
	require.NoError(t, archiver.Archive([]string{stray}, tarPath))

	err := ImportCertificate(tarPath, "", st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .p12 file")
}

func TestHasCertificateMissingPieces(t *testing.T) {
	st := testSettings(t)
	assert.False(t, HasCertificate(st))

	require.NoError(t, os.MkdirAll(st.MTLSPath, 0o755))
	require.NoError(t, os.WriteFile(st.MTLSCertFile, []byte("cert"), 0o644))
	assert.False(t, HasCertificate(st), "key still missing")

	_, _, ok := Credentials(st)
	assert.False(t, ok)
}

func TestRandomPasswordIsUnique(t *testing.T) {
	a, err := randomPassword()
	require.NoError(t, err)
	b, err := randomPassword()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
