package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyPair generates an RSA keypair and writes both halves as PEM
// files, returning their paths.
func writeKeyPair(t *testing.T, dir, name string) (privPath, pubPath string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPath = filepath.Join(dir, name+".pri")
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath = filepath.Join(dir, name+".pub")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))

	return privPath, pubPath
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	priv, pub := writeKeyPair(t, dir, "client")

	token, err := Sign(map[string]interface{}{"id": 42}, priv)
	require.NoError(t, err)

	payload, err := Verify(token, pub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42}`, string(payload))
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	dir := t.TempDir()
	priv, _ := writeKeyPair(t, dir, "client")
	_, otherPub := writeKeyPair(t, dir, "other")

	token, err := Sign(map[string]string{"a": "b"}, priv)
	require.NoError(t, err)

	_, err = Verify(token, otherPub)
	assert.Error(t, err)
}

func TestEncryptAndDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	priv, pub := writeKeyPair(t, dir, "server")

	token, err := Encrypt(map[string]string{"secret": "value"}, pub)
	require.NoError(t, err)

	payload, err := Decrypt(token, priv)
	require.NoError(t, err)
	assert.JSONEq(t, `{"secret":"value"}`, string(payload))
}

func TestWrapAndUnwrapRoundTrip(t *testing.T) {
	dir := t.TempDir()

	// the client signs with its own key, the server decrypts with
	// its own key; both sides hold the other's public half.
	clientPriv, clientPub := writeKeyPair(t, dir, "client")
	serverPriv, serverPub := writeKeyPair(t, dir, "server")

	token, err := Wrap(map[string]interface{}{"uuid": "ABC", "id": 7}, clientPriv, serverPub)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, Unwrap(token, serverPriv, clientPub, &out))
	assert.Equal(t, "ABC", out["uuid"])
	assert.EqualValues(t, 7, out["id"])
}

func TestUnwrapFailsOnTamperedSignature(t *testing.T) {
	dir := t.TempDir()
	clientPriv, _ := writeKeyPair(t, dir, "client")
	serverPriv, serverPub := writeKeyPair(t, dir, "server")
	_, wrongPub := writeKeyPair(t, dir, "wrong")

	token, err := Wrap(map[string]string{"k": "v"}, clientPriv, serverPub)
	require.NoError(t, err)

	var out map[string]string
	assert.Error(t, Unwrap(token, serverPriv, wrongPub, &out))
}

func TestLoadPrivateKeyRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pri")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := LoadPrivateKey(path)
	assert.Error(t, err)
}
