package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migasfree/migasfree-client/secure"
)

type testKeys struct {
	clientPriv string
	clientPub  string
	serverPriv string
	serverPub  string
}

func generateKeys(t *testing.T) testKeys {
	t.Helper()

	dir := t.TempDir()
	write := func(name string) (string, string) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		privPath := filepath.Join(dir, name+".pri")
		require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}), 0o600))

		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		require.NoError(t, err)
		pubPath := filepath.Join(dir, name+".pub")
		require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: pubDER,
		}), 0o644))

		return privPath, pubPath
	}

	keys := testKeys{}
	keys.clientPriv, keys.clientPub = write("client")
	keys.serverPriv, keys.serverPub = write("server")

	return keys
}

func newTestRequest(t *testing.T, server *httptest.Server, keys testKeys) *Request {
	t.Helper()

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)

	r, err := New(Options{
		Server: parsed.Host,
		Keys:   Keys{Private: keys.clientPriv, Public: keys.serverPub},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r
}

func TestPostPublicExchangesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		assert.Equal(t, "acme", in["project"])

		_ = json.NewEncoder(w).Encode(map[string]string{"version": "5.0"})
	}))
	defer server.Close()

	r := newTestRequest(t, server, generateKeys(t))

	var out map[string]string
	require.NoError(t, r.PostPublic(context.Background(), "/test/", map[string]string{"project": "acme"}, &out))
	assert.Equal(t, "5.0", out["version"])
}

func TestPostPublicSurfacesServerErrorObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": CodeComputerNotFound, "info": "nope"},
		})
	}))
	defer server.Close()

	r := newTestRequest(t, server, generateKeys(t))

	err := r.PostPublic(context.Background(), "/test/", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestPostPublicReportsHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer server.Close()

	r := newTestRequest(t, server, generateKeys(t))

	err := r.PostPublic(context.Background(), "/test/", nil, nil)
	require.Error(t, err)

	se, ok := err.(*ServerError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestPostWrapsAndUnwrapsSafePayloads(t *testing.T) {
	keys := generateKeys(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseMultipartForm(1<<20))

		file, _, err := req.FormFile("message")
		require.NoError(t, err)
		token, err := io.ReadAll(file)
		require.NoError(t, err)

		var in map[string]interface{}
		require.NoError(t, secure.Unwrap(string(token), keys.serverPriv, keys.clientPub, &in))
		assert.Equal(t, "ABC-UUID", in["uuid"])

		out, err := secure.Wrap(map[string]interface{}{"id": 42}, keys.serverPriv, keys.clientPub)
		require.NoError(t, err)
		_, _ = io.WriteString(w, out)
	}))
	defer server.Close()

	r := newTestRequest(t, server, keys)

	var out map[string]int
	require.NoError(t, r.Post(context.Background(), "/safe/", map[string]string{"uuid": "ABC-UUID"}, &out))
	assert.Equal(t, 42, out["id"])
}

func TestUploadAttachesPackageParts(t *testing.T) {
	keys := generateKeys(t)

	pkg := filepath.Join(t.TempDir(), "tool_1.0_amd64.deb")
	require.NoError(t, os.WriteFile(pkg, []byte("!<arch>\ndebian-binary"), 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseMultipartForm(1<<20))

		file, header, err := req.FormFile("package")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "tool_1.0_amd64.deb", header.Filename)

		out, err := secure.Wrap(map[string]string{"status": "ok"}, keys.serverPriv, keys.clientPub)
		require.NoError(t, err)
		_, _ = io.WriteString(w, out)
	}))
	defer server.Close()

	r := newTestRequest(t, server, keys)

	require.NoError(t, r.Upload(context.Background(), "/safe/packages/", map[string]string{"project": "acme"}, []string{pkg}, nil))
}

func TestURLBuilding(t *testing.T) {
	r, err := New(Options{Server: "migasfree.example.org"})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "http", r.Protocol())
	assert.Equal(t, "http://migasfree.example.org/api/v1/public/server/info/", r.URL(EndpointServerInfo))
}

func TestWithKeysTransfersPoolOwnership(t *testing.T) {
	r, err := New(Options{Server: "migasfree.example.org"})
	require.NoError(t, err)
	require.True(t, r.pooled)

	copied := r.WithKeys(Keys{Private: "packager.pri", Public: "server.pub"})

	assert.Same(t, r.client, copied.client)
	assert.Equal(t, "packager.pri", copied.opts.Keys.Private)
	assert.True(t, copied.pooled)
	assert.False(t, r.pooled)

	// only the copy returns the pooled client
	r.Close()
	require.NotNil(t, copied.client)
	copied.Close()
	assert.Nil(t, copied.client)
}

func TestErrorInfoTable(t *testing.T) {
	assert.Equal(t, "signature is not valid", ErrorInfo(CodeSignNotOK))
	assert.Empty(t, ErrorInfo(9999))
}
