package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfFileHonorsEnvironment(t *testing.T) {
	t.Setenv("MIGASFREE_CONF", "/opt/other/migasfree.conf")
	s := New()
	assert.Equal(t, "/opt/other/migasfree.conf", s.ConfFile)
}

func TestDerivedPathsHangOffBaseDirectories(t *testing.T) {
	t.Setenv("MIGASFREE_CONF", "")
	s := New()
	require.NotEmpty(t, s.TmpPath)

	assert.Equal(t, filepath.Join(s.TmpPath, "cert.pem"), s.CertFile)
	assert.Equal(t, filepath.Join(s.AppDataPath, "pre-sync.d"), s.PreSyncPath)
	assert.Equal(t, filepath.Join(s.AppDataPath, "post-sync.d"), s.PostSyncPath)
	assert.Equal(t, filepath.Join(s.MTLSPath, "client.crt"), s.MTLSCertFile)
	assert.Equal(t, filepath.Join(s.MTLSPath, "client.key"), s.MTLSKeyFile)
}

func TestLockAndErrorFilesAreNamedForTheCommand(t *testing.T) {
	s := New()
	assert.Equal(t, filepath.Join(s.TmpPath, "migasfree.pid"), s.LockFile("migasfree"))
	assert.Equal(t, filepath.Join(s.TmpPath, "migasfree.err"), s.ErrorFile("migasfree"))
}
