package client

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migasfree/migasfree-client/config"
	"github.com/migasfree/migasfree-client/settings"
)

func TestCompareLists(t *testing.T) {
	before := []string{"bash_5.1_amd64.deb", "vim_8.2_amd64.deb", "zlib_1.2_amd64.deb"}
	after := []string{"bash_5.1_amd64.deb", "curl_7.8_amd64.deb", "zlib_1.2_amd64.deb"}

	assert.Equal(t, []string{
		"+curl_7.8_amd64.deb",
		"-vim_8.2_amd64.deb",
	}, CompareLists(before, after))

	assert.Empty(t, CompareLists(before, before))
	assert.Empty(t, CompareLists(nil, nil))
}

func TestHistoryMerge(t *testing.T) {
	h := History{}
	assert.True(t, h.empty())

	h.merge([]string{"+new_1.0_amd64.deb", "-old_0.9_amd64.deb", "context line"})
	assert.Equal(t, []string{"+new_1.0_amd64.deb"}, h.Installed)
	assert.Equal(t, []string{"-old_0.9_amd64.deb"}, h.Uninstalled)
	assert.False(t, h.empty())
}

func TestSoftwareHistorySnapshotRoundTrip(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "installed_software.txt")

	// no snapshot yet: nothing to report
	h := softwareHistory(snapshot, []string{"a_1_x.deb"})
	assert.True(t, h.empty())

	require.NoError(t, writeSnapshot(snapshot, []string{"a_1_x.deb", "b_1_x.deb"}))

	h = softwareHistory(snapshot, []string{"a_1_x.deb", "c_1_x.deb"})
	assert.Equal(t, []string{"+c_1_x.deb"}, h.Installed)
	assert.Equal(t, []string{"-b_1_x.deb"}, h.Uninstalled)
}

func TestAcquireLock(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "migasfree.pid")

	require.NoError(t, AcquireLock(lock))

	content, err := os.ReadFile(lock)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))

	// our own pid is alive, so a second acquire is refused
	err = AcquireLock(lock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another instance")

	ReleaseLock(lock)
	assert.NoError(t, AcquireLock(lock))

	ReleaseLock(lock)
}

func TestAcquireLockReplacesStaleFile(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "migasfree.pid")

	// pid unlikely to exist
	require.NoError(t, os.WriteFile(lock, []byte("4194000"), 0o644))
	assert.NoError(t, AcquireLock(lock))

	// garbage content is treated as stale too
	require.NoError(t, os.WriteFile(lock, []byte("not-a-pid"), 0o644))
	assert.NoError(t, AcquireLock(lock))
}

func TestErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migasfree.err")
	log := newErrorLog(path)

	_, ok := log.Pending()
	assert.False(t, ok)

	log.Write("first failure")
	log.Write("second failure")

	content, ok := log.Pending()
	require.True(t, ok)
	assert.Contains(t, content, "first failure")
	assert.Contains(t, content, "second failure")
	assert.Equal(t, 2, strings.Count(content, strings.Repeat("-", 20)))

	log.Clear()
	_, ok = log.Pending()
	assert.False(t, ok)
}

func TestSniffPackageType(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, content []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o644))

		return path
	}

	deb := write("pkg.deb", append([]byte("!<arch>\n"), []byte("debian-binary")...))
	assert.Equal(t, "application/vnd.debian.binary-package", sniffPackageType(deb))

	rpm := write("pkg.rpm", []byte{0xed, 0xab, 0xee, 0xdb, 0x03, 0x00, 0x00, 0x00})
	assert.Equal(t, "application/x-rpm", sniffPackageType(rpm))

	zst := write("pkg.pkg.tar.zst", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00, 0x00})
	assert.Equal(t, "application/x-zstd-compressed-alpm-package", sniffPackageType(zst))

	txt := write("notes.txt", []byte("just some text"))
	assert.Empty(t, sniffPackageType(txt))

	assert.Empty(t, sniffPackageType(filepath.Join(dir, "missing.deb")))
}

func TestSanitizeTags(t *testing.T) {
	tags, err := SanitizeTags([]string{`"CID-001"`, "LOC-madrid", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"CID-001", "LOC-madrid"}, tags)

	_, err = SanitizeTags([]string{"noformat"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix-value")

	tags, err = SanitizeTags(nil)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestRenderLabel(t *testing.T) {
	c := &Client{
		Conf: &config.Config{
			Client: config.Client{Server: "migasfree.example.com"},
		},
		Settings: &settings.Settings{TmpPath: t.TempDir()},
	}

	path, err := c.RenderLabel(Label{
		Name:     "pc-042",
		UUID:     "03000200-0400-0500-0006-000700080009",
		Search:   "pc-042 (ACME)",
		Helpdesk: "ext. 1234",
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(content)

	assert.Contains(t, html, "pc-042 (ACME)")
	assert.Contains(t, html, "03000200-0400-0500-0006-000700080009")
	assert.Contains(t, html, "migasfree.example.com")
	assert.Contains(t, html, "ext. 1234")
}

func TestPlatformName(t *testing.T) {
	assert.NotEmpty(t, platformName())
}

func TestRelease(t *testing.T) {
	assert.True(t, strings.HasPrefix(Release(), CommandName+" "))
}
