package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	file    string
	require *require.Assertions
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupSuite() {
	s.require = s.Require()
}

func (s *ConfigSuite) SetupTest() {
	s.file = filepath.Join(s.T().TempDir(), "migasfree.conf")
	content := `[client]
server = migasfree.example.org:8080
project = acme-stable
auto_update_packages = off
debug = yes

[packager]
user = packager
store = org
`
	s.require.NoError(os.WriteFile(s.file, []byte(content), 0o644))
}

func (s *ConfigSuite) TestFileValuesAreRead() {
	conf, err := Read(s.file)
	s.require.NoError(err)

	s.Equal(s.file, conf.FileName)
	s.Equal("migasfree.example.org:8080", conf.Client.Server)
	s.Equal("acme-stable", conf.Client.Project)
	s.False(conf.Client.AutoUpdatePackages)
	s.True(conf.Client.ManageDevices)
	s.True(conf.Client.Debug)
	s.Equal("packager", conf.Packager.User)
	s.Equal("org", conf.Packager.Store)
	s.Empty(conf.Packager.Project)
}

func (s *ConfigSuite) TestMissingFileFallsBackToDefaults() {
	conf, err := Read(filepath.Join(s.T().TempDir(), "does-not-exist.conf"))
	s.require.NoError(err)

	s.Empty(conf.FileName)
	s.Equal("localhost", conf.Client.Server)
	s.True(conf.Client.AutoUpdatePackages)
	s.True(conf.Client.ManageDevices)
	s.NotEmpty(conf.Client.Project)
	s.NotEmpty(conf.Client.ComputerName)
}

func (s *ConfigSuite) TestProjectDefaultsToDistroSlug() {
	conf, err := Read(filepath.Join(s.T().TempDir(), "does-not-exist.conf"))
	s.require.NoError(err)

	s.Equal(distroProject(), conf.Client.Project)
	s.Equal(slugify(conf.Client.Project), conf.Client.Project)
}

func (s *ConfigSuite) TestComputerNameDefaultsToHostname() {
	conf, err := Read(filepath.Join(s.T().TempDir(), "does-not-exist.conf"))
	s.require.NoError(err)

	hostname, err := os.Hostname()
	s.require.NoError(err)
	s.Equal(strings.SplitN(hostname, ".", 2)[0], conf.Client.ComputerName)
}

func (s *ConfigSuite) TestExplicitProjectWinsOverDefault() {
	conf, err := Read(s.file)
	s.require.NoError(err)

	s.Equal("acme-stable", conf.Client.Project)
}

func (s *ConfigSuite) TestEnvironmentOverridesFile() {
	s.T().Setenv("MIGASFREE_CLIENT_SERVER", "other.example.org")
	s.T().Setenv("MIGASFREE_CLIENT_AUTO_UPDATE_PACKAGES", "1")
	s.T().Setenv("MIGASFREE_PACKAGER_PASSWORD", "hunter2")

	conf, err := Read(s.file)
	s.require.NoError(err)

	s.Equal("other.example.org", conf.Client.Server)
	s.True(conf.Client.AutoUpdatePackages)
	s.Equal("hunter2", conf.Packager.Password)
}

func (s *ConfigSuite) TestMalformedFileReturnsError() {
	s.require.NoError(os.WriteFile(s.file, []byte("[client\nserver"), 0o644))

	conf, err := Read(s.file)
	s.Error(err)
	s.Nil(conf)
}

func TestCastToBool(t *testing.T) {
	for _, value := range []string{"true", "ON", "Yes", "y", "1"} {
		require.True(t, castToBool(value, false), value)
	}
	for _, value := range []string{"false", "OFF", "No", "n", "0"} {
		require.False(t, castToBool(value, true), value)
	}

	require.True(t, castToBool("garbage", true))
	require.False(t, castToBool("garbage", false))
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "debian-gnu-linux-12", slugify("Debian GNU/Linux 12"))
	require.Equal(t, "ubuntu-22-04", slugify("Ubuntu-22.04"))
	require.Equal(t, "windows-10-0-19045", slugify("Windows-10.0.19045"))
	require.Equal(t, "alpine", slugify("  Alpine!  "))
	require.Empty(t, slugify(""))
}
