/*
Package settings resolves the filesystem layout of the migasfree
client for the current platform. Every path is computed once at
package load; the configuration file location honors the
MIGASFREE_CONF environment variable.
*/
package settings

import (
	"os"
	"path/filepath"
	"runtime"
)

// Settings holds the resolved path set for one platform.
type Settings struct {
	AppDataPath  string
	KeysPath     string
	MTLSPath     string
	DevicesPath  string
	TmpPath      string
	ConfFile     string
	LogFile      string
	SoftwareFile string
	PreSyncPath  string
	PostSyncPath string
	CertFile     string
	MTLSCertFile string
	MTLSKeyFile  string
}

// MTLSDefaultValidityDays is the certificate validity requested from
// the server when fetching an mTLS certificate automatically.
const MTLSDefaultValidityDays = 365

// New resolves the path set for the current platform.
func New() *Settings {
	if runtime.GOOS == "windows" {
		return newWindows()
	}

	return newLinux()
}

func newLinux() *Settings {
	s := &Settings{
		AppDataPath:  "/usr/share/migasfree-client",
		KeysPath:     "/var/migasfree-client/keys",
		MTLSPath:     "/var/migasfree-client/mtls",
		DevicesPath:  "/var/migasfree-client/devices",
		TmpPath:      "/tmp/migasfree-client",
		LogFile:      "/var/tmp/migasfree.log",
		SoftwareFile: "/var/tmp/installed_software.txt",
	}
	s.ConfFile = confFile(filepath.Join("/etc", "migasfree.conf"))
	s.finish()

	return s
}

func newWindows() *Settings {
	programData := os.Getenv("PROGRAMDATA")
	if programData == "" {
		programData = `C:\ProgramData`
	}
	winDir := os.Getenv("WINDIR")
	if winDir == "" {
		winDir = `C:\Windows`
	}

	appData := filepath.Join(programData, "migasfree-client")
	tmp := filepath.Join(winDir, "temp")

	s := &Settings{
		AppDataPath:  appData,
		KeysPath:     filepath.Join(appData, "keys"),
		MTLSPath:     filepath.Join(appData, "mtls"),
		DevicesPath:  filepath.Join(appData, "devices"),
		TmpPath:      tmp,
		LogFile:      filepath.Join(tmp, "logs", "migasfree.log"),
		SoftwareFile: filepath.Join(appData, "installed_software.txt"),
	}
	s.ConfFile = confFile(filepath.Join(appData, "migasfree.conf"))
	s.finish()

	return s
}

func (s *Settings) finish() {
	s.PreSyncPath = filepath.Join(s.AppDataPath, "pre-sync.d")
	s.PostSyncPath = filepath.Join(s.AppDataPath, "post-sync.d")
	s.CertFile = filepath.Join(s.TmpPath, "cert.pem")
	s.MTLSCertFile = filepath.Join(s.MTLSPath, "client.crt")
	s.MTLSKeyFile = filepath.Join(s.MTLSPath, "client.key")
}

func confFile(fallback string) string {
	if path := os.Getenv("MIGASFREE_CONF"); path != "" {
		return path
	}

	return fallback
}

// LockFile returns the pid file path guarding against concurrent runs
// of the named command.
func (s *Settings) LockFile(cmd string) string {
	return filepath.Join(s.TmpPath, cmd+".pid")
}

// ErrorFile returns the path accumulating execution errors for later
// upload to the server.
func (s *Settings) ErrorFile(cmd string) string {
	return filepath.Join(s.TmpPath, cmd+".err")
}
