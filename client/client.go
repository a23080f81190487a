/*
Package client implements the migasfree client proper: registration and
key management, the synchronization transaction, package operations,
tags, labels, and packager uploads. It ties together the configuration,
transport, secure envelope, and package-management layers.
*/
package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blang/semver"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"

	migasfree "github.com/migasfree/migasfree-client"
	"github.com/migasfree/migasfree-client/config"
	"github.com/migasfree/migasfree-client/hardware"
	"github.com/migasfree/migasfree-client/mtls"
	"github.com/migasfree/migasfree-client/pms"
	"github.com/migasfree/migasfree-client/settings"
	"github.com/migasfree/migasfree-client/transport"
)

const (
	// CommandName is the binary name used for lock and error files.
	CommandName = "migasfree"

	publicKeyName    = "server.pub"
	reposKeyName     = "repositories.pub"
	packagerKeyName  = "packager.pri"
	autoRegisterUser = ""
	autoRegisterPwd  = ""
)

// Options adjusts client construction.
type Options struct {
	Debug bool
	Quiet bool
}

// Client carries everything one command invocation needs.
type Client struct {
	Conf     *config.Config
	Settings *settings.Settings
	PMS      pms.Manager
	Request  *transport.Request

	debug bool
	quiet bool

	sslCert        string
	privateKeyName string
	computerID     int
	pmsOK          bool

	serverVersion    semver.Version
	hasServerVersion bool

	errors *errorLog
}

// New loads configuration, detects the package system, resolves the
// server certificate, and builds the transport.
func New(ctx context.Context, opts Options) (*Client, error) {
	st := settings.New()

	conf, err := config.Read(st.ConfFile)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Conf:           conf,
		Settings:       st,
		debug:          opts.Debug || conf.Client.Debug,
		quiet:          opts.Quiet,
		privateKeyName: conf.Client.Project + ".pri",
		pmsOK:          true,
		errors:         newErrorLog(st.ErrorFile(CommandName)),
	}

	c.attachFileJournal()

	for _, dir := range []string{st.TmpPath, c.keysDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating directory %s", dir)
		}
	}

	if ok, err := transport.FetchServerCertificate(conf.Client.Server, st.CertFile); err == nil && ok {
		c.sslCert = st.CertFile
	}

	c.PMS, err = pms.Detect(ctx)
	if err != nil {
		return nil, err
	}

	topts := transport.Options{
		Server:   conf.Client.Server,
		Proxy:    conf.Client.Proxy,
		CertFile: c.sslCert,
		Debug:    c.debug,
		Keys: transport.Keys{
			Private: c.privateKeyPath(),
			Public:  c.publicKeyPath(),
		},
	}

	if certFile, keyFile, ok := mtls.Credentials(st); ok {
		topts.MTLSCert = certFile
		topts.MTLSKey = keyFile
	}

	c.Request, err = transport.New(topts)
	if err != nil {
		return nil, err
	}

	c.fetchServerInfo(ctx)

	grip.Info(message.Fields{
		"message": "client ready",
		"config":  conf.FileName,
		"server":  conf.Client.Server,
		"project": conf.Client.Project,
		"pms":     c.PMS.Name(),
	})

	return c, nil
}

// Close releases transport resources.
func (c *Client) Close() {
	if c.Request != nil {
		c.Request.Close()
	}
}

// attachFileJournal mirrors log output to the settings log file.
func (c *Client) attachFileJournal() {
	fileSender, err := send.MakeFileLogger(c.Settings.LogFile)
	if err != nil {
		grip.Warning(message.WrapError(err, message.Fields{
			"message": "could not open log file",
			"file":    c.Settings.LogFile,
		}))

		return
	}

	grip.SetSender(send.NewConfiguredMultiSender(grip.GetSender(), fileSender))
}

// say prints user-facing progress unless quiet mode is on.
func (c *Client) say(format string, args ...interface{}) {
	if c.quiet {
		return
	}

	fmt.Printf(format+"\n", args...)
}

// fail records a non-fatal operation failure for the next error
// upload and shows it to the operator.
func (c *Client) fail(msg string) {
	grip.Error(msg)
	c.errors.Write(msg)

	if !c.quiet {
		fmt.Fprintln(os.Stderr, msg)
	}
}

func (c *Client) keysDir() string {
	return filepath.Join(c.Settings.KeysPath, c.Conf.Client.Server)
}

func (c *Client) privateKeyPath() string {
	return filepath.Join(c.keysDir(), c.privateKeyName)
}

func (c *Client) publicKeyPath() string {
	return filepath.Join(c.keysDir(), publicKeyName)
}

func (c *Client) reposKeyPath() string {
	return filepath.Join(c.keysDir(), reposKeyName)
}

// UsePackagerKeys switches the transport to the packager signing key
// for upload operations.
func (c *Client) UsePackagerKeys() {
	c.privateKeyName = packagerKeyName
	c.Request = c.Request.WithKeys(transport.Keys{
		Private: c.privateKeyPath(),
		Public:  c.publicKeyPath(),
	})
}

type serverInfo struct {
	Version      string `json:"version"`
	Project      string `json:"project"`
	Organization string `json:"organization"`
}

// fetchServerInfo is best effort; servers predating the endpoint are
// still supported.
func (c *Client) fetchServerInfo(ctx context.Context) {
	var info serverInfo
	if err := c.Request.PostPublic(ctx, transport.EndpointServerInfo, struct{}{}, &info); err != nil {
		grip.Debug(message.WrapError(err, "server info not available"))

		return
	}

	version, err := semver.ParseTolerant(info.Version)
	if err != nil {
		grip.Debug(message.Fields{
			"message": "unparseable server version",
			"version": info.Version,
		})

		return
	}

	c.serverVersion = version
	c.hasServerVersion = true
}

// ServerVersion reports the server release when it could be fetched.
func (c *Client) ServerVersion() (semver.Version, bool) {
	return c.serverVersion, c.hasServerVersion
}

// HasSignKeys reports whether the full signing material for the
// configured server is on disk.
func (c *Client) HasSignKeys() bool {
	for _, path := range []string{c.privateKeyPath(), c.publicKeyPath(), c.reposKeyPath()} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}

	return true
}

// CheckSignKeys ensures signing keys exist, auto-registering the
// computer when they do not.
func (c *Client) CheckSignKeys(ctx context.Context) error {
	if c.HasSignKeys() {
		return nil
	}

	grip.Warning("signing keys are not present, autoregistering computer")
	c.say("Autoregistering computer...")

	if err := c.SaveSignKeys(ctx, autoRegisterUser, autoRegisterPwd); err != nil {
		return err
	}

	_, err := c.SaveComputer(ctx)

	return err
}

type signKeysRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Project      string `json:"project"`
	Platform     string `json:"platform"`
	PMS          string `json:"pms"`
	Architecture string `json:"architecture"`
}

// SaveSignKeys obtains the project keypair from the server and stores
// it under the per-server keys directory, then imports the
// repositories signing key.
func (c *Client) SaveSignKeys(ctx context.Context, user, password string) error {
	payload := signKeysRequest{
		Username:     user,
		Password:     password,
		Project:      c.Conf.Client.Project,
		Platform:     platformName(),
		PMS:          c.PMS.Name(),
		Architecture: c.PMS.SystemArchitecture(ctx),
	}

	var response map[string]string
	if err := c.Request.PostPublic(ctx, transport.EndpointProjectKeys, payload, &response); err != nil {
		return errors.Wrap(err, "obtaining project keys")
	}

	// server names are normalized to the local layout
	rename := map[string]string{
		"migasfree-server.pub":   publicKeyName,
		"migasfree-client.pri":   c.privateKeyName,
		"migasfree-packager.pri": c.privateKeyName,
	}

	for name, content := range response {
		if local, ok := rename[name]; ok {
			name = local
		}

		path := filepath.Join(c.keysDir(), name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return errors.Wrapf(err, "writing key file %s", path)
		}

		c.say("Key %s created!", path)
	}

	return c.SaveReposKey(ctx)
}

// SaveReposKey downloads the repositories signing key and hands it to
// the package system.
func (c *Client) SaveReposKey(ctx context.Context) error {
	content, err := c.Request.DownloadPublic(ctx, transport.EndpointReposKeys, struct{}{})
	if err != nil {
		return errors.Wrap(err, "obtaining repositories key")
	}

	path := c.reposKeyPath()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "writing key file %s", path)
	}

	if err := c.PMS.ImportServerKey(ctx, path); err != nil {
		return errors.Wrap(err, "importing repositories key")
	}

	c.say("Key %s created!", path)

	return nil
}

// Register registers the computer at the server. The anonymous
// auto-register account is tried first; credentials are only needed
// when the server restricts registration.
func (c *Client) Register(ctx context.Context, user, password string) error {
	if err := c.SaveSignKeys(ctx, autoRegisterUser, autoRegisterPwd); err == nil {
		_, err = c.SaveComputer(ctx)

		return err
	}

	if user == "" {
		return errors.New("server requires a user to register this computer")
	}

	if err := c.SaveSignKeys(ctx, user, password); err != nil {
		return err
	}

	_, err := c.SaveComputer(ctx)

	return err
}

// RemoveKeys deletes the cached signing material for the configured
// server.
func (c *Client) RemoveKeys() error {
	for _, path := range []string{c.privateKeyPath(), c.publicKeyPath(), c.reposKeyPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", path)
		}

		c.say("Key %s removed", path)
	}

	return nil
}

type computerID struct {
	ID int `json:"id"`
}

// SaveComputer registers this machine's identity and caches the
// assigned computer id.
func (c *Client) SaveComputer(ctx context.Context) (int, error) {
	info := collectNetwork()

	payload := map[string]interface{}{
		"uuid":       hardware.UUID(ctx),
		"name":       c.Conf.Client.ComputerName,
		"ip_address": info.IP,
	}

	var response computerID
	if err := c.Request.Post(ctx, transport.EndpointComputer, payload, &response); err != nil {
		return 0, errors.Wrap(err, "registering computer")
	}

	c.computerID = response.ID
	c.say("Computer registered at server")

	return c.computerID, nil
}

// ComputerID resolves the server-side id for this machine, registering
// it when the server does not know it yet.
func (c *Client) ComputerID(ctx context.Context) (int, error) {
	if c.computerID != 0 {
		return c.computerID, nil
	}

	payload := map[string]interface{}{
		"uuid": hardware.UUID(ctx),
		"name": c.Conf.Client.ComputerName,
	}

	var id int
	err := c.Request.Post(ctx, transport.EndpointComputerID, payload, &id)
	if err != nil {
		if transport.IsNotFound(err) {
			return c.SaveComputer(ctx)
		}

		return 0, errors.Wrap(err, "resolving computer id")
	}

	c.computerID = id

	return id, nil
}

// EOT signals end of transmission for this computer.
func (c *Client) EOT(ctx context.Context) error {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return err
	}

	return c.Request.Post(ctx, transport.EndpointEOT,
		map[string]interface{}{"id": id}, nil)
}

// Release is the consumer identification sent with synchronizations.
func Release() string {
	return fmt.Sprintf("%s %s", CommandName, migasfree.ClientVersion)
}
