/*
Package config reads the migasfree client configuration file. The file
uses INI syntax with two recognized sections, [client] and [packager];
every key can be overridden through the environment.
*/
package config

import (
	"os"
	"strings"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"gopkg.in/ini.v1"
)

// Client holds the [client] section of the configuration file.
type Client struct {
	Server             string
	Project            string
	ComputerName       string
	AutoUpdatePackages bool
	ManageDevices      bool
	Proxy              string
	PackageProxyCache  string
	Debug              bool
}

// Packager holds the [packager] section of the configuration file.
type Packager struct {
	User     string
	Password string
	Project  string
	Store    string
}

// Config is the merged view of the configuration file and the
// environment.
type Config struct {
	Client   Client
	Packager Packager

	// Path of the file the configuration was read from; empty when
	// the file does not exist and only defaults and the environment
	// applied.
	FileName string
}

// Default used when neither the file nor the environment provides a
// value. Project and ComputerName default dynamically, see
// applyDynamicDefaults.
const defaultServer = "localhost"

// Read loads the configuration file at path and applies environment
// overrides. A missing file is not an error: every value falls back
// to its default.
func Read(path string) (*Config, error) {
	conf := &Config{
		Client: Client{
			Server:             defaultServer,
			AutoUpdatePackages: true,
			ManageDevices:      true,
		},
	}

	if _, err := os.Stat(path); err == nil {
		file, err := ini.Load(path)
		if err != nil {
			return nil, err
		}
		conf.FileName = path
		conf.fromFile(file)
	} else {
		grip.Debug(message.Fields{
			"message": "configuration file not found, using defaults",
			"path":    path,
		})
	}

	conf.fromEnvironment()
	conf.applyDynamicDefaults()

	return conf, nil
}

// applyDynamicDefaults fills in the values that depend on the machine
// rather than on a constant: the project defaults to the distribution
// slug and the computer name to the short hostname.
func (c *Config) applyDynamicDefaults() {
	if c.Client.Project == "" {
		c.Client.Project = distroProject()
	}

	if c.Client.ComputerName == "" {
		c.Client.ComputerName = shortHostname()
	}
}

func (c *Config) fromFile(file *ini.File) {
	client := file.Section("client")
	c.Client.Server = client.Key("server").MustString(c.Client.Server)
	c.Client.Project = client.Key("project").String()
	c.Client.ComputerName = client.Key("computer_name").String()
	c.Client.AutoUpdatePackages = castToBool(client.Key("auto_update_packages").String(), c.Client.AutoUpdatePackages)
	c.Client.ManageDevices = castToBool(client.Key("manage_devices").String(), c.Client.ManageDevices)
	c.Client.Proxy = client.Key("proxy").String()
	c.Client.PackageProxyCache = client.Key("package_proxy_cache").String()
	c.Client.Debug = castToBool(client.Key("debug").String(), false)

	packager := file.Section("packager")
	c.Packager.User = packager.Key("user").String()
	c.Packager.Password = packager.Key("password").String()
	c.Packager.Project = packager.Key("project").String()
	c.Packager.Store = packager.Key("store").String()
}

func (c *Config) fromEnvironment() {
	setString(&c.Client.Server, "MIGASFREE_CLIENT_SERVER")
	setString(&c.Client.Project, "MIGASFREE_CLIENT_PROJECT")
	setString(&c.Client.ComputerName, "MIGASFREE_CLIENT_COMPUTER_NAME")
	setBool(&c.Client.AutoUpdatePackages, "MIGASFREE_CLIENT_AUTO_UPDATE_PACKAGES")
	setBool(&c.Client.ManageDevices, "MIGASFREE_CLIENT_MANAGE_DEVICES")
	setString(&c.Client.Proxy, "MIGASFREE_CLIENT_PROXY")
	setString(&c.Client.PackageProxyCache, "MIGASFREE_CLIENT_PACKAGE_PROXY_CACHE")
	setBool(&c.Client.Debug, "MIGASFREE_CLIENT_DEBUG")

	setString(&c.Packager.User, "MIGASFREE_PACKAGER_USER")
	setString(&c.Packager.Password, "MIGASFREE_PACKAGER_PASSWORD")
	setString(&c.Packager.Project, "MIGASFREE_PACKAGER_PROJECT")
	setString(&c.Packager.Store, "MIGASFREE_PACKAGER_STORE")
}

func setString(target *string, env string) {
	if value, ok := os.LookupEnv(env); ok && value != "" {
		*target = value
	}
}

func setBool(target *bool, env string) {
	if value, ok := os.LookupEnv(env); ok && value != "" {
		*target = castToBool(value, *target)
	}
}

// castToBool accepts the usual truthy and falsy spellings; anything
// else keeps the default.
func castToBool(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "off", "no", "n", "0":
		return false
	case "true", "on", "yes", "y", "1":
		return true
	default:
		return def
	}
}
