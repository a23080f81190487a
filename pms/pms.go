/*
Package pms abstracts the platform package management system (PMS) so
the rest of the client can install, remove, and inventory software
without caring which distribution it runs on.

Backends register themselves by name; Detect probes the PATH for a
known package tool and returns the matching backend. All process
execution goes through the shared shell runner.
*/
package pms

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/shell"
)

// Repository is one software repository definition as delivered by the
// server. The source_template value carries {protocol} and {server}
// placeholders that are expanded locally.
type Repository map[string]interface{}

// Source renders the repository's source template for the given
// protocol and server.
func (r Repository) Source(protocol, server string) string {
	template, ok := r["source_template"].(string)
	if !ok {
		return ""
	}

	template = strings.ReplaceAll(template, "{protocol}", protocol)

	return strings.ReplaceAll(template, "{server}", server)
}

// Manager is the interface every package management backend satisfies.
//
// Install, Remove, and Search are operator-facing and run attached to
// the terminal; the Silent variants are used during unattended
// synchronization and capture output instead.
type Manager interface {
	Name() string

	Install(ctx context.Context, pkg string) error
	Remove(ctx context.Context, pkg string) error
	Search(ctx context.Context, pattern string) error

	UpdateSilent(ctx context.Context) error
	InstallSilent(ctx context.Context, packages []string) error
	RemoveSilent(ctx context.Context, packages []string) error

	IsInstalled(ctx context.Context, pkg string) bool
	CleanAll(ctx context.Context) error

	// QueryAll returns the installed package inventory, one entry per
	// package in the form name_version_architecture.extension, sorted.
	QueryAll(ctx context.Context) ([]string, error)
	AvailablePackages(ctx context.Context) ([]string, error)

	CreateRepos(ctx context.Context, protocol, server string, repos []Repository) error
	ImportServerKey(ctx context.Context, keyFile string) error
	SystemArchitecture(ctx context.Context) string

	// MimeTypes reports the media types of package files this backend
	// accepts for upload.
	MimeTypes() []string
}

type factory func() Manager

var registry = map[string]factory{}

func register(name string, f factory) {
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("package management backend '%s' registered twice", name))
	}

	registry[name] = f
}

// Factory constructs the backend registered under name.
func Factory(name string) (Manager, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Errorf("unsupported package management system '%s' (supported: %s)",
			name, strings.Join(Names(), ", "))
	}

	return f(), nil
}

// Names returns the registered backend names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Probe order matters: derivative distributions may carry a vestigial
// rpm binary next to the native tool, and dnf systems usually ship a
// yum compatibility shim.
var probes = []struct {
	tool    string
	backend string
}{
	{"apt-get", "apt"},
	{"dnf", "dnf"},
	{"yum", "yum"},
	{"zypper", "zypper"},
	{"pacman", "pacman"},
	{"apk", "apk"},
	{"winget", "winget"},
}

// Detect probes the PATH for a known package tool and returns the
// matching backend.
func Detect(ctx context.Context) (Manager, error) {
	for _, p := range probes {
		if shell.Which(ctx, p.tool) {
			grip.Debug(message.Fields{
				"message": "package management system detected",
				"tool":    p.tool,
				"backend": p.backend,
			})

			return Factory(p.backend)
		}
	}

	return nil, errors.New("no supported package management system found")
}

// runOp executes a command that only signals success or failure,
// surfacing captured stderr in the returned error.
func runOp(ctx context.Context, cmd string) error {
	res := shell.Run(ctx, cmd)
	if res.OK {
		return nil
	}

	out := strings.TrimSpace(res.CombinedOutput())
	if out == "" {
		return errors.Wrapf(res.Err, "running '%s'", cmd)
	}

	return errors.Errorf("running '%s': %s", cmd, out)
}

func writeRepoFile(path, protocol, server string, repos []Repository) error {
	buf := &bytes.Buffer{}
	for _, repo := range repos {
		buf.WriteString(repo.Source(protocol, server))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating repositories directory for %s", path)
	}

	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644),
		"writing repositories file %s", path)
}

// splitLines trims output and returns its non-empty lines.
func splitLines(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")

	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}

	return result
}
