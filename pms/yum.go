package pms

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/shell"
)

func init() {
	register("yum", func() Manager { return newYum() })
}

// rpmQueryAllFormat yields one inventory entry per installed package.
const rpmQueryAllFormat = `%{NAME}_%{VERSION}-%{RELEASE}_%{ARCH}.rpm\n`

// yum drives Red Hat-family systems (CentOS, older Fedora and RHEL).
// dnf embeds it and overrides the tool path.
type yum struct {
	name     string
	pm       string // package manager (rpm)
	pms      string // package management system (yum or dnf)
	repoFile string
}

func newYum() *yum {
	repoFile := "/etc/yum/repos.d/migasfree.repo"
	if info, err := os.Stat("/etc/yum.repos.d"); err == nil && info.IsDir() {
		repoFile = "/etc/yum.repos.d/migasfree.repo"
	}

	return &yum{
		name:     "yum",
		pm:       "/bin/rpm",
		pms:      "/usr/bin/yum",
		repoFile: repoFile,
	}
}

func (y *yum) Name() string { return y.name }

func (*yum) MimeTypes() []string {
	return []string{
		"application/x-rpm",
		"application/x-redhat-package-manager",
	}
}

func (y *yum) Install(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s install %s", y.pms, strings.TrimSpace(pkg)))
}

func (y *yum) Remove(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s remove %s", y.pms, strings.TrimSpace(pkg)))
}

func (y *yum) Search(ctx context.Context, pattern string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s search %s", y.pms, strings.TrimSpace(pattern)))
}

func (y *yum) UpdateSilent(ctx context.Context) error {
	return runOp(ctx, fmt.Sprintf("%s --assumeyes update", y.pms))
}

func (y *yum) InstallSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if !y.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s --assumeyes install %s", y.pms, strings.Join(pending, " ")))
}

func (y *yum) RemoveSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if y.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s --assumeyes remove %s", y.pms, strings.Join(pending, " ")))
}

func (y *yum) IsInstalled(ctx context.Context, pkg string) bool {
	return shell.Run(ctx, fmt.Sprintf("%s -q %s", y.pm, strings.TrimSpace(pkg))).OK
}

func (y *yum) CleanAll(ctx context.Context) error {
	if err := runOp(ctx, fmt.Sprintf("%s clean all", y.pms)); err != nil {
		return err
	}

	// check-update exits 100 when updates are pending.
	res := shell.Run(ctx, fmt.Sprintf("%s --assumeyes check-update", y.pms))
	if res.OK || strings.Contains(fmt.Sprint(res.Err), "exit status 100") {
		return nil
	}

	return errors.Errorf("refreshing metadata: %s", res.CombinedOutput())
}

func (y *yum) QueryAll(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf(`%s --queryformat "%s" -qa`, y.pm, rpmQueryAllFormat))
	if !res.OK {
		return nil, errors.Errorf("querying installed packages: %s", res.CombinedOutput())
	}

	packages := splitLines(res.Stdout)
	sort.Strings(packages)

	return packages, nil
}

func (y *yum) AvailablePackages(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf(
		`%s --quiet list available | awk -F. '{print $1}' | grep -v '^ ' | sed '1d'`, y.pms))
	if !res.OK {
		return nil, errors.Errorf("listing available packages: %s", res.CombinedOutput())
	}

	names := splitLines(res.Stdout)
	sort.Strings(names)

	return names, nil
}

func (y *yum) CreateRepos(ctx context.Context, protocol, server string, repos []Repository) error {
	return writeRepoFile(y.repoFile, protocol, server, repos)
}

func (y *yum) ImportServerKey(ctx context.Context, keyFile string) error {
	return runOp(ctx, fmt.Sprintf("%s --import %s > /dev/null", y.pm, keyFile))
}

func (y *yum) SystemArchitecture(ctx context.Context) string {
	res := shell.Run(ctx, fmt.Sprintf(
		`echo $(%s -q --qf "%%{arch}" -f /etc/$(sed -n "s/^distroverpkg=//p" /etc/yum.conf))`, y.pm))
	if !res.OK {
		return ""
	}

	return strings.TrimSpace(res.Stdout)
}
