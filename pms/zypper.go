package pms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/shell"
)

func init() {
	register("zypper", func() Manager { return newZypper() })
}

// zypper drives SUSE-family systems (openSUSE, SLED, SLES).
type zypper struct {
	pm       string
	pms      string
	repoFile string
}

func newZypper() *zypper {
	return &zypper{
		pm:       "/bin/rpm",
		pms:      "/usr/bin/zypper",
		repoFile: "/etc/zypp/repos.d/migasfree.repo",
	}
}

func (*zypper) Name() string { return "zypper" }

func (*zypper) MimeTypes() []string {
	return []string{
		"application/x-rpm",
		"application/x-redhat-package-manager",
	}
}

func (z *zypper) Install(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s install --no-force-resolution %s",
		z.pms, strings.TrimSpace(pkg)))
}

func (z *zypper) Remove(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s remove %s", z.pms, strings.TrimSpace(pkg)))
}

func (z *zypper) Search(ctx context.Context, pattern string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s search %s", z.pms, strings.TrimSpace(pattern)))
}

func (z *zypper) UpdateSilent(ctx context.Context) error {
	if err := runOp(ctx, fmt.Sprintf("%s --non-interactive update --no-force-resolution", z.pms)); err != nil {
		return err
	}

	return runOp(ctx, fmt.Sprintf("%s lu -a", z.pms))
}

func (z *zypper) InstallSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if !z.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s --non-interactive install --no-force-resolution %s",
		z.pms, strings.Join(pending, " ")))
}

func (z *zypper) RemoveSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if z.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s --non-interactive remove %s",
		z.pms, strings.Join(pending, " ")))
}

func (z *zypper) IsInstalled(ctx context.Context, pkg string) bool {
	return shell.Run(ctx, fmt.Sprintf("%s -q %s", z.pm, strings.TrimSpace(pkg))).OK
}

func (z *zypper) CleanAll(ctx context.Context) error {
	return runOp(ctx, fmt.Sprintf("%s clean --all", z.pms))
}

func (z *zypper) QueryAll(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf(`%s --queryformat "%s" -qa`, z.pm, rpmQueryAllFormat))
	if !res.OK {
		return nil, errors.Errorf("querying installed packages: %s", res.CombinedOutput())
	}

	packages := splitLines(res.Stdout)
	sort.Strings(packages)

	return packages, nil
}

func (z *zypper) AvailablePackages(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf(`%s pa | awk -F'|' '{print $3}'`, z.pms))
	if !res.OK {
		return nil, errors.Errorf("listing available packages: %s", res.CombinedOutput())
	}

	names := splitLines(res.Stdout)
	sort.Strings(names)

	return names, nil
}

func (z *zypper) CreateRepos(ctx context.Context, protocol, server string, repos []Repository) error {
	return writeRepoFile(z.repoFile, protocol, server, repos)
}

func (z *zypper) ImportServerKey(ctx context.Context, keyFile string) error {
	return runOp(ctx, fmt.Sprintf("%s --import %s > /dev/null", z.pm, keyFile))
}

func (z *zypper) SystemArchitecture(ctx context.Context) string {
	res := shell.Run(ctx, fmt.Sprintf(`%s -q --qf "%%{arch}" -f /etc/lsb-release`, z.pm))
	if !res.OK {
		return ""
	}

	return strings.TrimSpace(res.Stdout)
}
