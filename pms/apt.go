package pms

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/shell"
)

func init() {
	register("apt", func() Manager { return newApt() })
}

const aptSilentOptions = "-o APT::Get::Purge=true " +
	"-o Dpkg::Options::=--force-confdef " +
	"-o Dpkg::Options::=--force-confold " +
	"-o Debug::pkgProblemResolver=1 " +
	"--assume-yes --force-yes " +
	"--allow-unauthenticated --auto-remove"

var dpkgListSplit = regexp.MustCompile(` +`)

// apt drives Debian-family systems (Debian, Ubuntu, Mint, ...).
type apt struct {
	pm       string // package manager (dpkg)
	pms      string // package management system (apt-get)
	search   string
	repoFile string
}

func newApt() *apt {
	return &apt{
		pm:       "/usr/bin/dpkg",
		pms:      "DEBIAN_FRONTEND=noninteractive /usr/bin/apt-get",
		search:   "/usr/bin/apt-cache",
		repoFile: "/etc/apt/sources.list.d/migasfree.list",
	}
}

func (*apt) Name() string { return "apt" }

func (*apt) MimeTypes() []string {
	return []string{
		"application/x-debian-package",
		"application/vnd.debian.binary-package",
	}
}

func (a *apt) Install(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s install -o APT::Get::Purge=true %s",
		a.pms, strings.TrimSpace(pkg)))
}

func (a *apt) Remove(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s purge %s", a.pms, strings.TrimSpace(pkg)))
}

func (a *apt) Search(ctx context.Context, pattern string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s search %s", a.search, strings.TrimSpace(pattern)))
}

func (a *apt) UpdateSilent(ctx context.Context) error {
	return runOp(ctx, fmt.Sprintf("%s %s dist-upgrade", a.pms, aptSilentOptions))
}

func (a *apt) InstallSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if !a.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s %s install %s",
		a.pms, aptSilentOptions, strings.Join(pending, " ")))
}

func (a *apt) RemoveSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if a.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s %s purge %s",
		a.pms, aptSilentOptions, strings.Join(pending, " ")))
}

func (a *apt) IsInstalled(ctx context.Context, pkg string) bool {
	res := shell.Run(ctx, fmt.Sprintf(`%s --status %s | grep "Status: install ok installed"`,
		a.pm, strings.TrimSpace(pkg)))

	return res.OK
}

func (a *apt) CleanAll(ctx context.Context) error {
	if err := runOp(ctx, fmt.Sprintf("%s clean", a.pms)); err != nil {
		return err
	}

	return runOp(ctx, fmt.Sprintf("%s -o Acquire::Languages=none --assume-yes update", a.pms))
}

func (a *apt) QueryAll(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s --list", a.pm))
	if !res.OK {
		return nil, errors.Errorf("querying installed packages: %s", res.CombinedOutput())
	}

	return parseDpkgList(res.Stdout), nil
}

// parseDpkgList converts `dpkg --list` output into inventory entries.
// Only packages in the installed state (leading "ii") count.
func parseDpkgList(out string) []string {
	result := []string{}
	for _, line := range splitLines(out) {
		if !strings.HasPrefix(line, "ii") {
			continue
		}

		fields := dpkgListSplit.Split(line, 5)
		if len(fields) < 4 {
			continue
		}

		result = append(result, fmt.Sprintf("%s_%s_%s.deb", fields[1], fields[2], fields[3]))
	}

	sort.Strings(result)

	return result
}

func (a *apt) AvailablePackages(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s pkgnames", a.search))
	if !res.OK {
		return nil, errors.Errorf("listing available packages: %s", res.CombinedOutput())
	}

	names := splitLines(res.Stdout)
	sort.Strings(names)

	return names, nil
}

func (a *apt) CreateRepos(ctx context.Context, protocol, server string, repos []Repository) error {
	return writeRepoFile(a.repoFile, protocol, server, repos)
}

func (a *apt) ImportServerKey(ctx context.Context, keyFile string) error {
	return runOp(ctx, fmt.Sprintf(
		"APT_KEY_DONT_WARN_ON_DANGEROUS_USAGE=1 apt-key add %s > /dev/null", keyFile))
}

func (a *apt) SystemArchitecture(ctx context.Context) string {
	res := shell.Run(ctx, fmt.Sprintf(
		`echo "$(%[1]s --print-architecture) $(%[1]s --print-foreign-architectures)"`, a.pm))
	if !res.OK {
		return ""
	}

	return strings.TrimSpace(res.Stdout)
}
