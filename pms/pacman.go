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
	register("pacman", func() Manager { return newPacman() })
}

// pacman drives Arch-family systems (Arch, Manjaro, KaOS, ...).
type pacman struct {
	pms        string
	cacheTool  string
	keyTool    string
	repoFile   string
	configFile string
}

func newPacman() *pacman {
	return &pacman{
		pms:        "LC_ALL=C /usr/bin/pacman",
		cacheTool:  "/usr/bin/paccache",
		keyTool:    "/usr/bin/pacman-key",
		repoFile:   "/etc/pacman.d/migasfree.list",
		configFile: "/etc/pacman.conf",
	}
}

func (*pacman) Name() string { return "pacman" }

func (*pacman) MimeTypes() []string {
	return []string{
		"application/x-alpm-package",
		"application/x-zstd-compressed-alpm-package",
		"application/x-gtar",
	}
}

func (p *pacman) Install(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s --upgrade %s", p.pms, strings.TrimSpace(pkg)))
}

func (p *pacman) Remove(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s --remove --recursive %s",
		p.pms, strings.TrimSpace(pkg)))
}

func (p *pacman) Search(ctx context.Context, pattern string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s --sync --search %s",
		p.pms, strings.TrimSpace(pattern)))
}

func (p *pacman) UpdateSilent(ctx context.Context) error {
	return runOp(ctx, fmt.Sprintf("%s --sync --refresh -uu --noconfirm", p.pms))
}

func (p *pacman) InstallSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if !p.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s --upgrade --noconfirm %s", p.pms, strings.Join(pending, " ")))
}

func (p *pacman) RemoveSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if p.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s --remove --recursive --noconfirm %s",
		p.pms, strings.Join(pending, " ")))
}

func (p *pacman) IsInstalled(ctx context.Context, pkg string) bool {
	return shell.Run(ctx, fmt.Sprintf("%s --query %s", p.pms, strings.TrimSpace(pkg))).OK
}

func (p *pacman) CleanAll(ctx context.Context) error {
	return runOp(ctx, fmt.Sprintf("%s --remove", p.cacheTool))
}

func (p *pacman) QueryAll(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s --query --info", p.pms))
	if !res.OK {
		return nil, errors.Errorf("querying installed packages: %s", res.CombinedOutput())
	}

	return parsePacmanInfo(res.Stdout), nil
}

// parsePacmanInfo converts `pacman --query --info` stanzas into
// inventory entries.
func parsePacmanInfo(out string) []string {
	result := []string{}
	for _, stanza := range strings.Split(strings.TrimSpace(out), "\n\n") {
		fields := map[string]string{}
		for _, line := range strings.Split(stanza, "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}

			switch key = strings.TrimSpace(key); key {
			case "Name", "Version", "Architecture":
				fields[key] = strings.TrimSpace(value)
			}
		}

		if fields["Name"] == "" {
			continue
		}

		result = append(result, fmt.Sprintf("%s_%s_%s.pkg.tar.zst",
			fields["Name"], fields["Version"], fields["Architecture"]))
	}

	sort.Strings(result)

	return result
}

func (p *pacman) AvailablePackages(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s --sync --search --quiet", p.pms))
	if !res.OK {
		return nil, errors.Errorf("listing available packages: %s", res.CombinedOutput())
	}

	names := splitLines(res.Stdout)
	sort.Strings(names)

	return names, nil
}

// includeRepoFile adds an Include directive for the repositories file
// to pacman.conf when it is not referenced yet.
func (p *pacman) includeRepoFile() error {
	line := fmt.Sprintf("Include = %s", p.repoFile)

	raw, err := os.ReadFile(p.configFile)
	if err != nil {
		return errors.Wrapf(err, "reading %s", p.configFile)
	}

	config := string(raw)
	if strings.Contains(config, line) {
		return nil
	}

	if !strings.HasSuffix(config, "\n") {
		config += "\n"
	}

	return errors.Wrapf(os.WriteFile(p.configFile, []byte(config+line+"\n"), 0o644),
		"updating %s", p.configFile)
}

func (p *pacman) CreateRepos(ctx context.Context, protocol, server string, repos []Repository) error {
	if err := p.includeRepoFile(); err != nil {
		return err
	}

	return writeRepoFile(p.repoFile, protocol, server, repos)
}

func (p *pacman) ImportServerKey(ctx context.Context, keyFile string) error {
	return runOp(ctx, fmt.Sprintf("%s --populate %s > /dev/null", p.keyTool, keyFile))
}

func (p *pacman) SystemArchitecture(ctx context.Context) string {
	res := shell.Run(ctx, "uname -m")
	if !res.OK {
		return ""
	}

	return strings.TrimSpace(res.Stdout)
}
