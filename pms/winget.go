package pms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/shell"
)

func init() {
	register("winget", func() Manager { return newWinget() })
}

// winget list prints fixed-width columns; the id column starts at
// byte 49 and the version column at byte 100.
const (
	wingetHeaderLines = 4
	wingetIDColumn    = 49
	wingetVerColumn   = 100
)

// winget drives Microsoft Windows systems.
type winget struct {
	pms string
}

func newWinget() *winget {
	return &winget{pms: "winget"}
}

func (*winget) Name() string { return "winget" }

func (*winget) MimeTypes() []string {
	return []string{"application/yaml"}
}

func (w *winget) Install(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s install --scope=machine --silent %s",
		w.pms, strings.TrimSpace(pkg)))
}

func (w *winget) Remove(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s uninstall --silent %s",
		w.pms, strings.TrimSpace(pkg)))
}

func (w *winget) Search(ctx context.Context, pattern string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s search %s", w.pms, strings.TrimSpace(pattern)))
}

func (w *winget) UpdateSilent(ctx context.Context) error {
	return runOp(ctx, fmt.Sprintf("%s upgrade --all --silent", w.pms))
}

func (w *winget) InstallSilent(ctx context.Context, packages []string) error {
	for _, pkg := range packages {
		if w.IsInstalled(ctx, pkg) {
			continue
		}

		if err := runOp(ctx, fmt.Sprintf("%s install --scope=machine --silent %s", w.pms, pkg)); err != nil {
			return err
		}
	}

	return nil
}

func (w *winget) RemoveSilent(ctx context.Context, packages []string) error {
	for _, pkg := range packages {
		if !w.IsInstalled(ctx, pkg) {
			continue
		}

		if err := runOp(ctx, fmt.Sprintf("%s uninstall --silent %s", w.pms, pkg)); err != nil {
			return err
		}
	}

	return nil
}

func (w *winget) IsInstalled(ctx context.Context, pkg string) bool {
	return shell.Run(ctx, fmt.Sprintf("%s list %s", w.pms, strings.TrimSpace(pkg))).OK
}

// CleanAll is a no-op: winget keeps no local metadata cache to clean.
func (*winget) CleanAll(ctx context.Context) error {
	return nil
}

func (w *winget) QueryAll(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s list", w.pms))
	if !res.OK {
		return nil, errors.Wrap(res.Err, "querying installed software")
	}

	return parseWingetList(res.Stdout), nil
}

// parseWingetList turns fixed-width winget list output into
// name_version_architecture.extension entries, sorted.
func parseWingetList(out string) []string {
	lines := strings.Split(out, "\n")
	if len(lines) <= wingetHeaderLines {
		return nil
	}

	result := make([]string, 0, len(lines)-wingetHeaderLines)
	for _, line := range lines[wingetHeaderLines:] {
		id := strings.TrimSpace(column(line, wingetIDColumn, wingetVerColumn))
		version := strings.TrimSpace(column(line, wingetVerColumn, len(line)))
		if id == "" {
			continue
		}

		name := strings.SplitN(id, "_", 2)[0]
		result = append(result, fmt.Sprintf("%s_%s_x64.yaml", name, version))
	}

	sort.Strings(result)

	return result
}

func column(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}

	return line[from:to]
}

// CreateRepos resets the source list and registers the server's
// repositories. winget exits non-zero when the default source was
// already removed, so failures are logged rather than propagated.
func (w *winget) CreateRepos(ctx context.Context, protocol, server string, repos []Repository) error {
	cmds := []string{
		fmt.Sprintf("%s source reset --force", w.pms),
		fmt.Sprintf("%s source remove winget", w.pms),
	}
	for _, repo := range repos {
		cmds = append(cmds, fmt.Sprintf("%s source add -n %s",
			w.pms, strings.TrimSpace(repo.Source(protocol, server))))
	}

	res := shell.Run(ctx, strings.Join(cmds, " && "))
	grip.WarningWhen(!res.OK, message.Fields{
		"message": "could not rebuild winget sources",
		"stderr":  res.Stderr,
	})

	return nil
}

// ImportServerKey is a no-op: source trust ships inside the source
// msix package.
func (*winget) ImportServerKey(ctx context.Context, keyFile string) error {
	return nil
}

func (*winget) SystemArchitecture(ctx context.Context) string {
	return "x64"
}

func (w *winget) AvailablePackages(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s search", w.pms))
	if !res.OK {
		return nil, errors.Wrap(res.Err, "listing available packages")
	}

	names := splitLines(res.Stdout)
	sort.Strings(names)

	return names, nil
}
