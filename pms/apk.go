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
	register("apk", func() Manager { return newApk() })
}

// apk drives Alpine Linux systems.
type apk struct {
	pms      string
	repoFile string
	keysDir  string
}

func newApk() *apk {
	return &apk{
		pms:      "/sbin/apk",
		repoFile: "/etc/apk/repositories",
		keysDir:  "/etc/apk/keys",
	}
}

func (*apk) Name() string { return "apk" }

func (*apk) MimeTypes() []string {
	return []string{"application/vnd.alpine.apk"}
}

func (a *apk) Install(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s add %s", a.pms, strings.TrimSpace(pkg)))
}

func (a *apk) Remove(ctx context.Context, pkg string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s del %s", a.pms, strings.TrimSpace(pkg)))
}

func (a *apk) Search(ctx context.Context, pattern string) error {
	return shell.RunInteractive(ctx, fmt.Sprintf("%s search %s", a.pms, strings.TrimSpace(pattern)))
}

func (a *apk) UpdateSilent(ctx context.Context) error {
	if err := runOp(ctx, fmt.Sprintf("%s update", a.pms)); err != nil {
		return err
	}

	return runOp(ctx, fmt.Sprintf("%s upgrade", a.pms))
}

func (a *apk) InstallSilent(ctx context.Context, packages []string) error {
	pending := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if !a.IsInstalled(ctx, pkg) {
			pending = append(pending, pkg)
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s add %s", a.pms, strings.Join(pending, " ")))
}

func (a *apk) RemoveSilent(ctx context.Context, packages []string) error {
	installed := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if a.IsInstalled(ctx, pkg) {
			installed = append(installed, pkg)
		}
	}

	if len(installed) == 0 {
		return nil
	}

	return runOp(ctx, fmt.Sprintf("%s del %s", a.pms, strings.Join(installed, " ")))
}

func (a *apk) IsInstalled(ctx context.Context, pkg string) bool {
	return shell.Run(ctx, fmt.Sprintf("%s info -e %s", a.pms, strings.TrimSpace(pkg))).OK
}

func (a *apk) CleanAll(ctx context.Context) error {
	return runOp(ctx, fmt.Sprintf("%s cache clean", a.pms))
}

func (a *apk) QueryAll(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s info -v", a.pms))
	if !res.OK {
		return nil, errors.Wrap(res.Err, "querying installed software")
	}

	arch := a.SystemArchitecture(ctx)

	result := make([]string, 0, 64)
	for _, line := range splitLines(res.Stdout) {
		result = append(result, fmt.Sprintf("%s_%s.apk", line, arch))
	}

	sort.Strings(result)

	return result, nil
}

// CreateRepos appends the server's repositories to the system
// repositories file, keeping whatever is already configured.
func (a *apk) CreateRepos(ctx context.Context, protocol, server string, repos []Repository) error {
	current, err := os.ReadFile(a.repoFile)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "reading %s", a.repoFile)
	}

	missing := make([]string, 0, len(repos))
	for _, repo := range repos {
		line := strings.TrimSpace(repo.Source(protocol, server))
		if line != "" && !strings.Contains(string(current), line) {
			missing = append(missing, line)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	f, err := os.OpenFile(a.repoFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "updating %s", a.repoFile)
	}
	defer f.Close()

	_, err = f.WriteString("\n" + strings.Join(missing, "\n") + "\n")

	return errors.Wrapf(err, "updating %s", a.repoFile)
}

func (a *apk) ImportServerKey(ctx context.Context, keyFile string) error {
	return runOp(ctx, fmt.Sprintf("cp %s %s/", keyFile, a.keysDir))
}

func (a *apk) SystemArchitecture(ctx context.Context) string {
	res := shell.Run(ctx, fmt.Sprintf("%s --print-arch", a.pms))
	if !res.OK {
		return ""
	}

	return strings.TrimSpace(res.Stdout)
}

func (a *apk) AvailablePackages(ctx context.Context) ([]string, error) {
	res := shell.Run(ctx, fmt.Sprintf("%s search -q", a.pms))
	if !res.OK {
		return nil, errors.Wrap(res.Err, "listing available packages")
	}

	names := splitLines(res.Stdout)
	sort.Strings(names)

	return names, nil
}
