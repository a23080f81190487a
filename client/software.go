package client

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// History records package inventory changes between synchronizations.
type History struct {
	Installed   []string `json:"installed,omitempty"`
	Uninstalled []string `json:"uninstalled,omitempty"`
}

func (h *History) empty() bool {
	return len(h.Installed) == 0 && len(h.Uninstalled) == 0
}

func (h *History) merge(diff []string) {
	for _, line := range diff {
		switch {
		case strings.HasPrefix(line, "+"):
			h.Installed = append(h.Installed, line)
		case strings.HasPrefix(line, "-"):
			h.Uninstalled = append(h.Uninstalled, line)
		}
	}
}

// CompareLists diffs two package inventories, returning entries
// prefixed with '+' (present only in after) or '-' (present only in
// before), sorted.
func CompareLists(before, after []string) []string {
	beforeSet := make(map[string]struct{}, len(before))
	for _, item := range before {
		beforeSet[item] = struct{}{}
	}

	afterSet := make(map[string]struct{}, len(after))
	for _, item := range after {
		afterSet[item] = struct{}{}
	}

	var diff []string
	for item := range afterSet {
		if _, ok := beforeSet[item]; !ok {
			diff = append(diff, "+"+item)
		}
	}

	for item := range beforeSet {
		if _, ok := afterSet[item]; !ok {
			diff = append(diff, "-"+item)
		}
	}

	sort.Strings(diff)

	return diff
}

// softwareHistory diffs the current inventory against the last
// snapshot on disk, picking up packages managed by hand between runs.
func softwareHistory(snapshotFile string, current []string) History {
	history := History{}

	raw, err := os.ReadFile(snapshotFile)
	if err != nil || len(raw) == 0 {
		return history
	}

	previous := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	history.merge(CompareLists(previous, current))

	return history
}

// writeSnapshot persists the package inventory for the next run's
// manual-change detection.
func writeSnapshot(snapshotFile string, inventory []string) error {
	return errors.Wrapf(os.WriteFile(snapshotFile, []byte(strings.Join(inventory, "\n")), 0o644),
		"writing software snapshot %s", snapshotFile)
}
