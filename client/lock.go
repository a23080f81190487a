package client

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// AcquireLock takes the per-command pid lock. A lock file pointing at
// a live process means another instance is running; a stale file is
// silently replaced.
func AcquireLock(path string) error {
	if raw, err := os.ReadFile(path); err == nil {
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(raw)))
		if convErr == nil {
			if alive, _ := process.PidExists(int32(pid)); alive {
				return errors.Errorf("another instance is running: %d", pid)
			}
		}
	}

	return errors.Wrapf(os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644),
		"writing lock file %s", path)
}

// ReleaseLock removes the pid lock. Missing files are not an error.
func ReleaseLock(path string) {
	_ = os.Remove(path)
}
