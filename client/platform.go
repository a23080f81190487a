package client

import (
	"context"
	"os/user"
	"runtime"
	"strings"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"

	"github.com/migasfree/migasfree-client/network"
	"github.com/migasfree/migasfree-client/shell"
)

func platformName() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows"
	case "darwin":
		return "Darwin"
	default:
		return "Linux"
	}
}

func collectNetwork() network.Info {
	info, err := network.Collect()
	if err != nil {
		grip.Warning(message.WrapError(err, "could not collect network information"))
	}

	return info
}

// graphic session managers probed to find the desktop user
var sessionProcesses = []string{
	"gnome-session-binary",
	"gnome-session",
	"ksmserver",
	"xfce4-session",
	"lxsession",
	"lxqt-session",
	"mate-session",
}

// syncUser returns the login and full name of the user owning the
// graphic session, falling back to the current process owner.
func syncUser(ctx context.Context) (name, fullname string) {
	if runtime.GOOS != "windows" {
		for _, proc := range sessionProcesses {
			res := shell.Run(ctx, "pidof -s "+proc)
			pid := strings.TrimSpace(res.Stdout)
			if !res.OK || pid == "" {
				continue
			}

			owner := shell.Run(ctx, "ps hp "+pid+" -o euser")
			if owner.OK {
				name = strings.TrimSpace(owner.Stdout)
				break
			}
		}
	}

	if name == "" {
		if current, err := user.Current(); err == nil {
			name = current.Username
		}
	}

	if info, err := user.Lookup(name); err == nil {
		// GECOS field, display name only
		fullname = strings.SplitN(info.Name, ",", 2)[0]
	}

	return name, fullname
}
