package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Sync returns the cli.Command for the full synchronization
// transaction against the configured server.
func Sync() cli.Command {
	return cli.Command{
		Name:    "sync",
		Aliases: []string{"update"},
		Usage:   "synchronize this computer with the server",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "force-upgrade, f",
				Usage: "upgrade all installed packages even when auto update is disabled",
			},
		},
		Action: func(c *cli.Context) error {
			forceUpgrade := c.Bool("force-upgrade")

			return withLockedClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.Sync(ctx, forceUpgrade)
			})
		},
	}
}
