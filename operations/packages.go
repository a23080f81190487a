package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Search returns the cli.Command that queries the configured
// repositories for a pattern.
func Search() cli.Command {
	return cli.Command{
		Name:   "search",
		Usage:  "search for a package in the configured repositories",
		Before: requireArgs("search PATTERN", 1),
		Action: func(c *cli.Context) error {
			pattern := c.Args().First()

			return withClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.Search(ctx, pattern)
			})
		},
	}
}

// Install returns the cli.Command that installs packages and reports
// the resulting software changes to the server.
func Install() cli.Command {
	return cli.Command{
		Name:   "install",
		Usage:  "install packages and report the software change",
		Before: requireArgs("install PACKAGE...", 1),
		Action: func(c *cli.Context) error {
			packages := c.Args()

			return withLockedClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.Install(ctx, packages)
			})
		},
	}
}

// Purge returns the cli.Command that removes packages and reports
// the resulting software changes to the server.
func Purge() cli.Command {
	return cli.Command{
		Name:    "purge",
		Aliases: []string{"remove"},
		Usage:   "remove packages and report the software change",
		Before:  requireArgs("purge PACKAGE...", 1),
		Action: func(c *cli.Context) error {
			packages := c.Args()

			return withLockedClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.Purge(ctx, packages)
			})
		},
	}
}
