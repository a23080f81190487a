package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Info returns the cli.Command that prints the server's record of this
// computer, either the whole record or a single field.
func Info() cli.Command {
	return cli.Command{
		Name:      "info",
		Usage:     "show this computer's record at the server",
		ArgsUsage: "[id|uuid|name|search]",
		Action: func(c *cli.Context) error {
			key := c.Args().First()

			return withClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.Info(ctx, key)
			})
		},
	}
}
