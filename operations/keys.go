package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// RemoveKeys returns the cli.Command that deletes the signing keys
// cached for the configured server.
func RemoveKeys() cli.Command {
	return cli.Command{
		Name:  "remove-keys",
		Usage: "delete the cached signing keys for the configured server",
		Action: func(c *cli.Context) error {
			return withClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.RemoveKeys()
			})
		},
	}
}
