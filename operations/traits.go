package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Traits returns the cli.Command that evaluates and prints this
// computer's attribute set.
func Traits() cli.Command {
	return cli.Command{
		Name:    "traits",
		Aliases: []string{"attributes"},
		Usage:   "evaluate and show this computer's attributes",
		Action: func(c *cli.Context) error {
			return withClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.Traits(ctx)
			})
		},
	}
}
