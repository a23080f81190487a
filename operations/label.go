package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Label returns the cli.Command that renders and opens the computer
// identification label.
func Label() cli.Command {
	return cli.Command{
		Name:  "label",
		Usage: "show the identification label of this computer",
		Action: func(c *cli.Context) error {
			return withClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.ShowLabel(ctx)
			})
		},
	}
}
