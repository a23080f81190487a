package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Register returns the cli.Command that registers this computer at the
// configured server and stores the signing keys it hands back.
func Register() cli.Command {
	return cli.Command{
		Name:  "register",
		Usage: "register this computer at the server and fetch signing keys",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "user, u",
				Usage: "server user with computer registration privileges",
			},
		},
		Action: func(c *cli.Context) error {
			user := c.String("user")

			password := ""
			if user != "" {
				var err error
				if password, err = promptPassword("password"); err != nil {
					return err
				}
			}

			return withClient(c, func(ctx context.Context, cl *client.Client) error {
				return cl.Register(ctx, user, password)
			})
		},
	}
}
