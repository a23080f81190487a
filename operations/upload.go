package operations

import (
	"context"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Upload returns the cli.Command that uploads a package or a package
// set directory to the server with packager credentials.
func Upload() cli.Command {
	return cli.Command{
		Name:  "upload",
		Usage: "upload a package or a package set to the server",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "user, u",
				Usage: "packager user (overrides the [packager] section)",
			},
			cli.StringFlag{
				Name:  "password, p",
				Usage: "packager password",
			},
			cli.StringFlag{
				Name:  "project, j",
				Usage: "destination project",
			},
			cli.StringFlag{
				Name:  "store, s",
				Usage: "destination store",
			},
			cli.StringFlag{
				Name:  "file, f",
				Usage: "package file to upload",
			},
			cli.StringFlag{
				Name:  "dir, r",
				Usage: "package set directory to upload",
			},
		},
		Before: mergeBeforeFuncs(
			requireOneFlag("file", "dir"),
			requireFileExists("file", true),
		),
		Action: func(c *cli.Context) error {
			return withClient(c, func(ctx context.Context, cl *client.Client) error {
				overridePackager(c, cl)

				if cl.Conf.Packager.User != "" && cl.Conf.Packager.Password == "" {
					password, err := promptPassword("packager password")
					if err != nil {
						return err
					}
					cl.Conf.Packager.Password = password
				}

				if file := c.String("file"); file != "" {
					return cl.UploadFile(ctx, file)
				}

				return cl.UploadSet(ctx, c.String("dir"))
			})
		},
	}
}

// overridePackager lets command line flags take precedence over the
// [packager] configuration section.
func overridePackager(c *cli.Context, cl *client.Client) {
	if user := c.String("user"); user != "" {
		cl.Conf.Packager.User = user
	}
	if password := c.String("password"); password != "" {
		cl.Conf.Packager.Password = password
	}
	if project := c.String("project"); project != "" {
		cl.Conf.Packager.Project = project
	}
	if store := c.String("store"); store != "" {
		cl.Conf.Packager.Store = store
	}
}
