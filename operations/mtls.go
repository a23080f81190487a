package operations

import (
	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/mtls"
	"github.com/migasfree/migasfree-client/settings"
)

// ImportMTLS returns the cli.Command that imports a client certificate
// bundle for mutual TLS against the server.
func ImportMTLS() cli.Command {
	return cli.Command{
		Name:      "import-mtls",
		Usage:     "import a client certificate bundle for mutual TLS",
		ArgsUsage: "TARFILE",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "password, p",
				Usage: "password protecting the bundled .p12 file",
			},
		},
		Before: requireArgs("import-mtls TARFILE", 1),
		Action: func(c *cli.Context) error {
			return mtls.ImportCertificate(c.Args().First(), c.String("password"), settings.New())
		},
	}
}
