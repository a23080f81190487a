package main

import (
	"os"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	"github.com/urfave/cli"

	migasfree "github.com/migasfree/migasfree-client"
	"github.com/migasfree/migasfree-client/operations"
)

func main() {
	// this is where the main action of the program starts. The
	// command line interface is managed by the cli package and
	// its objects/structures. This, plus the basic configuration
	// in buildApp(), is all that's necessary for bootstrapping the
	// environment.
	app := buildApp()
	err := app.Run(os.Args)
	grip.EmergencyFatal(err)
}

// we build the app outside of main so that we can test the operation
func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = "migasfree"
	app.Usage = "systems management client"
	app.Version = migasfree.ClientVersion

	// Register sub-commands here.
	app.Commands = []cli.Command{
		operations.Register(),
		operations.Sync(),
		operations.Search(),
		operations.Install(),
		operations.Purge(),
		operations.Traits(),
		operations.Label(),
		operations.Version(),
		operations.Tags(),
		operations.Upload(),
		operations.Info(),
		operations.RemoveKeys(),
		operations.ImportMTLS(),
	}

	// These are global options. Use this to configure logging or
	// other options independent from specific sub commands.
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "level",
			Value: "info",
			Usage: "Specify lowest visible loglevel as string: 'emergency|alert|critical|error|warning|notice|info|debug'",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "keep temporary files and log operation details",
		},
		cli.BoolFlag{
			Name:  "quiet, q",
			Usage: "suppress console output",
		},
	}

	app.Before = func(c *cli.Context) error {
		l := c.String("level")
		if c.Bool("debug") {
			l = "debug"
		}

		return loggingSetup(app.Name, l)
	}

	return app
}

// logging setup is separate to make it unit testable
func loggingSetup(name, l string) error {
	if err := grip.SetSender(send.MakeErrorLogger()); err != nil {
		return err
	}
	grip.SetName(name)

	sender := grip.GetSender()
	info := sender.Level()
	info.Threshold = level.FromString(l)

	return sender.SetLevel(info)
}
