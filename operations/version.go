package operations

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	migasfree "github.com/migasfree/migasfree-client"
)

type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
}

func (v versionInfo) String() string {
	return strings.Join([]string{
		"migasfree client:",
		"\n\t", "Version: ", v.Version,
		"\n\t", "Build: ", v.Build,
	}, "")
}

// Version returns the cli.Command that prints version information.
func Version() cli.Command {
	return cli.Command{
		Name:  "version",
		Usage: "prints version information",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "json",
				Usage: "specify this option to output data as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			info := versionInfo{
				Version: migasfree.ClientVersion,
				Build:   migasfree.BuildRevision,
			}

			if c.Bool("json") {
				out, err := json.MarshalIndent(info, "", "   ")
				if err != nil {
					return errors.Wrap(err, "problem marshaling json")
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Println(info)
			return nil
		},
	}
}
