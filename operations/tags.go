package operations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli"

	"github.com/migasfree/migasfree-client/client"
)

// Tags returns the cli.Command that inspects or changes the tags
// assigned to this computer.
func Tags() cli.Command {
	return cli.Command{
		Name:  "tags",
		Usage: "get, set, or communicate the tags assigned to this computer",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "get, g",
				Usage: "show the assigned and available tags",
			},
			cli.BoolFlag{
				Name:  "set, s",
				Usage: "assign the given tags and apply the server rules",
			},
			cli.BoolFlag{
				Name:  "communicate, c",
				Usage: "assign the given tags without applying rules",
			},
		},
		Action: func(c *cli.Context) error {
			switch {
			case c.Bool("set"):
				return setTags(c)
			case c.Bool("communicate"):
				return communicateTags(c)
			default:
				return getTags(c)
			}
		},
	}
}

func getTags(c *cli.Context) error {
	return withClient(c, func(ctx context.Context, cl *client.Client) error {
		assigned, err := cl.AssignedTags(ctx)
		if err != nil {
			return err
		}

		available, err := cl.AvailableTags(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("assigned: %s\n", strings.Join(assigned, " "))

		prefixes := make([]string, 0, len(available))
		for prefix := range available {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)

		fmt.Println("available:")
		for _, prefix := range prefixes {
			fmt.Printf("  %s: %s\n", prefix, strings.Join(available[prefix], " "))
		}

		return nil
	})
}

func setTags(c *cli.Context) error {
	tags, err := client.SanitizeTags(c.Args())
	if err != nil {
		return err
	}

	return withLockedClient(c, func(ctx context.Context, cl *client.Client) error {
		return cl.SetTags(ctx, tags)
	})
}

func communicateTags(c *cli.Context) error {
	tags, err := client.SanitizeTags(c.Args())
	if err != nil {
		return err
	}

	return withClient(c, func(ctx context.Context, cl *client.Client) error {
		_, err := cl.CommunicateTags(ctx, tags)

		return err
	})
}
