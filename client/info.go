package client

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Info prints the computer identification, either the full record or
// a single key (id, uuid, name, search). Quiet mode emits raw
// tab-separated values for scripting.
func (c *Client) Info(ctx context.Context, key string) error {
	label, err := c.FetchLabel(ctx)
	if err != nil {
		return err
	}

	id, err := c.ComputerID(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "":
		if c.quiet {
			fmt.Printf("%d\t%s\t%s\t%s\n", id, label.Name, label.Search, label.UUID)
		} else {
			fmt.Printf("ID: %d\nNAME: %s\nSEARCH: %s\nUUID: %s\n",
				id, label.Name, label.Search, label.UUID)
		}
	case "id":
		fmt.Println(id)
	case "uuid":
		fmt.Println(label.UUID)
	case "name":
		fmt.Println(label.Name)
	case "search":
		fmt.Println(label.Search)
	default:
		return errors.Errorf("unknown info key '%s' (expected id, uuid, name, or search)", key)
	}

	return c.EOT(ctx)
}
