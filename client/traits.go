package client

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/transport"
)

// Traits evaluates the server-defined property scripts locally and
// prints the resulting attribute set without uploading it.
func (c *Client) Traits(ctx context.Context) error {
	if err := c.CheckSignKeys(ctx); err != nil {
		return err
	}

	id, err := c.ComputerID(ctx)
	if err != nil {
		return err
	}

	var properties []property
	if err := c.Request.Post(ctx, transport.EndpointProperties,
		map[string]interface{}{"id": id}, &properties); err != nil {
		return errors.Wrap(err, "getting properties")
	}

	prefixes := make([]string, 0, len(properties))
	values := make(map[string]string, len(properties))
	for _, item := range properties {
		res := c.evalCode(ctx, item.Language, item.Code)
		prefixes = append(prefixes, item.Prefix)
		values[item.Prefix] = strings.TrimSpace(res.Stdout)
	}

	sort.Strings(prefixes)

	for _, prefix := range prefixes {
		fmt.Printf("%s: %s\n", prefix, values[prefix])
	}

	return c.EOT(ctx)
}
