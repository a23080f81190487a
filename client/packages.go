package client

import (
	"context"
	"strings"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Search looks pattern up in the configured repositories.
func (c *Client) Search(ctx context.Context, pattern string) error {
	return c.PMS.Search(ctx, pattern)
}

// Install installs packages interactively and reports the resulting
// software diff to the server.
func (c *Client) Install(ctx context.Context, packages []string) error {
	return c.packageOperation(ctx, packages, "Installing package: %s", c.PMS.Install)
}

// Purge removes packages interactively and reports the resulting
// software diff to the server.
func (c *Client) Purge(ctx context.Context, packages []string) error {
	return c.packageOperation(ctx, packages, "Removing package: %s", c.PMS.Remove)
}

func (c *Client) packageOperation(ctx context.Context, packages []string,
	banner string, op func(context.Context, string) error) error {
	if err := c.CheckSignKeys(ctx); err != nil {
		return err
	}

	before, err := c.PMS.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "querying installed software")
	}

	history := softwareHistory(c.Settings.SoftwareFile, before)

	catcher := grip.NewBasicCatcher()
	for _, pkg := range packages {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}

		c.say(banner, pkg)
		catcher.Add(op(ctx, pkg))
	}

	if err := c.uploadSoftware(ctx, before, history); err != nil {
		catcher.Add(err)
	}

	catcher.Add(c.EOT(ctx))

	return catcher.Resolve()
}
