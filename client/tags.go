package client

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/transport"
)

// TagRules is the server's answer to a tag change: the package moves
// needed to converge the computer on its new tag set.
type TagRules struct {
	Preinstall []string `json:"preinstall"`
	Install    []string `json:"install"`
	Remove     []string `json:"remove"`
}

// SanitizeTags validates that every tag has the prefix-value form and
// strips stray quotes.
func SanitizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ReplaceAll(tag, `"`, "")
		if tag == "" {
			continue
		}

		if !strings.Contains(tag, "-") {
			return nil, errors.Errorf(`tag %q must be in "prefix-value" format`, tag)
		}

		out = append(out, tag)
	}

	return out, nil
}

// AssignedTags fetches the tags currently assigned to this computer.
func (c *Client) AssignedTags(ctx context.Context) ([]string, error) {
	if err := c.CheckSignKeys(ctx); err != nil {
		return nil, err
	}

	id, err := c.ComputerID(ctx)
	if err != nil {
		return nil, err
	}

	var tags []string
	if err := c.Request.Post(ctx, transport.EndpointAssignedTags,
		map[string]interface{}{"id": id}, &tags); err != nil {
		return nil, errors.Wrap(err, "getting assigned tags")
	}

	return tags, nil
}

// AvailableTags fetches the tags this computer may select, grouped by
// prefix.
func (c *Client) AvailableTags(ctx context.Context) (map[string][]string, error) {
	if err := c.CheckSignKeys(ctx); err != nil {
		return nil, err
	}

	id, err := c.ComputerID(ctx)
	if err != nil {
		return nil, err
	}

	var tags map[string][]string
	if err := c.Request.Post(ctx, transport.EndpointAvailableTags,
		map[string]interface{}{"id": id}, &tags); err != nil {
		return nil, errors.Wrap(err, "getting available tags")
	}

	return tags, nil
}

// CommunicateTags stores the tag set at the server and returns the
// resulting rules without applying them.
func (c *Client) CommunicateTags(ctx context.Context, tags []string) (TagRules, error) {
	if err := c.CheckSignKeys(ctx); err != nil {
		return TagRules{}, err
	}

	id, err := c.ComputerID(ctx)
	if err != nil {
		return TagRules{}, err
	}

	payload := map[string]interface{}{"id": id, "tags": tags}

	var rules TagRules
	if err := c.Request.Post(ctx, transport.EndpointUploadTags, payload, &rules); err != nil {
		return TagRules{}, errors.Wrap(err, "setting tags")
	}

	c.say("Tags set: %s", strings.Join(tags, " "))

	return rules, nil
}

// SetTags stores the tag set and converges the computer on it: a full
// synchronization followed by the rule's package moves.
func (c *Client) SetTags(ctx context.Context, tags []string) error {
	rules, err := c.CommunicateTags(ctx, tags)
	if err != nil {
		return err
	}

	return c.applyRules(ctx, rules)
}

func (c *Client) applyRules(ctx context.Context, rules TagRules) error {
	if err := c.Sync(ctx, false); err != nil {
		return err
	}

	if len(rules.Remove) > 0 {
		if err := c.PMS.RemoveSilent(ctx, rules.Remove); err != nil {
			c.fail(errors.Wrap(err, "error uninstalling packages").Error())
		}
	}

	if len(rules.Preinstall) > 0 {
		c.installMandatory(ctx, rules.Preinstall)
	}

	c.cleanPMSCache(ctx)

	if len(rules.Install) > 0 {
		c.installMandatory(ctx, rules.Install)
	}

	if !c.pmsOK {
		return errors.New("package operations failed while applying tag rules")
	}

	return nil
}
