package client

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/shell"
	"github.com/migasfree/migasfree-client/transport"
)

// Label is the identification record the server keeps per computer.
type Label struct {
	Name     string `json:"name"`
	UUID     string `json:"uuid"`
	Search   string `json:"search"`
	Helpdesk string `json:"helpdesk"`
}

var labelTemplate = template.Must(template.New("label").Parse(`<!doctype html>
<html>
    <head>
        <title>{{.Search}}</title>
        <meta charset="utf-8" />
        <style type="text/css">
        body {
            width: 25em;
            height: 10em;
            border: 1px solid #000;
            padding: .5em 1em;
            font-family: sans-serif;
        }
        h1 {
            margin: 0 .5em;
            text-align: right;
        }
        h2 {
            font-size: 100%;
            text-align: center;
        }
        p {
            border-top: 1px solid #000;
            text-align: center;
        }
        </style>
    </head>
    <body>
        <h1>{{.Search}}</h1>
        <h2>{{.UUID}}</h2>
        <h2>Server: {{.Server}}</h2>
        <p>{{.Helpdesk}}</p>
    </body>
</html>`))

// FetchLabel retrieves the computer identification record.
func (c *Client) FetchLabel(ctx context.Context) (Label, error) {
	if err := c.CheckSignKeys(ctx); err != nil {
		return Label{}, err
	}

	id, err := c.ComputerID(ctx)
	if err != nil {
		return Label{}, err
	}

	var label Label
	if err := c.Request.Post(ctx, transport.EndpointLabel,
		map[string]interface{}{"id": id}, &label); err != nil {
		return Label{}, errors.Wrap(err, "getting label")
	}

	return label, nil
}

// RenderLabel writes the identification label as an HTML page and
// returns its path.
func (c *Client) RenderLabel(label Label) (string, error) {
	data := struct {
		Label
		Server string
	}{Label: label, Server: c.Conf.Client.Server}

	buf := &bytes.Buffer{}
	if err := labelTemplate.Execute(buf, data); err != nil {
		return "", errors.Wrap(err, "rendering label")
	}

	path := filepath.Join(c.Settings.TmpPath, "label.html")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.Wrapf(err, "writing label %s", path)
	}

	return path, nil
}

// ShowLabel fetches the label, renders it, and opens it with the
// desktop handler.
func (c *Client) ShowLabel(ctx context.Context) error {
	label, err := c.FetchLabel(ctx)
	if err != nil {
		return err
	}

	path, err := c.RenderLabel(label)
	if err != nil {
		return err
	}

	if err := shell.RunInteractive(ctx, "xdg-open "+path); err != nil {
		// headless machines still get the file path
		c.say("Label written to %s", path)
	}

	return c.EOT(ctx)
}
