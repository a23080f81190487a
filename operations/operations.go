/*
Package operations contains the integration between the core migasfree
client functionality and the command line interface.

The public functions in this package return cli.Command objects that
are registered on the application in cmd/migasfree. Business logic
lives in the client package; the functions here parse flags, acquire
the per-command lock where an operation mutates the package system,
and translate results into process output.
*/
package operations

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/migasfree/migasfree-client/client"
)

func clientOptions(c *cli.Context) client.Options {
	return client.Options{
		Debug: c.GlobalBool("debug"),
		Quiet: c.GlobalBool("quiet"),
	}
}

// withClient builds a client for the duration of one command. The
// context cancels on SIGINT/SIGTERM so held locks and transports are
// released before exit.
func withClient(c *cli.Context, op func(ctx context.Context, cl *client.Client) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cl, err := client.New(ctx, clientOptions(c))
	if err != nil {
		return err
	}
	defer cl.Close()

	return op(ctx, cl)
}

// withLockedClient additionally holds the pid lock, for operations
// that mutate the package system.
func withLockedClient(c *cli.Context, op func(ctx context.Context, cl *client.Client) error) error {
	return withClient(c, func(ctx context.Context, cl *client.Client) error {
		lock := cl.Settings.LockFile(client.CommandName)
		if err := client.AcquireLock(lock); err != nil {
			return err
		}
		defer client.ReleaseLock(lock)

		return op(ctx, cl)
	})
}

// promptPassword reads a password from the terminal without echo,
// falling back to a plain line read when stdin is not a terminal.
func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)

	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()

		return string(raw), errors.Wrap(err, "reading password")
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", errors.Wrap(err, "reading password")
	}

	return strings.TrimSpace(line), nil
}
