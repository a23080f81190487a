package operations

import (
	"os"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func requireFileExists(name string, optional bool) cli.BeforeFunc {
	return func(c *cli.Context) error {
		path := c.String(name)
		if path == "" {
			if !optional {
				return errors.Errorf("flag '--%s' was not specified", name)
			}
			return nil
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return errors.Errorf("file '%s' does not exist", path)
		}

		return nil
	}
}

func requireStringFlag(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if c.String(name) == "" {
			return errors.Errorf("flag '--%s' was not specified", name)
		}
		return nil
	}
}

func requireArgs(usage string, min int) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if c.NArg() < min {
			return errors.Errorf("usage: %s", usage)
		}
		return nil
	}
}

func requireOneFlag(names ...string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		set := 0
		for _, name := range names {
			if c.String(name) != "" {
				set++
			}
		}
		if set != 1 {
			return errors.Errorf("specify exactly one of: --%v", names)
		}
		return nil
	}
}

func mergeBeforeFuncs(ops ...func(c *cli.Context) error) cli.BeforeFunc {
	return func(c *cli.Context) error {
		catcher := grip.NewBasicCatcher()

		for _, op := range ops {
			catcher.Add(op(c))
		}

		return catcher.Resolve()
	}
}
