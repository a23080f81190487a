package operations

import (
	"flag"
	"testing"

	"github.com/mongodb/grip"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli"
)

func init() {
	grip.SetName("migasfree.operations.test")
}

// CommandsSuite provides a group of tests of the entry points and
// command wrappers for the command-line interface.
type CommandsSuite struct {
	suite.Suite
}

func TestCommandSuite(t *testing.T) {
	suite.Run(t, new(CommandsSuite))
}

func (s *CommandsSuite) TestRegisterCommandObjectAttributes() {
	cmd := Register()
	s.Equal("register", cmd.Name)
	s.Len(cmd.Flags, 1)
}

func (s *CommandsSuite) TestSyncCommandObjectAttributes() {
	cmd := Sync()
	s.Equal("sync", cmd.Name)
	s.Contains(cmd.Aliases, "update")
	s.Len(cmd.Flags, 1)
}

func (s *CommandsSuite) TestPackageCommandObjectAttributes() {
	s.Equal("search", Search().Name)
	s.Equal("install", Install().Name)

	purge := Purge()
	s.Equal("purge", purge.Name)
	s.Contains(purge.Aliases, "remove")
}

func (s *CommandsSuite) TestTagsCommandObjectAttributes() {
	cmd := Tags()
	s.Equal("tags", cmd.Name)
	s.Len(cmd.Flags, 3)
}

func (s *CommandsSuite) TestUploadCommandObjectAttributes() {
	cmd := Upload()
	s.Equal("upload", cmd.Name)
	s.Len(cmd.Flags, 6)
	s.NotNil(cmd.Before)
}

func (s *CommandsSuite) TestRemainingCommandNames() {
	s.Equal("traits", Traits().Name)
	s.Equal("label", Label().Name)
	s.Equal("info", Info().Name)
	s.Equal("remove-keys", RemoveKeys().Name)
	s.Equal("import-mtls", ImportMTLS().Name)
	s.Equal("version", Version().Name)
}

func (s *CommandsSuite) TestVersionInfoString() {
	out := versionInfo{Version: "5.0", Build: "abc123"}.String()
	s.Contains(out, "5.0")
	s.Contains(out, "abc123")
}

func makeContext(args []string, stringFlags ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, name := range stringFlags {
		set.String(name, "", "")
	}
	_ = set.Parse(args)

	return cli.NewContext(nil, set, nil)
}

func (s *CommandsSuite) TestRequireArgs() {
	check := requireArgs("search PATTERN", 1)
	s.Error(check(makeContext(nil)))
	s.NoError(check(makeContext([]string{"vim"})))
}

func (s *CommandsSuite) TestRequireStringFlag() {
	check := requireStringFlag("store")
	s.Error(check(makeContext(nil, "store")))
	s.NoError(check(makeContext([]string{"-store", "testing"}, "store")))
}

func (s *CommandsSuite) TestRequireOneFlag() {
	check := requireOneFlag("file", "dir")
	s.Error(check(makeContext(nil, "file", "dir")))
	s.Error(check(makeContext([]string{"-file", "a", "-dir", "b"}, "file", "dir")))
	s.NoError(check(makeContext([]string{"-file", "a"}, "file", "dir")))
}

func (s *CommandsSuite) TestRequireFileExists() {
	s.NoError(requireFileExists("file", true)(makeContext(nil, "file")))
	s.Error(requireFileExists("file", false)(makeContext(nil, "file")))
	s.Error(requireFileExists("file", true)(makeContext([]string{"-file", "/no/such/file"}, "file")))
}

func (s *CommandsSuite) TestMergeBeforeFuncs() {
	merged := mergeBeforeFuncs(
		requireArgs("x ARG", 1),
		requireStringFlag("store"),
	)
	s.Error(merged(makeContext(nil, "store")))
	s.NoError(merged(makeContext([]string{"-store", "s", "arg"}, "store")))
}
