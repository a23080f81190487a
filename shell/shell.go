/*
Package shell runs shell commands and interpreter snippets for the
rest of the client: package manager invocations, property and fault
evaluation code shipped by the server, and the pre-/post-sync hook
scripts. Execution goes through jasper commands with context-based
timeouts.
*/
package shell

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/jasper"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds the execution of server-provided code
// snippets.
const DefaultTimeout = 60 * time.Second

// Result captures the outcome of one command execution.
type Result struct {
	OK     bool
	Stdout string
	Stderr string

	// Err is the underlying execution error when OK is false.
	Err error
}

// CombinedOutput returns stderr when present, otherwise stdout.
func (r Result) CombinedOutput() string {
	if r.Stderr != "" {
		return r.Stderr
	}

	return r.Stdout
}

// Run executes script through the platform shell, capturing output.
func Run(ctx context.Context, script string) Result {
	return run(ctx, shellArgs(script))
}

// RunInteractive executes script through the platform shell with the
// process's own standard streams, for package manager transactions
// that may prompt the operator.
func RunInteractive(ctx context.Context, script string) error {
	cmd := jasper.NewCommand().
		Add(shellArgs(script)).
		SetOutputWriter(os.Stdout).
		SetErrorWriter(os.Stderr)

	grip.Debug(message.Fields{"message": "running interactive command", "cmd": script})

	return errors.Wrapf(cmd.Run(ctx), "running '%s'", script)
}

// RunCode writes a server-provided snippet to a temporary file and
// executes it with the named interpreter. Languages outside the
// platform allow-list degrade gracefully to a no-op.
func RunCode(ctx context.Context, language, code string) Result {
	code = strings.TrimSpace(strings.ReplaceAll(code, "\r", ""))

	interpreter, ok := resolveInterpreter(language)
	if !ok {
		grip.Warning(message.Fields{
			"message":  "language not allowed, skipping code",
			"language": language,
		})
		return Result{OK: true}
	}

	file, err := os.CreateTemp("", "migasfree-code-")
	if err != nil {
		return Result{Err: errors.Wrap(err, "creating temporary file")}
	}
	defer func() { _ = os.Remove(file.Name()) }()

	if _, err := file.WriteString(code); err != nil {
		_ = file.Close()
		return Result{Err: errors.Wrap(err, "writing code")}
	}
	if err := file.Close(); err != nil {
		return Result{Err: errors.Wrap(err, "closing code file")}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	return run(ctx, append(interpreter, file.Name()))
}

func run(ctx context.Context, args []string) Result {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := jasper.NewCommand().
		Add(args).
		SetOutputWriter(utility.NopWriteCloser(stdout)).
		SetErrorWriter(utility.NopWriteCloser(stderr))

	grip.Debug(message.Fields{"message": "running command", "args": args})

	err := cmd.Run(ctx)

	result := Result{
		OK:     err == nil,
		Stdout: strings.TrimRight(stdout.String(), "\n"),
		Stderr: strings.TrimRight(stderr.String(), "\n"),
		Err:    err,
	}

	grip.DebugWhen(err != nil, message.WrapError(err, message.Fields{
		"message": "command failed",
		"args":    args,
		"stderr":  result.Stderr,
	}))

	return result
}

func shellArgs(script string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", script}
	}

	return []string{"/bin/bash", "-c", script}
}

// resolveInterpreter maps a language name from a server-provided
// property or fault definition to an interpreter invocation.
func resolveInterpreter(language string) ([]string, bool) {
	switch strings.ToLower(language) {
	case "bash", "sh":
		if runtime.GOOS == "windows" {
			return nil, false
		}
		return []string{"/bin/bash"}, true
	case "python":
		if runtime.GOOS == "windows" {
			return []string{"python"}, true
		}
		return []string{"python3"}, true
	case "perl":
		return []string{"perl"}, true
	case "php":
		return []string{"php"}, true
	case "ruby":
		return []string{"ruby"}, true
	case "cmd":
		if runtime.GOOS != "windows" {
			return nil, false
		}
		return []string{"cmd", "/C"}, true
	case "powershell":
		if runtime.GOOS != "windows" {
			return nil, false
		}
		return []string{"powershell", "-File"}, true
	default:
		return nil, false
	}
}

// Which reports whether the named tool is resolvable on PATH. Used by
// package manager detection.
func Which(ctx context.Context, tool string) bool {
	if runtime.GOOS == "windows" {
		return Run(ctx, "where "+tool).OK
	}

	return Run(ctx, "command -v "+tool).OK
}
