package shell

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-only test")
	}

	result := Run(context.Background(), "echo hello; echo oops >&2")
	require.True(t, result.OK)
	assert.Equal(t, "hello", result.Stdout)
	assert.Equal(t, "oops", result.Stderr)
	assert.Equal(t, "oops", result.CombinedOutput())
}

func TestRunReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-only test")
	}

	result := Run(context.Background(), "exit 3")
	assert.False(t, result.OK)
	assert.Error(t, result.Err)
}

func TestRunCodeExecutesAllowedLanguage(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-only test")
	}

	result := RunCode(context.Background(), "bash", "echo trait-value\r\n")
	require.True(t, result.OK)
	assert.Equal(t, "trait-value", result.Stdout)
}

func TestRunCodeSkipsUnknownLanguage(t *testing.T) {
	result := RunCode(context.Background(), "brainfuck", "+++")
	assert.True(t, result.OK)
	assert.Empty(t, result.Stdout)
}

func TestWhich(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-only test")
	}

	assert.True(t, Which(context.Background(), "ls"))
	assert.False(t, Which(context.Background(), "definitely-not-a-tool-xyz"))
}
