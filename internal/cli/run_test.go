package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWith executes the run command with a scripted input source.
func runWith(t *testing.T, input func(string) (string, error), args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Input:       input,
	})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunCommand_MissingFilename(t *testing.T) {
	_, stderr, err := execute(t, "run")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Equal(t, "Filename not provided\n", stderr)
}

func TestRunCommand_PrintsOutput(t *testing.T) {
	dir := writeTree(t, map[string]string{"hello.star": `print("hello, world")`})

	stdout, stderr, err := execute(t, "run", filepath.Join(dir, "hello.star"))
	require.NoError(t, err)
	assert.Equal(t, "hello, world\n", stdout)
	assert.Empty(t, stderr)
}

func TestRunCommand_ScriptError(t *testing.T) {
	dir := writeTree(t, map[string]string{"boom.star": `fail("kaboom")`})

	_, stderr, err := execute(t, "run", "--no-color", filepath.Join(dir, "boom.star"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, stderr, "kaboom")
	assert.NotContains(t, stderr, "\x1b[")
}

func TestRunCommand_ParseError(t *testing.T) {
	dir := writeTree(t, map[string]string{"bad.star": "def (\n"})

	_, stderr, err := execute(t, "run", filepath.Join(dir, "bad.star"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "bad.star:1:")
}

func TestRunCommand_UnreadableFile(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.star"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, IsReported(err))
}

func TestRunCommand_Input(t *testing.T) {
	dir := writeTree(t, map[string]string{"greet.star": `
name = input("name? ")
print("hi " + name)
`})

	var prompts []string
	stdout, _, err := runWith(t, func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "Ada", nil
	}, filepath.Join(dir, "greet.star"))
	require.NoError(t, err)
	assert.Equal(t, "hi Ada\n", stdout)
	assert.Equal(t, []string{"name? "}, prompts)
}

func TestRunCommand_InputError(t *testing.T) {
	dir := writeTree(t, map[string]string{"greet.star": `name = input()`})

	_, stderr, err := runWith(t, func(string) (string, error) {
		return "", errors.New("terminal closed")
	}, filepath.Join(dir, "greet.star"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "terminal closed")
}

func TestRunCommand_PipedInput(t *testing.T) {
	dir := writeTree(t, map[string]string{"echo.star": `
first = input("> ")
second = input("> ")
print(first + "|" + second)
`})

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(bytes.NewBufferString("one\ntwo"))
	cmd.SetArgs([]string{"run", filepath.Join(dir, "echo.star")})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "> > one|two\n", out.String())
}

func TestTerminalInput_EOF(t *testing.T) {
	read, done := terminalInput(bytes.NewBufferString(""), &bytes.Buffer{})
	defer done()
	_, err := read("")
	assert.Error(t, err)
}
