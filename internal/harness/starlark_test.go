package harness_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/harness"
	"github.com/roach88/attest/internal/script"
)

func write(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func runStarlark(t *testing.T, path string) *harness.Result {
	t.Helper()
	result, err := harness.NewContext(engine.New(), path).Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestStarlark_Scenario(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tests")
	write(t, root, "ok.star", `
x = 1 + 2
def helper():
    return x
`)
	write(t, root, "bad.star", `
def f():
    fail("thrown")

f = attr(f, "test")
`)

	results, err := harness.NewWalker(engine.New(), harness.Options{}).Walk(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 2)

	bad, ok := results[0], results[1]
	assert.Equal(t, "ok.star", ok.RelPath)
	assert.True(t, ok.Pass)

	assert.Equal(t, "bad.star", bad.RelPath)
	require.Len(t, bad.Errors, 1)
	assert.Equal(t, "function 'f'", bad.Errors[0].Message)
	require.NotNil(t, bad.Errors[0].Cause)
	assert.Contains(t, bad.Errors[0].Cause.Describe(), "thrown")
}

func TestStarlark_ExpectedErrorNeverThrows(t *testing.T) {
	path := write(t, t.TempDir(), "bad.star", `
def g():
    pass

g = attr(g, "test", "err")
`)
	result := runStarlark(t, path)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Expected error", result.Errors[0].Message)
	assert.Equal(t, "function 'g'", result.Errors[0].Label)
}

func TestStarlark_ExpectedErrorThrows(t *testing.T) {
	path := write(t, t.TempDir(), "good.star", `
def divide(a, b):
    return a // b

def rejects_zero():
    divide(1, 0)

rejects_zero = attr(rejects_zero, "test", "err")
`)
	result := runStarlark(t, path)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestStarlark_AttributeValidation(t *testing.T) {
	path := write(t, t.TempDir(), "attrs.star", `
def f():
    pass

def g():
    pass

n = attr(42, "test")
f = attr(f, "bogus")
g = attr(g, "test", 42)
`)
	result := runStarlark(t, path)

	var msgs []string
	for _, e := range result.Errors {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{
		"Unknown attribute for variable 'f': 'bogus'",
		"Unexpected test attribute value: 42, function: 'g'",
		"'n' is int, but has test attribute",
	}, msgs)
}

func TestStarlark_ImportOrdering(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.star", `
base = 10
`)
	write(t, dir, "lib/b.star", `
derived = base * 2
`)
	path := write(t, dir, "main.star", `
__meta__ = {"imports": ["a.star", "lib/b.star"]}

total = base + derived

def sees_imports():
    if total != 30:
        fail("total is %d" % total)

sees_imports = attr(sees_imports, "test")
`)
	result := runStarlark(t, path)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestStarlark_ImportFailureAttributed(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "broken.star", `
fail("cannot load")
`)
	write(t, dir, "unparseable.star", `
def (
`)
	path := write(t, dir, "main.star", `
__meta__ = {"imports": ["broken.star", "unparseable.star"]}

ran = True
`)
	result := runStarlark(t, path)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, "import unparseable.star", result.Errors[0].Message)
	assert.Equal(t, script.KindParse, result.Errors[0].Cause.Kind)
	assert.Equal(t, "import broken.star", result.Errors[1].Message)
	assert.Equal(t, script.KindRuntime, result.Errors[1].Cause.Kind)
}

func TestStarlark_MalformedImportsIsFatal(t *testing.T) {
	path := write(t, t.TempDir(), "main.star", `
__meta__ = {"imports": "a.star"}
`)
	_, err := harness.NewContext(engine.New(), path).Run(context.Background())

	var ie *harness.ImportsError
	require.ErrorAs(t, err, &ie)
}

func TestStarlark_RootErrorKeepsEarlierDefinitions(t *testing.T) {
	path := write(t, t.TempDir(), "main.star", `
def t():
    pass

t = attr(t, "test")

fail("root broke")
`)
	result := runStarlark(t, path)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "executing "+path, result.Errors[0].Message)
	assert.Contains(t, result.Errors[0].Cause.Message, "root broke")
}

func TestStarlark_InputRejectedInTests(t *testing.T) {
	path := write(t, t.TempDir(), "main.star", `
def asks():
    input("name")

asks = attr(asks, "test")
`)
	result := runStarlark(t, path)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Cause.Message, "cannot use standard input during test")
}

func TestStarlark_Timeout(t *testing.T) {
	root := t.TempDir()
	write(t, root, "spin.star", `
def forever():
    while True:
        pass

forever = attr(forever, "test")
`)

	results, err := harness.NewWalker(engine.New(), harness.Options{Timeout: 50 * time.Millisecond}).
		Walk(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Errors, 1)

	cause := results[0].Errors[0].Cause
	require.NotNil(t, cause)
	assert.Equal(t, script.KindTimeout, cause.Kind)
	assert.Contains(t, cause.Message, "exceeded timeout")
}

func TestStarlark_StepQuotaNotAcceptedAsExpectedError(t *testing.T) {
	path := write(t, t.TempDir(), "spin.star", `
def forever():
    while True:
        pass

forever = attr(forever, "test", "err")
`)

	eng := engine.New(engine.WithMaxSteps(10000))
	result, err := harness.NewContext(eng, path).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, "function 'forever'", result.Errors[0].Message)
	assert.Equal(t, script.KindTimeout, result.Errors[0].Cause.Kind)
	assert.True(t, engine.IsStepsExceededError(result.Errors[0].Cause))
	assert.Equal(t, "Expected error", result.Errors[1].Message)
}
