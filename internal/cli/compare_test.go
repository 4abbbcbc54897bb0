package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareCommand_IdenticalRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	root := writeTree(t, map[string]string{"ok.star": okScript, "bad.star": badScript})

	first := recordTestRun(t, db, root)
	second := recordTestRun(t, db, root)

	stdout, _, err := execute(t, "compare", "--db", db, first, second)
	require.NoError(t, err, stdout)
	assert.Equal(t, "= bad.star\n= ok.star\n\nruns are identical\n", stdout)
}

func TestCompareCommand_ChangedRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	root := writeTree(t, map[string]string{"ok.star": okScript, "bad.star": badScript})

	first := recordTestRun(t, db, root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.star"), []byte(okScript), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "ok.star")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.star"), []byte(okScript), 0o644))
	second := recordTestRun(t, db, root)

	stdout, _, err := execute(t, "compare", "--db", db, first, second)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "~ bad.star\n- ok.star\n+ new.star\n\n3 of 3 files differ\n", stdout)
}

func TestCompareCommand_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	root := writeTree(t, map[string]string{"ok.star": okScript})
	first := recordTestRun(t, db, root)

	stdout, _, err := execute(t, "--format", "json", "compare", "--db", db, first, "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeTestResponse(t, stdout)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunNotFound, resp.Error.Code)
}
