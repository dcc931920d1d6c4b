package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestDiffText(t *testing.T) {
	out, err := run(t, "diff", "--original", "testdata/original.json", "--working", "testdata/working.json")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "diff_text", []byte(out))
}

func TestDiffJSON(t *testing.T) {
	out, err := run(t, "diff", "--format", "json", "--original", "testdata/original.json", "--working", "testdata/working.json")
	require.NoError(t, err)

	var preview struct {
		Summary struct {
			Added, Deleted, Modified int
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, 1, preview.Summary.Added)
	assert.Equal(t, 1, preview.Summary.Deleted)
	assert.Equal(t, 2, preview.Summary.Modified)
}

func TestDiffIdentical(t *testing.T) {
	out, err := run(t, "diff", "--original", "testdata/original.json", "--working", "testdata/original.json")
	require.NoError(t, err)
	assert.Equal(t, "no changes\n", out)
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "diff", "--original", "testdata/original.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = run(t, "diff", "--original", "testdata/missing.json", "--working", "testdata/working.json")
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))

	_, err = run(t, "diff", "--format", "yaml", "--original", "testdata/original.json", "--working", "testdata/working.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestApplyAgainstLocalStore(t *testing.T) {
	dir := t.TempDir()
	local := []string{"--store", "local", "--local-path", dir}

	out, err := run(t, append(local, "apply", "--original", "testdata/empty.json", "--working", "testdata/original.json")...)
	require.NoError(t, err)
	assert.Contains(t, out, "3 applied, 0 failed")

	out, err = run(t, append(local, "apply", "--original", "testdata/original.json", "--working", "testdata/working.json")...)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted  2")
	assert.Contains(t, out, "added    4")
	assert.Contains(t, out, "4 applied, 0 failed")

	out, err = run(t, append(local, "scan", "--format", "json")...)
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[0]["id"])
	assert.Equal(t, 10.0, rows[0]["value"])
	assert.Equal(t, "x", rows[1]["note"], "SET-only updates keep removed columns")
	assert.Equal(t, "4", rows[2]["id"])
}

func TestApplyDryRun(t *testing.T) {
	out, err := run(t, "apply", "--dry-run", "--original", "testdata/original.json", "--working", "testdata/working.json")
	require.NoError(t, err)
	assert.Contains(t, out, "1 added, 1 deleted, 2 modified")
}
