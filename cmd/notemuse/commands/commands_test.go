package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const savedResponse = `STEP1: Fragment Analysis
- a whale
**FINAL_OUTPUT**
Logline: A keeper lights a whale home.
Characters:
1. Mara`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--quiet"))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default; cobra keeps parsed values
// between executions.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

func TestSegmentCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response.txt")
	require.NoError(t, os.WriteFile(path, []byte(savedResponse), 0o600))

	out, err := execute(t, "", "segment", path, "--format", "json")
	require.NoError(t, err)

	var rec struct {
		Kind   string `json:"kind"`
		Report struct {
			Result struct {
				Strategy string `json:"strategy"`
			} `json:"result"`
			Output struct {
				Text string `json:"text"`
			} `json:"output"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rec), out)
	assert.Equal(t, "segment", rec.Kind)
	assert.Equal(t, "exact", rec.Report.Result.Strategy)
	assert.True(t, strings.HasPrefix(rec.Report.Output.Text, "Logline: A keeper"))
}

func TestSegmentCommand_Stdin(t *testing.T) {
	out, err := execute(t, savedResponse, "segment", "-", "--thinking")
	require.NoError(t, err)
	assert.Contains(t, out, "--- final ---\nLogline: A keeper lights a whale home.")
	assert.Contains(t, out, "--- thinking ---")
}

func TestSegmentCommand_MaxLength(t *testing.T) {
	out, err := execute(t, savedResponse, "segment", "--max-length", "20", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "was_truncated: true")
	assert.Contains(t, out, "kind: segment")
}

func TestSegmentCommand_Errors(t *testing.T) {
	_, err := execute(t, "  \n", "segment")
	assert.Error(t, err, "blank input")

	_, err = execute(t, savedResponse, "segment", "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "", "segment", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestOnceCommand_RequiresVault(t *testing.T) {
	t.Setenv("OBSIDIAN_REPO_OWNER", "")
	t.Setenv("OBSIDIAN_REPO_NAME", "")
	t.Setenv("NOTEMUSE_GITHUB_OWNER", "")
	t.Setenv("NOTEMUSE_GITHUB_REPO", "")

	_, err := execute(t, "", "once", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "notemuse "))
}
