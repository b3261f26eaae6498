package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyDDI-Intelligence/internal/testutil"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a YAML config whose log goes to stderr at error level.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	return testutil.WriteFile(t, filepath.Join(t.TempDir(), "ddichecker.yaml"),
		"log:\n  level: error\n  output: stderr\n"+body)
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "ddichecker", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"run", "similarity", "reduce", "profile", "predict", "summarize", "annotate", "validate", "cache", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "log-level", "log-format", "verbose", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %q", name)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ddichecker "+Version)
	assert.Contains(t, out, "commit: "+GitCommit)
}

func TestRunCmd_RequiredFlags(t *testing.T) {
	cfg := writeConfig(t, "")
	_, _, err := execute(t, "--config", cfg, "run", "-o", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input-file")
}

func TestRunCmd_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, "data:\n  reference_dir: "+filepath.Join(dir, "absent")+"\n")
	input := testutil.WriteFile(t, filepath.Join(dir, "input.txt"), "Q1\tCCO\tQ2\tCN\n")

	_, _, err := execute(t, "--config", cfg, "run", "-o", filepath.Join(dir, "out"), "-i", input)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))
	assert.Contains(t, err.Error(), "data.reference_dir")
}

func TestPersistentPreRun_ConfigNotFound(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "validate")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))
}

func TestPersistentPreRun_InvalidLogLevel(t *testing.T) {
	cfg := writeConfig(t, "")
	_, _, err := execute(t, "--config", cfg, "--log-level", "loud", "validate")
	require.Error(t, err)
}

func TestPrintError_ShowsCode(t *testing.T) {
	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	PrintError(cmd, errors.New(errors.ErrCodeArtifactNotFound, "model.pca"))
	assert.Contains(t, stderr.String(), "Error ["+string(errors.ErrCodeArtifactNotFound)+"]")
	assert.Contains(t, stderr.String(), "model.pca")

	stderr.Reset()
	PrintError(cmd, nil)
	assert.Empty(t, stderr.String())
}

func TestRenderReports(t *testing.T) {
	clean := ddi.NewStageReport("reduce")
	clean.InputRows, clean.OutputRows = 3, 3
	noisy := ddi.NewStageReport("similarity")
	noisy.InputRows, noisy.OutputRows = 2, 1
	noisy.Warn(errors.ErrCodeParseFailure, "Q3", "unparsable SMILES")

	var buf bytes.Buffer
	RenderReports(&buf, []*ddi.StageReport{noisy, clean})
	out := buf.String()

	assert.Contains(t, strings.ToUpper(out), "STAGE")
	assert.Contains(t, out, "similarity")
	assert.Contains(t, out, "reduce")
	assert.Contains(t, out, string(errors.ErrCodeParseFailure))
}

//Personal.AI order the ending
