package command

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aj-geddes/revitpy-sub005/infrastructure/modelstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	err := app.Run(append([]string{"revitpy-bridge"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr cli.ExitCoder
	require.True(t, stdErrors.As(err, &exitErr), "expected exit error, got %v", err)
	return exitErr.ExitCode()
}

func TestEval(t *testing.T) {
	out, err := run(t, "--log-level", "error", "eval", "math.pow(16, 0.5)")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)
}

func TestEval_ScriptError(t *testing.T) {
	_, err := run(t, "--log-level", "error", "eval", "1 +")
	assert.Equal(t, 1, exitCode(t, err))
}

func TestExec(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.star", `print("hello from a")`)
	b := writeFile(t, dir, "b.star", "x = 1 + 1\nprint(x)")

	out, err := run(t, "--log-level", "error", "exec", "--stats", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "hello from a")
	assert.Contains(t, out, "==> "+b+" <==\n2\n")
	assert.Contains(t, out, "SCRIPT")
	assert.Contains(t, out, "total operations")
}

func TestExec_FailedScript(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.star", `x = 1`)
	bad := writeFile(t, dir, "bad.star", `x = 2 +`)

	out, err := run(t, "--log-level", "error", "exec", good, bad)
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, err.Error(), "1 of 2 scripts failed")
	assert.Contains(t, out, "failed")
}

func TestExec_NoFiles(t *testing.T) {
	_, err := run(t, "exec")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestExec_TransactionPersistsModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.yaml")
	script := writeFile(t, dir, "create.star", `
e = element.create("Walls", "north")
parameter.set(e["id"], "Height", 3.0)
`)

	_, err := run(t, "--log-level", "error", "--model", modelPath, "exec", "--transaction", script)
	require.NoError(t, err)

	snapshot, err := modelstore.NewFileStore(modelstore.WithPath(modelPath)).Load()
	require.NoError(t, err)
	require.Len(t, snapshot.Elements, 1)
	assert.Equal(t, "north", snapshot.Elements[0].Name)

	out, err := run(t, "--log-level", "error", "--model", modelPath, "eval", `element.find("Walls")[0]["name"]`)
	require.NoError(t, err)
	assert.Equal(t, "\"north\"\n", out)
}

func TestHealth(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "bridge.yaml", `
log_level: error
pool:
  capacity: 2
  rent_timeout: 5s
`)
	out, err := run(t, "--config", cfg, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "INTERPRETER")
	assert.Contains(t, out, "true")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "bridge.yaml", `
pool:
  capacity: 0
`)
	_, err := run(t, "--config", cfg, "health")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "Pool.Capacity")
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "properties")
}
