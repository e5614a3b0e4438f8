package host

import (
	"context"
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestImportModule_StarFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "geometry_utils.star"), "scale = 3\n\ndef double(x):\n    return x * 2\n")

	interp := newInitialized(t)
	require.NoError(t, interp.AddPath(dir))
	require.NoError(t, interp.ImportModule(context.Background(), "geometry_utils"))
	assert.True(t, interp.HasModule("geometry_utils"))

	v, err := EvaluateAs[int](context.Background(), interp, "geometry_utils.double(geometry_utils.scale)")
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	info := interp.MemoryInfo()
	assert.Equal(t, 1, info.ImportedModules)
	assert.Equal(t, 1, info.CachedPrograms)

	// Importing again is a no-op.
	require.NoError(t, interp.ImportModule(context.Background(), "geometry_utils"))
}

func TestImportModule_DottedName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pkg", "tools.star"), "version = 2\n")

	interp := newInitialized(t, WithSearchPaths(dir))
	require.NoError(t, interp.ImportModule(context.Background(), "pkg.tools"))
	assert.True(t, interp.HasModule("pkg.tools"))

	v, err := EvaluateAs[int](context.Background(), interp, "tools.version")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestImportModule_Baseline(t *testing.T) {
	interp := newInitialized(t)
	require.NoError(t, interp.ImportModule(context.Background(), "math"))
	assert.True(t, interp.HasModule("json"))
}

func TestImportModule_Library(t *testing.T) {
	units := &starlarkstruct.Module{Name: "units", Members: starlark.StringDict{"mm": starlark.Float(0.001)}}
	interp := newInitialized(t, WithLibrary("units", units))

	assert.False(t, interp.HasModule("units"))
	_, err := interp.Evaluate(context.Background(), "units.mm")
	require.Error(t, err)

	require.NoError(t, interp.ImportModule(context.Background(), "units"))
	v, err := EvaluateAs[float64](context.Background(), interp, "units.mm * 1000")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)

	// Libraries are also reachable from load().
	execOK(t, interp, "load('units', mm = 'mm')\nmeters = mm")
}

func TestImportModule_NotFound(t *testing.T) {
	interp := newInitialized(t, WithSearchPaths(t.TempDir()))

	err := interp.ImportModule(context.Background(), "nonexistent_module")
	var importErr *errors.ImportError
	require.True(t, stdErrors.As(err, &importErr))
	assert.Equal(t, "nonexistent_module", importErr.Module)
	assert.Contains(t, err.Error(), "nonexistent_module")
}

func TestImportModule_BrokenModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.star"), "x = 1 // 0\n")

	interp := newInitialized(t, WithSearchPaths(dir))
	err := interp.ImportModule(context.Background(), "broken")
	var importErr *errors.ImportError
	require.True(t, stdErrors.As(err, &importErr))
	assert.False(t, interp.HasModule("broken"))
}

func TestImportModule_Policy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "secret.star"), "x = 1\n")

	p := policy.NewPolicy([]string{"math", "geometry_*"}, nil, policy.WithDenialHandler(&policy.NopDenialHandler{}))
	interp := newInitialized(t, WithSearchPaths(dir), WithPolicy(p))

	require.NoError(t, interp.ImportModule(context.Background(), "math"))

	err := interp.ImportModule(context.Background(), "secret")
	var importErr *errors.ImportError
	require.True(t, stdErrors.As(err, &importErr))
	var policyErr *errors.PolicyError
	assert.True(t, stdErrors.As(err, &policyErr))

	// load() is subject to the same policy.
	result, err := interp.Execute(context.Background(), "load('secret.star', 'x')", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)

	// Search path additions are checked against the path allowlist.
	assert.Error(t, interp.AddPath(t.TempDir()))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "helpers.star"), "def greet(name):\n    return 'hi ' + name\n")

	interp := newInitialized(t, WithSearchPaths(dir))
	execOK(t, interp, "load('helpers.star', 'greet')\nmsg = greet('bob')")

	msg, err := GetVariableAs[string](interp, "msg")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", msg)
}

func TestLoad_Cycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.star"), "load('b.star', 'b')\na = 1\n")
	writeFile(t, filepath.Join(dir, "b.star"), "load('a.star', 'a')\nb = 2\n")

	interp := newInitialized(t, WithSearchPaths(dir))
	result, err := interp.Execute(context.Background(), "load('a.star', 'a')", nil)
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Contains(t, result.Error.Message, "cycle")
}

type fakeLoader struct {
	loads  int
	resets int
	closed bool
}

func (l *fakeLoader) Extension() string { return ".mod" }

func (l *fakeLoader) Load(ctx context.Context, name string, source []byte) (starlark.Value, error) {
	l.loads++
	return &starlarkstruct.Module{Name: name, Members: starlark.StringDict{
		"source": starlark.String(source),
	}}, nil
}

func (l *fakeLoader) Reset(ctx context.Context) error {
	l.resets++
	return nil
}

func (l *fakeLoader) Close(ctx context.Context) error {
	l.closed = true
	return nil
}

func TestImportModule_Loader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "native.mod"), "payload")
	writeFile(t, filepath.Join(dir, "both.mod"), "ignored")
	writeFile(t, filepath.Join(dir, "both.star"), "source = 'star'\n")

	loader := &fakeLoader{}
	interp := New(WithSearchPaths(dir), WithModuleLoader(func(ctx context.Context) (ModuleLoader, error) {
		return loader, nil
	}))
	require.NoError(t, interp.Initialize(context.Background()))

	require.NoError(t, interp.ImportModule(context.Background(), "native"))
	v, err := EvaluateAs[string](context.Background(), interp, "native.source")
	require.NoError(t, err)
	assert.Equal(t, "payload", v)

	// A .star file takes precedence over loader files in the same directory.
	require.NoError(t, interp.ImportModule(context.Background(), "both"))
	v, err = EvaluateAs[string](context.Background(), interp, "both.source")
	require.NoError(t, err)
	assert.Equal(t, "star", v)
	assert.Equal(t, 1, loader.loads)

	require.NoError(t, interp.Reset(context.Background()))
	assert.Equal(t, 1, loader.resets)
	assert.False(t, interp.HasModule("native"))

	require.NoError(t, interp.Close(context.Background()))
	assert.True(t, loader.closed)
}

func TestImportModule_LoaderFactoryFails(t *testing.T) {
	interp := New(WithModuleLoader(func(ctx context.Context) (ModuleLoader, error) {
		return nil, stdErrors.New("no runtime")
	}))

	err := interp.Initialize(context.Background())
	var initErr *errors.InitializationError
	require.True(t, stdErrors.As(err, &initErr))
	assert.False(t, interp.Healthy())
}

func TestAddPath(t *testing.T) {
	interp := newInitialized(t)

	err := interp.AddPath(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.star")
	writeFile(t, file, "")
	assert.Error(t, interp.AddPath(file))

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "late.star"), "ok = True\n")
	require.NoError(t, interp.AddPath(dir))
	require.NoError(t, interp.AddPath(dir))
	require.NoError(t, interp.ImportModule(context.Background(), "late"))

	// Reset drops added paths.
	require.NoError(t, interp.Reset(context.Background()))
	assert.Error(t, interp.ImportModule(context.Background(), "late"))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "m.star"), "v = 1\n")

	interp := newInitialized(t, WithSearchPaths(dir))
	require.NoError(t, interp.ImportModule(context.Background(), "m"))
	assert.Equal(t, 1, interp.MemoryInfo().CachedPrograms)

	interp.Collect()
	assert.Equal(t, 0, interp.MemoryInfo().CachedPrograms)

	// User state survives.
	assert.True(t, interp.HasModule("m"))
}

func TestProgramCacheDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "m.star"), "v = 1\n")

	interp := newInitialized(t, WithSearchPaths(dir), WithProgramCacheSize(0))
	require.NoError(t, interp.ImportModule(context.Background(), "m"))
	assert.Equal(t, 0, interp.MemoryInfo().CachedPrograms)
}
