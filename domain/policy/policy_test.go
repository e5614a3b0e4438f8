package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	domainerrors "github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	denials []string
}

func (h *recordingHandler) OnDenial(kind, subject, reason string) {
	h.denials = append(h.denials, kind+":"+subject)
}

func TestPolicy_CheckModule(t *testing.T) {
	rec := &recordingHandler{}
	p := NewPolicy([]string{"math", "revit_*", "lib/**"}, nil, WithDenialHandler(rec))

	assert.NoError(t, p.CheckModule("math"))
	assert.NoError(t, p.CheckModule("revit_walls"))
	assert.NoError(t, p.CheckModule("lib/geometry/helpers"))

	err := p.CheckModule("os")
	require.Error(t, err)
	var policyErr *domainerrors.PolicyError
	require.True(t, errors.As(err, &policyErr))
	assert.Equal(t, "module", policyErr.Kind)
	assert.Equal(t, []string{"module:os"}, rec.denials)
}

func TestPolicy_AllowAll(t *testing.T) {
	p := AllowAll()
	assert.NoError(t, p.CheckModule("anything"))
	assert.NoError(t, p.CheckPath(t.TempDir()))
}

func TestPolicy_EmptyAllowlistDenies(t *testing.T) {
	p := NewPolicy(nil, nil, WithDenialHandler(&NopDenialHandler{}))
	assert.Error(t, p.CheckModule("math"))
	assert.Error(t, p.CheckPath("/tmp"))
}

func TestPolicy_InvalidPatternDropped(t *testing.T) {
	p := NewPolicy([]string{"[unterminated"}, nil, WithDenialHandler(&NopDenialHandler{}))
	assert.Error(t, p.CheckModule("[unterminated"))
}

func TestPolicy_CheckPath(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "scripts")
	require.NoError(t, os.MkdirAll(filepath.Join(allowed, "lib"), 0o755))
	// Resolve symlinks in the temp root itself (macOS /var -> /private/var).
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	p := NewPolicy(nil, []string{filepath.Join(resolvedRoot, "scripts", "**")},
		WithDenialHandler(&NopDenialHandler{}))

	assert.NoError(t, p.CheckPath(filepath.Join(allowed, "lib")))
	assert.Error(t, p.CheckPath(root))
}

func TestPolicy_CheckPath_RelativeUsesWorkingDirectory(t *testing.T) {
	root := t.TempDir()
	p := NewPolicy(nil, []string{"/opt/scripts/**"},
		WithWorkingDirectory("/opt/scripts"),
		WithSymlinkResolution(false),
		WithDenialHandler(&NopDenialHandler{}))

	assert.NoError(t, p.CheckPath("lib"))
	assert.Error(t, p.CheckPath(root))
}
