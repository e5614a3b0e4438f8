// Package policy implements the import policy applied to interpreters:
// which module names may be imported and which directories may be added to
// the module search path.
package policy

import (
	"path/filepath"

	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/bmatcuk/doublestar/v4"
)

// policyConfig holds configuration for the Policy engine.
type policyConfig struct {
	denialHandler   ports.DenialHandler
	cwd             string // Working directory for relative path resolution
	resolveSymlinks bool
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		resolveSymlinks: true,
		denialHandler:   &LogDenialHandler{},
	}
}

// PolicyOption configures the Policy.
type PolicyOption func(*policyConfig)

// WithWorkingDirectory sets the working directory for relative path resolution.
func WithWorkingDirectory(cwd string) PolicyOption {
	return func(c *policyConfig) {
		c.cwd = cwd
	}
}

// WithSymlinkResolution enables/disables symlink resolution.
// Default is true. Disable only for testing.
func WithSymlinkResolution(enabled bool) PolicyOption {
	return func(c *policyConfig) {
		c.resolveSymlinks = enabled
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) PolicyOption {
	return func(c *policyConfig) {
		c.denialHandler = h
	}
}

// Policy matches module names and directories against glob allowlists.
// It is immutable after construction and safe for concurrent use.
type Policy struct {
	config  policyConfig
	modules []string
	paths   []string
}

// NewPolicy creates a Policy. Invalid patterns are dropped.
// An empty allowlist denies everything.
func NewPolicy(allowedModules, allowedPaths []string, opts ...PolicyOption) *Policy {
	cfg := defaultPolicyConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Policy{
		config:  cfg,
		modules: validPatterns(allowedModules),
		paths:   validPatterns(allowedPaths),
	}
}

// AllowAll returns a Policy that permits every module and path.
func AllowAll() *Policy {
	return NewPolicy([]string{"**"}, []string{"**"}, WithDenialHandler(&NopDenialHandler{}))
}

func validPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if doublestar.ValidatePattern(p) {
			out = append(out, p)
		}
	}
	return out
}

// CheckModule implements ports.ImportPolicy.
func (p *Policy) CheckModule(name string) error {
	for _, pattern := range p.modules {
		if pattern == "**" {
			return nil
		}
		if matched, _ := doublestar.Match(pattern, name); matched {
			return nil
		}
	}
	p.config.denialHandler.OnDenial("module", name, "module not in allowlist")
	return &errors.PolicyError{Kind: "module", Subject: name}
}

// CheckPath implements ports.ImportPolicy.
func (p *Policy) CheckPath(path string) error {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		if p.config.cwd == "" {
			abs, err := filepath.Abs(clean)
			if err != nil {
				p.config.denialHandler.OnDenial("path", path, "cannot resolve relative path")
				return &errors.PolicyError{Kind: "path", Subject: path}
			}
			clean = abs
		} else {
			clean = filepath.Join(p.config.cwd, clean)
		}
	}

	if p.config.resolveSymlinks {
		if resolved, err := filepath.EvalSymlinks(clean); err == nil {
			clean = resolved
		}
	}

	for _, pattern := range p.paths {
		if pattern == "**" {
			return nil
		}
		if matched, _ := doublestar.Match(pattern, clean); matched {
			return nil
		}
	}
	p.config.denialHandler.OnDenial("path", clean, "path not in allowlist")
	return &errors.PolicyError{Kind: "path", Subject: path}
}
