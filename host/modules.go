package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

var errModuleNotFound = stdErrors.New("module not found on search path")

// loadEntry records a .star file loaded into this interpreter. loading is
// set while the file initializes, which detects load cycles.
type loadEntry struct {
	globals starlark.StringDict
	loading bool
}

// ImportModule binds a module in the global namespace under the last
// segment of its dotted name. Resolution order: an already bound module, a
// registered library, then for each search path <name>.star followed by the
// extensions of the configured module loaders.
func (i *Interpreter) ImportModule(ctx context.Context, name string) (err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	defer i.recoverFault(&err)
	i.touch()

	if err := i.ready(); err != nil {
		return err
	}
	if name == "" {
		return &errors.ImportError{Module: name, Err: stdErrors.New("empty module name")}
	}
	if i.config.policy != nil {
		if err := i.config.policy.CheckModule(name); err != nil {
			return &errors.ImportError{Module: name, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.FromContext("import", err, 0)
	}

	bindName := bindingName(name)
	if i.imported[name] || isModule(i.globals[bindName]) {
		i.imported[name] = true
		return nil
	}

	if lib, ok := i.config.libraries[name]; ok {
		i.globals[bindName] = lib
		i.imported[name] = true
		return nil
	}

	mod, err := i.findModule(ctx, name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.FromContext("import", ctxErr, 0)
		}
		return &errors.ImportError{Module: name, Err: err}
	}
	i.globals[bindName] = mod
	i.imported[name] = true
	i.logger.Debug("module imported", "module", name)
	return nil
}

func bindingName(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func isModule(v starlark.Value) bool {
	_, ok := v.(*starlarkstruct.Module)
	return ok
}

// HasModule reports whether name was imported or is bound as a module.
func (i *Interpreter) HasModule(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.globals == nil {
		return false
	}
	return i.imported[name] || isModule(i.globals[bindingName(name)])
}

func (i *Interpreter) findModule(ctx context.Context, name string) (starlark.Value, error) {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator))
	bindName := bindingName(name)

	for _, dir := range i.searchPaths {
		starPath := filepath.Join(dir, rel+".star")
		if fileExists(starPath) {
			globals, err := i.loadStar(ctx, starPath)
			if err != nil {
				return nil, err
			}
			return &starlarkstruct.Module{Name: bindName, Members: globals}, nil
		}

		for _, loader := range i.loaders {
			path := filepath.Join(dir, rel+loader.Extension())
			if !fileExists(path) {
				continue
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return loader.Load(ctx, bindName, src)
		}
	}
	return nil, errModuleNotFound
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// findFile looks for <name><ext> on the search path.
func (i *Interpreter) findFile(name, ext string) (string, bool) {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator)) + ext
	for _, dir := range i.searchPaths {
		path := filepath.Join(dir, rel)
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

// load implements the load() statement for scripts. Callers hold i.mu.
func (i *Interpreter) load(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	name := strings.TrimSuffix(module, ".star")
	if i.config.policy != nil {
		if err := i.config.policy.CheckModule(name); err != nil {
			return nil, &errors.ImportError{Module: name, Err: err}
		}
	}
	if lib, ok := i.config.libraries[name].(*starlarkstruct.Module); ok {
		return lib.Members, nil
	}
	path, ok := i.findFile(name, ".star")
	if !ok {
		return nil, &errors.ImportError{Module: name, Err: errModuleNotFound}
	}
	return i.loadStar(ThreadContext(thread), path)
}

// loadStar initializes a .star file once per interpreter and returns its
// frozen globals. The file sees only the baseline namespace.
func (i *Interpreter) loadStar(ctx context.Context, path string) (starlark.StringDict, error) {
	if entry, ok := i.loaded[path]; ok {
		if entry.loading {
			return nil, fmt.Errorf("cycle in load graph at %s", path)
		}
		return entry.globals, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := i.compile(path, src)
	if err != nil {
		return nil, err
	}

	entry := &loadEntry{loading: true}
	i.loaded[path] = entry
	var globals starlark.StringDict
	err = i.run(ctx, func(thread *starlark.Thread) error {
		var initErr error
		globals, initErr = prog.Init(thread, i.baseline)
		return initErr
	})
	if err != nil {
		delete(i.loaded, path)
		return nil, err
	}
	globals.Freeze()
	entry.globals = globals
	entry.loading = false
	return globals, nil
}

// compile returns the program for src, reusing a cached compilation when the
// source and the baseline names match.
func (i *Interpreter) compile(path string, src []byte) (*starlark.Program, error) {
	key := i.programKey(path, src)
	if i.programs != nil {
		if cached, ok := i.programs.Get(key); ok {
			return cached.(*starlark.Program), nil
		}
	}

	_, prog, err := starlark.SourceProgramOptions(i.fileOptions(), path, src, i.baseline.Has)
	if err != nil {
		return nil, err
	}
	if i.programs != nil {
		i.programs.Add(key, prog)
	}
	return prog, nil
}

func (i *Interpreter) programKey(path string, src []byte) uint64 {
	names := make([]string, 0, len(i.baseline))
	for name := range i.baseline {
		names = append(names, name)
	}
	sort.Strings(names)

	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(src)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.Join(names, ",")))
	return h.Sum64()
}

// AddPath appends a directory to the module search path.
func (i *Interpreter) AddPath(path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touch()

	if err := i.ready(); err != nil {
		return err
	}
	if i.config.policy != nil {
		if err := i.config.policy.CheckPath(path); err != nil {
			return err
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("add path %q: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("add path %q: not a directory", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("add path %q: %w", path, err)
	}
	if !slices.Contains(i.searchPaths, abs) {
		i.searchPaths = append(i.searchPaths, abs)
	}
	return nil
}
