// Package registry provides the process-wide name table that maps task
// type names to factories, creates and indexes task instances by instance
// name, and loads additional type definitions from compiled shared
// libraries at runtime.
//
// Unlike the etcd-backed service discovery this package's predecessor
// implemented, this registry never crosses a process boundary: its job is
// purely in-process name resolution between a descriptor and the concrete
// task factories a set of Go plugins expose, per the dynamic-library ABI
// in this package's doc comment on AddLibrary.
package registry

import (
	"fmt"
	"log/slog"
	"plugin"
	"runtime"
	"sync"

	"github.com/cocomr/coco/cocoerr"
	"github.com/cocomr/coco/task"
)

// Factory builds one task instance of a registered type. instanceName is
// the identity the new task is inserted under; logger is threaded through
// so every task instance logs with the registry's configured logger.
type Factory func(instanceName string, logger *slog.Logger) (*task.Task, error)

// Registry is the process-wide name table: type_name -> Factory and
// instance_name -> *task.Task, plus the bookkeeping needed to load and
// de-duplicate dynamic libraries across modules. The zero value is not
// usable; construct with New.
type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]*task.Task
	loaded    map[string]*plugin.Plugin // resolved absolute path -> handle, for AddLibrary idempotence
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
		instances: make(map[string]*task.Task),
		loaded:    make(map[string]*plugin.Plugin),
	}
}

// RegisterSpec adds or replaces the factory bound to typeName.
func (r *Registry) RegisterSpec(typeName string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName] = factory
}

// Alias makes newName resolve to whatever factory oldName currently
// resolves to. It is a no-op if oldName is not yet registered.
func (r *Registry) Alias(newName, oldName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factories[oldName]
	if !ok {
		return
	}
	r.factories[newName] = f
}

// Create instantiates typeName under instanceName and inserts it into the
// instance table, replacing any existing task already using that instance
// name. It reports ok=false when typeName is not registered.
func (r *Registry) Create(typeName, instanceName string) (*task.Task, bool, error) {
	r.mu.Lock()
	factory, ok := r.factories[typeName]
	r.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	t, err := factory(instanceName, r.logger)
	if err != nil {
		return nil, true, cocoerr.New("Registry.Create", cocoerr.KindUnknownComponent, err).
			WithContext(map[string]any{"type": typeName, "instance": instanceName})
	}

	r.mu.Lock()
	r.instances[instanceName] = t
	r.mu.Unlock()
	return t, true, nil
}

// Task returns the instance registered under instanceName.
func (r *Registry) Task(instanceName string) (*task.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.instances[instanceName]
	return t, ok
}

// Tasks returns every registered instance name.
func (r *Registry) Tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.instances))
	for name := range r.instances {
		out = append(out, name)
	}
	return out
}

// ComponentNames returns every registered type name, including aliases.
func (r *Registry) ComponentNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	return out
}

// RegistryHandle is the well-known symbol name every coco component
// library exports: a **Registry var used for the cross-module merge in
// AddLibrary. A library that links its own copy of this package declares:
//
//	var CocoRegistryHandle *registry.Registry
//
// and registers its task types into CocoRegistryHandle (or a freshly
// constructed Registry it assigns there) during its own package init.
const RegistryHandle = "CocoRegistryHandle"

// AddLibrary opens the shared library baseName (resolving "lib<baseName>"
// plus the platform extension against searchPath, when searchPath is
// non-empty) and merges its registry into r.
//
// Cross-module merge: the library exposes RegistryHandle, a **Registry.
// If the pointee is nil, the library has not yet bound to any registry;
// the host stores its own pointer there so the library now shares the
// host's state. If the pointee already equals r, the library was already
// merged by a previous AddLibrary call on an equivalent path and this is a
// no-op. Otherwise the library linked its own independent Registry: every
// entry whose name r does not already have is copied into r (names r
// already holds keep their existing binding), then the library's pointer
// is repointed at r and
// the foreign registry is discarded. This guarantees a single shared name
// table across modules even though each one links its own copy of this
// package.
//
// AddLibrary is idempotent per resolved path: loading the same resolved
// file twice is a no-op on the second call.
func (r *Registry) AddLibrary(baseName, searchPath string) (bool, error) {
	resolved := libraryPath(baseName, searchPath)

	r.mu.Lock()
	if _, already := r.loaded[resolved]; already {
		r.mu.Unlock()
		return true, nil
	}
	r.mu.Unlock()

	p, err := plugin.Open(resolved)
	if err != nil {
		return false, cocoerr.New("Registry.AddLibrary", cocoerr.KindLibraryLoadError, err).
			WithContext(map[string]any{"path": resolved})
	}

	sym, err := p.Lookup(RegistryHandle)
	if err != nil {
		return false, cocoerr.New("Registry.AddLibrary", cocoerr.KindLibraryLoadError, err).
			WithContext(map[string]any{"path": resolved, "symbol": RegistryHandle})
	}
	handle, ok := sym.(**Registry)
	if !ok {
		return false, cocoerr.New("Registry.AddLibrary", cocoerr.KindLibraryLoadError,
			fmt.Errorf("symbol %s has the wrong type", RegistryHandle)).
			WithContext(map[string]any{"path": resolved})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case *handle == nil:
		*handle = r
	case *handle == r:
		// Already merged via another path resolving to the same library.
	default:
		foreign := *handle
		r.mergeFromLocked(foreign)
		*handle = r
	}

	r.loaded[resolved] = p
	r.logger.Info("loaded component library", slog.String("path", resolved))
	return true, nil
}

// mergeFromLocked copies every factory and instance from foreign into r,
// skipping any name r already has: first-registered wins, consistent with
// how the host's own names take precedence over whatever a later-loaded
// library happens to also define. Callers must hold r.mu.
func (r *Registry) mergeFromLocked(foreign *Registry) {
	foreign.mu.Lock()
	defer foreign.mu.Unlock()
	for name, f := range foreign.factories {
		if _, exists := r.factories[name]; !exists {
			r.factories[name] = f
		}
	}
	for name, t := range foreign.instances {
		if _, exists := r.instances[name]; !exists {
			r.instances[name] = t
		}
	}
}

// libraryPath assembles the platform-correct shared library filename for
// baseName ("lib<name>.so" on Linux, "lib<name>.dylib" on macOS,
// "<name>.dll" on Windows) and joins it with searchPath when non-empty.
func libraryPath(baseName, searchPath string) string {
	var filename string
	switch runtime.GOOS {
	case "darwin":
		filename = "lib" + baseName + ".dylib"
	case "windows":
		filename = baseName + ".dll"
	default:
		filename = "lib" + baseName + ".so"
	}
	if searchPath == "" {
		return filename
	}
	return searchPath + "/" + filename
}
