package pushdown

import (
	"errors"
	"sync"
)

// ErrAlreadyInstalled is returned by Install when an engine is installed.
var ErrAlreadyInstalled = errors.New("pushdown engine already installed")

// Registry holds the engine a query framework routes pattern queries to.
// It is the single install/uninstall toggle; the compiler never touches it.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	engine *Engine
}

// Install makes e the active engine. Installing over an active engine fails
// so two owners cannot silently replace each other.
func (r *Registry) Install(e *Engine) error {
	if e == nil {
		return errors.New("install: nil engine")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine != nil {
		return ErrAlreadyInstalled
	}
	r.engine = e
	return nil
}

// Uninstall removes the active engine and reports whether one was installed.
func (r *Registry) Uninstall() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	had := r.engine != nil
	r.engine = nil
	return had
}

// Installed returns the active engine, if any.
func (r *Registry) Installed() (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine, r.engine != nil
}

var defaultRegistry Registry

// Install installs e in the process-wide registry.
func Install(e *Engine) error { return defaultRegistry.Install(e) }

// Uninstall removes the engine from the process-wide registry.
func Uninstall() bool { return defaultRegistry.Uninstall() }

// Installed returns the engine in the process-wide registry.
func Installed() (*Engine, bool) { return defaultRegistry.Installed() }
