package blocks

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gitlab.com/tinyland/lab/barpulse/pkg/suggest"
)

// Registry manages the set of known block types. It is safe for concurrent
// use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry returns an empty registry ready for type registration.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// Register adds a block type. It returns an error if a type with the same
// name is already registered or the type has no factory.
func (r *Registry) Register(t Type) error {
	if t.Name == "" || t.New == nil {
		return fmt.Errorf("block type %q: name and factory are required", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("block type %q already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// wiring built-in types at startup.
func (r *Registry) MustRegister(types ...Type) {
	for _, t := range types {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the type with the given name, or false if not found.
func (r *Registry) Get(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// List returns a sorted slice of all registered type names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a block of the named type. An unknown name yields a
// *ConfigError with a suggestion; factory errors that are not already
// config errors are wrapped as one.
func (r *Registry) New(name string, settings Settings, env Env) (Block, error) {
	t, ok := r.Get(name)
	if !ok {
		if hint := suggest.Closest(name, r.List()); hint != "" {
			return nil, Configf(name, "unknown block type (did you mean %q?)", hint)
		}
		return nil, Configf(name, "unknown block type")
	}
	if env.Name == "" {
		env.Name = name
	}
	b, err := t.New(settings, env)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &ConfigError{Block: name, Err: err}
	}
	return b, nil
}
