package object

import "sync"

// Environment is one lexical scope. Scopes are shared between closures and
// between concurrently running calls, so every scope guards its own store
// with a lock. Locking is per scope: two calls writing the same scope are
// serialized but not ordered.
type Environment struct {
	mu    sync.RWMutex
	store map[string]Object
	outer *Environment // Parent environment for scope chain
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

// NewEnclosedEnvironment creates the local scope of a function call on top
// of the function's captured environment.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Get resolves name, walking outward through the enclosing scopes.
func (e *Environment) Get(name string) (Object, bool) {
	for env := e; env != nil; env = env.outer {
		env.mu.RLock()
		obj, ok := env.store[name]
		env.mu.RUnlock()
		if ok {
			return obj, true
		}
	}
	return nil, false
}

// Set binds name in this scope, shadowing any outer binding.
func (e *Environment) Set(name string, val Object) Object {
	e.mu.Lock()
	e.store[name] = val
	e.mu.Unlock()
	return val
}

// Names lists the bindings of this scope only.
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	return names
}
