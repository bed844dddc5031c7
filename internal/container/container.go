// Package container implements the Service Container of §4.5: a
// process-wide registry of lazily-constructed singletons keyed by
// service name. Construction is not thread-safe by design — the
// container is bootstrapped once at process start by a single
// composition root, and the accessor is a pure lookup thereafter.
//
// Grounded in the original's src/services/service_container.py
// ServiceContainer classmethod cache (get_instance/clear_instances);
// Go's type system lets the lookup be generic instead of keying off a
// reflected class name.
package container

import "fmt"

// Container is a lazily-populated singleton registry.
type Container struct {
	instances map[string]any
}

// New constructs an empty Container.
func New() *Container {
	return &Container{instances: make(map[string]any)}
}

// Get returns the singleton registered under key, constructing it via
// build on first access and caching the result for every call after.
// Panics if a prior registration under key used a different type — a
// programmer error caught at wiring time, not a runtime condition.
func Get[T any](c *Container, key string, build func() T) T {
	if existing, ok := c.instances[key]; ok {
		typed, ok := existing.(T)
		if !ok {
			panic(fmt.Sprintf("container: %q already registered with a different type", key))
		}
		return typed
	}
	value := build()
	c.instances[key] = value
	return value
}

// Clear removes every cached singleton, used during shutdown and
// between tests that need a fresh composition (§4.5 "Clear()").
func (c *Container) Clear() {
	c.instances = make(map[string]any)
}
