// Package di provides a small lazy dependency container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves registered services by key.
type ServiceRegistry interface {
	Get(key string) any
}

// Container is a ServiceRegistry that also accepts registrations.
type Container interface {
	ServiceRegistry
	Register(key string, value any)
	RegisterFactory(key string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.Mutex
	values    map[string]any
	factories map[string]func(ServiceRegistry) any
	resolving map[string]bool
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		values:    make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
		resolving: make(map[string]bool),
	}
}

// Register stores a ready-made value.
func (c *container) Register(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// RegisterFactory stores a factory invoked once, on first Get.
func (c *container) RegisterFactory(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[key] = factory
}

// Get resolves a service, building it through its factory on first use.
// Unknown keys and dependency cycles panic: both are wiring bugs.
func (c *container) Get(key string) any {
	c.mu.Lock()
	if v, ok := c.values[key]; ok {
		c.mu.Unlock()
		return v
	}
	factory, ok := c.factories[key]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: service %q not registered", key))
	}
	if c.resolving[key] {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: dependency cycle on %q", key))
	}
	c.resolving[key] = true
	c.mu.Unlock()

	// Factories may call Get recursively, so the lock is not held here.
	v := factory(c)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.resolving, key)
	if existing, ok := c.values[key]; ok {
		return existing
	}
	c.values[key] = v
	return v
}

// Token is a typed service key.
type Token[T any] struct {
	key string
}

// NewToken creates a token for key.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the registry key.
func (t Token[T]) Key() string {
	return t.key
}

// RegisterToken registers a typed factory.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.key, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed service.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	return sr.Get(token.key).(T)
}
