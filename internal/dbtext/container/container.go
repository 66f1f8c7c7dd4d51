// Package container is a small reflection-based dependency container,
// adapted from the teacher repo's di.Container: the same
// Register/RegisterFactory/Resolve/ResolveAll/Clear shape, used by
// cmd/dbtext to wire the engine's Logger, MetricsCollector,
// ActivityLogger, and DatabaseManager together at startup instead of
// package-level globals (SPEC_FULL.md §2 "Dependency wiring").
package container

import (
	"reflect"
	"sync"

	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

// Container is a type-keyed registry of services and lazy factories.
type Container struct {
	mu        sync.RWMutex
	services  map[reflect.Type]interface{}
	factories map[reflect.Type]interface{}
}

// New creates an empty Container.
func New() *Container {
	return &Container{
		services:  make(map[reflect.Type]interface{}),
		factories: make(map[reflect.Type]interface{}),
	}
}

// Register stores a concrete service instance, keyed by its dynamic type
// (a *T registration is resolved through a **T target).
func (c *Container) Register(service interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := reflect.TypeOf(service)
	if _, exists := c.services[t]; exists {
		return dberr.Newf(dberr.InternalError, "service already registered for type: %v", t)
	}
	c.services[t] = service
	return nil
}

// RegisterFactory stores a zero-argument constructor function, invoked
// lazily on first Resolve. factory must return (T) or (T, error).
func (c *Container) RegisterFactory(factory interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := reflect.TypeOf(factory)
	if t.Kind() != reflect.Func {
		return dberr.New(dberr.InternalError, "factory must be a function")
	}
	if t.NumOut() != 1 && t.NumOut() != 2 {
		return dberr.New(dberr.InternalError, "factory must return exactly one or two values (service, error)")
	}
	serviceType := t.Out(0)
	if _, exists := c.factories[serviceType]; exists {
		return dberr.Newf(dberr.InternalError, "factory already registered for type: %v", serviceType)
	}
	c.factories[serviceType] = factory
	return nil
}

// Resolve fills target (a pointer) with the registered service or the
// result of the registered factory for target's pointee type.
func (c *Container) Resolve(target interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr {
		return dberr.New(dberr.InternalError, "resolve target must be a pointer")
	}
	targetType := targetValue.Elem().Type()

	if service, exists := c.services[targetType]; exists {
		targetValue.Elem().Set(reflect.ValueOf(service))
		return nil
	}
	if factory, exists := c.factories[targetType]; exists {
		results := reflect.ValueOf(factory).Call(nil)
		if len(results) == 2 && !results[1].IsNil() {
			return results[1].Interface().(error)
		}
		targetValue.Elem().Set(results[0])
		return nil
	}
	return dberr.Newf(dberr.InternalError, "no service or factory registered for type: %v", targetType)
}

// ResolveAll fills target (a pointer to slice) with every registered
// service or factory result assignable to the slice's element type.
func (c *Container) ResolveAll(target interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.Elem().Kind() != reflect.Slice {
		return dberr.New(dberr.InternalError, "resolve-all target must be a pointer to slice")
	}
	sliceType := targetValue.Elem().Type()
	elementType := sliceType.Elem()

	var services []reflect.Value
	for t, s := range c.services {
		if t.AssignableTo(elementType) {
			services = append(services, reflect.ValueOf(s))
		}
	}
	for t, f := range c.factories {
		if t.AssignableTo(elementType) {
			results := reflect.ValueOf(f).Call(nil)
			if len(results) == 2 && !results[1].IsNil() {
				return results[1].Interface().(error)
			}
			services = append(services, results[0])
		}
	}

	result := reflect.MakeSlice(sliceType, len(services), len(services))
	for i, service := range services {
		result.Index(i).Set(service)
	}
	targetValue.Elem().Set(result)
	return nil
}

// Clear empties the container of every registered service and factory.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = make(map[reflect.Type]interface{})
	c.factories = make(map[reflect.Type]interface{})
}
