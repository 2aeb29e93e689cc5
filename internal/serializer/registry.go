// Package serializer converts object graphs to plain trees and back while preserving
// shared references.
//
// Every persisted type registers an explicit schema: its class name, the fields that are
// written (in order), an optional identity field and how it is constructed on the way
// back. Objects carrying the same identity are written once; later occurrences become a
// marker {"$": "<path>"} pointing at the first one. Plain []any and map[string]any
// containers fold the same way by address.
package serializer

import (
	"fmt"
	"reflect"
	"sync"
)

// Mode selects how a class is constructed during deserialization.
type Mode int

const (
	// Positional passes the declared fields, in order, as arguments.
	Positional Mode = iota
	// WholeObject passes the property bag keyed by field name.
	WholeObject
)

// Field is one serialized field of T.
type Field[T any] struct {
	Name string
	Get  func(T) any
}

// F declares a field.
func F[T any](name string, get func(T) any) Field[T] {
	return Field[T]{Name: name, Get: get}
}

// Class declares how T is serialized and rebuilt.
type Class[T any] struct {
	Name string
	// Identity names the field whose string value identifies an instance. Empty disables
	// reference folding for the class.
	Identity string
	Mode     Mode
	// Extra forwards the deserialize extra argument to the constructor.
	Extra  bool
	Fields []Field[T]

	// New is used in Positional mode.
	New func(args []any, extra any) (T, error)
	// FromObject is used in WholeObject mode.
	FromObject func(bag map[string]any, extra any) (T, error)
}

type schema struct {
	name     string
	identity string
	mode     Mode
	extra    bool
	fields   []string
	get      func(obj any, field int) any
	build    func(args []any, bag map[string]any, extra any) (any, error)
}

// Registry maps class names and Go types to schemas. It is safe for concurrent use
// once registration is done.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*schema
	byType map[reflect.Type]*schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*schema),
		byType: make(map[reflect.Type]*schema),
	}
}

// Register adds class c for type T.
func Register[T any](r *Registry, c Class[T]) error {
	if c.Name == "" {
		return fmt.Errorf("register %T: empty class name", *new(T))
	}
	switch c.Mode {
	case Positional:
		if c.New == nil {
			return fmt.Errorf("register %s: positional class without New", c.Name)
		}
	case WholeObject:
		if c.FromObject == nil {
			return fmt.Errorf("register %s: whole-object class without FromObject", c.Name)
		}
	default:
		return fmt.Errorf("register %s: unknown mode %d", c.Name, c.Mode)
	}

	s := &schema{
		name:     c.Name,
		identity: c.Identity,
		mode:     c.Mode,
		extra:    c.Extra,
		fields:   make([]string, len(c.Fields)),
	}
	identityFound := c.Identity == ""
	for i, f := range c.Fields {
		s.fields[i] = f.Name
		if f.Name == c.Identity {
			identityFound = true
		}
		if f.Name == "_" || f.Name == "$" {
			return fmt.Errorf("register %s: %w: %s", c.Name, ErrReservedKey, f.Name)
		}
	}
	if !identityFound {
		return fmt.Errorf("register %s: identity field %q is not declared", c.Name, c.Identity)
	}

	fields := c.Fields
	s.get = func(obj any, i int) any {
		return fields[i].Get(obj.(T))
	}
	s.build = func(args []any, bag map[string]any, extra any) (any, error) {
		if !c.Extra {
			extra = nil
		}
		if c.Mode == WholeObject {
			return c.FromObject(bag, extra)
		}
		return c.New(args, extra)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[c.Name]; dup {
		return fmt.Errorf("register %s: class already registered", c.Name)
	}
	r.byName[c.Name] = s
	r.byType[reflect.TypeFor[T]()] = s
	return nil
}

// MustRegister is Register that panics, for package-level schema tables.
func MustRegister[T any](r *Registry, c Class[T]) {
	if err := Register(r, c); err != nil {
		panic(err)
	}
}

// Classes returns the registered class names.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}

func (r *Registry) schemaFor(v any) (*schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byType[reflect.TypeOf(v)]
	return s, ok
}

func (r *Registry) schemaNamed(name string) (*schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}
