package route

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("route: invalid configuration")
	// ErrIndexOutOfRange is returned by Table.At for indices outside [0, Len).
	ErrIndexOutOfRange = errors.New("route: index out of range")
)

// ConfigurationError reports a route table that cannot be built. It is fatal
// at setup and surfaces to the host before any lifecycle starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("route: %s", e.Reason)
	}
	return fmt.Sprintf("route: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Table is an ordered, non-empty, read-only collection of routes. The order
// given at construction is the order operators navigate through.
type Table[R any] struct {
	routes []Route[R]
	byName map[string]int
}

// NewTable validates the routes and freezes them into a Table.
func NewTable[R any](routes ...Route[R]) (*Table[R], error) {
	if len(routes) == 0 {
		return nil, &ConfigurationError{Reason: "at least one route is required"}
	}
	t := &Table[R]{
		routes: make([]Route[R], 0, len(routes)),
		byName: make(map[string]int, len(routes)),
	}
	for i, r := range routes {
		field := fmt.Sprintf("routes[%d]", i)
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, &ConfigurationError{Field: field, Reason: "name is required"}
		}
		if r.Body == nil {
			return nil, &ConfigurationError{Field: field, Reason: fmt.Sprintf("route %q has no body", name)}
		}
		key := strings.ToLower(name)
		if prev, exists := t.byName[key]; exists {
			return nil, &ConfigurationError{Field: field, Reason: fmt.Sprintf("route %q duplicates routes[%d]", name, prev)}
		}
		t.byName[key] = i
		t.routes = append(t.routes, Route[R]{Name: name, Body: r.Body})
	}
	return t, nil
}

// MustTable panics if the routes cannot form a table.
func MustTable[R any](routes ...Route[R]) *Table[R] {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of routes.
func (t *Table[R]) Len() int {
	return len(t.routes)
}

// At returns the route at index i.
func (t *Table[R]) At(i int) (Route[R], error) {
	if i < 0 || i >= len(t.routes) {
		return Route[R]{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(t.routes))
	}
	return t.routes[i], nil
}

// Index looks a route up by name, ignoring case and surrounding space.
func (t *Table[R]) Index(name string) (int, bool) {
	i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Names returns the route names in table order.
func (t *Table[R]) Names() []string {
	names := make([]string, len(t.routes))
	for i, r := range t.routes {
		names[i] = r.Name
	}
	return names
}

// Each calls fn for every route in table order.
func (t *Table[R]) Each(fn func(i int, r Route[R])) {
	for i, r := range t.routes {
		fn(i, r)
	}
}
