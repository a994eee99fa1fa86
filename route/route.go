// route/route.go
//
// Routes are the named units of robot behaviour an operator picks between
// before a match. A Table holds them in navigation order.

package route

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Func is the body of an autonomous route. It receives the robot handle the
// host passed to the lifecycle and must return once ctx is done.
type Func[R any] func(ctx context.Context, robot R) error

// Route pairs a display name with a route body.
type Route[R any] struct {
	Name string
	Body Func[R]
}

// New builds a route entry for a Table.
func New[R any](name string, body Func[R]) Route[R] {
	return Route[R]{Name: strings.TrimSpace(name), Body: body}
}

// Named builds a route whose display name is taken from the body's function
// symbol, so (*Robot).LeftSide becomes "LeftSide".
func Named[R any](body Func[R]) Route[R] {
	return Route[R]{Name: funcName(body), Body: body}
}

// Run invokes the route body.
func (r Route[R]) Run(ctx context.Context, robot R) error {
	return r.Body(ctx, robot)
}

func funcName(fn any) string {
	if fn == nil {
		return ""
	}
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func || value.IsNil() {
		return ""
	}
	info := runtime.FuncForPC(value.Pointer())
	if info == nil {
		return ""
	}
	name := info.Name()
	// Method values are suffixed with "-fm" and closures with ".funcN".
	name = strings.TrimSuffix(name, "-fm")
	if idx := strings.Index(name, "["); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if part == "" || isDigits(part) || strings.HasPrefix(part, "func") && isDigits(strings.TrimPrefix(part, "func")) {
			continue
		}
		return strings.Trim(part, "()*")
	}
	return name
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
