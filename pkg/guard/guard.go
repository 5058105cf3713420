// Package guard builds mutation observers from CEL expressions.
//
// A guard expression sees three variables:
//
//	name   string            the attribute being written
//	value  dyn               the incoming value
//	own    map(string, dyn)  the object's own primitive entries before the write
//
// and must evaluate to a bool; false vetoes the write.
package guard

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/cel-go/cel"

	"proteus/pkg/object"
)

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func sharedEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("name", cel.StringType),
			cel.Variable("value", cel.DynType),
			cel.Variable("own", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return env, envErr
}

// Guard is an object.Observer backed by a compiled CEL program.
type Guard struct {
	expr    string
	program cel.Program
	logger  *slog.Logger
}

var _ object.Observer = (*Guard)(nil)

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger used for evaluation failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// Compile parses and type-checks expr.
func Compile(expr string, opts ...Option) (*Guard, error) {
	e, err := sharedEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid guard expression: %w", issues.Err())
	}
	if out := ast.OutputType(); out != cel.BoolType && out != cel.DynType {
		return nil, fmt.Errorf("guard expression must return boolean, got: %s", out)
	}
	program, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	g := &Guard{expr: expr, program: program}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(expr string, opts ...Option) *Guard {
	g, err := Compile(expr, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Expr returns the source expression.
func (g *Guard) Expr() string { return g.expr }

// Eval runs the guard against a prospective write.
func (g *Guard) Eval(obj *object.Object, name string, value object.Value) (bool, error) {
	vars := map[string]any{
		"name":  name,
		"value": native(value, 1),
		"own":   ownPrimitives(obj),
	}
	result, _, err := g.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate guard: %w", err)
	}
	ok, isBool := result.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("guard did not evaluate to boolean, got: %T", result.Value())
	}
	return ok, nil
}

// Observe implements object.Observer. Evaluation errors veto the write.
func (g *Guard) Observe(obj *object.Object, name string, value object.Value) bool {
	ok, err := g.Eval(obj, name, value)
	if err != nil {
		g.log().Warn("guard vetoed write", "expr", g.expr, "name", name, "error", err)
		return false
	}
	return ok
}

func (g *Guard) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

func ownPrimitives(obj *object.Object) map[string]any {
	out := make(map[string]any)
	if obj == nil {
		return out
	}
	for name, v := range object.Entries(obj) {
		if v.IsPrimitive() {
			out[name] = native(v, 0)
		}
	}
	return out
}

// native converts a Value for CEL. Objects expand to their own primitive
// entries up to depth levels; deeper objects and functions become their
// text rendering.
func native(v object.Value, depth int) any {
	switch v.Type() {
	case object.TypeUndefined, object.TypeNull:
		return nil
	case object.TypeBool:
		return v.AsBool()
	case object.TypeNumber:
		n := v.AsNumber()
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	case object.TypeString:
		return v.AsString()
	case object.TypeObject:
		if depth > 0 {
			return ownPrimitives(v.AsObject())
		}
	}
	return v.String()
}
