package object

import (
	"bytes"
	"fmt"
	"strings"

	"autumn/pkg/ast"
)

// Object is the interface that all autumn values implement.
type Object interface {
	Kind() ObjectKind
	Inspect() string
}

type Integer struct {
	Value int64
}

func (i *Integer) Kind() ObjectKind { return KindInteger }
func (i *Integer) Inspect() string  { return fmt.Sprintf("%d", i.Value) }
func (i *Integer) HashKey() HashKey { return HashKey{Kind: KindInteger, Value: i.Value} }

type String struct {
	Value string
}

func (s *String) Kind() ObjectKind { return KindString }
func (s *String) Inspect() string  { return s.Value }
func (s *String) HashKey() HashKey { return HashKey{Kind: KindString, Text: s.Value} }

type Boolean struct {
	Value bool
}

func (b *Boolean) Kind() ObjectKind { return KindBoolean }
func (b *Boolean) Inspect() string  { return fmt.Sprintf("%t", b.Value) }
func (b *Boolean) HashKey() HashKey {
	if b.Value {
		return HashKey{Kind: KindBoolean, Value: 1}
	}
	return HashKey{Kind: KindBoolean}
}

type Null struct{}

func (n *Null) Kind() ObjectKind { return KindNull }
func (n *Null) Inspect() string  { return "null" }

// Array is never mutated after construction; operations build new arrays.
// Elements may still be pending.
type Array struct {
	Elements []Object
}

func (a *Array) Kind() ObjectKind { return KindArray }
func (a *Array) Inspect() string {
	out := make([]string, 0, len(a.Elements))
	for _, e := range a.Elements {
		out = append(out, e.Inspect())
	}
	return "[" + strings.Join(out, ", ") + "]"
}

type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Kind() ObjectKind { return KindReturnValue }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

type Error struct {
	Message string
}

func (e *Error) Kind() ObjectKind { return KindError }
func (e *Error) Inspect() string  { return "ERROR: " + e.Message }

// NewError creates an error value from a format string.
func NewError(format string, a ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

// IsError reports whether obj is an error value.
func IsError(obj Object) bool {
	if obj != nil {
		return obj.Kind() == KindError
	}
	return false
}

// Function shares its Env with every invocation and every other closure
// created in the same scope.
type Function struct {
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
	Env        *Environment
}

func (f *Function) Kind() ObjectKind { return KindFunction }
func (f *Function) Inspect() string {
	var out bytes.Buffer
	params := []string{}
	for _, p := range f.Parameters {
		params = append(params, p.String())
	}
	out.WriteString("fn(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") {\n")
	out.WriteString(f.Body.String())
	out.WriteString("\n}")
	return out.String()
}

type BuiltinFunction func(args ...Object) Object

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Kind() ObjectKind { return KindBuiltin }
func (b *Builtin) Inspect() string  { return "builtin function" }
