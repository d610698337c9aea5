// Package builtin holds the native functions callable from autumn programs.
//
// The functions are collected in a Registry, which is built once and never
// changed afterwards. The evaluator receives the registry by reference and
// consults it when a name is not bound in the environment.
package builtin

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"autumn/pkg/object"
)

// Registry is an immutable name to builtin mapping.
type Registry struct {
	builtins map[string]*object.Builtin
	out      io.Writer
	outMu    sync.Mutex
}

// New creates the standard registry. `puts` writes to out, or to
// os.Stdout if out is nil. Hosts may add their own functions with extra;
// an extra builtin replaces a standard one of the same name.
func New(out io.Writer, extra ...*object.Builtin) *Registry {
	if out == nil {
		out = os.Stdout
	}
	r := &Registry{out: out}
	r.builtins = map[string]*object.Builtin{
		"len":   {Name: "len", Fn: lenFn},
		"first": {Name: "first", Fn: first},
		"last":  {Name: "last", Fn: last},
		"push":  {Name: "push", Fn: push},
		"rest":  {Name: "rest", Fn: rest},
		"puts":  {Name: "puts", Fn: r.puts},
		"range": {Name: "range", Fn: rangeFn},
	}
	for _, b := range extra {
		r.builtins[b.Name] = b
	}
	return r
}

// Lookup returns the builtin registered under name.
func (r *Registry) Lookup(name string) (*object.Builtin, bool) {
	b, ok := r.builtins[name]
	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func wrongArity(expected string, got int) *object.Error {
	return object.NewError("wrong number of arguments. expected %s, got %d", expected, got)
}

func lenFn(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArity("1", len(args))
	}
	switch arg := args[0].(type) {
	case *object.String:
		return object.NewInteger(int64(len(arg.Value)))
	case *object.Array:
		return object.NewInteger(int64(len(arg.Elements)))
	default:
		return object.NewError("argument to `len` not supported, got %s", args[0].Kind())
	}
}

func first(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArity("1", len(args))
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return object.NewError("argument to `first` not supported, got %s", args[0].Kind())
	}
	if len(arr.Elements) > 0 {
		return arr.Elements[0]
	}
	return object.NULL
}

func last(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArity("1", len(args))
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return object.NewError("argument to `last` not supported, got %s", args[0].Kind())
	}
	if n := len(arr.Elements); n > 0 {
		return arr.Elements[n-1]
	}
	return object.NULL
}

func rest(args ...object.Object) object.Object {
	if len(args) != 1 {
		return wrongArity("1", len(args))
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return object.NewError("argument to `rest` not supported, got %s", args[0].Kind())
	}
	n := len(arr.Elements)
	if n == 0 {
		return object.NULL
	}
	elements := make([]object.Object, n-1)
	copy(elements, arr.Elements[1:])
	return &object.Array{Elements: elements}
}

func push(args ...object.Object) object.Object {
	if len(args) != 2 {
		return wrongArity("2", len(args))
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return object.NewError("argument to `push` must be ARRAY, got %s", args[0].Kind())
	}
	n := len(arr.Elements)
	elements := make([]object.Object, n+1)
	copy(elements, arr.Elements)
	elements[n] = args[1]
	return &object.Array{Elements: elements}
}

// puts renders before locking: inspecting a container may wait on a pending
// element whose task prints as well.
func (r *Registry) puts(args ...object.Object) object.Object {
	lines := make([]string, 0, len(args))
	for _, arg := range args {
		lines = append(lines, arg.Inspect())
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(r.out, line)
	}
	return object.NULL
}

// MaxRange is the largest number of elements `range` produces.
const MaxRange = 1 << 24

func rangeFn(args ...object.Object) object.Object {
	if len(args) != 1 && len(args) != 2 {
		return wrongArity("1 or 2", len(args))
	}
	bounds := make([]int64, len(args))
	for i, arg := range args {
		n, ok := arg.(*object.Integer)
		if !ok {
			return object.NewError("argument to `range` must be INTEGER, got %s", arg.Kind())
		}
		bounds[i] = n.Value
	}
	lo, hi := int64(0), bounds[0]
	if len(bounds) == 2 {
		lo, hi = bounds[0], bounds[1]
	}
	if hi <= lo {
		return &object.Array{Elements: []object.Object{}}
	}
	if span := uint64(hi) - uint64(lo); span > MaxRange {
		return object.NewError("range too large: %d elements, limit is %d", span, MaxRange)
	}
	elements := make([]object.Object, 0, hi-lo)
	for i := lo; i < hi; i++ {
		elements = append(elements, object.NewInteger(i))
	}
	return &object.Array{Elements: elements}
}
