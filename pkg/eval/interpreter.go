package eval

import (
	"io"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"autumn/pkg/ast"
	"autumn/pkg/builtin"
	"autumn/pkg/lexer"
	"autumn/pkg/object"
	"autumn/pkg/parser"
)

// Interpreter evaluates source text in an environment that persists across
// calls to Evaluate, as a REPL session needs it. Batch runs use a fresh
// Interpreter (or call Reset) per program.
//
// An Interpreter must not be used by several goroutines at once. The calls
// it spawns run concurrently, though.
type Interpreter struct {
	env      *object.Environment
	builtins *builtin.Registry
	exec     *Executor
	eval     *Evaluator
	out      io.Writer
	log      tracing.Trace
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput directs the output of `puts` to w. Ignored if WithBuiltins
// is given as well.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) {
		in.out = w
	}
}

// WithBuiltins shares an existing builtin registry.
func WithBuiltins(r *builtin.Registry) Option {
	return func(in *Interpreter) {
		in.builtins = r
	}
}

// WithTracer sets the tracer failed detached calls are logged to. The
// default is the "autumn.eval" tracer.
func WithTracer(t tracing.Trace) Option {
	return func(in *Interpreter) {
		if t != nil {
			in.log = serialTrace{t}
		}
	}
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		env:  object.NewEnvironment(),
		exec: NewExecutor(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.builtins == nil {
		in.builtins = builtin.New(in.out)
	}
	in.eval = NewEvaluator(in.builtins, in.exec, in.reportDetached)
	return in
}

// Evaluate parses and evaluates source. The result is never pending. A
// parse failure yields an error value "abort: " followed by the parser's
// messages, one per line. Evaluate returns nil if the program produced no
// value, i.e. it is empty or ends with a let statement.
func (in *Interpreter) Evaluate(source string) object.Object {
	program, errs := Parse(source)
	if len(errs) > 0 {
		return object.NewError("abort: %s", strings.Join(errs, "\n"))
	}
	return in.EvalProgram(program)
}

// EvalProgram evaluates an already parsed program in the session environment.
func (in *Interpreter) EvalProgram(program *ast.Program) object.Object {
	return in.eval.Eval(program, in.env)
}

// Reset replaces the session environment by an empty one. Calls still
// running keep their own environments.
func (in *Interpreter) Reset() {
	in.env = object.NewEnvironment()
}

// Wait blocks until all calls spawned by this interpreter have finished,
// including detached ones.
func (in *Interpreter) Wait() {
	in.exec.Wait()
}

// Running returns the number of calls still in flight.
func (in *Interpreter) Running() int64 {
	return in.exec.Running()
}

// Env returns the session environment.
func (in *Interpreter) Env() *object.Environment {
	return in.env
}

func (in *Interpreter) reportDetached(err *object.Error) {
	t := in.log
	if t == nil {
		t = tracer()
	}
	t.Errorf("detached call failed: %s", err.Message)
}

// Parse runs lexer and parser over source.
func Parse(source string) (*ast.Program, []string) {
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	return program, p.Errors()
}
