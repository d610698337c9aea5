package eval

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"autumn/pkg/ast"
	"autumn/pkg/builtin"
	"autumn/pkg/object"
)

// Evaluator walks an AST. It is safe for concurrent use: all mutable state
// lives in environments and pending values. Each walk, whether started by
// Eval or by a call's task, runs on its own copy carrying the task id and
// nesting depth for tracing.
type Evaluator struct {
	builtins *builtin.Registry
	exec     *Executor
	report   func(*object.Error) // receives failures of detached calls

	task  int64 // 0 for the walk started by Eval
	depth int
}

// NewEvaluator creates an evaluator resolving unbound names through
// builtins and running calls on exec. report may be nil.
func NewEvaluator(builtins *builtin.Registry, exec *Executor, report func(*object.Error)) *Evaluator {
	if report == nil {
		report = func(err *object.Error) {
			tracer().Errorf("detached call failed: %s", err.Message)
		}
	}
	return &Evaluator{builtins: builtins, exec: exec, report: report}
}

// Eval evaluates node in env on the calling goroutine.
func (e *Evaluator) Eval(node ast.Node, env *object.Environment) object.Object {
	return e.walker(0).eval(node, env)
}

func (e *Evaluator) walker(task int64) *Evaluator {
	return &Evaluator{builtins: e.builtins, exec: e.exec, report: e.report, task: task}
}

func (e *Evaluator) eval(node ast.Node, env *object.Environment) object.Object {
	defer e.trace(node)()

	switch node := node.(type) {
	// Statements
	case *ast.Program:
		return e.evalProgram(node, env)

	case *ast.BlockStatement:
		result, skipped := e.evalBlockStatement(node, env)
		e.discard(skipped...)
		return result

	case *ast.ExpressionStatement:
		if node.Expression == nil {
			return missingNode(node)
		}
		return e.eval(node.Expression, env)

	case *ast.LetStatement:
		if node.Value == nil {
			return missingNode(node)
		}
		val := e.eval(node.Value, env)
		if object.IsError(val) {
			return val
		}
		env.Set(node.Name.Value, val)
		return nil

	case *ast.ReturnStatement:
		if node.ReturnValue == nil {
			return missingNode(node)
		}
		val := e.eval(node.ReturnValue, env)
		if object.IsError(val) {
			return val
		}
		return &object.ReturnValue{Value: val}

	// Expressions
	case *ast.IntegerLiteral:
		return object.NewInteger(node.Value)

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}

	case *ast.Boolean:
		return object.NativeBool(node.Value)

	case *ast.Identifier:
		return e.evalIdentifier(node, env)

	case *ast.PrefixExpression:
		right := e.force(e.eval(node.Right, env))
		if object.IsError(right) {
			return right
		}
		return evalPrefixExpression(node.Operator, right)

	case *ast.InfixExpression:
		left, right, err := e.evalOperands(node.Left, node.Right, env)
		if err != nil {
			return err
		}
		return evalInfixExpression(node.Operator, left, right)

	case *ast.IfExpression:
		return e.evalIfExpression(node, env)

	case *ast.FunctionLiteral:
		return &object.Function{Parameters: node.Parameters, Body: node.Body, Env: env}

	case *ast.CallExpression:
		function := e.eval(node.Function, env)
		if object.IsError(function) {
			return function
		}
		args := e.evalExpressions(node.Arguments, env)
		if len(args) == 1 && object.IsError(args[0]) {
			e.discard(function)
			return args[0]
		}
		return e.exec.Go(func(task int64) object.Object {
			return e.walker(task).applyFunction(function, args)
		})

	case *ast.ArrayLiteral:
		elements := e.evalExpressions(node.Elements, env)
		if len(elements) == 1 && object.IsError(elements[0]) {
			return elements[0]
		}
		return &object.Array{Elements: elements}

	case *ast.IndexExpression:
		left, index, err := e.evalOperands(node.Left, node.Index, env)
		if err != nil {
			return err
		}
		return evalIndexExpression(left, index)

	case *ast.HashLiteral:
		return e.evalHashLiteral(node, env)

	case nil:
		return object.NewError("invalid program: missing node")
	}

	return object.NewError("unsupported node: %T", node)
}

// evalProgram forces the result of the last statement. Pending results of
// earlier statements are detached.
func (e *Evaluator) evalProgram(program *ast.Program, env *object.Environment) object.Object {
	var result object.Object
	for i, statement := range program.Statements {
		result = e.eval(statement, env)

		if p, ok := result.(*object.Pending); ok {
			if i < len(program.Statements)-1 {
				p.Detach(e.report)
				continue
			}
			result = e.force(p)
		}

		switch result := result.(type) {
		case *object.ReturnValue:
			return e.force(result.Value)
		case *object.Error:
			return result
		}
	}
	return result
}

// evalBlockStatement neither forces nor detaches pending statement results.
// Pending results of statements it moved past are returned as skipped; the
// caller (a function body or an if branch) detaches them.
func (e *Evaluator) evalBlockStatement(block *ast.BlockStatement, env *object.Environment) (object.Object, []object.Object) {
	var result object.Object
	var skipped []object.Object
	for _, statement := range block.Statements {
		if p, ok := result.(*object.Pending); ok {
			skipped = append(skipped, p)
		}
		result = e.eval(statement, env)
		if result != nil {
			rt := result.Kind()
			if rt == object.KindReturnValue || rt == object.KindError {
				return result, skipped
			}
		}
	}
	return result, skipped
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier, env *object.Environment) object.Object {
	if val, ok := env.Get(node.Value); ok {
		return val
	}
	if b, ok := e.builtins.Lookup(node.Value); ok {
		return b
	}
	return object.NewError("identifier not found: %s", node.Value)
}

func (e *Evaluator) evalIfExpression(ie *ast.IfExpression, env *object.Environment) object.Object {
	condition := e.force(e.eval(ie.Condition, env))
	if object.IsError(condition) {
		return condition
	}

	var result object.Object
	if isTruthy(condition) {
		result = e.eval(ie.Consequence, env)
	} else if ie.Alternative != nil {
		result = e.eval(ie.Alternative, env)
	}
	if result == nil {
		return object.NULL
	}
	return result
}

// evalOperands evaluates both operands before forcing either, so calls on
// both sides run concurrently. Evaluation stops at the first error.
func (e *Evaluator) evalOperands(l, r ast.Expression, env *object.Environment) (object.Object, object.Object, object.Object) {
	left := e.eval(l, env)
	if object.IsError(left) {
		return nil, nil, left
	}
	right := e.eval(r, env)
	if object.IsError(right) {
		e.discard(left)
		return nil, nil, right
	}
	left = e.force(left)
	if object.IsError(left) {
		e.discard(right)
		return nil, nil, left
	}
	right = e.force(right)
	if object.IsError(right) {
		return nil, nil, right
	}
	return left, right, nil
}

// evalExpressions evaluates exps left to right without forcing. On the first
// error it returns a slice holding only that error.
func (e *Evaluator) evalExpressions(exps []ast.Expression, env *object.Environment) []object.Object {
	result := make([]object.Object, 0, len(exps))

	for _, exp := range exps {
		evaluated := e.eval(exp, env)
		if object.IsError(evaluated) {
			e.discard(result...)
			return []object.Object{evaluated}
		}
		result = append(result, evaluated)
	}
	return result
}

func (e *Evaluator) evalHashLiteral(node *ast.HashLiteral, env *object.Environment) object.Object {
	hash := object.NewHash()
	var values []object.Object

	for _, pair := range node.Pairs {
		if pair.Key == nil || pair.Value == nil {
			e.discard(values...)
			return object.NewError("invalid hash literal: missing key or value")
		}
		key := e.force(e.eval(pair.Key, env))
		if object.IsError(key) {
			e.discard(values...)
			return key
		}
		hashKey, ok := key.(object.Hashable)
		if !ok {
			e.discard(values...)
			return object.NewError("unusable as hash key: %s", key.Kind())
		}

		value := e.eval(pair.Value, env)
		if object.IsError(value) {
			e.discard(values...)
			return value
		}
		values = append(values, value)
		hash.Set(hashKey, value)
	}
	return hash
}

// applyFunction runs on the call's own goroutine. It forces the callee and
// the arguments before binding them.
func (e *Evaluator) applyFunction(fn object.Object, args []object.Object) object.Object {
	fn = e.force(fn)
	if object.IsError(fn) {
		e.discard(args...)
		return fn
	}
	forced := make([]object.Object, len(args))
	for i, arg := range args {
		forced[i] = e.force(arg)
		if object.IsError(forced[i]) {
			e.discard(args[i+1:]...)
			return forced[i]
		}
	}

	switch fn := fn.(type) {
	case *object.Function:
		if len(forced) < len(fn.Parameters) {
			return object.NewError("wrong number of arguments. expected %d, got %d",
				len(fn.Parameters), len(forced))
		}
		extendedEnv := extendFunctionEnv(fn, forced)
		evaluated := e.eval(fn.Body, extendedEnv)
		return unwrapReturnValue(evaluated)

	case *object.Builtin:
		if result := fn.Fn(forced...); result != nil {
			return result
		}
		return object.NULL

	default:
		return object.NewError("not a function: %s", fn.Kind())
	}
}

// extendFunctionEnv binds parameters positionally; surplus arguments are
// ignored.
func extendFunctionEnv(fn *object.Function, args []object.Object) *object.Environment {
	env := object.NewEnclosedEnvironment(fn.Env)
	for i, param := range fn.Parameters {
		env.Set(param.Value, args[i])
	}
	return env
}

func unwrapReturnValue(obj object.Object) object.Object {
	if returnValue, ok := obj.(*object.ReturnValue); ok {
		return returnValue.Value
	}
	if obj == nil {
		return object.NULL
	}
	return obj
}

// force waits for pending values. A statement without a value (a let) is
// treated as null.
func (e *Evaluator) force(obj object.Object) object.Object {
	obj = object.Force(obj)
	if obj == nil {
		return object.NULL
	}
	return obj
}

// discard detaches pending values whose results are no longer needed,
// because evaluation stopped at an error or moved past them.
func (e *Evaluator) discard(objs ...object.Object) {
	for _, obj := range objs {
		if p, ok := obj.(*object.Pending); ok {
			p.Detach(e.report)
		}
	}
}

// trace logs BEGIN/END of a node, indented by nesting depth within the
// current task.
func (e *Evaluator) trace(node ast.Node) func() {
	t := tracer()
	if t.GetTraceLevel() < tracing.LevelDebug {
		return func() {}
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast.")
	t.Debugf("[task %d] %sBEGIN %s", e.task, strings.Repeat("  ", e.depth), name)
	e.depth++
	return func() {
		e.depth--
		t.Debugf("[task %d] %sEND %s", e.task, strings.Repeat("  ", e.depth), name)
	}
}

func missingNode(node ast.Node) object.Object {
	return object.NewError("invalid program: incomplete %s", strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast."))
}

func isTruthy(obj object.Object) bool {
	switch obj {
	case object.NULL:
		return false
	case object.TRUE:
		return true
	case object.FALSE:
		return false
	default:
		return true
	}
}
