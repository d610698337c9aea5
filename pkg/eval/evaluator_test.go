package eval

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"autumn/pkg/builtin"
	"autumn/pkg/object"
)

func TestEvalIntegerExpression(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"5", 5},
		{"-10", -10},
		{"5 + 5 + 5 + 5 - 10", 10},
		{"2 * 2 * 2 * 2 * 2", 32},
		{"-50 + 100 + -50", 0},
		{"20 + 2 * -10", 0},
		{"50 / 2 * 2 + 10", 60},
		{"3 * (3 * 3) + 10", 37},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", 50},
		{"7 / 2", 3},
		{"-7 / 2", -3},
		{"9223372036854775807 + 1", -9223372036854775808},
	}

	for _, tt := range tests {
		testIntegerObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestEvalBooleanExpression(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"1 <= 1", true},
		{"2 <= 1", false},
		{"1 >= 1", true},
		{"0 >= 1", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"true == true", true},
		{"false == false", true},
		{"true != false", true},
		{"(1 < 2) == true", true},
		{"(1 > 2) == true", false},
	}

	for _, tt := range tests {
		testBooleanObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestBangOperator(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"!true", false},
		{"!false", true},
		{"!5", false},
		{"!!true", true},
		{"!!false", false},
		{"!!5", true},
		{`!!""`, true},
		{"!![]", true},
		{"!!{}", true},
		{"!!fn() {}", true},
		{"!!if (false) { 1 }", false},
		{"!if (false) { 1 }", true},
	}

	for _, tt := range tests {
		testBooleanObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestIfElseExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"if (true) { 10 }", 10},
		{"if (false) { 10 }", nil},
		{"if (1) { 10 }", 10},
		{"if (1 < 2) { 10 }", 10},
		{"if (1 > 2) { 10 }", nil},
		{"if (1 > 2) { 10 } else { 20 }", 20},
		{"if (1 < 2) { 10 } else { 20 }", 10},
		{"if (if (false) { 1 }) { 10 } else { 20 }", 20},
		{"if (true) { let a = 1; }", nil},
	}

	for _, tt := range tests {
		evaluated := testEval(t, tt.input)
		if integer, ok := tt.expected.(int); ok {
			testIntegerObject(t, evaluated, int64(integer))
		} else {
			testNullObject(t, evaluated)
		}
	}
}

func TestReturnStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"return 10;", 10},
		{"return 10; 9;", 10},
		{"return 2 * 5; 9;", 10},
		{"9; return 2 * 5; 9;", 10},
		{`if (10 > 1) {
  if (10 > 1) {
    return 10;
  }
  return 1;
}`, 10},
		{`let f = fn(x) {
  if (x > 1) { return x * 10; }
  return 0;
};
f(2);`, 20},
		{"let f = fn() { return 1; 2 }; f() + f()", 2},
	}

	for _, tt := range tests {
		testIntegerObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestErrorHandling(t *testing.T) {
	tests := []struct {
		input           string
		expectedMessage string
	}{
		{"5 + true;", "type mismatch: INTEGER + BOOLEAN"},
		{"5 + true; 5;", "type mismatch: INTEGER + BOOLEAN"},
		{"-true", "unknown operator: -BOOLEAN"},
		{"-\"a\"", "unknown operator: -STRING"},
		{"true + false;", "unknown operator: BOOLEAN + BOOLEAN"},
		{"5; true + false; 5", "unknown operator: BOOLEAN + BOOLEAN"},
		{"if (10 > 1) { true + false; }", "unknown operator: BOOLEAN + BOOLEAN"},
		{`"Hello" - "World"`, "unknown operator: STRING - STRING"},
		{`"a" == "a"`, "unknown operator: STRING == STRING"},
		{"[1] - [1]", "unknown operator: ARRAY - ARRAY"},
		{"[1] == [1]", "unknown operator: ARRAY == ARRAY"},
		{"foobar", "identifier not found: foobar"},
		{"1 / 0", "division by zero: 1 / 0"},
		{"let f = fn(a) { a / 0 }; f(7)", "division by zero: 7 / 0"},
		{`{"name": "autumn"}[fn(x) { x }];`, "unusable as hash key: FUNCTION"},
		{`{[1]: 2}`, "unusable as hash key: ARRAY"},
		{"1[0]", "index operator not supported: INTEGER"},
		{"[1, 2][true]", "index operator not supported: ARRAY"},
		{"5(1)", "not a function: INTEGER"},
		{"let add = fn(a, b) { a + b }; add(1)", "wrong number of arguments. expected 2, got 1"},
		{"len(1, 2)", "wrong number of arguments. expected 1, got 2"},
		{"[1, foo, bar]", "identifier not found: foo"},
		{"{1: missing}", "identifier not found: missing"},
		{"let f = fn(x) { x }; f(nope)", "identifier not found: nope"},
		{"let f = fn() { boom }; f() + 1", "identifier not found: boom"},
		{"let f = fn() { boom }; [1, 2][f()]", "identifier not found: boom"},
	}

	for _, tt := range tests {
		evaluated := testEval(t, tt.input)

		errObj, ok := evaluated.(*object.Error)
		if !ok {
			t.Errorf("input %q: no error object returned. got=%T(%+v)", tt.input, evaluated, evaluated)
			continue
		}
		if errObj.Message != tt.expectedMessage {
			t.Errorf("input %q: wrong error message. expected=%q, got=%q",
				tt.input, tt.expectedMessage, errObj.Message)
		}
	}
}

func TestLetStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"let a = 5; a;", 5},
		{"let a = 5 * 5; a;", 25},
		{"let a = 5; let b = a; b;", 5},
		{"let a = 5; let b = a; let c = a + b + 5; c;", 15},
	}

	for _, tt := range tests {
		testIntegerObject(t, testEval(t, tt.input), tt.expected)
	}

	if got := testEval(t, "let a = 1;"); got != nil {
		t.Errorf("let statement should produce no value, got %s", got.Inspect())
	}
}

func TestFunctionObject(t *testing.T) {
	evaluated := testEval(t, "fn(x) { x + 2; };")

	fn, ok := evaluated.(*object.Function)
	if !ok {
		t.Fatalf("object is not Function. got=%T (%+v)", evaluated, evaluated)
	}
	if len(fn.Parameters) != 1 || fn.Parameters[0].String() != "x" {
		t.Fatalf("parameters wrong. parameters=%+v", fn.Parameters)
	}
	if fn.Body.String() != "(x + 2)" {
		t.Fatalf("body is not %q. got=%q", "(x + 2)", fn.Body.String())
	}
	if fn.Inspect() != "fn(x) {\n(x + 2)\n}" {
		t.Errorf("inspect wrong. got=%q", fn.Inspect())
	}
}

func TestFunctionApplication(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"let identity = fn(x) { x; }; identity(5);", 5},
		{"let identity = fn(x) { return x; }; identity(5);", 5},
		{"let double = fn(x) { x * 2; }; double(5);", 10},
		{"let add = fn(x, y) { x + y; }; add(5, 5);", 10},
		{"let add = fn(x, y) { x + y; }; add(5 + 5, add(5, 5));", 20},
		{"fn(x) { x; }(5)", 5},
		{"let add = fn(x, y) { x + y }; add(1, 2, 3)", 3},
		{"let k = fn() { fn(y) { y * 3 } }; k()(4)", 12},
		{`let fib = fn(n) { if (n < 2) { n } else { fib(n - 1) + fib(n - 2) } }; fib(15)`, 610},
	}

	for _, tt := range tests {
		testIntegerObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestClosures(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{`let newAdder = fn(x) { fn(y) { x + y }; };
let addTwo = newAdder(2);
addTwo(2);`, 4},
		{"let x = 1; let f = fn() { x }; let x = 2; f();", 2},
		{"let x = 1; let f = fn() { let x = 5; x }; f() + x", 6},
	}

	for _, tt := range tests {
		testIntegerObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestStringsAndArrays(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"Hello World!"`, "Hello World!"},
		{`"Hello" + " " + "World!"`, "Hello World!"},
		{"[1, 2 * 2, 3 + 3]", "[1, 4, 6]"},
		{"[1, 2] + [3]", "[1, 2, 3]"},
		{"[] + []", "[]"},
		{`{"one": 10 - 9, "two": 1 + 1, "thr" + "ee": 6 / 2, 4: 4, true: 5, false: 6}`,
			"{one: 1, two: 2, three: 3, 4: 4, true: 5, false: 6}"},
		{`{"a": 1, "a": 2}`, "{a: 2}"},
		{"let double = fn(x) { x * 2 }; [double(1), double(2)]", "[2, 4]"},
		{`let f = fn(x) { x }; {f("k"): f(1)}`, "{k: 1}"},
	}

	for _, tt := range tests {
		evaluated := testEval(t, tt.input)
		if evaluated == nil || evaluated.Inspect() != tt.expected {
			t.Errorf("input %q: expected=%q, got=%v", tt.input, tt.expected, inspect(evaluated))
		}
	}
}

func TestIndexExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"[1, 2, 3][0]", 1},
		{"[1, 2, 3][2]", 3},
		{"[1, 2, 3][-1]", 3},
		{"[1, 2, 3][-3]", 1},
		{"let i = 0; [1][i];", 1},
		{"[1, 2, 3][1 + 1];", 3},
		{"let myArray = [1, 2, 3]; myArray[0] + myArray[1] + myArray[2];", 6},
		{"[1, 2, 3][3]", nil},
		{"[1, 2, 3][-4]", nil},
		{"[][0]", nil},
		{`{"foo": 5}["foo"]`, 5},
		{`{"foo": 5}["bar"]`, nil},
		{`let key = "foo"; {"foo": 5}[key]`, 5},
		{`{}["foo"]`, nil},
		{`{5: 5}[5]`, 5},
		{`{true: 5}[true]`, 5},
		{`{false: 5}[false]`, 5},
		{"let f = fn(x) { x }; [10, 20][f(1)]", 20},
		{"let f = fn() { [7, 8] }; f()[0]", 7},
	}

	for _, tt := range tests {
		evaluated := testEval(t, tt.input)
		if integer, ok := tt.expected.(int); ok {
			testIntegerObject(t, evaluated, int64(integer))
		} else {
			testNullObject(t, evaluated)
		}
	}
}

func TestBuiltinFunctions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`len("")`, "0"},
		{`len("four")`, "4"},
		{`len([])`, "0"},
		{`len([1, 2, 3])`, "3"},
		{`len(1)`, "ERROR: argument to `len` not supported, got INTEGER"},
		{`len("one", "two")`, "ERROR: wrong number of arguments. expected 1, got 2"},
		{`first([])`, "null"},
		{`first([1, 2])`, "1"},
		{`last([1, 2])`, "2"},
		{`rest([1, 2, 3])`, "[2, 3]"},
		{`rest([])`, "null"},
		{`let a = [1]; let b = push(a, 2); [a, b]`, "[[1], [1, 2]]"},
		{`range(3)`, "[0, 1, 2]"},
		{`range(2, 4)`, "[2, 3]"},
		{`let f = fn(x) { x }; len(f([1, 2]))`, "2"},
		{`let l = len; l("abc")`, "3"},
		{`len == len`, "true"},
		{`puts("x")`, "null"},
	}

	for _, tt := range tests {
		evaluated := testEval(t, tt.input)
		if inspect(evaluated) != tt.expected {
			t.Errorf("input %q: expected=%q, got=%q", tt.input, tt.expected, inspect(evaluated))
		}
	}
}

func TestIdentityEquality(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"let h = {}; h == h", true},
		{"{} == {}", false},
		{"let f = fn() { 1 }; f == f", true},
		{"fn() { 1 } == fn() { 1 }", false},
		{"if (false) { 1 } == if (false) { 2 }", true},
		{"let f = fn() { true }; f() == true", true},
	}
	for _, tt := range tests {
		testBooleanObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestPendingForcingEquivalence(t *testing.T) {
	defs := `let sq = fn(x) { x * x }; let sum = fn(a) { if (len(a) == 0) { 0 } else { first(a) + sum(rest(a)) } };`
	calls := []string{"sq(7)", "sum([1, 2, 3, 4])", "sum(range(10))", `len("abc")`}

	for _, call := range calls {
		direct := testEval(t, defs+call+" + 0")
		deferred := testEval(t, defs+"let r = "+call+"; r + 0")
		if inspect(direct) != inspect(deferred) {
			t.Errorf("%s: forcing immediately gave %s, forcing later gave %s",
				call, inspect(direct), inspect(deferred))
		}
	}
}

func TestResultIsNeverPending(t *testing.T) {
	inputs := []string{
		"let f = fn(x) { x }; f(1)",
		"let g = fn() { 2 }; let f = fn() { g() }; f()",
		"let g = fn() { 3 }; let f = fn() { return g(); }; f()",
		"let f = fn(x) { x }; let r = f(4); r",
		"let f = fn(x) { x }; return f(5);",
	}
	for i, input := range inputs {
		result := testEval(t, input)
		if _, ok := result.(*object.Pending); ok {
			t.Errorf("inputs[%d]: result is pending", i)
			continue
		}
		testIntegerObject(t, result, int64(i+1))
	}
}

func TestDetachedCallDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	block := &object.Builtin{Name: "block", Fn: func(args ...object.Object) object.Object {
		<-release
		return object.NewInteger(1)
	}}
	in := New(WithBuiltins(builtin.New(io.Discard, block)))

	done := make(chan object.Object, 1)
	go func() {
		done <- in.Evaluate("block(); let f = fn(x) { x + 1 }; f(41)")
	}()

	select {
	case result := <-done:
		testIntegerObject(t, result, 42)
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatalf("evaluation waited for a detached call")
	}
	if in.Running() == 0 {
		t.Errorf("detached call finished although it is still blocked")
	}
	close(release)
	in.Wait()
	if in.Running() != 0 {
		t.Errorf("calls still running after Wait: %d", in.Running())
	}
}

func TestDetachedErrorIsLogged(t *testing.T) {
	var logged bytes.Buffer
	log := gologadapter.New()
	log.SetOutput(&logged)

	in := New(WithOutput(io.Discard), WithTracer(log))
	result := in.Evaluate("let f = fn(x) { x / 0 }; f(3); f(4); 5")
	in.Wait()

	testIntegerObject(t, result, 5)
	out := logged.String()
	for _, msg := range []string{"division by zero: 3 / 0", "division by zero: 4 / 0"} {
		if !strings.Contains(out, "detached call failed: "+msg) {
			t.Errorf("expected log entry for %q, log was %q", msg, out)
		}
	}
	if strings.Count(out, "detached call failed") != 2 {
		t.Errorf("expected exactly two detached failures, log was %q", out)
	}
}

func TestPanicInCallBecomesError(t *testing.T) {
	explode := &object.Builtin{Name: "explode", Fn: func(args ...object.Object) object.Object {
		panic("boom")
	}}
	in := New(WithBuiltins(builtin.New(io.Discard, explode)))
	defer in.Wait()

	result := in.Evaluate("explode()")
	if inspect(result) != "ERROR: panic in call: boom" {
		t.Errorf("unexpected result %q", inspect(result))
	}
}

func TestPutsOrderWithinOneCall(t *testing.T) {
	var out bytes.Buffer
	in := New(WithOutput(&out))
	result := in.Evaluate(`let f = fn() { puts("a"); 1 }; let r = f(); puts("b", r)`)
	in.Wait()

	testNullObject(t, result)
	// puts("a") is detached by f's body, so it may print before or after
	// the final puts. The lines of one puts call are never separated.
	if got := out.String(); got != "a\nb\n1\n" && got != "b\n1\na\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestFailureInsideBlockIsLogged(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		failure  string
	}{
		{"let g = fn() { 1 / 0 }; let f = fn() { g(); 7 }; f()", 7, "division by zero: 1 / 0"},
		{"let g = fn(x) { x / 0 }; let f = fn() { g(2); return 8; }; f()", 8, "division by zero: 2 / 0"},
		{"let g = fn() { first(1) }; if (true) { g(); 9 } else { 0 }", 9,
			"argument to `first` not supported, got INTEGER"},
		{"let g = fn() { nope }; let f = fn() { if (true) { g(); 10 } }; f()", 10, "identifier not found: nope"},
	}
	for _, tt := range tests {
		var logged bytes.Buffer
		log := gologadapter.New()
		log.SetOutput(&logged)

		in := New(WithOutput(io.Discard), WithTracer(log))
		result := in.Evaluate(tt.input)
		in.Wait()

		testIntegerObject(t, result, tt.expected)
		if !strings.Contains(logged.String(), "detached call failed: "+tt.failure) {
			t.Errorf("%q: expected failure %q to be logged, log was %q", tt.input, tt.failure, logged.String())
		}
	}
}

func TestParseErrorAborts(t *testing.T) {
	result := testEval(t, "let = 1;")
	expected := "abort: line 1, column 5: expected next token to be IDENT, got = instead\n" +
		"line 1, column 5: no prefix parse function for = found"
	errObj, ok := result.(*object.Error)
	if !ok {
		t.Fatalf("expected error, got %s", inspect(result))
	}
	if errObj.Message != expected {
		t.Errorf("expected=%q, got=%q", expected, errObj.Message)
	}
}

func TestSessionKeepsEnvironment(t *testing.T) {
	in := New(WithOutput(io.Discard))
	defer in.Wait()

	if got := in.Evaluate("let a = 5; let twice = fn(x) { x * 2 };"); got != nil {
		t.Fatalf("expected no value, got %s", got.Inspect())
	}
	testIntegerObject(t, in.Evaluate("twice(a)"), 10)

	in.Reset()
	if got := inspect(in.Evaluate("a")); got != "ERROR: identifier not found: a" {
		t.Errorf("binding survived Reset: %s", got)
	}
}

func TestConcurrentReadOfRebindingIsUnordered(t *testing.T) {
	// The call may observe either binding of x, but never anything else.
	for i := 0; i < 20; i++ {
		result := testEval(t, "let x = 1; let f = fn() { x }; let r = f(); let x = 2; r")
		n, ok := result.(*object.Integer)
		if !ok || (n.Value != 1 && n.Value != 2) {
			t.Fatalf("unexpected result %s", inspect(result))
		}
	}
}

func TestEvaluatorTracing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "autumn.eval")
	defer teardown()

	in := New(WithOutput(io.Discard))
	defer in.Wait()
	testIntegerObject(t, in.Evaluate("let f = fn(x) { x + 1 }; f(1) * f(2) + f(3)"), 10)
}

func TestTraceShowsTaskAndDepth(t *testing.T) {
	var traced bytes.Buffer
	log := gologadapter.New()
	log.SetOutput(&traced)
	log.SetTraceLevel(tracing.LevelDebug)
	tracing.SetTraceSelector(tracing.SelectorForAdapter(func() tracing.Trace { return log }))
	defer tracing.SetTraceSelector(nil)

	in := New(WithOutput(io.Discard))
	testIntegerObject(t, in.Evaluate("let f = fn(x) { x }; f(1)"), 1)
	in.Wait()

	out := traced.String()
	for _, line := range []string{
		"[task 0] BEGIN Program",
		"[task 0]   BEGIN LetStatement",
		"[task 0]     BEGIN FunctionLiteral",
		"[task 0]     BEGIN CallExpression",
		"[task 1] BEGIN BlockStatement",
		"[task 1]     BEGIN Identifier",
		"[task 1]     END Identifier",
		"[task 1] END BlockStatement",
		"[task 0] END Program",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("expected trace line %q, trace was:\n%s", line, out)
		}
	}
}

// ---------------------------------------------------------------------------

func testEval(t *testing.T, input string) object.Object {
	t.Helper()
	in := New(WithOutput(io.Discard))
	defer in.Wait()
	return in.Evaluate(input)
}

func inspect(obj object.Object) string {
	if obj == nil {
		return "<nil>"
	}
	return obj.Inspect()
}

func testIntegerObject(t *testing.T, obj object.Object, expected int64) bool {
	t.Helper()
	result, ok := obj.(*object.Integer)
	if !ok {
		t.Errorf("object is not Integer. got=%T (%s)", obj, inspect(obj))
		return false
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%d, want=%d", result.Value, expected)
		return false
	}
	return true
}

func testBooleanObject(t *testing.T, obj object.Object, expected bool) bool {
	t.Helper()
	result, ok := obj.(*object.Boolean)
	if !ok {
		t.Errorf("object is not Boolean. got=%T (%s)", obj, inspect(obj))
		return false
	}
	if result != object.NativeBool(expected) {
		t.Errorf("object has wrong value. got=%t, want=%t", result.Value, expected)
		return false
	}
	return true
}

func testNullObject(t *testing.T, obj object.Object) bool {
	t.Helper()
	if obj != object.NULL {
		t.Errorf("object is not NULL. got=%T (%s)", obj, inspect(obj))
		return false
	}
	return true
}
