/*
Package eval is the tree-walking evaluator for autumn programs.

Every call expression runs on its own goroutine and immediately yields an
object.Pending. Consumers that need the actual value (operators, index
expressions, call arguments and the last statement of a program) force it;
pending results of other top-level statements, and of statements a function
body or if branch moves past, are detached. A detached call that fails is
logged.

Tracing goes to the selector "autumn.eval". At level Debug every node
evaluation is traced, tagged with the id of the call's task and indented by
nesting depth.
*/
package eval

import (
	"io"
	"sync"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'autumn.eval'.
func tracer() tracing.Trace {
	return serialTrace{tracing.Select("autumn.eval")}
}

// traceMu serializes all tracing of this package. Calls trace from their
// own goroutines, and trace adapters are not required to be safe for
// concurrent use.
var traceMu sync.Mutex

type serialTrace struct {
	t tracing.Trace
}

func (s serialTrace) Errorf(format string, args ...interface{}) {
	traceMu.Lock()
	defer traceMu.Unlock()
	s.t.Errorf(format, args...)
}

func (s serialTrace) Infof(format string, args ...interface{}) {
	traceMu.Lock()
	defer traceMu.Unlock()
	s.t.Infof(format, args...)
}

func (s serialTrace) Debugf(format string, args ...interface{}) {
	traceMu.Lock()
	defer traceMu.Unlock()
	s.t.Debugf(format, args...)
}

func (s serialTrace) P(key string, val interface{}) tracing.Trace {
	traceMu.Lock()
	defer traceMu.Unlock()
	return serialTrace{s.t.P(key, val)}
}

func (s serialTrace) SetTraceLevel(level tracing.TraceLevel) {
	traceMu.Lock()
	defer traceMu.Unlock()
	s.t.SetTraceLevel(level)
}

func (s serialTrace) GetTraceLevel() tracing.TraceLevel {
	traceMu.Lock()
	defer traceMu.Unlock()
	return s.t.GetTraceLevel()
}

func (s serialTrace) SetOutput(w io.Writer) {
	traceMu.Lock()
	defer traceMu.Unlock()
	s.t.SetOutput(w)
}
