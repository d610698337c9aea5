package eval

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"autumn/pkg/object"
)

// Executor runs function applications on goroutines and hands out their
// results as pending values.
type Executor struct {
	wg      sync.WaitGroup
	running atomic.Int64
	nextID  atomic.Int64
}

func NewExecutor() *Executor {
	return &Executor{}
}

// Go starts task on a new goroutine, passing it a task id unique within x
// (starting at 1). The returned pending value is resolved with the task's
// result. A panicking task resolves to an error value.
func (x *Executor) Go(task func(id int64) object.Object) *object.Pending {
	p := object.NewPending()
	id := x.nextID.Add(1)
	x.wg.Add(1)
	x.running.Add(1)
	go func() {
		defer x.wg.Done()
		defer x.running.Add(-1)
		p.Resolve(safeInvoke(id, task))
	}()
	return p
}

// Wait blocks until every task started so far, and every task those tasks
// started, has finished.
func (x *Executor) Wait() {
	x.wg.Wait()
}

// Running returns the number of unfinished tasks.
func (x *Executor) Running() int64 {
	return x.running.Load()
}

func safeInvoke(id int64, task func(id int64) object.Object) (result object.Object) {
	defer func() {
		if r := recover(); r != nil {
			tracer().Errorf("panic in call (task %d): %v\n%s", id, r, debug.Stack())
			result = object.NewError("panic in call: %s", fmt.Sprint(r))
		}
	}()
	return task(id)
}
