package object

import "sync"

// Pending is the placeholder result of a call that is still running on its
// own goroutine. Its result cell is written exactly once by Resolve.
//
// A pending value is either forced (see Force) by whoever consumes it, or
// detached, in which case nobody waits for it and a failing result is handed
// to the report function given to Detach.
type Pending struct {
	done chan struct{}

	mu       sync.Mutex
	result   Object
	resolved bool
	detached bool
	report   func(*Error)
}

func NewPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) Kind() ObjectKind { return KindPending }

// Inspect waits for the result and inspects it.
func (p *Pending) Inspect() string { return Force(p).Inspect() }

// Resolve fills the result cell and releases all waiters. Resolving a
// pending value twice is a programming error and panics.
func (p *Pending) Resolve(result Object) {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		panic("object: pending value resolved twice")
	}
	p.result = result
	p.resolved = true
	detached, report := p.detached, p.report
	p.mu.Unlock()
	close(p.done)
	if detached {
		reportDetached(result, report)
	}
}

// Done is closed once the result is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the result is available and returns it. The result may
// itself be pending; use Force to wait for a final value.
func (p *Pending) Await() Object {
	<-p.done
	return p.result
}

// Detach marks p as fire-and-forget. If its result is an error, report is
// called with it exactly once, whether the task has already finished or not.
// Detaching twice has no further effect.
func (p *Pending) Detach(report func(*Error)) {
	p.mu.Lock()
	if p.detached {
		p.mu.Unlock()
		return
	}
	p.detached = true
	p.report = report
	resolved, result := p.resolved, p.result
	p.mu.Unlock()
	if resolved {
		reportDetached(result, report)
	}
}

func reportDetached(result Object, report func(*Error)) {
	switch r := result.(type) {
	case *Error:
		if report != nil {
			report(r)
		}
	case *Pending:
		r.Detach(report)
	}
}

// Force waits for obj if it is pending, following chains of pending values
// until a final value is reached. Other values are returned unchanged.
func Force(obj Object) Object {
	for {
		p, ok := obj.(*Pending)
		if !ok {
			return obj
		}
		obj = p.Await()
	}
}
