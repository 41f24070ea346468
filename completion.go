package xhermes

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Completion is the single completion signal of one trigger pass.
// Accessors other than Done and Wait report zero values until the pass is over.
type Completion struct {
	id      string
	busline string
	event   string

	done     chan struct{}
	status   Status
	values   []any
	faults   []error
	duration time.Duration
}

func newCompletion(id, busline, event string) *Completion {
	return &Completion{
		id:      id,
		busline: busline,
		event:   event,
		done:    make(chan struct{}),
	}
}

// finish publishes the outcome. Must be called exactly once.
func (c *Completion) finish(status Status, d time.Duration) {
	c.status = status
	c.duration = d
	close(c.done)
}

// ID is the invocation id, also visible to observers via InvocationFromContext.
func (c *Completion) ID() string      { return c.id }
func (c *Completion) Busline() string { return c.busline }
func (c *Completion) Event() string   { return c.event }

// Done is closed once the After stage (or a short-circuit) has finished.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Wait blocks until the pass is over or ctx ends. It returns ctx.Err() when the
// caller gives up (the pass itself keeps running), otherwise the joined observer faults.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Completion) finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Status reports how the pass ended, or StatusPending while it runs.
func (c *Completion) Status() Status {
	if !c.finished() {
		return StatusPending
	}
	return c.status
}

// Values returns the payloads resolved by synchronous observers, in execution order.
// Fire-and-forget observers contribute no entry; faulted synchronous observers contribute nil.
func (c *Completion) Values() []any {
	if !c.finished() {
		return nil
	}
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out
}

// Faults returns every observer fault recorded during the pass.
func (c *Completion) Faults() []error {
	if !c.finished() {
		return nil
	}
	out := make([]error, len(c.faults))
	copy(out, c.faults)
	return out
}

// Err joins the recorded faults; nil when every observer succeeded.
func (c *Completion) Err() error {
	if !c.finished() {
		return nil
	}
	return errors.Join(c.faults...)
}

// Duration is the wall time of the pass measured with the bus clock.
func (c *Completion) Duration() time.Duration {
	if !c.finished() {
		return 0
	}
	return c.duration
}

// resolver backs the Resolve handed to one synchronous observer.
type resolver struct {
	fired    atomic.Bool
	done     chan struct{}
	payload  any
	repeated func()
}

func newResolver(repeated func()) *resolver {
	return &resolver{done: make(chan struct{}), repeated: repeated}
}

func (r *resolver) resolve(payload any) {
	if r.fired.Swap(true) {
		if r.repeated != nil {
			r.repeated()
		}
		return
	}
	r.payload = payload
	close(r.done)
}
