package xhermes

import (
	"context"

	"github.com/google/uuid"
	"github.com/trickstertwo/xlog"
)

// dispatch starts one pass for (ln, event) and returns its completion.
// Short-circuits (closed bus, destroyed busline, unknown or inactive event)
// resolve immediately without invoking any observer.
func (b *Bus) dispatch(ctx context.Context, ln *line, event string, args []any) *Completion {
	c := newCompletion(uuid.NewString(), ln.name, event)

	if b.closed.Load() {
		c.faults = append(c.faults, ErrBusClosed)
		c.finish(StatusClosed, 0)
		return c
	}

	if ln.destroyed.Load() {
		b.logger.Warn().Str("busline", ln.name).Str("event", event).Msg("xhermes: trigger on unregistered busline")
		c.finish(StatusUnknownBusline, 0)
		return c
	}

	t, ok := ln.trigger(event)
	if !ok {
		b.metrics.unknownCount.Add(1)
		b.logger.Warn().Str("busline", ln.name).Str("event", event).Msg("xhermes: no such event")
		b.notifyAsync(Signal{Type: SignalUnknownEvent, Busline: ln.name, Event: event, Invocation: c.id, Status: StatusUnknownEvent})
		c.finish(StatusUnknownEvent, 0)
		return c
	}

	// Activation is read once; disabling mid-flight only affects later passes.
	if !t.active.Load() {
		b.metrics.inactiveCount.Add(1)
		b.notifyAsync(Signal{Type: SignalInactiveEvent, Busline: ln.name, Event: event, Invocation: c.id, Status: StatusInactive})
		c.finish(StatusInactive, 0)
		return c
	}

	b.metrics.triggerCount.Add(1)
	if ctx == nil {
		ctx = context.Background()
	}
	hctx := injectPass(context.WithoutCancel(ctx), b, c)
	go b.run(hctx, ln, args, c)
	return c
}

// run executes Before, On and After in order. Each stage copies its list when
// it starts, so observers subscribed mid-stage join from the next stage or pass.
func (b *Bus) run(ctx context.Context, ln *line, args []any, c *Completion) {
	start := b.clock.Now()
	b.notifyAsync(Signal{Type: SignalTriggerStart, Busline: c.busline, Event: c.event, Invocation: c.id, At: start})

	invoked := 0
	for _, role := range roles {
		stageStart := b.clock.Now()
		list := ln.snapshot(role, c.event)
		n := 0
		for _, o := range list {
			if !o.active.Load() {
				continue
			}
			b.invoke(ctx, o, args, c)
			n++
		}
		invoked += n
		b.notifyAsync(Signal{
			Type:       SignalStageDone,
			Busline:    c.busline,
			Event:      c.event,
			Invocation: c.id,
			Role:       role,
			Observers:  n,
			Duration:   b.clock.Since(stageStart),
		})
	}

	d := b.clock.Since(start)
	b.recordProcessingTime(d.Nanoseconds())
	b.metrics.completedCount.Add(1)
	c.finish(StatusCompleted, d)

	b.notifyAsync(Signal{
		Type:       SignalTriggerDone,
		Busline:    c.busline,
		Event:      c.event,
		Invocation: c.id,
		Status:     StatusCompleted,
		Observers:  invoked,
		Duration:   d,
		Err:        c.Err(),
	})
}

// invoke runs one observer and, for synchronous ones, blocks until it resolves.
// Faults are recorded and never stop the pass.
func (b *Bus) invoke(ctx context.Context, o *observer, args []any, c *Completion) {
	b.metrics.invokedCount.Add(1)
	l := o.l
	call := &Call{
		Busline:    c.busline,
		Event:      c.event,
		Invocation: c.id,
		Role:       l.Role,
		Sync:       l.Sync(),
		Location:   l.Location,
		Args:       args,
		listener:   l,
	}

	var res *resolver
	if call.Sync {
		res = newResolver(func() { b.resolveRepeated(call) })
		call.resolve = res.resolve
	}

	if err := b.invoker(ctx, call); err != nil {
		b.fault(c, call, err)
		if res != nil {
			res.resolve(nil)
		}
	}

	if res == nil {
		return
	}
	// No timeout: an observer that never resolves stalls this pass only.
	<-res.done
	c.values = append(c.values, res.payload)
}

func (b *Bus) fault(c *Completion, call *Call, err error) {
	b.metrics.faultCount.Add(1)
	oe := &ObserverError{
		Busline:  call.Busline,
		Event:    call.Event,
		Role:     call.Role,
		Location: call.Location,
		Err:      err,
	}
	c.faults = append(c.faults, oe)
	b.logger.With(
		xlog.Str("busline", call.Busline),
		xlog.Str("event", call.Event),
		xlog.Str("role", call.Role.String()),
		xlog.Str("invocation", call.Invocation),
	).Warn().Err(err).Msg("xhermes: observer fault")
	b.notifyAsync(Signal{
		Type:       SignalObserverFault,
		Busline:    call.Busline,
		Event:      call.Event,
		Invocation: call.Invocation,
		Role:       call.Role,
		Err:        oe,
	})
}

func (b *Bus) resolveRepeated(call *Call) {
	b.logger.Debug().Str("busline", call.Busline).Str("event", call.Event).Msg("xhermes: resolve called more than once (ignored)")
	b.notifyAsync(Signal{
		Type:       SignalResolveRepeated,
		Busline:    call.Busline,
		Event:      call.Event,
		Invocation: call.Invocation,
		Role:       call.Role,
	})
}
