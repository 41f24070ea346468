package xhermes

import "context"

// Busline is a handle on one busline instance. A handle never follows a name:
// once its busline is destroyed it keeps reporting ErrUnknownBusline, even if a
// later Subscribe creates a fresh busline under the same name.
type Busline struct {
	bus  *Bus
	line *line
}

func (h *Busline) Name() string { return h.line.name }

// ID identifies this busline instance. A re-created busline gets a new one,
// and so does the default busline on HardReset.
func (h *Busline) ID() string { return h.line.identity() }

// Destroyed reports whether this instance has been torn down.
func (h *Busline) Destroyed() bool { return h.line.destroyed.Load() }

// Trigger runs the Before, On and After stages for event.
func (h *Busline) Trigger(ctx context.Context, event string, args ...any) *Completion {
	return h.bus.dispatch(ctx, h.line, event, args)
}

// Binding returns a named trigger such as "triggerFooEvent" or "resolveFooEvent".
func (h *Busline) Binding(name string) (TriggerFunc, bool) {
	if h.line.destroyed.Load() {
		return nil, false
	}
	return h.line.binding(name)
}

// Enable re-activates the trigger entry of event.
func (h *Busline) Enable(event string) error { return h.setEventActive(event, true) }

// Disable deactivates the trigger entry of event: later passes run no observer
// at all, hooks included. Observers stay registered.
func (h *Busline) Disable(event string) error { return h.setEventActive(event, false) }

func (h *Busline) setEventActive(event string, active bool) error {
	if h.line.destroyed.Load() {
		return ErrUnknownBusline
	}
	t, ok := h.line.trigger(event)
	if !ok {
		return ErrUnknownEvent
	}
	t.active.Store(active)
	return nil
}

// HasEvent reports whether a trigger entry exists for event, active or not.
func (h *Busline) HasEvent(event string) bool {
	if h.line.destroyed.Load() {
		return false
	}
	_, ok := h.line.trigger(event)
	return ok
}

// Events lists the events with a trigger entry, sorted.
func (h *Busline) Events() []string {
	if h.line.destroyed.Load() {
		return nil
	}
	return h.line.events()
}

// Observers counts the registered observers across all events and roles.
func (h *Busline) Observers() int {
	if h.line.destroyed.Load() {
		return 0
	}
	return h.line.observerCount()
}

// Activate re-enables the observers registered with the listeners of sub.
func (h *Busline) Activate(sub Subscription) error { return h.setObserversActive(sub, true) }

// Deactivate makes the pipeline skip the observers registered with the
// listeners of sub, independently of the event's own activation.
func (h *Busline) Deactivate(sub Subscription) error { return h.setObserversActive(sub, false) }

func (h *Busline) setObserversActive(sub Subscription, active bool) error {
	if h.line.destroyed.Load() {
		return ErrUnknownBusline
	}
	h.line.setActive(sub, active)
	return nil
}

// Destroy removes this busline, its triggers and bindings from the bus.
// The default busline cannot be destroyed; use Reset or HardReset.
func (h *Busline) Destroy() error {
	return h.bus.destroy(h.line)
}
