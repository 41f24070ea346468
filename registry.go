package xhermes

import (
	"slices"
	"sync"
	"sync/atomic"
)

// observer is one registered listener plus its activation state.
type observer struct {
	l      *Listener
	active atomic.Bool
}

func newObserver(l *Listener) *observer {
	o := &observer{l: l}
	o.active.Store(true)
	return o
}

// line is the registry for one busline instance: ordered role lists,
// trigger entries and the named bindings published for them.
type line struct {
	id   atomic.Pointer[string]
	name string

	mu        sync.RWMutex
	lists     [len(roles)][]*observer
	triggers  map[string]*trigger
	bindings  map[string]TriggerFunc
	destroyed atomic.Bool
}

func newLine(id, name string) *line {
	ln := &line{
		name:     name,
		triggers: make(map[string]*trigger),
		bindings: make(map[string]TriggerFunc),
	}
	ln.id.Store(&id)
	return ln
}

func (ln *line) identity() string { return *ln.id.Load() }

// renew clears the line and gives it a new identity.
func (ln *line) renew(id string) []string {
	removed := ln.clear()
	ln.id.Store(&id)
	return removed
}

// add appends observers in order; returns the events whose trigger entries were created by this call.
func (ln *line) add(sub Subscription, mk func(ln *line, event string) *trigger) []string {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	var created []string
	for _, l := range sub {
		ln.lists[l.Role] = append(ln.lists[l.Role], newObserver(l))
		if _, ok := ln.triggers[l.Event]; ok {
			continue
		}
		t := mk(ln, l.Event)
		ln.triggers[l.Event] = t
		ln.bindings[TriggerName(l.Event)] = t.fire
		ln.bindings[ResolveName(l.Event)] = t.fire
		created = append(created, l.Event)
	}
	return created
}

// remove drops every observer whose listener is in sub. Trigger entries stay.
func (ln *line) remove(sub Subscription) int {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	removed := 0
	for i := range ln.lists {
		before := len(ln.lists[i])
		ln.lists[i] = slices.DeleteFunc(ln.lists[i], func(o *observer) bool {
			return slices.Contains(sub, o.l)
		})
		removed += before - len(ln.lists[i])
	}
	return removed
}

// setActive flips the activation flag of the observers whose listener is in sub.
func (ln *line) setActive(sub Subscription, active bool) int {
	ln.mu.RLock()
	defer ln.mu.RUnlock()

	n := 0
	for i := range ln.lists {
		for _, o := range ln.lists[i] {
			if slices.Contains(sub, o.l) {
				o.active.Store(active)
				n++
			}
		}
	}
	return n
}

// snapshot copies the list for one role of one event at stage start.
func (ln *line) snapshot(role Role, event string) []*observer {
	ln.mu.RLock()
	defer ln.mu.RUnlock()

	var out []*observer
	for _, o := range ln.lists[role] {
		if o.l.Event == event {
			out = append(out, o)
		}
	}
	return out
}

func (ln *line) trigger(event string) (*trigger, bool) {
	ln.mu.RLock()
	t, ok := ln.triggers[event]
	ln.mu.RUnlock()
	return t, ok
}

func (ln *line) binding(name string) (TriggerFunc, bool) {
	ln.mu.RLock()
	f, ok := ln.bindings[name]
	ln.mu.RUnlock()
	return f, ok
}

func (ln *line) events() []string {
	ln.mu.RLock()
	out := make([]string, 0, len(ln.triggers))
	for ev := range ln.triggers {
		out = append(out, ev)
	}
	ln.mu.RUnlock()
	slices.Sort(out)
	return out
}

// clear drops observers, triggers and bindings; returns the binding names removed.
func (ln *line) clear() []string {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	names := make([]string, 0, len(ln.bindings))
	for name := range ln.bindings {
		names = append(names, name)
	}
	for i := range ln.lists {
		ln.lists[i] = nil
	}
	ln.triggers = make(map[string]*trigger)
	ln.bindings = make(map[string]TriggerFunc)
	slices.Sort(names)
	return names
}

func (ln *line) observerCount() int {
	ln.mu.RLock()
	defer ln.mu.RUnlock()
	n := 0
	for i := range ln.lists {
		n += len(ln.lists[i])
	}
	return n
}
