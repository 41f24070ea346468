package xhermes

import (
	"context"
	"sync/atomic"
	"unicode"
	"unicode/utf8"
)

// trigger is the entry point bound to one (busline, event) pair.
// Its active flag is independent of the observers' own activation.
type trigger struct {
	bus    *Bus
	line   *line
	event  string
	active atomic.Bool
}

func (b *Bus) newTrigger(ln *line, event string) *trigger {
	t := &trigger{bus: b, line: ln, event: event}
	t.active.Store(true)
	return t
}

// fire is the stable TriggerFunc published for this pair.
func (t *trigger) fire(ctx context.Context, args ...any) *Completion {
	return t.bus.dispatch(ctx, t.line, t.event, args)
}

// TriggerName returns the named binding for an event, e.g. "triggerFooEvent".
func TriggerName(event string) string { return "trigger" + upperFirst(event) }

// ResolveName returns the resolve-style binding for an event, e.g. "resolveFooEvent".
func ResolveName(event string) string { return "resolve" + upperFirst(event) }

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
