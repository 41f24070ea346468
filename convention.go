package xhermes

import (
	"context"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyncMarker prefixes a convention key whose observer must be awaited, e.g. "syncOnFooEvent".
const SyncMarker = "sync"

var rolePrefixes = []struct {
	prefix string
	role   Role
}{
	{"before", RoleBefore},
	{"after", RoleAfter},
	{"on", RoleOn},
}

// Parse turns convention-named handlers into a Subscription:
//
//	"onFooEvent"         -> RoleOn, event "fooEvent"
//	"beforeFooEvent"     -> RoleBefore
//	"afterFooEvent"      -> RoleAfter
//	"syncOnFooEvent"     -> same, awaited (value must be a SyncHandlerFunc)
//
// Keys without a recognised prefix, and values that are not a handler of the
// kind the key asks for, are ignored. Keys are processed in sorted order since
// map iteration is random; use an explicit Subscription when order matters.
func Parse(handlers map[string]any) Subscription {
	keys := make([]string, 0, len(handlers))
	for k := range handlers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sub Subscription
	for _, k := range keys {
		if l, ok := ParseKey(k, handlers[k]); ok {
			sub = append(sub, l)
		}
	}
	return sub
}

// ParseKey parses one convention key and its handler value.
func ParseKey(key string, v any) (*Listener, bool) {
	rest := key
	sync := false
	if after, ok := cutWord(rest, SyncMarker); ok {
		rest = lowerFirst(after)
		sync = true
	}

	for _, p := range rolePrefixes {
		name, ok := cutWord(rest, p.prefix)
		if !ok {
			continue
		}
		l := &Listener{Event: lowerFirst(name), Role: p.role}
		if sync {
			l.SyncHandler = asSyncHandler(v)
		} else {
			l.Handler = asHandler(v)
		}
		return l, l.valid()
	}
	return nil, false
}

// cutWord strips prefix when it is followed by an upper-case rune.
func cutWord(s, prefix string) (string, bool) {
	after, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return s, false
	}
	r, n := utf8.DecodeRuneInString(after)
	if n == 0 || !unicode.IsUpper(r) {
		return s, false
	}
	return after, true
}

func asHandler(v any) HandlerFunc {
	switch fn := v.(type) {
	case HandlerFunc:
		return fn
	case func(context.Context, ...any) error:
		return fn
	}
	return nil
}

func asSyncHandler(v any) SyncHandlerFunc {
	switch fn := v.(type) {
	case SyncHandlerFunc:
		return fn
	case func(context.Context, Resolve, ...any) error:
		return fn
	}
	return nil
}

// On declares a fire-and-forget primary observer.
func On(event string, fn HandlerFunc) *Listener {
	return &Listener{Event: event, Role: RoleOn, Handler: fn}
}

// Before declares a fire-and-forget before-hook.
func Before(event string, fn HandlerFunc) *Listener {
	return &Listener{Event: event, Role: RoleBefore, Handler: fn}
}

// After declares a fire-and-forget after-hook.
func After(event string, fn HandlerFunc) *Listener {
	return &Listener{Event: event, Role: RoleAfter, Handler: fn}
}

// OnSync declares an awaited primary observer.
func OnSync(event string, fn SyncHandlerFunc) *Listener {
	return &Listener{Event: event, Role: RoleOn, SyncHandler: fn}
}

// BeforeSync declares an awaited before-hook.
func BeforeSync(event string, fn SyncHandlerFunc) *Listener {
	return &Listener{Event: event, Role: RoleBefore, SyncHandler: fn}
}

// AfterSync declares an awaited after-hook.
func AfterSync(event string, fn SyncHandlerFunc) *Listener {
	return &Listener{Event: event, Role: RoleAfter, SyncHandler: fn}
}
