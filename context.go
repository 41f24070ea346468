package xhermes

import (
	"context"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// ctxKey is the base for all context keys in xhermes (prevents collisions).
type ctxKey string

const (
	loggerCtxKey     ctxKey = "xhermes:logger"
	clockCtxKey      ctxKey = "xhermes:clock"
	buslineCtxKey    ctxKey = "xhermes:busline"
	eventCtxKey      ctxKey = "xhermes:event"
	invocationCtxKey ctxKey = "xhermes:invocation"
)

func injectLogger(ctx context.Context, l *xlog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerCtxKey, l)
}

// LoggerFromContext returns the bus logger handed to observers.
func LoggerFromContext(ctx context.Context) (*xlog.Logger, bool) {
	if v := ctx.Value(loggerCtxKey); v != nil {
		if l, ok := v.(*xlog.Logger); ok && l != nil {
			return l, true
		}
	}
	return nil, false
}

func injectClock(ctx context.Context, c xclock.Clock) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, clockCtxKey, c)
}

func ClockFromContext(ctx context.Context) (xclock.Clock, bool) {
	if v := ctx.Value(clockCtxKey); v != nil {
		if c, ok := v.(xclock.Clock); ok && c != nil {
			return c, true
		}
	}
	return nil, false
}

func stringFromContext(ctx context.Context, key ctxKey) (string, bool) {
	s, ok := ctx.Value(key).(string)
	return s, ok && s != ""
}

// BuslineFromContext returns the name of the busline being triggered.
func BuslineFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, buslineCtxKey)
}

// EventFromContext returns the event name being triggered.
func EventFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, eventCtxKey)
}

// InvocationFromContext returns the id of the running pass (same as Completion.ID).
func InvocationFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, invocationCtxKey)
}

// injectPass attaches everything an observer may want to know about the running pass.
func injectPass(ctx context.Context, b *Bus, c *Completion) context.Context {
	ctx = injectLogger(ctx, b.logger)
	ctx = injectClock(ctx, b.clock)
	ctx = context.WithValue(ctx, buslineCtxKey, c.busline)
	ctx = context.WithValue(ctx, eventCtxKey, c.event)
	return context.WithValue(ctx, invocationCtxKey, c.id)
}
