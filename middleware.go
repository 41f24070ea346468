package xhermes

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/trickstertwo/xlog"
)

// Call describes one observer invocation inside a trigger pass.
type Call struct {
	Busline    string
	Event      string
	Invocation string
	Role       Role
	Sync       bool
	Location   string
	Args       []any

	listener *Listener
	resolve  Resolve
}

// Invoker runs one observer. Returning an error records a fault for that observer only.
type Invoker func(ctx context.Context, call *Call) error

// Middleware composes concerns around observer invocation.
type Middleware func(next Invoker) Invoker

// invokeListener is the innermost Invoker: it hands args (and resolve) to the listener.
func invokeListener(ctx context.Context, call *Call) error {
	if call.listener.SyncHandler != nil {
		return call.listener.SyncHandler(ctx, call.resolve, call.Args...)
	}
	return call.listener.Handler(ctx, call.Args...)
}

// RecoveryMiddleware converts observer panics into errors wrapping ErrHandlerPanic,
// so the rest of the stage still runs.
func RecoveryMiddleware() Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) error {
			var (
				pc  panics.Catcher
				err error
			)
			pc.Try(func() { err = next(ctx, call) })
			if r := pc.Recovered(); r != nil {
				return fmt.Errorf("%w: %w", ErrHandlerPanic, r.AsError())
			}
			return err
		}
	}
}

// LoggingMiddleware logs every observer invocation at debug level and failures at warn.
func LoggingMiddleware(l *xlog.Logger) Middleware {
	return func(next Invoker) Invoker {
		if l == nil {
			return next
		}
		return func(ctx context.Context, call *Call) error {
			clk, timed := ClockFromContext(ctx)
			var start time.Time
			if timed {
				start = clk.Now()
			}
			err := next(ctx, call)
			lg := l.With(
				xlog.Str("busline", call.Busline),
				xlog.Str("event", call.Event),
				xlog.Str("role", call.Role.String()),
				xlog.Str("invocation", call.Invocation),
			)
			if err != nil {
				lg.Warn().Err(err).Str("location", call.Location).Msg("xhermes: observer failed")
				return err
			}
			if timed {
				lg = lg.With(xlog.Dur("duration", clk.Since(start)))
			}
			lg.Debug().Msg("xhermes: observer invoked")
			return nil
		}
	}
}

// Chain composes middlewares around an invoker in order.
func Chain(inv Invoker, mws ...Middleware) Invoker {
	if len(mws) == 0 {
		return inv
	}
	wrapped := inv
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
