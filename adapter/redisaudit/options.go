package redisaudit

import (
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xhermes"
	"github.com/trickstertwo/xlog"
)

type options struct {
	bb     *xhermes.BusBuilder
	logger *xlog.Logger
}

// Option configures the xhermes.Bus construction when calling Use.
type Option func(*options)

// WithLogger injects a custom xlog logger for the bus and the probe.
func WithLogger(l *xlog.Logger) Option {
	return func(o *options) {
		o.bb.WithLogger(l)
		o.logger = l
	}
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(o *options) { o.bb.WithClock(c) }
}

// WithMiddleware adds observer middlewares.
func WithMiddleware(mw ...xhermes.Middleware) Option {
	return func(o *options) { o.bb.WithMiddleware(mw...) }
}

// WithProbe attaches further probes next to the Redis one.
func WithProbe(p ...xhermes.Probe) Option {
	return func(o *options) { o.bb.WithProbe(p...) }
}

// WithConfig applies core bus settings.
func WithConfig(c xhermes.Config) Option {
	return func(o *options) { o.bb.WithConfig(c) }
}
