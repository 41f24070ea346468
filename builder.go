package xhermes

import (
	"context"
	"sync"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances (Builder pattern).
type BusBuilder struct {
	middlewares []Middleware
	probes      []Probe
	logger      *xlog.Logger
	clock       xclock.Clock
	reserved    []string
	baseDir     string

	probeWorkers int
	probeBuffer  int
	logCalls     bool
}

// NewBusBuilder returns a new builder with sensible defaults.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{}
}

// WithConfig applies a decoded Config on top of what was set so far.
func (bb *BusBuilder) WithConfig(c Config) *BusBuilder {
	bb.reserved = append(bb.reserved, c.ReservedNames...)
	if c.BaseDir != "" {
		bb.baseDir = c.BaseDir
	}
	if c.ProbePool.Workers > 0 {
		bb.WithProbePool(c.ProbePool.Workers, c.ProbePool.BufferSize)
	}
	if c.LogInvocations {
		bb.logCalls = true
	}
	return bb
}

func (bb *BusBuilder) WithMiddleware(mw ...Middleware) *BusBuilder {
	if len(mw) == 0 {
		return bb
	}
	bb.middlewares = append(bb.middlewares, mw...)
	return bb
}

func (bb *BusBuilder) WithProbe(p ...Probe) *BusBuilder {
	for _, o := range p {
		if o != nil {
			bb.probes = append(bb.probes, o)
		}
	}
	return bb
}

// WithProbePool delivers signals on background workers instead of inline.
func (bb *BusBuilder) WithProbePool(workers, bufferSize int) *BusBuilder {
	bb.probeWorkers = workers
	bb.probeBuffer = bufferSize
	return bb
}

func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithReservedNames rejects extra busline names on top of the API names.
func (bb *BusBuilder) WithReservedNames(names ...string) *BusBuilder {
	bb.reserved = append(bb.reserved, names...)
	return bb
}

// WithBaseDir sets the directory relative LoadSubscribers paths resolve against.
func (bb *BusBuilder) WithBaseDir(dir string) *BusBuilder {
	bb.baseDir = dir
	return bb
}

// WithInvocationLogging wraps every observer call with LoggingMiddleware.
func (bb *BusBuilder) WithInvocationLogging() *BusBuilder {
	bb.logCalls = true
	return bb
}

func (bb *BusBuilder) Build() (*Bus, error) {
	var clk xclock.Clock
	if bb.clock != nil {
		clk = bb.clock
	} else {
		clk = xclock.Default()
	}
	var lg *xlog.Logger
	if bb.logger != nil {
		lg = bb.logger
	} else {
		lg = xlog.Default()
	}

	for _, n := range bb.reserved {
		if n == "" {
			return nil, ErrInvalidBuslineName
		}
	}

	b := newBus(clk, lg, bb.reserved)
	b.baseDir = bb.baseDir

	mws := bb.middlewares
	if bb.logCalls {
		mws = append([]Middleware{LoggingMiddleware(lg)}, mws...)
	}
	// Recovery is always innermost so middleware never sees a raw panic.
	b.invoker = Chain(RecoveryMiddleware()(invokeListener), mws...)

	if bb.probeWorkers > 0 {
		b.probePool = NewProbePool(bb.probeWorkers, bb.probeBuffer, b.deliverSignal)
	}
	for _, p := range bb.probes {
		b.AddProbe(p)
	}

	return b, nil
}

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// New constructs a Bus via Builder and returns a close func for convenience.
func New(init func(b *BusBuilder)) (*Bus, func() error, error) {
	b := NewBusBuilder()
	if init != nil {
		init(b)
	}
	bus, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return bus.Close(context.Background()) }
	return bus, closeFn, nil
}
