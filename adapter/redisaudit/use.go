package redisaudit

import (
	"fmt"

	"github.com/trickstertwo/xhermes"
)

// Use builds a Bus that records its signals into Redis and sets it as the
// default Bus, then returns it. Closing the bus closes the Redis client.
// Mirrors xlog/xclock "Use" behavior: explicit construction and global install.
func Use(cfg Config, opts ...Option) *xhermes.Bus {
	probe, err := NewProbe(cfg)
	if err != nil {
		panic(fmt.Errorf("redisaudit.Use: %w", err))
	}
	cfg = probe.cfg

	bb := xhermes.NewBusBuilder().WithProbe(probe)
	if cfg.Workers > 0 {
		bb.WithProbePool(cfg.Workers, cfg.BufferSize)
	}
	o := &options{bb: bb}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger != nil {
		probe.SetLogger(o.logger)
	}

	bus, err := bb.Build()
	if err != nil {
		_ = probe.Close()
		panic(fmt.Errorf("redisaudit.Use: %w", err))
	}

	// Install as process-wide default (replaces any existing default).
	xhermes.SetDefault(bus)
	return bus
}

// UseMap is Use for generic config maps (see ConfigFromMap for keys).
func UseMap(m map[string]any, opts ...Option) *xhermes.Bus {
	return Use(ConfigFromMap(m), opts...)
}
