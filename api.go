package xhermes

import (
	"context"
)

// Probe receives bus lifecycle signals. Implementations should be non-blocking.
type Probe interface {
	OnSignal(s Signal)
}

// HealthChecker provides health status for monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// BuslineAPI is the surface of a single busline handle.
type BuslineAPI interface {
	Name() string
	Trigger(ctx context.Context, event string, args ...any) *Completion
	Binding(name string) (TriggerFunc, bool)
	Enable(event string) error
	Disable(event string) error
	HasEvent(event string) bool
	Events() []string
	Activate(sub Subscription) error
	Deactivate(sub Subscription) error
	Destroy() error
}

// API represents the complete xhermes bus surface.
type API interface {
	Subscribe(busline string, sub Subscription) error
	Unsubscribe(busline string, sub Subscription)
	Trigger(ctx context.Context, event string, args ...any) *Completion
	Enable(event string) error
	Disable(event string) error
	HasEvent(event string) bool
	Busline(name string) (*Busline, bool)
	Main() *Busline
	Buslines() []string
	Reset()
	HardReset()
	LoadSubscribers(paths ...string) error
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddProbe(p Probe)
	RemoveProbe(p Probe)
}

var (
	_ API        = (*Bus)(nil)
	_ BuslineAPI = (*Busline)(nil)
)
